package flow

import (
	"context"
	"fmt"
	"strings"

	"github.com/bankabc/voice-agent/agent/contract"
	"github.com/bankabc/voice-agent/agent/data"
	"github.com/bankabc/voice-agent/agent/state"
	"github.com/bankabc/voice-agent/agent/tool"
)

// Card & ATM issues state machine:
// identify issue -> list cards -> select card -> confirm block -> execute -> done.
// The confirm/execute leg runs through the dispatcher's PendingAction protocol.
const (
	stepSelectCard = "select_card"
)

type CardATMHandler struct {
	tools *tool.Executor
}

func NewCardATMHandler(tools *tool.Executor) *CardATMHandler {
	return &CardATMHandler{tools: tools}
}

func (h *CardATMHandler) Flow() contract.Flow {
	return contract.FlowCardATMIssues
}

func (h *CardATMHandler) Handle(ctx context.Context, sess *state.Session, text string) (Outcome, error) {
	if !sess.Verified {
		return Outcome{
			Reply: "I can help with card and ATM issues. First, I need to verify your identity. " +
				"Please provide your Customer ID and PIN.",
			RequiresVerification: true,
		}, nil
	}

	lower := strings.ToLower(text)

	// Pure ATM problems need no card: file a report and finish.
	if sess.FlowStep == "" && strings.Contains(lower, "atm") && !mentionsCard(lower) {
		result := h.tools.Execute(ctx, sess, tool.ToolReportATMIssue, map[string]any{"detail": text})
		if !result.OK() {
			return apology(), nil
		}
		ticket, _ := result.Data.(map[string]any)
		return Outcome{
			Reply: fmt.Sprintf("I'm sorry about the ATM trouble. I've filed a report (%v) and our team will investigate. "+
				"If the machine kept your card or cash, the amount will be reconciled automatically.", ticket["ticket_id"]),
			Done: true,
		}, nil
	}

	result := h.tools.Execute(ctx, sess, tool.ToolGetCustomerCards, nil)
	if !result.OK() {
		return apology(), nil
	}
	cards, _ := result.Data.([]data.Card)
	if len(cards) == 0 {
		return Outcome{Reply: "No cards found for your account.", Done: true}, nil
	}

	wantsBlock := strings.Contains(lower, "block") || strings.Contains(lower, "freeze") ||
		strings.Contains(lower, "lost") || strings.Contains(lower, "stolen")

	if selected, ok := matchCard(cards, lower); ok && wantsBlock {
		return h.stageBlock(ctx, sess, selected, lower)
	}

	if sess.FlowStep == stepSelectCard {
		if selected, ok := matchCard(cards, lower); ok {
			return h.stageBlock(ctx, sess, selected, lower)
		}
		return Outcome{
			Reply: fmt.Sprintf("I couldn't match that to one of your cards.\n%s\nPlease give me the card ID, e.g. 'block %s'.",
				cardList(cards), cards[0].ID),
		}, nil
	}

	sess.FlowStep = stepSelectCard
	if wantsBlock {
		return Outcome{
			Reply: fmt.Sprintf("I can block a card for you. Here are your cards:\n%s\nWhich card should I block? "+
				"Please give me the card ID, e.g. 'block %s'.", cardList(cards), cards[0].ID),
		}, nil
	}
	return Outcome{
		Reply: fmt.Sprintf("I can help with that. Here are your cards:\n%s\nWhich card is having the issue?", cardList(cards)),
	}, nil
}

// stageBlock moves into the confirm-block state by installing the session's
// PendingAction. The actual block only runs once the user confirms.
func (h *CardATMHandler) stageBlock(ctx context.Context, sess *state.Session, card data.Card, lower string) (Outcome, error) {
	if card.Status == data.CardStatusBlocked {
		return Outcome{
			Reply: fmt.Sprintf("Card %s (%s) is already blocked, so there's nothing more to do.", card.ID, maskNumber(card.Number)),
			Done:  true,
		}, nil
	}

	prompt := fmt.Sprintf("You're asking me to permanently block your %s card %s ending in %s. "+
		"This cannot be undone. Reply yes to confirm or no to cancel.",
		card.Type, card.ID, lastFour(card.Number))

	pending := &state.PendingAction{
		Tool: tool.ToolBlockCard,
		Args: map[string]any{
			"card_id": card.ID,
			"reason":  blockReason(lower),
		},
		Prompt: prompt,
	}
	if err := sess.SetPending(pending); err != nil {
		return Outcome{}, err
	}
	sess.FlowStep = "confirm_block"
	return Outcome{Reply: prompt}, nil
}

func blockReason(lower string) string {
	switch {
	case strings.Contains(lower, "lost"):
		return "Customer request - lost"
	case strings.Contains(lower, "stolen"):
		return "Customer request - stolen"
	default:
		return "Customer request - security"
	}
}

func blockCardReply(result contract.ToolResult) string {
	blocked, _ := result.Data.(data.BlockCardResult)
	if result.Failure != nil && result.Failure.Code == contract.FailureAlreadyBlocked {
		return fmt.Sprintf("Card %s was already blocked; nothing changed.", maskNumber(blocked.Card.Number))
	}
	return fmt.Sprintf("Card %s has been blocked successfully. Reason: %s. A replacement will be mailed to your address on file.",
		maskNumber(blocked.Card.Number), blocked.Reason)
}

func matchCard(cards []data.Card, lower string) (data.Card, bool) {
	for _, c := range cards {
		if strings.Contains(lower, strings.ToLower(c.ID)) {
			return c, true
		}
	}
	return data.Card{}, false
}

func mentionsCard(lower string) bool {
	return strings.Contains(lower, "card") || strings.Contains(lower, "block") ||
		strings.Contains(lower, "lost") || strings.Contains(lower, "stolen")
}

func cardList(cards []data.Card) string {
	lines := make([]string, 0, len(cards))
	for _, c := range cards {
		lines = append(lines, fmt.Sprintf("- %s (%s) ending in %s - Status: %s",
			c.Type, c.ID, lastFour(c.Number), c.Status))
	}
	return strings.Join(lines, "\n")
}

func lastFour(number string) string {
	if len(number) <= 4 {
		return number
	}
	return number[len(number)-4:]
}

func maskNumber(number string) string {
	return "****" + lastFour(number)
}

func apology() Outcome {
	return Outcome{
		Reply: "Sorry, something went wrong on our side while handling that. Please try again in a moment.",
		Done:  true,
	}
}
