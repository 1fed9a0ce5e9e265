package nodes

import (
	"strings"
)

const helpReply = `I'm your Bank ABC assistant. Here's what I can help you with:

Account services:
- Check account balance
- View recent transactions
- Update your address or profile

Card & ATM issues:
- Report lost or stolen cards
- Block cards immediately
- Report ATM problems

Digital banking support, transfers & bill payments, account opening and closure requests are also routed here.

For security, I'll verify your identity before accessing account information.

Examples:
- "What's my balance?"
- "I lost my credit card"
- "Show my recent transactions"`

const greetingReply = "Hello! Welcome to Bank ABC. I'm your banking assistant. How can I help you today?\n\n" +
	"You can ask about your balance, report card issues, check transactions, or say 'help' to see all features."

const thanksReply = "You're welcome! Is there anything else I can help you with today?"

var helpPhrases = []string{
	"what can you do", "help me", "show features", "capabilities",
	"what do you do", "how can you help", "what are you", "who are you",
}

var greetingPhrases = []string{"hello", "hi", "hey", "good morning", "good afternoon", "good evening"}

var thanksPhrases = []string{"thank you", "thanks"}

// Smalltalk answers help, greeting, and thanks turns before classification,
// so capability questions never fall into a service flow. A turn that is
// waiting on a pending confirmation skips this entirely.
func Smalltalk(in *GraphState) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, ErrNilGraphState
	}
	if in.Settled || in.Session.Pending != nil {
		return in, nil
	}

	lower := strings.ToLower(strings.TrimSpace(in.Text))
	switch {
	case lower == "help" || containsAnyPhrase(lower, helpPhrases):
		in.Settled = true
		in.Reply = helpReply
		in.FlowLabel = "help"
	case isGreetingOnly(lower):
		in.Settled = true
		in.Reply = greetingReply
		in.FlowLabel = "greeting"
	case startsWithAnyPhrase(lower, thanksPhrases):
		in.Settled = true
		in.Reply = thanksReply
		in.FlowLabel = "thanks"
	}
	return in, nil
}

func containsAnyPhrase(lower string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func startsWithAnyPhrase(lower string, phrases []string) bool {
	for _, p := range phrases {
		if lower == p || strings.HasPrefix(lower, p+" ") {
			return true
		}
	}
	return false
}

// isGreetingOnly requires the message to be just a greeting so "hi, I lost
// my card" still reaches classification.
func isGreetingOnly(lower string) bool {
	trimmed := strings.TrimRight(lower, "!. ")
	for _, g := range greetingPhrases {
		if trimmed == g {
			return true
		}
	}
	return false
}
