package contract

import "context"

// Classifier maps raw user text to a flow. Implementations must be
// deterministic for the dispatcher contract to hold; a model-backed
// classifier can be swapped in behind this interface.
type Classifier interface {
	Classify(text string) Classification
}

// Completer is the external completion service, used only for natural
// language phrasing of tool results, never for routing decisions.
type Completer interface {
	Generate(ctx context.Context, prompt string, context string) (string, error)
}
