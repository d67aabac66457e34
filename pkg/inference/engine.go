package inference

import (
	"context"

	"github.com/go-go-golems/chatmemory/pkg/conversation"
)

// Engine sends an assembled conversation to a language model and returns the
// text of its reply. Engines do not persist anything and apply no timeout of
// their own; cancellation comes from ctx.
type Engine interface {
	RunInference(ctx context.Context, messages conversation.Conversation) (string, error)
	// Model is the name recorded on bot turns produced by this engine.
	Model() string
}
