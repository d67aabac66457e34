package history

import (
	"context"

	"github.com/go-go-golems/chatmemory/pkg/turns"
)

// DefaultHistoryWindow is the number of recent turns replayed to the model.
const DefaultHistoryWindow = 100

// TurnWriter appends turns. Turns are never updated or deleted.
type TurnWriter interface {
	Append(ctx context.Context, turn *turns.Turn) error
}

// TurnReader fetches the recent history of a session.
type TurnReader interface {
	// FetchRecent returns up to limit of the most recent turns of sessionID,
	// ordered oldest to newest. Turns with equal timestamps keep insertion order.
	FetchRecent(ctx context.Context, sessionID string, limit int) ([]*turns.Turn, error)
}

// Store is the persistence abstraction used by the chat loop.
type Store interface {
	TurnWriter
	TurnReader
	// EnsureIndexes creates the (session_id, timestamp) index if it is missing.
	EnsureIndexes(ctx context.Context) error
	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
