package history

import (
	"github.com/go-go-golems/chatmemory/pkg/turns"
)

func validateTurn(t *turns.Turn) error {
	if t == nil {
		return &InvalidTurnError{Field: "turn", Reason: "must not be nil"}
	}
	if t.SessionID == "" {
		return &InvalidTurnError{Field: "session_id", Reason: "must not be empty"}
	}
	if t.Role == "" {
		return &InvalidTurnError{Field: "role", Reason: "must not be empty"}
	}
	if t.Timestamp.IsZero() {
		return &InvalidTurnError{Field: "timestamp", Reason: "must be set by the caller"}
	}
	return nil
}

// reverse flips newest-first query results into oldest-first order.
func reverse(ts []*turns.Turn) {
	for i, j := 0, len(ts)-1; i < j; i, j = i+1, j-1 {
		ts[i], ts[j] = ts[j], ts[i]
	}
}
