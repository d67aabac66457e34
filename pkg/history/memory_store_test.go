package history

import (
	"context"
	"testing"
	"time"

	"github.com/go-go-golems/chatmemory/pkg/turns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore_Contract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		return NewInMemoryStore()
	})
}

func TestInMemoryStore_CloneOnReadAndWrite(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	turn := turns.NewBotTurn("sess", "original", "gemma2:2b", time.Now())
	require.NoError(t, s.Append(ctx, turn))
	turn.Content = "mutated after append"

	got, err := s.FetchRecent(ctx, "sess", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "original", got[0].Content)

	*got[0].Model = "mutated after read"
	again, err := s.FetchRecent(ctx, "sess", 1)
	require.NoError(t, err)
	assert.Equal(t, "gemma2:2b", again[0].ModelName())
	assert.Equal(t, 1, s.Len("sess"))
}

func TestInMemoryStore_SortsOutOfOrderTimestamps(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.Append(ctx, turns.NewUserTurn("sess", "late", base.Add(time.Minute))))
	require.NoError(t, s.Append(ctx, turns.NewUserTurn("sess", "early", base)))

	got, err := s.FetchRecent(ctx, "sess", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "early", got[0].Content)
	assert.Equal(t, "late", got[1].Content)
}
