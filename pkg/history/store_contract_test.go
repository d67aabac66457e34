package history

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-go-golems/chatmemory/pkg/turns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreContract exercises the behavior every Store backend must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	t.Run("round trip keeps order and fields", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		require.NoError(t, s.Append(ctx, turns.NewUserTurn("sess", "Hello", base)))
		require.NoError(t, s.Append(ctx, turns.NewBotTurn("sess", "Hi there", "gemma2:2b", base.Add(time.Second))))

		got, err := s.FetchRecent(ctx, "sess", DefaultHistoryWindow)
		require.NoError(t, err)
		require.Len(t, got, 2)

		assert.Equal(t, turns.RoleUser, got[0].Role)
		assert.Equal(t, "Hello", got[0].Content)
		assert.Nil(t, got[0].Model)
		assert.True(t, got[0].Timestamp.Equal(base))

		assert.Equal(t, turns.RoleBot, got[1].Role)
		assert.Equal(t, "Hi there", got[1].Content)
		assert.Equal(t, "gemma2:2b", got[1].ModelName())
	})

	t.Run("window cap keeps most recent oldest first", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		for i := 0; i < 150; i++ {
			require.NoError(t, s.Append(ctx, turns.NewUserTurn("sess", fmt.Sprintf("m%03d", i), base.Add(time.Duration(i)*time.Second))))
		}

		got, err := s.FetchRecent(ctx, "sess", 100)
		require.NoError(t, err)
		require.Len(t, got, 100)
		assert.Equal(t, "m050", got[0].Content)
		assert.Equal(t, "m149", got[99].Content)
		for i := 1; i < len(got); i++ {
			assert.False(t, got[i].Timestamp.Before(got[i-1].Timestamp), "turns must be oldest first")
		}
	})

	t.Run("fewer than limit returns all", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		require.NoError(t, s.Append(ctx, turns.NewUserTurn("sess", "only", base)))

		got, err := s.FetchRecent(ctx, "sess", 100)
		require.NoError(t, err)
		require.Len(t, got, 1)
	})

	t.Run("equal timestamps keep insertion order", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		for _, c := range []string{"a", "b", "c"} {
			require.NoError(t, s.Append(ctx, turns.NewUserTurn("sess", c, base)))
		}

		got, err := s.FetchRecent(ctx, "sess", 2)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "b", got[0].Content)
		assert.Equal(t, "c", got[1].Content)
	})

	t.Run("sessions are isolated", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		require.NoError(t, s.Append(ctx, turns.NewUserTurn("one", "for one", base)))
		require.NoError(t, s.Append(ctx, turns.NewUserTurn("two", "for two", base)))

		got, err := s.FetchRecent(ctx, "one", 10)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "for one", got[0].Content)

		got, err = s.FetchRecent(ctx, "unknown", 10)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("non-positive limit returns nothing", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		require.NoError(t, s.Append(ctx, turns.NewUserTurn("sess", "x", base)))

		got, err := s.FetchRecent(ctx, "sess", 0)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("unknown roles are stored as is", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		require.NoError(t, s.Append(ctx, &turns.Turn{SessionID: "sess", Role: "system", Content: "sys", Timestamp: base}))

		got, err := s.FetchRecent(ctx, "sess", 10)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, turns.Role("system"), got[0].Role)
	})

	t.Run("invalid turns are rejected", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		err := s.Append(ctx, nil)
		assert.ErrorIs(t, err, ErrInvalidTurn)
		err = s.Append(ctx, &turns.Turn{Role: turns.RoleUser, Content: "x", Timestamp: base})
		assert.ErrorIs(t, err, ErrInvalidTurn)
		err = s.Append(ctx, &turns.Turn{SessionID: "sess", Role: turns.RoleUser, Content: "x"})
		assert.ErrorIs(t, err, ErrInvalidTurn)
	})

	t.Run("index creation is idempotent", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		require.NoError(t, s.EnsureIndexes(ctx))
		require.NoError(t, s.EnsureIndexes(ctx))
		require.NoError(t, s.Ping(ctx))
	})

	t.Run("closed store fails", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		require.NoError(t, s.Close(ctx))

		err := s.Append(ctx, turns.NewUserTurn("sess", "x", base))
		assert.ErrorIs(t, err, ErrStoreClosed)
		_, err = s.FetchRecent(ctx, "sess", 1)
		assert.ErrorIs(t, err, ErrStoreClosed)
	})
}
