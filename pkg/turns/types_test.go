package turns

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUserTurn_HasNoModelAndUTCTimestamp(t *testing.T) {
	loc := time.FixedZone("CEST", 2*60*60)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, loc)

	turn := NewUserTurn("sess-1", "Hello", now)

	assert.Equal(t, "sess-1", turn.SessionID)
	assert.Equal(t, RoleUser, turn.Role)
	assert.Equal(t, "Hello", turn.Content)
	assert.Nil(t, turn.Model)
	assert.Equal(t, time.UTC, turn.Timestamp.Location())
	assert.True(t, turn.Timestamp.Equal(now))
	assert.Equal(t, "", turn.ModelName())
}

func TestNewBotTurn_RecordsModel(t *testing.T) {
	turn := NewBotTurn("sess-1", "Hi there", "gemma2:2b", time.Now())

	assert.Equal(t, RoleBot, turn.Role)
	require.NotNil(t, turn.Model)
	assert.Equal(t, "gemma2:2b", turn.ModelName())
}

func TestTurn_CloneIsDeep(t *testing.T) {
	orig := NewBotTurn("sess-1", "Hi", "gemma2:2b", time.Now())
	cp := orig.Clone()

	*cp.Model = "other"
	cp.Content = "changed"

	assert.Equal(t, "gemma2:2b", orig.ModelName())
	assert.Equal(t, "Hi", orig.Content)
	assert.Nil(t, (*Turn)(nil).Clone())
}

func TestRole_IsKnown(t *testing.T) {
	assert.True(t, RoleUser.IsKnown())
	assert.True(t, RoleBot.IsKnown())
	assert.False(t, Role("system").IsKnown())
	assert.False(t, Role("").IsKnown())
}
