package mock

import (
	"context"
	"testing"

	"github.com/go-go-golems/chatmemory/pkg/conversation"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_RoundRobin(t *testing.T) {
	ctx := context.Background()
	e := NewEngine("gemma2:2b", "one", "two")

	for _, want := range []string{"one", "two", "one"} {
		got, err := e.RunInference(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Len(t, e.Calls(), 3)
	assert.Equal(t, "gemma2:2b", e.Model())
}

func TestEngine_RecordsCopies(t *testing.T) {
	msgs := conversation.Conversation{conversation.NewChatMessage(conversation.RoleUser, "Hello")}
	e := NewEngine("m", "Hi there")

	_, err := e.RunInference(context.Background(), msgs)
	require.NoError(t, err)
	msgs[0].Content = "changed"

	last := e.LastCall()
	require.Len(t, last, 1)
	assert.Equal(t, "Hello", last[0].Content)
}

func TestEngine_Failures(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewFailingEngine("m", boom).RunInference(context.Background(), nil)
	assert.ErrorIs(t, err, boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewEngine("m", "unused").RunInference(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_NoReplies(t *testing.T) {
	e := NewEngine("m")
	got, err := e.RunInference(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Nil(t, NewEngine("m").LastCall())
}
