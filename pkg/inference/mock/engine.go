package mock

import (
	"context"
	"sync"

	"github.com/go-go-golems/chatmemory/pkg/conversation"
	"github.com/go-go-golems/chatmemory/pkg/inference"
)

// Engine replies with canned answers in round-robin order and records every
// conversation it was asked to complete.
type Engine struct {
	model   string
	replies []string
	err     error

	mu    sync.Mutex
	index int
	calls []conversation.Conversation
}

var _ inference.Engine = (*Engine)(nil)

func NewEngine(model string, replies ...string) *Engine {
	return &Engine{
		model:   model,
		replies: replies,
	}
}

// NewFailingEngine returns an engine whose every call fails with err.
func NewFailingEngine(model string, err error) *Engine {
	return &Engine{
		model: model,
		err:   err,
	}
}

func (e *Engine) Model() string {
	return e.model
}

func (e *Engine) RunInference(ctx context.Context, messages conversation.Conversation) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.calls = append(e.calls, copyConversation(messages))

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if e.err != nil {
		return "", e.err
	}
	if len(e.replies) == 0 {
		return "", nil
	}

	reply := e.replies[e.index]
	e.index = (e.index + 1) % len(e.replies)

	return reply, nil
}

// Calls returns the conversations passed to RunInference, oldest call first.
func (e *Engine) Calls() []conversation.Conversation {
	e.mu.Lock()
	defer e.mu.Unlock()

	ret := make([]conversation.Conversation, len(e.calls))
	copy(ret, e.calls)
	return ret
}

func (e *Engine) LastCall() conversation.Conversation {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.calls) == 0 {
		return nil
	}
	return e.calls[len(e.calls)-1]
}

func copyConversation(c conversation.Conversation) conversation.Conversation {
	ret := make(conversation.Conversation, 0, len(c))
	for _, m := range c {
		if m == nil {
			continue
		}
		m_ := *m
		ret = append(ret, &m_)
	}
	return ret
}
