package ollama

import (
	"context"
	"strings"

	"github.com/go-go-golems/chatmemory/pkg/conversation"
	"github.com/go-go-golems/chatmemory/pkg/inference"
	"github.com/jmorganca/ollama/api"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ChatClient is the part of the ollama API client used by Engine.
type ChatClient interface {
	Chat(ctx context.Context, req *api.ChatRequest, fn api.ChatResponseFunc) error
}

type Engine struct {
	client   ChatClient
	model    string
	settings *Settings
}

var _ inference.Engine = (*Engine)(nil)

type EngineOption func(*Engine)

func WithClient(client ChatClient) EngineOption {
	return func(e *Engine) {
		e.client = client
	}
}

func WithSettings(settings *Settings) EngineOption {
	return func(e *Engine) {
		e.settings = settings
	}
}

// NewEngine returns an engine for model. Without WithClient, the client is
// configured from OLLAMA_HOST.
func NewEngine(model string, options ...EngineOption) (*Engine, error) {
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}

	ret := &Engine{
		model:    model,
		settings: NewSettings(),
	}
	for _, o := range options {
		o(ret)
	}

	if ret.client == nil {
		client, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, errors.Wrap(err, "could not create ollama client")
		}
		ret.client = client
	}

	return ret, nil
}

func (e *Engine) Model() string {
	return e.model
}

func (e *Engine) RunInference(ctx context.Context, messages conversation.Conversation) (string, error) {
	ollamaMessages := make([]api.Message, 0, len(messages))
	for _, msg := range messages {
		if msg == nil {
			continue
		}
		ollamaMessages = append(ollamaMessages, api.Message{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	options, err := e.settings.Options()
	if err != nil {
		return "", err
	}

	stream := false
	req := &api.ChatRequest{
		Model:    e.model,
		Messages: ollamaMessages,
		Stream:   &stream,
		Options:  options,
	}

	log.Debug().
		Str("model", e.model).
		Int("messages", len(ollamaMessages)).
		Msg("sending chat request to ollama")

	var reply strings.Builder
	err = e.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		reply.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", errors.Wrapf(err, "ollama chat with model %s failed", e.model)
	}

	return reply.String(), nil
}
