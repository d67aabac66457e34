package openai

import (
	"context"
	"strings"

	"github.com/go-go-golems/chatmemory/pkg/conversation"
	"github.com/go-go-golems/chatmemory/pkg/inference"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"
)

// DefaultBaseURL is ollama's OpenAI-compatible endpoint.
const DefaultBaseURL = "http://localhost:11434/v1"

type Settings struct {
	BaseURL     string   `yaml:"base-url" mapstructure:"base-url"`
	APIKey      string   `yaml:"api-key" mapstructure:"api-key"`
	Temperature *float32 `yaml:"temperature,omitempty" mapstructure:"temperature"`
	MaxTokens   *int     `yaml:"max-tokens,omitempty" mapstructure:"max-tokens"`
}

// Engine talks to any chat-completions endpoint speaking the OpenAI protocol.
type Engine struct {
	client   *go_openai.Client
	model    string
	settings Settings
}

var _ inference.Engine = (*Engine)(nil)

func NewEngine(model string, settings Settings) (*Engine, error) {
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("no model specified for openai engine")
	}

	baseURL := settings.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	// ollama ignores the key, any placeholder will do
	apiKey := settings.APIKey
	if apiKey == "" {
		apiKey = "ollama"
	}

	config := go_openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL

	return &Engine{
		client:   go_openai.NewClientWithConfig(config),
		model:    model,
		settings: settings,
	}, nil
}

func (e *Engine) Model() string {
	return e.model
}

func (e *Engine) RunInference(ctx context.Context, messages conversation.Conversation) (string, error) {
	req := go_openai.ChatCompletionRequest{
		Model:    e.model,
		Messages: makeMessages(messages),
	}
	if e.settings.Temperature != nil {
		req.Temperature = *e.settings.Temperature
	}
	if e.settings.MaxTokens != nil {
		req.MaxTokens = *e.settings.MaxTokens
	}

	log.Debug().
		Str("model", e.model).
		Int("messages", len(req.Messages)).
		Msg("sending chat completion request")

	resp, err := e.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", errors.Wrapf(err, "chat completion with model %s failed", e.model)
	}
	if len(resp.Choices) == 0 {
		return "", errors.Errorf("chat completion with model %s returned no choices", e.model)
	}

	return resp.Choices[0].Message.Content, nil
}

func makeMessages(messages conversation.Conversation) []go_openai.ChatCompletionMessage {
	ret := make([]go_openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		if msg == nil {
			continue
		}
		role := go_openai.ChatMessageRoleUser
		switch msg.Role {
		case conversation.RoleAssistant:
			role = go_openai.ChatMessageRoleAssistant
		case conversation.RoleSystem:
			role = go_openai.ChatMessageRoleSystem
		case conversation.RoleUser:
		}
		ret = append(ret, go_openai.ChatCompletionMessage{
			Role:    role,
			Content: msg.Content,
		})
	}
	return ret
}
