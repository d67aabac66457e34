package factory

import (
	"strings"

	"github.com/go-go-golems/chatmemory/pkg/config"
	"github.com/go-go-golems/chatmemory/pkg/inference"
	"github.com/go-go-golems/chatmemory/pkg/inference/ollama"
	"github.com/go-go-golems/chatmemory/pkg/inference/openai"
	"github.com/pkg/errors"
)

// EngineFactory creates inference engines from the application settings.
type EngineFactory interface {
	CreateEngine(settings *config.Settings) (inference.Engine, error)
	SupportedProviders() []string
	DefaultProvider() string
}

// StandardEngineFactory builds ollama and OpenAI-compatible engines.
type StandardEngineFactory struct {
	// OllamaOptions are appended to the options derived from settings.
	OllamaOptions []ollama.EngineOption
}

var _ EngineFactory = (*StandardEngineFactory)(nil)

func NewStandardEngineFactory(ollamaOptions ...ollama.EngineOption) *StandardEngineFactory {
	return &StandardEngineFactory{
		OllamaOptions: ollamaOptions,
	}
}

func (f *StandardEngineFactory) CreateEngine(settings *config.Settings) (inference.Engine, error) {
	if settings == nil {
		return nil, errors.New("settings cannot be nil")
	}

	provider := strings.ToLower(settings.Engine)
	if provider == "" {
		provider = f.DefaultProvider()
	}

	switch provider {
	case config.EngineOllama:
		options := []ollama.EngineOption{}
		if settings.Ollama != nil {
			options = append(options, ollama.WithSettings(settings.Ollama.Clone()))
		}
		options = append(options, f.OllamaOptions...)
		return ollama.NewEngine(settings.Model, options...)
	case config.EngineOpenAI:
		return openai.NewEngine(settings.Model, settings.OpenAI)
	default:
		return nil, errors.Errorf("unsupported engine %q (supported: %s)",
			provider, strings.Join(f.SupportedProviders(), ", "))
	}
}

func (f *StandardEngineFactory) SupportedProviders() []string {
	return []string{config.EngineOllama, config.EngineOpenAI}
}

func (f *StandardEngineFactory) DefaultProvider() string {
	return config.EngineOllama
}
