package config

import (
	"io/fs"
	"strings"

	"github.com/go-go-golems/chatmemory/pkg/history"
	"github.com/go-go-golems/chatmemory/pkg/inference/ollama"
	"github.com/go-go-golems/chatmemory/pkg/inference/openai"
	"github.com/go-go-golems/chatmemory/pkg/session"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

const AppName = "chatmemory"

const (
	EngineOllama = "ollama"
	EngineOpenAI = "openai"
)

type Settings struct {
	History       history.Settings `yaml:"mongodb"`
	Engine        string           `yaml:"engine"`
	Model         string           `yaml:"model"`
	SessionFile   string           `yaml:"session-file"`
	HistoryWindow int              `yaml:"history-window"`
	Ollama        *ollama.Settings `yaml:"ollama,omitempty"`
	OpenAI        openai.Settings  `yaml:"openai"`
}

// envBindings maps config keys to the environment variables that set them.
var envBindings = map[string]string{
	"mongodb.uri":        "MONGODB_URI",
	"mongodb.database":   "MONGODB_DB",
	"mongodb.collection": "MONGODB_COLLECTION",
	"engine":             "CHATMEMORY_ENGINE",
	"model":              "CHATMEMORY_MODEL",
	"session-file":       "CHATMEMORY_SESSION_FILE",
	"history-window":     "CHATMEMORY_HISTORY_WINDOW",
	"openai.base-url":    "OPENAI_BASE_URL",
	"openai.api-key":     "OPENAI_API_KEY",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mongodb.database", history.DefaultDatabase)
	v.SetDefault("mongodb.collection", history.DefaultCollection)
	v.SetDefault("engine", EngineOllama)
	v.SetDefault("model", ollama.DefaultModel)
	v.SetDefault("session-file", session.DefaultMarkerFile)
	v.SetDefault("history-window", history.DefaultHistoryWindow)
	v.SetDefault("openai.base-url", openai.DefaultBaseURL)
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment. Variables that are already set win. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if p == "" {
			continue
		}
		err := gotenv.Load(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "could not load %s", p)
		}
		log.Debug().Str("path", p).Msg("loaded environment file")
	}
	return nil
}

// BindEnvironment sets the defaults and environment bindings on v. The config
// file search and the logging flags are set up by clay.InitViper.
func BindEnvironment(v *viper.Viper) error {
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return errors.Wrapf(err, "could not bind %s", env)
		}
	}
	v.SetEnvPrefix(AppName)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return nil
}

// ReadConfigFile merges an explicitly requested config file into v. Unlike
// the default search locations, the file has to exist.
func ReadConfigFile(v *viper.Viper, path string) error {
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "could not read config file %s", path)
	}
	log.Debug().Str("config", v.ConfigFileUsed()).Msg("loaded configuration")
	return nil
}

// Load reads the settings out of an initialized viper instance and validates them.
func Load(v *viper.Viper) (*Settings, error) {
	s := &Settings{
		History: history.Settings{
			URI:        strings.TrimSpace(v.GetString("mongodb.uri")),
			Database:   v.GetString("mongodb.database"),
			Collection: v.GetString("mongodb.collection"),
		},
		Engine:        strings.ToLower(strings.TrimSpace(v.GetString("engine"))),
		Model:         strings.TrimSpace(v.GetString("model")),
		SessionFile:   v.GetString("session-file"),
		HistoryWindow: v.GetInt("history-window"),
		Ollama:        ollama.NewSettings(),
		OpenAI: openai.Settings{
			BaseURL: v.GetString("openai.base-url"),
			APIKey:  v.GetString("openai.api-key"),
		},
	}

	if err := v.UnmarshalKey("ollama", s.Ollama); err != nil {
		return nil, errors.Wrap(err, "could not parse ollama settings")
	}
	if v.IsSet("openai.temperature") {
		t := float32(v.GetFloat64("openai.temperature"))
		s.OpenAI.Temperature = &t
	}
	if v.IsSet("openai.max-tokens") {
		n := v.GetInt("openai.max-tokens")
		s.OpenAI.MaxTokens = &n
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) Validate() error {
	if err := s.History.Validate(); err != nil {
		if errors.Is(err, history.ErrMissingURI) {
			return errors.Wrap(err, "MONGODB_URI must be set in the environment, a .env file or the config file")
		}
		return err
	}
	switch s.Engine {
	case EngineOllama, EngineOpenAI:
	default:
		return errors.Errorf("unknown engine %q, expected %s or %s", s.Engine, EngineOllama, EngineOpenAI)
	}
	if s.Model == "" {
		return errors.New("no model configured")
	}
	if strings.TrimSpace(s.SessionFile) == "" {
		return errors.New("no session file configured")
	}
	if s.HistoryWindow <= 0 {
		return errors.Errorf("history window must be positive, got %d", s.HistoryWindow)
	}
	return nil
}
