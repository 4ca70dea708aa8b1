package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/FrenchMajesty/semantic-search/pkg/types"
)

const (
	// DefaultDotEnvPath is the dotfile read at startup when no other path is given
	DefaultDotEnvPath = ".env"

	// DefaultIndexName is the index searched when none is configured
	DefaultIndexName = "msft-deep-search-oai-3-small"

	EnvPrefix = "SEMSEARCH"
)

// Settings is the process-wide configuration. It is loaded once and never mutated.
type Settings struct {
	Embedding   EmbeddingSettings `mapstructure:"embedding"`
	Store       StoreSettings     `mapstructure:"store"`
	Log         LogSettings       `mapstructure:"log"`
	Tracing     TracingSettings   `mapstructure:"tracing"`
	Retry       RetrySettings     `mapstructure:"retry"`
	CallTimeout time.Duration     `mapstructure:"call_timeout"`
}

type EmbeddingSettings struct {
	Provider   string `mapstructure:"provider"`
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	Dimensions int    `mapstructure:"dimensions"`
	BaseURL    string `mapstructure:"base_url"`
}

type StoreSettings struct {
	Provider  string `mapstructure:"provider"`
	APIKey    string `mapstructure:"api_key"`
	IndexName string `mapstructure:"index_name"`
	Namespace string `mapstructure:"namespace"`
	Host      string `mapstructure:"host"`
}

type LogSettings struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TracingSettings struct {
	Endpoint    string  `mapstructure:"endpoint"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

// RetrySettings controls the opt-in retry of transient provider failures.
// MaxAttempts of 1 disables retries.
type RetrySettings struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// LoadOptions points Load at non-default configuration sources
type LoadOptions struct {
	// DotEnvPath is loaded into the process environment. Empty means ./.env, which may be absent.
	DotEnvPath string

	// ConfigFile is an optional yaml, toml or json file read by viper.
	ConfigFile string
}

// Load reads the dotfile, the optional config file and the environment.
func Load(opts LoadOptions) (*Settings, error) {
	if err := loadDotEnv(opts.DotEnvPath); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("binding environment: %w", err)
	}

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Provider specific variables (OPENAI_API_KEY, PINECONE_API_KEY, ...) only fill keys left empty
	if s.Embedding.APIKey == "" {
		s.Embedding.APIKey = v.GetString(s.Embedding.Provider + ".api_key")
	}
	if s.Store.APIKey == "" {
		s.Store.APIKey = v.GetString(s.Store.Provider + ".api_key")
	}

	for _, warning := range s.Validate() {
		slog.Warn("configuration", "warning", warning)
	}

	return &s, nil
}

func loadDotEnv(path string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultDotEnvPath
	}

	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("embedding.provider", "openai")
	v.SetDefault("embedding.model", "")
	v.SetDefault("embedding.dimensions", 0)
	v.SetDefault("embedding.base_url", "")
	v.SetDefault("store.provider", "pinecone")
	v.SetDefault("store.index_name", DefaultIndexName)
	v.SetDefault("store.namespace", types.DefaultNamespace)
	v.SetDefault("store.host", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.service_name", "semsearch")
	v.SetDefault("tracing.sample_rate", 1.0)
	v.SetDefault("retry.max_attempts", 1)
	v.SetDefault("retry.base_delay", 200*time.Millisecond)
	v.SetDefault("retry.max_delay", 5*time.Second)
	v.SetDefault("call_timeout", time.Duration(0))
}

func bindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindings := map[string][]string{
		"embedding.api_key":  {EnvPrefix + "_EMBEDDING_API_KEY"},
		"store.api_key":      {EnvPrefix + "_STORE_API_KEY"},
		"store.index_name":   {EnvPrefix + "_STORE_INDEX_NAME", "PINECONE_INDEX_NAME"},
		"store.namespace":    {EnvPrefix + "_STORE_NAMESPACE", "PINECONE_NAMESPACE"},
		"store.host":         {EnvPrefix + "_STORE_HOST", "PINECONE_HOST"},
		"openai.api_key":     {"OPENAI_API_KEY"},
		"voyage.api_key":     {"VOYAGEAI_API_KEY"},
		"pinecone.api_key":   {"PINECONE_API_KEY"},
		"qdrant.api_key":     {"QDRANT_API_KEY"},
		"embedding.base_url": {EnvPrefix + "_EMBEDDING_BASE_URL", "OPENAI_BASE_URL"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks configuration for issues and returns warnings.
func (s *Settings) Validate() []string {
	var warnings []string

	switch s.Embedding.Provider {
	case "openai", "voyage":
	default:
		warnings = append(warnings, fmt.Sprintf("embedding provider '%s' is not supported", s.Embedding.Provider))
	}

	switch s.Store.Provider {
	case "pinecone", "qdrant":
	default:
		warnings = append(warnings, fmt.Sprintf("store provider '%s' is not supported", s.Store.Provider))
	}

	if s.Retry.MaxAttempts < 1 {
		warnings = append(warnings, fmt.Sprintf("retry max_attempts %d is below 1, calls will be made once", s.Retry.MaxAttempts))
	}

	if s.CallTimeout < 0 {
		warnings = append(warnings, fmt.Sprintf("call_timeout %s is negative and will be ignored", s.CallTimeout))
	}

	if s.Tracing.SampleRate < 0 || s.Tracing.SampleRate > 1 {
		warnings = append(warnings, fmt.Sprintf("tracing sample_rate %.2f is outside [0.0, 1.0]", s.Tracing.SampleRate))
	}

	return warnings
}

// Connection returns the environment-level connection defaults.
func (s *Settings) Connection() ConnectionConfig {
	return ConnectionConfig{
		EmbeddingAPIKey:     s.Embedding.APIKey,
		StoreAPIKey:         s.Store.APIKey,
		IndexName:           s.Store.IndexName,
		Namespace:           s.Store.Namespace,
		EmbeddingProvider:   s.Embedding.Provider,
		EmbeddingModel:      s.Embedding.Model,
		EmbeddingDimensions: s.Embedding.Dimensions,
		EmbeddingBaseURL:    s.Embedding.BaseURL,
		StoreProvider:       s.Store.Provider,
		StoreHost:           s.Store.Host,
	}
}
