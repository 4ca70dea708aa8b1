package config

import (
	"strings"

	"github.com/FrenchMajesty/semantic-search/pkg/types"
)

// Field names reported by ConfigError
const (
	FieldEmbeddingAPIKey = "api_key_embedding"
	FieldStoreAPIKey     = "api_key_store"
	FieldIndexName       = "index_name"
	FieldNamespace       = "namespace"
)

// ConnectionConfig is everything a single action needs to reach the two providers
type ConnectionConfig struct {
	EmbeddingAPIKey string
	StoreAPIKey     string
	IndexName       string
	Namespace       string

	// Optional provider selection, never validated by the resolver
	EmbeddingProvider   string
	EmbeddingModel      string
	EmbeddingDimensions int
	EmbeddingBaseURL    string
	StoreProvider       string
	StoreHost           string
}

// Overrides are values entered by the user for a single action. Empty fields fall back
// to the environment defaults.
type Overrides struct {
	EmbeddingAPIKey string
	StoreAPIKey     string
	IndexName       string
	Namespace       string
	StoreHost       string
}

// Resolver merges user overrides with the defaults captured at startup
type Resolver struct {
	defaults ConnectionConfig
}

// NewResolver captures a copy of the defaults.
func NewResolver(defaults ConnectionConfig) *Resolver {
	return &Resolver{defaults: defaults}
}

// Defaults returns the environment-level connection values.
func (r *Resolver) Defaults() ConnectionConfig {
	return r.defaults
}

// Resolve applies overrides and checks that every required field is set.
func (r *Resolver) Resolve(o Overrides) (ConnectionConfig, error) {
	cfg := r.defaults
	cfg.EmbeddingAPIKey = pick(o.EmbeddingAPIKey, cfg.EmbeddingAPIKey)
	cfg.StoreAPIKey = pick(o.StoreAPIKey, cfg.StoreAPIKey)
	cfg.IndexName = pick(o.IndexName, cfg.IndexName)
	cfg.Namespace = pick(o.Namespace, cfg.Namespace)
	cfg.StoreHost = pick(o.StoreHost, cfg.StoreHost)

	required := []struct {
		field string
		value string
	}{
		{FieldEmbeddingAPIKey, cfg.EmbeddingAPIKey},
		{FieldStoreAPIKey, cfg.StoreAPIKey},
		{FieldIndexName, cfg.IndexName},
		{FieldNamespace, cfg.Namespace},
	}
	for _, r := range required {
		if r.value == "" {
			return ConnectionConfig{}, types.MissingCredential(r.field)
		}
	}

	return cfg, nil
}

func pick(override, fallback string) string {
	if v := strings.TrimSpace(override); v != "" {
		return v
	}
	return strings.TrimSpace(fallback)
}
