package semsearch

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/FrenchMajesty/semantic-search/internal/retry"
	"github.com/FrenchMajesty/semantic-search/internal/tracing"
	"github.com/FrenchMajesty/semantic-search/pkg/adapters"
	"github.com/FrenchMajesty/semantic-search/pkg/config"
	"github.com/FrenchMajesty/semantic-search/pkg/types"
)

// EmbedderFactory builds an embedding client for one resolved connection
type EmbedderFactory func(cfg config.ConnectionConfig) (types.EmbeddingClient, error)

// StoreFactory builds a vector store client for one resolved connection
type StoreFactory func(cfg config.ConnectionConfig) (types.VectorStore, error)

// Options holds configuration for the Orchestrator
type Options struct {
	// Resolver merges per-action overrides with the startup defaults. Required.
	Resolver *config.Resolver

	// EmbedderFactory creates the embedding client. If nil, uses adapters.NewEmbeddingClient.
	EmbedderFactory EmbedderFactory

	// StoreFactory creates the vector store client. If nil, uses adapters.NewVectorStore.
	StoreFactory StoreFactory

	// IDGenerator supplies ids for inserts without one. If nil, uses random UUIDs.
	IDGenerator func() string

	// CallTimeout bounds each external call. 0 leaves the SDK defaults in place.
	CallTimeout time.Duration

	// Retry applies to transient failures only. The zero value makes a single attempt.
	Retry retry.Config

	Logger *slog.Logger
	Tracer trace.Tracer
}

// applyDefaults fills in default values for unset fields
func (o *Options) applyDefaults() {
	if o.Resolver == nil {
		o.Resolver = config.NewResolver(config.ConnectionConfig{})
	}
	if o.EmbedderFactory == nil {
		o.EmbedderFactory = adapters.NewEmbeddingClient
	}
	if o.StoreFactory == nil {
		o.StoreFactory = adapters.NewVectorStore
	}
	if o.IDGenerator == nil {
		o.IDGenerator = uuid.NewString
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Tracer == nil {
		o.Tracer = otel.Tracer(tracing.TracerName)
	}
}
