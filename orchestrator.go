package semsearch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/FrenchMajesty/semantic-search/internal/retry"
	"github.com/FrenchMajesty/semantic-search/internal/tracing"
	"github.com/FrenchMajesty/semantic-search/pkg/adapters"
	"github.com/FrenchMajesty/semantic-search/pkg/config"
	"github.com/FrenchMajesty/semantic-search/pkg/types"
)

// Orchestrator runs search and insert actions against an embedding provider and a vector store.
// It holds no per-action state and is safe for concurrent use.
type Orchestrator struct {
	resolver    *config.Resolver
	newEmbedder EmbedderFactory
	newStore    StoreFactory
	newID       func() string
	callTimeout time.Duration
	retry       retry.Config
	logger      *slog.Logger
	tracer      trace.Tracer
}

// New creates an Orchestrator with the given options
func New(opts Options) *Orchestrator {
	opts.applyDefaults()

	return &Orchestrator{
		resolver:    opts.Resolver,
		newEmbedder: opts.EmbedderFactory,
		newStore:    opts.StoreFactory,
		newID:       opts.IDGenerator,
		callTimeout: opts.CallTimeout,
		retry:       opts.Retry,
		logger:      opts.Logger,
		tracer:      opts.Tracer,
	}
}

// Defaults returns the connection values used when an override is left empty
func (o *Orchestrator) Defaults() config.ConnectionConfig {
	return o.resolver.Defaults()
}

// Search embeds the query text and returns the closest stored texts, best first.
// An empty result is not an error.
func (o *Orchestrator) Search(ctx context.Context, overrides Overrides, q Query) (_ []Match, err error) {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return nil, &types.ValidationError{Field: "query", Message: "query text is empty"}
	}
	if q.TopK < 1 || q.TopK > types.MaxTopK {
		return nil, &types.ValidationError{Field: "top_k", Message: fmt.Sprintf("top_k must be between 1 and %d", types.MaxTopK)}
	}

	cfg, err := o.resolver.Resolve(overrides)
	if err != nil {
		return nil, err
	}

	ctx, finish := o.startAction(ctx, "search", cfg)
	defer func() { finish(err) }()

	embedder, store, err := o.clients(cfg)
	if err != nil {
		return nil, err
	}
	defer o.closeStore(store)

	vector, err := call(ctx, o, "embedding.embed", embeddingProvider(cfg), func(ctx context.Context) ([]float32, error) {
		return embedder.Embed(ctx, text)
	})
	if err != nil {
		return nil, err
	}

	matches, err := call(ctx, o, "store.query", storeProvider(cfg), func(ctx context.Context) ([]Match, error) {
		return store.Query(ctx, vector, q.TopK, cfg.Namespace)
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > q.TopK {
		matches = matches[:q.TopK]
	}

	o.logger.Info("search finished", "index", cfg.IndexName, "namespace", cfg.Namespace, "results", len(matches))
	return matches, nil
}

// Insert embeds the text and upserts it with its metadata. A vector with the same id is replaced.
func (o *Orchestrator) Insert(ctx context.Context, overrides Overrides, req InsertRequest) (_ UpsertReceipt, err error) {
	if strings.TrimSpace(req.Text) == "" {
		return UpsertReceipt{}, &types.ValidationError{Field: "text", Message: "text to insert is empty"}
	}

	metadata, err := types.ParseMetadataPairs(req.Metadata)
	if err != nil {
		return UpsertReceipt{}, err
	}

	cfg, err := o.resolver.Resolve(overrides)
	if err != nil {
		return UpsertReceipt{}, err
	}

	ctx, finish := o.startAction(ctx, "insert", cfg)
	defer func() { finish(err) }()

	embedder, store, err := o.clients(cfg)
	if err != nil {
		return UpsertReceipt{}, err
	}
	defer o.closeStore(store)

	vector, err := call(ctx, o, "embedding.embed", embeddingProvider(cfg), func(ctx context.Context) ([]float32, error) {
		if de, ok := embedder.(types.DocumentEmbedder); ok {
			return de.EmbedDocument(ctx, req.Text)
		}
		return embedder.Embed(ctx, req.Text)
	})
	if err != nil {
		return UpsertReceipt{}, err
	}

	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = o.newID()
	}

	payload := make(types.Metadata, len(metadata)+1)
	for k, v := range metadata {
		payload[k] = v
	}
	payload[types.TextMetadataKey] = req.Text

	receipt, err := call(ctx, o, "store.upsert", storeProvider(cfg), func(ctx context.Context) (UpsertReceipt, error) {
		return store.Upsert(ctx, id, vector, payload, cfg.Namespace)
	})
	if err != nil {
		return UpsertReceipt{}, err
	}

	receipt.ID = id
	receipt.Namespace = cfg.Namespace
	receipt.Index = cfg.IndexName

	o.logger.Info("insert finished", "index", cfg.IndexName, "namespace", cfg.Namespace, "id", id, "metadata_keys", len(metadata))
	return receipt, nil
}

// Stats describes the index, the size of the resolved namespace and the embedding model
// that would write to it. Only the store is called.
func (o *Orchestrator) Stats(ctx context.Context, overrides Overrides) (_ IndexStats, err error) {
	cfg, err := o.resolver.Resolve(overrides)
	if err != nil {
		return IndexStats{}, err
	}

	ctx, finish := o.startAction(ctx, "stats", cfg)
	defer func() { finish(err) }()

	embedder, store, err := o.clients(cfg)
	if err != nil {
		return IndexStats{}, err
	}
	defer o.closeStore(store)

	stats, err := call(ctx, o, "store.stats", storeProvider(cfg), func(ctx context.Context) (IndexStats, error) {
		return store.Stats(ctx, cfg.Namespace)
	})
	if err != nil {
		return IndexStats{}, err
	}

	stats.Index = cfg.IndexName
	stats.Namespace = cfg.Namespace
	stats.EmbeddingModel = embedder.Model()
	if d, ok := embedder.(types.Dimensioned); ok {
		stats.EmbeddingDimension = d.Dimensions()
	}
	if stats.DimensionMismatch() {
		o.logger.Warn("index dimension does not match embedding model", "index", cfg.IndexName,
			"index_dimension", stats.Dimension, "model", stats.EmbeddingModel, "model_dimension", stats.EmbeddingDimension)
	}
	return stats, nil
}

// Delete removes documents by id from the resolved namespace
func (o *Orchestrator) Delete(ctx context.Context, overrides Overrides, ids []string) (_ DeleteResult, err error) {
	cleaned := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			cleaned = append(cleaned, id)
		}
	}
	if len(cleaned) == 0 {
		return DeleteResult{}, &types.ValidationError{Field: "ids", Message: "no ids to delete"}
	}

	cfg, err := o.resolver.Resolve(overrides)
	if err != nil {
		return DeleteResult{}, err
	}

	ctx, finish := o.startAction(ctx, "delete", cfg)
	defer func() { finish(err) }()

	store, err := o.newStore(cfg)
	if err != nil {
		return DeleteResult{}, err
	}
	defer o.closeStore(store)

	_, err = call(ctx, o, "store.delete", storeProvider(cfg), func(ctx context.Context) (struct{}, error) {
		return struct{}{}, store.Delete(ctx, cleaned, cfg.Namespace)
	})
	if err != nil {
		return DeleteResult{}, err
	}

	return DeleteResult{IDs: cleaned, Namespace: cfg.Namespace, Index: cfg.IndexName}, nil
}

func (o *Orchestrator) clients(cfg config.ConnectionConfig) (types.EmbeddingClient, types.VectorStore, error) {
	embedder, err := o.newEmbedder(cfg)
	if err != nil {
		return nil, nil, err
	}

	store, err := o.newStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	return embedder, store, nil
}

func (o *Orchestrator) closeStore(store types.VectorStore) {
	if err := store.Close(); err != nil {
		o.logger.Debug("closing vector store", "error", err)
	}
}

// startAction opens the action span and returns the function that ends it
func (o *Orchestrator) startAction(ctx context.Context, action string, cfg config.ConnectionConfig) (context.Context, func(error)) {
	ctx, span := tracing.StartAction(ctx, o.tracer, action, cfg.IndexName, cfg.Namespace)
	start := time.Now()
	o.logger.Debug(action+" started", "index", cfg.IndexName, "namespace", cfg.Namespace)

	return ctx, func(err error) {
		if err != nil {
			o.logger.Warn(action+" failed", "index", cfg.IndexName, "namespace", cfg.Namespace, "duration", time.Since(start), "error", err)
		}
		tracing.RecordError(span, err)
		span.End()
	}
}

// call runs one external request with the per-call deadline, the retry policy and a client span
func call[T any](ctx context.Context, o *Orchestrator, op, provider string, fn func(ctx context.Context) (T, error)) (T, error) {
	ctx, span := tracing.StartCall(ctx, o.tracer, op, provider)
	defer span.End()

	result, err := retry.Do(ctx, retry.Options{
		Config:       o.retry,
		ErrorChecker: types.IsTransient,
		Logger:       o.logger.Warn,
		Op:           op,
	}, func(attempt int) (T, error) {
		callCtx, cancel := ctx, context.CancelFunc(func() {})
		if o.callTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, o.callTimeout)
		}
		defer cancel()

		start := time.Now()
		res, err := fn(callCtx)
		if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			err = &types.TimeoutError{Op: op, Err: err}
		}
		o.logger.Debug("external call", "op", op, "provider", provider, "attempt", attempt+1, "duration", time.Since(start), "error", err)
		return res, err
	})

	tracing.RecordError(span, err)
	return result, err
}

func embeddingProvider(cfg config.ConnectionConfig) string {
	if cfg.EmbeddingProvider == "" {
		return adapters.ProviderOpenAI
	}
	return cfg.EmbeddingProvider
}

func storeProvider(cfg config.ConnectionConfig) string {
	if cfg.StoreProvider == "" {
		return adapters.ProviderPinecone
	}
	return cfg.StoreProvider
}
