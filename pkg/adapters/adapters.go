package adapters

import (
	"fmt"
	"strings"

	"github.com/FrenchMajesty/semantic-search/pkg/adapters/openai"
	"github.com/FrenchMajesty/semantic-search/pkg/adapters/pinecone"
	"github.com/FrenchMajesty/semantic-search/pkg/adapters/qdrant"
	"github.com/FrenchMajesty/semantic-search/pkg/adapters/voyage"
	"github.com/FrenchMajesty/semantic-search/pkg/config"
	"github.com/FrenchMajesty/semantic-search/pkg/types"
)

// Provider names accepted in ConnectionConfig
const (
	ProviderOpenAI   = "openai"
	ProviderVoyage   = "voyage"
	ProviderPinecone = "pinecone"
	ProviderQdrant   = "qdrant"
)

// NewEmbeddingClient builds the embedding client selected by cfg.EmbeddingProvider.
// An empty provider means OpenAI.
func NewEmbeddingClient(cfg config.ConnectionConfig) (types.EmbeddingClient, error) {
	switch provider(cfg.EmbeddingProvider, ProviderOpenAI) {
	case ProviderOpenAI:
		return openai.NewEmbeddingService(openai.Config{
			APIKey:     cfg.EmbeddingAPIKey,
			BaseURL:    cfg.EmbeddingBaseURL,
			Model:      cfg.EmbeddingModel,
			Dimensions: cfg.EmbeddingDimensions,
		})
	case ProviderVoyage:
		if cfg.EmbeddingAPIKey == "" {
			return nil, types.MissingCredential(config.FieldEmbeddingAPIKey)
		}
		service := voyage.NewEmbeddingService(cfg.EmbeddingAPIKey)
		if cfg.EmbeddingModel != "" {
			service.SetModel(cfg.EmbeddingModel)
		}
		if cfg.EmbeddingDimensions > 0 {
			service.SetDimensions(cfg.EmbeddingDimensions)
		}
		return service, nil
	default:
		return nil, &types.ConfigError{
			Field:   "embedding.provider",
			Message: fmt.Sprintf("unknown embedding provider %q", cfg.EmbeddingProvider),
		}
	}
}

// NewVectorStore builds the vector store client selected by cfg.StoreProvider.
// An empty provider means Pinecone.
func NewVectorStore(cfg config.ConnectionConfig) (types.VectorStore, error) {
	switch provider(cfg.StoreProvider, ProviderPinecone) {
	case ProviderPinecone:
		store, err := pinecone.NewPineconeService(pinecone.Config{
			APIKey:    cfg.StoreAPIKey,
			IndexName: cfg.IndexName,
			Host:      cfg.StoreHost,
		})
		if err != nil {
			return nil, &types.StoreError{Op: "connect", Message: "failed to create pinecone client", Err: err}
		}
		return store, nil
	case ProviderQdrant:
		store, err := qdrant.NewQdrant(qdrant.Config{
			Host:       cfg.StoreHost,
			APIKey:     cfg.StoreAPIKey,
			Collection: cfg.IndexName,
		})
		if err != nil {
			return nil, &types.StoreError{Op: "connect", Message: "failed to create qdrant client", Err: err}
		}
		return store, nil
	default:
		return nil, &types.ConfigError{
			Field:   "store.provider",
			Message: fmt.Sprintf("unknown vector store provider %q", cfg.StoreProvider),
		}
	}
}

func provider(name, fallback string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return fallback
	}
	return name
}
