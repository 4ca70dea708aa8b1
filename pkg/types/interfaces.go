package types

import "context"

// EmbeddingClient turns text into a vector using one fixed model
type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// DocumentEmbedder is implemented by clients whose provider embeds stored documents
// differently from search queries. Embed is then used for queries only.
type DocumentEmbedder interface {
	EmbedDocument(ctx context.Context, text string) ([]float32, error)
}

// Dimensioned reports the length of the vectors a client produces
type Dimensioned interface {
	Dimensions() int
}

// VectorStore is a thin call wrapper over a managed vector database
type VectorStore interface {
	Upsert(ctx context.Context, id string, vector []float32, metadata Metadata, namespace string) (UpsertReceipt, error)
	Query(ctx context.Context, vector []float32, topK int, namespace string) ([]Match, error)
	Stats(ctx context.Context, namespace string) (IndexStats, error)
	Delete(ctx context.Context, ids []string, namespace string) error
	Close() error
}
