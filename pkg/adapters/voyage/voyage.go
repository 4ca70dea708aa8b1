package voyage

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/austinfhunter/voyageai"

	"github.com/FrenchMajesty/semantic-search/pkg/types"
)

const EMBEDDING_DIMENSIONS = 1024

const VOYAGEAI_EMBEDDING_MODEL = "voyage-3.5-lite"

const providerName = "voyage"

type VoyageEmbeddingType string

const (
	VoyageEmbeddingTypeDocument VoyageEmbeddingType = "document"
	VoyageEmbeddingTypeQuery    VoyageEmbeddingType = "query"
	VoyageEmbeddingTypeDefault  VoyageEmbeddingType = ""
)

// embedder is the part of the VoyageAI SDK client we call
type embedder interface {
	Embed(texts []string, model string, opts *voyageai.EmbeddingRequestOpts) (*voyageai.EmbeddingResponse, error)
}

// voyageService handles generating embeddings for text
type voyageService struct {
	client     embedder
	dimensions int
	model      string
}

// NewEmbeddingService creates a new embedding service with its own SDK client
func NewEmbeddingService(apiKey string) *voyageService {
	return &voyageService{
		client: voyageai.NewClient(&voyageai.VoyageClientOpts{
			Key: apiKey,
		}),
		dimensions: EMBEDDING_DIMENSIONS,
		model:      VOYAGEAI_EMBEDDING_MODEL,
	}
}

// SetDimensions sets the dimensions for the embedding model
func (es *voyageService) SetDimensions(dimensions int) {
	es.dimensions = dimensions
}

// SetModel sets the model for the embedding model
func (es *voyageService) SetModel(model string) {
	es.model = model
}

// Embed embeds a search query
func (es *voyageService) Embed(ctx context.Context, text string) ([]float32, error) {
	return es.GenerateEmbedding(ctx, text, VoyageEmbeddingTypeQuery)
}

// EmbedDocument embeds text that is about to be stored
func (es *voyageService) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	return es.GenerateEmbedding(ctx, text, VoyageEmbeddingTypeDocument)
}

// Model returns the embedding model name
func (es *voyageService) Model() string {
	return es.model
}

// GenerateEmbedding generates an embedding for a single text using VoyageAI.
// The SDK has no context support, so the call is abandoned (not cancelled) when ctx ends.
func (es *voyageService) GenerateEmbedding(ctx context.Context, text string, embeddingType VoyageEmbeddingType) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &types.EmbeddingError{Provider: providerName, Message: "text is empty"}
	}

	dimensions := es.Dimensions()
	opts := &voyageai.EmbeddingRequestOpts{
		InputType:       parseEmbeddingType(embeddingType),
		OutputDimension: &dimensions,
	}

	type result struct {
		resp *voyageai.EmbeddingResponse
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := es.client.Embed([]string{text}, es.model, opts)
		done <- result{resp: resp, err: err}
	}()

	var r result
	select {
	case <-ctx.Done():
		return nil, &types.EmbeddingError{Provider: providerName, Message: "request cancelled", Err: ctx.Err()}
	case r = <-done:
	}

	if r.err != nil {
		return nil, classifyError(r.err)
	}
	if r.resp == nil || len(r.resp.Data) == 0 {
		return nil, &types.EmbeddingError{Provider: providerName, Message: "no embedding returned"}
	}

	return r.resp.Data[0].Embedding, nil
}

func parseEmbeddingType(embeddingType VoyageEmbeddingType) *string {
	if embeddingType != VoyageEmbeddingTypeDefault {
		value := string(embeddingType)
		return &value
	}
	return nil
}

// Dimensions returns the length of the vectors this service requests
func (es *voyageService) Dimensions() int {
	return es.dimensions
}

// classifyError maps SDK errors by their message, the SDK exposes no typed errors
func classifyError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &types.EmbeddingError{Provider: providerName, Message: "network error", Err: err, Retryable: true}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "401") || strings.Contains(msg, "403") || strings.Contains(msg, "unauthorized"):
		return &types.EmbeddingError{Provider: providerName, Message: "authentication failed", Err: err}
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit"):
		return &types.EmbeddingError{Provider: providerName, Message: "rate limited", Err: err, Retryable: true}
	case strings.Contains(msg, "500") || strings.Contains(msg, "502") || strings.Contains(msg, "503"):
		return &types.EmbeddingError{Provider: providerName, Message: "provider unavailable", Err: err, Retryable: true}
	}

	return &types.EmbeddingError{Provider: providerName, Message: "request failed", Err: err}
}
