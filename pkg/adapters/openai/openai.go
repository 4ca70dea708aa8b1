package openai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/FrenchMajesty/semantic-search/pkg/types"
)

const (
	// DefaultModel is the embedding model used unless another is configured
	DefaultModel = openai.EmbeddingModelTextEmbedding3Small

	providerName = "openai"
)

// Model dimensions for OpenAI embedding models
var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// Config holds configuration for the embedding service
type Config struct {
	APIKey string

	// BaseURL points at an OpenAI compatible endpoint. Empty uses the SDK default.
	BaseURL string

	// Model defaults to text-embedding-3-small
	Model string

	// Dimensions shortens text-embedding-3-* vectors. 0 keeps the model default.
	Dimensions int

	// HTTPClient is used for outbound calls when set
	HTTPClient *http.Client
}

// embeddingsAPI is the slice of the SDK client this package calls
type embeddingsAPI interface {
	New(ctx context.Context, body openai.EmbeddingNewParams, opts ...option.RequestOption) (*openai.CreateEmbeddingResponse, error)
}

// EmbeddingService generates embeddings through the OpenAI embeddings endpoint
type EmbeddingService struct {
	embeddings embeddingsAPI
	model      string
	dimensions int
}

// NewEmbeddingService creates a client bound to a single model.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	// Retries are owned by the caller, never by the SDK
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	client := openai.NewClient(opts...)

	return &EmbeddingService{
		embeddings: &client.Embeddings,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}, nil
}

// Embed generates a vector for a single text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &types.EmbeddingError{Provider: providerName, Message: "text is empty"}
	}

	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: []string{text}},
		Model: openai.EmbeddingModel(s.model),
	}
	if s.dimensions > 0 && strings.HasPrefix(s.model, "text-embedding-3") {
		params.Dimensions = openai.Int(int64(s.dimensions))
	}

	resp, err := s.embeddings.New(ctx, params)
	if err != nil {
		return nil, classifyError(err)
	}

	if len(resp.Data) == 0 {
		return nil, &types.EmbeddingError{Provider: providerName, Message: "no embedding returned"}
	}

	values := resp.Data[0].Embedding
	embedding := make([]float32, len(values))
	for i, v := range values {
		embedding[i] = float32(v)
	}

	return embedding, nil
}

// Model returns the name of the embedding model.
func (s *EmbeddingService) Model() string {
	return s.model
}

// Dimensions returns the expected vector length.
func (s *EmbeddingService) Dimensions() int {
	if s.dimensions > 0 {
		return s.dimensions
	}
	if d, ok := modelDimensions[s.model]; ok {
		return d
	}
	return 1536
}

// classifyError maps SDK failures onto the embedding error kind
func classifyError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		msg := fmt.Sprintf("status %d", apiErr.StatusCode)
		switch {
		case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
			msg = "authentication failed"
		case apiErr.StatusCode == http.StatusTooManyRequests:
			msg = "rate limited"
		case apiErr.StatusCode >= 500:
			msg = "provider unavailable"
		}
		return &types.EmbeddingError{
			Provider:  providerName,
			Message:   msg,
			Err:       err,
			Retryable: apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500,
		}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &types.EmbeddingError{Provider: providerName, Message: "request cancelled", Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &types.EmbeddingError{Provider: providerName, Message: "network error", Err: err, Retryable: true}
	}

	return &types.EmbeddingError{Provider: providerName, Message: "request failed", Err: err}
}
