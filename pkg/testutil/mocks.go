package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/FrenchMajesty/semantic-search/pkg/types"
)

// MockEmbeddingClient is a mock implementation of EmbeddingClient for testing
type MockEmbeddingClient struct {
	EmbedFunc func(ctx context.Context, text string) ([]float32, error)
	ModelName string
	Dims      int

	mu        sync.Mutex
	CallCount int
	LastText  string
}

func (m *MockEmbeddingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.CallCount++
	m.LastText = text
	m.mu.Unlock()

	if m.EmbedFunc != nil {
		return m.EmbedFunc(ctx, text)
	}
	// Default: return a simple embedding based on text length
	embedding := make([]float32, 10)
	for i := range embedding {
		embedding[i] = float32(len(text)) / 100.0
	}
	return embedding, nil
}

func (m *MockEmbeddingClient) Model() string {
	if m.ModelName == "" {
		return "mock-embedding"
	}
	return m.ModelName
}

// Dimensions returns Dims, or the length of the default embedding when unset
func (m *MockEmbeddingClient) Dimensions() int {
	if m.Dims == 0 {
		return 10
	}
	return m.Dims
}

// Calls returns the number of Embed calls so far
func (m *MockEmbeddingClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}

// StoredVector is one upserted entry kept by MockVectorStore
type StoredVector struct {
	Vector    []float32
	Metadata  types.Metadata
	Namespace string
}

// MockVectorStore is a mock implementation of VectorStore for testing.
// Without QueryFunc, Query returns stored entries of the namespace scored by dot product.
type MockVectorStore struct {
	QueryFunc  func(ctx context.Context, vector []float32, topK int, namespace string) ([]types.Match, error)
	UpsertFunc func(ctx context.Context, id string, vector []float32, metadata types.Metadata, namespace string) error
	StatsFunc  func(ctx context.Context, namespace string) (types.IndexStats, error)
	DeleteFunc func(ctx context.Context, ids []string, namespace string) error

	mu          sync.Mutex
	CallCount   int
	QueryCount  int
	UpsertCount int
	DeleteCount int
	Closed      bool
	LastTopK    int
	Storage     map[string]StoredVector
}

func NewMockVectorStore() *MockVectorStore {
	return &MockVectorStore{
		Storage: make(map[string]StoredVector),
	}
}

func storageKey(namespace, id string) string {
	return namespace + "/" + id
}

func (m *MockVectorStore) Query(ctx context.Context, vector []float32, topK int, namespace string) ([]types.Match, error) {
	m.mu.Lock()
	m.CallCount++
	m.QueryCount++
	m.LastTopK = topK
	m.mu.Unlock()

	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, vector, topK, namespace)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	matches := []types.Match{}
	for key, stored := range m.Storage {
		if stored.Namespace != namespace {
			continue
		}
		raw := make(map[string]any, len(stored.Metadata))
		for k, v := range stored.Metadata {
			raw[k] = v
		}
		id := key[len(namespace)+1:]
		matches = append(matches, types.MatchFromMetadata(id, dot(vector, stored.Vector), raw))
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score == matches[j].Score {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (m *MockVectorStore) Upsert(ctx context.Context, id string, vector []float32, metadata types.Metadata, namespace string) (types.UpsertReceipt, error) {
	m.mu.Lock()
	m.CallCount++
	m.UpsertCount++
	m.mu.Unlock()

	if m.UpsertFunc != nil {
		if err := m.UpsertFunc(ctx, id, vector, metadata, namespace); err != nil {
			return types.UpsertReceipt{ID: id, Namespace: namespace}, err
		}
	}

	m.mu.Lock()
	m.Storage[storageKey(namespace, id)] = StoredVector{Vector: vector, Metadata: metadata, Namespace: namespace}
	m.mu.Unlock()

	return types.UpsertReceipt{ID: id, Namespace: namespace, Index: "mock", Success: true}, nil
}

func (m *MockVectorStore) Stats(ctx context.Context, namespace string) (types.IndexStats, error) {
	m.mu.Lock()
	m.CallCount++
	m.mu.Unlock()

	if m.StatsFunc != nil {
		return m.StatsFunc(ctx, namespace)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stats := types.IndexStats{Index: "mock", Namespace: namespace, TotalVectorCount: len(m.Storage)}
	for _, stored := range m.Storage {
		stats.Dimension = len(stored.Vector)
		if stored.Namespace == namespace {
			stats.NamespaceVectorCount++
		}
	}
	return stats, nil
}

func (m *MockVectorStore) Delete(ctx context.Context, ids []string, namespace string) error {
	m.mu.Lock()
	m.CallCount++
	m.DeleteCount++
	m.mu.Unlock()

	if m.DeleteFunc != nil {
		if err := m.DeleteFunc(ctx, ids, namespace); err != nil {
			return err
		}
	}

	m.mu.Lock()
	for _, id := range ids {
		delete(m.Storage, storageKey(namespace, id))
	}
	m.mu.Unlock()
	return nil
}

func (m *MockVectorStore) Close() error {
	m.mu.Lock()
	m.Closed = true
	m.mu.Unlock()
	return nil
}

// Calls returns the number of store calls of any kind so far
func (m *MockVectorStore) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := 0; i < len(a) && i < len(b); i++ {
		sum += a[i] * b[i]
	}
	return sum
}
