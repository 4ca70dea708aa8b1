package pinecone

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"

	"github.com/pinecone-io/go-pinecone/pinecone"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/FrenchMajesty/semantic-search/pkg/types"
)

// Config holds what is needed to reach one index
type Config struct {
	APIKey    string
	IndexName string

	// Host skips the DescribeIndex lookup when set
	Host string
}

// pineconeService is a vector store client bound to a single index
type pineconeService struct {
	indexName string
	describe  describeFunc
	connect   connectFunc

	mu    sync.Mutex
	host  string
	conns map[string]*indexOperations
}

// indexOperations provides operations for one namespace of the index
type indexOperations struct {
	namespace string
	index     indexConn
}

// NewPineconeService creates a new Pinecone service using the official SDK.
// No network call is made until the first operation.
func NewPineconeService(cfg Config) (*pineconeService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("pinecone: API key is required")
	}
	if cfg.IndexName == "" && cfg.Host == "" {
		return nil, errors.New("pinecone: index name or host is required")
	}

	client, err := pinecone.NewClient(pinecone.NewClientParams{
		ApiKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create pinecone client: %w", err)
	}

	return newService(cfg,
		client.DescribeIndex,
		func(host, namespace string) (indexConn, error) {
			return client.Index(pinecone.NewIndexConnParams{
				Host:      host,
				Namespace: namespace,
			})
		},
	), nil
}

func newService(cfg Config, describe describeFunc, connect connectFunc) *pineconeService {
	return &pineconeService{
		indexName: cfg.IndexName,
		host:      strings.TrimPrefix(cfg.Host, "https://"),
		describe:  describe,
		connect:   connect,
		conns:     make(map[string]*indexOperations),
	}
}

// ForNamespace returns the index gateway for a namespace, resolving the index host on first use
func (ps *pineconeService) ForNamespace(ctx context.Context, namespace string) (*indexOperations, error) {
	ns := storeNamespace(namespace)

	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ops, ok := ps.conns[ns]; ok {
		return ops, nil
	}

	if ps.host == "" {
		desc, err := ps.describe(ctx, ps.indexName)
		if err != nil {
			return nil, classifyError("describe", fmt.Sprintf("could not find index %q", ps.indexName), err)
		}
		if desc == nil || desc.Host == "" {
			return nil, &types.StoreError{Op: "describe", Message: fmt.Sprintf("index %q has no host", ps.indexName)}
		}
		ps.host = desc.Host
	}

	conn, err := ps.connect(ps.host, ns)
	if err != nil {
		return nil, &types.StoreError{Op: "connect", Message: "failed to connect to pinecone index", Err: err}
	}

	ops := &indexOperations{namespace: ns, index: conn}
	ps.conns[ns] = ops
	return ops, nil
}

// Query implements the vector store contract
func (ps *pineconeService) Query(ctx context.Context, vector []float32, topK int, namespace string) ([]types.Match, error) {
	if err := types.ValidateTopK(topK); err != nil {
		return nil, err
	}

	idx, err := ps.ForNamespace(ctx, namespace)
	if err != nil {
		return nil, err
	}

	matches, err := idx.Search(ctx, vector, topK)
	if err != nil {
		return nil, classifyError("query", "query failed", err)
	}

	results := make([]types.Match, 0, len(matches))
	for _, match := range matches {
		if match.Vector == nil {
			continue
		}
		var metadata map[string]any
		if match.Vector.Metadata != nil {
			metadata = match.Vector.Metadata.AsMap()
		}
		results = append(results, types.MatchFromMetadata(match.Vector.Id, match.Score, metadata))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return results, nil
}

// Upsert implements the vector store contract. An existing vector with the same id is replaced.
func (ps *pineconeService) Upsert(ctx context.Context, id string, vector []float32, metadata types.Metadata, namespace string) (types.UpsertReceipt, error) {
	receipt := types.UpsertReceipt{ID: id, Namespace: namespace, Index: ps.indexName}

	metadataStruct, err := structpb.NewStruct(metadata.Normalized())
	if err != nil {
		return receipt, &types.StoreError{Op: "upsert", Message: "invalid metadata", Err: err}
	}

	idx, err := ps.ForNamespace(ctx, namespace)
	if err != nil {
		return receipt, err
	}

	err = idx.Upsert(ctx, []Vector{
		{
			Id:       id,
			Values:   vector,
			Metadata: metadataStruct,
		},
	})
	if err != nil {
		return receipt, classifyError("upsert", "upsert failed", err)
	}

	receipt.Success = true
	return receipt, nil
}

// Stats describes the index and the vector count of one namespace
func (ps *pineconeService) Stats(ctx context.Context, namespace string) (types.IndexStats, error) {
	stats := types.IndexStats{Index: ps.indexName, Namespace: namespace}

	idx, err := ps.ForNamespace(ctx, namespace)
	if err != nil {
		return stats, err
	}

	resp, err := idx.index.DescribeIndexStats(ctx)
	if err != nil {
		return stats, classifyError("stats", "describe index stats failed", err)
	}

	stats.Dimension = int(resp.Dimension)
	stats.TotalVectorCount = int(resp.TotalVectorCount)
	stats.NamespaceVectorCount = namespaceCount(resp.Namespaces, idx.namespace)
	return stats, nil
}

// Delete removes vectors by id from a namespace
func (ps *pineconeService) Delete(ctx context.Context, ids []string, namespace string) error {
	idx, err := ps.ForNamespace(ctx, namespace)
	if err != nil {
		return err
	}

	if err := idx.Delete(ctx, ids); err != nil {
		return classifyError("delete", "delete failed", err)
	}
	return nil
}

// Close releases every open index connection
func (ps *pineconeService) Close() error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	var errs []error
	for ns, ops := range ps.conns {
		if err := ops.index.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(ps.conns, ns)
	}
	return errors.Join(errs...)
}

// Search performs a vector similarity search in the index, returning metadata but not values
func (idx *indexOperations) Search(ctx context.Context, queryVector []float32, topK int) ([]QueryMatch, error) {
	queryRequest := &pinecone.QueryByVectorValuesRequest{
		Vector:          queryVector,
		TopK:            uint32(topK),
		IncludeValues:   false,
		IncludeMetadata: true,
	}

	queryResponse, err := idx.index.QueryByVectorValues(ctx, queryRequest)
	if err != nil {
		return nil, err
	}

	matches := make([]QueryMatch, 0, len(queryResponse.Matches))
	for _, match := range queryResponse.Matches {
		if match != nil {
			matches = append(matches, *match)
		}
	}

	return matches, nil
}

// Upsert stores vectors in the index
func (idx *indexOperations) Upsert(ctx context.Context, vectors []Vector) error {
	pineconeVectors := make([]*pinecone.Vector, len(vectors))
	for i := range vectors {
		pineconeVectors[i] = &vectors[i]
	}

	_, err := idx.index.UpsertVectors(ctx, pineconeVectors)
	return err
}

// Delete removes vectors from the index
func (idx *indexOperations) Delete(ctx context.Context, ids []string) error {
	return idx.index.DeleteVectorsById(ctx, ids)
}

// storeNamespace maps the default namespace token onto Pinecone's unnamed namespace
func storeNamespace(namespace string) string {
	if namespace == types.DefaultNamespace {
		return ""
	}
	return namespace
}

func namespaceCount(namespaces map[string]*pinecone.NamespaceSummary, ns string) int {
	keys := []string{ns}
	if ns == "" {
		// newer indexes report the unnamed namespace under this name
		keys = append(keys, types.DefaultNamespace)
	}
	for _, k := range keys {
		if summary, ok := namespaces[k]; ok && summary != nil {
			return int(summary.VectorCount)
		}
	}
	return 0
}

// classifyError marks gRPC failures that are worth retrying
func classifyError(op, message string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &types.StoreError{Op: op, Message: message, Err: err}
	}

	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded, codes.Aborted:
			return &types.StoreError{Op: op, Message: message, Err: err, Retryable: true}
		case codes.Unauthenticated, codes.PermissionDenied:
			return &types.StoreError{Op: op, Message: "authentication failed", Err: err}
		case codes.NotFound:
			return &types.StoreError{Op: op, Message: "index or namespace not found", Err: err}
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &types.StoreError{Op: op, Message: message, Err: err, Retryable: true}
	}

	return &types.StoreError{Op: op, Message: message, Err: err}
}
