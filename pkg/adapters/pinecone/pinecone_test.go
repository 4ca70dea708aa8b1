package pinecone

import (
	"context"
	"errors"
	"testing"

	"github.com/pinecone-io/go-pinecone/pinecone"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/FrenchMajesty/semantic-search/pkg/types"
)

type fakeConn struct {
	queryFunc  func(ctx context.Context, in *pinecone.QueryByVectorValuesRequest) (*pinecone.QueryVectorsResponse, error)
	upsertFunc func(ctx context.Context, in []*pinecone.Vector) (uint32, error)
	statsFunc  func(ctx context.Context) (*pinecone.DescribeIndexStatsResponse, error)
	deleteFunc func(ctx context.Context, ids []string) error

	calls    int
	upserted []*pinecone.Vector
	deleted  []string
	closed   bool
}

func (f *fakeConn) UpsertVectors(ctx context.Context, in []*pinecone.Vector) (uint32, error) {
	f.calls++
	f.upserted = append(f.upserted, in...)
	if f.upsertFunc != nil {
		return f.upsertFunc(ctx, in)
	}
	return uint32(len(in)), nil
}

func (f *fakeConn) QueryByVectorValues(ctx context.Context, in *pinecone.QueryByVectorValuesRequest) (*pinecone.QueryVectorsResponse, error) {
	f.calls++
	if f.queryFunc != nil {
		return f.queryFunc(ctx, in)
	}
	return &pinecone.QueryVectorsResponse{}, nil
}

func (f *fakeConn) DescribeIndexStats(ctx context.Context) (*pinecone.DescribeIndexStatsResponse, error) {
	f.calls++
	if f.statsFunc != nil {
		return f.statsFunc(ctx)
	}
	return &pinecone.DescribeIndexStatsResponse{}, nil
}

func (f *fakeConn) DeleteVectorsById(ctx context.Context, ids []string) error {
	f.calls++
	f.deleted = append(f.deleted, ids...)
	if f.deleteFunc != nil {
		return f.deleteFunc(ctx, ids)
	}
	return nil
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

type harness struct {
	service       *pineconeService
	conn          *fakeConn
	describeCalls int
	namespaces    []string
}

func newHarness(cfg Config) *harness {
	h := &harness{conn: &fakeConn{}}
	h.service = newService(cfg,
		func(ctx context.Context, indexName string) (*pinecone.Index, error) {
			h.describeCalls++
			return &pinecone.Index{Name: indexName, Host: "docs-abc123.svc.pinecone.io"}, nil
		},
		func(host, namespace string) (indexConn, error) {
			h.namespaces = append(h.namespaces, namespace)
			return h.conn, nil
		},
	)
	return h
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	if err != nil {
		t.Fatalf("structpb.NewStruct: %v", err)
	}
	return s
}

func TestNewPineconeService_InvalidAPIKey(t *testing.T) {
	_, err := NewPineconeService(Config{IndexName: "docs"})
	if err == nil {
		t.Error("Expected error with empty API key")
	}
}

func TestNewPineconeService_MissingIndex(t *testing.T) {
	_, err := NewPineconeService(Config{APIKey: "test-api-key"})
	if err == nil {
		t.Error("Expected error without index name or host")
	}
}

func TestNewPineconeService_ValidAPIKey(t *testing.T) {
	// No network call is made until the first operation
	service, err := NewPineconeService(Config{APIKey: "test-api-key-12345678", IndexName: "docs"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if service == nil || service.describe == nil || service.connect == nil {
		t.Fatal("Expected initialized service")
	}
}

func TestQuery_TopKOutOfRange(t *testing.T) {
	for _, topK := range []int{0, -1, 101, 1000} {
		h := newHarness(Config{IndexName: "docs"})

		_, err := h.service.Query(context.Background(), []float32{0.1}, topK, "faq")

		var storeErr *types.StoreError
		if !errors.As(err, &storeErr) || storeErr.Message != "top_k out of range" {
			t.Fatalf("top_k=%d: expected 'top_k out of range', got %v", topK, err)
		}
		if h.describeCalls != 0 || h.conn.calls != 0 || len(h.namespaces) != 0 {
			t.Errorf("top_k=%d: expected no network activity", topK)
		}
	}
}

func TestQuery_ConvertsAndSortsMatches(t *testing.T) {
	h := newHarness(Config{IndexName: "docs"})
	var request *pinecone.QueryByVectorValuesRequest
	h.conn.queryFunc = func(ctx context.Context, in *pinecone.QueryByVectorValuesRequest) (*pinecone.QueryVectorsResponse, error) {
		request = in
		return &pinecone.QueryVectorsResponse{
			Matches: []*pinecone.ScoredVector{
				{Vector: &pinecone.Vector{Id: "b", Metadata: mustStruct(t, map[string]any{"text": "second", "source": "faq"})}, Score: 0.85},
				{Vector: &pinecone.Vector{Id: "a", Metadata: mustStruct(t, map[string]any{"text": "first"})}, Score: 0.91},
				{Vector: &pinecone.Vector{Id: "c"}, Score: 0.80},
			},
		}, nil
	}

	matches, err := h.service.Query(context.Background(), []float32{0.1, 0.2}, 3, "faq")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if request.TopK != 3 || !request.IncludeMetadata || request.IncludeValues {
		t.Errorf("Unexpected request: %+v", request)
	}
	if request.MetadataFilter != nil {
		t.Error("Expected no metadata filter")
	}

	if len(matches) != 3 {
		t.Fatalf("Expected 3 matches, got %d", len(matches))
	}
	wantIDs := []string{"a", "b", "c"}
	for i, id := range wantIDs {
		if matches[i].ID != id {
			t.Errorf("match %d: expected id %s, got %s", i, id, matches[i].ID)
		}
	}
	if matches[1].Text != "second" || matches[1].Metadata["source"] != "faq" {
		t.Errorf("Unexpected match: %+v", matches[1])
	}
	if _, ok := matches[1].Metadata["text"]; ok {
		t.Error("Expected text to be removed from metadata")
	}
	if matches[2].Text != types.MissingText {
		t.Errorf("Expected %q, got %q", types.MissingText, matches[2].Text)
	}
}

func TestQuery_EmptyResultIsValid(t *testing.T) {
	h := newHarness(Config{IndexName: "docs"})

	matches, err := h.service.Query(context.Background(), []float32{0.1}, 5, "faq")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("Expected no matches, got %d", len(matches))
	}
}

func TestForNamespace_ResolvesHostOnce(t *testing.T) {
	h := newHarness(Config{IndexName: "docs"})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := h.service.Query(ctx, []float32{0.1}, 1, "faq"); err != nil {
			t.Fatalf("Query: %v", err)
		}
	}
	if _, err := h.service.Query(ctx, []float32{0.1}, 1, "other"); err != nil {
		t.Fatalf("Query: %v", err)
	}

	if h.describeCalls != 1 {
		t.Errorf("Expected 1 describe call, got %d", h.describeCalls)
	}
	if len(h.namespaces) != 2 {
		t.Errorf("Expected one connection per namespace, got %v", h.namespaces)
	}
}

func TestForNamespace_ExplicitHostSkipsDescribe(t *testing.T) {
	h := newHarness(Config{IndexName: "docs", Host: "https://docs-xyz.svc.pinecone.io"})

	if _, err := h.service.ForNamespace(context.Background(), "faq"); err != nil {
		t.Fatalf("ForNamespace: %v", err)
	}

	if h.describeCalls != 0 {
		t.Errorf("Expected no describe call, got %d", h.describeCalls)
	}
	if h.service.host != "docs-xyz.svc.pinecone.io" {
		t.Errorf("Expected scheme to be stripped, got %s", h.service.host)
	}
}

func TestForNamespace_DefaultNamespace(t *testing.T) {
	h := newHarness(Config{IndexName: "docs"})

	if _, err := h.service.ForNamespace(context.Background(), types.DefaultNamespace); err != nil {
		t.Fatalf("ForNamespace: %v", err)
	}

	if len(h.namespaces) != 1 || h.namespaces[0] != "" {
		t.Errorf("Expected the unnamed namespace, got %v", h.namespaces)
	}
}

func TestForNamespace_IndexNotFound(t *testing.T) {
	service := newService(Config{IndexName: "missing"},
		func(ctx context.Context, indexName string) (*pinecone.Index, error) {
			return nil, errors.New("404 not found")
		},
		func(host, namespace string) (indexConn, error) {
			t.Fatal("connect should not be called")
			return nil, nil
		},
	)

	_, err := service.Query(context.Background(), []float32{0.1}, 5, "faq")

	var storeErr *types.StoreError
	if !errors.As(err, &storeErr) || storeErr.Op != "describe" {
		t.Fatalf("Expected describe StoreError, got %v", err)
	}
}

func TestUpsert_StoresMetadataAndText(t *testing.T) {
	h := newHarness(Config{IndexName: "docs"})

	receipt, err := h.service.Upsert(context.Background(), "doc-1", []float32{0.5, 0.25},
		types.Metadata{"text": "hello", "page": 3, "draft": false}, "faq")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	want := types.UpsertReceipt{ID: "doc-1", Namespace: "faq", Index: "docs", Success: true}
	if receipt != want {
		t.Errorf("Expected %+v, got %+v", want, receipt)
	}

	if len(h.conn.upserted) != 1 {
		t.Fatalf("Expected 1 vector, got %d", len(h.conn.upserted))
	}
	v := h.conn.upserted[0]
	if v.Id != "doc-1" || len(v.Values) != 2 {
		t.Errorf("Unexpected vector: %+v", v)
	}
	stored := v.Metadata.AsMap()
	if stored["text"] != "hello" || stored["page"] != float64(3) || stored["draft"] != false {
		t.Errorf("Unexpected metadata: %v", stored)
	}
}

func TestUpsert_SameIDTwice(t *testing.T) {
	h := newHarness(Config{IndexName: "docs"})
	ctx := context.Background()

	first, err1 := h.service.Upsert(ctx, "dup", []float32{1}, types.Metadata{"text": "a"}, "faq")
	second, err2 := h.service.Upsert(ctx, "dup", []float32{2}, types.Metadata{"text": "b"}, "faq")

	if err1 != nil || err2 != nil {
		t.Fatalf("Expected no errors, got %v, %v", err1, err2)
	}
	if !first.Success || !second.Success || first.ID != second.ID {
		t.Errorf("Expected two successful receipts with the same id, got %+v %+v", first, second)
	}
}

func TestUpsert_TransientFailure(t *testing.T) {
	h := newHarness(Config{IndexName: "docs"})
	h.conn.upsertFunc = func(ctx context.Context, in []*pinecone.Vector) (uint32, error) {
		return 0, status.Error(codes.Unavailable, "connection reset")
	}

	receipt, err := h.service.Upsert(context.Background(), "doc-1", []float32{1}, types.Metadata{"text": "a"}, "faq")

	if receipt.Success {
		t.Error("Expected failed receipt")
	}
	if !types.IsTransient(err) {
		t.Errorf("Expected transient error, got %v", err)
	}
}

func TestStats(t *testing.T) {
	h := newHarness(Config{IndexName: "docs"})
	h.conn.statsFunc = func(ctx context.Context) (*pinecone.DescribeIndexStatsResponse, error) {
		return &pinecone.DescribeIndexStatsResponse{
			Dimension:        1536,
			TotalVectorCount: 42,
			Namespaces: map[string]*pinecone.NamespaceSummary{
				"":    {VectorCount: 30},
				"faq": {VectorCount: 12},
			},
		}, nil
	}

	stats, err := h.service.Stats(context.Background(), "faq")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if stats.Dimension != 1536 || stats.TotalVectorCount != 42 || stats.NamespaceVectorCount != 12 {
		t.Errorf("Unexpected stats: %+v", stats)
	}

	stats, err = h.service.Stats(context.Background(), types.DefaultNamespace)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if stats.NamespaceVectorCount != 30 || stats.Namespace != types.DefaultNamespace {
		t.Errorf("Unexpected default namespace stats: %+v", stats)
	}
}

func TestDelete(t *testing.T) {
	h := newHarness(Config{IndexName: "docs"})

	if err := h.service.Delete(context.Background(), []string{"a", "b"}, "faq"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(h.conn.deleted) != 2 {
		t.Errorf("Expected 2 deleted ids, got %v", h.conn.deleted)
	}
}

func TestClose(t *testing.T) {
	h := newHarness(Config{IndexName: "docs"})
	if _, err := h.service.ForNamespace(context.Background(), "faq"); err != nil {
		t.Fatalf("ForNamespace: %v", err)
	}

	if err := h.service.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !h.conn.closed {
		t.Error("Expected connection to be closed")
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
		message   string
	}{
		{"unavailable", status.Error(codes.Unavailable, "down"), true, "query failed"},
		{"exhausted", status.Error(codes.ResourceExhausted, "slow down"), true, "query failed"},
		{"unauthenticated", status.Error(codes.Unauthenticated, "bad key"), false, "authentication failed"},
		{"not found", status.Error(codes.NotFound, "no index"), false, "index or namespace not found"},
		{"cancelled", context.Canceled, false, "query failed"},
		{"plain", errors.New("boom"), false, "query failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var storeErr *types.StoreError
			if !errors.As(classifyError("query", "query failed", tt.err), &storeErr) {
				t.Fatal("Expected StoreError")
			}
			if storeErr.Transient() != tt.transient {
				t.Errorf("Expected transient=%v", tt.transient)
			}
			if storeErr.Message != tt.message {
				t.Errorf("Expected message %q, got %q", tt.message, storeErr.Message)
			}
		})
	}
}
