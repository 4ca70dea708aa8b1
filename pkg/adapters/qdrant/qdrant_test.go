package qdrant

import (
	"context"
	"testing"

	pb "github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/FrenchMajesty/semantic-search/pkg/types"
)

type fakePoints struct {
	calls    int
	upserts  []*pb.UpsertPoints
	searches []*pb.SearchPoints
	counts   []*pb.CountPoints
	deletes  []*pb.DeletePoints
	apiKeys  []string

	searchResult []*pb.ScoredPoint
	count        uint64
	err          error
}

func (f *fakePoints) record(ctx context.Context) {
	f.calls++
	md, _ := metadata.FromOutgoingContext(ctx)
	f.apiKeys = append(f.apiKeys, md.Get("api-key")...)
}

func (f *fakePoints) Upsert(ctx context.Context, in *pb.UpsertPoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error) {
	f.record(ctx)
	f.upserts = append(f.upserts, in)
	return &pb.PointsOperationResponse{}, f.err
}

func (f *fakePoints) Search(ctx context.Context, in *pb.SearchPoints, opts ...grpc.CallOption) (*pb.SearchResponse, error) {
	f.record(ctx)
	f.searches = append(f.searches, in)
	if f.err != nil {
		return nil, f.err
	}
	return &pb.SearchResponse{Result: f.searchResult}, nil
}

func (f *fakePoints) Count(ctx context.Context, in *pb.CountPoints, opts ...grpc.CallOption) (*pb.CountResponse, error) {
	f.record(ctx)
	f.counts = append(f.counts, in)
	return &pb.CountResponse{Result: &pb.CountResult{Count: f.count}}, f.err
}

func (f *fakePoints) Delete(ctx context.Context, in *pb.DeletePoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error) {
	f.record(ctx)
	f.deletes = append(f.deletes, in)
	return &pb.PointsOperationResponse{}, f.err
}

type fakeCollections struct {
	info *pb.CollectionInfo
}

func (f *fakeCollections) Get(ctx context.Context, in *pb.GetCollectionInfoRequest, opts ...grpc.CallOption) (*pb.GetCollectionInfoResponse, error) {
	return &pb.GetCollectionInfoResponse{Result: f.info}, nil
}

func newTestRepo(points *fakePoints) *QdrantRepository {
	return &QdrantRepository{
		points:      points,
		collections: &fakeCollections{},
		collection:  "docs",
		apiKey:      "secret",
	}
}

func payloadOf(m map[string]*pb.Value) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = fromValue(v)
	}
	return out
}

func TestNewQdrant(t *testing.T) {
	repo, err := NewQdrant(Config{Collection: "docs"})
	require.NoError(t, err)
	assert.NotNil(t, repo.points)
	assert.NoError(t, repo.Close())

	_, err = NewQdrant(Config{})
	assert.Error(t, err)
}

func TestUpsert_Payload(t *testing.T) {
	points := &fakePoints{}
	repo := newTestRepo(points)

	receipt, err := repo.Upsert(context.Background(), "doc-1", []float32{0.1, 0.2},
		types.Metadata{"text": "hello", "page": 2, "draft": true}, "faq")
	require.NoError(t, err)
	assert.Equal(t, types.UpsertReceipt{ID: "doc-1", Namespace: "faq", Index: "docs", Success: true}, receipt)

	require.Len(t, points.upserts, 1)
	req := points.upserts[0]
	assert.Equal(t, "docs", req.CollectionName)
	require.Len(t, req.Points, 1)

	pt := req.Points[0]
	assert.Equal(t, pointID("faq", "doc-1").GetUuid(), pt.Id.GetUuid())
	assert.Equal(t, []float32{0.1, 0.2}, pt.Vectors.GetVector().GetData())
	assert.Equal(t, map[string]any{
		"text":       "hello",
		"page":       float64(2),
		"draft":      true,
		"_id":        "doc-1",
		"_namespace": "faq",
	}, payloadOf(pt.Payload))
	assert.Equal(t, []string{"secret"}, points.apiKeys)
}

func TestPointID_ScopedByNamespace(t *testing.T) {
	assert.Equal(t, pointID("faq", "a").GetUuid(), pointID("faq", "a").GetUuid())
	assert.NotEqual(t, pointID("faq", "a").GetUuid(), pointID("blog", "a").GetUuid())
	assert.NotEqual(t, pointID("faq", "a").GetUuid(), pointID("faq", "b").GetUuid())
}

func TestQuery_TopKOutOfRange(t *testing.T) {
	points := &fakePoints{}
	repo := newTestRepo(points)

	for _, topK := range []int{0, 1000} {
		_, err := repo.Query(context.Background(), []float32{0.1}, topK, "faq")

		var storeErr *types.StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.Equal(t, "top_k out of range", storeErr.Message)
	}
	assert.Zero(t, points.calls)
}

func TestQuery_Results(t *testing.T) {
	points := &fakePoints{
		searchResult: []*pb.ScoredPoint{
			{
				Id:    pointID("faq", "low"),
				Score: 0.62,
				Payload: map[string]*pb.Value{
					"_id":        stringValue("low"),
					"_namespace": stringValue("faq"),
				},
			},
			{
				Id:    pointID("faq", "high"),
				Score: 0.93,
				Payload: map[string]*pb.Value{
					"_id":        stringValue("high"),
					"_namespace": stringValue("faq"),
					"text":       stringValue("refunds take 5 days"),
					"views":      {Kind: &pb.Value_IntegerValue{IntegerValue: 7}},
				},
			},
		},
	}
	repo := newTestRepo(points)

	matches, err := repo.Query(context.Background(), []float32{0.1}, 2, "faq")
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, "high", matches[0].ID)
	assert.Equal(t, "refunds take 5 days", matches[0].Text)
	assert.Equal(t, types.Metadata{"views": float64(7)}, matches[0].Metadata)
	assert.Equal(t, "low", matches[1].ID)
	assert.Equal(t, types.MissingText, matches[1].Text)

	req := points.searches[0]
	assert.Equal(t, uint64(2), req.Limit)
	cond := req.Filter.Must[0].GetField()
	assert.Equal(t, "_namespace", cond.Key)
	assert.Equal(t, "faq", cond.Match.GetKeyword())
}

func TestQuery_TransientError(t *testing.T) {
	repo := newTestRepo(&fakePoints{err: status.Error(codes.Unavailable, "down")})

	_, err := repo.Query(context.Background(), []float32{0.1}, 5, "faq")

	var storeErr *types.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.True(t, storeErr.Transient())
	assert.Equal(t, "query", storeErr.Op)
}

func TestStats(t *testing.T) {
	total := uint64(40)
	points := &fakePoints{count: 9}
	repo := newTestRepo(points)
	repo.collections = &fakeCollections{info: &pb.CollectionInfo{
		PointsCount: &total,
		Config: &pb.CollectionConfig{
			Params: &pb.CollectionParams{
				VectorsConfig: &pb.VectorsConfig{
					Config: &pb.VectorsConfig_Params{Params: &pb.VectorParams{Size: 1536}},
				},
			},
		},
	}}

	stats, err := repo.Stats(context.Background(), types.DefaultNamespace)
	require.NoError(t, err)

	assert.Equal(t, types.IndexStats{
		Index:                "docs",
		Namespace:            types.DefaultNamespace,
		Dimension:            1536,
		TotalVectorCount:     40,
		NamespaceVectorCount: 9,
	}, stats)
	assert.Equal(t, types.DefaultNamespace, points.counts[0].Filter.Must[0].GetField().Match.GetKeyword())
}

func TestDelete(t *testing.T) {
	points := &fakePoints{}
	repo := newTestRepo(points)

	require.NoError(t, repo.Delete(context.Background(), []string{"a", "b"}, "faq"))

	ids := points.deletes[0].Points.GetPoints().GetIds()
	require.Len(t, ids, 2)
	assert.Equal(t, pointID("faq", "a").GetUuid(), ids[0].GetUuid())
}

func TestToValue_Unsupported(t *testing.T) {
	_, err := toValue([]string{"x"})
	assert.Error(t, err)
}
