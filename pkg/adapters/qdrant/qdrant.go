package qdrant

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/FrenchMajesty/semantic-search/pkg/types"
)

const (
	// DefaultHost is the gRPC address of a local Qdrant
	DefaultHost = "localhost:6334"

	// Payload keys owned by this package
	idPayloadKey        = "_id"
	namespacePayloadKey = "_namespace"
)

// pointIDSpace seeds the UUIDv5 point ids derived from namespace and document id
var pointIDSpace = uuid.MustParse("6f1c2a9e-5d47-4b3a-9a0e-2f7d8c1b4e55")

// Config holds what is needed to reach one collection
type Config struct {
	// Host is host:port. An https:// prefix enables TLS.
	Host       string
	APIKey     string
	Collection string
}

type pointsAPI interface {
	Upsert(ctx context.Context, in *pb.UpsertPoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Search(ctx context.Context, in *pb.SearchPoints, opts ...grpc.CallOption) (*pb.SearchResponse, error)
	Count(ctx context.Context, in *pb.CountPoints, opts ...grpc.CallOption) (*pb.CountResponse, error)
	Delete(ctx context.Context, in *pb.DeletePoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
}

type collectionsAPI interface {
	Get(ctx context.Context, in *pb.GetCollectionInfoRequest, opts ...grpc.CallOption) (*pb.GetCollectionInfoResponse, error)
}

// QdrantRepository is a vector store client bound to one collection.
// Namespaces are emulated with a payload filter.
type QdrantRepository struct {
	conn        *grpc.ClientConn
	points      pointsAPI
	collections collectionsAPI
	collection  string
	apiKey      string
}

// NewQdrant creates a Qdrant-backed repository. The connection is established lazily.
func NewQdrant(cfg Config) (*QdrantRepository, error) {
	if cfg.Collection == "" {
		return nil, errors.New("qdrant: collection is required")
	}

	host := cfg.Host
	if host == "" {
		host = DefaultHost
	}

	creds := insecure.NewCredentials()
	if strings.HasPrefix(host, "https://") {
		host = strings.TrimPrefix(host, "https://")
		creds = credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	conn, err := grpc.NewClient(host, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}

	return &QdrantRepository{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  cfg.Collection,
		apiKey:      cfg.APIKey,
	}, nil
}

// Upsert implements the vector store contract. An existing point with the same id is replaced.
func (r *QdrantRepository) Upsert(ctx context.Context, id string, vec []float32, md types.Metadata, namespace string) (types.UpsertReceipt, error) {
	receipt := types.UpsertReceipt{ID: id, Namespace: namespace, Index: r.collection}

	payload := make(map[string]*pb.Value, len(md)+2)
	for k, v := range md.Normalized() {
		value, err := toValue(v)
		if err != nil {
			return receipt, &types.StoreError{Op: "upsert", Message: "invalid metadata", Err: fmt.Errorf("%s: %w", k, err)}
		}
		payload[k] = value
	}
	payload[idPayloadKey] = stringValue(id)
	payload[namespacePayloadKey] = stringValue(namespace)

	wait := true
	_, err := r.points.Upsert(r.withAuth(ctx), &pb.UpsertPoints{
		CollectionName: r.collection,
		Wait:           &wait,
		Points: []*pb.PointStruct{
			{
				Id:      pointID(namespace, id),
				Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: vec}}},
				Payload: payload,
			},
		},
	})
	if err != nil {
		return receipt, classifyError("upsert", "upsert failed", err)
	}

	receipt.Success = true
	return receipt, nil
}

// Query implements the vector store contract
func (r *QdrantRepository) Query(ctx context.Context, vec []float32, topK int, namespace string) ([]types.Match, error) {
	if err := types.ValidateTopK(topK); err != nil {
		return nil, err
	}

	resp, err := r.points.Search(r.withAuth(ctx), &pb.SearchPoints{
		CollectionName: r.collection,
		Vector:         vec,
		Filter:         namespaceFilter(namespace),
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, classifyError("query", "query failed", err)
	}

	results := make([]types.Match, 0, len(resp.GetResult()))
	for _, pt := range resp.GetResult() {
		raw := make(map[string]any, len(pt.GetPayload()))
		id := pt.GetId().GetUuid()
		for k, v := range pt.GetPayload() {
			switch k {
			case idPayloadKey:
				id = v.GetStringValue()
			case namespacePayloadKey:
			default:
				raw[k] = fromValue(v)
			}
		}
		results = append(results, types.MatchFromMetadata(id, pt.GetScore(), raw))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return results, nil
}

// Stats reports the collection dimension and point counts
func (r *QdrantRepository) Stats(ctx context.Context, namespace string) (types.IndexStats, error) {
	stats := types.IndexStats{Index: r.collection, Namespace: namespace}
	ctx = r.withAuth(ctx)

	info, err := r.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: r.collection})
	if err != nil {
		return stats, classifyError("stats", "describe collection failed", err)
	}

	result := info.GetResult()
	stats.Dimension = int(result.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize())
	stats.TotalVectorCount = int(result.GetPointsCount())

	exact := true
	count, err := r.points.Count(ctx, &pb.CountPoints{
		CollectionName: r.collection,
		Filter:         namespaceFilter(namespace),
		Exact:          &exact,
	})
	if err != nil {
		return stats, classifyError("stats", "count failed", err)
	}

	stats.NamespaceVectorCount = int(count.GetResult().GetCount())
	return stats, nil
}

// Delete removes points by document id from a namespace
func (r *QdrantRepository) Delete(ctx context.Context, ids []string, namespace string) error {
	pointIDs := make([]*pb.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = pointID(namespace, id)
	}

	wait := true
	_, err := r.points.Delete(r.withAuth(ctx), &pb.DeletePoints{
		CollectionName: r.collection,
		Wait:           &wait,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Points{Points: &pb.PointsIdsList{Ids: pointIDs}},
		},
	})
	if err != nil {
		return classifyError("delete", "delete failed", err)
	}
	return nil
}

// Close releases the gRPC connection
func (r *QdrantRepository) Close() error {
	if r.conn == nil {
		return nil
	}
	return r.conn.Close()
}

func (r *QdrantRepository) withAuth(ctx context.Context) context.Context {
	if r.apiKey == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "api-key", r.apiKey)
}

// pointID derives a stable UUID so any document id, scoped by namespace, is a valid point id
func pointID(namespace, id string) *pb.PointId {
	u := uuid.NewSHA1(pointIDSpace, []byte(namespace+"\x00"+id))
	return &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: u.String()}}
}

func namespaceFilter(namespace string) *pb.Filter {
	return &pb.Filter{
		Must: []*pb.Condition{
			{
				ConditionOneOf: &pb.Condition_Field{
					Field: &pb.FieldCondition{
						Key:   namespacePayloadKey,
						Match: &pb.Match{MatchValue: &pb.Match_Keyword{Keyword: namespace}},
					},
				},
			},
		},
	}
}

func stringValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

// toValue converts a normalized metadata scalar
func toValue(v any) (*pb.Value, error) {
	switch x := v.(type) {
	case string:
		return stringValue(x), nil
	case bool:
		return &pb.Value{Kind: &pb.Value_BoolValue{BoolValue: x}}, nil
	case float64:
		return &pb.Value{Kind: &pb.Value_DoubleValue{DoubleValue: x}}, nil
	case nil:
		return &pb.Value{Kind: &pb.Value_NullValue{}}, nil
	}
	return nil, fmt.Errorf("unsupported metadata value %T", v)
}

func fromValue(v *pb.Value) any {
	switch k := v.GetKind().(type) {
	case *pb.Value_StringValue:
		return k.StringValue
	case *pb.Value_BoolValue:
		return k.BoolValue
	case *pb.Value_DoubleValue:
		return k.DoubleValue
	case *pb.Value_IntegerValue:
		return float64(k.IntegerValue)
	}
	return nil
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
			return &types.StoreError{Op: op, Message: "collection not found", Err: err}
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &types.StoreError{Op: op, Message: message, Err: err, Retryable: true}
	}

	return &types.StoreError{Op: op, Message: message, Err: err}
}
