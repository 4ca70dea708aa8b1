package pinecone

import (
	"context"

	"github.com/pinecone-io/go-pinecone/pinecone"
)

// Vector represents a vector with metadata (re-exported from SDK for convenience)
type Vector = pinecone.Vector

// QueryMatch represents a match from query results (re-exported from SDK for convenience)
type QueryMatch = pinecone.ScoredVector

// indexConn is the data plane surface of *pinecone.IndexConnection we use
type indexConn interface {
	UpsertVectors(ctx context.Context, in []*pinecone.Vector) (uint32, error)
	QueryByVectorValues(ctx context.Context, in *pinecone.QueryByVectorValuesRequest) (*pinecone.QueryVectorsResponse, error)
	DescribeIndexStats(ctx context.Context) (*pinecone.DescribeIndexStatsResponse, error)
	DeleteVectorsById(ctx context.Context, ids []string) error
	Close() error
}

// describeFunc looks up an index by name on the control plane
type describeFunc func(ctx context.Context, indexName string) (*pinecone.Index, error)

// connectFunc opens a data plane connection bound to one namespace
type connectFunc func(host, namespace string) (indexConn, error)
