package types

import (
	"fmt"
	"strings"
)

const (
	// DefaultTopK is the number of matches requested when the caller does not pick one
	DefaultTopK = 5

	// MaxTopK is the largest top_k a query may request
	MaxTopK = 100

	// DefaultNamespace names the index's default partition
	DefaultNamespace = "__default__"

	// TextMetadataKey is the metadata key the document text is stored under
	TextMetadataKey = "text"

	// MissingText is shown for matches stored without a text field
	MissingText = "No text available"
)

// Query is a single search request
type Query struct {
	Text string
	TopK int
}

// Metadata holds scalar values attached to a stored vector
type Metadata map[string]any

// MetadataPair is one user-entered key/value row
type MetadataPair struct {
	Key   string
	Value any
}

// Document is a text about to be embedded and upserted
type Document struct {
	ID       string
	Text     string
	Metadata Metadata
}

// Match represents a single match from a vector search
type Match struct {
	ID       string
	Score    float32
	Text     string
	Metadata Metadata
}

// UpsertReceipt is returned after a document was written to the store
type UpsertReceipt struct {
	ID        string
	Namespace string
	Index     string
	Success   bool
}

// IndexStats summarises the contents of an index
type IndexStats struct {
	Index                string
	Namespace            string
	Dimension            int
	TotalVectorCount     int
	NamespaceVectorCount int

	// Filled by the orchestrator from the embedding client, not by stores
	EmbeddingModel     string
	EmbeddingDimension int
}

// DimensionMismatch reports whether the index cannot hold vectors of the embedding model
func (s IndexStats) DimensionMismatch() bool {
	return s.Dimension > 0 && s.EmbeddingDimension > 0 && s.Dimension != s.EmbeddingDimension
}

// ValidateTopK rejects top_k values the store should never be asked for.
func ValidateTopK(topK int) error {
	if topK < 1 || topK > MaxTopK {
		return &StoreError{Op: "query", Message: "top_k out of range"}
	}
	return nil
}

// IsScalar reports whether v can be stored as a metadata value.
func IsScalar(v any) bool {
	switch v.(type) {
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	}
	return false
}

// Validate checks keys and values of the metadata.
func (m Metadata) Validate() error {
	for k, v := range m {
		if strings.TrimSpace(k) == "" {
			return &ValidationError{Field: "metadata", Message: "metadata keys must be non-empty"}
		}
		if k == TextMetadataKey {
			return &ValidationError{Field: "metadata", Message: fmt.Sprintf("metadata key %q is reserved", TextMetadataKey)}
		}
		if !IsScalar(v) {
			return &ValidationError{Field: "metadata", Message: fmt.Sprintf("metadata value for %q must be a string, number or bool, got %T", k, v)}
		}
	}
	return nil
}

// Normalized returns a copy with every numeric value widened to float64,
// the only number type the stores accept.
func (m Metadata) Normalized() map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeScalar(v)
	}
	return out
}

func normalizeScalar(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	}
	return v
}

// ParseMetadataPairs turns user rows into Metadata. Blank rows are skipped and
// the last value wins for repeated keys.
func ParseMetadataPairs(pairs []MetadataPair) (Metadata, error) {
	metadata := make(Metadata, len(pairs))
	for i, p := range pairs {
		key := strings.TrimSpace(p.Key)
		if key == "" {
			if isBlank(p.Value) {
				continue
			}
			return nil, &ValidationError{Field: "metadata", Message: fmt.Sprintf("metadata row %d has a value but no key", i+1)}
		}
		metadata[key] = p.Value
	}

	if err := metadata.Validate(); err != nil {
		return nil, err
	}
	return metadata, nil
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

// MatchFromMetadata splits the stored text out of raw store metadata.
func MatchFromMetadata(id string, score float32, raw map[string]any) Match {
	text := MissingText
	metadata := make(Metadata, len(raw))
	for k, v := range raw {
		if k == TextMetadataKey {
			if s, ok := v.(string); ok {
				text = s
			}
			continue
		}
		metadata[k] = v
	}

	return Match{
		ID:       id,
		Score:    score,
		Text:     text,
		Metadata: metadata,
	}
}
