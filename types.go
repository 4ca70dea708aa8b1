package semsearch

import (
	"github.com/FrenchMajesty/semantic-search/pkg/config"
	"github.com/FrenchMajesty/semantic-search/pkg/types"
)

// Re-exported so callers of the orchestrator rarely need pkg/types
type (
	Query         = types.Query
	Match         = types.Match
	MetadataPair  = types.MetadataPair
	UpsertReceipt = types.UpsertReceipt
	IndexStats    = types.IndexStats
	Overrides     = config.Overrides
)

// InsertRequest is one document entered by the user
type InsertRequest struct {
	// ID is kept when non-empty after trimming, otherwise one is generated
	ID string

	Text string

	// Metadata rows as entered. Blank rows are skipped.
	Metadata []MetadataPair
}

// DisplayNamespace names a namespace for people, showing the default partition as "default"
func DisplayNamespace(ns string) string {
	if ns == types.DefaultNamespace || ns == "" {
		return "default"
	}
	return ns
}

// DeleteResult reports what a delete action removed
type DeleteResult struct {
	IDs       []string
	Namespace string
	Index     string
}
