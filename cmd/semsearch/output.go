package main

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	semsearch "github.com/FrenchMajesty/semantic-search"
	"github.com/FrenchMajesty/semantic-search/pkg/types"
)

type matchOutput struct {
	ID       string         `json:"id"`
	Score    float32        `json:"similarity_score"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type receiptOutput struct {
	ID        string `json:"id"`
	Index     string `json:"index"`
	Namespace string `json:"namespace"`
	Success   bool   `json:"success"`
}

type statsOutput struct {
	Index                string `json:"index"`
	Namespace            string `json:"namespace"`
	Dimension            int    `json:"dimension"`
	TotalVectorCount     int    `json:"total_vector_count"`
	NamespaceVectorCount int    `json:"namespace_vector_count"`
	EmbeddingModel       string `json:"embedding_model"`
	EmbeddingDimension   int    `json:"embedding_dimension"`
	DimensionMismatch    bool   `json:"dimension_mismatch"`
}

type deleteOutput struct {
	IDs       []string `json:"ids"`
	Index     string   `json:"index"`
	Namespace string   `json:"namespace"`
}

func matchesJSON(matches []semsearch.Match) []matchOutput {
	out := make([]matchOutput, len(matches))
	for i, m := range matches {
		out[i] = matchOutput{ID: m.ID, Score: m.Score, Text: m.Text, Metadata: m.Metadata}
	}
	return out
}

func receiptJSON(r semsearch.UpsertReceipt) receiptOutput {
	return receiptOutput{ID: r.ID, Index: r.Index, Namespace: r.Namespace, Success: r.Success}
}

func statsJSON(s semsearch.IndexStats) statsOutput {
	return statsOutput{
		Index:                s.Index,
		Namespace:            s.Namespace,
		Dimension:            s.Dimension,
		TotalVectorCount:     s.TotalVectorCount,
		NamespaceVectorCount: s.NamespaceVectorCount,
		EmbeddingModel:       s.EmbeddingModel,
		EmbeddingDimension:   s.EmbeddingDimension,
		DimensionMismatch:    s.DimensionMismatch(),
	}
}

func deleteJSON(r semsearch.DeleteResult) deleteOutput {
	return deleteOutput{IDs: r.IDs, Index: r.Index, Namespace: r.Namespace}
}

func writeJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func sortedKeys(m types.Metadata) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
