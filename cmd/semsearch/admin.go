package main

import (
	"github.com/spf13/cobra"

	semsearch "github.com/FrenchMajesty/semantic-search"
)

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show index dimension and vector counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := a.orch.Stats(cmd.Context(), a.overrides)
			if err != nil {
				return userError(err)
			}

			if a.jsonOutput {
				return writeJSON(cmd, statsJSON(stats))
			}
			cmd.Printf("Index: %s\n", stats.Index)
			cmd.Printf("Dimension: %d\n", stats.Dimension)
			cmd.Printf("Total vectors: %d\n", stats.TotalVectorCount)
			cmd.Printf("Vectors in namespace %s: %d\n", semsearch.DisplayNamespace(stats.Namespace), stats.NamespaceVectorCount)
			if stats.EmbeddingModel != "" {
				cmd.Printf("Embedding model: %s (%d dimensions)\n", stats.EmbeddingModel, stats.EmbeddingDimension)
			}
			if stats.DimensionMismatch() {
				cmd.Printf("Warning: the index stores %d-dimensional vectors but %s produces %d\n",
					stats.Dimension, stats.EmbeddingModel, stats.EmbeddingDimension)
			}
			return nil
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id...]",
		Short: "Delete vectors by id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.orch.Delete(cmd.Context(), a.overrides, args)
			if err != nil {
				return userError(err)
			}

			if a.jsonOutput {
				return writeJSON(cmd, deleteJSON(result))
			}
			cmd.Printf("Deleted %d vector(s) from %s (namespace %s)\n", len(result.IDs), result.Index, semsearch.DisplayNamespace(result.Namespace))
			return nil
		},
	}
}
