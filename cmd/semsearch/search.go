package main

import (
	"github.com/spf13/cobra"

	semsearch "github.com/FrenchMajesty/semantic-search"
	"github.com/FrenchMajesty/semantic-search/pkg/types"
)

const previewLength = 100

func newSearchCmd(a *app) *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search for texts similar to a query",
		Long: `Embeds the query and returns the most similar stored texts,
best match first, with their similarity scores.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			matches, err := a.orch.Search(cmd.Context(), a.overrides, semsearch.Query{
				Text: args[0],
				TopK: topK,
			})
			if err != nil {
				return userError(err)
			}

			if a.jsonOutput {
				return writeJSON(cmd, matchesJSON(matches))
			}
			printMatches(cmd, args[0], topK, matches)
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", types.DefaultTopK, "number of similar results to return")
	return cmd
}

func printMatches(cmd *cobra.Command, query string, topK int, matches []semsearch.Match) {
	if len(matches) == 0 {
		cmd.Printf("No results found for query: '%s'\n", query)
		return
	}

	cmd.Printf("Top %d similar results for query: '%s'\n\n", topK, query)
	for i, m := range matches {
		cmd.Printf("%d. ID: %s\n", i+1, m.ID)
		cmd.Printf("   Text: %s\n", preview(m.Text))
		cmd.Printf("   Similarity Score: %.4f\n", m.Score)
		for _, k := range sortedKeys(m.Metadata) {
			cmd.Printf("   %s: %v\n", k, m.Metadata[k])
		}
		cmd.Println()
	}
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) > previewLength {
		return string(runes[:previewLength]) + "..."
	}
	return text
}
