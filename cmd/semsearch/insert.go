package main

import (
	"github.com/spf13/cobra"

	semsearch "github.com/FrenchMajesty/semantic-search"
	"github.com/FrenchMajesty/semantic-search/pkg/types"
)

func newInsertCmd(a *app) *cobra.Command {
	var (
		id     string
		keys   []string
		values []string
	)

	cmd := &cobra.Command{
		Use:   "insert [text]",
		Short: "Embed a text and insert it into the index",
		Long: `Embeds the text and upserts it with optional metadata.

Metadata is given as repeated --metadata-key / --metadata-value pairs:
  semsearch insert "Refunds take 5 days" --metadata-key source --metadata-value faq`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pairs, err := metadataPairs(keys, values)
			if err != nil {
				return userError(err)
			}

			receipt, err := a.orch.Insert(cmd.Context(), a.overrides, semsearch.InsertRequest{
				ID:       id,
				Text:     args[0],
				Metadata: pairs,
			})
			if err != nil {
				return userError(err)
			}

			if a.jsonOutput {
				return writeJSON(cmd, receiptJSON(receipt))
			}
			cmd.Printf("Successfully inserted text into %s\n", receipt.Index)
			cmd.Printf("Vector ID: %s\n", receipt.ID)
			cmd.Printf("Index: %s\n", receipt.Index)
			cmd.Printf("Namespace: %s\n", semsearch.DisplayNamespace(receipt.Namespace))
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "vector id (default: random UUID)")
	cmd.Flags().StringArrayVar(&keys, "metadata-key", nil, "metadata key (can be used multiple times)")
	cmd.Flags().StringArrayVar(&values, "metadata-value", nil, "metadata value (can be used multiple times)")
	return cmd
}

func metadataPairs(keys, values []string) ([]semsearch.MetadataPair, error) {
	if len(keys) != len(values) {
		return nil, &types.ValidationError{Field: "metadata", Message: "number of metadata keys and values must match"}
	}

	pairs := make([]semsearch.MetadataPair, len(keys))
	for i := range keys {
		pairs[i] = semsearch.MetadataPair{Key: keys[i], Value: values[i]}
	}
	return pairs, nil
}
