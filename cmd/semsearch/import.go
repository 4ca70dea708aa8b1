package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	semsearch "github.com/FrenchMajesty/semantic-search"
)

func newImportCmd(a *app) *cobra.Command {
	var (
		textColumn string
		idColumn   string
		limit      int
		report     bool
	)

	cmd := &cobra.Command{
		Use:   "import [file.csv]",
		Short: "Insert every row of a CSV file",
		Long: `Reads a CSV file with a header row and inserts each row as one document.

The --text-column is embedded, the optional --id-column becomes the vector id and
every other column is stored as metadata. Failed rows are reported and skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open dataset file: %w", err)
			}
			defer file.Close()

			rows, err := loadDataset(file, textColumn, idColumn, limit)
			if err != nil {
				return err
			}

			defaults := a.orch.Defaults()
			metrics := importMetrics{
				File:      args[0],
				Index:     firstNonEmpty(a.overrides.IndexName, defaults.IndexName),
				Namespace: firstNonEmpty(a.overrides.Namespace, defaults.Namespace),
				TotalRows: len(rows),
			}

			start := time.Now()
			for _, row := range rows {
				rowStart := time.Now()
				receipt, err := a.orch.Insert(cmd.Context(), a.overrides, semsearch.InsertRequest{
					ID:       row.ID,
					Text:     row.Text,
					Metadata: row.Metadata,
				})
				metrics.RowLatency = append(metrics.RowLatency, time.Since(rowStart))

				if err != nil {
					metrics.Failed++
					metrics.Failures = append(metrics.Failures, importFailure{Line: row.Line, ID: row.ID, Error: semsearch.UserMessage(err)})
					if !a.jsonOutput {
						cmd.Printf("line %d: %s\n", row.Line, semsearch.UserMessage(err))
					}
					if cmd.Context().Err() != nil {
						break
					}
					continue
				}
				metrics.Inserted++
				if !a.jsonOutput {
					cmd.Printf("line %d: inserted %s\n", row.Line, receipt.ID)
				}
			}
			metrics.TotalDuration = time.Since(start)

			if report {
				path, err := saveMetricsToFile(filepath.Dir(args[0]), metrics)
				if err != nil {
					return fmt.Errorf("failed to save import report: %w", err)
				}
				if !a.jsonOutput {
					cmd.Printf("Report written to %s\n", path)
				}
			}

			if a.jsonOutput {
				if err := writeJSON(cmd, metrics); err != nil {
					return err
				}
			} else {
				cmd.Printf("Imported %d of %d rows into %s (namespace %s) in %s\n",
					metrics.Inserted, metrics.TotalRows, metrics.Index, semsearch.DisplayNamespace(metrics.Namespace), metrics.TotalDuration.Round(time.Millisecond))
			}

			if metrics.Inserted == 0 && metrics.Failed > 0 {
				return fmt.Errorf("no rows were imported")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&textColumn, "text-column", "text", "CSV column holding the text to embed")
	cmd.Flags().StringVar(&idColumn, "id-column", "id", "CSV column holding the vector id")
	cmd.Flags().IntVar(&limit, "limit", maxDatasetSize, "maximum number of rows to import")
	cmd.Flags().BoolVar(&report, "report", false, "write a JSON report next to the dataset")
	return cmd
}
