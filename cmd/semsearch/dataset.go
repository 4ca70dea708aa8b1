package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	semsearch "github.com/FrenchMajesty/semantic-search"
	"github.com/FrenchMajesty/semantic-search/pkg/types"
)

const maxDatasetSize = 500

// datasetRow is one CSV record ready to be inserted
type datasetRow struct {
	Line     int
	ID       string
	Text     string
	Metadata []semsearch.MetadataPair
}

// importMetrics summarises one import run
type importMetrics struct {
	File          string          `json:"file"`
	Index         string          `json:"index"`
	Namespace     string          `json:"namespace"`
	TotalRows     int             `json:"total_rows"`
	Inserted      int             `json:"inserted"`
	Failed        int             `json:"failed"`
	TotalDuration time.Duration   `json:"total_duration"`
	RowLatency    []time.Duration `json:"row_latency"`
	Failures      []importFailure `json:"failures,omitempty"`
}

type importFailure struct {
	Line  int    `json:"line"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error"`
}

// loadDataset reads a CSV file with a header row. The text column is required, the id column
// is optional and every other column becomes a string metadata value.
func loadDataset(r io.Reader, textColumn, idColumn string, limit int) ([]datasetRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("dataset file must have at least a header and one row")
	}

	header := records[0]
	textIdx, idIdx := -1, -1
	for i, name := range header {
		header[i] = strings.TrimSpace(name)
		switch {
		case header[i] == textColumn:
			textIdx = i
		case idColumn != "" && header[i] == idColumn:
			idIdx = i
		}
	}
	if textIdx < 0 {
		return nil, fmt.Errorf("dataset has no %q column", textColumn)
	}
	for i, name := range header {
		if name == types.TextMetadataKey && i != textIdx {
			return nil, fmt.Errorf("column %q is reserved for the embedded text: rename it or pass --text-column %s", name, name)
		}
	}

	rows := make([]datasetRow, 0, len(records)-1)
	for n, record := range records[1:] {
		if len(record) <= textIdx {
			continue // malformed
		}

		row := datasetRow{Line: n + 2, Text: record[textIdx]}
		for i, value := range record {
			switch {
			case i == textIdx:
			case i == idIdx:
				row.ID = value
			case i < len(header) && header[i] != "":
				row.Metadata = append(row.Metadata, semsearch.MetadataPair{Key: header[i], Value: value})
			}
		}
		rows = append(rows, row)
	}

	return trimDataset(rows, limit), nil
}

func trimDataset(rows []datasetRow, limit int) []datasetRow {
	if limit <= 0 {
		limit = maxDatasetSize
	}
	if len(rows) > limit {
		return rows[:limit]
	}
	return rows
}

// saveMetricsToFile writes the run summary next to the dataset and returns its path
func saveMetricsToFile(dir string, metrics importMetrics) (string, error) {
	timestamp := time.Now().Format("20060102_150405")
	random := uuid.New().String()[:8]
	filename := filepath.Join(dir, fmt.Sprintf("import_%s_%s.json", timestamp, random))

	jsonData, err := json.MarshalIndent(metrics, "", "  ")
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(filename, jsonData, 0o644); err != nil {
		return "", err
	}
	return filename, nil
}
