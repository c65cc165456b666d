package data

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/borgframework/borg/internal/borg"
)

// CSVSource reads CSV files stored under a local directory. The query is
// the bare filename; the first row becomes the field names.
type CSVSource struct {
	dir string
}

func NewCSVSource(dir string) *CSVSource {
	return &CSVSource{dir: dir}
}

func (s *CSVSource) Name() string { return "csv" }

func (s *CSVSource) Read(ctx context.Context, query string, _ any) (any, error) {
	filename := strings.TrimSpace(query)
	if filename == "" {
		return nil, borg.NewAdapterError(borg.ErrInvalidConfiguration, "csv source requires a filename query", nil)
	}
	if strings.Contains(filename, "..") || strings.ContainsRune(filename, filepath.Separator) {
		return nil, borg.NewAdapterError(borg.ErrInvalidConfiguration,
			fmt.Sprintf("csv filename %q must be a bare name", filename), nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(s.dir, filename))
	if err != nil {
		return nil, borg.NewAdapterError(borg.ErrInvalidConfiguration,
			fmt.Sprintf("open csv %q", filename), err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // tolerate ragged rows
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv %q: %w", filename, err)
	}
	if len(records) == 0 {
		return []map[string]any{}, nil
	}

	header := records[0]
	out := make([]map[string]any, 0, len(records)-1)
	for _, row := range records[1:] {
		record := make(map[string]any, len(header))
		for i, field := range header {
			if field == "" {
				field = fmt.Sprintf("col%d", i+1)
			}
			if i < len(row) {
				record[field] = row[i]
			} else {
				record[field] = ""
			}
		}
		out = append(out, record)
	}
	return out, nil
}
