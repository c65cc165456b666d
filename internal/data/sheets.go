package data

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/borgframework/borg/internal/borg"
)

// SheetsSource reads rows from XLSX spreadsheets stored under a local
// directory. The query is "filename" or "filename!SheetName"; the first
// row becomes the field names.
type SheetsSource struct {
	dir string
}

func NewSheetsSource(dir string) *SheetsSource {
	return &SheetsSource{dir: dir}
}

func (s *SheetsSource) Name() string { return "sheets" }

func (s *SheetsSource) Read(ctx context.Context, query string, _ any) (any, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, borg.NewAdapterError(borg.ErrInvalidConfiguration, "sheets source requires a 'filename' or 'filename!Sheet' query", nil)
	}
	filename, sheetName, _ := strings.Cut(query, "!")
	if strings.Contains(filename, "..") || strings.ContainsRune(filename, filepath.Separator) {
		return nil, borg.NewAdapterError(borg.ErrInvalidConfiguration,
			fmt.Sprintf("sheets filename %q must be a bare name", filename), nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	xf, err := excelize.OpenFile(filepath.Join(s.dir, filename))
	if err != nil {
		return nil, borg.NewAdapterError(borg.ErrInvalidConfiguration,
			fmt.Sprintf("open spreadsheet %q", filename), err)
	}
	defer xf.Close()

	if sheetName == "" {
		list := xf.GetSheetList()
		if len(list) == 0 {
			return []map[string]any{}, nil
		}
		sheetName = list[0]
	}

	rows, err := xf.GetRows(sheetName)
	if err != nil {
		return nil, borg.NewAdapterError(borg.ErrInvalidConfiguration,
			fmt.Sprintf("read sheet %q of %q", sheetName, filename), err)
	}
	if len(rows) == 0 {
		return []map[string]any{}, nil
	}

	header := rows[0]
	out := make([]map[string]any, 0, len(rows)-1)
	for _, row := range rows[1:] {
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
