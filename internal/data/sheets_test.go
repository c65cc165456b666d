package data

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func writeSheet(t *testing.T, dir, name string, rows [][]any) {
	t.Helper()
	xf := excelize.NewFile()
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := xf.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	if err := xf.SaveAs(filepath.Join(dir, name)); err != nil {
		t.Fatal(err)
	}
}

func TestSheetsSourceReadsRows(t *testing.T) {
	dir := t.TempDir()
	writeSheet(t, dir, "projects.xlsx", [][]any{
		{"name", "owner"},
		{"borg", "ops"},
		{"hive", "data"},
	})

	s := NewSheetsSource(dir)
	out, err := s.Read(context.Background(), "projects.xlsx", nil)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	records := out.([]map[string]any)
	if len(records) != 2 {
		t.Fatalf("records = %d", len(records))
	}
	if records[0]["name"] != "borg" || records[1]["owner"] != "data" {
		t.Errorf("records = %v", records)
	}
}

func TestSheetsSourceNamedSheet(t *testing.T) {
	dir := t.TempDir()
	writeSheet(t, dir, "book.xlsx", [][]any{{"a"}, {"1"}})

	s := NewSheetsSource(dir)
	out, err := s.Read(context.Background(), "book.xlsx!Sheet1", nil)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(out.([]map[string]any)) != 1 {
		t.Errorf("out = %v", out)
	}

	if _, err := s.Read(context.Background(), "book.xlsx!NoSuchSheet", nil); err == nil {
		t.Fatal("expected error for missing sheet")
	}
}

func TestSheetsSourceRejectsPaths(t *testing.T) {
	s := NewSheetsSource(t.TempDir())
	for _, q := range []string{"", "../book.xlsx", "sub/book.xlsx"} {
		if _, err := s.Read(context.Background(), q, nil); err == nil {
			t.Errorf("query %q: expected rejection", q)
		}
	}
}
