package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestLocalStorageSaveAndGet(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}
	ctx := context.Background()

	content := "hello world"
	info, err := store.Save(ctx, "notes.txt", "text/plain", strings.NewReader(content))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if info.Filename != "notes.txt" || info.ContentType != "text/plain" {
		t.Errorf("info = %+v", info)
	}
	if info.Size != int64(len(content)) {
		t.Errorf("size = %d, want %d", info.Size, len(content))
	}
	if info.ID == "" {
		t.Error("empty file id")
	}

	got, reader, err := store.Get(ctx, info.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer reader.Close()
	data, _ := io.ReadAll(reader)
	if string(data) != content {
		t.Errorf("content = %q", data)
	}
	if got.ID != info.ID {
		t.Errorf("id = %q", got.ID)
	}
}

func TestLocalStorageDelete(t *testing.T) {
	store, _ := NewLocalStorage(t.TempDir())
	ctx := context.Background()

	info, err := store.Save(ctx, "a.txt", "text/plain", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Delete(ctx, info.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, _, err := store.Get(ctx, info.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("get after delete: %v", err)
	}
	if err := store.Delete(ctx, info.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("double delete: %v", err)
	}
}

func TestLocalStorageUpdateInfo(t *testing.T) {
	store, _ := NewLocalStorage(t.TempDir())
	ctx := context.Background()

	info, err := store.Save(ctx, "a.csv", "text/csv", strings.NewReader("a,b"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	info.ExtractedText = "a,b"
	if err := store.UpdateInfo(ctx, info); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, reader, err := store.Get(ctx, info.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	reader.Close()
	if got.ExtractedText != "a,b" {
		t.Errorf("extracted text = %q", got.ExtractedText)
	}

	if err := store.UpdateInfo(ctx, &FileInfo{ID: "file-missing"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("update missing: %v", err)
	}
}

func TestLocalStorageListNewestFirst(t *testing.T) {
	store, _ := NewLocalStorage(t.TempDir())
	ctx := context.Background()

	for _, name := range []string{"first.txt", "second.txt"} {
		if _, err := store.Save(ctx, name, "text/plain", strings.NewReader(name)); err != nil {
			t.Fatalf("save %s: %v", name, err)
		}
	}

	files, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("files = %d", len(files))
	}
	if files[0].CreatedAt.Before(files[1].CreatedAt) {
		t.Error("list is not newest first")
	}
}
