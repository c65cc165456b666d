package data

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/borgframework/borg/internal/borg"
)

type fakeSource struct {
	name   string
	called bool
}

func (f *fakeSource) Name() string { return f.name }
func (f *fakeSource) Read(_ context.Context, query string, _ any) (any, error) {
	f.called = true
	return query, nil
}

func TestReaderRoutes(t *testing.T) {
	r := NewReader()
	csvSrc := &fakeSource{name: "csv"}
	rssSrc := &fakeSource{name: "rss"}
	r.Register(csvSrc)
	r.Register(rssSrc)

	out, err := r.Read(context.Background(), "rss", "https://example.com/feed.xml", nil)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if out != "https://example.com/feed.xml" {
		t.Errorf("output = %v", out)
	}
	if !rssSrc.called || csvSrc.called {
		t.Error("read routed to the wrong source")
	}
}

func TestReaderUnknownSource(t *testing.T) {
	r := NewReader()
	_, err := r.Read(context.Background(), "mainframe", "", nil)
	var ae *borg.AdapterError
	if !errors.As(err, &ae) || ae.Kind != borg.ErrInvalidConfiguration {
		t.Fatalf("expected invalid_configuration, got %v", err)
	}
}

func TestCSVSourceReadsRecords(t *testing.T) {
	dir := t.TempDir()
	content := "name,stars\nawesome-go,130000\ngin,80000\n"
	if err := os.WriteFile(filepath.Join(dir, "repos.csv"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewCSVSource(dir)
	out, err := s.Read(context.Background(), "repos.csv", nil)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	records := out.([]map[string]any)
	if len(records) != 2 {
		t.Fatalf("records = %d", len(records))
	}
	if records[0]["name"] != "awesome-go" || records[1]["stars"] != "80000" {
		t.Errorf("records = %v", records)
	}
}

func TestCSVSourceRejectsPathTraversal(t *testing.T) {
	s := NewCSVSource(t.TempDir())
	for _, q := range []string{"../etc/passwd", "sub/dir.csv", ""} {
		if _, err := s.Read(context.Background(), q, nil); err == nil {
			t.Errorf("query %q: expected rejection", q)
		}
	}
}

func TestAirtableSourceListsRecords(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/appBASE/Projects" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer at-token" {
			t.Errorf("auth = %q", r.Header.Get("Authorization"))
		}
		w.Write([]byte(`{"records":[
			{"id":"rec1","fields":{"Name":"Borg","Status":"active"}},
			{"id":"rec2","fields":{"Name":"Hive","Status":"paused"}}
		]}`))
	}))
	defer server.Close()

	s := NewAirtableSource("at-token")
	s.baseURL = server.URL
	out, err := s.Read(context.Background(), "appBASE/Projects", nil)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	records := out.([]map[string]any)
	if len(records) != 2 {
		t.Fatalf("records = %d", len(records))
	}
	if records[0]["Name"] != "Borg" || records[0]["_id"] != "rec1" {
		t.Errorf("records = %v", records)
	}
}

func TestAirtableSourceRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	s := NewAirtableSource("at-token")
	s.baseURL = server.URL
	_, err := s.Read(context.Background(), "appBASE/Projects", nil)
	var ae *borg.AdapterError
	if !errors.As(err, &ae) || ae.Kind != borg.ErrRateLimited {
		t.Fatalf("expected rate_limited, got %v", err)
	}
	if !borg.IsRetryable(err) {
		t.Fatal("rate limiting should be retryable")
	}
}

func TestAirtableSourceBadQuery(t *testing.T) {
	s := NewAirtableSource("at-token")
	for _, q := range []string{"", "justbase", "/Table"} {
		if _, err := s.Read(context.Background(), q, nil); err == nil {
			t.Errorf("query %q: expected rejection", q)
		}
	}
}

func TestRSSSourceParsesFeed(t *testing.T) {
	feed := `<?xml version="1.0"?>
<rss version="2.0"><channel>
<title>Go Blog</title><link>https://go.dev/blog</link>
<item><title>Release notes</title><link>https://go.dev/blog/release</link>
<pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate>
<description>What changed</description></item>
</channel></rss>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(feed))
	}))
	defer server.Close()

	s := NewRSSSource()
	out, err := s.Read(context.Background(), server.URL, nil)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	result := out.(map[string]any)
	if result["feed_title"] != "Go Blog" {
		t.Errorf("feed_title = %v", result["feed_title"])
	}
	items := result["items"].([]map[string]any)
	if len(items) != 1 || items[0]["title"] != "Release notes" {
		t.Errorf("items = %v", items)
	}
}

func TestSupabaseSourceValidation(t *testing.T) {
	s := NewSupabaseSource(nil)
	if _, err := s.Read(context.Background(), "SELECT 1", nil); err == nil {
		t.Fatal("expected error without a connection")
	}
}

func TestSupabaseSourceRejectsMutations(t *testing.T) {
	s := &SupabaseSource{}
	for _, q := range []string{"DELETE FROM runs", "UPDATE t SET x=1", ""} {
		_, err := s.Read(context.Background(), q, nil)
		var ae *borg.AdapterError
		if !errors.As(err, &ae) || ae.Kind != borg.ErrInvalidConfiguration {
			t.Errorf("query %q: expected invalid_configuration, got %v", q, err)
		}
	}
}
