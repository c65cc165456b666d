package data

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/borgframework/borg/internal/borg"
)

// RSSSource fetches and parses an RSS, Atom, or JSON feed. The query is
// the feed URL.
type RSSSource struct {
	parser *gofeed.Parser
}

func NewRSSSource() *RSSSource {
	p := gofeed.NewParser()
	p.Client = &http.Client{Timeout: 30 * time.Second}
	return &RSSSource{parser: p}
}

func (s *RSSSource) Name() string { return "rss" }

func (s *RSSSource) Read(ctx context.Context, query string, _ any) (any, error) {
	feedURL := strings.TrimSpace(query)
	if feedURL == "" {
		return nil, borg.NewAdapterError(borg.ErrInvalidConfiguration, "rss source requires a feed URL query", nil)
	}

	reqCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	feed, err := s.parser.ParseURLWithContext(feedURL, reqCtx)
	if err != nil {
		return nil, borg.NewAdapterError(borg.ErrProviderUnavailable, "fetch/parse feed failed", err)
	}

	items := make([]map[string]any, 0, len(feed.Items))
	for _, item := range feed.Items {
		published := ""
		if item.PublishedParsed != nil {
			published = item.PublishedParsed.Format(time.RFC3339)
		} else if item.Published != "" {
			published = item.Published
		}
		author := ""
		if item.Author != nil {
			author = item.Author.Name
		}
		items = append(items, map[string]any{
			"title":     item.Title,
			"link":      item.Link,
			"published": published,
			"summary":   item.Description,
			"author":    author,
		})
	}

	return map[string]any{
		"feed_title": feed.Title,
		"feed_url":   feed.Link,
		"items":      items,
		"item_count": len(items),
	}, nil
}
