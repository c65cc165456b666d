package services

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/borgframework/borg/internal/borg"
)

const trendingBaseURL = "https://github.com/trending"

// TrendingRepo is one repository row scraped from GitHub trending.
type TrendingRepo struct {
	Rank        int    `json:"rank"`
	Name        string `json:"name"` // owner/repo
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
	Language    string `json:"language,omitempty"`
	Stars       int    `json:"stars"`
	StarsToday  int    `json:"stars_today"`
}

type trendingEntry struct {
	repos     []TrendingRepo
	fetchedAt time.Time
}

// TrendingService scrapes GitHub's trending pages, fanning out across
// languages concurrently and caching each page for a TTL so workflow
// data nodes and the API don't hammer GitHub.
type TrendingService struct {
	client  *http.Client
	baseURL string
	ttl     time.Duration

	mu    sync.Mutex
	cache map[string]trendingEntry
}

func NewTrendingService(ttl time.Duration) *TrendingService {
	return &TrendingService{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: trendingBaseURL,
		ttl:     ttl,
		cache:   make(map[string]trendingEntry),
	}
}

// Fetch returns trending repositories per language. An empty language
// string means the all-languages page. Pages fetch concurrently; one
// failing page fails the whole fetch.
func (s *TrendingService) Fetch(ctx context.Context, languages []string) (map[string][]TrendingRepo, error) {
	if len(languages) == 0 {
		languages = []string{""}
	}

	out := make(map[string][]TrendingRepo, len(languages))
	var outMu sync.Mutex

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, lang := range languages {
		lang := lang
		g.Go(func() error {
			repos, err := s.fetchLanguage(gCtx, lang)
			if err != nil {
				return fmt.Errorf("trending %q: %w", lang, err)
			}
			outMu.Lock()
			out[langKey(lang)] = repos
			outMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func langKey(lang string) string {
	if lang == "" {
		return "all"
	}
	return lang
}

func (s *TrendingService) fetchLanguage(ctx context.Context, lang string) ([]TrendingRepo, error) {
	key := langKey(lang)
	s.mu.Lock()
	if entry, ok := s.cache[key]; ok && time.Since(entry.fetchedAt) < s.ttl {
		s.mu.Unlock()
		return entry.repos, nil
	}
	s.mu.Unlock()

	url := s.baseURL
	if lang != "" {
		url += "/" + lang
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; BorgBot/1.0)")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, borg.NewAdapterError(borg.ErrProviderUnavailable, "github trending unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, borg.NewAdapterError(borg.ErrRateLimited, "github trending rate limited", nil)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, borg.NewAdapterError(borg.ErrProviderUnavailable,
			fmt.Sprintf("github trending returned status %d", resp.StatusCode), nil)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse trending page: %w", err)
	}

	repos := parseTrending(doc)

	s.mu.Lock()
	s.cache[key] = trendingEntry{repos: repos, fetchedAt: time.Now()}
	s.mu.Unlock()

	return repos, nil
}

// parseTrending extracts repository rows from a trending page document.
func parseTrending(doc *goquery.Document) []TrendingRepo {
	var repos []TrendingRepo
	doc.Find("article.Box-row").Each(func(i int, sel *goquery.Selection) {
		repo := TrendingRepo{Rank: i + 1}

		link := sel.Find("h2 a").First()
		if href, ok := link.Attr("href"); ok {
			repo.Name = strings.Trim(href, "/")
			repo.URL = "https://github.com" + href
		}
		repo.Description = strings.TrimSpace(sel.Find("p").First().Text())
		repo.Language = strings.TrimSpace(sel.Find("span[itemprop='programmingLanguage']").First().Text())

		sel.Find("a.Link--muted").Each(func(_ int, a *goquery.Selection) {
			if href, ok := a.Attr("href"); ok && strings.HasSuffix(href, "/stargazers") {
				repo.Stars = parseCount(a.Text())
			}
		})
		todayText := sel.Find("span.d-inline-block.float-sm-right").First().Text()
		repo.StarsToday = parseCount(todayText)

		if repo.Name != "" {
			repos = append(repos, repo)
		}
	})
	return repos
}

// parseCount pulls the first integer out of text like "12,345 stars today".
func parseCount(text string) int {
	text = strings.ReplaceAll(strings.TrimSpace(text), ",", "")
	var digits strings.Builder
	for _, r := range text {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		} else if digits.Len() > 0 {
			break
		}
	}
	if digits.Len() == 0 {
		return 0
	}
	n, err := strconv.Atoi(digits.String())
	if err != nil {
		return 0
	}
	return n
}
