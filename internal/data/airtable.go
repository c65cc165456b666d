package data

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/borgframework/borg/internal/borg"
)

const airtableBaseURL = "https://api.airtable.com/v0"

// AirtableSource lists records from an Airtable base over its REST API.
// The query is "baseID/TableName", optionally with "?view=..." or any
// other list parameter appended.
type AirtableSource struct {
	token   string
	baseURL string
	client  *http.Client
}

func NewAirtableSource(apiToken string) *AirtableSource {
	return &AirtableSource{
		token:   apiToken,
		baseURL: airtableBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *AirtableSource) Name() string { return "airtable" }

func (s *AirtableSource) Read(ctx context.Context, query string, _ any) (any, error) {
	if s.token == "" {
		return nil, borg.NewAdapterError(borg.ErrInvalidConfiguration, "airtable source has no API token configured", nil)
	}
	query = strings.TrimSpace(query)
	path, rawParams, _ := strings.Cut(query, "?")
	if base, table, ok := strings.Cut(path, "/"); !ok || base == "" || table == "" {
		return nil, borg.NewAdapterError(borg.ErrInvalidConfiguration,
			fmt.Sprintf("airtable query %q must be 'baseID/TableName'", query), nil)
	}

	endpoint := s.baseURL + "/" + path
	if rawParams != "" {
		if _, err := url.ParseQuery(rawParams); err != nil {
			return nil, borg.NewAdapterError(borg.ErrInvalidConfiguration,
				fmt.Sprintf("airtable query parameters %q invalid", rawParams), err)
		}
		endpoint += "?" + rawParams
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, borg.NewAdapterError(borg.ErrProviderUnavailable, "airtable API unreachable", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode >= 400 {
		kind := borg.ErrProviderRejected
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			kind = borg.ErrRateLimited
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			kind = borg.ErrInvalidConfiguration
		case resp.StatusCode >= 500:
			kind = borg.ErrProviderUnavailable
		}
		return nil, borg.NewAdapterError(kind,
			fmt.Sprintf("airtable API returned status %d: %s", resp.StatusCode, string(body)), nil)
	}

	var listResp struct {
		Records []struct {
			ID     string         `json:"id"`
			Fields map[string]any `json:"fields"`
		} `json:"records"`
	}
	if err := json.Unmarshal(body, &listResp); err != nil {
		return nil, fmt.Errorf("decode airtable response: %w", err)
	}

	out := make([]map[string]any, 0, len(listResp.Records))
	for _, rec := range listResp.Records {
		record := make(map[string]any, len(rec.Fields)+1)
		for k, v := range rec.Fields {
			record[k] = v
		}
		record["_id"] = rec.ID
		out = append(out, record)
	}
	return out, nil
}
