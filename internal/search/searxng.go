package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pixel-knight/pixelknight/models"
)

// SearxNG queries a self-hosted SearXNG instance over its JSON API.
type SearxNG struct {
	BaseURL    string
	HTTPClient *http.Client
}

func (s *SearxNG) Search(ctx context.Context, query string, maxResults int) ([]models.Source, error) {
	// https://docs.searxng.org/dev/search_api.html
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("engines", "google,bing,duckduckgo")

	endpoint := strings.TrimRight(s.BaseURL, "/") + "/search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("searxng returned status: %d", resp.StatusCode)
	}

	var raw struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	var out []models.Source
	for i, r := range raw.Results {
		if i >= maxResults {
			break
		}
		out = append(out, models.Source{Title: r.Title, URL: r.URL, Snippet: r.Content})
	}
	return out, nil
}
