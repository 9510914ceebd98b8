package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pixel-knight/pixelknight/models"
)

const defaultBraveEndpoint = "https://api.search.brave.com/res/v1/web/search"

// Brave queries the Brave Search API.
type Brave struct {
	APIKey     string
	Endpoint   string
	HTTPClient *http.Client
}

func (b *Brave) Search(ctx context.Context, query string, maxResults int) ([]models.Source, error) {
	// https://api.search.brave.com/app/documentation/web-search
	endpoint := b.Endpoint
	if endpoint == "" {
		endpoint = defaultBraveEndpoint
	}
	u := fmt.Sprintf("%s?q=%s&count=%d", endpoint, url.QueryEscape(query), maxResults)
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.APIKey)

	resp, err := b.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("brave returned status: %d", resp.StatusCode)
	}

	var raw struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	var out []models.Source
	for i, r := range raw.Web.Results {
		if i >= maxResults {
			break
		}
		out = append(out, models.Source{Title: r.Title, URL: r.URL, Snippet: r.Description})
	}
	return out, nil
}
