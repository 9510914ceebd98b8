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

const defaultDuckDuckGoURL = "https://api.duckduckgo.com"

// DuckDuckGo queries the keyless instant-answer API. Coverage is thinner
// than the paid engines but it needs no configuration, which keeps it the
// out-of-the-box default.
type DuckDuckGo struct {
	BaseURL    string
	HTTPClient *http.Client
}

func (d *DuckDuckGo) Search(ctx context.Context, query string, maxResults int) ([]models.Source, error) {
	base := d.BaseURL
	if base == "" {
		base = defaultDuckDuckGoURL
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("no_html", "1")
	params.Set("skip_disambig", "1")

	endpoint := strings.TrimRight(base, "/") + "/?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := d.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo returned status: %d", resp.StatusCode)
	}

	var raw struct {
		AbstractText  string     `json:"AbstractText"`
		AbstractURL   string     `json:"AbstractURL"`
		Heading       string     `json:"Heading"`
		RelatedTopics []ddgTopic `json:"RelatedTopics"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	var out []models.Source
	if raw.AbstractText != "" {
		out = append(out, models.Source{Title: raw.Heading, URL: raw.AbstractURL, Snippet: raw.AbstractText})
	}
	for _, t := range flattenTopics(raw.RelatedTopics) {
		if len(out) >= maxResults {
			break
		}
		if t.FirstURL == "" && t.Text == "" {
			continue
		}
		out = append(out, models.Source{Title: topicTitle(t.Text), URL: t.FirstURL, Snippet: t.Text})
	}
	if len(out) > maxResults {
		out = out[:maxResults]
	}
	return out, nil
}

// ddgTopic is either a hit or a named group of hits.
type ddgTopic struct {
	Text     string     `json:"Text"`
	FirstURL string     `json:"FirstURL"`
	Topics   []ddgTopic `json:"Topics"`
}

func flattenTopics(topics []ddgTopic) []ddgTopic {
	var flat []ddgTopic
	for _, t := range topics {
		if len(t.Topics) > 0 {
			flat = append(flat, flattenTopics(t.Topics)...)
			continue
		}
		flat = append(flat, t)
	}
	return flat
}

// topicTitle keeps the leading phrase of a topic text as its title.
func topicTitle(text string) string {
	if idx := strings.Index(text, " - "); idx > 0 {
		return text[:idx]
	}
	if len(text) > 60 {
		return text[:60]
	}
	return text
}
