package search

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/pixel-knight/pixelknight/config"
	"github.com/pixel-knight/pixelknight/models"
)

// ErrUnsupportedProvider is returned for unknown provider names.
var ErrUnsupportedProvider = errors.New("unsupported search provider")

// WebSearcher is a single backing search engine.
type WebSearcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]models.Source, error)
}

// Service dispatches searches to the configured providers. Its Search method
// satisfies the research agent's search capability.
type Service struct {
	cfg        config.SearchConfig
	httpClient *http.Client
	logger     *log.Logger
}

// NewService builds a search service from config.
func NewService(cfg config.SearchConfig) *Service {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Service{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     log.New(log.Writer(), "[SEARCH] ", log.LstdFlags),
	}
}

// Search executes a query against the named provider, capped at maxResults.
func (s *Service) Search(ctx context.Context, query string, provider models.SearchProvider, maxResults int) ([]models.Source, error) {
	searcher, err := s.searcher(provider)
	if err != nil {
		return nil, err
	}
	return searcher.Search(ctx, query, maxResults)
}

func (s *Service) searcher(provider models.SearchProvider) (WebSearcher, error) {
	switch provider {
	case models.SearchProviderSearxNG:
		if s.cfg.SearxNGURL == "" {
			return nil, fmt.Errorf("searxng url required")
		}
		return &SearxNG{BaseURL: s.cfg.SearxNGURL, HTTPClient: s.httpClient}, nil
	case models.SearchProviderBrave:
		if s.cfg.BraveAPIKey == "" {
			return nil, fmt.Errorf("brave api key required")
		}
		return &Brave{APIKey: s.cfg.BraveAPIKey, Endpoint: s.cfg.BraveEndpoint, HTTPClient: s.httpClient}, nil
	case models.SearchProviderDuckDuckGo:
		return &DuckDuckGo{BaseURL: s.cfg.DuckDuckGoURL, HTTPClient: s.httpClient}, nil
	default:
		return nil, ErrUnsupportedProvider
	}
}
