package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pixel-knight/pixelknight/models"
)

func (s *Server) testSearch(c echo.Context) error {
	var req struct {
		Query    string `json:"query"`
		Provider string `json:"provider"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Query == "" {
		req.Query = c.QueryParam("query")
	}
	if req.Provider == "" {
		req.Provider = c.QueryParam("provider")
	}
	provider := models.SearchProvider(req.Provider)
	if !provider.Valid() {
		provider = models.SearchProviderDuckDuckGo
	}
	_, maxResults := s.searchSettings()

	results, err := s.search.Search(c.Request().Context(), req.Query, provider, maxResults)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	s.metrics.SearchRequests.WithLabelValues(string(provider)).Inc()
	if results == nil {
		results = []models.Source{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"results": results})
}

func (s *Server) updateSearchSettings(c echo.Context) error {
	var req struct {
		DefaultProvider string `json:"default_provider"`
		MaxResults      int    `json:"max_results"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.DefaultProvider != "" && !models.SearchProvider(req.DefaultProvider).Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown search provider: "+req.DefaultProvider)
	}

	s.cfgMu.Lock()
	if req.DefaultProvider != "" {
		s.cfg.Search.DefaultProvider = req.DefaultProvider
	}
	if req.MaxResults > 0 {
		s.cfg.Search.MaxResults = req.MaxResults
	}
	provider, maxResults := s.cfg.Search.DefaultProvider, s.cfg.Search.MaxResults
	s.cfgMu.Unlock()

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": "updated",
		"settings": map[string]interface{}{
			"default_provider": provider,
			"max_results":      maxResults,
		},
	})
}

func (s *Server) textToSpeech(c echo.Context) error {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "not_implemented",
		"message":     "TTS requires additional backend setup. Configure a TTS provider in settings.",
		"text_length": len(req.Text),
	})
}

func (s *Server) getUsage(c echo.Context) error {
	totals, err := s.store.GetUsage(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, totals)
}

func (s *Server) getConfig(c echo.Context) error {
	s.cfgMu.RLock()
	view := map[string]interface{}{
		"api_base":      s.cfg.LLM.BaseURL,
		"default_model": s.cfg.LLM.DefaultModel,
		"has_brave_key": s.cfg.Search.BraveAPIKey != "",
		"has_searxng":   s.cfg.Search.SearxNGURL != "",
	}
	s.cfgMu.RUnlock()
	return c.JSON(http.StatusOK, view)
}

func (s *Server) updateConfig(c echo.Context) error {
	var req struct {
		APIBase     string `json:"api_base"`
		APIKey      string `json:"api_key"`
		BraveAPIKey string `json:"brave_api_key"`
		SearxNGURL  string `json:"searxng_url"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	s.cfgMu.Lock()
	if req.APIBase != "" {
		s.cfg.LLM.BaseURL = req.APIBase
	}
	if req.APIKey != "" {
		s.cfg.LLM.APIKey = req.APIKey
	}
	if req.BraveAPIKey != "" {
		s.cfg.Search.BraveAPIKey = req.BraveAPIKey
	}
	if req.SearxNGURL != "" {
		s.cfg.Search.SearxNGURL = req.SearxNGURL
	}
	s.cfgMu.Unlock()
	return c.JSON(http.StatusOK, map[string]string{"status": "updated"})
}
