package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pixel-knight/pixelknight/internal/provider"
	"github.com/pixel-knight/pixelknight/models"
)

// providerView hides the stored API key from responses.
type providerView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	BaseURL     string `json:"api_base"`
	HasKey      bool   `json:"has_key"`
	Enabled     bool   `json:"enabled"`
	ModelsCount int    `json:"models_count"`
	LastCheck   string `json:"last_check,omitempty"`
}

func viewOf(p models.Provider) providerView {
	v := providerView{
		ID:          p.ID,
		Name:        p.Name,
		BaseURL:     p.BaseURL,
		HasKey:      p.APIKey != "",
		Enabled:     p.Enabled,
		ModelsCount: len(p.Models),
	}
	if !p.LastCheck.IsZero() {
		v.LastCheck = p.LastCheck.Format("2006-01-02T15:04:05Z07:00")
	}
	return v
}

func (s *Server) listProviders(c echo.Context) error {
	providers := s.registry.List()
	views := make([]providerView, 0, len(providers))
	for _, p := range providers {
		views = append(views, viewOf(p))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"providers": views})
}

func (s *Server) providerPresets(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{"presets": provider.Catalog()})
}

func (s *Server) addProvider(c echo.Context) error {
	var req struct {
		Name    string `json:"name"`
		BaseURL string `json:"api_base"`
		APIKey  string `json:"api_key"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := s.registry.Add(models.Provider{Name: req.Name, BaseURL: req.BaseURL, APIKey: req.APIKey})
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{"provider": viewOf(p)})
}

func (s *Server) addPresetProvider(c echo.Context) error {
	key := c.Param("preset_key")
	entry, ok := provider.CatalogEntryByID(key)
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "Unknown preset: "+key)
	}
	var req struct {
		APIKey string `json:"api_key"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := s.registry.Add(models.Provider{
		ID:      entry.ID,
		Name:    entry.Name,
		BaseURL: entry.BaseURL,
		APIKey:  req.APIKey,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{"provider": viewOf(p)})
}

func (s *Server) updateProvider(c echo.Context) error {
	var req struct {
		Name    string `json:"name"`
		BaseURL string `json:"api_base"`
		APIKey  string `json:"api_key"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := s.registry.Update(c.Param("id"), models.Provider{Name: req.Name, BaseURL: req.BaseURL, APIKey: req.APIKey})
	if err != nil {
		return providerError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"provider": viewOf(p)})
}

func (s *Server) deleteProvider(c echo.Context) error {
	if err := s.registry.Remove(c.Request().Context(), c.Param("id")); err != nil {
		return providerError(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) toggleProvider(c echo.Context) error {
	p, err := s.registry.Get(c.Param("id"))
	if err != nil {
		return providerError(err)
	}
	p, err = s.registry.SetEnabled(p.ID, !p.Enabled)
	if err != nil {
		return providerError(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"enabled": p.Enabled})
}

func (s *Server) testProvider(c echo.Context) error {
	result, err := s.registry.Test(c.Request().Context(), c.Param("id"))
	if err != nil {
		return providerError(err)
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) listModels(c echo.Context) error {
	ids := s.registry.AllModels(c.Request().Context())
	if len(ids) == 0 {
		// No providers registered; fall back to the default endpoint.
		fallback, err := s.llm.ListModels(c.Request().Context())
		if err == nil {
			ids = fallback
		}
	}
	modelsOut := make([]map[string]string, 0, len(ids))
	for _, id := range ids {
		modelsOut = append(modelsOut, map[string]string{"id": id})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"models": modelsOut})
}

func providerError(err error) error {
	if err == models.ErrProviderNotFound {
		return echo.NewHTTPError(http.StatusNotFound, "Provider not found")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
