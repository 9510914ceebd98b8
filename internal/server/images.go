package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (s *Server) imageStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]bool{"configured": s.images.IsConfigured()})
}

func (s *Server) generateImage(c echo.Context) error {
	if !s.images.IsConfigured() {
		return echo.NewHTTPError(http.StatusServiceUnavailable,
			"Image generation not configured. Set the images.api_key setting.")
	}
	var req struct {
		Prompt  string `json:"prompt"`
		Size    string `json:"size"`
		Quality string `json:"quality"`
		Style   string `json:"style"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	result, err := s.images.Generate(c.Request().Context(), req.Prompt, req.Size, req.Quality, req.Style)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	s.metrics.ImageGenerations.Inc()
	return c.JSON(http.StatusOK, result)
}

func (s *Server) listImages(c echo.Context) error {
	images, err := s.images.List()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"images": images})
}
