package server

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/pixel-knight/pixelknight/internal/fetch"
)

var uploadExtensions = map[string]bool{
	".txt": true, ".md": true, ".py": true,
	".js": true, ".ts": true, ".json": true,
}

func (s *Server) ragFiles(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{"files": s.rag.Sources()})
}

func (s *Server) ragIndex(c echo.Context) error {
	var req struct {
		DirectoryPath string `json:"directory_path"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.DirectoryPath) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "directory_path required")
	}
	if info, err := os.Stat(req.DirectoryPath); err != nil || !info.IsDir() {
		return echo.NewHTTPError(http.StatusBadRequest, "not a directory: "+req.DirectoryPath)
	}
	count, err := s.rag.IndexDirectory(req.DirectoryPath)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"directory":     req.DirectoryPath,
		"files_indexed": count,
	})
}

func (s *Server) ragUpload(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file required")
	}
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !uploadExtensions[ext] {
		return echo.NewHTTPError(http.StatusBadRequest, "File type not supported: "+ext)
	}

	src, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	defer src.Close()

	uploadDir := filepath.Join(s.cfg.Storage.File.DataDir, "uploads")
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	dstPath := filepath.Join(uploadDir, filepath.Base(fileHeader.Filename))
	dst, err := os.Create(dstPath)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	size, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if err := s.rag.IndexFile(dstPath); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"filename": fileHeader.Filename,
		"size":     size,
		"indexed":  true,
	})
}

func (s *Server) ragIndexURL(c echo.Context) error {
	var req struct {
		URL    string `json:"url"`
		Render bool   `json:"render"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.URL) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "url required")
	}

	fetcherType := fetch.HTTPFetcherType
	if req.Render {
		fetcherType = fetch.ChromedpFetcherType
	}
	fetcher, err := fetch.NewPageFetcher(fetcherType, 0, 0)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	page, err := fetcher.Exec(c.Request().Context(), req.URL)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "Failed to fetch page: "+err.Error())
	}
	if page.Text == "" {
		return echo.NewHTTPError(http.StatusBadGateway, "No readable content at "+req.URL)
	}

	content := page.Text
	if page.Title != "" {
		content = page.Title + "\n\n" + content
	}
	if err := s.rag.IndexContent(req.URL, content); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"url":     req.URL,
		"title":   page.Title,
		"chars":   len(content),
		"indexed": true,
	})
}

func (s *Server) ragRemoveDirectory(c echo.Context) error {
	path := c.QueryParam("directory_path")
	if path == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "directory_path required")
	}
	if err := s.rag.Remove(path); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Directory not found")
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "removed"})
}
