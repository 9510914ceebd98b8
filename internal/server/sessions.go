package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/pixel-knight/pixelknight/models"
)

func (s *Server) listSessions(c echo.Context) error {
	sessions, err := s.store.ListSessions(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if sessions == nil {
		sessions = []models.ChatSession{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"sessions": sessions})
}

func (s *Server) createSession(c echo.Context) error {
	var req struct {
		Name   string `json:"name"`
		Model  string `json:"model"`
		Preset string `json:"preset"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Name == "" {
		req.Name = "New Chat"
	}
	if req.Model == "" {
		req.Model = s.defaultModel()
	}
	now := time.Now()
	session := models.ChatSession{
		ID:        uuid.NewString(),
		Title:     req.Name,
		Model:     req.Model,
		Preset:    req.Preset,
		Messages:  []models.ChatMessage{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateSession(c.Request().Context(), session); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, session)
}

func (s *Server) searchSessions(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query parameter q required")
	}
	sessions, err := s.store.SearchSessions(c.Request().Context(), q)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if sessions == nil {
		sessions = []models.ChatSession{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"sessions": sessions})
}

func (s *Server) getSession(c echo.Context) error {
	session, err := s.store.GetSession(c.Request().Context(), c.Param("id"))
	if err != nil {
		return sessionError(err)
	}
	return c.JSON(http.StatusOK, session)
}

func (s *Server) updateSession(c echo.Context) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Name) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name required")
	}
	ctx := c.Request().Context()
	if err := s.store.UpdateSessionTitle(ctx, c.Param("id"), req.Name); err != nil {
		return sessionError(err)
	}
	session, err := s.store.GetSession(ctx, c.Param("id"))
	if err != nil {
		return sessionError(err)
	}
	return c.JSON(http.StatusOK, session)
}

func (s *Server) deleteSession(c echo.Context) error {
	if err := s.store.DeleteSession(c.Request().Context(), c.Param("id")); err != nil {
		return sessionError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) autoNameSession(c echo.Context) error {
	ctx := c.Request().Context()
	session, err := s.store.GetSession(ctx, c.Param("id"))
	if err != nil {
		return sessionError(err)
	}
	if len(session.Messages) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "session has no messages")
	}
	var firstMessage string
	for _, m := range session.Messages {
		if m.Role == "user" {
			firstMessage = m.Content
			break
		}
	}
	if firstMessage == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "no user message found")
	}

	name := s.llm.GenerateSessionName(ctx, firstMessage, session.Model)
	if err := s.store.UpdateSessionTitle(ctx, session.ID, name); err != nil {
		return sessionError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"name": name})
}

func (s *Server) exportSession(c echo.Context) error {
	session, err := s.store.GetSession(c.Request().Context(), c.Param("id"))
	if err != nil {
		return sessionError(err)
	}

	safeName := strings.ReplaceAll(session.Title, " ", "_")
	if strings.EqualFold(c.QueryParam("format"), "json") {
		body, err := json.MarshalIndent(session, "", "  ")
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", safeName+".json"))
		return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, body)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", safeName+".md"))
	return c.Blob(http.StatusOK, "text/markdown", []byte(sessionMarkdown(session)))
}

func sessionMarkdown(session models.ChatSession) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", session.Title)
	fmt.Fprintf(&b, "**Model:** %s\n", session.Model)
	fmt.Fprintf(&b, "**Created:** %s\n", session.CreatedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "**Messages:** %d\n\n---\n\n", len(session.Messages))

	for _, msg := range session.Messages {
		role := "Assistant"
		if msg.Role == "user" {
			role = "User"
		}
		fmt.Fprintf(&b, "### **%s** (%s)\n\n%s\n\n", role, msg.CreatedAt.Format("15:04"), msg.Content)
		if len(msg.Sources) > 0 {
			b.WriteString("**Sources:**\n")
			for _, src := range msg.Sources {
				title := src.Title
				if title == "" {
					title = "Link"
				}
				url := src.URL
				if url == "" {
					url = "#"
				}
				fmt.Fprintf(&b, "- [%s](%s)\n", title, url)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

func sessionError(err error) error {
	if err == models.ErrSessionNotFound {
		return echo.NewHTTPError(http.StatusNotFound, "Session not found")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
