package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/pixel-knight/pixelknight/internal/llm"
	"github.com/pixel-knight/pixelknight/internal/store"
	"github.com/pixel-knight/pixelknight/models"
)

const (
	chatTemperature = 0.7
	chatMaxTokens   = 2048
)

type chatRequest struct {
	SessionID      string  `json:"session_id"`
	Message        string  `json:"message"`
	Model          string  `json:"model"`
	SystemPrompt   string  `json:"system_prompt"`
	EnableSearch   bool    `json:"enable_search"`
	EnableRAG      bool    `json:"enable_rag"`
	SearchProvider string  `json:"search_provider"`
	Temperature    float64 `json:"temperature"`
}

// prepareChat persists the user message and gathers search and RAG context.
// It returns the resolved system prompt, history, and collected sources.
func (s *Server) prepareChat(ctx context.Context, req chatRequest) (models.ChatSession, string, []llm.Message, []models.Source, error) {
	session, err := s.store.GetSession(ctx, req.SessionID)
	if err != nil {
		return models.ChatSession{}, "", nil, nil, err
	}

	userMsg := models.ChatMessage{
		ID:        uuid.NewString(),
		Role:      "user",
		Content:   req.Message,
		CreatedAt: time.Now(),
	}
	if err := s.store.AppendMessage(ctx, session.ID, userMsg); err != nil {
		return models.ChatSession{}, "", nil, nil, err
	}
	session.Messages = append(session.Messages, userMsg)

	var sources []models.Source
	var extra strings.Builder

	if req.EnableSearch {
		defaultProvider, maxResults := s.searchSettings()
		provider := models.SearchProvider(req.SearchProvider)
		if !provider.Valid() {
			provider = defaultProvider
		}
		results, err := s.search.Search(ctx, req.Message, provider, maxResults)
		if err != nil {
			s.logger.Printf("chat search: %v", err)
		} else {
			s.metrics.SearchRequests.WithLabelValues(string(provider)).Inc()
			sources = append(sources, results...)
			extra.WriteString("\n\nSearch Results:\n")
			for i, r := range results {
				fmt.Fprintf(&extra, "%d. %s: %s\n", i+1, r.Title, r.Snippet)
			}
		}
	}

	if req.EnableRAG {
		hits, err := s.rag.Search(req.Message, 3)
		if err != nil {
			s.logger.Printf("chat rag: %v", err)
		}
		for _, hit := range hits {
			sources = append(sources, models.Source{Title: hit.Path, URL: hit.Path, Snippet: firstChars(hit.Snippet, 200)})
			fmt.Fprintf(&extra, "\n\nFrom document %s:\n%s\n", hit.Path, hit.Snippet)
		}
	}

	systemPrompt := req.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = s.systemPromptFor(ctx, session.Preset)
	}
	if extra.Len() > 0 {
		systemPrompt += "\n\nUse the following context to answer the user's question:\n" + extra.String()
	}

	history := make([]llm.Message, 0, len(session.Messages))
	for _, m := range session.Messages {
		history = append(history, llm.Message{Role: m.Role, Content: m.Content})
	}
	return session, systemPrompt, history, sources, nil
}

func (s *Server) chat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()

	session, systemPrompt, history, sources, err := s.prepareChat(ctx, req)
	if err != nil {
		return sessionError(err)
	}

	model := req.Model
	if model == "" {
		model = session.Model
	}
	temperature := req.Temperature
	if temperature == 0 {
		temperature = chatTemperature
	}

	content, tokens, err := s.llm.ChatCompletion(ctx, history, model, systemPrompt, temperature, chatMaxTokens)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	assistantMsg := models.ChatMessage{
		ID:        uuid.NewString(),
		Role:      "assistant",
		Content:   content,
		Model:     model,
		Sources:   sources,
		CreatedAt: time.Now(),
	}
	if err := s.store.AppendMessage(ctx, session.ID, assistantMsg); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	s.metrics.ChatRequests.Inc()
	s.metrics.TokensUsed.Add(float64(tokens))
	if err := s.store.RecordUsage(ctx, store.UsageKindChat, tokens); err != nil {
		s.logger.Printf("record usage: %v", err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":     assistantMsg,
		"sources":     sources,
		"tokens_used": tokens,
	})
}

func (s *Server) chatStream(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()

	session, systemPrompt, history, sources, err := s.prepareChat(ctx, req)
	if err != nil {
		return sessionError(err)
	}

	model := req.Model
	if model == "" {
		model = session.Model
	}
	temperature := req.Temperature
	if temperature == 0 {
		temperature = chatTemperature
	}

	stream, err := newSSEStream(c)
	if err != nil {
		return err
	}

	if len(sources) > 0 {
		stream.send(map[string]interface{}{"type": "sources", "data": sources})
	}

	var full strings.Builder
	streamErr := s.llm.ChatCompletionStream(ctx, history, model, systemPrompt, temperature, chatMaxTokens, func(chunk string) error {
		full.WriteString(chunk)
		return stream.send(map[string]interface{}{"type": "content", "data": chunk})
	})
	if streamErr != nil {
		stream.send(map[string]interface{}{"type": "error", "data": streamErr.Error()})
		return nil
	}

	assistantMsg := models.ChatMessage{
		ID:        uuid.NewString(),
		Role:      "assistant",
		Content:   full.String(),
		Model:     model,
		Sources:   sources,
		CreatedAt: time.Now(),
	}
	if err := s.store.AppendMessage(ctx, session.ID, assistantMsg); err != nil {
		s.logger.Printf("persist streamed message: %v", err)
	}
	s.metrics.ChatRequests.Inc()
	if err := s.store.RecordUsage(ctx, store.UsageKindChat, llm.EstimateTokens(full.String())); err != nil {
		s.logger.Printf("record usage: %v", err)
	}

	stream.send(map[string]interface{}{"type": "done"})
	return nil
}

func (s *Server) editMessage(c echo.Context) error {
	var req struct {
		Content string `json:"content"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	sessionID, messageID := c.Param("id"), c.Param("message_id")

	if err := s.store.UpdateMessage(ctx, sessionID, messageID, req.Content); err != nil {
		if err == models.ErrSessionNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "Session not found")
		}
		return echo.NewHTTPError(http.StatusNotFound, "Message not found")
	}
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return sessionError(err)
	}
	for _, m := range session.Messages {
		if m.ID == messageID {
			return c.JSON(http.StatusOK, map[string]interface{}{"message": m})
		}
	}
	return echo.NewHTTPError(http.StatusNotFound, "Message not found")
}

func (s *Server) regenerate(c echo.Context) error {
	var req struct {
		MessageID string `json:"message_id"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()

	session, err := s.store.GetSession(ctx, c.Param("id"))
	if err != nil {
		return sessionError(err)
	}

	msgIndex := -1
	for i, m := range session.Messages {
		if m.ID == req.MessageID {
			msgIndex = i
			break
		}
	}
	if msgIndex < 0 {
		return echo.NewHTTPError(http.StatusNotFound, "Message not found")
	}
	if session.Messages[msgIndex].Role != "assistant" {
		return echo.NewHTTPError(http.StatusBadRequest, "Can only regenerate assistant messages")
	}
	userIndex := msgIndex - 1
	for userIndex >= 0 && session.Messages[userIndex].Role != "user" {
		userIndex--
	}
	if userIndex < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "No user message found before this response")
	}

	if err := s.store.RemoveMessage(ctx, session.ID, req.MessageID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	history := make([]llm.Message, 0, len(session.Messages)-1)
	for i, m := range session.Messages {
		if i == msgIndex {
			continue
		}
		history = append(history, llm.Message{Role: m.Role, Content: m.Content})
	}

	systemPrompt := s.systemPromptFor(ctx, session.Preset)
	content, tokens, err := s.llm.ChatCompletion(ctx, history, session.Model, systemPrompt, chatTemperature, chatMaxTokens)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	newMsg := models.ChatMessage{
		ID:        uuid.NewString(),
		Role:      "assistant",
		Content:   content,
		Model:     session.Model,
		CreatedAt: time.Now(),
	}
	if err := s.store.AppendMessage(ctx, session.ID, newMsg); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	s.metrics.ChatRequests.Inc()
	s.metrics.TokensUsed.Add(float64(tokens))

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":     newMsg,
		"tokens_used": tokens,
	})
}

func (s *Server) compareChat(c echo.Context) error {
	var req struct {
		Messages []llm.Message `json:"messages"`
		Model    string        `json:"model"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Model == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "model required")
	}

	content, tokens, err := s.llm.ChatCompletion(c.Request().Context(), req.Messages, req.Model, "", chatTemperature, chatMaxTokens)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"content":     content,
		"tokens_used": tokens,
		"model":       req.Model,
	})
}

// systemPromptFor resolves a session's preset to its system prompt.
func (s *Server) systemPromptFor(ctx context.Context, presetID string) string {
	if presetID == "" {
		return ""
	}
	preset, err := s.findPreset(ctx, presetID)
	if err != nil {
		return ""
	}
	return preset.SystemPrompt
}

func firstChars(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
