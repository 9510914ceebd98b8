package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/pixel-knight/pixelknight/internal/llm"
	"github.com/pixel-knight/pixelknight/internal/youtube"
)

func (s *Server) summarizeYouTube(c echo.Context) error {
	var req struct {
		URL      string `json:"url"`
		Language string `json:"language"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.URL) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "url required")
	}

	summary, err := s.youtube.Summarize(c.Request().Context(), req.URL, s.defaultModel(), s)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, summary)
}

// SummarizeTranscript satisfies youtube.Summarizer using the default LLM
// client.
func (s *Server) SummarizeTranscript(ctx context.Context, info youtube.VideoInfo, transcript, model string) (string, error) {
	prompt := fmt.Sprintf(`Please summarize the following YouTube video transcript concisely.

Video Title: %s
Author: %s

Transcript:
%s

Provide a clear, structured summary with:
1. Main topic/theme
2. Key points (bullet points)
3. Conclusion or takeaway`, info.Title, info.AuthorName, firstChars(transcript, 8000))

	system := "You are a helpful assistant that summarizes YouTube videos clearly and concisely."
	content, _, err := s.llm.ChatCompletion(ctx, []llm.Message{{Role: "user", Content: prompt}}, model, system, 0.5, 1000)
	return content, err
}
