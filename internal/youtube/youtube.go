package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const defaultOembedURL = "https://www.youtube.com/oembed"

var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/)([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/shorts/([a-zA-Z0-9_-]{11})`),
}

// VideoInfo is the oembed metadata for a video.
type VideoInfo struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// Summary is the result of summarizing a video.
type Summary struct {
	VideoID       string `json:"video_id"`
	Title         string `json:"title"`
	Author        string `json:"author"`
	Thumbnail     string `json:"thumbnail"`
	Summary       string `json:"summary"`
	HasTranscript bool   `json:"has_transcript"`
}

// Summarizer produces a text summary when a transcript is available.
type Summarizer interface {
	SummarizeTranscript(ctx context.Context, info VideoInfo, transcript, model string) (string, error)
}

// Service resolves YouTube URLs to metadata and summaries.
type Service struct {
	OembedURL  string
	HTTPClient *http.Client
	logger     *log.Logger
}

func NewService() *Service {
	return &Service{
		OembedURL:  defaultOembedURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		logger:     log.New(log.Writer(), "[YOUTUBE] ", log.LstdFlags),
	}
}

// ExtractVideoID pulls the 11-character video ID out of watch, short-link,
// embed, and shorts URLs. It falls back to the v query parameter.
func ExtractVideoID(raw string) (string, bool) {
	for _, re := range videoIDPatterns {
		if m := re.FindStringSubmatch(raw); m != nil {
			return m[1], true
		}
	}
	parsed, err := url.Parse(raw)
	if err == nil && strings.Contains(parsed.Host, "youtube.com") {
		if v := parsed.Query().Get("v"); v != "" {
			return v, true
		}
	}
	return "", false
}

// VideoInfo fetches oembed metadata, degrading to Unknown fields on failure.
func (s *Service) VideoInfo(ctx context.Context, videoID string) VideoInfo {
	fallback := VideoInfo{Title: "Unknown", AuthorName: "Unknown"}

	params := url.Values{}
	params.Set("url", "https://www.youtube.com/watch?v="+videoID)
	params.Set("format", "json")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.OembedURL+"?"+params.Encode(), nil)
	if err != nil {
		return fallback
	}
	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		s.logger.Printf("oembed fetch: %v", err)
		return fallback
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		s.logger.Printf("oembed returned %d for %s", resp.StatusCode, videoID)
		return fallback
	}
	var info VideoInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return fallback
	}
	if info.Title == "" {
		info.Title = "Unknown"
	}
	if info.AuthorName == "" {
		info.AuthorName = "Unknown"
	}
	return info
}

// Transcript attempts to fetch the video transcript. Caption scraping needs
// an authenticated innertube session, so this currently always reports no
// transcript and Summarize falls back to metadata.
func (s *Service) Transcript(ctx context.Context, videoID, language string) (string, bool) {
	return "", false
}

// Summarize resolves a URL to video metadata plus either an LLM summary of
// the transcript or a fallback message when no transcript is available.
func (s *Service) Summarize(ctx context.Context, rawURL, model string, summarizer Summarizer) (Summary, error) {
	videoID, ok := ExtractVideoID(rawURL)
	if !ok {
		return Summary{}, fmt.Errorf("invalid YouTube URL")
	}

	info := s.VideoInfo(ctx, videoID)
	transcript, hasTranscript := s.Transcript(ctx, videoID, "en")

	var summary string
	if hasTranscript {
		text, err := summarizer.SummarizeTranscript(ctx, info, transcript, model)
		if err != nil {
			return Summary{}, fmt.Errorf("summarize transcript: %w", err)
		}
		summary = text
	} else {
		summary = fallbackSummary(info)
	}

	return Summary{
		VideoID:       videoID,
		Title:         info.Title,
		Author:        info.AuthorName,
		Thumbnail:     info.ThumbnailURL,
		Summary:       summary,
		HasTranscript: hasTranscript,
	}, nil
}

func fallbackSummary(info VideoInfo) string {
	return fmt.Sprintf(`Unable to retrieve transcript for this video.

**Video Information:**
- Title: %s
- Author: %s

To get a summary, you can:
1. Watch the video manually
2. Use browser extensions that support transcript extraction
3. Check if captions are available on the video`, info.Title, info.AuthorName)
}
