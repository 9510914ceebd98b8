package youtube

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestExtractVideoID(t *testing.T) {
	cases := []struct {
		name string
		url  string
		id   string
		ok   bool
	}{
		{"watch", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"short link", "https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"embed", "https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"shorts", "https://www.youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"watch with extra params", "https://www.youtube.com/watch?t=42&v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"not youtube", "https://vimeo.com/12345", "", false},
		{"plain text", "not a url at all", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id, ok := ExtractVideoID(tc.url)
			if ok != tc.ok || id != tc.id {
				t.Fatalf("ExtractVideoID(%q) = %q, %v; want %q, %v", tc.url, id, ok, tc.id, tc.ok)
			}
		})
	}
}

func TestVideoInfoFromOembed(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Query().Get("format") != "json" {
			t.Errorf("format param missing")
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"title":         "Decoding the Rosetta Stone",
			"author_name":   "History Channel",
			"thumbnail_url": "https://img.example/x.jpg",
		})
	}))
	defer ts.Close()

	svc := NewService()
	svc.OembedURL = ts.URL

	info := svc.VideoInfo(context.Background(), "dQw4w9WgXcQ")
	if info.Title != "Decoding the Rosetta Stone" || info.AuthorName != "History Channel" {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestVideoInfoDegradesOnFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer ts.Close()

	svc := NewService()
	svc.OembedURL = ts.URL

	info := svc.VideoInfo(context.Background(), "dQw4w9WgXcQ")
	if info.Title != "Unknown" || info.AuthorName != "Unknown" {
		t.Fatalf("expected fallback info, got %+v", info)
	}
}

func TestSummarizeFallsBackWithoutTranscript(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"title":       "Decoding the Rosetta Stone",
			"author_name": "History Channel",
		})
	}))
	defer ts.Close()

	svc := NewService()
	svc.OembedURL = ts.URL

	summary, err := svc.Summarize(context.Background(), "https://youtu.be/dQw4w9WgXcQ", "gpt-4o-mini", nil)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if summary.HasTranscript {
		t.Fatal("expected no transcript")
	}
	if summary.VideoID != "dQw4w9WgXcQ" || summary.Title != "Decoding the Rosetta Stone" {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if !strings.Contains(summary.Summary, "Unable to retrieve transcript") {
		t.Fatalf("expected fallback text, got %q", summary.Summary)
	}
}

func TestSummarizeRejectsInvalidURL(t *testing.T) {
	svc := NewService()
	if _, err := svc.Summarize(context.Background(), "https://example.com", "gpt-4o-mini", nil); err == nil {
		t.Fatal("expected error for non-YouTube URL")
	}
}
