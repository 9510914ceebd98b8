package search

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pixel-knight/pixelknight/config"
	"github.com/pixel-knight/pixelknight/models"
)

func testClient() *http.Client {
	return &http.Client{Timeout: 5 * time.Second}
}

func TestSearxNGSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("q") != "rosetta stone" || q.Get("format") != "json" {
			t.Fatalf("unexpected query params: %v", q)
		}
		_, _ = w.Write([]byte(`{"results":[
			{"title":"A","url":"https://a.example","content":"first"},
			{"title":"B","url":"https://b.example","content":"second"},
			{"title":"C","url":"https://c.example","content":"third"}
		]}`))
	}))
	defer srv.Close()

	s := &SearxNG{BaseURL: srv.URL, HTTPClient: testClient()}
	out, err := s.Search(context.Background(), "rosetta stone", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected results capped at 2, got %d", len(out))
	}
	if out[0].Title != "A" || out[0].URL != "https://a.example" || out[0].Snippet != "first" {
		t.Fatalf("unexpected first result: %+v", out[0])
	}
}

func TestBraveSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tok := r.Header.Get("X-Subscription-Token"); tok != "brave-key" {
			t.Fatalf("unexpected token header: %s", tok)
		}
		_, _ = w.Write([]byte(`{"web":{"results":[{"title":"A","url":"https://a.example","description":"desc"}]}}`))
	}))
	defer srv.Close()

	b := &Brave{APIKey: "brave-key", Endpoint: srv.URL, HTTPClient: testClient()}
	out, err := b.Search(context.Background(), "anything", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0].Snippet != "desc" {
		t.Fatalf("unexpected results: %+v", out)
	}
}

func TestDuckDuckGoSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"Heading":"Rosetta Stone",
			"AbstractText":"A granodiorite stele.",
			"AbstractURL":"https://en.wikipedia.org/wiki/Rosetta_Stone",
			"RelatedTopics":[
				{"Text":"Decipherment - how it was read","FirstURL":"https://a.example/1"},
				{"Topics":[{"Text":"Champollion - the decipherer","FirstURL":"https://a.example/2"}]}
			]
		}`))
	}))
	defer srv.Close()

	d := &DuckDuckGo{BaseURL: srv.URL, HTTPClient: testClient()}
	out, err := d.Search(context.Background(), "rosetta stone", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected abstract plus 2 topics, got %d", len(out))
	}
	if out[0].URL != "https://en.wikipedia.org/wiki/Rosetta_Stone" {
		t.Fatalf("abstract should lead: %+v", out[0])
	}
	if out[1].Title != "Decipherment" {
		t.Fatalf("topic title not extracted: %+v", out[1])
	}
	if out[2].URL != "https://a.example/2" {
		t.Fatalf("nested topics should be flattened: %+v", out[2])
	}
}

func TestServiceDispatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[{"title":"A","url":"https://a.example","content":"x"}]}`))
	}))
	defer srv.Close()

	svc := NewService(config.SearchConfig{SearxNGURL: srv.URL})
	out, err := svc.Search(context.Background(), "q", models.SearchProviderSearxNG, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("unexpected results: %+v", out)
	}
}

func TestServiceRejectsUnknownProvider(t *testing.T) {
	svc := NewService(config.SearchConfig{})
	if _, err := svc.Search(context.Background(), "q", models.SearchProvider("altavista"), 5); !errors.Is(err, ErrUnsupportedProvider) {
		t.Fatalf("expected ErrUnsupportedProvider, got %v", err)
	}
}

func TestServiceRequiresBraveKey(t *testing.T) {
	svc := NewService(config.SearchConfig{})
	if _, err := svc.Search(context.Background(), "q", models.SearchProviderBrave, 5); err == nil {
		t.Fatal("expected error without brave api key")
	}
}

func TestSearxNGUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s := &SearxNG{BaseURL: srv.URL, HTTPClient: testClient()}
	if _, err := s.Search(context.Background(), "q", 5); err == nil {
		t.Fatal("expected error for non-200 status")
	}
}
