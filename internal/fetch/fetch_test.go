package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const samplePage = `<!doctype html><html><head><title>Granodiorite Steles</title></head>
<body><article><h1>Granodiorite Steles</h1>
<p>The Rosetta Stone is a stele of granodiorite inscribed with three versions of a decree issued in Memphis in 196 BC. The top and middle texts are in Ancient Egyptian using hieroglyphic and demotic scripts, and the bottom is in Ancient Greek. The decree has only minor differences between the three versions, making the stone key to deciphering the Egyptian scripts.</p>
<p>Study of the decree was already underway when the first complete translation of the Greek text was published in 1803.</p>
</article></body></html>`

func TestHTTPFetchExtractsText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	f := &HTTPFetch{Timeout: DefaultTimeout, MaxChars: DefaultMaxChars}
	res, err := f.Exec(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(res.Text, "granodiorite") {
		t.Fatalf("article text missing, got: %q", res.Text)
	}
	if res.URL != srv.URL {
		t.Fatalf("unexpected url: %s", res.URL)
	}
}

func TestHTTPFetchCapsText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body><article><p>" + strings.Repeat("word ", 2000) + "</p></article></body></html>"))
	}))
	defer srv.Close()

	f := &HTTPFetch{Timeout: DefaultTimeout, MaxChars: 100}
	res, err := f.Exec(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Text) > 100 {
		t.Fatalf("text not capped: %d chars", len(res.Text))
	}
}

func TestHTTPFetchRejectsEmptyURL(t *testing.T) {
	f := &HTTPFetch{Timeout: DefaultTimeout, MaxChars: DefaultMaxChars}
	if _, err := f.Exec(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty url")
	}
}

func TestNewPageFetcher(t *testing.T) {
	if _, err := NewPageFetcher(HTTPFetcherType, 0, 0); err != nil {
		t.Fatalf("http fetcher should build: %v", err)
	}
	if _, err := NewPageFetcher(ChromedpFetcherType, 0, 0); err != nil {
		t.Fatalf("chromedp fetcher should build: %v", err)
	}
	if _, err := NewPageFetcher("gopher", 0, 0); err != ErrUnsupportedFetcher {
		t.Fatalf("expected ErrUnsupportedFetcher, got %v", err)
	}
}
