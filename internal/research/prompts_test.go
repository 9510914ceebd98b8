package research

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestFirstNKeepsRuneBoundary(t *testing.T) {
	s := strings.Repeat("é", 300)
	got := firstN(s, 501)
	if !utf8.ValidString(got) {
		t.Fatal("truncation split a rune")
	}
	if len(got) != 500 {
		t.Fatalf("len = %d, want 500", len(got))
	}
	if firstN("short", 500) != "short" {
		t.Fatal("short strings must pass through unchanged")
	}
}

func TestRecapTruncationIsValidUTF8(t *testing.T) {
	analysis := strings.Repeat("研究", 200)
	recap := summarizeSteps([]Step{{Query: "q", Analysis: analysis}})
	if !utf8.ValidString(recap) {
		t.Fatal("recap contains invalid UTF-8")
	}
	if !strings.Contains(recap, "Round 1 (q):") {
		t.Fatalf("unexpected recap: %q", recap)
	}
}
