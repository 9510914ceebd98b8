package research

import (
	"strings"
	"testing"
)

func TestExtractNextQuery(t *testing.T) {
	cases := []struct {
		name     string
		analysis string
		want     string
		ok       bool
	}{
		{
			name:     "quoted follow-up line",
			analysis: "1. Findings.\nFollow-up query: \"quantum error correction codes\"\n",
			want:     "quantum error correction codes",
			ok:       true,
		},
		{
			name:     "single quoted value",
			analysis: "Next query: 'deep ocean hydrothermal vents'",
			want:     "deep ocean hydrothermal vents",
			ok:       true,
		},
		{
			name:     "search for phrasing",
			analysis: "You should search for: antikythera mechanism reconstruction",
			want:     "antikythera mechanism reconstruction",
			ok:       true,
		},
		{
			name:     "mixed case keyword",
			analysis: "FOLLOW-UP QUERY: medieval manuscript preservation",
			want:     "medieval manuscript preservation",
			ok:       true,
		},
		{
			name:     "splits on first colon only",
			analysis: "Follow-up query: rosetta stone: decipherment timeline",
			want:     "rosetta stone: decipherment timeline",
			ok:       true,
		},
		{
			name:     "too short is rejected",
			analysis: "Next query: short",
			ok:       false,
		},
		{
			name:     "keyword without colon is skipped",
			analysis: "A follow-up would help but none is suggested",
			ok:       false,
		},
		{
			name:     "no qualifying line",
			analysis: "1. Key findings.\n2. Missing info.\n3. RESEARCH_COMPLETE",
			ok:       false,
		},
		{
			name:     "later line qualifies after short one",
			analysis: "Next query: tiny\nFollow-up query: a sufficiently long replacement query",
			want:     "a sufficiently long replacement query",
			ok:       true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := extractNextQuery(tc.analysis)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if got != tc.want {
				t.Fatalf("query = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestSummarizeStepsTruncation(t *testing.T) {
	long := strings.Repeat("x", 900)
	recap := summarizeSteps([]Step{{Query: "q1", Analysis: long}})
	if len(recap) > len("Round 1 (q1): ")+500+len("...") {
		t.Fatalf("recap not truncated, length %d", len(recap))
	}
	if !strings.HasPrefix(recap, "Round 1 (q1): ") || !strings.HasSuffix(recap, "...") {
		t.Fatalf("unexpected recap shape: %q", recap)
	}
}

func TestSummarizeStepsEmpty(t *testing.T) {
	if recap := summarizeSteps(nil); recap != "" {
		t.Fatalf("expected empty recap, got %q", recap)
	}
}
