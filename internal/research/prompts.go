package research

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pixel-knight/pixelknight/models"
)

// analysisPrompt packages the current round's new sources plus a condensed
// recap of earlier rounds for the analysis model.
func analysisPrompt(query string, results []models.Source, prior []Step) string {
	blocks := make([]string, 0, len(results))
	for _, r := range results {
		title := r.Title
		if title == "" {
			title = "Unknown"
		}
		blocks = append(blocks, fmt.Sprintf("Source: %s\nURL: %s\nContent: %s", title, r.URL, r.Snippet))
	}
	recap := summarizeSteps(prior)
	if recap == "" {
		recap = "None yet."
	}
	return fmt.Sprintf(`You are a research analyst. Analyze the following search results for the query: "%s"

Search Results:
%s

Previous findings:
%s

Provide:
1. Key findings from these sources
2. What information is still missing or unclear
3. A suggested follow-up search query to fill gaps (or "%s" if sufficient info gathered)

Be concise but thorough.`, query, strings.Join(blocks, "\n\n"), recap, completionMarker)
}

// summarizeSteps condenses prior rounds to the first 500 characters of each
// analysis so the recap stays small as rounds accumulate.
func summarizeSteps(steps []Step) string {
	if len(steps) == 0 {
		return ""
	}
	lines := make([]string, 0, len(steps))
	for i, step := range steps {
		lines = append(lines, fmt.Sprintf("Round %d (%s): %s...", i+1, step.Query, firstN(step.Analysis, 500)))
	}
	return strings.Join(lines, "\n")
}

// summaryPrompt concatenates every round's query and full analysis for the
// final synthesis call.
func summaryPrompt(originalQuery string, steps []Step) string {
	sections := make([]string, 0, len(steps))
	for i, step := range steps {
		sections = append(sections, fmt.Sprintf("### Research Round %d: %s\n%s", i+1, step.Query, step.Analysis))
	}
	return fmt.Sprintf(`Based on the following multi-round research on "%s", provide a comprehensive final summary.

Research Findings:
%s

Create a well-structured summary that:
1. Directly answers the original question
2. Synthesizes key findings from all rounds
3. Notes any limitations or areas needing more research
4. Lists the most important sources

Format with clear headings and bullet points where appropriate.`, originalQuery, strings.Join(sections, "\n\n"))
}

// firstN truncates s to at most n bytes without splitting a rune.
func firstN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
