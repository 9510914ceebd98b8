package research

import "strings"

// extractNextQuery scans an analysis reply line by line for a suggested
// follow-up search query. A qualifying line mentions "follow-up", "next
// query" or "search for" and carries the query after its first colon; short
// extractions (10 characters or fewer) are rejected as noise. Returns false
// when nothing qualifies, which stops the loop.
func extractNextQuery(analysis string) (string, bool) {
	for _, line := range strings.Split(analysis, "\n") {
		lower := strings.ToLower(line)
		if !strings.Contains(lower, "follow-up") &&
			!strings.Contains(lower, "next query") &&
			!strings.Contains(lower, "search for") {
			continue
		}
		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		query := strings.TrimSpace(line[idx+1:])
		query = strings.Trim(query, `"'`)
		if len(query) > 10 {
			return query, true
		}
	}
	return "", false
}
