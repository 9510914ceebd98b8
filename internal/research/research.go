package research

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/pixel-knight/pixelknight/models"
)

const (
	// DefaultMaxIterations bounds the number of search+analyze rounds when the
	// caller does not choose a cap.
	DefaultMaxIterations = 5

	// maxSourcesPerRound caps how many search hits a single round may consider.
	maxSourcesPerRound = 5

	// completionMarker ends the loop when present anywhere in an analysis
	// reply, matched case-insensitively.
	completionMarker = "RESEARCH_COMPLETE"

	analysisTemperature = 0.3
	analysisMaxTokens   = 1000
	summaryMaxTokens    = 2000
)

// Step records one completed research round.
type Step struct {
	Query     string          `json:"query"`
	Results   []models.Source `json:"results"`
	Analysis  string          `json:"analysis"`
	Timestamp time.Time       `json:"timestamp"`
}

// Report is the final output of a research session.
type Report struct {
	OriginalQuery        string          `json:"original_query"`
	Steps                []Step          `json:"steps"`
	FinalSummary         string          `json:"final_summary"`
	Sources              []models.Source `json:"sources"`
	TotalSourcesAnalyzed int             `json:"total_sources_analyzed"`
	DurationSeconds      float64         `json:"duration_seconds"`
}

// Message is a single conversation turn passed to the completion capability.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SearchFunc is the search capability consumed by the agent. A failure is
// treated as zero results for that round, never as a session failure.
type SearchFunc func(ctx context.Context, query string, provider models.SearchProvider, maxResults int) ([]models.Source, error)

// Completer is the completion capability consumed by the agent. It returns
// the reply text and the total token count of the call.
type Completer interface {
	Complete(ctx context.Context, messages []Message, model string, systemPrompt string, temperature float64, maxTokens int) (string, int, error)
}

// Request describes one research session.
type Request struct {
	Query         string
	Model         string
	MaxIterations int
	Provider      models.SearchProvider
}

// Agent drives the iterate-search-analyze-decide loop. Each Run owns its own
// source ledger and step list; an Agent is safe for concurrent sessions.
type Agent struct {
	search SearchFunc
	llm    Completer
	logger *log.Logger
}

// NewAgent wires the search and completion capabilities into a research agent.
func NewAgent(search SearchFunc, llm Completer) *Agent {
	return &Agent{
		search: search,
		llm:    llm,
		logger: log.New(log.Writer(), "[RESEARCH] ", log.LstdFlags),
	}
}

// Run conducts multi-round research on a query. Only input validation can
// fail; once the loop starts, search and completion failures degrade to empty
// results or error-text analyses and a report is always returned.
func (a *Agent) Run(ctx context.Context, req Request, sink ProgressSink) (*Report, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, fmt.Errorf("research query required")
	}
	maxIterations := req.MaxIterations
	if maxIterations == 0 {
		maxIterations = DefaultMaxIterations
	}
	if maxIterations < 0 {
		return nil, fmt.Errorf("max_iterations must be positive")
	}
	provider := req.Provider
	if provider == "" {
		provider = models.SearchProviderDuckDuckGo
	}

	start := time.Now()
	steps := []Step{}
	allSources := []models.Source{}
	seenURLs := map[string]struct{}{}
	currentQuery := query

	for iteration := 0; iteration < maxIterations; iteration++ {
		publish(sink, Progress{
			Type:          "progress",
			Iteration:     iteration + 1,
			MaxIterations: maxIterations,
			Query:         currentQuery,
			Status:        "searching",
		})

		results, err := a.search(ctx, currentQuery, provider, maxSourcesPerRound)
		if err != nil {
			a.logger.Printf("round %d search failed: %v", iteration+1, err)
			results = nil
		}

		// Sources without a URL have no dedup identity and are discarded.
		newResults := []models.Source{}
		for _, r := range results {
			if r.URL == "" {
				continue
			}
			if _, seen := seenURLs[r.URL]; seen {
				continue
			}
			seenURLs[r.URL] = struct{}{}
			newResults = append(newResults, r)
			allSources = append(allSources, r)
		}

		// No new information found, stop research.
		if len(newResults) == 0 && iteration > 0 {
			break
		}

		found := len(newResults)
		publish(sink, Progress{
			Type:         "progress",
			Iteration:    iteration + 1,
			Status:       "analyzing",
			SourcesFound: &found,
		})

		analysis, _, err := a.llm.Complete(ctx, nil, req.Model, analysisPrompt(currentQuery, newResults, steps), analysisTemperature, analysisMaxTokens)
		if err != nil {
			analysis = fmt.Sprintf("Error analyzing results: %v", err)
		}

		steps = append(steps, Step{
			Query:     currentQuery,
			Results:   newResults,
			Analysis:  analysis,
			Timestamp: time.Now(),
		})

		if strings.Contains(strings.ToUpper(analysis), completionMarker) {
			break
		}

		nextQuery, ok := extractNextQuery(analysis)
		if !ok || nextQuery == currentQuery {
			break
		}
		currentQuery = nextQuery
	}

	publish(sink, Progress{Type: "progress", Status: "summarizing"})

	finalSummary := a.finalSummary(ctx, query, req.Model, steps)

	return &Report{
		OriginalQuery:        query,
		Steps:                steps,
		FinalSummary:         finalSummary,
		Sources:              allSources,
		TotalSourcesAnalyzed: len(allSources),
		DurationSeconds:      time.Since(start).Seconds(),
	}, nil
}

func (a *Agent) finalSummary(ctx context.Context, originalQuery, model string, steps []Step) string {
	summary, _, err := a.llm.Complete(ctx, nil, model, summaryPrompt(originalQuery, steps), analysisTemperature, summaryMaxTokens)
	if err != nil {
		return fmt.Sprintf("Error generating summary: %v", err)
	}
	return summary
}
