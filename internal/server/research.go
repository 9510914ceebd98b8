package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pixel-knight/pixelknight/internal/research"
	"github.com/pixel-knight/pixelknight/internal/store"
	"github.com/pixel-knight/pixelknight/models"
)

type researchRequest struct {
	Query          string `json:"query"`
	Model          string `json:"model"`
	MaxIterations  int    `json:"max_iterations"`
	SearchProvider string `json:"search_provider"`
}

func (s *Server) buildResearchRequest(req researchRequest) research.Request {
	model := req.Model
	if model == "" {
		model = s.defaultModel()
	}
	maxIterations := req.MaxIterations
	if maxIterations == 0 {
		maxIterations = s.cfg.Research.MaxIterations
	}
	return research.Request{
		Query:         req.Query,
		Model:         model,
		MaxIterations: maxIterations,
		Provider:      models.SearchProvider(req.SearchProvider),
	}
}

func reportPayload(report *research.Report) map[string]interface{} {
	return map[string]interface{}{
		"query":            report.OriginalQuery,
		"summary":          report.FinalSummary,
		"sources":          report.Sources,
		"iterations":       len(report.Steps),
		"total_sources":    report.TotalSourcesAnalyzed,
		"duration_seconds": report.DurationSeconds,
	}
}

func (s *Server) researchRun(c echo.Context) error {
	var req researchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()

	s.metrics.ResearchSessions.Inc()
	report, err := s.agent.Run(ctx, s.buildResearchRequest(req), nil)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	s.metrics.ResearchRounds.Add(float64(len(report.Steps)))
	if err := s.store.RecordUsage(ctx, store.UsageKindResearch, 0); err != nil {
		s.logger.Printf("record usage: %v", err)
	}

	return c.JSON(http.StatusOK, reportPayload(report))
}

func (s *Server) researchStream(c echo.Context) error {
	var req researchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()

	stream, err := newSSEStream(c)
	if err != nil {
		return err
	}

	sink := make(research.ChannelSink, 16)
	type result struct {
		report *research.Report
		err    error
	}
	done := make(chan result, 1)

	s.metrics.ResearchSessions.Inc()
	go func() {
		report, err := s.agent.Run(ctx, s.buildResearchRequest(req), sink)
		close(sink)
		done <- result{report, err}
	}()

	// Keep draining even if the client goes away so the agent never blocks
	// publishing to the sink.
	var writeErr error
	for progress := range sink {
		if writeErr != nil {
			continue
		}
		if err := stream.send(progress); err != nil {
			writeErr = err
			s.logger.Printf("research stream write: %v", err)
		}
	}

	res := <-done
	if writeErr != nil {
		return nil
	}
	if res.err != nil {
		stream.send(map[string]interface{}{"type": "error", "data": res.err.Error()})
		return nil
	}
	s.metrics.ResearchRounds.Add(float64(len(res.report.Steps)))
	if err := s.store.RecordUsage(ctx, store.UsageKindResearch, 0); err != nil {
		s.logger.Printf("record usage: %v", err)
	}

	stream.send(map[string]interface{}{"type": "complete", "data": reportPayload(res.report)})
	return nil
}
