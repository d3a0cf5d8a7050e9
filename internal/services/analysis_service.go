// Package services wires the pure engine packages into one orchestrated
// analysis call and fronts the boundary collaborators (diagnostic retrieval,
// history persistence) for the API layer.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/checkoutlens/checkout-lens/internal/classifier"
	"github.com/checkoutlens/checkout-lens/internal/diagnostic"
	"github.com/checkoutlens/checkout-lens/internal/engine"
	"github.com/checkoutlens/checkout-lens/internal/insights"
	"github.com/checkoutlens/checkout-lens/internal/metrics"
	"github.com/checkoutlens/checkout-lens/internal/models"
	"github.com/checkoutlens/checkout-lens/internal/rules"
	"github.com/checkoutlens/checkout-lens/internal/utils"
)

// ErrHistoryDisabled is returned for history operations when no store is
// configured.
var ErrHistoryDisabled = errors.New("analysis history is disabled")

// DiagnosticSource fetches diagnostic records for a time window. The
// tracelog client implements it; tests substitute fakes.
type DiagnosticSource interface {
	Configured() bool
	FetchDiagnostics(ctx context.Context, window models.FetchWindow) ([]models.DiagnosticRecord, error)
}

// HistoryStore persists analysis results and feedback.
type HistoryStore interface {
	StoreAnalysis(ctx context.Context, result models.AnalysisResult) error
	ListAnalyses(ctx context.Context, limit int) ([]models.AnalysisResult, error)
	GetAnalysis(ctx context.Context, id string) (models.AnalysisResult, error)
	StoreFeedback(ctx context.Context, feedback models.Feedback) error
	ListFeedback(ctx context.Context, analysisID string) ([]models.Feedback, error)
}

// AnalysisService runs the classify/parse/correlate pipeline for the API
// layer. The service itself is stateless apart from the latency tracker;
// every run derives its tuning from the base profile plus request overrides.
type AnalysisService struct {
	logger    *slog.Logger
	registry  *rules.Registry
	base      engine.Profile
	tracelog  DiagnosticSource
	history   HistoryStore
	latencies *utils.LatencyTracker
}

// NewAnalysisService constructs the service facade. tracelog and history may
// be nil when those collaborators are not deployed.
func NewAnalysisService(logger *slog.Logger, registry *rules.Registry, base engine.Profile, tracelog DiagnosticSource, history HistoryStore) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisService{
		logger:    logger,
		registry:  registry,
		base:      base,
		tracelog:  tracelog,
		history:   history,
		latencies: utils.NewLatencyTracker(1024),
	}
}

// Analyze runs the full pipeline: classify the interactions, obtain and
// parse diagnostics, correlate inside the effective profile's window and
// summarize hotspots. Valid input always yields a result, possibly with no
// correlations at all.
func (s *AnalysisService) Analyze(ctx context.Context, req models.AnalysisRequest) (models.AnalysisResult, error) {
	start := time.Now()

	profile, err := s.resolveProfile(req.Options)
	if err != nil {
		metrics.ObserveAnalysis(time.Since(start), metrics.OutcomeError, 0)
		return models.AnalysisResult{}, err
	}

	classified := classifier.ClassifyAll(req.Interactions, s.registry)
	for _, ci := range classified {
		metrics.ObserveClassification(ci.MatchedRule)
	}

	records := req.Diagnostics
	if len(records) == 0 && req.FetchWindow != nil {
		records, err = s.fetchDiagnostics(ctx, *req.FetchWindow)
		if err != nil {
			metrics.ObserveAnalysis(time.Since(start), metrics.OutcomeError, 0)
			return models.AnalysisResult{}, err
		}
	}
	parsed := diagnostic.ParseAll(records)

	correlator := engine.NewCorrelator(profile, s.logger)
	correlations := correlator.Correlate(classified, parsed)
	hotspots := insights.Summarize(correlations, classified)

	duration := time.Since(start)
	result := models.AnalysisResult{
		AnalysisID:   uuid.NewString(),
		SessionID:    req.SessionID,
		Profile:      profile.Name,
		CreatedAt:    utils.NowMs(),
		Interactions: classified,
		Correlations: correlations,
		Hotspots:     hotspots,
		Stats:        buildStats(classified, parsed, correlations, profile),
		DurationMs:   duration.Milliseconds(),
	}

	if s.history != nil {
		// History is best effort; a full result still goes back to the caller.
		if err := s.history.StoreAnalysis(ctx, result); err != nil {
			s.logger.Warn("failed to store analysis", slog.String("analysis_id", result.AnalysisID), slog.Any("error", err))
		}
	}

	s.latencies.Observe(duration)
	metrics.ObserveAnalysis(duration, metrics.OutcomeSuccess, len(correlations))
	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		s.logger.Info("analysis latency", slog.Duration("p95", s.latencies.Percentile(95)), slog.Int("samples", count))
	}

	return result, nil
}

// ClassifyOnly classifies a batch without touching diagnostics.
func (s *AnalysisService) ClassifyOnly(batch []models.Interaction) []models.ClassifiedInteraction {
	classified := classifier.ClassifyAll(batch, s.registry)
	for _, ci := range classified {
		metrics.ObserveClassification(ci.MatchedRule)
	}
	return classified
}

// ParseOnly parses raw diagnostic records without correlating.
func (s *AnalysisService) ParseOnly(records []models.DiagnosticRecord) []models.ParsedDiagnostic {
	return diagnostic.ParseAll(records)
}

// Rules exposes the registry content for the API's rule listing.
func (s *AnalysisService) Rules() []rules.Rule {
	return s.registry.All()
}

// ListAnalyses returns stored results newest-first.
func (s *AnalysisService) ListAnalyses(ctx context.Context, limit int) ([]models.AnalysisResult, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	return s.history.ListAnalyses(ctx, limit)
}

// GetAnalysis fetches one stored result with its feedback.
func (s *AnalysisService) GetAnalysis(ctx context.Context, id string) (models.AnalysisResult, []models.Feedback, error) {
	if s.history == nil {
		return models.AnalysisResult{}, nil, ErrHistoryDisabled
	}
	result, err := s.history.GetAnalysis(ctx, id)
	if err != nil {
		return models.AnalysisResult{}, nil, err
	}
	feedback, err := s.history.ListFeedback(ctx, id)
	if err != nil {
		s.logger.Warn("failed to load feedback", slog.String("analysis_id", id), slog.Any("error", err))
		feedback = nil
	}
	return result, feedback, nil
}

// SubmitFeedback records an operator verdict against a stored analysis.
func (s *AnalysisService) SubmitFeedback(ctx context.Context, feedback models.Feedback) error {
	if s.history == nil {
		return ErrHistoryDisabled
	}
	return s.history.StoreFeedback(ctx, feedback)
}

// LatencySummary reports current pipeline latency percentiles.
func (s *AnalysisService) LatencySummary() utils.LatencySummary {
	return s.latencies.Summary()
}

func (s *AnalysisService) resolveProfile(opts models.EngineOptions) (engine.Profile, error) {
	profile := s.base
	if opts.Profile != "" {
		resolved, ok := engine.ProfileByName(opts.Profile)
		if !ok {
			return engine.Profile{}, fmt.Errorf("unknown profile %q", opts.Profile)
		}
		profile = resolved
	}
	return profile.With(opts.WindowMs, opts.Threshold), nil
}

func (s *AnalysisService) fetchDiagnostics(ctx context.Context, window models.FetchWindow) ([]models.DiagnosticRecord, error) {
	if s.tracelog == nil || !s.tracelog.Configured() {
		return nil, fmt.Errorf("fetch window requested but no tracelog service is configured")
	}
	if window.EndMs <= window.StartMs {
		return nil, fmt.Errorf("fetch window end must be after start")
	}
	records, err := s.tracelog.FetchDiagnostics(ctx, window)
	if err != nil {
		return nil, utils.NewAppError("analysis.fetchDiagnostics", "retrieve diagnostics", err)
	}
	s.logger.Debug("fetched diagnostics", slog.Int("count", len(records)))
	return records, nil
}

func buildStats(classified []models.ClassifiedInteraction, parsed []models.ParsedDiagnostic, correlations []models.Correlation, profile engine.Profile) models.AnalysisStats {
	stats := models.AnalysisStats{
		Interactions: len(classified),
		Diagnostics:  len(parsed),
		Correlations: len(correlations),
	}
	for _, ci := range classified {
		if ci.Unclassified() {
			stats.Unclassified++
		} else {
			stats.Classified++
		}
		if ci.Failed() {
			stats.Failures++
		}
	}
	windowMs := profile.TimeWindow.Milliseconds()
	for _, ci := range classified {
		for _, pd := range parsed {
			if utils.AbsGapMs(ci.Timestamp, pd.StartTime) <= windowMs {
				stats.CandidatePairs++
			}
		}
	}
	return stats
}
