package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/checkoutlens/checkout-lens/internal/cache"
	"github.com/checkoutlens/checkout-lens/internal/models"
	"github.com/checkoutlens/checkout-lens/internal/utils"
)

const (
	historyIndexKey   = "checkout-lens:analyses"
	analysisKeyPrefix = "checkout-lens:analysis:"
	feedbackKeyPrefix = "checkout-lens:feedback:"
)

// ErrAnalysisNotFound is returned when no stored analysis has the given ID.
var ErrAnalysisNotFound = errors.New("analysis not found")

// HistoryRepo persists analysis results and operator feedback in the cache
// provider. Each analysis is one JSON blob keyed by ID; a separate index
// blob keeps IDs newest-first, truncated to the configured limit. An entry
// can expire out from under the index, so readers skip misses.
type HistoryRepo struct {
	cache  cache.Provider
	limit  int
	ttl    time.Duration
	logger *slog.Logger
}

// NewHistoryRepo constructs a history store bounded to limit entries that
// each live for ttl.
func NewHistoryRepo(cacheProvider cache.Provider, limit int, ttl time.Duration, logger *slog.Logger) *HistoryRepo {
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	if limit <= 0 {
		limit = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryRepo{cache: cacheProvider, limit: limit, ttl: ttl, logger: logger}
}

// StoreAnalysis persists the result and moves its ID to the front of the
// index, evicting the oldest IDs past the limit.
func (r *HistoryRepo) StoreAnalysis(ctx context.Context, result models.AnalysisResult) error {
	if result.AnalysisID == "" {
		return fmt.Errorf("analysis id is empty")
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}
	if err := r.cache.Set(ctx, analysisKeyPrefix+result.AnalysisID, data, r.ttl); err != nil {
		return utils.NewAppError("history.StoreAnalysis", "store analysis blob", err)
	}

	ids := r.loadIndex(ctx)
	ids = prependUnique(ids, result.AnalysisID, r.limit)
	indexData, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}
	if err := r.cache.Set(ctx, historyIndexKey, indexData, r.ttl); err != nil {
		return utils.NewAppError("history.StoreAnalysis", "store analysis index", err)
	}
	return nil
}

// ListAnalyses returns stored results newest-first, at most limit entries
// (0 means the repo's configured limit). Expired entries are skipped.
func (r *HistoryRepo) ListAnalyses(ctx context.Context, limit int) ([]models.AnalysisResult, error) {
	if limit <= 0 || limit > r.limit {
		limit = r.limit
	}

	out := make([]models.AnalysisResult, 0, limit)
	for _, id := range r.loadIndex(ctx) {
		if len(out) >= limit {
			break
		}
		result, err := r.getByID(ctx, id)
		if err != nil {
			if errors.Is(err, ErrAnalysisNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, result)
	}
	return out, nil
}

// GetAnalysis fetches one stored result by ID.
func (r *HistoryRepo) GetAnalysis(ctx context.Context, id string) (models.AnalysisResult, error) {
	return r.getByID(ctx, id)
}

// StoreFeedback appends the verdict to the analysis's feedback list. The
// referenced analysis must still exist.
func (r *HistoryRepo) StoreFeedback(ctx context.Context, feedback models.Feedback) error {
	if feedback.AnalysisID == "" {
		return fmt.Errorf("feedback analysis id is empty")
	}
	if _, err := r.getByID(ctx, feedback.AnalysisID); err != nil {
		return err
	}
	if feedback.SubmittedAt == 0 {
		feedback.SubmittedAt = utils.NowMs()
	}

	key := feedbackKeyPrefix + feedback.AnalysisID
	var entries []models.Feedback
	if data, err := r.cache.Get(ctx, key); err == nil {
		if err := json.Unmarshal(data, &entries); err != nil {
			r.logger.Warn("discarding unreadable feedback list", slog.String("analysis_id", feedback.AnalysisID))
			entries = nil
		}
	}
	entries = append(entries, feedback)

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal feedback: %w", err)
	}
	if err := r.cache.Set(ctx, key, data, r.ttl); err != nil {
		return utils.NewAppError("history.StoreFeedback", "store feedback list", err)
	}
	return nil
}

// ListFeedback returns the feedback recorded against one analysis.
func (r *HistoryRepo) ListFeedback(ctx context.Context, analysisID string) ([]models.Feedback, error) {
	data, err := r.cache.Get(ctx, feedbackKeyPrefix+analysisID)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, nil
		}
		return nil, err
	}
	var entries []models.Feedback
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode feedback list: %w", err)
	}
	return entries, nil
}

func (r *HistoryRepo) getByID(ctx context.Context, id string) (models.AnalysisResult, error) {
	data, err := r.cache.Get(ctx, analysisKeyPrefix+id)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return models.AnalysisResult{}, ErrAnalysisNotFound
		}
		return models.AnalysisResult{}, err
	}
	var result models.AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		return models.AnalysisResult{}, fmt.Errorf("decode analysis %s: %w", id, err)
	}
	return result, nil
}

func (r *HistoryRepo) loadIndex(ctx context.Context) []string {
	data, err := r.cache.Get(ctx, historyIndexKey)
	if err != nil {
		return nil
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		r.logger.Warn("discarding unreadable analysis index")
		return nil
	}
	return ids
}

func prependUnique(ids []string, id string, limit int) []string {
	out := make([]string, 0, len(ids)+1)
	out = append(out, id)
	for _, existing := range ids {
		if existing == id {
			continue
		}
		out = append(out, existing)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
