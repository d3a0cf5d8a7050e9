package repo

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/checkoutlens/checkout-lens/internal/models"
)

func TestHistoryRepoStoresNewestFirst(t *testing.T) {
	repo := NewHistoryRepo(newStubCache(), 10, time.Hour, nil)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		result := models.AnalysisResult{
			AnalysisID: fmt.Sprintf("a-%d", i),
			Profile:    "coarse",
			CreatedAt:  int64(i * 1_000),
		}
		if err := repo.StoreAnalysis(ctx, result); err != nil {
			t.Fatalf("store %d failed: %v", i, err)
		}
	}

	listed, err := repo.ListAnalyses(ctx, 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("expected 3 analyses, got %d", len(listed))
	}
	if listed[0].AnalysisID != "a-3" || listed[2].AnalysisID != "a-1" {
		t.Fatalf("wrong order: %s .. %s", listed[0].AnalysisID, listed[2].AnalysisID)
	}

	got, err := repo.GetAnalysis(ctx, "a-2")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.CreatedAt != 2_000 {
		t.Fatalf("unexpected analysis payload: %+v", got)
	}
}

func TestHistoryRepoEvictsPastLimit(t *testing.T) {
	repo := NewHistoryRepo(newStubCache(), 2, time.Hour, nil)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		if err := repo.StoreAnalysis(ctx, models.AnalysisResult{AnalysisID: fmt.Sprintf("a-%d", i)}); err != nil {
			t.Fatalf("store %d failed: %v", i, err)
		}
	}

	listed, err := repo.ListAnalyses(ctx, 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected limit of 2, got %d", len(listed))
	}
	if listed[0].AnalysisID != "a-3" || listed[1].AnalysisID != "a-2" {
		t.Fatalf("wrong survivors: %s, %s", listed[0].AnalysisID, listed[1].AnalysisID)
	}
}

func TestHistoryRepoRestoreExistingID(t *testing.T) {
	repo := NewHistoryRepo(newStubCache(), 10, time.Hour, nil)
	ctx := context.Background()

	if err := repo.StoreAnalysis(ctx, models.AnalysisResult{AnalysisID: "a-1"}); err != nil {
		t.Fatalf("first store failed: %v", err)
	}
	if err := repo.StoreAnalysis(ctx, models.AnalysisResult{AnalysisID: "a-2"}); err != nil {
		t.Fatalf("second store failed: %v", err)
	}
	// Re-storing a-1 moves it to the front without duplicating it.
	if err := repo.StoreAnalysis(ctx, models.AnalysisResult{AnalysisID: "a-1", Profile: "strict"}); err != nil {
		t.Fatalf("re-store failed: %v", err)
	}

	listed, err := repo.ListAnalyses(ctx, 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 unique analyses, got %d", len(listed))
	}
	if listed[0].AnalysisID != "a-1" || listed[0].Profile != "strict" {
		t.Fatalf("re-stored analysis not at front: %+v", listed[0])
	}
}

func TestHistoryRepoFeedback(t *testing.T) {
	repo := NewHistoryRepo(newStubCache(), 10, time.Hour, nil)
	ctx := context.Background()

	err := repo.StoreFeedback(ctx, models.Feedback{AnalysisID: "missing", Correct: true})
	if !errors.Is(err, ErrAnalysisNotFound) {
		t.Fatalf("expected ErrAnalysisNotFound, got %v", err)
	}

	if err := repo.StoreAnalysis(ctx, models.AnalysisResult{AnalysisID: "a-1"}); err != nil {
		t.Fatalf("store failed: %v", err)
	}
	if err := repo.StoreFeedback(ctx, models.Feedback{AnalysisID: "a-1", CorrelationKey: "i-1/d-1", Correct: true}); err != nil {
		t.Fatalf("first feedback failed: %v", err)
	}
	if err := repo.StoreFeedback(ctx, models.Feedback{AnalysisID: "a-1", Correct: false, Notes: "wrong trace"}); err != nil {
		t.Fatalf("second feedback failed: %v", err)
	}

	entries, err := repo.ListFeedback(ctx, "a-1")
	if err != nil {
		t.Fatalf("list feedback failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 feedback entries, got %d", len(entries))
	}
	if entries[0].CorrelationKey != "i-1/d-1" || entries[1].Notes != "wrong trace" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	if entries[0].SubmittedAt == 0 {
		t.Fatal("SubmittedAt was not defaulted")
	}
}
