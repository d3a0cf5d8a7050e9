package engine

import (
	"testing"

	"github.com/checkoutlens/checkout-lens/internal/models"
)

func TestRankOrdersByConfidence(t *testing.T) {
	ranked := Rank([]models.Correlation{
		{InteractionID: "i-1", DiagnosticID: "d-1", Confidence: 0.40},
		{InteractionID: "i-2", DiagnosticID: "d-2", Confidence: 0.90},
		{InteractionID: "i-3", DiagnosticID: "d-3", Confidence: 0.65},
	})
	if ranked[0].Confidence != 0.90 || ranked[1].Confidence != 0.65 || ranked[2].Confidence != 0.40 {
		t.Fatalf("expected descending confidence, got %+v", ranked)
	}
}

func TestRankBreaksTiesByGapThenIDs(t *testing.T) {
	ranked := Rank([]models.Correlation{
		{InteractionID: "i-9", DiagnosticID: "d-9", Confidence: 0.70, TimeDifferenceMs: 30_000},
		{InteractionID: "i-1", DiagnosticID: "d-1", Confidence: 0.70, TimeDifferenceMs: 2_000},
	})
	if ranked[0].InteractionID != "i-1" {
		t.Fatalf("smaller time gap must win the tie, got %+v", ranked)
	}

	// Same confidence and gap: interaction ID, then diagnostic ID.
	ranked = Rank([]models.Correlation{
		{InteractionID: "i-2", DiagnosticID: "d-1", Confidence: 0.70, TimeDifferenceMs: 5_000},
		{InteractionID: "i-1", DiagnosticID: "d-2", Confidence: 0.70, TimeDifferenceMs: 5_000},
		{InteractionID: "i-1", DiagnosticID: "d-1", Confidence: 0.70, TimeDifferenceMs: 5_000},
	})
	if ranked[0].DiagnosticID != "d-1" || ranked[1].DiagnosticID != "d-2" || ranked[2].InteractionID != "i-2" {
		t.Fatalf("expected ID ordering on full ties, got %+v", ranked)
	}
}

func TestRankLeavesInputUntouched(t *testing.T) {
	input := []models.Correlation{
		{InteractionID: "i-1", DiagnosticID: "d-1", Confidence: 0.10},
		{InteractionID: "i-2", DiagnosticID: "d-2", Confidence: 0.95},
	}
	Rank(input)
	if input[0].InteractionID != "i-1" {
		t.Fatalf("ranking must not reorder the caller's slice, got %+v", input)
	}
}
