package insights

import (
	"testing"

	"github.com/checkoutlens/checkout-lens/internal/models"
)

func classified(id, stage string) models.ClassifiedInteraction {
	ci := models.ClassifiedInteraction{
		Interaction: models.Interaction{ID: id},
		MatchedRule: "payment",
		StageLabel:  stage,
	}
	if stage == "" {
		ci.MatchedRule = models.RuleUnclassified
	}
	return ci
}

func TestSummarizeGroupsByStageAndType(t *testing.T) {
	interactions := []models.ClassifiedInteraction{
		classified("i-1", "Payment Submission"),
		classified("i-2", "Payment Submission"),
		classified("i-3", "Cart Review"),
	}
	correlations := []models.Correlation{
		{InteractionID: "i-1", DiagnosticID: "d-1", Type: models.CorrelationError, Confidence: 0.9},
		{InteractionID: "i-2", DiagnosticID: "d-2", Type: models.CorrelationError, Confidence: 0.7},
		{InteractionID: "i-1", DiagnosticID: "d-3", Type: models.CorrelationError, Confidence: 0.8},
		{InteractionID: "i-3", DiagnosticID: "d-4", Type: models.CorrelationGeneral, Confidence: 0.4},
	}

	hotspots := Summarize(correlations, interactions)
	if len(hotspots) != 2 {
		t.Fatalf("expected 2 hotspots, got %d", len(hotspots))
	}

	top := hotspots[0]
	if top.Stage != "Payment Submission" || top.Type != models.CorrelationError {
		t.Fatalf("unexpected top hotspot: %+v", top)
	}
	if top.Count != 3 {
		t.Fatalf("expected count 3, got %d", top.Count)
	}
	if top.Prevalence != 0.75 {
		t.Fatalf("expected prevalence 0.75, got %v", top.Prevalence)
	}
	want := (0.9 + 0.7 + 0.8) / 3
	if diff := top.MeanConfidence - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("expected mean confidence %v, got %v", want, top.MeanConfidence)
	}
	if len(top.Examples) != 3 || top.Examples[0] != "i-1/d-1" {
		t.Fatalf("unexpected examples: %v", top.Examples)
	}
}

func TestSummarizeUnknownInteractionBucketsAsUnclassified(t *testing.T) {
	correlations := []models.Correlation{
		{InteractionID: "ghost", DiagnosticID: "d-1", Type: models.CorrelationGeneral, Confidence: 0.5},
	}
	hotspots := Summarize(correlations, nil)
	if len(hotspots) != 1 {
		t.Fatalf("expected 1 hotspot, got %d", len(hotspots))
	}
	if hotspots[0].Stage != models.RuleUnclassified {
		t.Fatalf("expected unclassified stage, got %q", hotspots[0].Stage)
	}
}

func TestSummarizeEmptyInput(t *testing.T) {
	if got := Summarize(nil, nil); got != nil {
		t.Fatalf("expected nil for empty input, got %+v", got)
	}
}
