package engine

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/checkoutlens/checkout-lens/internal/models"
)

const base = int64(1_700_000_000_000)

func paymentInteraction() models.ClassifiedInteraction {
	return models.ClassifiedInteraction{
		Interaction: models.Interaction{
			ID:           "int-1",
			Timestamp:    base,
			Method:       "POST",
			URL:          "https://shop.example/api/checkouts/ABC123456789012/payments",
			StatusCode:   400,
			ResponseBody: json.RawMessage(`{"errors":[{"message":"Invalid payment method"}]}`),
		},
		MatchedRule: "payment",
		StageLabel:  "Payment Submission",
	}
}

func paymentDiagnostic(deltaMs int64, raw string) models.ParsedDiagnostic {
	return models.ParsedDiagnostic{
		DiagnosticRecord: models.DiagnosticRecord{
			ID:         "diag-1",
			StartTime:  base + deltaMs,
			Operation:  "CheckoutPaymentController.authorize",
			RawContent: raw,
		},
		Errors: []models.LogEvent{{Timestamp: "16:10:22.481", Message: "Invalid payment method"}},
		Events: models.DomainEvents{Payment: []string{"payment retry scheduled"}},
	}
}

const paymentRaw = "16:10:22.481|FATAL_ERROR|Invalid payment method\n16:10:22.490|WARN|payment retry scheduled"

func TestCorrelatePaymentFailureScenario(t *testing.T) {
	c := NewCorrelator(CoarseProfile(), nil)
	got := c.Correlate(
		[]models.ClassifiedInteraction{paymentInteraction()},
		[]models.ParsedDiagnostic{paymentDiagnostic(5_000, paymentRaw)},
	)
	if len(got) != 1 {
		t.Fatalf("expected 1 correlation, got %d", len(got))
	}
	corr := got[0]
	if corr.Type != models.CorrelationError {
		t.Fatalf("expected error type, got %q", corr.Type)
	}
	if corr.Confidence <= 0.3 || corr.Confidence > 1 {
		t.Fatalf("confidence out of expected range: %f", corr.Confidence)
	}
	if corr.TimeDifferenceMs != 5_000 {
		t.Fatalf("unexpected time difference: %d", corr.TimeDifferenceMs)
	}
	if !strings.Contains(corr.Reasoning, "Occurred 5s apart") {
		t.Fatalf("reasoning missing time gap: %q", corr.Reasoning)
	}
	if !strings.Contains(corr.Reasoning, "both contain errors") {
		t.Fatalf("reasoning missing error co-occurrence: %q", corr.Reasoning)
	}
	if !strings.Contains(corr.Reasoning, "near-identical error messages") {
		t.Fatalf("reasoning missing similarity note: %q", corr.Reasoning)
	}
	if len(corr.Factors) == 0 {
		t.Fatalf("factor breakdown missing")
	}
	for _, f := range corr.Factors {
		if f.Score <= 0 || f.Score > f.Cap {
			t.Fatalf("factor %s out of bounds: %f cap %f", f.Name, f.Score, f.Cap)
		}
	}
}

func TestCorrelateWindowExclusion(t *testing.T) {
	c := NewCorrelator(CoarseProfile(), nil)
	outside := paymentDiagnostic(c.Profile().TimeWindow.Milliseconds()+1, paymentRaw)
	got := c.Correlate(
		[]models.ClassifiedInteraction{paymentInteraction()},
		[]models.ParsedDiagnostic{outside},
	)
	if len(got) != 0 {
		t.Fatalf("diagnostic outside the window must never correlate, got %d", len(got))
	}

	// Exactly at the window edge the pair is still eligible; with an
	// identifier hit and error co-occurrence it clears the threshold even
	// though temporal proximity contributes nothing.
	edge := paymentDiagnostic(c.Profile().TimeWindow.Milliseconds(), paymentRaw+"\ncheckout ABC123456789012 aborted")
	got = c.Correlate(
		[]models.ClassifiedInteraction{paymentInteraction()},
		[]models.ParsedDiagnostic{edge},
	)
	if len(got) != 1 {
		t.Fatalf("edge-of-window pair should correlate, got %d", len(got))
	}
	for _, f := range got[0].Factors {
		if f.Name == "temporal" {
			t.Fatalf("temporal factor must be zero at the horizon")
		}
	}
}

func TestCorrelateConfidenceBounds(t *testing.T) {
	c := NewCorrelator(CoarseProfile(), nil)
	// Every factor at its cap: zero gap, identifiers, token, errors,
	// identical messages, aligned events, saturated keywords.
	ci := paymentInteraction()
	ci.RequestBody = json.RawMessage(`{"paymentToken":"tok_a1b2c3d4e5"}`)
	full := paymentDiagnostic(0, paymentRaw+"\ncheckout ABC123456789012 via tok_a1b2c3d4e5")
	got := c.Correlate([]models.ClassifiedInteraction{ci}, []models.ParsedDiagnostic{full})
	if len(got) != 1 {
		t.Fatalf("expected 1 correlation, got %d", len(got))
	}
	if got[0].Confidence < 0 || got[0].Confidence > 1 {
		t.Fatalf("confidence out of [0,1]: %f", got[0].Confidence)
	}
	if got[0].Confidence < 0.99 {
		t.Fatalf("a fully matching pair should approach 1.0, got %f", got[0].Confidence)
	}
}

func TestCorrelateMonotonicity(t *testing.T) {
	c := NewCorrelator(CoarseProfile(), nil)
	ci := []models.ClassifiedInteraction{paymentInteraction()}

	without := c.Correlate(ci, []models.ParsedDiagnostic{paymentDiagnostic(5_000, paymentRaw)})
	with := c.Correlate(ci, []models.ParsedDiagnostic{paymentDiagnostic(5_000, paymentRaw+"\ncheckout ABC123456789012 aborted")})

	if len(without) != 1 || len(with) != 1 {
		t.Fatalf("expected both variants to correlate: %d, %d", len(without), len(with))
	}
	if with[0].Confidence <= without[0].Confidence {
		t.Fatalf("verbatim identifier match must not lower confidence: %f vs %f",
			with[0].Confidence, without[0].Confidence)
	}
}

func TestCorrelateThresholdGating(t *testing.T) {
	c := NewCorrelator(CoarseProfile(), nil)
	weak := models.ClassifiedInteraction{
		Interaction: models.Interaction{
			ID: "int-weak", Timestamp: base, Method: "GET",
			URL: "https://shop.example/api/status", StatusCode: 200,
		},
		MatchedRule: models.RuleUnclassified,
	}
	distant := models.ParsedDiagnostic{
		DiagnosticRecord: models.DiagnosticRecord{
			ID: "diag-weak", StartTime: base + 110_000, RawContent: "routine heartbeat",
		},
	}
	got := c.Correlate([]models.ClassifiedInteraction{weak}, []models.ParsedDiagnostic{distant})
	if len(got) != 0 {
		t.Fatalf("a pair with only residual temporal proximity must stay below threshold, got %d", len(got))
	}
}

func TestCorrelateTemporalDecay(t *testing.T) {
	c := NewCorrelator(CoarseProfile(), nil)
	ci := []models.ClassifiedInteraction{paymentInteraction()}

	near := paymentDiagnostic(5_000, paymentRaw)
	far := paymentDiagnostic(60_000, paymentRaw)
	far.ID = "diag-2"

	got := c.Correlate(ci, []models.ParsedDiagnostic{far, near})
	if len(got) != 2 {
		t.Fatalf("expected 2 correlations, got %d", len(got))
	}
	if got[0].DiagnosticID != "diag-1" {
		t.Fatalf("nearer diagnostic must rank first, got %s", got[0].DiagnosticID)
	}
	if got[0].Confidence <= got[1].Confidence {
		t.Fatalf("temporal decay must favor the nearer diagnostic: %f vs %f",
			got[0].Confidence, got[1].Confidence)
	}
}

func TestCorrelateProfilesDiverge(t *testing.T) {
	interactions := []models.ClassifiedInteraction{paymentInteraction()}
	plain := []models.ParsedDiagnostic{paymentDiagnostic(5_000, paymentRaw)}
	identified := []models.ParsedDiagnostic{paymentDiagnostic(5_000, paymentRaw+"\ncheckout ABC123456789012 aborted")}

	coarse := NewCorrelator(CoarseProfile(), nil)
	strict := NewCorrelator(StrictProfile(), nil)

	if got := coarse.Correlate(interactions, plain); len(got) != 1 {
		t.Fatalf("coarse should emit the unidentified pair, got %d", len(got))
	}
	if got := strict.Correlate(interactions, plain); len(got) != 0 {
		t.Fatalf("strict should withhold without an identifier, got %d", len(got))
	}
	if got := strict.Correlate(interactions, identified); len(got) != 1 {
		t.Fatalf("strict should emit once the identifier matches, got %d", len(got))
	}
}

func TestCorrelateDeterminism(t *testing.T) {
	c := NewCorrelator(CoarseProfile(), nil)
	interactions := []models.ClassifiedInteraction{paymentInteraction()}
	diagnostics := []models.ParsedDiagnostic{paymentDiagnostic(5_000, paymentRaw)}

	first := c.Correlate(interactions, diagnostics)
	second := c.Correlate(interactions, diagnostics)
	if len(first) != len(second) {
		t.Fatalf("repeated runs diverged in size")
	}
	for i := range first {
		if first[i].Confidence != second[i].Confidence || first[i].Reasoning != second[i].Reasoning {
			t.Fatalf("repeated runs diverged at %d", i)
		}
	}
}
