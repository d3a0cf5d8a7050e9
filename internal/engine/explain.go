package engine

import (
	"fmt"
	"strings"

	"github.com/checkoutlens/checkout-lens/internal/models"
)

// TypeOf derives the correlation category with fixed precedence: error wins
// whenever either side shows a failure, then the interaction URL decides
// among the domain categories.
func TypeOf(ci models.ClassifiedInteraction, pd models.ParsedDiagnostic) models.CorrelationType {
	if ci.Failed() || pd.HasErrors() {
		return models.CorrelationError
	}
	url := strings.ToLower(ci.URL)
	switch {
	case strings.Contains(url, "payment"):
		return models.CorrelationPayment
	case strings.Contains(url, "checkout"):
		return models.CorrelationCheckout
	case strings.Contains(url, "inventory"), strings.Contains(url, "reservation"):
		return models.CorrelationInventory
	case strings.Contains(url, "shipping"), strings.Contains(url, "delivery"):
		return models.CorrelationShipping
	case strings.Contains(url, "tax"):
		return models.CorrelationTax
	}
	return models.CorrelationGeneral
}

// buildReasoning assembles the human-readable justification from the factors
// that contributed. Fragment order is fixed so the string is deterministic.
func buildReasoning(deltaMs int64, shared []string, id identifierHit, token, errors bool, similarity float64, aligned bool) string {
	parts := make([]string, 0, 6)
	parts = append(parts, "Occurred "+formatGap(deltaMs)+" apart")
	if len(shared) > 0 {
		parts = append(parts, "shared keywords: "+strings.Join(shared, ", "))
	}
	switch id {
	case identifierCheckout:
		parts = append(parts, "matching identifiers found")
	case identifierStore:
		parts = append(parts, "store identifier present in trace")
	}
	if token {
		parts = append(parts, "payment token appears in trace")
	}
	if errors {
		parts = append(parts, "both contain errors")
		if similarity >= 0.8 {
			parts = append(parts, "near-identical error messages")
		} else if similarity >= 0.5 {
			parts = append(parts, "similar error messages")
		}
	}
	if aligned {
		parts = append(parts, "domain activity aligns")
	}
	return strings.Join(parts, "; ")
}

func formatGap(deltaMs int64) string {
	switch {
	case deltaMs < 1000:
		return fmt.Sprintf("%dms", deltaMs)
	case deltaMs < 60_000:
		return fmt.Sprintf("%ds", deltaMs/1000)
	default:
		return fmt.Sprintf("%dm%ds", deltaMs/60_000, (deltaMs%60_000)/1000)
	}
}
