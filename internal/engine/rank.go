package engine

import (
	"sort"

	"github.com/checkoutlens/checkout-lens/internal/models"
)

// Rank orders correlations by confidence descending, breaking ties by the
// smaller time gap and finally by identifiers so the order is fully
// deterministic. The input is left untouched; presentation layers can
// re-rank or paginate the copy freely.
func Rank(correlations []models.Correlation) []models.Correlation {
	out := make([]models.Correlation, len(correlations))
	copy(out, correlations)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		if out[i].TimeDifferenceMs != out[j].TimeDifferenceMs {
			return out[i].TimeDifferenceMs < out[j].TimeDifferenceMs
		}
		if out[i].InteractionID != out[j].InteractionID {
			return out[i].InteractionID < out[j].InteractionID
		}
		return out[i].DiagnosticID < out[j].DiagnosticID
	})
	return out
}
