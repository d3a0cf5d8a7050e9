// Package insights aggregates correlation output into recurring-failure
// summaries ("where does this session's checkout keep breaking"). It is a
// pure post-processing step over the ranked correlations.
package insights

import (
	"sort"

	"github.com/checkoutlens/checkout-lens/internal/models"
)

const maxExamplesPerHotspot = 3

// Summarize groups correlations by the interaction's classified stage and
// the correlation type, computing per-group prevalence and mean confidence.
// Output is ordered by prevalence descending, ties broken by confidence and
// then by stage/type for determinism.
func Summarize(correlations []models.Correlation, classified []models.ClassifiedInteraction) []models.Hotspot {
	if len(correlations) == 0 {
		return nil
	}

	stageByInteraction := make(map[string]string, len(classified))
	for _, ci := range classified {
		stageByInteraction[ci.ID] = stageFor(ci)
	}

	type aggregate struct {
		stage      string
		typ        models.CorrelationType
		count      int
		confidence float64
		examples   []string
	}
	groups := make(map[string]*aggregate)
	order := make([]string, 0)

	for _, corr := range correlations {
		stage := stageByInteraction[corr.InteractionID]
		if stage == "" {
			stage = models.RuleUnclassified
		}
		key := stage + "\x00" + string(corr.Type)
		agg, ok := groups[key]
		if !ok {
			agg = &aggregate{stage: stage, typ: corr.Type}
			groups[key] = agg
			order = append(order, key)
		}
		agg.count++
		agg.confidence += corr.Confidence
		if len(agg.examples) < maxExamplesPerHotspot {
			agg.examples = append(agg.examples, corr.InteractionID+"/"+corr.DiagnosticID)
		}
	}

	out := make([]models.Hotspot, 0, len(order))
	total := float64(len(correlations))
	for _, key := range order {
		agg := groups[key]
		out = append(out, models.Hotspot{
			Stage:          agg.stage,
			Type:           agg.typ,
			Count:          agg.count,
			Prevalence:     float64(agg.count) / total,
			MeanConfidence: agg.confidence / float64(agg.count),
			Examples:       agg.examples,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Prevalence != out[j].Prevalence {
			return out[i].Prevalence > out[j].Prevalence
		}
		if out[i].MeanConfidence != out[j].MeanConfidence {
			return out[i].MeanConfidence > out[j].MeanConfidence
		}
		if out[i].Stage != out[j].Stage {
			return out[i].Stage < out[j].Stage
		}
		return out[i].Type < out[j].Type
	})
	return out
}

func stageFor(ci models.ClassifiedInteraction) string {
	if ci.Unclassified() || ci.StageLabel == "" {
		return models.RuleUnclassified
	}
	return ci.StageLabel
}
