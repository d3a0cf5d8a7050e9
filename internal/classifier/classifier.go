// Package classifier assigns observed interactions to checkout stages using
// the rule registry. Classification is deterministic and side-effect free:
// the same interaction and registry always produce the same result.
package classifier

import (
	"strings"

	"github.com/checkoutlens/checkout-lens/internal/models"
	"github.com/checkoutlens/checkout-lens/internal/rules"
)

// Classify finds the single highest-priority matching rule and applies that
// rule's extractors and validators. Equal priorities resolve to the earlier
// registration. When nothing matches, the result carries
// models.RuleUnclassified and no extractor or validator runs.
func Classify(i models.Interaction, reg *rules.Registry) models.ClassifiedInteraction {
	return classifyWith(reg.All(), i)
}

// ClassifyAll classifies a batch, preserving input order.
func ClassifyAll(batch []models.Interaction, reg *rules.Registry) []models.ClassifiedInteraction {
	ordered := reg.All()
	out := make([]models.ClassifiedInteraction, len(batch))
	for idx, i := range batch {
		out[idx] = classifyWith(ordered, i)
	}
	return out
}

func classifyWith(ordered []rules.Rule, i models.Interaction) models.ClassifiedInteraction {
	out := models.ClassifiedInteraction{
		Interaction: i,
		MatchedRule: models.RuleUnclassified,
	}

	var winner rules.Rule
	found := false
	for _, rule := range ordered {
		if !matches(rule, i) {
			continue
		}
		// Strict > keeps the first registration ahead on priority ties.
		if !found || rule.Priority > winner.Priority {
			winner = rule
			found = true
		}
	}
	if !found {
		return out
	}

	out.MatchedRule = winner.Name
	out.StageLabel = winner.StageLabel
	out.Extracted = applyExtractors(winner.Extractors, i)
	out.Validations = applyValidators(winner.Validators, i)
	return out
}

// matches evaluates the rule against the interaction: either URL, method and
// payload all agree, or the rule carries predicates and those plus the
// method agree regardless of URL. A strong payload signal can stand in for
// the URL, but the method always has to match.
func matches(rule rules.Rule, i models.Interaction) bool {
	if !methodAllowed(rule.Methods, i.Method) {
		return false
	}
	payload := payloadMatches(rule.Predicates, i)
	if payload && urlMatches(rule.URLPatterns, i.URL) {
		return true
	}
	return payload && len(rule.Predicates) > 0
}

func methodAllowed(methods []string, method string) bool {
	m := strings.ToUpper(strings.TrimSpace(method))
	for _, allowed := range methods {
		if allowed == m {
			return true
		}
	}
	return false
}

func urlMatches(patterns []string, url string) bool {
	lower := strings.ToLower(url)
	for _, p := range patterns {
		if p == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// payloadMatches is true when any declared predicate passes; rules without
// predicates match on payload by default.
func payloadMatches(preds []rules.Predicate, i models.Interaction) bool {
	if len(preds) == 0 {
		return true
	}
	for _, p := range preds {
		if ok, valid := safeBool(p.Match, i); valid && ok {
			return true
		}
	}
	return false
}

func applyExtractors(extractors []rules.Extractor, i models.Interaction) map[string]any {
	if len(extractors) == 0 {
		return nil
	}
	out := make(map[string]any, len(extractors))
	for _, e := range extractors {
		if value, ok := safeExtract(e.Extract, i); ok {
			out[e.Name] = value
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// applyValidators records each validator's verdict. A panicking validator
// yields no entry at all, mirroring how failed extractors are handled.
func applyValidators(validators []rules.Validator, i models.Interaction) map[string]bool {
	if len(validators) == 0 {
		return nil
	}
	out := make(map[string]bool, len(validators))
	for _, v := range validators {
		if result, valid := safeBool(v.Validate, i); valid {
			out[v.Name] = result
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// safeExtract contains extractor panics; a panicking extractor contributes
// no field.
func safeExtract(fn func(models.Interaction) (any, bool), i models.Interaction) (value any, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			value, ok = nil, false
		}
	}()
	return fn(i)
}

// safeBool contains predicate/validator panics; valid is false when the
// function did not run to completion.
func safeBool(fn func(models.Interaction) bool, i models.Interaction) (result, valid bool) {
	defer func() {
		if r := recover(); r != nil {
			result, valid = false, false
		}
	}()
	return fn(i), true
}
