package models

import "encoding/json"

// RuleUnclassified tags interactions that matched no classification rule.
const RuleUnclassified = "unclassified"

// Interaction is one observed request/response exchange handed over by the
// capture collaborator. Timestamp is epoch milliseconds, assigned once at
// observation time and never mutated.
type Interaction struct {
	ID           string          `json:"id"`
	Timestamp    int64           `json:"timestamp"`
	Method       string          `json:"method"`
	URL          string          `json:"url"`
	StatusCode   int             `json:"status_code"`
	RequestBody  json.RawMessage `json:"request_body,omitempty"`
	ResponseBody json.RawMessage `json:"response_body,omitempty"`
	DurationMs   int64           `json:"duration_ms"`
}

// Failed reports whether the exchange ended in an HTTP error status.
func (i Interaction) Failed() bool {
	return i.StatusCode >= 400
}

// ClassifiedInteraction is an Interaction plus the outcome of classification.
// At most one rule's extractors and validators are ever applied (the single
// highest-priority match).
type ClassifiedInteraction struct {
	Interaction

	MatchedRule string          `json:"matched_rule"`
	StageLabel  string          `json:"stage_label"`
	Extracted   map[string]any  `json:"extracted,omitempty"`
	Validations map[string]bool `json:"validations,omitempty"`
}

// Unclassified reports whether no rule matched the interaction.
func (c ClassifiedInteraction) Unclassified() bool {
	return c.MatchedRule == RuleUnclassified
}
