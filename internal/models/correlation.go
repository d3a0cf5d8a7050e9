package models

// CorrelationType names the dominant flavor of a matched pair. Precedence
// when several apply: error, payment, checkout, inventory, shipping, tax,
// then general.
type CorrelationType string

const (
	CorrelationError     CorrelationType = "error"
	CorrelationPayment   CorrelationType = "payment"
	CorrelationCheckout  CorrelationType = "checkout"
	CorrelationInventory CorrelationType = "inventory"
	CorrelationShipping  CorrelationType = "shipping"
	CorrelationTax       CorrelationType = "tax"
	CorrelationGeneral   CorrelationType = "general"
)

// FactorScore is one scoring factor's contribution to a correlation.
// Score is already clamped to [0, Cap].
type FactorScore struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
	Cap   float64 `json:"cap"`
}

// Correlation links a frontend interaction to a backend diagnostic that
// plausibly explains it. Confidence is normalized to [0,1] against the sum
// of factor caps; TimeDifferenceMs is the absolute gap between the two
// timestamps.
type Correlation struct {
	InteractionID    string          `json:"interaction_id"`
	DiagnosticID     string          `json:"diagnostic_id"`
	Confidence       float64         `json:"confidence"`
	Type             CorrelationType `json:"type"`
	TimeDifferenceMs int64           `json:"time_difference_ms"`
	Factors          []FactorScore   `json:"factors,omitempty"`
	Reasoning        string          `json:"reasoning"`
}

// Hotspot aggregates correlations that share a checkout stage and
// correlation type, surfacing where a session's flow keeps breaking.
type Hotspot struct {
	Stage          string          `json:"stage"`
	Type           CorrelationType `json:"type"`
	Count          int             `json:"count"`
	Prevalence     float64         `json:"prevalence"`
	MeanConfidence float64         `json:"mean_confidence"`
	Examples       []string        `json:"examples,omitempty"`
}
