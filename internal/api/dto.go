package api

import (
	"fmt"

	"github.com/checkoutlens/checkout-lens/internal/engine"
	"github.com/checkoutlens/checkout-lens/internal/models"
	"github.com/checkoutlens/checkout-lens/internal/rules"
)

// errorBody is the JSON error envelope all handlers use.
type errorBody struct {
	Error string `json:"error"`
}

// classifyRequest carries a classification-only call.
type classifyRequest struct {
	Interactions []models.Interaction `json:"interactions"`
}

// parseRequest carries a parse-only call.
type parseRequest struct {
	Diagnostics []models.DiagnosticRecord `json:"diagnostics"`
}

// feedbackBody is the request body for feedback submission; the analysis ID
// comes from the URL.
type feedbackBody struct {
	CorrelationKey string `json:"correlation_key,omitempty"`
	Correct        bool   `json:"correct"`
	Notes          string `json:"notes,omitempty"`
}

// ruleSummary is the read-only registry listing. Predicates, extractors and
// validators are reported by catalog name.
type ruleSummary struct {
	Name        string   `json:"name"`
	StageLabel  string   `json:"stage_label"`
	Priority    int      `json:"priority"`
	URLPatterns []string `json:"url_patterns,omitempty"`
	Methods     []string `json:"methods"`
	Predicates  []string `json:"predicates,omitempty"`
	Extractors  []string `json:"extractors,omitempty"`
	Validators  []string `json:"validators,omitempty"`
}

// analysisDetail pairs a stored result with its feedback for the detail
// endpoint.
type analysisDetail struct {
	models.AnalysisResult

	Feedback []models.Feedback `json:"feedback,omitempty"`
}

// validateAnalysisRequest rejects requests the engine cannot act on. The
// goal is a clear 400 instead of an empty 200: anything that passes here is
// guaranteed to produce a result.
func validateAnalysisRequest(req models.AnalysisRequest) error {
	if len(req.Interactions) == 0 {
		return fmt.Errorf("interactions are required")
	}
	if err := validateInteractions(req.Interactions); err != nil {
		return err
	}
	if req.Options.Profile != "" {
		if _, ok := engine.ProfileByName(req.Options.Profile); !ok {
			return fmt.Errorf("unknown profile %q", req.Options.Profile)
		}
	}
	if req.Options.WindowMs < 0 {
		return fmt.Errorf("window_ms must not be negative")
	}
	if req.Options.Threshold < 0 || req.Options.Threshold > 1 {
		return fmt.Errorf("threshold must be within [0,1]")
	}
	if req.FetchWindow != nil && req.FetchWindow.EndMs <= req.FetchWindow.StartMs {
		return fmt.Errorf("fetch_window end_ms must be after start_ms")
	}
	return nil
}

func validateInteractions(interactions []models.Interaction) error {
	for i, interaction := range interactions {
		if interaction.ID == "" {
			return fmt.Errorf("interactions[%d]: id is required", i)
		}
		if interaction.Method == "" {
			return fmt.Errorf("interactions[%d]: method is required", i)
		}
		if interaction.URL == "" {
			return fmt.Errorf("interactions[%d]: url is required", i)
		}
		if interaction.Timestamp <= 0 {
			return fmt.Errorf("interactions[%d]: timestamp must be positive epoch milliseconds", i)
		}
	}
	return nil
}

func toRuleSummaries(all []rules.Rule) []ruleSummary {
	out := make([]ruleSummary, 0, len(all))
	for _, rule := range all {
		out = append(out, ruleSummary{
			Name:        rule.Name,
			StageLabel:  rule.StageLabel,
			Priority:    rule.Priority,
			URLPatterns: rule.URLPatterns,
			Methods:     rule.Methods,
			Predicates:  namesOfPredicates(rule.Predicates),
			Extractors:  namesOfExtractors(rule.Extractors),
			Validators:  namesOfValidators(rule.Validators),
		})
	}
	return out
}

func namesOfPredicates(items []rules.Predicate) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Name)
	}
	return out
}

func namesOfExtractors(items []rules.Extractor) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Name)
	}
	return out
}

func namesOfValidators(items []rules.Validator) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Name)
	}
	return out
}
