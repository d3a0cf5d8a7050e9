package models

// EngineOptions tunes one analysis run. Zero values fall back to the
// selected profile's defaults.
type EngineOptions struct {
	Profile   string  `json:"profile,omitempty"`
	WindowMs  int64   `json:"window_ms,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
}

// FetchWindow asks the trace log service for diagnostics around the observed
// interactions. Both bounds are epoch milliseconds; Limit caps the number of
// records returned.
type FetchWindow struct {
	StartMs int64 `json:"start_ms"`
	EndMs   int64 `json:"end_ms"`
	Limit   int   `json:"limit,omitempty"`
}

// AnalysisRequest is one end-to-end diagnosis call: classify the supplied
// interactions, parse the inline (or fetched) diagnostics, correlate, rank.
type AnalysisRequest struct {
	SessionID    string             `json:"session_id,omitempty"`
	Interactions []Interaction      `json:"interactions"`
	Diagnostics  []DiagnosticRecord `json:"diagnostics,omitempty"`
	FetchWindow  *FetchWindow       `json:"fetch_window,omitempty"`
	Options      EngineOptions      `json:"options,omitempty"`
}

// AnalysisStats summarizes the volume side of a run. CandidatePairs counts
// every interaction x diagnostic combination the correlator saw.
type AnalysisStats struct {
	Interactions   int `json:"interactions"`
	Classified     int `json:"classified"`
	Unclassified   int `json:"unclassified"`
	Failures       int `json:"failures"`
	Diagnostics    int `json:"diagnostics"`
	CandidatePairs int `json:"candidate_pairs"`
	Correlations   int `json:"correlations"`
}

// AnalysisResult is the full outcome of one analysis run. CreatedAt is epoch
// milliseconds.
type AnalysisResult struct {
	AnalysisID   string                  `json:"analysis_id"`
	SessionID    string                  `json:"session_id,omitempty"`
	Profile      string                  `json:"profile"`
	CreatedAt    int64                   `json:"created_at"`
	Interactions []ClassifiedInteraction `json:"interactions"`
	Correlations []Correlation           `json:"correlations"`
	Hotspots     []Hotspot               `json:"hotspots,omitempty"`
	Stats        AnalysisStats           `json:"stats"`
	DurationMs   int64                   `json:"duration_ms"`
}

// Feedback records an operator's verdict on one correlation inside a stored
// analysis. CorrelationKey is "<interaction_id>/<diagnostic_id>"; empty means
// the verdict covers the analysis as a whole. SubmittedAt is epoch ms.
type Feedback struct {
	AnalysisID     string `json:"analysis_id"`
	CorrelationKey string `json:"correlation_key,omitempty"`
	Correct        bool   `json:"correct"`
	Notes          string `json:"notes,omitempty"`
	SubmittedAt    int64  `json:"submitted_at"`
}
