package models

// DiagnosticRecord is one raw backend execution trace as returned by the
// trace log service. StartTime is epoch milliseconds.
type DiagnosticRecord struct {
	ID         string `json:"id"`
	StartTime  int64  `json:"start_time"`
	DurationMs int64  `json:"duration_ms"`
	Operation  string `json:"operation,omitempty"`
	RawContent string `json:"raw_content"`
}

// LogEvent is a single line of interest lifted from a diagnostic body.
// Timestamp is the wall-clock prefix of the line ("HH:MM:SS.mmm") when one
// was present, otherwise empty.
type LogEvent struct {
	Timestamp string `json:"timestamp,omitempty"`
	Message   string `json:"message"`
}

// DomainEvents groups commerce-flavored log lines by the keyword that
// selected them, preserving line order within each category.
type DomainEvents struct {
	Checkout []string `json:"checkout,omitempty"`
	Payment  []string `json:"payment,omitempty"`
	Cart     []string `json:"cart,omitempty"`
}

// Empty reports whether no domain lines were found at all.
func (d DomainEvents) Empty() bool {
	return len(d.Checkout) == 0 && len(d.Payment) == 0 && len(d.Cart) == 0
}

// PerformanceSummary carries the resource counters a trace reports about its
// own execution. Zero values mean the counter never appeared.
type PerformanceSummary struct {
	Queries   int `json:"queries,omitempty"`
	Mutations int `json:"mutations,omitempty"`
	CPUTimeMs int `json:"cpu_time_ms,omitempty"`
	HeapBytes int `json:"heap_bytes,omitempty"`
}

// ParsedDiagnostic is the structured reading of one DiagnosticRecord.
// Parsing is pure extraction over RawContent: running it twice yields the
// same result, and the record itself is never modified.
type ParsedDiagnostic struct {
	DiagnosticRecord

	Errors      []LogEvent         `json:"errors,omitempty"`
	Warnings    []LogEvent         `json:"warnings,omitempty"`
	Events      DomainEvents       `json:"events"`
	Callouts    []string           `json:"callouts,omitempty"`
	ClassName   string             `json:"class_name,omitempty"`
	Actor       string             `json:"actor,omitempty"`
	Performance PerformanceSummary `json:"performance"`
}

// HasErrors reports whether any error-severity lines were extracted.
func (p ParsedDiagnostic) HasErrors() bool {
	return len(p.Errors) > 0
}
