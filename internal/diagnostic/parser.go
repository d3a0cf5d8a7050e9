// Package diagnostic turns raw backend execution traces into structured
// readings. Parsing is line oriented and purely extractive: malformed lines
// are skipped, nothing ever fails, and reparsing a record yields the same
// result.
package diagnostic

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/checkoutlens/checkout-lens/internal/models"
)

var (
	lineTimePattern = regexp.MustCompile(`\d{2}:\d{2}:\d{2}\.\d{3}`)
	classRefPattern = regexp.MustCompile(`apex://([A-Za-z0-9_.]+)/`)
	emailPattern    = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	integerPattern  = regexp.MustCompile(`\d+`)
)

var (
	errorMarkers   = []string{"FATAL_ERROR", "EXCEPTION_THROWN", "|ERROR|", "ERROR:"}
	warnMarkers    = []string{"WARN"}
	calloutMarkers = []string{"CALLOUT_REQUEST", "CALLOUT_RESPONSE"}
)

// Parse reads one diagnostic record. ok is false when the record carries no
// content; the record itself is never modified.
func Parse(rec models.DiagnosticRecord) (models.ParsedDiagnostic, bool) {
	out := models.ParsedDiagnostic{DiagnosticRecord: rec}
	if strings.TrimSpace(rec.RawContent) == "" {
		return out, false
	}

	for _, line := range strings.Split(rec.RawContent, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		ts := lineTimePattern.FindString(trimmed)

		// Error events keep the whole line; downstream consumers that want
		// only the exception text strip the framing with ErrorText.
		if hasMarker(trimmed, errorMarkers) {
			out.Errors = append(out.Errors, models.LogEvent{Timestamp: ts, Message: trimmed})
		} else if msg, ok := afterMarker(trimmed, warnMarkers); ok {
			out.Warnings = append(out.Warnings, models.LogEvent{Timestamp: ts, Message: msg})
		}
		if msg, ok := afterMarker(trimmed, calloutMarkers); ok {
			out.Callouts = append(out.Callouts, msg)
		}

		lower := strings.ToLower(trimmed)
		if strings.Contains(lower, "checkout") {
			out.Events.Checkout = append(out.Events.Checkout, trimmed)
		}
		if strings.Contains(lower, "payment") {
			out.Events.Payment = append(out.Events.Payment, trimmed)
		}
		if strings.Contains(lower, "cart") {
			out.Events.Cart = append(out.Events.Cart, trimmed)
		}

		// Usage counters are cumulative and may be reported per namespace;
		// the largest figure seen is the run's final total.
		if n, ok := counterValue(trimmed, "Number of SOQL queries"); ok && n > out.Performance.Queries {
			out.Performance.Queries = n
		}
		if n, ok := counterValue(trimmed, "Number of DML statements"); ok && n > out.Performance.Mutations {
			out.Performance.Mutations = n
		}
		if n, ok := counterValue(trimmed, "Maximum CPU time"); ok && n > out.Performance.CPUTimeMs {
			out.Performance.CPUTimeMs = n
		}
		if n, ok := counterValue(trimmed, "Maximum heap size"); ok && n > out.Performance.HeapBytes {
			out.Performance.HeapBytes = n
		}

		if out.ClassName == "" {
			if m := classRefPattern.FindStringSubmatch(trimmed); m != nil {
				out.ClassName = m[1]
			}
		}
		if out.Actor == "" && strings.Contains(trimmed, "USER_INFO") {
			if email := emailPattern.FindString(trimmed); email != "" {
				out.Actor = email
			}
		}
	}
	return out, true
}

// ParseAll parses a batch, dropping records with empty content.
func ParseAll(recs []models.DiagnosticRecord) []models.ParsedDiagnostic {
	out := make([]models.ParsedDiagnostic, 0, len(recs))
	for _, rec := range recs {
		parsed, ok := Parse(rec)
		if !ok {
			continue
		}
		out = append(out, parsed)
	}
	return out
}

// ErrorText strips the log framing from an error line, returning the text
// after the first error marker. Lines without a marker pass through intact.
func ErrorText(line string) string {
	if msg, ok := afterMarker(line, errorMarkers); ok {
		return msg
	}
	return line
}

func hasMarker(line string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(line, marker) {
			return true
		}
	}
	return false
}

// afterMarker returns the line content following the first marker hit, with
// leading separators stripped. A marker with nothing after it yields the
// whole line so no event is ever empty.
func afterMarker(line string, markers []string) (string, bool) {
	for _, marker := range markers {
		idx := strings.Index(line, marker)
		if idx < 0 {
			continue
		}
		rest := strings.TrimLeft(line[idx+len(marker):], "|: \t")
		rest = strings.TrimSpace(rest)
		if rest == "" {
			rest = line
		}
		return rest, true
	}
	return "", false
}

func counterValue(line, marker string) (int, bool) {
	idx := strings.Index(line, marker)
	if idx < 0 {
		return 0, false
	}
	m := integerPattern.FindString(line[idx+len(marker):])
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}
