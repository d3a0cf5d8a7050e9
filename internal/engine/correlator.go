// Package engine scores candidate links between classified interactions and
// parsed diagnostics. Scoring is pure: inputs are never mutated, and the
// same inputs always produce the same ranked output.
package engine

import (
	"log/slog"
	"strings"
	"time"

	"github.com/checkoutlens/checkout-lens/internal/diagnostic"
	"github.com/checkoutlens/checkout-lens/internal/models"
)

// domainVocabulary is the keyword set checked on both sides of a pair.
var domainVocabulary = []string{"payment", "checkout", "cart", "inventory", "tax", "shipping"}

// Correlator joins classified interactions with parsed diagnostics inside
// the profile's time window, scoring each pair against the profile's factor
// caps.
type Correlator struct {
	profile Profile
	logger  *slog.Logger
}

// NewCorrelator constructs a Correlator for the given profile.
func NewCorrelator(profile Profile, logger *slog.Logger) *Correlator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Correlator{profile: profile, logger: logger}
}

// Profile returns the active tuning.
func (c *Correlator) Profile() Profile {
	return c.profile
}

// Correlate scores every pair whose time gap fits the window and returns
// those meeting the threshold, ranked by confidence. Batch sizes are tens to
// low hundreds, so the pairwise pass stays single-threaded.
func (c *Correlator) Correlate(interactions []models.ClassifiedInteraction, diagnostics []models.ParsedDiagnostic) []models.Correlation {
	windowMs := c.profile.TimeWindow.Milliseconds()
	out := make([]models.Correlation, 0)
	scored := 0
	for _, ci := range interactions {
		for _, pd := range diagnostics {
			delta := absInt64(ci.Timestamp - pd.StartTime)
			if delta > windowMs {
				continue
			}
			scored++
			if corr, ok := c.score(ci, pd, delta); ok {
				out = append(out, corr)
			}
		}
	}
	c.logger.Debug("correlation pass complete",
		slog.Int("pairs_in_window", scored),
		slog.Int("retained", len(out)),
		slog.String("profile", c.profile.Name))
	return Rank(out)
}

func (c *Correlator) score(ci models.ClassifiedInteraction, pd models.ParsedDiagnostic, deltaMs int64) (models.Correlation, bool) {
	caps := c.profile.Caps
	factors := make([]models.FactorScore, 0, 7)
	raw := 0.0
	add := func(name string, score, cap float64) {
		score = clamp(score, 0, cap)
		if score <= 0 {
			return
		}
		factors = append(factors, models.FactorScore{Name: name, Score: score, Cap: cap})
		raw += score
	}

	add("temporal", temporalScore(deltaMs, c.profile.DecayHorizon, caps.Temporal), caps.Temporal)

	shared := sharedKeywords(ci, pd)
	// Half the cap per keyword hit; two shared keywords saturate the factor.
	add("keyword", float64(len(shared))*caps.Keyword/2, caps.Keyword)

	id := identifierMatch(ci, pd)
	switch id {
	case identifierCheckout:
		add("identifier", caps.Identifier, caps.Identifier)
	case identifierStore:
		add("identifier", 0.6*caps.Identifier, caps.Identifier)
	}

	token := tokenMatch(ci, pd)
	if token {
		add("token", caps.Token, caps.Token)
	}

	errorsCoOccur := ci.Failed() && pd.HasErrors()
	bestSim := 0.0
	if errorsCoOccur {
		add("error", caps.Error, caps.Error)
		bestSim = bestErrorSimilarity(ci, pd)
		add("similarity", bestSim*caps.Similarity, caps.Similarity)
	}

	aligned := eventAlignment(ci, pd)
	if aligned {
		add("event", caps.Event, caps.Event)
	}

	confidence := raw / caps.Sum()
	if confidence > 1 {
		confidence = 1
	}
	if confidence < c.profile.Threshold {
		return models.Correlation{}, false
	}

	return models.Correlation{
		InteractionID:    ci.ID,
		DiagnosticID:     pd.ID,
		Confidence:       confidence,
		Type:             TypeOf(ci, pd),
		TimeDifferenceMs: deltaMs,
		Factors:          factors,
		Reasoning:        buildReasoning(deltaMs, shared, id, token, errorsCoOccur, bestSim, aligned),
	}, true
}

// temporalScore decays linearly from the full cap at zero gap to nothing at
// the horizon.
func temporalScore(deltaMs int64, horizon time.Duration, cap float64) float64 {
	h := horizon.Milliseconds()
	if h <= 0 || deltaMs >= h {
		return 0
	}
	return cap * (1 - float64(deltaMs)/float64(h))
}

func sharedKeywords(ci models.ClassifiedInteraction, pd models.ParsedDiagnostic) []string {
	interactionSide := strings.ToLower(ci.URL + " " + string(ci.RequestBody) + " " + string(ci.ResponseBody))
	diagnosticSide := strings.ToLower(pd.Operation + " " + pd.RawContent)
	shared := make([]string, 0, len(domainVocabulary))
	for _, kw := range domainVocabulary {
		if strings.Contains(interactionSide, kw) && strings.Contains(diagnosticSide, kw) {
			shared = append(shared, kw)
		}
	}
	return shared
}

type identifierHit int

const (
	identifierNone identifierHit = iota
	identifierStore
	identifierCheckout
)

// identifierMatch looks for the interaction's checkout or store identifier
// verbatim in the trace. The checkout identifier is the stronger signal:
// store identifiers recur across every session against the same storefront.
func identifierMatch(ci models.ClassifiedInteraction, pd models.ParsedDiagnostic) identifierHit {
	if id, ok := models.ExtractCheckoutID(ci.Interaction); ok && strings.Contains(pd.RawContent, id) {
		return identifierCheckout
	}
	if id, ok := models.ExtractStoreID(ci.Interaction); ok && strings.Contains(pd.RawContent, id) {
		return identifierStore
	}
	return identifierNone
}

func tokenMatch(ci models.ClassifiedInteraction, pd models.ParsedDiagnostic) bool {
	token, ok := models.ExtractPaymentToken(ci.Interaction)
	return ok && strings.Contains(pd.RawContent, token)
}

// bestErrorSimilarity compares the interaction's error messages against the
// exception text of each trace error. Trace events carry whole log lines, so
// the framing is stripped before measuring.
func bestErrorSimilarity(ci models.ClassifiedInteraction, pd models.ParsedDiagnostic) float64 {
	best := 0.0
	for _, msg := range models.ErrorMessages(ci.Interaction) {
		for _, ev := range pd.Errors {
			if s := Similarity(msg, diagnostic.ErrorText(ev.Message)); s > best {
				best = s
			}
		}
	}
	return best
}

// eventAlignment is true when the trace's domain-event lines cover the
// category the interaction URL itself suggests.
func eventAlignment(ci models.ClassifiedInteraction, pd models.ParsedDiagnostic) bool {
	url := strings.ToLower(ci.URL)
	switch {
	case strings.Contains(url, "payment"):
		return len(pd.Events.Payment) > 0
	case strings.Contains(url, "cart"):
		return len(pd.Events.Cart) > 0
	case strings.Contains(url, "checkout"):
		return len(pd.Events.Checkout) > 0
	}
	return false
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
