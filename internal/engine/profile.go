package engine

import (
	"strings"
	"time"
)

// FactorCaps bounds each scoring factor's contribution to the raw score.
// Confidence is normalized against the sum of all caps, so the caps are the
// relative weights of the factors.
type FactorCaps struct {
	Temporal   float64
	Keyword    float64
	Identifier float64
	Token      float64
	Error      float64
	Similarity float64
	Event      float64
}

// Sum is the maximum attainable raw score.
func (c FactorCaps) Sum() float64 {
	return c.Temporal + c.Keyword + c.Identifier + c.Token + c.Error + c.Similarity + c.Event
}

// Profile is one correlation tuning: the pairing window, the horizon over
// which temporal proximity decays to zero, the emission threshold and the
// factor caps. The two built-ins differ in reach: coarse casts a wide net
// for exploration, strict only surfaces high-precision pairs.
type Profile struct {
	Name         string
	TimeWindow   time.Duration
	DecayHorizon time.Duration
	Threshold    float64
	Caps         FactorCaps
}

// CoarseProfile pairs generously: a two minute window and a threshold low
// enough that temporal proximity plus one corroborating signal emits.
func CoarseProfile() Profile {
	return Profile{
		Name:         "coarse",
		TimeWindow:   2 * time.Minute,
		DecayHorizon: 2 * time.Minute,
		Threshold:    0.30,
		Caps: FactorCaps{
			Temporal:   30,
			Keyword:    20,
			Identifier: 25,
			Token:      10,
			Error:      25,
			Similarity: 15,
			Event:      5,
		},
	}
}

// StrictProfile pairs conservatively: a thirty second window, an
// identifier-heavy weighting and a threshold that near-enough requires a
// verbatim identifier hit.
func StrictProfile() Profile {
	return Profile{
		Name:         "strict",
		TimeWindow:   30 * time.Second,
		DecayHorizon: 30 * time.Second,
		Threshold:    0.60,
		Caps: FactorCaps{
			Temporal:   20,
			Keyword:    10,
			Identifier: 40,
			Token:      15,
			Error:      20,
			Similarity: 15,
			Event:      5,
		},
	}
}

// ProfileByName resolves a profile name, defaulting to coarse for the empty
// string. ok is false for unknown names.
func ProfileByName(name string) (Profile, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "coarse":
		return CoarseProfile(), true
	case "strict":
		return StrictProfile(), true
	}
	return Profile{}, false
}

// With applies per-run overrides. Zero values keep the profile's defaults.
func (p Profile) With(windowMs int64, threshold float64) Profile {
	if windowMs > 0 {
		p.TimeWindow = time.Duration(windowMs) * time.Millisecond
	}
	if threshold > 0 {
		p.Threshold = threshold
	}
	return p
}
