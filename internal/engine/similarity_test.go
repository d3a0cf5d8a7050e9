package engine

import (
	"math"
	"testing"
)

func TestSimilarityIdenticalStrings(t *testing.T) {
	if s := Similarity("Invalid payment method", "Invalid payment method"); s != 1.0 {
		t.Fatalf("identical strings must score 1.0, got %v", s)
	}
	if s := Similarity("", ""); s != 1.0 {
		t.Fatalf("two empty strings are identical, got %v", s)
	}
}

func TestSimilarityDisjointEqualLength(t *testing.T) {
	if s := Similarity("abcd", "wxyz"); s != 0 {
		t.Fatalf("fully disjoint equal-length strings must score 0, got %v", s)
	}
}

func TestSimilarityEmptyAgainstContent(t *testing.T) {
	if s := Similarity("", "payment declined"); s != 0 {
		t.Fatalf("empty versus content must score 0, got %v", s)
	}
	if s := Similarity("payment declined", ""); s != 0 {
		t.Fatalf("content versus empty must score 0, got %v", s)
	}
}

func TestSimilarityEditDistances(t *testing.T) {
	cases := []struct {
		a, b string
		want float64
	}{
		// one substitution over six characters
		{"kitten", "sitten", 1 - 1.0/6},
		// classic distance 3 over the longer length 7
		{"kitten", "sitting", 1 - 3.0/7},
		// distance counted in runes, not bytes
		{"žluť", "žlut", 0.75},
	}
	for _, tc := range cases {
		got := Similarity(tc.a, tc.b)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("Similarity(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestSimilarityIsSymmetric(t *testing.T) {
	a, b := "payment gateway unavailable", "payment gateway timed out"
	if Similarity(a, b) != Similarity(b, a) {
		t.Fatalf("similarity must not depend on argument order")
	}
}
