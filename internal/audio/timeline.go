package audio

import (
	"math"
	"unicode"
)

// Span is one segment's slice of the briefing timeline, in seconds.
type Span struct {
	Start float64
	End   float64
}

// CountSpokenChars counts the non-whitespace runes in a script segment.
// Whitespace carries no speaking time, so it is excluded from the weights.
func CountSpokenChars(text string) int {
	count := 0
	for _, r := range text {
		if !unicode.IsSpace(r) {
			count++
		}
	}
	return count
}

// AllocateTimeline splits a total duration across segments proportionally to
// their character weights. Boundaries are cumulative so each span starts
// exactly where the previous one ends, and the final span ends at the total.
// All values are rounded to two decimals.
func AllocateTimeline(totalSeconds float64, weights []int) []Span {
	if len(weights) == 0 {
		return nil
	}

	totalWeight := 0
	for _, w := range weights {
		if w > 0 {
			totalWeight += w
		}
	}

	spans := make([]Span, len(weights))
	if totalWeight == 0 || totalSeconds <= 0 {
		for i := range spans {
			spans[i] = Span{}
		}
		return spans
	}

	cumulative := 0
	previousEnd := 0.0
	for i, w := range weights {
		if w > 0 {
			cumulative += w
		}
		end := round2(totalSeconds * float64(cumulative) / float64(totalWeight))
		spans[i] = Span{Start: previousEnd, End: end}
		previousEnd = end
	}
	spans[len(spans)-1].End = round2(totalSeconds)
	return spans
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
