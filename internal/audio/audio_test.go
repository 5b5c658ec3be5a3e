package audio_test

import (
	"math"
	"testing"
	"time"

	"github.com/team-leekim/newsnack-ai/internal/audio"
)

func TestPCMToWAVRoundTripDuration(t *testing.T) {
	const sampleRate = 24000
	// One second of silence: sampleRate samples at 2 bytes each.
	pcm := make([]byte, sampleRate*2)

	data, err := audio.PCMToWAV(pcm, sampleRate)
	if err != nil {
		t.Fatalf("PCMToWAV failed: %v", err)
	}
	if !audio.IsWAV(data) {
		t.Fatal("expected wav header")
	}

	duration, err := audio.Duration(data)
	if err != nil {
		t.Fatalf("Duration failed: %v", err)
	}
	if diff := duration - time.Second; diff < -10*time.Millisecond || diff > 10*time.Millisecond {
		t.Fatalf("expected ~1s, got %s", duration)
	}
}

func TestPCMToWAVRejectsEmptyPayload(t *testing.T) {
	if _, err := audio.PCMToWAV(nil, 24000); err == nil {
		t.Fatal("expected error for empty payload")
	}
	if _, err := audio.PCMToWAV([]byte{0, 0}, 0); err == nil {
		t.Fatal("expected error for invalid sample rate")
	}
}

func TestDurationRejectsNonWAV(t *testing.T) {
	if _, err := audio.Duration([]byte("not audio at all")); err == nil {
		t.Fatal("expected error for non-wav payload")
	}
}

func TestCountSpokenCharsIgnoresWhitespace(t *testing.T) {
	if got := audio.CountSpokenChars("ab  c\n\td "); got != 4 {
		t.Fatalf("expected 4 spoken chars, got %d", got)
	}
	if got := audio.CountSpokenChars("   \n"); got != 0 {
		t.Fatalf("expected 0 spoken chars, got %d", got)
	}
}

func TestAllocateTimelineSumLaw(t *testing.T) {
	total := 123.456
	weights := []int{37, 113, 59, 7}

	spans := audio.AllocateTimeline(total, weights)
	if len(spans) != len(weights) {
		t.Fatalf("expected %d spans, got %d", len(weights), len(spans))
	}
	if spans[0].Start != 0 {
		t.Fatalf("expected first span to start at 0, got %v", spans[0].Start)
	}
	for i := 1; i < len(spans); i++ {
		if spans[i].Start != spans[i-1].End {
			t.Fatalf("span %d starts at %v but previous ends at %v", i, spans[i].Start, spans[i-1].End)
		}
	}
	wantEnd := math.Round(total*100) / 100
	if spans[len(spans)-1].End != wantEnd {
		t.Fatalf("expected final end %v, got %v", wantEnd, spans[len(spans)-1].End)
	}
	for i, span := range spans {
		if span.End < span.Start {
			t.Fatalf("span %d is inverted: %+v", i, span)
		}
		if span.Start != math.Round(span.Start*100)/100 || span.End != math.Round(span.End*100)/100 {
			t.Fatalf("span %d not rounded to 2dp: %+v", i, span)
		}
	}
}

func TestAllocateTimelineProportionalToWeights(t *testing.T) {
	spans := audio.AllocateTimeline(100, []int{1, 3})
	if spans[0].End != 25 {
		t.Fatalf("expected first span to end at 25, got %v", spans[0].End)
	}
	if spans[1].Start != 25 || spans[1].End != 100 {
		t.Fatalf("unexpected second span: %+v", spans[1])
	}
}

func TestAllocateTimelineDegenerateInputs(t *testing.T) {
	if spans := audio.AllocateTimeline(10, nil); spans != nil {
		t.Fatalf("expected nil for empty weights, got %v", spans)
	}
	spans := audio.AllocateTimeline(10, []int{0, 0})
	for i, span := range spans {
		if span.Start != 0 || span.End != 0 {
			t.Fatalf("span %d: expected zero span for zero weights, got %+v", i, span)
		}
	}
}
