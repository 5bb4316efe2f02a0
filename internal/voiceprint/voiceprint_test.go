package voiceprint

import (
	"math"
	"testing"
)

func TestCompareWithinTolerance(t *testing.T) {
	c := NewToleranceComparator()
	a := Sample{Transcript: "Open Sesame", Pitch: 150, Amplitude: 0.5, Duration: 1.5}
	b := Sample{Transcript: " open sesame ", Pitch: 154, Amplitude: 0.52, Duration: 1.6}
	if !c.Compare(a, b) {
		t.Fatal("expected samples to match")
	}
}

func TestCompareRejectsDifferentTranscript(t *testing.T) {
	c := NewToleranceComparator()
	a := Sample{Transcript: "open sesame", Pitch: 150, Amplitude: 0.5, Duration: 1.5}
	b := a
	b.Transcript = "open barley"
	if c.Compare(a, b) {
		t.Fatal("expected transcript mismatch to fail")
	}
}

func TestCompareRejectsFallbackFeatures(t *testing.T) {
	c := NewToleranceComparator()
	a := Sample{Transcript: "hello", Pitch: 20, Amplitude: 0.01, Duration: 1}
	if c.Compare(a, a) {
		t.Fatal("expected sample without audio to be rejected")
	}
}

func TestComparePitchOutsideTolerance(t *testing.T) {
	c := NewToleranceComparator()
	a := Sample{Transcript: "hello", Pitch: 150, Amplitude: 0.5, Duration: 1}
	b := a
	b.Pitch = 160
	if c.Compare(a, b) {
		t.Fatal("expected pitch difference of 10Hz to fail")
	}
}

func TestConfidence(t *testing.T) {
	c := NewToleranceComparator()
	a := Sample{Transcript: "hello", Pitch: 150, Amplitude: 0.5, Duration: 1}
	if got := c.Confidence(a, a); math.Abs(got-0.7) > 1e-9 {
		t.Fatalf("expected identical samples to score 0.7, got %f", got)
	}
	b := Sample{Transcript: "hello", Pitch: 300, Amplitude: 0.9, Duration: 3}
	if got := c.Confidence(a, b); got != 0 {
		t.Fatalf("expected distant samples to score 0, got %f", got)
	}
}

func TestSimulateIsStable(t *testing.T) {
	a := Simulate("my voice is my password")
	b := Simulate("My voice is my password")
	if a.Pitch != b.Pitch || a.Amplitude != b.Amplitude || a.Duration != b.Duration {
		t.Fatalf("expected stable features, got %+v and %+v", a, b)
	}
	if !a.HasAudio() {
		t.Fatalf("expected simulated features inside the audio range, got %+v", a)
	}
	if !NewToleranceComparator().Compare(a, b) {
		t.Fatal("expected simulated samples of one phrase to match")
	}
}

func TestDisabled(t *testing.T) {
	var c Comparator = Disabled{}
	s := Simulate("hi")
	if c.Compare(s, s) || c.Confidence(s, s) != 0 {
		t.Fatal("expected disabled comparator to never match")
	}
}
