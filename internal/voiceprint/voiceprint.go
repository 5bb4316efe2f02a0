// Package voiceprint holds the voice-sample heuristics used next to passphrase
// login. The comparison is deliberately coarse: samples carry a handful of
// scalar features and matching is tolerance based. It is not a security control.
package voiceprint

import (
	"hash/fnv"
	"math"
	"strings"
	"time"
)

// Sample is a captured utterance reduced to the features the comparator reads.
type Sample struct {
	Transcript string    `json:"transcript"`
	Duration   float64   `json:"duration_seconds"`
	Pitch      float64   `json:"pitch_hz"`
	Amplitude  float64   `json:"amplitude"`
	AudioBytes int       `json:"audio_bytes"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Comparator decides whether two samples come from the same speaker.
type Comparator interface {
	Compare(a, b Sample) bool
	Confidence(a, b Sample) float64
}

// Tolerances bound the per-feature difference accepted as a match.
type Tolerances struct {
	Pitch     float64
	Amplitude float64
	Duration  float64
}

// DefaultTolerances are the strict bounds used at login.
var DefaultTolerances = Tolerances{Pitch: 6, Amplitude: 0.03, Duration: 0.2}

// confidence scoring uses slightly wider windows than matching
var confidenceWindows = Tolerances{Pitch: 8, Amplitude: 0.03, Duration: 0.2}

const confidenceScale = 0.7

// ToleranceComparator matches samples whose transcripts agree and whose
// features fall within Tolerances of each other.
type ToleranceComparator struct {
	Tolerances Tolerances
}

// NewToleranceComparator returns a comparator using DefaultTolerances.
func NewToleranceComparator() ToleranceComparator {
	return ToleranceComparator{Tolerances: DefaultTolerances}
}

// Compare reports whether a and b match.
func (c ToleranceComparator) Compare(a, b Sample) bool {
	if normalize(a.Transcript) != normalize(b.Transcript) {
		return false
	}
	if !a.HasAudio() || !b.HasAudio() {
		return false
	}
	return math.Abs(a.Pitch-b.Pitch) <= c.Tolerances.Pitch &&
		math.Abs(a.Amplitude-b.Amplitude) <= c.Tolerances.Amplitude &&
		math.Abs(a.Duration-b.Duration) <= c.Tolerances.Duration
}

// Confidence scores feature closeness in [0, 0.7].
func (c ToleranceComparator) Confidence(a, b Sample) float64 {
	pitch := score(math.Abs(a.Pitch-b.Pitch), confidenceWindows.Pitch)
	amp := score(math.Abs(a.Amplitude-b.Amplitude), confidenceWindows.Amplitude)
	dur := score(math.Abs(a.Duration-b.Duration), confidenceWindows.Duration)
	return (pitch + amp + dur) / 3 * confidenceScale
}

// HasAudio reports whether the sample looks like it came from a microphone
// rather than a fallback generator.
func (s Sample) HasAudio() bool {
	if s.AudioBytes > 0 {
		return true
	}
	return s.Pitch >= 80 && s.Pitch <= 300 && s.Amplitude >= 0.1 && s.Amplitude <= 1.0
}

// Simulate derives a stable sample from a transcript when no audio was
// captured. The same transcript always yields the same features.
func Simulate(transcript string) Sample {
	h := fnv.New64a()
	_, _ = h.Write([]byte(normalize(transcript)))
	sum := h.Sum64()

	words := len(strings.Fields(transcript))
	return Sample{
		Transcript: transcript,
		Duration:   1.0 + 0.4*float64(words),
		Pitch:      80 + float64(sum%220),
		Amplitude:  0.1 + float64((sum>>16)%90)/100,
		RecordedAt: time.Now().UTC(),
	}
}

// Disabled never matches. It lets callers switch biometrics off without
// special-casing a nil comparator.
type Disabled struct{}

// Compare always reports false.
func (Disabled) Compare(Sample, Sample) bool { return false }

// Confidence always reports zero.
func (Disabled) Confidence(Sample, Sample) float64 { return 0 }

func score(diff, window float64) float64 {
	return math.Max(0, 1-diff/window)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
