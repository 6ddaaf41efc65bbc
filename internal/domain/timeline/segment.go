// Package timeline builds and resolves the edit timeline: an ordered,
// gapless sequence of speech and silence segments covering the whole source,
// and the keep-ranges that survive once segments are marked for removal.
//
// Silence segments always store their FULL bounds. The edge buffer is applied
// only when resolving keep-ranges, so re-tuning the buffer never requires
// re-analysing the audio.
package timeline

import "math"

// Segment is one atomic timeline unit: a TextSegment or a Silence.
// The interface is sealed so a type switch over the two variants is
// exhaustive.
type Segment interface {
	// Bounds returns the segment's start and end in source seconds.
	Bounds() (start, end float64)

	seg()
}

// TextSegment is a speech unit: a whisper word or an FCPXML caption phrase.
type TextSegment struct {
	Text  string
	Start float64
	End   float64
}

func (t TextSegment) Bounds() (float64, float64) { return t.Start, t.End }

func (t TextSegment) Duration() float64 { return t.End - t.Start }

func (TextSegment) seg() {}

// Silence is a gap with no attributed speech.
//
// Detected reports whether the gap was independently confirmed by the level
// detector to be below the threshold. A soft gap (Detected=false) is merely
// the space between two speech units; the audio there may not be silent.
type Silence struct {
	Start    float64
	End      float64
	Detected bool
}

func (s Silence) Bounds() (float64, float64) { return s.Start, s.End }

func (s Silence) Duration() float64 { return s.End - s.Start }

func (Silence) seg() {}

// DeletableRange returns the portion of the silence that is actually removed
// when the silence is deleted: the bounds shrunk inward by buffer on each
// side. ok is false when the silence is too short to survive the buffer —
// anything under 2*buffer+1ms is never deletable, regardless of selection.
func (s Silence) DeletableRange(buffer float64) (Range, bool) {
	innerStart := s.Start + buffer
	innerEnd := s.End - buffer
	if innerEnd <= innerStart+0.001 {
		return Range{}, false
	}
	return Range{Start: round4(innerStart), End: round4(innerEnd)}, true
}

// Range is a half-open-ish [Start, End] interval in source seconds. Keep and
// delete intervals are both expressed as Ranges.
type Range struct {
	Start float64
	End   float64
}

func (r Range) Duration() float64 { return r.End - r.Start }

// Settings holds the silence-detection parameters that the session can edit
// live. Buffer is the number of seconds preserved at each edge of a deleted
// silence.
type Settings struct {
	ThresholdDB float64
	MinDuration float64
	Buffer      float64
}

// NewSettings clamps the buffer to the 1ms floor so a negative or sub-floor
// value never reaches the resolver.
func NewSettings(thresholdDB, minDuration, buffer float64) Settings {
	return Settings{
		ThresholdDB: thresholdDB,
		MinDuration: minDuration,
		Buffer:      math.Max(0.001, round4(buffer)),
	}
}

// DefaultSettings mirrors the interactive defaults: -40 dBFS threshold,
// 300ms minimum silence, 50ms edge buffer.
func DefaultSettings() Settings {
	return Settings{ThresholdDB: -40.0, MinDuration: 0.300, Buffer: 0.050}
}

// round4 rounds to 4 decimal places. All emitted timeline times go through
// this to bound float drift across repeated re-analysis.
func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
