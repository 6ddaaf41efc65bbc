package timeline

import (
	"errors"
	"fmt"
	"sort"
)

// ErrMalformedInput reports a speech unit whose start is not strictly before
// its end. The builder fails fast rather than emit a corrupt timeline.
var ErrMalformedInput = errors.New("malformed input segment")

// Gaps between consecutive words no longer than this are absorbed into the
// preceding word's end time instead of becoming Silence segments, so the
// timeline is not littered with sub-10ms gaps.
const microGapS = 0.010

// Minimum overlap with a detected-silence interval for a gap to be
// classified as detected.
const overlapMinS = 0.001

// Build merges speech units with detected-silence intervals into one ordered
// covering of [0, duration]: [leading Silence?], unit, [gap Silence?], unit,
// ..., [trailing Silence?].
//
// Inputs may arrive in any order; detected silences may overlap each other.
// Emitted silences carry the gap's full, unshrunk bounds — the edge buffer
// is applied only at resolution time. All emitted times are rounded to 4
// decimals.
func Build(units []TextSegment, silences []Silence, duration float64, settings Settings) ([]Segment, error) {
	for _, u := range units {
		if u.Start >= u.End {
			return nil, fmt.Errorf("%w: %q [%f, %f]", ErrMalformedInput, u.Text, u.Start, u.End)
		}
	}

	// No transcript at all: the whole clip is one soft gap, distinct from a
	// detector-confirmed silence.
	if len(units) == 0 {
		return []Segment{Silence{Start: 0, End: round4(duration), Detected: false}}, nil
	}

	words := make([]TextSegment, len(units))
	copy(words, units)
	sort.Slice(words, func(i, j int) bool { return words[i].Start < words[j].Start })

	det := make([]Silence, len(silences))
	copy(det, silences)
	sort.Slice(det, func(i, j int) bool { return det[i].Start < det[j].Start })

	// Gaps are classified left to right, so a single cursor into the sorted
	// detected list only ever advances: O(N+M) across the whole build.
	cur := detCursor{silences: det}

	segments := make([]Segment, 0, 2*len(words)+1)

	if words[0].Start > microGapS {
		gapEnd := round4(words[0].Start)
		segments = append(segments, Silence{
			Start:    0,
			End:      gapEnd,
			Detected: cur.overlaps(0, gapEnd),
		})
	}

	for i := range words {
		word := TextSegment{
			Text:  words[i].Text,
			Start: round4(words[i].Start),
			End:   round4(words[i].End),
		}

		if i < len(words)-1 {
			gapStart := round4(words[i].End)
			gapEnd := round4(words[i+1].Start)
			gapDur := gapEnd - gapStart

			switch {
			case gapDur > microGapS:
				segments = append(segments, word)
				segments = append(segments, Silence{
					Start:    gapStart,
					End:      gapEnd,
					Detected: cur.overlaps(gapStart, gapEnd),
				})
			case gapDur > 0:
				// Micro-gap: snap the word's end to the next word's start.
				word.End = gapEnd
				segments = append(segments, word)
			default:
				segments = append(segments, word)
			}
			continue
		}
		segments = append(segments, word)
	}

	lastEnd := round4(words[len(words)-1].End)
	if duration-lastEnd > microGapS {
		gapEnd := round4(duration)
		segments = append(segments, Silence{
			Start:    lastEnd,
			End:      gapEnd,
			Detected: cur.overlaps(lastEnd, gapEnd),
		})
	}

	return segments, nil
}

// detCursor classifies gaps against sorted detected-silence intervals. The
// index only advances, which is valid because callers probe gaps in
// ascending order.
type detCursor struct {
	silences []Silence
	idx      int
}

// overlaps reports whether any detected silence overlaps [gapStart, gapEnd]
// by at least 1ms.
func (c *detCursor) overlaps(gapStart, gapEnd float64) bool {
	for c.idx < len(c.silences) && c.silences[c.idx].End < gapStart {
		c.idx++
	}
	for _, s := range c.silences[c.idx:] {
		if s.Start > gapEnd {
			break
		}
		overlap := min(s.End, gapEnd) - max(s.Start, gapStart)
		if overlap >= overlapMinS {
			return true
		}
	}
	return false
}
