package timeline

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrIndexOutOfRange reports a deleted index that does not address the
	// given segment snapshot.
	ErrIndexOutOfRange = errors.New("deleted index out of range")

	// ErrInvalidBuffer reports a negative edge buffer. A negative buffer
	// would grow silences outward instead of shrinking them, so it is
	// rejected rather than silently producing inverted ranges.
	ErrInvalidBuffer = errors.New("buffer must not be negative")
)

// Ranges shorter than this are suppressed from the output; they are rounding
// artifacts, not real spans.
const degenerateRangeS = 0.001

// KeepRanges resolves the deletion set into the ordered, non-overlapping
// time ranges that survive editing, suitable for handing to an exporter or
// an edit-aware player.
//
// A deleted Silence contributes only its deletable range (nothing at all
// when it is too short to survive the buffer); a deleted TextSegment is cut
// in full — the buffer never applies to speech. With no deletions the result
// is exactly [{0, duration}].
//
// KeepRanges is a pure function of its inputs and is safe to call on every
// deletion, undo, redo or settings change.
func KeepRanges(segments []Segment, deleted []int, buffer, duration float64) ([]Range, error) {
	del, err := deleteIntervals(segments, deleted, buffer)
	if err != nil {
		return nil, err
	}

	if len(del) == 0 {
		return []Range{{Start: 0, End: duration}}, nil
	}

	merged := mergeRanges(del)

	keep := make([]Range, 0, len(merged)+1)
	cursor := 0.0
	for _, d := range merged {
		start := round4(d.Start)
		end := round4(d.End)
		if start > cursor+degenerateRangeS {
			keep = append(keep, Range{Start: cursor, End: start})
		}
		cursor = end
	}
	if cursor < duration-degenerateRangeS {
		keep = append(keep, Range{Start: cursor, End: round4(duration)})
	}
	return keep, nil
}

// TimeSaved returns the total seconds removed by the deletion set: the sum
// of the merged delete-interval lengths.
func TimeSaved(segments []Segment, deleted []int, buffer float64) (float64, error) {
	del, err := deleteIntervals(segments, deleted, buffer)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, d := range mergeRanges(del) {
		total += d.Duration()
	}
	return total, nil
}

func deleteIntervals(segments []Segment, deleted []int, buffer float64) ([]Range, error) {
	if buffer < 0 {
		return nil, fmt.Errorf("%w: %f", ErrInvalidBuffer, buffer)
	}

	idxs := make([]int, len(deleted))
	copy(idxs, deleted)
	sort.Ints(idxs)

	var out []Range
	for _, idx := range idxs {
		if idx < 0 || idx >= len(segments) {
			return nil, fmt.Errorf("%w: %d (have %d segments)", ErrIndexOutOfRange, idx, len(segments))
		}
		switch seg := segments[idx].(type) {
		case Silence:
			if r, ok := seg.DeletableRange(buffer); ok {
				out = append(out, r)
			}
			// Too short to survive the buffer: deleting it is a no-op.
		case TextSegment:
			out = append(out, Range{Start: seg.Start, End: seg.End})
		}
	}
	return out, nil
}

// mergeRanges sweeps sorted-by-start intervals and merges any touching or
// overlapping pair into a minimal disjoint set.
func mergeRanges(rs []Range) []Range {
	if len(rs) <= 1 {
		return rs
	}
	sort.Slice(rs, func(i, j int) bool { return rs[i].Start < rs[j].Start })
	merged := rs[:1]
	for _, r := range rs[1:] {
		last := &merged[len(merged)-1]
		if r.Start <= last.End {
			if r.End > last.End {
				last.End = r.End
			}
			continue
		}
		merged = append(merged, r)
	}
	return merged
}
