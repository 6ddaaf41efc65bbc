package whispercpp

import (
	"testing"

	"github.com/forPelevin/ftedit/internal/types"
)

func TestUnits_PrefersWordTimestamps(t *testing.T) {
	t.Parallel()

	tr := types.Transcript{Segments: []types.Segment{
		{
			Start: 0, End: 2, Text: "hello world",
			Words: []types.Word{
				{Start: 0.1, End: 0.7, Word: " hello "},
				{Start: 0.8, End: 1.4, Word: "world"},
				{Start: 1.5, End: 1.5, Word: "zero"}, // zero width: dropped
				{Start: 1.6, End: 1.9, Word: "   "},  // blank: dropped
			},
		},
	}}

	units := Units(tr)
	if len(units) != 2 {
		t.Fatalf("got %d units, want 2: %+v", len(units), units)
	}
	if units[0].Text != "hello" || units[0].Start != 0.1 || units[0].End != 0.7 {
		t.Fatalf("unit 0 = %+v", units[0])
	}
	if units[1].Text != "world" {
		t.Fatalf("unit 1 = %+v", units[1])
	}
}

func TestUnits_SegmentFallback(t *testing.T) {
	t.Parallel()

	tr := types.Transcript{Segments: []types.Segment{
		{Start: 0, End: 2.5, Text: "a whole phrase"},
		{Start: 2.5, End: 2.5, Text: "degenerate"},
		{Start: 3, End: 4, Text: "  "},
	}}

	units := Units(tr)
	if len(units) != 1 {
		t.Fatalf("got %d units, want 1: %+v", len(units), units)
	}
	if units[0].Text != "a whole phrase" || units[0].End != 2.5 {
		t.Fatalf("unit 0 = %+v", units[0])
	}
}
