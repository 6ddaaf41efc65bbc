// Package export encodes resolved keep-ranges for downstream tools: a CMX
// 3600 edit decision list, an FCPXML 1.11 document and an ffmpeg filter
// script. Encoders receive already-merged, sorted, duration-clamped ranges
// and never re-validate or re-merge them.
package export

import (
	"fmt"
	"io"
	"math"

	"github.com/forPelevin/ftedit/internal/domain/timeline"
)

// EDL writes a CMX 3600 edit decision list: one AA/V cut event per keep
// range.
//
// Source in/out are converted independently per range from absolute seconds
// to frames (round half up at fps). The record side is accumulated in whole
// frames so the output timeline never drifts. A range that collapses to zero
// frames after rounding is dropped rather than emitted with out < in.
func EDL(w io.Writer, title string, ranges []timeline.Range, fps float64) error {
	if fps <= 0 {
		fps = 25.0
	}
	if _, err := fmt.Fprintf(w, "TITLE: %s\nFCM: NON-DROP FRAME\n\n", title); err != nil {
		return err
	}

	event := 0
	recFrame := int64(0)
	for _, r := range ranges {
		srcIn := toFrames(r.Start, fps)
		srcOut := toFrames(r.End, fps)
		if srcOut <= srcIn {
			continue
		}
		event++
		length := srcOut - srcIn
		recIn := recFrame
		recOut := recFrame + length
		recFrame = recOut

		_, err := fmt.Fprintf(w, "%03d  AX       AA/V  C        %s %s %s %s\n",
			event,
			timecode(srcIn, fps), timecode(srcOut, fps),
			timecode(recIn, fps), timecode(recOut, fps),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// toFrames quantizes seconds to frames, rounding half up.
func toFrames(seconds, fps float64) int64 {
	return int64(math.Floor(seconds*fps + 0.5))
}

// timecode renders a frame count as HH:MM:SS:FF at the nominal (integer)
// frame rate.
func timecode(frames int64, fps float64) string {
	nominal := int64(math.Round(fps))
	if nominal <= 0 {
		nominal = 25
	}
	ff := frames % nominal
	totalSec := frames / nominal
	return fmt.Sprintf("%02d:%02d:%02d:%02d",
		totalSec/3600, (totalSec/60)%60, totalSec%60, ff)
}
