package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/forPelevin/ftedit/internal/domain/timeline"
)

// Script writes a shell script containing a single ffmpeg invocation that
// trims each keep range and concatenates them in order, re-encoding at exact
// boundaries.
func Script(w io.Writer, inputPath, outputPath string, ranges []timeline.Range) error {
	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	b.WriteString("# Generated edit: keeps ")
	b.WriteString(strconv.Itoa(len(ranges)))
	b.WriteString(" range(s) of the source.\n")
	b.WriteString("set -e\n\n")

	b.WriteString("ffmpeg -y -i ")
	b.WriteString(shellQuote(inputPath))
	b.WriteString(" \\\n  -filter_complex ")
	b.WriteString(shellQuote(FilterGraph(ranges)))
	b.WriteString(" \\\n  -map '[v]' -map '[a]' \\\n")
	b.WriteString("  -c:v libx264 -preset veryfast -crf 18 -c:a aac -b:a 192k \\\n  ")
	b.WriteString(shellQuote(outputPath))
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// FilterGraph builds the trim/concat filter_complex expression for the keep
// ranges, preserving their order.
func FilterGraph(ranges []timeline.Range) string {
	var b strings.Builder
	for i, r := range ranges {
		start := formatSeconds(r.Start)
		end := formatSeconds(r.End)
		fmt.Fprintf(&b, "[0:v]trim=start=%s:end=%s,setpts=PTS-STARTPTS[v%d];", start, end, i)
		fmt.Fprintf(&b, "[0:a]atrim=start=%s:end=%s,asetpts=PTS-STARTPTS[a%d];", start, end, i)
	}
	for i := range ranges {
		fmt.Fprintf(&b, "[v%d][a%d]", i, i)
	}
	fmt.Fprintf(&b, "concat=n=%d:v=1:a=1[v][a]", len(ranges))
	return b.String()
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
