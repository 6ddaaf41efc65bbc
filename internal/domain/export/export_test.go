package export

import (
	"strings"
	"testing"

	"github.com/forPelevin/ftedit/internal/domain/session"
	"github.com/forPelevin/ftedit/internal/domain/timeline"
)

func keepRanges() []timeline.Range {
	return []timeline.Range{
		{Start: 0, End: 0.55},
		{Start: 2.45, End: 3.0},
	}
}

func TestEDL(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	if err := EDL(&b, "talk", keepRanges(), 25); err != nil {
		t.Fatalf("edl: %v", err)
	}
	out := b.String()

	if !strings.HasPrefix(out, "TITLE: talk\nFCM: NON-DROP FRAME\n") {
		t.Fatalf("missing header:\n%s", out)
	}
	// 0.55s @25fps rounds half-up to 14 frames; 2.45s to 61; 3.0s to 75.
	want1 := "001  AX       AA/V  C        00:00:00:00 00:00:00:14 00:00:00:00 00:00:00:14"
	want2 := "002  AX       AA/V  C        00:00:02:11 00:00:03:00 00:00:00:14 00:00:01:03"
	if !strings.Contains(out, want1) {
		t.Fatalf("missing event 1 %q in:\n%s", want1, out)
	}
	if !strings.Contains(out, want2) {
		t.Fatalf("missing event 2 %q in:\n%s", want2, out)
	}
}

func TestEDL_DropsZeroFrameEvents(t *testing.T) {
	t.Parallel()

	ranges := []timeline.Range{
		{Start: 0, End: 0.01}, // under half a frame at 25fps
		{Start: 1, End: 2},
	}
	var b strings.Builder
	if err := EDL(&b, "t", ranges, 25); err != nil {
		t.Fatalf("edl: %v", err)
	}
	out := b.String()
	if strings.Contains(out, "002") {
		t.Fatalf("zero-frame range must be dropped, got:\n%s", out)
	}
	if !strings.Contains(out, "001  AX       AA/V  C        00:00:01:00 00:00:02:00 00:00:00:00 00:00:01:00") {
		t.Fatalf("surviving event malformed:\n%s", out)
	}
}

func TestEDL_RecordSideIsContinuous(t *testing.T) {
	t.Parallel()

	ranges := []timeline.Range{
		{Start: 0.1, End: 1.3},
		{Start: 5.0, End: 6.2},
		{Start: 9.9, End: 10.4},
	}
	var b strings.Builder
	if err := EDL(&b, "t", ranges, 30); err != nil {
		t.Fatalf("edl: %v", err)
	}

	var prevRecOut string
	for _, line := range strings.Split(strings.TrimSpace(b.String()), "\n") {
		fields := strings.Fields(line)
		if len(fields) != 8 || fields[1] != "AX" {
			continue
		}
		recIn, recOut := fields[6], fields[7]
		if prevRecOut != "" && recIn != prevRecOut {
			t.Fatalf("record gap: %s follows %s", recIn, prevRecOut)
		}
		prevRecOut = recOut
	}
	if prevRecOut == "" {
		t.Fatal("no events parsed")
	}
}

func testExportSession() *session.Session {
	s := session.New("/media/talk.mp4", "/tmp/talk.wav", []timeline.Segment{
		timeline.TextSegment{Text: "Hello", Start: 0, End: 0.5},
		timeline.Silence{Start: 0.5, End: 2.5, Detected: true},
		timeline.TextSegment{Text: "world", Start: 2.5, End: 3.0},
	}, timeline.DefaultSettings(), 3.0)
	return s
}

func TestFCPXML(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	if err := FCPXML(&b, testExportSession(), keepRanges()); err != nil {
		t.Fatalf("fcpxml: %v", err)
	}
	out := b.String()

	for _, want := range []string{
		`<fcpxml version="1.11">`,
		`<format id="r1"`,
		`frameDuration="1/25s"`,
		`<asset id="r2"`,
		`src="file:///media/talk.mp4"`,
		// First clip: starts at source 0, 0.55s = 24255 ticks long.
		`offset="0s" start="0s" duration="24255/44100s"`,
		// Second clip: source start 2.45s, record offset continues at 24255.
		`offset="24255/44100s" start="108045/44100s" duration="24255/44100s"`,
		// Sequence duration is the summed keep duration: 1.1s.
		`duration="48510/44100s"`,
		`tcFormat="NDF"`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestScript(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	if err := Script(&b, "in.mp4", "out.mp4", keepRanges()); err != nil {
		t.Fatalf("script: %v", err)
	}
	out := b.String()

	if !strings.HasPrefix(out, "#!/bin/sh\n") {
		t.Fatalf("missing shebang:\n%s", out)
	}
	graph := FilterGraph(keepRanges())
	if !strings.Contains(out, graph) {
		t.Fatalf("script does not embed the filter graph:\n%s", out)
	}

	// Range order must be preserved through the trim and concat stages.
	first := strings.Index(graph, "trim=start=0.0000:end=0.5500")
	second := strings.Index(graph, "trim=start=2.4500:end=3.0000")
	if first == -1 || second == -1 || second < first {
		t.Fatalf("ranges out of order in graph: %s", graph)
	}
	if !strings.Contains(graph, "concat=n=2:v=1:a=1[v][a]") {
		t.Fatalf("missing concat stage: %s", graph)
	}
}
