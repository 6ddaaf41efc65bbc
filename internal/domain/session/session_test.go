package session

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/forPelevin/ftedit/internal/domain/timeline"
)

func testSegments() []timeline.Segment {
	return []timeline.Segment{
		timeline.TextSegment{Text: "Hello", Start: 0.0, End: 0.5},
		timeline.Silence{Start: 0.5, End: 2.5, Detected: true},
		timeline.TextSegment{Text: "world", Start: 2.5, End: 3.0},
	}
}

func testSession() *Session {
	return New("in.mp4", "audio.wav", testSegments(), timeline.DefaultSettings(), 3.0)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	s := testSession()
	s.FPS = 30
	if err := s.Delete(1); err != nil {
		t.Fatalf("delete: %v", err)
	}

	path := filepath.Join(t.TempDir(), "in"+FileExt)
	if err := s.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.ID != s.ID {
		t.Fatalf("id=%q, want %q", got.ID, s.ID)
	}
	if got.FPS != 30 || got.Duration != 3.0 {
		t.Fatalf("metadata lost: fps=%v duration=%v", got.FPS, got.Duration)
	}
	if len(got.Segments) != 3 {
		t.Fatalf("got %d segments, want 3", len(got.Segments))
	}
	sil, ok := got.Segments[1].(timeline.Silence)
	if !ok || !sil.Detected || sil.Start != 0.5 || sil.End != 2.5 {
		t.Fatalf("segment 1 = %+v, want the detected silence", got.Segments[1])
	}
	if d := got.Deleted(); len(d) != 1 || d[0] != 1 {
		t.Fatalf("deleted=%v, want [1]", d)
	}
	if got.Settings.Buffer != s.Settings.Buffer {
		t.Fatalf("buffer=%v, want %v", got.Settings.Buffer, s.Settings.Buffer)
	}
}

func TestLoad_RejectsStaleDeletions(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad"+FileExt)
	raw := `{
  "video_path": "in.mp4",
  "video_duration": 3.0,
  "deleted": [5],
  "silence_settings": {"threshold_db": -40, "min_duration": 0.3, "buffer": 0.05},
  "segments": [
    {"type": "text", "text": "hi", "start": 0, "end": 3}
  ]
}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	_, err := Load(path)
	if !errors.Is(err, ErrInvalidDeletion) {
		t.Fatalf("err=%v, want ErrInvalidDeletion", err)
	}
}

func TestLoad_ClampsNegativeBuffer(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "neg"+FileExt)
	raw := `{
  "video_path": "in.mp4",
  "video_duration": 3.0,
  "deleted": [],
  "silence_settings": {"threshold_db": -40, "min_duration": 0.3, "buffer": -1},
  "segments": [{"type": "silence", "start": 0, "end": 3, "is_detected": false}]
}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Settings.Buffer != 0.001 {
		t.Fatalf("buffer=%v, want the 1ms floor", s.Settings.Buffer)
	}
}

func TestReplaceSegments_ClearsDeletions(t *testing.T) {
	t.Parallel()

	s := testSession()
	if err := s.Delete(1); err != nil {
		t.Fatalf("delete: %v", err)
	}

	s.ReplaceSegments([]timeline.Segment{
		timeline.Silence{Start: 0, End: 3.0, Detected: false},
	})
	if s.DeletedCount() != 0 {
		t.Fatalf("deletion set survived a rebuild: %v", s.Deleted())
	}
}

func TestDeleteRestore(t *testing.T) {
	t.Parallel()

	s := testSession()
	if err := s.Delete(3); !errors.Is(err, timeline.ErrIndexOutOfRange) {
		t.Fatalf("err=%v, want ErrIndexOutOfRange", err)
	}
	if err := s.Delete(0); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	s.Restore(0)
	if d := s.Deleted(); len(d) != 1 || d[0] != 1 {
		t.Fatalf("deleted=%v, want [1]", d)
	}
	s.RestoreAll()
	if s.DeletedCount() != 0 {
		t.Fatalf("deleted=%v, want empty", s.Deleted())
	}
}

func TestAutoDeleteLongSilences(t *testing.T) {
	t.Parallel()

	segs := []timeline.Segment{
		timeline.TextSegment{Text: "a", Start: 0, End: 1},
		timeline.Silence{Start: 1, End: 1.1, Detected: true},  // below min duration
		timeline.TextSegment{Text: "b", Start: 1.1, End: 2},
		timeline.Silence{Start: 2, End: 3, Detected: true},    // long, detected
		timeline.TextSegment{Text: "c", Start: 3, End: 4},
		timeline.Silence{Start: 4, End: 5, Detected: false},   // long but soft gap
	}
	s := New("in.mp4", "a.wav", segs, timeline.DefaultSettings(), 5.0)

	if n := s.AutoDeleteLongSilences(); n != 1 {
		t.Fatalf("marked %d segments, want 1", n)
	}
	if d := s.Deleted(); len(d) != 1 || d[0] != 3 {
		t.Fatalf("deleted=%v, want [3]", d)
	}
	// Marking again is a no-op.
	if n := s.AutoDeleteLongSilences(); n != 0 {
		t.Fatalf("second pass marked %d segments, want 0", n)
	}
}

func TestSessionKeepRangesAndTimeSaved(t *testing.T) {
	t.Parallel()

	s := testSession()
	if err := s.Delete(1); err != nil {
		t.Fatalf("delete: %v", err)
	}

	ranges, err := s.KeepRanges()
	if err != nil {
		t.Fatalf("keep ranges: %v", err)
	}
	want := []timeline.Range{{Start: 0, End: 0.55}, {Start: 2.45, End: 3.0}}
	if len(ranges) != len(want) {
		t.Fatalf("got %+v, want %+v", ranges, want)
	}
	for i := range want {
		if math.Abs(ranges[i].Start-want[i].Start) > 1e-9 || math.Abs(ranges[i].End-want[i].End) > 1e-9 {
			t.Fatalf("range %d = %+v, want %+v", i, ranges[i], want[i])
		}
	}

	saved, err := s.TimeSaved()
	if err != nil {
		t.Fatalf("time saved: %v", err)
	}
	if math.Abs(saved-1.9) > 1e-9 {
		t.Fatalf("saved=%v, want 1.9", saved)
	}
}
