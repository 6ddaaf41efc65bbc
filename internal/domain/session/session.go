// Package session holds the mutable state of one editing session: the
// current timeline snapshot, the deletion set scoped to that snapshot, the
// live silence settings and the source-media metadata needed for export.
//
// The engine in domain/timeline is pure; everything stateful lives here.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/google/uuid"

	"github.com/forPelevin/ftedit/internal/domain/timeline"
)

// ErrInvalidDeletion reports a persisted deletion set that does not address
// the persisted segment list.
var ErrInvalidDeletion = errors.New("deleted index outside segment list")

// FileExt is the suffix of persisted session files, written alongside the
// source media.
const FileExt = ".fte.json"

// Session is a complete editing session. Segments and Settings are values;
// the deletion set is the only state mutated during editing.
type Session struct {
	ID        string
	VideoPath string
	AudioPath string

	Segments []timeline.Segment
	Settings timeline.Settings

	Duration float64
	FPS      float64
	Width    int
	Height   int

	// FCPXML round-trip fields, kept so exports can reference the same
	// resource ids as the document the captions came from.
	SourceFCPXML   string
	FCPXMLVersion  string
	FCPXMLAssetID  string
	FCPXMLFormatID string

	deleted map[int]struct{}
}

// New creates a session over a freshly built timeline with an empty deletion
// set.
func New(videoPath, audioPath string, segments []timeline.Segment, settings timeline.Settings, duration float64) *Session {
	return &Session{
		ID:             uuid.NewString(),
		VideoPath:      videoPath,
		AudioPath:      audioPath,
		Segments:       segments,
		Settings:       settings,
		Duration:       duration,
		FPS:            25.0,
		Width:          1920,
		Height:         1080,
		FCPXMLVersion:  "1.11",
		FCPXMLAssetID:  "r2",
		FCPXMLFormatID: "r1",
		deleted:        make(map[int]struct{}),
	}
}

// Delete marks the segment at idx for removal.
func (s *Session) Delete(idx int) error {
	if idx < 0 || idx >= len(s.Segments) {
		return fmt.Errorf("%w: %d", timeline.ErrIndexOutOfRange, idx)
	}
	s.deleted[idx] = struct{}{}
	return nil
}

// Restore unmarks the segment at idx.
func (s *Session) Restore(idx int) {
	delete(s.deleted, idx)
}

// RestoreAll clears the deletion set.
func (s *Session) RestoreAll() {
	s.deleted = make(map[int]struct{})
}

// AutoDeleteLongSilences marks every detected silence at least as long as
// the configured minimum duration. Returns the number of newly marked
// segments.
func (s *Session) AutoDeleteLongSilences() int {
	marked := 0
	for i, seg := range s.Segments {
		sil, ok := seg.(timeline.Silence)
		if !ok || !sil.Detected || sil.Duration() < s.Settings.MinDuration {
			continue
		}
		if _, already := s.deleted[i]; already {
			continue
		}
		s.deleted[i] = struct{}{}
		marked++
	}
	return marked
}

// Deleted returns the deletion set as a sorted index list.
func (s *Session) Deleted() []int {
	out := make([]int, 0, len(s.deleted))
	for idx := range s.deleted {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// DeletedCount returns the number of segments marked for removal.
func (s *Session) DeletedCount() int { return len(s.deleted) }

// ReplaceSegments installs a re-analysis snapshot. The deletion set is
// cleared: indices are scoped to one exact snapshot, and carrying them over
// a rebuild could resurrect a deletion against the wrong segment.
func (s *Session) ReplaceSegments(segments []timeline.Segment) {
	s.Segments = segments
	s.deleted = make(map[int]struct{})
}

// KeepRanges resolves the current deletion set into the surviving time
// ranges.
func (s *Session) KeepRanges() ([]timeline.Range, error) {
	return timeline.KeepRanges(s.Segments, s.Deleted(), s.Settings.Buffer, s.Duration)
}

// TimeSaved returns the seconds that the current deletion set removes.
func (s *Session) TimeSaved() (float64, error) {
	return timeline.TimeSaved(s.Segments, s.Deleted(), s.Settings.Buffer)
}

// persisted wire format

type sessionJSON struct {
	ID        string  `json:"id"`
	VideoPath string  `json:"video_path"`
	AudioPath string  `json:"audio_path"`
	Duration  float64 `json:"video_duration"`
	FPS       float64 `json:"video_fps"`
	Width     int     `json:"video_width"`
	Height    int     `json:"video_height"`

	SourceFCPXML   string `json:"source_fcpxml,omitempty"`
	FCPXMLVersion  string `json:"fcpxml_version"`
	FCPXMLAssetID  string `json:"fcpxml_asset_id"`
	FCPXMLFormatID string `json:"fcpxml_format_id"`

	Deleted  []int         `json:"deleted"`
	Settings settingsJSON  `json:"silence_settings"`
	Segments []segmentJSON `json:"segments"`
}

type settingsJSON struct {
	ThresholdDB float64 `json:"threshold_db"`
	MinDuration float64 `json:"min_duration"`
	Buffer      float64 `json:"buffer"`
}

type segmentJSON struct {
	Type     string  `json:"type"`
	Text     string  `json:"text,omitempty"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Detected *bool   `json:"is_detected,omitempty"`
}

// Save writes the session to path as indented JSON.
func (s *Session) Save(path string) error {
	out := sessionJSON{
		ID:             s.ID,
		VideoPath:      s.VideoPath,
		AudioPath:      s.AudioPath,
		Duration:       s.Duration,
		FPS:            s.FPS,
		Width:          s.Width,
		Height:         s.Height,
		SourceFCPXML:   s.SourceFCPXML,
		FCPXMLVersion:  s.FCPXMLVersion,
		FCPXMLAssetID:  s.FCPXMLAssetID,
		FCPXMLFormatID: s.FCPXMLFormatID,
		Deleted:        s.Deleted(),
		Settings: settingsJSON{
			ThresholdDB: s.Settings.ThresholdDB,
			MinDuration: s.Settings.MinDuration,
			Buffer:      s.Settings.Buffer,
		},
	}
	for _, seg := range s.Segments {
		switch v := seg.(type) {
		case timeline.TextSegment:
			out.Segments = append(out.Segments, segmentJSON{
				Type: "text", Text: v.Text, Start: v.Start, End: v.End,
			})
		case timeline.Silence:
			detected := v.Detected
			out.Segments = append(out.Segments, segmentJSON{
				Type: "silence", Start: v.Start, End: v.End, Detected: &detected,
			})
		}
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return os.WriteFile(path, b, 0o644)
}

// Load reads a session from path. A deletion set that addresses segments
// outside the persisted list is rejected.
func Load(path string) (*Session, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var in sessionJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return nil, fmt.Errorf("parse session %s: %w", path, err)
	}

	segments := make([]timeline.Segment, 0, len(in.Segments))
	for _, sj := range in.Segments {
		if sj.Type == "text" {
			segments = append(segments, timeline.TextSegment{Text: sj.Text, Start: sj.Start, End: sj.End})
			continue
		}
		detected := true
		if sj.Detected != nil {
			detected = *sj.Detected
		}
		segments = append(segments, timeline.Silence{Start: sj.Start, End: sj.End, Detected: detected})
	}

	deleted := make(map[int]struct{}, len(in.Deleted))
	for _, idx := range in.Deleted {
		if idx < 0 || idx >= len(segments) {
			return nil, fmt.Errorf("%w: %d (have %d segments)", ErrInvalidDeletion, idx, len(segments))
		}
		deleted[idx] = struct{}{}
	}

	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}

	return &Session{
		ID:             id,
		VideoPath:      in.VideoPath,
		AudioPath:      in.AudioPath,
		Segments:       segments,
		Settings:       timeline.NewSettings(in.Settings.ThresholdDB, in.Settings.MinDuration, in.Settings.Buffer),
		Duration:       in.Duration,
		FPS:            in.FPS,
		Width:          in.Width,
		Height:         in.Height,
		SourceFCPXML:   in.SourceFCPXML,
		FCPXMLVersion:  in.FCPXMLVersion,
		FCPXMLAssetID:  in.FCPXMLAssetID,
		FCPXMLFormatID: in.FCPXMLFormatID,
		deleted:        deleted,
	}, nil
}
