// Package pipeline orchestrates one analysis run: probe the source, extract
// audio, transcribe, detect silences, build the timeline and persist the
// editing session.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/forPelevin/ftedit/internal/domain/fcpxml"
	"github.com/forPelevin/ftedit/internal/domain/session"
	"github.com/forPelevin/ftedit/internal/domain/timeline"
	"github.com/forPelevin/ftedit/internal/ports"
	"github.com/forPelevin/ftedit/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/ftedit/internal/ports/adapters/wavlevel"
	"github.com/forPelevin/ftedit/internal/ports/adapters/whispercpp"
)

type Config struct {
	// Input is a video file or an .fcpxml document with captions.
	Input string

	// SessionPath is where the .fte.json session is written. Defaults to
	// the input path with the session extension.
	SessionPath string

	// CacheDir is the base directory for local artifacts (audio,
	// transcripts). If empty, defaults to ".cache".
	CacheDir string

	ThresholdDB float64
	MinDuration float64
	Buffer      float64

	// AutoDelete marks every detected silence of at least MinDuration for
	// removal as soon as the timeline is built.
	AutoDelete bool

	FFmpegPath  string
	FFprobePath string

	WhisperBin   string
	WhisperModel string

	Logf func(format string, args ...any)
}

func (c Config) Validate() error {
	if c.Input == "" {
		return errors.New("input is empty")
	}
	if _, err := os.Stat(c.Input); err != nil {
		return fmt.Errorf("stat input: %w", err)
	}
	if c.MinDuration <= 0 {
		return fmt.Errorf("min silence duration must be > 0")
	}
	if !isFCPXML(c.Input) {
		if c.WhisperBin == "" {
			return fmt.Errorf("whisper binary path is required")
		}
		if c.WhisperModel == "" {
			return fmt.Errorf("whisper model path is required")
		}
	}
	return nil
}

// Deps are the external tools an analysis run needs. Tests substitute fakes.
type Deps struct {
	Video   ports.VideoTool
	ASR     ports.ASR
	Silence ports.SilenceDetector
}

// Run wires the real adapters and analyzes cfg.Input into a saved session.
func Run(ctx context.Context, cfg Config) (*session.Session, error) {
	deps := Deps{
		Video:   ffmpeg.New(cfg.FFmpegPath, cfg.FFprobePath),
		ASR:     whispercpp.New(cfg.WhisperBin, cfg.WhisperModel),
		Silence: wavlevel.New(),
	}
	return Analyze(ctx, cfg, deps)
}

// Analyze performs the analysis with the given dependencies and saves the
// resulting session next to the input.
func Analyze(ctx context.Context, cfg Config, deps Deps) (*session.Session, error) {
	logf := cfg.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}

	settings := timeline.NewSettings(cfg.ThresholdDB, cfg.MinDuration, cfg.Buffer)

	videoPath := cfg.Input
	var units []timeline.TextSegment
	var doc *fcpxml.Document

	if isFCPXML(cfg.Input) {
		var err error
		doc, err = fcpxml.Parse(cfg.Input)
		if err != nil {
			return nil, err
		}
		if !doc.HasCaptions() {
			return nil, fmt.Errorf("%s: no captions to edit", cfg.Input)
		}
		if doc.VideoPath == "" {
			return nil, fmt.Errorf("%s: no media asset referenced", cfg.Input)
		}
		videoPath = doc.VideoPath
		units = doc.Captions
		logf("fcpxml: %d captions, media %s", len(units), videoPath)
	}

	cacheDir, err := prepareCache(cfg.CacheDir, videoPath)
	if err != nil {
		return nil, err
	}
	logf("cache: %s", cacheDir)

	info, err := deps.Video.Probe(ctx, videoPath)
	if err != nil {
		if doc == nil || doc.Duration <= 0 {
			return nil, err
		}
		// Media may be offline when editing from an FCPXML document; the
		// document's own metadata is enough to build the timeline.
		logf("probe failed (%v), using fcpxml metadata", err)
		info = ports.MediaInfo{Duration: doc.Duration, FPS: doc.FPS, Width: doc.Width, Height: doc.Height}
	}
	logf("source: %.3fs @ %.3f fps", info.Duration, info.FPS)

	wavPath := filepath.Join(cacheDir, "audio.wav")
	if err := deps.Video.ExtractAudioMono16k(ctx, videoPath, wavPath); err != nil {
		return nil, err
	}

	if units == nil {
		logf("transcribing")
		tr, err := deps.ASR.Transcribe(ctx, wavPath, cacheDir)
		if err != nil {
			return nil, err
		}
		units = whispercpp.Units(tr)
		logf("transcript: %d words", len(units))
	}

	logf("detecting silences")
	silences, err := deps.Silence.Detect(ctx, wavPath, settings)
	if err != nil {
		return nil, err
	}
	logf("found %d silence region(s)", len(silences))

	segments, err := timeline.Build(units, silences, info.Duration, settings)
	if err != nil {
		return nil, err
	}

	sess := session.New(videoPath, wavPath, segments, settings, info.Duration)
	sess.FPS = info.FPS
	sess.Width = info.Width
	sess.Height = info.Height
	if doc != nil {
		sess.SourceFCPXML = cfg.Input
		sess.FCPXMLVersion = doc.Version
		sess.FCPXMLAssetID = doc.AssetID
		sess.FCPXMLFormatID = doc.FormatID
	}

	if cfg.AutoDelete {
		n := sess.AutoDeleteLongSilences()
		logf("auto-deleted %d silence(s)", n)
	}

	sessionPath := cfg.SessionPath
	if sessionPath == "" {
		sessionPath = SessionPathFor(cfg.Input)
	}
	if err := sess.Save(sessionPath); err != nil {
		return nil, err
	}
	logf("session written (%d segments): %s", len(segments), sessionPath)
	return sess, nil
}

// SessionPathFor derives the session file path for an input file.
func SessionPathFor(input string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + session.FileExt
}

func prepareCache(base, input string) (string, error) {
	if base == "" {
		base = ".cache"
	}
	dir := filepath.Join(base, "runs", hash(input))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

func isFCPXML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".fcpxml")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// ensure adapters implement ports
var _ ports.VideoTool = (*ffmpeg.Adapter)(nil)
var _ ports.ASR = (*whispercpp.Adapter)(nil)
var _ ports.SilenceDetector = (*wavlevel.Detector)(nil)
