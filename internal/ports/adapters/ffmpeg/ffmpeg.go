package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/forPelevin/ftedit/internal/domain/export"
	"github.com/forPelevin/ftedit/internal/domain/timeline"
	"github.com/forPelevin/ftedit/internal/ports"
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

// ExtractAudioMono16k writes the source's audio as 16 kHz mono 16-bit PCM,
// the rate whisper prefers and the format the silence detector assumes.
func (a *Adapter) ExtractAudioMono16k(ctx context.Context, in, outWav string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-i", in,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ac", "1",
		"-ar", "16000",
		outWav,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg extract audio: %w\n%s", err, string(b))
	}
	return nil
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
	} `json:"streams"`
}

func (a *Adapter) Probe(ctx context.Context, in string) (ports.MediaInfo, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		"-show_format",
		in,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return ports.MediaInfo{}, fmt.Errorf("ffprobe: %w\n%s", err, string(b))
	}

	var out probeOutput
	if err := json.Unmarshal(b, &out); err != nil {
		return ports.MediaInfo{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	info := ports.MediaInfo{FPS: 25.0, Width: 1920, Height: 1080}
	info.Duration, err = strconv.ParseFloat(out.Format.Duration, 64)
	if err != nil {
		return ports.MediaInfo{}, fmt.Errorf("parse duration %q: %w", out.Format.Duration, err)
	}
	for _, s := range out.Streams {
		if s.CodecType != "video" {
			continue
		}
		if s.Width > 0 {
			info.Width = s.Width
		}
		if s.Height > 0 {
			info.Height = s.Height
		}
		if num, den, ok := strings.Cut(s.RFrameRate, "/"); ok {
			n, errN := strconv.ParseFloat(num, 64)
			d, errD := strconv.ParseFloat(den, 64)
			if errN == nil && errD == nil && d > 0 {
				info.FPS = n / d
			}
		}
		break
	}
	return info, nil
}

// RenderCut concatenates the keep ranges into out. The default path
// re-encodes through a trim/concat filter graph at exact boundaries.
// streamCopy instead copies each range into a temp file and merges them with
// the concat demuxer — lossless but cut at keyframes, so boundaries are
// approximate.
func (a *Adapter) RenderCut(ctx context.Context, in string, ranges []timeline.Range, out string, streamCopy bool) error {
	if len(ranges) == 0 {
		return fmt.Errorf("render cut: no keep ranges")
	}
	if streamCopy {
		return a.renderStreamCopy(ctx, in, ranges, out)
	}

	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-i", in,
		"-filter_complex", export.FilterGraph(ranges),
		"-map", "[v]",
		"-map", "[a]",
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "18",
		"-c:a", "aac",
		"-b:a", "192k",
		out,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg render cut: %w\n%s", err, string(b))
	}
	return nil
}

func (a *Adapter) renderStreamCopy(ctx context.Context, in string, ranges []timeline.Range, out string) error {
	tmpDir, err := os.MkdirTemp("", "ftedit-cut-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmpDir)

	ext := filepath.Ext(in)
	var list strings.Builder
	for i, r := range ranges {
		part := filepath.Join(tmpDir, fmt.Sprintf("part%03d%s", i, ext))
		cmd := exec.CommandContext(ctx, a.ffmpeg,
			"-y",
			"-ss", fmtSeconds(r.Start),
			"-to", fmtSeconds(r.End),
			"-i", in,
			"-c", "copy",
			part,
		)
		b, err := cmd.CombinedOutput()
		if err != nil {
			return fmt.Errorf("ffmpeg copy range %d: %w\n%s", i, err, string(b))
		}
		fmt.Fprintf(&list, "file '%s'\n", part)
	}

	listPath := filepath.Join(tmpDir, "concat.txt")
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		out,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg concat: %w\n%s", err, string(b))
	}
	return nil
}

func fmtSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
