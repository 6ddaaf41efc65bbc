package ports

import (
	"context"

	"github.com/forPelevin/ftedit/internal/domain/timeline"
	"github.com/forPelevin/ftedit/internal/types"
)

// MediaInfo is what ffprobe reports about a source file.
type MediaInfo struct {
	Duration float64
	FPS      float64
	Width    int
	Height   int
}

type VideoTool interface {
	ExtractAudioMono16k(ctx context.Context, in, outWav string) error
	Probe(ctx context.Context, in string) (MediaInfo, error)

	// RenderCut writes the concatenation of the keep ranges to out.
	// streamCopy trades exact boundaries for a lossless keyframe-aligned
	// copy.
	RenderCut(ctx context.Context, in string, ranges []timeline.Range, out string, streamCopy bool) error
}

type ASR interface {
	Transcribe(ctx context.Context, wavPath, cacheDir string) (types.Transcript, error)
}

// SilenceDetector finds below-threshold regions in a WAV file. Returned
// silences carry their full, unshrunk bounds; the edge buffer is applied
// only when resolving keep-ranges.
type SilenceDetector interface {
	Detect(ctx context.Context, wavPath string, settings timeline.Settings) ([]timeline.Silence, error)
}
