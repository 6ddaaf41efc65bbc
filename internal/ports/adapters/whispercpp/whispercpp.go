package whispercpp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/forPelevin/ftedit/internal/domain/timeline"
	"github.com/forPelevin/ftedit/internal/types"
)

type Adapter struct {
	bin   string
	model string
}

func New(binPath, modelPath string) *Adapter {
	return &Adapter{bin: binPath, model: modelPath}
}

func (a *Adapter) Transcribe(ctx context.Context, wavPath, cacheDir string) (types.Transcript, error) {
	outPrefix := filepath.Join(cacheDir, "whisper")
	args := []string{
		"-m", a.model,
		"-f", wavPath,
		"-oj",
		"-of", outPrefix,
		"-ml", "1", // one word per segment for word-level timing
	}
	cmd := exec.CommandContext(ctx, a.bin, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return types.Transcript{}, fmt.Errorf("whisper.cpp failed: %w\n%s", err, string(b))
	}

	jb, err := os.ReadFile(outPrefix + ".json")
	if err != nil {
		return types.Transcript{}, err
	}

	var tr types.Transcript
	if err := json.Unmarshal(jb, &tr); err != nil {
		return types.Transcript{}, err
	}
	for i := range tr.Segments {
		tr.Segments[i].Text = strings.TrimSpace(tr.Segments[i].Text)
		for j := range tr.Segments[i].Words {
			tr.Segments[i].Words[j].Word = strings.TrimSpace(tr.Segments[i].Words[j].Word)
		}
	}
	return tr, nil
}

// Units flattens a transcript into the builder's speech units, preferring
// word-level timestamps and falling back to whole segments when an ASR
// backend provides none. Empty or zero-width entries are skipped; the
// builder validates the rest.
func Units(tr types.Transcript) []timeline.TextSegment {
	var out []timeline.TextSegment
	for _, s := range tr.Segments {
		if len(s.Words) == 0 {
			if text := strings.TrimSpace(s.Text); text != "" && s.End > s.Start {
				out = append(out, timeline.TextSegment{Text: text, Start: s.Start, End: s.End})
			}
			continue
		}
		for _, w := range s.Words {
			text := strings.TrimSpace(w.Word)
			if text == "" || w.End <= w.Start {
				continue
			}
			out = append(out, timeline.TextSegment{Text: text, Start: w.Start, End: w.End})
		}
	}
	return out
}
