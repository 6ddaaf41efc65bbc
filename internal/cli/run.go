package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/forPelevin/ftedit/internal/pipeline"
	"github.com/spf13/cobra"
)

func runAnalyze(cmd *cobra.Command, input string) error {
	out, _ := cmd.Flags().GetString("out")
	threshold, _ := cmd.Flags().GetFloat64("threshold")
	minDuration, _ := cmd.Flags().GetFloat64("min-duration")
	buffer, _ := cmd.Flags().GetFloat64("buffer")
	autoDelete, _ := cmd.Flags().GetBool("auto-delete")
	cacheDir, _ := cmd.Flags().GetString("cache")

	absIn, err := filepath.Abs(input)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Hour)
	defer cancel()

	cfg := pipeline.Config{
		Input:       absIn,
		SessionPath: out,
		CacheDir:    cacheDir,

		ThresholdDB: threshold,
		MinDuration: minDuration,
		Buffer:      buffer,
		AutoDelete:  autoDelete,

		FFmpegPath:  getenvDefault("FTEDIT_FFMPEG", "ffmpeg"),
		FFprobePath: getenvDefault("FTEDIT_FFPROBE", "ffprobe"),

		WhisperBin:   getenvDefault("FTEDIT_WHISPER_BIN", ".cache/bin/whisper.cpp"),
		WhisperModel: getenvDefault("FTEDIT_WHISPER_MODEL", ".cache/models/ggml-base.bin"),

		Logf: func(format string, args ...any) {
			fmt.Fprintf(cmd.ErrOrStderr(), format+"\n", args...)
		},
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	sess, err := pipeline.Run(ctx, cfg)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d segments, %d marked for deletion\n",
		len(sess.Segments), sess.DeletedCount())
	return nil
}
