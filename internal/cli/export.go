package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/forPelevin/ftedit/internal/domain/export"
	"github.com/forPelevin/ftedit/internal/domain/session"
	"github.com/forPelevin/ftedit/internal/ports/adapters/ffmpeg"
	"github.com/spf13/cobra"
)

func runExport(cmd *cobra.Command, sessionPath, output string) error {
	format, _ := cmd.Flags().GetString("format")
	streamCopy, _ := cmd.Flags().GetBool("stream-copy")

	sess, err := session.Load(sessionPath)
	if err != nil {
		return err
	}

	saved, err := sess.TimeSaved()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d segment(s) deleted (%.3fs saved)\n",
		sess.DeletedCount(), saved)

	ranges, err := sess.KeepRanges()
	if err != nil {
		return err
	}

	switch strings.ToLower(format) {
	case "fcpxml":
		return writeTo(output, func(f *os.File) error {
			return export.FCPXML(f, sess, ranges)
		})
	case "edl":
		return writeTo(output, func(f *os.File) error {
			return export.EDL(f, baseName(sess.VideoPath), ranges, sess.FPS)
		})
	case "sh":
		return writeTo(output, func(f *os.File) error {
			return export.Script(f, sess.VideoPath, outputMP4For(output), ranges)
		})
	case "mp4":
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Hour)
		defer cancel()
		v := ffmpeg.New(
			getenvDefault("FTEDIT_FFMPEG", "ffmpeg"),
			getenvDefault("FTEDIT_FFPROBE", "ffprobe"),
		)
		return v.RenderCut(ctx, sess.VideoPath, ranges, output, streamCopy)
	default:
		return fmt.Errorf("unknown format %q (want fcpxml, edl, mp4 or sh)", format)
	}
}

func runStats(cmd *cobra.Command, sessionPath string) error {
	sess, err := session.Load(sessionPath)
	if err != nil {
		return err
	}
	saved, err := sess.TimeSaved()
	if err != nil {
		return err
	}
	ranges, err := sess.KeepRanges()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "session : %s\n", sess.ID)
	fmt.Fprintf(out, "video   : %s\n", sess.VideoPath)
	fmt.Fprintf(out, "length  : %.3fs @ %.3f fps\n", sess.Duration, sess.FPS)
	fmt.Fprintf(out, "segments: %d (%d deleted)\n", len(sess.Segments), sess.DeletedCount())
	fmt.Fprintf(out, "keeps   : %d range(s), %.3fs saved\n", len(ranges), saved)
	return nil
}

func writeTo(path string, fn func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func baseName(path string) string {
	base := path
	if i := strings.LastIndexAny(base, "/\\"); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	return base
}

// outputMP4For picks the video path a generated script writes to.
func outputMP4For(scriptPath string) string {
	if i := strings.LastIndex(scriptPath, "."); i > 0 {
		return scriptPath[:i] + "_edited.mp4"
	}
	return scriptPath + "_edited.mp4"
}
