package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	root := &cobra.Command{
		Use:          "ftedit",
		Short:        "Text-based silence editing for video",
		SilenceUsage: true,
	}

	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	analyze := &cobra.Command{
		Use:   "analyze <input>",
		Short: "Transcribe and segment a video or FCPXML project into a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args[0])
		},
	}
	analyze.Flags().String("out", "", "Session file path (default: next to the input)")
	analyze.Flags().Float64("threshold", -40.0, "Silence threshold in dBFS")
	analyze.Flags().Float64("min-duration", 0.3, "Minimum silence duration in seconds")
	analyze.Flags().Float64("buffer", 0.05, "Seconds kept at each edge of a deleted silence")
	analyze.Flags().Bool("auto-delete", false, "Mark long detected silences for removal")
	analyze.Flags().String("cache", "", "Cache directory (default .cache)")

	export := &cobra.Command{
		Use:   "export <session> <output>",
		Short: "Export an edited session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, args[0], args[1])
		},
	}
	export.Flags().StringP("format", "f", "fcpxml", "Output format: fcpxml, edl, mp4 or sh")
	export.Flags().Bool("stream-copy", false,
		"(mp4 only) Copy streams instead of re-encoding; cuts land on keyframes")

	stats := &cobra.Command{
		Use:   "stats <session>",
		Short: "Show a session summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, args[0])
		},
	}

	root.AddCommand(analyze, export, stats)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
