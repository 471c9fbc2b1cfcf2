package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Panchajanya1999/heif2jpeg/internal/cli"
	"github.com/Panchajanya1999/heif2jpeg/internal/cli/config"
	"github.com/Panchajanya1999/heif2jpeg/pkg/converter"
)

var (
	// Set at build time via -ldflags.
	version = "dev"
	commit  = "none"
	date    = "unknown"

	cfgFile string
	verbose bool

	exitCode int
)

// rootCmd is the base command; heif2jpeg has no subcommands.
var rootCmd = &cobra.Command{
	Use:   "heif2jpeg -i <inputDir> [-o <outputDir>]",
	Short: "Converts batches of HEIF/HEIC images to JPEG.",
	Long: `heif2jpeg scans a directory for HEIF-family images (.heif, .heic, .hif)
and converts them to JPEG in parallel.

It features:
  - A bounded worker pool sized to the machine by default.
  - EXIF preservation from source to output.
  - Source directory structure mirroring under the output root.
  - Output renaming with {name}, {timestamp} and {counter} placeholders.
  - Graceful cancellation: Ctrl-C stops new work and finishes in-flight files.

HEIF decoding uses the ImageMagick 'magick' binary, which must be on PATH.`,
	Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		opts, logger, err := config.LoadAndValidate(cfgFile, cmd.Flags())
		if err != nil {
			exitCode = cli.ExitFatal
			return err
		}

		noProgress, _ := cmd.Flags().GetBool("no-progress")
		opts.ProgressEnabled = !noProgress

		code, err := cli.Run(ctx, opts, logger)
		exitCode = code
		return err
	},
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	rootCmd.SetVersionTemplate(`{{.Use}} version {{.Version}}` + "\n")
	if err := rootCmd.Execute(); err != nil && exitCode == 0 {
		exitCode = cli.ExitFatal
	}
	return exitCode
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Configuration file path (default: search . and $HOME/.config/heif2jpeg/)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose (debug) logging (disables the progress bar)")

	rootCmd.Flags().StringP("input", "i", "", "Required. Directory containing HEIF files.")
	rootCmd.Flags().StringP("output", "o", "", "Output directory for JPEG files (default: the input directory)")
	_ = rootCmd.MarkFlagRequired("input")

	rootCmd.Flags().IntP("quality", "q", converter.DefaultQuality, "JPEG quality (1-100)")
	rootCmd.Flags().Int("workers", converter.DefaultWorkers, "Number of parallel workers (0 for auto-detect CPU cores)")
	rootCmd.Flags().Bool("preserve-exif", converter.DefaultPreserveMetadata, "Carry source EXIF metadata into the output")
	rootCmd.Flags().BoolP("recursive", "r", converter.DefaultRecursive, "Scan subdirectories of the input directory")
	rootCmd.Flags().Bool("preserve-structure", converter.DefaultPreserveStructure, "Mirror the source directory layout under the output directory")
	rootCmd.Flags().String("rename", "", "Output name pattern using {name}, {timestamp} and {counter} placeholders")
	rootCmd.Flags().String("output-format", string(converter.DefaultOutputFormat), `Final report format ("text", "json", "yaml")`)
	rootCmd.Flags().Bool("no-progress", false, "Disable the interactive progress bar")
	rootCmd.Flags().String("log-file", "", "Duplicate log output to the given file")
}
