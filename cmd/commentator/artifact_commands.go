package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"commentator/internal/artifacts"
	"commentator/internal/config"
	"commentator/internal/media/ffprobe"
	"commentator/internal/services"
	"commentator/internal/timeline"
)

func newAssembleCommand(ctx *commandContext) *cobra.Command {
	var output string
	var format string
	var framerate int

	cmd := &cobra.Command{
		Use:   "assemble",
		Short: "Mix the working directory's commentary clips onto the newest recording",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if output == "" {
				return services.Wrap(services.ErrValidation, "cli", "assemble", "--output is required", nil)
			}
			if format == "" {
				format = cfg.Export.Format
			}
			if framerate == 0 {
				framerate = cfg.Export.Framerate
			}

			lock, err := artifacts.Acquire(cfg.Paths.StateDir, cfg.Paths.WorkingDir)
			if err != nil {
				return err
			}
			defer lock.Release()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			assembler := timeline.NewAssembler(timeline.SettingsFromConfig(cfg), ffprobe.NewProber(cfg.Export.FFprobeBinary), logger)
			result, err := assembler.Assemble(runCtx, timeline.Request{
				WorkingDir: cfg.Paths.WorkingDir,
				OutputPath: output,
				Framerate:  framerate,
				Format:     format,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Exported %s\n", result.OutputPath)
			fmt.Fprintf(out, "  video:   %s\n", result.Video.Name)
			fmt.Fprintf(out, "  clips:   %d mixed, %d skipped\n", len(result.Clips), len(result.Skipped))
			fmt.Fprintf(out, "  removed: %d files\n", len(result.Cleanup.Removed))
			fmt.Fprintf(out, "  elapsed: %s\n", result.Elapsed.Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Export destination")
	cmd.Flags().StringVar(&format, "format", "", "Output container (mp4, mkv, mov, webm); defaults to export.format")
	cmd.Flags().IntVar(&framerate, "framerate", 0, "Output framerate; defaults to export.framerate")
	return cmd
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "Discard the working directory's clips, recording, and frame without exporting",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			lock, err := artifacts.Acquire(cfg.Paths.StateDir, cfg.Paths.WorkingDir)
			if err != nil {
				return err
			}
			defer lock.Release()

			plan, scanErr := artifacts.SweepPlan(cfg.Paths.WorkingDir, cfg.TTS.AudioExt, cfg.Export.VideoExts, cfg.Vision.FramePath)
			out := cmd.OutOrStdout()
			if dryRun {
				for _, path := range planPaths(cfg.Paths.WorkingDir, plan) {
					fmt.Fprintf(out, "would remove %s\n", path)
				}
				return scanErr
			}

			report, err := artifacts.Cleanup(cfg.Paths.WorkingDir, plan)
			fmt.Fprintf(out, "Removed %d files from %s\n", len(report.Removed), cfg.Paths.WorkingDir)
			return errors.Join(scanErr, err)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List the files that would be removed")
	return cmd
}

func planPaths(dir string, plan artifacts.Plan) []string {
	paths := make([]string, 0, len(plan.Clips)+3)
	for _, clip := range plan.Clips {
		paths = append(paths, clip.Path)
	}
	if plan.Video != "" {
		paths = append(paths, plan.Video)
	}
	var images []string
	frame := filepath.Join(dir, artifacts.FrameName)
	if plan.Frame {
		images = append(images, frame)
	}
	if plan.Capture != "" && !(plan.Frame && filepath.Clean(plan.Capture) == frame) {
		images = append(images, plan.Capture)
	}
	for _, path := range images {
		if _, err := os.Stat(path); err == nil {
			paths = append(paths, path)
		}
	}
	return paths
}

// artifactListing is the JSON form of `commentator artifacts`.
type artifactListing struct {
	WorkingDir string           `json:"working_dir"`
	Video      *artifacts.Video `json:"video,omitempty"`
	Clips      []artifacts.Clip `json:"clips"`
	Problems   []string         `json:"problems,omitempty"`
}

func newArtifactsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "artifacts",
		Short: "List pending commentary clips and the recording they will be mixed onto",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			listing := collectArtifacts(cfg)
			if jsonOutput {
				return writeJSON(cmd, listing)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Working directory: %s\n", listing.WorkingDir)
			if listing.Video != nil {
				fmt.Fprintf(out, "Recording: %s (created %s)\n", listing.Video.Name, listing.Video.CreatedAt.Local().Format(time.DateTime))
			} else {
				fmt.Fprintln(out, "Recording: none")
			}
			if len(listing.Clips) == 0 {
				fmt.Fprintln(out, "No commentary clips")
			} else {
				rows := make([][]string, 0, len(listing.Clips))
				for _, clip := range listing.Clips {
					rows = append(rows, []string{formatOffset(clip.OffsetMs), clip.Name})
				}
				fmt.Fprint(out, renderTable([]string{"Offset", "Clip"}, rows, []columnAlignment{alignRight, alignLeft}))
			}
			for _, problem := range listing.Problems {
				fmt.Fprintln(out, renderStatusLine("Problem", statusWarn, problem, shouldColorize(out)))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func collectArtifacts(cfg *config.Config) artifactListing {
	listing := artifactListing{WorkingDir: cfg.Paths.WorkingDir, Clips: []artifacts.Clip{}}
	clips, err := artifacts.ScanAudio(cfg.Paths.WorkingDir, cfg.TTS.AudioExt)
	if clips != nil {
		listing.Clips = clips
	}
	if err != nil {
		listing.Problems = append(listing.Problems, err.Error())
	}
	video, err := artifacts.LatestVideo(cfg.Paths.WorkingDir, cfg.Export.VideoExts)
	switch {
	case err == nil:
		listing.Video = &video
	case !errors.Is(err, services.ErrArtifact):
		listing.Problems = append(listing.Problems, err.Error())
	}
	return listing
}
