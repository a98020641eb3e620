package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"commentator/internal/artifacts"
	"commentator/internal/deps"
	"commentator/internal/services/llm"
	"commentator/internal/transcript"
)

// filterRunner lists ffmpeg filters; nil runs the real binary.
var filterRunner deps.OutputRunner

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check external tools, backend keys, and directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			failures := 0
			report := func(label string, kind statusKind, message string) {
				if kind == statusError {
					failures++
				}
				fmt.Fprintln(out, renderStatusLine(label, kind, message, colorize))
			}

			fmt.Fprintln(out, "Tools")
			ffmpegReady := false
			for _, status := range deps.CheckBinaries(deps.Requirements(cfg)) {
				switch {
				case status.Available:
					report(status.Name, statusOK, status.Command)
					if status.Name == "FFmpeg" {
						ffmpegReady = true
					}
				case status.Optional:
					report(status.Name, statusWarn, status.Detail)
				default:
					report(status.Name, statusError, status.Detail)
				}
			}
			if ffmpegReady {
				status, _ := deps.CheckFilters(cmd.Context(), filterRunner, cfg.Export.FFmpegBinary, deps.RequiredFilters)
				if status.Available {
					report(status.Name, statusOK, fmt.Sprintf("%d filters present", len(deps.RequiredFilters)))
				} else {
					report(status.Name, statusError, status.Detail)
				}
			}

			fmt.Fprintln(out, "Backends")
			if tier, err := llm.ResolveTier(cfg.LLM.Tier); err != nil {
				report("LLM tier", statusError, err.Error())
			} else {
				report("LLM tier", statusOK, fmt.Sprintf("%s (vision: %s)", tier.Model, yesNo(tier.Vision)))
			}
			report("LLM key", keyStatus(cfg.LLM.APIKey), keyMessage(cfg.LLM.APIKey, "OPENAI_API_KEY"))
			report("TTS key", keyStatus(cfg.TTS.APIKey), keyMessage(cfg.TTS.APIKey, "ELEVENLABS_API_KEY"))

			fmt.Fprintln(out, "Directories")
			if err := checkWritable(cfg.Paths.WorkingDir); err != nil {
				report("Working dir", statusError, err.Error())
			} else {
				report("Working dir", statusOK, cfg.Paths.WorkingDir)
			}
			if lock, err := artifacts.Acquire(cfg.Paths.StateDir, cfg.Paths.WorkingDir); err != nil {
				report("Lock", statusWarn, err.Error())
			} else {
				_ = lock.Release()
				report("Lock", statusOK, "free")
			}
			if store, err := transcript.OpenFromConfig(cmd.Context(), cfg); err != nil {
				report("Transcript", statusWarn, err.Error())
			} else {
				_ = store.Close()
				report("Transcript", statusOK, store.Path())
			}

			if failures > 0 {
				return fmt.Errorf("doctor found %d problem(s)", failures)
			}
			return nil
		},
	}
}

func keyStatus(key string) statusKind {
	if strings.TrimSpace(key) == "" {
		return statusError
	}
	return statusOK
}

func keyMessage(key, envName string) string {
	if strings.TrimSpace(key) == "" {
		return "not set (config or " + envName + ")"
	}
	return "configured"
}

func checkWritable(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return errors.New(dir + " is not a directory")
	}
	probe, err := os.CreateTemp(dir, ".commentator-doctor-*")
	if err != nil {
		return fmt.Errorf("not writable: %w", err)
	}
	name := probe.Name()
	_ = probe.Close()
	return os.Remove(filepath.Clean(name))
}
