package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"commentator/internal/logging"
	"commentator/internal/services"
	"commentator/internal/session"
)

// replayEntry is one line of a replay file: an event plus an optional delay
// before it is dispatched.
type replayEntry struct {
	session.Event
	WaitMs int64 `json:"wait_ms,omitempty"`
}

func newReplayCommand(ctx *commandContext) *cobra.Command {
	var output string
	var cancelAtEnd bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "replay <events.jsonl>",
		Short: "Feed a JSON-lines event file through a commentary session",
		Long: `Replay reads one event per line and runs each through the same
generate, render, and pace flow the HTTP surface uses. Blank lines and lines
starting with # are ignored. A "wait_ms" field delays dispatch of that event.

With --output the session is exported when the file is exhausted; with
--cancel its artifacts are removed instead. Otherwise the clips are left in
the working directory for a later "commentator assemble".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "" && cancelAtEnd {
				return errors.New("--output and --cancel are mutually exclusive")
			}
			entries, err := readReplayFile(args[0])
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := buildRuntime(runCtx, cfg, logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			sess, err := rt.newSession(runCtx)
			if err != nil {
				return err
			}
			defer sess.Close()

			out := cmd.OutOrStdout()
			var rows [][]string
			for i, entry := range entries {
				if err := waitFor(runCtx, time.Duration(entry.WaitMs)*time.Millisecond); err != nil {
					return err
				}
				outcome, err := sess.Handle(runCtx, entry.Event)
				if err != nil && outcome.Artifact == "" {
					logging.WarnWithContext(logger, "replay event failed", "replay_event_failed",
						logging.Int("line", i+1),
						logging.String(logging.FieldErrorKind, services.Kind(err)),
						logging.Error(err),
					)
					if errors.Is(err, context.Canceled) || services.Fatal(err) {
						return err
					}
					rows = append(rows, []string{fmt.Sprint(i + 1), "-", "-", "error: " + err.Error()})
					continue
				}
				if jsonOutput {
					if err := writeJSONLine(out, outcome); err != nil {
						return err
					}
				} else {
					rows = append(rows, []string{
						fmt.Sprint(i + 1),
						formatOffset(outcome.OffsetMs),
						outcome.Line.Speaker,
						outcome.Line.Text,
					})
				}
				if err != nil {
					// Pacing was interrupted after the clip was rendered.
					return err
				}
			}
			if !jsonOutput && len(rows) > 0 {
				fmt.Fprint(out, renderTable([]string{"#", "Offset", "Speaker", "Line"}, rows,
					[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft}))
			}

			switch {
			case output != "":
				result, err := sess.Finish(runCtx, output)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Exported %s (%d clips, %s)\n", result.OutputPath, len(result.Clips), result.Elapsed.Round(time.Millisecond))
			case cancelAtEnd:
				report, err := sess.Cancel(runCtx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Cancelled session %s (%d files removed)\n", sess.ID(), len(report.Removed))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Export the session to this file when the replay ends")
	cmd.Flags().BoolVar(&cancelAtEnd, "cancel", false, "Discard the session's artifacts when the replay ends")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print each outcome as a JSON line")
	return cmd
}

func readReplayFile(path string) ([]replayEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open replay file: %w", err)
	}
	defer file.Close()
	return parseReplay(file)
}

func parseReplay(r io.Reader) ([]replayEntry, error) {
	var entries []replayEntry
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var entry replayEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, services.Wrap(services.ErrValidation, "replay", "parse", fmt.Sprintf("line %d", lineNo), err)
		}
		if entry.WaitMs < 0 {
			return nil, services.Wrap(services.ErrValidation, "replay", "parse", fmt.Sprintf("line %d: wait_ms is negative", lineNo), nil)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read replay file: %w", err)
	}
	if len(entries) == 0 {
		return nil, services.Wrap(services.ErrValidation, "replay", "parse", "no events in replay file", nil)
	}
	return entries, nil
}

func waitFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func formatOffset(offsetMs int64) string {
	d := time.Duration(offsetMs) * time.Millisecond
	minutes := int64(d / time.Minute)
	seconds := float64(d%time.Minute) / float64(time.Second)
	return fmt.Sprintf("%d:%06.3f", minutes, seconds)
}
