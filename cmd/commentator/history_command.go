package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"commentator/internal/services"
	"commentator/internal/transcript"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history [session-id|latest]",
		Short: "Show recorded sessions, or the lines of one session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := transcript.OpenFromConfig(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if len(args) == 0 {
				sessions, err := store.Sessions(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, sessions)
				}
				if len(sessions) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No sessions recorded")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderSessions(sessions))
				return nil
			}

			var sess *transcript.Session
			if strings.EqualFold(args[0], "latest") {
				sess, err = store.Latest(cmd.Context())
			} else {
				sess, err = store.Session(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			if sess == nil {
				return services.Wrap(services.ErrValidation, "cli", "history", fmt.Sprintf("session %q not found", args[0]), nil)
			}
			lines, err := store.Lines(cmd.Context(), sess.ID)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, struct {
					Session *transcript.Session `json:"session"`
					Lines   []transcript.Line   `json:"lines"`
				}{sess, lines})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Session %s (%s)\n", sess.ID, sess.State)
			fmt.Fprintf(out, "Recording start: %s\n", sess.RecordingStart.Local().Format(time.DateTime))
			if sess.OutputPath != "" {
				fmt.Fprintf(out, "Output: %s\n", sess.OutputPath)
			}
			if sess.ErrorMessage != "" {
				fmt.Fprintf(out, "Error: %s\n", sess.ErrorMessage)
			}
			if len(lines) == 0 {
				fmt.Fprintln(out, "No lines recorded")
				return nil
			}
			fmt.Fprint(out, renderLines(lines))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum sessions to list")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func renderSessions(sessions []*transcript.Session) string {
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, []string{
			shortID(s.ID),
			string(s.State),
			s.CreatedAt.Local().Format(time.DateTime),
			fmt.Sprint(s.LineCount),
			s.OutputPath,
		})
	}
	return renderTable(
		[]string{"Session", "State", "Started", "Lines", "Output"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	)
}

func renderLines(lines []transcript.Line) string {
	rows := make([][]string, 0, len(lines))
	for _, line := range lines {
		rows = append(rows, []string{
			formatOffset(line.OffsetMs),
			line.Role,
			line.Duration.Round(10 * time.Millisecond).String(),
			line.Text,
		})
	}
	return renderTable(
		[]string{"Offset", "Role", "Clip", "Line"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft},
	)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
