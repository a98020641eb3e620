package pacing

import (
	"context"
	"log/slog"
	"time"

	"commentator/internal/logging"
)

// Slack is how long the flow must still wait so the next line starts after
// the current clip ends: rendered minus the time spent synthesizing speech and
// generating text, floored at zero.
func Slack(rendered, speechElapsed, textElapsed time.Duration) time.Duration {
	remaining := rendered - speechElapsed - textElapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Controller blocks the generation flow for the computed slack.
type Controller struct {
	clock  Clock
	logger *slog.Logger
}

// NewController returns a controller on clock (the wall clock when nil).
func NewController(clock Clock, logger *slog.Logger) *Controller {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Controller{clock: clock, logger: logging.NewComponentLogger(logger, "pacing")}
}

// Pace waits out the slack for a rendered clip and returns the slack it
// computed. Only ctx cancellation (process shutdown) ends the wait early, in
// which case ctx.Err() is returned.
func (c *Controller) Pace(ctx context.Context, rendered, speechElapsed, textElapsed time.Duration) (time.Duration, error) {
	slack := Slack(rendered, speechElapsed, textElapsed)
	logging.WithContext(ctx, c.logger).Debug("pacing",
		logging.Duration("rendered", rendered),
		logging.Duration("speech_elapsed", speechElapsed),
		logging.Duration("text_elapsed", textElapsed),
		logging.Duration("slack", slack),
	)
	if slack == 0 {
		return 0, nil
	}
	if err := c.clock.Sleep(ctx, slack); err != nil {
		return slack, err
	}
	return slack, nil
}

// Clock returns the controller's clock.
func (c *Controller) Clock() Clock {
	return c.clock
}
