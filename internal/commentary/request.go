package commentary

import (
	"fmt"
	"strings"
	"time"

	"commentator/internal/prompt"
	"commentator/internal/services"
)

// Request is one detected event as supplied by the event source.
type Request struct {
	Event string `json:"event"`
	// LapFraction is the car's position around the lap in [0,1].
	LapFraction *float64    `json:"lap_fraction,omitempty"`
	Role        string      `json:"role"`
	Tone        string      `json:"tone,omitempty"`
	Auxiliary   string      `json:"auxiliary,omitempty"`
	Yelling     bool        `json:"yelling,omitempty"`
	Race        prompt.Race `json:"race,omitzero"`
}

// Validate checks the fields that can be rejected before any backend call.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Event) == "" {
		return services.Wrap(services.ErrValidation, "commentary", "request", "event is empty", nil)
	}
	if r.LapFraction != nil && (*r.LapFraction < 0 || *r.LapFraction > 1) {
		return services.Wrap(services.ErrValidation, "commentary", "request",
			fmt.Sprintf("lap_fraction %v outside [0,1]", *r.LapFraction), nil)
	}
	if _, err := prompt.ParseRole(r.Role); err != nil {
		return err
	}
	return nil
}

// Line is a generated commentary line.
type Line struct {
	Text  string      `json:"text"`
	Role  prompt.Role `json:"role"`
	Voice string      `json:"voice"`
	// Speaker is the role's display name.
	Speaker string `json:"speaker"`
	Yelling bool   `json:"yelling,omitempty"`
	// Vision reports whether a frame was attached to the call.
	Vision      bool          `json:"vision,omitempty"`
	TextElapsed time.Duration `json:"text_elapsed"`
}
