package prompt

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"commentator/internal/services"
)

// Role is the commentator persona a line is written for.
type Role string

const (
	PlayByPlay Role = "play-by-play"
	Color      Role = "color"
)

// Roles lists every supported role.
var Roles = []Role{PlayByPlay, Color}

// ParseRole accepts exactly "play-by-play" or "color" (case-insensitive).
// Anything else is a configuration error; there is no fallback persona.
func ParseRole(value string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(value))) {
	case PlayByPlay:
		return PlayByPlay, nil
	case Color:
		return Color, nil
	}
	return "", services.Wrap(services.ErrConfiguration, "prompt", "parse role",
		fmt.Sprintf("unknown role %q (want %q or %q)", value, PlayByPlay, Color), nil)
}

// DisplayName is the speaker label attached to assistant turns: the role
// title-cased word by word, so play-by-play reads "Play-By-Play".
func (r Role) DisplayName() string {
	switch r {
	case PlayByPlay, Color:
		return cases.Title(language.English).String(string(r))
	default:
		return string(r)
	}
}

func (r Role) persona() string {
	switch r {
	case PlayByPlay:
		return "You are an iRacing play-by-play commentator. " +
			"You will respond with only one sentence. " +
			"Do not provide too much detail. Focus on the action. " +
			`Do not just say the word "play-by-play". `
	case Color:
		return "You are an iRacing color commentator. " +
			"You will respond with one to two short sentences. " +
			"Stick to providing insight or context that enhances the viewer's understanding. " +
			"Do not make up corner names or numbers. " +
			`Do not just say the word "color". `
	default:
		return ""
	}
}
