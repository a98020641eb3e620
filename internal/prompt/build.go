package prompt

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"commentator/internal/conversation"
	"commentator/internal/services"
	"commentator/internal/services/llm"
)

// System message names, carried in the name field of each system message.
const (
	NameInstructions = "instructions"
	NameContext      = "context"
	NameEventInfo    = "event_info"
)

// VisionInstruction accompanies an attached frame.
const VisionInstruction = "Use this image in addition to the other information to help you commentate."

// League describes the league the session belongs to. Both fields are optional.
type League struct {
	Name      string `json:"name,omitempty"`
	ShortName string `json:"short_name,omitempty"`
}

// Race carries the current track and weather facts.
type Race struct {
	Track     string `json:"track,omitempty"`
	City      string `json:"city,omitempty"`
	Country   string `json:"country,omitempty"`
	AirTemp   string `json:"air_temp,omitempty"`
	TrackTemp string `json:"track_temp,omitempty"`
	Skies     string `json:"skies,omitempty"`
}

// Empty reports whether no race facts are present.
func (r Race) Empty() bool {
	return r == Race{}
}

// Image is a frame attached to a vision-capable call.
type Image struct {
	// DataURL is a data:image/...;base64 URL.
	DataURL string
}

// Input is everything needed to build one call.
type Input struct {
	Role      Role
	Tone      string
	Auxiliary string
	Event     string
	// LapFraction is the position around the lap in [0,1], or nil.
	LapFraction *float64
	League      League
	Race        Race
	History     []conversation.Turn
	Image       *Image
}

// Prompt is the result of Build.
type Prompt struct {
	Messages []llm.Message
	// UserTurn is the event turn to remember once a line is produced.
	UserTurn conversation.Turn
}

// Build assembles the message list for in.
func Build(in Input) (Prompt, error) {
	if in.Role.persona() == "" {
		return Prompt{}, services.Wrap(services.ErrConfiguration, "prompt", "build",
			fmt.Sprintf("unknown role %q", in.Role), nil)
	}
	event := strings.TrimSpace(in.Event)
	if event == "" {
		return Prompt{}, services.Wrap(services.ErrValidation, "prompt", "build", "event description is empty", nil)
	}
	if in.LapFraction != nil && (*in.LapFraction < 0 || *in.LapFraction > 1) {
		return Prompt{}, services.Wrap(services.ErrValidation, "prompt", "build",
			fmt.Sprintf("lap fraction %v outside [0,1]", *in.LapFraction), nil)
	}

	messages := make([]llm.Message, 0, len(in.History)+6)
	messages = append(messages, llm.Message{
		Role: llm.RoleSystem,
		Name: NameInstructions,
		Text: instructions(in.Role, in.Tone, in.Auxiliary),
	})
	if text := leagueContext(in.League); text != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Name: NameContext, Text: text})
	}
	if !in.Race.Empty() {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Name: NameEventInfo, Text: raceInfo(in.Race)})
	}
	for _, turn := range in.History {
		messages = append(messages, turn.Message())
	}

	userTurn := conversation.Turn{Role: conversation.RoleUser, Text: event}
	messages = append(messages, userTurn.Message())

	if in.LapFraction != nil {
		messages = append(messages, llm.Message{Role: llm.RoleUser, Text: LapHint(*in.LapFraction)})
	}
	if in.Image != nil && strings.TrimSpace(in.Image.DataURL) != "" {
		messages = append(messages, llm.Message{
			Role: llm.RoleUser,
			Parts: []llm.ContentPart{
				llm.TextPart(VisionInstruction),
				llm.ImagePart(in.Image.DataURL, "low"),
			},
		})
	}
	return Prompt{Messages: messages, UserTurn: userTurn}, nil
}

func instructions(role Role, tone, auxiliary string) string {
	var b strings.Builder
	b.WriteString(role.persona())
	b.WriteString("Almost always refer to drivers by only their surname. ")
	if tone = strings.TrimSpace(tone); tone != "" {
		fmt.Fprintf(&b, "Use a %s tone. ", tone)
	}
	b.WriteString(strings.TrimSpace(auxiliary))
	return strings.TrimSpace(b.String())
}

func leagueContext(league League) string {
	var parts []string
	if name := strings.TrimSpace(league.Name); name != "" {
		parts = append(parts, fmt.Sprintf("The league is %s.", name))
	}
	if short := strings.TrimSpace(league.ShortName); short != "" {
		parts = append(parts, fmt.Sprintf("The league can be abbreviated as %s.", SpellOut(short)))
	}
	return strings.Join(parts, " ")
}

// SpellOut turns a single-word abbreviation into hyphen-separated capitals
// ("abc" becomes "A-B-C") so speech synthesis reads it letter by letter.
// Multi-word names are returned unchanged.
func SpellOut(short string) string {
	short = strings.TrimSpace(short)
	if len(strings.Fields(short)) != 1 {
		return short
	}
	upper := cases.Upper(language.English)
	letters := make([]string, 0, len(short))
	for _, r := range short {
		letters = append(letters, upper.String(string(r)))
	}
	return strings.Join(letters, "-")
}

func raceInfo(race Race) string {
	var parts []string
	if race.Track != "" {
		where := race.Track
		location := joinNonEmpty(", ", race.City, race.Country)
		if location != "" {
			where += " in " + location
		}
		parts = append(parts, fmt.Sprintf("The race is at %s.", where))
	}
	if race.AirTemp != "" {
		parts = append(parts, fmt.Sprintf("The air temperature is %s.", race.AirTemp))
	}
	if race.TrackTemp != "" {
		parts = append(parts, fmt.Sprintf("The track temperature is %s.", race.TrackTemp))
	}
	if race.Skies != "" {
		parts = append(parts, fmt.Sprintf("The skies are %s.", strings.ToLower(race.Skies)))
	}
	return strings.Join(parts, " ")
}

// LapHint describes where on the lap the event happened. The model may infer
// the corner but is told to consult the history and not call corners every time.
func LapHint(fraction float64) string {
	pct := strconv.FormatFloat(roundTo(fraction*100, 2), 'f', -1, 64)
	return "The event occurred at " + pct + "% of the lap. " +
		"Infer the corner name or number based on that. " +
		"Occasionally announce the corner name or number, but do not do it every time. " +
		"Check the message history to make sure you are not announcing corners too often."
}

func roundTo(value float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(value*scale) / scale
}

func joinNonEmpty(sep string, values ...string) string {
	kept := values[:0:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			kept = append(kept, v)
		}
	}
	return strings.Join(kept, sep)
}
