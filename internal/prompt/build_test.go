package prompt

import (
	"errors"
	"strings"
	"testing"

	"commentator/internal/conversation"
	"commentator/internal/services"
	"commentator/internal/services/llm"
)

func fraction(v float64) *float64 { return &v }

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"play-by-play", PlayByPlay, false},
		{" Color ", Color, false},
		{"PLAY-BY-PLAY", PlayByPlay, false},
		{"analyst", "", true},
		{"", "", true},
	}
	for _, tc := range tests {
		got, err := ParseRole(tc.in)
		if tc.wantErr {
			if !errors.Is(err, services.ErrConfiguration) {
				t.Fatalf("ParseRole(%q) expected configuration error, got %v", tc.in, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("ParseRole(%q) = %q, %v", tc.in, got, err)
		}
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		role Role
		want string
	}{
		{PlayByPlay, "Play-By-Play"},
		{Color, "Color"},
		{Role("pit-lane"), "pit-lane"},
	}
	for _, tt := range tests {
		if got := tt.role.DisplayName(); got != tt.want {
			t.Fatalf("%q.DisplayName() = %q, want %q", tt.role, got, tt.want)
		}
	}
}

func TestBuildOrdersMessages(t *testing.T) {
	history := []conversation.Turn{
		{Role: conversation.RoleUser, Text: "Smith overtakes Jones"},
		{Role: conversation.RoleAssistant, Name: "Play-By-Play", Text: "Smith is through!"},
	}
	p, err := Build(Input{
		Role:        PlayByPlay,
		Tone:        "excited",
		Auxiliary:   "It is the final lap.",
		Event:       "Garcia spins at the hairpin",
		LapFraction: fraction(0.4567),
		League:      League{Name: "Sunday Sprint League", ShortName: "ssl"},
		Race:        Race{Track: "Spa", City: "Stavelot", Country: "Belgium", AirTemp: "18C", TrackTemp: "24C", Skies: "Partly Cloudy"},
		History:     history,
		Image:       &Image{DataURL: "data:image/jpeg;base64,AAAA"},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	msgs := p.Messages
	if len(msgs) != 8 {
		t.Fatalf("expected 8 messages, got %d", len(msgs))
	}
	wantNames := []string{NameInstructions, NameContext, NameEventInfo}
	for i, name := range wantNames {
		if msgs[i].Role != llm.RoleSystem || msgs[i].Name != name {
			t.Fatalf("message %d: want system %s, got %s %s", i, name, msgs[i].Role, msgs[i].Name)
		}
	}
	instr := msgs[0].Text
	for _, want := range []string{"play-by-play commentator", "only their surname", "Use a excited tone.", "It is the final lap."} {
		if !strings.Contains(instr, want) {
			t.Fatalf("instructions missing %q: %s", want, instr)
		}
	}
	if !strings.Contains(msgs[1].Text, "Sunday Sprint League") || !strings.Contains(msgs[1].Text, "S-S-L") {
		t.Fatalf("unexpected context: %s", msgs[1].Text)
	}
	if !strings.Contains(msgs[2].Text, "Spa in Stavelot, Belgium") || !strings.Contains(msgs[2].Text, "skies are partly cloudy") {
		t.Fatalf("unexpected event info: %s", msgs[2].Text)
	}
	if msgs[3].Text != "Smith overtakes Jones" || msgs[4].Name != "Play-By-Play" {
		t.Fatalf("history not copied in order: %+v %+v", msgs[3], msgs[4])
	}
	if msgs[5].Role != llm.RoleUser || msgs[5].Text != "Garcia spins at the hairpin" {
		t.Fatalf("unexpected event turn %+v", msgs[5])
	}
	if !strings.Contains(msgs[6].Text, "45.67% of the lap") || !strings.Contains(msgs[6].Text, "message history") {
		t.Fatalf("unexpected lap hint %q", msgs[6].Text)
	}
	if !msgs[7].HasImage() || msgs[7].Parts[1].ImageURL.Detail != "low" {
		t.Fatalf("expected low-detail image turn, got %+v", msgs[7])
	}
	if p.UserTurn.Text != "Garcia spins at the hairpin" || p.UserTurn.Role != conversation.RoleUser {
		t.Fatalf("unexpected user turn %+v", p.UserTurn)
	}
}

func TestBuildMinimal(t *testing.T) {
	p, err := Build(Input{Role: Color, Tone: "calm", Event: "Yellow flag in sector 2"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(p.Messages) != 2 {
		t.Fatalf("expected instructions and event only, got %d", len(p.Messages))
	}
	if !strings.Contains(p.Messages[0].Text, "color commentator") {
		t.Fatalf("expected color persona: %s", p.Messages[0].Text)
	}
	if strings.Contains(p.Messages[0].Text, "play-by-play commentator") {
		t.Fatalf("color persona must not include play-by-play text")
	}
}

func TestBuildLapHintAtZero(t *testing.T) {
	p, err := Build(Input{Role: PlayByPlay, Event: "Start", LapFraction: fraction(0)})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	last := p.Messages[len(p.Messages)-1]
	if !strings.Contains(last.Text, "occurred at 0% of the lap") {
		t.Fatalf("expected lap hint for zero fraction, got %q", last.Text)
	}
}

func TestBuildRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		in   Input
		kind error
	}{
		{"unknown role", Input{Role: "analyst", Event: "x"}, services.ErrConfiguration},
		{"empty event", Input{Role: Color, Event: "  "}, services.ErrValidation},
		{"fraction too large", Input{Role: Color, Event: "x", LapFraction: fraction(1.2)}, services.ErrValidation},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Build(tc.in); !errors.Is(err, tc.kind) {
				t.Fatalf("expected %v, got %v", tc.kind, err)
			}
		})
	}
}

func TestSpellOut(t *testing.T) {
	tests := map[string]string{
		"abc":        "A-B-C",
		"IMSA":       "I-M-S-A",
		"Pro Series": "Pro Series",
		" f1 ":       "F-1",
		"dtm":        "D-T-M",
		"éra":        "É-R-A",
	}
	for in, want := range tests {
		if got := SpellOut(in); got != want {
			t.Fatalf("SpellOut(%q) = %q, want %q", in, got, want)
		}
	}
}
