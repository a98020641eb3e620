package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"commentator/internal/artifacts"
	"commentator/internal/services"
	"commentator/internal/testsupport"
)

func TestParseReplay(t *testing.T) {
	input := strings.Join([]string{
		"# qualifying",
		`{"event":"Pole lap","role":"play-by-play","lap_fraction":0.5}`,
		"",
		`{"event":"What a lap","role":"color","wait_ms":250,"yelling":true}`,
	}, "\n")

	entries, err := parseReplay(strings.NewReader(input))
	if err != nil {
		t.Fatalf("parseReplay: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Event.Event != "Pole lap" || entries[0].LapFraction == nil || *entries[0].LapFraction != 0.5 {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].WaitMs != 250 || !entries[1].Yelling || entries[1].Role != "color" {
		t.Fatalf("unexpected second entry: %+v", entries[1])
	}
}

func TestParseReplayRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", "\n# nothing\n"},
		{"malformed json", `{"event":`},
		{"negative wait", `{"event":"x","role":"color","wait_ms":-1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseReplay(strings.NewReader(tt.input))
			if services.Kind(err) != services.KindValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestReplayDrivesSessionAndJournal(t *testing.T) {
	var completions atomic.Int32
	llmServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		completions.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": "Hamilton dives down the inside!"}}},
		})
	}))
	defer llmServer.Close()

	var (
		mu     sync.Mutex
		voices []string
	)
	ttsServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		voices = append(voices, filepath.Base(r.URL.Path))
		mu.Unlock()
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3-fake-audio"))
	}))
	defer ttsServer.Close()

	env := setupCLITestEnv(t, testsupport.WithBackends(llmServer.URL, ttsServer.URL))
	env.cfg.Export.FFprobeBinary = writeScript(t, env, "ffprobe", `echo '{"format":{"duration":"0.020"},"streams":[]}'`)
	writeTestConfig(t, env.configPath, env.cfg)

	events := filepath.Join(env.baseDir, "events.jsonl")
	content := strings.Join([]string{
		`{"event":"Hamilton overtakes Russell for P2","role":"play-by-play"}`,
		`{"event":"","role":"color"}`,
		`{"event":"Hamilton is flying","role":"color","wait_ms":5}`,
	}, "\n")
	if err := os.WriteFile(events, []byte(content), 0o644); err != nil {
		t.Fatalf("write events: %v", err)
	}

	out, _, err := runCLI(t, env.configPath, "replay", events)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	requireContains(t, out, "Hamilton dives down the inside!")
	requireContains(t, out, "error:")
	if got := completions.Load(); got != 2 {
		t.Fatalf("expected 2 completions, got %d", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(voices) != 2 || voices[0] != env.cfg.Commentary.PlayByPlayVoice || voices[1] != env.cfg.Commentary.ColorVoice {
		t.Fatalf("unexpected voices: %v", voices)
	}

	clips, err := artifacts.ScanAudio(env.cfg.Paths.WorkingDir, env.cfg.TTS.AudioExt)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(clips) != 2 {
		t.Fatalf("expected 2 clips, got %+v", clips)
	}

	out, _, err = runCLI(t, env.configPath, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "active")

	out, _, err = runCLI(t, env.configPath, "history", "latest")
	if err != nil {
		t.Fatalf("history latest: %v", err)
	}
	requireContains(t, out, "Hamilton dives down the inside!")
	requireContains(t, out, "play-by-play")
}

func TestReplayRejectsConflictingFlags(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, env.configPath, "replay", "events.jsonl", "--output", "out.mp4", "--cancel")
	if err == nil || !strings.Contains(err.Error(), "mutually exclusive") {
		t.Fatalf("expected flag conflict error, got %v", err)
	}
}
