package main

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"commentator/internal/artifacts"
	"commentator/internal/services"
	"commentator/internal/testsupport"
)

func seedWorkingDir(t *testing.T, dir string) {
	t.Helper()
	testsupport.Touch(t, filepath.Join(dir, "race.mp4"), time.Now().Add(-time.Minute))
	testsupport.WriteFile(t, filepath.Join(dir, "commentary_1500.mp3"), 32)
	testsupport.WriteFile(t, filepath.Join(dir, "commentary_62000.mp3"), 32)
	testsupport.WriteFile(t, filepath.Join(dir, artifacts.FrameName), 32)
}

func TestArtifactsListsClipsAndVideo(t *testing.T) {
	env := setupCLITestEnv(t)
	seedWorkingDir(t, env.cfg.Paths.WorkingDir)

	out, _, err := runCLI(t, env.configPath, "artifacts")
	if err != nil {
		t.Fatalf("artifacts: %v", err)
	}
	requireContains(t, out, "race.mp4")
	requireContains(t, out, "commentary_1500.mp3")
	requireContains(t, out, "1:02.000")

	out, _, err = runCLI(t, env.configPath, "artifacts", "--json")
	if err != nil {
		t.Fatalf("artifacts --json: %v", err)
	}
	var listing artifactListing
	if err := json.Unmarshal([]byte(out), &listing); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if len(listing.Clips) != 2 || listing.Clips[0].OffsetMs != 1500 {
		t.Fatalf("unexpected clips: %+v", listing.Clips)
	}
	if listing.Video == nil || listing.Video.Name != "race.mp4" {
		t.Fatalf("unexpected video: %+v", listing.Video)
	}
}

func TestArtifactsReportsMalformedClip(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteFile(t, filepath.Join(env.cfg.Paths.WorkingDir, "commentary_-5.mp3"), 8)

	out, _, err := runCLI(t, env.configPath, "artifacts")
	if err != nil {
		t.Fatalf("artifacts: %v", err)
	}
	requireContains(t, out, "Recording: none")
	requireContains(t, out, "[WARN]")
}

func TestCancelRemovesArtifacts(t *testing.T) {
	env := setupCLITestEnv(t)
	dir := env.cfg.Paths.WorkingDir
	seedWorkingDir(t, dir)
	testsupport.WriteFile(t, filepath.Join(dir, "notes.txt"), 8)
	// frame.png is where the capture tool drops raw frames by default.
	testsupport.WriteFile(t, filepath.Join(dir, "frame.png"), 8)

	out, _, err := runCLI(t, env.configPath, "cancel", "--dry-run")
	if err != nil {
		t.Fatalf("cancel --dry-run: %v", err)
	}
	requireContains(t, out, "would remove "+filepath.Join(dir, "race.mp4"))
	requireContains(t, out, "would remove "+filepath.Join(dir, "frame.png"))
	if !testsupport.Exists(t, filepath.Join(dir, "race.mp4")) {
		t.Fatal("dry run removed the recording")
	}

	out, _, err = runCLI(t, env.configPath, "cancel")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	requireContains(t, out, "Removed 5 files")
	for _, name := range []string{"race.mp4", "commentary_1500.mp3", "commentary_62000.mp3", artifacts.FrameName, "frame.png"} {
		if testsupport.Exists(t, filepath.Join(dir, name)) {
			t.Fatalf("%s survived cancel", name)
		}
	}
	if !testsupport.Exists(t, filepath.Join(dir, "notes.txt")) {
		t.Fatal("cancel removed an unrelated file")
	}
}

func TestCancelRefusesWhileLocked(t *testing.T) {
	env := setupCLITestEnv(t)
	seedWorkingDir(t, env.cfg.Paths.WorkingDir)

	lock, err := artifacts.Acquire(env.cfg.Paths.StateDir, env.cfg.Paths.WorkingDir)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer lock.Release()

	_, _, err = runCLI(t, env.configPath, "cancel")
	if services.Kind(err) != services.KindBusy {
		t.Fatalf("expected busy error, got %v", err)
	}
	if !testsupport.Exists(t, filepath.Join(env.cfg.Paths.WorkingDir, "race.mp4")) {
		t.Fatal("locked cancel removed files")
	}
}

func TestAssembleRequiresOutput(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, env.configPath, "assemble")
	if services.Kind(err) != services.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAssembleWithoutRecordingFails(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteFile(t, filepath.Join(env.cfg.Paths.WorkingDir, "commentary_100.mp3"), 8)

	_, _, err := runCLI(t, env.configPath, "assemble", "--output", filepath.Join(env.baseDir, "out.mp4"))
	if services.Kind(err) != services.KindArtifact {
		t.Fatalf("expected artifact error, got %v", err)
	}
	if !testsupport.Exists(t, filepath.Join(env.cfg.Paths.WorkingDir, "commentary_100.mp3")) {
		t.Fatal("failed assembly removed a clip")
	}
}

func TestFormatOffset(t *testing.T) {
	tests := []struct {
		offset int64
		want   string
	}{
		{0, "0:00.000"},
		{1500, "0:01.500"},
		{62000, "1:02.000"},
		{3_600_250, "60:00.250"},
	}
	for _, tt := range tests {
		if got := formatOffset(tt.offset); got != tt.want {
			t.Fatalf("formatOffset(%d) = %q, want %q", tt.offset, got, tt.want)
		}
	}
}
