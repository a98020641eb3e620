package timeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"commentator/internal/artifacts"
	"commentator/internal/logging"
	"commentator/internal/media/ffprobe"
	"commentator/internal/services"
	"commentator/internal/testsupport"
)

type fakeProber struct {
	video     ffprobe.Result
	durations map[string]float64
}

func (f *fakeProber) Inspect(context.Context, string) (ffprobe.Result, error) {
	return f.video, nil
}

func (f *fakeProber) Duration(_ context.Context, path string) (float64, error) {
	d, ok := f.durations[filepath.Base(path)]
	if !ok {
		return 0, services.Wrap(services.ErrArtifact, "test", "duration", path, nil)
	}
	return d, nil
}

type recordedRun struct {
	name string
	args []string
}

func newTestAssembler(probe Prober, run *[]recordedRun, fail error) *Assembler {
	a := NewAssembler(Settings{
		BaseVolume:     0.3,
		TailTrim:       50 * time.Millisecond,
		LoudnessTarget: -16,
		SampleRate:     44100,
		VideoCodec:     "libx264",
		AudioExt:       "mp3",
		VideoExts:      []string{"mp4", "mkv"},
	}, probe, logging.NewNop())
	a.WithCommandRunner(func(_ context.Context, stdout io.Writer, name string, args ...string) error {
		*run = append(*run, recordedRun{name: name, args: args})
		if fail != nil {
			return fail
		}
		fmt.Fprintf(stdout, "out_time_us=5000000\nprogress=continue\nout_time_us=10000000\nprogress=end\n")
		return os.WriteFile(args[len(args)-1], []byte("video"), 0o644)
	})
	return a
}

func seedSession(t *testing.T, dir string) {
	t.Helper()
	testsupport.WriteFile(t, filepath.Join(dir, "race.mp4"), 64)
	testsupport.WriteFile(t, filepath.Join(dir, "commentary_0.mp3"), 8)
	testsupport.WriteFile(t, filepath.Join(dir, "commentary_4200.mp3"), 8)
	testsupport.WriteFile(t, filepath.Join(dir, "commentary_9000.mp3"), 8)
	testsupport.WriteFile(t, filepath.Join(dir, artifacts.FrameName), 8)
}

func sessionProber() *fakeProber {
	return &fakeProber{
		video: ffprobe.Result{
			Streams: []ffprobe.Stream{{CodecType: "video"}, {CodecType: "audio"}},
			Format:  ffprobe.Format{Duration: "10"},
		},
		durations: map[string]float64{
			"commentary_0.mp3":    2,
			"commentary_4200.mp3": 3.5,
			"commentary_9000.mp3": 0.04,
		},
	}
}

func TestAssembleWritesOutputAndCleansUp(t *testing.T) {
	dir := t.TempDir()
	seedSession(t, dir)
	var runs []recordedRun
	a := newTestAssembler(sessionProber(), &runs, nil)

	out := filepath.Join(t.TempDir(), "final.mp4")
	result, err := a.Assemble(context.Background(), Request{WorkingDir: dir, OutputPath: out, Framerate: 60})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if !testsupport.Exists(t, out) {
		t.Fatalf("expected output at %s", out)
	}
	if len(result.Clips) != 2 || len(result.Skipped) != 1 {
		t.Fatalf("expected 2 mixed and 1 skipped clip, got %d and %d", len(result.Clips), len(result.Skipped))
	}
	for _, name := range []string{"race.mp4", "commentary_0.mp3", "commentary_4200.mp3", "commentary_9000.mp3", artifacts.FrameName} {
		if testsupport.Exists(t, filepath.Join(dir, name)) {
			t.Fatalf("expected %s to be removed", name)
		}
	}

	if len(runs) != 1 || runs[0].name != "ffmpeg" {
		t.Fatalf("expected one ffmpeg run, got %+v", runs)
	}
	joined := strings.Join(runs[0].args, " ")
	for _, want := range []string{
		"-progress pipe:1",
		"-map 0:v:0",
		"-map [mix]",
		"-c:v libx264",
		"-r 60",
		"-ar 44100",
		"-f mp4",
		"adelay=4200:all=1",
		"atrim=end=1.95",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("ffmpeg args missing %q: %s", want, joined)
		}
	}
	if strings.Contains(joined, "commentary_9000") {
		t.Fatalf("too-short clip should not be an input: %s", joined)
	}
}

func TestAssembleRefusesMalformedClipNames(t *testing.T) {
	tests := []string{"commentary_01000.mp3", "commentary_12s.mp3", "commentary_.mp3"}
	for _, bad := range tests {
		t.Run(bad, func(t *testing.T) {
			dir := t.TempDir()
			seedSession(t, dir)
			testsupport.WriteFile(t, filepath.Join(dir, bad), 8)
			var runs []recordedRun
			a := newTestAssembler(sessionProber(), &runs, nil)

			out := filepath.Join(t.TempDir(), "final.mp4")
			_, err := a.Assemble(context.Background(), Request{WorkingDir: dir, OutputPath: out, Framerate: 60})
			if services.Kind(err) != services.KindArtifact {
				t.Fatalf("expected artifact error, got %v", err)
			}
			if !strings.Contains(err.Error(), bad) {
				t.Fatalf("error should name %s: %v", bad, err)
			}
			if len(runs) != 0 {
				t.Fatalf("ffmpeg must not run, got %+v", runs)
			}
			if testsupport.Exists(t, out) {
				t.Fatal("no output expected")
			}
			for _, name := range []string{"race.mp4", "commentary_0.mp3", "commentary_4200.mp3", "commentary_9000.mp3", artifacts.FrameName, bad} {
				if !testsupport.Exists(t, filepath.Join(dir, name)) {
					t.Fatalf("%s should survive a refused export", name)
				}
			}
		})
	}
}

func TestAssembleRemovesConfiguredCapture(t *testing.T) {
	dir := t.TempDir()
	seedSession(t, dir)
	capture := filepath.Join(dir, "frame.png")
	testsupport.WriteFile(t, capture, 8)
	var runs []recordedRun
	a := newTestAssembler(sessionProber(), &runs, nil)
	a.settings.CapturePath = capture

	result, err := a.Assemble(context.Background(), Request{WorkingDir: dir, OutputPath: filepath.Join(t.TempDir(), "final.mp4"), Framerate: 60})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if testsupport.Exists(t, capture) {
		t.Fatal("expected the raw capture removed after export")
	}
	found := false
	for _, path := range result.Cleanup.Removed {
		found = found || path == capture
	}
	if !found {
		t.Fatalf("cleanup report should list %s: %+v", capture, result.Cleanup)
	}
}

func TestAssembleFailureDeletesNothing(t *testing.T) {
	dir := t.TempDir()
	seedSession(t, dir)
	var runs []recordedRun
	a := newTestAssembler(sessionProber(), &runs, errors.New("exit status 1"))

	outDir := t.TempDir()
	_, err := a.Assemble(context.Background(), Request{WorkingDir: dir, OutputPath: filepath.Join(outDir, "final.mkv"), Framerate: 30})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	for _, name := range []string{"race.mp4", "commentary_0.mp3", "commentary_4200.mp3", artifacts.FrameName} {
		if !testsupport.Exists(t, filepath.Join(dir, name)) {
			t.Fatalf("%s should survive a failed export", name)
		}
	}
	entries, _ := os.ReadDir(outDir)
	if len(entries) != 0 {
		t.Fatalf("expected no leftover temp files, found %d", len(entries))
	}
	if !strings.Contains(strings.Join(runs[0].args, " "), "-f matroska") {
		t.Fatalf("expected matroska muxer for .mkv output")
	}
}

func TestAssembleWithoutVideo(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "commentary_0.mp3"), 8)
	var runs []recordedRun
	a := newTestAssembler(sessionProber(), &runs, nil)
	_, err := a.Assemble(context.Background(), Request{WorkingDir: dir, OutputPath: filepath.Join(dir, "out.mp4"), Framerate: 60})
	if !errors.Is(err, services.ErrArtifact) {
		t.Fatalf("expected artifact error, got %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("ffmpeg should not run without a video")
	}
}

func TestAssembleSilentVideo(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "race.mp4"), 64)
	probe := &fakeProber{video: ffprobe.Result{
		Streams: []ffprobe.Stream{{CodecType: "video"}},
		Format:  ffprobe.Format{Duration: "8"},
	}}
	var runs []recordedRun
	a := newTestAssembler(probe, &runs, nil)
	if _, err := a.Assemble(context.Background(), Request{WorkingDir: dir, OutputPath: filepath.Join(t.TempDir(), "o.mp4"), Framerate: 60}); err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if !strings.Contains(strings.Join(runs[0].args, " "), "anullsrc=r=44100:cl=stereo,atrim=end=8[base]") {
		t.Fatalf("expected synthesized base track: %v", runs[0].args)
	}
}

func TestAssembleValidatesRequest(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "race.mp4"), 64)
	var runs []recordedRun
	a := newTestAssembler(sessionProber(), &runs, nil)

	tests := []struct {
		name string
		req  Request
	}{
		{"empty output", Request{WorkingDir: dir, Framerate: 60}},
		{"zero framerate", Request{WorkingDir: dir, OutputPath: filepath.Join(dir, "x.mp4")}},
		{"unknown format", Request{WorkingDir: dir, OutputPath: filepath.Join(dir, "x.avi"), Framerate: 60}},
		{"overwrites source", Request{WorkingDir: dir, OutputPath: filepath.Join(dir, "race.mp4"), Framerate: 60}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Assemble(context.Background(), tt.req)
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
	if len(runs) != 0 {
		t.Fatalf("ffmpeg should not run for invalid requests")
	}
}

func TestAssembleCancelled(t *testing.T) {
	dir := t.TempDir()
	seedSession(t, dir)
	var runs []recordedRun
	a := newTestAssembler(sessionProber(), &runs, context.Canceled)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := a.Assemble(ctx, Request{WorkingDir: dir, OutputPath: filepath.Join(t.TempDir(), "o.mp4"), Framerate: 60})
	if services.Kind(err) != services.KindCancelled {
		t.Fatalf("expected cancelled kind, got %q (%v)", services.Kind(err), err)
	}
}
