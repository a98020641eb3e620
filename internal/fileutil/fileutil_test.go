package fileutil

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteAtomicReplacesTarget(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "commentary_1200.mp3")
	if err := os.WriteFile(dst, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	err := WriteAtomic(dst, 0o644, func(w io.Writer) error {
		_, err := io.WriteString(w, "new audio")
		return err
	})
	if err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "new audio" {
		t.Fatalf("unexpected contents %q", got)
	}
	assertOnlyEntries(t, dir, "commentary_1200.mp3")
}

func TestWriteAtomicFailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "commentary_5.mp3")
	boom := errors.New("synthesis aborted")
	err := WriteAtomic(dst, 0o644, func(w io.Writer) error {
		_, _ = io.WriteString(w, "partial")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected write error, got %v", err)
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Fatalf("expected no destination file, stat err=%v", err)
	}
	assertOnlyEntries(t, dir)
}

func TestTempSiblingKeepsExtension(t *testing.T) {
	dir := t.TempDir()
	tmp, err := TempSibling(filepath.Join(dir, "race.mp4"))
	if err != nil {
		t.Fatalf("TempSibling: %v", err)
	}
	if filepath.Dir(tmp) != dir {
		t.Fatalf("expected temp in %s, got %s", dir, tmp)
	}
	if !strings.HasSuffix(tmp, ".mp4") || !strings.HasPrefix(filepath.Base(tmp), ".race.") {
		t.Fatalf("unexpected temp name %s", tmp)
	}
}

func TestRemoveIfExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "screenshot.png")
	removed, err := RemoveIfExists(path)
	if err != nil || removed {
		t.Fatalf("missing file: removed=%v err=%v", removed, err)
	}
	if err := os.WriteFile(path, []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}
	removed, err = RemoveIfExists(path)
	if err != nil || !removed {
		t.Fatalf("existing file: removed=%v err=%v", removed, err)
	}
}

func assertOnlyEntries(t *testing.T, dir string, names ...string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != len(names) {
		var got []string
		for _, e := range entries {
			got = append(got, e.Name())
		}
		t.Fatalf("expected entries %v, got %v", names, got)
	}
	for i, e := range entries {
		if e.Name() != names[i] {
			t.Fatalf("expected entries %v, got %s at %d", names, e.Name(), i)
		}
	}
}
