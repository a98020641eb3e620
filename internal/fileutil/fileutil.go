// Package fileutil holds the small filesystem helpers shared by the renderer,
// the assembler, and the lifecycle manager.
package fileutil

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// TempSibling creates an empty temporary file in dst's directory whose name
// keeps dst's extension, so tools that infer the container from the name
// (ffmpeg) still see the right format. The caller owns the returned path.
func TempSibling(dst string) (string, error) {
	dir := filepath.Dir(dst)
	ext := filepath.Ext(dst)
	base := strings.TrimSuffix(filepath.Base(dst), ext)
	f, err := os.CreateTemp(dir, "."+base+".*.partial"+ext)
	if err != nil {
		return "", fmt.Errorf("create temp beside %s: %w", dst, err)
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return "", err
	}
	return name, nil
}

// WriteAtomic streams content produced by write into a temporary sibling of
// dst and renames it into place. Readers never observe a partial file; on any
// error the temporary file is removed and dst is left untouched.
func WriteAtomic(dst string, perm os.FileMode, write func(io.Writer) error) (err error) {
	tmp, err := TempSibling(dst)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if werr := write(f); werr != nil {
		_ = f.Close()
		return werr
	}
	if err = f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp, perm); err != nil {
		return err
	}
	return os.Rename(tmp, dst)
}

// RemoveIfExists deletes path and reports whether something was removed.
// A missing file is not an error.
func RemoveIfExists(path string) (bool, error) {
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
