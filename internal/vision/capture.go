package vision

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder
	"io/fs"
	"os"

	"commentator/internal/services"
)

// ErrNoFrame reports that no frame is available yet.
var ErrNoFrame = errors.New("vision: no frame available")

// Capturer returns the current frame.
type Capturer interface {
	Capture(ctx context.Context) (image.Image, error)
}

// FileCapturer decodes the image an external tool keeps writing to Path.
type FileCapturer struct {
	Path string
}

// NewFileCapturer returns a capturer reading path.
func NewFileCapturer(path string) *FileCapturer {
	return &FileCapturer{Path: path}
}

func (c *FileCapturer) Capture(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(c.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoFrame
		}
		return nil, services.Wrap(services.ErrArtifact, "vision", "capture", c.Path, err)
	}
	defer f.Close()
	img, format, err := image.Decode(f)
	if err != nil {
		return nil, services.Wrap(services.ErrArtifact, "vision", "decode", fmt.Sprintf("%s (%s)", c.Path, format), err)
	}
	return img, nil
}
