package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/corona10/goimagehash"
	"github.com/nfnt/resize"

	"commentator/internal/artifacts"
	"commentator/internal/config"
	"commentator/internal/fileutil"
	"commentator/internal/logging"
	"commentator/internal/prompt"
	"commentator/internal/services"
)

// FrameSize is the edge length of processed frames.
const FrameSize = 512

const jpegQuality = 85

// Options configure a Processor.
type Options struct {
	// WorkingDir receives screenshot.png.
	WorkingDir      string
	SkipSimilar     bool
	MaxHashDistance int
}

// OptionsFromConfig derives processor options from cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		WorkingDir:      cfg.Paths.WorkingDir,
		SkipSimilar:     cfg.Vision.SkipSimilar,
		MaxHashDistance: cfg.Vision.MaxHashDistance,
	}
}

// Processor turns captured frames into prompt images.
type Processor struct {
	capturer Capturer
	opts     Options
	logger   *slog.Logger

	mu       sync.Mutex
	lastHash *goimagehash.ImageHash
}

// NewProcessor constructs a processor.
func NewProcessor(capturer Capturer, opts Options, logger *slog.Logger) *Processor {
	return &Processor{
		capturer: capturer,
		opts:     opts,
		logger:   logging.NewComponentLogger(logger, "vision"),
	}
}

// Frame captures, processes, and encodes the current frame. It returns nil
// without error when the frame matches the previous one.
func (p *Processor) Frame(ctx context.Context) (*prompt.Image, error) {
	raw, err := p.capturer.Capture(ctx)
	if err != nil {
		return nil, err
	}
	frame := Prepare(raw)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.opts.SkipSimilar && p.similar(frame) {
		return nil, nil
	}

	if err := p.persist(frame); err != nil {
		return nil, err
	}
	url, err := DataURL(frame)
	if err != nil {
		return nil, err
	}
	return &prompt.Image{DataURL: url}, nil
}

// similar reports whether frame matches the last accepted frame and
// remembers frame otherwise.
func (p *Processor) similar(frame image.Image) bool {
	hash, err := goimagehash.PerceptionHash(frame)
	if err != nil {
		p.logger.Debug("perception hash failed", logging.Error(err))
		return false
	}
	if p.lastHash == nil {
		p.lastHash = hash
		return false
	}
	dist, err := p.lastHash.Distance(hash)
	if err != nil {
		p.lastHash = hash
		return false
	}
	if dist <= p.opts.MaxHashDistance {
		p.logger.Debug("skipping similar frame", logging.Int("distance", dist))
		return true
	}
	p.lastHash = hash
	return false
}

func (p *Processor) persist(frame image.Image) error {
	if p.opts.WorkingDir == "" {
		return nil
	}
	path := filepath.Join(p.opts.WorkingDir, artifacts.FrameName)
	err := fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
		return png.Encode(w, frame)
	})
	if err != nil {
		return services.Wrap(services.ErrArtifact, "vision", "persist", path, err)
	}
	return nil
}

// Prepare crops the middle half of the width at full height and scales the
// result to FrameSize x FrameSize.
func Prepare(src image.Image) image.Image {
	bounds := src.Bounds()
	quarter := bounds.Dx() / 4
	crop := image.Rect(bounds.Min.X+quarter, bounds.Min.Y, bounds.Max.X-quarter, bounds.Max.Y)
	if crop.Empty() {
		crop = bounds
	}
	cropped := image.NewRGBA(image.Rect(0, 0, crop.Dx(), crop.Dy()))
	draw.Draw(cropped, cropped.Bounds(), src, crop.Min, draw.Src)
	return resize.Resize(FrameSize, FrameSize, cropped, resize.Lanczos3)
}

// DataURL encodes img as a base64 JPEG data URL.
func DataURL(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", services.Wrap(services.ErrArtifact, "vision", "encode", "jpeg", err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
