package timeline

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// commandRunner runs an external command, streaming its stdout to stdout.
type commandRunner func(ctx context.Context, stdout io.Writer, name string, args ...string) error

func defaultCommandRunner(ctx context.Context, stdout io.Writer, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	var stderr tailBuffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// tailBuffer keeps the last few KiB written to it; ffmpeg's useful error is
// always at the end of stderr.
type tailBuffer struct {
	buf []byte
}

const tailLimit = 4096

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	if len(b.buf) > tailLimit {
		b.buf = append([]byte(nil), b.buf[len(b.buf)-tailLimit:]...)
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	return string(b.buf)
}
