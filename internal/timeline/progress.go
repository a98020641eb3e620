package timeline

import (
	"bytes"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"commentator/internal/logging"
)

// progressWriter consumes `ffmpeg -progress pipe:1` key=value output and logs
// sampled completion percentages.
type progressWriter struct {
	mu       sync.Mutex
	pending  []byte
	total    float64
	sampler  *logging.ProgressSampler
	logger   *slog.Logger
	lastSecs float64
	ended    bool
}

func newProgressWriter(logger *slog.Logger, totalSeconds float64) *progressWriter {
	return &progressWriter{total: totalSeconds, sampler: logging.NewProgressSampler(10), logger: logger}
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = append(w.pending, p...)
	for {
		idx := bytes.IndexByte(w.pending, '\n')
		if idx < 0 {
			break
		}
		w.handleLine(strings.TrimSpace(string(w.pending[:idx])))
		w.pending = w.pending[idx+1:]
	}
	return len(p), nil
}

func (w *progressWriter) handleLine(line string) {
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return
	}
	switch key {
	case "out_time_us", "out_time_ms":
		// Both keys carry microseconds.
		us, err := strconv.ParseInt(value, 10, 64)
		if err != nil || us < 0 {
			return
		}
		w.lastSecs = float64(us) / 1e6
		percent := -1.0
		if w.total > 0 {
			percent = min(w.lastSecs/w.total*100, 100)
		}
		if w.sampler.ShouldLog(percent, "export") {
			w.logger.Info("export progress",
				logging.Float64("percent", roundPercent(percent)),
				logging.Float64("position_seconds", w.lastSecs),
			)
		}
	case "progress":
		if value == "end" && !w.ended {
			w.ended = true
			w.logger.Debug("ffmpeg reported end of stream", logging.Float64("position_seconds", w.lastSecs))
		}
	}
}

func roundPercent(p float64) float64 {
	return float64(int(p*10)) / 10
}

// Position returns the last reported output position in seconds.
func (w *progressWriter) Position() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSecs
}
