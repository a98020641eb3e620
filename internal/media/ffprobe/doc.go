// Package ffprobe wraps the ffprobe CLI to inspect rendered commentary audio
// and recorded video.
//
// The renderer relies on Prober.Duration to read back the authoritative length
// of each synthesized clip (pacing depends on it), and the timeline assembler
// uses Inspect to learn whether the recording carries an audio track and how
// long each clip is before trimming. The runner is injectable so tests never
// need the real binary.
package ffprobe
