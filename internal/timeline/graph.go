package timeline

import (
	"fmt"
	"strconv"
	"strings"
)

// clipInput is one commentary clip positioned on the timeline.
type clipInput struct {
	Path     string
	OffsetMs int64
	// TrimEnd is where the clip is cut, in seconds from its start.
	TrimEnd float64
}

// graphSpec is everything the filter graph depends on.
type graphSpec struct {
	BaseHasAudio   bool
	VideoDuration  float64
	BaseVolume     float64
	LoudnessTarget float64
	SampleRate     int
	Clips          []clipInput
}

// mixLabel is the filter graph output pad carrying the final audio.
const mixLabel = "mix"

// buildFilterGraph returns the -filter_complex value. Input 0 is the
// recording; input i (1-based) is Clips[i-1].
func buildFilterGraph(spec graphSpec) string {
	loudnorm := "loudnorm=I=" + formatFloat(spec.LoudnessTarget)
	resample := "aresample=" + strconv.Itoa(spec.SampleRate)

	var chains []string
	if spec.BaseHasAudio {
		chains = append(chains, fmt.Sprintf("[0:a:0]%s,volume=%s,%s[base]", loudnorm, formatFloat(spec.BaseVolume), resample))
	} else {
		silent := fmt.Sprintf("anullsrc=r=%d:cl=stereo", spec.SampleRate)
		if spec.VideoDuration > 0 {
			silent += ",atrim=end=" + formatFloat(spec.VideoDuration)
		}
		chains = append(chains, silent+"[base]")
	}

	inputs := []string{"[base]"}
	for i, clip := range spec.Clips {
		label := fmt.Sprintf("c%d", i+1)
		delay := strconv.FormatInt(clip.OffsetMs, 10)
		chains = append(chains, fmt.Sprintf("[%d:a:0]atrim=end=%s,asetpts=PTS-STARTPTS,%s,%s,adelay=%s:all=1[%s]",
			i+1, formatFloat(clip.TrimEnd), loudnorm, resample, delay, label))
		inputs = append(inputs, "["+label+"]")
	}

	if len(spec.Clips) == 0 {
		chains = append(chains, fmt.Sprintf("[base]%s,%s[%s]", resample, loudnorm, mixLabel))
	} else {
		chains = append(chains, fmt.Sprintf("%samix=inputs=%d:duration=first:dropout_transition=0:normalize=0,%s,%s[%s]",
			strings.Join(inputs, ""), len(inputs), resample, loudnorm, mixLabel))
	}
	return strings.Join(chains, ";")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// muxerFor maps an output format to the ffmpeg muxer name.
func muxerFor(format string) (string, bool) {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "mp4", "m4v":
		return "mp4", true
	case "mkv":
		return "matroska", true
	case "mov":
		return "mov", true
	case "webm":
		return "webm", true
	default:
		return "", false
	}
}
