package speech

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var positionMarker = regexp.MustCompile(`P(\d)`)

// Prepare applies the synthesis text transforms in order: shouting first,
// then position-marker separation.
func Prepare(text string, yelling bool) string {
	text = strings.TrimSpace(text)
	if yelling {
		text = cases.Upper(language.English).String(text)
		if trimmed, ok := strings.CutSuffix(text, "."); ok {
			text = trimmed + "!!!"
		}
	}
	return positionMarker.ReplaceAllString(text, "P-$1")
}
