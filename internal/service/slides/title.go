package slides

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	maxSentenceTitle = 50
	truncatedTitle   = 30
)

var sentenceEnd = regexp.MustCompile(`[。！？.!?]`)

// slideTitle prefers the first key point, then the first sentence of the
// opening segment, then its first 30 runes.
func slideTitle(firstText string, keyPoints []string) string {
	if len(keyPoints) > 0 {
		return keyPoints[0]
	}

	first := sentenceEnd.Split(firstText, 2)[0]
	if utf8.RuneCountInString(first) <= maxSentenceTitle {
		return strings.TrimSpace(first)
	}

	r := []rune(firstText)
	if len(r) > truncatedTitle {
		return string(r[:truncatedTitle]) + "..."
	}
	return firstText
}
