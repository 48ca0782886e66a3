package slides

import (
	"regexp"
	"unicode/utf8"
)

const (
	maxImageSuggestions = 4
	suggestedKeyPoints  = 2
	suggestedTerms      = 2
)

// Proper nouns, katakana loanwords, and kanji compounds ending in a
// technology suffix.
var concreteTermPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*`),
	regexp.MustCompile(`[ァ-ヴー]+`),
	regexp.MustCompile(`[一-龯]{2,}(?:技術|システム|プラットフォーム|ツール|サービス)`),
}

// imageSuggestions proposes visuals for a slide: a diagram and an
// illustration for each of the first two key points, then photos of
// concrete terms found in the text. At most four are returned.
func imageSuggestions(keyPoints []string, text string) []string {
	out := make([]string, 0, maxImageSuggestions)
	for i, kp := range keyPoints {
		if i == suggestedKeyPoints {
			break
		}
		out = append(out, kp+" diagram", kp+" illustration")
	}
	for i, term := range concreteTerms(text) {
		if i == suggestedTerms {
			break
		}
		out = append(out, term+" photo")
	}
	if len(out) > maxImageSuggestions {
		out = out[:maxImageSuggestions]
	}
	return out
}

// concreteTerms returns distinct terms of 2 to 20 runes in pattern order,
// then in order of appearance.
func concreteTerms(text string) []string {
	var terms []string
	seen := map[string]bool{}
	for _, re := range concreteTermPatterns {
		for _, m := range re.FindAllString(text, -1) {
			n := utf8.RuneCountInString(m)
			if n < 2 || n > 20 || seen[m] {
				continue
			}
			seen[m] = true
			terms = append(terms, m)
		}
	}
	return terms
}
