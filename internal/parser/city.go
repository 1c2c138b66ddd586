package parser

import (
	"regexp"
	"strings"
)

// cityPattern catches the Italian place prepositions followed by a capitalized
// word sequence. Punctuation ends the match naturally because the character
// classes exclude it; trailing temporal words are trimmed afterwards.
var cityPattern = regexp.MustCompile(
	`(?:^|\s)(?:[Aa]|[Ii]n|[Dd]i|[Pp]resso|[Vv]icino\s+a)\s+` +
		`([A-ZÀ-ÖØ-Þ][a-zà-öø-ÿ']*(?:\s+[A-ZÀ-ÖØ-Þ][a-zà-öø-ÿ']*)*)`)

// temporalKeywords cut a candidate city short: "a Roma Domani" must yield
// "Roma", not "Roma Domani".
var temporalKeywords = map[string]bool{
	"oggi":       true,
	"domani":     true,
	"dopodomani": true,
	"mattina":    true,
	"mattino":    true,
	"stamattina": true,
	"pomeriggio": true,
	"sera":       true,
	"stasera":    true,
	"notte":      true,
	"stanotte":   true,
	"settimana":  true,
	"questa":     true,
}

// fallbackCity is the deterministic extractor used when the model produced no
// city. It is a heuristic, not language understanding: the first match wins.
func fallbackCity(utterance string) *string {
	m := cityPattern.FindStringSubmatch(utterance)
	if m == nil {
		return nil
	}

	var kept []string
	for _, word := range strings.Fields(m[1]) {
		if temporalKeywords[strings.ToLower(word)] {
			break
		}
		kept = append(kept, word)
	}
	if len(kept) == 0 {
		return nil
	}

	city := strings.Join(kept, " ")
	return &city
}
