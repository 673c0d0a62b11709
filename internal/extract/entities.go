package extract

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// contentWordPattern matches lower-casable content words of 4+ letters.
var contentWordPattern = regexp.MustCompile(`\b[a-zA-Z]{4,}\b`)

// stopWords are common words excluded from the content-word pass.
var stopWords = map[string]bool{
	"good": true, "bad": true, "very": true, "much": true,
	"most": true, "some": true, "many": true, "this": true,
	"that": true, "they": true, "them": true, "have": true,
	"been": true, "will": true, "from": true, "with": true,
}

// Entities pulls candidate entities and keywords from a claim.
// It returns an ordered-unique list: capitalized multi-word sequences of up
// to three tokens, capitalized single words longer than three characters,
// and lower-cased content words of four or more letters minus a small
// stop-list. Pure function, never fails; an empty result is possible and the
// caller must substitute the claim itself to keep relevance scoring
// meaningful.
func Entities(claim string) []string {
	seen := make(map[string]bool)
	var entities []string
	add := func(s string) {
		if s != "" && !seen[s] {
			seen[s] = true
			entities = append(entities, s)
		}
	}

	words := strings.Fields(claim)
	for i, word := range words {
		if !startsUpper(word) || len(word) <= 2 {
			continue
		}
		parts := []string{word}
		for j := i + 1; j < len(words) && j < i+3; j++ {
			if !startsUpper(words[j]) {
				break
			}
			parts = append(parts, words[j])
		}
		if len(parts) >= 2 {
			add(strings.Join(parts, " "))
		} else if len(word) > 3 {
			add(word)
		}
	}

	for _, word := range contentWordPattern.FindAllString(claim, -1) {
		lower := strings.ToLower(word)
		if !stopWords[lower] {
			add(lower)
		}
	}

	return entities
}

func startsUpper(word string) bool {
	r, _ := utf8.DecodeRuneInString(word)
	return unicode.IsUpper(r)
}
