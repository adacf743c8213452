// Package tokenizer turns raw text into index terms. It lower-cases input,
// deletes punctuation, splits on whitespace and removes stop-words. The
// stemmed analyzer additionally reduces every surviving word with the
// snowball English stemmer.
package tokenizer

import (
	"strings"
	"unicode"

	"github.com/kljensen/snowball/english"
)

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "is": {}, "in": {}, "to": {}, "of": {},
	"on": {}, "for": {}, "with": {}, "a": {}, "an": {}, "as": {},
	"by": {}, "this": {}, "it": {}, "at": {}, "or": {}, "that": {},
}

// Analyzer normalizes text into an ordered sequence of terms. The zero
// value is the plain analyzer.
type Analyzer struct {
	stem bool
}

var (
	// Plain keeps every surviving word as-is.
	Plain = Analyzer{}
	// Stemmed reduces every surviving word to its stem.
	Stemmed = Analyzer{stem: true}
)

// Stems reports whether the analyzer applies the stemmer.
func (a Analyzer) Stems() bool {
	return a.stem
}

// Normalize returns the terms of text in order of appearance. Empty input
// yields an empty slice.
func (a Analyzer) Normalize(text string) []string {
	words := strings.Fields(stripPunctuation(strings.ToLower(text)))
	terms := make([]string, 0, len(words))
	for _, word := range words {
		if IsStopWord(word) {
			continue
		}
		if a.stem {
			word = english.Stem(word, false)
			if word == "" {
				continue
			}
		}
		terms = append(terms, word)
	}
	return terms
}

// Normalize runs the plain analyzer.
func Normalize(text string) []string {
	return Plain.Normalize(text)
}

// IsStopWord reports whether word is dropped during normalization.
func IsStopWord(word string) bool {
	_, ok := stopWords[word]
	return ok
}

// stripPunctuation deletes punctuation and symbol runes so that "don't"
// becomes "dont" rather than two words.
func stripPunctuation(text string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return -1
		}
		return r
	}, text)
}
