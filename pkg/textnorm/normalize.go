package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/blevesearch/snowballstem"
	"github.com/blevesearch/snowballstem/english"
	"github.com/blevesearch/snowballstem/spanish"
)

// Supported language tags. Anything else falls back to English.
const (
	LanguageEnglish = "english"
	LanguageSpanish = "spanish"
)

// wordPattern matches runs of word characters, Unicode-aware. Numeric and
// underscore tokens survive tokenization and are dropped by the alphabetic
// filter below.
var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

type stemFunc func(env *snowballstem.Env) bool

var stemmers = map[string]stemFunc{
	LanguageEnglish: english.Stem,
	LanguageSpanish: spanish.Stem,
}

// Normalize tokenizes text, lowercases it, removes stopwords and
// non-alphabetic tokens, and stems what remains with the stemmer for the
// given language. Occurrence order is preserved so callers can count term
// multiplicities. An unrecognized language tag uses the English stopword
// table and stemmer.
func Normalize(text, language string) []string {
	language = strings.ToLower(language)

	stops, ok := stopwords[language]
	if !ok {
		stops = stopwords[LanguageEnglish]
	}
	stem, ok := stemmers[language]
	if !ok {
		stem = stemmers[LanguageEnglish]
	}

	tokens := wordPattern.FindAllString(strings.ToLower(text), -1)
	if len(tokens) == 0 {
		return nil
	}

	stemmed := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, stop := stops[token]; stop {
			continue
		}
		if !isAlphabetic(token) {
			continue
		}
		env := snowballstem.NewEnv(token)
		stem(env)
		stemmed = append(stemmed, env.Current())
	}
	return stemmed
}

func isAlphabetic(token string) bool {
	for _, r := range token {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
