// Package cluster assigns ingested alerts to story clusters so the review
// UI can present the same story from several sources as one decision.
package cluster

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// titleStopwords are Portuguese and English function words (plus common
// aggregator noise tokens) excluded from title comparison.
var titleStopwords = map[string]bool{
	// Portuguese
	"as": true, "os": true, "um": true, "uma": true, "uns": true, "umas": true,
	"de": true, "do": true, "da": true, "dos": true, "das": true, "em": true,
	"no": true, "na": true, "nos": true, "nas": true, "por": true, "pelo": true,
	"pela": true, "pelos": true, "pelas": true, "para": true, "com": true,
	"sem": true, "ou": true, "se": true, "como": true, "mas": true, "que": true,
	"foi": true, "foram": true, "ser": true, "estar": true, "ter": true,
	"haver": true, "sobre": true, "entre": true, "ate": true, "apos": true,
	"durante": true, "sao": true, "nao": true,
	// English
	"the": true, "of": true, "and": true, "in": true, "to": true, "for": true,
	"on": true, "with": true, "at": true, "by": true, "from": true, "up": true,
	"about": true, "into": true, "over": true, "after": true, "is": true,
	"are": true, "was": true, "were": true,
	// Aggregator noise
	"news": true, "times": true, "journal": true,
}

// minTokenLen drops tokens too short to carry meaning.
const minTokenLen = 3

// titleSourceSuffix strips the trailing " - Source" / " | Source" suffix
// before comparison, matching the feed parser's title cleanup.
var titleSourceSuffix = regexp.MustCompile(` [\-|] [^\-|]+$`)

// diacriticStripper removes combining marks after NFD decomposition, so
// "eleições" and "eleicoes" compare equal.
var diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeTitle reduces a title to its comparison token set: case-folded,
// diacritics stripped, punctuation removed, stopwords and short tokens
// dropped. The result is deterministic for equal inputs.
func NormalizeTitle(title string) []string {
	title = titleSourceSuffix.ReplaceAllString(title, "")

	folded, _, transformErr := transform.String(diacriticStripper, strings.ToLower(title))
	if transformErr != nil {
		folded = strings.ToLower(title)
	}

	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, folded)

	var tokens []string
	for _, token := range strings.Fields(cleaned) {
		if len(token) < minTokenLen || titleStopwords[token] {
			continue
		}
		tokens = append(tokens, token)
	}

	return tokens
}

// Similarity computes the Jaccard overlap of two token sets. It is
// symmetric and returns a value in [0, 1]; empty inputs score 0.
func Similarity(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	setA := make(map[string]bool, len(a))
	for _, token := range a {
		setA[token] = true
	}

	setB := make(map[string]bool, len(b))
	for _, token := range b {
		setB[token] = true
	}

	intersection := 0
	for token := range setA {
		if setB[token] {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}

	return float64(intersection) / float64(union)
}

// TitleSimilarity is the convenience form used by the engine: normalize
// both titles and compare.
func TitleSimilarity(a, b string) float64 {
	return Similarity(NormalizeTitle(a), NormalizeTitle(b))
}
