// Package sentiment scores text polarity on [-1, 1] with a small embedded
// lexicon. It fills the role the original privacy-gate prototypes gave to
// TextBlob: un-tagged spans get a polarity that the classifier maps onto
// the color spectrum. Scoring is deterministic and dependency-free so the
// pipeline's only blocking call stays the optional model inference.
package sentiment

import (
	"strings"
	"unicode"
)

// Scorer computes lexicon-based polarity. The zero value is not usable;
// construct with New.
type Scorer struct {
	lexicon map[string]float64
}

// New returns a Scorer backed by the default lexicon.
func New() *Scorer {
	return &Scorer{lexicon: defaultLexicon}
}

// Score returns the polarity of text in [-1, 1]. Text with no
// sentiment-bearing words scores exactly 0. A negator ("not", "never",
// "no") flips the polarity of the following sentiment word.
func (s *Scorer) Score(text string) float64 {
	words := tokenize(text)
	var sum float64
	var hits int
	negate := false
	for _, w := range words {
		if isNegator(w) {
			negate = true
			continue
		}
		weight, ok := s.lexicon[w]
		if !ok {
			continue
		}
		if negate {
			weight = -weight
		}
		negate = false
		sum += weight
		hits++
	}
	if hits == 0 {
		return 0
	}
	score := sum / float64(hits)
	if score > 1 {
		score = 1
	}
	if score < -1 {
		score = -1
	}
	return score
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
}

func isNegator(w string) bool {
	switch w {
	case "not", "no", "never", "n't", "don't", "doesn't", "didn't", "can't", "won't", "isn't", "wasn't":
		return true
	}
	return false
}

// defaultLexicon holds word polarities. Weights above 0.5 in magnitude push
// a lone word past the blue/red thresholds; weaker words land in the
// green/orange bands.
var defaultLexicon = map[string]float64{
	// strong positive
	"love": 1.0, "excellent": 1.0, "amazing": 0.9, "wonderful": 0.9,
	"fantastic": 0.9, "great": 0.8, "delighted": 0.8, "perfect": 1.0,
	"enjoy": 0.6, "happy": 0.8, "thrilled": 0.9, "best": 0.8,

	// mild positive
	"good": 0.5, "nice": 0.5, "helpful": 0.4, "useful": 0.4,
	"like": 0.4, "fine": 0.3, "works": 0.3, "thanks": 0.4,
	"thank": 0.4, "appreciate": 0.5, "pleased": 0.5, "glad": 0.5,

	// mild negative
	"bad": -0.5, "slow": -0.3, "confusing": -0.4, "annoying": -0.5,
	"problem": -0.3, "issue": -0.2, "difficult": -0.4, "wrong": -0.4,
	"fail": -0.5, "failed": -0.5, "error": -0.3, "broken": -0.5,

	// strong negative
	"hate": -1.0, "terrible": -1.0, "awful": -0.9, "horrible": -0.9,
	"worst": -0.9, "angry": -0.8, "furious": -0.9, "disgusting": -0.9,
	"useless": -0.8, "unacceptable": -0.8, "scam": -0.9, "fraud": -0.9,
}
