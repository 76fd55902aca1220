package sentiment

import (
	"strings"
	"unicode"
)

// Lexicon scores text by summing per-word valences in [-5, 5]. A word
// directly preceded by a negator has its valence flipped.
type Lexicon struct {
	words     map[string]int
	negations map[string]struct{}
}

// NewLexicon builds a lexicon from words; keys are matched lower-case.
func NewLexicon(words map[string]int) *Lexicon {
	l := &Lexicon{
		words:     make(map[string]int, len(words)),
		negations: make(map[string]struct{}, len(defaultNegations)),
	}
	for w, v := range words {
		l.words[strings.ToLower(w)] = v
	}
	for _, n := range defaultNegations {
		l.negations[n] = struct{}{}
	}
	return l
}

// DefaultLexicon is an AFINN-style word list tuned to market headlines.
func DefaultLexicon() *Lexicon { return NewLexicon(defaultWords) }

// Score returns the summed valence of text.
func (l *Lexicon) Score(text string) int {
	score := 0
	prev := ""
	for _, tok := range tokenize(text) {
		if v, ok := l.words[tok]; ok {
			if _, neg := l.negations[prev]; neg {
				v = -v
			}
			score += v
		}
		prev = tok
	}
	return score
}

// ScoreAll scores each text.
func (l *Lexicon) ScoreAll(texts []string) []float64 {
	out := make([]float64, len(texts))
	for i, t := range texts {
		out[i] = float64(l.Score(t))
	}
	return out
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\'' && r != '-'
	})
}

var defaultNegations = []string{
	"not", "no", "never", "without", "cannot", "can't", "don't", "doesn't",
	"didn't", "isn't", "aren't", "wasn't", "won't", "wouldn't", "hardly",
}

var defaultWords = map[string]int{
	"gain": 2, "gains": 2, "rise": 1, "rises": 1, "rising": 1, "rally": 2, "rallies": 2,
	"surge": 3, "surges": 3, "soar": 3, "soars": 3, "jump": 2, "jumps": 2,
	"climb": 1, "climbs": 1, "beat": 2, "beats": 2, "record": 1, "strong": 2,
	"stronger": 2, "growth": 2, "profit": 2, "profits": 2, "profitable": 2,
	"upgrade": 2, "upgrades": 2, "upgraded": 2, "bullish": 3, "boom": 3,
	"booming": 3, "recover": 2, "recovers": 2, "recovery": 2, "rebound": 2,
	"optimism": 2, "optimistic": 2, "confident": 2, "confidence": 2,
	"outperform": 2, "outperforms": 2, "win": 4, "wins": 4, "success": 2,
	"successful": 3, "good": 3, "great": 3, "best": 3, "positive": 2,
	"improve": 2, "improves": 2, "improved": 2, "breakthrough": 3,
	"approve": 2, "approves": 2, "approval": 2, "dividend": 1, "expand": 1,
	"expands": 1, "innovative": 2, "stable": 2, "safe": 1, "support": 2,
	"fall": -1, "falls": -1, "falling": -1, "drop": -1, "drops": -1,
	"decline": -1, "declines": -1, "slump": -2, "slumps": -2, "plunge": -3,
	"plunges": -3, "crash": -3, "crashes": -3, "tumble": -2, "tumbles": -2,
	"sink": -2, "sinks": -2, "loss": -3, "losses": -3, "lose": -3, "loses": -3,
	"miss": -2, "misses": -2, "weak": -2, "weaker": -2, "downgrade": -2,
	"downgrades": -2, "downgraded": -2, "bearish": -3, "recession": -3,
	"inflation": -1, "crisis": -3, "fear": -2, "fears": -2, "worry": -3,
	"worries": -3, "concern": -2, "concerns": -2, "risk": -2, "risks": -2,
	"volatile": -2, "volatility": -1, "uncertain": -1, "uncertainty": -1,
	"lawsuit": -2, "fraud": -4, "scandal": -3, "bankrupt": -3,
	"bankruptcy": -3, "default": -2, "layoffs": -2, "cut": -1, "cuts": -1,
	"warn": -2, "warns": -2, "warning": -3, "bad": -3, "worst": -3,
	"negative": -2, "fail": -2, "fails": -2, "failure": -2, "probe": -1,
	"sell-off": -2, "selloff": -2, "panic": -3, "collapse": -2, "debt": -2,
	"slowdown": -2, "tariff": -1, "tariffs": -1, "war": -2, "fine": -2,
}
