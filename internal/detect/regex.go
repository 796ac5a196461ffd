package detect

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/privet-io/privet/internal/gate"
)

const (
	// DefaultMinScore is the minimum confidence below which a match is
	// discarded unless boosted by context words.
	DefaultMinScore = 0.5

	// ContextBoost is the score added when a context word appears near a
	// match.
	ContextBoost = 0.35

	// ContextWindowChars is the number of characters searched before and
	// after a match for context words.
	ContextWindowChars = 100
)

// RegexDetector is the deterministic detection strategy: compiled
// recognizer patterns with checksum validation gates and context-word
// score boosting. It never fails; unmatched text simply yields no entities.
type RegexDetector struct {
	patterns []compiledPattern
	minScore float64
}

// RegexOption configures a RegexDetector.
type RegexOption func(*regexConfig)

type regexConfig struct {
	patternFile   string
	overrides     []RecognizerConfig
	enabledKinds  []gate.EntityKind
	disabledKinds []gate.EntityKind
	minScore      float64
}

// WithMinScore overrides the default minimum confidence threshold.
func WithMinScore(score float64) RegexOption {
	return func(c *regexConfig) { c.minScore = score }
}

// WithPatternFile loads additional recognizers from a YAML file layered
// over the embedded defaults. A missing file is silently skipped.
func WithPatternFile(path string) RegexOption {
	return func(c *regexConfig) { c.patternFile = path }
}

// WithRecognizers adds per-call recognizer overrides, layered last.
func WithRecognizers(recognizers []RecognizerConfig) RegexOption {
	return func(c *regexConfig) { c.overrides = recognizers }
}

// WithEnabledKinds whitelists entity kinds.
func WithEnabledKinds(kinds []gate.EntityKind) RegexOption {
	return func(c *regexConfig) { c.enabledKinds = kinds }
}

// WithDisabledKinds blacklists entity kinds.
func WithDisabledKinds(kinds []gate.EntityKind) RegexOption {
	return func(c *regexConfig) { c.disabledKinds = kinds }
}

// NewRegexDetector creates the regex strategy. Without options it uses the
// embedded defaults.
func NewRegexDetector(opts ...RegexOption) (*RegexDetector, error) {
	var cfg regexConfig
	for _, o := range opts {
		o(&cfg)
	}

	defaults, err := DefaultRecognizers()
	if err != nil {
		return nil, fmt.Errorf("loading default recognizers: %w", err)
	}

	layers := [][]RecognizerConfig{defaults}
	if cfg.patternFile != "" {
		rf, err := LoadRecognizerFile(cfg.patternFile)
		if err != nil {
			return nil, fmt.Errorf("loading pattern file: %w", err)
		}
		if rf != nil {
			layers = append(layers, rf.Recognizers)
		}
	}
	if len(cfg.overrides) > 0 {
		layers = append(layers, cfg.overrides)
	}

	merged := MergeRecognizers(layers...)
	merged = FilterByKinds(merged, cfg.enabledKinds, cfg.disabledKinds)

	compiled, err := compilePatterns(merged)
	if err != nil {
		return nil, fmt.Errorf("compiling patterns: %w", err)
	}

	minScore := DefaultMinScore
	if cfg.minScore > 0 {
		minScore = cfg.minScore
	}
	return &RegexDetector{patterns: compiled, minScore: minScore}, nil
}

// MustNewRegexDetector is like NewRegexDetector but panics on error.
// Useful for zero-config startup where the embedded defaults are expected
// to always compile.
func MustNewRegexDetector(opts ...RegexOption) *RegexDetector {
	d, err := NewRegexDetector(opts...)
	if err != nil {
		panic(fmt.Sprintf("detect.NewRegexDetector: %v", err))
	}
	return d
}

// Name returns the strategy identifier.
func (d *RegexDetector) Name() string { return "regex" }

// Detect scans text with every compiled pattern in order. Matches pass
// through hard validation gates (Luhn, IBAN mod-97) and score-based
// context filtering before being accepted. Confidence is capped at 1.0.
func (d *RegexDetector) Detect(ctx context.Context, text string, _ []gate.Span) ([]gate.Entity, error) {
	var entities []gate.Entity
	for _, p := range d.patterns {
		for _, m := range p.re.FindAllStringIndex(text, -1) {
			value := text[m[0]:m[1]]

			switch p.validate {
			case "luhn":
				if !luhnValid(stripNonDigits(value)) {
					continue
				}
			case "iban":
				clean := strings.ReplaceAll(value, " ", "")
				if !ibanChecksumValid(clean) {
					continue
				}
			}

			confidence := boostWithContext(text, m[0], p.score, p.context)
			if confidence < d.minScore {
				continue
			}
			if confidence > 1 {
				confidence = 1
			}

			entities = append(entities, gate.Entity{
				Span:       gate.Span{Start: m[0], End: m[1]},
				Kind:       p.kind,
				Text:       value,
				Confidence: confidence,
				Detector:   d.Name(),
			})
		}
	}
	return entities, nil
}

// boostWithContext adds ContextBoost when any context word occurs within
// ContextWindowChars of the match position.
func boostWithContext(text string, position int, baseScore float64, contextWords []string) float64 {
	if len(contextWords) == 0 {
		return baseScore
	}
	start := position - ContextWindowChars
	if start < 0 {
		start = 0
	}
	end := position + ContextWindowChars
	if end > len(text) {
		end = len(text)
	}
	window := strings.ToLower(text[start:end])

	for _, cw := range contextWords {
		if strings.Contains(window, strings.ToLower(cw)) {
			return baseScore + ContextBoost
		}
	}
	return baseScore
}

// luhnValid checks whether a digit string passes the Luhn algorithm
// (ISO/IEC 7812).
func luhnValid(number string) bool {
	n := len(number)
	if n < 2 {
		return false
	}
	sum := 0
	alt := false
	for i := n - 1; i >= 0; i-- {
		d := int(number[i] - '0')
		if d < 0 || d > 9 {
			return false
		}
		if alt {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		alt = !alt
	}
	return sum%10 == 0
}

// ibanChecksumValid verifies the MOD-97 check digits per ISO 13616: the
// country+check prefix moves to the end, letters become digits (A=10 ...
// Z=35), and the resulting number mod 97 must equal 1.
func ibanChecksumValid(iban string) bool {
	if len(iban) < 5 {
		return false
	}
	rearranged := iban[4:] + iban[:4]
	var numStr strings.Builder
	for _, ch := range rearranged {
		switch {
		case ch >= '0' && ch <= '9':
			numStr.WriteRune(ch)
		case ch >= 'A' && ch <= 'Z':
			fmt.Fprintf(&numStr, "%d", ch-'A'+10)
		default:
			return false
		}
	}
	n := new(big.Int)
	if _, ok := n.SetString(numStr.String(), 10); !ok {
		return false
	}
	mod := new(big.Int)
	mod.Mod(n, big.NewInt(97))
	return mod.Int64() == 1
}

// stripNonDigits removes all non-digit characters from s.
func stripNonDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, ch := range s {
		if ch >= '0' && ch <= '9' {
			b.WriteRune(ch)
		}
	}
	return b.String()
}
