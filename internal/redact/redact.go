// Package redact builds the three aligned artifacts of an invocation:
// corrected text (length-preserving cleanups so span offsets stay valid),
// colored text (HTML span markup carrying each tile's color), and masked
// text (sensitive spans replaced by kind placeholders).
package redact

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/privet-io/privet/internal/gate"
)

var colorSpanRe = regexp.MustCompile(`<span data-color="[a-z]+">|</span>`)

// Engine applies the redaction policy of one invocation.
type Engine struct {
	maskColors map[gate.ColorTag]bool
}

// New creates an Engine masking the given colors. A nil map selects the
// default set (red and orange).
func New(maskColors map[gate.ColorTag]bool) *Engine {
	if maskColors == nil {
		maskColors = gate.DefaultMaskColors()
	}
	return &Engine{maskColors: maskColors}
}

// Apply produces the full artifact set from already-corrected text and its
// classified spans. The caller runs Correct before detection so that all
// span offsets refer to the text passed here.
func (e *Engine) Apply(corrected string, spans []gate.ClassifiedSpan) gate.RedactionResult {
	return gate.RedactionResult{
		CorrectedText:   corrected,
		ColoredText:     Colored(corrected, spans),
		MaskedText:      e.Masked(corrected, spans),
		ClassifiedSpans: spans,
	}
}

// Correct normalizes capitalization at sentence starts. Every change is
// length-preserving (ASCII case flips only), so offsets into the corrected
// text equal offsets into the input.
func Correct(text string) string {
	b := []byte(text)
	atStart := true
	for i := 0; i < len(b); i++ {
		c := b[i]
		switch {
		case c == '.' || c == '!' || c == '?':
			atStart = true
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			// whitespace keeps the sentence-start state
		case atStart:
			if c >= 'a' && c <= 'z' {
				b[i] = c - 'a' + 'A'
			}
			atStart = false
		default:
			atStart = false
		}
	}
	return string(b)
}

// Colored renders the classified spans as HTML span markup. Span contents
// are escaped; StripColorMarkup reverses the transformation exactly.
func Colored(text string, spans []gate.ClassifiedSpan) string {
	var b strings.Builder
	for _, s := range spans {
		fmt.Fprintf(&b, `<span data-color="%s">%s</span>`, s.Color, html.EscapeString(s.Span.Of(text)))
	}
	return b.String()
}

// StripColorMarkup removes the span tags and unescapes the content,
// recovering the text Colored was called with.
func StripColorMarkup(colored string) string {
	return html.UnescapeString(colorSpanRe.ReplaceAllString(colored, ""))
}

// Masked replaces every entity-driven span whose color is in the mask set
// with a [KIND_REDACTED] placeholder. Sentiment-driven spans are never
// masked regardless of color. Masking is idempotent: placeholders contain
// no PII and re-running detection over masked output finds nothing to mask.
func (e *Engine) Masked(text string, spans []gate.ClassifiedSpan) string {
	var b strings.Builder
	for _, s := range spans {
		if s.Entity != nil && e.maskColors[s.Color] {
			b.WriteString(Placeholder(s.Entity.Kind))
			continue
		}
		b.WriteString(s.Span.Of(text))
	}
	return b.String()
}

// Placeholder returns the masking token for an entity kind.
func Placeholder(kind gate.EntityKind) string {
	return fmt.Sprintf("[%s_REDACTED]", kind)
}
