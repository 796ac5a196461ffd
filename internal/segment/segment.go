// Package segment splits raw input into analyzable spans at sentence or
// token granularity. Segmentation is lossless: the returned spans are
// contiguous, exhaustive, and tile [0, len(text)) exactly, so downstream
// masking can reassemble output with no drift. Offsets are byte offsets
// into the original string.
package segment

import (
	"unicode"
	"unicode/utf8"

	"github.com/privet-io/privet/internal/gate"
)

// Segmenter splits text into spans at the configured granularity. The zero
// value segments by sentence.
type Segmenter struct {
	granularity gate.Granularity
}

// New creates a Segmenter. An empty granularity defaults to sentence.
func New(granularity gate.Granularity) *Segmenter {
	if granularity == "" {
		granularity = gate.GranularitySentence
	}
	return &Segmenter{granularity: granularity}
}

// Segment returns the ordered spans covering text. Empty input yields an
// empty sequence, not an error. No side effects.
func (s *Segmenter) Segment(text string) []gate.Span {
	if text == "" {
		return nil
	}
	if s.granularity == gate.GranularityToken {
		return tokenSpans(text)
	}
	return sentenceSpans(text)
}

// sentenceSpans breaks after a run of terminal punctuation plus the
// whitespace that follows it. Trailing separators attach to the sentence
// they close, which keeps the tiling exact.
func sentenceSpans(text string) []gate.Span {
	var spans []gate.Span
	start := 0
	i := 0
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !isTerminal(r) {
			i += size
			continue
		}
		// Consume the full punctuation run ("...", "?!").
		for i < len(text) {
			r, size = utf8.DecodeRuneInString(text[i:])
			if !isTerminal(r) {
				break
			}
			i += size
		}
		// Attach following whitespace to this sentence.
		for i < len(text) {
			r, size = utf8.DecodeRuneInString(text[i:])
			if !unicode.IsSpace(r) {
				break
			}
			i += size
		}
		spans = append(spans, gate.Span{Start: start, End: i})
		start = i
	}
	if start < len(text) {
		spans = append(spans, gate.Span{Start: start, End: len(text)})
	}
	return spans
}

// tokenSpans breaks before each whitespace→non-whitespace transition, so a
// token carries its trailing separator and leading whitespace belongs to
// the first span.
func tokenSpans(text string) []gate.Span {
	var spans []gate.Span
	start := 0
	prevSpace := false
	sawToken := false
	for i, r := range text {
		space := unicode.IsSpace(r)
		if prevSpace && !space && sawToken {
			spans = append(spans, gate.Span{Start: start, End: i})
			start = i
		}
		if !space {
			sawToken = true
		}
		prevSpace = space
	}
	spans = append(spans, gate.Span{Start: start, End: len(text)})
	return spans
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// Enclosing returns the index of the segment containing byte offset pos,
// or -1 when pos is out of range. Segments tile the text, so a simple scan
// suffices for the sizes the gate handles.
func Enclosing(segments []gate.Span, pos int) int {
	for i, s := range segments {
		if pos >= s.Start && pos < s.End {
			return i
		}
	}
	return -1
}
