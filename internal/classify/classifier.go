package classify

import (
	"sort"

	"github.com/privet-io/privet/internal/gate"
)

// SentimentScorer scores text polarity in [-1, 1].
type SentimentScorer interface {
	Score(text string) float64
}

// Classifier turns the detector's (possibly overlapping) entity list into a
// partition of the input: classified spans that cover [0, len(text)) exactly
// once each, in offset order.
type Classifier struct {
	scorer     SentimentScorer
	kindColors map[gate.EntityKind]gate.ColorTag
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithKindColors layers a partial kind→color override onto the defaults.
func WithKindColors(overrides map[gate.EntityKind]gate.ColorTag) Option {
	return func(c *Classifier) { c.kindColors = kindColorTable(overrides) }
}

// New creates a Classifier that fills uncovered text with sentiment-driven
// spans scored by scorer.
func New(scorer SentimentScorer, opts ...Option) *Classifier {
	c := &Classifier{
		scorer:     scorer,
		kindColors: DefaultKindColors(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Classify resolves entity overlaps per character and tiles the full input.
// Where entities overlap, each character goes to the entity with the higher
// confidence; on equal confidence the earlier-detected entity wins. Adjacent
// characters owned by the same entity merge back into one span. Text covered
// by no entity becomes sentiment-driven spans, split at segment boundaries
// so each carries the polarity of exactly one enclosing segment.
//
// The returned spans are sorted by offset, never overlap, and concatenate
// back to the original text.
func (c *Classifier) Classify(text string, segments []gate.Span, entities []gate.Entity) []gate.ClassifiedSpan {
	if len(text) == 0 {
		return nil
	}
	if len(segments) == 0 {
		segments = []gate.Span{{Start: 0, End: len(text)}}
	}

	valid := make([]gate.Entity, 0, len(entities))
	for _, e := range entities {
		if e.Span.Start >= 0 && e.Span.Start < e.Span.End && e.Span.End <= len(text) {
			valid = append(valid, e)
		}
	}

	bounds := boundaries(len(text), segments, valid)

	// Resolve ownership per elementary interval, then merge adjacent
	// intervals with the same owner. Sentiment intervals only merge within
	// one segment, which the segment boundaries in bounds already enforce.
	type run struct {
		span  gate.Span
		owner int // index into valid, or -1 for sentiment
	}
	var runs []run
	for i := 0; i+1 < len(bounds); i++ {
		iv := gate.Span{Start: bounds[i], End: bounds[i+1]}
		owner := winnerFor(iv, valid)
		if n := len(runs); n > 0 && runs[n-1].owner == owner && owner >= 0 {
			runs[n-1].span.End = iv.End
			continue
		}
		runs = append(runs, run{span: iv, owner: owner})
	}

	segScores := make(map[int]float64)
	spans := make([]gate.ClassifiedSpan, 0, len(runs))
	for _, r := range runs {
		if r.owner >= 0 {
			e := valid[r.owner]
			spans = append(spans, gate.ClassifiedSpan{
				Span:   r.span,
				Color:  ColorForEntity(e, c.kindColors),
				Entity: &e,
			})
			continue
		}
		si := enclosingSegment(segments, r.span.Start)
		score, ok := segScores[si]
		if !ok {
			score = c.scorer.Score(segments[si].Of(text))
			segScores[si] = score
		}
		s := score
		spans = append(spans, gate.ClassifiedSpan{
			Span:      r.span,
			Color:     SentimentColor(s),
			Sentiment: &s,
		})
	}
	return spans
}

// boundaries returns the sorted, deduplicated cut points: text edges,
// segment edges, and every entity edge clamped to [0, length].
func boundaries(length int, segments []gate.Span, entities []gate.Entity) []int {
	set := map[int]struct{}{0: {}, length: {}}
	for _, s := range segments {
		set[s.Start] = struct{}{}
		set[s.End] = struct{}{}
	}
	for _, e := range entities {
		set[e.Span.Start] = struct{}{}
		set[e.Span.End] = struct{}{}
	}
	bounds := make([]int, 0, len(set))
	for b := range set {
		bounds = append(bounds, b)
	}
	sort.Ints(bounds)
	return bounds
}

// winnerFor picks the entity owning an elementary interval: the covering
// entity with the highest confidence, ties broken by detection order.
// Returns -1 when no entity covers the interval.
func winnerFor(iv gate.Span, entities []gate.Entity) int {
	winner := -1
	for i, e := range entities {
		if e.Span.Start > iv.Start || e.Span.End < iv.End {
			continue
		}
		if winner < 0 || e.Confidence > entities[winner].Confidence {
			winner = i
		}
	}
	return winner
}

// enclosingSegment returns the index of the segment containing pos. Segments
// tile the text, so a containing segment always exists for valid positions.
func enclosingSegment(segments []gate.Span, pos int) int {
	i := sort.Search(len(segments), func(i int) bool { return segments[i].End > pos })
	if i == len(segments) {
		return len(segments) - 1
	}
	return i
}
