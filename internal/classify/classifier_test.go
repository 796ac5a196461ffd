package classify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/privet-io/privet/internal/gate"
)

type fixedScorer struct{ score float64 }

func (f fixedScorer) Score(string) float64 { return f.score }

// mapScorer scores by exact segment text so tests can give each segment its
// own polarity.
type mapScorer map[string]float64

func (m mapScorer) Score(text string) float64 { return m[text] }

func reconstruct(text string, spans []gate.ClassifiedSpan) string {
	var b strings.Builder
	for _, s := range spans {
		b.WriteString(s.Span.Of(text))
	}
	return b.String()
}

func requireTiling(t *testing.T, text string, spans []gate.ClassifiedSpan) {
	t.Helper()
	require.NotEmpty(t, spans)
	assert.Equal(t, 0, spans[0].Span.Start)
	assert.Equal(t, len(text), spans[len(spans)-1].Span.End)
	for i := 1; i < len(spans); i++ {
		assert.Equal(t, spans[i-1].Span.End, spans[i].Span.Start)
	}
	assert.Equal(t, text, reconstruct(text, spans))
}

func TestClassifyTilesWholeInput(t *testing.T) {
	c := New(fixedScorer{score: 0})
	text := "Reach me at a@b.com today."
	segments := []gate.Span{{Start: 0, End: len(text)}}
	entities := []gate.Entity{
		{Span: gate.Span{Start: 12, End: 19}, Kind: gate.KindEmail, Text: "a@b.com", Confidence: 1.0, Detector: "regex"},
	}

	spans := c.Classify(text, segments, entities)
	requireTiling(t, text, spans)
	require.Len(t, spans, 3)

	assert.Nil(t, spans[0].Entity)
	assert.Equal(t, gate.ColorYellow, spans[0].Color)

	require.NotNil(t, spans[1].Entity)
	assert.Equal(t, gate.ColorRed, spans[1].Color)
	assert.Equal(t, "a@b.com", spans[1].Entity.Text)
	assert.Nil(t, spans[1].Sentiment)

	assert.Nil(t, spans[2].Entity)
}

func TestClassifyEmptyText(t *testing.T) {
	c := New(fixedScorer{})
	assert.Nil(t, c.Classify("", nil, nil))
}

func TestClassifyNoEntities(t *testing.T) {
	c := New(fixedScorer{score: 0.8})
	text := "What a wonderful day."
	spans := c.Classify(text, []gate.Span{{Start: 0, End: len(text)}}, nil)

	requireTiling(t, text, spans)
	require.Len(t, spans, 1)
	assert.Equal(t, gate.ColorBlue, spans[0].Color)
	require.NotNil(t, spans[0].Sentiment)
	assert.InDelta(t, 0.8, *spans[0].Sentiment, 0.001)
}

func TestClassifyOverlapHigherConfidenceWins(t *testing.T) {
	c := New(fixedScorer{score: 0})
	text := "ABCDEFGHIJ"
	entities := []gate.Entity{
		{Span: gate.Span{Start: 0, End: 6}, Kind: gate.KindEmail, Text: "ABCDEF", Confidence: 0.6, Detector: "regex"},
		{Span: gate.Span{Start: 4, End: 10}, Kind: gate.KindPhone, Text: "EFGHIJ", Confidence: 0.9, Detector: "regex"},
	}

	spans := c.Classify(text, []gate.Span{{Start: 0, End: 10}}, entities)
	requireTiling(t, text, spans)
	require.Len(t, spans, 2)

	// The contested characters [4,6) go to the higher-confidence entity;
	// the loser keeps its uncontested prefix.
	assert.Equal(t, gate.Span{Start: 0, End: 4}, spans[0].Span)
	assert.Equal(t, gate.KindEmail, spans[0].Entity.Kind)
	assert.Equal(t, gate.Span{Start: 4, End: 10}, spans[1].Span)
	assert.Equal(t, gate.KindPhone, spans[1].Entity.Kind)
}

func TestClassifyOverlapEqualConfidenceFirstDetectionWins(t *testing.T) {
	c := New(fixedScorer{score: 0})
	text := "ABCDEFGHIJ"
	entities := []gate.Entity{
		{Span: gate.Span{Start: 0, End: 6}, Kind: gate.KindEmail, Confidence: 0.8, Detector: "regex"},
		{Span: gate.Span{Start: 4, End: 10}, Kind: gate.KindPhone, Confidence: 0.8, Detector: "model:fake"},
	}

	spans := c.Classify(text, []gate.Span{{Start: 0, End: 10}}, entities)
	requireTiling(t, text, spans)
	require.Len(t, spans, 2)

	assert.Equal(t, gate.Span{Start: 0, End: 6}, spans[0].Span)
	assert.Equal(t, gate.KindEmail, spans[0].Entity.Kind)
	assert.Equal(t, gate.Span{Start: 6, End: 10}, spans[1].Span)
	assert.Equal(t, gate.KindPhone, spans[1].Entity.Kind)
}

func TestClassifyContainedEntity(t *testing.T) {
	c := New(fixedScorer{score: 0})
	text := "ABCDEFGHIJ"
	entities := []gate.Entity{
		{Span: gate.Span{Start: 0, End: 10}, Kind: gate.KindOrganization, Confidence: 0.9, Detector: "model:fake"},
		{Span: gate.Span{Start: 3, End: 6}, Kind: gate.KindEmail, Confidence: 0.7, Detector: "regex"},
	}

	spans := c.Classify(text, []gate.Span{{Start: 0, End: 10}}, entities)
	requireTiling(t, text, spans)

	// The contained lower-confidence entity is swallowed entirely.
	require.Len(t, spans, 1)
	assert.Equal(t, gate.KindOrganization, spans[0].Entity.Kind)
}

func TestClassifyLowConfidenceEntityIsPurple(t *testing.T) {
	c := New(fixedScorer{score: 0})
	text := "maybe 4111 something"
	entities := []gate.Entity{
		{Span: gate.Span{Start: 6, End: 10}, Kind: gate.KindFinancial, Confidence: 0.3, Detector: "regex"},
	}

	spans := c.Classify(text, []gate.Span{{Start: 0, End: len(text)}}, entities)
	requireTiling(t, text, spans)
	require.Len(t, spans, 3)
	assert.Equal(t, gate.ColorPurple, spans[1].Color)
}

func TestClassifySentimentSplitsAtSegmentBoundaries(t *testing.T) {
	text := "I hate this. I love this."
	segments := []gate.Span{{Start: 0, End: 13}, {Start: 13, End: 25}}
	scorer := mapScorer{
		segments[0].Of(text): -0.8,
		segments[1].Of(text): 0.8,
	}

	c := New(scorer)
	spans := c.Classify(text, segments, nil)
	requireTiling(t, text, spans)
	require.Len(t, spans, 2)

	assert.Equal(t, gate.ColorRed, spans[0].Color)
	assert.Equal(t, gate.ColorBlue, spans[1].Color)
}

func TestClassifyEntityAcrossSegmentBoundaryStaysWhole(t *testing.T) {
	c := New(fixedScorer{score: 0})
	text := "ABCDEFGHIJ"
	segments := []gate.Span{{Start: 0, End: 5}, {Start: 5, End: 10}}
	entities := []gate.Entity{
		{Span: gate.Span{Start: 3, End: 8}, Kind: gate.KindPerson, Confidence: 0.9, Detector: "model:fake"},
	}

	spans := c.Classify(text, segments, entities)
	requireTiling(t, text, spans)
	require.Len(t, spans, 3)
	assert.Equal(t, gate.Span{Start: 3, End: 8}, spans[1].Span)
	assert.Equal(t, gate.ColorOrange, spans[1].Color)
}

func TestClassifyDropsOutOfRangeEntities(t *testing.T) {
	c := New(fixedScorer{score: 0})
	text := "short"
	entities := []gate.Entity{
		{Span: gate.Span{Start: 2, End: 50}, Kind: gate.KindEmail, Confidence: 1.0},
		{Span: gate.Span{Start: 3, End: 3}, Kind: gate.KindEmail, Confidence: 1.0},
		{Span: gate.Span{Start: -1, End: 2}, Kind: gate.KindEmail, Confidence: 1.0},
	}

	spans := c.Classify(text, []gate.Span{{Start: 0, End: 5}}, entities)
	requireTiling(t, text, spans)
	for _, s := range spans {
		assert.Nil(t, s.Entity)
	}
}

func TestClassifyKindColorOverride(t *testing.T) {
	c := New(fixedScorer{score: 0}, WithKindColors(map[gate.EntityKind]gate.ColorTag{
		gate.KindDate: gate.ColorGreen,
	}))
	text := "Due 2024-01-15 sharp"
	entities := []gate.Entity{
		{Span: gate.Span{Start: 4, End: 14}, Kind: gate.KindDate, Confidence: 0.85, Detector: "regex"},
	}

	spans := c.Classify(text, []gate.Span{{Start: 0, End: len(text)}}, entities)
	require.Len(t, spans, 3)
	assert.Equal(t, gate.ColorGreen, spans[1].Color)

	// Non-overridden kinds keep their defaults.
	assert.Equal(t, gate.ColorRed, c.kindColors[gate.KindEmail])
}
