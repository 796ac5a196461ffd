// Package classify reconciles detected entities into a lossless tiling of
// classified spans and assigns each tile a color on the six-point spectrum.
// Entity-driven tiles are colored by entity kind; the uncovered remainder is
// colored by the sentiment polarity of its enclosing segment.
package classify

import "github.com/privet-io/privet/internal/gate"

// ReviewThreshold is the detector confidence below which an entity span is
// classified purple for human review instead of its kind color.
const ReviewThreshold = 0.5

// DefaultKindColors maps every entity kind onto its color. Direct
// identifiers and financial data are red; identity context (who, where,
// which organization) is orange; dates are yellow; anything the detectors
// could not categorize is purple.
func DefaultKindColors() map[gate.EntityKind]gate.ColorTag {
	return map[gate.EntityKind]gate.ColorTag{
		gate.KindEmail:        gate.ColorRed,
		gate.KindPhone:        gate.ColorRed,
		gate.KindNumericID:    gate.ColorRed,
		gate.KindFinancial:    gate.ColorRed,
		gate.KindPerson:       gate.ColorOrange,
		gate.KindLocation:     gate.ColorOrange,
		gate.KindOrganization: gate.ColorOrange,
		gate.KindDate:         gate.ColorYellow,
		gate.KindOther:        gate.ColorPurple,
	}
}

// kindColorTable layers caller overrides onto the default table. The result
// is always total over gate.Kinds().
func kindColorTable(overrides map[gate.EntityKind]gate.ColorTag) map[gate.EntityKind]gate.ColorTag {
	table := DefaultKindColors()
	for k, c := range overrides {
		table[k] = c
	}
	return table
}

// ColorForEntity returns the color of an entity-driven span. Low-confidence
// findings are flagged purple regardless of kind so a human reviews them
// before anything downstream trusts the kind label.
func ColorForEntity(e gate.Entity, table map[gate.EntityKind]gate.ColorTag) gate.ColorTag {
	if e.Confidence < ReviewThreshold {
		return gate.ColorPurple
	}
	if c, ok := table[e.Kind]; ok {
		return c
	}
	return gate.ColorPurple
}

// SentimentColor maps a polarity score in [-1, 1] onto the spectrum.
// Strongly negative text is red, mildly negative orange, neutral yellow,
// mildly positive green, strongly positive blue.
func SentimentColor(score float64) gate.ColorTag {
	switch {
	case score < -0.5:
		return gate.ColorRed
	case score < 0:
		return gate.ColorOrange
	case score == 0:
		return gate.ColorYellow
	case score <= 0.5:
		return gate.ColorGreen
	default:
		return gate.ColorBlue
	}
}
