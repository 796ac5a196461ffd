// Package gate defines the shared data model of the Privet pipeline: spans,
// detected entities, the six-color sensitivity spectrum, classified spans,
// redaction artifacts, and policy decisions. Values are created fresh per
// invocation and never mutated in place; transformations always produce new
// values so invocations can run fully in parallel.
package gate

import "fmt"

// Span is a half-open [Start, End) character-offset range into the original
// text. Invariant: 0 <= Start < End <= len(text).
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of bytes the span covers.
func (s Span) Len() int { return s.End - s.Start }

// Of slices the span out of text.
func (s Span) Of(text string) string { return text[s.Start:s.End] }

// Overlaps reports whether the two half-open ranges share any character.
func (s Span) Overlaps(o Span) bool { return s.Start < o.End && o.Start < s.End }

// EntityKind is the closed enumeration of sensitive-span categories.
type EntityKind string

// Entity kinds. The set is closed: detectors must map whatever they find
// onto one of these, falling back to KindOther for anything ambiguous.
const (
	KindPerson       EntityKind = "PERSON"
	KindLocation     EntityKind = "LOCATION"
	KindOrganization EntityKind = "ORGANIZATION"
	KindEmail        EntityKind = "EMAIL"
	KindPhone        EntityKind = "PHONE"
	KindDate         EntityKind = "DATE"
	KindNumericID    EntityKind = "NUMERIC_ID"
	KindFinancial    EntityKind = "FINANCIAL"
	KindOther        EntityKind = "OTHER"
)

// Kinds lists every EntityKind. Used to validate that kind→color tables
// are total.
func Kinds() []EntityKind {
	return []EntityKind{
		KindPerson, KindLocation, KindOrganization, KindEmail, KindPhone,
		KindDate, KindNumericID, KindFinancial, KindOther,
	}
}

// ParseEntityKind maps a string onto the closed enumeration; anything
// unknown becomes KindOther.
func ParseEntityKind(s string) EntityKind {
	for _, k := range Kinds() {
		if string(k) == s {
			return k
		}
	}
	return KindOther
}

// Entity is a detected PII/sensitive span. Immutable after creation; owned
// by the pipeline invocation that produced it.
type Entity struct {
	Span       Span       `json:"span"`
	Kind       EntityKind `json:"kind"`
	Text       string     `json:"text"`
	Confidence float64    `json:"confidence"` // [0, 1]; regex strategies default to 1.0
	Detector   string     `json:"detector"`   // strategy name, for the audit trail
}

// ColorTag is the six-point sensitivity/sentiment classification of a span.
type ColorTag string

// The color spectrum, from most to least sensitive. Purple is reserved for
// needs-review spans (kind OTHER, or detector confidence below the review
// threshold).
const (
	ColorRed    ColorTag = "red"
	ColorOrange ColorTag = "orange"
	ColorYellow ColorTag = "yellow"
	ColorGreen  ColorTag = "green"
	ColorBlue   ColorTag = "blue"
	ColorPurple ColorTag = "purple"
)

// Colors lists the full spectrum.
func Colors() []ColorTag {
	return []ColorTag{ColorRed, ColorOrange, ColorYellow, ColorGreen, ColorBlue, ColorPurple}
}

// ParseColorTag validates a color string against the spectrum.
func ParseColorTag(s string) (ColorTag, error) {
	for _, c := range Colors() {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown color tag %q", s)
}

// ClassifiedSpan is one tile of the classified text. After reconciliation
// the classified spans of a document partition [0, len(text)) with no gaps
// and no overlaps. Exactly one of Entity/Sentiment is set: entity-driven
// spans carry the winning Entity, sentiment-driven spans carry the polarity
// score of their enclosing segment.
type ClassifiedSpan struct {
	Span      Span     `json:"span"`
	Color     ColorTag `json:"color"`
	Entity    *Entity  `json:"entity,omitempty"`
	Sentiment *float64 `json:"sentiment,omitempty"` // [-1, 1]
}

// RedactionResult holds the three aligned artifacts produced from one
// input, plus the span list they were built from. Immutable.
type RedactionResult struct {
	CorrectedText   string           `json:"corrected_text"`
	ColoredText     string           `json:"colored_text"`
	MaskedText      string           `json:"masked_text"`
	ClassifiedSpans []ClassifiedSpan `json:"classified_spans"`
}

// Verdict is the policy gate's terminal disposition for a submission.
type Verdict string

// Policy verdicts, ordered by severity: ALLOW < WARN < ANONYMIZE < BLOCK.
const (
	VerdictAllow     Verdict = "ALLOW"
	VerdictWarn      Verdict = "WARN"
	VerdictAnonymize Verdict = "ANONYMIZE"
	VerdictBlock     Verdict = "BLOCK"
)

// Severity returns the verdict's position on the restrictiveness scale.
// Adding red/orange spans to a result must never decrease this value.
func (v Verdict) Severity() int {
	switch v {
	case VerdictAllow:
		return 0
	case VerdictWarn:
		return 1
	case VerdictAnonymize:
		return 2
	case VerdictBlock:
		return 3
	}
	return -1
}

// Mode selects how aggressively the policy gate treats red/orange findings.
type Mode string

// Policy modes. Strict blocks on any red span; permissive anonymizes and
// continues; moderate only warns.
const (
	ModeStrict     Mode = "strict"
	ModePermissive Mode = "permissive"
	ModeModerate   Mode = "moderate"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeStrict, ModePermissive, ModeModerate:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown policy mode %q", s)
}

// PolicyDecision is the gate's final ruling. BLOCK is authoritative: the
// caller must not forward any text downstream.
type PolicyDecision struct {
	Verdict         Verdict          `json:"verdict"`
	TriggeringSpans []ClassifiedSpan `json:"triggering_spans,omitempty"`
	Reason          string           `json:"reason"`
}

// Options configures a single pipeline invocation.
type Options struct {
	Mode        Mode                    // default ModePermissive
	MaskColors  map[ColorTag]bool       // default {red, orange}
	Granularity Granularity             // default GranularitySentence
	KindColors  map[EntityKind]ColorTag // optional override of the default table
}

// Granularity selects the segmentation unit.
type Granularity string

// Segmentation granularities.
const (
	GranularitySentence Granularity = "sentence"
	GranularityToken    Granularity = "token"
)

// DefaultMaskColors returns the default mask set: red and orange spans are
// replaced by placeholders, everything else passes through.
func DefaultMaskColors() map[ColorTag]bool {
	return map[ColorTag]bool{ColorRed: true, ColorOrange: true}
}

// Result pairs the redaction artifacts with the policy ruling; it is what
// the excluded UI/CLI/HTTP layer renders.
type Result struct {
	Redaction RedactionResult `json:"redaction"`
	Decision  PolicyDecision  `json:"decision"`
	Sentiment float64         `json:"sentiment"`          // document-level polarity in [-1, 1]
	Degraded  []string        `json:"degraded,omitempty"` // detector strategies that were unavailable
}
