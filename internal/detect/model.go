package detect

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/time/rate"

	"github.com/privet-io/privet/internal/gate"
	"github.com/privet-io/privet/internal/llm"
)

// DefaultModelConfidence is attached to entities found by the model
// strategy; statistical findings are inherently less certain than
// checksum-validated regex matches.
const DefaultModelConfidence = 0.75

// nerPrompt asks the model for a strict JSON entity list. Offsets from
// models are unreliable, so only kind and verbatim text are requested and
// positions are resolved locally.
const nerPrompt = `Extract named entities from the text below. Respond with ONLY a JSON array, no prose, where each element is {"kind": K, "text": T}. K must be one of: PERSON, LOCATION, ORGANIZATION, OTHER. T must be the exact substring from the text. Return [] if there are none.

Text:
%s`

// ModelDetector finds PERSON/LOCATION/ORGANIZATION entities with an LLM
// provider. Calls are rate limited and bounded by the caller's context; on
// any failure the strategy reports an error and the runner degrades to the
// remaining strategies instead of failing the pipeline.
type ModelDetector struct {
	provider   llm.Provider
	model      string
	limiter    *rate.Limiter
	confidence float64
}

// ModelOption configures a ModelDetector.
type ModelOption func(*ModelDetector)

// WithModelConfidence overrides the confidence attached to model findings.
func WithModelConfidence(c float64) ModelOption {
	return func(d *ModelDetector) { d.confidence = c }
}

// WithRateLimit caps inference calls at r per second with the given burst.
func WithRateLimit(r rate.Limit, burst int) ModelOption {
	return func(d *ModelDetector) { d.limiter = rate.NewLimiter(r, burst) }
}

// NewModelDetector creates the statistical strategy backed by provider.
func NewModelDetector(provider llm.Provider, model string, opts ...ModelOption) *ModelDetector {
	d := &ModelDetector{
		provider:   provider,
		model:      model,
		limiter:    rate.NewLimiter(rate.Limit(5), 5),
		confidence: DefaultModelConfidence,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Name returns the strategy identifier.
func (d *ModelDetector) Name() string { return "model:" + d.provider.Name() }

// Detect asks the model for entities and resolves each reported text to
// its occurrences in the input. Duplicate reports of the same substring
// are collapsed; entities are emitted in model order, then occurrence
// order, which keeps detection order deterministic for a given response.
func (d *ModelDetector) Detect(ctx context.Context, text string, _ []gate.Span) ([]gate.Entity, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("model detector rate wait: %w", err)
	}

	raw, err := d.provider.Complete(ctx, d.model, fmt.Sprintf(nerPrompt, text))
	if err != nil {
		return nil, fmt.Errorf("model inference: %w", err)
	}

	items, err := parseEntityJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("model response: %w", err)
	}

	var entities []gate.Entity
	seen := make(map[string]bool)
	for _, item := range items {
		if item.Text == "" || seen[item.Text] {
			continue
		}
		seen[item.Text] = true
		kind := modelKind(item.Kind)
		for _, start := range occurrences(text, item.Text) {
			entities = append(entities, gate.Entity{
				Span:       gate.Span{Start: start, End: start + len(item.Text)},
				Kind:       kind,
				Text:       item.Text,
				Confidence: d.confidence,
				Detector:   d.Name(),
			})
		}
	}
	return entities, nil
}

type nerItem struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// parseEntityJSON tolerates markdown code fences and leading prose around
// the JSON array.
func parseEntityJSON(raw string) ([]nerItem, error) {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "["); i >= 0 {
		if j := strings.LastIndex(s, "]"); j > i {
			s = s[i : j+1]
		}
	}
	var items []nerItem
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		return nil, fmt.Errorf("parsing entity JSON: %w", err)
	}
	return items, nil
}

// modelKind restricts model output to the kinds this strategy is trusted
// for; anything else is flagged for review.
func modelKind(s string) gate.EntityKind {
	switch gate.ParseEntityKind(s) {
	case gate.KindPerson:
		return gate.KindPerson
	case gate.KindLocation:
		return gate.KindLocation
	case gate.KindOrganization:
		return gate.KindOrganization
	}
	return gate.KindOther
}

// occurrences returns the start offsets of every non-overlapping
// occurrence of sub in text.
func occurrences(text, sub string) []int {
	var out []int
	for from := 0; ; {
		i := strings.Index(text[from:], sub)
		if i < 0 {
			return out
		}
		out = append(out, from+i)
		from += i + len(sub)
	}
}
