// Package detect finds PII and sensitive spans in segmented text. It is
// polymorphic over detection strategies: a deterministic regex strategy
// (recognizer registry, checksum gates, context boosting) and an optional
// model-backed strategy for names, locations, and organizations.
// Strategies run concurrently per invocation; a failing strategy degrades
// the result instead of failing the pipeline. Detected entities may
// overlap each other or cross segment boundaries — overlap resolution is
// the classifier's job, not the detector's.
package detect

import (
	"context"
	"sort"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/privet-io/privet/internal/gate"
	privetotel "github.com/privet-io/privet/internal/otel"
)

var tracer = privetotel.Tracer("github.com/privet-io/privet/internal/detect")

// Strategy is one detection approach. Detect never panics on malformed
// input; it returns an error only when the strategy itself is unavailable
// (model endpoint down, timeout), which the Runner converts into a
// DEGRADED capability flag.
type Strategy interface {
	Name() string
	Detect(ctx context.Context, text string, segments []gate.Span) ([]gate.Entity, error)
}

// Result is the merged output of all strategies. Degraded lists the
// strategies that were unavailable for this invocation.
type Result struct {
	Entities []gate.Entity
	Degraded []string
}

// Runner fans an invocation out to all registered strategies and merges
// their findings deterministically.
type Runner struct {
	strategies []Strategy
}

// NewRunner creates a Runner over the given strategies. Registration order
// defines detection order: entities from earlier strategies precede those
// from later ones in the merged result, which the classifier's tie-break
// rule depends on.
func NewRunner(strategies ...Strategy) *Runner {
	return &Runner{strategies: strategies}
}

// Detect runs every strategy concurrently and merges results in
// registration order. A strategy error never fails the call: the strategy
// is recorded in Result.Degraded and its findings are dropped. Entities
// within the merged slice keep each strategy's own emission order, so the
// merge is reproducible across runs for identical inputs.
func (r *Runner) Detect(ctx context.Context, text string, segments []gate.Span) *Result {
	ctx, span := tracer.Start(ctx, "detect.run")
	defer span.End()

	type outcome struct {
		idx      int
		entities []gate.Entity
		err      error
	}

	ch := make(chan outcome, len(r.strategies))
	for i, s := range r.strategies {
		go func(idx int, s Strategy) {
			entities, err := s.Detect(ctx, text, segments)
			ch <- outcome{idx: idx, entities: entities, err: err}
		}(i, s)
	}

	outcomes := make([]outcome, 0, len(r.strategies))
	for range r.strategies {
		outcomes = append(outcomes, <-ch)
	}
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].idx < outcomes[j].idx })

	result := &Result{}
	for _, o := range outcomes {
		if o.err != nil {
			name := r.strategies[o.idx].Name()
			log.Warn().Err(o.err).Str("strategy", name).Msg("detector strategy degraded")
			result.Degraded = append(result.Degraded, name)
			continue
		}
		result.Entities = append(result.Entities, o.entities...)
	}

	span.SetAttributes(
		attribute.Int("detect.entity_count", len(result.Entities)),
		attribute.Int("detect.degraded_count", len(result.Degraded)),
	)
	return result
}
