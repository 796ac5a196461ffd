// Package pipeline composes the five processing stages into the single
// entry point callers invoke: correct, segment, detect, classify, redact,
// decide, audit. Each invocation is independent and side-effect-free except
// for the final audit append, so invocations may run fully in parallel.
package pipeline

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/privet-io/privet/internal/audit"
	"github.com/privet-io/privet/internal/classify"
	"github.com/privet-io/privet/internal/detect"
	"github.com/privet-io/privet/internal/gate"
	privetotel "github.com/privet-io/privet/internal/otel"
	"github.com/privet-io/privet/internal/policy"
	"github.com/privet-io/privet/internal/redact"
	"github.com/privet-io/privet/internal/segment"
	"github.com/privet-io/privet/internal/sentiment"
)

var tracer = privetotel.Tracer("github.com/privet-io/privet/internal/pipeline")

// DefaultMaxInputChars caps input size when no ceiling is configured.
const DefaultMaxInputChars = 100_000

// Pipeline is the assembled processing chain. Construct once, share across
// goroutines; per-invocation state lives entirely on the stack.
type Pipeline struct {
	detector      *detect.Runner
	scorer        *sentiment.Scorer
	sink          audit.Sink
	maxInputChars int
}

// Config assembles a Pipeline.
type Config struct {
	Detector      *detect.Runner // required
	Sink          audit.Sink     // optional; nil disables the audit trail
	MaxInputChars int            // 0 selects DefaultMaxInputChars
}

// New builds a Pipeline from cfg.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Detector == nil {
		return nil, fmt.Errorf("pipeline requires a detector")
	}
	maxChars := cfg.MaxInputChars
	if maxChars == 0 {
		maxChars = DefaultMaxInputChars
	}
	return &Pipeline{
		detector:      cfg.Detector,
		scorer:        sentiment.New(),
		sink:          cfg.Sink,
		maxInputChars: maxChars,
	}, nil
}

// Process runs the full chain over text. Input validation happens before
// any processing: empty or oversized text returns *gate.InputError with no
// spans computed and no audit record written. A cancelled context aborts at
// the next suspension point, also without an audit append.
//
// Detector strategy failures never fail the call; they surface in
// Result.Degraded and in the audit record. The audit append itself is
// best-effort: a sink failure is logged and the result still returned.
func (p *Pipeline) Process(ctx context.Context, text string, opts gate.Options) (*gate.Result, error) {
	if text == "" {
		return nil, &gate.InputError{Reason: gate.ErrEmptyInput}
	}
	if n := utf8.RuneCountInString(text); n > p.maxInputChars {
		return nil, &gate.InputError{Reason: gate.ErrOversizedInput, Length: n, Limit: p.maxInputChars}
	}

	ctx, span := tracer.Start(ctx, "pipeline.process")
	defer span.End()

	// Correction is length-preserving, so offsets computed against the
	// corrected text are also valid offsets into the input.
	corrected := redact.Correct(text)

	granularity := opts.Granularity
	if granularity == "" {
		granularity = gate.GranularitySentence
	}
	segments := segment.New(granularity).Segment(corrected)

	detected := p.detector.Detect(ctx, corrected, segments)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	classifier := classify.New(p.scorer, classify.WithKindColors(opts.KindColors))
	spans := classifier.Classify(corrected, segments, detected.Entities)

	redaction := redact.New(opts.MaskColors).Apply(corrected, spans)
	decision := policy.Evaluate(spans, opts.Mode)

	span.SetAttributes(
		attribute.String("pipeline.verdict", string(decision.Verdict)),
		attribute.Int("pipeline.span_count", len(spans)),
		attribute.Int("pipeline.entity_count", len(detected.Entities)),
	)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.appendAudit(ctx, text, decision, spans, detected.Degraded)

	return &gate.Result{
		Redaction: redaction,
		Decision:  decision,
		Sentiment: p.scorer.Score(corrected),
		Degraded:  detected.Degraded,
	}, nil
}

// appendAudit writes the record best-effort. Failures are logged, never
// propagated.
func (p *Pipeline) appendAudit(ctx context.Context, input string, decision gate.PolicyDecision, spans []gate.ClassifiedSpan, degraded []string) {
	if p.sink == nil {
		return
	}
	rec := audit.NewRecord(input, decision, spans, degraded)
	if err := p.sink.Append(ctx, rec); err != nil {
		log.Error().Err(err).Str("record_id", rec.ID).Func(privetotel.LogTraceFields(ctx)).Msg("audit append failed")
		return
	}
	log.Debug().
		Str("record_id", rec.ID).
		Str("verdict", string(decision.Verdict)).
		Int("redactions", len(rec.Redactions)).
		Func(privetotel.LogTraceFields(ctx)).
		Msg("audit record appended")
}
