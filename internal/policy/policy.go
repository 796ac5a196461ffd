// Package policy implements the decision gate: one terminal verdict per
// invocation, derived from the aggregate span classification. Verdicts are
// data, not errors; BLOCK is authoritative and the caller must not forward
// any text downstream after it.
package policy

import (
	"fmt"

	"github.com/privet-io/privet/internal/gate"
)

// Evaluate runs the verdict state machine over the classified spans.
//
// ALLOW requires both no red/orange span and no entity-driven span flagged
// for review (yellow or purple). Red spans block in strict mode. Permissive
// mode anonymizes red/orange findings and continues with the masked text.
// Everything else warns: moderate-mode red/orange, or review-flagged spans
// without any red/orange. An empty mode defaults to permissive.
//
// The verdict is monotonic in severity: adding red or orange spans to a
// result never yields a less restrictive verdict under the same mode.
func Evaluate(spans []gate.ClassifiedSpan, mode gate.Mode) gate.PolicyDecision {
	if mode == "" {
		mode = gate.ModePermissive
	}

	var red, redOrange, review []gate.ClassifiedSpan
	for _, s := range spans {
		switch s.Color {
		case gate.ColorRed:
			red = append(red, s)
			redOrange = append(redOrange, s)
		case gate.ColorOrange:
			redOrange = append(redOrange, s)
		case gate.ColorYellow, gate.ColorPurple:
			if s.Entity != nil {
				review = append(review, s)
			}
		}
	}

	switch {
	case len(redOrange) == 0 && len(review) == 0:
		return gate.PolicyDecision{
			Verdict: gate.VerdictAllow,
			Reason:  "no sensitive spans detected",
		}
	case mode == gate.ModeStrict && len(red) > 0:
		return gate.PolicyDecision{
			Verdict:         gate.VerdictBlock,
			TriggeringSpans: red,
			Reason:          fmt.Sprintf("strict mode: %d red span(s), text must not be forwarded", len(red)),
		}
	case mode == gate.ModePermissive && len(redOrange) > 0:
		return gate.PolicyDecision{
			Verdict:         gate.VerdictAnonymize,
			TriggeringSpans: redOrange,
			Reason:          fmt.Sprintf("permissive mode: %d sensitive span(s) masked, forward masked text", len(redOrange)),
		}
	default:
		triggering := redOrange
		reason := fmt.Sprintf("%d sensitive span(s) present, forward with warning", len(redOrange))
		if len(triggering) == 0 {
			triggering = review
			reason = fmt.Sprintf("%d span(s) flagged for review", len(review))
		}
		return gate.PolicyDecision{
			Verdict:         gate.VerdictWarn,
			TriggeringSpans: triggering,
			Reason:          reason,
		}
	}
}
