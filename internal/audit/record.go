// Package audit provides the HMAC-signed trail of redaction decisions.
//
// Every pipeline invocation produces one Record holding the policy verdict,
// the redactions performed, and a hash of the input. Records are signed
// (HMAC-SHA256) and persisted in SQLite; appends are best-effort and never
// block the caller's response.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"

	"github.com/privet-io/privet/internal/gate"
)

// Redaction is one entity-driven span in the record: what kind of data was
// found, the matched text, and the color it classified as.
type Redaction struct {
	Kind  gate.EntityKind `json:"kind"`
	Text  string          `json:"text"`
	Color gate.ColorTag   `json:"color"`
}

// Record is the durable audit entry for a single invocation. The raw input
// never appears in it, only its SHA-256 hash.
type Record struct {
	ID         string              `json:"id"`
	Timestamp  time.Time           `json:"timestamp"`
	InputHash  string              `json:"input_hash"`
	Decision   gate.PolicyDecision `json:"decision"`
	Redactions []Redaction         `json:"redactions,omitempty"`
	Degraded   []string            `json:"degraded,omitempty"`
	Signature  string              `json:"signature"`
}

// Sink receives one record per invocation. Implementations must be safe for
// concurrent appenders.
type Sink interface {
	Append(ctx context.Context, rec *Record) error
}

// NewRecord builds an unsigned record from an invocation's outcome. All
// entity-driven spans are listed as redactions, whatever their color, so the
// trail shows review-flagged findings too.
func NewRecord(input string, decision gate.PolicyDecision, spans []gate.ClassifiedSpan, degraded []string) *Record {
	sum := sha256.Sum256([]byte(input))

	var redactions []Redaction
	for _, s := range spans {
		if s.Entity == nil {
			continue
		}
		redactions = append(redactions, Redaction{
			Kind:  s.Entity.Kind,
			Text:  s.Entity.Text,
			Color: s.Color,
		})
	}

	return &Record{
		ID:         "aud_" + uuid.NewString(),
		Timestamp:  time.Now().UTC(),
		InputHash:  hex.EncodeToString(sum[:]),
		Decision:   decision,
		Redactions: redactions,
		Degraded:   degraded,
	}
}
