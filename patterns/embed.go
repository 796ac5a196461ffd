// Package patterns provides the embedded default recognizer definitions.
// The YAML format mirrors Presidio's recognizer registry with Privet
// extensions (kind, validate, context).
package patterns

import _ "embed"

//go:embed pii_default.yaml
var piiDefaultYAML []byte

// PIIDefaultYAML returns the embedded default PII recognizer definitions.
func PIIDefaultYAML() []byte { return piiDefaultYAML }
