package detect

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/privet-io/privet/internal/gate"
	"github.com/privet-io/privet/patterns"
)

// RecognizerFile is the top-level YAML structure for a recognizer config
// file. The format mirrors Presidio's recognizer registry with Privet
// extensions (kind, validate, context).
type RecognizerFile struct {
	Recognizers []RecognizerConfig `yaml:"recognizers"`
}

// RecognizerConfig declares one recognizer: the entity kind it emits, its
// regex patterns, optional checksum validation, and context words that
// boost match confidence.
type RecognizerConfig struct {
	Name     string          `yaml:"name" json:"name"`
	Kind     string          `yaml:"kind" json:"kind"`
	Enabled  *bool           `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Validate string          `yaml:"validate,omitempty" json:"validate,omitempty"` // "", "luhn", "iban"
	Context  []string        `yaml:"context,omitempty" json:"context,omitempty"`
	Patterns []PatternConfig `yaml:"patterns,omitempty" json:"patterns,omitempty"`
}

// PatternConfig is a single regex pattern within a recognizer.
type PatternConfig struct {
	Name  string  `yaml:"name" json:"name"`
	Regex string  `yaml:"regex" json:"regex"`
	Score float64 `yaml:"score" json:"score"`
}

// isEnabled returns true if the recognizer is enabled (defaults to true when nil).
func (r *RecognizerConfig) isEnabled() bool {
	if r.Enabled == nil {
		return true
	}
	return *r.Enabled
}

// ParseRecognizerFile parses recognizer YAML bytes into a RecognizerFile.
func ParseRecognizerFile(data []byte) (*RecognizerFile, error) {
	var rf RecognizerFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing recognizer YAML: %w", err)
	}
	return &rf, nil
}

// LoadRecognizerFile reads and parses a recognizer YAML file from disk.
// Returns nil (not an error) if the file does not exist, so callers can
// treat a missing override file as a no-op.
func LoadRecognizerFile(path string) (*RecognizerFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading recognizer file %s: %w", path, err)
	}
	return ParseRecognizerFile(data)
}

// DefaultRecognizers returns the built-in recognizers parsed from the
// embedded pii_default.yaml. This is the first layer in the merge chain.
func DefaultRecognizers() ([]RecognizerConfig, error) {
	rf, err := ParseRecognizerFile(patterns.PIIDefaultYAML())
	if err != nil {
		return nil, fmt.Errorf("parsing embedded recognizers: %w", err)
	}
	return rf.Recognizers, nil
}

// MergeRecognizers layers recognizer lists: defaults first, then overrides.
// Later layers replace earlier ones by matching on Name; new recognizers
// are appended. Order is preserved, which keeps detection order stable.
func MergeRecognizers(layers ...[]RecognizerConfig) []RecognizerConfig {
	index := make(map[string]int)
	var merged []RecognizerConfig

	for _, layer := range layers {
		for _, rc := range layer {
			if idx, exists := index[rc.Name]; exists {
				merged[idx] = rc
			} else {
				index[rc.Name] = len(merged)
				merged = append(merged, rc)
			}
		}
	}
	return merged
}

// FilterByKinds applies enabled/disabled kind filters. A non-empty
// enabled list is a whitelist; the disabled list is then removed.
func FilterByKinds(recognizers []RecognizerConfig, enabled, disabled []gate.EntityKind) []RecognizerConfig {
	result := recognizers

	if len(enabled) > 0 {
		allowed := make(map[gate.EntityKind]bool, len(enabled))
		for _, k := range enabled {
			allowed[k] = true
		}
		var filtered []RecognizerConfig
		for _, r := range result {
			if allowed[gate.ParseEntityKind(r.Kind)] {
				filtered = append(filtered, r)
			}
		}
		result = filtered
	}

	if len(disabled) > 0 {
		blocked := make(map[gate.EntityKind]bool, len(disabled))
		for _, k := range disabled {
			blocked[k] = true
		}
		var filtered []RecognizerConfig
		for _, r := range result {
			if !blocked[gate.ParseEntityKind(r.Kind)] {
				filtered = append(filtered, r)
			}
		}
		result = filtered
	}

	return result
}

// compiledPattern is a ready-to-use detection pattern.
type compiledPattern struct {
	name     string
	kind     gate.EntityKind
	re       *regexp.Regexp
	score    float64
	context  []string
	validate string
}

// compilePatterns converts recognizer configs into the ordered compiled
// pattern list the regex detector runs. Disabled recognizers are skipped;
// each regex produces one compiled pattern.
func compilePatterns(recognizers []RecognizerConfig) ([]compiledPattern, error) {
	var compiled []compiledPattern
	for _, rec := range recognizers {
		if !rec.isEnabled() {
			continue
		}
		kind := gate.ParseEntityKind(rec.Kind)
		for _, p := range rec.Patterns {
			re, err := regexp.Compile(p.Regex)
			if err != nil {
				return nil, fmt.Errorf("compiling pattern %q in recognizer %q: %w", p.Name, rec.Name, err)
			}
			compiled = append(compiled, compiledPattern{
				name:     rec.Name,
				kind:     kind,
				re:       re,
				score:    p.Score,
				context:  rec.Context,
				validate: rec.Validate,
			})
		}
	}
	return compiled, nil
}
