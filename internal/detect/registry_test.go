package detect

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/privet-io/privet/internal/gate"
)

func TestDefaultRecognizersParse(t *testing.T) {
	recs, err := DefaultRecognizers()
	require.NoError(t, err)
	require.NotEmpty(t, recs)

	for _, r := range recs {
		assert.NotEmpty(t, r.Name)
		assert.NotEmpty(t, r.Patterns, "recognizer %s has no patterns", r.Name)
		assert.NotEqual(t, gate.KindOther, gate.ParseEntityKind(r.Kind),
			"recognizer %s declares an unknown kind %q", r.Name, r.Kind)
	}

	_, err = compilePatterns(recs)
	require.NoError(t, err)
}

func TestMergeRecognizersOverridesByName(t *testing.T) {
	defaults := []RecognizerConfig{
		{Name: "EmailRecognizer", Kind: "EMAIL", Patterns: []PatternConfig{{Name: "email", Regex: "a", Score: 1.0}}},
		{Name: "DateRecognizer", Kind: "DATE", Patterns: []PatternConfig{{Name: "date", Regex: "b", Score: 0.85}}},
	}
	disabled := false
	overrides := []RecognizerConfig{
		{Name: "DateRecognizer", Kind: "DATE", Enabled: &disabled},
		{Name: "CustomRecognizer", Kind: "NUMERIC_ID", Patterns: []PatternConfig{{Name: "c", Regex: "c", Score: 0.9}}},
	}

	merged := MergeRecognizers(defaults, overrides)
	require.Len(t, merged, 3)

	// Order of first appearance is preserved; the override replaces in place.
	assert.Equal(t, "EmailRecognizer", merged[0].Name)
	assert.Equal(t, "DateRecognizer", merged[1].Name)
	assert.False(t, merged[1].isEnabled())
	assert.Equal(t, "CustomRecognizer", merged[2].Name)
}

func TestFilterByKinds(t *testing.T) {
	recs := []RecognizerConfig{
		{Name: "a", Kind: "EMAIL"},
		{Name: "b", Kind: "DATE"},
		{Name: "c", Kind: "FINANCIAL"},
	}

	enabledOnly := FilterByKinds(recs, []gate.EntityKind{gate.KindEmail, gate.KindDate}, nil)
	require.Len(t, enabledOnly, 2)

	thenDisabled := FilterByKinds(recs, []gate.EntityKind{gate.KindEmail, gate.KindDate}, []gate.EntityKind{gate.KindDate})
	require.Len(t, thenDisabled, 1)
	assert.Equal(t, "a", thenDisabled[0].Name)

	untouched := FilterByKinds(recs, nil, nil)
	assert.Len(t, untouched, 3)
}

func TestLoadRecognizerFileMissing(t *testing.T) {
	rf, err := LoadRecognizerFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Nil(t, rf)
}

func TestLoadRecognizerFileOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "override.yaml")
	yaml := `recognizers:
  - name: BadgeRecognizer
    kind: NUMERIC_ID
    context: [badge]
    patterns:
      - name: badge
        regex: '\bBDG-\d{6}\b'
        score: 0.9
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	d, err := NewRegexDetector(WithPatternFile(path))
	require.NoError(t, err)

	entities, err := d.Detect(context.Background(), "Employee badge BDG-123456 issued.", nil)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, gate.KindNumericID, entities[0].Kind)
	assert.Equal(t, "BDG-123456", entities[0].Text)
}

func TestParseRecognizerFileBadYAML(t *testing.T) {
	_, err := ParseRecognizerFile([]byte("recognizers: [not: valid"))
	require.Error(t, err)
}
