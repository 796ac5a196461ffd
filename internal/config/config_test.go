package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/privet-io/privet/internal/gate"
)

// resetViper restores a clean viper state between tests. t.Setenv handles
// restoring the environment.
func resetViper(t *testing.T) {
	t.Helper()
	t.Setenv("PRIVET_DATA_DIR", t.TempDir())
	t.Setenv("PRIVET_SIGNING_KEY", "")
	t.Setenv("PRIVET_MODE", "")
	t.Setenv("PRIVET_GRANULARITY", "")
	t.Setenv("PRIVET_MAX_INPUT_CHARS", "")
	t.Setenv("PRIVET_MODEL_PROVIDER", "")
	t.Setenv("PRIVET_RETENTION_DAYS", "")
	viper.Reset()
	viper.SetEnvPrefix("PRIVET")
	viper.AutomaticEnv()
	viper.SetDefault(KeyMode, string(gate.ModePermissive))
	viper.SetDefault(KeyMaskColors, []string{string(gate.ColorRed), string(gate.ColorOrange)})
	viper.SetDefault(KeyGranularity, string(gate.GranularitySentence))
	viper.SetDefault(KeyMaxInputChars, DefaultMaxInputChars)
	viper.SetDefault(KeyModel, DefaultModel)
	viper.SetDefault(KeyOllamaBaseURL, DefaultOllamaURL)
	viper.SetDefault(KeyRetentionDays, DefaultRetentionDays)
}

func TestLoad_Defaults(t *testing.T) {
	resetViper(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, string(gate.ModePermissive), cfg.Mode)
	assert.Equal(t, []string{"red", "orange"}, cfg.MaskColors)
	assert.Equal(t, string(gate.GranularitySentence), cfg.Granularity)
	assert.Equal(t, DefaultMaxInputChars, cfg.MaxInputChars)
	assert.Equal(t, DefaultRetentionDays, cfg.RetentionDays)
	assert.Empty(t, cfg.ModelProvider)
	assert.True(t, cfg.UsingDefaultSigningKey())
	assert.Len(t, cfg.SigningKey, 64)
	assert.Contains(t, cfg.AuditDBPath(), "audit.db")
}

func TestLoad_ExplicitSigningKey(t *testing.T) {
	resetViper(t)
	t.Setenv("PRIVET_SIGNING_KEY", "my-signing-key-at-least-32-chars!")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "my-signing-key-at-least-32-chars!", cfg.SigningKey)
	assert.False(t, cfg.UsingDefaultSigningKey())
}

func TestLoad_InvalidSigningKeyLength(t *testing.T) {
	resetViper(t)
	t.Setenv("PRIVET_SIGNING_KEY", "short")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signing_key must be at least 32 bytes")
}

func TestLoad_InvalidMode(t *testing.T) {
	resetViper(t)
	t.Setenv("PRIVET_MODE", "yolo")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mode")
}

func TestLoad_InvalidMaskColor(t *testing.T) {
	resetViper(t)
	viper.Set(KeyMaskColors, []string{"red", "magenta"})

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mask_colors")
}

func TestLoad_InvalidGranularity(t *testing.T) {
	resetViper(t)
	t.Setenv("PRIVET_GRANULARITY", "paragraph")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "granularity")
}

func TestLoad_InvalidModelProvider(t *testing.T) {
	resetViper(t)
	t.Setenv("PRIVET_MODEL_PROVIDER", "bedrock")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model_provider")
}

func TestLoad_CustomDataDir(t *testing.T) {
	resetViper(t)
	dir := t.TempDir()
	t.Setenv("PRIVET_DATA_DIR", dir)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.DataDir)
}

func TestLoad_CustomMaxInputChars(t *testing.T) {
	resetViper(t)
	t.Setenv("PRIVET_MAX_INPUT_CHARS", "500")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.MaxInputChars)
}

func TestOptions(t *testing.T) {
	resetViper(t)
	t.Setenv("PRIVET_MODE", "strict")
	t.Setenv("PRIVET_GRANULARITY", "token")
	viper.Set(KeyMaskColors, []string{"red", "orange", "yellow"})

	cfg, err := Load()
	require.NoError(t, err)

	opts := cfg.Options()
	assert.Equal(t, gate.ModeStrict, opts.Mode)
	assert.Equal(t, gate.GranularityToken, opts.Granularity)
	assert.True(t, opts.MaskColors[gate.ColorYellow])
	assert.False(t, opts.MaskColors[gate.ColorBlue])
}

func TestLoad_KindColorOverrides(t *testing.T) {
	resetViper(t)
	viper.Set(KeyKindColors, map[string]string{"date": "green", "PHONE": "orange"})

	cfg, err := Load()
	require.NoError(t, err)

	opts := cfg.Options()
	assert.Equal(t, gate.ColorGreen, opts.KindColors[gate.KindDate])
	assert.Equal(t, gate.ColorOrange, opts.KindColors[gate.KindPhone])
}

func TestLoad_InvalidKindColorKind(t *testing.T) {
	resetViper(t)
	viper.Set(KeyKindColors, map[string]string{"gadget": "green"})

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown entity kind")
}

func TestLoad_InvalidKindColorValue(t *testing.T) {
	resetViper(t)
	viper.Set(KeyKindColors, map[string]string{"DATE": "magenta"})

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kind_colors")
}

func TestDeriveDefaultKeyIsStablePerPath(t *testing.T) {
	a := deriveDefaultKey("/tmp/a", "audit-signing")
	b := deriveDefaultKey("/tmp/a", "audit-signing")
	c := deriveDefaultKey("/tmp/b", "audit-signing")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
