package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/privet-io/privet/internal/config"
	"github.com/privet-io/privet/internal/gate"
)

func newScanFlagsCmd(t *testing.T) *cobra.Command {
	t.Helper()
	prevMode, prevGranularity, prevColors := scanMode, scanGranularity, scanMaskColors
	t.Cleanup(func() {
		scanMode, scanGranularity, scanMaskColors = prevMode, prevGranularity, prevColors
	})

	c := &cobra.Command{}
	c.Flags().StringVar(&scanMode, "mode", "", "")
	c.Flags().StringVar(&scanGranularity, "granularity", "", "")
	c.Flags().StringSliceVar(&scanMaskColors, "mask-colors", nil, "")
	return c
}

func baseConfig() *config.Config {
	return &config.Config{
		Mode:        string(gate.ModePermissive),
		MaskColors:  []string{"red", "orange"},
		Granularity: string(gate.GranularitySentence),
	}
}

func TestScanInput(t *testing.T) {
	text, err := scanInput("", []string{"from arg"}, strings.NewReader("ignored"))
	require.NoError(t, err)
	assert.Equal(t, "from arg", text)

	text, err = scanInput("", nil, strings.NewReader("from stdin"))
	require.NoError(t, err)
	assert.Equal(t, "from stdin", text)
}

func TestScanInputFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.txt")
	require.NoError(t, os.WriteFile(path, []byte("from file"), 0o600))

	text, err := scanInput(path, nil, strings.NewReader("ignored"))
	require.NoError(t, err)
	assert.Equal(t, "from file", text)

	_, err = scanInput(filepath.Join(t.TempDir(), "missing.txt"), nil, strings.NewReader(""))
	require.Error(t, err)
}

func TestResolveScanOptionsDefaults(t *testing.T) {
	c := newScanFlagsCmd(t)

	opts, err := resolveScanOptions(baseConfig(), c)
	require.NoError(t, err)
	assert.Equal(t, gate.ModePermissive, opts.Mode)
	assert.Equal(t, gate.GranularitySentence, opts.Granularity)
	assert.True(t, opts.MaskColors[gate.ColorRed])
	assert.True(t, opts.MaskColors[gate.ColorOrange])
}

func TestResolveScanOptionsFlagOverrides(t *testing.T) {
	c := newScanFlagsCmd(t)
	require.NoError(t, c.Flags().Set("mode", "strict"))
	require.NoError(t, c.Flags().Set("granularity", "token"))
	require.NoError(t, c.Flags().Set("mask-colors", "red,yellow"))

	opts, err := resolveScanOptions(baseConfig(), c)
	require.NoError(t, err)
	assert.Equal(t, gate.ModeStrict, opts.Mode)
	assert.Equal(t, gate.GranularityToken, opts.Granularity)
	assert.True(t, opts.MaskColors[gate.ColorYellow])
	assert.False(t, opts.MaskColors[gate.ColorOrange])
}

func TestResolveScanOptionsRejectsBadMode(t *testing.T) {
	c := newScanFlagsCmd(t)
	require.NoError(t, c.Flags().Set("mode", "yolo"))

	_, err := resolveScanOptions(baseConfig(), c)
	require.Error(t, err)
}

func TestResolveScanOptionsRejectsBadColor(t *testing.T) {
	c := newScanFlagsCmd(t)
	require.NoError(t, c.Flags().Set("mask-colors", "magenta"))

	_, err := resolveScanOptions(baseConfig(), c)
	require.Error(t, err)
}

func sampleResult(verdict gate.Verdict) *gate.Result {
	return &gate.Result{
		Redaction: gate.RedactionResult{
			CorrectedText: "My email is a@b.com.",
			MaskedText:    "My email is [EMAIL_REDACTED].",
		},
		Decision:  gate.PolicyDecision{Verdict: verdict, Reason: "test reason"},
		Sentiment: -0.25,
		Degraded:  []string{"model:ollama"},
	}
}

func TestRenderResultText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderResult(&buf, sampleResult(gate.VerdictAnonymize), "text"))

	out := buf.String()
	assert.Contains(t, out, "Verdict: ANONYMIZE")
	assert.Contains(t, out, "test reason")
	assert.Contains(t, out, "Sentiment: -0.25")
	assert.Contains(t, out, "model:ollama")
	assert.Contains(t, out, "[EMAIL_REDACTED]")
}

func TestRenderResultBlockWithholdsText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderResult(&buf, sampleResult(gate.VerdictBlock), "text"))

	out := buf.String()
	assert.Contains(t, out, "Verdict: BLOCK")
	assert.NotContains(t, out, "[EMAIL_REDACTED]")
}

func TestRenderResultJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderResult(&buf, sampleResult(gate.VerdictWarn), "json"))

	var decoded gate.Result
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, gate.VerdictWarn, decoded.Decision.Verdict)
	assert.Equal(t, "My email is [EMAIL_REDACTED].", decoded.Redaction.MaskedText)
}

func TestBuildProviderDisabled(t *testing.T) {
	assert.Nil(t, buildProvider(&config.Config{}))
	assert.Nil(t, buildProvider(&config.Config{ModelProvider: "openai"}))
	assert.NotNil(t, buildProvider(&config.Config{ModelProvider: "ollama", OllamaBaseURL: "http://localhost:11434"}))
}
