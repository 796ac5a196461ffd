// Package config holds operator-level configuration for a Privet
// installation: data directory, audit signing key, policy mode, masking and
// segmentation defaults, and the optional model detector endpoint. Set via
// env vars (PRIVET_*) or programmatically through viper.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/privet-io/privet/internal/gate"
)

// Viper keys. Each maps to an env var with the PRIVET_ prefix
// (e.g. "signing_key" → PRIVET_SIGNING_KEY).
const (
	KeyDataDir       = "data_dir"
	KeySigningKey    = "signing_key"
	KeyMode          = "mode"
	KeyMaskColors    = "mask_colors"
	KeyGranularity   = "granularity"
	KeyKindColors    = "kind_colors"
	KeyMaxInputChars = "max_input_chars"
	KeyPatternFile   = "pattern_file"
	KeyModelProvider = "model_provider"
	KeyModel         = "model"
	KeyOllamaBaseURL = "ollama_base_url"
	KeyOpenAIAPIKey  = "openai_api_key"
	KeyRetentionDays = "retention_days"
	KeyOTelEnabled   = "otel_enabled"
)

// Defaults. The signing key intentionally has no baked-in default — when
// unset we derive a per-machine fallback and warn loudly.
const (
	DefaultMaxInputChars = 100_000
	DefaultModel         = "llama3.2"
	DefaultOllamaURL     = "http://localhost:11434"
	DefaultRetentionDays = 90
)

// Config is the resolved configuration for a Privet process.
type Config struct {
	DataDir       string            // base directory for all state (~/.privet)
	SigningKey    string            // HMAC-SHA256 key for audit signing (≥32 bytes)
	Mode          string            // strict | permissive | moderate
	MaskColors    []string          // colors replaced by placeholders in masked text
	Granularity   string            // sentence | token
	KindColors    map[string]string // per-kind color overrides, e.g. DATE: green
	MaxInputChars int               // input size ceiling, characters
	PatternFile   string            // optional recognizer YAML layered over defaults
	ModelProvider string            // "" (disabled) | openai | ollama
	Model         string            // model name for the statistical detector
	OllamaBaseURL string            // Ollama API endpoint
	OpenAIAPIKey  string            // quickstart fallback, prefer real secret storage
	RetentionDays int               // audit records older than this are purged
	OTelEnabled   bool              // stdout trace/metric exporters

	usingDefaultSigningKey bool
}

// UsingDefaultSigningKey returns true if the signing key was derived
// rather than set explicitly. Commands should warn when this is the case.
func (c *Config) UsingDefaultSigningKey() bool {
	return c.usingDefaultSigningKey
}

// AuditDBPath returns the full path to the audit SQLite database.
func (c *Config) AuditDBPath() string {
	return filepath.Join(c.DataDir, "audit.db")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0o700)
}

// WarnIfDefaultKey logs a warning when the signing key is not explicitly set.
func (c *Config) WarnIfDefaultKey() {
	if c.usingDefaultSigningKey {
		log.Warn().Msg("Using generated default PRIVET_SIGNING_KEY — set via env var for production")
	}
}

// Options converts the configured defaults into per-invocation options.
// Load already validated every field, so parsing here cannot fail.
func (c *Config) Options() gate.Options {
	maskColors := make(map[gate.ColorTag]bool, len(c.MaskColors))
	for _, raw := range c.MaskColors {
		color, _ := gate.ParseColorTag(raw)
		maskColors[color] = true
	}
	var kindColors map[gate.EntityKind]gate.ColorTag
	if len(c.KindColors) > 0 {
		kindColors = make(map[gate.EntityKind]gate.ColorTag, len(c.KindColors))
		for rawKind, rawColor := range c.KindColors {
			color, _ := gate.ParseColorTag(rawColor)
			kindColors[gate.ParseEntityKind(strings.ToUpper(rawKind))] = color
		}
	}
	return gate.Options{
		Mode:        gate.Mode(c.Mode),
		MaskColors:  maskColors,
		Granularity: gate.Granularity(c.Granularity),
		KindColors:  kindColors,
	}
}

func init() {
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

// Load reads configuration from Viper (env vars merged over defaults) and
// returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{
		DataDir:       resolveDataDir(),
		SigningKey:    viper.GetString(KeySigningKey),
		Mode:          viper.GetString(KeyMode),
		MaskColors:    viper.GetStringSlice(KeyMaskColors),
		Granularity:   viper.GetString(KeyGranularity),
		KindColors:    viper.GetStringMapString(KeyKindColors),
		MaxInputChars: viper.GetInt(KeyMaxInputChars),
		PatternFile:   viper.GetString(KeyPatternFile),
		ModelProvider: viper.GetString(KeyModelProvider),
		Model:         viper.GetString(KeyModel),
		OllamaBaseURL: viper.GetString(KeyOllamaBaseURL),
		OpenAIAPIKey:  viper.GetString(KeyOpenAIAPIKey),
		RetentionDays: viper.GetInt(KeyRetentionDays),
		OTelEnabled:   viper.GetBool(KeyOTelEnabled),
	}

	if cfg.SigningKey == "" {
		cfg.SigningKey = deriveDefaultKey(cfg.DataDir, "audit-signing")
		cfg.usingDefaultSigningKey = true
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func resolveDataDir() string {
	if dir := viper.GetString(KeyDataDir); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".privet"
	}
	return filepath.Join(home, ".privet")
}

// deriveDefaultKey produces a deterministic 32-byte fallback key from the
// data directory path and a salt. Not cryptographically strong; it exists
// so `privet scan` works out of the box while still signing records with a
// per-machine-unique key.
func deriveDefaultKey(dataDir, salt string) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("privet:%s:%s", dataDir, salt)))
	return hex.EncodeToString(h[:])
}

func (c *Config) validate() error {
	if _, err := gate.ParseMode(c.Mode); err != nil {
		return fmt.Errorf("mode: %w", err)
	}
	for _, raw := range c.MaskColors {
		if _, err := gate.ParseColorTag(raw); err != nil {
			return fmt.Errorf("mask_colors: %w", err)
		}
	}
	switch gate.Granularity(c.Granularity) {
	case gate.GranularitySentence, gate.GranularityToken:
	default:
		return fmt.Errorf("granularity must be sentence or token (got %q)", c.Granularity)
	}
	for rawKind, rawColor := range c.KindColors {
		upper := strings.ToUpper(rawKind)
		if gate.ParseEntityKind(upper) == gate.KindOther && upper != string(gate.KindOther) {
			return fmt.Errorf("kind_colors: unknown entity kind %q", rawKind)
		}
		if _, err := gate.ParseColorTag(rawColor); err != nil {
			return fmt.Errorf("kind_colors: %w", err)
		}
	}
	if c.MaxInputChars <= 0 {
		return fmt.Errorf("max_input_chars must be positive")
	}
	if c.RetentionDays <= 0 {
		return fmt.Errorf("retention_days must be positive")
	}
	switch c.ModelProvider {
	case "", "openai", "ollama":
	default:
		return fmt.Errorf("model_provider must be openai or ollama (got %q)", c.ModelProvider)
	}
	if err := validateSigningKey(c.SigningKey); err != nil {
		return err
	}
	return nil
}

// validateSigningKey accepts either ≥32 raw bytes or 64+ hex characters
// decoding to at least 32 bytes.
func validateSigningKey(key string) error {
	n := len(key)
	if n >= 64 && n%2 == 0 && isHexString(key) {
		decoded, err := hex.DecodeString(key)
		if err != nil || len(decoded) < 32 {
			return fmt.Errorf("signing_key hex must decode to at least 32 bytes: %w", err)
		}
		return nil
	}
	if n >= 32 {
		return nil
	}
	return fmt.Errorf("signing_key must be at least 32 bytes or 64+ hex characters (got %d); set PRIVET_SIGNING_KEY", n)
}

func isHexString(s string) bool {
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}
