package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/privet-io/privet/internal/audit"
	"github.com/privet-io/privet/internal/config"
	"github.com/privet-io/privet/internal/detect"
	"github.com/privet-io/privet/internal/gate"
	"github.com/privet-io/privet/internal/llm"
	"github.com/privet-io/privet/internal/pipeline"
)

var (
	scanMode        string
	scanGranularity string
	scanMaskColors  []string
	scanFormat      string
	scanFile        string
	scanNoAudit     bool
	scanTimeout     time.Duration
)

var scanCmd = &cobra.Command{
	Use:   "scan [text]",
	Short: "Run text through the privacy gate",
	Long: `Scan text for PII and sensitive content before sending it to an LLM.

Reads the text argument, the file named by --file, or stdin when neither
is given. Prints the policy verdict and the masked text; use --format json
for the full result including the colored markup and every classified
span.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanMode, "mode", "", "policy mode: strict, permissive, moderate (default from config)")
	scanCmd.Flags().StringVar(&scanGranularity, "granularity", "", "segmentation: sentence or token (default from config)")
	scanCmd.Flags().StringSliceVar(&scanMaskColors, "mask-colors", nil, "colors to mask (default from config)")
	scanCmd.Flags().StringVar(&scanFormat, "format", "text", "output format: text or json")
	scanCmd.Flags().StringVar(&scanFile, "file", "", "read the text to scan from a file")
	scanCmd.Flags().BoolVar(&scanNoAudit, "no-audit", false, "skip the audit trail for this scan")
	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", 60*time.Second, "overall scan timeout")

	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, span := tracer.Start(cmd.Context(), "scan")
	defer span.End()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	cfg.WarnIfDefaultKey()

	text, err := scanInput(scanFile, args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	opts, err := resolveScanOptions(cfg, cmd)
	if err != nil {
		return err
	}

	var sink audit.Sink
	if !scanNoAudit {
		if err := cfg.EnsureDataDir(); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
		store, err := audit.NewStore(cfg.AuditDBPath(), cfg.SigningKey)
		if err != nil {
			return fmt.Errorf("opening audit store: %w", err)
		}
		defer store.Close()
		sink = store
	}

	p, err := buildPipeline(cfg, sink)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, scanTimeout)
	defer cancel()

	result, err := p.Process(ctx, text, opts)
	if err != nil {
		return err
	}

	return renderResult(cmd.OutOrStdout(), result, scanFormat)
}

// scanInput returns the positional argument, the contents of --file, or
// stdin, in that order of precedence.
func scanInput(file string, args []string, stdin io.Reader) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading input file: %w", err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return string(data), nil
}

// resolveScanOptions starts from the configured defaults and applies any
// explicitly set scan flags on top.
func resolveScanOptions(cfg *config.Config, cmd *cobra.Command) (gate.Options, error) {
	opts := cfg.Options()

	if cmd.Flags().Changed("mode") {
		mode, err := gate.ParseMode(scanMode)
		if err != nil {
			return gate.Options{}, err
		}
		opts.Mode = mode
	}
	if cmd.Flags().Changed("granularity") {
		switch g := gate.Granularity(scanGranularity); g {
		case gate.GranularitySentence, gate.GranularityToken:
			opts.Granularity = g
		default:
			return gate.Options{}, fmt.Errorf("granularity must be sentence or token (got %q)", scanGranularity)
		}
	}
	if cmd.Flags().Changed("mask-colors") {
		maskColors := make(map[gate.ColorTag]bool, len(scanMaskColors))
		for _, raw := range scanMaskColors {
			color, err := gate.ParseColorTag(raw)
			if err != nil {
				return gate.Options{}, fmt.Errorf("mask-colors: %w", err)
			}
			maskColors[color] = true
		}
		opts.MaskColors = maskColors
	}
	return opts, nil
}

// buildPipeline assembles the detector strategies and the processing chain
// from the resolved config.
func buildPipeline(cfg *config.Config, sink audit.Sink) (*pipeline.Pipeline, error) {
	var regexOpts []detect.RegexOption
	if cfg.PatternFile != "" {
		regexOpts = append(regexOpts, detect.WithPatternFile(cfg.PatternFile))
	}
	regex, err := detect.NewRegexDetector(regexOpts...)
	if err != nil {
		return nil, fmt.Errorf("building regex detector: %w", err)
	}

	strategies := []detect.Strategy{regex}
	if provider := buildProvider(cfg); provider != nil {
		strategies = append(strategies, detect.NewModelDetector(provider, cfg.Model))
	}

	return pipeline.New(pipeline.Config{
		Detector:      detect.NewRunner(strategies...),
		Sink:          sink,
		MaxInputChars: cfg.MaxInputChars,
	})
}

// buildProvider returns the configured LLM provider, or nil when the model
// strategy is disabled.
func buildProvider(cfg *config.Config) llm.Provider {
	switch cfg.ModelProvider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			log.Warn().Msg("model_provider is openai but no API key configured, model detection disabled")
			return nil
		}
		return llm.NewOpenAIProvider(cfg.OpenAIAPIKey)
	case "ollama":
		return llm.NewOllamaProvider(cfg.OllamaBaseURL)
	}
	return nil
}

// renderResult writes the scan outcome. The text format keeps one artifact
// per block so shell pipelines can grab the masked text with sed/awk.
func renderResult(w io.Writer, result *gate.Result, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Fprintf(w, "Verdict: %s\n", result.Decision.Verdict)
	fmt.Fprintf(w, "Reason:  %s\n", result.Decision.Reason)
	fmt.Fprintf(w, "Sentiment: %+.2f\n", result.Sentiment)
	if len(result.Degraded) > 0 {
		fmt.Fprintf(w, "Degraded: %s\n", strings.Join(result.Degraded, ", "))
	}
	fmt.Fprintln(w)
	if result.Decision.Verdict == gate.VerdictBlock {
		fmt.Fprintln(w, "Text blocked; nothing may be forwarded downstream.")
		return nil
	}
	fmt.Fprintln(w, result.Redaction.MaskedText)
	return nil
}
