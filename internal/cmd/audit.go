package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/privet-io/privet/internal/audit"
	"github.com/privet-io/privet/internal/config"
	"github.com/privet-io/privet/internal/gate"
)

var (
	auditVerdict  string
	auditLimit    int
	auditDays     int
	auditFormat   string
	auditOutput   string
	auditSchedule string
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query, export, and maintain the audit trail",
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List audit records",
	RunE:  auditList,
}

var auditExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export audit records as CSV or JSON",
	RunE:  auditExport,
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify [record-id]",
	Short: "Verify HMAC signature of an audit record",
	Args:  cobra.ExactArgs(1),
	RunE:  auditVerify,
}

var auditPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete audit records older than the retention window",
	RunE:  auditPurge,
}

var auditRetentionCmd = &cobra.Command{
	Use:   "retention",
	Short: "Run the scheduled retention purge in the foreground",
	Long: `Purge expired audit records now, then keep purging on the configured
cron schedule until interrupted. Intended for installations that leave a
maintenance process running alongside the gate.`,
	RunE: auditRetention,
}

func init() {
	auditListCmd.Flags().StringVar(&auditVerdict, "verdict", "", "Filter by verdict (ALLOW, WARN, ANONYMIZE, BLOCK)")
	auditListCmd.Flags().IntVar(&auditLimit, "limit", 20, "Maximum records to show")

	auditExportCmd.Flags().StringVar(&auditFormat, "format", "csv", "Export format: csv or json")
	auditExportCmd.Flags().StringVar(&auditOutput, "output", "", "Output file (default: stdout)")
	auditExportCmd.Flags().StringVar(&auditVerdict, "verdict", "", "Filter by verdict")

	auditPurgeCmd.Flags().IntVar(&auditDays, "older-than", 0, "Retention window in days (default from config)")

	auditRetentionCmd.Flags().IntVar(&auditDays, "older-than", 0, "Retention window in days (default from config)")
	auditRetentionCmd.Flags().StringVar(&auditSchedule, "schedule", "@daily", "Cron spec for the recurring purge")

	auditCmd.AddCommand(auditListCmd)
	auditCmd.AddCommand(auditExportCmd)
	auditCmd.AddCommand(auditVerifyCmd)
	auditCmd.AddCommand(auditPurgeCmd)
	auditCmd.AddCommand(auditRetentionCmd)
	rootCmd.AddCommand(auditCmd)
}

func openAuditStore() (*audit.Store, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, nil, fmt.Errorf("creating data directory: %w", err)
	}
	store, err := audit.NewStore(cfg.AuditDBPath(), cfg.SigningKey)
	if err != nil {
		return nil, nil, err
	}
	return store, cfg, nil
}

func auditList(cmd *cobra.Command, args []string) error {
	ctx, span := tracer.Start(cmd.Context(), "audit.list")
	defer span.End()

	store, _, err := openAuditStore()
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.List(ctx, gate.Verdict(auditVerdict), time.Time{}, time.Time{}, auditLimit)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintln(w, "No audit records found.")
		return nil
	}
	for _, rec := range records {
		fmt.Fprintf(w, "%s  %s  %-9s  redactions=%d\n",
			rec.Timestamp.Format(time.RFC3339), rec.ID, rec.Decision.Verdict, len(rec.Redactions))
	}
	return nil
}

func auditExport(cmd *cobra.Command, args []string) error {
	ctx, span := tracer.Start(cmd.Context(), "audit.export")
	defer span.End()

	store, _, err := openAuditStore()
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.List(ctx, gate.Verdict(auditVerdict), time.Time{}, time.Time{}, 0)
	if err != nil {
		return err
	}

	var out io.Writer = cmd.OutOrStdout()
	if auditOutput != "" {
		f, err := os.Create(auditOutput)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	switch auditFormat {
	case "csv":
		return audit.ExportCSV(out, records)
	case "json":
		return audit.ExportJSON(out, records)
	default:
		return fmt.Errorf("unknown export format %q (use csv or json)", auditFormat)
	}
}

func auditVerify(cmd *cobra.Command, args []string) error {
	ctx, span := tracer.Start(cmd.Context(), "audit.verify")
	defer span.End()

	store, _, err := openAuditStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ok, err := store.Verify(ctx, args[0])
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("record %s FAILED signature verification", args[0])
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Record %s: signature valid\n", args[0])
	return nil
}

func auditPurge(cmd *cobra.Command, args []string) error {
	ctx, span := tracer.Start(cmd.Context(), "audit.purge")
	defer span.End()

	store, cfg, err := openAuditStore()
	if err != nil {
		return err
	}
	defer store.Close()

	days := auditDays
	if days == 0 {
		days = cfg.RetentionDays
	}

	n, err := audit.NewRetentionJob(store, days).RunOnce(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Purged %d record(s) older than %d days\n", n, days)
	return nil
}

func auditRetention(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, cfg, err := openAuditStore()
	if err != nil {
		return err
	}
	defer store.Close()

	days := auditDays
	if days == 0 {
		days = cfg.RetentionDays
	}

	job := audit.NewRetentionJob(store, days, audit.WithSchedule(auditSchedule))
	if _, err := job.RunOnce(ctx); err != nil {
		return err
	}
	if err := job.Start(); err != nil {
		return err
	}
	defer job.Stop()

	log.Info().Str("schedule", auditSchedule).Int("retention_days", days).
		Msg("retention purge scheduled, interrupt to stop")
	<-ctx.Done()
	return nil
}
