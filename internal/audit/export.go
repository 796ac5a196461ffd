package audit

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// ExportCSV writes records as CSV with a header row. Redactions are
// flattened to a comma-separated kind list; matched text stays out of the
// CSV on purpose, use JSON export when the full record is needed.
func ExportCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)

	header := []string{"id", "timestamp", "verdict", "reason", "input_hash", "redaction_kinds", "redaction_count", "degraded", "signature"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}

	for _, rec := range records {
		kinds := make([]string, 0, len(rec.Redactions))
		for _, r := range rec.Redactions {
			kinds = append(kinds, string(r.Kind))
		}
		row := []string{
			rec.ID,
			rec.Timestamp.Format(time.RFC3339),
			string(rec.Decision.Verdict),
			rec.Decision.Reason,
			rec.InputHash,
			strings.Join(kinds, ","),
			strconv.Itoa(len(rec.Redactions)),
			strings.Join(rec.Degraded, ","),
			rec.Signature,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing CSV row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ExportJSON writes records as an indented JSON array.
func ExportJSON(w io.Writer, records []Record) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encoding records: %w", err)
	}
	return nil
}
