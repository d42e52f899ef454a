// Package export moves normalized transaction records across the
// tabular boundary: a CSV writer for downstream analysis tools and a
// matching reader so other commands can load a previous run.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"insider_screener/pkg/core/form4"
)

const dateLayout = "2006-01-02"

var columns = []string{
	"officer_name",
	"officer_title",
	"transaction_code",
	"transaction_date",
	"shares",
	"price_per_share",
	"security_title",
	"source",
}

// WriteCSV emits the records in order with a header row. Optional
// fields serialize as empty cells.
func WriteCSV(w io.Writer, records []form4.TransactionRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.OfficerName,
			r.OfficerTitle,
			r.TransactionCode,
			formatDate(r.TransactionDate),
			formatFloat(r.Shares),
			formatFloat(r.PricePerShare),
			formatString(r.SecurityTitle),
			r.Source,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV loads records written by WriteCSV. Empty cells become nil
// fields; a malformed numeric or date cell also degrades to nil rather
// than failing the load, mirroring the per-field tolerance of the
// extractor.
func ReadCSV(r io.Reader) ([]form4.TransactionRecord, error) {
	cr := csv.NewReader(r)
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var records []form4.TransactionRecord
	for _, row := range rows[1:] { // skip header
		if len(row) != len(columns) {
			return nil, fmt.Errorf("CSV row has %d columns, want %d", len(row), len(columns))
		}
		records = append(records, form4.TransactionRecord{
			OfficerName:     row[0],
			OfficerTitle:    row[1],
			TransactionCode: row[2],
			TransactionDate: parseDate(row[3]),
			Shares:          parseFloat(row[4]),
			PricePerShare:   parseFloat(row[5]),
			SecurityTitle:   parseString(row[6]),
			Source:          row[7],
		})
	}
	return records, nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

func parseFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
