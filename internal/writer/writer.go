package writer

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
)

// Writer renders a Document in one output format.
type Writer interface {
	Write(out io.Writer, doc Document) error
	Extension() string
}

// New returns the writer for format: csv, json, xlsx or table.
// XML lives in the xmlwriter package.
func New(format string) (Writer, error) {
	switch strings.ToLower(format) {
	case "csv":
		return &CSVWriter{IncludeHeader: true}, nil
	case "json":
		return &JSONWriter{Indent: "  "}, nil
	case "xlsx":
		return &XLSXWriter{}, nil
	case "table", "":
		return &TableWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteToFile writes doc to path with w.
func WriteToFile(w Writer, path string, doc Document) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}

	if err := w.Write(f, doc); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// =============================================================================
// CSV
// =============================================================================

// CSVWriter writes one row per transaction.
type CSVWriter struct {
	// IncludeHeader writes "# key,value" metadata lines before the columns.
	IncludeHeader bool
}

// Extension implements Writer.
func (w *CSVWriter) Extension() string { return ".csv" }

// Write implements Writer.
func (w *CSVWriter) Write(out io.Writer, doc Document) error {
	writer := csv.NewWriter(out)

	if w.IncludeHeader {
		writer.Write([]string{"# Source", doc.Source})
		writer.Write([]string{"# Scan", doc.ScanID})
		writer.Write([]string{"# Balance", fmt.Sprintf("%d", doc.Balance)})
	}

	if err := writer.Write(Columns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, row := range doc.Rows {
		if err := writer.Write(row.Values()); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// =============================================================================
// JSON
// =============================================================================

// JSONWriter writes the document as one JSON object.
type JSONWriter struct {
	Indent string
}

// Extension implements Writer.
func (w *JSONWriter) Extension() string { return ".json" }

// Write implements Writer.
func (w *JSONWriter) Write(out io.Writer, doc Document) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", w.Indent)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// =============================================================================
// TABLE
// =============================================================================

// TableWriter writes an aligned plain-text table for terminals.
type TableWriter struct{}

// Extension implements Writer.
func (w *TableWriter) Extension() string { return ".txt" }

// Write implements Writer.
func (w *TableWriter) Write(out io.Writer, doc Document) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Balance: ¥%d\n\n", doc.Balance)
	fmt.Fprintln(tw, "DATE\tTITLE\tAMOUNT\tSTATION\tTRIP\tBALANCE")
	for _, r := range doc.Rows {
		amount := r.Subtitle
		if r.Delta != nil && *r.Delta > 0 {
			amount = "+" + amount
		} else if r.Delta != nil && *r.Delta < 0 {
			amount = "-" + amount
		}
		station := r.Station
		if station == "" {
			station = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t¥%d\n", r.Date, r.Title, amount, station, r.TripRole, r.Balance)
	}

	return tw.Flush()
}
