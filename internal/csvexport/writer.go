// Package csvexport renders batch results as CSV for spreadsheet review.
// Unresolved fields export as the literal unresolved marker, never as an
// empty cell, so a reviewer can scan for them directly.
package csvexport

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/purrup/auto-overtime/internal/domain"
)

// UTF-8 BOM bytes for Excel compatibility on Windows. Without it Excel
// mangles the CJK field values.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// columns defines the CSV header row: source metadata, the eight entry
// fields in canonical order, then provenance.
var columns = []string{
	"Source File",
	"Task ID",
	"Employee Name",
	"Date",
	"Sign-in Time",
	"Sign-out Time",
	"Overtime Period (h)",
	"Reason",
	"Overtime Type",
	"Hours",
	"Corrected Fields",
}

// fieldColumnOffset is the index of the first entry-field column.
const fieldColumnOffset = 2

// Writer wraps csv.Writer for exporting overtime entries as CSV.
type Writer struct {
	csv *csv.Writer
	// filenames maps task ID to source filename for the Source File column.
	filenames map[string]string
}

// NewWriter creates a Writer that writes CSV to w. The filenames mapping
// (task ID to source filename) may be nil.
func NewWriter(w io.Writer, filenames map[string]string) *Writer {
	return &Writer{csv: csv.NewWriter(w), filenames: filenames}
}

// WriteHeader writes the header row.
func (w *Writer) WriteHeader() error {
	return w.csv.Write(columns)
}

// WriteEntries converts entries to CSV rows and writes them in order.
func (w *Writer) WriteEntries(entries []domain.OvertimeEntry) error {
	for i := range entries {
		if err := w.csv.Write(w.entryToRow(&entries[i])); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *Writer) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *Writer) Error() error {
	return w.csv.Error()
}

func (w *Writer) entryToRow(e *domain.OvertimeEntry) []string {
	row := make([]string, len(columns))
	row[0] = w.filenames[e.SourceTaskID]
	row[1] = e.SourceTaskID
	for i, name := range domain.EntryFieldNames {
		row[fieldColumnOffset+i] = e.FieldString(name)
	}
	row[len(row)-1] = correctedFields(e)
	return row
}

// correctedFields lists the fields a human has overwritten, in column
// order, joined with commas.
func correctedFields(e *domain.OvertimeEntry) string {
	var names []string
	for _, name := range domain.EntryFieldNames {
		if e.FieldOrigin[name] == domain.OriginCorrected {
			names = append(names, name)
		}
	}
	return strings.Join(names, ",")
}

// ExportBatch writes a complete CSV document for the batch: BOM, header,
// then one row per entry.
func ExportBatch(w io.Writer, result *domain.BatchResult) error {
	if _, err := w.Write(BOM); err != nil {
		return fmt.Errorf("writing BOM: %w", err)
	}
	filenames := make(map[string]string, len(result.Statuses))
	for id, st := range result.Statuses {
		filenames[id] = st.SourceFilename
	}
	cw := NewWriter(w, filenames)
	if err := cw.WriteHeader(); err != nil {
		return err
	}
	if err := cw.WriteEntries(result.Entries); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename cleans a batch label for use in Content-Disposition.
// Replaces non-alphanumeric chars (except - _) with _, collapses consecutive
// underscores, and truncates to 100 chars.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" {
		s = "batch"
	}
	return s
}

// BuildFilename returns a sanitized filename for the Content-Disposition
// header. Format: {sanitized_label}_{YYYY-MM-DD}.{ext}
func BuildFilename(label, ext string) string {
	return fmt.Sprintf("%s_%s.%s", SanitizeFilename(label), time.Now().Format("2006-01-02"), ext)
}
