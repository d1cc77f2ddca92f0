package csvexport

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/purrup/auto-overtime/internal/domain"
	"github.com/purrup/auto-overtime/internal/normalize"
)

// ReadEntries parses a CSV document previously produced by ExportBatch
// back into entries. Canonical values round-trip field for field; the
// unresolved marker round-trips back to an unresolved field. Entry IDs are
// regenerated since the export does not carry them.
func ReadEntries(r io.Reader, opts normalize.Options) ([]domain.OvertimeEntry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	data = bytes.TrimPrefix(data, BOM)

	cr := csv.NewReader(bytes.NewReader(data))
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	if len(rows[0]) != len(columns) || rows[0][0] != columns[0] {
		return nil, fmt.Errorf("unrecognized csv header: %v", rows[0])
	}

	entries := make([]domain.OvertimeEntry, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("row has %d columns, want %d", len(row), len(columns))
		}
		entry := domain.NewOvertimeEntry(row[1])
		for i, name := range domain.EntryFieldNames {
			if _, err := normalize.SetField(&entry, name, row[fieldColumnOffset+i], opts); err != nil {
				return nil, err
			}
		}
		for _, name := range strings.Split(row[len(row)-1], ",") {
			if name == "" {
				continue
			}
			if _, ok := entry.FieldOrigin[name]; !ok {
				return nil, fmt.Errorf("%w: %s", domain.ErrUnknownField, name)
			}
			entry.FieldOrigin[name] = domain.OriginCorrected
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
