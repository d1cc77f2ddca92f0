// Package xlsxexport renders batch results as an Excel workbook. It mirrors
// the CSV export column for column so reviewers can use either format
// interchangeably.
package xlsxexport

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/purrup/auto-overtime/internal/domain"
)

const sheet = "Overtime"

var headers = []string{
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

// ExportBatch returns an XLSX workbook for the batch, one row per entry.
// Unresolved fields render as the literal unresolved marker.
func ExportBatch(result *domain.BatchResult) ([]byte, error) {
	f := excelize.NewFile()
	if _, err := f.NewSheet(sheet); err != nil {
		return nil, err
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}
	idx, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(idx)

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	filenames := make(map[string]string, len(result.Statuses))
	for id, st := range result.Statuses {
		filenames[id] = st.SourceFilename
	}

	row := 2
	for i := range result.Entries {
		e := &result.Entries[i]
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, filenames[e.SourceTaskID])
		write(2, e.SourceTaskID)
		for j, name := range domain.EntryFieldNames {
			write(3+j, e.FieldString(name))
		}
		write(len(headers), correctedFields(e))
		row++
	}

	// Widen the text-heavy columns
	_ = f.SetColWidth(sheet, "A", "A", 28) // source file
	_ = f.SetColWidth(sheet, "B", "B", 38) // task id
	_ = f.SetColWidth(sheet, "C", "C", 16) // employee
	_ = f.SetColWidth(sheet, "D", "F", 14) // date and times
	_ = f.SetColWidth(sheet, "H", "H", 40) // reason
	_ = f.SetColWidth(sheet, "K", "K", 30) // corrected fields

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func correctedFields(e *domain.OvertimeEntry) string {
	var out string
	for _, name := range domain.EntryFieldNames {
		if e.FieldOrigin[name] == domain.OriginCorrected {
			if out != "" {
				out += ","
			}
			out += name
		}
	}
	return out
}
