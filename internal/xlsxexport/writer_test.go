package xlsxexport_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/purrup/auto-overtime/internal/domain"
	"github.com/purrup/auto-overtime/internal/xlsxexport"
)

func TestExportBatch(t *testing.T) {
	entry := domain.NewOvertimeEntry("t1")
	entry.EmployeeName = domain.Resolved("陳大文")
	entry.Date = domain.Resolved(domain.DateOf(2024, time.June, 3))
	entry.Hours = domain.Resolved(domain.CanonicalDuration(2))

	result := &domain.BatchResult{
		ID:      uuid.New(),
		State:   domain.BatchStateCompleted,
		Entries: []domain.OvertimeEntry{entry},
		Statuses: map[string]domain.TaskStatus{
			"t1": {TaskID: "t1", SourceFilename: "slip.png"},
		},
		TaskOrder: []string{"t1"},
	}

	data, err := xlsxexport.ExportBatch(result)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	get := func(cell string) string {
		v, err := f.GetCellValue("Overtime", cell)
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, "Source File", get("A1"))
	assert.Equal(t, "Employee Name", get("C1"))
	assert.Equal(t, "slip.png", get("A2"))
	assert.Equal(t, "t1", get("B2"))
	assert.Equal(t, "陳大文", get("C2"))
	assert.Equal(t, "2024-06-03", get("D2"))
	// Unresolved fields render as the literal marker.
	assert.Equal(t, domain.UnresolvedMarker, get("E2"))
	assert.Equal(t, "2", get("J2"))
}
