package merge_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purrup/auto-overtime/internal/domain"
	"github.com/purrup/auto-overtime/internal/merge"
	"github.com/purrup/auto-overtime/internal/normalize"
)

func extractedEntry() domain.OvertimeEntry {
	entry := domain.NewOvertimeEntry("task-1")
	entry.EmployeeName = domain.Resolved("王小明")
	entry.Date = domain.Resolved(domain.DateOf(2024, time.May, 1))
	entry.Hours = domain.Resolved(domain.CanonicalDuration(4))
	return entry
}

func TestApply_CorrectsFields(t *testing.T) {
	m := merge.NewMerger(normalize.DefaultOptions)
	merged, err := m.Apply(extractedEntry(), merge.Corrections{
		domain.FieldHours: "3小時",
		domain.FieldDate:  "113年5月2日",
	})
	require.NoError(t, err)

	assert.InDelta(t, 3, merged.Hours.Value().Hours(), 1e-9)
	assert.Equal(t, "2024-05-02", merged.Date.Value().String())
	assert.Equal(t, domain.OriginCorrected, merged.FieldOrigin[domain.FieldHours])
	assert.Equal(t, domain.OriginCorrected, merged.FieldOrigin[domain.FieldDate])

	// Untouched fields keep their value and provenance.
	assert.Equal(t, "王小明", merged.EmployeeName.Value())
	assert.Equal(t, domain.OriginExtracted, merged.FieldOrigin[domain.FieldEmployeeName])
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	m := merge.NewMerger(normalize.DefaultOptions)
	original := extractedEntry()

	_, err := m.Apply(original, merge.Corrections{domain.FieldHours: "2"})
	require.NoError(t, err)

	assert.InDelta(t, 4, original.Hours.Value().Hours(), 1e-9)
	assert.Equal(t, domain.OriginExtracted, original.FieldOrigin[domain.FieldHours])
}

func TestApply_MarkerResetsField(t *testing.T) {
	m := merge.NewMerger(normalize.DefaultOptions)

	merged, err := m.Apply(extractedEntry(), merge.Corrections{domain.FieldHours: domain.UnresolvedMarker})
	require.NoError(t, err)
	assert.False(t, merged.Hours.IsResolved())
	assert.Equal(t, domain.OriginCorrected, merged.FieldOrigin[domain.FieldHours])

	merged, err = m.Apply(extractedEntry(), merge.Corrections{domain.FieldEmployeeName: ""})
	require.NoError(t, err)
	assert.False(t, merged.EmployeeName.IsResolved())
}

func TestApply_Idempotent(t *testing.T) {
	m := merge.NewMerger(normalize.DefaultOptions)
	corrections := merge.Corrections{
		domain.FieldHours:      "2.5",
		domain.FieldSignInTime: "19時",
	}

	once, err := m.Apply(extractedEntry(), corrections)
	require.NoError(t, err)
	twice, err := m.Apply(once, corrections)
	require.NoError(t, err)

	assert.Equal(t, once.Hours, twice.Hours)
	assert.Equal(t, once.SignInTime, twice.SignInTime)
	assert.Equal(t, once.FieldOrigin, twice.FieldOrigin)
}

func TestApply_UnknownFieldRejected(t *testing.T) {
	m := merge.NewMerger(normalize.DefaultOptions)
	_, err := m.Apply(extractedEntry(), merge.Corrections{"approver": "經理"})
	assert.ErrorIs(t, err, domain.ErrUnknownField)
}
