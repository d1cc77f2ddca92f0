package normalize_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purrup/auto-overtime/internal/domain"
	"github.com/purrup/auto-overtime/internal/normalize"
)

func TestDate_MinguoCJK(t *testing.T) {
	f, note := normalize.Date("113年5月1日", normalize.DefaultOptions)
	require.True(t, f.IsResolved())
	assert.Empty(t, note)
	assert.Equal(t, "2024-05-01", f.Value().String())
}

func TestDate_MinguoWithEraMarker(t *testing.T) {
	f, _ := normalize.Date("民國113年5月1日", normalize.DefaultOptions)
	require.True(t, f.IsResolved())
	assert.Equal(t, "2024-05-01", f.Value().String())
}

func TestDate_GregorianSeparators(t *testing.T) {
	for _, raw := range []string{"2024-05-01", "2024/5/1", "2024.05.01"} {
		f, note := normalize.Date(raw, normalize.DefaultOptions)
		require.True(t, f.IsResolved(), "input %q", raw)
		assert.Empty(t, note)
		assert.Equal(t, "2024-05-01", f.Value().String())
	}
}

func TestDate_BareSmallYearIsMinguo(t *testing.T) {
	f, _ := normalize.Date("113/5/1", normalize.DefaultOptions)
	require.True(t, f.IsResolved())
	assert.Equal(t, 2024, f.Value().Year)
}

func TestDate_EraMarkerWithGregorianYear(t *testing.T) {
	// Era marker together with a Gregorian-sized year. Preferring the
	// Minguo reading pushes the year out of range, so the conservative
	// default refuses to guess.
	f, _ := normalize.Date("民國2013年5月1日", normalize.DefaultOptions)
	assert.False(t, f.IsResolved())

	// Trusting the digits instead accepts the Gregorian year.
	f, _ = normalize.Date("民國2013年5月1日", normalize.Options{PreferMinguoOnConflict: false})
	require.True(t, f.IsResolved())
	assert.Equal(t, 2013, f.Value().Year)
}

func TestDate_FullWidthDigits(t *testing.T) {
	f, _ := normalize.Date("２０２４／５／１", normalize.DefaultOptions)
	require.True(t, f.IsResolved())
	assert.Equal(t, "2024-05-01", f.Value().String())
}

func TestDate_Invalid(t *testing.T) {
	cases := []string{
		"",
		"無法辨識",
		"五月一日",
		"2024-13-01",
		"2024-02-30",
		"9999-01-01",
		"not a date",
	}
	for _, raw := range cases {
		f, _ := normalize.Date(raw, normalize.DefaultOptions)
		assert.False(t, f.IsResolved(), "input %q should be unresolved", raw)
	}
}

func TestClock_CJK(t *testing.T) {
	f, note := normalize.Clock("14時16分")
	require.True(t, f.IsResolved())
	assert.Empty(t, note)
	assert.Equal(t, "14:16", f.Value().String())
}

func TestClock_CJKHourOnly(t *testing.T) {
	f, _ := normalize.Clock("9時")
	require.True(t, f.IsResolved())
	assert.Equal(t, "09:00", f.Value().String())
}

func TestClock_Colon(t *testing.T) {
	f, _ := normalize.Clock("7:05")
	require.True(t, f.IsResolved())
	assert.Equal(t, "07:05", f.Value().String())
}

func TestClock_FullWidthColon(t *testing.T) {
	f, _ := normalize.Clock("１４：１６")
	require.True(t, f.IsResolved())
	assert.Equal(t, "14:16", f.Value().String())
}

func TestClock_Invalid(t *testing.T) {
	for _, raw := range []string{"", "無法辨識", "25:00", "14:75", "afternoon", "14時99分"} {
		f, _ := normalize.Clock(raw)
		assert.False(t, f.IsResolved(), "input %q should be unresolved", raw)
	}
}

func TestDuration_Expressions(t *testing.T) {
	cases := map[string]float64{
		"4小時":   4,
		"4":     4,
		"2.5":   2.5,
		"4.5hr": 4.5,
		"2 hours": 2,
		"30分鐘":  0.5,
		"90分":   1.5,
		"45min": 0.75,
	}
	for raw, want := range cases {
		f, note := normalize.Duration(raw)
		require.True(t, f.IsResolved(), "input %q: %s", raw, note)
		assert.InDelta(t, want, f.Value().Hours(), 1e-9, "input %q", raw)
	}
}

func TestDuration_Invalid(t *testing.T) {
	for _, raw := range []string{"", "無法辨識", "-2", "25", "a while", "４個"} {
		f, _ := normalize.Duration(raw)
		assert.False(t, f.IsResolved(), "input %q should be unresolved", raw)
	}
}

func TestFreeText(t *testing.T) {
	f, _ := normalize.FreeText("  系統維護　")
	require.True(t, f.IsResolved())
	assert.Equal(t, "系統維護", f.Value())

	for _, raw := range []string{"", "   ", "　", "無法辨識"} {
		f, _ := normalize.FreeText(raw)
		assert.False(t, f.IsResolved(), "input %q should be unresolved", raw)
	}
}

// Every normalizer is total: arbitrary garbage must come back unresolved,
// never panic or error.
func TestNormalize_Totality(t *testing.T) {
	garbage := []string{
		"\x00\xff", "{}", "[]", "……", "////", "年月日", "時分",
		"民國", "999999999999999999999", "NaN", "Inf", "-",
	}
	for _, raw := range garbage {
		d, _ := normalize.Date(raw, normalize.DefaultOptions)
		assert.False(t, d.IsResolved(), "date %q", raw)
		c, _ := normalize.Clock(raw)
		assert.False(t, c.IsResolved(), "clock %q", raw)
		du, _ := normalize.Duration(raw)
		assert.False(t, du.IsResolved(), "duration %q", raw)
	}
}

func TestBuildEntry(t *testing.T) {
	raw := map[string]string{
		domain.FieldEmployeeName:   "王小明",
		domain.FieldDate:           "113年5月1日",
		domain.FieldSignInTime:     "18時30分",
		domain.FieldSignOutTime:    "22:30",
		domain.FieldOvertimePeriod: "4小時",
		domain.FieldReason:         "系統上線",
		domain.FieldHours:          "4",
	}
	entry, notes := normalize.BuildEntry("task-1", raw, normalize.DefaultOptions)

	assert.Empty(t, notes)
	assert.Equal(t, "task-1", entry.SourceTaskID)
	assert.Equal(t, "王小明", entry.EmployeeName.Value())
	assert.Equal(t, domain.DateOf(2024, time.May, 1), entry.Date.Value())
	assert.Equal(t, "18:30", entry.SignInTime.Value().String())
	assert.Equal(t, "22:30", entry.SignOutTime.Value().String())
	assert.InDelta(t, 4, entry.OvertimePeriod.Value().Hours(), 1e-9)
	assert.InDelta(t, 4, entry.Hours.Value().Hours(), 1e-9)

	// overtime_type was absent and must stay unresolved, not defaulted.
	assert.False(t, entry.OvertimeType.IsResolved())
	assert.Equal(t, domain.OriginExtracted, entry.FieldOrigin[domain.FieldDate])
}

func TestBuildEntry_ImplausibleValuesResolveToUnresolved(t *testing.T) {
	raw := map[string]string{
		domain.FieldDate:       "sometime last week",
		domain.FieldSignInTime: "late",
		domain.FieldHours:      "lots",
	}
	entry, notes := normalize.BuildEntry("task-2", raw, normalize.DefaultOptions)

	assert.False(t, entry.Date.IsResolved())
	assert.False(t, entry.SignInTime.IsResolved())
	assert.False(t, entry.Hours.IsResolved())
	assert.Len(t, notes, 3)
}

func TestSetField_UnknownName(t *testing.T) {
	entry := domain.NewOvertimeEntry("task-3")
	_, err := normalize.SetField(&entry, "salary", "100", normalize.DefaultOptions)
	assert.ErrorIs(t, err, domain.ErrUnknownField)
}
