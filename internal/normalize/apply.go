package normalize

import (
	"fmt"

	"github.com/purrup/auto-overtime/internal/domain"
)

// SetField normalizes raw and writes the result onto the named entry
// field. It returns the diagnostic note (log-only) and domain.ErrUnknownField
// for names outside the record schema.
func SetField(entry *domain.OvertimeEntry, name, raw string, opts Options) (string, error) {
	switch name {
	case domain.FieldEmployeeName:
		f, note := FreeText(raw)
		entry.EmployeeName = f
		return note, nil
	case domain.FieldDate:
		f, note := Date(raw, opts)
		entry.Date = f
		return note, nil
	case domain.FieldSignInTime:
		f, note := Clock(raw)
		entry.SignInTime = f
		return note, nil
	case domain.FieldSignOutTime:
		f, note := Clock(raw)
		entry.SignOutTime = f
		return note, nil
	case domain.FieldOvertimePeriod:
		f, note := Duration(raw)
		entry.OvertimePeriod = f
		return note, nil
	case domain.FieldReason:
		f, note := FreeText(raw)
		entry.Reason = f
		return note, nil
	case domain.FieldOvertimeType:
		f, note := FreeText(raw)
		entry.OvertimeType = f
		return note, nil
	case domain.FieldHours:
		f, note := Duration(raw)
		entry.Hours = f
		return note, nil
	default:
		return "", fmt.Errorf("%w: %s", domain.ErrUnknownField, name)
	}
}

// BuildEntry normalizes one raw record into a canonical OvertimeEntry.
// Fields absent from raw stay unresolved. The returned notes are
// diagnostics for logging only; they never reach the canonical record.
func BuildEntry(taskID string, raw map[string]string, opts Options) (domain.OvertimeEntry, []string) {
	entry := domain.NewOvertimeEntry(taskID)
	var notes []string
	for _, name := range domain.EntryFieldNames {
		value, ok := raw[name]
		if !ok {
			continue
		}
		note, err := SetField(&entry, name, value, opts)
		if err != nil {
			continue
		}
		if note != "" {
			notes = append(notes, note)
		}
	}
	return entry, notes
}
