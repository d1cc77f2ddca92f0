package domain

import "github.com/google/uuid"

// FieldOrigin records which writer produced the current value of a field.
type FieldOrigin string

const (
	OriginExtracted FieldOrigin = "extracted"
	OriginCorrected FieldOrigin = "corrected"
)

// Field names on OvertimeEntry, as used in field_origin maps, salvage
// reports, and correction payloads.
const (
	FieldEmployeeName   = "employee_name"
	FieldDate           = "date"
	FieldSignInTime     = "sign_in_time"
	FieldSignOutTime    = "sign_out_time"
	FieldOvertimePeriod = "overtime_period"
	FieldReason         = "reason"
	FieldOvertimeType   = "overtime_type"
	FieldHours          = "hours"
)

// EntryFieldNames lists every correctable field in export column order.
var EntryFieldNames = []string{
	FieldEmployeeName,
	FieldDate,
	FieldSignInTime,
	FieldSignOutTime,
	FieldOvertimePeriod,
	FieldReason,
	FieldOvertimeType,
	FieldHours,
}

// OvertimeEntry is the canonical record for one overtime table row. Every
// field is either a typed value or the explicit unresolved sentinel; no
// field is ever null, empty, or a guessed default.
type OvertimeEntry struct {
	ID             uuid.UUID                `json:"id"`
	SourceTaskID   string                   `json:"source_task_id"`
	EmployeeName   Field[string]            `json:"employee_name"`
	Date           Field[CanonicalDate]     `json:"date"`
	SignInTime     Field[CanonicalTime]     `json:"sign_in_time"`
	SignOutTime    Field[CanonicalTime]     `json:"sign_out_time"`
	OvertimePeriod Field[CanonicalDuration] `json:"overtime_period"`
	Reason         Field[string]            `json:"reason"`
	OvertimeType   Field[string]            `json:"overtime_type"`
	Hours          Field[CanonicalDuration] `json:"hours"`

	// FieldOrigin maps field name to its last writer. The correction
	// merger is the only component that sets OriginCorrected.
	FieldOrigin map[string]FieldOrigin `json:"field_origin"`
}

// NewOvertimeEntry returns an entry with a fresh ID, every field
// unresolved, and every origin marked extracted.
func NewOvertimeEntry(sourceTaskID string) OvertimeEntry {
	origin := make(map[string]FieldOrigin, len(EntryFieldNames))
	for _, name := range EntryFieldNames {
		origin[name] = OriginExtracted
	}
	return OvertimeEntry{
		ID:           uuid.New(),
		SourceTaskID: sourceTaskID,
		FieldOrigin:  origin,
	}
}

// Clone returns a copy that owns its own FieldOrigin map.
func (e *OvertimeEntry) Clone() OvertimeEntry {
	out := *e
	out.FieldOrigin = make(map[string]FieldOrigin, len(e.FieldOrigin))
	for name, origin := range e.FieldOrigin {
		out.FieldOrigin[name] = origin
	}
	return out
}

// FieldString renders the named field for export; unknown names render as
// the unresolved marker.
func (e *OvertimeEntry) FieldString(name string) string {
	switch name {
	case FieldEmployeeName:
		return e.EmployeeName.String()
	case FieldDate:
		return e.Date.String()
	case FieldSignInTime:
		return e.SignInTime.String()
	case FieldSignOutTime:
		return e.SignOutTime.String()
	case FieldOvertimePeriod:
		return e.OvertimePeriod.String()
	case FieldReason:
		return e.Reason.String()
	case FieldOvertimeType:
		return e.OvertimeType.String()
	case FieldHours:
		return e.Hours.String()
	default:
		return UnresolvedMarker
	}
}
