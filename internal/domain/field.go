package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// UnresolvedMarker is the literal the pipeline uses for a field it could not
// confidently read. It is what the vision model is instructed to emit, what
// exports render, and what corrections send to reset a field.
const UnresolvedMarker = "無法辨識"

// Field holds either a resolved value or the explicit unresolved sentinel.
// The zero value is unresolved.
type Field[T any] struct {
	value    T
	resolved bool
}

// Resolved wraps a concrete value.
func Resolved[T any](v T) Field[T] {
	return Field[T]{value: v, resolved: true}
}

// Unresolved returns the explicit sentinel for type T.
func Unresolved[T any]() Field[T] {
	return Field[T]{}
}

// IsResolved reports whether the field carries a concrete value.
func (f Field[T]) IsResolved() bool {
	return f.resolved
}

// Get returns the value and whether it is resolved.
func (f Field[T]) Get() (T, bool) {
	return f.value, f.resolved
}

// Value returns the concrete value, or the zero value when unresolved.
func (f Field[T]) Value() T {
	return f.value
}

// String renders the value for export; unresolved fields render as the
// literal marker, never as an empty cell.
func (f Field[T]) String() string {
	if !f.resolved {
		return UnresolvedMarker
	}
	switch v := any(f.value).(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// MarshalJSON writes the marker string for unresolved fields and the plain
// value otherwise.
func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.resolved {
		return json.Marshal(UnresolvedMarker)
	}
	return json.Marshal(f.value)
}

// UnmarshalJSON accepts either the marker string or a value of type T.
func (f *Field[T]) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil && s == UnresolvedMarker {
		*f = Field[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = Field[T]{value: v, resolved: true}
	return nil
}

// CanonicalDate is a Gregorian calendar date.
type CanonicalDate struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf builds a CanonicalDate from components.
func DateOf(year int, month time.Month, day int) CanonicalDate {
	return CanonicalDate{Year: year, Month: month, Day: day}
}

// Valid reports whether the components form a real calendar date.
func (d CanonicalDate) Valid() bool {
	if d.Year < 1 || d.Month < time.January || d.Month > time.December || d.Day < 1 {
		return false
	}
	t := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
	return t.Year() == d.Year && t.Month() == d.Month && t.Day() == d.Day
}

// String formats the date as YYYY-MM-DD.
func (d CanonicalDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d CanonicalDate) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *CanonicalDate) UnmarshalText(b []byte) error {
	t, err := time.Parse("2006-01-02", string(b))
	if err != nil {
		return fmt.Errorf("invalid canonical date %q: %w", b, err)
	}
	*d = CanonicalDate{Year: t.Year(), Month: t.Month(), Day: t.Day()}
	return nil
}

// CanonicalTime is a 24-hour wall-clock time with minute precision.
type CanonicalTime struct {
	Hour   int
	Minute int
}

// Valid reports whether the time lies within 00:00–23:59.
func (t CanonicalTime) Valid() bool {
	return t.Hour >= 0 && t.Hour <= 23 && t.Minute >= 0 && t.Minute <= 59
}

// String formats the time as HH:MM.
func (t CanonicalTime) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func (t CanonicalTime) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *CanonicalTime) UnmarshalText(b []byte) error {
	parsed, err := time.Parse("15:04", string(b))
	if err != nil {
		return fmt.Errorf("invalid canonical time %q: %w", b, err)
	}
	*t = CanonicalTime{Hour: parsed.Hour(), Minute: parsed.Minute()}
	return nil
}

// CanonicalDuration is a duration expressed as decimal hours.
type CanonicalDuration float64

// Hours returns the duration as a float64 number of hours.
func (d CanonicalDuration) Hours() float64 {
	return float64(d)
}

func (d CanonicalDuration) String() string {
	return strconv.FormatFloat(float64(d), 'f', -1, 64)
}
