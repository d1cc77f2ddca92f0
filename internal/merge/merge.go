// Package merge reconciles human corrections with machine-extracted
// records. Corrections arrive as raw strings keyed by field name; applying
// a correction runs the same normalization as extraction did, so the
// authoritative record keeps its canonical typing regardless of writer.
package merge

import (
	"fmt"
	"log"
	"maps"
	"slices"

	"github.com/purrup/auto-overtime/internal/domain"
	"github.com/purrup/auto-overtime/internal/normalize"
)

// Corrections maps field names to human-entered raw values. The unresolved
// marker literal (or an empty string) deliberately resets a field to
// unresolved.
type Corrections map[string]string

// Merger applies correction sets to extracted entries. It is the sole
// writer of the corrected origin tag.
type Merger struct {
	opts normalize.Options
}

// NewMerger creates a Merger using the given normalization options.
func NewMerger(opts normalize.Options) *Merger {
	return &Merger{opts: opts}
}

// Apply returns a new entry with the corrections folded in. Fields absent
// from the correction set keep their value and origin. Applying the same
// corrections to the result again yields an identical record.
func (m *Merger) Apply(extracted domain.OvertimeEntry, corrections Corrections) (domain.OvertimeEntry, error) {
	// Reject unknown field names up front so a typo in the editor payload
	// surfaces instead of silently dropping the correction.
	for name := range corrections {
		if !slices.Contains(domain.EntryFieldNames, name) {
			return domain.OvertimeEntry{}, fmt.Errorf("%w: %s", domain.ErrUnknownField, name)
		}
	}

	merged := extracted
	merged.FieldOrigin = maps.Clone(extracted.FieldOrigin)
	if merged.FieldOrigin == nil {
		merged.FieldOrigin = make(map[string]domain.FieldOrigin, len(domain.EntryFieldNames))
	}

	for _, name := range domain.EntryFieldNames {
		raw, ok := corrections[name]
		if !ok {
			continue
		}
		note, err := normalize.SetField(&merged, name, raw, m.opts)
		if err != nil {
			return domain.OvertimeEntry{}, err
		}
		if note != "" {
			log.Printf("merge.Apply: entry %s field %s: %s", merged.ID, name, note)
		}
		merged.FieldOrigin[name] = domain.OriginCorrected
	}
	return merged, nil
}
