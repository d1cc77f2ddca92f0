// Package salvage validates the raw structured payload returned by the
// vision model against the expected record schema. A payload that fails
// strict parsing is not discarded: the validator recovers every
// well-formed sub-field it can locate and reports the rest as missing.
// Semantic plausibility is not judged here; that is the normalizer's job.
package salvage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/purrup/auto-overtime/internal/domain"
)

// FieldOutcome classifies how one field of one entry survived validation.
type FieldOutcome string

const (
	OutcomeParsed   FieldOutcome = "parsed"   // present as a well-formed string
	OutcomeSalvaged FieldOutcome = "salvaged" // recovered via coercion or lenient re-parse
	OutcomeMissing  FieldOutcome = "missing"  // absent from the payload
)

// RawEntry holds the per-field raw strings for one recognized table row.
type RawEntry map[string]string

// EntryReport maps each schema field of one entry to its outcome.
type EntryReport struct {
	Index  int                     `json:"index"`
	Fields map[string]FieldOutcome `json:"fields"`
}

// Report enumerates what the validator recovered from one response.
type Report struct {
	StrictParse   bool          `json:"strict_parse"`
	FenceStripped bool          `json:"fence_stripped"`
	Entries       []EntryReport `json:"entries"`
}

// SalvagedFields lists "entry<i>.<field>" labels for every field that
// needed lenient recovery, for the per-task batch status.
func (r *Report) SalvagedFields() []string {
	var out []string
	for _, er := range r.Entries {
		for _, name := range domain.EntryFieldNames {
			if er.Fields[name] == OutcomeSalvaged {
				out = append(out, fmt.Sprintf("entry%d.%s", er.Index, name))
			}
		}
	}
	if !r.StrictParse && len(out) == 0 && len(r.Entries) > 0 {
		out = append(out, "payload")
	}
	return out
}

// Clean reports whether the payload parsed strictly with no recovery.
func (r *Report) Clean() bool {
	return r.StrictParse && len(r.SalvagedFields()) == 0
}

// Validate parses the raw payload into per-entry field maps. It never
// returns an error for malformed payloads: structural violations shrink
// the result and show up in the report instead. A nil result means no
// recognizable structure was found at all; a non-nil empty result means
// the payload was well formed but carried zero entries.
func Validate(raw *domain.RawExtractionResponse) ([]RawEntry, Report) {
	report := Report{}
	payload := bytes.TrimSpace(raw.RawPayload)

	if stripped, ok := stripCodeFence(payload); ok {
		payload = stripped
		report.FenceStripped = true
	}

	rows, strict := decodeRows(payload)
	report.StrictParse = strict && !report.FenceStripped
	if rows == nil {
		return nil, report
	}

	entries := make([]RawEntry, 0, len(rows))
	for i, row := range rows {
		entry, entryReport := salvageRow(i, row, report.StrictParse)
		entries = append(entries, entry)
		report.Entries = append(report.Entries, entryReport)
	}
	return entries, report
}

// decodeRows locates the entries array inside the payload, tolerating a
// bare array, a bare single record, or leading/trailing prose.
func decodeRows(payload []byte) ([]map[string]json.RawMessage, bool) {
	if rows, ok := decodeEnvelope(payload); ok {
		return rows, true
	}

	// Bare array of records.
	var arr []map[string]json.RawMessage
	if err := json.Unmarshal(payload, &arr); err == nil {
		return arr, false
	}

	// Bare single record carrying at least one known field.
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(payload, &obj); err == nil {
		if hasKnownField(obj) {
			return []map[string]json.RawMessage{obj}, false
		}
	}

	// Last resort: the outermost object embedded in surrounding text.
	start := bytes.IndexByte(payload, '{')
	end := bytes.LastIndexByte(payload, '}')
	if start >= 0 && end > start {
		if rows, ok := decodeEnvelope(payload[start : end+1]); ok {
			return rows, false
		}
	}
	return nil, false
}

func decodeEnvelope(payload []byte) ([]map[string]json.RawMessage, bool) {
	var envelope struct {
		Entries []map[string]json.RawMessage `json:"entries"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil || envelope.Entries == nil {
		return nil, false
	}
	return envelope.Entries, true
}

func hasKnownField(obj map[string]json.RawMessage) bool {
	for _, name := range domain.EntryFieldNames {
		if _, ok := obj[name]; ok {
			return true
		}
	}
	return false
}

// salvageRow extracts the schema fields from one record, coercing
// non-string scalars and dropping unknown keys. Fields whose values
// cannot be rendered as text are reported missing, never guessed.
func salvageRow(index int, row map[string]json.RawMessage, strict bool) (RawEntry, EntryReport) {
	entry := make(RawEntry, len(domain.EntryFieldNames))
	report := EntryReport{Index: index, Fields: make(map[string]FieldOutcome, len(domain.EntryFieldNames))}

	for _, name := range domain.EntryFieldNames {
		rawVal, ok := row[name]
		if !ok {
			report.Fields[name] = OutcomeMissing
			continue
		}

		var s string
		if err := json.Unmarshal(rawVal, &s); err == nil {
			entry[name] = s
			if strict {
				report.Fields[name] = OutcomeParsed
			} else {
				report.Fields[name] = OutcomeSalvaged
			}
			continue
		}

		// Non-string scalar (number or bool): coerce to text and let the
		// normalizer decide resolvability.
		var n json.Number
		if err := json.Unmarshal(rawVal, &n); err == nil {
			entry[name] = n.String()
			report.Fields[name] = OutcomeSalvaged
			continue
		}
		var b bool
		if err := json.Unmarshal(rawVal, &b); err == nil {
			entry[name] = fmt.Sprintf("%t", b)
			report.Fields[name] = OutcomeSalvaged
			continue
		}

		// Arrays, objects, null: nothing usable.
		report.Fields[name] = OutcomeMissing
	}
	return entry, report
}

// stripCodeFence removes a surrounding markdown code fence, which models
// emit despite instructions.
func stripCodeFence(payload []byte) ([]byte, bool) {
	s := strings.TrimSpace(string(payload))
	if !strings.HasPrefix(s, "```") {
		return payload, false
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return []byte(strings.TrimSpace(s)), true
}
