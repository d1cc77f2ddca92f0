// Package normalize converts the raw per-field strings recovered from the
// vision model into canonical typed values. Every function here is total:
// invalid input is data, not a fault, and resolves to the unresolved
// sentinel together with a diagnostic note that is only ever logged.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/purrup/auto-overtime/internal/domain"
)

// minguoOffset converts a Minguo (Republic of China) year to Gregorian.
const minguoOffset = 1911

// Gregorian years outside this window are treated as misreads.
const (
	minYear = 1911
	maxYear = 2200
)

// Options controls normalization behavior.
type Options struct {
	// PreferMinguoOnConflict applies when a date string carries an
	// explicit Minguo era marker together with a Gregorian-sized year.
	PreferMinguoOnConflict bool
}

// DefaultOptions matches the shipped configuration defaults.
var DefaultOptions = Options{PreferMinguoOnConflict: true}

var (
	cjkDateRe   = regexp.MustCompile(`^(\d{1,4})年(\d{1,2})月(\d{1,2})日?$`)
	sepDateRe   = regexp.MustCompile(`^(\d{1,4})[-/.](\d{1,2})[-/.](\d{1,2})$`)
	clockRe     = regexp.MustCompile(`^(\d{1,2}):(\d{1,2})$`)
	cjkClockRe  = regexp.MustCompile(`^(\d{1,2})[時点點](?:(\d{1,2})分?)?$`)
	hoursExprRe = regexp.MustCompile(`^(-?\d+(?:\.\d+)?)\s*(小時|小时|時|hr[s]?|hour[s]?|h)?$`)
	minsExprRe  = regexp.MustCompile(`^(-?\d+(?:\.\d+)?)\s*(分鐘|分钟|分|min[s]?|minute[s]?|m)$`)
	minguoRe    = regexp.MustCompile(`民[國国]`)
)

// fullWidthReplacer maps full-width digits and punctuation, common in
// handwriting transcriptions, onto their ASCII forms.
var fullWidthReplacer = strings.NewReplacer(
	"０", "0", "１", "1", "２", "2", "３", "3", "４", "4",
	"５", "5", "６", "6", "７", "7", "８", "8", "９", "9",
	"：", ":", "．", ".", "／", "/", "－", "-", "　", " ",
)

func clean(raw string) string {
	return strings.TrimSpace(fullWidthReplacer.Replace(raw))
}

// unresolvable reports whether raw is empty or already the marker literal.
func unresolvable(raw string) bool {
	return raw == "" || raw == domain.UnresolvedMarker
}

// Date parses Gregorian and Minguo-calendar date notations into a
// canonical Gregorian date. The note return is a log-only diagnostic.
func Date(raw string, opts Options) (domain.Field[domain.CanonicalDate], string) {
	s := clean(raw)
	if unresolvable(s) {
		return domain.Unresolved[domain.CanonicalDate](), ""
	}

	hasMarker := minguoRe.MatchString(s)
	if hasMarker {
		s = strings.TrimSpace(minguoRe.ReplaceAllString(s, ""))
	}

	m := cjkDateRe.FindStringSubmatch(s)
	if m == nil {
		m = sepDateRe.FindStringSubmatch(s)
	}
	if m == nil {
		return domain.Unresolved[domain.CanonicalDate](), "unrecognized date notation: " + raw
	}

	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])

	minguo := hasMarker
	if !hasMarker && year < 200 {
		// A bare small year can only be a Minguo year on these slips.
		minguo = true
	}
	if hasMarker && year >= minguoOffset && !opts.PreferMinguoOnConflict {
		minguo = false
	}
	if minguo {
		year += minguoOffset
	}

	if year < minYear || year > maxYear {
		return domain.Unresolved[domain.CanonicalDate](), "date year out of range: " + raw
	}
	d := domain.DateOf(year, time.Month(month), day)
	if !d.Valid() {
		return domain.Unresolved[domain.CanonicalDate](), "impossible calendar date: " + raw
	}
	return domain.Resolved(d), ""
}

// Clock parses 24-hour clock notations, including CJK forms such as
// 14時16分, into a canonical HH:MM value.
func Clock(raw string) (domain.Field[domain.CanonicalTime], string) {
	s := clean(raw)
	if unresolvable(s) {
		return domain.Unresolved[domain.CanonicalTime](), ""
	}

	m := clockRe.FindStringSubmatch(s)
	if m == nil {
		m = cjkClockRe.FindStringSubmatch(s)
	}
	if m == nil {
		return domain.Unresolved[domain.CanonicalTime](), "unrecognized time notation: " + raw
	}

	hour, _ := strconv.Atoi(m[1])
	minute := 0
	if len(m) > 2 && m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}

	t := domain.CanonicalTime{Hour: hour, Minute: minute}
	if !t.Valid() {
		return domain.Unresolved[domain.CanonicalTime](), "time outside 00:00-23:59: " + raw
	}
	return domain.Resolved(t), ""
}

// Duration parses natural-language hour expressions ("4小時", "4.5hr",
// "90分鐘") into a decimal number of hours.
func Duration(raw string) (domain.Field[domain.CanonicalDuration], string) {
	s := clean(raw)
	if unresolvable(s) {
		return domain.Unresolved[domain.CanonicalDuration](), ""
	}
	s = strings.ToLower(s)

	var hours float64
	if m := minsExprRe.FindStringSubmatch(s); m != nil {
		mins, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return domain.Unresolved[domain.CanonicalDuration](), "unparseable minute count: " + raw
		}
		hours = mins / 60
	} else if m := hoursExprRe.FindStringSubmatch(s); m != nil {
		var err error
		hours, err = strconv.ParseFloat(m[1], 64)
		if err != nil {
			return domain.Unresolved[domain.CanonicalDuration](), "unparseable hour count: " + raw
		}
	} else {
		return domain.Unresolved[domain.CanonicalDuration](), "unrecognized duration notation: " + raw
	}

	if hours < 0 {
		return domain.Unresolved[domain.CanonicalDuration](), "negative duration: " + raw
	}
	if hours > 24 {
		return domain.Unresolved[domain.CanonicalDuration](), "duration beyond one day: " + raw
	}
	return domain.Resolved(domain.CanonicalDuration(hours)), ""
}

// FreeText passes reason-style fields through with whitespace trimming
// only; an empty result is unresolved, never an empty string.
func FreeText(raw string) (domain.Field[string], string) {
	s := strings.TrimSpace(strings.ReplaceAll(raw, "　", " "))
	s = strings.TrimSpace(s)
	if unresolvable(s) {
		return domain.Unresolved[string](), ""
	}
	return domain.Resolved(s), ""
}
