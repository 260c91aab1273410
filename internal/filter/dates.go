package filter

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// ErrMalformedDate is returned by ParseDate for strings outside the
// recognized grammar (YYYY, YYYY-MM, or YYYY-MM-DD, with X/? placeholder
// tokens for unknown components).
var ErrMalformedDate = eris.New("malformed date")

// DateValue holds the three components of a sample collection date. A
// component is known only when its source token is fully numeric; ambiguity
// propagates rightward, so an ambiguous year forces month and day ambiguous,
// and an ambiguous month forces day ambiguous.
type DateValue struct {
	Year, Month, Day                int
	YearKnown, MonthKnown, DayKnown bool
}

// ParseDate classifies a raw date string into a DateValue. Strings that do
// not match the grammar fail with ErrMalformedDate; a placeholder component
// (e.g. "2021-XX-05") is valid but ambiguous.
func ParseDate(raw string) (DateValue, error) {
	var dv DateValue

	parts := strings.Split(strings.TrimSpace(raw), "-")
	if len(parts) < 1 || len(parts) > 3 || parts[0] == "" {
		return dv, eris.Wrapf(ErrMalformedDate, "dates: %q", raw)
	}

	year, ok, err := parseComponent(parts[0], 4, 0, 9999)
	if err != nil {
		return dv, eris.Wrapf(ErrMalformedDate, "dates: year in %q", raw)
	}
	dv.Year, dv.YearKnown = year, ok

	if len(parts) > 1 {
		month, ok, err := parseComponent(parts[1], 2, 1, 12)
		if err != nil {
			return dv, eris.Wrapf(ErrMalformedDate, "dates: month in %q", raw)
		}
		dv.Month, dv.MonthKnown = month, ok
	}

	if len(parts) > 2 {
		day, ok, err := parseComponent(parts[2], 2, 1, 31)
		if err != nil {
			return dv, eris.Wrapf(ErrMalformedDate, "dates: day in %q", raw)
		}
		dv.Day, dv.DayKnown = day, ok
	}

	// Ambiguity propagates rightward: a component is only known when every
	// component to its left is known.
	if !dv.YearKnown {
		dv.MonthKnown = false
	}
	if !dv.MonthKnown {
		dv.DayKnown = false
	}

	return dv, nil
}

// parseComponent parses one date token of the given width. Returns
// (value, true, nil) for a numeric token in [min, max], (0, false, nil) for a
// placeholder or mixed token, and an error for anything else. A mixed token
// ("2X") names a range, not a value, so it is ambiguous rather than
// malformed.
func parseComponent(tok string, width, min, max int) (int, bool, error) {
	if tok == "" || len(tok) > width {
		return 0, false, eris.Errorf("bad token %q", tok)
	}

	numeric := true
	v := 0
	for _, c := range tok {
		switch {
		case c >= '0' && c <= '9':
			v = v*10 + int(c-'0')
		case c == 'X' || c == 'x' || c == '?':
			numeric = false
		default:
			return 0, false, eris.Errorf("bad token %q", tok)
		}
	}

	if !numeric {
		return 0, false, nil
	}
	if v < min || v > max {
		return 0, false, eris.Errorf("out of range %q", tok)
	}
	return v, true, nil
}

// YearUsable reports whether the record can be grouped by year.
func (d DateValue) YearUsable() bool { return d.YearKnown }

// MonthUsable reports whether the record can be grouped by month.
func (d DateValue) MonthUsable() bool { return d.YearKnown && d.MonthKnown }

// WeekUsable reports whether the record can be grouped by ISO week, which
// requires a fully resolved date.
func (d DateValue) WeekUsable() bool { return d.YearKnown && d.MonthKnown && d.DayKnown }

// Earliest returns the earliest concrete date the value could represent.
// The second return is false when even the year is unknown.
func (d DateValue) Earliest() (time.Time, bool) {
	if !d.YearKnown {
		return time.Time{}, false
	}
	m, day := 1, 1
	if d.MonthKnown {
		m = d.Month
		if d.DayKnown {
			day = d.Day
		}
	}
	return time.Date(d.Year, time.Month(m), day, 0, 0, 0, 0, time.UTC), true
}

// Latest returns the latest concrete date the value could represent.
func (d DateValue) Latest() (time.Time, bool) {
	if !d.YearKnown {
		return time.Time{}, false
	}
	if d.MonthKnown && d.DayKnown {
		return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC), true
	}
	if d.MonthKnown {
		// Day zero of the next month is the last day of this month.
		return time.Date(d.Year, time.Month(d.Month)+1, 0, 0, 0, 0, 0, time.UTC), true
	}
	return time.Date(d.Year, 12, 31, 0, 0, 0, 0, time.UTC), true
}
