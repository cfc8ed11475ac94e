package core

import (
	"fmt"
	"strings"
	"time"
)

// ISOLayout is the instant format sent to the backend.
const ISOLayout = "2006-01-02T15:04:05.000Z"

// InputDateLayout is the value format of <input type="date">.
const InputDateLayout = "2006-01-02"

// QuickRange names the preset windows offered by the date filter.
type QuickRange string

const (
	RangeToday  QuickRange = "today"
	RangeWeek   QuickRange = "week"
	RangeMonth  QuickRange = "month"
	RangeYear   QuickRange = "year"
	RangeCustom QuickRange = "custom"
)

// DateRange is an inclusive pair of instants. From after To is allowed and
// forwarded to the backend untouched.
type DateRange struct {
	From time.Time
	To   time.Time
}

// FromISO and ToISO format the bounds for request parameters.
func (r DateRange) FromISO() string { return r.From.UTC().Format(ISOLayout) }
func (r DateRange) ToISO() string   { return r.To.UTC().Format(ISOLayout) }

// Key identifies the range in caches.
func (r DateRange) Key() string {
	return r.FromISO() + "|" + r.ToISO()
}

// Reversed reports whether From is after To.
func (r DateRange) Reversed() bool {
	return r.From.After(r.To)
}

func (r DateRange) String() string {
	return fmt.Sprintf("%s..%s", r.FromISO(), r.ToISO())
}

// ParseQuickRange maps a query value onto a preset, defaulting to today.
func ParseQuickRange(s string) QuickRange {
	switch QuickRange(strings.ToLower(strings.TrimSpace(s))) {
	case RangeWeek:
		return RangeWeek
	case RangeMonth:
		return RangeMonth
	case RangeYear:
		return RangeYear
	case RangeCustom:
		return RangeCustom
	default:
		return RangeToday
	}
}

// Resolve turns a preset into concrete bounds ending at now. Presets start at
// local midnight in now's location; the week starts on Monday.
func (q QuickRange) Resolve(now time.Time) DateRange {
	loc := now.Location()
	y, m, d := now.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, loc)

	switch q {
	case RangeWeek:
		offset := (int(now.Weekday()) + 6) % 7
		return DateRange{From: midnight.AddDate(0, 0, -offset), To: now}
	case RangeMonth:
		return DateRange{From: time.Date(y, m, 1, 0, 0, 0, 0, loc), To: now}
	case RangeYear:
		return DateRange{From: time.Date(y, time.January, 1, 0, 0, 0, 0, loc), To: now}
	case RangeCustom:
		return DefaultCustomRange(now)
	default:
		return DateRange{From: midnight, To: now}
	}
}

// DefaultCustomRange is what the custom inputs show before the user edits them.
func DefaultCustomRange(now time.Time) DateRange {
	y, m, _ := now.Date()
	return DateRange{From: time.Date(y, m, 1, 0, 0, 0, 0, now.Location()), To: now}
}

// ParseCustomRange reads the two date inputs. Dates are taken as UTC
// midnight, matching how a date-only string is read as an instant. An empty
// side falls back to the default custom range.
func ParseCustomRange(from, to string, now time.Time) (DateRange, error) {
	r := DefaultCustomRange(now)
	if v := strings.TrimSpace(from); v != "" {
		t, err := time.Parse(InputDateLayout, v)
		if err != nil {
			return DateRange{}, fmt.Errorf("invalid from date %q: %w", v, err)
		}
		r.From = t
	}
	if v := strings.TrimSpace(to); v != "" {
		t, err := time.Parse(InputDateLayout, v)
		if err != nil {
			return DateRange{}, fmt.Errorf("invalid to date %q: %w", v, err)
		}
		r.To = t
	}
	return r, nil
}
