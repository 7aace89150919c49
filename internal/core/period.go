package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// PeriodWeek and PeriodFortnight are the only fractional periods accepted.
	PeriodWeek      = 0.25
	PeriodFortnight = 0.5

	// MaxPeriodMonths keeps the lookback inside time.Duration range.
	MaxPeriodMonths = 1200

	day = 24 * time.Hour
)

// Window is the closed time range [Start, End] an aggregation covers.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window, bounds included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// WindowFor maps a period selector to its lookback window ending one day
// after now, so entries stamped later the same day are still counted.
// A period of one or more is a count of 30-day months; 0.5 and 0.25 are
// two weeks and one week. Everything else is rejected, never rounded.
func WindowFor(period float64, now time.Time) (Window, error) {
	var lookback time.Duration
	switch {
	case period >= 1 && period <= MaxPeriodMonths:
		lookback = time.Duration(period * 30 * float64(day))
	case period == PeriodFortnight:
		lookback = 14 * day
	case period == PeriodWeek:
		lookback = 7 * day
	default:
		return Window{}, fmt.Errorf("%w: %v", ErrInvalidPeriod, period)
	}
	return Window{Start: now.Add(-lookback), End: now.Add(day)}, nil
}

// ParsePeriod parses a period selector from a query string value.
func ParsePeriod(s string) (float64, error) {
	p, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	return p, nil
}
