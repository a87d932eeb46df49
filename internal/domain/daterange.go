package domain

import (
	"errors"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

var ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")

// DateRange is a half-open [From, To) window. A zero bound is unbounded.
type DateRange struct {
	From time.Time
	To   time.Time
}

func (r DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && !t.Before(r.To) {
		return false
	}
	return true
}

func (r DateRange) Unbounded() bool {
	return r.From.IsZero() && r.To.IsZero()
}

// Intersect returns the window covered by both ranges. Disjoint ranges give
// an empty window that contains no time.
func (r DateRange) Intersect(other DateRange) DateRange {
	out := r
	if !other.From.IsZero() && (out.From.IsZero() || other.From.After(out.From)) {
		out.From = other.From
	}
	if !other.To.IsZero() && (out.To.IsZero() || other.To.Before(out.To)) {
		out.To = other.To
	}
	if !out.From.IsZero() && !out.To.IsZero() && out.To.Before(out.From) {
		out.To = out.From
	}
	return out
}

// ParseDateRange turns inclusive calendar dates in loc into a DateRange.
// Blank dates leave the matching side open.
func ParseDateRange(startDate string, endDate string, loc *time.Location) (DateRange, error) {
	if loc == nil {
		loc = time.UTC
	}
	var r DateRange
	if s := strings.TrimSpace(startDate); s != "" {
		day, err := time.ParseInLocation(DateLayout, s, loc)
		if err != nil {
			return DateRange{}, ErrInvalidDate
		}
		r.From = day
	}
	if s := strings.TrimSpace(endDate); s != "" {
		day, err := time.ParseInLocation(DateLayout, s, loc)
		if err != nil {
			return DateRange{}, ErrInvalidDate
		}
		r.To = day.AddDate(0, 0, 1)
	}
	return r, nil
}

// DayRange covers the calendar day of t in loc.
func DayRange(t time.Time, loc *time.Location) DateRange {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return DateRange{From: start, To: start.AddDate(0, 0, 1)}
}
