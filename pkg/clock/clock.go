// Package clock provides the current time and civil-date comparisons in the
// library's configured time zone.
//
// Dates (due dates, desired due dates) are represented as time.Time values at
// midnight UTC of the civil date they stand for. That keeps them comparable and
// sortable in the database regardless of the configured zone.
package clock

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

const dateLayout = "2006-01-02"

type Clock struct {
	now func() time.Time
	loc *time.Location
}

// New returns a Clock backed by the system time in loc. A nil loc means UTC.
func New(loc *time.Location) *Clock {
	return newClock(time.Now, loc)
}

// NewFixed returns a Clock pinned to t. Useful in tests.
func NewFixed(t time.Time, loc *time.Location) *Clock {
	return newClock(func() time.Time { return t }, loc)
}

// NewFromTimeZone returns a system Clock for the named IANA zone.
func NewFromTimeZone(name string) (*Clock, error) {
	if name == "" {
		return New(time.UTC), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid time zone %q", name)
	}
	return New(loc), nil
}

func newClock(now func() time.Time, loc *time.Location) *Clock {
	if loc == nil {
		loc = time.UTC
	}
	return &Clock{now: now, loc: loc}
}

// Now returns the current instant in the clock's location.
func (c *Clock) Now() time.Time {
	return c.now().In(c.loc)
}

// Location returns the configured location.
func (c *Clock) Location() *time.Location {
	return c.loc
}

// Today returns the current civil date.
func (c *Clock) Today() time.Time {
	return DateOf(c.Now())
}

// IsPast reports whether the civil date of d lies before today.
func (c *Clock) IsPast(d time.Time) bool {
	return IsPast(d, c.Today())
}

// IsFuture reports whether the civil date of d lies strictly after today.
func (c *Clock) IsFuture(d time.Time) bool {
	return DateOf(d).After(c.Today())
}

// DaysFromToday returns the civil date n days after today.
func (c *Clock) DaysFromToday(n int) time.Time {
	return c.Today().AddDate(0, 0, n)
}

// IsPast reports whether the civil date of d lies before the civil date today.
func IsPast(d, today time.Time) bool {
	return DateOf(d).Before(DateOf(today))
}

// DateOf truncates t to its civil date (in t's own location) and returns it as
// midnight UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a civil date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, errors.WithStack(err)
	}
	return t, nil
}

// FormatDate formats a civil date as YYYY-MM-DD.
func FormatDate(d time.Time) string {
	return DateOf(d).Format(dateLayout)
}
