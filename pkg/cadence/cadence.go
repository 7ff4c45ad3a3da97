// Package cadence recognises recurrence tags in task notes and computes the
// next due date of a recurring task.
package cadence

import (
	"errors"
	"strings"
	"time"
)

// Cadence is the recurrence class of a tagged task.
type Cadence int

const (
	None Cadence = iota
	Daily
	Weekly
	Monthly
)

// ErrNoRule is returned when a cadence has no due date rule.
var ErrNoRule = errors.New("no due date rule for cadence")

// precedence is the order in which tags are matched when notes carry more
// than one of them.
var precedence = []Cadence{Daily, Weekly, Monthly}

func (c Cadence) String() string {
	switch c {
	case Daily:
		return "daily"
	case Weekly:
		return "weekly"
	case Monthly:
		return "monthly"
	default:
		return "none"
	}
}

// Tag returns the marker that identifies c in notes, e.g. "#weekly".
func (c Cadence) Tag() string {
	if c == None {
		return ""
	}
	return "#" + c.String()
}

// Parse returns the cadence of a task from its notes. When several tags are
// present the first one in daily, weekly, monthly order wins.
func Parse(notes string) Cadence {
	for _, c := range precedence {
		if strings.Contains(notes, c.Tag()) {
			return c
		}
	}
	return None
}

// Matches returns every cadence tag present in notes, in precedence order.
func Matches(notes string) []Cadence {
	var found []Cadence
	for _, c := range precedence {
		if strings.Contains(notes, c.Tag()) {
			found = append(found, c)
		}
	}
	return found
}

// Date truncates t to its calendar date, expressed as midnight UTC. The
// year, month and day are taken in t's own location.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the calendar date of now in the local timezone.
func Today(now time.Time) time.Time {
	return Date(now.Local())
}

// NextDue computes the next due date for cadence c. ref is the task's due
// date before the cycle is advanced and may be nil. today must already be a
// calendar date.
func NextDue(c Cadence, ref *time.Time, today time.Time) (time.Time, error) {
	switch c {
	case Daily:
		return today, nil
	case Weekly:
		if ref != nil {
			return Date(*ref).AddDate(0, 0, 7), nil
		}
		return nextSunday(today), nil
	case Monthly:
		if ref != nil {
			// AddDate normalises overflow: Jan 31 + 1 month is Mar 2 or 3.
			return Date(*ref).AddDate(0, 1, 0), nil
		}
		return lastDayOfMonthAfterNext(today), nil
	default:
		return time.Time{}, ErrNoRule
	}
}

// nextSunday returns the first Sunday strictly after today.
func nextSunday(today time.Time) time.Time {
	days := (7 - int(today.Weekday())) % 7
	next := today.AddDate(0, 0, days)
	if !next.After(today) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}

func lastDayOfMonthAfterNext(today time.Time) time.Time {
	// Day 0 of month m+3 is the last day of month m+2.
	return time.Date(today.Year(), today.Month()+3, 0, 0, 0, 0, 0, time.UTC)
}

// IsOverdue reports whether due is strictly before today.
func IsOverdue(due *time.Time, today time.Time) bool {
	return due != nil && Date(*due).Before(today)
}
