package action

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/wasilibs/go-re2"
)

const (
	// TimeLayout is the canonical stored form of a time of day.
	TimeLayout = "3:04 PM"
	// DateLayout is the canonical stored form of a calendar date.
	DateLayout = "02 01 2006"
)

var (
	timePattern = re2.MustCompile(`^(0?[1-9]|1[0-2]):([0-5][0-9]) +([AaPp][Mm])$`)
	datePattern = re2.MustCompile(`^([0-9]{2}) ([0-9]{2}) ([0-9]{4})$`)
)

// TimeOfDay is a wall-clock time without a date or zone.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// ParseTime parses a 12-hour clock time such as "9:30 PM".
func ParseTime(s string) (TimeOfDay, error) {
	m := timePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return TimeOfDay{}, &InvalidTimeFormatError{Value: s}
	}

	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])

	pm := strings.EqualFold(m[3], "PM")
	switch {
	case hour == 12 && !pm:
		hour = 0
	case hour != 12 && pm:
		hour += 12
	}

	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

// String formats t in the canonical "3:04 PM" form.
func (t TimeOfDay) String() string {
	return time.Date(2000, 1, 1, t.Hour, t.Minute, t.Second, 0, time.UTC).Format(TimeLayout)
}

// Date is a calendar day without a time or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses a "DD MM YYYY" date such as "25 12 2025".
func ParseDate(s string) (Date, error) {
	m := datePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Date{}, &InvalidDateFormatError{Value: s}
	}

	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])

	if year < 1 {
		return Date{}, &InvalidDateFormatError{Value: s, Reason: "year out of range"}
	}
	if month < 1 || month > 12 {
		return Date{}, &InvalidDateFormatError{Value: s, Reason: fmt.Sprintf("month %d out of range", month)}
	}
	if day < 1 || day > daysIn(time.Month(month), year) {
		return Date{}, &InvalidDateFormatError{Value: s, Reason: fmt.Sprintf("day %d does not exist in %s %d", day, time.Month(month), year)}
	}

	return Date{Year: year, Month: time.Month(month), Day: day}, nil
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// String formats d in the canonical "02 01 2006" form.
func (d Date) String() string {
	return fmt.Sprintf("%02d %02d %04d", d.Day, int(d.Month), d.Year)
}

// AddDays moves d by n calendar days, rolling months and years over.
func (d Date) AddDays(n int) Date {
	// Noon UTC keeps the normalization clear of any zone transition.
	return DateOf(time.Date(d.Year, d.Month, d.Day+n, 12, 0, 0, 0, time.UTC))
}

// At returns the instant of tod on d in loc.
func (d Date) At(tod TimeOfDay, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(d.Year, d.Month, d.Day, tod.Hour, tod.Minute, tod.Second, 0, loc)
}

// Before reports whether d is an earlier calendar day than other.
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

func daysIn(m time.Month, year int) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
