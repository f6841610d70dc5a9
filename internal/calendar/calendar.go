// Package calendar converts the absolute day counter of a save into calendar
// dates and formats them as era years.
//
// The calendar is a fixed approximation: a year has 365 days, months have 30
// days and the twelfth month absorbs the remaining five. There are no leap
// years.
package calendar

import "fmt"

const (
	StartYear     = 184
	DaysPerYear   = 365
	DaysPerMonth  = 30
	MonthsPerYear = 12
)

// Date is a calendar date derived from a day counter. Month and Day are 1-based.
type Date struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// FromDays converts an absolute day counter to a Date. Negative counters are
// treated as day 0.
func FromDays(totalDays int) Date {
	if totalDays < 0 {
		totalDays = 0
	}
	year := StartYear + totalDays/DaysPerYear
	dayOfYear := totalDays % DaysPerYear

	month := dayOfYear/DaysPerMonth + 1
	if month > MonthsPerYear {
		month = MonthsPerYear
	}
	day := dayOfYear - (month-1)*DaysPerMonth + 1

	return Date{Year: year, Month: month, Day: day}
}

// ToDays converts a Date back to an absolute day counter. Out-of-range fields
// are clamped; dates before the start year map to day 0.
func ToDays(d Date) int {
	d = d.Normalize()
	days := (d.Year-StartYear)*DaysPerYear + (d.Month-1)*DaysPerMonth + (d.Day - 1)
	if days < 0 {
		return 0
	}
	return days
}

// Normalize clamps month and day into their valid ranges.
func (d Date) Normalize() Date {
	if d.Month < 1 {
		d.Month = 1
	}
	if d.Month > MonthsPerYear {
		d.Month = MonthsPerYear
	}
	maxDay := DaysPerMonth
	if d.Month == MonthsPerYear {
		maxDay = DaysPerYear - (MonthsPerYear-1)*DaysPerMonth
	}
	if d.Day < 1 {
		d.Day = 1
	}
	if d.Day > maxDay {
		d.Day = maxDay
	}
	return d
}

// Before reports whether d is earlier than o in (year, month, day) order.
func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

// MonthIndex returns a monotonically increasing month counter, useful for
// month arithmetic across years.
func (d Date) MonthIndex() int {
	return d.Year*MonthsPerYear + (d.Month - 1)
}

// MonthsBetween returns the whole calendar months from a to b, or 0 if b is
// not after a.
func MonthsBetween(a, b Date) int {
	n := b.MonthIndex() - a.MonthIndex()
	if n < 0 {
		return 0
	}
	return n
}

// Season is one of the four seasons, derived from the month.
type Season int

const (
	Spring Season = iota
	Summer
	Autumn
	Winter
)

var seasonNames = [...]string{"春", "夏", "秋", "冬"}

func (s Season) String() string {
	if s < Spring || s > Winter {
		return "?"
	}
	return seasonNames[s]
}

// SeasonOf maps a month (1-12) to its season.
func SeasonOf(month int) Season {
	switch {
	case month <= 3:
		return Spring
	case month <= 6:
		return Summer
	case month <= 9:
		return Autumn
	default:
		return Winter
	}
}

func (d Date) Season() Season { return SeasonOf(d.Month) }

func (d Date) String() string {
	return fmt.Sprintf("%d-%02d-%02d", d.Year, d.Month, d.Day)
}
