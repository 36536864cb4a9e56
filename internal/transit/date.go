package transit

import (
	"time"
)

const secondsPerDay = 24 * 60 * 60

// Date is a service day, counted in civil days since 1970-01-01.
type Date int32

// DateOf returns the service day containing t in loc.
func DateOf(t time.Time, loc *time.Location) Date {
	if loc != nil {
		t = t.In(loc)
	}
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

func NewDate(year int, month time.Month, day int) Date {
	days := time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Unix() / secondsPerDay
	return Date(days)
}

func (d Date) AddDays(n int) Date {
	return d + Date(n)
}

func (d Date) Civil() (int, time.Month, int) {
	return time.Unix(int64(d)*secondsPerDay, 0).UTC().Date()
}

// Base returns the Unix time of "noon minus 12h" of the service day, the
// reference point GTFS stop times are measured from.
func (d Date) Base(loc *time.Location) int64 {
	y, m, day := d.Civil()
	return time.Date(y, m, day, 12, 0, 0, 0, loc).Unix() - 12*60*60
}

// Unix returns the instant offset seconds after the service day's reference.
func (d Date) Unix(offset int32, loc *time.Location) int64 {
	return d.Base(loc) + int64(offset)
}

// At is Unix as a time.Time in loc.
func (d Date) At(offset int32, loc *time.Location) time.Time {
	return time.Unix(d.Unix(offset, loc), 0).In(loc)
}

func (d Date) String() string {
	y, m, day := d.Civil()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
}

// ParseDate reads a date in the 2006-01-02 layout.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return 0, err
	}
	return NewDate(t.Year(), t.Month(), t.Day()), nil
}
