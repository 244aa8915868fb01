package interaction

import "time"

const dayLayout = "2006-01-02"

// Day is a civil calendar date counted in days since 1970-01-01.
// Days are resolved in a caller-supplied time zone, so the same instant can
// map to different days for different locations.
type Day int32

// DayOf returns the calendar day containing t in loc.
func DayOf(t time.Time, loc *time.Location) Day {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return Day(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

// ParseDay parses a "2006-01-02" date.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return 0, err
	}
	return Day(t.Unix() / 86400), nil
}

// Start returns midnight at the beginning of the day in loc.
func (d Day) Start(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, dd := time.Unix(int64(d)*86400, 0).UTC().Date()
	return time.Date(y, m, dd, 0, 0, 0, 0, loc)
}

// AddDays returns the day n days after d (n may be negative).
func (d Day) AddDays(n int) Day {
	return d + Day(n)
}

// Since returns the number of whole days from other to d.
func (d Day) Since(other Day) int {
	return int(d - other)
}

func (d Day) String() string {
	return time.Unix(int64(d)*86400, 0).UTC().Format(dayLayout)
}
