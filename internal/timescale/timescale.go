package timescale

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrMalformedTimestamp is returned when a UTC calendar string cannot be
// parsed into calendar fields.
var ErrMalformedTimestamp = errors.New("malformed timestamp")

// LeapSecond records a single leap-second insertion: the MJD of the UTC day
// that carries the extra 23:59:60 second.
type LeapSecond struct {
	MJD int
}

// TimeScale converts between UTC calendar timestamps and Epoch values,
// applying leap-second offsets from the table supplied at construction.
// Immutable after construction; safe for concurrent use.
type TimeScale struct {
	insertions []int // MJDs of 86401-second days, ascending
}

// New creates a TimeScale from a leap-second table. Entries may be given in
// any order; they are sorted internally.
func New(table []LeapSecond) *TimeScale {
	ins := make([]int, 0, len(table))
	for _, ls := range table {
		ins = append(ins, ls.MJD)
	}
	for i := 1; i < len(ins); i++ {
		for j := i; j > 0 && ins[j] < ins[j-1]; j-- {
			ins[j], ins[j-1] = ins[j-1], ins[j]
		}
	}
	return &TimeScale{insertions: ins}
}

// DefaultLeapSeconds returns the leap-second insertions announced by the
// IERS since 1972, identified by the MJD of the day containing 23:59:60.
func DefaultLeapSeconds() []LeapSecond {
	mjds := []int{
		41498, 41682, 42047, 42412, 42777, 43143, 43508, 43873, 44238,
		44785, 45150, 45515, 46246, 47160, 47891, 48256, 48803, 49168,
		49533, 50082, 50629, 51178, 53735, 54831, 56108, 57203, 57753,
	}
	table := make([]LeapSecond, len(mjds))
	for i, m := range mjds {
		table[i] = LeapSecond{MJD: m}
	}
	return table
}

// leapCount returns the number of insertions strictly before the given MJD.
// The inserted second itself (SoD >= 86400 on the insertion day) still
// carries the pre-insertion count, which keeps the continuous axis gapless.
func (ts *TimeScale) leapCount(mjd int) int {
	n := 0
	for _, ins := range ts.insertions {
		if ins < mjd {
			n++
		}
	}
	return n
}

// dayLength returns the number of UTC seconds in the given MJD day.
func (ts *TimeScale) dayLength(mjd int) float64 {
	for _, ins := range ts.insertions {
		if ins == mjd {
			return 86401
		}
	}
	return 86400
}

// ToEpoch parses a UTC calendar string ("2016-12-31 23:59:60.5", with 'T'
// separator and trailing 'Z' also accepted) into an Epoch.
func (ts *TimeScale) ToEpoch(s string) (Epoch, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "Z")
	sep := " "
	if strings.ContainsRune(s, 'T') {
		sep = "T"
	}
	parts := strings.SplitN(s, sep, 2)
	if len(parts) != 2 {
		return Epoch{}, fmt.Errorf("%w: %q", ErrMalformedTimestamp, s)
	}

	dateFields := strings.Split(parts[0], "-")
	timeFields := strings.Split(parts[1], ":")
	if len(dateFields) != 3 || len(timeFields) != 3 {
		return Epoch{}, fmt.Errorf("%w: %q", ErrMalformedTimestamp, s)
	}

	year, err1 := strconv.Atoi(dateFields[0])
	month, err2 := strconv.Atoi(dateFields[1])
	day, err3 := strconv.Atoi(dateFields[2])
	hour, err4 := strconv.Atoi(timeFields[0])
	minute, err5 := strconv.Atoi(timeFields[1])
	sec, err6 := strconv.ParseFloat(timeFields[2], 64)
	for _, err := range []error{err1, err2, err3, err4, err5, err6} {
		if err != nil {
			return Epoch{}, fmt.Errorf("%w: %q", ErrMalformedTimestamp, s)
		}
	}
	if month < 1 || month > 12 || day < 1 || day > 31 ||
		hour > 23 || minute > 59 || sec < 0 || sec >= 61 {
		return Epoch{}, fmt.Errorf("%w: %q out of calendar range", ErrMalformedTimestamp, s)
	}

	mjd := CalendarToMJD(year, month, day)
	sod := float64(hour)*3600 + float64(minute)*60 + sec
	if sod >= ts.dayLength(mjd) {
		return Epoch{}, fmt.Errorf("%w: %q second of day exceeds day length", ErrMalformedTimestamp, s)
	}
	return Epoch{MJD: mjd, SoD: sod, Leap: ts.leapCount(mjd)}, nil
}

// ToUTC formats an Epoch as an ISO-style UTC calendar string with
// millisecond precision. The inserted leap second renders as 23:59:60.
func (ts *TimeScale) ToUTC(e Epoch) string {
	year, month, day := MJDToCalendar(e.MJD)

	sod := e.SoD
	hour := int(sod / 3600)
	if hour > 23 {
		hour = 23 // leap second: SoD in [86400, 86401)
	}
	rem := sod - float64(hour)*3600
	minute := int(rem / 60)
	if minute > 59 {
		minute = 59
	}
	sec := rem - float64(minute)*60

	// Round to milliseconds, carrying into the minute if rounding hits the
	// next whole minute on a regular day.
	sec = math.Round(sec*1000) / 1000
	if sec >= 60 && ts.dayLength(e.MJD) == 86400 {
		sec -= 60
		if minute++; minute == 60 {
			minute = 0
			if hour++; hour == 24 {
				return ts.ToUTC(Epoch{MJD: e.MJD + 1, SoD: 0})
			}
		}
	}

	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%06.3f", year, month, day, hour, minute, sec)
}

// AddSeconds returns the Epoch dt seconds after e, rolling Second-of-Day
// across day boundaries and leap-second insertions. dt may be negative.
func (ts *TimeScale) AddSeconds(e Epoch, dt float64) Epoch {
	mjd := e.MJD
	sod := e.SoD + dt
	for sod >= ts.dayLength(mjd) {
		sod -= ts.dayLength(mjd)
		mjd++
	}
	for sod < 0 {
		mjd--
		sod += ts.dayLength(mjd)
	}
	return Epoch{MJD: mjd, SoD: sod, Leap: ts.leapCount(mjd)}
}

// DiffSeconds returns a-b in elapsed seconds, counting inserted leap seconds.
func (ts *TimeScale) DiffSeconds(a, b Epoch) float64 {
	return ts.continuous(a) - ts.continuous(b)
}

// continuous maps an Epoch onto a gapless seconds axis where each inserted
// leap second advances the axis by one real second.
func (ts *TimeScale) continuous(e Epoch) float64 {
	return float64(e.MJD)*86400 + e.SoD + float64(ts.leapCount(e.MJD))
}

// CalendarToMJD converts a Gregorian calendar date to Modified Julian Day.
func CalendarToMJD(year, month, day int) int {
	a := (14 - month) / 12
	y := year + 4800 - a
	m := month + 12*a - 3
	jdn := day + (153*m+2)/5 + 365*y + y/4 - y/100 + y/400 - 32045
	return jdn - 2400001
}

// MJDToCalendar converts a Modified Julian Day to a Gregorian calendar date.
func MJDToCalendar(mjd int) (year, month, day int) {
	jdn := mjd + 2400001
	a := jdn + 32044
	b := (4*a + 3) / 146097
	c := a - 146097*b/4
	d := (4*c + 3) / 1461
	e := c - 1461*d/4
	m := (5*e + 2) / 153
	day = e - (153*m+2)/5 + 1
	month = m + 3 - 12*(m/10)
	year = 100*b + d - 4800 + m/10
	return year, month, day
}
