package calendar

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/username/business-calendar/pkg/dateutil"
)

var (
	// ErrCountryNotSupported is returned when a calendar is built for an unknown jurisdiction
	ErrCountryNotSupported = errors.New("country not supported")

	// ErrSourceUnavailable is returned when holiday data could not be obtained
	ErrSourceUnavailable = errors.New("holiday source unavailable")

	// ErrTooManyBusinessDays is returned when |n| exceeds MaxBusinessDays
	ErrTooManyBusinessDays = errors.New("business day count out of range")
)

// MaxBusinessDays bounds the step count accepted by AddBusinessDays
const MaxBusinessDays = 100_000

// StatusError reports a non-2xx response from a holiday endpoint
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.URL, e.StatusCode)
}

// HolidaySource supplies the holidays of one jurisdiction or feed
type HolidaySource interface {
	// HolidaysFor returns the holidays relevant to the given year.
	// Sources that are not partitioned by year may return more.
	HolidaysFor(year int) (HolidaySet, error)
}

// HolidaySet is a set of truncated dates
type HolidaySet map[time.Time]struct{}

// NewHolidaySet builds a set from arbitrary timestamps
func NewHolidaySet(dates ...time.Time) HolidaySet {
	set := make(HolidaySet, len(dates))
	for _, d := range dates {
		set.Add(d)
	}
	return set
}

// Add inserts the date of t
func (s HolidaySet) Add(t time.Time) {
	s[dateutil.TruncateToDate(t)] = struct{}{}
}

// Remove deletes the date of t. Absent dates are ignored.
func (s HolidaySet) Remove(t time.Time) {
	delete(s, dateutil.TruncateToDate(t))
}

// Contains reports whether the date of t is in the set
func (s HolidaySet) Contains(t time.Time) bool {
	_, ok := s[dateutil.TruncateToDate(t)]
	return ok
}

// Len returns the number of dates
func (s HolidaySet) Len() int {
	return len(s)
}

// Subtract returns s \ other as a new set
func (s HolidaySet) Subtract(other HolidaySet) HolidaySet {
	out := make(HolidaySet, len(s))
	for d := range s {
		if _, ok := other[d]; !ok {
			out[d] = struct{}{}
		}
	}
	return out
}

// InYear returns the dates of the given year in ascending order
func (s HolidaySet) InYear(year int) []time.Time {
	dates := make([]time.Time, 0)
	for d := range s {
		if d.Year() == year {
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// Direction selects the scan order used to snap a non-business date
type Direction int

const (
	// Forward scans towards later dates. It is the zero value.
	Forward Direction = iota
	// Backward scans towards earlier dates
	Backward
)

func (d Direction) step() int {
	if d == Backward {
		return -1
	}
	return 1
}

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// ParseDirection parses "forward"/"backward" (empty means forward)
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "forward", "fwd", "+":
		return Forward, nil
	case "backward", "back", "bwd", "-":
		return Backward, nil
	default:
		return Forward, fmt.Errorf("direction must be 'forward' or 'backward', got '%s'", s)
	}
}
