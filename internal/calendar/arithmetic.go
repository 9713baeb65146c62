package calendar

import (
	"fmt"
	"time"

	"github.com/username/business-calendar/pkg/dateutil"
)

// NearestBusinessDay returns t's date if it is a business day, otherwise
// the first business day found scanning in dir.
func (c *BusinessCalendar) NearestBusinessDay(t time.Time, dir Direction) (time.Time, error) {
	return c.nearest(dateutil.TruncateToDate(t), dir)
}

// FollowingBusinessDay returns the first business day strictly after t
func (c *BusinessCalendar) FollowingBusinessDay(t time.Time) (time.Time, error) {
	return c.scan(dateutil.TruncateToDate(t), 1)
}

// PrecedingBusinessDay returns the last business day strictly before t
func (c *BusinessCalendar) PrecedingBusinessDay(t time.Time) (time.Time, error) {
	return c.scan(dateutil.TruncateToDate(t), -1)
}

// AddBusinessDays snaps t to a business day in dir, then steps n business
// days (backwards when n is negative), with |n| at most MaxBusinessDays.
// Because of the snap, AddBusinessDays(AddBusinessDays(t, n, dir), -n, dir)
// is not always t.
func (c *BusinessCalendar) AddBusinessDays(t time.Time, n int, dir Direction) (time.Time, error) {
	return c.addBusinessDays(dateutil.TruncateToDate(t), n, dir)
}

// AddBusinessDaysEach applies AddBusinessDays to every date, preserving order
func (c *BusinessCalendar) AddBusinessDaysEach(ts []time.Time, n int, dir Direction) ([]time.Time, error) {
	results := make([]time.Time, 0, len(ts))
	for _, t := range ts {
		result, err := c.addBusinessDays(dateutil.TruncateToDate(t), n, dir)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

// AddBusinessDay is AddBusinessDays(t, 1, Forward)
func (c *BusinessCalendar) AddBusinessDay(t time.Time) (time.Time, error) {
	return c.AddBusinessDays(t, 1, Forward)
}

// SubtractBusinessDay is AddBusinessDays(t, -1, Forward)
func (c *BusinessCalendar) SubtractBusinessDay(t time.Time) (time.Time, error) {
	return c.AddBusinessDays(t, -1, Forward)
}

func (c *BusinessCalendar) nearest(date time.Time, dir Direction) (time.Time, error) {
	ok, err := c.isBusinessDay(date)
	if err != nil {
		return time.Time{}, err
	}
	if ok {
		return date, nil
	}
	return c.scan(date, dir.step())
}

// scan walks one calendar day at a time from date+step until a business day
func (c *BusinessCalendar) scan(date time.Time, step int) (time.Time, error) {
	for {
		date = dateutil.AddDays(date, step)
		ok, err := c.isBusinessDay(date)
		if err != nil {
			return time.Time{}, err
		}
		if ok {
			return date, nil
		}
	}
}

func (c *BusinessCalendar) addBusinessDays(date time.Time, n int, dir Direction) (time.Time, error) {
	if n > MaxBusinessDays || n < -MaxBusinessDays {
		return time.Time{}, fmt.Errorf("%w: %d (max %d)", ErrTooManyBusinessDays, n, MaxBusinessDays)
	}

	date, err := c.nearest(date, dir)
	if err != nil {
		return time.Time{}, err
	}

	step := 1
	if n < 0 {
		step, n = -1, -n
	}
	for i := 0; i < n; i++ {
		if date, err = c.scan(date, step); err != nil {
			return time.Time{}, err
		}
	}
	return date, nil
}
