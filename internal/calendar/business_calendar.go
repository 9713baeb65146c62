package calendar

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/username/business-calendar/pkg/dateutil"
)

// BusinessCalendar answers holiday and business-day questions for one
// jurisdiction or remote feed. It is safe for concurrent use.
type BusinessCalendar struct {
	source           HolidaySource
	fetches          *FetchCache // nil for table calendars
	decisions        *DecisionCache
	businessWeekends bool
	logger           *zap.Logger
}

// ForJurisdiction builds a calendar from a compiled-in holiday table
func ForJurisdiction(code string, opts ...Option) (*BusinessCalendar, error) {
	j, err := LookupJurisdiction(code)
	if err != nil {
		return nil, err
	}

	o := buildOptions(opts)
	logger := o.logger.With(zap.String("jurisdiction", j.Code))

	source, err := withOverrides(NewTableSource(j, logger), o.overridesFile, logger)
	if err != nil {
		return nil, err
	}

	return &BusinessCalendar{
		source:           source,
		decisions:        NewDecisionCache(o.decisionCapacity, logger),
		businessWeekends: o.businessWeekends,
		logger:           logger,
	}, nil
}

// ForEndpoints builds a calendar from two JSON holiday endpoints.
// Nothing is fetched until the first query.
func ForEndpoints(additionsURL, removalsURL string, opts ...Option) (*BusinessCalendar, error) {
	if additionsURL == "" || removalsURL == "" {
		return nil, errors.New("both additions and removals URLs are required")
	}

	o := buildOptions(opts)
	logger := o.logger.With(zap.String("additions_url", additionsURL))
	remote := NewRemoteSource(additionsURL, removalsURL, o.httpClient, logger)
	remote.SetRetry(o.fetchAttempts, o.retryBackoff)
	fetches := NewFetchCache(
		remote,
		o.ttl,
		o.now,
		logger,
	)

	source, err := withOverrides(fetches, o.overridesFile, logger)
	if err != nil {
		return nil, err
	}

	return &BusinessCalendar{
		source:           source,
		fetches:          fetches,
		decisions:        NewDecisionCache(o.decisionCapacity, logger),
		businessWeekends: o.businessWeekends,
		logger:           logger,
	}, nil
}

func withOverrides(source HolidaySource, path string, logger *zap.Logger) (HolidaySource, error) {
	if path == "" {
		return source, nil
	}

	overrides := NewFileOverrides(path, logger)
	if err := overrides.Load(); err != nil {
		return nil, err
	}
	return NewCompositeSource(source, overrides, logger), nil
}

// IsHoliday reports whether the date of t is a holiday
func (c *BusinessCalendar) IsHoliday(t time.Time) (bool, error) {
	return c.isHoliday(dateutil.TruncateToDate(t))
}

// IsBusinessDay reports whether the date of t is a business day
func (c *BusinessCalendar) IsBusinessDay(t time.Time) (bool, error) {
	return c.isBusinessDay(dateutil.TruncateToDate(t))
}

// HolidaysIn lists the holidays of year in ascending order
func (c *BusinessCalendar) HolidaysIn(year int) ([]time.Time, error) {
	set, err := c.source.HolidaysFor(year)
	if err != nil {
		return nil, err
	}
	return set.InYear(year), nil
}

func (c *BusinessCalendar) isHoliday(date time.Time) (bool, error) {
	set, err := c.source.HolidaysFor(date.Year())
	if err != nil {
		return false, fmt.Errorf("holiday lookup for %s: %w", dateutil.FormatDate(date), err)
	}
	return set.Contains(date), nil
}

func (c *BusinessCalendar) isBusinessDay(date time.Time) (bool, error) {
	// answers derived from an expired remote set must not outlive it
	if c.fetches != nil && !c.fetches.Fresh() && c.decisions.Len() > 0 {
		c.logger.Debug("Remote holidays expired, dropping memoized decisions")
		c.decisions.Clear()
	}

	if isBusinessDay, ok := c.decisions.Get(date); ok {
		return isBusinessDay, nil
	}

	isBusinessDay := c.businessWeekends || !dateutil.IsWeekend(date)
	if isBusinessDay {
		holiday, err := c.isHoliday(date)
		if err != nil {
			return false, err
		}
		isBusinessDay = !holiday
	}

	c.decisions.Put(date, isBusinessDay)
	return isBusinessDay, nil
}
