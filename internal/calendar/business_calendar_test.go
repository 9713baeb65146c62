package calendar

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/username/business-calendar/pkg/dateutil"
)

type calendarFactory func(t *testing.T, opts ...Option) *BusinessCalendar

func calendarFactories() map[string]calendarFactory {
	jurisdiction := func(code string) calendarFactory {
		return func(t *testing.T, opts ...Option) *BusinessCalendar {
			cal, err := ForJurisdiction(code, opts...)
			require.NoError(t, err)
			return cal
		}
	}

	return map[string]calendarFactory{
		"US": jurisdiction("US"),
		"GB": jurisdiction("GB"),
		"endpoint": func(t *testing.T, opts ...Option) *BusinessCalendar {
			stub := newStubEndpoints(t, defaultAdditions, defaultRemovals)
			cal, err := ForEndpoints(stub.AdditionsURL(), stub.RemovalsURL(), opts...)
			require.NoError(t, err)
			return cal
		},
	}
}

type dateCase struct {
	name string
	op   func(c *BusinessCalendar) (time.Time, error)
	want string
}

func nearest(from string, dir Direction) func(c *BusinessCalendar) (time.Time, error) {
	return func(c *BusinessCalendar) (time.Time, error) { return c.NearestBusinessDay(day(from), dir) }
}

func add(from string, n int, dir Direction) func(c *BusinessCalendar) (time.Time, error) {
	return func(c *BusinessCalendar) (time.Time, error) { return c.AddBusinessDays(day(from), n, dir) }
}

func following(from string) func(c *BusinessCalendar) (time.Time, error) {
	return func(c *BusinessCalendar) (time.Time, error) { return c.FollowingBusinessDay(day(from)) }
}

func preceding(from string) func(c *BusinessCalendar) (time.Time, error) {
	return func(c *BusinessCalendar) (time.Time, error) { return c.PrecedingBusinessDay(day(from)) }
}

func addOne(from string) func(c *BusinessCalendar) (time.Time, error) {
	return func(c *BusinessCalendar) (time.Time, error) { return c.AddBusinessDay(day(from)) }
}

func subtractOne(from string) func(c *BusinessCalendar) (time.Time, error) {
	return func(c *BusinessCalendar) (time.Time, error) { return c.SubtractBusinessDay(day(from)) }
}

// 2014-03-07 is a Friday, 03-08/03-09 the weekend, 03-10 a Monday
var standardCases = []dateCase{
	{"nearest to monday is monday forward", nearest("2014-03-10", Forward), "2014-03-10"},
	{"nearest to monday is monday backward", nearest("2014-03-10", Backward), "2014-03-10"},
	{"nearest to saturday forward is monday", nearest("2014-03-08", Forward), "2014-03-10"},
	{"nearest to saturday backward is friday", nearest("2014-03-08", Backward), "2014-03-07"},
	{"monday plus one is tuesday", addOne("2014-03-10"), "2014-03-11"},
	{"friday plus one is monday", addOne("2014-03-07"), "2014-03-10"},
	{"saturday plus one is tuesday", addOne("2014-03-08"), "2014-03-11"},
	{"following saturday is monday", following("2014-03-08"), "2014-03-10"},
	{"saturday plus zero is monday", add("2014-03-08", 0, Forward), "2014-03-10"},
	{"saturday plus zero backward is friday", add("2014-03-08", 0, Backward), "2014-03-07"},
	{"following monday is tuesday", following("2014-03-10"), "2014-03-11"},
	{"preceding monday is friday", preceding("2014-03-10"), "2014-03-07"},
	{"monday less three is wednesday", add("2014-03-10", -3, Forward), "2014-03-05"},
	{"saturday less one is friday", subtractOne("2014-03-08"), "2014-03-07"},
}

var businessWeekendCases = []dateCase{
	{"nearest to saturday is saturday", nearest("2014-03-08", Forward), "2014-03-08"},
	{"nearest to saturday backward is saturday", nearest("2014-03-08", Backward), "2014-03-08"},
	{"friday plus one is saturday", addOne("2014-03-07"), "2014-03-08"},
	{"saturday plus one is sunday", addOne("2014-03-08"), "2014-03-09"},
	{"sunday plus one is monday", addOne("2014-03-09"), "2014-03-10"},
	{"following saturday is sunday", following("2014-03-08"), "2014-03-09"},
	{"saturday plus zero is saturday", add("2014-03-08", 0, Forward), "2014-03-08"},
	{"saturday plus zero backward is saturday", add("2014-03-08", 0, Backward), "2014-03-08"},
	{"preceding monday is sunday", preceding("2014-03-10"), "2014-03-09"},
	{"monday less three is friday", add("2014-03-10", -3, Forward), "2014-03-07"},
}

func runDateCases(t *testing.T, cal *BusinessCalendar, cases []dateCase) {
	t.Helper()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.op(cal)
			require.NoError(t, err)
			assert.Equal(t, tc.want, dateutil.FormatDate(got))
		})
	}
}

func TestBusinessCalendar_StandardBusinessTime(t *testing.T) {
	for name, build := range calendarFactories() {
		t.Run(name, func(t *testing.T) {
			cal := build(t)

			weekend, err := cal.IsBusinessDay(day("2014-03-09"))
			require.NoError(t, err)
			assert.False(t, weekend, "a weekend is not a business day")

			monday, err := cal.IsBusinessDay(day("2014-03-10"))
			require.NoError(t, err)
			assert.True(t, monday, "a normal weekday is a business day")

			runDateCases(t, cal, standardCases)

			results, err := cal.AddBusinessDaysEach([]time.Time{day("2014-03-10"), day("2014-03-11")}, 1, Forward)
			require.NoError(t, err)
			assert.Equal(t, []time.Time{day("2014-03-11"), day("2014-03-12")}, results)
		})
	}
}

func TestBusinessCalendar_WeekendsAsBusinessDays(t *testing.T) {
	for name, build := range calendarFactories() {
		t.Run(name, func(t *testing.T) {
			cal := build(t, WithBusinessWeekends(true))

			weekend, err := cal.IsBusinessDay(day("2014-03-09"))
			require.NoError(t, err)
			assert.True(t, weekend)

			monday, err := cal.IsBusinessDay(day("2014-03-10"))
			require.NoError(t, err)
			assert.True(t, monday)

			runDateCases(t, cal, businessWeekendCases)
		})
	}
}

func TestBusinessCalendar_US(t *testing.T) {
	cal, err := ForJurisdiction("US", WithLogger(zap.NewNop()))
	require.NoError(t, err)

	ok, err := cal.IsBusinessDay(day("2014-07-04"))
	require.NoError(t, err)
	assert.False(t, ok, "Independence Day is not a business day")

	holiday, err := cal.IsHoliday(time.Date(2014, 7, 4, 16, 45, 0, 0, time.Local))
	require.NoError(t, err)
	assert.True(t, holiday, "a time is converted to a date")

	next, err := cal.AddBusinessDay(day("2014-07-03"))
	require.NoError(t, err)
	assert.Equal(t, day("2014-07-07"), next)
}

func TestBusinessCalendar_GB(t *testing.T) {
	cal, err := ForJurisdiction("gb")
	require.NoError(t, err)

	ok, err := cal.IsBusinessDay(day("2014-07-04"))
	require.NoError(t, err)
	assert.True(t, ok, "American Independence Day is a business day")

	ok, err = cal.IsBusinessDay(day("2015-12-28"))
	require.NoError(t, err)
	assert.True(t, ok, "Boxing Day is not observed on the next weekday")
}

func TestBusinessCalendar_UnknownCountry(t *testing.T) {
	cal, err := ForJurisdiction("GBXX")
	require.Error(t, err)
	assert.Nil(t, cal)
	assert.True(t, errors.Is(err, ErrCountryNotSupported))
}

func TestForEndpoints_RequiresBothURLs(t *testing.T) {
	_, err := ForEndpoints("http://fakeendpoint.test/additions", "")
	assert.Error(t, err)
}

func TestBusinessCalendar_BusinessDayFormula(t *testing.T) {
	for _, weekends := range []bool{false, true} {
		t.Run(fmt.Sprintf("business_weekends=%v", weekends), func(t *testing.T) {
			cal, err := ForJurisdiction("US", WithBusinessWeekends(weekends))
			require.NoError(t, err)

			for d := day("2014-01-01"); d.Year() == 2014; d = d.AddDate(0, 0, 1) {
				holiday, err := cal.IsHoliday(d)
				require.NoError(t, err)
				business, err := cal.IsBusinessDay(d)
				require.NoError(t, err)

				want := !holiday && (weekends || !dateutil.IsWeekend(d))
				require.Equal(t, want, business, dateutil.FormatDate(d))

				if business {
					fwd, err := cal.NearestBusinessDay(d, Forward)
					require.NoError(t, err)
					bwd, err := cal.NearestBusinessDay(d, Backward)
					require.NoError(t, err)
					require.Equal(t, d, fwd)
					require.Equal(t, d, bwd)
				}
			}
		})
	}
}

func TestBusinessCalendar_RoundTripIsNotSymmetricFromWeekend(t *testing.T) {
	cal, err := ForJurisdiction("US")
	require.NoError(t, err)

	there, err := cal.AddBusinessDays(day("2014-03-08"), 2, Forward)
	require.NoError(t, err)
	assert.Equal(t, day("2014-03-12"), there)

	back, err := cal.AddBusinessDays(there, -2, Forward)
	require.NoError(t, err)
	assert.Equal(t, day("2014-03-10"), back)
}

func TestBusinessCalendar_Endpoint(t *testing.T) {
	stub := newStubEndpoints(t, defaultAdditions, defaultRemovals)
	cal, err := ForEndpoints(stub.AdditionsURL(), stub.RemovalsURL(), WithLogger(zap.NewNop()))
	require.NoError(t, err)

	ok, err := cal.IsBusinessDay(day("2014-07-03"))
	require.NoError(t, err)
	assert.True(t, ok)
	_, err = cal.IsBusinessDay(day("2014-07-03"))
	require.NoError(t, err)

	ok, err = cal.IsBusinessDay(day("2014-07-04"))
	require.NoError(t, err)
	assert.False(t, ok)

	holiday, err := cal.IsHoliday(day("2014-07-06"))
	require.NoError(t, err)
	assert.False(t, holiday)
	_, err = cal.IsHoliday(day("2014-07-06"))
	require.NoError(t, err)

	holiday, err = cal.IsHoliday(day("2014-12-24"))
	require.NoError(t, err)
	assert.False(t, holiday, "removals are subtracted")

	holiday, err = cal.IsHoliday(time.Date(2014, 7, 4, 8, 0, 0, 0, time.Local))
	require.NoError(t, err)
	assert.True(t, holiday, "a time is converted to a date")

	assert.Equal(t, int32(1), stub.additionsHits.Load())
	assert.Equal(t, int32(1), stub.removalsHits.Load())
}

func TestBusinessCalendar_EndpointHolidayOnWeekend(t *testing.T) {
	stub := newStubEndpoints(t, defaultAdditions, defaultRemovals)
	cal, err := ForEndpoints(stub.AdditionsURL(), stub.RemovalsURL(), WithBusinessWeekends(true))
	require.NoError(t, err)

	// 2014-07-05 is a Saturday listed as a holiday
	ok, err := cal.IsBusinessDay(day("2014-07-05"))
	require.NoError(t, err)
	assert.False(t, ok)

	next, err := cal.FollowingBusinessDay(day("2014-07-03"))
	require.NoError(t, err)
	assert.Equal(t, day("2014-07-06"), next)
}

func TestBusinessCalendar_EndpointTTL(t *testing.T) {
	type step struct {
		advance time.Duration
		hits    int32
	}

	tests := []struct {
		name  string
		opts  []Option
		steps []step
	}{
		{
			name: "default ttl expires after a day",
			steps: []step{
				{0, 1},
				{time.Hour, 1},
				{23*time.Hour + time.Second, 2},
				{time.Minute, 2},
			},
		},
		{
			name: "five minute ttl",
			opts: []Option{WithTTL(300 * time.Second)},
			steps: []step{
				{0, 1},
				{120 * time.Second, 1},
				{181 * time.Second, 2},
				{0, 2},
			},
		},
		{
			name: "disabled ttl never refetches",
			opts: []Option{WithTTL(TTLDisabled)},
			steps: []step{
				{0, 1},
				{301 * time.Second, 1},
				{24*time.Hour + time.Second, 1},
			},
		},
	}

	queried := []string{"2014-01-01", "2014-07-04", "2014-11-28"}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock()
			stub := newStubEndpoints(t, defaultAdditions, defaultRemovals)
			opts := append([]Option{WithClock(clock.Now)}, tt.opts...)
			cal, err := ForEndpoints(stub.AdditionsURL(), stub.RemovalsURL(), opts...)
			require.NoError(t, err)

			for i, s := range tt.steps {
				clock.Advance(s.advance)
				for _, q := range queried {
					_, err := cal.IsBusinessDay(day(q))
					require.NoError(t, err)
				}
				assert.Equal(t, s.hits, stub.additionsHits.Load(), "step %d", i)
				assert.Equal(t, s.hits, stub.removalsHits.Load(), "step %d", i)
			}
		})
	}
}

func TestBusinessCalendar_EndpointZeroTTLRefetchesEveryHolidayLookup(t *testing.T) {
	clock := newFakeClock()
	stub := newStubEndpoints(t, defaultAdditions, defaultRemovals)
	cal, err := ForEndpoints(stub.AdditionsURL(), stub.RemovalsURL(), WithTTL(0), WithClock(clock.Now))
	require.NoError(t, err)

	_, err = cal.IsHoliday(day("2014-01-01"))
	require.NoError(t, err)
	assert.Equal(t, int32(1), stub.additionsHits.Load())

	clock.Advance(301 * time.Second)
	for _, q := range []string{"2014-01-01", "2014-07-04", "2014-07-04", "2014-11-28"} {
		_, err = cal.IsHoliday(day(q))
		require.NoError(t, err)
	}
	assert.Equal(t, int32(5), stub.additionsHits.Load())

	for _, q := range []string{"2014-01-01", "2014-01-01", "2014-07-04", "2014-11-28"} {
		_, err = cal.IsHoliday(day(q))
		require.NoError(t, err)
	}
	assert.Equal(t, int32(9), stub.additionsHits.Load())
}

func TestBusinessCalendar_DecisionFlushKeepsFetchedHolidays(t *testing.T) {
	stub := newStubEndpoints(t, defaultAdditions, defaultRemovals)
	cal, err := ForEndpoints(stub.AdditionsURL(), stub.RemovalsURL(), WithClock(newFakeClock().Now))
	require.NoError(t, err)

	_, err = cal.IsBusinessDay(day("2014-07-04"))
	require.NoError(t, err)
	assert.Equal(t, int32(1), stub.additionsHits.Load())

	distinct := 1
	for year := 2014; year <= 2017; year++ {
		for month := time.January; month <= time.December; month++ {
			for d := 1; d <= 28; d++ {
				date := time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
				if date.Equal(day("2014-07-04")) {
					continue
				}
				_, err := cal.IsBusinessDay(date)
				require.NoError(t, err)
				distinct++
			}
		}
	}

	require.Equal(t, 4*12*28, distinct)
	assert.Equal(t, (distinct-1)%defaultDecisionCapacity+1, cal.decisions.Len())
	assert.Equal(t, int32(1), stub.additionsHits.Load(), "cached fetch survives the flush")
}

func TestBusinessCalendar_EndpointFailure(t *testing.T) {
	stub := newStubEndpoints(t, defaultAdditions, defaultRemovals)
	stub.additionsCode.Store(http.StatusInternalServerError)
	cal, err := ForEndpoints(stub.AdditionsURL(), stub.RemovalsURL())
	require.NoError(t, err)

	_, err = cal.IsBusinessDay(day("2014-07-04"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSourceUnavailable))

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)

	_, err = cal.AddBusinessDays(day("2014-07-03"), 3, Forward)
	assert.True(t, errors.Is(err, ErrSourceUnavailable), "arithmetic propagates source errors")

	_, err = cal.AddBusinessDaysEach([]time.Time{day("2014-07-03")}, 1, Backward)
	assert.True(t, errors.Is(err, ErrSourceUnavailable))
}

func TestBusinessCalendar_ExpiredRemoteDropsDecisions(t *testing.T) {
	clock := newFakeClock()
	stub := newStubEndpoints(t, defaultAdditions, defaultRemovals)
	cal, err := ForEndpoints(stub.AdditionsURL(), stub.RemovalsURL(), WithTTL(time.Minute), WithClock(clock.Now))
	require.NoError(t, err)

	_, err = cal.IsBusinessDay(day("2014-07-04"))
	require.NoError(t, err)
	assert.Equal(t, 1, cal.decisions.Len())

	clock.Advance(2 * time.Minute)
	stub.additionsCode.Store(http.StatusBadGateway)

	_, err = cal.IsBusinessDay(day("2014-07-04"))
	require.Error(t, err, "stale decisions are not served")
	assert.Equal(t, 0, cal.decisions.Len())
}

func TestBusinessCalendar_ConcurrentQueries(t *testing.T) {
	stub := newStubEndpoints(t, defaultAdditions, defaultRemovals)
	cal, err := ForEndpoints(stub.AdditionsURL(), stub.RemovalsURL(),
		WithTTL(TTLDisabled), WithDecisionCacheCapacity(16))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for w := 0; w < 16; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			start := day("2014-06-01").AddDate(0, 0, w)
			for i := 0; i < 30; i++ {
				_, err := cal.AddBusinessDays(start.AddDate(0, 0, i), 2, Direction(i%2))
				assert.NoError(t, err)
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, int32(1), stub.additionsHits.Load())
	assert.LessOrEqual(t, cal.decisions.Len(), 16)
}

func TestBusinessCalendar_HolidaysIn(t *testing.T) {
	cal, err := ForJurisdiction("US")
	require.NoError(t, err)

	holidays, err := cal.HolidaysIn(2014)
	require.NoError(t, err)
	require.NotEmpty(t, holidays)
	assert.Contains(t, holidays, day("2014-07-04"))
	assert.Contains(t, holidays, day("2014-12-25"))
	for i := 1; i < len(holidays); i++ {
		assert.True(t, holidays[i-1].Before(holidays[i]))
	}

	stub := newStubEndpoints(t, []string{"2014-07-04", "2015-07-03"}, nil)
	remote, err := ForEndpoints(stub.AdditionsURL(), stub.RemovalsURL())
	require.NoError(t, err)

	holidays, err = remote.HolidaysIn(2015)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{day("2015-07-03")}, holidays)
}

func TestBusinessCalendar_AddBusinessDaysBounds(t *testing.T) {
	cal, err := ForJurisdiction("US")
	require.NoError(t, err)

	for _, n := range []int{MaxBusinessDays + 1, -MaxBusinessDays - 1, 1_000_000_000} {
		_, err := cal.AddBusinessDays(day("2014-03-10"), n, Forward)
		assert.True(t, errors.Is(err, ErrTooManyBusinessDays), "n=%d", n)
	}

	_, err = cal.AddBusinessDaysEach([]time.Time{day("2014-03-10")}, -MaxBusinessDays-1, Backward)
	assert.True(t, errors.Is(err, ErrTooManyBusinessDays))

	got, err := cal.AddBusinessDays(day("2014-03-10"), 250, Forward)
	require.NoError(t, err)
	assert.Equal(t, 2015, got.Year())
}
