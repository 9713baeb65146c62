// Package server exposes a business calendar over HTTP as JSON.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/username/business-calendar/internal/calendar"
	"github.com/username/business-calendar/pkg/dateutil"
)

// Calendar is the query surface served over HTTP
type Calendar interface {
	IsHoliday(t time.Time) (bool, error)
	IsBusinessDay(t time.Time) (bool, error)
	HolidaysIn(year int) ([]time.Time, error)
	NearestBusinessDay(t time.Time, dir calendar.Direction) (time.Time, error)
	FollowingBusinessDay(t time.Time) (time.Time, error)
	PrecedingBusinessDay(t time.Time) (time.Time, error)
	AddBusinessDaysEach(ts []time.Time, n int, dir calendar.Direction) ([]time.Time, error)
}

// DayResponse answers a predicate query
type DayResponse struct {
	Date          string `json:"date"`
	Holiday       *bool  `json:"holiday,omitempty"`
	IsBusinessDay *bool  `json:"business_day,omitempty"`
}

// ShiftResponse answers an arithmetic query
type ShiftResponse struct {
	Date      string `json:"date"`
	Result    string `json:"result"`
	Direction string `json:"direction,omitempty"`
	N         *int   `json:"n,omitempty"`
}

// HolidaysResponse lists a year's holidays
type HolidaysResponse struct {
	Year     int      `json:"year"`
	Holidays []string `json:"holidays"`
}

// Server serves a Calendar
type Server struct {
	echo     *echo.Echo
	calendar Calendar
	logger   *zap.Logger
}

// New creates a Server with its routes registered
func New(cal Calendar, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:     e,
		calendar: cal,
		logger:   logger,
	}

	v1 := e.Group("/api/v1")
	v1.GET("/holidays", s.listHolidays)
	v1.GET("/holidays/:date", s.isHoliday)
	v1.GET("/business-days/:date", s.isBusinessDay)
	v1.GET("/business-days/:date/nearest", s.nearest)
	v1.GET("/business-days/:date/following", s.following)
	v1.GET("/business-days/:date/preceding", s.preceding)
	v1.GET("/business-days/:date/add", s.add)

	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until Shutdown
func (s *Server) Start(addr string) error {
	s.logger.Info("Calendar service listening", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// GET /api/v1/holidays/:date
func (s *Server) isHoliday(c echo.Context) error {
	date, err := parseDateParam(c)
	if err != nil {
		return badRequest(c, err)
	}

	holiday, err := s.calendar.IsHoliday(date)
	if err != nil {
		return s.sourceError(c, err)
	}
	return c.JSON(http.StatusOK, DayResponse{Date: dateutil.FormatDate(date), Holiday: &holiday})
}

// GET /api/v1/business-days/:date
func (s *Server) isBusinessDay(c echo.Context) error {
	date, err := parseDateParam(c)
	if err != nil {
		return badRequest(c, err)
	}

	ok, err := s.calendar.IsBusinessDay(date)
	if err != nil {
		return s.sourceError(c, err)
	}
	return c.JSON(http.StatusOK, DayResponse{Date: dateutil.FormatDate(date), IsBusinessDay: &ok})
}

// GET /api/v1/holidays?year=2014
func (s *Server) listHolidays(c echo.Context) error {
	year := dateutil.Today().Year()
	if raw := c.QueryParam("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil {
			return badRequest(c, errors.New("year must be an integer"))
		}
		year = y
	}

	holidays, err := s.calendar.HolidaysIn(year)
	if err != nil {
		return s.sourceError(c, err)
	}

	resp := HolidaysResponse{Year: year, Holidays: make([]string, 0, len(holidays))}
	for _, h := range holidays {
		resp.Holidays = append(resp.Holidays, dateutil.FormatDate(h))
	}
	return c.JSON(http.StatusOK, resp)
}

// GET /api/v1/business-days/:date/nearest?direction=backward
func (s *Server) nearest(c echo.Context) error {
	date, err := parseDateParam(c)
	if err != nil {
		return badRequest(c, err)
	}
	dir, err := calendar.ParseDirection(c.QueryParam("direction"))
	if err != nil {
		return badRequest(c, err)
	}

	result, err := s.calendar.NearestBusinessDay(date, dir)
	if err != nil {
		return s.sourceError(c, err)
	}
	return c.JSON(http.StatusOK, ShiftResponse{
		Date:      dateutil.FormatDate(date),
		Result:    dateutil.FormatDate(result),
		Direction: dir.String(),
	})
}

// GET /api/v1/business-days/:date/following
func (s *Server) following(c echo.Context) error {
	return s.step(c, s.calendar.FollowingBusinessDay)
}

// GET /api/v1/business-days/:date/preceding
func (s *Server) preceding(c echo.Context) error {
	return s.step(c, s.calendar.PrecedingBusinessDay)
}

func (s *Server) step(c echo.Context, op func(time.Time) (time.Time, error)) error {
	date, err := parseDateParam(c)
	if err != nil {
		return badRequest(c, err)
	}

	result, err := op(date)
	if err != nil {
		return s.sourceError(c, err)
	}
	return c.JSON(http.StatusOK, ShiftResponse{
		Date:   dateutil.FormatDate(date),
		Result: dateutil.FormatDate(result),
	})
}

// GET /api/v1/business-days/:date/add?n=-3&direction=forward
func (s *Server) add(c echo.Context) error {
	date, err := parseDateParam(c)
	if err != nil {
		return badRequest(c, err)
	}
	n := 1
	if raw := c.QueryParam("n"); raw != "" {
		if n, err = strconv.Atoi(raw); err != nil {
			return badRequest(c, errors.New("n must be an integer"))
		}
	}
	if n > calendar.MaxBusinessDays || n < -calendar.MaxBusinessDays {
		return badRequest(c, fmt.Errorf("n must be within ±%d", calendar.MaxBusinessDays))
	}
	dir, err := calendar.ParseDirection(c.QueryParam("direction"))
	if err != nil {
		return badRequest(c, err)
	}

	results, err := s.calendar.AddBusinessDaysEach([]time.Time{date}, n, dir)
	if err != nil {
		return s.sourceError(c, err)
	}
	return c.JSON(http.StatusOK, ShiftResponse{
		Date:      dateutil.FormatDate(date),
		Result:    dateutil.FormatDate(results[0]),
		Direction: dir.String(),
		N:         &n,
	})
}

func parseDateParam(c echo.Context) (time.Time, error) {
	return dateutil.ParseDate(c.Param("date"))
}

func badRequest(c echo.Context, err error) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
}

func (s *Server) sourceError(c echo.Context, err error) error {
	s.logger.Warn("Calendar query failed",
		zap.String("path", c.Request().URL.Path),
		zap.Error(err))

	if errors.Is(err, calendar.ErrSourceUnavailable) {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
}
