package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/username/business-calendar/internal/calendar"
	"github.com/username/business-calendar/internal/server"
	"github.com/username/business-calendar/pkg/dateutil"
)

const shutdownTimeout = 10 * time.Second

// parseDates parses positional dates, defaulting to today
func parseDates(args []string) ([]time.Time, error) {
	if len(args) == 0 {
		return []time.Time{dateutil.Today()}, nil
	}

	dates := make([]time.Time, 0, len(args))
	for _, arg := range args {
		date, err := dateutil.ParseDate(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid date: %w", err)
		}
		dates = append(dates, date)
	}
	return dates, nil
}

type predicate func(time.Time) (bool, error)

func predicateCmd(use, short string, pick func(*calendar.BusinessCalendar) predicate) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [DATE...]",
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			dates, err := parseDates(args)
			if err != nil {
				return err
			}
			cal, err := loadCalendar()
			if err != nil {
				return err
			}

			check := pick(cal)
			out := cmd.OutOrStdout()
			for _, date := range dates {
				ok, err := check(date)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s\t%t\n", dateutil.FormatDate(date), ok)
			}
			return nil
		},
	}
}

func isHolidayCmd() *cobra.Command {
	return predicateCmd("is-holiday", "Check whether dates are holidays",
		func(c *calendar.BusinessCalendar) predicate { return c.IsHoliday })
}

func isBusinessDayCmd() *cobra.Command {
	return predicateCmd("is-business-day", "Check whether dates are business days",
		func(c *calendar.BusinessCalendar) predicate { return c.IsBusinessDay })
}

type shift func(*calendar.BusinessCalendar, time.Time) (time.Time, error)

func shiftCmd(use, short string, withDirection bool, op func(dir calendar.Direction) shift) *cobra.Command {
	var direction string

	cmd := &cobra.Command{
		Use:   use + " [DATE...]",
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := calendar.ParseDirection(direction)
			if err != nil {
				return err
			}
			dates, err := parseDates(args)
			if err != nil {
				return err
			}
			cal, err := loadCalendar()
			if err != nil {
				return err
			}

			apply := op(dir)
			for _, date := range dates {
				result, err := apply(cal, date)
				if err != nil {
					return err
				}
				printShift(cmd.OutOrStdout(), date, result)
			}
			return nil
		},
	}

	if withDirection {
		cmd.Flags().StringVarP(&direction, "direction", "d", "forward", "Scan direction for non-business dates: forward or backward")
	}

	return cmd
}

func nearestCmd() *cobra.Command {
	return shiftCmd("nearest", "Snap dates to the nearest business day", true,
		func(dir calendar.Direction) shift {
			return func(c *calendar.BusinessCalendar, t time.Time) (time.Time, error) {
				return c.NearestBusinessDay(t, dir)
			}
		})
}

func followingCmd() *cobra.Command {
	return shiftCmd("following", "Print the first business day after each date", false,
		func(calendar.Direction) shift {
			return (*calendar.BusinessCalendar).FollowingBusinessDay
		})
}

func precedingCmd() *cobra.Command {
	return shiftCmd("preceding", "Print the last business day before each date", false,
		func(calendar.Direction) shift {
			return (*calendar.BusinessCalendar).PrecedingBusinessDay
		})
}

func addCmd() *cobra.Command {
	var n int
	var direction string

	cmd := &cobra.Command{
		Use:   "add [DATE...]",
		Short: "Shift dates by N business days",
		Long: "Snap each date to a business day in --direction, then step --n business days " +
			"(backwards when negative).",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := calendar.ParseDirection(direction)
			if err != nil {
				return err
			}
			dates, err := parseDates(args)
			if err != nil {
				return err
			}
			cal, err := loadCalendar()
			if err != nil {
				return err
			}

			results, err := cal.AddBusinessDaysEach(dates, n, dir)
			if err != nil {
				return err
			}

			logger.Debug("Shifted dates",
				zap.Int("dates", len(dates)),
				zap.Int("n", n),
				zap.Stringer("direction", dir))

			for i := range dates {
				printShift(cmd.OutOrStdout(), dates[i], results[i])
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&n, "n", "n", 1, "Number of business days (negative to go back)")
	cmd.Flags().StringVarP(&direction, "direction", "d", "forward", "Snap direction for non-business dates: forward or backward")

	return cmd
}

func holidaysCmd() *cobra.Command {
	var year int

	cmd := &cobra.Command{
		Use:   "holidays",
		Short: "List the holidays of a year",
		RunE: func(cmd *cobra.Command, args []string) error {
			if year == 0 {
				year = dateutil.Today().Year()
			}
			cal, err := loadCalendar()
			if err != nil {
				return err
			}

			holidays, err := cal.HolidaysIn(year)
			if err != nil {
				return err
			}
			for _, h := range holidays {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", dateutil.FormatDate(h), h.Weekday())
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&year, "year", "y", 0, "Year to list (default: current year)")

	return cmd
}

func jurisdictionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "jurisdictions",
		Short: "List supported jurisdiction codes",
		Run: func(cmd *cobra.Command, args []string) {
			for _, code := range calendar.Jurisdictions() {
				j, _ := calendar.LookupJurisdiction(code)
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", code, j.Name)
			}
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the calendar over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cal, err := loadCalendar()
			if err != nil {
				return err
			}

			srv := server.New(cal, logger)
			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start(cfg.Server.Listen)
			}()

			// Setup signal handling
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigChan)

			select {
			case err := <-errCh:
				return err
			case sig := <-sigChan:
				logger.Info("Received signal, shutting down",
					zap.String("signal", sig.String()))
			}

			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	}
}

func printShift(out io.Writer, from, to time.Time) {
	fmt.Fprintln(out, strings.Join([]string{dateutil.FormatDate(from), dateutil.FormatDate(to)}, "\t"))
}
