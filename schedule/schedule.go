// Package schedule computes next-fire times for async functions and drives
// them with a cron runner. Each frequency variant implements cron.Schedule
// with an explicit Next computation in UTC, so the same schedule spec always
// yields the same next-fire instant regardless of when or how often the
// configuration is reloaded.
package schedule

import (
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/fabriq-ai/engine/config"
	"github.com/fabriq-ai/engine/core"
)

// Daily fires at the given UTC hour every day.
type Daily struct {
	Hour int
}

// Next implements cron.Schedule.
func (s Daily) Next(t time.Time) time.Time {
	t = t.UTC()
	next := time.Date(t.Year(), t.Month(), t.Day(), s.Hour, 0, 0, 0, time.UTC)
	if !next.After(t) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Weekly fires at the given UTC hour on the given weekday.
type Weekly struct {
	Weekday time.Weekday
	Hour    int
}

// Next implements cron.Schedule.
func (s Weekly) Next(t time.Time) time.Time {
	t = t.UTC()
	next := time.Date(t.Year(), t.Month(), t.Day(), s.Hour, 0, 0, 0, time.UTC)
	next = next.AddDate(0, 0, (int(s.Weekday)-int(next.Weekday())+7)%7)
	if !next.After(t) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}

// Monthly fires at the given UTC hour on the given day of month. When a month
// is shorter than the configured day, it fires on that month's last day
// rather than skipping the month.
type Monthly struct {
	Day  int
	Hour int
}

// Next implements cron.Schedule.
func (s Monthly) Next(t time.Time) time.Time {
	t = t.UTC()
	next := s.occurrence(t.Year(), t.Month())
	if !next.After(t) {
		first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
		next = s.occurrence(first.Year(), first.Month())
	}
	return next
}

func (s Monthly) occurrence(year int, month time.Month) time.Time {
	day := s.Day
	if last := daysIn(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, s.Hour, 0, 0, 0, time.UTC)
}

// daysIn returns the number of days in a month; day zero of the following
// month normalizes to its last day.
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Build converts a validated schedule spec into its cron.Schedule variant.
func Build(spec config.Schedule) (cron.Schedule, error) {
	switch spec.Frequency {
	case config.FrequencyDaily:
		return Daily{Hour: spec.Hour}, nil
	case config.FrequencyWeekly:
		weekday, err := parseWeekday(spec.DayOfWeek)
		if err != nil {
			return nil, err
		}
		return Weekly{Weekday: weekday, Hour: spec.Hour}, nil
	case config.FrequencyMonthly:
		return Monthly{Day: spec.DayOfMonth, Hour: spec.Hour}, nil
	default:
		return nil, core.NewConfigError("unknown schedule frequency %q", spec.Frequency)
	}
}

var weekdayNames = map[string]time.Weekday{
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
	"sun": time.Sunday,
}

// parseWeekday accepts three-letter names ("mon".."sun") and digits 0-6
// where 0 is Monday.
func parseWeekday(s string) (time.Weekday, error) {
	if wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return wd, nil
	}
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil && n >= 0 && n <= 6 {
		return time.Weekday((n + 1) % 7), nil
	}
	return 0, core.NewConfigError("invalid day_of_week %q", s)
}
