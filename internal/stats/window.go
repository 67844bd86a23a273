package stats

import (
	"strings"
	"time"

	"mutolaa/internal/model"
)

type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodAll   Period = "all"
)

// Uzbek names used by the bot commands
var periodAliases = map[string]Period{
	"week":   PeriodWeek,
	"hafta":  PeriodWeek,
	"month":  PeriodMonth,
	"oy":     PeriodMonth,
	"all":    PeriodAll,
	"umumiy": PeriodAll,
}

// ParsePeriod resolves a leaderboard period; empty means week
func ParsePeriod(value string) (Period, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return PeriodWeek, nil
	}
	if period, ok := periodAliases[value]; ok {
		return period, nil
	}
	return "", model.NewValidationError("period", "unknown period %q, use week, month or all", value)
}

// ParseReportPeriod is ParsePeriod without the all-time period
func ParseReportPeriod(value string) (Period, error) {
	period, err := ParsePeriod(value)
	if err != nil {
		return "", err
	}
	if period == PeriodAll {
		return "", model.NewValidationError("period", "reports cover a week or a month")
	}
	return period, nil
}

// Window is an inclusive range of calendar dates
type Window struct {
	From model.Date `json:"from"`
	To   model.Date `json:"to"`
}

func (w Window) Contains(d model.Date) bool {
	return !d.Before(w.From) && !d.After(w.To)
}

// WeekWindow returns the Saturday to Friday week containing today
func WeekWindow(today model.Date) Window {
	// Monday = 0 ... Sunday = 6, Saturday = 5
	weekday := (int(today.Weekday()) + 6) % 7
	delta := (weekday - 5 + 7) % 7
	start := today.AddDays(-delta)
	return Window{From: start, To: start.AddDays(6)}
}

// MonthWindow returns the first and last day of today's month
func MonthWindow(today model.Date) Window {
	start := model.Date{Year: today.Year, Month: today.Month, Day: 1}
	next := model.DateOf(start.In(time.UTC).AddDate(0, 0, 32))
	end := model.Date{Year: next.Year, Month: next.Month, Day: 1}.AddDays(-1)
	return Window{From: start, To: end}
}

// WindowOf returns the window of period and whether it is bounded at all
func WindowOf(period Period, today model.Date) (Window, bool) {
	switch period {
	case PeriodWeek:
		return WeekWindow(today), true
	case PeriodMonth:
		return MonthWindow(today), true
	}
	return Window{}, false
}
