package schedule

import (
	"strconv"
	"time"

	"github.com/eliteGoblin/focusd/opwindow/internal/domain"
)

// MonthCalendar returns the month as weeks of seven days, Sunday first.
// Days outside the month are zero.
func MonthCalendar(year int, month time.Month) [][7]int {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	daysIn := daysInMonth(year, month)

	var weeks [][7]int
	var week [7]int
	col := int(first.Weekday())
	for day := 1; day <= daysIn; day++ {
		week[col] = day
		col++
		if col == 7 {
			weeks = append(weeks, week)
			week = [7]int{}
			col = 0
		}
	}
	if col != 0 {
		weeks = append(weeks, week)
	}
	return weeks
}

// WeekPosition returns the 1-based occurrence of day's weekday within the month:
// the position of day in its weekday column once the padding cells are dropped.
func WeekPosition(year int, month time.Month, day int) (int, error) {
	if day < 1 || day > daysInMonth(year, month) {
		return 0, domain.NewRuleError("day", strconv.Itoa(day), domain.ErrInvalidDateFormat)
	}
	column := int(time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Weekday())

	position := 0
	for _, week := range MonthCalendar(year, month) {
		if week[column] == 0 {
			continue
		}
		position++
		if week[column] == day {
			return position, nil
		}
	}
	return 0, domain.NewRuleError("day", strconv.Itoa(day), domain.ErrInvalidDateFormat)
}

// OrdinalFor maps a week position to its ordinal. Positions beyond 5 are not
// clamped to Last; they fail with ErrWeekOrdinalOverflow.
func OrdinalFor(position int) (domain.WeekOrdinal, error) {
	if position < 1 || position > len(domain.AllWeekOrdinals) {
		return "", domain.NewRuleError("week_of_month", strconv.Itoa(position), domain.ErrWeekOrdinalOverflow)
	}
	return domain.AllWeekOrdinals[position-1], nil
}

// WeekOrdinalOf returns the ordinal of t's weekday within t's month.
func WeekOrdinalOf(t time.Time) (domain.WeekOrdinal, error) {
	pos, err := WeekPosition(t.Year(), t.Month(), t.Day())
	if err != nil {
		return "", err
	}
	return OrdinalFor(pos)
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
