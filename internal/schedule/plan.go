package schedule

import (
	"time"

	"github.com/eliteGoblin/focusd/opwindow/internal/domain"
)

// Plan is a generated window in caller form, ready to be submitted as a new rule.
type Plan struct {
	StartDate   string
	EndDate     string
	Days        []string
	StartTime   TimeOfDay
	EndTime     TimeOfDay
	WeekOfMonth []string
	Split       Split
}

// CurrentWeek plans a weekly window covering [now, now+d). The date range spans
// seven calendar dates starting at now's date, so each weekday falls in it exactly
// once and a midnight continuation always lands inside it.
func CurrentWeek(now time.Time, d time.Duration) (Plan, error) {
	split, err := SplitAtMidnight(now, d)
	if err != nil {
		return Plan{}, err
	}
	return Plan{
		StartDate: DateOf(split.Start),
		EndDate:   DateOf(split.Start.AddDate(0, 0, 6)),
		Days:      domain.WeekdayNames(split.Days),
		StartTime: split.StartTime,
		EndTime:   split.EndTime,
		Split:     split,
	}, nil
}

// CurrentMonth plans a monthly window covering [now, now+d), restricted to the
// week-of-month ordinals of the day(s) it touches. The date range ends on the last
// day of the month the window ends in.
func CurrentMonth(now time.Time, d time.Duration) (Plan, error) {
	split, err := SplitAtMidnight(now, d)
	if err != nil {
		return Plan{}, err
	}

	instants := []time.Time{split.Start}
	if split.CrossesMidnight {
		instants = append(instants, split.End)
	}
	var weeks []string
	seen := make(map[domain.WeekOrdinal]bool, 2)
	for _, t := range instants {
		ord, err := WeekOrdinalOf(t)
		if err != nil {
			return Plan{}, err
		}
		if !seen[ord] {
			seen[ord] = true
			weeks = append(weeks, ord.String())
		}
	}

	y, m, _ := split.End.Date()
	lastDay := time.Date(y, m+1, 0, 0, 0, 0, 0, split.End.Location())

	return Plan{
		StartDate:   DateOf(split.Start),
		EndDate:     DateOf(lastDay),
		Days:        domain.WeekdayNames(split.Days),
		StartTime:   split.StartTime,
		EndTime:     split.EndTime,
		WeekOfMonth: weeks,
		Split:       split,
	}, nil
}
