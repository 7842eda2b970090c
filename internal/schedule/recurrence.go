package schedule

import (
	"strings"
	"time"

	"github.com/eliteGoblin/focusd/opwindow/internal/domain"
)

// BuildSegments turns a weekday list and start/end times into day segments sorted
// by ascending weekday. The single form applies one range to every distinct weekday;
// the list form pairs days[i] with start[i] and end[i].
func BuildSegments(days []time.Weekday, start, end TimeOfDay) ([]domain.DaySegment, error) {
	if len(days) == 0 {
		return nil, domain.NewRuleError("day_of_week", "", domain.ErrMissingField)
	}
	if start.IsZero() {
		return nil, domain.NewRuleError("start_time", "", domain.ErrMissingField)
	}
	if end.IsZero() {
		return nil, domain.NewRuleError("end_time", "", domain.ErrMissingField)
	}
	if start.IsList() != end.IsList() {
		return nil, domain.NewRuleError("end_time", end.String(),
			domain.ErrTypeMismatch, domain.ErrMismatchedTimeRangeLists)
	}

	if !start.IsList() {
		return singleRange(days, start.values[0], end.values[0])
	}
	return listRanges(days, start.values, end.values)
}

func singleRange(days []time.Weekday, start, end string) ([]domain.DaySegment, error) {
	s, err := ParseTimeOfDay(start)
	if err != nil {
		return nil, domain.NewRuleError("start_time", start, domain.ErrInvalidTimeFormat)
	}
	e, err := ParseTimeOfDay(end)
	if err != nil {
		return nil, domain.NewRuleError("end_time", end, domain.ErrInvalidTimeFormat)
	}
	if s >= e {
		return nil, domain.NewRuleError("time_range", start+"-"+end, domain.ErrInvalidTimeRange)
	}

	seen := make(map[time.Weekday]bool, len(days))
	segments := make([]domain.DaySegment, 0, len(days))
	for _, d := range days {
		if seen[d] {
			continue
		}
		seen[d] = true
		segments = append(segments, domain.DaySegment{Weekday: d, StartSeconds: s, EndSeconds: e})
	}
	domain.SortSegments(segments)
	return segments, nil
}

func listRanges(days []time.Weekday, starts, ends []string) ([]domain.DaySegment, error) {
	if len(starts) != len(ends) {
		return nil, domain.NewRuleError("end_time", strings.Join(ends, ","),
			domain.ErrMismatchedTimeRangeLists).At(min(len(starts), len(ends)))
	}
	if len(days) != len(starts) {
		return nil, domain.NewRuleError("day_of_week", strings.Join(domain.WeekdayNames(days), ","),
			domain.ErrMismatchedTimeRangeLists).At(min(len(days), len(starts)))
	}

	startSecs, err := ParseTimesOfDay("start_time", starts)
	if err != nil {
		return nil, err
	}
	endSecs, err := ParseTimesOfDay("end_time", ends)
	if err != nil {
		return nil, err
	}

	segments := make([]domain.DaySegment, 0, len(days))
	for i := range startSecs {
		if startSecs[i] >= endSecs[i] {
			return nil, domain.NewRuleError("time_range", starts[i]+"-"+ends[i],
				domain.ErrInvalidTimeRange, domain.ErrMismatchedTimeRangeLists).At(i)
		}
		segments = append(segments, domain.DaySegment{Weekday: days[i], StartSeconds: startSecs[i], EndSeconds: endSecs[i]})
	}
	domain.SortSegments(segments)
	return segments, nil
}

// DecomposeSegments recovers caller-form fields from stored segments. When every
// weekday shares one range the single form is returned; otherwise the list form.
func DecomposeSegments(segments []domain.DaySegment) ([]time.Weekday, TimeOfDay, TimeOfDay) {
	if len(segments) == 0 {
		return nil, TimeOfDay{}, TimeOfDay{}
	}
	sorted := append([]domain.DaySegment(nil), segments...)
	domain.SortSegments(sorted)

	uniform := true
	seen := make(map[time.Weekday]bool, len(sorted))
	for _, seg := range sorted {
		if seen[seg.Weekday] ||
			seg.StartSeconds != sorted[0].StartSeconds || seg.EndSeconds != sorted[0].EndSeconds {
			uniform = false
			break
		}
		seen[seg.Weekday] = true
	}

	days := make([]time.Weekday, len(sorted))
	for i, seg := range sorted {
		days[i] = seg.Weekday
	}
	if uniform {
		return days, At(FormatTimeOfDay(sorted[0].StartSeconds)), At(FormatTimeOfDay(sorted[0].EndSeconds))
	}

	starts := make([]string, len(sorted))
	ends := make([]string, len(sorted))
	for i, seg := range sorted {
		starts[i] = FormatTimeOfDay(seg.StartSeconds)
		ends[i] = FormatTimeOfDay(seg.EndSeconds)
	}
	return days, PerDay(starts...), PerDay(ends...)
}

// Split is the recurrence derived from one instant range [Start, End).
type Split struct {
	Start, End      time.Time
	Days            []time.Weekday
	StartTime       TimeOfDay
	EndTime         TimeOfDay
	Segments        []domain.DaySegment
	CrossesMidnight bool
}

// SplitAtMidnight derives the day segments for [now, now+d) at minute precision.
// A range that ends on the next calendar date becomes two segments: now until
// "23:59" on now's weekday, and "00:00" until the end on the following weekday.
func SplitAtMidnight(now time.Time, d time.Duration) (Split, error) {
	if d <= 0 {
		return Split{}, domain.NewRuleError("duration", d.String(), domain.ErrInvalidTimeRange)
	}
	start := now.Truncate(time.Minute)
	end := start.Add(d).Truncate(time.Minute)

	split := Split{Start: start, End: end}
	startDate := dateOnly(start)
	endDate := dateOnly(end)
	nextDate := startDate.AddDate(0, 0, 1)
	switch {
	case endDate.Equal(startDate):
		split.Days = []time.Weekday{start.Weekday()}
		split.StartTime = At(FormatTimeOfDay(SecondsOfDay(start)))
		split.EndTime = At(FormatTimeOfDay(SecondsOfDay(end)))
	case endDate.Equal(nextDate) && SecondsOfDay(end) == StartOfDay:
		// Ending exactly at midnight keeps the window on one day.
		split.Days = []time.Weekday{start.Weekday()}
		split.StartTime = At(FormatTimeOfDay(SecondsOfDay(start)))
		split.EndTime = At(FormatTimeOfDay(EndOfDay))
	case endDate.Equal(nextDate):
		split.CrossesMidnight = true
		split.Days = []time.Weekday{start.Weekday(), end.Weekday()}
		split.StartTime = PerDay(FormatTimeOfDay(SecondsOfDay(start)), FormatTimeOfDay(StartOfDay))
		split.EndTime = PerDay(FormatTimeOfDay(EndOfDay), FormatTimeOfDay(SecondsOfDay(end)))
	default:
		return Split{}, domain.NewRuleError("duration", d.String(), domain.ErrInvalidTimeRange)
	}

	segments, err := BuildSegments(split.Days, split.StartTime, split.EndTime)
	if err != nil {
		return Split{}, err
	}
	split.Segments = segments
	return split, nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
