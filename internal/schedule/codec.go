// Package schedule converts human-entered dates and times to the store's
// epoch / seconds-of-day representation and builds the weekly and monthly
// recurrence of a window from them.
package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/eliteGoblin/focusd/opwindow/internal/domain"
)

const (
	dateLayout = "02/01/2006"
	timeLayout = "15:04"

	// SecondsPerDay bounds a segment's end.
	SecondsPerDay = 24 * 60 * 60

	// EndOfDay is "23:59", the end sentinel of the first half of a midnight split.
	EndOfDay = 23*3600 + 59*60

	// StartOfDay is "00:00", the start sentinel of the second half.
	StartOfDay = 0
)

// ParseDate parses "dd/mm/yyyy" to UTC midnight in epoch seconds.
func ParseDate(s string) (int64, error) {
	if len(s) != len(dateLayout) {
		return 0, domain.NewRuleError("date", s, domain.ErrInvalidDateFormat)
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return 0, domain.NewRuleError("date", s, domain.ErrInvalidDateFormat)
	}
	return t.Unix(), nil
}

// FormatDate renders epoch seconds as "dd/mm/yyyy" in UTC.
func FormatDate(epoch int64) string {
	return time.Unix(epoch, 0).UTC().Format(dateLayout)
}

// DateOf formats the calendar date of t in its own location. Unlike FormatDate it
// does not convert to UTC first, so a local late-evening instant keeps its date.
func DateOf(t time.Time) string {
	return t.Format(dateLayout)
}

// ParseTimeOfDay parses "HH:MM" to seconds since midnight. Times are entity-local
// wall clock; no timezone conversion happens here.
func ParseTimeOfDay(s string) (int, error) {
	if len(s) != len(timeLayout) || s[2] != ':' {
		return 0, domain.NewRuleError("time", s, domain.ErrInvalidTimeFormat)
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return 0, domain.NewRuleError("time", s, domain.ErrInvalidTimeFormat)
	}
	return t.Hour()*3600 + t.Minute()*60, nil
}

// FormatTimeOfDay renders seconds since midnight as "HH:MM". Seconds are truncated.
func FormatTimeOfDay(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/3600, seconds%3600/60)
}

// ParseTimesOfDay parses a per-day list, reporting field and the index of the
// first bad entry.
func ParseTimesOfDay(field string, values []string) ([]int, error) {
	out := make([]int, len(values))
	for i, v := range values {
		sec, err := ParseTimeOfDay(v)
		if err != nil {
			return nil, domain.NewRuleError(field, v, domain.ErrInvalidTimeFormat).At(i)
		}
		out[i] = sec
	}
	return out, nil
}

// SecondsOfDay returns the wall-clock offset of t from its local midnight at
// minute precision.
func SecondsOfDay(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60
}

// TimeOfDay is a window's start or end time: either one "HH:MM" applied to every
// weekday, or a list parallel to the weekday list.
type TimeOfDay struct {
	values []string
	list   bool
}

// At is the single form.
func At(s string) TimeOfDay {
	return TimeOfDay{values: []string{s}}
}

// PerDay is the list form; values[i] applies to the i-th weekday.
func PerDay(values ...string) TimeOfDay {
	return TimeOfDay{values: append([]string(nil), values...), list: true}
}

// ParseTimeOfDayArg reads the command-line form: "09:00" is single,
// "09:00,10:00" is a list and "" is no time at all.
func ParseTimeOfDayArg(s string) TimeOfDay {
	if strings.TrimSpace(s) == "" {
		return TimeOfDay{}
	}
	if strings.Contains(s, ",") {
		parts := strings.Split(s, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return PerDay(parts...)
	}
	return At(strings.TrimSpace(s))
}

// IsZero reports whether no time was supplied.
func (t TimeOfDay) IsZero() bool { return len(t.values) == 0 && !t.list }

// IsList reports whether t is the per-day form.
func (t TimeOfDay) IsList() bool { return t.list }

// Values returns the raw strings.
func (t TimeOfDay) Values() []string { return append([]string(nil), t.values...) }

func (t TimeOfDay) String() string {
	if t.list {
		return "[" + strings.Join(t.values, ",") + "]"
	}
	if len(t.values) == 0 {
		return ""
	}
	return t.values[0]
}
