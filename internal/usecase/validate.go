package usecase

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/eliteGoblin/focusd/opwindow/internal/domain"
	"github.com/eliteGoblin/focusd/opwindow/internal/schedule"
)

// Validate compares only the fields present in expected against actual and returns
// every mismatch. Operations, weekdays, week ordinals and day segments are compared
// as sets; order never matters.
func Validate(expected domain.WindowUpdate, actual domain.WindowRule) []domain.FieldMismatch {
	var out []domain.FieldMismatch
	add := func(field, want, got string) {
		out = append(out, domain.FieldMismatch{Field: field, Expected: want, Actual: got})
	}

	if expected.Name != nil && *expected.Name != actual.Name {
		add("name", *expected.Name, actual.Name)
	}
	if expected.StartDate != nil && *expected.StartDate != actual.StartDate {
		add("start_date", schedule.FormatDate(*expected.StartDate), schedule.FormatDate(actual.StartDate))
	}
	if expected.EndDate != nil && *expected.EndDate != actual.EndDate {
		add("end_date", schedule.FormatDate(*expected.EndDate), schedule.FormatDate(actual.EndDate))
	}
	if expected.Operations != nil {
		want, got := operationSet(expected.Operations), operationSet(actual.Operations)
		if want != got {
			add("operations", want, got)
		}
	}
	if expected.DaySegments != nil {
		want := domain.WindowRule{DaySegments: expected.DaySegments}
		wantDays, gotDays := weekdaySet(want.Weekdays()), weekdaySet(actual.Weekdays())
		if wantDays != gotDays {
			add("day_of_week", wantDays, gotDays)
		}
		wantSegs, gotSegs := segmentSet(expected.DaySegments), segmentSet(actual.DaySegments)
		if wantSegs != gotSegs {
			add("day_segments", wantSegs, gotSegs)
		}
	}
	if expected.WeekOfMonth != nil {
		want, got := ordinalSet(expected.WeekOfMonth), ordinalSet(actual.WeekOfMonth)
		if want != got {
			add("week_of_month", want, got)
		}
	}
	if expected.DoNotSubmitJob != nil && *expected.DoNotSubmitJob != actual.DoNotSubmitJob {
		add("do_not_submit_job", strconv.FormatBool(*expected.DoNotSubmitJob), strconv.FormatBool(actual.DoNotSubmitJob))
	}
	return out
}

func operationSet(ops []domain.OperationCategory) string {
	items := make([]string, len(ops))
	for i, op := range ops {
		items[i] = string(op)
	}
	return canonicalSet(items)
}

func ordinalSet(weeks []domain.WeekOrdinal) string {
	items := make([]string, len(weeks))
	for i, w := range weeks {
		items[i] = string(w)
	}
	return canonicalSet(items)
}

func weekdaySet(days []time.Weekday) string {
	return canonicalSet(domain.WeekdayNames(days))
}

func segmentSet(segments []domain.DaySegment) string {
	sorted := append([]domain.DaySegment(nil), segments...)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Weekday != b.Weekday {
			return a.Weekday < b.Weekday
		}
		if a.StartSeconds != b.StartSeconds {
			return a.StartSeconds < b.StartSeconds
		}
		return a.EndSeconds < b.EndSeconds
	})
	items := make([]string, len(sorted))
	for i, seg := range sorted {
		items[i] = fmt.Sprintf("%s %s-%s", seg.Weekday,
			schedule.FormatTimeOfDay(seg.StartSeconds), schedule.FormatTimeOfDay(seg.EndSeconds))
	}
	return "[" + strings.Join(items, ", ") + "]"
}

// canonicalSet de-duplicates and sorts so two sets render identically.
func canonicalSet(items []string) string {
	seen := make(map[string]bool, len(items))
	uniq := make([]string, 0, len(items))
	for _, it := range items {
		if !seen[it] {
			seen[it] = true
			uniq = append(uniq, it)
		}
	}
	sort.Strings(uniq)
	return "[" + strings.Join(uniq, ", ") + "]"
}
