// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import (
	"fmt"
	"sort"
	"strconv"
	"time"
)

const secondsPerDay = 24 * 60 * 60

// EntityScope identifies the infrastructure entity a window rule is attached to.
// Ref is an opaque handle; the scope does not own the entity's lifecycle.
type EntityScope struct {
	Kind ScopeKind
	Ref  string
}

func (s EntityScope) String() string {
	return string(s.Kind) + "/" + s.Ref
}

// DaySegment is one weekday plus the active [StartSeconds, EndSeconds) range on that day.
type DaySegment struct {
	Weekday      time.Weekday
	StartSeconds int
	EndSeconds   int
}

// SortSegments orders segments by ascending weekday, keeping input order within a day.
func SortSegments(segments []DaySegment) {
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].Weekday < segments[j].Weekday
	})
}

// ValidateSegments checks every segment names a real weekday and satisfies
// 0 <= start < end <= 86400.
func ValidateSegments(segments []DaySegment) error {
	for i, seg := range segments {
		if seg.Weekday < time.Sunday || seg.Weekday > time.Saturday {
			return NewRuleError("day_segments", strconv.Itoa(int(seg.Weekday)), ErrUnknownEnumValue).At(i)
		}
		if seg.StartSeconds < 0 || seg.EndSeconds > secondsPerDay || seg.StartSeconds >= seg.EndSeconds {
			return NewRuleError("day_segments",
				fmt.Sprintf("%d-%d", seg.StartSeconds, seg.EndSeconds), ErrInvalidTimeRange).At(i)
		}
	}
	return nil
}

// WindowRule is a blackout window as persisted by the window store.
type WindowRule struct {
	RuleID         int64 // 0 until the store assigns one
	Name           string
	Scope          EntityScope
	StartDate      int64 // UTC epoch seconds, date precision
	EndDate        int64
	Operations     []OperationCategory
	DaySegments    []DaySegment
	WeekOfMonth    []WeekOrdinal // monthly rules only
	DoNotSubmitJob bool
	Enabled        bool // store-owned
}

// Weekdays returns the distinct weekdays covered by the rule in ascending order.
func (r WindowRule) Weekdays() []time.Weekday {
	seen := make(map[time.Weekday]bool, len(r.DaySegments))
	days := make([]time.Weekday, 0, len(r.DaySegments))
	for _, seg := range r.DaySegments {
		if seen[seg.Weekday] {
			continue
		}
		seen[seg.Weekday] = true
		days = append(days, seg.Weekday)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	return days
}

// WindowUpdate carries a partial rule. Nil fields are omitted and keep the stored value.
type WindowUpdate struct {
	Name           *string
	StartDate      *int64
	EndDate        *int64
	Operations     []OperationCategory
	DaySegments    []DaySegment
	WeekOfMonth    []WeekOrdinal
	DoNotSubmitJob *bool
}

// IsEmpty reports whether no field is set.
func (u WindowUpdate) IsEmpty() bool {
	return u.Name == nil && u.StartDate == nil && u.EndDate == nil &&
		u.Operations == nil && u.DaySegments == nil && u.WeekOfMonth == nil &&
		u.DoNotSubmitJob == nil
}

// Apply returns a copy of rule with the update's fields written over it.
func (u WindowUpdate) Apply(rule WindowRule) WindowRule {
	if u.Name != nil {
		rule.Name = *u.Name
	}
	if u.StartDate != nil {
		rule.StartDate = *u.StartDate
	}
	if u.EndDate != nil {
		rule.EndDate = *u.EndDate
	}
	if u.Operations != nil {
		rule.Operations = append([]OperationCategory(nil), u.Operations...)
	}
	if u.DaySegments != nil {
		rule.DaySegments = append([]DaySegment(nil), u.DaySegments...)
	}
	if u.WeekOfMonth != nil {
		rule.WeekOfMonth = append([]WeekOrdinal(nil), u.WeekOfMonth...)
	}
	if u.DoNotSubmitJob != nil {
		rule.DoNotSubmitJob = *u.DoNotSubmitJob
	}
	return rule
}

// UpdateFromRule builds an update that sets every caller-owned field of rule.
func UpdateFromRule(rule WindowRule) WindowUpdate {
	name := rule.Name
	start, end := rule.StartDate, rule.EndDate
	dns := rule.DoNotSubmitJob
	ops := rule.Operations
	if ops == nil {
		ops = []OperationCategory{}
	}
	segs := rule.DaySegments
	if segs == nil {
		segs = []DaySegment{}
	}
	weeks := rule.WeekOfMonth
	if weeks == nil {
		weeks = []WeekOrdinal{}
	}
	return WindowUpdate{
		Name:           &name,
		StartDate:      &start,
		EndDate:        &end,
		Operations:     ops,
		DaySegments:    segs,
		WeekOfMonth:    weeks,
		DoNotSubmitJob: &dns,
	}
}

// Identifier selects a rule by store id or by name. When both are set the id is
// tried first and the name is the fallback.
type Identifier struct {
	RuleID int64
	Name   string
}

// ByID selects a rule by its store-assigned id.
func ByID(id int64) Identifier { return Identifier{RuleID: id} }

// ByName selects a rule by name within its scope.
func ByName(name string) Identifier { return Identifier{Name: name} }

// IsZero reports whether neither field is set.
func (id Identifier) IsZero() bool {
	return id.RuleID == 0 && id.Name == ""
}

func (id Identifier) String() string {
	if id.RuleID != 0 {
		return "id:" + strconv.FormatInt(id.RuleID, 10)
	}
	return "name:" + id.Name
}

// FieldMismatch records one field whose stored value differs from the expected value.
type FieldMismatch struct {
	Field    string
	Expected string
	Actual   string
}
