package usecase

import (
	"github.com/eliteGoblin/focusd/opwindow/internal/schedule"
)

// WindowSpec is a new window in caller form. Dates are "dd/mm/yyyy", times "HH:MM".
type WindowSpec struct {
	Name           string
	StartDate      string
	EndDate        string
	Operations     []string // e.g. "FULL_DATA_MANAGEMENT"
	DaysOfWeek     []string // e.g. "monday"
	StartTime      schedule.TimeOfDay
	EndTime        schedule.TimeOfDay
	WeekOfMonth    []string // monthly rules only
	DoNotSubmitJob bool

	// Validate re-reads the rule after creation and diffs it against the request.
	Validate bool
}

// WindowPatch is a partial edit. Nil pointers, nil slices and zero TimeOfDay values
// are omitted and keep the stored value.
type WindowPatch struct {
	Name           *string
	StartDate      *string
	EndDate        *string
	Operations     []string
	DaysOfWeek     []string
	StartTime      schedule.TimeOfDay
	EndTime        schedule.TimeOfDay
	WeekOfMonth    []string
	DoNotSubmitJob *bool

	Validate bool
}

func (p WindowPatch) touchesRecurrence() bool {
	return p.DaysOfWeek != nil || !p.StartTime.IsZero() || !p.EndTime.IsZero()
}

// PlanSpec turns a generated current-week or current-month plan into a spec.
func PlanSpec(name string, operations []string, plan schedule.Plan) WindowSpec {
	return WindowSpec{
		Name:        name,
		StartDate:   plan.StartDate,
		EndDate:     plan.EndDate,
		Operations:  operations,
		DaysOfWeek:  plan.Days,
		StartTime:   plan.StartTime,
		EndTime:     plan.EndTime,
		WeekOfMonth: plan.WeekOfMonth,
	}
}
