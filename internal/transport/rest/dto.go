package rest

import (
	"github.com/eliteGoblin/focusd/opwindow/internal/domain"
)

// SegmentDTO is the wire form of a day segment. Weekday is an English day name.
type SegmentDTO struct {
	Weekday      string `json:"weekday"`
	StartSeconds int    `json:"start_seconds"`
	EndSeconds   int    `json:"end_seconds"`
}

// WindowDTO is the wire form of a window rule. Dates are UTC epoch seconds.
type WindowDTO struct {
	RuleID         int64        `json:"rule_id,omitempty"`
	Name           string       `json:"name"`
	ScopeKind      string       `json:"scope_kind,omitempty"`
	ScopeRef       string       `json:"scope_ref,omitempty"`
	StartDate      int64        `json:"start_date"`
	EndDate        int64        `json:"end_date"`
	Operations     []string     `json:"operations"`
	DaySegments    []SegmentDTO `json:"day_segments"`
	WeekOfMonth    []string     `json:"week_of_month,omitempty"`
	DoNotSubmitJob bool         `json:"do_not_submit_job"`
	Enabled        bool         `json:"enabled"`
}

// UpdateDTO is the PATCH body. Absent fields keep their stored value; an empty
// week_of_month list clears it.
type UpdateDTO struct {
	Name           *string       `json:"name,omitempty"`
	StartDate      *int64        `json:"start_date,omitempty"`
	EndDate        *int64        `json:"end_date,omitempty"`
	Operations     *[]string     `json:"operations,omitempty"`
	DaySegments    *[]SegmentDTO `json:"day_segments,omitempty"`
	WeekOfMonth    *[]string     `json:"week_of_month,omitempty"`
	DoNotSubmitJob *bool         `json:"do_not_submit_job,omitempty"`
}

// ListResponse wraps GET collection results.
type ListResponse struct {
	Windows []WindowDTO `json:"windows"`
	Count   int         `json:"count"`
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func fromRule(rule domain.WindowRule) WindowDTO {
	dto := WindowDTO{
		RuleID:         rule.RuleID,
		Name:           rule.Name,
		ScopeKind:      string(rule.Scope.Kind),
		ScopeRef:       rule.Scope.Ref,
		StartDate:      rule.StartDate,
		EndDate:        rule.EndDate,
		Operations:     make([]string, len(rule.Operations)),
		DaySegments:    fromSegments(rule.DaySegments),
		DoNotSubmitJob: rule.DoNotSubmitJob,
		Enabled:        rule.Enabled,
	}
	for i, op := range rule.Operations {
		dto.Operations[i] = string(op)
	}
	for _, w := range rule.WeekOfMonth {
		dto.WeekOfMonth = append(dto.WeekOfMonth, string(w))
	}
	return dto
}

func fromSegments(segments []domain.DaySegment) []SegmentDTO {
	out := make([]SegmentDTO, len(segments))
	for i, seg := range segments {
		out[i] = SegmentDTO{Weekday: seg.Weekday.String(), StartSeconds: seg.StartSeconds, EndSeconds: seg.EndSeconds}
	}
	return out
}

// toRule converts and checks every enum on the way in.
func (dto WindowDTO) toRule() (domain.WindowRule, error) {
	rule := domain.WindowRule{
		RuleID:         dto.RuleID,
		Name:           dto.Name,
		Scope:          domain.EntityScope{Kind: domain.ScopeKind(dto.ScopeKind), Ref: dto.ScopeRef},
		StartDate:      dto.StartDate,
		EndDate:        dto.EndDate,
		DoNotSubmitJob: dto.DoNotSubmitJob,
		Enabled:        dto.Enabled,
	}
	if dto.ScopeKind != "" {
		kind, err := domain.ParseScopeKind(dto.ScopeKind)
		if err != nil {
			return rule, err
		}
		rule.Scope.Kind = kind
	}

	var err error
	if rule.Operations, err = domain.ParseOperations(dto.Operations); err != nil {
		return rule, err
	}
	if rule.DaySegments, err = toSegments(dto.DaySegments); err != nil {
		return rule, err
	}
	if len(dto.WeekOfMonth) > 0 {
		if rule.WeekOfMonth, err = domain.ParseWeekOrdinals(dto.WeekOfMonth); err != nil {
			return rule, err
		}
	}
	return rule, nil
}

func toSegments(in []SegmentDTO) ([]domain.DaySegment, error) {
	out := make([]domain.DaySegment, len(in))
	for i, seg := range in {
		day, err := domain.ParseWeekday(seg.Weekday)
		if err != nil {
			return nil, domain.NewRuleError("day_segments", seg.Weekday, domain.ErrUnknownEnumValue).At(i)
		}
		out[i] = domain.DaySegment{Weekday: day, StartSeconds: seg.StartSeconds, EndSeconds: seg.EndSeconds}
	}
	if err := domain.ValidateSegments(out); err != nil {
		return nil, err
	}
	return out, nil
}

func fromUpdate(u domain.WindowUpdate) UpdateDTO {
	dto := UpdateDTO{
		Name:           u.Name,
		StartDate:      u.StartDate,
		EndDate:        u.EndDate,
		DoNotSubmitJob: u.DoNotSubmitJob,
	}
	if u.Operations != nil {
		ops := make([]string, len(u.Operations))
		for i, op := range u.Operations {
			ops[i] = string(op)
		}
		dto.Operations = &ops
	}
	if u.DaySegments != nil {
		segs := fromSegments(u.DaySegments)
		dto.DaySegments = &segs
	}
	if u.WeekOfMonth != nil {
		weeks := make([]string, len(u.WeekOfMonth))
		for i, w := range u.WeekOfMonth {
			weeks[i] = string(w)
		}
		dto.WeekOfMonth = &weeks
	}
	return dto
}

func (dto UpdateDTO) toUpdate() (domain.WindowUpdate, error) {
	u := domain.WindowUpdate{
		Name:           dto.Name,
		StartDate:      dto.StartDate,
		EndDate:        dto.EndDate,
		DoNotSubmitJob: dto.DoNotSubmitJob,
	}
	var err error
	if dto.Operations != nil {
		if u.Operations, err = domain.ParseOperations(*dto.Operations); err != nil {
			return u, err
		}
	}
	if dto.DaySegments != nil {
		if u.DaySegments, err = toSegments(*dto.DaySegments); err != nil {
			return u, err
		}
	}
	if dto.WeekOfMonth != nil {
		if u.WeekOfMonth, err = domain.ParseWeekOrdinals(*dto.WeekOfMonth); err != nil {
			return u, err
		}
	}
	return u, nil
}
