package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/eliteGoblin/focusd/opwindow/internal/domain"
	"github.com/eliteGoblin/focusd/opwindow/internal/policy"
	"github.com/eliteGoblin/focusd/opwindow/internal/schedule"
)

// ruleView is a window in the same caller form the add command accepts.
type ruleView struct {
	RuleID         int64    `json:"rule_id" yaml:"rule_id"`
	Name           string   `json:"name" yaml:"name"`
	Scope          string   `json:"scope" yaml:"scope"`
	StartDate      string   `json:"start_date" yaml:"start_date"`
	EndDate        string   `json:"end_date" yaml:"end_date"`
	Operations     []string `json:"operations" yaml:"operations"`
	Days           []string `json:"days" yaml:"days"`
	StartTime      any      `json:"start_time" yaml:"start_time"`
	EndTime        any      `json:"end_time" yaml:"end_time"`
	WeekOfMonth    []string `json:"week_of_month,omitempty" yaml:"week_of_month,omitempty"`
	DoNotSubmitJob bool     `json:"do_not_submit_job" yaml:"do_not_submit_job"`
	Enabled        bool     `json:"enabled" yaml:"enabled"`
}

type capabilityView struct {
	Kind       string   `json:"kind" yaml:"kind"`
	Operations []string `json:"operations" yaml:"operations"`
}

func viewOf(rule domain.WindowRule) ruleView {
	days, start, end := schedule.DecomposeSegments(rule.DaySegments)
	v := ruleView{
		RuleID:         rule.RuleID,
		Name:           rule.Name,
		Scope:          rule.Scope.String(),
		StartDate:      schedule.FormatDate(rule.StartDate),
		EndDate:        schedule.FormatDate(rule.EndDate),
		Operations:     make([]string, len(rule.Operations)),
		Days:           domain.WeekdayNames(days),
		StartTime:      timeValue(start),
		EndTime:        timeValue(end),
		DoNotSubmitJob: rule.DoNotSubmitJob,
		Enabled:        rule.Enabled,
	}
	for i, op := range rule.Operations {
		v.Operations[i] = string(op)
	}
	for _, w := range rule.WeekOfMonth {
		v.WeekOfMonth = append(v.WeekOfMonth, string(w))
	}
	return v
}

// timeValue renders the single form as a string and the list form as a list.
func timeValue(t schedule.TimeOfDay) any {
	if t.IsList() {
		return t.Values()
	}
	return t.String()
}

func renderRule(w io.Writer, format string, rule domain.WindowRule) error {
	switch format {
	case "yaml", "json":
		return encode(w, format, viewOf(rule))
	default:
		return writeRuleText(w, viewOf(rule))
	}
}

func renderRules(w io.Writer, format string, rules []domain.WindowRule) error {
	views := make([]ruleView, len(rules))
	for i, r := range rules {
		views[i] = viewOf(r)
	}

	switch format {
	case "yaml", "json":
		return encode(w, format, views)
	}

	if len(views) == 0 {
		_, err := fmt.Fprintln(w, "no windows")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDATES\tDAYS\tTIMES\tOPERATIONS")
	for _, v := range views {
		fmt.Fprintf(tw, "%d\t%s\t%s..%s\t%s\t%v-%v\t%s\n",
			v.RuleID, v.Name, v.StartDate, v.EndDate,
			strings.Join(v.Days, ","), v.StartTime, v.EndTime,
			strings.Join(v.Operations, ","))
	}
	return tw.Flush()
}

func writeRuleText(w io.Writer, v ruleView) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%d\n", v.RuleID)
	fmt.Fprintf(tw, "Name:\t%s\n", v.Name)
	fmt.Fprintf(tw, "Scope:\t%s\n", v.Scope)
	fmt.Fprintf(tw, "Dates:\t%s - %s\n", v.StartDate, v.EndDate)
	fmt.Fprintf(tw, "Days:\t%s\n", strings.Join(v.Days, ", "))
	fmt.Fprintf(tw, "Start time:\t%v\n", v.StartTime)
	fmt.Fprintf(tw, "End time:\t%v\n", v.EndTime)
	if len(v.WeekOfMonth) > 0 {
		fmt.Fprintf(tw, "Week of month:\t%s\n", strings.Join(v.WeekOfMonth, ", "))
	}
	fmt.Fprintf(tw, "Operations:\t%s\n", strings.Join(v.Operations, ", "))
	fmt.Fprintf(tw, "Do not submit job:\t%t\n", v.DoNotSubmitJob)
	fmt.Fprintf(tw, "Enabled:\t%t\n", v.Enabled)
	return tw.Flush()
}

func renderCapabilities(w io.Writer, format string, matrix *policy.Matrix, kinds []domain.ScopeKind) error {
	views := make([]capabilityView, 0, len(kinds))
	for _, kind := range kinds {
		ops := matrix.Allowed(kind)
		v := capabilityView{Kind: string(kind), Operations: make([]string, len(ops))}
		for i, op := range ops {
			v.Operations[i] = string(op)
		}
		views = append(views, v)
	}

	switch format {
	case "yaml", "json":
		return encode(w, format, views)
	}

	fmt.Fprintln(w, "\n=== Restrictable Operations ===")
	for _, v := range views {
		fmt.Fprintf(w, "\n[%s] %d operations\n", v.Kind, len(v.Operations))
		for _, op := range v.Operations {
			fmt.Fprintf(w, "  - %s\n", op)
		}
	}
	_, err := fmt.Fprintln(w, "\n===============================")
	return err
}

func encode(w io.Writer, format string, v any) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
