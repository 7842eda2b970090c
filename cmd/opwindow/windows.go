package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/eliteGoblin/focusd/opwindow/internal/domain"
	"github.com/eliteGoblin/focusd/opwindow/internal/policy"
	"github.com/eliteGoblin/focusd/opwindow/internal/schedule"
	"github.com/eliteGoblin/focusd/opwindow/internal/usecase"
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a blackout window",
	Long: `Creates a blackout window on the selected entity.

Dates are dd/mm/yyyy and times HH:MM. --start-time and --end-time take either one
time for every day or a comma-separated list parallel to --days.

--current-week and --current-month generate the window from now for the given
duration instead, splitting it at midnight when it crosses into the next day.`,
	Example: `  opwindow add --scope-kind client --scope-ref c1 --name nightly \
    --start-date 01/01/2024 --end-date 31/12/2024 --operations FULL_DATA_MANAGEMENT \
    --days monday,friday --start-time 22:00 --end-time 23:59

  opwindow add --scope-kind client --scope-ref c1 --name hotfix \
    --operations DATA_RECOVERY --current-week 2h`,
	RunE: runAdd,
}

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Change fields of an existing window",
	Long: `Edits the window selected by --id or --name. Only flags given on the command
line are changed; every other field keeps its stored value. Pass
--week-of-month="" to drop a monthly restriction.`,
	RunE: runEdit,
}

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a window",
	Long:  `Deletes the window selected by --id or --name. Deleting a window that does not exist succeeds.`,
	RunE:  runDelete,
}

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "Show one window",
	RunE:  runGet,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List windows on the entity",
	RunE:  runList,
}

var capabilitiesCmd = &cobra.Command{
	Use:   "capabilities",
	Short: "Show which operations each entity kind may restrict",
	Long: `Prints the operation categories a blackout window may name for each entity kind.
With --scope-kind only that kind is shown.`,
	RunE: runCapabilities,
}

// windowFlags holds the flags shared by add and edit.
type windowFlags struct {
	name           string
	startDate      string
	endDate        string
	operations     []string
	days           []string
	startTime      string
	endTime        string
	weekOfMonth    []string
	doNotSubmitJob bool
	validate       bool
}

var (
	addFlags  windowFlags
	editFlags windowFlags

	currentWeek  time.Duration
	currentMonth time.Duration

	selectID   int64
	selectName string
	newName    string
)

func (f *windowFlags) register(fs *pflag.FlagSet, nameUsage string) {
	fs.StringVar(&f.name, "name", "", nameUsage)
	fs.StringVar(&f.startDate, "start-date", "", "First day the window applies (dd/mm/yyyy)")
	fs.StringVar(&f.endDate, "end-date", "", "Last day the window applies (dd/mm/yyyy)")
	fs.StringSliceVar(&f.operations, "operations", nil, "Operation categories to block, e.g. FULL_DATA_MANAGEMENT,DATA_RECOVERY")
	fs.StringSliceVar(&f.days, "days", nil, "Weekdays, e.g. monday,friday")
	fs.StringVar(&f.startTime, "start-time", "", "Start time HH:MM, or a list parallel to --days")
	fs.StringVar(&f.endTime, "end-time", "", "End time HH:MM, or a list parallel to --days")
	fs.StringSliceVar(&f.weekOfMonth, "week-of-month", nil, "Monthly ordinals: First, Second, Third, Fourth, Last")
	fs.BoolVar(&f.doNotSubmitJob, "do-not-submit-job", false, "Reject job submission instead of queueing during the window")
	fs.BoolVar(&f.validate, "validate", false, "Re-read the stored window and fail on any drift")
}

func init() {
	addFlags.register(addCmd.Flags(), "Window name, unique within the entity")
	addCmd.Flags().DurationVar(&currentWeek, "current-week", 0, "Generate a weekly window from now lasting this long")
	addCmd.Flags().DurationVar(&currentMonth, "current-month", 0, "Generate a monthly window from now lasting this long")
	addCmd.MarkFlagsMutuallyExclusive("current-week", "current-month")
	for _, generated := range []string{"current-week", "current-month"} {
		for _, manual := range []string{"start-date", "end-date", "days", "start-time", "end-time", "week-of-month"} {
			addCmd.MarkFlagsMutuallyExclusive(generated, manual)
		}
	}

	editFlags.register(editCmd.Flags(), "Select the window by name")
	editCmd.Flags().Int64Var(&selectID, "id", 0, "Select the window by rule id")
	editCmd.Flags().StringVar(&newName, "new-name", "", "Rename the window")

	for _, c := range []*cobra.Command{deleteCmd, getCmd} {
		c.Flags().Int64Var(&selectID, "id", 0, "Select the window by rule id")
		c.Flags().StringVar(&selectName, "name", "", "Select the window by name")
	}

	rootCmd.AddCommand(addCmd, editCmd, deleteCmd, getCmd, listCmd, capabilitiesCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	spec, err := addSpec(time.Now())
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	engine, err := a.engine()
	if err != nil {
		return err
	}

	rule, err := engine.Add(cmd.Context(), spec)
	if rule != nil {
		if renderErr := renderRule(cmd.OutOrStdout(), outputFormat, *rule); renderErr != nil {
			return renderErr
		}
	}
	return err
}

// addSpec builds the add request from flags, generating the schedule when
// --current-week or --current-month is set.
func addSpec(now time.Time) (usecase.WindowSpec, error) {
	f := addFlags
	var plan *schedule.Plan
	switch {
	case currentWeek != 0:
		p, err := schedule.CurrentWeek(now, currentWeek)
		if err != nil {
			return usecase.WindowSpec{}, err
		}
		plan = &p
	case currentMonth != 0:
		p, err := schedule.CurrentMonth(now, currentMonth)
		if err != nil {
			return usecase.WindowSpec{}, err
		}
		plan = &p
	}

	if plan != nil {
		spec := usecase.PlanSpec(f.name, f.operations, *plan)
		spec.DoNotSubmitJob = f.doNotSubmitJob
		spec.Validate = f.validate
		return spec, nil
	}

	return usecase.WindowSpec{
		Name:           f.name,
		StartDate:      f.startDate,
		EndDate:        f.endDate,
		Operations:     f.operations,
		DaysOfWeek:     f.days,
		StartTime:      schedule.ParseTimeOfDayArg(f.startTime),
		EndTime:        schedule.ParseTimeOfDayArg(f.endTime),
		WeekOfMonth:    f.weekOfMonth,
		DoNotSubmitJob: f.doNotSubmitJob,
		Validate:       f.validate,
	}, nil
}

func runEdit(cmd *cobra.Command, args []string) error {
	id := selector(selectID, editFlags.name)
	patch := editPatch(cmd.Flags())

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	engine, err := a.engine()
	if err != nil {
		return err
	}

	rule, err := engine.Edit(cmd.Context(), id, patch)
	if rule != nil {
		if renderErr := renderRule(cmd.OutOrStdout(), outputFormat, *rule); renderErr != nil {
			return renderErr
		}
	}
	return err
}

// editPatch carries only the flags the user actually set.
func editPatch(fs *pflag.FlagSet) usecase.WindowPatch {
	f := editFlags
	patch := usecase.WindowPatch{Validate: f.validate}
	if fs.Changed("new-name") {
		patch.Name = &newName
	}
	if fs.Changed("start-date") {
		patch.StartDate = &f.startDate
	}
	if fs.Changed("end-date") {
		patch.EndDate = &f.endDate
	}
	if fs.Changed("operations") {
		patch.Operations = nonNil(f.operations)
	}
	if fs.Changed("days") {
		patch.DaysOfWeek = nonNil(f.days)
	}
	if fs.Changed("start-time") {
		patch.StartTime = schedule.ParseTimeOfDayArg(f.startTime)
	}
	if fs.Changed("end-time") {
		patch.EndTime = schedule.ParseTimeOfDayArg(f.endTime)
	}
	if fs.Changed("week-of-month") {
		patch.WeekOfMonth = nonNil(f.weekOfMonth)
	}
	if fs.Changed("do-not-submit-job") {
		patch.DoNotSubmitJob = &f.doNotSubmitJob
	}
	return patch
}

func runDelete(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	engine, err := a.engine()
	if err != nil {
		return err
	}

	id := selector(selectID, selectName)
	if err := engine.Delete(cmd.Context(), id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
	return nil
}

func runGet(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	engine, err := a.engine()
	if err != nil {
		return err
	}

	rule, err := engine.Get(cmd.Context(), selector(selectID, selectName))
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("no window %s on %s", selector(selectID, selectName), engine.Scope())
	}
	if err != nil {
		return err
	}
	return renderRule(cmd.OutOrStdout(), outputFormat, *rule)
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	engine, err := a.engine()
	if err != nil {
		return err
	}

	var rules []domain.WindowRule
	for rule, err := range engine.List(cmd.Context()) {
		if err != nil {
			return err
		}
		rules = append(rules, rule)
	}
	return renderRules(cmd.OutOrStdout(), outputFormat, rules)
}

func runCapabilities(cmd *cobra.Command, args []string) error {
	matrix := policy.DefaultMatrix()

	kinds := matrix.Kinds()
	if scopeKindArg != "" {
		kind, err := domain.ParseScopeKind(scopeKindArg)
		if err != nil {
			return err
		}
		kinds = []domain.ScopeKind{kind}
	}
	return renderCapabilities(cmd.OutOrStdout(), outputFormat, matrix, kinds)
}

func selector(id int64, name string) domain.Identifier {
	return domain.Identifier{RuleID: id, Name: name}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
