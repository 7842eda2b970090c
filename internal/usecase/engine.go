// Package usecase contains application business logic.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/opwindow/internal/domain"
	"github.com/eliteGoblin/focusd/opwindow/internal/policy"
	"github.com/eliteGoblin/focusd/opwindow/internal/schedule"
)

// Engine validates window rules for one entity scope and drives the window store.
// It holds no mutable state, so one Engine may serve concurrent callers.
type Engine struct {
	store  domain.WindowStore
	matrix *policy.Matrix
	scope  domain.EntityScope
	logger *zap.Logger
}

// NewEngine creates an engine bound to scope.
func NewEngine(
	store domain.WindowStore,
	matrix *policy.Matrix,
	scope domain.EntityScope,
	logger *zap.Logger,
) (*Engine, error) {
	if !scope.Kind.IsValid() {
		return nil, domain.NewRuleError("scope", string(scope.Kind), domain.ErrUnknownEnumValue)
	}
	if strings.TrimSpace(scope.Ref) == "" {
		return nil, domain.NewRuleError("scope_ref", scope.Ref, domain.ErrMissingField)
	}
	if matrix == nil {
		matrix = policy.DefaultMatrix()
	}
	return &Engine{
		store:  store,
		matrix: matrix,
		scope:  scope,
		logger: logger.With(zap.String("scope", scope.String())),
	}, nil
}

// Scope returns the scope the engine manages.
func (e *Engine) Scope() domain.EntityScope { return e.scope }

// Add validates spec and creates the rule. Nothing reaches the store unless every
// check passes. With spec.Validate a PostConditionError may be returned alongside
// the created rule.
func (e *Engine) Add(ctx context.Context, spec WindowSpec) (*domain.WindowRule, error) {
	rule, err := e.buildRule(spec)
	if err != nil {
		return nil, err
	}

	created, err := e.store.CreateWindow(ctx, e.scope, rule)
	if err != nil {
		return nil, fmt.Errorf("failed to create window %q: %w", rule.Name, err)
	}
	if err := checkStoreRule(*created); err != nil {
		return nil, err
	}

	e.logger.Info("window created",
		zap.String("rule", created.Name),
		zap.Int64("rule_id", created.RuleID),
		zap.Int("segments", len(created.DaySegments)))

	if spec.Validate {
		if err := e.verify(ctx, created.RuleID, domain.UpdateFromRule(rule)); err != nil {
			return created, err
		}
	}
	return created, nil
}

// Edit applies patch to the rule selected by id. The existing rule is read first
// so cross-field checks see omitted fields at their stored values. Only supplied
// fields are sent to the store.
func (e *Engine) Edit(ctx context.Context, id domain.Identifier, patch WindowPatch) (*domain.WindowRule, error) {
	if id.IsZero() {
		return nil, domain.ErrMissingIdentifier
	}

	existing, err := e.lookup(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read window %s: %w", id, err)
	}
	if err := checkStoreRule(*existing); err != nil {
		return nil, err
	}

	update, err := e.buildUpdate(*existing, patch)
	if err != nil {
		return nil, err
	}
	if update.IsEmpty() {
		e.logger.Debug("edit carries no changes", zap.String("rule", existing.Name))
		return existing, nil
	}

	target := id
	if existing.RuleID != 0 {
		target = domain.ByID(existing.RuleID)
	}
	modified, err := e.store.ModifyWindow(ctx, e.scope, target, update)
	if err != nil {
		return nil, fmt.Errorf("failed to modify window %s: %w", id, err)
	}
	if err := checkStoreRule(*modified); err != nil {
		return nil, err
	}

	e.logger.Info("window modified",
		zap.String("rule", modified.Name),
		zap.Int64("rule_id", modified.RuleID),
		zap.Strings("fields", updatedFields(update)))

	if patch.Validate {
		if err := e.verify(ctx, modified.RuleID, update); err != nil {
			return modified, err
		}
	}
	return modified, nil
}

// Delete removes the rule. Deleting a rule that does not exist succeeds.
// A stale id falls back to the name when both are set.
func (e *Engine) Delete(ctx context.Context, id domain.Identifier) error {
	if id.IsZero() {
		return domain.ErrMissingIdentifier
	}

	err := e.store.DeleteWindow(ctx, e.scope, id)
	if errors.Is(err, domain.ErrNotFound) && id.RuleID != 0 && id.Name != "" {
		err = e.store.DeleteWindow(ctx, e.scope, domain.ByName(id.Name))
	}
	if errors.Is(err, domain.ErrNotFound) {
		e.logger.Info("window already absent, nothing deleted", zap.Stringer("id", id))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete window %s: %w", id, err)
	}

	e.logger.Info("window deleted", zap.Stringer("id", id))
	return nil
}

// Get fetches one rule. domain.ErrNotFound is returned only when neither the id
// nor the name resolves.
func (e *Engine) Get(ctx context.Context, id domain.Identifier) (*domain.WindowRule, error) {
	if id.IsZero() {
		return nil, domain.ErrMissingIdentifier
	}

	rule, err := e.lookup(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get window %s: %w", id, err)
	}
	if err := checkStoreRule(*rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// List yields the scope's rules. The store is not called until iteration starts.
// Order is whatever the store returns.
func (e *Engine) List(ctx context.Context) iter.Seq2[domain.WindowRule, error] {
	return func(yield func(domain.WindowRule, error) bool) {
		rules, err := e.store.ListWindows(ctx, e.scope)
		if err != nil {
			yield(domain.WindowRule{}, fmt.Errorf("failed to list windows: %w", err))
			return
		}
		for _, rule := range rules {
			if err := checkStoreRule(rule); err != nil {
				if !yield(domain.WindowRule{}, err) {
					return
				}
				continue
			}
			if !yield(rule, nil) {
				return
			}
		}
	}
}

// ListAll drains List, stopping at the first error.
func (e *Engine) ListAll(ctx context.Context) ([]domain.WindowRule, error) {
	var rules []domain.WindowRule
	for rule, err := range e.List(ctx) {
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// lookup tries the id first and falls back to the name when both are set.
func (e *Engine) lookup(ctx context.Context, id domain.Identifier) (*domain.WindowRule, error) {
	rule, err := e.store.GetWindow(ctx, e.scope, id)
	if errors.Is(err, domain.ErrNotFound) && id.RuleID != 0 && id.Name != "" {
		return e.store.GetWindow(ctx, e.scope, domain.ByName(id.Name))
	}
	return rule, err
}

func (e *Engine) verify(ctx context.Context, ruleID int64, expected domain.WindowUpdate) error {
	stored, err := e.store.GetWindow(ctx, e.scope, domain.ByID(ruleID))
	if err != nil {
		return fmt.Errorf("failed to re-read window %d: %w", ruleID, err)
	}
	if err := checkStoreRule(*stored); err != nil {
		return err
	}

	mismatches := Validate(expected, *stored)
	if len(mismatches) == 0 {
		return nil
	}
	for _, m := range mismatches {
		e.logger.Warn("stored window drifted from request",
			zap.Int64("rule_id", ruleID),
			zap.String("field", m.Field),
			zap.String("expected", m.Expected),
			zap.String("actual", m.Actual))
	}
	return &domain.PostConditionError{RuleID: ruleID, Mismatches: mismatches}
}

func (e *Engine) buildRule(spec WindowSpec) (domain.WindowRule, error) {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return domain.WindowRule{}, domain.NewRuleError("name", spec.Name, domain.ErrMissingField)
	}

	start, err := parseDateField("start_date", spec.StartDate)
	if err != nil {
		return domain.WindowRule{}, err
	}
	end, err := parseDateField("end_date", spec.EndDate)
	if err != nil {
		return domain.WindowRule{}, err
	}
	if start > end {
		return domain.WindowRule{}, domain.NewRuleError("start_date",
			spec.StartDate+" > "+spec.EndDate, domain.ErrInvalidDateRange)
	}

	days, err := domain.ParseWeekdays(spec.DaysOfWeek)
	if err != nil {
		return domain.WindowRule{}, err
	}
	segments, err := schedule.BuildSegments(days, spec.StartTime, spec.EndTime)
	if err != nil {
		return domain.WindowRule{}, err
	}

	weeks, err := parseWeeks(spec.WeekOfMonth)
	if err != nil {
		return domain.WindowRule{}, err
	}

	ops, err := e.parseOperations(spec.Operations)
	if err != nil {
		return domain.WindowRule{}, err
	}

	return domain.WindowRule{
		Name:           name,
		Scope:          e.scope,
		StartDate:      start,
		EndDate:        end,
		Operations:     ops,
		DaySegments:    segments,
		WeekOfMonth:    weeks,
		DoNotSubmitJob: spec.DoNotSubmitJob,
	}, nil
}

func (e *Engine) buildUpdate(existing domain.WindowRule, patch WindowPatch) (domain.WindowUpdate, error) {
	var update domain.WindowUpdate

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return update, domain.NewRuleError("name", *patch.Name, domain.ErrMissingField)
		}
		if name != existing.Name {
			update.Name = &name
		}
	}

	start, end := existing.StartDate, existing.EndDate
	if patch.StartDate != nil {
		v, err := parseDateField("start_date", *patch.StartDate)
		if err != nil {
			return update, err
		}
		start = v
		update.StartDate = &v
	}
	if patch.EndDate != nil {
		v, err := parseDateField("end_date", *patch.EndDate)
		if err != nil {
			return update, err
		}
		end = v
		update.EndDate = &v
	}
	if start > end {
		field := "end_date"
		if patch.StartDate != nil {
			field = "start_date"
		}
		return update, domain.NewRuleError(field,
			schedule.FormatDate(start)+" > "+schedule.FormatDate(end), domain.ErrInvalidDateRange)
	}

	if patch.Operations != nil {
		ops, err := e.parseOperations(patch.Operations)
		if err != nil {
			return update, err
		}
		update.Operations = ops
	}

	if patch.touchesRecurrence() {
		days, startTime, endTime := schedule.DecomposeSegments(existing.DaySegments)
		if patch.DaysOfWeek != nil {
			parsed, err := domain.ParseWeekdays(patch.DaysOfWeek)
			if err != nil {
				return update, err
			}
			days = parsed
		}
		if !patch.StartTime.IsZero() {
			startTime = patch.StartTime
		}
		if !patch.EndTime.IsZero() {
			endTime = patch.EndTime
		}
		segments, err := schedule.BuildSegments(days, startTime, endTime)
		if err != nil {
			return update, err
		}
		update.DaySegments = segments
	}

	if patch.WeekOfMonth != nil {
		// An empty, non-nil list clears the monthly restriction.
		weeks, err := domain.ParseWeekOrdinals(patch.WeekOfMonth)
		if err != nil {
			return update, err
		}
		update.WeekOfMonth = weeks
	}

	if patch.DoNotSubmitJob != nil {
		v := *patch.DoNotSubmitJob
		update.DoNotSubmitJob = &v
	}

	return update, nil
}

// parseOperations parses, de-duplicates and checks names against the matrix.
func (e *Engine) parseOperations(names []string) ([]domain.OperationCategory, error) {
	if len(names) == 0 {
		return nil, domain.NewRuleError("operations", "", domain.ErrMissingField)
	}
	parsed, err := domain.ParseOperations(names)
	if err != nil {
		return nil, err
	}

	seen := make(map[domain.OperationCategory]bool, len(parsed))
	ops := make([]domain.OperationCategory, 0, len(parsed))
	for _, op := range parsed {
		if !seen[op] {
			seen[op] = true
			ops = append(ops, op)
		}
	}

	if err := e.matrix.Check(e.scope.Kind, ops); err != nil {
		return nil, err
	}
	return ops, nil
}

func parseDateField(field, value string) (int64, error) {
	v, err := schedule.ParseDate(value)
	if err != nil {
		return 0, domain.NewRuleError(field, value, domain.ErrInvalidDateFormat)
	}
	return v, nil
}

func parseWeeks(names []string) ([]domain.WeekOrdinal, error) {
	if len(names) == 0 {
		return nil, nil
	}
	return domain.ParseWeekOrdinals(names)
}

// checkStoreRule rejects store responses carrying values this engine does not know.
func checkStoreRule(rule domain.WindowRule) error {
	if rule.Scope.Kind != "" && !rule.Scope.Kind.IsValid() {
		return domain.NewRuleError("scope", string(rule.Scope.Kind), domain.ErrUnknownEnumValue)
	}
	for i, op := range rule.Operations {
		if !op.IsValid() {
			return domain.NewRuleError("operations", string(op), domain.ErrUnknownEnumValue).At(i)
		}
	}
	for i, w := range rule.WeekOfMonth {
		if !w.IsValid() {
			return domain.NewRuleError("week_of_month", string(w), domain.ErrUnknownEnumValue).At(i)
		}
	}
	return domain.ValidateSegments(rule.DaySegments)
}

func updatedFields(u domain.WindowUpdate) []string {
	var fields []string
	if u.Name != nil {
		fields = append(fields, "name")
	}
	if u.StartDate != nil {
		fields = append(fields, "start_date")
	}
	if u.EndDate != nil {
		fields = append(fields, "end_date")
	}
	if u.Operations != nil {
		fields = append(fields, "operations")
	}
	if u.DaySegments != nil {
		fields = append(fields, "day_segments")
	}
	if u.WeekOfMonth != nil {
		fields = append(fields, "week_of_month")
	}
	if u.DoNotSubmitJob != nil {
		fields = append(fields, "do_not_submit_job")
	}
	return fields
}
