package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Callers branch on these with errors.Is.
var (
	ErrInvalidDateFormat            = errors.New("invalid date format")
	ErrInvalidTimeFormat            = errors.New("invalid time format")
	ErrInvalidTimeRange             = errors.New("invalid time range")
	ErrMismatchedTimeRangeLists     = errors.New("mismatched time range lists")
	ErrTypeMismatch                 = errors.New("type mismatch")
	ErrUnsupportedOperationForScope = errors.New("operation not supported for scope")
	ErrInvalidDateRange             = errors.New("invalid date range")
	ErrWeekOrdinalOverflow          = errors.New("week ordinal overflow")
	ErrNotFound                     = errors.New("not found")
	ErrAlreadyExists                = errors.New("already exists")
	ErrPostConditionViolation       = errors.New("post-condition violation")
	ErrUnknownEnumValue             = errors.New("unknown enum value")
	ErrMissingIdentifier            = errors.New("rule name or id required")
	ErrMissingField                 = errors.New("required field missing")
	ErrStoreUnavailable             = errors.New("window store unavailable")
)

// RuleError is a validation failure carrying the field, offending value and,
// where relevant, the list index and scope kind. It unwraps to one or more sentinels.
type RuleError struct {
	Field string
	Value string
	Index int // -1 when not a list element
	Scope ScopeKind
	kinds []error
}

// NewRuleError creates a RuleError matching every sentinel in kinds.
func NewRuleError(field, value string, kinds ...error) *RuleError {
	return &RuleError{Field: field, Value: value, Index: -1, kinds: kinds}
}

// At sets the list index of the offending element.
func (e *RuleError) At(index int) *RuleError {
	e.Index = index
	return e
}

// In sets the scope kind the failure relates to.
func (e *RuleError) In(kind ScopeKind) *RuleError {
	e.Scope = kind
	return e
}

func (e *RuleError) Error() string {
	var b strings.Builder
	if len(e.kinds) > 0 {
		b.WriteString(e.kinds[0].Error())
	} else {
		b.WriteString("invalid rule")
	}
	b.WriteString(": ")
	b.WriteString(e.Field)
	if e.Index >= 0 {
		fmt.Fprintf(&b, "[%d]", e.Index)
	}
	fmt.Fprintf(&b, "=%q", e.Value)
	if e.Scope != "" {
		fmt.Fprintf(&b, " (scope %s)", e.Scope)
	}
	return b.String()
}

func (e *RuleError) Unwrap() []error { return e.kinds }

// PostConditionError reports drift between the intended and the stored rule.
// The mutation has already been committed when this is returned.
type PostConditionError struct {
	RuleID     int64
	Mismatches []FieldMismatch
}

func (e *PostConditionError) Error() string {
	fields := make([]string, len(e.Mismatches))
	for i, m := range e.Mismatches {
		fields[i] = fmt.Sprintf("%s (want %s, got %s)", m.Field, m.Expected, m.Actual)
	}
	return fmt.Sprintf("post-condition violation on rule %d: %s", e.RuleID, strings.Join(fields, "; "))
}

func (e *PostConditionError) Unwrap() error { return ErrPostConditionViolation }
