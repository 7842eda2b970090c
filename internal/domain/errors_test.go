package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRuleError_MatchesEverySentinel(t *testing.T) {
	err := NewRuleError("day_of_week", "friday", ErrMismatchedTimeRangeLists, ErrTypeMismatch).At(2)

	assert.ErrorIs(t, err, ErrMismatchedTimeRangeLists)
	assert.ErrorIs(t, err, ErrTypeMismatch)
	assert.NotErrorIs(t, err, ErrInvalidTimeRange)
}

func TestRuleError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  *RuleError
		want string
	}{
		{
			name: "plain field",
			err:  NewRuleError("start_date", "32/01/2024", ErrInvalidDateFormat),
			want: `invalid date format: start_date="32/01/2024"`,
		},
		{
			name: "list index and scope",
			err:  NewRuleError("operations", "AUX_COPY", ErrUnsupportedOperationForScope).At(1).In(ScopeSubclient),
			want: `operation not supported for scope: operations[1]="AUX_COPY" (scope subclient)`,
		},
		{
			name: "no sentinel",
			err:  NewRuleError("name", ""),
			want: `invalid rule: name=""`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestRuleError_SurvivesWrapping(t *testing.T) {
	wrapped := fmt.Errorf("add window: %w", NewRuleError("operations", "X", ErrUnknownEnumValue).At(0))

	var re *RuleError
	assert.True(t, errors.As(wrapped, &re))
	assert.Equal(t, 0, re.Index)
	assert.ErrorIs(t, wrapped, ErrUnknownEnumValue)
}

func TestPostConditionError(t *testing.T) {
	err := &PostConditionError{
		RuleID: 7,
		Mismatches: []FieldMismatch{
			{Field: "operations", Expected: "[AUX_COPY]", Actual: "[]"},
			{Field: "do_not_submit_job", Expected: "true", Actual: "false"},
		},
	}

	assert.ErrorIs(t, err, ErrPostConditionViolation)
	assert.Equal(t,
		"post-condition violation on rule 7: operations (want [AUX_COPY], got []); do_not_submit_job (want true, got false)",
		err.Error())
}
