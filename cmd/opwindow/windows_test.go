package main

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetWindowFlags(t *testing.T) {
	t.Cleanup(func() {
		addFlags, editFlags = windowFlags{}, windowFlags{}
		currentWeek, currentMonth = 0, 0
		selectID, selectName, newName = 0, "", ""
		editCmd.Flags().VisitAll(func(f *pflag.Flag) { f.Changed = false })
	})
}

func TestAddSpec_Manual(t *testing.T) {
	resetWindowFlags(t)
	addFlags = windowFlags{
		name:       "nightly",
		startDate:  "01/01/2024",
		endDate:    "31/12/2024",
		operations: []string{"FULL_DATA_MANAGEMENT"},
		days:       []string{"monday", "friday"},
		startTime:  "22:00",
		endTime:    "23:00,23:59",
	}

	spec, err := addSpec(time.Now())
	require.NoError(t, err)
	assert.Equal(t, "nightly", spec.Name)
	assert.False(t, spec.StartTime.IsList())
	assert.True(t, spec.EndTime.IsList())
	assert.Equal(t, []string{"23:00", "23:59"}, spec.EndTime.Values())
}

func TestAddSpec_CurrentWeekCrossingMidnight(t *testing.T) {
	resetWindowFlags(t)
	addFlags = windowFlags{name: "hotfix", operations: []string{"DATA_RECOVERY"}, doNotSubmitJob: true}
	currentWeek = 2 * time.Hour

	// Sunday 23:30 UTC
	now := time.Date(2024, time.March, 10, 23, 30, 0, 0, time.UTC)
	spec, err := addSpec(now)
	require.NoError(t, err)

	assert.Equal(t, "10/03/2024", spec.StartDate)
	assert.Equal(t, []string{"Sunday", "Monday"}, spec.DaysOfWeek)
	assert.Equal(t, []string{"23:30", "00:00"}, spec.StartTime.Values())
	assert.Equal(t, []string{"23:59", "01:30"}, spec.EndTime.Values())
	assert.True(t, spec.DoNotSubmitJob)
	assert.Nil(t, spec.WeekOfMonth)
}

func TestAddSpec_RejectsBadDuration(t *testing.T) {
	resetWindowFlags(t)
	currentMonth = 50 * time.Hour

	_, err := addSpec(time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC))
	assert.Error(t, err)
}

func TestEditPatch_OnlyChangedFlags(t *testing.T) {
	resetWindowFlags(t)
	fs := editCmd.Flags()
	require.NoError(t, fs.Set("operations", "AUX_COPY"))
	require.NoError(t, fs.Set("week-of-month", ""))
	require.NoError(t, fs.Set("new-name", "renamed"))

	patch := editPatch(fs)
	require.NotNil(t, patch.Name)
	assert.Equal(t, "renamed", *patch.Name)
	assert.Equal(t, []string{"AUX_COPY"}, patch.Operations)
	assert.NotNil(t, patch.WeekOfMonth)
	assert.Empty(t, patch.WeekOfMonth)
	assert.Nil(t, patch.DaysOfWeek)
	assert.Nil(t, patch.StartDate)
	assert.Nil(t, patch.DoNotSubmitJob)
	assert.True(t, patch.StartTime.IsZero())
}

func TestSelector(t *testing.T) {
	assert.Equal(t, "id:5", selector(5, "x").String())
	assert.Equal(t, "name:x", selector(0, "x").String())
}
