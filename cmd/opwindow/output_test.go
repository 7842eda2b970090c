package main

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/eliteGoblin/focusd/opwindow/internal/domain"
	"github.com/eliteGoblin/focusd/opwindow/internal/policy"
)

func sampleRule() domain.WindowRule {
	return domain.WindowRule{
		RuleID:     12,
		Name:       "nightly",
		Scope:      domain.EntityScope{Kind: domain.ScopeClient, Ref: "c1"},
		StartDate:  1704067200, // 01/01/2024
		EndDate:    1735603200, // 31/12/2024
		Operations: []domain.OperationCategory{domain.OpFullDataManagement, domain.OpDataRecovery},
		DaySegments: []domain.DaySegment{
			{Weekday: time.Monday, StartSeconds: 79200, EndSeconds: 86340},
			{Weekday: time.Friday, StartSeconds: 79200, EndSeconds: 86340},
		},
		Enabled: true,
	}
}

func TestRenderRule_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderRule(&buf, "json", sampleRule()))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "nightly", got["name"])
	assert.Equal(t, "client/c1", got["scope"])
	assert.Equal(t, "01/01/2024", got["start_date"])
	assert.Equal(t, "31/12/2024", got["end_date"])
	assert.Equal(t, "22:00", got["start_time"])
	assert.Equal(t, []any{"Monday", "Friday"}, got["days"])
	assert.NotContains(t, got, "week_of_month")
}

func TestRenderRule_YAMLPerDayTimes(t *testing.T) {
	rule := sampleRule()
	rule.DaySegments[1].StartSeconds = 3600

	var buf bytes.Buffer
	require.NoError(t, renderRule(&buf, "yaml", rule))

	var got ruleView
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, []any{"22:00", "01:00"}, got.StartTime)
	assert.Equal(t, []any{"23:59", "23:59"}, got.EndTime)
}

func TestRenderRule_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderRule(&buf, "text", sampleRule()))

	out := buf.String()
	assert.Contains(t, out, "nightly")
	assert.Contains(t, out, "01/01/2024 - 31/12/2024")
	assert.Contains(t, out, "FULL_DATA_MANAGEMENT, DATA_RECOVERY")
	assert.NotContains(t, out, "Week of month")
}

func TestRenderRules(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderRules(&buf, "text", nil))
	assert.Equal(t, "no windows\n", buf.String())

	buf.Reset()
	require.NoError(t, renderRules(&buf, "text", []domain.WindowRule{sampleRule()}))
	assert.Contains(t, buf.String(), "ID")
	assert.Contains(t, buf.String(), "Monday,Friday")

	buf.Reset()
	require.NoError(t, renderRules(&buf, "json", []domain.WindowRule{sampleRule(), sampleRule()}))
	var got []ruleView
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Len(t, got, 2)
}

func TestRenderCapabilities(t *testing.T) {
	matrix := policy.DefaultMatrix()

	var buf bytes.Buffer
	require.NoError(t, renderCapabilities(&buf, "json", matrix, []domain.ScopeKind{domain.ScopeCell}))

	var got []capabilityView
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "cell", got[0].Kind)
	assert.Len(t, got[0].Operations, len(domain.AllOperations))

	buf.Reset()
	require.NoError(t, renderCapabilities(&buf, "text", matrix, []domain.ScopeKind{domain.ScopeSubclient}))
	assert.Contains(t, buf.String(), "[subclient]")
	assert.NotContains(t, buf.String(), "AUX_COPY")
}
