package domain

import (
	"strings"
	"time"
)

// ScopeKind is the type of infrastructure entity a window is attached to.
type ScopeKind string

const (
	ScopeCell        ScopeKind = "cell"
	ScopeClientGroup ScopeKind = "client_group"
	ScopeClient      ScopeKind = "client"
	ScopeAgent       ScopeKind = "agent"
	ScopeBackupSet   ScopeKind = "backup_set"
	ScopeSubclient   ScopeKind = "subclient"
)

// AllScopeKinds lists every scope kind, broadest first.
var AllScopeKinds = []ScopeKind{
	ScopeCell, ScopeClientGroup, ScopeClient, ScopeAgent, ScopeBackupSet, ScopeSubclient,
}

func (k ScopeKind) String() string { return string(k) }

func (k ScopeKind) IsValid() bool {
	switch k {
	case ScopeCell, ScopeClientGroup, ScopeClient, ScopeAgent, ScopeBackupSet, ScopeSubclient:
		return true
	}
	return false
}

// ParseScopeKind accepts the wire name case-insensitively, with '-' treated as '_'.
func ParseScopeKind(s string) (ScopeKind, error) {
	k := ScopeKind(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	if !k.IsValid() {
		return "", NewRuleError("scope", s, ErrUnknownEnumValue)
	}
	return k, nil
}

// OperationCategory is a job-type tag a blackout window can restrict.
type OperationCategory string

const (
	OpFullDataManagement     OperationCategory = "FULL_DATA_MANAGEMENT"
	OpNonFullDataManagement  OperationCategory = "NON_FULL_DATA_MANAGEMENT"
	OpSyntheticFull          OperationCategory = "SYNTHETIC_FULL"
	OpDataRecovery           OperationCategory = "DATA_RECOVERY"
	OpAuxCopy                OperationCategory = "AUX_COPY"
	OpDRBackup               OperationCategory = "DR_BACKUP"
	OpDataVerification       OperationCategory = "DATA_VERIFICATION"
	OpEraseSpareMedia        OperationCategory = "ERASE_SPARE_MEDIA"
	OpShelfManagement        OperationCategory = "SHELF_MANAGEMENT"
	OpDeleteDataByBrowsing   OperationCategory = "DELETE_DATA_BY_BROWSING"
	OpDeleteArchivedData     OperationCategory = "DELETE_ARCHIVED_DATA"
	OpOfflineContentIndexing OperationCategory = "OFFLINE_CONTENT_INDEXING"
	OpOnlineContentIndexing  OperationCategory = "ONLINE_CONTENT_INDEXING"
	OpSRM                    OperationCategory = "SRM"
	OpInformationManagement  OperationCategory = "INFORMATION_MANAGEMENT"
	OpMediaRefreshing        OperationCategory = "MEDIA_REFRESHING"
	OpDataAnalytics          OperationCategory = "DATA_ANALYTICS"
	OpDataPruning            OperationCategory = "DATA_PRUNING"
	OpBackupCopy             OperationCategory = "BACKUP_COPY"
	OpCleanupOperation       OperationCategory = "CLEANUP_OPERATION"
)

// AllOperations is the full universe of operation categories in canonical order.
var AllOperations = []OperationCategory{
	OpFullDataManagement, OpNonFullDataManagement, OpSyntheticFull, OpDataRecovery,
	OpAuxCopy, OpDRBackup, OpDataVerification, OpEraseSpareMedia, OpShelfManagement,
	OpDeleteDataByBrowsing, OpDeleteArchivedData, OpOfflineContentIndexing,
	OpOnlineContentIndexing, OpSRM, OpInformationManagement, OpMediaRefreshing,
	OpDataAnalytics, OpDataPruning, OpBackupCopy, OpCleanupOperation,
}

func (o OperationCategory) String() string { return string(o) }

func (o OperationCategory) IsValid() bool {
	for _, known := range AllOperations {
		if o == known {
			return true
		}
	}
	return false
}

// ParseOperation accepts the wire name case-insensitively.
func ParseOperation(s string) (OperationCategory, error) {
	op := OperationCategory(strings.ToUpper(strings.TrimSpace(s)))
	if !op.IsValid() {
		return "", NewRuleError("operations", s, ErrUnknownEnumValue)
	}
	return op, nil
}

// ParseOperations parses a list of names, reporting the index of the first bad one.
func ParseOperations(names []string) ([]OperationCategory, error) {
	ops := make([]OperationCategory, 0, len(names))
	for i, name := range names {
		op, err := ParseOperation(name)
		if err != nil {
			return nil, NewRuleError("operations", name, ErrUnknownEnumValue).At(i)
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// WeekOrdinal names the position of a weekday occurrence within a month.
type WeekOrdinal string

const (
	WeekFirst  WeekOrdinal = "First"
	WeekSecond WeekOrdinal = "Second"
	WeekThird  WeekOrdinal = "Third"
	WeekFourth WeekOrdinal = "Fourth"
	WeekLast   WeekOrdinal = "Last"
)

// AllWeekOrdinals lists ordinals by position.
var AllWeekOrdinals = []WeekOrdinal{WeekFirst, WeekSecond, WeekThird, WeekFourth, WeekLast}

func (w WeekOrdinal) String() string { return string(w) }

func (w WeekOrdinal) IsValid() bool {
	switch w {
	case WeekFirst, WeekSecond, WeekThird, WeekFourth, WeekLast:
		return true
	}
	return false
}

// ParseWeekOrdinal accepts "first", "SECOND", "Last" and so on.
func ParseWeekOrdinal(s string) (WeekOrdinal, error) {
	for _, w := range AllWeekOrdinals {
		if strings.EqualFold(strings.TrimSpace(s), string(w)) {
			return w, nil
		}
	}
	return "", NewRuleError("week_of_month", s, ErrUnknownEnumValue)
}

// ParseWeekOrdinals parses a list of ordinal names.
func ParseWeekOrdinals(names []string) ([]WeekOrdinal, error) {
	weeks := make([]WeekOrdinal, 0, len(names))
	for i, name := range names {
		w, err := ParseWeekOrdinal(name)
		if err != nil {
			return nil, NewRuleError("week_of_month", name, ErrUnknownEnumValue).At(i)
		}
		weeks = append(weeks, w)
	}
	return weeks, nil
}

// ParseWeekday accepts full English weekday names case-insensitively.
func ParseWeekday(s string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(strings.TrimSpace(s), d.String()) {
			return d, nil
		}
	}
	return 0, NewRuleError("day_of_week", s, ErrUnknownEnumValue)
}

// ParseWeekdays parses a list of weekday names.
func ParseWeekdays(names []string) ([]time.Weekday, error) {
	days := make([]time.Weekday, 0, len(names))
	for i, name := range names {
		d, err := ParseWeekday(name)
		if err != nil {
			return nil, NewRuleError("day_of_week", name, ErrUnknownEnumValue).At(i)
		}
		days = append(days, d)
	}
	return days, nil
}

// WeekdayNames renders weekdays using their wire names.
func WeekdayNames(days []time.Weekday) []string {
	names := make([]string, len(days))
	for i, d := range days {
		names[i] = d.String()
	}
	return names
}
