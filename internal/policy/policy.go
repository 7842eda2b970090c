// Package policy holds the capability rules: which operation categories a
// blackout window may restrict for each kind of entity scope.
package policy

import "github.com/eliteGoblin/focusd/opwindow/internal/domain"

// mediaOperations run against storage policies and media, not against clients,
// so only the cell can black them out.
var mediaOperations = []domain.OperationCategory{
	domain.OpAuxCopy,
	domain.OpDRBackup,
	domain.OpDataVerification,
	domain.OpEraseSpareMedia,
	domain.OpShelfManagement,
	domain.OpMediaRefreshing,
	domain.OpDataPruning,
	domain.OpBackupCopy,
	domain.OpCleanupOperation,
}

// DefaultExclusions is the embedded exclusion table the default matrix is derived from.
var DefaultExclusions = map[domain.ScopeKind][]domain.OperationCategory{
	domain.ScopeCell:        nil,
	domain.ScopeClientGroup: mediaOperations,
	domain.ScopeClient:      mediaOperations,
	domain.ScopeAgent:       with(mediaOperations, domain.OpSRM),
	domain.ScopeBackupSet: with(mediaOperations,
		domain.OpSRM,
		domain.OpInformationManagement,
		domain.OpDataAnalytics,
		domain.OpOfflineContentIndexing,
	),
	domain.ScopeSubclient: with(mediaOperations,
		domain.OpSRM,
		domain.OpInformationManagement,
		domain.OpDataAnalytics,
		domain.OpOfflineContentIndexing,
	),
}

func with(base []domain.OperationCategory, extra ...domain.OperationCategory) []domain.OperationCategory {
	out := make([]domain.OperationCategory, 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, extra...)
}
