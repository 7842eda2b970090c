package domain

import "context"

// WindowStore is the service of record for window rules.
// Implementations: infra.SQLiteWindowStore (local, encrypted) and rest.Client (remote).
// Lookups that resolve to nothing return ErrNotFound; a duplicate name within a
// scope returns ErrAlreadyExists.
type WindowStore interface {
	// CreateWindow persists rule under scope and returns it with RuleID assigned.
	CreateWindow(ctx context.Context, scope EntityScope, rule WindowRule) (*WindowRule, error)

	// ModifyWindow applies a partial update. Omitted fields keep their stored value.
	ModifyWindow(ctx context.Context, scope EntityScope, id Identifier, update WindowUpdate) (*WindowRule, error)

	// DeleteWindow removes a rule.
	DeleteWindow(ctx context.Context, scope EntityScope, id Identifier) error

	// GetWindow fetches a rule by id or name.
	GetWindow(ctx context.Context, scope EntityScope, id Identifier) (*WindowRule, error)

	// ListWindows returns every rule attached to scope. Order is store-defined.
	ListWindows(ctx context.Context, scope EntityScope) ([]WindowRule, error)
}

// KeyProvider abstracts the source of the store encryption key.
type KeyProvider interface {
	// GetKey returns the encryption key bytes.
	GetKey() ([]byte, error)

	// StoreKey persists a new encryption key.
	StoreKey(key []byte) error

	// KeyExists checks if a key has been generated.
	KeyExists() bool
}
