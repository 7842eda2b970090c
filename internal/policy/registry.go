package policy

import (
	"fmt"
	"sync"

	"github.com/eliteGoblin/focusd/opwindow/internal/domain"
)

// Matrix maps each scope kind to the operation categories legal to restrict on it.
// It is computed once from an exclusion table and never mutated afterwards, so it
// is safe for concurrent use.
type Matrix struct {
	allowed map[domain.ScopeKind][]domain.OperationCategory
	lookup  map[domain.ScopeKind]map[domain.OperationCategory]bool
}

var (
	defaultOnce   sync.Once
	defaultMatrix *Matrix
)

// DefaultMatrix returns the process-wide matrix built from DefaultExclusions.
func DefaultMatrix() *Matrix {
	defaultOnce.Do(func() {
		m, err := NewMatrix(DefaultExclusions)
		if err != nil {
			panic(fmt.Sprintf("policy: default exclusion table is invalid: %v", err))
		}
		defaultMatrix = m
	})
	return defaultMatrix
}

// NewMatrix derives allowed = universe - excluded for every scope kind.
// Every kind must appear in exclusions and keep at least one allowed operation.
func NewMatrix(exclusions map[domain.ScopeKind][]domain.OperationCategory) (*Matrix, error) {
	m := &Matrix{
		allowed: make(map[domain.ScopeKind][]domain.OperationCategory, len(domain.AllScopeKinds)),
		lookup:  make(map[domain.ScopeKind]map[domain.OperationCategory]bool, len(domain.AllScopeKinds)),
	}

	for kind, ops := range exclusions {
		if !kind.IsValid() {
			return nil, fmt.Errorf("unknown scope kind %q in exclusion table", kind)
		}
		for _, op := range ops {
			if !op.IsValid() {
				return nil, fmt.Errorf("unknown operation %q excluded for %s", op, kind)
			}
		}
	}

	for _, kind := range domain.AllScopeKinds {
		excludedOps, ok := exclusions[kind]
		if !ok {
			return nil, fmt.Errorf("scope kind %s missing from exclusion table", kind)
		}
		excluded := make(map[domain.OperationCategory]bool, len(excludedOps))
		for _, op := range excludedOps {
			excluded[op] = true
		}

		allowed := make([]domain.OperationCategory, 0, len(domain.AllOperations))
		set := make(map[domain.OperationCategory]bool, len(domain.AllOperations))
		for _, op := range domain.AllOperations {
			if excluded[op] {
				continue
			}
			allowed = append(allowed, op)
			set[op] = true
		}
		if len(allowed) == 0 {
			return nil, fmt.Errorf("scope kind %s has no allowed operations", kind)
		}
		m.allowed[kind] = allowed
		m.lookup[kind] = set
	}

	return m, nil
}

// Allowed returns the operations legal for kind, in canonical order.
// The returned slice is a copy.
func (m *Matrix) Allowed(kind domain.ScopeKind) []domain.OperationCategory {
	return append([]domain.OperationCategory(nil), m.allowed[kind]...)
}

// Permits reports whether op may be restricted on kind.
func (m *Matrix) Permits(kind domain.ScopeKind, op domain.OperationCategory) bool {
	return m.lookup[kind][op]
}

// Kinds returns every scope kind known to the matrix.
func (m *Matrix) Kinds() []domain.ScopeKind {
	return append([]domain.ScopeKind(nil), domain.AllScopeKinds...)
}

// Check fails with ErrUnsupportedOperationForScope on the first operation kind
// does not permit.
func (m *Matrix) Check(kind domain.ScopeKind, ops []domain.OperationCategory) error {
	if !kind.IsValid() {
		return domain.NewRuleError("scope", string(kind), domain.ErrUnknownEnumValue)
	}
	for i, op := range ops {
		if !m.Permits(kind, op) {
			return domain.NewRuleError("operations", string(op), domain.ErrUnsupportedOperationForScope).
				At(i).In(kind)
		}
	}
	return nil
}
