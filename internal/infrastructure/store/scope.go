package store

import (
	"time"

	"github.com/example/antrepo/internal/domain/custody"
	"github.com/example/antrepo/internal/domain/handling"
)

// Scope is the externally supplied visibility predicate produced by the
// branch-access collaborator. Clause is a SQL fragment with ? placeholders
// over the aliased lots table (alias "l", e.g. "l.warehouse_id IN (?)");
// slice args are expanded via sqlx.In before rebinding. DenyAll means the
// caller has no accessible warehouses and must see an empty result set,
// never all results.
type Scope struct {
	Clause  string
	Args    []any
	DenyAll bool
}

// AllowAll is the scope used by trusted internal callers only.
func AllowAll() Scope { return Scope{} }

// DenyAllScope yields empty result sets for every scoped query.
func DenyAllScope() Scope { return Scope{DenyAll: true} }

// WarehouseScope restricts results to the given warehouse ids. An empty
// list denies everything.
func WarehouseScope(warehouseIDs []string) Scope {
	if len(warehouseIDs) == 0 {
		return DenyAllScope()
	}
	return Scope{Clause: "l.warehouse_id IN (?)", Args: []any{warehouseIDs}}
}

// WarehouseIDs extracts the warehouse id list behind the predicate, for
// queries over tables that carry the warehouse column directly instead
// of joining the aliased lots table. The second result is false when the
// predicate is not a plain warehouse-id restriction; such scopes cannot
// be rewritten and the caller must fail closed.
func (s Scope) WarehouseIDs() ([]string, bool) {
	if s.DenyAll || s.Clause == "" || len(s.Args) != 1 {
		return nil, false
	}
	ids, ok := s.Args[0].([]string)
	if !ok || len(ids) == 0 {
		return nil, false
	}
	return ids, true
}

// Allows reports whether a row in the given warehouse passes the scope.
// Used by the in-memory stores; the Postgres store applies Clause in SQL.
func (s Scope) Allows(warehouseID string) bool {
	if s.DenyAll {
		return false
	}
	if s.Clause == "" {
		return true
	}
	for _, arg := range s.Args {
		ids, ok := arg.([]string)
		if !ok {
			continue
		}
		for _, id := range ids {
			if id == warehouseID {
				return true
			}
		}
	}
	return false
}

// PageRequest is the caller-supplied pagination input.
type PageRequest struct {
	Page  int
	Limit int
}

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Normalize applies defaults and caps.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}

func (p PageRequest) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}

type LotFilter struct {
	WarehouseID string
	Active      *bool
	Search      string
	Scope       Scope
	Page        PageRequest
}

type EntryFilter struct {
	LotID       string
	WarehouseID string
	Status      custody.Status
	ThirdParty  *bool
	Search      string
	From        *time.Time
	To          *time.Time
	Scope       Scope
	Page        PageRequest
}

type ExitFilter struct {
	EntryID string
	Kind    custody.Kind
	From    *time.Time
	To      *time.Time
	Scope   Scope
	Page    PageRequest
}

type RequestFilter struct {
	EntryID  string
	Status   handling.Status
	Activity handling.ActivityCode
	Scope    Scope
	Page     PageRequest
}
