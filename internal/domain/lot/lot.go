package lot

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Type string

const (
	TypeGeneral     Type = "general"
	TypeColdStorage Type = "cold_storage"
	TypeOpenArea    Type = "open_area"
	TypeTank        Type = "tank"
	TypeHazardous   Type = "hazardous"
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrLotNotFound      = errors.New("lot not found")
	ErrLotInactive      = errors.New("lot is inactive")
	ErrDuplicateCode    = errors.New("lot code already exists in warehouse")
	ErrCapacityExceeded = errors.New("lot capacity exceeded")
)

// CapacityError carries the numbers behind a capacity rejection.
type CapacityError struct {
	LotID     string
	Capacity  decimal.Decimal
	Occupied  decimal.Decimal
	Requested decimal.Decimal
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("lot %s capacity exceeded: capacity %s, occupied %s, requested %s",
		e.LotID, e.Capacity.String(), e.Occupied.String(), e.Requested.String())
}

func (e *CapacityError) Is(target error) bool {
	return target == ErrCapacityExceeded
}

// Lot is a physical storage subdivision inside a bonded warehouse.
// Capacity is in metric tons; nil means unlimited. Lots are never
// deleted, only deactivated.
type Lot struct {
	ID          string           `json:"id"`
	WarehouseID string           `json:"warehouse_id"`
	Code        string           `json:"code"`
	Capacity    *decimal.Decimal `json:"capacity_mt,omitempty"`
	Type        Type             `json:"type"`
	Active      bool             `json:"active"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

func (t Type) Valid() bool {
	switch t {
	case TypeGeneral, TypeColdStorage, TypeOpenArea, TypeTank, TypeHazardous:
		return true
	}
	return false
}

func (l *Lot) Validate() error {
	if l.WarehouseID == "" {
		return fmt.Errorf("%w: warehouse_id is required", ErrValidation)
	}
	if l.Code == "" {
		return fmt.Errorf("%w: code is required", ErrValidation)
	}
	if !l.Type.Valid() {
		return fmt.Errorf("%w: unknown lot type %q", ErrValidation, l.Type)
	}
	if l.Capacity != nil && !l.Capacity.IsPositive() {
		return fmt.Errorf("%w: capacity_mt must be positive when set", ErrValidation)
	}
	return nil
}

// CheckCapacity enforces the hard capacity invariant: occupied + incoming
// must not exceed capacity. Lots without capacity accept anything.
func (l *Lot) CheckCapacity(occupied, incoming decimal.Decimal) error {
	if l.Capacity == nil {
		return nil
	}
	if occupied.Add(incoming).GreaterThan(*l.Capacity) {
		return &CapacityError{LotID: l.ID, Capacity: *l.Capacity, Occupied: occupied, Requested: incoming}
	}
	return nil
}

// Patch lists exactly the fields a lot update may touch. Anything else
// is immutable after creation.
type Patch struct {
	Code     *string          `json:"code,omitempty"`
	Capacity *decimal.Decimal `json:"capacity_mt,omitempty"`
	Type     *Type            `json:"type,omitempty"`
	Active   *bool            `json:"active,omitempty"`
}

func (l *Lot) ApplyPatch(p Patch, at time.Time) error {
	if p.Code != nil {
		if *p.Code == "" {
			return fmt.Errorf("%w: code cannot be empty", ErrValidation)
		}
		l.Code = *p.Code
	}
	if p.Capacity != nil {
		if !p.Capacity.IsPositive() {
			return fmt.Errorf("%w: capacity_mt must be positive", ErrValidation)
		}
		l.Capacity = p.Capacity
	}
	if p.Type != nil {
		if !p.Type.Valid() {
			return fmt.Errorf("%w: unknown lot type %q", ErrValidation, *p.Type)
		}
		l.Type = *p.Type
	}
	if p.Active != nil {
		l.Active = *p.Active
	}
	l.UpdatedAt = at
	return nil
}
