package custody

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusInStock     Status = "in_stock"
	StatusPartialExit Status = "partial_exit"
	StatusExited      Status = "exited"
	StatusTransferred Status = "transferred"
)

var (
	ErrValidation           = errors.New("validation failed")
	ErrEntryNotFound        = errors.New("inventory entry not found")
	ErrInvalidQuantity      = errors.New("quantity must be positive")
	ErrInsufficientQuantity = errors.New("insufficient quantity")
	ErrEntryClosed          = errors.New("entry is closed, no further exits allowed")
	ErrEntryNotTransferable = errors.New("entry cannot be transferred in its current status")
	ErrEntryHasHistory      = errors.New("entry with exit or transfer history cannot be archived")
	ErrSameLot              = errors.New("target lot is the entry's current lot")
	ErrCrossWarehouse       = errors.New("transfers must stay within one warehouse")
)

// InsufficientQuantityError reports how much quantity was actually
// available when an exit or transfer was rejected.
type InsufficientQuantityError struct {
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientQuantityError) Error() string {
	return fmt.Sprintf("insufficient quantity: requested %s, available %s",
		e.Requested.String(), e.Available.String())
}

func (e *InsufficientQuantityError) Is(target error) bool {
	return target == ErrInsufficientQuantity
}

// Entry is a custody batch: goods held in a bonded-warehouse lot under
// customs supervision. CustomsQuantity is what was declared at entry,
// ActualQuantity what was physically verified; CurrentQuantity tracks the
// actual basis and is the only mutable quantity.
type Entry struct {
	ID              string          `json:"id"`
	LotID           string          `json:"lot_id"`
	ShipmentID      *string         `json:"shipment_id,omitempty"`
	EntryDate       time.Time       `json:"entry_date"`
	CustomsQuantity decimal.Decimal `json:"customs_quantity_mt"`
	ActualQuantity  decimal.Decimal `json:"actual_quantity_mt"`
	CurrentQuantity decimal.Decimal `json:"current_quantity_mt"`
	BagCount        *int            `json:"bag_count,omitempty"`
	ContainerCount  *int            `json:"container_count,omitempty"`
	GTIPCode        string          `json:"gtip_code"`
	Description     string          `json:"description"`
	ThirdParty      bool            `json:"third_party"`
	OwnerName       string          `json:"owner_name,omitempty"`
	OwnerTaxNo      string          `json:"owner_tax_no,omitempty"`
	Status          Status          `json:"status"`
	ExitCount       int             `json:"exit_count"`
	TransferCount   int             `json:"transfer_count"`
	Deleted         bool            `json:"-"`
	CreatedBy       string          `json:"created_by"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Validate checks the fields of a freshly built entry.
func (e *Entry) Validate() error {
	if e.LotID == "" {
		return fmt.Errorf("%w: lot_id is required", ErrValidation)
	}
	if !e.ActualQuantity.IsPositive() {
		return fmt.Errorf("%w: actual_quantity_mt must be positive", ErrValidation)
	}
	if e.CustomsQuantity.IsNegative() {
		return fmt.Errorf("%w: customs_quantity_mt cannot be negative", ErrValidation)
	}
	if e.ThirdParty && e.OwnerName == "" {
		return fmt.Errorf("%w: owner_name is required for third-party goods", ErrValidation)
	}
	return nil
}

// HasHistory reports whether any exit or transfer-out has been recorded
// against this entry.
func (e *Entry) HasHistory() bool {
	return e.ExitCount > 0 || e.TransferCount > 0
}

// ApplyExit decrements the current quantity by an exit and recomputes the
// status. It never writes; the caller persists the mutated entry and the
// exit record in one transaction.
func (e *Entry) ApplyExit(quantity decimal.Decimal, at time.Time) error {
	if e.Deleted {
		return ErrEntryNotFound
	}
	if e.Status == StatusExited || e.Status == StatusTransferred {
		return fmt.Errorf("%w: status is %s", ErrEntryClosed, e.Status)
	}
	if !quantity.IsPositive() {
		return ErrInvalidQuantity
	}
	if quantity.GreaterThan(e.CurrentQuantity) {
		return &InsufficientQuantityError{Requested: quantity, Available: e.CurrentQuantity}
	}
	e.CurrentQuantity = e.CurrentQuantity.Sub(quantity)
	e.ExitCount++
	e.recalcStatus(false)
	e.UpdatedAt = at
	return nil
}

// ApplyTransferOut decrements the current quantity by a transfer to
// another lot. Quantity conservation holds because the transferred amount
// becomes the original quantity of a new entry (see Split).
func (e *Entry) ApplyTransferOut(quantity decimal.Decimal, at time.Time) error {
	if e.Deleted {
		return ErrEntryNotFound
	}
	if e.Status != StatusInStock && e.Status != StatusPartialExit {
		return fmt.Errorf("%w: status is %s", ErrEntryNotTransferable, e.Status)
	}
	if !quantity.IsPositive() {
		return ErrInvalidQuantity
	}
	if quantity.GreaterThan(e.CurrentQuantity) {
		return &InsufficientQuantityError{Requested: quantity, Available: e.CurrentQuantity}
	}
	e.CurrentQuantity = e.CurrentQuantity.Sub(quantity)
	e.TransferCount++
	e.recalcStatus(true)
	e.UpdatedAt = at
	return nil
}

// MoveToLot relocates the whole entry to another lot in place. Identity
// and exit history stay attached; status is untouched.
func (e *Entry) MoveToLot(lotID string, at time.Time) error {
	if e.Deleted {
		return ErrEntryNotFound
	}
	if e.Status != StatusInStock && e.Status != StatusPartialExit {
		return fmt.Errorf("%w: status is %s", ErrEntryNotTransferable, e.Status)
	}
	if lotID == e.LotID {
		return ErrSameLot
	}
	e.LotID = lotID
	e.UpdatedAt = at
	return nil
}

// Split carves quantity off this entry into a new entry in the target lot.
// The child copies provenance (shipment link, classification, third-party
// metadata) but starts its own independent history.
func (e *Entry) Split(newID, targetLotID string, quantity decimal.Decimal, actor string, at time.Time) (*Entry, error) {
	if targetLotID == e.LotID {
		return nil, ErrSameLot
	}
	if err := e.ApplyTransferOut(quantity, at); err != nil {
		return nil, err
	}
	child := &Entry{
		ID:              newID,
		LotID:           targetLotID,
		ShipmentID:      e.ShipmentID,
		EntryDate:       e.EntryDate,
		CustomsQuantity: quantity,
		ActualQuantity:  quantity,
		CurrentQuantity: quantity,
		GTIPCode:        e.GTIPCode,
		Description:     e.Description,
		ThirdParty:      e.ThirdParty,
		OwnerName:       e.OwnerName,
		OwnerTaxNo:      e.OwnerTaxNo,
		Status:          StatusInStock,
		CreatedBy:       actor,
		CreatedAt:       at,
		UpdatedAt:       at,
	}
	return child, nil
}

// Archivable reports whether the entry can still be archived (reversed).
// Entries with ledger history are permanent; corrections happen through
// compensating records.
func (e *Entry) Archivable() error {
	if e.Deleted {
		return ErrEntryNotFound
	}
	if e.HasHistory() {
		return ErrEntryHasHistory
	}
	return nil
}

// recalcStatus derives the status from quantities and history. Called
// only after an exit or transfer-out, so in_stock is never a result here.
func (e *Entry) recalcStatus(byTransfer bool) {
	if e.CurrentQuantity.IsZero() {
		if byTransfer {
			e.Status = StatusTransferred
		} else {
			e.Status = StatusExited
		}
		return
	}
	e.Status = StatusPartialExit
}
