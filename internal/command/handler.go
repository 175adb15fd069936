package command

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/example/antrepo/internal/domain/custody"
	"github.com/example/antrepo/internal/domain/lot"
	"github.com/example/antrepo/internal/infrastructure/store"
	"github.com/example/antrepo/internal/notification"
)

// Handler executes mutating operations against the custody ledger and
// the handling workflow. Every operation is one store transaction;
// notifications are emitted only after the transaction committed.
type Handler struct {
	ledger    store.LedgerStoreInterface
	handling  store.HandlingStoreInterface
	shipments store.ShipmentStoreInterface
	notifier  *notification.Notifier
}

func NewHandler(
	ledger store.LedgerStoreInterface,
	handling store.HandlingStoreInterface,
	shipments store.ShipmentStoreInterface,
	notifier *notification.Notifier,
) *Handler {
	return &Handler{
		ledger:    ledger,
		handling:  handling,
		shipments: shipments,
		notifier:  notifier,
	}
}

// audit writes the uniform audit log line for a mutating operation.
func audit(actor, op, entity string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	log.Printf("[Audit] actor=%s op=%s entity=%s outcome=%s", actor, op, entity, outcome)
}

// TransferResult reports both sides of a transfer: the mutated source
// entry and, for partial transfers, the entry created in the target lot.
type TransferResult struct {
	Source  *custody.Entry `json:"source"`
	Created *custody.Entry `json:"created,omitempty"`
}

// CreateLot registers a new lot
func (h *Handler) CreateLot(ctx context.Context, cmd CreateLot) (*lot.Lot, error) {
	now := time.Now()
	l := &lot.Lot{
		ID:          uuid.New().String(),
		WarehouseID: cmd.WarehouseID,
		Code:        cmd.Code,
		Capacity:    cmd.Capacity,
		Type:        cmd.Type,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	err := h.ledger.CreateLot(ctx, l)
	audit(cmd.Actor, "create_lot", l.ID, err)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// UpdateLot applies a patch to a lot
func (h *Handler) UpdateLot(ctx context.Context, cmd UpdateLot) (*lot.Lot, error) {
	l, err := h.ledger.MutateLot(ctx, cmd.LotID, func(l *lot.Lot) error {
		return l.ApplyPatch(cmd.Patch, time.Now())
	})
	audit(cmd.Actor, "update_lot", cmd.LotID, err)
	return l, err
}

// CreateEntry takes goods into custody. When a shipment id is given the
// declared cargo data backfills whatever the caller left blank.
func (h *Handler) CreateEntry(ctx context.Context, cmd CreateEntry) (*custody.Entry, error) {
	if cmd.ShipmentID != nil {
		cargo, err := h.shipments.GetCargo(ctx, *cmd.ShipmentID)
		if err != nil {
			return nil, err
		}
		if cmd.GTIPCode == "" {
			cmd.GTIPCode = cargo.GTIPCode
		}
		if cmd.Description == "" {
			cmd.Description = cargo.Description
		}
		if cmd.CustomsQuantity.IsZero() {
			cmd.CustomsQuantity = cargo.Quantity
		}
	}

	now := time.Now()
	entryDate := cmd.EntryDate
	if entryDate.IsZero() {
		entryDate = now
	}

	e, err := h.ledger.CreateEntry(ctx, func(v store.TxView) (*custody.Entry, error) {
		l, err := v.Lot(cmd.LotID)
		if err != nil {
			return nil, err
		}
		if !l.Active {
			return nil, lot.ErrLotInactive
		}
		occupied, err := v.LotOccupancy(l.ID)
		if err != nil {
			return nil, err
		}
		if err := l.CheckCapacity(occupied, cmd.ActualQuantity); err != nil {
			return nil, err
		}

		e := &custody.Entry{
			ID:              uuid.New().String(),
			LotID:           cmd.LotID,
			ShipmentID:      cmd.ShipmentID,
			EntryDate:       entryDate,
			CustomsQuantity: cmd.CustomsQuantity,
			ActualQuantity:  cmd.ActualQuantity,
			CurrentQuantity: cmd.ActualQuantity,
			BagCount:        cmd.BagCount,
			ContainerCount:  cmd.ContainerCount,
			GTIPCode:        cmd.GTIPCode,
			Description:     cmd.Description,
			ThirdParty:      cmd.ThirdParty,
			OwnerName:       cmd.OwnerName,
			OwnerTaxNo:      cmd.OwnerTaxNo,
			Status:          custody.StatusInStock,
			CreatedBy:       cmd.Actor,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := e.Validate(); err != nil {
			return nil, err
		}
		return e, nil
	})
	audit(cmd.Actor, "create_entry", cmd.LotID, err)
	if err != nil {
		return nil, err
	}

	h.notifier.Emit(notification.EventEntryCreated, e.ID, cmd.Actor, notification.EntryCreated{
		EntryID:  e.ID,
		LotID:    e.LotID,
		Quantity: e.ActualQuantity,
	})
	return e, nil
}

// Transfer moves quantity from an entry into another lot of the same
// warehouse, as a full move or a split.
func (h *Handler) Transfer(ctx context.Context, cmd Transfer) (*TransferResult, error) {
	now := time.Now()
	m, err := h.ledger.MutateEntry(ctx, cmd.EntryID, func(v store.TxView, e *custody.Entry) (*store.EntryMutation, error) {
		source, err := v.Lot(e.LotID)
		if err != nil {
			return nil, err
		}
		target, err := v.Lot(cmd.TargetLotID)
		if err != nil {
			return nil, err
		}
		if target.ID == source.ID {
			return nil, custody.ErrSameLot
		}
		if !target.Active {
			return nil, lot.ErrLotInactive
		}
		if target.WarehouseID != source.WarehouseID {
			return nil, custody.ErrCrossWarehouse
		}

		quantity := e.CurrentQuantity
		if cmd.Quantity != nil {
			if !cmd.Quantity.IsPositive() {
				return nil, custody.ErrInvalidQuantity
			}
			quantity = *cmd.Quantity
		}
		occupied, err := v.LotOccupancy(target.ID)
		if err != nil {
			return nil, err
		}
		if err := target.CheckCapacity(occupied, quantity); err != nil {
			return nil, err
		}

		if quantity.Equal(e.CurrentQuantity) {
			if err := e.MoveToLot(target.ID, now); err != nil {
				return nil, err
			}
			return &store.EntryMutation{Entry: e}, nil
		}

		created, err := e.Split(uuid.New().String(), target.ID, quantity, cmd.Actor, now)
		if err != nil {
			return nil, err
		}
		return &store.EntryMutation{Entry: e, NewEntry: created}, nil
	})
	audit(cmd.Actor, "transfer", cmd.EntryID, err)
	if err != nil {
		return nil, err
	}

	result := &TransferResult{Source: m.Entry, Created: m.NewEntry}
	moved := m.Entry.CurrentQuantity
	newID := ""
	if m.NewEntry != nil {
		moved = m.NewEntry.ActualQuantity
		newID = m.NewEntry.ID
	}
	h.notifier.Emit(notification.EventTransferRecorded, cmd.EntryID, cmd.Actor, notification.TransferRecorded{
		EntryID:    cmd.EntryID,
		NewEntryID: newID,
		TargetLot:  cmd.TargetLotID,
		Quantity:   moved,
	})
	return result, nil
}

// RecordExit draws quantity out of custody with a typed exit record.
func (h *Handler) RecordExit(ctx context.Context, cmd RecordExit) (*custody.Exit, error) {
	now := time.Now()
	exitDate := cmd.ExitDate
	if exitDate.IsZero() {
		exitDate = now
	}

	m, err := h.ledger.MutateEntry(ctx, cmd.EntryID, func(v store.TxView, e *custody.Entry) (*store.EntryMutation, error) {
		x := &custody.Exit{
			ID:               uuid.New().String(),
			EntryID:          e.ID,
			ExitDate:         exitDate,
			Kind:             cmd.Kind,
			Quantity:         cmd.Quantity,
			DeclaredQuantity: cmd.DeclaredQuantity,
			DeclarationNo:    cmd.DeclarationNo,
			Transit:          cmd.Transit,
			Port:             cmd.Port,
			Domestic:         cmd.Domestic,
			CreatedBy:        cmd.Actor,
			CreatedAt:        now,
		}
		x.Normalize()
		if err := x.Validate(); err != nil {
			return nil, err
		}
		if err := e.ApplyExit(x.Quantity, now); err != nil {
			return nil, err
		}
		return &store.EntryMutation{Entry: e, Exit: x}, nil
	})
	audit(cmd.Actor, "record_exit", cmd.EntryID, err)
	if err != nil {
		return nil, err
	}

	h.notifier.Emit(notification.EventExitRecorded, cmd.EntryID, cmd.Actor, notification.ExitRecorded{
		EntryID:   cmd.EntryID,
		ExitID:    m.Exit.ID,
		Kind:      string(m.Exit.Kind),
		Quantity:  m.Exit.Quantity,
		Remaining: m.Entry.CurrentQuantity,
	})
	return m.Exit, nil
}

// ArchiveEntry reverses a mistaken intake: only entries with no exit or
// transfer history can go, and the originating shipment is reverted in
// the same transaction.
func (h *Handler) ArchiveEntry(ctx context.Context, cmd ArchiveEntry) error {
	var shipmentID string
	err := h.ledger.ArchiveEntry(ctx, cmd.EntryID, func(e *custody.Entry) error {
		if e.ShipmentID != nil {
			shipmentID = *e.ShipmentID
		}
		return e.Archivable()
	})
	audit(cmd.Actor, "archive_entry", cmd.EntryID, err)
	if err != nil {
		return err
	}

	h.notifier.Emit(notification.EventEntryArchived, cmd.EntryID, cmd.Actor, notification.EntryArchived{
		EntryID:    cmd.EntryID,
		ShipmentID: shipmentID,
	})
	return nil
}

// PendingArrivals lists shipments waiting to be taken into custody.
func (h *Handler) PendingArrivals(ctx context.Context, scope store.Scope, page store.PageRequest) ([]*store.Arrival, int, error) {
	return h.shipments.PendingArrivals(ctx, scope, page)
}
