package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/example/antrepo/internal/domain/custody"
	"github.com/example/antrepo/internal/domain/lot"
)

// txView implements TxView with SELECT ... FOR UPDATE reads, so every
// row a guard inspects stays locked until the transaction commits.
type txView struct {
	ctx context.Context
	tx  *sqlx.Tx
}

func (v *txView) Lot(id string) (*lot.Lot, error) {
	var row lotRow
	err := v.tx.GetContext(v.ctx, &row,
		`SELECT id, warehouse_id, code, capacity_mt, lot_type, active, created_at, updated_at
		 FROM lots WHERE id = $1 FOR UPDATE`, id)
	if isNoRows(err) {
		return nil, lot.ErrLotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock lot %s: %w", id, err)
	}
	return row.toDomain(), nil
}

func (v *txView) LotOccupancy(lotID string) (decimal.Decimal, error) {
	var occupied decimal.Decimal
	err := v.tx.GetContext(v.ctx, &occupied,
		`SELECT COALESCE(SUM(current_quantity_mt), 0)
		 FROM entries
		 WHERE lot_id = $1 AND NOT deleted AND status IN ($2, $3)`,
		lotID, custody.StatusInStock, custody.StatusPartialExit)
	if err != nil {
		return decimal.Zero, fmt.Errorf("lot occupancy %s: %w", lotID, err)
	}
	return occupied, nil
}

func (v *txView) Entry(id string) (*custody.Entry, error) {
	var row entryRow
	err := v.tx.GetContext(v.ctx, &row,
		`SELECT * FROM entries WHERE id = $1 AND NOT deleted FOR UPDATE`, id)
	if isNoRows(err) {
		return nil, custody.ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock entry %s: %w", id, err)
	}
	return row.toDomain(), nil
}

// ---- Lots ----

func (p *Postgres) CreateLot(ctx context.Context, l *lot.Lot) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO lots (id, warehouse_id, code, capacity_mt, lot_type, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		l.ID, l.WarehouseID, l.Code, lotCapacityParam(l), l.Type, l.Active, l.CreatedAt, l.UpdatedAt)
	if isUniqueViolation(err) {
		return lot.ErrDuplicateCode
	}
	if err != nil {
		return fmt.Errorf("insert lot: %w", err)
	}
	return nil
}

func (p *Postgres) GetLot(ctx context.Context, id string) (*lot.Lot, error) {
	var row lotRow
	err := p.db.GetContext(ctx, &row,
		`SELECT id, warehouse_id, code, capacity_mt, lot_type, active, created_at, updated_at
		 FROM lots WHERE id = $1`, id)
	if isNoRows(err) {
		return nil, lot.ErrLotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get lot %s: %w", id, err)
	}
	return row.toDomain(), nil
}

func (p *Postgres) MutateLot(ctx context.Context, id string, fn func(l *lot.Lot) error) (*lot.Lot, error) {
	var out *lot.Lot
	err := p.withTx(ctx, func(tx *sqlx.Tx) error {
		v := &txView{ctx: ctx, tx: tx}
		l, err := v.Lot(id)
		if err != nil {
			return err
		}
		if err := fn(l); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE lots SET code = $2, capacity_mt = $3, lot_type = $4, active = $5, updated_at = $6
			 WHERE id = $1`,
			l.ID, l.Code, lotCapacityParam(l), l.Type, l.Active, l.UpdatedAt)
		if isUniqueViolation(err) {
			return lot.ErrDuplicateCode
		}
		if err != nil {
			return fmt.Errorf("update lot %s: %w", id, err)
		}
		out = l
		return nil
	})
	return out, err
}

// ---- Entries ----

func (p *Postgres) CreateEntry(ctx context.Context, fn func(v TxView) (*custody.Entry, error)) (*custody.Entry, error) {
	var out *custody.Entry
	err := p.withTx(ctx, func(tx *sqlx.Tx) error {
		e, err := fn(&txView{ctx: ctx, tx: tx})
		if err != nil {
			return err
		}
		if err := insertEntry(ctx, tx, e); err != nil {
			return err
		}
		out = e
		return nil
	})
	return out, err
}

func insertEntry(ctx context.Context, tx *sqlx.Tx, e *custody.Entry) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO entries (id, lot_id, shipment_id, entry_date,
			customs_quantity_mt, actual_quantity_mt, current_quantity_mt,
			bag_count, container_count, gtip_code, description,
			third_party, owner_name, owner_tax_no, status,
			exit_count, transfer_count, deleted, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
		e.ID, e.LotID, nullStr(e.ShipmentID), e.EntryDate,
		e.CustomsQuantity, e.ActualQuantity, e.CurrentQuantity,
		nullInt(e.BagCount), nullInt(e.ContainerCount), e.GTIPCode, e.Description,
		e.ThirdParty, e.OwnerName, e.OwnerTaxNo, e.Status,
		e.ExitCount, e.TransferCount, e.Deleted, e.CreatedBy, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

func updateEntry(ctx context.Context, tx *sqlx.Tx, e *custody.Entry) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE entries SET lot_id = $2, current_quantity_mt = $3, status = $4,
			exit_count = $5, transfer_count = $6, gtip_code = $7, updated_at = $8
		 WHERE id = $1`,
		e.ID, e.LotID, e.CurrentQuantity, e.Status,
		e.ExitCount, e.TransferCount, e.GTIPCode, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update entry %s: %w", e.ID, err)
	}
	return nil
}

func (p *Postgres) GetEntry(ctx context.Context, id string) (*custody.Entry, error) {
	var row entryRow
	err := p.db.GetContext(ctx, &row,
		`SELECT * FROM entries WHERE id = $1 AND NOT deleted`, id)
	if isNoRows(err) {
		return nil, custody.ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get entry %s: %w", id, err)
	}
	return row.toDomain(), nil
}

func (p *Postgres) MutateEntry(ctx context.Context, id string, fn func(v TxView, e *custody.Entry) (*EntryMutation, error)) (*EntryMutation, error) {
	var out *EntryMutation
	err := p.withTx(ctx, func(tx *sqlx.Tx) error {
		v := &txView{ctx: ctx, tx: tx}
		e, err := v.Entry(id)
		if err != nil {
			return err
		}
		m, err := fn(v, e)
		if err != nil {
			return err
		}
		if m.Entry != nil {
			if err := updateEntry(ctx, tx, m.Entry); err != nil {
				return err
			}
		}
		if m.NewEntry != nil {
			if err := insertEntry(ctx, tx, m.NewEntry); err != nil {
				return err
			}
		}
		if m.Exit != nil {
			if err := insertExit(ctx, tx, m.Exit); err != nil {
				return err
			}
		}
		out = m
		return nil
	})
	return out, err
}

func insertExit(ctx context.Context, tx *sqlx.Tx, x *custody.Exit) error {
	detail, err := exitDetailJSON(x)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO exits (id, entry_id, exit_date, kind, quantity_mt,
			declared_quantity_mt, declaration_no, detail, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		x.ID, x.EntryID, x.ExitDate, x.Kind, x.Quantity,
		x.DeclaredQuantity, x.DeclarationNo, detail, x.CreatedBy, x.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert exit: %w", err)
	}
	return nil
}

// ArchiveEntry soft-deletes the entry and reverts its originating
// shipment to the pending_arrival state, clearing delivery confirmation.
// One transaction: either the whole reversal happens or none of it.
func (p *Postgres) ArchiveEntry(ctx context.Context, id string, guard func(e *custody.Entry) error) error {
	return p.withTx(ctx, func(tx *sqlx.Tx) error {
		v := &txView{ctx: ctx, tx: tx}
		e, err := v.Entry(id)
		if err != nil {
			return err
		}
		if err := guard(e); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE entries SET deleted = TRUE, updated_at = NOW() WHERE id = $1`, id); err != nil {
			return fmt.Errorf("archive entry %s: %w", id, err)
		}
		if e.ShipmentID != nil {
			if _, err := tx.ExecContext(ctx,
				`UPDATE shipments SET status = 'pending_arrival', delivery_confirmed = FALSE
				 WHERE id = $1`, *e.ShipmentID); err != nil {
				return fmt.Errorf("revert shipment %s: %w", *e.ShipmentID, err)
			}
		}
		return nil
	})
}
