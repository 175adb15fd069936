package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type shipmentRow struct {
	ID          string          `db:"id"`
	WarehouseID string          `db:"warehouse_id"`
	Description string          `db:"description"`
	GTIPCode    string          `db:"gtip_code"`
	Quantity    decimal.Decimal `db:"quantity_mt"`
	ETA         sql.NullTime    `db:"eta"`
}

// GetCargo reads the declared cargo data of a shipment for entry
// backfill.
func (p *Postgres) GetCargo(ctx context.Context, shipmentID string) (*Cargo, error) {
	var row shipmentRow
	err := p.db.GetContext(ctx, &row,
		`SELECT id, warehouse_id, description, gtip_code, quantity_mt, eta
		 FROM shipments WHERE id = $1`, shipmentID)
	if isNoRows(err) {
		return nil, ErrShipmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get shipment %s: %w", shipmentID, err)
	}
	return &Cargo{
		ShipmentID:  row.ID,
		Description: row.Description,
		GTIPCode:    row.GTIPCode,
		Quantity:    row.Quantity,
	}, nil
}

// PendingArrivals lists shipments flagged for custody that have no live
// entry yet, scoped to the caller's warehouses.
func (p *Postgres) PendingArrivals(ctx context.Context, scope Scope, page PageRequest) ([]*Arrival, int, error) {
	q := &listQuery{}
	if scope.DenyAll {
		return []*Arrival{}, 0, nil
	}
	q.where("s.flagged_for_custody")
	q.where(`NOT EXISTS (SELECT 1 FROM entries e WHERE e.shipment_id = s.id AND NOT e.deleted)`)
	if scope.Clause != "" {
		// Shipments carry the warehouse directly, so the lot-aliased
		// predicate cannot be applied as-is. Rewrite it onto the shipment
		// row via the id list; a predicate we cannot rewrite fails closed.
		ids, ok := scope.WarehouseIDs()
		if !ok {
			return []*Arrival{}, 0, nil
		}
		q.where("s.warehouse_id IN (?)", ids)
	}

	selectSQL := `SELECT s.id, s.warehouse_id, s.description, s.gtip_code, s.quantity_mt, s.eta FROM shipments s`
	countSQL := `SELECT COUNT(*) FROM shipments s`
	orderLimit := ` ORDER BY s.eta ASC NULLS LAST, s.id ASC LIMIT ? OFFSET ?`

	var rows []shipmentRow
	total, err := p.runList(ctx, &rows, selectSQL, countSQL, q, orderLimit, page)
	if err != nil {
		return nil, 0, err
	}
	arrivals := make([]*Arrival, 0, len(rows))
	for i := range rows {
		var eta *time.Time
		if rows[i].ETA.Valid {
			t := rows[i].ETA.Time
			eta = &t
		}
		arrivals = append(arrivals, &Arrival{
			ShipmentID:  rows[i].ID,
			WarehouseID: rows[i].WarehouseID,
			Description: rows[i].Description,
			GTIPCode:    rows[i].GTIPCode,
			Quantity:    rows[i].Quantity,
			ETA:         eta,
		})
	}
	return arrivals, total, nil
}
