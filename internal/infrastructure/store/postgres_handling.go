package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/antrepo/internal/domain/handling"
)

func (p *Postgres) CreateRequest(ctx context.Context, fn func(v TxView) (*handling.Request, error)) (*handling.Request, error) {
	var out *handling.Request
	err := p.withTx(ctx, func(tx *sqlx.Tx) error {
		r, err := fn(&txView{ctx: ctx, tx: tx})
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO handling_requests (id, entry_id, activity_code, priority, quantity_mt,
				planned_date, before_description, after_description, old_gtip, new_gtip, gtip_changed,
				status, requested_by, requested_at, processed_by, picked_up_at, executed_by,
				started_at, completed_at, confirmed_by, confirmed_at, confirm_note,
				result_rejected, result_rejected_by, result_rejected_at, rejection_reason,
				cancel_reason, cancelled_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
				$18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29)`,
			r.ID, r.EntryID, r.Activity, r.Priority, r.Quantity,
			nullTime(r.PlannedDate), r.BeforeDescription, r.AfterDescription, r.OldGTIP, r.NewGTIP, r.GTIPChanged,
			r.Status, r.RequestedBy, r.RequestedAt, r.ProcessedBy, nullTime(r.PickedUpAt), r.ExecutedBy,
			nullTime(r.StartedAt), nullTime(r.CompletedAt), r.ConfirmedBy, nullTime(r.ConfirmedAt), r.ConfirmNote,
			r.ResultRejected, r.ResultRejectedBy, nullTime(r.ResultRejectedAt), r.RejectionReason,
			r.CancelReason, nullTime(r.CancelledAt), r.UpdatedAt); err != nil {
			return fmt.Errorf("insert handling request: %w", err)
		}
		out = r
		return nil
	})
	return out, err
}

func (p *Postgres) GetRequest(ctx context.Context, id string) (*handling.Request, error) {
	var row requestRow
	err := p.db.GetContext(ctx, &row, `SELECT * FROM handling_requests WHERE id = $1`, id)
	if isNoRows(err) {
		return nil, handling.ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get handling request %s: %w", id, err)
	}
	return row.toDomain(), nil
}

func lockRequest(ctx context.Context, tx *sqlx.Tx, id string) (*handling.Request, error) {
	var row requestRow
	err := tx.GetContext(ctx, &row, `SELECT * FROM handling_requests WHERE id = $1 FOR UPDATE`, id)
	if isNoRows(err) {
		return nil, handling.ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock handling request %s: %w", id, err)
	}
	return row.toDomain(), nil
}

func updateRequest(ctx context.Context, tx *sqlx.Tx, r *handling.Request) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE handling_requests SET activity_code = $2, priority = $3, quantity_mt = $4,
			planned_date = $5, before_description = $6, after_description = $7,
			old_gtip = $8, new_gtip = $9, gtip_changed = $10, status = $11,
			processed_by = $12, picked_up_at = $13, executed_by = $14, started_at = $15,
			completed_at = $16, confirmed_by = $17, confirmed_at = $18, confirm_note = $19,
			result_rejected = $20, result_rejected_by = $21, result_rejected_at = $22,
			rejection_reason = $23, cancel_reason = $24, cancelled_at = $25, updated_at = $26
		 WHERE id = $1`,
		r.ID, r.Activity, r.Priority, r.Quantity,
		nullTime(r.PlannedDate), r.BeforeDescription, r.AfterDescription,
		r.OldGTIP, r.NewGTIP, r.GTIPChanged, r.Status,
		r.ProcessedBy, nullTime(r.PickedUpAt), r.ExecutedBy, nullTime(r.StartedAt),
		nullTime(r.CompletedAt), r.ConfirmedBy, nullTime(r.ConfirmedAt), r.ConfirmNote,
		r.ResultRejected, r.ResultRejectedBy, nullTime(r.ResultRejectedAt),
		r.RejectionReason, r.CancelReason, nullTime(r.CancelledAt), r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update handling request %s: %w", r.ID, err)
	}
	return nil
}

func insertPermit(ctx context.Context, tx *sqlx.Tx, pm *handling.Permit) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO permits (id, request_id, permit_type, customs_office, status, applied_at, decided_at, decision_note)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		pm.ID, pm.RequestID, pm.Type, pm.CustomsOffice, pm.Status, pm.AppliedAt, nullTime(pm.DecidedAt), pm.DecisionNote)
	if err != nil {
		return fmt.Errorf("insert permit: %w", err)
	}
	return nil
}

func updatePermit(ctx context.Context, tx *sqlx.Tx, pm *handling.Permit) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE permits SET status = $2, decided_at = $3, decision_note = $4 WHERE id = $1`,
		pm.ID, pm.Status, nullTime(pm.DecidedAt), pm.DecisionNote)
	if err != nil {
		return fmt.Errorf("update permit %s: %w", pm.ID, err)
	}
	return nil
}

func (p *Postgres) applyRequestMutation(ctx context.Context, tx *sqlx.Tx, m *RequestMutation) error {
	if m.Request != nil {
		if err := updateRequest(ctx, tx, m.Request); err != nil {
			return err
		}
	}
	if m.NewPermit != nil {
		if err := insertPermit(ctx, tx, m.NewPermit); err != nil {
			return err
		}
	}
	if m.Permit != nil {
		if err := updatePermit(ctx, tx, m.Permit); err != nil {
			return err
		}
	}
	if m.Entry != nil {
		if err := updateEntry(ctx, tx, m.Entry); err != nil {
			return err
		}
	}
	return nil
}

func (p *Postgres) MutateRequest(ctx context.Context, id string, fn func(v TxView, r *handling.Request, permits []*handling.Permit) (*RequestMutation, error)) (*RequestMutation, error) {
	var out *RequestMutation
	err := p.withTx(ctx, func(tx *sqlx.Tx) error {
		r, err := lockRequest(ctx, tx, id)
		if err != nil {
			return err
		}
		permits, err := listPermitsTx(ctx, tx, id)
		if err != nil {
			return err
		}
		m, err := fn(&txView{ctx: ctx, tx: tx}, r, permits)
		if err != nil {
			return err
		}
		if err := p.applyRequestMutation(ctx, tx, m); err != nil {
			return err
		}
		out = m
		return nil
	})
	return out, err
}

func (p *Postgres) MutatePermit(ctx context.Context, permitID string, fn func(v TxView, pm *handling.Permit, r *handling.Request) (*RequestMutation, error)) (*RequestMutation, error) {
	var out *RequestMutation
	err := p.withTx(ctx, func(tx *sqlx.Tx) error {
		var row permitRow
		err := tx.GetContext(ctx, &row, `SELECT * FROM permits WHERE id = $1 FOR UPDATE`, permitID)
		if isNoRows(err) {
			return handling.ErrPermitNotFound
		}
		if err != nil {
			return fmt.Errorf("lock permit %s: %w", permitID, err)
		}
		pm := row.toDomain()
		r, err := lockRequest(ctx, tx, pm.RequestID)
		if err != nil {
			return err
		}
		m, err := fn(&txView{ctx: ctx, tx: tx}, pm, r)
		if err != nil {
			return err
		}
		if err := p.applyRequestMutation(ctx, tx, m); err != nil {
			return err
		}
		out = m
		return nil
	})
	return out, err
}

func listPermitsTx(ctx context.Context, tx *sqlx.Tx, requestID string) ([]*handling.Permit, error) {
	var rows []permitRow
	err := tx.SelectContext(ctx, &rows,
		`SELECT * FROM permits WHERE request_id = $1 ORDER BY applied_at ASC, id ASC FOR UPDATE`, requestID)
	if err != nil {
		return nil, fmt.Errorf("list permits for %s: %w", requestID, err)
	}
	permits := make([]*handling.Permit, 0, len(rows))
	for i := range rows {
		permits = append(permits, rows[i].toDomain())
	}
	return permits, nil
}

func (p *Postgres) AddCost(ctx context.Context, c *handling.Cost) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO handling_costs (id, request_id, cost_type, amount, currency, note, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.RequestID, c.CostType, c.Amount, c.Currency, c.Note, c.CreatedBy, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert cost: %w", err)
	}
	return nil
}

func (p *Postgres) AddDocument(ctx context.Context, d *handling.Document) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO handling_documents (id, request_id, name, file_ref, deleted, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		d.ID, d.RequestID, d.Name, d.FileRef, d.Deleted, d.CreatedBy, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (p *Postgres) DeleteDocument(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE handling_documents SET deleted = TRUE WHERE id = $1 AND NOT deleted`, id)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return handling.ErrDocumentNotFound
	}
	return nil
}
