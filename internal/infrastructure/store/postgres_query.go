package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/example/antrepo/internal/domain/custody"
	"github.com/example/antrepo/internal/domain/handling"
)

// listQuery accumulates WHERE conditions with ? placeholders; sqlx.In
// expands slice args (visibility scopes) and Rebind converts to $n.
type listQuery struct {
	conds []string
	args  []any
}

func (q *listQuery) where(cond string, args ...any) {
	q.conds = append(q.conds, cond)
	q.args = append(q.args, args...)
}

func (q *listQuery) clause() string {
	if len(q.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(q.conds, " AND ")
}

// applyScope appends the caller-supplied visibility predicate. Returns
// false when the scope denies everything, in which case the query must
// not run at all.
func (q *listQuery) applyScope(s Scope) bool {
	if s.DenyAll {
		return false
	}
	if s.Clause != "" {
		q.where(s.Clause, s.Args...)
	}
	return true
}

func (p *Postgres) runList(ctx context.Context, dest any, selectSQL, countSQL string, q *listQuery, orderLimit string, page PageRequest) (int, error) {
	where := q.clause()

	countQuery, countArgs, err := sqlx.In(countSQL+where, q.args...)
	if err != nil {
		return 0, fmt.Errorf("build count query: %w", err)
	}
	var total int
	if err := p.db.GetContext(ctx, &total, p.db.Rebind(countQuery), countArgs...); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}

	page = page.Normalize()
	args := append(append([]any{}, q.args...), page.Limit, page.Offset())
	listSQL, listArgs, err := sqlx.In(selectSQL+where+orderLimit, args...)
	if err != nil {
		return 0, fmt.Errorf("build list query: %w", err)
	}
	if err := p.db.SelectContext(ctx, dest, p.db.Rebind(listSQL), listArgs...); err != nil {
		return 0, fmt.Errorf("list: %w", err)
	}
	return total, nil
}

type lotViewRow struct {
	lotRow
	Occupied decimal.Decimal `db:"occupied_mt"`
}

func (p *Postgres) ListLots(ctx context.Context, f LotFilter) ([]*LotView, int, error) {
	q := &listQuery{}
	if !q.applyScope(f.Scope) {
		return []*LotView{}, 0, nil
	}
	if f.WarehouseID != "" {
		q.where("l.warehouse_id = ?", f.WarehouseID)
	}
	if f.Active != nil {
		q.where("l.active = ?", *f.Active)
	}
	if f.Search != "" {
		q.where("l.code ILIKE ?", "%"+f.Search+"%")
	}

	selectSQL := `SELECT l.id, l.warehouse_id, l.code, l.capacity_mt, l.lot_type, l.active,
			l.created_at, l.updated_at,
			COALESCE((SELECT SUM(e.current_quantity_mt) FROM entries e
				WHERE e.lot_id = l.id AND NOT e.deleted
				AND e.status IN ('in_stock', 'partial_exit')), 0) AS occupied_mt
		FROM lots l`
	countSQL := `SELECT COUNT(*) FROM lots l`
	orderLimit := ` ORDER BY l.code ASC, l.id ASC LIMIT ? OFFSET ?`

	var rows []lotViewRow
	total, err := p.runList(ctx, &rows, selectSQL, countSQL, q, orderLimit, f.Page)
	if err != nil {
		return nil, 0, err
	}
	views := make([]*LotView, 0, len(rows))
	for i := range rows {
		views = append(views, &LotView{Lot: *rows[i].lotRow.toDomain(), Occupied: rows[i].Occupied})
	}
	return views, total, nil
}

func (p *Postgres) ListEntries(ctx context.Context, f EntryFilter) ([]*custody.Entry, int, error) {
	q := &listQuery{}
	if !q.applyScope(f.Scope) {
		return []*custody.Entry{}, 0, nil
	}
	q.where("NOT e.deleted")
	if f.LotID != "" {
		q.where("e.lot_id = ?", f.LotID)
	}
	if f.WarehouseID != "" {
		q.where("l.warehouse_id = ?", f.WarehouseID)
	}
	if f.Status != "" {
		q.where("e.status = ?", string(f.Status))
	}
	if f.ThirdParty != nil {
		q.where("e.third_party = ?", *f.ThirdParty)
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		q.where("(e.gtip_code ILIKE ? OR e.description ILIKE ? OR e.owner_name ILIKE ?)", like, like, like)
	}
	if f.From != nil {
		q.where("e.entry_date >= ?", *f.From)
	}
	if f.To != nil {
		q.where("e.entry_date <= ?", *f.To)
	}

	selectSQL := `SELECT e.* FROM entries e JOIN lots l ON l.id = e.lot_id`
	countSQL := `SELECT COUNT(*) FROM entries e JOIN lots l ON l.id = e.lot_id`
	orderLimit := ` ORDER BY e.entry_date DESC, e.id ASC LIMIT ? OFFSET ?`

	var rows []entryRow
	total, err := p.runList(ctx, &rows, selectSQL, countSQL, q, orderLimit, f.Page)
	if err != nil {
		return nil, 0, err
	}
	entries := make([]*custody.Entry, 0, len(rows))
	for i := range rows {
		entries = append(entries, rows[i].toDomain())
	}
	return entries, total, nil
}

func (p *Postgres) ListExits(ctx context.Context, f ExitFilter) ([]*custody.Exit, int, error) {
	q := &listQuery{}
	if !q.applyScope(f.Scope) {
		return []*custody.Exit{}, 0, nil
	}
	if f.EntryID != "" {
		q.where("x.entry_id = ?", f.EntryID)
	}
	if f.Kind != "" {
		q.where("x.kind = ?", string(f.Kind))
	}
	if f.From != nil {
		q.where("x.exit_date >= ?", *f.From)
	}
	if f.To != nil {
		q.where("x.exit_date <= ?", *f.To)
	}

	selectSQL := `SELECT x.* FROM exits x JOIN entries e ON e.id = x.entry_id JOIN lots l ON l.id = e.lot_id`
	countSQL := `SELECT COUNT(*) FROM exits x JOIN entries e ON e.id = x.entry_id JOIN lots l ON l.id = e.lot_id`
	orderLimit := ` ORDER BY x.exit_date DESC, x.id ASC LIMIT ? OFFSET ?`

	var rows []exitRow
	total, err := p.runList(ctx, &rows, selectSQL, countSQL, q, orderLimit, f.Page)
	if err != nil {
		return nil, 0, err
	}
	exits := make([]*custody.Exit, 0, len(rows))
	for i := range rows {
		x, err := rows[i].toDomain()
		if err != nil {
			return nil, 0, err
		}
		exits = append(exits, x)
	}
	return exits, total, nil
}

func (p *Postgres) ListRequests(ctx context.Context, f RequestFilter) ([]*handling.Request, int, error) {
	q := &listQuery{}
	if !q.applyScope(f.Scope) {
		return []*handling.Request{}, 0, nil
	}
	if f.EntryID != "" {
		q.where("r.entry_id = ?", f.EntryID)
	}
	if f.Status != "" {
		q.where("r.status = ?", string(f.Status))
	}
	if f.Activity != "" {
		q.where("r.activity_code = ?", string(f.Activity))
	}

	selectSQL := `SELECT r.* FROM handling_requests r JOIN entries e ON e.id = r.entry_id JOIN lots l ON l.id = e.lot_id`
	countSQL := `SELECT COUNT(*) FROM handling_requests r JOIN entries e ON e.id = r.entry_id JOIN lots l ON l.id = e.lot_id`
	orderLimit := ` ORDER BY r.requested_at DESC, r.id ASC LIMIT ? OFFSET ?`

	var rows []requestRow
	total, err := p.runList(ctx, &rows, selectSQL, countSQL, q, orderLimit, f.Page)
	if err != nil {
		return nil, 0, err
	}
	requests := make([]*handling.Request, 0, len(rows))
	for i := range rows {
		requests = append(requests, rows[i].toDomain())
	}
	return requests, total, nil
}

func (p *Postgres) ListPermits(ctx context.Context, requestID string) ([]*handling.Permit, error) {
	var rows []permitRow
	err := p.db.SelectContext(ctx, &rows,
		`SELECT * FROM permits WHERE request_id = $1 ORDER BY applied_at ASC, id ASC`, requestID)
	if err != nil {
		return nil, fmt.Errorf("list permits for %s: %w", requestID, err)
	}
	permits := make([]*handling.Permit, 0, len(rows))
	for i := range rows {
		permits = append(permits, rows[i].toDomain())
	}
	return permits, nil
}

func (p *Postgres) ListCosts(ctx context.Context, requestID string) ([]*handling.Cost, error) {
	var rows []costRow
	err := p.db.SelectContext(ctx, &rows,
		`SELECT * FROM handling_costs WHERE request_id = $1 ORDER BY created_at ASC, id ASC`, requestID)
	if err != nil {
		return nil, fmt.Errorf("list costs for %s: %w", requestID, err)
	}
	costs := make([]*handling.Cost, 0, len(rows))
	for i := range rows {
		costs = append(costs, rows[i].toDomain())
	}
	return costs, nil
}

func (p *Postgres) ListDocuments(ctx context.Context, requestID string) ([]*handling.Document, error) {
	var rows []documentRow
	err := p.db.SelectContext(ctx, &rows,
		`SELECT * FROM handling_documents WHERE request_id = $1 AND NOT deleted ORDER BY created_at ASC, id ASC`, requestID)
	if err != nil {
		return nil, fmt.Errorf("list documents for %s: %w", requestID, err)
	}
	docs := make([]*handling.Document, 0, len(rows))
	for i := range rows {
		docs = append(docs, rows[i].toDomain())
	}
	return docs, nil
}
