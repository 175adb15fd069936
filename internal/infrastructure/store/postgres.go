package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Postgres implements every store interface against one PostgreSQL
// database. All mutating operations lock the rows they read
// (SELECT ... FOR UPDATE) and commit guard + write as one transaction.
type Postgres struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

// Connect opens a PostgreSQL connection pool.
func Connect(connStr string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS lots (
	id           TEXT PRIMARY KEY,
	warehouse_id TEXT NOT NULL,
	code         TEXT NOT NULL,
	capacity_mt  NUMERIC(18,3),
	lot_type     TEXT NOT NULL,
	active       BOOLEAN NOT NULL DEFAULT TRUE,
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL,
	UNIQUE (warehouse_id, code)
);

CREATE TABLE IF NOT EXISTS entries (
	id                  TEXT PRIMARY KEY,
	lot_id              TEXT NOT NULL REFERENCES lots(id),
	shipment_id         TEXT,
	entry_date          TIMESTAMPTZ NOT NULL,
	customs_quantity_mt NUMERIC(18,3) NOT NULL,
	actual_quantity_mt  NUMERIC(18,3) NOT NULL,
	current_quantity_mt NUMERIC(18,3) NOT NULL CHECK (current_quantity_mt >= 0),
	bag_count           INTEGER,
	container_count     INTEGER,
	gtip_code           TEXT NOT NULL DEFAULT '',
	description         TEXT NOT NULL DEFAULT '',
	third_party         BOOLEAN NOT NULL DEFAULT FALSE,
	owner_name          TEXT NOT NULL DEFAULT '',
	owner_tax_no        TEXT NOT NULL DEFAULT '',
	status              TEXT NOT NULL,
	exit_count          INTEGER NOT NULL DEFAULT 0,
	transfer_count      INTEGER NOT NULL DEFAULT 0,
	deleted             BOOLEAN NOT NULL DEFAULT FALSE,
	created_by          TEXT NOT NULL DEFAULT '',
	created_at          TIMESTAMPTZ NOT NULL,
	updated_at          TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_entries_lot ON entries(lot_id);
CREATE INDEX IF NOT EXISTS idx_entries_shipment ON entries(shipment_id);

CREATE TABLE IF NOT EXISTS exits (
	id                   TEXT PRIMARY KEY,
	entry_id             TEXT NOT NULL REFERENCES entries(id),
	exit_date            TIMESTAMPTZ NOT NULL,
	kind                 TEXT NOT NULL,
	quantity_mt          NUMERIC(18,3) NOT NULL,
	declared_quantity_mt NUMERIC(18,3) NOT NULL,
	declaration_no       TEXT NOT NULL DEFAULT '',
	detail               JSONB NOT NULL,
	created_by           TEXT NOT NULL DEFAULT '',
	created_at           TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_exits_entry ON exits(entry_id);

CREATE TABLE IF NOT EXISTS handling_requests (
	id                 TEXT PRIMARY KEY,
	entry_id           TEXT NOT NULL REFERENCES entries(id),
	activity_code      TEXT NOT NULL,
	priority           TEXT NOT NULL,
	quantity_mt        NUMERIC(18,3) NOT NULL,
	planned_date       TIMESTAMPTZ,
	before_description TEXT NOT NULL DEFAULT '',
	after_description  TEXT NOT NULL DEFAULT '',
	old_gtip           TEXT NOT NULL DEFAULT '',
	new_gtip           TEXT NOT NULL DEFAULT '',
	gtip_changed       BOOLEAN NOT NULL DEFAULT FALSE,
	status             TEXT NOT NULL,
	requested_by       TEXT NOT NULL DEFAULT '',
	requested_at       TIMESTAMPTZ NOT NULL,
	processed_by       TEXT NOT NULL DEFAULT '',
	picked_up_at       TIMESTAMPTZ,
	executed_by        TEXT NOT NULL DEFAULT '',
	started_at         TIMESTAMPTZ,
	completed_at       TIMESTAMPTZ,
	confirmed_by       TEXT NOT NULL DEFAULT '',
	confirmed_at       TIMESTAMPTZ,
	confirm_note       TEXT NOT NULL DEFAULT '',
	result_rejected    BOOLEAN NOT NULL DEFAULT FALSE,
	result_rejected_by TEXT NOT NULL DEFAULT '',
	result_rejected_at TIMESTAMPTZ,
	rejection_reason   TEXT NOT NULL DEFAULT '',
	cancel_reason      TEXT NOT NULL DEFAULT '',
	cancelled_at       TIMESTAMPTZ,
	updated_at         TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_handling_entry ON handling_requests(entry_id);

CREATE TABLE IF NOT EXISTS permits (
	id             TEXT PRIMARY KEY,
	request_id     TEXT NOT NULL REFERENCES handling_requests(id),
	permit_type    TEXT NOT NULL DEFAULT '',
	customs_office TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL,
	applied_at     TIMESTAMPTZ NOT NULL,
	decided_at     TIMESTAMPTZ,
	decision_note  TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_permits_request ON permits(request_id);

CREATE TABLE IF NOT EXISTS handling_costs (
	id         TEXT PRIMARY KEY,
	request_id TEXT NOT NULL REFERENCES handling_requests(id),
	cost_type  TEXT NOT NULL,
	amount     NUMERIC(18,2) NOT NULL,
	currency   TEXT NOT NULL,
	note       TEXT NOT NULL DEFAULT '',
	created_by TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS handling_documents (
	id         TEXT PRIMARY KEY,
	request_id TEXT NOT NULL REFERENCES handling_requests(id),
	name       TEXT NOT NULL,
	file_ref   TEXT NOT NULL,
	deleted    BOOLEAN NOT NULL DEFAULT FALSE,
	created_by TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS shipments (
	id                  TEXT PRIMARY KEY,
	warehouse_id        TEXT NOT NULL,
	description         TEXT NOT NULL DEFAULT '',
	gtip_code           TEXT NOT NULL DEFAULT '',
	quantity_mt         NUMERIC(18,3) NOT NULL DEFAULT 0,
	status              TEXT NOT NULL,
	flagged_for_custody BOOLEAN NOT NULL DEFAULT FALSE,
	delivery_confirmed  BOOLEAN NOT NULL DEFAULT FALSE,
	eta                 TIMESTAMPTZ
);
`

// Migrate creates the schema if it does not exist yet.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// withTx runs fn inside a transaction with a bounded lock wait. Lock
// timeouts and context expiry surface as ErrTxTimeout so callers can
// retry instead of holding the operation open.
func (p *Postgres) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "SET LOCAL lock_timeout = '5s'"); err != nil {
		return fmt.Errorf("set lock_timeout: %w", err)
	}

	if err := fn(tx); err != nil {
		return classifyTxErr(err)
	}
	if err := tx.Commit(); err != nil {
		return classifyTxErr(fmt.Errorf("commit: %w", err))
	}
	return nil
}

func classifyTxErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTxTimeout, err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "55P03" { // lock_not_available
		return fmt.Errorf("%w: %v", ErrTxTimeout, err)
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
