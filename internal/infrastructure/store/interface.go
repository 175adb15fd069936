package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/antrepo/internal/domain/custody"
	"github.com/example/antrepo/internal/domain/handling"
	"github.com/example/antrepo/internal/domain/lot"
)

var (
	ErrShipmentNotFound = errors.New("shipment not found")
	ErrTxTimeout        = errors.New("transaction timed out, retry the operation")
)

// TxView gives guard code row-locked reads inside the surrounding
// transaction. Every row returned here stays locked until commit, so a
// guard evaluated against it cannot race a concurrent mutation.
type TxView interface {
	Lot(id string) (*lot.Lot, error)
	LotOccupancy(lotID string) (decimal.Decimal, error)
	Entry(id string) (*custody.Entry, error)
}

// EntryMutation is the write set produced by a custody mutation. Entry is
// always written back; NewEntry (partial transfer) and Exit are inserted
// when present. The store persists the whole set in one transaction.
type EntryMutation struct {
	Entry    *custody.Entry
	NewEntry *custody.Entry
	Exit     *custody.Exit
}

// RequestMutation is the write set of a handling-workflow transition.
// Non-nil fields are persisted together: Request updated, NewPermit
// inserted, Permit updated, Entry updated (confirm applying the staged
// classification change).
type RequestMutation struct {
	Request   *handling.Request
	NewPermit *handling.Permit
	Permit    *handling.Permit
	Entry     *custody.Entry
}

// LedgerStoreInterface owns lots and custody entries. Mutations run the
// callback against row-locked state and persist its result atomically; a
// callback error rolls everything back without side effects.
type LedgerStoreInterface interface {
	CreateLot(ctx context.Context, l *lot.Lot) error
	GetLot(ctx context.Context, id string) (*lot.Lot, error)
	MutateLot(ctx context.Context, id string, fn func(l *lot.Lot) error) (*lot.Lot, error)

	CreateEntry(ctx context.Context, fn func(v TxView) (*custody.Entry, error)) (*custody.Entry, error)
	GetEntry(ctx context.Context, id string) (*custody.Entry, error)
	MutateEntry(ctx context.Context, id string, fn func(v TxView, e *custody.Entry) (*EntryMutation, error)) (*EntryMutation, error)

	// ArchiveEntry soft-deletes the entry once the guard passes and, in
	// the same transaction, reverts the originating shipment to its
	// pre-custody state and clears its delivery confirmation markers.
	ArchiveEntry(ctx context.Context, id string, guard func(e *custody.Entry) error) error
}

// HandlingStoreInterface owns handling requests, permits, costs and
// documents.
type HandlingStoreInterface interface {
	CreateRequest(ctx context.Context, fn func(v TxView) (*handling.Request, error)) (*handling.Request, error)
	GetRequest(ctx context.Context, id string) (*handling.Request, error)
	MutateRequest(ctx context.Context, id string, fn func(v TxView, r *handling.Request, permits []*handling.Permit) (*RequestMutation, error)) (*RequestMutation, error)
	MutatePermit(ctx context.Context, permitID string, fn func(v TxView, p *handling.Permit, r *handling.Request) (*RequestMutation, error)) (*RequestMutation, error)

	AddCost(ctx context.Context, c *handling.Cost) error
	AddDocument(ctx context.Context, d *handling.Document) error
	DeleteDocument(ctx context.Context, id string) error
}

// Cargo is the declared cargo data of a shipment, read for entry
// backfill. The shipment lifecycle itself is an external collaborator.
type Cargo struct {
	ShipmentID  string          `json:"shipment_id"`
	Description string          `json:"description"`
	GTIPCode    string          `json:"gtip_code"`
	Quantity    decimal.Decimal `json:"quantity_mt"`
}

// Arrival is a shipment flagged for custody that has no live entry yet.
type Arrival struct {
	ShipmentID  string          `json:"shipment_id"`
	WarehouseID string          `json:"warehouse_id"`
	Description string          `json:"description"`
	GTIPCode    string          `json:"gtip_code"`
	Quantity    decimal.Decimal `json:"quantity_mt"`
	ETA         *time.Time      `json:"eta,omitempty"`
}

type ShipmentStoreInterface interface {
	GetCargo(ctx context.Context, shipmentID string) (*Cargo, error)
	PendingArrivals(ctx context.Context, scope Scope, page PageRequest) ([]*Arrival, int, error)
}

// LotView is a lot with its live occupancy: the sum of current quantity
// over non-deleted, non-terminal entries in the lot.
type LotView struct {
	lot.Lot
	Occupied decimal.Decimal `json:"occupied_mt"`
}

// QueryStoreInterface serves the read side: filtered, paginated,
// visibility-scoped listings plus plain reads.
type QueryStoreInterface interface {
	ListLots(ctx context.Context, f LotFilter) ([]*LotView, int, error)
	ListEntries(ctx context.Context, f EntryFilter) ([]*custody.Entry, int, error)
	ListExits(ctx context.Context, f ExitFilter) ([]*custody.Exit, int, error)
	ListRequests(ctx context.Context, f RequestFilter) ([]*handling.Request, int, error)

	GetLot(ctx context.Context, id string) (*lot.Lot, error)
	GetEntry(ctx context.Context, id string) (*custody.Entry, error)
	GetRequest(ctx context.Context, id string) (*handling.Request, error)
	ListPermits(ctx context.Context, requestID string) ([]*handling.Permit, error)
	ListCosts(ctx context.Context, requestID string) ([]*handling.Cost, error)
	ListDocuments(ctx context.Context, requestID string) ([]*handling.Document, error)
}
