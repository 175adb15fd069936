package mocks

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/antrepo/internal/domain/custody"
	"github.com/example/antrepo/internal/domain/handling"
	"github.com/example/antrepo/internal/domain/lot"
	"github.com/example/antrepo/internal/infrastructure/store"
)

// Shipment is the in-memory shipment row used to seed arrival scenarios.
type Shipment struct {
	ID                string
	WarehouseID       string
	Description       string
	GTIPCode          string
	Quantity          decimal.Decimal
	Status            string
	FlaggedForCustody bool
	DeliveryConfirmed bool
	ETA               *time.Time
}

// MockStore is an in-memory implementation of the ledger, handling,
// shipment and query store interfaces for testing. A single mutex
// serializes every mutation, so two goroutines racing the same entry see
// each other's committed state, just like row locks in Postgres.
type MockStore struct {
	mu sync.Mutex

	lots      map[string]*lot.Lot
	entries   map[string]*custody.Entry
	exits     map[string]*custody.Exit
	requests  map[string]*handling.Request
	permits   map[string]*handling.Permit
	costs     []*handling.Cost
	documents map[string]*handling.Document
	shipments map[string]*Shipment

	// For injecting failures in tests
	MutateEntryErr   error
	MutateRequestErr error

	// MutateEntryCalls counts entry mutations, including ones whose
	// callback failed.
	MutateEntryCalls int64
}

// NewMockStore creates an empty MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		lots:      make(map[string]*lot.Lot),
		entries:   make(map[string]*custody.Entry),
		exits:     make(map[string]*custody.Exit),
		requests:  make(map[string]*handling.Request),
		permits:   make(map[string]*handling.Permit),
		documents: make(map[string]*handling.Document),
		shipments: make(map[string]*Shipment),
	}
}

// SeedShipment registers a shipment row.
func (m *MockStore) SeedShipment(s *Shipment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.shipments[s.ID] = &cp
}

// ShipmentState returns a copy of the stored shipment, for asserting
// archive reversal.
func (m *MockStore) ShipmentState(id string) (*Shipment, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shipments[id]
	if !ok {
		return nil, false
	}
	cp := *s
	return &cp, true
}

// mockView implements store.TxView against the in-memory maps. The
// caller already holds the store mutex.
type mockView struct {
	m *MockStore
}

func (v *mockView) Lot(id string) (*lot.Lot, error) {
	l, ok := v.m.lots[id]
	if !ok {
		return nil, lot.ErrLotNotFound
	}
	cp := *l
	return &cp, nil
}

func (v *mockView) LotOccupancy(lotID string) (decimal.Decimal, error) {
	return v.m.occupancyLocked(lotID), nil
}

func (v *mockView) Entry(id string) (*custody.Entry, error) {
	e, ok := v.m.entries[id]
	if !ok || e.Deleted {
		return nil, custody.ErrEntryNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *MockStore) occupancyLocked(lotID string) decimal.Decimal {
	occupied := decimal.Zero
	for _, e := range m.entries {
		if e.Deleted || e.LotID != lotID {
			continue
		}
		if e.Status == custody.StatusInStock || e.Status == custody.StatusPartialExit {
			occupied = occupied.Add(e.CurrentQuantity)
		}
	}
	return occupied
}

// ---- Ledger store ----

func (m *MockStore) CreateLot(ctx context.Context, l *lot.Lot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.lots {
		if existing.WarehouseID == l.WarehouseID && existing.Code == l.Code {
			return lot.ErrDuplicateCode
		}
	}
	cp := *l
	m.lots[l.ID] = &cp
	return nil
}

func (m *MockStore) GetLot(ctx context.Context, id string) (*lot.Lot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lots[id]
	if !ok {
		return nil, lot.ErrLotNotFound
	}
	cp := *l
	return &cp, nil
}

func (m *MockStore) MutateLot(ctx context.Context, id string, fn func(l *lot.Lot) error) (*lot.Lot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.lots[id]
	if !ok {
		return nil, lot.ErrLotNotFound
	}
	work := *stored
	if err := fn(&work); err != nil {
		return nil, err
	}
	for _, existing := range m.lots {
		if existing.ID != work.ID && existing.WarehouseID == work.WarehouseID && existing.Code == work.Code {
			return nil, lot.ErrDuplicateCode
		}
	}
	m.lots[id] = &work
	cp := work
	return &cp, nil
}

func (m *MockStore) CreateEntry(ctx context.Context, fn func(v store.TxView) (*custody.Entry, error)) (*custody.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := fn(&mockView{m: m})
	if err != nil {
		return nil, err
	}
	cp := *e
	m.entries[e.ID] = &cp
	return e, nil
}

func (m *MockStore) GetEntry(ctx context.Context, id string) (*custody.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok || e.Deleted {
		return nil, custody.ErrEntryNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *MockStore) MutateEntry(ctx context.Context, id string, fn func(v store.TxView, e *custody.Entry) (*store.EntryMutation, error)) (*store.EntryMutation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MutateEntryCalls++
	if m.MutateEntryErr != nil {
		return nil, m.MutateEntryErr
	}
	stored, ok := m.entries[id]
	if !ok || stored.Deleted {
		return nil, custody.ErrEntryNotFound
	}
	work := *stored
	mut, err := fn(&mockView{m: m}, &work)
	if err != nil {
		return nil, err
	}
	if mut.Entry != nil {
		cp := *mut.Entry
		m.entries[cp.ID] = &cp
	}
	if mut.NewEntry != nil {
		cp := *mut.NewEntry
		m.entries[cp.ID] = &cp
	}
	if mut.Exit != nil {
		cp := *mut.Exit
		m.exits[cp.ID] = &cp
	}
	return mut, nil
}

func (m *MockStore) ArchiveEntry(ctx context.Context, id string, guard func(e *custody.Entry) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.entries[id]
	if !ok || stored.Deleted {
		return custody.ErrEntryNotFound
	}
	work := *stored
	if err := guard(&work); err != nil {
		return err
	}
	stored.Deleted = true
	if stored.ShipmentID != nil {
		if s, ok := m.shipments[*stored.ShipmentID]; ok {
			s.Status = "pending_arrival"
			s.DeliveryConfirmed = false
		}
	}
	return nil
}

// ---- Handling store ----

func (m *MockStore) CreateRequest(ctx context.Context, fn func(v store.TxView) (*handling.Request, error)) (*handling.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, err := fn(&mockView{m: m})
	if err != nil {
		return nil, err
	}
	cp := *r
	m.requests[r.ID] = &cp
	return r, nil
}

func (m *MockStore) GetRequest(ctx context.Context, id string) (*handling.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, handling.ErrRequestNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *MockStore) permitsOfLocked(requestID string) []*handling.Permit {
	var permits []*handling.Permit
	for _, p := range m.permits {
		if p.RequestID == requestID {
			cp := *p
			permits = append(permits, &cp)
		}
	}
	sort.Slice(permits, func(i, j int) bool {
		if !permits[i].AppliedAt.Equal(permits[j].AppliedAt) {
			return permits[i].AppliedAt.Before(permits[j].AppliedAt)
		}
		return permits[i].ID < permits[j].ID
	})
	return permits
}

func (m *MockStore) applyRequestMutationLocked(mut *store.RequestMutation) {
	if mut.Request != nil {
		cp := *mut.Request
		m.requests[cp.ID] = &cp
	}
	if mut.NewPermit != nil {
		cp := *mut.NewPermit
		m.permits[cp.ID] = &cp
	}
	if mut.Permit != nil {
		cp := *mut.Permit
		m.permits[cp.ID] = &cp
	}
	if mut.Entry != nil {
		cp := *mut.Entry
		m.entries[cp.ID] = &cp
	}
}

func (m *MockStore) MutateRequest(ctx context.Context, id string, fn func(v store.TxView, r *handling.Request, permits []*handling.Permit) (*store.RequestMutation, error)) (*store.RequestMutation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.MutateRequestErr != nil {
		return nil, m.MutateRequestErr
	}
	stored, ok := m.requests[id]
	if !ok {
		return nil, handling.ErrRequestNotFound
	}
	work := *stored
	mut, err := fn(&mockView{m: m}, &work, m.permitsOfLocked(id))
	if err != nil {
		return nil, err
	}
	m.applyRequestMutationLocked(mut)
	return mut, nil
}

func (m *MockStore) MutatePermit(ctx context.Context, permitID string, fn func(v store.TxView, p *handling.Permit, r *handling.Request) (*store.RequestMutation, error)) (*store.RequestMutation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.permits[permitID]
	if !ok {
		return nil, handling.ErrPermitNotFound
	}
	permit := *stored
	req, ok := m.requests[permit.RequestID]
	if !ok {
		return nil, handling.ErrRequestNotFound
	}
	workReq := *req
	mut, err := fn(&mockView{m: m}, &permit, &workReq)
	if err != nil {
		return nil, err
	}
	m.applyRequestMutationLocked(mut)
	return mut, nil
}

func (m *MockStore) AddCost(ctx context.Context, c *handling.Cost) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.costs = append(m.costs, &cp)
	return nil
}

func (m *MockStore) AddDocument(ctx context.Context, d *handling.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *d
	m.documents[d.ID] = &cp
	return nil
}

func (m *MockStore) DeleteDocument(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.documents[id]
	if !ok || d.Deleted {
		return handling.ErrDocumentNotFound
	}
	d.Deleted = true
	return nil
}

// ---- Shipment store ----

func (m *MockStore) GetCargo(ctx context.Context, shipmentID string) (*store.Cargo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shipments[shipmentID]
	if !ok {
		return nil, store.ErrShipmentNotFound
	}
	return &store.Cargo{
		ShipmentID:  s.ID,
		Description: s.Description,
		GTIPCode:    s.GTIPCode,
		Quantity:    s.Quantity,
	}, nil
}

func (m *MockStore) PendingArrivals(ctx context.Context, scope store.Scope, page store.PageRequest) ([]*store.Arrival, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if scope.DenyAll {
		return []*store.Arrival{}, 0, nil
	}
	var arrivals []*store.Arrival
	for _, s := range m.shipments {
		if !s.FlaggedForCustody || !scope.Allows(s.WarehouseID) {
			continue
		}
		if m.hasLiveEntryLocked(s.ID) {
			continue
		}
		arrivals = append(arrivals, &store.Arrival{
			ShipmentID:  s.ID,
			WarehouseID: s.WarehouseID,
			Description: s.Description,
			GTIPCode:    s.GTIPCode,
			Quantity:    s.Quantity,
			ETA:         s.ETA,
		})
	}
	sort.Slice(arrivals, func(i, j int) bool { return arrivals[i].ShipmentID < arrivals[j].ShipmentID })
	return paginateArrivals(arrivals, page)
}

func (m *MockStore) hasLiveEntryLocked(shipmentID string) bool {
	for _, e := range m.entries {
		if !e.Deleted && e.ShipmentID != nil && *e.ShipmentID == shipmentID {
			return true
		}
	}
	return false
}

// ---- Query store ----

func (m *MockStore) warehouseOfEntryLocked(e *custody.Entry) string {
	if l, ok := m.lots[e.LotID]; ok {
		return l.WarehouseID
	}
	return ""
}

func (m *MockStore) ListLots(ctx context.Context, f store.LotFilter) ([]*store.LotView, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f.Scope.DenyAll {
		return []*store.LotView{}, 0, nil
	}
	var views []*store.LotView
	for _, l := range m.lots {
		if !f.Scope.Allows(l.WarehouseID) {
			continue
		}
		if f.WarehouseID != "" && l.WarehouseID != f.WarehouseID {
			continue
		}
		if f.Active != nil && l.Active != *f.Active {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(l.Code), strings.ToLower(f.Search)) {
			continue
		}
		views = append(views, &store.LotView{Lot: *l, Occupied: m.occupancyLocked(l.ID)})
	}
	sort.Slice(views, func(i, j int) bool {
		if views[i].Code != views[j].Code {
			return views[i].Code < views[j].Code
		}
		return views[i].ID < views[j].ID
	})
	return paginateLots(views, f.Page)
}

func (m *MockStore) ListEntries(ctx context.Context, f store.EntryFilter) ([]*custody.Entry, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f.Scope.DenyAll {
		return []*custody.Entry{}, 0, nil
	}
	var entries []*custody.Entry
	for _, e := range m.entries {
		if e.Deleted {
			continue
		}
		if !f.Scope.Allows(m.warehouseOfEntryLocked(e)) {
			continue
		}
		if f.LotID != "" && e.LotID != f.LotID {
			continue
		}
		if f.WarehouseID != "" && m.warehouseOfEntryLocked(e) != f.WarehouseID {
			continue
		}
		if f.Status != "" && e.Status != f.Status {
			continue
		}
		if f.ThirdParty != nil && e.ThirdParty != *f.ThirdParty {
			continue
		}
		if f.Search != "" && !entryMatches(e, f.Search) {
			continue
		}
		if f.From != nil && e.EntryDate.Before(*f.From) {
			continue
		}
		if f.To != nil && e.EntryDate.After(*f.To) {
			continue
		}
		cp := *e
		entries = append(entries, &cp)
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].EntryDate.Equal(entries[j].EntryDate) {
			return entries[i].EntryDate.After(entries[j].EntryDate)
		}
		return entries[i].ID < entries[j].ID
	})
	return paginateEntries(entries, f.Page)
}

func entryMatches(e *custody.Entry, search string) bool {
	s := strings.ToLower(search)
	return strings.Contains(strings.ToLower(e.GTIPCode), s) ||
		strings.Contains(strings.ToLower(e.Description), s) ||
		strings.Contains(strings.ToLower(e.OwnerName), s)
}

func (m *MockStore) ListExits(ctx context.Context, f store.ExitFilter) ([]*custody.Exit, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f.Scope.DenyAll {
		return []*custody.Exit{}, 0, nil
	}
	var exits []*custody.Exit
	for _, x := range m.exits {
		e, ok := m.entries[x.EntryID]
		if !ok || !f.Scope.Allows(m.warehouseOfEntryLocked(e)) {
			continue
		}
		if f.EntryID != "" && x.EntryID != f.EntryID {
			continue
		}
		if f.Kind != "" && x.Kind != f.Kind {
			continue
		}
		if f.From != nil && x.ExitDate.Before(*f.From) {
			continue
		}
		if f.To != nil && x.ExitDate.After(*f.To) {
			continue
		}
		cp := *x
		exits = append(exits, &cp)
	}
	sort.Slice(exits, func(i, j int) bool {
		if !exits[i].ExitDate.Equal(exits[j].ExitDate) {
			return exits[i].ExitDate.After(exits[j].ExitDate)
		}
		return exits[i].ID < exits[j].ID
	})
	return paginateExits(exits, f.Page)
}

func (m *MockStore) ListRequests(ctx context.Context, f store.RequestFilter) ([]*handling.Request, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f.Scope.DenyAll {
		return []*handling.Request{}, 0, nil
	}
	var requests []*handling.Request
	for _, r := range m.requests {
		e, ok := m.entries[r.EntryID]
		if !ok || !f.Scope.Allows(m.warehouseOfEntryLocked(e)) {
			continue
		}
		if f.EntryID != "" && r.EntryID != f.EntryID {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.Activity != "" && r.Activity != f.Activity {
			continue
		}
		cp := *r
		requests = append(requests, &cp)
	}
	sort.Slice(requests, func(i, j int) bool {
		if !requests[i].RequestedAt.Equal(requests[j].RequestedAt) {
			return requests[i].RequestedAt.After(requests[j].RequestedAt)
		}
		return requests[i].ID < requests[j].ID
	})
	return paginateRequests(requests, f.Page)
}

func (m *MockStore) ListPermits(ctx context.Context, requestID string) ([]*handling.Permit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.permitsOfLocked(requestID), nil
}

func (m *MockStore) ListCosts(ctx context.Context, requestID string) ([]*handling.Cost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var costs []*handling.Cost
	for _, c := range m.costs {
		if c.RequestID == requestID {
			cp := *c
			costs = append(costs, &cp)
		}
	}
	return costs, nil
}

func (m *MockStore) ListDocuments(ctx context.Context, requestID string) ([]*handling.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var docs []*handling.Document
	for _, d := range m.documents {
		if d.RequestID == requestID && !d.Deleted {
			cp := *d
			docs = append(docs, &cp)
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// Pagination over the already-sorted slices. Go lacks generic methods,
// so each element type gets its own wrapper around the index math.

func pageBounds(total int, page store.PageRequest) (int, int) {
	n := page.Normalize()
	start := n.Offset()
	if start > total {
		start = total
	}
	end := start + n.Limit
	if end > total {
		end = total
	}
	return start, end
}

func paginateLots(items []*store.LotView, page store.PageRequest) ([]*store.LotView, int, error) {
	start, end := pageBounds(len(items), page)
	return items[start:end], len(items), nil
}

func paginateEntries(items []*custody.Entry, page store.PageRequest) ([]*custody.Entry, int, error) {
	start, end := pageBounds(len(items), page)
	return items[start:end], len(items), nil
}

func paginateExits(items []*custody.Exit, page store.PageRequest) ([]*custody.Exit, int, error) {
	start, end := pageBounds(len(items), page)
	return items[start:end], len(items), nil
}

func paginateRequests(items []*handling.Request, page store.PageRequest) ([]*handling.Request, int, error) {
	start, end := pageBounds(len(items), page)
	return items[start:end], len(items), nil
}

func paginateArrivals(items []*store.Arrival, page store.PageRequest) ([]*store.Arrival, int, error) {
	start, end := pageBounds(len(items), page)
	return items[start:end], len(items), nil
}
