package query

import (
	"context"

	"github.com/example/antrepo/internal/domain/custody"
	"github.com/example/antrepo/internal/domain/handling"
	"github.com/example/antrepo/internal/domain/lot"
	"github.com/example/antrepo/internal/infrastructure/store"
)

// Handler serves the read side: filtered, paginated, visibility-scoped
// listings plus single reads. It never mutates anything.
type Handler struct {
	store store.QueryStoreInterface
}

func NewHandler(qs store.QueryStoreInterface) *Handler {
	return &Handler{store: qs}
}

// Lots

func (h *Handler) GetLot(ctx context.Context, id string) (*lot.Lot, error) {
	return h.store.GetLot(ctx, id)
}

func (h *Handler) ListLots(ctx context.Context, f store.LotFilter) (*Page[*store.LotView], error) {
	views, total, err := h.store.ListLots(ctx, f)
	if err != nil {
		return nil, err
	}
	p := f.Page.Normalize()
	return newPage(views, p.Page, p.Limit, total), nil
}

// Entries

func (h *Handler) GetEntry(ctx context.Context, id string) (*custody.Entry, error) {
	return h.store.GetEntry(ctx, id)
}

func (h *Handler) ListEntries(ctx context.Context, f store.EntryFilter) (*Page[*custody.Entry], error) {
	entries, total, err := h.store.ListEntries(ctx, f)
	if err != nil {
		return nil, err
	}
	p := f.Page.Normalize()
	return newPage(entries, p.Page, p.Limit, total), nil
}

// Exits

func (h *Handler) ListExits(ctx context.Context, f store.ExitFilter) (*Page[*custody.Exit], error) {
	exits, total, err := h.store.ListExits(ctx, f)
	if err != nil {
		return nil, err
	}
	p := f.Page.Normalize()
	return newPage(exits, p.Page, p.Limit, total), nil
}

// Handling requests

func (h *Handler) GetRequest(ctx context.Context, id string) (*handling.Request, error) {
	return h.store.GetRequest(ctx, id)
}

func (h *Handler) ListRequests(ctx context.Context, f store.RequestFilter) (*Page[*handling.Request], error) {
	requests, total, err := h.store.ListRequests(ctx, f)
	if err != nil {
		return nil, err
	}
	p := f.Page.Normalize()
	return newPage(requests, p.Page, p.Limit, total), nil
}

func (h *Handler) ListPermits(ctx context.Context, requestID string) ([]*handling.Permit, error) {
	if _, err := h.store.GetRequest(ctx, requestID); err != nil {
		return nil, err
	}
	return h.store.ListPermits(ctx, requestID)
}

func (h *Handler) ListCosts(ctx context.Context, requestID string) ([]*handling.Cost, error) {
	if _, err := h.store.GetRequest(ctx, requestID); err != nil {
		return nil, err
	}
	return h.store.ListCosts(ctx, requestID)
}

func (h *Handler) ListDocuments(ctx context.Context, requestID string) ([]*handling.Document, error) {
	if _, err := h.store.GetRequest(ctx, requestID); err != nil {
		return nil, err
	}
	return h.store.ListDocuments(ctx, requestID)
}
