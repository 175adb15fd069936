package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/antrepo/internal/api/middleware"
	"github.com/example/antrepo/internal/command"
	"github.com/example/antrepo/internal/domain/custody"
	"github.com/example/antrepo/internal/infrastructure/store"
	"github.com/example/antrepo/internal/query"
)

type Handlers struct {
	cmdHandler   *command.Handler
	queryHandler *query.Handler
}

func NewHandlers(cmdHandler *command.Handler, queryHandler *query.Handler) *Handlers {
	return &Handlers{
		cmdHandler:   cmdHandler,
		queryHandler: queryHandler,
	}
}

// Lot Handlers

func (h *Handlers) CreateLot(w http.ResponseWriter, r *http.Request) {
	var cmd command.CreateLot
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondBadRequest(w, err)
		return
	}
	cmd.Actor = middleware.GetActor(r.Context())

	l, err := h.cmdHandler.CreateLot(r.Context(), cmd)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, l)
}

func (h *Handlers) UpdateLot(w http.ResponseWriter, r *http.Request) {
	var cmd command.UpdateLot
	if err := json.NewDecoder(r.Body).Decode(&cmd.Patch); err != nil {
		respondBadRequest(w, err)
		return
	}
	cmd.LotID = pathID(r.URL.Path, "/lots/")
	cmd.Actor = middleware.GetActor(r.Context())

	l, err := h.cmdHandler.UpdateLot(r.Context(), cmd)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, l)
}

func (h *Handlers) GetLot(w http.ResponseWriter, r *http.Request) {
	l, err := h.queryHandler.GetLot(r.Context(), pathID(r.URL.Path, "/lots/"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, l)
}

func (h *Handlers) ListLots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.LotFilter{
		WarehouseID: q.Get("warehouse_id"),
		Active:      parseBoolPtr(q.Get("active")),
		Search:      q.Get("search"),
		Scope:       middleware.GetScope(r.Context()),
		Page:        parsePage(q),
	}
	page, err := h.queryHandler.ListLots(r.Context(), f)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// Entry Handlers

func (h *Handlers) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var cmd command.CreateEntry
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondBadRequest(w, err)
		return
	}
	cmd.Actor = middleware.GetActor(r.Context())

	e, err := h.cmdHandler.CreateEntry(r.Context(), cmd)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, e)
}

func (h *Handlers) GetEntry(w http.ResponseWriter, r *http.Request) {
	e, err := h.queryHandler.GetEntry(r.Context(), pathID(r.URL.Path, "/entries/"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, e)
}

func (h *Handlers) ListEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.EntryFilter{
		LotID:       q.Get("lot_id"),
		WarehouseID: q.Get("warehouse_id"),
		Status:      custody.Status(q.Get("status")),
		ThirdParty:  parseBoolPtr(q.Get("third_party")),
		Search:      q.Get("search"),
		From:        parseDatePtr(q.Get("from")),
		To:          parseDatePtr(q.Get("to")),
		Scope:       middleware.GetScope(r.Context()),
		Page:        parsePage(q),
	}
	page, err := h.queryHandler.ListEntries(r.Context(), f)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (h *Handlers) Transfer(w http.ResponseWriter, r *http.Request) {
	var cmd command.Transfer
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondBadRequest(w, err)
		return
	}
	cmd.EntryID = pathAction(r.URL.Path, "/entries/", "/transfer")
	cmd.Actor = middleware.GetActor(r.Context())

	result, err := h.cmdHandler.Transfer(r.Context(), cmd)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *Handlers) RecordExit(w http.ResponseWriter, r *http.Request) {
	var cmd command.RecordExit
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondBadRequest(w, err)
		return
	}
	cmd.EntryID = pathAction(r.URL.Path, "/entries/", "/exits")
	cmd.Actor = middleware.GetActor(r.Context())

	x, err := h.cmdHandler.RecordExit(r.Context(), cmd)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, x)
}

func (h *Handlers) ArchiveEntry(w http.ResponseWriter, r *http.Request) {
	cmd := command.ArchiveEntry{
		EntryID: pathID(r.URL.Path, "/entries/"),
		Actor:   middleware.GetActor(r.Context()),
	}
	if err := h.cmdHandler.ArchiveEntry(r.Context(), cmd); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "entry archived"})
}

// Exit Handlers

func (h *Handlers) ListExits(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.ExitFilter{
		EntryID: q.Get("entry_id"),
		Kind:    custody.Kind(q.Get("kind")),
		From:    parseDatePtr(q.Get("from")),
		To:      parseDatePtr(q.Get("to")),
		Scope:   middleware.GetScope(r.Context()),
		Page:    parsePage(q),
	}
	page, err := h.queryHandler.ListExits(r.Context(), f)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// Arrival Handlers

func (h *Handlers) PendingArrivals(w http.ResponseWriter, r *http.Request) {
	scope := middleware.GetScope(r.Context())
	page := parsePage(r.URL.Query())

	arrivals, total, err := h.cmdHandler.PendingArrivals(r.Context(), scope, page)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, query.NewPage(arrivals, page, total))
}

// Helper functions

// pathID returns the path segment after prefix, up to the next slash.
func pathID(path, prefix string) string {
	rest := strings.TrimPrefix(path, prefix)
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return rest[:i]
	}
	return rest
}

// pathAction returns the id in paths shaped like prefix + id + suffix.
func pathAction(path, prefix, suffix string) string {
	return strings.TrimSuffix(strings.TrimPrefix(path, prefix), suffix)
}

func parsePage(q map[string][]string) store.PageRequest {
	get := func(key string) int {
		vals := q[key]
		if len(vals) == 0 {
			return 0
		}
		n, _ := strconv.Atoi(vals[0])
		return n
	}
	return store.PageRequest{Page: get("page"), Limit: get("limit")}
}

func parseBoolPtr(s string) *bool {
	if s == "" {
		return nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil
	}
	return &b
}

func parseDatePtr(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}
