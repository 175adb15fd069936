package api

import (
	"encoding/json"
	"net/http"

	"github.com/example/antrepo/internal/api/middleware"
	"github.com/example/antrepo/internal/command"
	"github.com/example/antrepo/internal/domain/handling"
	"github.com/example/antrepo/internal/infrastructure/store"
)

// Handling Request Handlers

func (h *Handlers) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var cmd command.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondBadRequest(w, err)
		return
	}
	cmd.Actor = middleware.GetActor(r.Context())

	req, err := h.cmdHandler.CreateRequest(r.Context(), cmd)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, req)
}

func (h *Handlers) GetRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.queryHandler.GetRequest(r.Context(), pathID(r.URL.Path, "/handling/"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, req)
}

func (h *Handlers) ListRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.RequestFilter{
		EntryID:  q.Get("entry_id"),
		Status:   handling.Status(q.Get("status")),
		Activity: handling.ActivityCode(q.Get("activity")),
		Scope:    middleware.GetScope(r.Context()),
		Page:     parsePage(q),
	}
	page, err := h.queryHandler.ListRequests(r.Context(), f)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (h *Handlers) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	var cmd command.UpdateDraft
	if err := json.NewDecoder(r.Body).Decode(&cmd.Patch); err != nil {
		respondBadRequest(w, err)
		return
	}
	cmd.RequestID = pathID(r.URL.Path, "/handling/")
	cmd.Actor = middleware.GetActor(r.Context())

	req, err := h.cmdHandler.UpdateDraft(r.Context(), cmd)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, req)
}

func (h *Handlers) Submit(w http.ResponseWriter, r *http.Request) {
	var cmd command.Submit
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondBadRequest(w, err)
		return
	}
	cmd.RequestID = pathAction(r.URL.Path, "/handling/", "/submit")
	cmd.Actor = middleware.GetActor(r.Context())

	req, err := h.cmdHandler.Submit(r.Context(), cmd)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, req)
}

func (h *Handlers) Pickup(w http.ResponseWriter, r *http.Request) {
	cmd := command.Pickup{
		RequestID: pathAction(r.URL.Path, "/handling/", "/pickup"),
		Actor:     middleware.GetActor(r.Context()),
	}
	req, err := h.cmdHandler.Pickup(r.Context(), cmd)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, req)
}

func (h *Handlers) Start(w http.ResponseWriter, r *http.Request) {
	cmd := command.Start{
		RequestID: pathAction(r.URL.Path, "/handling/", "/start"),
		Actor:     middleware.GetActor(r.Context()),
	}
	req, err := h.cmdHandler.Start(r.Context(), cmd)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, req)
}

func (h *Handlers) Complete(w http.ResponseWriter, r *http.Request) {
	var cmd command.Complete
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondBadRequest(w, err)
		return
	}
	cmd.RequestID = pathAction(r.URL.Path, "/handling/", "/complete")
	cmd.Actor = middleware.GetActor(r.Context())

	req, err := h.cmdHandler.Complete(r.Context(), cmd)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, req)
}

func (h *Handlers) Confirm(w http.ResponseWriter, r *http.Request) {
	var cmd command.Confirm
	json.NewDecoder(r.Body).Decode(&cmd)
	cmd.RequestID = pathAction(r.URL.Path, "/handling/", "/confirm")
	cmd.Actor = middleware.GetActor(r.Context())

	req, err := h.cmdHandler.Confirm(r.Context(), cmd)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, req)
}

func (h *Handlers) RejectResult(w http.ResponseWriter, r *http.Request) {
	var cmd command.RejectResult
	json.NewDecoder(r.Body).Decode(&cmd)
	cmd.RequestID = pathAction(r.URL.Path, "/handling/", "/reject")
	cmd.Actor = middleware.GetActor(r.Context())

	req, err := h.cmdHandler.RejectResult(r.Context(), cmd)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, req)
}

func (h *Handlers) Cancel(w http.ResponseWriter, r *http.Request) {
	var cmd command.Cancel
	json.NewDecoder(r.Body).Decode(&cmd)
	cmd.RequestID = pathAction(r.URL.Path, "/handling/", "/cancel")
	cmd.Actor = middleware.GetActor(r.Context())

	req, err := h.cmdHandler.Cancel(r.Context(), cmd)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, req)
}

// Permit Handlers

func (h *Handlers) ListPermits(w http.ResponseWriter, r *http.Request) {
	requestID := pathAction(r.URL.Path, "/handling/", "/permits")
	permits, err := h.queryHandler.ListPermits(r.Context(), requestID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, permits)
}

func (h *Handlers) ApprovePermit(w http.ResponseWriter, r *http.Request) {
	var cmd command.ApprovePermit
	json.NewDecoder(r.Body).Decode(&cmd)
	cmd.PermitID = pathAction(r.URL.Path, "/permits/", "/approve")
	cmd.Actor = middleware.GetActor(r.Context())

	p, err := h.cmdHandler.ApprovePermit(r.Context(), cmd)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *Handlers) RejectPermit(w http.ResponseWriter, r *http.Request) {
	var cmd command.RejectPermit
	json.NewDecoder(r.Body).Decode(&cmd)
	cmd.PermitID = pathAction(r.URL.Path, "/permits/", "/reject")
	cmd.Actor = middleware.GetActor(r.Context())

	p, err := h.cmdHandler.RejectPermit(r.Context(), cmd)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// Cost Handlers

func (h *Handlers) ListCosts(w http.ResponseWriter, r *http.Request) {
	requestID := pathAction(r.URL.Path, "/handling/", "/costs")
	costs, err := h.queryHandler.ListCosts(r.Context(), requestID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, costs)
}

func (h *Handlers) AddCost(w http.ResponseWriter, r *http.Request) {
	var cmd command.AddCost
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondBadRequest(w, err)
		return
	}
	cmd.RequestID = pathAction(r.URL.Path, "/handling/", "/costs")
	cmd.Actor = middleware.GetActor(r.Context())

	c, err := h.cmdHandler.AddCost(r.Context(), cmd)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

// Document Handlers

func (h *Handlers) ListDocuments(w http.ResponseWriter, r *http.Request) {
	requestID := pathAction(r.URL.Path, "/handling/", "/documents")
	docs, err := h.queryHandler.ListDocuments(r.Context(), requestID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, docs)
}

func (h *Handlers) AddDocument(w http.ResponseWriter, r *http.Request) {
	var cmd command.AddDocument
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondBadRequest(w, err)
		return
	}
	cmd.RequestID = pathAction(r.URL.Path, "/handling/", "/documents")
	cmd.Actor = middleware.GetActor(r.Context())

	d, err := h.cmdHandler.AddDocument(r.Context(), cmd)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, d)
}

func (h *Handlers) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	cmd := command.DeleteDocument{
		DocumentID: pathID(r.URL.Path, "/documents/"),
		Actor:      middleware.GetActor(r.Context()),
	}
	if err := h.cmdHandler.DeleteDocument(r.Context(), cmd); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "document deleted"})
}
