package command

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/example/antrepo/internal/domain/custody"
	"github.com/example/antrepo/internal/domain/handling"
	"github.com/example/antrepo/internal/infrastructure/store"
	"github.com/example/antrepo/internal/notification"
)

// CreateRequest opens a handling draft against a custody entry. Quantity
// defaults to the entry's current quantity, the old classification code
// is snapshotted from the entry.
func (h *Handler) CreateRequest(ctx context.Context, cmd CreateRequest) (*handling.Request, error) {
	now := time.Now()
	r, err := h.handling.CreateRequest(ctx, func(v store.TxView) (*handling.Request, error) {
		e, err := v.Entry(cmd.EntryID)
		if err != nil {
			return nil, err
		}

		quantity := cmd.Quantity
		if quantity.IsZero() {
			quantity = e.CurrentQuantity
		}
		if quantity.GreaterThan(e.CurrentQuantity) {
			return nil, &custody.InsufficientQuantityError{Requested: quantity, Available: e.CurrentQuantity}
		}

		r := &handling.Request{
			ID:          uuid.New().String(),
			EntryID:     e.ID,
			Activity:    cmd.Activity,
			Priority:    cmd.Priority,
			Quantity:    quantity,
			PlannedDate: cmd.PlannedDate,
			OldGTIP:     e.GTIPCode,
			Status:      handling.StatusDraft,
			RequestedBy: cmd.Actor,
			RequestedAt: now,
			UpdatedAt:   now,
		}
		if err := r.Validate(); err != nil {
			return nil, err
		}
		return r, nil
	})
	audit(cmd.Actor, "create_request", cmd.EntryID, err)
	return r, err
}

// UpdateDraft patches a request while it is still a draft.
func (h *Handler) UpdateDraft(ctx context.Context, cmd UpdateDraft) (*handling.Request, error) {
	m, err := h.handling.MutateRequest(ctx, cmd.RequestID, func(v store.TxView, r *handling.Request, permits []*handling.Permit) (*store.RequestMutation, error) {
		if err := r.ApplyPatch(cmd.Patch, time.Now()); err != nil {
			return nil, err
		}
		return &store.RequestMutation{Request: r}, nil
	})
	audit(cmd.Actor, "update_draft", cmd.RequestID, err)
	if err != nil {
		return nil, err
	}
	return m.Request, nil
}

// Submit files a permit application with customs and moves the request
// to pending_permit. Resubmission is only legal once every prior permit
// was rejected.
func (h *Handler) Submit(ctx context.Context, cmd Submit) (*handling.Request, error) {
	now := time.Now()
	m, err := h.handling.MutateRequest(ctx, cmd.RequestID, func(v store.TxView, r *handling.Request, permits []*handling.Permit) (*store.RequestMutation, error) {
		open := false
		for _, p := range permits {
			if p.Open() {
				open = true
				break
			}
		}
		if err := r.Submit(open, now); err != nil {
			return nil, err
		}
		permit := &handling.Permit{
			ID:            uuid.New().String(),
			RequestID:     r.ID,
			Type:          cmd.PermitType,
			CustomsOffice: cmd.CustomsOffice,
			Status:        handling.PermitSubmitted,
			AppliedAt:     now,
		}
		return &store.RequestMutation{Request: r, NewPermit: permit}, nil
	})
	audit(cmd.Actor, "submit_request", cmd.RequestID, err)
	if err != nil {
		return nil, err
	}

	h.notifier.Emit(notification.EventHandlingSubmitted, cmd.RequestID, cmd.Actor, notification.HandlingSubmitted{
		RequestID: m.Request.ID,
		EntryID:   m.Request.EntryID,
		Activity:  string(m.Request.Activity),
		PermitID:  m.NewPermit.ID,
	})
	return m.Request, nil
}

// Pickup lets an operator take over a draft, moving it to
// pending_permit with the pickup recorded.
func (h *Handler) Pickup(ctx context.Context, cmd Pickup) (*handling.Request, error) {
	m, err := h.handling.MutateRequest(ctx, cmd.RequestID, func(v store.TxView, r *handling.Request, permits []*handling.Permit) (*store.RequestMutation, error) {
		if err := r.Pickup(cmd.Actor, time.Now()); err != nil {
			return nil, err
		}
		return &store.RequestMutation{Request: r}, nil
	})
	audit(cmd.Actor, "pickup_request", cmd.RequestID, err)
	if err != nil {
		return nil, err
	}
	return m.Request, nil
}

// ApprovePermit records the customs approval and advances the parent
// request to approved in the same transaction.
func (h *Handler) ApprovePermit(ctx context.Context, cmd ApprovePermit) (*handling.Permit, error) {
	now := time.Now()
	m, err := h.handling.MutatePermit(ctx, cmd.PermitID, func(v store.TxView, p *handling.Permit, r *handling.Request) (*store.RequestMutation, error) {
		if err := p.Approve(cmd.Note, now); err != nil {
			return nil, err
		}
		mut := &store.RequestMutation{Permit: p}
		if r.Status == handling.StatusPendingPermit {
			if err := r.Approve(now); err != nil {
				return nil, err
			}
			mut.Request = r
		}
		return mut, nil
	})
	audit(cmd.Actor, "approve_permit", cmd.PermitID, err)
	if err != nil {
		return nil, err
	}

	h.notifier.Emit(notification.EventPermitDecided, m.Permit.RequestID, cmd.Actor, notification.PermitDecided{
		PermitID:  m.Permit.ID,
		RequestID: m.Permit.RequestID,
		Status:    string(m.Permit.Status),
		Note:      cmd.Note,
	})
	return m.Permit, nil
}

// RejectPermit records a customs rejection. The request stays in
// pending_permit so the requester can resubmit or cancel.
func (h *Handler) RejectPermit(ctx context.Context, cmd RejectPermit) (*handling.Permit, error) {
	m, err := h.handling.MutatePermit(ctx, cmd.PermitID, func(v store.TxView, p *handling.Permit, r *handling.Request) (*store.RequestMutation, error) {
		if err := p.Reject(cmd.Note, time.Now()); err != nil {
			return nil, err
		}
		return &store.RequestMutation{Permit: p}, nil
	})
	audit(cmd.Actor, "reject_permit", cmd.PermitID, err)
	if err != nil {
		return nil, err
	}

	h.notifier.Emit(notification.EventPermitDecided, m.Permit.RequestID, cmd.Actor, notification.PermitDecided{
		PermitID:  m.Permit.ID,
		RequestID: m.Permit.RequestID,
		Status:    string(m.Permit.Status),
		Note:      cmd.Note,
	})
	return m.Permit, nil
}

// Start begins execution of an approved request.
func (h *Handler) Start(ctx context.Context, cmd Start) (*handling.Request, error) {
	m, err := h.handling.MutateRequest(ctx, cmd.RequestID, func(v store.TxView, r *handling.Request, permits []*handling.Permit) (*store.RequestMutation, error) {
		if err := r.Start(cmd.Actor, time.Now()); err != nil {
			return nil, err
		}
		return &store.RequestMutation{Request: r}, nil
	})
	audit(cmd.Actor, "start_request", cmd.RequestID, err)
	if err != nil {
		return nil, err
	}
	return m.Request, nil
}

// Complete stages the handling result for confirmation. The entry is
// not touched until Confirm.
func (h *Handler) Complete(ctx context.Context, cmd Complete) (*handling.Request, error) {
	m, err := h.handling.MutateRequest(ctx, cmd.RequestID, func(v store.TxView, r *handling.Request, permits []*handling.Permit) (*store.RequestMutation, error) {
		p := handling.CompleteParams{
			BeforeDescription: cmd.BeforeDescription,
			AfterDescription:  cmd.AfterDescription,
			NewGTIP:           cmd.NewGTIP,
			GTIPChanged:       cmd.GTIPChanged,
		}
		if err := r.Complete(p, time.Now()); err != nil {
			return nil, err
		}
		return &store.RequestMutation{Request: r}, nil
	})
	audit(cmd.Actor, "complete_request", cmd.RequestID, err)
	if err != nil {
		return nil, err
	}

	h.notifier.Emit(notification.EventHandlingCompleted, cmd.RequestID, cmd.Actor, notification.HandlingCompleted{
		RequestID:   m.Request.ID,
		EntryID:     m.Request.EntryID,
		GTIPChanged: m.Request.GTIPChanged,
	})
	return m.Request, nil
}

// Confirm accepts the staged result. This is the only path that writes
// a classification change onto the entry, under the entry row lock in
// the same transaction as the status transition.
func (h *Handler) Confirm(ctx context.Context, cmd Confirm) (*handling.Request, error) {
	now := time.Now()
	m, err := h.handling.MutateRequest(ctx, cmd.RequestID, func(v store.TxView, r *handling.Request, permits []*handling.Permit) (*store.RequestMutation, error) {
		newGTIP, changed, err := r.Confirm(cmd.Actor, cmd.Note, now)
		if err != nil {
			return nil, err
		}
		mut := &store.RequestMutation{Request: r}
		if changed {
			e, err := v.Entry(r.EntryID)
			if err != nil {
				return nil, err
			}
			e.GTIPCode = newGTIP
			e.UpdatedAt = now
			mut.Entry = e
		}
		return mut, nil
	})
	audit(cmd.Actor, "confirm_request", cmd.RequestID, err)
	if err != nil {
		return nil, err
	}

	h.notifier.Emit(notification.EventHandlingConfirmed, cmd.RequestID, cmd.Actor, notification.HandlingConfirmed{
		RequestID: m.Request.ID,
		EntryID:   m.Request.EntryID,
		NewGTIP:   m.Request.NewGTIP,
	})
	return m.Request, nil
}

// RejectResult sends the staged result back to the executor.
func (h *Handler) RejectResult(ctx context.Context, cmd RejectResult) (*handling.Request, error) {
	m, err := h.handling.MutateRequest(ctx, cmd.RequestID, func(v store.TxView, r *handling.Request, permits []*handling.Permit) (*store.RequestMutation, error) {
		if err := r.RejectResult(cmd.Actor, cmd.Reason, time.Now()); err != nil {
			return nil, err
		}
		return &store.RequestMutation{Request: r}, nil
	})
	audit(cmd.Actor, "reject_result", cmd.RequestID, err)
	if err != nil {
		return nil, err
	}
	return m.Request, nil
}

// Cancel abandons a request from any non-terminal state.
func (h *Handler) Cancel(ctx context.Context, cmd Cancel) (*handling.Request, error) {
	m, err := h.handling.MutateRequest(ctx, cmd.RequestID, func(v store.TxView, r *handling.Request, permits []*handling.Permit) (*store.RequestMutation, error) {
		if err := r.Cancel(cmd.Reason, time.Now()); err != nil {
			return nil, err
		}
		return &store.RequestMutation{Request: r}, nil
	})
	audit(cmd.Actor, "cancel_request", cmd.RequestID, err)
	if err != nil {
		return nil, err
	}

	h.notifier.Emit(notification.EventHandlingCancelled, cmd.RequestID, cmd.Actor, notification.HandlingCancelled{
		RequestID: m.Request.ID,
		Reason:    cmd.Reason,
	})
	return m.Request, nil
}

// AddCost appends an expense to a request.
func (h *Handler) AddCost(ctx context.Context, cmd AddCost) (*handling.Cost, error) {
	if _, err := h.handling.GetRequest(ctx, cmd.RequestID); err != nil {
		return nil, err
	}
	c := &handling.Cost{
		ID:        uuid.New().String(),
		RequestID: cmd.RequestID,
		CostType:  cmd.CostType,
		Amount:    cmd.Amount,
		Currency:  cmd.Currency,
		Note:      cmd.Note,
		CreatedBy: cmd.Actor,
		CreatedAt: time.Now(),
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	err := h.handling.AddCost(ctx, c)
	audit(cmd.Actor, "add_cost", cmd.RequestID, err)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// AddDocument attaches evidence to a request.
func (h *Handler) AddDocument(ctx context.Context, cmd AddDocument) (*handling.Document, error) {
	if _, err := h.handling.GetRequest(ctx, cmd.RequestID); err != nil {
		return nil, err
	}
	d := &handling.Document{
		ID:        uuid.New().String(),
		RequestID: cmd.RequestID,
		Name:      cmd.Name,
		FileRef:   cmd.FileRef,
		CreatedBy: cmd.Actor,
		CreatedAt: time.Now(),
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	err := h.handling.AddDocument(ctx, d)
	audit(cmd.Actor, "add_document", cmd.RequestID, err)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// DeleteDocument soft-deletes an attached document.
func (h *Handler) DeleteDocument(ctx context.Context, cmd DeleteDocument) error {
	err := h.handling.DeleteDocument(ctx, cmd.DocumentID)
	audit(cmd.Actor, "delete_document", cmd.DocumentID, err)
	return err
}
