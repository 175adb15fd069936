package handling

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusDraft               Status = "draft"
	StatusPendingPermit       Status = "pending_permit"
	StatusApproved            Status = "approved"
	StatusInProgress          Status = "in_progress"
	StatusPendingConfirmation Status = "pending_confirmation"
	StatusCompleted           Status = "completed"
	StatusCancelled           Status = "cancelled"
)

// ActivityCode is the fixed customs taxonomy of handling activities
// (elleçleme) that may be performed on goods in custody.
type ActivityCode string

const (
	ActivityRepackaging ActivityCode = "repackaging"
	ActivitySorting     ActivityCode = "sorting"
	ActivityRelabeling  ActivityCode = "relabeling"
	ActivitySampling    ActivityCode = "sampling"
	ActivityAiring      ActivityCode = "airing"
	ActivityBlending    ActivityCode = "blending"
	ActivityMaintenance ActivityCode = "maintenance"
)

func (a ActivityCode) Valid() bool {
	switch a {
	case ActivityRepackaging, ActivitySorting, ActivityRelabeling,
		ActivitySampling, ActivityAiring, ActivityBlending, ActivityMaintenance:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

var (
	ErrValidation        = errors.New("validation failed")
	ErrRequestNotFound   = errors.New("handling request not found")
	ErrInvalidTransition = errors.New("invalid handling status transition")
	ErrNotDraft          = errors.New("request is no longer a draft")
	ErrRequestClosed     = errors.New("request is completed or cancelled")
	ErrPermitPending     = errors.New("an undecided or approved permit already exists")
	ErrReasonRequired    = errors.New("a reason is required")
)

// validTransitions defines allowed state transitions
var validTransitions = map[Status][]Status{
	StatusDraft:               {StatusPendingPermit, StatusCancelled},
	StatusPendingPermit:       {StatusApproved, StatusCancelled},
	StatusApproved:            {StatusInProgress, StatusCancelled},
	StatusInProgress:          {StatusPendingConfirmation, StatusCancelled},
	StatusPendingConfirmation: {StatusCompleted, StatusInProgress, StatusCancelled},
	StatusCompleted:           {}, // terminal state
	StatusCancelled:           {}, // terminal state
}

// Request is a permit-gated handling activity against one custody entry.
// A proposed classification change is staged on the request and only
// applied to the entry by Confirm.
type Request struct {
	ID          string       `json:"id"`
	EntryID     string       `json:"entry_id"`
	Activity    ActivityCode `json:"activity_code"`
	Priority    Priority     `json:"priority"`
	Quantity    decimal.Decimal `json:"quantity_mt"`
	PlannedDate *time.Time   `json:"planned_date,omitempty"`

	BeforeDescription string `json:"before_description,omitempty"`
	AfterDescription  string `json:"after_description,omitempty"`
	OldGTIP           string `json:"old_gtip,omitempty"`
	NewGTIP           string `json:"new_gtip,omitempty"`
	GTIPChanged       bool   `json:"gtip_changed"`

	Status Status `json:"status"`

	RequestedBy string     `json:"requested_by"`
	RequestedAt time.Time  `json:"requested_at"`
	ProcessedBy string     `json:"processed_by,omitempty"`
	PickedUpAt  *time.Time `json:"picked_up_at,omitempty"`
	ExecutedBy  string     `json:"executed_by,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	ConfirmedBy string     `json:"confirmed_by,omitempty"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	ConfirmNote string     `json:"confirm_note,omitempty"`

	ResultRejected   bool       `json:"result_rejected"`
	ResultRejectedBy string     `json:"result_rejected_by,omitempty"`
	ResultRejectedAt *time.Time `json:"result_rejected_at,omitempty"`
	RejectionReason  string     `json:"rejection_reason,omitempty"`

	CancelReason string     `json:"cancel_reason,omitempty"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

func (r *Request) Validate() error {
	if r.EntryID == "" {
		return fmt.Errorf("%w: entry_id is required", ErrValidation)
	}
	if !r.Activity.Valid() {
		return fmt.Errorf("%w: unknown activity code %q", ErrValidation, r.Activity)
	}
	if !r.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrValidation, r.Priority)
	}
	if !r.Quantity.IsPositive() {
		return fmt.Errorf("%w: quantity_mt must be positive", ErrValidation)
	}
	return nil
}

// CanTransitionTo checks if the request can transition to the target status
func (r *Request) CanTransitionTo(target Status) bool {
	allowed, exists := validTransitions[r.Status]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

// transitionError returns an appropriate error for an invalid transition
func (r *Request) transitionError(target Status) error {
	switch {
	case r.Status == StatusCompleted || r.Status == StatusCancelled:
		return fmt.Errorf("%w: status is %s", ErrRequestClosed, r.Status)
	default:
		return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidTransition, r.Status, target)
	}
}

func (r *Request) IsTerminal() bool {
	return r.Status == StatusCompleted || r.Status == StatusCancelled
}

// Submit moves a draft to pending_permit. Resubmission from
// pending_permit is allowed only when every prior permit was rejected;
// the caller checks that against the permit history via openPermit.
func (r *Request) Submit(openPermit bool, at time.Time) error {
	if r.Status == StatusPendingPermit {
		if openPermit {
			return ErrPermitPending
		}
		r.UpdatedAt = at
		return nil
	}
	if !r.CanTransitionTo(StatusPendingPermit) {
		return r.transitionError(StatusPendingPermit)
	}
	r.Status = StatusPendingPermit
	r.UpdatedAt = at
	return nil
}

// Pickup is the alternate draft → pending_permit path: an operator takes
// the request over and timestamps the pickup.
func (r *Request) Pickup(actor string, at time.Time) error {
	if !r.CanTransitionTo(StatusPendingPermit) || r.Status != StatusDraft {
		return r.transitionError(StatusPendingPermit)
	}
	r.Status = StatusPendingPermit
	r.ProcessedBy = actor
	r.PickedUpAt = &at
	r.UpdatedAt = at
	return nil
}

// Approve advances pending_permit → approved. Driven by the permit
// decision, never called directly from the API.
func (r *Request) Approve(at time.Time) error {
	if !r.CanTransitionTo(StatusApproved) {
		return r.transitionError(StatusApproved)
	}
	r.Status = StatusApproved
	r.UpdatedAt = at
	return nil
}

// Start moves approved → in_progress and records the executing actor.
func (r *Request) Start(actor string, at time.Time) error {
	if !r.CanTransitionTo(StatusInProgress) || r.Status != StatusApproved {
		return r.transitionError(StatusInProgress)
	}
	r.Status = StatusInProgress
	r.ExecutedBy = actor
	r.StartedAt = &at
	r.UpdatedAt = at
	return nil
}

// CompleteParams carries the executor's result, including the staged
// classification change. Nothing here touches the entry yet.
type CompleteParams struct {
	BeforeDescription string
	AfterDescription  string
	NewGTIP           string
	GTIPChanged       bool
}

// Complete moves in_progress → pending_confirmation with the result
// staged for confirmation.
func (r *Request) Complete(p CompleteParams, at time.Time) error {
	if !r.CanTransitionTo(StatusPendingConfirmation) {
		return r.transitionError(StatusPendingConfirmation)
	}
	if p.GTIPChanged && p.NewGTIP == "" {
		return fmt.Errorf("%w: new_gtip is required when gtip_changed is set", ErrValidation)
	}
	r.Status = StatusPendingConfirmation
	r.BeforeDescription = p.BeforeDescription
	r.AfterDescription = p.AfterDescription
	r.NewGTIP = p.NewGTIP
	r.GTIPChanged = p.GTIPChanged
	r.CompletedAt = &at
	r.ResultRejected = false
	r.UpdatedAt = at
	return nil
}

// Confirm moves pending_confirmation → completed. The staged
// classification change becomes effective: the caller applies the
// returned new GTIP to the entry in the same transaction. Returns the
// new code and whether a change must be applied.
func (r *Request) Confirm(actor, note string, at time.Time) (string, bool, error) {
	if !r.CanTransitionTo(StatusCompleted) {
		return "", false, r.transitionError(StatusCompleted)
	}
	r.Status = StatusCompleted
	r.ConfirmedBy = actor
	r.ConfirmedAt = &at
	r.ConfirmNote = note
	r.UpdatedAt = at
	return r.NewGTIP, r.GTIPChanged, nil
}

// RejectResult routes pending_confirmation back to in_progress. The
// staged change is discarded from the confirmation path; the executor
// must redo the work and recomplete.
func (r *Request) RejectResult(actor, reason string, at time.Time) error {
	if r.Status != StatusPendingConfirmation {
		return r.transitionError(StatusInProgress)
	}
	if reason == "" {
		return ErrReasonRequired
	}
	r.Status = StatusInProgress
	r.ResultRejected = true
	r.ResultRejectedBy = actor
	r.ResultRejectedAt = &at
	r.RejectionReason = reason
	r.NewGTIP = ""
	r.GTIPChanged = false
	r.CompletedAt = nil
	r.UpdatedAt = at
	return nil
}

// Cancel is reachable from any non-terminal state.
func (r *Request) Cancel(reason string, at time.Time) error {
	if r.IsTerminal() {
		return fmt.Errorf("%w: status is %s", ErrRequestClosed, r.Status)
	}
	if reason == "" {
		return ErrReasonRequired
	}
	r.Status = StatusCancelled
	r.CancelReason = reason
	r.CancelledAt = &at
	r.UpdatedAt = at
	return nil
}

// Patch lists the draft-only editable fields.
type Patch struct {
	Activity    *ActivityCode    `json:"activity_code,omitempty"`
	Priority    *Priority        `json:"priority,omitempty"`
	Quantity    *decimal.Decimal `json:"quantity_mt,omitempty"`
	PlannedDate *time.Time       `json:"planned_date,omitempty"`
	NewGTIP     *string          `json:"new_gtip,omitempty"`
}

func (r *Request) ApplyPatch(p Patch, at time.Time) error {
	if r.Status != StatusDraft {
		return fmt.Errorf("%w: status is %s", ErrNotDraft, r.Status)
	}
	if p.Activity != nil {
		if !p.Activity.Valid() {
			return fmt.Errorf("%w: unknown activity code %q", ErrValidation, *p.Activity)
		}
		r.Activity = *p.Activity
	}
	if p.Priority != nil {
		if !p.Priority.Valid() {
			return fmt.Errorf("%w: unknown priority %q", ErrValidation, *p.Priority)
		}
		r.Priority = *p.Priority
	}
	if p.Quantity != nil {
		if !p.Quantity.IsPositive() {
			return fmt.Errorf("%w: quantity_mt must be positive", ErrValidation)
		}
		r.Quantity = *p.Quantity
	}
	if p.PlannedDate != nil {
		r.PlannedDate = p.PlannedDate
	}
	if p.NewGTIP != nil {
		r.NewGTIP = *p.NewGTIP
	}
	r.UpdatedAt = at
	return nil
}
