package handling

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRequest() *Request {
	now := time.Now()
	return &Request{
		ID:          "req-1",
		EntryID:     "entry-1",
		Activity:    ActivityRepackaging,
		Priority:    PriorityNormal,
		Quantity:    decimal.NewFromInt(25),
		OldGTIP:     "1006.10",
		Status:      StatusDraft,
		RequestedBy: "user-1",
		RequestedAt: now,
		UpdatedAt:   now,
	}
}

// advance walks a fresh request to the given status.
func advance(t *testing.T, r *Request, target Status) {
	t.Helper()
	now := time.Now()
	switch target {
	case StatusDraft:
	case StatusPendingPermit:
		require.NoError(t, r.Submit(false, now))
	case StatusApproved:
		advance(t, r, StatusPendingPermit)
		require.NoError(t, r.Approve(now))
	case StatusInProgress:
		advance(t, r, StatusApproved)
		require.NoError(t, r.Start("user-2", now))
	case StatusPendingConfirmation:
		advance(t, r, StatusInProgress)
		require.NoError(t, r.Complete(CompleteParams{NewGTIP: "1006.30", GTIPChanged: true}, now))
	case StatusCompleted:
		advance(t, r, StatusPendingConfirmation)
		_, _, err := r.Confirm("user-3", "", now)
		require.NoError(t, err)
	case StatusCancelled:
		require.NoError(t, r.Cancel("abandoned", now))
	}
}

// ============================================
// Transition Legality Matrix
// ============================================

func TestRequest_TransitionLegality(t *testing.T) {
	all := []Status{StatusDraft, StatusPendingPermit, StatusApproved,
		StatusInProgress, StatusPendingConfirmation, StatusCompleted, StatusCancelled}
	now := time.Now()

	type op struct {
		name    string
		allowed map[Status]bool
		run     func(r *Request) error
	}
	ops := []op{
		{
			// openPermit=true so the pending_permit resubmission path is
			// closed and only the draft entry path remains legal
			name:    "submit",
			allowed: map[Status]bool{StatusDraft: true},
			run:     func(r *Request) error { return r.Submit(true, now) },
		},
		{
			name:    "pickup",
			allowed: map[Status]bool{StatusDraft: true},
			run:     func(r *Request) error { return r.Pickup("user-2", now) },
		},
		{
			name:    "approve",
			allowed: map[Status]bool{StatusPendingPermit: true},
			run:     func(r *Request) error { return r.Approve(now) },
		},
		{
			name:    "start",
			allowed: map[Status]bool{StatusApproved: true},
			run:     func(r *Request) error { return r.Start("user-2", now) },
		},
		{
			name:    "complete",
			allowed: map[Status]bool{StatusInProgress: true},
			run:     func(r *Request) error { return r.Complete(CompleteParams{}, now) },
		},
		{
			name:    "confirm",
			allowed: map[Status]bool{StatusPendingConfirmation: true},
			run: func(r *Request) error {
				_, _, err := r.Confirm("user-3", "", now)
				return err
			},
		},
		{
			name:    "reject-result",
			allowed: map[Status]bool{StatusPendingConfirmation: true},
			run:     func(r *Request) error { return r.RejectResult("user-3", "wrong packaging", now) },
		},
		{
			name: "cancel",
			allowed: map[Status]bool{StatusDraft: true, StatusPendingPermit: true,
				StatusApproved: true, StatusInProgress: true, StatusPendingConfirmation: true},
			run: func(r *Request) error { return r.Cancel("abandoned", now) },
		},
	}

	for _, o := range ops {
		for _, from := range all {
			r := newTestRequest()
			advance(t, r, from)
			err := o.run(r)
			if o.allowed[from] {
				assert.NoError(t, err, "%s from %s should be legal", o.name, from)
			} else {
				assert.Error(t, err, "%s from %s should be rejected", o.name, from)
			}
		}
	}
}

// ============================================
// Workflow Semantics
// ============================================

func TestRequest_Submit_ResubmissionBlockedByOpenPermit(t *testing.T) {
	r := newTestRequest()
	require.NoError(t, r.Submit(false, time.Now()))

	err := r.Submit(true, time.Now())

	assert.ErrorIs(t, err, ErrPermitPending)
}

func TestRequest_Submit_ResubmissionAfterRejection(t *testing.T) {
	r := newTestRequest()
	require.NoError(t, r.Submit(false, time.Now()))

	// all prior permits rejected; request stays pending_permit
	err := r.Submit(false, time.Now())

	require.NoError(t, err)
	assert.Equal(t, StatusPendingPermit, r.Status)
}

func TestRequest_Pickup_RecordsActor(t *testing.T) {
	r := newTestRequest()

	require.NoError(t, r.Pickup("user-2", time.Now()))

	assert.Equal(t, StatusPendingPermit, r.Status)
	assert.Equal(t, "user-2", r.ProcessedBy)
	assert.NotNil(t, r.PickedUpAt)
}

func TestRequest_Complete_StagesChange(t *testing.T) {
	r := newTestRequest()
	advance(t, r, StatusInProgress)

	err := r.Complete(CompleteParams{
		BeforeDescription: "50kg bags",
		AfterDescription:  "25kg bags",
		NewGTIP:           "1006.30",
		GTIPChanged:       true,
	}, time.Now())

	require.NoError(t, err)
	assert.Equal(t, StatusPendingConfirmation, r.Status)
	assert.Equal(t, "1006.30", r.NewGTIP)
	assert.True(t, r.GTIPChanged)
	assert.NotNil(t, r.CompletedAt)
}

func TestRequest_Complete_ChangedWithoutCode(t *testing.T) {
	r := newTestRequest()
	advance(t, r, StatusInProgress)

	err := r.Complete(CompleteParams{GTIPChanged: true}, time.Now())

	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, StatusInProgress, r.Status)
}

func TestRequest_Confirm_ReturnsStagedChange(t *testing.T) {
	r := newTestRequest()
	advance(t, r, StatusPendingConfirmation)

	newGTIP, changed, err := r.Confirm("user-3", "checked", time.Now())

	require.NoError(t, err)
	assert.Equal(t, "1006.30", newGTIP)
	assert.True(t, changed)
	assert.Equal(t, StatusCompleted, r.Status)
	assert.Equal(t, "user-3", r.ConfirmedBy)
	assert.Equal(t, "checked", r.ConfirmNote)
}

func TestRequest_RejectResult_RoutesBack(t *testing.T) {
	r := newTestRequest()
	advance(t, r, StatusPendingConfirmation)

	err := r.RejectResult("user-3", "labels missing", time.Now())

	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, r.Status)
	assert.True(t, r.ResultRejected)
	assert.Equal(t, "labels missing", r.RejectionReason)
	assert.Nil(t, r.CompletedAt, "completion marker must be cleared")
	assert.Empty(t, r.NewGTIP, "staged classification change must be discarded")
	assert.False(t, r.GTIPChanged)
}

func TestRequest_RejectResult_RequiresReason(t *testing.T) {
	r := newTestRequest()
	advance(t, r, StatusPendingConfirmation)

	assert.ErrorIs(t, r.RejectResult("user-3", "", time.Now()), ErrReasonRequired)
}

func TestRequest_RecompleteAfterRejection(t *testing.T) {
	r := newTestRequest()
	advance(t, r, StatusPendingConfirmation)
	require.NoError(t, r.RejectResult("user-3", "redo", time.Now()))

	err := r.Complete(CompleteParams{NewGTIP: "1006.40", GTIPChanged: true}, time.Now())

	require.NoError(t, err)
	assert.Equal(t, StatusPendingConfirmation, r.Status)
	assert.Equal(t, "1006.40", r.NewGTIP)
	assert.False(t, r.ResultRejected, "recompletion clears the rejection flag")
}

func TestRequest_Cancel_RequiresReason(t *testing.T) {
	r := newTestRequest()
	assert.ErrorIs(t, r.Cancel("", time.Now()), ErrReasonRequired)
}

func TestRequest_Cancel_TerminalRejected(t *testing.T) {
	r := newTestRequest()
	advance(t, r, StatusCompleted)

	assert.ErrorIs(t, r.Cancel("too late", time.Now()), ErrRequestClosed)

	r2 := newTestRequest()
	advance(t, r2, StatusCancelled)
	assert.ErrorIs(t, r2.Cancel("again", time.Now()), ErrRequestClosed)
}

// ============================================
// Draft Patch
// ============================================

func TestRequest_ApplyPatch_DraftOnly(t *testing.T) {
	r := newTestRequest()
	q := decimal.NewFromInt(10)
	p := PriorityUrgent

	require.NoError(t, r.ApplyPatch(Patch{Quantity: &q, Priority: &p}, time.Now()))
	assert.True(t, r.Quantity.Equal(q))
	assert.Equal(t, PriorityUrgent, r.Priority)

	advance(t, r, StatusPendingPermit)
	assert.ErrorIs(t, r.ApplyPatch(Patch{Quantity: &q}, time.Now()), ErrNotDraft)
}

func TestRequest_ApplyPatch_RejectsInvalid(t *testing.T) {
	r := newTestRequest()
	bad := ActivityCode("smelting")

	assert.ErrorIs(t, r.ApplyPatch(Patch{Activity: &bad}, time.Now()), ErrValidation)
}

// ============================================
// Permit Tests
// ============================================

func TestPermit_ApproveRejectOnce(t *testing.T) {
	p := &Permit{ID: "permit-1", RequestID: "req-1", Status: PermitSubmitted}

	require.NoError(t, p.Approve("ok", time.Now()))
	assert.Equal(t, PermitApproved, p.Status)
	assert.NotNil(t, p.DecidedAt)

	assert.ErrorIs(t, p.Approve("again", time.Now()), ErrPermitDecided)
	assert.ErrorIs(t, p.Reject("nope", time.Now()), ErrPermitDecided)
}

func TestPermit_Open(t *testing.T) {
	p := &Permit{Status: PermitSubmitted}
	assert.True(t, p.Open())
	p.Status = PermitApproved
	assert.True(t, p.Open())
	p.Status = PermitRejected
	assert.False(t, p.Open())
}
