package handling

import (
	"errors"
	"fmt"
	"time"
)

type PermitStatus string

const (
	PermitSubmitted PermitStatus = "submitted"
	PermitApproved  PermitStatus = "approved"
	PermitRejected  PermitStatus = "rejected"
)

var (
	ErrPermitNotFound = errors.New("permit not found")
	ErrPermitDecided  = errors.New("permit has already been decided")
)

// Permit is a customs authorization gating a handling request. A request
// accumulates permits over time: a rejected permit can be followed by a
// resubmission, but at most one permit is undecided or approved at once.
type Permit struct {
	ID            string       `json:"id"`
	RequestID     string       `json:"request_id"`
	Type          string       `json:"type"`
	CustomsOffice string       `json:"customs_office"`
	Status        PermitStatus `json:"status"`
	AppliedAt     time.Time    `json:"applied_at"`
	DecidedAt     *time.Time   `json:"decided_at,omitempty"`
	DecisionNote  string       `json:"decision_note,omitempty"`
}

// Open reports whether the permit still blocks a resubmission.
func (p *Permit) Open() bool {
	return p.Status == PermitSubmitted || p.Status == PermitApproved
}

func (p *Permit) Approve(note string, at time.Time) error {
	if p.Status != PermitSubmitted {
		return fmt.Errorf("%w: status is %s", ErrPermitDecided, p.Status)
	}
	p.Status = PermitApproved
	p.DecidedAt = &at
	p.DecisionNote = note
	return nil
}

func (p *Permit) Reject(note string, at time.Time) error {
	if p.Status != PermitSubmitted {
		return fmt.Errorf("%w: status is %s", ErrPermitDecided, p.Status)
	}
	p.Status = PermitRejected
	p.DecidedAt = &at
	p.DecisionNote = note
	return nil
}
