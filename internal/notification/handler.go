package notification

import (
	"context"
	"encoding/json"
	"log"

	"github.com/example/antrepo/internal/email"
)

// Handler processes notification envelopes for sending emails
type Handler struct {
	emailService *email.Service
	opsAddress   string
}

// NewHandler creates a new notification handler. opsAddress is the
// warehouse operations inbox that receives permit and confirmation
// mails.
func NewHandler(emailSvc *email.Service, opsAddress string) *Handler {
	return &Handler{
		emailService: emailSvc,
		opsAddress:   opsAddress,
	}
}

// HandleEvent processes an envelope from Kafka
func (h *Handler) HandleEvent(ctx context.Context, key, value []byte) error {
	var env Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		log.Printf("[Notifier] Failed to unmarshal envelope: %v", err)
		return err
	}

	switch env.Type {
	case EventPermitDecided:
		return h.handlePermitDecided(env)
	case EventHandlingConfirmed:
		return h.handleHandlingConfirmed(env)
	default:
		// Ledger events are informational only; log and acknowledge.
		log.Printf("[Notifier] %s for %s by %s", env.Type, string(key), env.Actor)
		return nil
	}
}

func (h *Handler) handlePermitDecided(env Envelope) error {
	var e PermitDecided
	if err := json.Unmarshal(env.Data, &e); err != nil {
		log.Printf("[Notifier] Failed to unmarshal PermitDecided event: %v", err)
		return err
	}

	log.Printf("[Notifier] Permit %s %s for request %s", e.PermitID, e.Status, e.RequestID)

	if err := h.emailService.SendPermitDecision(h.opsAddress, e.RequestID, e.PermitID, e.Status, e.Note); err != nil {
		log.Printf("[Notifier] Failed to send permit decision email: %v", err)
		return err
	}

	log.Printf("[Notifier] Permit decision email sent to %s for request %s", h.opsAddress, e.RequestID)
	return nil
}

func (h *Handler) handleHandlingConfirmed(env Envelope) error {
	var e HandlingConfirmed
	if err := json.Unmarshal(env.Data, &e); err != nil {
		log.Printf("[Notifier] Failed to unmarshal HandlingConfirmed event: %v", err)
		return err
	}

	log.Printf("[Notifier] Handling request %s confirmed for entry %s", e.RequestID, e.EntryID)

	if err := h.emailService.SendHandlingConfirmed(h.opsAddress, e.RequestID, e.EntryID, e.NewGTIP); err != nil {
		log.Printf("[Notifier] Failed to send confirmation email: %v", err)
		return err
	}

	log.Printf("[Notifier] Confirmation email sent to %s for request %s", h.opsAddress, e.RequestID)
	return nil
}
