package email

import (
	"fmt"
	"net/smtp"
)

// Service handles email sending via SMTP
type Service struct {
	host string
	port string
	from string
}

// NewService creates a new email service
func NewService(host, port, from string) *Service {
	return &Service{
		host: host,
		port: port,
		from: from,
	}
}

// SendPermitDecision notifies warehouse operations that customs decided
// on a handling permit.
func (s *Service) SendPermitDecision(to, requestID, permitID, status, note string) error {
	subject := fmt.Sprintf("Permit %s for handling request %s", status, shortID(requestID))
	body := BuildPermitDecisionBody(requestID, permitID, status, note)
	return s.send(to, subject, body)
}

// SendHandlingConfirmed notifies the requester that the handling result
// was confirmed and the ledger updated.
func (s *Service) SendHandlingConfirmed(to, requestID, entryID, newGTIP string) error {
	subject := fmt.Sprintf("Handling request %s confirmed", shortID(requestID))
	body := BuildHandlingConfirmedBody(requestID, entryID, newGTIP)
	return s.send(to, subject, body)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (s *Service) send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.from, to, subject, body)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	return smtp.SendMail(addr, nil, s.from, []string{to}, []byte(msg))
}
