package notification

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// EventType identifies a ledger or workflow notification.
type EventType string

const (
	EventEntryCreated      EventType = "EntryCreated"
	EventTransferRecorded  EventType = "TransferRecorded"
	EventExitRecorded      EventType = "ExitRecorded"
	EventEntryArchived     EventType = "EntryArchived"
	EventHandlingSubmitted EventType = "HandlingSubmitted"
	EventPermitDecided     EventType = "PermitDecided"
	EventHandlingCompleted EventType = "HandlingCompleted"
	EventHandlingConfirmed EventType = "HandlingConfirmed"
	EventHandlingCancelled EventType = "HandlingCancelled"
)

// Envelope is the wire format published to the notifications topic.
type Envelope struct {
	Type       EventType       `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Actor      string          `json:"actor"`
	Data       json.RawMessage `json:"data"`
}

type EntryCreated struct {
	EntryID  string          `json:"entry_id"`
	LotID    string          `json:"lot_id"`
	Quantity decimal.Decimal `json:"quantity_mt"`
}

type TransferRecorded struct {
	EntryID    string          `json:"entry_id"`
	NewEntryID string          `json:"new_entry_id,omitempty"`
	TargetLot  string          `json:"target_lot_id"`
	Quantity   decimal.Decimal `json:"quantity_mt"`
}

type ExitRecorded struct {
	EntryID   string          `json:"entry_id"`
	ExitID    string          `json:"exit_id"`
	Kind      string          `json:"kind"`
	Quantity  decimal.Decimal `json:"quantity_mt"`
	Remaining decimal.Decimal `json:"remaining_mt"`
}

type EntryArchived struct {
	EntryID    string `json:"entry_id"`
	ShipmentID string `json:"shipment_id,omitempty"`
}

type HandlingSubmitted struct {
	RequestID string `json:"request_id"`
	EntryID   string `json:"entry_id"`
	Activity  string `json:"activity_code"`
	PermitID  string `json:"permit_id,omitempty"`
}

type PermitDecided struct {
	PermitID  string `json:"permit_id"`
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
	Note      string `json:"note,omitempty"`
}

type HandlingCompleted struct {
	RequestID   string `json:"request_id"`
	EntryID     string `json:"entry_id"`
	GTIPChanged bool   `json:"gtip_changed"`
}

type HandlingConfirmed struct {
	RequestID string `json:"request_id"`
	EntryID   string `json:"entry_id"`
	NewGTIP   string `json:"new_gtip,omitempty"`
}

type HandlingCancelled struct {
	RequestID string `json:"request_id"`
	Reason    string `json:"reason"`
}
