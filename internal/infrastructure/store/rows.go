package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/antrepo/internal/domain/custody"
	"github.com/example/antrepo/internal/domain/handling"
	"github.com/example/antrepo/internal/domain/lot"
)

type lotRow struct {
	ID          string              `db:"id"`
	WarehouseID string              `db:"warehouse_id"`
	Code        string              `db:"code"`
	Capacity    decimal.NullDecimal `db:"capacity_mt"`
	Type        string              `db:"lot_type"`
	Active      bool                `db:"active"`
	CreatedAt   time.Time           `db:"created_at"`
	UpdatedAt   time.Time           `db:"updated_at"`
}

func (r *lotRow) toDomain() *lot.Lot {
	l := &lot.Lot{
		ID:          r.ID,
		WarehouseID: r.WarehouseID,
		Code:        r.Code,
		Type:        lot.Type(r.Type),
		Active:      r.Active,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.Capacity.Valid {
		c := r.Capacity.Decimal
		l.Capacity = &c
	}
	return l
}

func lotCapacityParam(l *lot.Lot) decimal.NullDecimal {
	if l.Capacity == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *l.Capacity, Valid: true}
}

type entryRow struct {
	ID              string          `db:"id"`
	LotID           string          `db:"lot_id"`
	ShipmentID      sql.NullString  `db:"shipment_id"`
	EntryDate       time.Time       `db:"entry_date"`
	CustomsQuantity decimal.Decimal `db:"customs_quantity_mt"`
	ActualQuantity  decimal.Decimal `db:"actual_quantity_mt"`
	CurrentQuantity decimal.Decimal `db:"current_quantity_mt"`
	BagCount        sql.NullInt64   `db:"bag_count"`
	ContainerCount  sql.NullInt64   `db:"container_count"`
	GTIPCode        string          `db:"gtip_code"`
	Description     string          `db:"description"`
	ThirdParty      bool            `db:"third_party"`
	OwnerName       string          `db:"owner_name"`
	OwnerTaxNo      string          `db:"owner_tax_no"`
	Status          string          `db:"status"`
	ExitCount       int             `db:"exit_count"`
	TransferCount   int             `db:"transfer_count"`
	Deleted         bool            `db:"deleted"`
	CreatedBy       string          `db:"created_by"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

func (r *entryRow) toDomain() *custody.Entry {
	e := &custody.Entry{
		ID:              r.ID,
		LotID:           r.LotID,
		EntryDate:       r.EntryDate,
		CustomsQuantity: r.CustomsQuantity,
		ActualQuantity:  r.ActualQuantity,
		CurrentQuantity: r.CurrentQuantity,
		GTIPCode:        r.GTIPCode,
		Description:     r.Description,
		ThirdParty:      r.ThirdParty,
		OwnerName:       r.OwnerName,
		OwnerTaxNo:      r.OwnerTaxNo,
		Status:          custody.Status(r.Status),
		ExitCount:       r.ExitCount,
		TransferCount:   r.TransferCount,
		Deleted:         r.Deleted,
		CreatedBy:       r.CreatedBy,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if r.ShipmentID.Valid {
		s := r.ShipmentID.String
		e.ShipmentID = &s
	}
	if r.BagCount.Valid {
		n := int(r.BagCount.Int64)
		e.BagCount = &n
	}
	if r.ContainerCount.Valid {
		n := int(r.ContainerCount.Int64)
		e.ContainerCount = &n
	}
	return e
}

func nullStr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

type exitRow struct {
	ID               string          `db:"id"`
	EntryID          string          `db:"entry_id"`
	ExitDate         time.Time       `db:"exit_date"`
	Kind             string          `db:"kind"`
	Quantity         decimal.Decimal `db:"quantity_mt"`
	DeclaredQuantity decimal.Decimal `db:"declared_quantity_mt"`
	DeclarationNo    string          `db:"declaration_no"`
	Detail           []byte          `db:"detail"`
	CreatedBy        string          `db:"created_by"`
	CreatedAt        time.Time       `db:"created_at"`
}

func (r *exitRow) toDomain() (*custody.Exit, error) {
	x := &custody.Exit{
		ID:               r.ID,
		EntryID:          r.EntryID,
		ExitDate:         r.ExitDate,
		Kind:             custody.Kind(r.Kind),
		Quantity:         r.Quantity,
		DeclaredQuantity: r.DeclaredQuantity,
		DeclarationNo:    r.DeclarationNo,
		CreatedBy:        r.CreatedBy,
		CreatedAt:        r.CreatedAt,
	}
	switch x.Kind {
	case custody.KindTransit:
		x.Transit = &custody.TransitDetail{}
		if err := json.Unmarshal(r.Detail, x.Transit); err != nil {
			return nil, fmt.Errorf("decode transit detail: %w", err)
		}
	case custody.KindPort:
		x.Port = &custody.PortDetail{}
		if err := json.Unmarshal(r.Detail, x.Port); err != nil {
			return nil, fmt.Errorf("decode port detail: %w", err)
		}
	case custody.KindDomestic:
		x.Domestic = &custody.DomesticDetail{}
		if err := json.Unmarshal(r.Detail, x.Domestic); err != nil {
			return nil, fmt.Errorf("decode domestic detail: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", custody.ErrUnknownExitKind, r.Kind)
	}
	return x, nil
}

func exitDetailJSON(x *custody.Exit) ([]byte, error) {
	switch x.Kind {
	case custody.KindTransit:
		return json.Marshal(x.Transit)
	case custody.KindPort:
		return json.Marshal(x.Port)
	case custody.KindDomestic:
		return json.Marshal(x.Domestic)
	}
	return nil, fmt.Errorf("%w: %q", custody.ErrUnknownExitKind, x.Kind)
}

type requestRow struct {
	ID                string          `db:"id"`
	EntryID           string          `db:"entry_id"`
	Activity          string          `db:"activity_code"`
	Priority          string          `db:"priority"`
	Quantity          decimal.Decimal `db:"quantity_mt"`
	PlannedDate       sql.NullTime    `db:"planned_date"`
	BeforeDescription string          `db:"before_description"`
	AfterDescription  string          `db:"after_description"`
	OldGTIP           string          `db:"old_gtip"`
	NewGTIP           string          `db:"new_gtip"`
	GTIPChanged       bool            `db:"gtip_changed"`
	Status            string          `db:"status"`
	RequestedBy       string          `db:"requested_by"`
	RequestedAt       time.Time       `db:"requested_at"`
	ProcessedBy       string          `db:"processed_by"`
	PickedUpAt        sql.NullTime    `db:"picked_up_at"`
	ExecutedBy        string          `db:"executed_by"`
	StartedAt         sql.NullTime    `db:"started_at"`
	CompletedAt       sql.NullTime    `db:"completed_at"`
	ConfirmedBy       string          `db:"confirmed_by"`
	ConfirmedAt       sql.NullTime    `db:"confirmed_at"`
	ConfirmNote       string          `db:"confirm_note"`
	ResultRejected    bool            `db:"result_rejected"`
	ResultRejectedBy  string          `db:"result_rejected_by"`
	ResultRejectedAt  sql.NullTime    `db:"result_rejected_at"`
	RejectionReason   string          `db:"rejection_reason"`
	CancelReason      string          `db:"cancel_reason"`
	CancelledAt       sql.NullTime    `db:"cancelled_at"`
	UpdatedAt         time.Time       `db:"updated_at"`
}

func (r *requestRow) toDomain() *handling.Request {
	return &handling.Request{
		ID:                r.ID,
		EntryID:           r.EntryID,
		Activity:          handling.ActivityCode(r.Activity),
		Priority:          handling.Priority(r.Priority),
		Quantity:          r.Quantity,
		PlannedDate:       timePtr(r.PlannedDate),
		BeforeDescription: r.BeforeDescription,
		AfterDescription:  r.AfterDescription,
		OldGTIP:           r.OldGTIP,
		NewGTIP:           r.NewGTIP,
		GTIPChanged:       r.GTIPChanged,
		Status:            handling.Status(r.Status),
		RequestedBy:       r.RequestedBy,
		RequestedAt:       r.RequestedAt,
		ProcessedBy:       r.ProcessedBy,
		PickedUpAt:        timePtr(r.PickedUpAt),
		ExecutedBy:        r.ExecutedBy,
		StartedAt:         timePtr(r.StartedAt),
		CompletedAt:       timePtr(r.CompletedAt),
		ConfirmedBy:       r.ConfirmedBy,
		ConfirmedAt:       timePtr(r.ConfirmedAt),
		ConfirmNote:       r.ConfirmNote,
		ResultRejected:    r.ResultRejected,
		ResultRejectedBy:  r.ResultRejectedBy,
		ResultRejectedAt:  timePtr(r.ResultRejectedAt),
		RejectionReason:   r.RejectionReason,
		CancelReason:      r.CancelReason,
		CancelledAt:       timePtr(r.CancelledAt),
		UpdatedAt:         r.UpdatedAt,
	}
}

type permitRow struct {
	ID            string       `db:"id"`
	RequestID     string       `db:"request_id"`
	Type          string       `db:"permit_type"`
	CustomsOffice string       `db:"customs_office"`
	Status        string       `db:"status"`
	AppliedAt     time.Time    `db:"applied_at"`
	DecidedAt     sql.NullTime `db:"decided_at"`
	DecisionNote  string       `db:"decision_note"`
}

func (r *permitRow) toDomain() *handling.Permit {
	return &handling.Permit{
		ID:            r.ID,
		RequestID:     r.RequestID,
		Type:          r.Type,
		CustomsOffice: r.CustomsOffice,
		Status:        handling.PermitStatus(r.Status),
		AppliedAt:     r.AppliedAt,
		DecidedAt:     timePtr(r.DecidedAt),
		DecisionNote:  r.DecisionNote,
	}
}

type costRow struct {
	ID        string          `db:"id"`
	RequestID string          `db:"request_id"`
	CostType  string          `db:"cost_type"`
	Amount    decimal.Decimal `db:"amount"`
	Currency  string          `db:"currency"`
	Note      string          `db:"note"`
	CreatedBy string          `db:"created_by"`
	CreatedAt time.Time       `db:"created_at"`
}

func (r *costRow) toDomain() *handling.Cost {
	return &handling.Cost{
		ID:        r.ID,
		RequestID: r.RequestID,
		CostType:  r.CostType,
		Amount:    r.Amount,
		Currency:  r.Currency,
		Note:      r.Note,
		CreatedBy: r.CreatedBy,
		CreatedAt: r.CreatedAt,
	}
}

type documentRow struct {
	ID        string    `db:"id"`
	RequestID string    `db:"request_id"`
	Name      string    `db:"name"`
	FileRef   string    `db:"file_ref"`
	Deleted   bool      `db:"deleted"`
	CreatedBy string    `db:"created_by"`
	CreatedAt time.Time `db:"created_at"`
}

func (r *documentRow) toDomain() *handling.Document {
	return &handling.Document{
		ID:        r.ID,
		RequestID: r.RequestID,
		Name:      r.Name,
		FileRef:   r.FileRef,
		Deleted:   r.Deleted,
		CreatedBy: r.CreatedBy,
		CreatedAt: r.CreatedAt,
	}
}
