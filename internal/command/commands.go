package command

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/antrepo/internal/domain/custody"
	"github.com/example/antrepo/internal/domain/handling"
	"github.com/example/antrepo/internal/domain/lot"
)

// Lot Commands
type CreateLot struct {
	WarehouseID string           `json:"warehouse_id"`
	Code        string           `json:"code"`
	Capacity    *decimal.Decimal `json:"capacity_mt,omitempty"`
	Type        lot.Type         `json:"lot_type"`
	Actor       string           `json:"-"`
}

type UpdateLot struct {
	LotID string    `json:"lot_id"`
	Patch lot.Patch `json:"patch"`
	Actor string    `json:"-"`
}

// Ledger Commands
type CreateEntry struct {
	LotID           string          `json:"lot_id"`
	ShipmentID      *string         `json:"shipment_id,omitempty"`
	EntryDate       time.Time       `json:"entry_date"`
	CustomsQuantity decimal.Decimal `json:"customs_quantity_mt"`
	ActualQuantity  decimal.Decimal `json:"actual_quantity_mt"`
	BagCount        *int            `json:"bag_count,omitempty"`
	ContainerCount  *int            `json:"container_count,omitempty"`
	GTIPCode        string          `json:"gtip_code"`
	Description     string          `json:"description"`
	ThirdParty      bool            `json:"third_party"`
	OwnerName       string          `json:"owner_name,omitempty"`
	OwnerTaxNo      string          `json:"owner_tax_no,omitempty"`
	Actor           string          `json:"-"`
}

// Transfer moves quantity between lots of the same warehouse. A nil
// Quantity (or one equal to the entry's current quantity) moves the
// whole entry; anything less splits off a new entry in the target lot.
type Transfer struct {
	EntryID     string           `json:"entry_id"`
	TargetLotID string           `json:"target_lot_id"`
	Quantity    *decimal.Decimal `json:"quantity_mt,omitempty"`
	Actor       string           `json:"-"`
}

type RecordExit struct {
	EntryID          string                  `json:"entry_id"`
	Kind             custody.Kind            `json:"kind"`
	Quantity         decimal.Decimal         `json:"quantity_mt"`
	DeclaredQuantity decimal.Decimal         `json:"declared_quantity_mt"`
	DeclarationNo    string                  `json:"declaration_no,omitempty"`
	ExitDate         time.Time               `json:"exit_date"`
	Transit          *custody.TransitDetail  `json:"transit,omitempty"`
	Port             *custody.PortDetail     `json:"port,omitempty"`
	Domestic         *custody.DomesticDetail `json:"domestic,omitempty"`
	Actor            string                  `json:"-"`
}

type ArchiveEntry struct {
	EntryID string `json:"entry_id"`
	Actor   string `json:"-"`
}

// Handling Commands
type CreateRequest struct {
	EntryID     string                `json:"entry_id"`
	Activity    handling.ActivityCode `json:"activity_code"`
	Priority    handling.Priority     `json:"priority"`
	Quantity    decimal.Decimal       `json:"quantity_mt"`
	PlannedDate *time.Time            `json:"planned_date,omitempty"`
	Actor       string                `json:"-"`
}

type UpdateDraft struct {
	RequestID string         `json:"request_id"`
	Patch     handling.Patch `json:"patch"`
	Actor     string         `json:"-"`
}

type Submit struct {
	RequestID     string `json:"request_id"`
	PermitType    string `json:"permit_type"`
	CustomsOffice string `json:"customs_office"`
	Actor         string `json:"-"`
}

type Pickup struct {
	RequestID string `json:"request_id"`
	Actor     string `json:"-"`
}

type ApprovePermit struct {
	PermitID string `json:"permit_id"`
	Note     string `json:"note,omitempty"`
	Actor    string `json:"-"`
}

type RejectPermit struct {
	PermitID string `json:"permit_id"`
	Note     string `json:"note,omitempty"`
	Actor    string `json:"-"`
}

type Start struct {
	RequestID string `json:"request_id"`
	Actor     string `json:"-"`
}

type Complete struct {
	RequestID         string `json:"request_id"`
	BeforeDescription string `json:"before_description,omitempty"`
	AfterDescription  string `json:"after_description,omitempty"`
	NewGTIP           string `json:"new_gtip,omitempty"`
	GTIPChanged       bool   `json:"gtip_changed"`
	Actor             string `json:"-"`
}

type Confirm struct {
	RequestID string `json:"request_id"`
	Note      string `json:"note,omitempty"`
	Actor     string `json:"-"`
}

type RejectResult struct {
	RequestID string `json:"request_id"`
	Reason    string `json:"reason"`
	Actor     string `json:"-"`
}

type Cancel struct {
	RequestID string `json:"request_id"`
	Reason    string `json:"reason"`
	Actor     string `json:"-"`
}

type AddCost struct {
	RequestID string          `json:"request_id"`
	CostType  string          `json:"cost_type"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Note      string          `json:"note,omitempty"`
	Actor     string          `json:"-"`
}

type AddDocument struct {
	RequestID string `json:"request_id"`
	Name      string `json:"name"`
	FileRef   string `json:"file_ref"`
	Actor     string `json:"-"`
}

type DeleteDocument struct {
	DocumentID string `json:"document_id"`
	Actor      string `json:"-"`
}
