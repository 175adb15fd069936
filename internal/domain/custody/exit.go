package custody

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Kind discriminates the three mutually exclusive exit variants.
type Kind string

const (
	KindTransit  Kind = "transit"  // onward cross-border movement
	KindPort     Kind = "port"     // re-export by sea
	KindDomestic Kind = "domestic" // released into local circulation
)

var (
	ErrUnknownExitKind    = errors.New("unknown exit kind")
	ErrExitDetailMismatch = errors.New("exit detail does not match kind")
)

type TransitDetail struct {
	BorderGate         string `json:"border_gate"`
	DestinationCountry string `json:"destination_country"`
	VehiclePlate       string `json:"vehicle_plate,omitempty"`
}

type PortDetail struct {
	PortName   string `json:"port_name"`
	VesselName string `json:"vessel_name"`
}

type DomesticDetail struct {
	ImportDeclarationNo string          `json:"import_declaration_no"`
	TaxAmount           decimal.Decimal `json:"tax_amount"`
}

// Exit records a departure against an entry. Immutable once created:
// there is no update path, corrections are new compensating records.
// Exactly one of the detail pointers is set and it must match Kind.
type Exit struct {
	ID               string          `json:"id"`
	EntryID          string          `json:"entry_id"`
	ExitDate         time.Time       `json:"exit_date"`
	Kind             Kind            `json:"kind"`
	Quantity         decimal.Decimal `json:"quantity_mt"`
	DeclaredQuantity decimal.Decimal `json:"declared_quantity_mt"`
	DeclarationNo    string          `json:"declaration_no"`
	Transit          *TransitDetail  `json:"transit,omitempty"`
	Port             *PortDetail     `json:"port,omitempty"`
	Domestic         *DomesticDetail `json:"domestic,omitempty"`
	CreatedBy        string          `json:"created_by"`
	CreatedAt        time.Time       `json:"created_at"`
}

// Normalize fills defaults: the customs-declared quantity may legitimately
// diverge from the actual one, but falls back to it when omitted.
func (x *Exit) Normalize() {
	if x.DeclaredQuantity.IsZero() {
		x.DeclaredQuantity = x.Quantity
	}
}

// Validate checks the tagged union and the kind-specific required fields.
func (x *Exit) Validate() error {
	if x.EntryID == "" {
		return fmt.Errorf("%w: entry_id is required", ErrValidation)
	}
	if !x.Quantity.IsPositive() {
		return ErrInvalidQuantity
	}
	if x.DeclaredQuantity.IsNegative() {
		return fmt.Errorf("%w: declared_quantity_mt cannot be negative", ErrValidation)
	}

	details := 0
	if x.Transit != nil {
		details++
	}
	if x.Port != nil {
		details++
	}
	if x.Domestic != nil {
		details++
	}
	if details != 1 {
		return fmt.Errorf("%w: exactly one of transit, port, domestic must be set", ErrExitDetailMismatch)
	}

	switch x.Kind {
	case KindTransit:
		if x.Transit == nil {
			return fmt.Errorf("%w: kind %s requires transit detail", ErrExitDetailMismatch, x.Kind)
		}
		if x.Transit.BorderGate == "" || x.Transit.DestinationCountry == "" {
			return fmt.Errorf("%w: transit.border_gate and transit.destination_country are required", ErrValidation)
		}
	case KindPort:
		if x.Port == nil {
			return fmt.Errorf("%w: kind %s requires port detail", ErrExitDetailMismatch, x.Kind)
		}
		if x.Port.PortName == "" || x.Port.VesselName == "" {
			return fmt.Errorf("%w: port.port_name and port.vessel_name are required", ErrValidation)
		}
	case KindDomestic:
		if x.Domestic == nil {
			return fmt.Errorf("%w: kind %s requires domestic detail", ErrExitDetailMismatch, x.Kind)
		}
		if x.Domestic.ImportDeclarationNo == "" {
			return fmt.Errorf("%w: domestic.import_declaration_no is required", ErrValidation)
		}
		if x.Domestic.TaxAmount.IsNegative() {
			return fmt.Errorf("%w: domestic.tax_amount cannot be negative", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownExitKind, x.Kind)
	}
	return nil
}
