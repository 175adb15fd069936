package custody

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTransitExit() *Exit {
	return &Exit{
		ID:       "exit-1",
		EntryID:  "entry-1",
		ExitDate: time.Now(),
		Kind:     KindTransit,
		Quantity: qty("10"),
		Transit: &TransitDetail{
			BorderGate:         "Kapikule",
			DestinationCountry: "DE",
			VehiclePlate:       "34 ABC 123",
		},
		DeclarationNo: "TR-2026-0001",
	}
}

func TestExit_Validate_Transit(t *testing.T) {
	x := newTransitExit()
	assert.NoError(t, x.Validate())

	x.Transit.BorderGate = ""
	assert.ErrorIs(t, x.Validate(), ErrValidation)
}

func TestExit_Validate_Port(t *testing.T) {
	x := &Exit{
		EntryID:  "entry-1",
		Kind:     KindPort,
		Quantity: qty("5"),
		Port:     &PortDetail{PortName: "Mersin", VesselName: "MV Aegean"},
	}
	assert.NoError(t, x.Validate())

	x.Port.VesselName = ""
	assert.ErrorIs(t, x.Validate(), ErrValidation)
}

func TestExit_Validate_Domestic(t *testing.T) {
	x := &Exit{
		EntryID:  "entry-1",
		Kind:     KindDomestic,
		Quantity: qty("5"),
		Domestic: &DomesticDetail{ImportDeclarationNo: "IM-42", TaxAmount: qty("1250.50")},
	}
	assert.NoError(t, x.Validate())

	x.Domestic.TaxAmount = qty("-1")
	assert.ErrorIs(t, x.Validate(), ErrValidation)
}

func TestExit_Validate_DetailMismatch(t *testing.T) {
	// detail does not match the declared kind
	x := newTransitExit()
	x.Kind = KindPort
	assert.ErrorIs(t, x.Validate(), ErrExitDetailMismatch)

	// more than one detail populated
	x = newTransitExit()
	x.Port = &PortDetail{PortName: "Mersin", VesselName: "MV Aegean"}
	assert.ErrorIs(t, x.Validate(), ErrExitDetailMismatch)

	// no detail at all
	x = newTransitExit()
	x.Transit = nil
	assert.ErrorIs(t, x.Validate(), ErrExitDetailMismatch)
}

func TestExit_Validate_UnknownKind(t *testing.T) {
	x := newTransitExit()
	x.Kind = "airmail"
	assert.ErrorIs(t, x.Validate(), ErrUnknownExitKind)
}

func TestExit_Validate_Quantity(t *testing.T) {
	x := newTransitExit()
	x.Quantity = decimal.Zero
	assert.ErrorIs(t, x.Validate(), ErrInvalidQuantity)
}

func TestExit_Normalize_DeclaredDefaultsToActual(t *testing.T) {
	x := newTransitExit()
	require.True(t, x.DeclaredQuantity.IsZero())

	x.Normalize()

	assert.True(t, x.DeclaredQuantity.Equal(x.Quantity))
}

func TestExit_Normalize_KeepsExplicitDeclared(t *testing.T) {
	x := newTransitExit()
	x.DeclaredQuantity = qty("9.5")

	x.Normalize()

	assert.True(t, x.DeclaredQuantity.Equal(qty("9.5")))
}
