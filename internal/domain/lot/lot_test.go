package lot

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func qty(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func qtyPtr(s string) *decimal.Decimal {
	d := qty(s)
	return &d
}

func newTestLot() *Lot {
	now := time.Now()
	return &Lot{
		ID:          "lot-1",
		WarehouseID: "wh-1",
		Code:        "A-01",
		Type:        TypeGeneral,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// ============================================
// Validation Tests
// ============================================

func TestLot_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(l *Lot)
		wantErr bool
	}{
		{"valid", func(l *Lot) {}, false},
		{"missing warehouse", func(l *Lot) { l.WarehouseID = "" }, true},
		{"missing code", func(l *Lot) { l.Code = "" }, true},
		{"unknown type", func(l *Lot) { l.Type = "igloo" }, true},
		{"zero capacity", func(l *Lot) { l.Capacity = qtyPtr("0") }, true},
		{"negative capacity", func(l *Lot) { l.Capacity = qtyPtr("-5") }, true},
		{"positive capacity", func(l *Lot) { l.Capacity = qtyPtr("500") }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLot()
			tt.mutate(l)
			err := l.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// ============================================
// Capacity Tests
// ============================================

func TestLot_CheckCapacity_Unlimited(t *testing.T) {
	l := newTestLot()

	assert.NoError(t, l.CheckCapacity(qty("999999"), qty("999999")))
}

func TestLot_CheckCapacity_ExactFill(t *testing.T) {
	l := newTestLot()
	l.Capacity = qtyPtr("100")

	assert.NoError(t, l.CheckCapacity(qty("60"), qty("40")))
}

func TestLot_CheckCapacity_Exceeded(t *testing.T) {
	l := newTestLot()
	l.Capacity = qtyPtr("100")

	err := l.CheckCapacity(qty("60"), qty("40.001"))

	assert.ErrorIs(t, err, ErrCapacityExceeded)
	var capErr *CapacityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, "lot-1", capErr.LotID)
	assert.True(t, capErr.Occupied.Equal(qty("60")))
	assert.True(t, capErr.Requested.Equal(qty("40.001")))
}

// ============================================
// Patch Tests
// ============================================

func TestLot_ApplyPatch(t *testing.T) {
	l := newTestLot()
	code := "B-07"
	typ := TypeTank
	inactive := false

	err := l.ApplyPatch(Patch{
		Code:     &code,
		Capacity: qtyPtr("250"),
		Type:     &typ,
		Active:   &inactive,
	}, time.Now())

	require.NoError(t, err)
	assert.Equal(t, "B-07", l.Code)
	assert.Equal(t, TypeTank, l.Type)
	assert.False(t, l.Active)
	assert.True(t, l.Capacity.Equal(qty("250")))
}

func TestLot_ApplyPatch_Invalid(t *testing.T) {
	empty := ""
	badType := Type("igloo")

	tests := []struct {
		name  string
		patch Patch
	}{
		{"empty code", Patch{Code: &empty}},
		{"non-positive capacity", Patch{Capacity: qtyPtr("0")}},
		{"unknown type", Patch{Type: &badType}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLot()
			assert.ErrorIs(t, l.ApplyPatch(tt.patch, time.Now()), ErrValidation)
		})
	}
}
