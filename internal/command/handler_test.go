package command

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/antrepo/internal/domain/custody"
	"github.com/example/antrepo/internal/domain/lot"
	"github.com/example/antrepo/internal/infrastructure/store"
	"github.com/example/antrepo/internal/infrastructure/store/mocks"
	"github.com/example/antrepo/internal/notification"
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

func newHandler() (*Handler, *mocks.MockStore) {
	ms := mocks.NewMockStore()
	h := NewHandler(ms, ms, ms, notification.NewNotifier(nil))
	return h, ms
}

func createLot(t *testing.T, h *Handler, warehouseID, code string, capacity *decimal.Decimal) *lot.Lot {
	t.Helper()
	l, err := h.CreateLot(context.Background(), CreateLot{
		WarehouseID: warehouseID,
		Code:        code,
		Capacity:    capacity,
		Type:        lot.TypeGeneral,
		Actor:       "tester",
	})
	require.NoError(t, err)
	return l
}

func createEntry(t *testing.T, h *Handler, lotID, quantity string) *custody.Entry {
	t.Helper()
	e, err := h.CreateEntry(context.Background(), CreateEntry{
		LotID:           lotID,
		CustomsQuantity: qty(quantity),
		ActualQuantity:  qty(quantity),
		GTIPCode:        "1001.99.00",
		Description:     "durum wheat in bulk",
		Actor:           "tester",
	})
	require.NoError(t, err)
	return e
}

// ============ Lots ============

func TestCreateLot_DuplicateCode(t *testing.T) {
	h, _ := newHandler()
	createLot(t, h, "wh-1", "A-01", nil)

	_, err := h.CreateLot(context.Background(), CreateLot{
		WarehouseID: "wh-1", Code: "A-01", Type: lot.TypeGeneral, Actor: "tester",
	})
	assert.ErrorIs(t, err, lot.ErrDuplicateCode)

	// Same code in another warehouse is fine.
	_, err = h.CreateLot(context.Background(), CreateLot{
		WarehouseID: "wh-2", Code: "A-01", Type: lot.TypeGeneral, Actor: "tester",
	})
	assert.NoError(t, err)
}

func TestUpdateLot_Patch(t *testing.T) {
	h, _ := newHandler()
	l := createLot(t, h, "wh-1", "A-01", nil)

	active := false
	updated, err := h.UpdateLot(context.Background(), UpdateLot{
		LotID: l.ID,
		Patch: lot.Patch{Active: &active},
		Actor: "tester",
	})
	require.NoError(t, err)
	assert.False(t, updated.Active)
}

// ============ Entry intake ============

func TestCreateEntry_InactiveLot(t *testing.T) {
	h, _ := newHandler()
	l := createLot(t, h, "wh-1", "A-01", nil)
	active := false
	_, err := h.UpdateLot(context.Background(), UpdateLot{LotID: l.ID, Patch: lot.Patch{Active: &active}, Actor: "tester"})
	require.NoError(t, err)

	_, err = h.CreateEntry(context.Background(), CreateEntry{
		LotID:          l.ID,
		ActualQuantity: qty("10"),
		Actor:          "tester",
	})
	assert.ErrorIs(t, err, lot.ErrLotInactive)
}

func TestCreateEntry_CapacityExceeded(t *testing.T) {
	h, _ := newHandler()
	l := createLot(t, h, "wh-1", "A-01", qtyPtr("100"))
	createEntry(t, h, l.ID, "80")

	_, err := h.CreateEntry(context.Background(), CreateEntry{
		LotID:           l.ID,
		CustomsQuantity: qty("30"),
		ActualQuantity:  qty("30"),
		Actor:           "tester",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, lot.ErrCapacityExceeded)

	var capErr *lot.CapacityError
	require.ErrorAs(t, err, &capErr)
	assert.True(t, capErr.Occupied.Equal(qty("80")))
	assert.True(t, capErr.Requested.Equal(qty("30")))

	// Exactly filling the lot is allowed.
	_, err = h.CreateEntry(context.Background(), CreateEntry{
		LotID:           l.ID,
		CustomsQuantity: qty("20"),
		ActualQuantity:  qty("20"),
		Actor:           "tester",
	})
	assert.NoError(t, err)
}

func TestCreateEntry_BackfillsFromShipment(t *testing.T) {
	h, ms := newHandler()
	l := createLot(t, h, "wh-1", "A-01", nil)
	ms.SeedShipment(&mocks.Shipment{
		ID:          "shp-1",
		WarehouseID: "wh-1",
		Description: "frozen poultry, 40ft reefer",
		GTIPCode:    "0207.12.10",
		Quantity:    qty("24.5"),
		Status:      "delivered",
	})

	shipmentID := "shp-1"
	e, err := h.CreateEntry(context.Background(), CreateEntry{
		LotID:          l.ID,
		ShipmentID:     &shipmentID,
		ActualQuantity: qty("24.2"),
		Actor:          "tester",
	})
	require.NoError(t, err)

	assert.Equal(t, "0207.12.10", e.GTIPCode)
	assert.Equal(t, "frozen poultry, 40ft reefer", e.Description)
	assert.True(t, e.CustomsQuantity.Equal(qty("24.5")))
	assert.True(t, e.CurrentQuantity.Equal(qty("24.2")))
}

func TestCreateEntry_UnknownShipment(t *testing.T) {
	h, _ := newHandler()
	l := createLot(t, h, "wh-1", "A-01", nil)

	shipmentID := "missing"
	_, err := h.CreateEntry(context.Background(), CreateEntry{
		LotID:          l.ID,
		ShipmentID:     &shipmentID,
		ActualQuantity: qty("10"),
		Actor:          "tester",
	})
	assert.ErrorIs(t, err, store.ErrShipmentNotFound)
}

// ============ Exits ============

func TestRecordExit_PartialThenFinal(t *testing.T) {
	h, _ := newHandler()
	l := createLot(t, h, "wh-1", "A-01", nil)
	e := createEntry(t, h, l.ID, "100")

	ctx := context.Background()
	x, err := h.RecordExit(ctx, RecordExit{
		EntryID:  e.ID,
		Kind:     custody.KindTransit,
		Quantity: qty("40"),
		Transit:  &custody.TransitDetail{BorderGate: "Kapıkule", DestinationCountry: "DE"},
		Actor:    "tester",
	})
	require.NoError(t, err)
	assert.True(t, x.DeclaredQuantity.Equal(qty("40"))) // defaults to actual

	got, err := h.ledger.GetEntry(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, custody.StatusPartialExit, got.Status)
	assert.True(t, got.CurrentQuantity.Equal(qty("60")))

	_, err = h.RecordExit(ctx, RecordExit{
		EntryID:  e.ID,
		Kind:     custody.KindPort,
		Quantity: qty("60"),
		Port:     &custody.PortDetail{PortName: "Mersin", VesselName: "MV Anadolu"},
		Actor:    "tester",
	})
	require.NoError(t, err)

	got, err = h.ledger.GetEntry(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, custody.StatusExited, got.Status)
	assert.True(t, got.CurrentQuantity.IsZero())

	// Closed entry rejects any further exit.
	_, err = h.RecordExit(ctx, RecordExit{
		EntryID:  e.ID,
		Kind:     custody.KindDomestic,
		Quantity: qty("1"),
		Domestic: &custody.DomesticDetail{ImportDeclarationNo: "IM-1"},
		Actor:    "tester",
	})
	assert.ErrorIs(t, err, custody.ErrEntryClosed)
}

func TestRecordExit_Overdraw(t *testing.T) {
	h, _ := newHandler()
	l := createLot(t, h, "wh-1", "A-01", nil)
	e := createEntry(t, h, l.ID, "50")

	_, err := h.RecordExit(context.Background(), RecordExit{
		EntryID:  e.ID,
		Kind:     custody.KindTransit,
		Quantity: qty("50.001"),
		Transit:  &custody.TransitDetail{BorderGate: "Kapıkule", DestinationCountry: "BG"},
		Actor:    "tester",
	})
	require.Error(t, err)

	var insuff *custody.InsufficientQuantityError
	require.ErrorAs(t, err, &insuff)
	assert.True(t, insuff.Available.Equal(qty("50")))

	// Nothing was drawn down.
	got, err := h.ledger.GetEntry(context.Background(), e.ID)
	require.NoError(t, err)
	assert.True(t, got.CurrentQuantity.Equal(qty("50")))
	assert.Equal(t, custody.StatusInStock, got.Status)
}

func TestRecordExit_DetailMismatch(t *testing.T) {
	h, _ := newHandler()
	l := createLot(t, h, "wh-1", "A-01", nil)
	e := createEntry(t, h, l.ID, "10")

	_, err := h.RecordExit(context.Background(), RecordExit{
		EntryID:  e.ID,
		Kind:     custody.KindTransit,
		Quantity: qty("5"),
		Port:     &custody.PortDetail{PortName: "Mersin"},
		Actor:    "tester",
	})
	assert.ErrorIs(t, err, custody.ErrExitDetailMismatch)
}

// Two goroutines racing for more than the entry holds: exactly one
// succeeds, and the remainder reflects only the winner.
func TestRecordExit_ConcurrentOverdraw(t *testing.T) {
	h, _ := newHandler()
	l := createLot(t, h, "wh-1", "A-01", nil)
	e := createEntry(t, h, l.ID, "100")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.RecordExit(context.Background(), RecordExit{
				EntryID:  e.ID,
				Kind:     custody.KindTransit,
				Quantity: qty("60"),
				Transit:  &custody.TransitDetail{BorderGate: "Kapıkule", DestinationCountry: "DE"},
				Actor:    "tester",
			})
		}(i)
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, custody.ErrInsufficientQuantity)
			failures++
		}
	}
	assert.Equal(t, 1, failures, "exactly one of the two racing exits must lose")

	got, err := h.ledger.GetEntry(context.Background(), e.ID)
	require.NoError(t, err)
	assert.True(t, got.CurrentQuantity.Equal(qty("40")))
}

// ============ Transfers ============

func TestTransfer_Partial(t *testing.T) {
	h, _ := newHandler()
	src := createLot(t, h, "wh-1", "A-01", nil)
	dst := createLot(t, h, "wh-1", "A-02", nil)
	e := createEntry(t, h, src.ID, "100")

	res, err := h.Transfer(context.Background(), Transfer{
		EntryID:     e.ID,
		TargetLotID: dst.ID,
		Quantity:    qtyPtr("30"),
		Actor:       "tester",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Created)

	assert.True(t, res.Source.CurrentQuantity.Equal(qty("70")))
	assert.Equal(t, custody.StatusPartialExit, res.Source.Status)
	assert.Equal(t, dst.ID, res.Created.LotID)
	assert.True(t, res.Created.CurrentQuantity.Equal(qty("30")))
	assert.Equal(t, custody.StatusInStock, res.Created.Status)
	// Provenance copied, history fresh.
	assert.Equal(t, e.GTIPCode, res.Created.GTIPCode)
	assert.Equal(t, 0, res.Created.ExitCount+res.Created.TransferCount)
}

func TestTransfer_FullMovesInPlace(t *testing.T) {
	h, _ := newHandler()
	src := createLot(t, h, "wh-1", "A-01", nil)
	dst := createLot(t, h, "wh-1", "A-02", nil)
	e := createEntry(t, h, src.ID, "100")

	// Give the entry some exit history first; a full move keeps it.
	_, err := h.RecordExit(context.Background(), RecordExit{
		EntryID:  e.ID,
		Kind:     custody.KindDomestic,
		Quantity: qty("20"),
		Domestic: &custody.DomesticDetail{ImportDeclarationNo: "IM-7"},
		Actor:    "tester",
	})
	require.NoError(t, err)

	res, err := h.Transfer(context.Background(), Transfer{
		EntryID:     e.ID,
		TargetLotID: dst.ID,
		Actor:       "tester",
	})
	require.NoError(t, err)
	assert.Nil(t, res.Created)
	assert.Equal(t, dst.ID, res.Source.LotID)
	assert.True(t, res.Source.CurrentQuantity.Equal(qty("80")))
	assert.Equal(t, custody.StatusPartialExit, res.Source.Status, "full move keeps status")
}

func TestTransfer_Guards(t *testing.T) {
	h, _ := newHandler()
	src := createLot(t, h, "wh-1", "A-01", nil)
	other := createLot(t, h, "wh-2", "B-01", nil)
	e := createEntry(t, h, src.ID, "100")

	ctx := context.Background()

	_, err := h.Transfer(ctx, Transfer{EntryID: e.ID, TargetLotID: src.ID, Actor: "tester"})
	assert.ErrorIs(t, err, custody.ErrSameLot)

	_, err = h.Transfer(ctx, Transfer{EntryID: e.ID, TargetLotID: other.ID, Actor: "tester"})
	assert.ErrorIs(t, err, custody.ErrCrossWarehouse)

	inactive := createLot(t, h, "wh-1", "A-03", nil)
	off := false
	_, err = h.UpdateLot(ctx, UpdateLot{LotID: inactive.ID, Patch: lot.Patch{Active: &off}, Actor: "tester"})
	require.NoError(t, err)
	_, err = h.Transfer(ctx, Transfer{EntryID: e.ID, TargetLotID: inactive.ID, Actor: "tester"})
	assert.ErrorIs(t, err, lot.ErrLotInactive)

	dst := createLot(t, h, "wh-1", "A-04", nil)
	_, err = h.Transfer(ctx, Transfer{EntryID: e.ID, TargetLotID: dst.ID, Quantity: qtyPtr("100.5"), Actor: "tester"})
	assert.ErrorIs(t, err, custody.ErrInsufficientQuantity)

	_, err = h.Transfer(ctx, Transfer{EntryID: e.ID, TargetLotID: dst.ID, Quantity: qtyPtr("-1"), Actor: "tester"})
	assert.ErrorIs(t, err, custody.ErrInvalidQuantity)
}

func TestTransfer_TargetCapacity(t *testing.T) {
	h, _ := newHandler()
	src := createLot(t, h, "wh-1", "A-01", nil)
	dst := createLot(t, h, "wh-1", "A-02", qtyPtr("25"))
	e := createEntry(t, h, src.ID, "100")

	_, err := h.Transfer(context.Background(), Transfer{
		EntryID:     e.ID,
		TargetLotID: dst.ID,
		Quantity:    qtyPtr("30"),
		Actor:       "tester",
	})
	assert.ErrorIs(t, err, lot.ErrCapacityExceeded)

	// Source must be untouched after the rejection.
	got, err := h.ledger.GetEntry(context.Background(), e.ID)
	require.NoError(t, err)
	assert.True(t, got.CurrentQuantity.Equal(qty("100")))
}

// Quantity conservation across a mixed history: exits plus transfers
// never create or destroy quantity.
func TestTransfer_Conservation(t *testing.T) {
	h, _ := newHandler()
	a := createLot(t, h, "wh-1", "A-01", nil)
	b := createLot(t, h, "wh-1", "A-02", nil)
	e := createEntry(t, h, a.ID, "100")

	ctx := context.Background()

	res, err := h.Transfer(ctx, Transfer{EntryID: e.ID, TargetLotID: b.ID, Quantity: qtyPtr("35"), Actor: "tester"})
	require.NoError(t, err)

	_, err = h.RecordExit(ctx, RecordExit{
		EntryID:  res.Created.ID,
		Kind:     custody.KindPort,
		Quantity: qty("10"),
		Port:     &custody.PortDetail{PortName: "İzmir", VesselName: "MV Ege"},
		Actor:    "tester",
	})
	require.NoError(t, err)

	_, err = h.RecordExit(ctx, RecordExit{
		EntryID:  e.ID,
		Kind:     custody.KindTransit,
		Quantity: qty("15"),
		Transit:  &custody.TransitDetail{BorderGate: "Habur", DestinationCountry: "IQ"},
		Actor:    "tester",
	})
	require.NoError(t, err)

	source, err := h.ledger.GetEntry(ctx, e.ID)
	require.NoError(t, err)
	child, err := h.ledger.GetEntry(ctx, res.Created.ID)
	require.NoError(t, err)

	held := source.CurrentQuantity.Add(child.CurrentQuantity)
	exited := qty("10").Add(qty("15"))
	assert.True(t, held.Add(exited).Equal(qty("100")),
		"held %s + exited %s must equal the original 100", held, exited)
}

// ============ Archive ============

func TestArchiveEntry_RevertsShipment(t *testing.T) {
	h, ms := newHandler()
	l := createLot(t, h, "wh-1", "A-01", nil)
	ms.SeedShipment(&mocks.Shipment{
		ID:                "shp-9",
		WarehouseID:       "wh-1",
		GTIPCode:          "1001.99.00",
		Quantity:          qty("50"),
		Status:            "delivered",
		FlaggedForCustody: true,
		DeliveryConfirmed: true,
	})

	shipmentID := "shp-9"
	e, err := h.CreateEntry(context.Background(), CreateEntry{
		LotID:          l.ID,
		ShipmentID:     &shipmentID,
		ActualQuantity: qty("50"),
		Actor:          "tester",
	})
	require.NoError(t, err)

	require.NoError(t, h.ArchiveEntry(context.Background(), ArchiveEntry{EntryID: e.ID, Actor: "tester"}))

	_, err = h.ledger.GetEntry(context.Background(), e.ID)
	assert.ErrorIs(t, err, custody.ErrEntryNotFound)

	s, ok := ms.ShipmentState("shp-9")
	require.True(t, ok)
	assert.Equal(t, "pending_arrival", s.Status)
	assert.False(t, s.DeliveryConfirmed)
}

func TestArchiveEntry_RejectsHistory(t *testing.T) {
	h, _ := newHandler()
	l := createLot(t, h, "wh-1", "A-01", nil)
	e := createEntry(t, h, l.ID, "50")

	_, err := h.RecordExit(context.Background(), RecordExit{
		EntryID:  e.ID,
		Kind:     custody.KindDomestic,
		Quantity: qty("5"),
		Domestic: &custody.DomesticDetail{ImportDeclarationNo: "IM-2"},
		Actor:    "tester",
	})
	require.NoError(t, err)

	err = h.ArchiveEntry(context.Background(), ArchiveEntry{EntryID: e.ID, Actor: "tester"})
	assert.ErrorIs(t, err, custody.ErrEntryHasHistory)

	// Still visible.
	_, err = h.ledger.GetEntry(context.Background(), e.ID)
	assert.NoError(t, err)
}

// ============ Pending arrivals ============

func TestPendingArrivals_ExcludesEnteredAndUnflagged(t *testing.T) {
	h, ms := newHandler()
	l := createLot(t, h, "wh-1", "A-01", nil)
	ms.SeedShipment(&mocks.Shipment{ID: "shp-a", WarehouseID: "wh-1", Quantity: qty("10"), FlaggedForCustody: true})
	ms.SeedShipment(&mocks.Shipment{ID: "shp-b", WarehouseID: "wh-1", Quantity: qty("20"), FlaggedForCustody: true})
	ms.SeedShipment(&mocks.Shipment{ID: "shp-c", WarehouseID: "wh-1", Quantity: qty("30"), FlaggedForCustody: false})

	shipmentID := "shp-a"
	_, err := h.CreateEntry(context.Background(), CreateEntry{
		LotID:          l.ID,
		ShipmentID:     &shipmentID,
		ActualQuantity: qty("10"),
		Actor:          "tester",
	})
	require.NoError(t, err)

	arrivals, total, err := h.PendingArrivals(context.Background(), store.WarehouseScope([]string{"wh-1"}), store.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, arrivals, 1)
	assert.Equal(t, "shp-b", arrivals[0].ShipmentID)

	// Denied scope sees nothing.
	arrivals, total, err = h.PendingArrivals(context.Background(), store.DenyAllScope(), store.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, arrivals)
}
