package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/antrepo/internal/domain/custody"
	"github.com/example/antrepo/internal/domain/handling"
	"github.com/example/antrepo/internal/domain/lot"
	"github.com/example/antrepo/internal/infrastructure/store"
)

// ============ Status mapping ============

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		class  string
	}{
		{"validation", fmt.Errorf("%w: code is required", lot.ErrValidation), http.StatusBadRequest, classValidation},
		{"reason required", handling.ErrReasonRequired, http.StatusBadRequest, classValidation},
		{"detail mismatch", custody.ErrExitDetailMismatch, http.StatusBadRequest, classValidation},
		{"insufficient quantity", custody.ErrInsufficientQuantity, http.StatusBadRequest, classInsufficient},
		{"capacity", lot.ErrCapacityExceeded, http.StatusBadRequest, classCapacity},
		{"entry closed", custody.ErrEntryClosed, http.StatusBadRequest, classState},
		{"inactive lot", lot.ErrLotInactive, http.StatusBadRequest, classState},
		{"cross warehouse", custody.ErrCrossWarehouse, http.StatusBadRequest, classState},
		{"entry has history", custody.ErrEntryHasHistory, http.StatusBadRequest, classState},
		{"illegal transition", handling.ErrInvalidTransition, http.StatusBadRequest, classState},
		{"not draft", handling.ErrNotDraft, http.StatusBadRequest, classState},
		{"request closed", handling.ErrRequestClosed, http.StatusBadRequest, classState},
		{"permit pending", handling.ErrPermitPending, http.StatusBadRequest, classState},
		{"permit decided", handling.ErrPermitDecided, http.StatusBadRequest, classState},
		{"lot not found", lot.ErrLotNotFound, http.StatusNotFound, classNotFound},
		{"shipment not found", store.ErrShipmentNotFound, http.StatusNotFound, classNotFound},
		{"duplicate code", lot.ErrDuplicateCode, http.StatusConflict, classConflict},
		{"tx timeout", store.ErrTxTimeout, http.StatusInternalServerError, classTimeout},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, classUnexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, class := classify(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.class, class)
		})
	}
}

// ============ Envelope ============

func TestRespondError_InsufficientQuantityCarriesAvailable(t *testing.T) {
	err := fmt.Errorf("record exit: %w", &custody.InsufficientQuantityError{
		Requested: decimal.NewFromInt(70),
		Available: decimal.NewFromInt(60),
	})

	rec := httptest.NewRecorder()
	respondError(rec, httptest.NewRequest(http.MethodPost, "/entries/e-1/exits", nil), err)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, classInsufficient, body.Error)
	assert.Contains(t, body.Message, "available 60")
	assert.Equal(t, "70", body.Details["requested"])
	assert.Equal(t, "60", body.Details["available"])
}

func TestRespondError_CapacityCarriesOccupancy(t *testing.T) {
	err := &lot.CapacityError{
		LotID:     "lot-1",
		Capacity:  decimal.NewFromInt(100),
		Occupied:  decimal.NewFromInt(80),
		Requested: decimal.NewFromInt(30),
	}

	rec := httptest.NewRecorder()
	respondError(rec, httptest.NewRequest(http.MethodPost, "/entries", nil), err)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, classCapacity, body.Error)
	assert.Equal(t, "80", body.Details["occupied"])
	assert.Equal(t, "30", body.Details["requested"])
}

func TestRespondError_UnexpectedHidesInternals(t *testing.T) {
	rec := httptest.NewRecorder()
	respondError(rec, httptest.NewRequest(http.MethodGet, "/lots", nil), errors.New("pq: relation does not exist"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, classUnexpected, body.Error)
	assert.Equal(t, "internal error", body.Message)
	assert.NotContains(t, rec.Body.String(), "relation")
}
