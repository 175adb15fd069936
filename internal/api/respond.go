package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/example/antrepo/internal/domain/custody"
	"github.com/example/antrepo/internal/domain/handling"
	"github.com/example/antrepo/internal/domain/lot"
	"github.com/example/antrepo/internal/infrastructure/store"
)

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// errorBody is the uniform error envelope: a stable machine-readable
// class, a human-readable message, and optional structured details.
type errorBody struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

const (
	classValidation   = "validation_error"
	classNotFound     = "not_found"
	classState        = "state_conflict"
	classInsufficient = "insufficient_quantity"
	classCapacity     = "capacity_exceeded"
	classConflict     = "conflict"
	classTimeout      = "timeout"
	classUnexpected   = "unexpected"
)

// respondError maps domain errors to HTTP status codes and writes the
// error envelope. Unknown errors are logged and reported as a bare 500
// so internals never leak to the caller.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, class := classify(err)
	if class == classUnexpected {
		log.Printf("[API] %s %s failed: %v", r.Method, r.URL.Path, err)
		respondJSON(w, status, errorBody{Error: class, Message: "internal error"})
		return
	}
	if status == http.StatusInternalServerError {
		log.Printf("[API] %s %s failed: %v", r.Method, r.URL.Path, err)
	}
	respondJSON(w, status, errorBody{Error: class, Message: err.Error(), Details: detailsFor(err)})
}

// respondBadRequest reports a malformed request body or parameter.
func respondBadRequest(w http.ResponseWriter, err error) {
	respondJSON(w, http.StatusBadRequest, errorBody{Error: classValidation, Message: err.Error()})
}

// classify buckets an error into its taxonomy class. Business-rule and
// state violations are 400s; 409 is reserved for uniqueness conflicts.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, custody.ErrValidation),
		errors.Is(err, lot.ErrValidation),
		errors.Is(err, handling.ErrValidation),
		errors.Is(err, custody.ErrInvalidQuantity),
		errors.Is(err, custody.ErrUnknownExitKind),
		errors.Is(err, custody.ErrExitDetailMismatch),
		errors.Is(err, handling.ErrReasonRequired):
		return http.StatusBadRequest, classValidation

	case errors.Is(err, custody.ErrInsufficientQuantity):
		return http.StatusBadRequest, classInsufficient

	case errors.Is(err, lot.ErrCapacityExceeded):
		return http.StatusBadRequest, classCapacity

	case errors.Is(err, lot.ErrLotInactive),
		errors.Is(err, custody.ErrEntryClosed),
		errors.Is(err, custody.ErrEntryNotTransferable),
		errors.Is(err, custody.ErrEntryHasHistory),
		errors.Is(err, custody.ErrSameLot),
		errors.Is(err, custody.ErrCrossWarehouse),
		errors.Is(err, handling.ErrInvalidTransition),
		errors.Is(err, handling.ErrNotDraft),
		errors.Is(err, handling.ErrRequestClosed),
		errors.Is(err, handling.ErrPermitPending),
		errors.Is(err, handling.ErrPermitDecided):
		return http.StatusBadRequest, classState

	case errors.Is(err, lot.ErrLotNotFound),
		errors.Is(err, custody.ErrEntryNotFound),
		errors.Is(err, handling.ErrRequestNotFound),
		errors.Is(err, handling.ErrPermitNotFound),
		errors.Is(err, handling.ErrDocumentNotFound),
		errors.Is(err, store.ErrShipmentNotFound):
		return http.StatusNotFound, classNotFound

	case errors.Is(err, lot.ErrDuplicateCode):
		return http.StatusConflict, classConflict

	case errors.Is(err, store.ErrTxTimeout):
		return http.StatusInternalServerError, classTimeout

	default:
		return http.StatusInternalServerError, classUnexpected
	}
}

// detailsFor extracts structured context from errors that carry it.
func detailsFor(err error) map[string]any {
	var insuff *custody.InsufficientQuantityError
	if errors.As(err, &insuff) {
		return map[string]any{
			"requested": insuff.Requested.String(),
			"available": insuff.Available.String(),
		}
	}
	var capErr *lot.CapacityError
	if errors.As(err, &capErr) {
		return map[string]any{
			"lot_id":    capErr.LotID,
			"capacity":  capErr.Capacity.String(),
			"occupied":  capErr.Occupied.String(),
			"requested": capErr.Requested.String(),
		}
	}
	return nil
}
