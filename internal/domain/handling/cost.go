package handling

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var ErrDocumentNotFound = errors.New("document not found")

// Cost is an append-only expense attached to a handling request.
type Cost struct {
	ID        string          `json:"id"`
	RequestID string          `json:"request_id"`
	CostType  string          `json:"cost_type"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Note      string          `json:"note,omitempty"`
	CreatedBy string          `json:"created_by"`
	CreatedAt time.Time       `json:"created_at"`
}

func (c *Cost) Validate() error {
	if c.RequestID == "" {
		return fmt.Errorf("%w: request_id is required", ErrValidation)
	}
	if c.CostType == "" {
		return fmt.Errorf("%w: cost_type is required", ErrValidation)
	}
	if !c.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if c.Currency == "" {
		return fmt.Errorf("%w: currency is required", ErrValidation)
	}
	return nil
}

// Document is a piece of evidence attached to a handling request.
// Append-only, except for soft deletion.
type Document struct {
	ID        string    `json:"id"`
	RequestID string    `json:"request_id"`
	Name      string    `json:"name"`
	FileRef   string    `json:"file_ref"`
	Deleted   bool      `json:"-"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

func (d *Document) Validate() error {
	if d.RequestID == "" {
		return fmt.Errorf("%w: request_id is required", ErrValidation)
	}
	if d.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if d.FileRef == "" {
		return fmt.Errorf("%w: file_ref is required", ErrValidation)
	}
	return nil
}
