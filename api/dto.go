/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

QUANTITIES:
  All quantities cross the wire as strings ("12.50") so clients never
  see floating-point artifacts. Parsing happens in handlers.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/allocation-engine/allocation"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// CreateSessionRequest opens an allocation session for a product.
type CreateSessionRequest struct {
	ProductID      int64  `json:"product_id"`
	TargetQuantity string `json:"target_quantity"`
	DisplayUnit    string `json:"display_unit"`
}

// UpdateTargetRequest re-supplies the (productID, targetQuantity) pair.
type UpdateTargetRequest struct {
	ProductID      int64  `json:"product_id"`
	TargetQuantity string `json:"target_quantity"`
	DisplayUnit    string `json:"display_unit"`
}

// SetUnitRequest switches the session's display unit.
type SetUnitRequest struct {
	Unit string `json:"unit"`
}

// SetQuantityRequest is a manual quantity entry for one batch. Value is
// the raw operator input; non-numeric input removes the selection.
type SetQuantityRequest struct {
	Value string `json:"value"`
}

// AdjustQuantityRequest nudges one batch's selection by a delta.
type AdjustQuantityRequest struct {
	Delta string `json:"delta"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// BatchDTO represents one eligible batch within a session.
type BatchDTO struct {
	ID             int64  `json:"id"`
	ProductID      int64  `json:"product_id"`
	NativeQuantity string `json:"native_quantity"`
	NativeUnit     string `json:"native_unit"`
	Available      string `json:"available"`
	ExpiryDate     string `json:"expiry_date"`
	UnitPrice      string `json:"unit_price"`
	Status         string `json:"status"`
	Selected       string `json:"selected,omitempty"`
	Suggested      string `json:"suggested,omitempty"`
}

// TotalsDTO mirrors allocation.AllocationResult.
type TotalsDTO struct {
	BatchIDs          []int64  `json:"batch_ids"`
	Quantities        []string `json:"quantities"`
	TotalSelected     string   `json:"total_selected"`
	RemainingNeeded   string   `json:"remaining_needed"`
	Excess            string   `json:"excess"`
	Unit              string   `json:"unit"`
	TargetMet         bool     `json:"target_met"`
	StockInsufficient bool     `json:"stock_insufficient"`
}

// AdvisoryDTO is one advisory raised by the engine.
type AdvisoryDTO struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	At      string `json:"at"`
}

// SessionDTO is the full session view.
type SessionDTO struct {
	ID             string        `json:"id"`
	ProductID      int64         `json:"product_id"`
	TargetQuantity string        `json:"target_quantity"`
	DisplayUnit    string        `json:"display_unit"`
	Batches        []BatchDTO    `json:"batches"`
	Totals         TotalsDTO     `json:"totals"`
	Advisories     []AdvisoryDTO `json:"advisories"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func totalsDTO(r allocation.AllocationResult) TotalsDTO {
	ids := make([]int64, len(r.BatchIDs))
	for i, id := range r.BatchIDs {
		ids[i] = int64(id)
	}
	quantities := make([]string, len(r.Quantities))
	for i, q := range r.Quantities {
		quantities[i] = q.String()
	}
	return TotalsDTO{
		BatchIDs:          ids,
		Quantities:        quantities,
		TotalSelected:     r.TotalSelected.String(),
		RemainingNeeded:   r.RemainingNeeded.String(),
		Excess:            r.Excess.String(),
		Unit:              string(r.Unit),
		TargetMet:         r.TargetMet,
		StockInsufficient: r.StockInsufficient,
	}
}

func batchDTO(b allocation.Batch) BatchDTO {
	return BatchDTO{
		ID:             int64(b.ID),
		ProductID:      int64(b.ProductID),
		NativeQuantity: b.Quantity.String(),
		NativeUnit:     string(b.NativeUnit),
		ExpiryDate:     b.ExpiryDate.UTC().Format(time.RFC3339),
		UnitPrice:      b.UnitPrice.String(),
		Status:         string(b.Status),
	}
}
