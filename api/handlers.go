/*
handlers.go - HTTP API handlers for the batch allocation engine

PURPOSE:
  Exposes allocation sessions as REST resources so the inventory
  administration UI can drive the engine. Handles HTTP request/response,
  JSON serialization, and delegates to the allocation package.

ENDPOINTS:
  Sessions:
    POST   /api/sessions                          Open session (loads batch snapshot)
    GET    /api/sessions/{id}                     Session view (catalog + totals)
    PUT    /api/sessions/{id}/target              Re-supply (product, target) pair
    PUT    /api/sessions/{id}/unit                Switch display unit
    POST   /api/sessions/{id}/refresh             Refetch the batch snapshot
    POST   /api/sessions/{id}/autofill            FEFO auto-fill
    POST   /api/sessions/{id}/confirm             Confirm selection (gated)
    DELETE /api/sessions/{id}                     Close session

  Selections:
    POST   /api/sessions/{id}/batches/{batchID}/quantity          Manual entry
    POST   /api/sessions/{id}/batches/{batchID}/adjust            +-delta
    POST   /api/sessions/{id}/batches/{batchID}/select-all        Full availability
    POST   /api/sessions/{id}/batches/{batchID}/select-remaining  Fill the gap
    DELETE /api/sessions/{id}/batches/{batchID}                   Remove selection

  Inventory:
    GET    /api/products/{id}/batches             Raw snapshot from the source

SESSION REGISTRY:
  Sessions live in an in-memory map keyed by UUID. They are per-operator
  and advisory; there is no cross-session batch locking.

ADVISORIES:
  The engine's Signal callback appends to a per-session advisory log
  (capped), returned with every session view. Debounced quantity and
  selection notifications are logged server-side; a UI embedding the
  engine directly would receive them as callbacks instead.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Unknown session or batch
  - 409: Conflict (gated confirmation, closed session)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/allocation-engine/allocation"
	"github.com/warp/allocation-engine/inventory"
)

// maxAdvisories caps the per-session advisory log.
const maxAdvisories = 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Source inventory.BatchSource

	// Debounce windows passed to every session (tests shorten them).
	QuantityWindow  time.Duration
	SelectionWindow time.Duration

	mu       sync.RWMutex
	sessions map[string]*sessionEntry
}

// sessionEntry pairs an engine session with its advisory log.
type sessionEntry struct {
	id     string
	engine *allocation.Session

	mu         sync.Mutex
	advisories []AdvisoryDTO
}

// NewHandler creates a new handler backed by the given batch source.
func NewHandler(source inventory.BatchSource) *Handler {
	return &Handler{
		Source:          source,
		QuantityWindow:  allocation.DefaultQuantityWindow,
		SelectionWindow: allocation.DefaultSelectionWindow,
		sessions:        make(map[string]*sessionEntry),
	}
}

// =============================================================================
// SESSION LIFECYCLE
// =============================================================================

// CreateSession opens an allocation session and loads the batch snapshot.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	unit := allocation.Unit(req.DisplayUnit)
	if !allocation.KnownUnit(unit) {
		writeError(w, http.StatusBadRequest, "Unsupported display unit", nil)
		return
	}
	target, err := decimal.NewFromString(req.TargetQuantity)
	if err != nil || target.IsNegative() {
		writeError(w, http.StatusBadRequest, "Invalid target quantity", err)
		return
	}

	entry := &sessionEntry{id: uuid.NewString()}
	entry.engine = allocation.NewSessionWithWindows(allocation.Callbacks{
		OnQuantityChange: func(total decimal.Decimal) {
			log.Printf("[API] session %s: quantity changed, total=%s", entry.id, total)
		},
		OnBatchSelect: func(ids []allocation.BatchID, quantities []decimal.Decimal, total decimal.Decimal, unit allocation.Unit) {
			log.Printf("[API] session %s: selection changed, %d batches, total=%s %s", entry.id, len(ids), total, unit)
		},
		Signal: entry.recordAdvisory,
	}, h.QuantityWindow, h.SelectionWindow)

	if err := entry.engine.SetTarget(allocation.ProductID(req.ProductID), target, unit); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to start session", err)
		return
	}
	if err := h.loadSnapshot(r, entry); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load batches", err)
		return
	}

	h.mu.Lock()
	h.sessions[entry.id] = entry
	h.mu.Unlock()

	writeJSON(w, http.StatusCreated, h.sessionDTO(entry))
}

// GetSession returns the session view: catalog, selections, totals.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.session(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, h.sessionDTO(entry))
}

// UpdateTarget re-supplies the (product, target, unit) triple. A product
// change clears the ledger and triggers a fresh snapshot load.
func (h *Handler) UpdateTarget(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.session(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found", nil)
		return
	}

	var req UpdateTargetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	unit := allocation.Unit(req.DisplayUnit)
	if !allocation.KnownUnit(unit) {
		writeError(w, http.StatusBadRequest, "Unsupported display unit", nil)
		return
	}
	target, err := decimal.NewFromString(req.TargetQuantity)
	if err != nil || target.IsNegative() {
		writeError(w, http.StatusBadRequest, "Invalid target quantity", err)
		return
	}

	previous, _ := entry.engine.Target()
	if err := entry.engine.SetTarget(allocation.ProductID(req.ProductID), target, unit); err != nil {
		writeDomainError(w, err)
		return
	}
	if previous.ProductID != allocation.ProductID(req.ProductID) {
		if err := h.loadSnapshot(r, entry); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load batches", err)
			return
		}
	}

	writeJSON(w, http.StatusOK, h.sessionDTO(entry))
}

// SetUnit switches the display unit; availability and existing
// selections are re-expressed, nothing is lost.
func (h *Handler) SetUnit(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.session(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found", nil)
		return
	}

	var req SetUnitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	unit := allocation.Unit(req.Unit)
	if !allocation.KnownUnit(unit) {
		writeError(w, http.StatusBadRequest, "Unsupported display unit", nil)
		return
	}

	if err := entry.engine.SetDisplayUnit(unit); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.sessionDTO(entry))
}

// RefreshBatches refetches the snapshot from the inventory source.
func (h *Handler) RefreshBatches(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.session(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found", nil)
		return
	}
	if err := h.loadSnapshot(r, entry); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load batches", err)
		return
	}
	writeJSON(w, http.StatusOK, h.sessionDTO(entry))
}

// DeleteSession closes the session and drops it from the registry.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	h.mu.Lock()
	entry, ok := h.sessions[id]
	delete(h.sessions, id)
	h.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "Session not found", nil)
		return
	}
	entry.engine.Close()
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// SELECTION HANDLERS
// =============================================================================

// SetBatchQuantity applies a manual entry for one batch.
func (h *Handler) SetBatchQuantity(w http.ResponseWriter, r *http.Request) {
	entry, batchID, ok := h.sessionBatch(w, r)
	if !ok {
		return
	}
	var req SetQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := entry.engine.SetQuantity(batchID, req.Value); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, totalsDTO(entry.engine.Totals()))
}

// AdjustBatchQuantity nudges one batch's selection.
func (h *Handler) AdjustBatchQuantity(w http.ResponseWriter, r *http.Request) {
	entry, batchID, ok := h.sessionBatch(w, r)
	if !ok {
		return
	}
	var req AdjustQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	delta, err := decimal.NewFromString(req.Delta)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid delta", err)
		return
	}
	if err := entry.engine.AdjustQuantity(batchID, delta); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, totalsDTO(entry.engine.Totals()))
}

// SelectAllFromBatch selects a batch's full availability.
func (h *Handler) SelectAllFromBatch(w http.ResponseWriter, r *http.Request) {
	entry, batchID, ok := h.sessionBatch(w, r)
	if !ok {
		return
	}
	if err := entry.engine.SelectAll(batchID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, totalsDTO(entry.engine.Totals()))
}

// SelectRemainingFromBatch fills the current gap from one batch.
func (h *Handler) SelectRemainingFromBatch(w http.ResponseWriter, r *http.Request) {
	entry, batchID, ok := h.sessionBatch(w, r)
	if !ok {
		return
	}
	if err := entry.engine.SelectRemaining(batchID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, totalsDTO(entry.engine.Totals()))
}

// RemoveBatchSelection drops one batch's selection.
func (h *Handler) RemoveBatchSelection(w http.ResponseWriter, r *http.Request) {
	entry, batchID, ok := h.sessionBatch(w, r)
	if !ok {
		return
	}
	if err := entry.engine.RemoveSelection(batchID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, totalsDTO(entry.engine.Totals()))
}

// AutoFill allocates the remaining quantity in FEFO order.
func (h *Handler) AutoFill(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.session(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found", nil)
		return
	}
	if err := entry.engine.AutoFill(); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, totalsDTO(entry.engine.Totals()))
}

// Confirm returns the selection tuple synchronously, bypassing the
// debounce. 409 when gated (target unmet or zero eligible batches).
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.session(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found", nil)
		return
	}
	result, err := entry.engine.Confirm()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, totalsDTO(result))
}

// =============================================================================
// INVENTORY HANDLERS
// =============================================================================

// GetProductBatches returns the raw snapshot from the inventory source.
func (h *Handler) GetProductBatches(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid product ID", err)
		return
	}

	batches, err := h.Source.BatchesForProduct(r.Context(), allocation.ProductID(productID))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load batches", err)
		return
	}

	dtos := make([]BatchDTO, len(batches))
	for i, b := range batches {
		dtos[i] = batchDTO(b)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) session(r *http.Request) (*sessionEntry, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	entry, ok := h.sessions[chi.URLParam(r, "id")]
	return entry, ok
}

func (h *Handler) sessionBatch(w http.ResponseWriter, r *http.Request) (*sessionEntry, allocation.BatchID, bool) {
	entry, ok := h.session(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found", nil)
		return nil, 0, false
	}
	batchID, err := strconv.ParseInt(chi.URLParam(r, "batchID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid batch ID", err)
		return nil, 0, false
	}
	return entry, allocation.BatchID(batchID), true
}

// loadSnapshot pulls the product's batches from the source into the engine.
func (h *Handler) loadSnapshot(r *http.Request, entry *sessionEntry) error {
	target, _ := entry.engine.Target()
	batches, err := h.Source.BatchesForProduct(r.Context(), target.ProductID)
	if err != nil {
		return err
	}
	return entry.engine.LoadBatches(batches)
}

func (h *Handler) sessionDTO(entry *sessionEntry) SessionDTO {
	target, _ := entry.engine.Target()
	totals := entry.engine.Totals()

	batches := entry.engine.EligibleBatchList()
	dtos := make([]BatchDTO, len(batches))
	for i, b := range batches {
		dto := batchDTO(b)
		if available, ok := entry.engine.AvailabilityFor(b.ID); ok {
			dto.Available = available.String()
		}
		if suggested, ok := entry.engine.SuggestedQuantity(b.ID); ok && suggested.IsPositive() {
			dto.Suggested = suggested.String()
		}
		dtos[i] = dto
	}
	for i, id := range totals.BatchIDs {
		for j := range dtos {
			if dtos[j].ID == int64(id) {
				dtos[j].Selected = totals.Quantities[i].String()
			}
		}
	}

	return SessionDTO{
		ID:             entry.id,
		ProductID:      int64(target.ProductID),
		TargetQuantity: target.TargetQuantity.String(),
		DisplayUnit:    string(target.DisplayUnit),
		Batches:        dtos,
		Totals:         totalsDTO(totals),
		Advisories:     entry.advisoryLog(),
	}
}

func (e *sessionEntry) recordAdvisory(kind allocation.AdvisoryKind, message string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.advisories = append(e.advisories, AdvisoryDTO{
		Kind:    string(kind),
		Message: message,
		At:      time.Now().UTC().Format(time.RFC3339),
	})
	if len(e.advisories) > maxAdvisories {
		e.advisories = e.advisories[len(e.advisories)-maxAdvisories:]
	}
}

func (e *sessionEntry) advisoryLog() []AdvisoryDTO {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]AdvisoryDTO, len(e.advisories))
	copy(out, e.advisories)
	return out
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[API] failed to encode response: %v", err)
	}
}

// writeError writes a JSON error envelope.
func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps allocation sentinel errors to HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		return
	case errors.Is(err, allocation.ErrUnknownBatch):
		writeError(w, http.StatusNotFound, "Batch not in eligible set", err)
	case errors.Is(err, allocation.ErrConfirmationGated):
		writeError(w, http.StatusConflict, "Confirmation gated", err)
	case errors.Is(err, allocation.ErrSessionClosed), errors.Is(err, allocation.ErrNoSession):
		writeError(w, http.StatusConflict, "Session not active", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}
