/*
scheduler.go - Debounced propagation of results to the caller

PURPOSE:
  Collapses a burst of ledger edits into a single notification per quiet
  period, on two independent channels:
  - quantity channel (500ms): "the total selected changed"
  - selection channel (300ms): "the selected (batch, quantity) pairs changed"

DESIGN:
  - Each Note* call resets that channel's timer; only the state at the
    end of the quiet window is sent. Intermediate states are discarded,
    never queued. This is last-write-wins, not at-least-once: a pending
    notification is simply dropped when the scheduler is closed.
  - Staleness is handled by identity, not by racing timer cancellation:
    the product ID current at mutation time is captured and handed back
    to the fire callback, which compares it against the session's current
    product before publishing. A late-firing timer for an old product
    publishes nothing.
  - Stop cannot un-fire a timer that already expired, so each channel
    also carries a generation; a callback whose generation has been
    superseded by a newer note returns without publishing.

CONFIGURATION:
  - Window durations are set at construction (tests use short ones).

SEE ALSO:
  - session.go: Owns one scheduler and supplies the fire callbacks
*/
package allocation

import (
	"sync"
	"time"
)

// Default debounce windows.
const (
	DefaultQuantityWindow  = 500 * time.Millisecond
	DefaultSelectionWindow = 300 * time.Millisecond
)

// Scheduler debounces the two notification channels. Safe for concurrent
// use; timer callbacks run on their own goroutines.
type Scheduler struct {
	mu     sync.Mutex
	closed bool

	quantityWindow  time.Duration
	selectionWindow time.Duration
	quantityTimer   *time.Timer
	selectionTimer  *time.Timer

	// Per-channel generations. Stop on an already-fired timer returns
	// false and its callback still runs; the generation check is what
	// actually invalidates a superseded fire.
	quantityGen  uint64
	selectionGen uint64
}

// NewScheduler creates a scheduler with the given windows. Non-positive
// durations fall back to the defaults.
func NewScheduler(quantityWindow, selectionWindow time.Duration) *Scheduler {
	if quantityWindow <= 0 {
		quantityWindow = DefaultQuantityWindow
	}
	if selectionWindow <= 0 {
		selectionWindow = DefaultSelectionWindow
	}
	return &Scheduler{
		quantityWindow:  quantityWindow,
		selectionWindow: selectionWindow,
	}
}

// NoteQuantity (re)starts the quantity channel's quiet window. fire
// receives the product ID captured now, so it can discard a stale fire.
func (s *Scheduler) NoteQuantity(product ProductID, fire func(ProductID)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.quantityTimer != nil {
		s.quantityTimer.Stop()
	}
	s.quantityGen++
	gen := s.quantityGen
	s.quantityTimer = time.AfterFunc(s.quantityWindow, func() {
		if s.quantityCurrent(gen) {
			fire(product)
		}
	})
}

// NoteSelection (re)starts the selection channel's quiet window.
func (s *Scheduler) NoteSelection(product ProductID, fire func(ProductID)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.selectionTimer != nil {
		s.selectionTimer.Stop()
	}
	s.selectionGen++
	gen := s.selectionGen
	s.selectionTimer = time.AfterFunc(s.selectionWindow, func() {
		if s.selectionCurrent(gen) {
			fire(product)
		}
	})
}

// Close stops both timers and drops any pending notification.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.quantityTimer != nil {
		s.quantityTimer.Stop()
		s.quantityTimer = nil
	}
	if s.selectionTimer != nil {
		s.selectionTimer.Stop()
		s.selectionTimer = nil
	}
}

func (s *Scheduler) quantityCurrent(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && gen == s.quantityGen
}

func (s *Scheduler) selectionCurrent(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && gen == s.selectionGen
}
