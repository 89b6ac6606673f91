/*
errors.go - Advisory kinds and sentinel errors

PURPOSE:
  The engine recovers from everything the operator can do (clamping,
  removal) and only raises advisories - transient or standing messages
  the presentation layer renders however it likes. Sentinel errors cover
  the session boundary itself: calls against a closed session, an
  unknown batch, or a gated confirmation.

TAXONOMY:
  - AdvisoryOverLimit: transient; a requested quantity exceeded a
    batch's availability and was clamped
  - AdvisoryInsufficientStock: standing; no combination of selections
    can satisfy the target, confirmation is gated
  Stale debounce fires are silently discarded - expected control flow,
  not a fault, so there is no advisory for them.

SEE ALSO:
  - session.go: Raises advisories and returns the sentinel errors
*/
package allocation

import "errors"

// =============================================================================
// ADVISORIES - Operator-facing, never hard failures
// =============================================================================

type AdvisoryKind string

const (
	// AdvisoryOverLimit is transient and auto-dismissing: the entry was
	// clamped to the batch's availability.
	AdvisoryOverLimit AdvisoryKind = "over_limit"

	// AdvisoryInsufficientStock is standing: total eligible availability
	// is below the target, so the request is infeasible.
	AdvisoryInsufficientStock AdvisoryKind = "insufficient_stock"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNoSession is returned when a mutation arrives before the first
	// target has been supplied.
	ErrNoSession = errors.New("no allocation session started")

	// ErrSessionClosed is returned for calls after Close.
	ErrSessionClosed = errors.New("allocation session closed")

	// ErrUnknownBatch is returned when a batch ID is not in the current
	// eligible set.
	ErrUnknownBatch = errors.New("batch not in eligible set")

	// ErrConfirmationGated is returned by Confirm when the target is not
	// met or there are no eligible batches.
	ErrConfirmationGated = errors.New("confirmation gated")
)
