/*
Package inventory defines the boundary to the external inventory service.

PURPOSE:
  The allocation engine never fetches batches itself; it consumes
  read-only snapshots supplied by a BatchSource. This package holds the
  interface plus an in-memory implementation for tests and development.
  The SQLite-backed implementation lives in store/sqlite.

OWNERSHIP:
  Batches are owned by the inventory service. The engine treats every
  snapshot as immutable; a refetch replaces the snapshot wholesale.

SEE ALSO:
  - memory.go: In-memory implementation
  - store/sqlite: Database-backed implementation
*/
package inventory

import (
	"context"

	"github.com/warp/allocation-engine/allocation"
)

// BatchSource supplies per-product batch snapshots.
type BatchSource interface {
	// BatchesForProduct returns the current snapshot for a product.
	// An unknown product yields an empty slice, not an error.
	BatchesForProduct(ctx context.Context, productID allocation.ProductID) ([]allocation.Batch, error)
}
