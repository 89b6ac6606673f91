package inventory

import (
	"context"
	"sync"

	"github.com/warp/allocation-engine/allocation"
)

// =============================================================================
// MEMORY SOURCE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	batches map[allocation.ProductID][]allocation.Batch
}

func NewMemory() *Memory {
	return &Memory{batches: make(map[allocation.ProductID][]allocation.Batch)}
}

// Add appends batches to their products' snapshots.
func (m *Memory) Add(batches ...allocation.Batch) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range batches {
		m.batches[b.ProductID] = append(m.batches[b.ProductID], b)
	}
}

// Replace swaps a product's snapshot wholesale, as a refetch would.
func (m *Memory) Replace(productID allocation.ProductID, batches []allocation.Batch) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches[productID] = append([]allocation.Batch(nil), batches...)
}

func (m *Memory) BatchesForProduct(_ context.Context, productID allocation.ProductID) ([]allocation.Batch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]allocation.Batch, len(m.batches[productID]))
	copy(result, m.batches[productID])
	return result, nil
}
