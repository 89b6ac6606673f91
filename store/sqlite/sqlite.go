/*
Package sqlite provides a SQLite-backed inventory.BatchSource.

PURPOSE:
  Stands in for the external inventory service that owns batch records.
  The allocation engine only ever reads snapshots from here; the ledger
  itself is never persisted (it is per-session and advisory).

KEY TABLES:
  batches: One row per inventory lot, keyed by auto-increment ID.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) so snapshot reads
  don't block the occasional write from seeding or admin inserts.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

USAGE:
  store, err := sqlite.New("./data/inventory.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  batches, err := store.BatchesForProduct(ctx, productID)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - inventory/source.go: Interface definition
  - inventory/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/allocation-engine/allocation"
)

// Store implements inventory.BatchSource using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Batches (inventory lots, owned by the inventory service)
	CREATE TABLE IF NOT EXISTS batches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		product_id INTEGER NOT NULL,
		quantity TEXT NOT NULL,
		native_unit TEXT NOT NULL,
		expiry_date TEXT NOT NULL,
		unit_price TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active'
	);

	-- Snapshot query hot path: all batches of one product, expiry order
	CREATE INDEX IF NOT EXISTS idx_batches_product_expiry
		ON batches(product_id, expiry_date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// BATCH SOURCE
// =============================================================================

// BatchesForProduct returns the current snapshot for a product. Rows come
// back in expiry order for convenience; the engine re-derives FEFO order
// itself either way.
func (s *Store) BatchesForProduct(ctx context.Context, productID allocation.ProductID) ([]allocation.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, quantity, native_unit, expiry_date, unit_price, status
		FROM batches
		WHERE product_id = ?
		ORDER BY expiry_date ASC, id ASC`, int64(productID))
	if err != nil {
		return nil, fmt.Errorf("failed to query batches: %w", err)
	}
	defer rows.Close()

	var batches []allocation.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

// =============================================================================
// WRITES - Seeding and admin inserts only; the engine never writes
// =============================================================================

// InsertBatch adds a batch row and returns its assigned ID.
func (s *Store) InsertBatch(ctx context.Context, b allocation.Batch) (allocation.BatchID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO batches (product_id, quantity, native_unit, expiry_date, unit_price, status)
		VALUES (?, ?, ?, ?, ?, ?)`,
		int64(b.ProductID),
		b.Quantity.String(),
		string(b.NativeUnit),
		b.ExpiryDate.UTC().Format(time.RFC3339),
		b.UnitPrice.String(),
		string(b.Status),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert batch: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	return allocation.BatchID(id), nil
}

// UpdateBatchQuantity adjusts a batch's remaining quantity, as the
// inventory service would after a confirmed allocation is submitted.
func (s *Store) UpdateBatchQuantity(ctx context.Context, id allocation.BatchID, quantity decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx,
		`UPDATE batches SET quantity = ? WHERE id = ?`, quantity.String(), int64(id))
	if err != nil {
		return fmt.Errorf("failed to update batch quantity: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("batch %d not found", id)
	}
	return nil
}

// =============================================================================
// ROW SCANNING
// =============================================================================

func scanBatch(rows *sql.Rows) (allocation.Batch, error) {
	var (
		id, productID         int64
		quantity, unitPrice   string
		nativeUnit, expiry    string
		status                string
	)
	if err := rows.Scan(&id, &productID, &quantity, &nativeUnit, &expiry, &unitPrice, &status); err != nil {
		return allocation.Batch{}, fmt.Errorf("failed to scan batch: %w", err)
	}

	qty, err := decimal.NewFromString(quantity)
	if err != nil {
		return allocation.Batch{}, fmt.Errorf("invalid quantity for batch %d: %w", id, err)
	}
	price, err := decimal.NewFromString(unitPrice)
	if err != nil {
		return allocation.Batch{}, fmt.Errorf("invalid unit price for batch %d: %w", id, err)
	}
	expiryDate, err := time.Parse(time.RFC3339, expiry)
	if err != nil {
		return allocation.Batch{}, fmt.Errorf("invalid expiry date for batch %d: %w", id, err)
	}

	return allocation.Batch{
		ID:         allocation.BatchID(id),
		ProductID:  allocation.ProductID(productID),
		Quantity:   qty,
		NativeUnit: allocation.Unit(nativeUnit),
		ExpiryDate: expiryDate,
		UnitPrice:  price,
		Status:     allocation.BatchStatus(status),
	}, nil
}
