/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the batch allocation engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize the SQLite batch source
  3. Optionally seed demo batches
  4. Create API handler and router
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080)
  -db      SQLite database path (default: inventory.db)
           Use ":memory:" for an in-memory database
  -seed    Insert demo batches for a couple of products on startup

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with a file database
  ./server -db="./data/inventory.db"

  # Run in-memory with demo data
  ./server -db=":memory:" -seed

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Batch source implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/allocation-engine/allocation"
	"github.com/warp/allocation-engine/api"
	"github.com/warp/allocation-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "inventory.db", "SQLite database path")
	seed := flag.Bool("seed", false, "Insert demo batches on startup")
	flag.Parse()

	// Initialize batch source
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	if *seed {
		if err := seedDemoBatches(context.Background(), store); err != nil {
			log.Fatalf("Failed to seed demo batches: %v", err)
		}
		log.Println("Seeded demo batches")
	}

	// Initialize handler and router
	handler := api.NewHandler(store)
	router := api.NewRouter(handler)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Allocation engine listening on http://localhost:%d", *port)
		log.Printf("API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// seedDemoBatches inserts a handful of lots across two products: flour
// (mass units, staggered expiries) and milk (volume units).
func seedDemoBatches(ctx context.Context, store *sqlite.Store) error {
	now := time.Now().UTC()
	qty := decimal.RequireFromString
	demo := []allocation.Batch{
		{ProductID: 1, Quantity: qty("4"), NativeUnit: allocation.UnitKilogram, ExpiryDate: now.AddDate(0, 0, 2), UnitPrice: qty("1.80"), Status: allocation.StatusActive},
		{ProductID: 1, Quantity: qty("8"), NativeUnit: allocation.UnitKilogram, ExpiryDate: now.AddDate(0, 0, 10), UnitPrice: qty("1.75"), Status: allocation.StatusActive},
		{ProductID: 1, Quantity: qty("2500"), NativeUnit: allocation.UnitGram, ExpiryDate: now.AddDate(0, 0, 21), UnitPrice: qty("1.90"), Status: allocation.StatusActive},
		{ProductID: 1, Quantity: qty("3"), NativeUnit: allocation.UnitKilogram, ExpiryDate: now.AddDate(0, 0, 5), UnitPrice: qty("1.60"), Status: allocation.StatusInactive},
		{ProductID: 2, Quantity: qty("12"), NativeUnit: allocation.UnitLiter, ExpiryDate: now.AddDate(0, 0, 3), UnitPrice: qty("0.95"), Status: allocation.StatusActive},
		{ProductID: 2, Quantity: qty("6000"), NativeUnit: allocation.UnitMilliliter, ExpiryDate: now.AddDate(0, 0, 7), UnitPrice: qty("0.99"), Status: allocation.StatusActive},
	}
	for _, b := range demo {
		if _, err := store.InsertBatch(ctx, b); err != nil {
			return err
		}
	}
	return nil
}
