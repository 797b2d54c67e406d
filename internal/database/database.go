package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"salonbook/internal/models"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// DB wraps the SQLite store plus the in-memory catalog cache. Catalog
// records are reference data loaded at startup, never written here.
type DB struct {
	*sql.DB
	mu        sync.RWMutex
	services  map[int64]models.Service
	employees map[int64]models.Employee
	logger    *zerolog.Logger
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has a single writer anyway; one connection keeps the
	// conflict-check-and-insert transactions serialized.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return &DB{
		DB:        db,
		services:  make(map[int64]models.Service),
		employees: make(map[int64]models.Employee),
		logger:    logger,
	}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS reservations (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            client_id INTEGER NOT NULL,
            client_name TEXT,
            employee_id INTEGER NOT NULL,
            employee_name TEXT NOT NULL,
            service_id INTEGER NOT NULL,
            service_name TEXT NOT NULL,
            store_id INTEGER NOT NULL,
            date TEXT NOT NULL,
            time TEXT NOT NULL,
            duration_minutes INTEGER NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending',
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            version INTEGER NOT NULL DEFAULT 1
        )`,
		`CREATE TABLE IF NOT EXISTS ratings (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            client_id INTEGER NOT NULL,
            client_name TEXT,
            employee_id INTEGER NOT NULL,
            service_id INTEGER NOT NULL,
            service_name TEXT,
            reservation_id INTEGER NOT NULL,
            score INTEGER NOT NULL,
            comment TEXT,
            date TEXT NOT NULL,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            UNIQUE(client_id, reservation_id)
        )`,
		`CREATE TABLE IF NOT EXISTS sync_queue (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            task_type TEXT NOT NULL,
            reservation_id INTEGER NOT NULL,
            payload TEXT,
            status TEXT NOT NULL DEFAULT 'pending',
            retry_count INTEGER NOT NULL DEFAULT 0,
            last_error TEXT,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            processed_at DATETIME,
            next_retry_at DATETIME
        )`,

		`CREATE INDEX IF NOT EXISTS idx_reservations_employee_date ON reservations(employee_id, date)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_client_id ON reservations(client_id)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_status ON reservations(status)`,
		`CREATE INDEX IF NOT EXISTS idx_ratings_employee_id ON ratings(employee_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_queue_status ON sync_queue(status)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

// SetCatalog installs the reference data used for lookups and conflict
// checks. Replaces any previous catalog.
func (db *DB) SetCatalog(catalog models.Catalog) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.services = make(map[int64]models.Service, len(catalog.Services))
	for _, svc := range catalog.Services {
		db.services[svc.ID] = svc
	}
	db.employees = make(map[int64]models.Employee, len(catalog.Employees))
	for _, emp := range catalog.Employees {
		db.employees[emp.ID] = emp
	}
}

// GetServices returns catalog services, optionally scoped to a store.
// storeID 0 returns the full catalog.
func (db *DB) GetServices(storeID int64) []models.Service {
	db.mu.RLock()
	defer db.mu.RUnlock()

	out := make([]models.Service, 0, len(db.services))
	for _, svc := range db.services {
		if storeID != 0 && svc.StoreID != storeID {
			continue
		}
		out = append(out, svc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (db *DB) GetEmployees(storeID int64) []models.Employee {
	db.mu.RLock()
	defer db.mu.RUnlock()

	out := make([]models.Employee, 0, len(db.employees))
	for _, emp := range db.employees {
		if storeID != 0 && emp.StoreID != storeID {
			continue
		}
		out = append(out, emp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (db *DB) GetServiceByID(id int64) (models.Service, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	svc, ok := db.services[id]
	return svc, ok
}

func (db *DB) GetEmployeeByID(id int64) (models.Employee, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	emp, ok := db.employees[id]
	return emp, ok
}

func (db *DB) Close() error {
	return db.DB.Close()
}
