// Package postgres is the relational store holding clients, the price
// catalog and employee credentials.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"crate-vision/auth"
	"crate-vision/geo"
)

// Config holds Postgres connection configuration. Credentials are
// injected via flags/env, never compiled in.
type Config struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string

	MaxOpenConns int
	MaxIdleConns int
}

// DefaultConfig returns default development configuration.
func DefaultConfig() *Config {
	return &Config{
		Host:         "localhost",
		Port:         5432,
		Database:     "cratevision",
		Username:     "postgres",
		Password:     "",
		SSLMode:      "disable",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
	}
}

func (c *Config) dsn() string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.Host, c.Port, c.Database, c.Username, c.Password, c.SSLMode)
}

// Store implements the client, price catalog and employee lookups over a
// pooled Postgres connection. Reads acquire a connection per call and
// release it on return; there is no shared cursor.
type Store struct {
	db  *sql.DB
	cfg *Config
}

// NewStore opens a pooled connection to Postgres.
func NewStore(cfg *Config) (*Store, error) {
	db, err := sql.Open("postgres", cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	return &Store{db: db, cfg: cfg}, nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS clients (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS prices (
			product_name TEXT PRIMARY KEY,
			price NUMERIC(10,2) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS employees (
			username TEXT PRIMARY KEY,
			password_hash TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

// =============================================================================
// CLIENT OPERATIONS
// =============================================================================

// ListClients returns all registered clients in primary-key order, so
// that nearest-client scans see a stable input order.
func (s *Store) ListClients(ctx context.Context) ([]geo.Client, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, latitude, longitude FROM clients ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	var clients []geo.Client
	for rows.Next() {
		var c geo.Client
		if err := rows.Scan(&c.ID, &c.Name, &c.Latitude, &c.Longitude); err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

// AddClient registers a client location and returns its id.
func (s *Store) AddClient(ctx context.Context, name string, lat, lon float64) (int, error) {
	var id int
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO clients (name, latitude, longitude) VALUES ($1, $2, $3) RETURNING id`,
		name, lat, lon).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to add client: %w", err)
	}
	return id, nil
}

// =============================================================================
// PRICE CATALOG OPERATIONS
// =============================================================================

// Price looks up the unit price for a product display name by exact
// string equality. Implements inventory.Catalog.
func (s *Store) Price(ctx context.Context, name string) (decimal.Decimal, bool, error) {
	var price decimal.Decimal
	err := s.db.QueryRowContext(ctx,
		`SELECT price FROM prices WHERE product_name = $1`, name).Scan(&price)
	if err == sql.ErrNoRows {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to look up price for %q: %w", name, err)
	}
	return price, true, nil
}

// SetPrice inserts or updates a catalog entry.
func (s *Store) SetPrice(ctx context.Context, name string, price decimal.Decimal) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO prices (product_name, price) VALUES ($1, $2)
		 ON CONFLICT (product_name) DO UPDATE SET price = EXCLUDED.price`,
		name, price)
	if err != nil {
		return fmt.Errorf("failed to set price for %q: %w", name, err)
	}
	return nil
}

// =============================================================================
// EMPLOYEE OPERATIONS
// =============================================================================

// ListEmployees returns all employee usernames.
func (s *Store) ListEmployees(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT username FROM employees ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	var usernames []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		usernames = append(usernames, u)
	}
	return usernames, rows.Err()
}

// EmployeeByUsername fetches a login principal. Absence is reported via
// ok=false, not an error.
func (s *Store) EmployeeByUsername(ctx context.Context, username string) (auth.Employee, bool, error) {
	var e auth.Employee
	err := s.db.QueryRowContext(ctx,
		`SELECT username, password_hash FROM employees WHERE username = $1`,
		username).Scan(&e.Username, &e.PasswordHash)
	if err == sql.ErrNoRows {
		return auth.Employee{}, false, nil
	}
	if err != nil {
		return auth.Employee{}, false, fmt.Errorf("failed to fetch employee: %w", err)
	}
	return e, true, nil
}

// AddEmployee stores a login principal with an already-hashed password.
func (s *Store) AddEmployee(ctx context.Context, e auth.Employee) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO employees (username, password_hash) VALUES ($1, $2)
		 ON CONFLICT (username) DO UPDATE SET password_hash = EXCLUDED.password_hash`,
		e.Username, e.PasswordHash)
	if err != nil {
		return fmt.Errorf("failed to add employee: %w", err)
	}
	return nil
}
