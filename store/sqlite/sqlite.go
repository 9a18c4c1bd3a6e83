/*
Package sqlite provides the SQLite-backed implementation of ledger.Store.

PURPOSE:
  Implements all persistence interfaces the engine consumes (groups,
  expenses, payments, balance snapshots, users, invitations) on SQLite.
  In production the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

KEY TABLES:
  users           Accounts (auth package owns password hashing)
  groups          Group identity; total is NOT stored, always derived
  group_members   Membership with role, unique per (group,user)
  expenses        Raw expense ledger
  payments        Settlement payments with status
  balances        Derived (group,user) snapshots, unique on the pair
  invitations     Group invitations by email token

DERIVED TOTALS:
  GetGroup derives TotalAmount by folding the expense rows on every load
  (decimal strings summed in Go, never float SQL arithmetic). There is no
  running counter to drift out of sync.

CONCURRENCY:
  Uses sync.RWMutex for write serialization on top of WAL mode. Multi-row
  writes that must land together (snapshot batches, group + membership)
  run inside a database transaction.

USAGE:
  store, err := sqlite.New("./data/expenses.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - ledger/store.go: Interface definitions
  - groups.go, expenses.go, payments.go, balances.go, users.go: Per-entity CRUD
*/
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/divvy/expense-engine/ledger"
)

// Ensure Store satisfies the full engine interface.
var _ ledger.Store = (*Store)(nil)

// Store implements ledger.Store using SQLite.
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
	// One connection: SQLite serializes writers anyway, and a ":memory:"
	// database exists per connection, not per pool.
	db.SetMaxOpenConns(1)

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
	-- Users (accounts)
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Groups. No total column: the total is derived from expenses.
	CREATE TABLE IF NOT EXISTS groups (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_by TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Membership, one row per (group,user)
	CREATE TABLE IF NOT EXISTS group_members (
		group_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'member',
		joined_at TEXT NOT NULL,
		PRIMARY KEY (group_id, user_id)
	);

	CREATE INDEX IF NOT EXISTS idx_members_user
		ON group_members(user_id);

	-- Expenses (amounts stored as decimal strings)
	CREATE TABLE IF NOT EXISTS expenses (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		group_id TEXT,
		amount TEXT NOT NULL,
		category TEXT NOT NULL,
		description TEXT,
		transaction_date TEXT NOT NULL,
		is_recurring BOOLEAN DEFAULT FALSE,
		recurring_frequency TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_expenses_group
		ON expenses(group_id) WHERE group_id IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_expenses_user
		ON expenses(user_id);

	-- Settlement payments
	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		group_id TEXT NOT NULL,
		payer_id TEXT NOT NULL,
		payee_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		expense_id TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payments_group_status
		ON payments(group_id, status);
	CREATE INDEX IF NOT EXISTS idx_payments_expense
		ON payments(expense_id) WHERE expense_id IS NOT NULL;

	-- Derived balance snapshots, one per (group,user)
	CREATE TABLE IF NOT EXISTS balances (
		group_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		total_contributed TEXT NOT NULL,
		total_owed TEXT NOT NULL,
		net_balance TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (group_id, user_id)
	);

	-- Invitations
	CREATE TABLE IF NOT EXISTS invitations (
		id TEXT PRIMARY KEY,
		group_id TEXT NOT NULL,
		email TEXT NOT NULL,
		invited_by TEXT NOT NULL,
		token TEXT NOT NULL UNIQUE,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_invitations_group
		ON invitations(group_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
