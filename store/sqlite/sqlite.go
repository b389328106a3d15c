/*
Package sqlite provides a SQLite-backed implementation of the payroll storage interfaces.

PURPOSE:
  Implements payroll.TxStore, payroll.EmployeeStore and payroll.RunStore
  using SQLite. In production, the same patterns apply to PostgreSQL - only
  minor SQL dialect differences.

WRITE-ONCE PAYROLLS:
  Payroll rows are never updated. A correction is a new pay period run, not an
  edit. The UNIQUE(employee_id, allocation_id, pay_period) constraint turns a
  retried run into payroll.ErrDuplicatePayroll.

KEY TABLES:
  employees:                   Employee snapshots (employment, tax profile, allocations)
  payrolls:                    One row per allocation per pay period
  inter_organization_advances: Cash owed between organizations, tied to a payroll row
  payroll_runs:                Audit of bulk and scheduled runs

MONEY:
  Decimals are stored as TEXT to keep exact values. The headline amounts are
  denormalized into columns for reporting; the full calculation is kept as JSON.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

USAGE:
  store, err := sqlite.New("./data/payroll.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  runner := payroll.NewRunner(engine, store, logger)

SEE ALSO:
  - payroll/store.go: Interface definitions
  - payroll/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/payroll"
)

// Store implements all payroll storage interfaces using SQLite.
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
	if dbPath == ":memory:" {
		// Each connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
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

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		home_organization TEXT NOT NULL,
		snapshot_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS payrolls (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		allocation_id TEXT NOT NULL,
		pay_period TEXT NOT NULL,
		tax_year INTEGER NOT NULL,
		gross_salary_by_fte TEXT NOT NULL,
		total_income TEXT NOT NULL,
		total_deduction TEXT NOT NULL,
		net_salary TEXT NOT NULL,
		employer_contribution TEXT NOT NULL,
		calculation_json TEXT NOT NULL,
		created_by TEXT NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE(employee_id, allocation_id, pay_period)
	);

	CREATE INDEX IF NOT EXISTS idx_payrolls_period
		ON payrolls(pay_period);

	CREATE TABLE IF NOT EXISTS inter_organization_advances (
		id TEXT PRIMARY KEY,
		payroll_id TEXT NOT NULL REFERENCES payrolls(id),
		employee_id TEXT NOT NULL,
		allocation_id TEXT NOT NULL,
		from_organization TEXT NOT NULL,
		to_organization TEXT NOT NULL,
		via_grant_ref TEXT,
		amount TEXT NOT NULL,
		pay_period TEXT NOT NULL,
		created_by TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_advances_period
		ON inter_organization_advances(pay_period);

	CREATE TABLE IF NOT EXISTS payroll_runs (
		id TEXT PRIMARY KEY,
		pay_period TEXT NOT NULL,
		tax_year INTEGER NOT NULL,
		actor TEXT NOT NULL,
		succeeded INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		errors_json TEXT,
		started_at TEXT NOT NULL,
		completed_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payroll_runs_period
		ON payroll_runs(pay_period);
	`

	_, err := s.db.Exec(schema)
	return err
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// =============================================================================
// PAYROLLS (payroll.Store interface)
// =============================================================================

func (s *Store) SavePayroll(ctx context.Context, rec payroll.PayrollRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return savePayroll(ctx, s.db, rec)
}

func savePayroll(ctx context.Context, db execer, rec payroll.PayrollRecord) error {
	calcJSON, err := json.Marshal(rec.Calculation)
	if err != nil {
		return fmt.Errorf("failed to encode calculation: %w", err)
	}
	c := rec.Calculation

	query := `
		INSERT INTO payrolls
		(id, employee_id, allocation_id, pay_period, tax_year, gross_salary_by_fte,
		 total_income, total_deduction, net_salary, employer_contribution,
		 calculation_json, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = db.ExecContext(ctx, query,
		rec.ID,
		rec.EmployeeID,
		rec.AllocationID,
		rec.PayPeriod.String(),
		rec.TaxYear,
		c.GrossSalaryByFTE.String(),
		c.TotalIncome.String(),
		c.TotalDeduction.String(),
		c.NetSalary.String(),
		c.EmployerContribution.String(),
		string(calcJSON),
		rec.CreatedBy,
		rec.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return payroll.ErrDuplicatePayroll
		}
		return fmt.Errorf("failed to save payroll: %w", err)
	}
	return nil
}

func (s *Store) ListPayrolls(ctx context.Context, employeeID string, period payroll.PayPeriod) ([]payroll.PayrollRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listPayrolls(ctx, s.db, employeeID, period)
}

func listPayrolls(ctx context.Context, db execer, employeeID string, period payroll.PayPeriod) ([]payroll.PayrollRecord, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, employee_id, allocation_id, pay_period, tax_year, calculation_json, created_by, created_at
		FROM payrolls
		WHERE employee_id = ? AND pay_period = ?
		ORDER BY allocation_id
	`, employeeID, period.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []payroll.PayrollRecord{}
	for rows.Next() {
		var (
			rec                            payroll.PayrollRecord
			periodStr, calcJSON, createdAt string
		)
		if err := rows.Scan(&rec.ID, &rec.EmployeeID, &rec.AllocationID, &periodStr,
			&rec.TaxYear, &calcJSON, &rec.CreatedBy, &createdAt); err != nil {
			return nil, err
		}
		if rec.PayPeriod, err = payroll.ParsePayPeriod(periodStr); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(calcJSON), &rec.Calculation); err != nil {
			return nil, fmt.Errorf("failed to decode calculation %s: %w", rec.ID, err)
		}
		if rec.CreatedAt, err = parseTimestamp("payroll", rec.ID, createdAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// =============================================================================
// ADVANCES
// =============================================================================

func (s *Store) SaveAdvance(ctx context.Context, rec payroll.AdvanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveAdvance(ctx, s.db, rec)
}

func saveAdvance(ctx context.Context, db execer, rec payroll.AdvanceRecord) error {
	a := rec.Advance
	_, err := db.ExecContext(ctx, `
		INSERT INTO inter_organization_advances
		(id, payroll_id, employee_id, allocation_id, from_organization, to_organization,
		 via_grant_ref, amount, pay_period, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID, rec.PayrollID, rec.EmployeeID, a.AllocationID,
		a.FromOrganization, a.ToOrganization, nullString(a.ViaGrantRef),
		a.Amount.String(), a.PayPeriod.String(),
		rec.CreatedBy, rec.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save advance: %w", err)
	}
	return nil
}

func (s *Store) ListAdvances(ctx context.Context, period payroll.PayPeriod) ([]payroll.AdvanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listAdvances(ctx, s.db, period)
}

func listAdvances(ctx context.Context, db execer, period payroll.PayPeriod) ([]payroll.AdvanceRecord, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, payroll_id, employee_id, allocation_id, from_organization, to_organization,
			via_grant_ref, amount, pay_period, created_by, created_at
		FROM inter_organization_advances
		WHERE pay_period = ?
		ORDER BY from_organization, employee_id, allocation_id
	`, period.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []payroll.AdvanceRecord{}
	for rows.Next() {
		var (
			rec                          payroll.AdvanceRecord
			via                          sql.NullString
			amount, periodStr, createdAt string
		)
		if err := rows.Scan(&rec.ID, &rec.PayrollID, &rec.EmployeeID, &rec.Advance.AllocationID,
			&rec.Advance.FromOrganization, &rec.Advance.ToOrganization, &via,
			&amount, &periodStr, &rec.CreatedBy, &createdAt); err != nil {
			return nil, err
		}
		rec.Advance.ViaGrantRef = via.String
		if rec.Advance.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("failed to parse advance amount %q: %w", amount, err)
		}
		if rec.Advance.PayPeriod, err = payroll.ParsePayPeriod(periodStr); err != nil {
			return nil, err
		}
		if rec.CreatedAt, err = parseTimestamp("advance", rec.ID, createdAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// =============================================================================
// TRANSACTIONAL STORE (payroll.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(payroll.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// txStore reads and writes through the open transaction only. The parent
// lock is already held.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) SavePayroll(ctx context.Context, rec payroll.PayrollRecord) error {
	return savePayroll(ctx, ts.tx, rec)
}

func (ts *txStore) SaveAdvance(ctx context.Context, rec payroll.AdvanceRecord) error {
	return saveAdvance(ctx, ts.tx, rec)
}

func (ts *txStore) ListPayrolls(ctx context.Context, employeeID string, period payroll.PayPeriod) ([]payroll.PayrollRecord, error) {
	return listPayrolls(ctx, ts.tx, employeeID, period)
}

func (ts *txStore) ListAdvances(ctx context.Context, period payroll.PayPeriod) ([]payroll.AdvanceRecord, error) {
	return listAdvances(ctx, ts.tx, period)
}

// =============================================================================
// EMPLOYEE STORE
// =============================================================================

// SaveEmployee inserts or replaces an employee snapshot.
func (s *Store) SaveEmployee(ctx context.Context, emp payroll.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := json.Marshal(emp)
	if err != nil {
		return fmt.Errorf("failed to encode employee: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)

	query := `
		INSERT INTO employees (id, name, home_organization, snapshot_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			home_organization = excluded.home_organization,
			snapshot_json = excluded.snapshot_json,
			updated_at = excluded.updated_at
	`
	_, err = s.db.ExecContext(ctx, query, emp.ID, emp.Name, emp.HomeOrganization, string(snapshot), now, now)
	return err
}

// GetEmployee retrieves an employee by ID.
func (s *Store) GetEmployee(ctx context.Context, id string) (*payroll.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var snapshot string
	err := s.db.QueryRowContext(ctx, "SELECT snapshot_json FROM employees WHERE id = ?", id).Scan(&snapshot)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, payroll.ErrEmployeeNotFound
	}
	if err != nil {
		return nil, err
	}

	var emp payroll.Employee
	if err := json.Unmarshal([]byte(snapshot), &emp); err != nil {
		return nil, fmt.Errorf("failed to decode employee %s: %w", id, err)
	}
	return &emp, nil
}

// ListEmployees returns all employees ordered by id.
func (s *Store) ListEmployees(ctx context.Context) ([]payroll.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, snapshot_json FROM employees ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	employees := []payroll.Employee{}
	for rows.Next() {
		var id, snapshot string
		if err := rows.Scan(&id, &snapshot); err != nil {
			return nil, err
		}
		var emp payroll.Employee
		if err := json.Unmarshal([]byte(snapshot), &emp); err != nil {
			return nil, fmt.Errorf("failed to decode employee %s: %w", id, err)
		}
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

// =============================================================================
// PAYROLL RUNS (payroll.RunStore interface)
// =============================================================================

// SaveRun records a completed bulk or scheduled run.
func (s *Store) SaveRun(ctx context.Context, r payroll.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	errorsJSON, err := json.Marshal(r.Errors)
	if err != nil {
		return fmt.Errorf("failed to encode run errors: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO payroll_runs (id, pay_period, tax_year, actor, succeeded, failed,
			errors_json, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.ID, r.PayPeriod.String(), r.TaxYear, r.Actor, r.Succeeded, r.Failed,
		string(errorsJSON),
		r.StartedAt.UTC().Format(time.RFC3339), r.CompletedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// ListRuns returns runs, most recent first. A limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]payroll.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, pay_period, tax_year, actor, succeeded, failed, errors_json, started_at, completed_at
		FROM payroll_runs
		ORDER BY started_at DESC, id DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []payroll.RunRecord{}
	for rows.Next() {
		var (
			r                               payroll.RunRecord
			periodStr, startedAt, completed string
			errorsJSON                      sql.NullString
		)
		if err := rows.Scan(&r.ID, &periodStr, &r.TaxYear, &r.Actor, &r.Succeeded, &r.Failed,
			&errorsJSON, &startedAt, &completed); err != nil {
			return nil, err
		}
		if r.PayPeriod, err = payroll.ParsePayPeriod(periodStr); err != nil {
			return nil, err
		}
		if errorsJSON.Valid {
			if err := json.Unmarshal([]byte(errorsJSON.String), &r.Errors); err != nil {
				return nil, fmt.Errorf("failed to decode errors of run %s: %w", r.ID, err)
			}
		}
		if r.StartedAt, err = parseTimestamp("run", r.ID, startedAt); err != nil {
			return nil, err
		}
		if r.CompletedAt, err = parseTimestamp("run", r.ID, completed); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// IsRunComplete checks if a run was already recorded for period.
func (s *Store) IsRunComplete(ctx context.Context, period payroll.PayPeriod) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM payroll_runs WHERE pay_period = ?", period.String(),
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// =============================================================================
// RESET
// =============================================================================

// Reset clears all data. Used by demo scenarios.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Advances reference payrolls, so they go first.
	tables := []string{"inter_organization_advances", "payrolls", "payroll_runs", "employees"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

// Helper functions

func parseTimestamp(kind, id, raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp of %s %s: %w", kind, id, err)
	}
	return t, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}

var (
	_ payroll.TxStore       = (*Store)(nil)
	_ payroll.EmployeeStore = (*Store)(nil)
	_ payroll.RunStore      = (*Store)(nil)
)
