// Package sqlite is the embedded SQL storage backend.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"expense-tracker/internal/core"
	"expense-tracker/internal/storage"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

const timeLayout = time.RFC3339Nano

type Store struct {
	db            *sql.DB
	schemaVersion uint
}

var _ storage.Store = (*Store)(nil)

// Open creates the database directory if needed, applies migrations and
// returns a ready store.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := migrateUp(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db, schemaVersion: version}, nil
}

// SchemaVersion is the migration version the database was left at by Open.
func (s *Store) SchemaVersion() uint { return s.schemaVersion }

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) CreateTransaction(ctx context.Context, tx core.Transaction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (id, username, title, description, amount, type, category,
			date, is_recursive, recursion_period, end_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.Username, tx.Title, tx.Description, tx.Amount.String(), string(tx.Type), tx.Category,
		formatTime(tx.Date), tx.IsRecursive, string(tx.RecursionPeriod), nullTime(tx.EndDate),
		formatTime(tx.CreatedAt), formatTime(tx.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

const selectTransaction = `
	SELECT id, username, title, description, amount, type, category,
		date, is_recursive, recursion_period, end_date, created_at, updated_at
	FROM transactions`

func (s *Store) GetTransaction(ctx context.Context, username, id string) (core.Transaction, error) {
	row := s.db.QueryRowContext(ctx, selectTransaction+` WHERE username = ? AND id = ?`, username, id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

func (s *Store) ListTransactions(ctx context.Context, username string) ([]core.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, selectTransaction+` WHERE username = ? ORDER BY rowid`, username)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := []core.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (s *Store) UpdateTransaction(ctx context.Context, tx core.Transaction) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE transactions SET title = ?, description = ?, amount = ?, type = ?, category = ?,
			date = ?, is_recursive = ?, recursion_period = ?, end_date = ?, updated_at = ?
		WHERE username = ? AND id = ?`,
		tx.Title, tx.Description, tx.Amount.String(), string(tx.Type), tx.Category,
		formatTime(tx.Date), tx.IsRecursive, string(tx.RecursionPeriod), nullTime(tx.EndDate),
		formatTime(tx.UpdatedAt), tx.Username, tx.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return expectOne(res, "transaction "+tx.ID)
}

func (s *Store) DeleteTransaction(ctx context.Context, username, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE username = ? AND id = ?`, username, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return expectOne(res, "transaction "+id)
}

func (s *Store) ListUsernames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT username FROM transactions ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("list usernames: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan username: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) GetLimits(ctx context.Context, username string) (core.LimitsConfig, error) {
	var raw, updated string
	err := s.db.QueryRowContext(ctx, `SELECT limits, updated_at FROM limits WHERE username = ?`, username).
		Scan(&raw, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return core.LimitsConfig{}, fmt.Errorf("limits for %s: %w", username, storage.ErrNotFound)
	}
	if err != nil {
		return core.LimitsConfig{}, fmt.Errorf("get limits: %w", err)
	}

	cfg := core.LimitsConfig{Username: username}
	if err := json.Unmarshal([]byte(raw), &cfg.Limits); err != nil {
		return core.LimitsConfig{}, fmt.Errorf("decode limits: %w", err)
	}
	if cfg.UpdatedAt, err = parseTime(updated); err != nil {
		return core.LimitsConfig{}, err
	}
	return cfg, nil
}

func (s *Store) CreateLimits(ctx context.Context, cfg core.LimitsConfig) error {
	raw, err := json.Marshal(cfg.Limits)
	if err != nil {
		return fmt.Errorf("encode limits: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO limits (username, limits, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(username) DO NOTHING`,
		cfg.Username, string(raw), formatTime(cfg.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert limits: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("limits for %s: %w", cfg.Username, storage.ErrAlreadyExists)
	}
	return nil
}

func (s *Store) UpdateLimits(ctx context.Context, cfg core.LimitsConfig) error {
	raw, err := json.Marshal(cfg.Limits)
	if err != nil {
		return fmt.Errorf("encode limits: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE limits SET limits = ?, updated_at = ? WHERE username = ?`,
		string(raw), formatTime(cfg.UpdatedAt), cfg.Username)
	if err != nil {
		return fmt.Errorf("update limits: %w", err)
	}
	return expectOne(res, "limits for "+cfg.Username)
}

// ClaimSummarySlot performs the compare-and-set in a single upsert: the
// update branch only fires when the stored request is at least window old.
func (s *Store) ClaimSummarySlot(ctx context.Context, username string, now time.Time, window time.Duration) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO summary_usage (username, last_requested_ns) VALUES (?, ?)
		ON CONFLICT(username) DO UPDATE SET last_requested_ns = excluded.last_requested_ns
		WHERE summary_usage.last_requested_ns <= ?`,
		username, now.UnixNano(), now.Add(-window).UnixNano())
	if err != nil {
		return false, fmt.Errorf("claim summary slot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim summary slot: %w", err)
	}
	return n == 1, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(sc scanner) (core.Transaction, error) {
	var (
		tx                     core.Transaction
		amount, typ, period    string
		date, created, updated string
		endDate                sql.NullString
	)
	err := sc.Scan(&tx.ID, &tx.Username, &tx.Title, &tx.Description, &amount, &typ, &tx.Category,
		&date, &tx.IsRecursive, &period, &endDate, &created, &updated)
	if err != nil {
		return core.Transaction{}, err
	}

	if tx.Amount, err = decimal.NewFromString(amount); err != nil {
		return core.Transaction{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	tx.Type = core.TransactionType(typ)
	tx.RecursionPeriod = core.RecursionPeriod(period)
	if tx.Date, err = parseTime(date); err != nil {
		return core.Transaction{}, err
	}
	if endDate.Valid {
		if tx.EndDate, err = parseTime(endDate.String); err != nil {
			return core.Transaction{}, err
		}
	}
	if tx.CreatedAt, err = parseTime(created); err != nil {
		return core.Transaction{}, err
	}
	if tx.UpdatedAt, err = parseTime(updated); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

func expectOne(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, storage.ErrNotFound)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(t), Valid: true}
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}
