package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"finbot/internal/core"

	_ "modernc.org/sqlite"
)

// timeLayout is fixed width and always UTC so timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteRepository implements Store on a single SQLite database file.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

// Ping checks that the database file is still reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// AddAccount implements AccountStore
func (r *SQLiteRepository) AddAccount(ctx context.Context, a core.Account) error {
	if err := a.Validate(); err != nil {
		return err
	}
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.now()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (iban, bank, company, balance, created_at) VALUES (?, ?, ?, ?, ?)`,
		core.NormalizeIBAN(a.IBAN), strings.TrimSpace(a.Bank), strings.TrimSpace(a.Company),
		a.Balance.String(), formatTime(createdAt))
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// ListAccounts implements AccountStore
func (r *SQLiteRepository) ListAccounts(ctx context.Context, f AccountFilter) ([]core.Account, error) {
	where, args := accountWhere(f)
	query := `SELECT iban, bank, company, balance, created_at FROM accounts` + where + ` ORDER BY id`
	query, args = paginate(query, args, f.Limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return out, nil
}

// CountAccounts implements AccountStore
func (r *SQLiteRepository) CountAccounts(ctx context.Context, f AccountFilter) (int, error) {
	where, args := accountWhere(f)
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return n, nil
}

// GetAccount implements AccountStore
func (r *SQLiteRepository) GetAccount(ctx context.Context, iban string) (core.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT iban, bank, company, balance, created_at FROM accounts WHERE iban = ?`,
		core.NormalizeIBAN(iban))
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, core.ErrNotFound
	}
	return a, err
}

// InsertTransaction implements TransactionStore
func (r *SQLiteRepository) InsertTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = r.now()
	}
	t.Account = core.NormalizeIBAN(t.Account)

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		balance, err := readBalance(ctx, tx, t.Account)
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO transactions (amount, currency, account, profile_id, description, invoice_number, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			t.Amount.Decimal.String(), t.Currency, t.Account, t.ProfileID,
			nullString(t.Description), nullString(t.InvoiceNumber), formatTime(t.CreatedAt))
		if err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
		if t.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("read transaction id: %w", err)
		}

		return writeBalance(ctx, tx, t.Account, balance.Add(t.Amount.Decimal))
	})
	if err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"profile_id", t.ProfileID,
		"amount", t.Amount.Decimal.String(),
		"currency", t.Currency)

	return t, nil
}

// DeleteTransaction implements TransactionStore
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		t, err := scanTransaction(tx.QueryRowContext(ctx, selectTransactions+` WHERE id = ?`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return core.ErrNotFound
		}
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete transaction: %w", err)
		}

		if !t.Amount.Valid {
			return nil
		}
		balance, err := readBalance(ctx, tx, t.Account)
		if errors.Is(err, core.ErrNotFound) {
			// Orphaned row: nothing left to compensate.
			return nil
		}
		if err != nil {
			return err
		}
		return writeBalance(ctx, tx, t.Account, balance.Sub(t.Amount.Decimal))
	})
}

// LastTransaction implements TransactionStore
func (r *SQLiteRepository) LastTransaction(ctx context.Context, profileID string) (core.Transaction, error) {
	t, err := scanTransaction(r.db.QueryRowContext(ctx,
		selectTransactions+` WHERE profile_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`, profileID))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	return t, err
}

// ListTransactions implements TransactionStore
func (r *SQLiteRepository) ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error) {
	where, args := transactionWhere(f)
	query := selectTransactions + where
	if f.Newest {
		query += ` ORDER BY created_at DESC, id DESC`
	} else {
		query += ` ORDER BY created_at, id`
	}
	query, args = paginate(query, args, f.Limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// CountTransactions implements TransactionStore
func (r *SQLiteRepository) CountTransactions(ctx context.Context, f TransactionFilter) (int, error) {
	where, args := transactionWhere(f)
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

func accountWhere(f AccountFilter) (string, []any) {
	where := ` WHERE 1 = 1`
	var args []any
	if f.Bank != "" {
		where += ` AND bank = ?`
		args = append(args, f.Bank)
	}
	if f.Company != "" {
		where += ` AND company = ?`
		args = append(args, f.Company)
	}
	return where, args
}

func transactionWhere(f TransactionFilter) (string, []any) {
	where := ` WHERE created_at >= ?`
	args := []any{formatTime(f.From)}
	if !f.To.IsZero() {
		where += ` AND created_at <= ?`
		args = append(args, formatTime(f.To))
	}
	if f.Account != "" {
		where += ` AND account = ?`
		args = append(args, core.NormalizeIBAN(f.Account))
	}
	return where, args
}

// paginate appends LIMIT/OFFSET. SQLite needs a LIMIT before OFFSET, -1 means none.
func paginate(query string, args []any, limit, offset int) (string, []any) {
	if limit <= 0 && offset <= 0 {
		return query, args
	}
	if limit <= 0 {
		limit = -1
	}
	return query + ` LIMIT ? OFFSET ?`, append(args, limit, max(offset, 0))
}

// ReplacePending implements PendingRepository
func (r *SQLiteRepository) ReplacePending(ctx context.Context, row PendingRow) error {
	if row.CreatedAt.IsZero() {
		row.CreatedAt = r.now()
	}
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM pending_actions WHERE profile_id = ?`, row.ProfileID); err != nil {
			return fmt.Errorf("delete pending actions: %w", err)
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO pending_actions (profile_id, action_type, payload, created_at) VALUES (?, ?, ?, ?)`,
			row.ProfileID, row.ActionType, string(row.Payload), formatTime(row.CreatedAt))
		if err != nil {
			return fmt.Errorf("insert pending action: %w", err)
		}
		return nil
	})
}

// LatestPending implements PendingRepository
func (r *SQLiteRepository) LatestPending(ctx context.Context, profileID string) (PendingRow, error) {
	var (
		row       PendingRow
		payload   string
		createdAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT profile_id, action_type, payload, created_at FROM pending_actions
		 WHERE profile_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`, profileID).
		Scan(&row.ProfileID, &row.ActionType, &payload, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return PendingRow{}, core.ErrNotFound
	}
	if err != nil {
		return PendingRow{}, fmt.Errorf("query pending action: %w", err)
	}
	row.Payload = []byte(payload)
	if row.CreatedAt, err = parseTime(createdAt); err != nil {
		return PendingRow{}, err
	}
	return row, nil
}

// DeletePending implements PendingRepository
func (r *SQLiteRepository) DeletePending(ctx context.Context, profileID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM pending_actions WHERE profile_id = ?`, profileID); err != nil {
		return fmt.Errorf("delete pending actions: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

const selectTransactions = `SELECT id, amount, currency, account, profile_id, description, invoice_number, created_at FROM transactions`

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(s scanner) (core.Account, error) {
	var (
		a         core.Account
		balance   string
		createdAt string
	)
	if err := s.Scan(&a.IBAN, &a.Bank, &a.Company, &balance, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Account{}, err
		}
		return core.Account{}, fmt.Errorf("scan account: %w", err)
	}
	var err error
	if a.Balance, err = decimal.NewFromString(balance); err != nil {
		return core.Account{}, fmt.Errorf("parse balance of %s: %w", a.IBAN, err)
	}
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.Account{}, err
	}
	return a, nil
}

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		t             core.Transaction
		amount        sql.NullString
		description   sql.NullString
		invoiceNumber sql.NullString
		createdAt     string
	)
	if err := s.Scan(&t.ID, &amount, &t.Currency, &t.Account, &t.ProfileID, &description, &invoiceNumber, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Transaction{}, err
		}
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	if amount.Valid {
		if d, err := decimal.NewFromString(amount.String); err == nil {
			t.Amount = decimal.NewNullDecimal(d)
		}
	}
	if description.Valid {
		t.Description = &description.String
	}
	if invoiceNumber.Valid {
		t.InvoiceNumber = &invoiceNumber.String
	}
	var err error
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

func readBalance(ctx context.Context, tx *sql.Tx, iban string) (decimal.Decimal, error) {
	var balance string
	err := tx.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE iban = ?`, iban).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("account %s: %w", iban, core.ErrNotFound)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("read balance: %w", err)
	}
	d, err := decimal.NewFromString(balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse balance of %s: %w", iban, err)
	}
	return d, nil
}

func writeBalance(ctx context.Context, tx *sql.Tx, iban string, balance decimal.Decimal) error {
	if _, err := tx.ExecContext(ctx, `UPDATE accounts SET balance = ? WHERE iban = ?`, balance.String(), iban); err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
