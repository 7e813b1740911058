package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"findata/internal/core"
)

const dateLayout = "2006-01-02"

// TransactionFilter narrows a transaction listing. Zero-valued fields
// impose no constraint; supplied fields combine conjunctively.
type TransactionFilter struct {
	Kind     core.Kind
	Category string
	From     core.Date
	To       core.Date
}

// CreateTransaction inserts a transaction and returns its ID.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (user_id, date, amount_cents, kind, category, description)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.UserID, t.Date.Time.Format(dateLayout), t.Amount.Cents, string(t.Kind), t.Category, t.Description)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("transaction insert id: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"transaction_id", id,
		"user_id", t.UserID,
		"kind", string(t.Kind),
		"category", t.Category,
		"amount_cents", t.Amount.Cents)

	return id, nil
}

// GetTransaction retrieves a single transaction by ID.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, date, amount_cents, kind, category, description, created_at
		 FROM transactions WHERE id = ?`, id)

	t, err := scanTransaction(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// DeleteTransaction removes a transaction after verifying ownership.
// Returns core.ErrNotFound for a missing record and core.ErrNotOwner
// when the record belongs to another user; in the latter case the row
// is left untouched.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id, userID int64) error {
	t, err := r.GetTransaction(ctx, id)
	if err != nil {
		return err
	}
	if t.UserID != userID {
		return core.ErrNotOwner
	}

	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction deleted", "transaction_id", id, "user_id", userID)
	return nil
}

// ListTransactions returns the user's transactions matching the filter,
// ordered by date descending (newest first).
func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID int64, f TransactionFilter) ([]core.Transaction, error) {
	query := `SELECT id, user_id, date, amount_cents, kind, category, description, created_at
	          FROM transactions WHERE user_id = ?`
	args := []any{userID}

	if f.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(f.Kind))
	}
	if f.Category != "" {
		query += ` AND category = ?`
		args = append(args, f.Category)
	}
	if !f.From.IsZero() {
		query += ` AND date >= ?`
		args = append(args, f.From.Time.Format(dateLayout))
	}
	if !f.To.IsZero() {
		query += ` AND date <= ?`
		args = append(args, f.To.Time.Format(dateLayout))
	}
	query += ` ORDER BY date DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CountTransactions returns the user's total transaction count.
func (r *SQLiteRepository) CountTransactions(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE user_id = ?`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

// Categories returns the distinct categories the user has used, for
// filter dropdowns.
func (r *SQLiteRepository) Categories(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT category FROM transactions WHERE user_id = ? ORDER BY category`, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanTransaction(scan func(dest ...any) error) (core.Transaction, error) {
	var (
		t       core.Transaction
		dateStr string
		kindStr string
	)
	if err := scan(&t.ID, &t.UserID, &dateStr, &t.Amount.Cents, &kindStr, &t.Category, &t.Description, &t.CreatedAt); err != nil {
		return core.Transaction{}, err
	}

	day, err := time.Parse(dateLayout, dateStr)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse stored date %q: %w", dateStr, err)
	}
	t.Date = core.Date{Time: day}
	t.Kind = core.Kind(kindStr)
	return t, nil
}
