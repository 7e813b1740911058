package storage

import (
	"context"
	"fmt"

	"findata/internal/core"
)

// Grouped-sum rows consumed by the analysis package. All sums are in
// cents; grouping happens in SQL, shaping in Go.
type (
	MonthKindTotal struct {
		Month      int // 1-12
		Kind       core.Kind
		TotalCents int64
	}

	YearMonthKindTotal struct {
		Year       int
		Month      int
		Kind       core.Kind
		TotalCents int64
	}

	CategoryTotal struct {
		Category   string
		TotalCents int64
	}

	CategoryMonthTotal struct {
		Category   string
		Month      int
		TotalCents int64
	}
)

// MonthlyTotals sums the user's transactions for one year, grouped by
// calendar month and kind. Months without data yield no row.
func (r *SQLiteRepository) MonthlyTotals(ctx context.Context, userID int64, year int) ([]MonthKindTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT CAST(strftime('%m', date) AS INTEGER) AS month, kind, SUM(amount_cents)
		 FROM transactions
		 WHERE user_id = ? AND strftime('%Y', date) = ?
		 GROUP BY month, kind
		 ORDER BY month`,
		userID, fmt.Sprintf("%04d", year))
	if err != nil {
		return nil, fmt.Errorf("monthly totals: %w", err)
	}
	defer rows.Close()

	var out []MonthKindTotal
	for rows.Next() {
		var (
			row  MonthKindTotal
			kind string
		)
		if err := rows.Scan(&row.Month, &kind, &row.TotalCents); err != nil {
			return nil, fmt.Errorf("scan monthly total: %w", err)
		}
		row.Kind = core.Kind(kind)
		out = append(out, row)
	}
	return out, rows.Err()
}

// CategoryTotals sums the user's expenses for one year grouped by
// category, largest first.
func (r *SQLiteRepository) CategoryTotals(ctx context.Context, userID int64, year int) ([]CategoryTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, SUM(amount_cents) AS total
		 FROM transactions
		 WHERE user_id = ? AND kind = 'expense' AND strftime('%Y', date) = ?
		 GROUP BY category
		 ORDER BY total DESC, category`,
		userID, fmt.Sprintf("%04d", year))
	if err != nil {
		return nil, fmt.Errorf("category totals: %w", err)
	}
	defer rows.Close()

	return scanCategoryTotals(rows.Next, rows.Scan, rows.Err)
}

// MonthlyTotalsInRange sums transactions between from and to
// (inclusive), grouped by calendar year+month and kind.
func (r *SQLiteRepository) MonthlyTotalsInRange(ctx context.Context, userID int64, from, to core.Date) ([]YearMonthKindTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT CAST(strftime('%Y', date) AS INTEGER) AS year,
		        CAST(strftime('%m', date) AS INTEGER) AS month,
		        kind, SUM(amount_cents)
		 FROM transactions
		 WHERE user_id = ? AND date >= ? AND date <= ?
		 GROUP BY year, month, kind
		 ORDER BY year, month`,
		userID, from.Time.Format(dateLayout), to.Time.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("monthly totals in range: %w", err)
	}
	defer rows.Close()

	var out []YearMonthKindTotal
	for rows.Next() {
		var (
			row  YearMonthKindTotal
			kind string
		)
		if err := rows.Scan(&row.Year, &row.Month, &kind, &row.TotalCents); err != nil {
			return nil, fmt.Errorf("scan ranged total: %w", err)
		}
		row.Kind = core.Kind(kind)
		out = append(out, row)
	}
	return out, rows.Err()
}

// CategoryTotalsInRange sums expenses between from and to (inclusive)
// grouped by category, largest first.
func (r *SQLiteRepository) CategoryTotalsInRange(ctx context.Context, userID int64, from, to core.Date) ([]CategoryTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, SUM(amount_cents) AS total
		 FROM transactions
		 WHERE user_id = ? AND kind = 'expense' AND date >= ? AND date <= ?
		 GROUP BY category
		 ORDER BY total DESC, category`,
		userID, from.Time.Format(dateLayout), to.Time.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("category totals in range: %w", err)
	}
	defer rows.Close()

	return scanCategoryTotals(rows.Next, rows.Scan, rows.Err)
}

// CategoryMonthTotals sums the user's expenses for one year grouped by
// category and calendar month, the grid behind the heatmap chart.
func (r *SQLiteRepository) CategoryMonthTotals(ctx context.Context, userID int64, year int) ([]CategoryMonthTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, CAST(strftime('%m', date) AS INTEGER) AS month, SUM(amount_cents)
		 FROM transactions
		 WHERE user_id = ? AND kind = 'expense' AND strftime('%Y', date) = ?
		 GROUP BY category, month
		 ORDER BY category, month`,
		userID, fmt.Sprintf("%04d", year))
	if err != nil {
		return nil, fmt.Errorf("category month totals: %w", err)
	}
	defer rows.Close()

	var out []CategoryMonthTotal
	for rows.Next() {
		var row CategoryMonthTotal
		if err := rows.Scan(&row.Category, &row.Month, &row.TotalCents); err != nil {
			return nil, fmt.Errorf("scan category month total: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func scanCategoryTotals(next func() bool, scan func(dest ...any) error, rowsErr func() error) ([]CategoryTotal, error) {
	var out []CategoryTotal
	for next() {
		var row CategoryTotal
		if err := scan(&row.Category, &row.TotalCents); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		out = append(out, row)
	}
	return out, rowsErr()
}
