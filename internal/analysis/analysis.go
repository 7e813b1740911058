// Package analysis computes the aggregated views shown on the
// dashboard and analytics pages: monthly summaries, category
// breakdowns and trailing-window trends. All money math stays in
// cents; rounding happens once, at the aggregation boundary.
package analysis

import (
	"context"
	"fmt"
	"math"
	"time"

	"findata/internal/core"
	"findata/internal/storage"
)

// MonthLabels holds the month names used in summaries, January first.
var MonthLabels = [12]string{
	"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

type (
	// MonthRow is one month of a yearly summary. Balance may be negative.
	MonthRow struct {
		Month   int // 1-12
		Label   string
		Income  core.Money
		Expense core.Money
		Balance core.Money
	}

	// CategoryRow is one category of the expense breakdown.
	CategoryRow struct {
		Category   string
		Total      core.Money
		Percentage float64 // share of the year's expenses, 1 decimal
	}

	// Trend aggregates a trailing window of months.
	Trend struct {
		AvgIncome        core.Money
		AvgExpense       core.Money
		AvgBalance       core.Money
		TopCategory      string
		TopCategoryTotal core.Money
		WindowMonths     int
	}
)

// Store is the slice of the repository the engine reads from.
type Store interface {
	MonthlyTotals(ctx context.Context, userID int64, year int) ([]storage.MonthKindTotal, error)
	CategoryTotals(ctx context.Context, userID int64, year int) ([]storage.CategoryTotal, error)
	MonthlyTotalsInRange(ctx context.Context, userID int64, from, to core.Date) ([]storage.YearMonthKindTotal, error)
	CategoryTotalsInRange(ctx context.Context, userID int64, from, to core.Date) ([]storage.CategoryTotal, error)
}

// Engine answers aggregation queries for one user at a time.
type Engine struct {
	store Store
	now   func() time.Time
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store, now: time.Now}
}

// NewEngineAt builds an engine with a fixed clock, for tests and
// reproducible trend windows.
func NewEngineAt(store Store, now func() time.Time) *Engine {
	return &Engine{store: store, now: now}
}

// MonthlySummary returns exactly 12 rows, January through December.
// Months without transactions report zero income and expense.
func (e *Engine) MonthlySummary(ctx context.Context, userID int64, year int) ([]MonthRow, error) {
	totals, err := e.store.MonthlyTotals(ctx, userID, year)
	if err != nil {
		return nil, fmt.Errorf("monthly summary for %d: %w", year, err)
	}

	rows := make([]MonthRow, 12)
	for i := range rows {
		rows[i] = MonthRow{Month: i + 1, Label: MonthLabels[i]}
	}
	for _, t := range totals {
		if t.Month < 1 || t.Month > 12 {
			continue
		}
		switch t.Kind {
		case core.Income:
			rows[t.Month-1].Income.Cents += t.TotalCents
		case core.Expense:
			rows[t.Month-1].Expense.Cents += t.TotalCents
		}
	}
	for i := range rows {
		rows[i].Balance = rows[i].Income.Sub(rows[i].Expense)
	}
	return rows, nil
}

// CategoryBreakdown returns expense totals per category for the year,
// largest first, with each category's share of the total as a
// percentage rounded to one decimal. No expenses yields an empty slice.
func (e *Engine) CategoryBreakdown(ctx context.Context, userID int64, year int) ([]CategoryRow, error) {
	totals, err := e.store.CategoryTotals(ctx, userID, year)
	if err != nil {
		return nil, fmt.Errorf("category breakdown for %d: %w", year, err)
	}
	if len(totals) == 0 {
		return nil, nil
	}

	var sum int64
	for _, t := range totals {
		sum += t.TotalCents
	}

	rows := make([]CategoryRow, len(totals))
	for i, t := range totals {
		var pct float64
		if sum > 0 {
			pct = round1(float64(t.TotalCents) / float64(sum) * 100)
		}
		rows[i] = CategoryRow{
			Category:   t.Category,
			Total:      core.Money{Cents: t.TotalCents},
			Percentage: pct,
		}
	}
	return rows, nil
}

// TrailingTrend aggregates the trailing windowMonths ending today.
// Monthly averages count each calendar month in which the kind has
// data once, so partial months at the window boundary still weigh as
// a full month. An empty window yields zeroes and TopCategory "N/A".
func (e *Engine) TrailingTrend(ctx context.Context, userID int64, windowMonths int) (Trend, error) {
	trend := Trend{TopCategory: "N/A", WindowMonths: windowMonths}
	if windowMonths < 1 {
		return trend, nil
	}

	now := e.now()
	to := core.DateOf(now)
	from := core.DateOf(now.AddDate(0, -windowMonths, 0))

	totals, err := e.store.MonthlyTotalsInRange(ctx, userID, from, to)
	if err != nil {
		return trend, fmt.Errorf("trend totals: %w", err)
	}
	if len(totals) == 0 {
		return trend, nil
	}

	var incomeSum, expenseSum int64
	var incomeMonths, expenseMonths int
	for _, t := range totals {
		switch t.Kind {
		case core.Income:
			incomeSum += t.TotalCents
			incomeMonths++
		case core.Expense:
			expenseSum += t.TotalCents
			expenseMonths++
		}
	}
	trend.AvgIncome = avgCents(incomeSum, incomeMonths)
	trend.AvgExpense = avgCents(expenseSum, expenseMonths)
	trend.AvgBalance = trend.AvgIncome.Sub(trend.AvgExpense)

	categories, err := e.store.CategoryTotalsInRange(ctx, userID, from, to)
	if err != nil {
		return trend, fmt.Errorf("trend categories: %w", err)
	}
	if len(categories) > 0 {
		// Ordered largest first by the store
		trend.TopCategory = categories[0].Category
		trend.TopCategoryTotal = core.Money{Cents: categories[0].TotalCents}
	}
	return trend, nil
}

// SavingRate returns balance over income as a percentage rounded to
// one decimal. Zero or negative income yields zero, never an error.
func SavingRate(income, balance core.Money) float64 {
	if income.Cents <= 0 {
		return 0
	}
	return round1(float64(balance.Cents) / float64(income.Cents) * 100)
}

// Totals sums a yearly summary into overall income, expense and balance.
func Totals(rows []MonthRow) (income, expense, balance core.Money) {
	for _, r := range rows {
		income = income.Add(r.Income)
		expense = expense.Add(r.Expense)
	}
	return income, expense, income.Sub(expense)
}

func avgCents(sum int64, months int) core.Money {
	if months == 0 {
		return core.Money{}
	}
	return core.Money{Cents: int64(math.Round(float64(sum) / float64(months)))}
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
