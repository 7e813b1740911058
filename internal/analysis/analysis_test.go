package analysis

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"findata/internal/core"
	"findata/internal/storage"
)

func newTestEngine(t *testing.T, now time.Time) (*Engine, *storage.SQLiteRepository, int64) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	user, err := repo.CreateUser(context.Background(), "user@example.com", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	return NewEngineAt(repo, func() time.Time { return now }), repo, user.ID
}

func addTx(t *testing.T, repo *storage.SQLiteRepository, userID int64, date core.Date, cents int64, kind core.Kind, category string) {
	t.Helper()
	_, err := repo.CreateTransaction(context.Background(), core.Transaction{
		UserID:   userID,
		Date:     date,
		Amount:   core.Money{Cents: cents},
		Kind:     kind,
		Category: category,
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}
}

func TestMonthlySummaryEmptyYear(t *testing.T) {
	engine, _, userID := newTestEngine(t, time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))

	rows, err := engine.MonthlySummary(context.Background(), userID, 2025)
	if err != nil {
		t.Fatalf("MonthlySummary: %v", err)
	}
	if len(rows) != 12 {
		t.Fatalf("expected 12 rows, got %d", len(rows))
	}
	for i, r := range rows {
		if r.Month != i+1 {
			t.Errorf("row %d has month %d", i, r.Month)
		}
		if r.Label != MonthLabels[i] {
			t.Errorf("row %d label %q, want %q", i, r.Label, MonthLabels[i])
		}
		if r.Income.Cents != 0 || r.Expense.Cents != 0 || r.Balance.Cents != 0 {
			t.Errorf("month %d not zero: %+v", r.Month, r)
		}
	}
}

// Worked example: one income of 1000 and one expense of 400 in "Ocio",
// both in March.
func TestMonthlySummaryAndBreakdownExample(t *testing.T) {
	engine, repo, userID := newTestEngine(t, time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	addTx(t, repo, userID, core.NewDate(2025, 3, 5), 100000, core.Income, core.DefaultIncomeCategory)
	addTx(t, repo, userID, core.NewDate(2025, 3, 20), 40000, core.Expense, "Ocio")

	rows, err := engine.MonthlySummary(ctx, userID, 2025)
	if err != nil {
		t.Fatalf("MonthlySummary: %v", err)
	}
	march := rows[2]
	if march.Label != "Marzo" {
		t.Fatalf("row 3 label = %q", march.Label)
	}
	if march.Income.Cents != 100000 || march.Expense.Cents != 40000 || march.Balance.Cents != 60000 {
		t.Fatalf("march = %+v", march)
	}
	for _, r := range rows {
		if r.Month != 3 && (r.Income.Cents != 0 || r.Expense.Cents != 0) {
			t.Errorf("month %d should be zero: %+v", r.Month, r)
		}
	}

	breakdown, err := engine.CategoryBreakdown(ctx, userID, 2025)
	if err != nil {
		t.Fatalf("CategoryBreakdown: %v", err)
	}
	if len(breakdown) != 1 {
		t.Fatalf("expected 1 category, got %d", len(breakdown))
	}
	if breakdown[0].Category != "Ocio" || breakdown[0].Total.Cents != 40000 || breakdown[0].Percentage != 100.0 {
		t.Fatalf("breakdown = %+v", breakdown[0])
	}
}

func TestCategoryBreakdownPercentagesSumTo100(t *testing.T) {
	engine, repo, userID := newTestEngine(t, time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))

	amounts := map[string]int64{
		"Alimentación": 33333,
		"Transporte":   33333,
		"Ocio":         33334,
		"Vivienda":     120000,
	}
	day := 1
	for cat, cents := range amounts {
		addTx(t, repo, userID, core.NewDate(2025, 4, day), cents, core.Expense, cat)
		day++
	}

	breakdown, err := engine.CategoryBreakdown(context.Background(), userID, 2025)
	if err != nil {
		t.Fatalf("CategoryBreakdown: %v", err)
	}
	if len(breakdown) != len(amounts) {
		t.Fatalf("expected %d categories, got %d", len(amounts), len(breakdown))
	}
	if breakdown[0].Category != "Vivienda" {
		t.Errorf("rows must be ordered by total descending, got %q first", breakdown[0].Category)
	}
	var sum float64
	for i := 1; i < len(breakdown); i++ {
		if breakdown[i].Total.Cents > breakdown[i-1].Total.Cents {
			t.Errorf("breakdown not sorted at index %d", i)
		}
	}
	for _, row := range breakdown {
		sum += row.Percentage
	}
	if math.Abs(sum-100.0) > 0.3 {
		t.Fatalf("percentages sum to %.2f, want ~100", sum)
	}
}

func TestCategoryBreakdownEmpty(t *testing.T) {
	engine, repo, userID := newTestEngine(t, time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
	// An income alone must not produce a breakdown
	addTx(t, repo, userID, core.NewDate(2025, 1, 1), 5000, core.Income, core.DefaultIncomeCategory)

	breakdown, err := engine.CategoryBreakdown(context.Background(), userID, 2025)
	if err != nil {
		t.Fatalf("CategoryBreakdown: %v", err)
	}
	if len(breakdown) != 0 {
		t.Fatalf("expected empty breakdown, got %d rows", len(breakdown))
	}
}

func TestTrailingTrendEmptyWindow(t *testing.T) {
	engine, _, userID := newTestEngine(t, time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))

	trend, err := engine.TrailingTrend(context.Background(), userID, 6)
	if err != nil {
		t.Fatalf("TrailingTrend: %v", err)
	}
	if trend.TopCategory != "N/A" {
		t.Errorf("TopCategory = %q, want N/A", trend.TopCategory)
	}
	if trend.AvgIncome.Cents != 0 || trend.AvgExpense.Cents != 0 || trend.AvgBalance.Cents != 0 {
		t.Errorf("averages not zero: %+v", trend)
	}
	if trend.WindowMonths != 6 {
		t.Errorf("WindowMonths = %d", trend.WindowMonths)
	}
}

func TestTrailingTrendAverages(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	engine, repo, userID := newTestEngine(t, now)
	ctx := context.Background()

	// Two months with income, three months with expenses, inside the
	// 6-month window [2024-12-15, 2025-06-15].
	addTx(t, repo, userID, core.NewDate(2025, 4, 1), 200000, core.Income, core.DefaultIncomeCategory)
	addTx(t, repo, userID, core.NewDate(2025, 5, 1), 100000, core.Income, core.DefaultIncomeCategory)
	addTx(t, repo, userID, core.NewDate(2025, 3, 10), 30000, core.Expense, "Ocio")
	addTx(t, repo, userID, core.NewDate(2025, 4, 10), 60000, core.Expense, "Vivienda")
	addTx(t, repo, userID, core.NewDate(2025, 5, 10), 30000, core.Expense, "Ocio")
	// Outside the window, must be ignored
	addTx(t, repo, userID, core.NewDate(2024, 11, 1), 999999, core.Expense, "Vivienda")

	trend, err := engine.TrailingTrend(ctx, userID, 6)
	if err != nil {
		t.Fatalf("TrailingTrend: %v", err)
	}

	// avg income = (2000 + 1000) / 2 months with income
	if trend.AvgIncome.Cents != 150000 {
		t.Errorf("AvgIncome = %d, want 150000", trend.AvgIncome.Cents)
	}
	// avg expense = (300 + 600 + 300) / 3 months with expenses
	if trend.AvgExpense.Cents != 40000 {
		t.Errorf("AvgExpense = %d, want 40000", trend.AvgExpense.Cents)
	}
	if trend.AvgBalance.Cents != 110000 {
		t.Errorf("AvgBalance = %d, want 110000", trend.AvgBalance.Cents)
	}
	// Ocio 600 total beats Vivienda 600... both 60000; tie broken by name
	if trend.TopCategory != "Ocio" && trend.TopCategory != "Vivienda" {
		t.Errorf("TopCategory = %q", trend.TopCategory)
	}
	if trend.TopCategoryTotal.Cents != 60000 {
		t.Errorf("TopCategoryTotal = %d, want 60000", trend.TopCategoryTotal.Cents)
	}
}

func TestSavingRate(t *testing.T) {
	cases := []struct {
		name    string
		income  int64
		balance int64
		want    float64
	}{
		{"zero income", 0, 5000, 0},
		{"negative income guard", -100, 50, 0},
		{"typical", 100000, 60000, 60.0},
		{"rounds to one decimal", 300000, 100000, 33.3},
		{"negative balance", 100000, -25000, -25.0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := SavingRate(core.Money{Cents: tc.income}, core.Money{Cents: tc.balance})
			if got != tc.want {
				t.Fatalf("SavingRate = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestTotals(t *testing.T) {
	rows := []MonthRow{
		{Income: core.Money{Cents: 100}, Expense: core.Money{Cents: 40}},
		{Income: core.Money{Cents: 200}, Expense: core.Money{Cents: 360}},
	}
	income, expense, balance := Totals(rows)
	if income.Cents != 300 || expense.Cents != 400 || balance.Cents != -100 {
		t.Fatalf("Totals = %d %d %d", income.Cents, expense.Cents, balance.Cents)
	}
}
