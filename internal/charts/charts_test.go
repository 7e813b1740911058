package charts

import (
	"errors"
	"strings"
	"testing"

	"findata/internal/analysis"
	"findata/internal/core"
	"findata/internal/storage"
)

func monthRows(expenses map[int]int64, balances map[int]int64) []analysis.MonthRow {
	rows := make([]analysis.MonthRow, 12)
	for i := range rows {
		m := i + 1
		rows[i] = analysis.MonthRow{
			Month:   m,
			Label:   analysis.MonthLabels[i],
			Expense: core.Money{Cents: expenses[m]},
			Balance: core.Money{Cents: balances[m]},
		}
	}
	return rows
}

func assertRendered(t *testing.T, c Chart) {
	t.Helper()
	if !c.OK {
		t.Fatalf("chart %q not OK", c.Title)
	}
	if !strings.HasPrefix(c.DataURI, "data:image/png;base64,") {
		t.Fatalf("chart %q has no PNG data URI", c.Title)
	}
	if len(c.DataURI) < 100 {
		t.Fatalf("chart %q data URI suspiciously short (%d bytes)", c.Title, len(c.DataURI))
	}
}

func TestYearComparison(t *testing.T) {
	cur := monthRows(map[int]int64{1: 50000, 2: 30000}, nil)
	prev := monthRows(map[int]int64{1: 45000}, nil)

	c, err := YearComparison(2025, cur, 2024, prev)
	if err != nil {
		t.Fatalf("YearComparison: %v", err)
	}
	assertRendered(t, c)
}

func TestYearComparisonNoData(t *testing.T) {
	empty := monthRows(nil, nil)
	c, err := YearComparison(2025, empty, 2024, empty)
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	if c.OK {
		t.Fatal("chart with no data must be unavailable")
	}
}

func TestBalanceTrend(t *testing.T) {
	rows := monthRows(nil, map[int]int64{1: 10000, 2: -5000, 3: 20000})
	c, err := BalanceTrend(2025, rows)
	if err != nil {
		t.Fatalf("BalanceTrend: %v", err)
	}
	assertRendered(t, c)
}

func TestCategoryHeatmap(t *testing.T) {
	cells := []storage.CategoryMonthTotal{
		{Category: "Ocio", Month: 1, TotalCents: 10000},
		{Category: "Ocio", Month: 3, TotalCents: 5000},
		{Category: "Vivienda", Month: 1, TotalCents: 90000},
	}
	c, err := CategoryHeatmap(2025, cells)
	if err != nil {
		t.Fatalf("CategoryHeatmap: %v", err)
	}
	assertRendered(t, c)
}

func TestCategoryHeatmapNoData(t *testing.T) {
	c, err := CategoryHeatmap(2025, nil)
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	if c.OK {
		t.Fatal("empty heatmap must be unavailable")
	}
}

func TestCategoryGridShape(t *testing.T) {
	cells := []storage.CategoryMonthTotal{
		{Category: "Ocio", Month: 2, TotalCents: 10000},
		{Category: "Vivienda", Month: 5, TotalCents: 90000},
		{Category: "Vivienda", Month: 2, TotalCents: 30000},
	}
	g := newCategoryGrid(cells)

	cols, rowsN := g.Dims()
	if cols != 2 || rowsN != 2 {
		t.Fatalf("Dims = (%d, %d), want (2, 2)", cols, rowsN)
	}
	// Only months 2 and 5 become columns
	if g.months[0] != 2 || g.months[1] != 5 {
		t.Fatalf("months = %v", g.months)
	}
	if got := g.Z(0, 1); got != 300.0 {
		t.Fatalf("Z(0,1) = %v, want 300", got)
	}
	// Absent cell reads as zero
	if got := g.Z(1, 0); got != 0 {
		t.Fatalf("Z(1,0) = %v, want 0", got)
	}
}
