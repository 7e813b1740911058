package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"findata/internal/analysis"
	"findata/internal/charts"
	applog "findata/internal/log"
)

type dashboardPage struct {
	pageData
	Year           int
	TotalIncome    string
	TotalExpense   string
	Balance        string
	SavingRate     float64
	PriorYear      int
	PriorRate      float64
	RateDelta      float64
	Months         []analysis.MonthRow
	Categories     []analysis.CategoryRow
	Trend          analysis.Trend
	HasTransaction bool
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	ctx := r.Context()
	logger := applog.FromContext(ctx)
	year := time.Now().Year()

	months, err := s.engine.MonthlySummary(ctx, user.ID, year)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to build monthly summary", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	income, expense, balance := analysis.Totals(months)

	priorMonths, err := s.engine.MonthlySummary(ctx, user.ID, year-1)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to build prior-year summary", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	priorIncome, _, priorBalance := analysis.Totals(priorMonths)

	breakdown, err := s.engine.CategoryBreakdown(ctx, user.ID, year)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to build category breakdown", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	trend, err := s.engine.TrailingTrend(ctx, user.ID, 6)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to build trailing trend", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	rate := analysis.SavingRate(income, balance)
	priorRate := analysis.SavingRate(priorIncome, priorBalance)

	count, err := s.store.CountTransactions(ctx, user.ID)
	if err != nil {
		count = 0
	}

	page := dashboardPage{
		pageData:       s.basePage(r, "Resumen"),
		Year:           year,
		TotalIncome:    income.Format(),
		TotalExpense:   expense.Format(),
		Balance:        balance.Format(),
		SavingRate:     rate,
		PriorYear:      year - 1,
		PriorRate:      priorRate,
		RateDelta:      rate - priorRate,
		Months:         months,
		Categories:     breakdown,
		Trend:          trend,
		HasTransaction: count > 0,
	}
	page.Flash = s.popFlash(w, r)
	s.render(w, r, "dashboard.html", page)
}

type analyticsPage struct {
	pageData
	Year       int
	Years      []int
	Months     []analysis.MonthRow
	Categories []analysis.CategoryRow
	Trend      analysis.Trend
	Comparison charts.Chart
	TrendChart charts.Chart
	Heatmap    charts.Chart
}

type chartSet struct {
	Comparison charts.Chart
	Trend      charts.Chart
	Heatmap    charts.Chart
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	year := time.Now().Year()
	if raw := r.URL.Query().Get("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1970 || parsed > 9999 {
			http.Error(w, fmt.Sprintf("invalid year %q", raw), http.StatusBadRequest)
			return
		}
		year = parsed
	}

	months, err := s.engine.MonthlySummary(ctx, user.ID, year)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to build monthly summary", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	breakdown, err := s.engine.CategoryBreakdown(ctx, user.ID, year)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to build category breakdown", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	trend, err := s.engine.TrailingTrend(ctx, user.ID, 6)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to build trailing trend", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	set := s.chartsFor(r, user.ID, year, months)

	page := analyticsPage{
		pageData:   s.basePage(r, "Análisis"),
		Year:       year,
		Years:      yearOptions(year),
		Months:     months,
		Categories: breakdown,
		Trend:      trend,
		Comparison: set.Comparison,
		TrendChart: set.Trend,
		Heatmap:    set.Heatmap,
	}
	page.Flash = s.popFlash(w, r)
	s.render(w, r, "analytics.html", page)
}

// chartsFor renders the three analytics charts, caching the result
// per user and year. A chart that fails or has no data degrades to
// its unavailable placeholder; the page always renders.
func (s *Server) chartsFor(r *http.Request, userID int64, year int, months []analysis.MonthRow) chartSet {
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	key := userCachePrefix(userID) + strconv.Itoa(year)
	if cached, ok := s.chartCache.get(key); ok {
		return cached
	}

	var set chartSet

	prior, err := s.engine.MonthlySummary(ctx, userID, year-1)
	if err != nil {
		logger.WarnContext(ctx, "Failed to load prior year for comparison chart", "error", err)
		prior = nil
	}
	set.Comparison, err = charts.YearComparison(year, months, year-1, prior)
	if err != nil {
		if !errors.Is(err, charts.ErrNoData) {
			logger.WarnContext(ctx, "Failed to render comparison chart",
				applog.FieldChart, "comparison", "error", err)
		}
		set.Comparison = charts.Unavailable(fmt.Sprintf("Gastos %d vs %d", year, year-1))
	}

	set.Trend, err = charts.BalanceTrend(year, months)
	if err != nil {
		if !errors.Is(err, charts.ErrNoData) {
			logger.WarnContext(ctx, "Failed to render balance trend chart",
				applog.FieldChart, "trend", "error", err)
		}
		set.Trend = charts.Unavailable(fmt.Sprintf("Balance mensual %d", year))
	}

	cells, err := s.store.CategoryMonthTotals(ctx, userID, year)
	if err != nil {
		logger.WarnContext(ctx, "Failed to load heatmap cells", "error", err)
		cells = nil
	}
	set.Heatmap, err = charts.CategoryHeatmap(year, cells)
	if err != nil {
		if !errors.Is(err, charts.ErrNoData) {
			logger.WarnContext(ctx, "Failed to render heatmap",
				applog.FieldChart, "heatmap", "error", err)
		}
		set.Heatmap = charts.Unavailable(fmt.Sprintf("Gastos por categoría %d", year))
	}

	s.chartCache.set(key, set)
	return set
}

// yearOptions lists the selectable years, newest first.
func yearOptions(selected int) []int {
	current := time.Now().Year()
	first := current - 5
	if selected < first {
		first = selected
	}
	last := current
	if selected > last {
		last = selected
	}
	years := make([]int, 0, last-first+1)
	for y := last; y >= first; y-- {
		years = append(years, y)
	}
	return years
}
