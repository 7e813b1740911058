// Package charts rasterizes aggregated series into embeddable PNG
// images: a year-over-year expense comparison, a monthly balance trend
// and a category-by-month heatmap. Every renderer is best-effort; a
// failure produces an unavailable Chart, never an aborted page.
package charts

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"findata/internal/analysis"
	"findata/internal/storage"
)

// Chart is a rendered artifact. OK distinguishes "unavailable" from a
// chart whose data happens to be all zeros.
type Chart struct {
	Title   string
	DataURI string // data:image/png;base64,...
	OK      bool
}

// ErrNoData marks charts skipped because there is nothing to draw.
var ErrNoData = fmt.Errorf("no data to chart")

// MonthShortLabels holds abbreviated month names for chart axes.
var MonthShortLabels = [12]string{
	"Ene", "Feb", "Mar", "Abr", "May", "Jun",
	"Jul", "Ago", "Sep", "Oct", "Nov", "Dic",
}

var (
	incomeColor  = color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff}
	expenseColor = color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}
	priorColor   = color.RGBA{R: 0x9e, G: 0x9e, B: 0x9e, A: 0xff}
	balanceColor = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	balanceFill  = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0x50}
	zeroLineGray = color.RGBA{R: 0x60, G: 0x60, B: 0x60, A: 0xff}
)

// Unavailable returns the placeholder chart rendered when generation
// fails or is skipped.
func Unavailable(title string) Chart {
	return Chart{Title: title, OK: false}
}

// YearComparison draws a grouped bar chart of monthly expenses for the
// current year against the prior one. Returns ErrNoData when both
// years have no expenses at all.
func YearComparison(currentYear int, current []analysis.MonthRow, priorYear int, prior []analysis.MonthRow) (Chart, error) {
	title := fmt.Sprintf("Gastos mensuales: %d vs %d", currentYear, priorYear)

	cur := expenseValues(current)
	prev := expenseValues(prior)
	if allZero(cur) && allZero(prev) {
		return Unavailable(title), ErrNoData
	}

	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "Gastos"

	barWidth := vg.Points(8)

	prevBars, err := plotter.NewBarChart(prev, barWidth)
	if err != nil {
		return Unavailable(title), fmt.Errorf("prior year bars: %w", err)
	}
	prevBars.Color = priorColor
	prevBars.Offset = -barWidth / 2

	curBars, err := plotter.NewBarChart(cur, barWidth)
	if err != nil {
		return Unavailable(title), fmt.Errorf("current year bars: %w", err)
	}
	curBars.Color = expenseColor
	curBars.Offset = barWidth / 2

	p.Add(prevBars, curBars)
	p.Legend.Add(fmt.Sprintf("%d", priorYear), prevBars)
	p.Legend.Add(fmt.Sprintf("%d", currentYear), curBars)
	p.Legend.Top = true
	p.NominalX(MonthShortLabels[:]...)

	return encode(p, title, 7*vg.Inch, 3.5*vg.Inch)
}

// BalanceTrend draws the monthly balance (income minus expense) across
// the year as a line with the area under it filled and a dashed zero
// reference line.
func BalanceTrend(year int, rows []analysis.MonthRow) (Chart, error) {
	title := fmt.Sprintf("Balance mensual %d", year)
	if len(rows) == 0 {
		return Unavailable(title), ErrNoData
	}

	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "Balance"

	pts := make(plotter.XYs, len(rows))
	for i, r := range rows {
		pts[i].X = float64(r.Month)
		pts[i].Y = r.Balance.Float()
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return Unavailable(title), fmt.Errorf("balance line: %w", err)
	}
	line.Color = balanceColor
	line.Width = vg.Points(2)
	line.FillColor = balanceFill

	zero, err := plotter.NewLine(plotter.XYs{{X: 1, Y: 0}, {X: 12, Y: 0}})
	if err != nil {
		return Unavailable(title), fmt.Errorf("zero line: %w", err)
	}
	zero.Color = zeroLineGray
	zero.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}

	p.Add(zero, line)
	p.X.Min, p.X.Max = 1, 12
	p.X.Tick.Marker = monthTicks()

	return encode(p, title, 7*vg.Inch, 3*vg.Inch)
}

// CategoryHeatmap draws expense totals on a category-by-month grid,
// annotated with the amounts. Only months present in the data become
// columns. Returns ErrNoData for an empty grid.
func CategoryHeatmap(year int, cells []storage.CategoryMonthTotal) (Chart, error) {
	title := fmt.Sprintf("Gastos por categoría y mes %d", year)
	if len(cells) == 0 {
		return Unavailable(title), ErrNoData
	}

	grid := newCategoryGrid(cells)

	p := plot.New()
	p.Title.Text = title

	hm := plotter.NewHeatMap(grid, moreland.SmoothBlueRed().Palette(255))
	p.Add(hm)

	labels, err := grid.annotations()
	if err != nil {
		return Unavailable(title), fmt.Errorf("heatmap labels: %w", err)
	}
	p.Add(labels)

	xTicks := make([]plot.Tick, len(grid.months))
	for i, m := range grid.months {
		xTicks[i] = plot.Tick{Value: float64(i), Label: MonthShortLabels[m-1]}
	}
	yTicks := make([]plot.Tick, len(grid.categories))
	for i, c := range grid.categories {
		yTicks[i] = plot.Tick{Value: float64(i), Label: c}
	}
	p.X.Tick.Marker = plot.ConstantTicks(xTicks)
	p.Y.Tick.Marker = plot.ConstantTicks(yTicks)

	height := vg.Length(1+len(grid.categories)) * 0.45 * vg.Inch
	if height < 2.5*vg.Inch {
		height = 2.5 * vg.Inch
	}
	return encode(p, title, 7*vg.Inch, height)
}

// categoryGrid implements plotter.GridXYZ over the sparse
// category/month cells. Rows are categories, columns the months that
// actually appear in the data.
type categoryGrid struct {
	categories []string
	months     []int
	values     map[gridKey]float64
}

type gridKey struct {
	category string
	month    int
}

func newCategoryGrid(cells []storage.CategoryMonthTotal) *categoryGrid {
	g := &categoryGrid{values: make(map[gridKey]float64)}
	seenCat := make(map[string]bool)
	seenMonth := make(map[int]bool)

	for _, c := range cells {
		if !seenCat[c.Category] {
			seenCat[c.Category] = true
			g.categories = append(g.categories, c.Category)
		}
		if !seenMonth[c.Month] {
			seenMonth[c.Month] = true
		}
		g.values[gridKey{c.Category, c.Month}] = float64(c.TotalCents) / 100.0
	}
	for m := 1; m <= 12; m++ {
		if seenMonth[m] {
			g.months = append(g.months, m)
		}
	}
	return g
}

func (g *categoryGrid) Dims() (c, r int) { return len(g.months), len(g.categories) }
func (g *categoryGrid) X(c int) float64  { return float64(c) }
func (g *categoryGrid) Y(r int) float64  { return float64(r) }

func (g *categoryGrid) Z(c, r int) float64 {
	return g.values[gridKey{g.categories[r], g.months[c]}]
}

func (g *categoryGrid) annotations() (*plotter.Labels, error) {
	var xy plotter.XYs
	var texts []string
	for r, cat := range g.categories {
		for c, m := range g.months {
			v, ok := g.values[gridKey{cat, m}]
			if !ok || v == 0 {
				continue
			}
			xy = append(xy, plotter.XY{X: float64(c), Y: float64(r)})
			texts = append(texts, fmt.Sprintf("%.0f", v))
		}
	}
	return plotter.NewLabels(plotter.XYLabels{XYs: xy, Labels: texts})
}

func monthTicks() plot.ConstantTicks {
	ticks := make([]plot.Tick, 12)
	for i := 0; i < 12; i++ {
		ticks[i] = plot.Tick{Value: float64(i + 1), Label: MonthShortLabels[i]}
	}
	return plot.ConstantTicks(ticks)
}

func expenseValues(rows []analysis.MonthRow) plotter.Values {
	vals := make(plotter.Values, 12)
	for _, r := range rows {
		if r.Month >= 1 && r.Month <= 12 {
			vals[r.Month-1] = r.Expense.Float()
		}
	}
	return vals
}

func allZero(vals plotter.Values) bool {
	for _, v := range vals {
		if v != 0 {
			return false
		}
	}
	return true
}

// encode rasterizes the plot to PNG and wraps it in an inline data URI.
func encode(p *plot.Plot, title string, w, h vg.Length) (Chart, error) {
	writer, err := p.WriterTo(w, h, "png")
	if err != nil {
		return Unavailable(title), fmt.Errorf("render %q: %w", title, err)
	}

	var buf bytes.Buffer
	if _, err := writer.WriteTo(&buf); err != nil {
		return Unavailable(title), fmt.Errorf("encode %q: %w", title, err)
	}

	return Chart{
		Title:   title,
		DataURI: "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
		OK:      true,
	}, nil
}
