package dashboard

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/bobmcallan/tickerboard/internal/models"
)

// ErrNoChartData is returned when a view has nothing to plot.
var ErrNoChartData = errors.New("no data to chart")

// Chart names served by the dashboard.
const (
	ChartPrice           = "price"
	ChartInsiders        = "insiders"
	ChartInsiderPie      = "insider-pie"
	ChartRecommendations = "recommendations"
)

// ChartNames lists every renderable chart.
var ChartNames = []string{ChartPrice, ChartInsiders, ChartInsiderPie, ChartRecommendations}

var (
	priceColor    = drawing.ColorFromHex("FFA500") // orange
	fallbackColor = drawing.ColorFromHex("9CA3AF") // gray-400

	ratingColors = map[string]drawing.Color{
		models.ColStrongBuy:  drawing.ColorFromHex("1A9850"),
		models.ColBuy:        drawing.ColorFromHex("91CF60"),
		models.ColHold:       drawing.ColorFromHex("FEE08B"),
		models.ColSell:       drawing.ColorFromHex("FC8D59"),
		models.ColStrongSell: drawing.ColorFromHex("D73027"),
	}

	ratingAbbrev = map[string]string{
		models.ColStrongBuy:  "SB",
		models.ColBuy:        "B",
		models.ColHold:       "H",
		models.ColSell:       "S",
		models.ColStrongSell: "SS",
	}
)

func transactionColor(txType string) drawing.Color {
	if hex, ok := models.TransactionColors[txType]; ok {
		return drawing.ColorFromHex(strings.TrimPrefix(hex, "#"))
	}
	return fallbackColor
}

// RenderPriceChart renders the price history as a filled area line.
func RenderPriceChart(v *models.TickerView) ([]byte, error) {
	var xs []time.Time
	var ys []float64
	for _, row := range v.Rows {
		d, ok := parseDate(row[models.ColPriceDate])
		if !ok {
			continue
		}
		p, ok := row.Number(models.ColPrice)
		if !ok {
			continue
		}
		xs = append(xs, d)
		ys = append(ys, p)
	}
	if len(xs) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 prices for %s, got %d", ErrNoChartData, v.Symbol, len(xs))
	}

	graph := chart.Chart{
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 20, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("Jan 06")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.2f", f)
				}
				return ""
			},
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name: v.Symbol,
				Style: chart.Style{
					StrokeColor: priceColor,
					StrokeWidth: 2,
					FillColor:   priceColor.WithAlpha(64),
				},
				XValues: xs,
				YValues: ys,
			},
		},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderInsiderChart renders monthly insider activity as bars grouped by
// transaction type. metric picks transaction count or share quantity.
func RenderInsiderChart(v *models.TickerView, metric models.InsiderMetric) ([]byte, error) {
	bars := insiderBars(v, metric.Column())
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: no insider activity for %s", ErrNoChartData, v.Symbol)
	}
	return renderGroupedBars(metric.Label(), 900, bars)
}

// insiderBars totals col per month and transaction type, ordered by month
// then type. Zero totals are dropped.
func insiderBars(v *models.TickerView, col string) []chart.Value {
	type key struct {
		month  string
		txType string
	}
	totals := make(map[key]float64)
	months := make(map[string]time.Time)
	types := make(map[string]bool)
	for _, row := range v.Rows {
		month := row.Text(models.ColFormattedDate)
		t, err := time.Parse("01-2006", month)
		if err != nil {
			continue
		}
		n, ok := row.Number(col)
		if !ok {
			continue
		}
		txType := row.Text(models.ColTransactionType)
		totals[key{month, txType}] += n
		months[month] = t
		types[txType] = true
	}

	monthOrder := make([]string, 0, len(months))
	for m := range months {
		monthOrder = append(monthOrder, m)
	}
	sort.Slice(monthOrder, func(i, j int) bool { return months[monthOrder[i]].Before(months[monthOrder[j]]) })

	typeOrder := make([]string, 0, len(types))
	for t := range types {
		typeOrder = append(typeOrder, t)
	}
	sort.Strings(typeOrder)

	var bars []chart.Value
	for _, m := range monthOrder {
		for _, txType := range typeOrder {
			total := totals[key{m, txType}]
			if total <= 0 {
				continue
			}
			label := months[m].Format("Jan 06")
			if r, size := utf8.DecodeRuneInString(txType); size > 0 {
				label += " " + string(r)
			}
			bars = append(bars, chart.Value{
				Label: label,
				Value: total,
				Style: chart.Style{
					FillColor:   transactionColor(txType),
					StrokeColor: transactionColor(txType),
				},
			})
		}
	}
	return bars
}

// renderGroupedBars draws bars at their absolute heights from a zero baseline.
func renderGroupedBars(title string, width int, bars []chart.Value) ([]byte, error) {
	var peak float64
	for _, b := range bars {
		if b.Value > peak {
			peak = b.Value
		}
	}

	graph := chart.BarChart{
		Title:    title,
		Width:    width,
		Height:   350,
		BarWidth: 24,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: peak},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderInsiderPie renders the buy vs. sell split from the pie view.
func RenderInsiderPie(p *models.PieView) ([]byte, error) {
	var values []chart.Value
	for _, row := range p.View.Rows {
		n, ok := row.Number(models.ColCount)
		if !ok || n <= 0 {
			continue
		}
		txType := row.Text(models.ColTransactionType)
		values = append(values, chart.Value{
			Label: txType,
			Value: n,
			Style: chart.Style{FillColor: transactionColor(txType)},
		})
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: no insider transactions for %s", ErrNoChartData, p.View.Symbol)
	}

	graph := chart.PieChart{
		Title:  p.Title,
		Width:  350,
		Height: 350,
		Values: values,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderRecommendationChart renders the five rating counts of each period
// as grouped bars, periods in view order.
func RenderRecommendationChart(v *models.TickerView, title string) ([]byte, error) {
	bars := recommendationBars(v)
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: no recommendations for %s", ErrNoChartData, v.Symbol)
	}
	return renderGroupedBars(title, 1000, bars)
}

// recommendationBars yields one bar per period and rating column with the
// count as its value. Zero counts are dropped.
func recommendationBars(v *models.TickerView) []chart.Value {
	var bars []chart.Value
	for _, row := range v.Rows {
		period := row.Text(models.ColPeriod)
		for _, col := range models.RatingColumns {
			n, ok := row.Number(col)
			if !ok || n <= 0 {
				continue
			}
			bars = append(bars, chart.Value{
				Label: period + " " + ratingAbbrev[col],
				Value: n,
				Style: chart.Style{FillColor: ratingColors[col], StrokeColor: ratingColors[col]},
			})
		}
	}
	return bars
}

// parseDate accepts warehouse dates as time values or common text layouts.
func parseDate(v any) (time.Time, bool) {
	switch d := v.(type) {
	case time.Time:
		return d, !d.IsZero()
	case string:
		for _, layout := range []string{"2006-01-02", "2006-01-02 15:04:05", time.RFC3339} {
			if t, err := time.Parse(layout, d); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}
