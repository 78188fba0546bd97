// Package charts renders summary data as PNG images.
package charts

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
	chart "github.com/wcharczuk/go-chart/v2"

	"spendwise/internal/core"
)

type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

// MonthlySummary renders one bar per month of a monthly summary. Returns
// nil bytes when there is nothing to draw.
func (r *Renderer) MonthlySummary(items []core.MonthlyTotal, currency string) ([]byte, error) {
	if len(items) == 0 {
		return nil, nil
	}

	bars := make([]chart.Value, len(items))
	maxTotal := 0.0
	for i, item := range items {
		total, _ := item.Total.Float64()
		bars[i] = chart.Value{
			Label: item.Month,
			Value: total,
		}
		if total > maxTotal {
			maxTotal = total
		}
	}

	// An explicit range keeps the axis valid when every bar holds the same
	// value; the implicit range would collapse to zero and fail the render.
	yMax := maxTotal * 1.1
	if yMax <= 0 {
		yMax = 1
	}

	graph := chart.BarChart{
		Title:    "Monthly expenses",
		Width:    1024,
		Height:   512,
		BarWidth: 48,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: yMax},
			ValueFormatter: func(v any) string {
				f, ok := v.(float64)
				if !ok {
					return ""
				}
				return core.FormatAmount(decimal.NewFromFloat(f), currency)
			},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render monthly summary chart: %w", err)
	}
	return buf.Bytes(), nil
}
