// Package render writes the terminal plot artifacts: index time-series
// charts, annual index maps, and the composite risk map. Everything here is
// an optional side effect of the pipeline, never an input to it.
package render

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"

	"github.com/Gracey0201/tampa-bay-water-quality/internal/aggregate"
)

const (
	chartWidth  = 1200
	chartHeight = 600
	chartMargin = 60.0
)

var seriesColors = [][3]float64{
	{0.12, 0.47, 0.71},
	{1.00, 0.50, 0.05},
	{0.17, 0.63, 0.17},
	{0.84, 0.15, 0.16},
	{0.58, 0.40, 0.74},
	{0.55, 0.34, 0.29},
}

// TimeSeriesChart draws the given table columns as polylines over the
// table's date axis and writes a PNG. Missing observations break the line
// rather than being drawn as zero.
func TimeSeriesChart(path, title string, table *aggregate.Table, columns []string) error {
	if len(table.Dates) == 0 {
		return fmt.Errorf("no rows to chart")
	}
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return err
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, col := range columns {
		for _, v := range table.Values[col] {
			if math.IsNaN(v) {
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if lo > hi {
		return fmt.Errorf("no finite values to chart")
	}
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}

	first, last := table.Dates[0], table.Dates[len(table.Dates)-1]
	span := last.Sub(first).Seconds()
	if span == 0 {
		span = 1
	}

	plotW := float64(chartWidth) - 2*chartMargin
	plotH := float64(chartHeight) - 2*chartMargin
	toX := func(i int) float64 {
		return chartMargin + plotW*table.Dates[i].Sub(first).Seconds()/span
	}
	toY := func(v float64) float64 {
		return chartMargin + plotH*(1-(v-lo)/(hi-lo))
	}

	dc := gg.NewContext(chartWidth, chartHeight)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	// Axes.
	dc.SetRGB(0.2, 0.2, 0.2)
	dc.SetLineWidth(1)
	dc.DrawLine(chartMargin, chartMargin, chartMargin, chartMargin+plotH)
	dc.DrawLine(chartMargin, chartMargin+plotH, chartMargin+plotW, chartMargin+plotH)
	dc.Stroke()
	dc.DrawStringAnchored(title, float64(chartWidth)/2, chartMargin/2, 0.5, 0.5)
	dc.DrawStringAnchored(first.Format("2006-01-02"), chartMargin, chartMargin+plotH+20, 0, 0.5)
	dc.DrawStringAnchored(last.Format("2006-01-02"), chartMargin+plotW, chartMargin+plotH+20, 1, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("%.3f", hi), chartMargin-8, chartMargin, 1, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("%.3f", lo), chartMargin-8, chartMargin+plotH, 1, 0.5)

	for ci, col := range columns {
		c := seriesColors[ci%len(seriesColors)]
		dc.SetRGB(c[0], c[1], c[2])
		dc.SetLineWidth(1.5)
		pen := false
		for i, v := range table.Values[col] {
			if math.IsNaN(v) {
				if pen {
					dc.Stroke()
					pen = false
				}
				continue
			}
			x, y := toX(i), toY(v)
			if !pen {
				dc.MoveTo(x, y)
				pen = true
			} else {
				dc.LineTo(x, y)
			}
		}
		if pen {
			dc.Stroke()
		}
		// Legend.
		lx := chartMargin + plotW - 150
		ly := chartMargin + 16*float64(ci)
		dc.DrawLine(lx, ly, lx+20, ly)
		dc.Stroke()
		dc.DrawStringAnchored(col, lx+26, ly, 0, 0.5)
	}

	return dc.SavePNG(path)
}
