// Package aggregate reduces index cubes to dated time series and derives
// smoothed, monthly, seasonal, and anomaly views from them.
package aggregate

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/Gracey0201/tampa-bay-water-quality/internal/wqi"
)

// Table is a dated series with one or more named value columns. Missing
// observations are NaN.
type Table struct {
	Dates   []time.Time
	Columns []string
	Values  map[string][]float64
}

// NewTable allocates a table with every column filled with NaN.
func NewTable(dates []time.Time, columns []string) *Table {
	t := &Table{
		Dates:   dates,
		Columns: columns,
		Values:  make(map[string][]float64, len(columns)),
	}
	for _, col := range columns {
		vals := make([]float64, len(dates))
		for i := range vals {
			vals[i] = math.NaN()
		}
		t.Values[col] = vals
	}
	return t
}

// Column returns the series for col, or nil when absent.
func (t *Table) Column(col string) []float64 {
	return t.Values[col]
}

// finite copies the non-NaN entries of vs.
func finite(vs []float64) []float64 {
	out := make([]float64, 0, len(vs))
	for _, v := range vs {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// Mean is the NaN-excluded arithmetic mean. All-NaN input yields NaN.
func Mean(vs []float64) float64 {
	obs := finite(vs)
	if len(obs) == 0 {
		return math.NaN()
	}
	return stat.Mean(obs, nil)
}

// median of a sorted, finite sample: the middle element, or the mean of the
// two middle elements for even counts.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Median is the NaN-excluded sample median. All-NaN input yields NaN.
func Median(vs []float64) float64 {
	obs := finite(vs)
	sort.Float64s(obs)
	return median(obs)
}

// SpatialMean reduces a grid to its NaN-excluded mean.
func SpatialMean(g [][]float64) float64 {
	var obs []float64
	for _, row := range g {
		for _, v := range row {
			if !math.IsNaN(v) {
				obs = append(obs, v)
			}
		}
	}
	if len(obs) == 0 {
		return math.NaN()
	}
	return stat.Mean(obs, nil)
}

// SpatialMedian reduces a grid to its NaN-excluded median.
func SpatialMedian(g [][]float64) float64 {
	var obs []float64
	for _, row := range g {
		for _, v := range row {
			if !math.IsNaN(v) {
				obs = append(obs, v)
			}
		}
	}
	sort.Float64s(obs)
	return median(obs)
}

// Reduce collapses each spatial index array in the cube to its mean and
// median, producing a dated table with {index}_mean and {index}_median
// columns. Indices are emitted in the given order; names the cube does not
// carry are skipped.
func Reduce(cube *wqi.Cube, order []string) *Table {
	var columns []string
	for _, name := range order {
		if _, ok := cube.Grids[name]; ok {
			columns = append(columns, name+"_mean", name+"_median")
		}
	}
	t := NewTable(cube.Times, columns)
	for _, name := range order {
		grids, ok := cube.Grids[name]
		if !ok {
			continue
		}
		for i, g := range grids {
			t.Values[name+"_mean"][i] = SpatialMean(g)
			t.Values[name+"_median"][i] = SpatialMedian(g)
		}
	}
	return t
}

// Rolling smooths a series with a window mean that skips NaN and needs a
// single observation, so a short tail near the series edges still produces
// a value. A window with no observations at all stays NaN.
func Rolling(vs []float64, window int, centered bool) []float64 {
	if window <= 1 {
		out := make([]float64, len(vs))
		copy(out, vs)
		return out
	}
	out := make([]float64, len(vs))
	for i := range vs {
		lo, hi := i-window+1, i
		if centered {
			half := window / 2
			lo, hi = i-half, i-half+window-1
		}
		if lo < 0 {
			lo = 0
		}
		if hi > len(vs)-1 {
			hi = len(vs) - 1
		}
		out[i] = Mean(vs[lo : hi+1])
	}
	return out
}

// Smooth returns a new table with every column smoothed by Rolling. The
// input table is left untouched.
func (t *Table) Smooth(window int, centered bool) *Table {
	out := NewTable(t.Dates, t.Columns)
	for _, col := range t.Columns {
		out.Values[col] = Rolling(t.Values[col], window, centered)
	}
	return out
}

// GroupedTable is a labeled aggregate view, one row per calendar group.
type GroupedTable struct {
	Labels  []string
	Columns []string
	Values  map[string][]float64
}

var monthLabels = []string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

// Monthly averages every column into twelve calendar-month buckets. Months
// with no observations stay NaN.
func (t *Table) Monthly() *GroupedTable {
	return t.groupBy(monthLabels, func(d time.Time) int {
		return int(d.Month()) - 1
	})
}

var seasonLabels = []string{"Winter", "Spring", "Summer", "Fall"}

// seasonIndex maps a month to its meteorological season, December through
// February counting as winter.
func seasonIndex(m time.Month) int {
	switch m {
	case time.December, time.January, time.February:
		return 0
	case time.March, time.April, time.May:
		return 1
	case time.June, time.July, time.August:
		return 2
	default:
		return 3
	}
}

// Seasonal averages every column into the four meteorological seasons, in
// fixed Winter, Spring, Summer, Fall order.
func (t *Table) Seasonal() *GroupedTable {
	return t.groupBy(seasonLabels, func(d time.Time) int {
		return seasonIndex(d.Month())
	})
}

func (t *Table) groupBy(labels []string, bucket func(time.Time) int) *GroupedTable {
	out := &GroupedTable{
		Labels:  labels,
		Columns: t.Columns,
		Values:  make(map[string][]float64, len(t.Columns)),
	}
	groups := make([][]int, len(labels))
	for i, d := range t.Dates {
		b := bucket(d)
		groups[b] = append(groups[b], i)
	}
	for _, col := range t.Columns {
		vals := make([]float64, len(labels))
		for b, rows := range groups {
			obs := make([]float64, 0, len(rows))
			for _, i := range rows {
				obs = append(obs, t.Values[col][i])
			}
			vals[b] = Mean(obs)
		}
		out.Values[col] = vals
	}
	return out
}

// Anomaly is a single observation whose z-score exceeds the detection
// threshold.
type Anomaly struct {
	Date   time.Time
	Column string
	Value  float64
	Score  float64
}

// Anomalies flags observations more than threshold sample standard
// deviations from their column mean. Scores come from the raw series, so
// smoothing never hides or invents an outlier. NaN observations are
// excluded from both the statistics and the flags.
func (t *Table) Anomalies(threshold float64) []Anomaly {
	var out []Anomaly
	for _, col := range t.Columns {
		obs := finite(t.Values[col])
		if len(obs) < 2 {
			continue
		}
		mean, std := stat.MeanStdDev(obs, nil)
		if std == 0 || math.IsNaN(std) {
			continue
		}
		for i, v := range t.Values[col] {
			if math.IsNaN(v) {
				continue
			}
			z := (v - mean) / std
			if math.Abs(z) > threshold {
				out = append(out, Anomaly{Date: t.Dates[i], Column: col, Value: v, Score: z})
			}
		}
	}
	return out
}
