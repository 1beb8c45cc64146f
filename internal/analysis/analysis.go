// Package analysis joins index series with environmental series and
// produces the study's descriptive statistics: correlations, standardized
// error, principal components, and seasonal cycles.
package analysis

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/Gracey0201/tampa-bay-water-quality/internal/aggregate"
	"github.com/Gracey0201/tampa-bay-water-quality/internal/environment"
)

// monthStart floors a timestamp to the first day of its month.
func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// JoinMonthly resamples the index table to monthly means and joins the
// environmental series onto the same month axis. The result keeps every
// month the index table observed; environmental months without data are
// NaN.
func JoinMonthly(indexes *aggregate.Table, env []*environment.Series) *aggregate.Table {
	type bucket struct {
		sum   float64
		count int
	}

	monthSet := make(map[time.Time]bool)
	indexBuckets := make(map[string]map[time.Time]*bucket, len(indexes.Columns))
	for _, col := range indexes.Columns {
		indexBuckets[col] = make(map[time.Time]*bucket)
	}
	for i, d := range indexes.Dates {
		m := monthStart(d)
		monthSet[m] = true
		for _, col := range indexes.Columns {
			v := indexes.Values[col][i]
			if math.IsNaN(v) {
				continue
			}
			b, ok := indexBuckets[col][m]
			if !ok {
				b = &bucket{}
				indexBuckets[col][m] = b
			}
			b.sum += v
			b.count++
		}
	}

	months := make([]time.Time, 0, len(monthSet))
	for m := range monthSet {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	columns := append([]string{}, indexes.Columns...)
	for _, s := range env {
		columns = append(columns, s.Name)
	}
	out := aggregate.NewTable(months, columns)

	for _, col := range indexes.Columns {
		for i, m := range months {
			if b, ok := indexBuckets[col][m]; ok {
				out.Values[col][i] = b.sum / float64(b.count)
			}
		}
	}
	for _, s := range env {
		monthly := environment.MonthlyMean(s)
		byMonth := make(map[time.Time]float64, len(monthly.Times))
		for i, t := range monthly.Times {
			byMonth[monthStart(t)] = monthly.Values[i]
		}
		for i, m := range months {
			if v, ok := byMonth[m]; ok {
				out.Values[s.Name][i] = v
			}
		}
	}
	return out
}

// pairwiseComplete extracts the rows where both series are observed.
func pairwiseComplete(x, y []float64) ([]float64, []float64) {
	var xs, ys []float64
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	return xs, ys
}

// Pearson is the pairwise-complete Pearson correlation of two equal-length
// series. Fewer than two shared observations yields NaN.
func Pearson(x, y []float64) float64 {
	xs, ys := pairwiseComplete(x, y)
	if len(xs) < 2 {
		return math.NaN()
	}
	return stat.Correlation(xs, ys, nil)
}

// Matrix is a labeled square matrix of pairwise statistics.
type Matrix struct {
	Columns []string
	Values  [][]float64
}

// CorrelationMatrix computes the pairwise-complete Pearson correlation of
// every column pair.
func CorrelationMatrix(t *aggregate.Table) *Matrix {
	n := len(t.Columns)
	m := &Matrix{Columns: t.Columns, Values: make([][]float64, n)}
	for i := range m.Values {
		m.Values[i] = make([]float64, n)
		for j := range m.Values[i] {
			if i == j {
				m.Values[i][j] = 1
				continue
			}
			m.Values[i][j] = Pearson(t.Values[t.Columns[i]], t.Values[t.Columns[j]])
		}
	}
	return m
}

// standardize z-scores a series in place over its finite entries.
func standardize(vs []float64) []float64 {
	obs := make([]float64, 0, len(vs))
	for _, v := range vs {
		if !math.IsNaN(v) {
			obs = append(obs, v)
		}
	}
	out := make([]float64, len(vs))
	if len(obs) < 2 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	mean, std := stat.MeanStdDev(obs, nil)
	for i, v := range vs {
		if math.IsNaN(v) || std == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = (v - mean) / std
	}
	return out
}

// StandardizedRMSE is the root-mean-square difference between the z-scored
// versions of two series, over their shared observations. It compares the
// shapes of series with different physical units.
func StandardizedRMSE(x, y []float64) float64 {
	xs, ys := pairwiseComplete(standardize(x), standardize(y))
	if len(xs) == 0 {
		return math.NaN()
	}
	var sum float64
	for i := range xs {
		d := xs[i] - ys[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)))
}

// PCAResult holds component loadings (columns of the vector matrix) and the
// fraction of variance each component explains.
type PCAResult struct {
	Columns           []string
	Loadings          *mat.Dense
	ExplainedVariance []float64
}

// PCA runs a principal-component analysis over the standardized,
// complete-case rows of the table. Rows with any missing column are
// dropped; at least two complete rows are required.
func PCA(t *aggregate.Table) (*PCAResult, error) {
	cols := t.Columns
	standardized := make(map[string][]float64, len(cols))
	for _, col := range cols {
		standardized[col] = standardize(t.Values[col])
	}

	var rows [][]float64
	for i := range t.Dates {
		row := make([]float64, len(cols))
		complete := true
		for j, col := range cols {
			v := standardized[col][i]
			if math.IsNaN(v) {
				complete = false
				break
			}
			row[j] = v
		}
		if complete {
			rows = append(rows, row)
		}
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("pca needs at least 2 complete rows, got %d", len(rows))
	}

	data := mat.NewDense(len(rows), len(cols), nil)
	for i, row := range rows {
		data.SetRow(i, row)
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(data, nil); !ok {
		return nil, fmt.Errorf("pca decomposition failed")
	}

	var vectors mat.Dense
	pc.VectorsTo(&vectors)
	vars := pc.VarsTo(nil)

	var total float64
	for _, v := range vars {
		total += v
	}
	explained := make([]float64, len(vars))
	for i, v := range vars {
		explained[i] = v / total
	}

	return &PCAResult{
		Columns:           cols,
		Loadings:          &vectors,
		ExplainedVariance: explained,
	}, nil
}
