package aggregate

import (
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
)

// IndexRow is one dated export row of the index table.
type IndexRow struct {
	Date       string  `csv:"date"`
	NDWIMean   float64 `csv:"ndwi_mean"`
	NDWIMedian float64 `csv:"ndwi_median"`
	NDTIMean   float64 `csv:"ndti_mean"`
	NDTIMedian float64 `csv:"ndti_median"`
	NDCIMean   float64 `csv:"ndci_mean"`
	NDCIMedian float64 `csv:"ndci_median"`
}

// GroupRow is one export row of a monthly or seasonal view.
type GroupRow struct {
	Period     string  `csv:"period"`
	NDWIMean   float64 `csv:"ndwi_mean"`
	NDWIMedian float64 `csv:"ndwi_median"`
	NDTIMean   float64 `csv:"ndti_mean"`
	NDTIMedian float64 `csv:"ndti_median"`
	NDCIMean   float64 `csv:"ndci_mean"`
	NDCIMedian float64 `csv:"ndci_median"`
}

// CombinedRow is one export row of the monthly index and environment join.
type CombinedRow struct {
	Date          string  `csv:"date"`
	NDWIMean      float64 `csv:"ndwi_mean"`
	NDTIMean      float64 `csv:"ndti_mean"`
	NDCIMean      float64 `csv:"ndci_mean"`
	SST           float64 `csv:"sst"`
	Precipitation float64 `csv:"precip"`
	Temperature   float64 `csv:"temperature"`
}

// AnomalyRow is one export row of the anomaly report.
type AnomalyRow struct {
	Date   string  `csv:"date"`
	Column string  `csv:"column"`
	Value  float64 `csv:"value"`
	Score  float64 `csv:"z_score"`
}

func (t *Table) at(col string, i int) float64 {
	vals, ok := t.Values[col]
	if !ok {
		return math.NaN()
	}
	return vals[i]
}

// IndexRows maps the table onto export rows. Columns the table does not
// carry come out as NaN.
func (t *Table) IndexRows() []*IndexRow {
	rows := make([]*IndexRow, len(t.Dates))
	for i, d := range t.Dates {
		rows[i] = &IndexRow{
			Date:       d.Format(time.DateOnly),
			NDWIMean:   t.at("ndwi_mean", i),
			NDWIMedian: t.at("ndwi_median", i),
			NDTIMean:   t.at("ndti_mean", i),
			NDTIMedian: t.at("ndti_median", i),
			NDCIMean:   t.at("ndci_mean", i),
			NDCIMedian: t.at("ndci_median", i),
		}
	}
	return rows
}

// CombinedRows maps a joined monthly table onto export rows.
func (t *Table) CombinedRows() []*CombinedRow {
	rows := make([]*CombinedRow, len(t.Dates))
	for i, d := range t.Dates {
		rows[i] = &CombinedRow{
			Date:          d.Format(time.DateOnly),
			NDWIMean:      t.at("ndwi_mean", i),
			NDTIMean:      t.at("ndti_mean", i),
			NDCIMean:      t.at("ndci_mean", i),
			SST:           t.at("sst", i),
			Precipitation: t.at("precip", i),
			Temperature:   t.at("temperature", i),
		}
	}
	return rows
}

func (g *GroupedTable) at(col string, i int) float64 {
	vals, ok := g.Values[col]
	if !ok {
		return math.NaN()
	}
	return vals[i]
}

// Rows maps a grouped view onto export rows.
func (g *GroupedTable) Rows() []*GroupRow {
	rows := make([]*GroupRow, len(g.Labels))
	for i, label := range g.Labels {
		rows[i] = &GroupRow{
			Period:     label,
			NDWIMean:   g.at("ndwi_mean", i),
			NDWIMedian: g.at("ndwi_median", i),
			NDTIMean:   g.at("ndti_mean", i),
			NDTIMedian: g.at("ndti_median", i),
			NDCIMean:   g.at("ndci_mean", i),
			NDCIMedian: g.at("ndci_median", i),
		}
	}
	return rows
}

// AnomalyRows maps detected anomalies onto export rows.
func AnomalyRows(anomalies []Anomaly) []*AnomalyRow {
	rows := make([]*AnomalyRow, len(anomalies))
	for i, a := range anomalies {
		rows[i] = &AnomalyRow{
			Date:   a.Date.Format(time.DateOnly),
			Column: a.Column,
			Value:  a.Value,
			Score:  a.Score,
		}
	}
	return rows
}

// SaveCSV writes rows to path, creating parent directories as needed.
func SaveCSV(path string, rows interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return gocsv.MarshalFile(rows, file)
}
