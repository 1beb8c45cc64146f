package ui

import (
	"context"
	"fmt"
	"math"

	"github.com/Gracey0201/tampa-bay-water-quality/internal/delivery"
	"github.com/Gracey0201/tampa-bay-water-quality/internal/properties"
)

// RunEnvironmentSeries handles the UI for fetching the environmental series
// over the study window.
func RunEnvironmentSeries(cfg *properties.Config) {
	start, end, err := ReadOptionalDateRange(cfg.AOI.StartDate, cfg.AOI.EndDate)
	if err != nil {
		PrintError(err.Error())
		return
	}
	run := *cfg
	run.AOI.StartDate = start
	run.AOI.EndDate = end

	result, err := delivery.RunEnvironment(context.Background(), &run)
	if err != nil {
		PrintError(fmt.Sprintf("Environment fetch failed: %s", err.Error()))
		return
	}
	if len(result.Series) == 0 {
		PrintWarning("No environmental variable could be fetched from any source.")
		return
	}

	for _, series := range result.Series {
		n, sum := 0, 0.0
		for _, v := range series.Values {
			if math.IsNaN(v) {
				continue
			}
			sum += v
			n++
		}
		mean := math.NaN()
		if n > 0 {
			mean = sum / float64(n)
		}
		PrintSuccess(fmt.Sprintf("%s: %d samples from %s to %s, mean %.2f",
			series.Name, len(series.Times),
			series.Times[0].Format("2006-01-02"),
			series.Times[len(series.Times)-1].Format("2006-01-02"),
			mean))
	}
}
