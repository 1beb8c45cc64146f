package ui

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/Gracey0201/tampa-bay-water-quality/internal/catalog"
	"github.com/Gracey0201/tampa-bay-water-quality/internal/delivery"
	"github.com/Gracey0201/tampa-bay-water-quality/internal/notification"
	"github.com/Gracey0201/tampa-bay-water-quality/internal/properties"
)

// RunPipeline handles the UI for one water-quality index pipeline run.
func RunPipeline(cfg *properties.Config) {
	PrintWarning("Scenes are cached under data/assets; the first run over a new window downloads imagery and can take a while.")

	start, end, err := ReadOptionalDateRange(cfg.AOI.StartDate, cfg.AOI.EndDate)
	if err != nil {
		PrintError(err.Error())
		return
	}
	run := *cfg
	run.AOI.StartDate = start
	run.AOI.EndDate = end

	result, err := delivery.RunWQIPipeline(context.Background(), &run)
	if err != nil {
		if errors.Is(err, catalog.ErrNoScenes) {
			PrintWarning(fmt.Sprintf("No qualifying scenes: %s", err.Error()))
			return
		}
		PrintError(fmt.Sprintf("Pipeline failed: %s", err.Error()))
		notification.SendErrorNotification(cfg.Notify,
			fmt.Sprintf("Tampa Bay WQI\n\nPipeline failed: %s", err.Error()))
		return
	}

	PrintSuccess(fmt.Sprintf("Processed %d scenes into %d time steps.", result.Scenes, len(result.Raw.Dates)))
	for name, ferr := range result.Cube.Failed {
		PrintWarning(fmt.Sprintf("Index %s was skipped: %s", name, ferr.Error()))
	}

	fmt.Printf("%s\nSeasonal means:%s\n", ColorGreen, ColorReset)
	for i, label := range result.Seasonal.Labels {
		fmt.Printf("%s  %-7s", ColorGreen, label)
		for _, col := range result.Seasonal.Columns {
			v := result.Seasonal.Values[col][i]
			if math.IsNaN(v) {
				fmt.Printf("  %s=   n/a", col)
			} else {
				fmt.Printf("  %s=%6.3f", col, v)
			}
		}
		fmt.Printf("%s\n", ColorReset)
	}

	if len(result.Anomalies) > 0 {
		fmt.Printf("%s\nAnomalies:%s\n", ColorYellow, ColorReset)
		for _, a := range result.Anomalies {
			fmt.Printf("%s  %s %s=%0.3f (z=%0.1f)%s\n",
				ColorYellow, a.Date.Format("2006-01-02"), a.Column, a.Value, a.Score, ColorReset)
		}
	}

	notification.SendSuccessNotification(cfg.Notify,
		fmt.Sprintf("Tampa Bay WQI\n\nPipeline finished: %d scenes, %d time steps, %d anomalies.",
			result.Scenes, len(result.Raw.Dates), len(result.Anomalies)))
}
