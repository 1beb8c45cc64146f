package ui

import (
	"context"
	"fmt"
	"math"

	"github.com/Gracey0201/tampa-bay-water-quality/internal/delivery"
	"github.com/Gracey0201/tampa-bay-water-quality/internal/notification"
	"github.com/Gracey0201/tampa-bay-water-quality/internal/properties"
)

// RunAnalysis handles the UI for the combined index and environment
// analysis.
func RunAnalysis(cfg *properties.Config) {
	PrintWarning("This runs the index pipeline and the environmental fetch concurrently; both windows come from the configuration.")

	result, err := delivery.RunCombinedAnalysis(context.Background(), cfg)
	if err != nil {
		PrintError(fmt.Sprintf("Analysis failed: %s", err.Error()))
		notification.SendErrorNotification(cfg.Notify,
			fmt.Sprintf("Tampa Bay WQI\n\nCombined analysis failed: %s", err.Error()))
		return
	}

	PrintSuccess(fmt.Sprintf("Joined %d months across %d columns.",
		len(result.Joined.Dates), len(result.Joined.Columns)))

	fmt.Printf("%s\nCorrelations:%s\n", ColorGreen, ColorReset)
	cols := result.Correlation.Columns
	for i := range cols {
		for j := i + 1; j < len(cols); j++ {
			v := result.Correlation.Values[i][j]
			if math.IsNaN(v) {
				continue
			}
			fmt.Printf("%s  %s vs %s: %+.3f%s\n", ColorGreen, cols[i], cols[j], v, ColorReset)
		}
	}

	if len(result.RMSE) > 0 {
		fmt.Printf("%s\nStandardized RMSE against SST:%s\n", ColorGreen, ColorReset)
		for col, rmse := range result.RMSE {
			fmt.Printf("%s  %s: %.3f%s\n", ColorGreen, col, rmse, ColorReset)
		}
	}

	if result.PCA != nil {
		fmt.Printf("%s\nPrincipal components:%s\n", ColorGreen, ColorReset)
		for i, e := range result.PCA.ExplainedVariance {
			fmt.Printf("%s  PC%d explains %.1f%% of variance%s\n", ColorGreen, i+1, 100*e, ColorReset)
		}
	}

	if cfg.Output.ExportCSV {
		if err := result.ExportJoined(cfg.Output); err != nil {
			PrintError(err.Error())
			return
		}
	}

	notification.SendSuccessNotification(cfg.Notify,
		fmt.Sprintf("Tampa Bay WQI\n\nCombined analysis finished: %d joined months, %d environmental series.",
			len(result.Joined.Dates), len(result.Environment.Series)))
}
