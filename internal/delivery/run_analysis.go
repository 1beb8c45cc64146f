package delivery

import (
	"context"
	"fmt"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/Gracey0201/tampa-bay-water-quality/internal/aggregate"
	"github.com/Gracey0201/tampa-bay-water-quality/internal/analysis"
	"github.com/Gracey0201/tampa-bay-water-quality/internal/log"
	"github.com/Gracey0201/tampa-bay-water-quality/internal/properties"
)

// AnalysisResult joins the index pipeline output with the environmental
// series and carries the derived statistics.
type AnalysisResult struct {
	WQI         *WQIResult
	Environment *EnvironmentResult
	Joined      *aggregate.Table
	Correlation *analysis.Matrix
	// RMSE holds the standardized root-mean-square difference between each
	// index mean column and the sea-surface temperature series.
	RMSE     map[string]float64
	PCA      *analysis.PCAResult
	Seasonal *aggregate.GroupedTable
}

// RunCombinedAnalysis fetches the index series and the environmental series
// concurrently, joins them on a monthly axis, and derives correlations,
// standardized errors, principal components, and the seasonal cycle.
func RunCombinedAnalysis(ctx context.Context, cfg *properties.Config) (*AnalysisResult, error) {
	var (
		wqiResult *WQIResult
		envResult *EnvironmentResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		wqiResult, err = RunWQIPipeline(gctx, cfg)
		return err
	})
	g.Go(func() error {
		var err error
		envResult, err = RunEnvironment(gctx, cfg)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	joined := analysis.JoinMonthly(wqiResult.Raw, envResult.Series)
	result := &AnalysisResult{
		WQI:         wqiResult,
		Environment: envResult,
		Joined:      joined,
		Correlation: analysis.CorrelationMatrix(joined),
		RMSE:        make(map[string]float64),
		Seasonal:    joined.Seasonal(),
	}

	if sst := joined.Column("sst"); sst != nil {
		for _, name := range indexOrder {
			col := name + "_mean"
			if series := joined.Column(col); series != nil {
				result.RMSE[col] = analysis.StandardizedRMSE(series, sst)
			}
		}
	}

	pca, err := analysis.PCA(joined)
	if err != nil {
		log.Warnw("pca skipped", "error", err.Error())
	} else {
		result.PCA = pca
	}

	log.Infow("combined analysis finished",
		"joined_months", len(joined.Dates),
		"columns", len(joined.Columns),
		"environment_series", len(envResult.Series))
	return result, nil
}

// PrintSummary writes a short report of the analysis to the log stream.
func (r *AnalysisResult) PrintSummary() {
	for i, a := range r.Correlation.Columns {
		for j, b := range r.Correlation.Columns {
			if j <= i {
				continue
			}
			log.Infof("correlation %s vs %s: %.3f", a, b, r.Correlation.Values[i][j])
		}
	}
	for col, rmse := range r.RMSE {
		log.Infof("standardized RMSE %s vs sst: %.3f", col, rmse)
	}
	if r.PCA != nil {
		for i, e := range r.PCA.ExplainedVariance {
			log.Infof("principal component %d explains %.1f%% of variance", i+1, 100*e)
		}
	}
}

// ExportJoined writes the joined monthly table next to the index tables.
func (r *AnalysisResult) ExportJoined(out properties.OutputConfig) error {
	path := filepath.Join(resultDir(out), "combined_monthly.csv")
	if err := aggregate.SaveCSV(path, r.Joined.CombinedRows()); err != nil {
		return fmt.Errorf("exporting joined table: %w", err)
	}
	log.Infow("joined table exported", "path", path)
	return nil
}
