// Package delivery orchestrates the pipeline runs the CLI exposes: the
// index pipeline, the environmental series fetch, and the combined
// analysis.
package delivery

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/Gracey0201/tampa-bay-water-quality/internal/aggregate"
	"github.com/Gracey0201/tampa-bay-water-quality/internal/catalog"
	"github.com/Gracey0201/tampa-bay-water-quality/internal/log"
	"github.com/Gracey0201/tampa-bay-water-quality/internal/properties"
	"github.com/Gracey0201/tampa-bay-water-quality/internal/raster"
	"github.com/Gracey0201/tampa-bay-water-quality/internal/render"
	"github.com/Gracey0201/tampa-bay-water-quality/internal/wqi"
)

// indexOrder fixes the column order of every exported table.
var indexOrder = []string{"ndwi", "ndti", "ndci"}

// Turbidity and chlorophyll levels above these index values are counted as
// risk in the composite map.
var riskThresholds = map[string]float64{
	"ndti": 0.0,
	"ndci": 0.1,
}

// WQIResult is everything one index pipeline run produces.
type WQIResult struct {
	Scenes    int
	Cube      *wqi.Cube
	Raw       *aggregate.Table
	Smoothed  *aggregate.Table
	Monthly   *aggregate.GroupedTable
	Seasonal  *aggregate.GroupedTable
	Anomalies []aggregate.Anomaly
}

func newCatalogClient(cfg properties.CatalogConfig) *catalog.Client {
	opts := []catalog.Option{catalog.WithRetries(cfg.Retries)}
	if cfg.ClientID != "" {
		opts = append(opts, catalog.WithOAuth(cfg.ClientID, cfg.ClientSecret, cfg.TokenURL))
	}
	return catalog.NewClient(cfg.URL, opts...)
}

func parseWindow(aoi properties.AOIConfig) (time.Time, time.Time, error) {
	start, err := time.Parse(time.DateOnly, aoi.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start date %q: %w", aoi.StartDate, err)
	}
	end, err := time.Parse(time.DateOnly, aoi.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end date %q: %w", aoi.EndDate, err)
	}
	return start, end, nil
}

// RunWQIPipeline executes the full index pipeline: catalog query, cloud
// filter, band materialization, index computation, and temporal
// aggregation. Optional CSV and PNG artifacts are written when configured.
func RunWQIPipeline(ctx context.Context, cfg *properties.Config) (*WQIResult, error) {
	start, end, err := parseWindow(cfg.AOI)
	if err != nil {
		return nil, err
	}
	bbox := cfg.AOI.BBox()

	client := newCatalogClient(cfg.Catalog)
	scenes, err := client.Search(ctx, catalog.SearchRequest{
		Collection: cfg.Catalog.Collection,
		BBox:       bbox,
		Start:      start,
		End:        end,
		MaxItems:   cfg.Catalog.MaxItems,
	})
	if err != nil {
		return nil, fmt.Errorf("catalog search: %w", err)
	}

	found := len(scenes)
	scenes = catalog.FilterByCloudCover(scenes, cfg.Index.MaxCloudCover)
	log.Infow("scenes filtered by cloud cover",
		"found", found,
		"kept", len(scenes),
		"max_cloud_pct", cfg.Index.MaxCloudCover)
	if len(scenes) == 0 {
		return nil, fmt.Errorf("%w: %d scenes found, none below %.0f%% cloud cover",
			catalog.ErrNoScenes, found, cfg.Index.MaxCloudCover)
	}

	defs := wqi.Definitions(cfg.Index.RedEdgeAsset)
	bands := wqi.RequiredBands(defs, cfg.Index.FilterClouds)

	loader := raster.NewLoader(bands, bbox, cfg.AOI.EPSG, cfg.Index.Resolution)
	stack, err := loader.Load(ctx, scenes)
	if err != nil {
		return nil, fmt.Errorf("materializing band stack: %w", err)
	}

	cube, err := wqi.Compute(stack, defs, wqi.Options{
		FilterClouds:  cfg.Index.FilterClouds,
		Policy:        wqi.MaskPolicy(cfg.Index.MaskPolicy),
		MosaicSameDay: cfg.Index.MosaicSameDay,
	})
	if err != nil {
		return nil, fmt.Errorf("computing indices: %w", err)
	}

	raw := aggregate.Reduce(cube, indexOrder)
	result := &WQIResult{
		Scenes:    len(scenes),
		Cube:      cube,
		Raw:       raw,
		Smoothed:  raw.Smooth(cfg.Aggregation.RollingWindow, cfg.Aggregation.RollingCentered),
		Monthly:   raw.Monthly(),
		Seasonal:  raw.Seasonal(),
		Anomalies: raw.Anomalies(cfg.Aggregation.AnomalyThreshold),
	}
	log.Infow("index pipeline finished",
		"time_steps", len(raw.Dates),
		"indices", len(cube.Grids),
		"anomalies", len(result.Anomalies))

	if cfg.Output.ExportCSV {
		if err := exportTables(cfg.Output, result); err != nil {
			return nil, fmt.Errorf("exporting tables: %w", err)
		}
	}
	if cfg.Output.RenderPNG {
		if err := renderArtifacts(cfg.Output, result); err != nil {
			return nil, fmt.Errorf("rendering artifacts: %w", err)
		}
	}
	return result, nil
}

func resultDir(out properties.OutputConfig) string {
	return filepath.Join(properties.RootPath(), out.DataDir, "result")
}

func exportTables(out properties.OutputConfig, result *WQIResult) error {
	dir := resultDir(out)
	exports := []struct {
		name string
		rows interface{}
	}{
		{"indices.csv", result.Raw.IndexRows()},
		{"indices_smoothed.csv", result.Smoothed.IndexRows()},
		{"indices_monthly.csv", result.Monthly.Rows()},
		{"indices_seasonal.csv", result.Seasonal.Rows()},
	}
	if len(result.Anomalies) > 0 {
		exports = append(exports, struct {
			name string
			rows interface{}
		}{"anomalies.csv", aggregate.AnomalyRows(result.Anomalies)})
	}
	for _, e := range exports {
		path := filepath.Join(dir, e.name)
		if err := aggregate.SaveCSV(path, e.rows); err != nil {
			return err
		}
		log.Infow("table exported", "path", path)
	}
	return nil
}

func renderArtifacts(out properties.OutputConfig, result *WQIResult) error {
	dir := resultDir(out)

	var chartCols []string
	for _, name := range indexOrder {
		col := name + "_mean"
		if result.Raw.Column(col) != nil {
			chartCols = append(chartCols, col)
		}
	}
	if len(chartCols) > 0 {
		path := filepath.Join(dir, "indices_timeseries.png")
		if err := render.TimeSeriesChart(path, "Tampa Bay water-quality indices", result.Smoothed, chartCols); err != nil {
			return err
		}
		log.Infow("chart rendered", "path", path)
	}

	latestMeans := make(map[string]raster.Grid)
	for name := range result.Cube.Grids {
		means := render.AnnualMean(result.Cube, name)
		stds := render.AnnualStd(result.Cube, name)
		latestYear := 0
		for year := range means {
			path := filepath.Join(dir, "maps", fmt.Sprintf("%s_%d_mean.png", name, year))
			if err := render.SaveGridPNG(path, means[year]); err != nil {
				log.Warnw("mean map skipped", "index", name, "year", year, "error", err.Error())
			}
			if std, ok := stds[year]; ok {
				path = filepath.Join(dir, "maps", fmt.Sprintf("%s_%d_std.png", name, year))
				if err := render.SaveGridPNG(path, std); err != nil {
					log.Warnw("std map skipped", "index", name, "year", year, "error", err.Error())
				}
			}
			if year > latestYear {
				latestYear = year
			}
		}
		if _, risky := riskThresholds[name]; risky && latestYear > 0 {
			latestMeans[name] = means[latestYear]
		}
	}

	if len(latestMeans) > 0 {
		risk, err := render.RiskMap(latestMeans, riskThresholds)
		if err != nil {
			return err
		}
		path := filepath.Join(dir, "maps", "composite_risk.png")
		if err := render.SaveGridPNG(path, risk); err != nil {
			return err
		}
		log.Infow("risk map rendered", "path", path)
	}
	return nil
}
