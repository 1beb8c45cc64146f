package ui

import (
	"fmt"

	"github.com/Gracey0201/tampa-bay-water-quality/internal/properties"
)

// ShowConfig prints the active run configuration.
func ShowConfig(cfg *properties.Config) {
	bbox := cfg.AOI.BBox()
	fmt.Printf("%s\nCatalog:%s\n", ColorGreen, ColorReset)
	fmt.Printf("  url:         %s\n", cfg.Catalog.URL)
	fmt.Printf("  collection:  %s\n", cfg.Catalog.Collection)
	fmt.Printf("  max items:   %d per year\n", cfg.Catalog.MaxItems)
	fmt.Printf("%sArea of interest:%s\n", ColorGreen, ColorReset)
	fmt.Printf("  bbox:        %.2f, %.2f, %.2f, %.2f\n", bbox[0], bbox[1], bbox[2], bbox[3])
	fmt.Printf("  window:      %s to %s\n", cfg.AOI.StartDate, cfg.AOI.EndDate)
	fmt.Printf("  epsg:        %d\n", cfg.AOI.EPSG)
	fmt.Printf("%sIndices:%s\n", ColorGreen, ColorReset)
	fmt.Printf("  red edge:    %s\n", cfg.Index.RedEdgeAsset)
	fmt.Printf("  cloud max:   %.0f%%\n", cfg.Index.MaxCloudCover)
	fmt.Printf("  mask policy: %s\n", cfg.Index.MaskPolicy)
	fmt.Printf("  mosaic day:  %t\n", cfg.Index.MosaicSameDay)
	fmt.Printf("  resolution:  %.0fm\n", cfg.Index.Resolution)
	fmt.Printf("%sAggregation:%s\n", ColorGreen, ColorReset)
	fmt.Printf("  window:      %d (centered: %t)\n", cfg.Aggregation.RollingWindow, cfg.Aggregation.RollingCentered)
	fmt.Printf("  anomaly z:   %.1f\n", cfg.Aggregation.AnomalyThreshold)
	fmt.Printf("%sEnvironment:%s\n", ColorGreen, ColorReset)
	fmt.Printf("  sst:         %s (fallback %s)\n", cfg.Environment.SSTURL, cfg.Environment.SSTFallbackURL)
	fmt.Printf("  precip:      %s\n", cfg.Environment.PrecipCollection)
	fmt.Printf("  station:     %s\n", cfg.Environment.StationURL)
	fmt.Printf("%sOutput:%s\n", ColorGreen, ColorReset)
	fmt.Printf("  csv:         %t\n", cfg.Output.ExportCSV)
	fmt.Printf("  png:         %t\n", cfg.Output.RenderPNG)
}
