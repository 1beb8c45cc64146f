// Headless scene-fetch tool for debugging catalog queries and asset
// downloads without going through the interactive menu.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/airbusgeo/godal"
	"github.com/joho/godotenv"

	"github.com/Gracey0201/tampa-bay-water-quality/internal/catalog"
	"github.com/Gracey0201/tampa-bay-water-quality/internal/log"
	"github.com/Gracey0201/tampa-bay-water-quality/internal/properties"
	"github.com/Gracey0201/tampa-bay-water-quality/internal/raster"
	"github.com/Gracey0201/tampa-bay-water-quality/internal/wqi"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		fmt.Println("No .env file found, using defaults and environment variables.")
	}

	cfg, err := properties.Load()
	if err != nil {
		fmt.Printf("Invalid configuration: %s\n", err.Error())
		os.Exit(1)
	}
	if err := log.Init(cfg.Debug); err != nil {
		fmt.Printf("Failed to initialize logging: %s\n", err.Error())
		os.Exit(1)
	}
	defer log.Sync()

	godal.RegisterAll()

	start, err := time.Parse(time.DateOnly, cfg.AOI.StartDate)
	if err != nil {
		fmt.Printf("Invalid start date: %s\n", err.Error())
		os.Exit(1)
	}
	end, err := time.Parse(time.DateOnly, cfg.AOI.EndDate)
	if err != nil {
		fmt.Printf("Invalid end date: %s\n", err.Error())
		os.Exit(1)
	}

	fmt.Println("=== Tampa Bay WQI scene fetch ===")
	fmt.Printf("Catalog:    %s (%s)\n", cfg.Catalog.URL, cfg.Catalog.Collection)
	fmt.Printf("Window:     %s to %s\n", cfg.AOI.StartDate, cfg.AOI.EndDate)
	bbox := cfg.AOI.BBox()
	fmt.Printf("BBox:       %.2f, %.2f, %.2f, %.2f\n\n", bbox[0], bbox[1], bbox[2], bbox[3])

	ctx := context.Background()
	client := catalog.NewClient(cfg.Catalog.URL, catalog.WithRetries(cfg.Catalog.Retries))
	scenes, err := client.Search(ctx, catalog.SearchRequest{
		Collection: cfg.Catalog.Collection,
		BBox:       bbox,
		Start:      start,
		End:        end,
		MaxItems:   cfg.Catalog.MaxItems,
	})
	if err != nil {
		fmt.Printf("Search failed: %s\n", err.Error())
		os.Exit(1)
	}
	fmt.Printf("Found %d scenes\n", len(scenes))

	scenes = catalog.FilterByCloudCover(scenes, cfg.Index.MaxCloudCover)
	fmt.Printf("Kept  %d scenes below %.0f%% cloud cover\n", len(scenes), cfg.Index.MaxCloudCover)
	if len(scenes) == 0 {
		os.Exit(0)
	}

	bands := wqi.RequiredBands(wqi.Definitions(cfg.Index.RedEdgeAsset), cfg.Index.FilterClouds)
	loader := raster.NewLoader(bands, bbox, cfg.AOI.EPSG, cfg.Index.Resolution)
	stack, err := loader.Load(ctx, scenes)
	if err != nil {
		fmt.Printf("Download failed: %s\n", err.Error())
		os.Exit(1)
	}

	fmt.Printf("\nMaterialized stack: %d time steps, %d bands, %dx%d pixels\n",
		stack.Len(), len(stack.Bands), stack.Height, stack.Width)
	for _, band := range stack.Bands {
		fmt.Printf("  band %s cached\n", band)
	}
}
