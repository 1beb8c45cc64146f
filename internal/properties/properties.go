// Package properties holds the run configuration for the Tampa Bay
// water-quality pipeline. Everything is loaded once from the environment at
// startup; the defaults describe the Tampa Bay study area and the catalogs
// the analysis was built against.
package properties

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v10"
)

// Config is the single configuration structure passed into the pipeline
// entry points. No module-level bounding boxes or collection names exist
// outside of it.
type Config struct {
	Catalog     CatalogConfig     `envPrefix:"CATALOG_"`
	AOI         AOIConfig         `envPrefix:"AOI_"`
	Index       IndexConfig       `envPrefix:"INDEX_"`
	Aggregation AggregationConfig `envPrefix:"AGG_"`
	Environment EnvironmentConfig `envPrefix:"ENV_"`
	Output      OutputConfig      `envPrefix:"OUTPUT_"`
	Notify      NotifyConfig      `envPrefix:"NOTIFY_"`
	Debug       bool              `env:"DEBUG" envDefault:"false"`
}

// CatalogConfig configures the STAC imagery catalog client.
type CatalogConfig struct {
	URL        string `env:"URL" envDefault:"https://earth-search.aws.element84.com/v1"`
	Collection string `env:"COLLECTION" envDefault:"sentinel-2-l2a"`
	// MaxItems caps every per-year sub-query, mirroring the provider's
	// server-side item limit.
	MaxItems int `env:"MAX_ITEMS" envDefault:"500"`
	Retries  int `env:"RETRIES" envDefault:"3"`
	// Optional OAuth2 client-credentials auth for providers that require it.
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	TokenURL     string `env:"TOKEN_URL"`
}

// AOIConfig describes the area and period of interest. The default bounding
// box covers Tampa Bay in WGS84 (min-lon, min-lat, max-lon, max-lat).
type AOIConfig struct {
	MinLon    float64 `env:"MIN_LON" envDefault:"-82.85"`
	MinLat    float64 `env:"MIN_LAT" envDefault:"27.45"`
	MaxLon    float64 `env:"MAX_LON" envDefault:"-82.35"`
	MaxLat    float64 `env:"MAX_LAT" envDefault:"28.05"`
	// EPSG is the target spatial reference system every scene is warped
	// into before index computation.
	EPSG      int     `env:"EPSG" envDefault:"32617"`
	StartDate string  `env:"START_DATE" envDefault:"2021-01-01"`
	EndDate   string  `env:"END_DATE" envDefault:"2023-12-31"`
}

// IndexConfig configures the band-index stage.
type IndexConfig struct {
	// RedEdgeAsset names the red-edge asset used for NDCI. The provider
	// exposes rededge1 through rededge7 at different resolutions.
	RedEdgeAsset  string  `env:"REDEDGE_ASSET" envDefault:"rededge1"`
	MaxCloudCover float64 `env:"MAX_CLOUD_COVER" envDefault:"20"`
	FilterClouds  bool    `env:"FILTER_CLOUDS" envDefault:"true"`
	// MaskPolicy is "invalid" (drop cloud/shadow classes) or "water"
	// (keep only the water class).
	MaskPolicy    string `env:"MASK_POLICY" envDefault:"invalid"`
	MosaicSameDay bool   `env:"MOSAIC_SAME_DAY" envDefault:"true"`
	// Resolution in meters for the materialized grid.
	Resolution float64 `env:"RESOLUTION" envDefault:"60"`
}

// AggregationConfig configures the temporal aggregation stage.
type AggregationConfig struct {
	RollingWindow    int     `env:"ROLLING_WINDOW" envDefault:"5"`
	RollingCentered  bool    `env:"ROLLING_CENTERED" envDefault:"false"`
	AnomalyThreshold float64 `env:"ANOMALY_THRESHOLD" envDefault:"3"`
}

// EnvironmentConfig configures the SST / precipitation source adapters.
type EnvironmentConfig struct {
	SSTURL           string `env:"SST_URL" envDefault:"https://surftemp-sst.tampabay.dev/v1/series"`
	SSTFallbackURL   string `env:"SST_FALLBACK_URL" envDefault:"https://mur-sst.tampabay.dev/v1/series"`
	StationURL       string `env:"STATION_URL" envDefault:"https://archive-api.open-meteo.com/v1/archive"`
	PrecipCollection string `env:"PRECIP_COLLECTION" envDefault:"gpm-3imerg"`
	Retries          int    `env:"RETRIES" envDefault:"3"`
}

// OutputConfig configures the terminal artifacts.
type OutputConfig struct {
	DataDir   string `env:"DATA_DIR" envDefault:"data"`
	ExportCSV bool   `env:"EXPORT_CSV" envDefault:"false"`
	RenderPNG bool   `env:"RENDER_PNG" envDefault:"false"`
}

// NotifyConfig configures the optional Discord webhook notifications.
type NotifyConfig struct {
	ErrorWebhookURL   string `env:"ERROR_WEBHOOK_URL"`
	SuccessWebhookURL string `env:"SUCCESS_WEBHOOK_URL"`
}

// Load parses the configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Catalog.URL == "" {
		return fmt.Errorf("catalog URL is required")
	}
	if c.Catalog.MaxItems < 1 {
		return fmt.Errorf("catalog max items must be at least 1, got %d", c.Catalog.MaxItems)
	}
	if c.AOI.EPSG <= 0 {
		return fmt.Errorf("target EPSG code must be positive, got %d", c.AOI.EPSG)
	}
	if c.AOI.MinLon >= c.AOI.MaxLon || c.AOI.MinLat >= c.AOI.MaxLat {
		return fmt.Errorf("bounding box is degenerate: (%f,%f,%f,%f)",
			c.AOI.MinLon, c.AOI.MinLat, c.AOI.MaxLon, c.AOI.MaxLat)
	}
	if c.Index.MaxCloudCover < 0 || c.Index.MaxCloudCover > 100 {
		return fmt.Errorf("max cloud cover must be in [0,100], got %f", c.Index.MaxCloudCover)
	}
	if c.Index.MaskPolicy != "invalid" && c.Index.MaskPolicy != "water" {
		return fmt.Errorf("mask policy must be 'invalid' or 'water', got %q", c.Index.MaskPolicy)
	}
	if c.Aggregation.RollingWindow < 1 {
		return fmt.Errorf("rolling window must be at least 1, got %d", c.Aggregation.RollingWindow)
	}
	return nil
}

// BBox returns the AOI bounding box as (min-lon, min-lat, max-lon, max-lat).
func (a *AOIConfig) BBox() [4]float64 {
	return [4]float64{a.MinLon, a.MinLat, a.MaxLon, a.MaxLat}
}

// RootPath returns the base directory for cached data and results.
func RootPath() string {
	if p := os.Getenv("ROOT_PATH"); p != "" {
		return p
	}
	return "."
}
