package properties

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load with defaults failed: %v", err)
	}
	if cfg.Catalog.Collection != "sentinel-2-l2a" {
		t.Errorf("default collection = %q", cfg.Catalog.Collection)
	}
	if cfg.AOI.EPSG != 32617 {
		t.Errorf("default EPSG = %d, want the Tampa Bay UTM zone 32617", cfg.AOI.EPSG)
	}
	bbox := cfg.AOI.BBox()
	if bbox[0] >= bbox[2] || bbox[1] >= bbox[3] {
		t.Errorf("default bbox degenerate: %v", bbox)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() *Config {
		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		return cfg
	}

	tests := []struct {
		name  string
		mutate func(*Config)
	}{
		{"missing catalog url", func(c *Config) { c.Catalog.URL = "" }},
		{"zero max items", func(c *Config) { c.Catalog.MaxItems = 0 }},
		{"non-positive epsg", func(c *Config) { c.AOI.EPSG = 0 }},
		{"inverted bbox", func(c *Config) { c.AOI.MinLon, c.AOI.MaxLon = c.AOI.MaxLon, c.AOI.MinLon }},
		{"cloud cover over 100", func(c *Config) { c.Index.MaxCloudCover = 150 }},
		{"unknown mask policy", func(c *Config) { c.Index.MaskPolicy = "strict" }},
		{"zero rolling window", func(c *Config) { c.Aggregation.RollingWindow = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}
