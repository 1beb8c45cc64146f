// Package catalog implements the imagery catalog query and scene filter
// stages: STAC item search with per-year sub-queries and metadata-based
// cloud-cover filtering.
package catalog

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/planetlabs/go-stac"
)

// Scene is one retrievable satellite observation returned by the catalog.
// It is immutable once built; later stages only read it.
type Scene struct {
	ID   string
	Time time.Time
	// Geometry is the scene footprint in WGS84.
	Geometry orb.Geometry
	// CloudCover is the provider-reported cloud fraction in percent, nil
	// when the catalog did not report one.
	CloudCover *float64
	// Assets maps band/asset name to a fetchable raster reference.
	Assets     map[string]string
	Properties map[string]any
}

// Catalog timestamp formats seen across providers. Earth-search emits
// RFC3339, Planetary Computer sometimes drops the zone suffix.
var sceneTimeFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000000",
	"2006-01-02T15:04:05",
}

func parseSceneTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty datetime string")
	}
	s = strings.TrimSpace(s)

	var lastErr error
	for _, format := range sceneTimeFormats {
		t, err := time.Parse(format, s)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, fmt.Errorf("failed to parse scene datetime %q: %w", s, lastErr)
}

// SceneFromItem converts a STAC item into a Scene descriptor.
func SceneFromItem(item *stac.Item) (*Scene, error) {
	if item == nil {
		return nil, fmt.Errorf("item is nil")
	}
	if item.Id == "" {
		return nil, fmt.Errorf("item has no id")
	}

	scene := &Scene{
		ID:         item.Id,
		Assets:     make(map[string]string, len(item.Assets)),
		Properties: item.Properties,
	}

	dtRaw, ok := item.Properties["datetime"]
	if !ok || dtRaw == nil {
		return nil, fmt.Errorf("item %s has no datetime property", item.Id)
	}
	dtStr, ok := dtRaw.(string)
	if !ok {
		return nil, fmt.Errorf("item %s datetime is not a string", item.Id)
	}
	t, err := parseSceneTime(dtStr)
	if err != nil {
		return nil, fmt.Errorf("item %s: %w", item.Id, err)
	}
	scene.Time = t

	if cc, ok := item.Properties["eo:cloud_cover"]; ok && cc != nil {
		switch v := cc.(type) {
		case float64:
			scene.CloudCover = &v
		case int:
			f := float64(v)
			scene.CloudCover = &f
		case json.Number:
			if f, err := v.Float64(); err == nil {
				scene.CloudCover = &f
			}
		}
	}

	for name, asset := range item.Assets {
		if asset != nil && asset.Href != "" {
			scene.Assets[name] = asset.Href
		}
	}

	if item.Geometry != nil {
		raw, err := json.Marshal(item.Geometry)
		if err != nil {
			return nil, fmt.Errorf("item %s: failed to re-encode geometry: %w", item.Id, err)
		}
		geom, err := geojson.UnmarshalGeometry(raw)
		if err != nil {
			return nil, fmt.Errorf("item %s: failed to parse geometry: %w", item.Id, err)
		}
		scene.Geometry = geom.Geometry()
	}

	return scene, nil
}

// FilterByCloudCover returns the scenes whose reported cloud cover is
// strictly below maxPct. A scene with no cloud-cover metadata counts as
// fully clouded; absent metadata must never pass as clear sky.
func FilterByCloudCover(scenes []*Scene, maxPct float64) []*Scene {
	filtered := make([]*Scene, 0, len(scenes))
	for _, s := range scenes {
		cover := 100.0
		if s.CloudCover != nil {
			cover = *s.CloudCover
		}
		if cover < maxPct {
			filtered = append(filtered, s)
		}
	}
	return filtered
}
