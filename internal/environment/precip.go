package environment

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/Gracey0201/tampa-bay-water-quality/internal/catalog"
	"github.com/Gracey0201/tampa-bay-water-quality/internal/log"
)

// PrecipSource derives a precipitation series from a catalog of daily
// accumulation products. It reuses the year-by-year catalog search, so the
// same truncation guard applies to the precipitation archive.
type PrecipSource struct {
	client     *catalog.Client
	collection string
	// property names the per-item accumulation value in the catalog
	// metadata.
	property string
	maxItems int
}

// NewPrecipSource builds a precipitation adapter over a catalog client.
func NewPrecipSource(client *catalog.Client, collection string, maxItems int) *PrecipSource {
	return &PrecipSource{
		client:     client,
		collection: collection,
		property:   "precipitation:accumulation",
		maxItems:   maxItems,
	}
}

func (p *PrecipSource) Name() string { return "catalog/" + p.collection }

// Fetch searches the accumulation collection over the window and emits one
// sample per item carrying the accumulation property. Items without the
// property are skipped with a warning rather than fabricated as zero.
func (p *PrecipSource) Fetch(ctx context.Context, bbox [4]float64, start, end time.Time) (*Series, error) {
	scenes, err := p.client.Search(ctx, catalog.SearchRequest{
		Collection: p.collection,
		BBox:       bbox,
		Start:      start,
		End:        end,
		MaxItems:   p.maxItems,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}
	if len(scenes) == 0 {
		return nil, fmt.Errorf("%w: %s returned zero items", ErrRetrieval, p.collection)
	}

	series := &Series{Name: "precip"}
	skipped := 0
	for _, scene := range scenes {
		v, ok := numericProperty(scene.Properties, p.property)
		if !ok {
			skipped++
			continue
		}
		series.Times = append(series.Times, scene.Time)
		series.Values = append(series.Values, v)
	}
	if skipped > 0 {
		log.Warnw("items without accumulation metadata skipped",
			"collection", p.collection, "skipped", skipped, "kept", len(series.Times))
	}
	if len(series.Times) == 0 {
		return nil, fmt.Errorf("%w: no item in %s carries %s", ErrRetrieval, p.collection, p.property)
	}
	return series, nil
}

func numericProperty(props map[string]interface{}, name string) (float64, bool) {
	raw, ok := props[name]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return v, !math.IsNaN(v)
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
