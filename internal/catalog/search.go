package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Gracey0201/tampa-bay-water-quality/internal/log"
)

// ErrNoScenes reports that a query or filter left no usable scenes.
var ErrNoScenes = errors.New("no qualifying scenes")

// SearchRequest describes one spatial/temporal catalog query.
type SearchRequest struct {
	Collection string
	// BBox is min-lon, min-lat, max-lon, max-lat in WGS84.
	BBox [4]float64
	// Start and End are inclusive calendar dates.
	Start, End time.Time
	// MaxItems caps each per-year sub-query.
	MaxItems int
}

// yearWindow is one calendar-year slice of the requested range, with the
// first and last year clipped to the exact requested dates.
type yearWindow struct {
	start, end time.Time
}

// splitByYear breaks an inclusive date range into per-year sub-windows. The
// provider caps the item count per query and does not reliably paginate past
// it, so a multi-year query issued as one request can silently truncate;
// querying per year bounds each response well below the cap.
func splitByYear(start, end time.Time) []yearWindow {
	if end.Before(start) {
		return nil
	}
	windows := make([]yearWindow, 0, end.Year()-start.Year()+1)
	for year := start.Year(); year <= end.Year(); year++ {
		ws := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		we := time.Date(year, time.December, 31, 23, 59, 59, 0, time.UTC)
		if year == start.Year() {
			ws = start
		}
		if year == end.Year() {
			we = time.Date(year, end.Month(), end.Day(), 23, 59, 59, 0, time.UTC)
		}
		windows = append(windows, yearWindow{start: ws, end: we})
	}
	return windows
}

// Search runs the catalog query stage: one sub-query per calendar year,
// results concatenated in provider order. A failing year is logged and
// skipped so a transient outage costs one year of scenes, not the whole run.
func (c *Client) Search(ctx context.Context, req SearchRequest) ([]*Scene, error) {
	if req.Collection == "" {
		return nil, fmt.Errorf("collection is required")
	}
	windows := splitByYear(req.Start, req.End)
	if len(windows) == 0 {
		return nil, fmt.Errorf("invalid date range: %s after %s",
			req.Start.Format("2006-01-02"), req.End.Format("2006-01-02"))
	}

	var scenes []*Scene
	failedYears := 0
	for _, w := range windows {
		body := searchBody{
			Collections: []string{req.Collection},
			BBox:        req.BBox[:],
			DateTime: fmt.Sprintf("%s/%s",
				w.start.UTC().Format(time.RFC3339), w.end.UTC().Format(time.RFC3339)),
			Limit: req.MaxItems,
		}
		yearScenes, err := c.search(ctx, body)
		if err != nil {
			failedYears++
			log.Errorw("catalog sub-query failed, continuing with remaining years",
				"collection", req.Collection,
				"window_start", w.start.Format("2006-01-02"),
				"window_end", w.end.Format("2006-01-02"),
				"error", err.Error())
			continue
		}
		log.Infow("catalog sub-query finished",
			"collection", req.Collection,
			"window_start", w.start.Format("2006-01-02"),
			"window_end", w.end.Format("2006-01-02"),
			"items", len(yearScenes))
		scenes = append(scenes, yearScenes...)
	}

	if failedYears == len(windows) && len(windows) > 0 {
		log.Warnw("all catalog sub-queries failed", "collection", req.Collection)
	}
	return scenes, nil
}
