package environment

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/Gracey0201/tampa-bay-water-quality/internal/log"
	"github.com/Gracey0201/tampa-bay-water-quality/internal/properties"
)

const kelvinOffset = 273.15

// gridResponse is the wire shape of the gridded-series endpoints: a
// spatially averaged variable sampled over time.
type gridResponse struct {
	Variable string    `json:"variable"`
	Units    string    `json:"units"`
	Times    []string  `json:"times"`
	Values   []float64 `json:"values"`
}

// GridSource reads a spatially averaged variable from a gridded-dataset
// HTTP endpoint. The primary sea-surface temperature archive stops short of
// the present, so the source can be configured to reject responses that do
// not reach the requested end date, which pushes the chain onto the
// longer-running fallback archive.
type GridSource struct {
	name     string
	url      string
	variable string
	// checkTruncation rejects a response whose last sample predates the
	// requested end date.
	checkTruncation bool
	httpClient      *http.Client
	retries         int
}

// NewSSTSources builds the sea-surface temperature fallback chain: the
// primary archive with a truncation check, then the fallback archive
// accepted as-is.
func NewSSTSources(cfg properties.EnvironmentConfig) *Chain {
	return NewChain("sst",
		&GridSource{
			name:            "surftemp",
			url:             cfg.SSTURL,
			variable:        "analysed_sst",
			checkTruncation: true,
			httpClient:      &http.Client{Timeout: 60 * time.Second},
			retries:         cfg.Retries,
		},
		&GridSource{
			name:       "mur",
			url:        cfg.SSTFallbackURL,
			variable:   "analysed_sst",
			httpClient: &http.Client{Timeout: 60 * time.Second},
			retries:    cfg.Retries,
		},
	)
}

func (g *GridSource) Name() string { return g.name }

// Fetch retrieves the variable, converts Kelvin archives to Celsius, and
// resamples to monthly means.
func (g *GridSource) Fetch(ctx context.Context, bbox [4]float64, start, end time.Time) (*Series, error) {
	params := url.Values{}
	params.Set("variable", g.variable)
	params.Set("bbox", fmt.Sprintf("%f,%f,%f,%f", bbox[0], bbox[1], bbox[2], bbox[3]))
	params.Set("start", start.Format(time.DateOnly))
	params.Set("end", end.Format(time.DateOnly))
	endpoint := g.url + "?" + params.Encode()

	var resp gridResponse
	if err := g.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	if len(resp.Times) == 0 {
		return nil, fmt.Errorf("%w: %s returned an empty series", ErrRetrieval, g.name)
	}
	if len(resp.Times) != len(resp.Values) {
		return nil, fmt.Errorf("%w: %s returned %d times for %d values",
			ErrRetrieval, g.name, len(resp.Times), len(resp.Values))
	}

	series := &Series{Name: "sst"}
	for i, ts := range resp.Times {
		t, err := parseSeriesTime(ts)
		if err != nil {
			return nil, fmt.Errorf("%w: %s returned unparseable timestamp %q", ErrRetrieval, g.name, ts)
		}
		v := resp.Values[i]
		if resp.Units == "K" && !math.IsNaN(v) {
			v -= kelvinOffset
		}
		series.Times = append(series.Times, t)
		series.Values = append(series.Values, v)
	}

	if g.checkTruncation {
		last := series.Times[len(series.Times)-1]
		if last.Before(end.Truncate(24 * time.Hour)) {
			log.Warnw("series is truncated",
				"source", g.name,
				"last_sample", last.Format(time.DateOnly),
				"requested_end", end.Format(time.DateOnly))
			return nil, fmt.Errorf("%w: %s stops at %s before requested end %s",
				ErrRetrieval, g.name, last.Format(time.DateOnly), end.Format(time.DateOnly))
		}
	}

	return MonthlyMean(series), nil
}

func (g *GridSource) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	retries := g.retries
	if retries < 1 {
		retries = 1
	}
	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRetrieval, err)
		}
		resp, err := g.httpClient.Do(req)
		if err != nil {
			lastErr = err
			log.Warnw("grid request failed", "source", g.name, "attempt", attempt+1, "error", err.Error())
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			log.Warnw("grid request failed", "source", g.name, "attempt", attempt+1, "status", resp.StatusCode)
			continue
		}
		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("%w: decoding %s response: %v", ErrRetrieval, g.name, err)
		}
		return nil
	}
	return fmt.Errorf("%w: %s unreachable after %d attempts: %v", ErrRetrieval, g.name, retries, lastErr)
}

var seriesTimeFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	time.DateOnly,
}

func parseSeriesTime(s string) (time.Time, error) {
	for _, format := range seriesTimeFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
