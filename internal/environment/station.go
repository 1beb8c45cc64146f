package environment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Gracey0201/tampa-bay-water-quality/internal/cache"
	"github.com/Gracey0201/tampa-bay-water-quality/internal/log"
)

// stationDaily is the daily block of the station archive response.
type stationDaily struct {
	Time          []string  `json:"time"`
	Temperature   []float64 `json:"temperature_2m_mean"`
	Precipitation []float64 `json:"precipitation_sum"`
}

type stationResponse struct {
	Daily stationDaily `json:"daily"`
}

// StationSource reads one daily variable from the Open-Meteo historical
// archive at the center of the bounding box. Responses are cached on disk
// keyed by location and window.
type StationSource struct {
	url        string
	variable   string
	httpClient *http.Client
	retries    int
	cache      *cache.FileCache[stationResponse]
}

// Station variables.
const (
	StationTemperature   = "temperature"
	StationPrecipitation = "precipitation"
)

// NewStationSource builds a station adapter for the given variable.
func NewStationSource(url, variable string, retries int) *StationSource {
	return &StationSource{
		url:        url,
		variable:   variable,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		retries:    retries,
		cache:      cache.NewFileCache[stationResponse]("weather"),
	}
}

func (s *StationSource) Name() string { return "station/" + s.variable }

// Fetch reads the daily archive for the bounding-box center and returns the
// configured variable as a daily series.
func (s *StationSource) Fetch(ctx context.Context, bbox [4]float64, start, end time.Time) (*Series, error) {
	lat := (bbox[1] + bbox[3]) / 2
	lon := (bbox[0] + bbox[2]) / 2

	key := s.cache.GenerateKey(lat, lon, start.Format(time.DateOnly), end.Format(time.DateOnly))
	resp, ok := s.cache.Get(key)
	if !ok {
		endpoint := fmt.Sprintf("%s?latitude=%f&longitude=%f&start_date=%s&end_date=%s&daily=temperature_2m_mean,precipitation_sum",
			s.url, lat, lon, start.Format(time.DateOnly), end.Format(time.DateOnly))
		fetched, err := s.get(ctx, endpoint)
		if err != nil {
			return nil, err
		}
		resp = *fetched
		if err := s.cache.Set(key, resp); err != nil {
			log.Warnw("failed to cache station response", "error", err.Error())
		}
	}

	values := resp.Daily.Temperature
	if s.variable == StationPrecipitation {
		values = resp.Daily.Precipitation
	}
	if len(resp.Daily.Time) == 0 || len(values) != len(resp.Daily.Time) {
		return nil, fmt.Errorf("%w: station archive returned no usable %s series", ErrRetrieval, s.variable)
	}

	series := &Series{Name: s.variable}
	for i, d := range resp.Daily.Time {
		t, err := time.Parse(time.DateOnly, d)
		if err != nil {
			return nil, fmt.Errorf("%w: station archive returned unparseable date %q", ErrRetrieval, d)
		}
		series.Times = append(series.Times, t.UTC())
		series.Values = append(series.Values, values[i])
	}
	return series, nil
}

func (s *StationSource) get(ctx context.Context, endpoint string) (*stationResponse, error) {
	retries := s.retries
	if retries < 1 {
		retries = 1
	}
	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
		}
		resp, err := s.httpClient.Do(req)
		if err != nil {
			lastErr = err
			log.Warnw("station request failed", "attempt", attempt+1, "error", err.Error())
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			log.Warnw("station request failed", "attempt", attempt+1, "status", resp.StatusCode)
			continue
		}
		var decoded stationResponse
		err = json.NewDecoder(resp.Body).Decode(&decoded)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: decoding station response: %v", ErrRetrieval, err)
		}
		return &decoded, nil
	}
	return nil, fmt.Errorf("%w: station archive unreachable after %d attempts: %v", ErrRetrieval, retries, lastErr)
}
