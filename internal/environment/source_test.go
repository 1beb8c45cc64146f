package environment

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

var testBBox = [4]float64{-82.85, 27.45, -82.35, 28.05}

func TestMonthlyMeanSkipsMissing(t *testing.T) {
	s := &Series{
		Name: "sst",
		Times: []time.Time{
			time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC),
			time.Date(2023, 1, 20, 0, 0, 0, 0, time.UTC),
			time.Date(2023, 1, 25, 0, 0, 0, 0, time.UTC),
			time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		Values: []float64{10, 20, math.NaN(), 30},
	}
	monthly := MonthlyMean(s)
	if len(monthly.Times) != 2 {
		t.Fatalf("got %d months, want 2", len(monthly.Times))
	}
	if monthly.Values[0] != 15 {
		t.Errorf("January mean = %v, want 15", monthly.Values[0])
	}
	if !monthly.Times[1].Equal(time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("second bucket = %s, want March", monthly.Times[1])
	}
}

type fakeSource struct {
	name   string
	series *Series
	err    error
	calls  int
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Fetch(ctx context.Context, bbox [4]float64, start, end time.Time) (*Series, error) {
	f.calls++
	return f.series, f.err
}

func TestChainFallsBackOnFailure(t *testing.T) {
	broken := &fakeSource{name: "primary", err: ErrRetrieval}
	good := &fakeSource{name: "fallback", series: &Series{Name: "sst", Values: []float64{1}}}

	chain := NewChain("sst", broken, good)
	series, err := chain.Fetch(context.Background(), testBBox, time.Now().Add(-time.Hour), time.Now())
	if err != nil {
		t.Fatalf("chain with a working fallback failed: %v", err)
	}
	if broken.calls != 1 || good.calls != 1 {
		t.Errorf("calls = %d/%d, want 1/1", broken.calls, good.calls)
	}
	if len(series.Values) != 1 {
		t.Errorf("got series %+v from wrong source", series)
	}
}

func TestChainAllSourcesFailingIsRetrievalFailure(t *testing.T) {
	chain := NewChain("sst",
		&fakeSource{name: "a", err: errors.New("boom")},
		&fakeSource{name: "b", err: ErrRetrieval},
	)
	_, err := chain.Fetch(context.Background(), testBBox, time.Now().Add(-time.Hour), time.Now())
	if !errors.Is(err, ErrRetrieval) {
		t.Fatalf("err = %v, want ErrRetrieval", err)
	}
}

func gridServer(t *testing.T, resp gridResponse) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("variable") == "" {
			t.Error("variable query parameter missing")
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestGridSourceConvertsKelvin(t *testing.T) {
	server := gridServer(t, gridResponse{
		Variable: "analysed_sst",
		Units:    "K",
		Times:    []string{"2023-06-02", "2023-06-20"},
		Values:   []float64{300.15, 302.15},
	})
	defer server.Close()

	src := &GridSource{
		name:       "surftemp",
		url:        server.URL,
		variable:   "analysed_sst",
		httpClient: server.Client(),
		retries:    1,
	}
	series, err := src.Fetch(context.Background(), testBBox,
		time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 6, 30, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(series.Values) != 1 {
		t.Fatalf("got %d monthly samples, want 1", len(series.Values))
	}
	if math.Abs(series.Values[0]-28) > 1e-9 {
		t.Errorf("June mean = %v C, want 28", series.Values[0])
	}
}

func TestGridSourceTruncationTriggersFallback(t *testing.T) {
	truncated := gridServer(t, gridResponse{
		Variable: "analysed_sst",
		Units:    "C",
		Times:    []string{"2023-01-15"},
		Values:   []float64{20},
	})
	defer truncated.Close()
	complete := gridServer(t, gridResponse{
		Variable: "analysed_sst",
		Units:    "C",
		Times:    []string{"2023-01-15", "2023-06-15"},
		Values:   []float64{20, 28},
	})
	defer complete.Close()

	chain := NewChain("sst",
		&GridSource{
			name:            "surftemp",
			url:             truncated.URL,
			variable:        "analysed_sst",
			checkTruncation: true,
			httpClient:      truncated.Client(),
			retries:         1,
		},
		&GridSource{
			name:       "mur",
			url:        complete.URL,
			variable:   "analysed_sst",
			httpClient: complete.Client(),
			retries:    1,
		},
	)

	series, err := chain.Fetch(context.Background(), testBBox,
		time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 6, 30, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(series.Values) != 2 {
		t.Fatalf("got %d monthly samples, want the fallback's 2", len(series.Values))
	}
	if series.Values[1] != 28 {
		t.Errorf("June value = %v, want 28 from the fallback archive", series.Values[1])
	}
}

func TestGridSourceEmptySeriesIsRetrievalFailure(t *testing.T) {
	server := gridServer(t, gridResponse{Variable: "analysed_sst", Units: "C"})
	defer server.Close()

	src := &GridSource{
		name:       "surftemp",
		url:        server.URL,
		variable:   "analysed_sst",
		httpClient: server.Client(),
		retries:    1,
	}
	_, err := src.Fetch(context.Background(), testBBox,
		time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, ErrRetrieval) {
		t.Fatalf("err = %v, want ErrRetrieval", err)
	}
}

func TestStationSourceReadsDailyVariable(t *testing.T) {
	t.Setenv("ROOT_PATH", t.TempDir())
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(stationResponse{
			Daily: stationDaily{
				Time:          []string{"2023-06-01", "2023-06-02"},
				Temperature:   []float64{29.1, 29.4},
				Precipitation: []float64{0, 12.5},
			},
		})
	}))
	defer server.Close()

	src := NewStationSource(server.URL, StationPrecipitation, 1)
	src.httpClient = server.Client()

	series, err := src.Fetch(context.Background(), testBBox,
		time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 6, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(series.Values) != 2 || series.Values[1] != 12.5 {
		t.Fatalf("series = %+v, want the precipitation column", series)
	}
	if !series.Times[0].Equal(time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("first sample at %s, want 2023-06-01", series.Times[0])
	}
}
