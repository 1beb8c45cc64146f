package wqi

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/Gracey0201/tampa-bay-water-quality/internal/raster"
)

func constGrid(h, w int, v float64) raster.Grid {
	g := make(raster.Grid, h)
	for y := range g {
		g[y] = make([]float64, w)
		for x := range g[y] {
			g[y][x] = v
		}
	}
	return g
}

func TestNormalizedDiffEqualBandsNearZero(t *testing.T) {
	a := constGrid(2, 2, 0.4)
	b := constGrid(2, 2, 0.4)
	out := NormalizedDiff(a, b)
	for y := range out {
		for x := range out[y] {
			if math.Abs(out[y][x]) > 1e-9 {
				t.Fatalf("pixel (%d,%d) = %v, want ~0", y, x, out[y][x])
			}
		}
	}
}

func TestNormalizedDiffPropagatesMissing(t *testing.T) {
	a := constGrid(1, 3, 0.5)
	b := constGrid(1, 3, 0.2)
	a[0][1] = math.NaN()
	b[0][2] = math.NaN()
	out := NormalizedDiff(a, b)
	if math.IsNaN(out[0][0]) {
		t.Fatal("pixel with both bands present should be finite")
	}
	if !math.IsNaN(out[0][1]) || !math.IsNaN(out[0][2]) {
		t.Fatal("pixels with a missing band must stay missing")
	}
}

func TestNormalizedDiffZeroDenominator(t *testing.T) {
	out := NormalizedDiff(constGrid(1, 1, 0), constGrid(1, 1, 0))
	if math.IsNaN(out[0][0]) || math.IsInf(out[0][0], 0) {
		t.Fatalf("zero denominator should be stabilized, got %v", out[0][0])
	}
}

func TestValidMaskPolicies(t *testing.T) {
	scl := raster.Grid{{3, 6, 4, 8, math.NaN()}}

	invalid := validMask(scl, MaskInvalid)
	want := []bool{false, true, true, false, false}
	for x, w := range want {
		if invalid[0][x] != w {
			t.Errorf("invalid policy pixel %d = %v, want %v", x, invalid[0][x], w)
		}
	}

	water := validMask(scl, MaskWaterOnly)
	want = []bool{false, true, false, false, false}
	for x, w := range want {
		if water[0][x] != w {
			t.Errorf("water policy pixel %d = %v, want %v", x, water[0][x], w)
		}
	}
}

func testStack(t *testing.T, slices []raster.SceneSlice, bands []string) *raster.BandStack {
	t.Helper()
	stack, err := raster.NewBandStack(bands, 1, 2, slices)
	if err != nil {
		t.Fatalf("building stack: %v", err)
	}
	return stack
}

func TestComputeMasksAllIndices(t *testing.T) {
	ts := time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)
	// Pixel 0 is water, pixel 1 is cloud.
	slices := []raster.SceneSlice{
		{Time: ts, Grids: map[string]raster.Grid{
			"green":    {{0.2, 0.2}},
			"nir":      {{0.1, 0.1}},
			"red":      {{0.3, 0.3}},
			"rededge1": {{0.4, 0.4}},
			"scl":      {{6, 9}},
		}},
	}
	stack := testStack(t, slices, []string{"green", "nir", "red", "rededge1", "scl"})

	cube, err := Compute(stack, Definitions("rededge1"), Options{FilterClouds: true, Policy: MaskInvalid})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	for _, name := range []string{"ndwi", "ndti", "ndci"} {
		grids, ok := cube.Grids[name]
		if !ok {
			t.Fatalf("index %s missing from cube", name)
		}
		if math.IsNaN(grids[0][0][0]) {
			t.Errorf("%s: clear pixel should be finite", name)
		}
		if !math.IsNaN(grids[0][0][1]) {
			t.Errorf("%s: cloudy pixel must be missing, got %v", name, grids[0][0][1])
		}
	}
}

func TestComputeMosaicsSameDayBeforeIndices(t *testing.T) {
	day := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	slices := []raster.SceneSlice{
		{Time: day.Add(10 * time.Hour), Grids: map[string]raster.Grid{
			"green": {{0.1, 0.1}},
			"nir":   {{0.3, 0.3}},
		}},
		{Time: day.Add(11 * time.Hour), Grids: map[string]raster.Grid{
			"green": {{0.3, 0.3}},
			"nir":   {{0.3, 0.3}},
		}},
	}
	stack := testStack(t, slices, []string{"green", "nir"})

	defs := []Definition{{Name: "ndwi", A: "green", B: "nir"}}
	cube, err := Compute(stack, defs, Options{MosaicSameDay: true})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if len(cube.Times) != 1 {
		t.Fatalf("same-day scenes should collapse to one step, got %d", len(cube.Times))
	}
	// Mean green 0.2, nir 0.3: (0.2-0.3)/(0.5) = -0.2.
	got := cube.Grids["ndwi"][0][0][0]
	if math.Abs(got-(-0.2)) > 1e-9 {
		t.Fatalf("mosaicked ndwi = %v, want -0.2", got)
	}
}

func TestComputeMasksEachSceneBeforeMosaic(t *testing.T) {
	// Two same-day scenes disagree on the classification: pixel 0 is cloud
	// (9) in the morning scene and vegetation (4) at midday; pixel 1 is a
	// cloud class in both. Each scene's own classification must gate its
	// contribution — class codes are categorical and averaging 9 and 4
	// would fabricate the water class 6.
	day := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	slices := []raster.SceneSlice{
		{Time: day.Add(10 * time.Hour), Grids: map[string]raster.Grid{
			"green": {{0.9, 0.9}},
			"nir":   {{0.9, 0.9}},
			"scl":   {{9, 9}},
		}},
		{Time: day.Add(11 * time.Hour), Grids: map[string]raster.Grid{
			"green": {{0.2, 0.2}},
			"nir":   {{0.1, 0.1}},
			"scl":   {{4, 8}},
		}},
	}
	defs := []Definition{{Name: "ndwi", A: "green", B: "nir"}}
	opts := Options{FilterClouds: true, Policy: MaskInvalid, MosaicSameDay: true}

	stack := testStack(t, slices, []string{"green", "nir", "scl"})
	cube, err := Compute(stack, defs, opts)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if len(cube.Times) != 1 {
		t.Fatalf("same-day scenes should collapse to one step, got %d", len(cube.Times))
	}

	// Pixel 0: only the midday scene is valid, so the result is its index
	// alone, (0.2-0.1)/0.3, uncontaminated by the clouded scene.
	got := cube.Grids["ndwi"][0][0][0]
	if math.Abs(got-1.0/3.0) > 1e-9 {
		t.Errorf("ndwi pixel 0 = %v, want %v from the cloud-free scene only", got, 1.0/3.0)
	}
	// Pixel 1: clouded in every scene, so the day has no observation.
	if !math.IsNaN(cube.Grids["ndwi"][0][0][1]) {
		t.Errorf("ndwi pixel 1 = %v, want NaN for an all-cloud pixel", cube.Grids["ndwi"][0][0][1])
	}

	// Under the strict water-only policy neither 9 nor 4 passes, so pixel 0
	// goes missing too.
	stack = testStack(t, slices, []string{"green", "nir", "scl"})
	opts.Policy = MaskWaterOnly
	cube, err = Compute(stack, defs, opts)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if !math.IsNaN(cube.Grids["ndwi"][0][0][0]) {
		t.Errorf("water policy: ndwi pixel 0 = %v, want NaN", cube.Grids["ndwi"][0][0][0])
	}
}

func TestComputeMissingBandFailsOnlyThatIndex(t *testing.T) {
	ts := time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)
	slices := []raster.SceneSlice{
		{Time: ts, Grids: map[string]raster.Grid{
			"green": {{0.2, 0.2}},
			"nir":   {{0.1, 0.1}},
			"red":   {{0.3, 0.3}},
		}},
	}
	stack := testStack(t, slices, []string{"green", "nir", "red"})

	cube, err := Compute(stack, Definitions("rededge1"), Options{})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if _, ok := cube.Grids["ndwi"]; !ok {
		t.Error("ndwi should compute without the red-edge band")
	}
	if _, ok := cube.Grids["ndti"]; !ok {
		t.Error("ndti should compute without the red-edge band")
	}
	failure, ok := cube.Failed["ndci"]
	if !ok {
		t.Fatal("ndci should be reported as failed")
	}
	if !errors.Is(failure, ErrMissingBand) {
		t.Fatalf("ndci failure = %v, want ErrMissingBand", failure)
	}
}

func TestComputeAllIndicesMissingIsError(t *testing.T) {
	ts := time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)
	slices := []raster.SceneSlice{
		{Time: ts, Grids: map[string]raster.Grid{"swir": {{0.2, 0.2}}}},
	}
	stack := testStack(t, slices, []string{"swir"})

	if _, err := Compute(stack, Definitions("rededge1"), Options{}); err == nil {
		t.Fatal("expected an error when no index has its bands")
	}
}

func TestRequiredBands(t *testing.T) {
	bands := RequiredBands(Definitions("rededge1"), true)
	want := map[string]bool{"green": true, "nir": true, "red": true, "rededge1": true, "scl": true}
	if len(bands) != len(want) {
		t.Fatalf("got %d bands %v, want %d", len(bands), bands, len(want))
	}
	for _, b := range bands {
		if !want[b] {
			t.Errorf("unexpected band %q", b)
		}
	}
}
