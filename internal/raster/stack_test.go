package raster

import (
	"math"
	"testing"
	"time"
)

func constGrid(h, w int, v float64) Grid {
	g := make(Grid, h)
	for y := range g {
		g[y] = make([]float64, w)
		for x := range g[y] {
			g[y][x] = v
		}
	}
	return g
}

func TestNewBandStackEnforcesShape(t *testing.T) {
	t0 := time.Date(2023, 6, 1, 16, 0, 0, 0, time.UTC)

	_, err := NewBandStack([]string{"green"}, 2, 2, []SceneSlice{
		{Time: t0, Grids: map[string]Grid{"green": constGrid(3, 2, 1)}},
	})
	if err == nil {
		t.Error("expected shape mismatch error")
	}

	_, err = NewBandStack([]string{"green", "nir"}, 2, 2, []SceneSlice{
		{Time: t0, Grids: map[string]Grid{"green": constGrid(2, 2, 1)}},
	})
	if err == nil {
		t.Error("expected missing band error")
	}

	_, err = NewBandStack([]string{"green"}, 2, 2, nil)
	if err == nil {
		t.Error("expected error for empty stack")
	}
}

func TestBandStackOrdersByTime(t *testing.T) {
	later := time.Date(2023, 6, 9, 16, 0, 0, 0, time.UTC)
	earlier := time.Date(2023, 6, 1, 16, 0, 0, 0, time.UTC)

	stack, err := NewBandStack([]string{"green"}, 1, 1, []SceneSlice{
		{Time: later, Grids: map[string]Grid{"green": constGrid(1, 1, 2)}},
		{Time: earlier, Grids: map[string]Grid{"green": constGrid(1, 1, 1)}},
	})
	if err != nil {
		t.Fatalf("NewBandStack failed: %v", err)
	}

	if !stack.Times[0].Equal(earlier) || !stack.Times[1].Equal(later) {
		t.Errorf("time slices not sorted: %v", stack.Times)
	}
	g, err := stack.Band(0, "green")
	if err != nil {
		t.Fatalf("Band failed: %v", err)
	}
	if g[0][0] != 1 {
		t.Errorf("first slice should hold the earlier scene, got %f", g[0][0])
	}
}

func TestBandStackKeepsSameTimestampScenes(t *testing.T) {
	// Adjacent tiles cut from one datastrip share the acquisition second;
	// both must survive into the stack and into the day mosaic.
	ts := time.Date(2023, 6, 1, 16, 0, 0, 0, time.UTC)

	stack, err := NewBandStack([]string{"green"}, 1, 2, []SceneSlice{
		{Time: ts, Grids: map[string]Grid{"green": Grid{{0.2, math.NaN()}}}},
		{Time: ts, Grids: map[string]Grid{"green": Grid{{math.NaN(), 0.4}}}},
	})
	if err != nil {
		t.Fatalf("NewBandStack failed: %v", err)
	}
	if stack.Len() != 2 {
		t.Fatalf("expected both same-timestamp scenes kept, got %d slices", stack.Len())
	}

	daily, err := stack.MosaicByDay()
	if err != nil {
		t.Fatalf("MosaicByDay failed: %v", err)
	}
	if daily.Len() != 1 {
		t.Fatalf("expected 1 daily slice, got %d", daily.Len())
	}
	g, _ := daily.Band(0, "green")
	if g[0][0] != 0.2 || g[0][1] != 0.4 {
		t.Errorf("tile halves not merged: got [%f %f], want [0.2 0.4]", g[0][0], g[0][1])
	}
}

func TestMosaicByDayAveragesSameDayScenes(t *testing.T) {
	morning := time.Date(2023, 6, 1, 15, 50, 0, 0, time.UTC)
	midday := time.Date(2023, 6, 1, 16, 10, 0, 0, time.UTC)
	nextDay := time.Date(2023, 6, 2, 16, 0, 0, 0, time.UTC)

	stack, err := NewBandStack([]string{"green"}, 1, 2, []SceneSlice{
		{Time: morning, Grids: map[string]Grid{"green": Grid{{0.1, math.NaN()}}}},
		{Time: midday, Grids: map[string]Grid{"green": Grid{{0.3, 0.5}}}},
		{Time: nextDay, Grids: map[string]Grid{"green": Grid{{0.7, 0.7}}}},
	})
	if err != nil {
		t.Fatalf("NewBandStack failed: %v", err)
	}

	daily, err := stack.MosaicByDay()
	if err != nil {
		t.Fatalf("MosaicByDay failed: %v", err)
	}

	if daily.Len() != 2 {
		t.Fatalf("expected 2 daily slices, got %d", daily.Len())
	}

	g, _ := daily.Band(0, "green")
	if math.Abs(g[0][0]-0.2) > 1e-12 {
		t.Errorf("same-day mean: got %f, want 0.2", g[0][0])
	}
	// A pixel missing in one scene still keeps the other scene's value.
	if math.Abs(g[0][1]-0.5) > 1e-12 {
		t.Errorf("NaN-aware mean: got %f, want 0.5", g[0][1])
	}

	g2, _ := daily.Band(1, "green")
	if g2[0][0] != 0.7 {
		t.Errorf("single-scene day should pass through unchanged, got %f", g2[0][0])
	}

	if !daily.Times[0].Equal(time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("mosaic timestamps should be floored to day, got %v", daily.Times[0])
	}
}

func TestMosaicPixelMissingEverywhereStaysMissing(t *testing.T) {
	a := time.Date(2023, 6, 1, 15, 0, 0, 0, time.UTC)
	b := time.Date(2023, 6, 1, 17, 0, 0, 0, time.UTC)

	stack, err := NewBandStack([]string{"scl"}, 1, 1, []SceneSlice{
		{Time: a, Grids: map[string]Grid{"scl": Grid{{math.NaN()}}}},
		{Time: b, Grids: map[string]Grid{"scl": Grid{{math.NaN()}}}},
	})
	if err != nil {
		t.Fatalf("NewBandStack failed: %v", err)
	}
	daily, err := stack.MosaicByDay()
	if err != nil {
		t.Fatalf("MosaicByDay failed: %v", err)
	}
	g, _ := daily.Band(0, "scl")
	if !math.IsNaN(g[0][0]) {
		t.Errorf("pixel missing in every scene must stay NaN, got %f", g[0][0])
	}
}

func TestGridClone(t *testing.T) {
	src := Grid{{1, 2}, {3, math.NaN()}}
	dst := src.Clone()
	dst[0][0] = 9
	if src[0][0] != 1 {
		t.Error("Clone must not share rows with the source")
	}
	if dst[1][0] != 3 || !math.IsNaN(dst[1][1]) {
		t.Errorf("Clone values wrong: %v", dst)
	}
}

func TestGridShape(t *testing.T) {
	// 30 km x 66 km UTM window at 60 m resolution.
	h, w := gridShape([4]float64{318000, 3036000, 348000, 3102000}, 60)
	if w != 500 || h != 1100 {
		t.Errorf("grid shape = %dx%d, want 1100x500", h, w)
	}

	// Fractional spans round up to a whole pixel.
	h, w = gridShape([4]float64{0, 0, 61, 10}, 60)
	if h != 1 || w != 2 {
		t.Errorf("grid shape = %dx%d, want 1x2", h, w)
	}

	// Tiny window still yields at least one pixel; huge windows clamp.
	h, w = gridShape([4]float64{0, 0, 1e-9, 1e-9}, 10)
	if h != 1 || w != 1 {
		t.Errorf("expected 1x1 grid for degenerate window, got %dx%d", h, w)
	}
	h, w = gridShape([4]float64{0, 0, 1e9, 1e9}, 10)
	if h != maxGridDim || w != maxGridDim {
		t.Errorf("grid not clamped: %dx%d", h, w)
	}
}

func TestSanitizeMapsNodataToMissing(t *testing.T) {
	// Sentinel-2 nodata is 0; a fill sample must never pass as a real
	// reflectance of zero.
	buf := []float64{0, 0.12, math.Inf(1), 0.34, 0}
	sanitize(buf, 0, true)
	if !math.IsNaN(buf[0]) || !math.IsNaN(buf[4]) {
		t.Errorf("nodata samples kept as values: %v", buf)
	}
	if !math.IsNaN(buf[2]) {
		t.Error("non-finite sample must become NaN")
	}
	if buf[1] != 0.12 || buf[3] != 0.34 {
		t.Errorf("real samples corrupted: %v", buf)
	}

	// Without a declared nodata value, zeros are legitimate data.
	buf = []float64{0, 0.5}
	sanitize(buf, 0, false)
	if buf[0] != 0 {
		t.Error("zero must survive when the band declares no nodata value")
	}
}
