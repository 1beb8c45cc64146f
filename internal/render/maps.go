package render

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"

	"github.com/Gracey0201/tampa-bay-water-quality/internal/raster"
	"github.com/Gracey0201/tampa-bay-water-quality/internal/wqi"
)

// AnnualMean collapses an index's time axis into one NaN-aware mean grid
// per calendar year.
func AnnualMean(cube *wqi.Cube, index string) map[int]raster.Grid {
	return annualReduce(cube, index, func(sum float64, n int) float64 {
		return sum / float64(n)
	})
}

// AnnualStd collapses an index's time axis into one NaN-aware sample
// standard-deviation grid per calendar year. Pixels observed fewer than two
// times in a year are NaN.
func AnnualStd(cube *wqi.Cube, index string) map[int]raster.Grid {
	means := AnnualMean(cube, index)
	out := make(map[int]raster.Grid, len(means))
	grids := cube.Grids[index]
	for year, mean := range means {
		std := raster.NewGrid(cube.Height, cube.Width)
		counts := make([][]int, cube.Height)
		sums := make([][]float64, cube.Height)
		for y := 0; y < cube.Height; y++ {
			counts[y] = make([]int, cube.Width)
			sums[y] = make([]float64, cube.Width)
		}
		for i, g := range grids {
			if cube.Times[i].Year() != year {
				continue
			}
			for y := 0; y < cube.Height; y++ {
				for x := 0; x < cube.Width; x++ {
					v := g[y][x]
					if math.IsNaN(v) || math.IsNaN(mean[y][x]) {
						continue
					}
					d := v - mean[y][x]
					sums[y][x] += d * d
					counts[y][x]++
				}
			}
		}
		for y := 0; y < cube.Height; y++ {
			for x := 0; x < cube.Width; x++ {
				if counts[y][x] >= 2 {
					std[y][x] = math.Sqrt(sums[y][x] / float64(counts[y][x]-1))
				}
			}
		}
		out[year] = std
	}
	return out
}

func annualReduce(cube *wqi.Cube, index string, finish func(float64, int) float64) map[int]raster.Grid {
	grids, ok := cube.Grids[index]
	if !ok {
		return nil
	}
	type acc struct {
		sums   [][]float64
		counts [][]int
	}
	years := make(map[int]*acc)
	for i, g := range grids {
		year := cube.Times[i].Year()
		a, ok := years[year]
		if !ok {
			a = &acc{sums: make([][]float64, cube.Height), counts: make([][]int, cube.Height)}
			for y := 0; y < cube.Height; y++ {
				a.sums[y] = make([]float64, cube.Width)
				a.counts[y] = make([]int, cube.Width)
			}
			years[year] = a
		}
		for y := 0; y < cube.Height; y++ {
			for x := 0; x < cube.Width; x++ {
				v := g[y][x]
				if math.IsNaN(v) {
					continue
				}
				a.sums[y][x] += v
				a.counts[y][x]++
			}
		}
	}
	out := make(map[int]raster.Grid, len(years))
	for year, a := range years {
		g := raster.NewGrid(cube.Height, cube.Width)
		for y := 0; y < cube.Height; y++ {
			for x := 0; x < cube.Width; x++ {
				if a.counts[y][x] > 0 {
					g[y][x] = finish(a.sums[y][x], a.counts[y][x])
				}
			}
		}
		out[year] = g
	}
	return out
}

// Ramp maps a value in [lo,hi] onto a blue-green-red color. Values outside
// the range clamp to the endpoints.
func Ramp(v, lo, hi float64) (r, g, b float64) {
	if hi <= lo {
		return 0.5, 0.5, 0.5
	}
	t := (v - lo) / (hi - lo)
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	if t < 0.5 {
		u := t * 2
		return 0, u, 1 - u
	}
	u := (t - 0.5) * 2
	return u, 1 - u, 0
}

// gridRange returns the finite min and max of a grid.
func gridRange(g raster.Grid) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, row := range g {
		for _, v := range row {
			if math.IsNaN(v) {
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	return lo, hi, lo <= hi
}

// SaveGridPNG writes a grid as a color-ramped PNG, one pixel per cell.
// Missing cells render gray.
func SaveGridPNG(path string, grid raster.Grid) error {
	h, w := grid.Shape()
	if h == 0 || w == 0 {
		return fmt.Errorf("empty grid")
	}
	lo, hi, ok := gridRange(grid)
	if !ok {
		return fmt.Errorf("grid has no finite values")
	}
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return err
	}

	dc := gg.NewContext(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := grid[y][x]
			if math.IsNaN(v) {
				dc.SetRGB(0.85, 0.85, 0.85)
			} else {
				dc.SetRGB(Ramp(v, lo, hi))
			}
			dc.SetPixel(x, y)
		}
	}
	return dc.SavePNG(path)
}

// RiskMap counts, per pixel, how many index mean grids exceed their
// configured threshold. A pixel missing from every input stays NaN; a pixel
// missing from some inputs is scored over the ones that observed it.
func RiskMap(means map[string]raster.Grid, thresholds map[string]float64) (raster.Grid, error) {
	var h, w int
	for _, g := range means {
		gh, gw := g.Shape()
		if h == 0 {
			h, w = gh, gw
		} else if gh != h || gw != w {
			return nil, fmt.Errorf("index maps disagree on shape: %dx%d vs %dx%d", gh, gw, h, w)
		}
	}
	if h == 0 {
		return nil, fmt.Errorf("no index maps provided")
	}

	risk := raster.NewGrid(h, w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			exceeded, observed := 0, 0
			for name, g := range means {
				v := g[y][x]
				if math.IsNaN(v) {
					continue
				}
				observed++
				if v > thresholds[name] {
					exceeded++
				}
			}
			if observed > 0 {
				risk[y][x] = float64(exceeded)
			}
		}
	}
	return risk, nil
}
