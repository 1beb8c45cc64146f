// Package raster materializes catalog scenes into band stacks and provides
// the grid primitives the index stage computes on. Missing data is always
// NaN, never zero.
package raster

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/Gracey0201/tampa-bay-water-quality/internal/utils"
)

// Grid is one spatial band slice, indexed [y][x]. NaN marks missing pixels.
type Grid [][]float64

// NewGrid allocates a NaN-filled grid.
func NewGrid(height, width int) Grid {
	g := make(Grid, height)
	for y := range g {
		g[y] = make([]float64, width)
		for x := range g[y] {
			g[y][x] = math.NaN()
		}
	}
	return g
}

// Shape returns (height, width).
func (g Grid) Shape() (int, int) {
	if len(g) == 0 {
		return 0, 0
	}
	return len(g), len(g[0])
}

// Clone deep-copies the grid.
func (g Grid) Clone() Grid {
	out := make(Grid, len(g))
	for y, row := range g {
		out[y] = append([]float64(nil), row...)
	}
	return out
}

// SceneSlice is one scene's band grids at its acquisition time. Adjacent
// tiles cut from a single datastrip share the timestamp, so a stack can hold
// several slices with the same time; MosaicByDay merges them.
type SceneSlice struct {
	Time  time.Time
	Grids map[string]Grid
}

// BandStack is a scene × band × y × x array ordered by acquisition time.
// Every slice carries the same band set and spatial shape; the constructor
// enforces it.
type BandStack struct {
	Times  []time.Time
	Bands  []string
	Height int
	Width  int

	slices []map[string]Grid
}

// NewBandStack assembles a stack from per-scene band grids. Slices are
// ordered by acquisition time, keeping the given order among equal
// timestamps.
func NewBandStack(bands []string, height, width int, slices []SceneSlice) (*BandStack, error) {
	if len(slices) == 0 {
		return nil, fmt.Errorf("band stack needs at least one scene slice")
	}

	ordered := append([]SceneSlice(nil), slices...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Time.Before(ordered[j].Time)
	})

	stack := &BandStack{
		Bands:  append([]string(nil), bands...),
		Height: height,
		Width:  width,
	}

	for _, slice := range ordered {
		for _, band := range bands {
			grid, ok := slice.Grids[band]
			if !ok {
				return nil, fmt.Errorf("scene slice %s is missing band %q", slice.Time.Format(time.RFC3339), band)
			}
			h, w := grid.Shape()
			if h != height || w != width {
				return nil, fmt.Errorf("scene slice %s band %q has shape %dx%d, want %dx%d",
					slice.Time.Format(time.RFC3339), band, h, w, height, width)
			}
		}
		stack.Times = append(stack.Times, slice.Time)
		stack.slices = append(stack.slices, slice.Grids)
	}

	return stack, nil
}

// Len returns the number of time steps.
func (s *BandStack) Len() int {
	return len(s.Times)
}

// HasBand reports whether the stack carries the named band.
func (s *BandStack) HasBand(name string) bool {
	for _, b := range s.Bands {
		if b == name {
			return true
		}
	}
	return false
}

// Band returns the grid for a band at time index t.
func (s *BandStack) Band(t int, name string) (Grid, error) {
	if t < 0 || t >= len(s.slices) {
		return nil, fmt.Errorf("time index %d out of range [0,%d)", t, len(s.slices))
	}
	grid, ok := s.slices[t][name]
	if !ok {
		return nil, fmt.Errorf("band %q not in stack", name)
	}
	return grid, nil
}

// MosaicByDay combines same-day scenes into one slice per calendar day by
// per-pixel NaN-aware averaging, preserving band and spatial dimensions. A
// day keeps a pixel as long as any contributing scene observed it.
func (s *BandStack) MosaicByDay() (*BandStack, error) {
	groups := make(map[time.Time][]int)
	for i, ts := range s.Times {
		day := utils.FloorToDay(ts)
		groups[day] = append(groups[day], i)
	}

	mosaicked := make([]SceneSlice, 0, len(groups))
	for _, day := range utils.GetSortedKeys(groups, true) {
		indices := groups[day]
		slice := make(map[string]Grid, len(s.Bands))
		for _, band := range s.Bands {
			if len(indices) == 1 {
				slice[band] = s.slices[indices[0]][band]
				continue
			}
			sum := make([][]float64, s.Height)
			count := make([][]int, s.Height)
			for y := 0; y < s.Height; y++ {
				sum[y] = make([]float64, s.Width)
				count[y] = make([]int, s.Width)
			}
			for _, idx := range indices {
				grid := s.slices[idx][band]
				for y := 0; y < s.Height; y++ {
					for x := 0; x < s.Width; x++ {
						v := grid[y][x]
						if !math.IsNaN(v) {
							sum[y][x] += v
							count[y][x]++
						}
					}
				}
			}
			out := NewGrid(s.Height, s.Width)
			for y := 0; y < s.Height; y++ {
				for x := 0; x < s.Width; x++ {
					if count[y][x] > 0 {
						out[y][x] = sum[y][x] / float64(count[y][x])
					}
				}
			}
			slice[band] = out
		}
		mosaicked = append(mosaicked, SceneSlice{Time: day, Grids: slice})
	}

	return NewBandStack(s.Bands, s.Height, s.Width, mosaicked)
}
