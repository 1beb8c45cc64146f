// Package wqi computes the water-quality spectral indices (NDWI, NDTI,
// NDCI) from a materialized band stack, with optional per-pixel cloud and
// validity masking from the scene classification band.
package wqi

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Gracey0201/tampa-bay-water-quality/internal/log"
	"github.com/Gracey0201/tampa-bay-water-quality/internal/raster"
)

// Epsilon is added to the normalized-difference denominator purely for
// numerical stability against exact zero denominators. It is far below any
// realistic reflectance magnitude and is not a physical correction.
const Epsilon = 1e-10

// ErrMissingBand reports that the stack does not carry a band an index
// needs. It is a configuration error for that index only.
var ErrMissingBand = errors.New("required band not in stack")

// SCLBand is the Sentinel-2 scene classification asset name.
const SCLBand = "scl"

// Scene classification codes excluded under the default policy: cloud
// shadow plus the three cloud-confidence classes.
var invalidSCLClasses = map[int]bool{3: true, 8: true, 9: true, 10: true}

// Scene classification codes kept under the strict water-only policy.
var waterSCLClasses = map[int]bool{6: true}

// MaskPolicy selects which classification codes survive masking.
type MaskPolicy string

const (
	// MaskInvalid drops cloud-shadow and cloud classes.
	MaskInvalid MaskPolicy = "invalid"
	// MaskWaterOnly keeps only the explicit water class.
	MaskWaterOnly MaskPolicy = "water"
)

// Definition names a normalized-difference index and its band pair.
type Definition struct {
	Name string
	A, B string
}

// Definitions returns the study's three indices. The red-edge asset is
// configurable because the provider exposes several red-edge bands.
func Definitions(redEdgeAsset string) []Definition {
	return []Definition{
		{Name: "ndwi", A: "green", B: "nir"},
		{Name: "ndti", A: "red", B: "green"},
		{Name: "ndci", A: redEdgeAsset, B: "red"},
	}
}

// RequiredBands returns the union of bands the given definitions need, plus
// the classification band when masking is requested.
func RequiredBands(defs []Definition, filterClouds bool) []string {
	seen := map[string]bool{}
	var bands []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			bands = append(bands, name)
		}
	}
	for _, def := range defs {
		add(def.A)
		add(def.B)
	}
	if filterClouds {
		add(SCLBand)
	}
	return bands
}

// NormalizedDiff computes (a-b)/(a+b+ε) elementwise. Pixels missing in
// either input, and any residual non-finite result, come out as NaN.
func NormalizedDiff(a, b raster.Grid) raster.Grid {
	h, w := a.Shape()
	out := make(raster.Grid, h)
	for y := 0; y < h; y++ {
		out[y] = make([]float64, w)
		for x := 0; x < w; x++ {
			av, bv := a[y][x], b[y][x]
			v := (av - bv) / (av + bv + Epsilon)
			if math.IsNaN(av) || math.IsNaN(bv) || math.IsInf(v, 0) || math.IsNaN(v) {
				v = math.NaN()
			}
			out[y][x] = v
		}
	}
	return out
}

// validMask derives the per-pixel keep/drop mask from a classification
// grid. A pixel whose class value is itself missing is dropped.
func validMask(scl raster.Grid, policy MaskPolicy) [][]bool {
	h, w := scl.Shape()
	mask := make([][]bool, h)
	for y := 0; y < h; y++ {
		mask[y] = make([]bool, w)
		for x := 0; x < w; x++ {
			v := scl[y][x]
			if math.IsNaN(v) {
				continue
			}
			class := int(v)
			switch policy {
			case MaskWaterOnly:
				mask[y][x] = waterSCLClasses[class]
			default:
				mask[y][x] = !invalidSCLClasses[class]
			}
		}
	}
	return mask
}

// applyMask sets every masked-out pixel to NaN, in place.
func applyMask(index raster.Grid, mask [][]bool) {
	h, w := index.Shape()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !mask[y][x] {
				index[y][x] = math.NaN()
			}
		}
	}
}

// Options configures a Compute run.
type Options struct {
	FilterClouds bool
	Policy       MaskPolicy
	// MosaicSameDay averages same-day scenes per pixel before the index
	// computation.
	MosaicSameDay bool
}

// Cube holds the per-time-step spatial index arrays for every index that
// could be computed, plus the per-index configuration failures.
type Cube struct {
	Times  []time.Time
	Grids  map[string][]raster.Grid
	Failed map[string]error
	Height int
	Width  int
}

// maskedStack applies each scene's own classification grid to its band
// grids, dropping masked pixels to NaN. The classification band does not
// survive into the result: class codes are categorical and must never be
// averaged by a later mosaic.
func maskedStack(stack *raster.BandStack, policy MaskPolicy) (*raster.BandStack, error) {
	var bands []string
	for _, band := range stack.Bands {
		if band != SCLBand {
			bands = append(bands, band)
		}
	}

	slices := make([]raster.SceneSlice, 0, stack.Len())
	for t := 0; t < stack.Len(); t++ {
		scl, err := stack.Band(t, SCLBand)
		if err != nil {
			return nil, err
		}
		mask := validMask(scl, policy)

		grids := make(map[string]raster.Grid, len(bands))
		for _, band := range bands {
			g, err := stack.Band(t, band)
			if err != nil {
				return nil, err
			}
			masked := g.Clone()
			applyMask(masked, mask)
			grids[band] = masked
		}
		slices = append(slices, raster.SceneSlice{Time: stack.Times[t], Grids: grids})
	}

	return raster.NewBandStack(bands, stack.Height, stack.Width, slices)
}

// Compute derives the requested indices from the stack. Masking happens per
// scene, before any same-day mosaicking: a pixel one scene saw as cloud is
// dropped from that scene only, and a same-day scene that observed it
// cloud-free still contributes. An index whose band is absent fails alone;
// the others still compute. The returned error is non-nil only when no
// index could be computed at all.
func Compute(stack *raster.BandStack, defs []Definition, opts Options) (*Cube, error) {
	if opts.FilterClouds {
		if !stack.HasBand(SCLBand) {
			return nil, fmt.Errorf("cloud filtering requested but %w: %s", ErrMissingBand, SCLBand)
		}
		var err error
		stack, err = maskedStack(stack, opts.Policy)
		if err != nil {
			return nil, fmt.Errorf("classification masking failed: %w", err)
		}
	}
	if opts.MosaicSameDay {
		var err error
		stack, err = stack.MosaicByDay()
		if err != nil {
			return nil, fmt.Errorf("same-day mosaicking failed: %w", err)
		}
	}

	cube := &Cube{
		Times:  stack.Times,
		Grids:  make(map[string][]raster.Grid, len(defs)),
		Failed: make(map[string]error),
		Height: stack.Height,
		Width:  stack.Width,
	}

	for _, def := range defs {
		if !stack.HasBand(def.A) {
			cube.Failed[def.Name] = fmt.Errorf("index %s: %w: %s", def.Name, ErrMissingBand, def.A)
			continue
		}
		if !stack.HasBand(def.B) {
			cube.Failed[def.Name] = fmt.Errorf("index %s: %w: %s", def.Name, ErrMissingBand, def.B)
			continue
		}
		cube.Grids[def.Name] = make([]raster.Grid, stack.Len())
	}

	for name, err := range cube.Failed {
		log.Errorw("index skipped", "index", name, "error", err.Error())
	}
	if len(cube.Grids) == 0 {
		return nil, fmt.Errorf("no computable index: every requested index is missing a band")
	}

	for t := 0; t < stack.Len(); t++ {
		for _, def := range defs {
			if _, failed := cube.Failed[def.Name]; failed {
				continue
			}
			a, err := stack.Band(t, def.A)
			if err != nil {
				return nil, err
			}
			b, err := stack.Band(t, def.B)
			if err != nil {
				return nil, err
			}
			cube.Grids[def.Name][t] = NormalizedDiff(a, b)
		}
	}

	return cube, nil
}
