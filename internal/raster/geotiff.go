package raster

import (
	"fmt"
	"math"
	"strconv"
	"sync"

	"github.com/airbusgeo/godal"
)

// godal wraps a library that is not safe for concurrent reads on shared
// handles, so all dataset access goes through one mutex.
var gdalMu sync.Mutex

// maxGridDim caps the target grid dimensions.
const maxGridDim = 2500

func openDataset(path string) (*godal.Dataset, error) {
	ds, err := godal.Open(path, godal.ErrLogger(func(ec godal.ErrorCategory, code int, msg string) error {
		if ec == godal.CE_Warning {
			return nil
		}
		return fmt.Errorf("gdal error %d: %s", code, msg)
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return ds, nil
}

// TargetGrid projects a WGS84 bounding box into the target spatial reference
// system and derives the pixel dimensions at the requested ground
// resolution. Every scene is placed onto this one grid, so partially
// overlapping tiles line up pixel for pixel.
func TargetGrid(bbox [4]float64, epsg int, resolution float64) (projected [4]float64, height, width int, err error) {
	gdalMu.Lock()
	defer gdalMu.Unlock()

	srcSR, err := godal.NewSpatialRefFromEPSG(4326)
	if err != nil {
		return bbox, 0, 0, fmt.Errorf("failed to create WGS84 reference: %w", err)
	}
	defer srcSR.Close()

	dstSR, err := godal.NewSpatialRefFromEPSG(epsg)
	if err != nil {
		return bbox, 0, 0, fmt.Errorf("failed to create EPSG:%d reference: %w", epsg, err)
	}
	defer dstSR.Close()

	tr, err := godal.NewTransform(srcSR, dstSR)
	if err != nil {
		return bbox, 0, 0, fmt.Errorf("failed to create transform: %w", err)
	}
	defer tr.Close()

	xs := []float64{bbox[0], bbox[2]}
	ys := []float64{bbox[1], bbox[3]}
	if err := tr.TransformEx(xs, ys, nil, nil); err != nil {
		return bbox, 0, 0, fmt.Errorf("transform error: %w", err)
	}

	projected = [4]float64{
		math.Min(xs[0], xs[1]),
		math.Min(ys[0], ys[1]),
		math.Max(xs[0], xs[1]),
		math.Max(ys[0], ys[1]),
	}
	height, width = gridShape(projected, resolution)
	return projected, height, width, nil
}

// gridShape sizes the target grid for a projected bounding box at the given
// resolution in target-SRS units, clamped to a sane ceiling.
func gridShape(projected [4]float64, resolution float64) (height, width int) {
	width = int(math.Ceil((projected[2] - projected[0]) / resolution))
	height = int(math.Ceil((projected[3] - projected[1]) / resolution))
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	if width > maxGridDim {
		width = maxGridDim
	}
	if height > maxGridDim {
		height = maxGridDim
	}
	return height, width
}

// ReadBandOnGrid warps the first raster band of a GeoTIFF onto the common
// target grid: the projected bounding box in the target SRS at height ×
// width pixels. Cells the scene does not cover, and cells carrying the
// band's nodata value, come out as NaN.
func ReadBandOnGrid(path string, target [4]float64, epsg, height, width int) (Grid, error) {
	gdalMu.Lock()
	defer gdalMu.Unlock()

	ds, err := openDataset(path)
	if err != nil {
		return nil, err
	}
	defer ds.Close()

	srcBands := ds.Bands()
	if len(srcBands) == 0 {
		return nil, fmt.Errorf("no raster bands in %s", path)
	}
	nodata, hasNodata := srcBands[0].NoData()

	switches := []string{
		"-of", "MEM",
		"-t_srs", fmt.Sprintf("EPSG:%d", epsg),
		"-te",
		strconv.FormatFloat(target[0], 'f', -1, 64),
		strconv.FormatFloat(target[1], 'f', -1, 64),
		strconv.FormatFloat(target[2], 'f', -1, 64),
		strconv.FormatFloat(target[3], 'f', -1, 64),
		"-ts", strconv.Itoa(width), strconv.Itoa(height),
		"-r", "near",
		"-ot", "Float64",
		"-dstnodata", "nan",
	}
	if hasNodata {
		switches = append(switches, "-srcnodata", strconv.FormatFloat(nodata, 'f', -1, 64))
	}

	warped, err := ds.Warp("", switches)
	if err != nil {
		return nil, fmt.Errorf("failed to warp %s onto the target grid: %w", path, err)
	}
	defer warped.Close()

	bands := warped.Bands()
	if len(bands) == 0 {
		return nil, fmt.Errorf("warp produced no bands for %s", path)
	}
	buf := make([]float64, width*height)
	if err := bands[0].Read(0, 0, buf, width, height); err != nil {
		return nil, fmt.Errorf("failed to read warped band: %w", err)
	}
	sanitize(buf, nodata, hasNodata)

	out := make(Grid, height)
	for y := 0; y < height; y++ {
		out[y] = buf[y*width : (y+1)*width]
	}
	return out, nil
}

// sanitize maps nodata samples and non-finite values to NaN in place. A
// nodata fill must never enter a grid as a real reflectance.
func sanitize(buf []float64, nodata float64, hasNodata bool) {
	for i, v := range buf {
		if math.IsInf(v, 0) || (hasNodata && v == nodata) {
			buf[i] = math.NaN()
		}
	}
}
