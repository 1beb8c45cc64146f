package raster

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/schollz/progressbar/v3"

	"github.com/Gracey0201/tampa-bay-water-quality/internal/cache"
	"github.com/Gracey0201/tampa-bay-water-quality/internal/catalog"
	"github.com/Gracey0201/tampa-bay-water-quality/internal/log"
)

const downloadWorkers = 4

// Loader materializes catalog scenes into a BandStack. Downloading is the
// only network step; opening and reading the rasters happens locally against
// the asset cache. Load is the single materialization point of the pipeline:
// callers receive concrete pixel values, nothing downstream re-reads assets.
type Loader struct {
	// Bands is the asset selection; every requested index's inputs plus
	// the classification band must be listed here.
	Bands []string
	// BBox is the target window in WGS84.
	BBox [4]float64
	// EPSG is the target spatial reference system every scene is warped
	// into.
	EPSG int
	// Resolution is the target ground resolution in target-SRS units.
	Resolution float64

	httpClient *http.Client
	retries    int
}

// NewLoader creates a loader for the given band selection.
func NewLoader(bands []string, bbox [4]float64, epsg int, resolution float64) *Loader {
	return &Loader{
		Bands:      append([]string(nil), bands...),
		BBox:       bbox,
		EPSG:       epsg,
		Resolution: resolution,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		retries:    3,
	}
}

type assetJob struct {
	sceneID string
	band    string
	href    string
}

// Load downloads every scene's selected band assets and reads them into a
// stack. Scenes missing a selected asset contribute a NaN grid for that band
// and are logged; whether that sinks an index is decided by the index stage.
func (l *Loader) Load(ctx context.Context, scenes []*catalog.Scene) (*BandStack, error) {
	if len(scenes) == 0 {
		return nil, catalog.ErrNoScenes
	}

	assetDir, err := cache.BlobDir("assets")
	if err != nil {
		return nil, err
	}

	target, height, width, err := TargetGrid(l.BBox, l.EPSG, l.Resolution)
	if err != nil {
		return nil, fmt.Errorf("deriving the target grid: %w", err)
	}

	var jobs []assetJob
	for _, scene := range scenes {
		for _, band := range l.Bands {
			href, ok := scene.Assets[band]
			if !ok {
				log.Warnw("scene is missing a selected asset",
					"scene", scene.ID, "band", band)
				continue
			}
			jobs = append(jobs, assetJob{sceneID: scene.ID, band: band, href: href})
		}
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("none of the %d scenes carry any of the selected bands %v", len(scenes), l.Bands)
	}

	paths := make(map[assetJob]string, len(jobs))
	errs := make(map[assetJob]error)
	var mu sync.Mutex

	bar := progressbar.Default(int64(len(jobs)), "Downloading band assets")
	pool := workerpool.New(downloadWorkers)
	for _, job := range jobs {
		job := job
		pool.Submit(func() {
			path, err := l.fetchAsset(ctx, assetDir, job)
			mu.Lock()
			if err != nil {
				errs[job] = err
			} else {
				paths[job] = path
			}
			mu.Unlock()
			bar.Add(1)
		})
	}
	pool.StopWait()
	bar.Finish()

	for job, err := range errs {
		log.Errorw("asset download failed",
			"scene", job.sceneID, "band", job.band, "error", err.Error())
	}

	// One slice per scene. Adjacent tiles share an acquisition second and
	// each covers part of the grid; the day mosaic merges them.
	slices := make([]SceneSlice, 0, len(scenes))
	for _, scene := range scenes {
		grids := make(map[string]Grid, len(l.Bands))
		for _, band := range l.Bands {
			path, ok := paths[assetJob{sceneID: scene.ID, band: band, href: scene.Assets[band]}]
			if !ok {
				grids[band] = NewGrid(height, width)
				continue
			}
			grid, err := ReadBandOnGrid(path, target, l.EPSG, height, width)
			if err != nil {
				log.Errorw("failed to read band asset",
					"scene", scene.ID, "band", band, "error", err.Error())
				grids[band] = NewGrid(height, width)
				continue
			}
			grids[band] = grid
		}
		slices = append(slices, SceneSlice{Time: scene.Time, Grids: grids})
	}

	return NewBandStack(l.Bands, height, width, slices)
}

// fetchAsset downloads one band asset into the cache, reusing a prior
// download when present.
func (l *Loader) fetchAsset(ctx context.Context, assetDir string, job assetJob) (string, error) {
	key := cache.BlobKey(job.sceneID, job.band, job.href)
	path := filepath.Join(assetDir, key+".tif")
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	var lastErr error
	for attempt := 1; attempt <= l.retries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, job.href, nil)
		if err != nil {
			return "", fmt.Errorf("failed to create request: %w", err)
		}
		resp, err := l.httpClient.Do(req)
		if err != nil {
			lastErr = err
			time.Sleep(2 * time.Second)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("asset fetch returned status %d", resp.StatusCode)
			time.Sleep(2 * time.Second)
			continue
		}

		tmp := path + ".tmp"
		f, err := os.Create(tmp)
		if err != nil {
			resp.Body.Close()
			return "", fmt.Errorf("failed to create asset file: %w", err)
		}
		_, copyErr := io.Copy(f, resp.Body)
		resp.Body.Close()
		f.Close()
		if copyErr != nil {
			os.Remove(tmp)
			lastErr = copyErr
			continue
		}
		if err := os.Rename(tmp, path); err != nil {
			os.Remove(tmp)
			return "", fmt.Errorf("failed to move asset into cache: %w", err)
		}
		return path, nil
	}
	return "", fmt.Errorf("failed to fetch asset after %d attempts: %w", l.retries, lastErr)
}
