// Package environment fetches the environmental time series (sea-surface
// temperature, precipitation, coastal station observations) that the index
// series are analyzed against. Each backend is a Source adapter; the
// pipeline tries sources in a configured priority order and falls back on
// retrieval failure instead of crashing.
package environment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/Gracey0201/tampa-bay-water-quality/internal/log"
)

// ErrRetrieval reports that a source was unreachable or returned no usable
// data for the requested window. A chain recovers from it by moving to the
// next source.
var ErrRetrieval = errors.New("retrieval failure")

// Series is one environmental variable over time. Missing observations are
// NaN.
type Series struct {
	Name   string
	Times  []time.Time
	Values []float64
}

// Source fetches one environmental variable for a bounding box and time
// window.
type Source interface {
	Name() string
	Fetch(ctx context.Context, bbox [4]float64, start, end time.Time) (*Series, error)
}

// Chain tries its sources in order, recovering from retrieval failures.
type Chain struct {
	variable string
	sources  []Source
}

// NewChain builds a fallback chain for the named variable.
func NewChain(variable string, sources ...Source) *Chain {
	return &Chain{variable: variable, sources: sources}
}

// Fetch returns the first source's series that succeeds. When every source
// fails, the window is reported as having no data.
func (c *Chain) Fetch(ctx context.Context, bbox [4]float64, start, end time.Time) (*Series, error) {
	for _, src := range c.sources {
		series, err := src.Fetch(ctx, bbox, start, end)
		if err != nil {
			log.Warnw("environmental source failed, trying next",
				"variable", c.variable,
				"source", src.Name(),
				"start", start.Format(time.DateOnly),
				"end", end.Format(time.DateOnly),
				"error", err.Error())
			continue
		}
		log.Infow("environmental series fetched",
			"variable", c.variable,
			"source", src.Name(),
			"samples", len(series.Times))
		// Downstream joins key on the variable, not on whichever source
		// happened to answer.
		series.Name = c.variable
		return series, nil
	}
	return nil, fmt.Errorf("%w: no data for %s from any configured source", ErrRetrieval, c.variable)
}

// MonthlyMean resamples a series to one value per calendar month, averaging
// the observations that fall inside each month and skipping NaN. Months are
// stamped at their first day.
func MonthlyMean(s *Series) *Series {
	type bucket struct {
		sum   float64
		count int
	}
	buckets := make(map[time.Time]*bucket)
	for i, t := range s.Times {
		v := s.Values[i]
		if math.IsNaN(v) {
			continue
		}
		month := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		b, ok := buckets[month]
		if !ok {
			b = &bucket{}
			buckets[month] = b
		}
		b.sum += v
		b.count++
	}

	months := make([]time.Time, 0, len(buckets))
	for m := range buckets {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	out := &Series{Name: s.Name}
	for _, m := range months {
		b := buckets[m]
		out.Times = append(out.Times, m)
		out.Values = append(out.Values, b.sum/float64(b.count))
	}
	return out
}
