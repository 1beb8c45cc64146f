package delivery

import (
	"context"

	"github.com/Gracey0201/tampa-bay-water-quality/internal/environment"
	"github.com/Gracey0201/tampa-bay-water-quality/internal/log"
	"github.com/Gracey0201/tampa-bay-water-quality/internal/properties"
)

// EnvironmentResult holds whichever environmental series could be fetched.
// A variable every source failed for is simply absent.
type EnvironmentResult struct {
	Series []*environment.Series
}

// buildChains wires the configured source adapters into one fallback chain
// per variable.
func buildChains(cfg *properties.Config) []*environment.Chain {
	env := cfg.Environment
	precip := environment.NewPrecipSource(
		newCatalogClient(cfg.Catalog), env.PrecipCollection, cfg.Catalog.MaxItems)

	return []*environment.Chain{
		environment.NewSSTSources(env),
		environment.NewChain("precip",
			precip,
			environment.NewStationSource(env.StationURL, environment.StationPrecipitation, env.Retries)),
		environment.NewChain("temperature",
			environment.NewStationSource(env.StationURL, environment.StationTemperature, env.Retries)),
	}
}

// RunEnvironment fetches every configured environmental variable over the
// study window. A variable whose sources all fail is logged and dropped;
// the run itself only fails on an invalid window.
func RunEnvironment(ctx context.Context, cfg *properties.Config) (*EnvironmentResult, error) {
	start, end, err := parseWindow(cfg.AOI)
	if err != nil {
		return nil, err
	}
	bbox := cfg.AOI.BBox()

	result := &EnvironmentResult{}
	for _, chain := range buildChains(cfg) {
		series, err := chain.Fetch(ctx, bbox, start, end)
		if err != nil {
			log.Warnw("environmental variable unavailable", "error", err.Error())
			continue
		}
		result.Series = append(result.Series, series)
	}
	return result, nil
}
