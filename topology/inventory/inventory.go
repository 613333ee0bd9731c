// Package inventory turns a provider's resource snapshot into a filtered
// dependency graph and hands it to a render sink.
package inventory

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"netgraph/topology/graph"
	"netgraph/topology/render"
)

// DefaultMinDegree drops fully isolated nodes
const DefaultMinDegree = 1

// Provider is implemented once per cloud. S is the provider's snapshot type.
type Provider[S any] interface {
	// Name identifies the provider in logs
	Name() string

	// FetchAll retrieves every resource kind the provider maps
	FetchAll(ctx context.Context) (S, error)

	// BuildGraph applies the provider's mapping rules to a snapshot
	BuildGraph(snapshot S) *graph.DependencyGraph
}

// Options configures a pipeline run
type Options struct {
	MinDegree int
}

// DefaultOptions returns the options used when none are given
func DefaultOptions() Options {
	return Options{MinDegree: DefaultMinDegree}
}

// Run executes fetch, build, filter and render in order. Any failure stops
// the run and is returned unchanged in meaning.
func Run[S any](ctx context.Context, p Provider[S], r render.Renderer, opts Options) error {
	log.Info().Str("provider", p.Name()).Msg("Fetching resources...")
	snapshot, err := p.FetchAll(ctx)
	if err != nil {
		return fmt.Errorf("fetch %s inventory: %w", p.Name(), err)
	}

	g := p.BuildGraph(snapshot)
	log.Info().
		Int("nodes", g.Order()).
		Int("edges", g.Size()).
		Msg("Dependency graph built")

	g.FilterByMinDegree(opts.MinDegree)
	log.Info().
		Int("min_degree", opts.MinDegree).
		Int("nodes", g.Order()).
		Int("edges", g.Size()).
		Msg("Graph filtered")

	if err := r.Render(ctx, g); err != nil {
		return fmt.Errorf("render graph: %w", err)
	}
	return nil
}
