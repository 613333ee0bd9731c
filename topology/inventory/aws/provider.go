package aws

import (
	"context"

	"netgraph/topology/graph"
	"netgraph/topology/inventory"
)

// Provider implements inventory.Provider for EC2 networking in one region
type Provider struct {
	fetcher  *Fetcher
	region   string
	registry *inventory.Registry[*Snapshot]
}

var _ inventory.Provider[*Snapshot] = (*Provider)(nil)

// NewProvider creates an EC2 provider with every mapper registered
func NewProvider(client EC2API, region string) *Provider {
	registry := inventory.NewRegistry[*Snapshot]()
	RegisterAllMappers(registry)

	return &Provider{
		fetcher:  NewFetcher(client),
		region:   region,
		registry: registry,
	}
}

func (p *Provider) Name() string { return providerName }

func (p *Provider) FetchAll(ctx context.Context) (*Snapshot, error) {
	return p.fetcher.FetchAll(ctx, p.region)
}

func (p *Provider) BuildGraph(snapshot *Snapshot) *graph.DependencyGraph {
	return p.registry.Build(snapshot)
}

// Kinds returns the mapped resource kinds in mapping order
func (p *Provider) Kinds() []string {
	return p.registry.Kinds()
}
