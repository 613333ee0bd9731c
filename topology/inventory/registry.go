package inventory

import (
	"github.com/rs/zerolog/log"

	"netgraph/topology/graph"
)

// Mapper translates one resource kind of a snapshot into graph nodes and
// edges.
type Mapper[S any] interface {
	// Kind names the resource kind this mapper handles
	Kind() string

	// Map adds the kind's nodes and edges to g and returns how many
	// resources it visited
	Map(g *graph.DependencyGraph, snapshot S) int
}

// Registry applies mappers in registration order. Order matters: a later
// mapper overwrites the display attributes of a node an earlier mapper
// created under the same identifier.
type Registry[S any] struct {
	mappers []Mapper[S]
}

// NewRegistry creates an empty registry
func NewRegistry[S any]() *Registry[S] {
	return &Registry[S]{}
}

// Register appends mappers to the end of the application order
func (r *Registry[S]) Register(mappers ...Mapper[S]) {
	r.mappers = append(r.mappers, mappers...)
}

// Kinds returns the registered kinds in application order
func (r *Registry[S]) Kinds() []string {
	kinds := make([]string, 0, len(r.mappers))
	for _, m := range r.mappers {
		kinds = append(kinds, m.Kind())
	}
	return kinds
}

// Build creates a fresh graph and applies every mapper to it
func (r *Registry[S]) Build(snapshot S) *graph.DependencyGraph {
	g := graph.New()
	for _, m := range r.mappers {
		n := m.Map(g, snapshot)
		log.Debug().Str("kind", m.Kind()).Int("resources", n).Msg("Mapped resources")
	}
	return g
}
