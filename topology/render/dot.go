package render

import (
	"context"
	"fmt"
	"io"
	"strings"

	dgraph "github.com/dominikbraun/graph"
	"github.com/dominikbraun/graph/draw"

	"netgraph/topology/graph"
)

// EdgeColor is the uniform color of every edge
const EdgeColor = "grey"

// DOT writes the graph as an undirected Graphviz document. Nodes carry
// their color, style and label; edges are uniformly grey.
type DOT struct {
	W io.Writer
}

func (d *DOT) Render(_ context.Context, g *graph.DependencyGraph) error {
	display, err := displayGraph(g)
	if err != nil {
		return err
	}

	if err := draw.DOT(display, d.W,
		draw.GraphAttribute("overlap", "false"),
		draw.GraphAttribute("fontsize", "8"),
	); err != nil {
		return fmt.Errorf("write dot: %w", err)
	}
	return nil
}

// displayGraph copies g into a graph whose vertices and edges carry
// Graphviz attributes.
func displayGraph(g *graph.DependencyGraph) (dgraph.Graph[string, string], error) {
	display := dgraph.New(dgraph.StringHash)

	for _, n := range g.Nodes() {
		id := dotEscape(n.Name)
		err := display.AddVertex(id,
			dgraph.VertexAttribute("label", id),
			dgraph.VertexAttribute("color", n.Color),
			dgraph.VertexAttribute("style", n.Style),
		)
		if err != nil {
			return nil, fmt.Errorf("add vertex %s: %w", n.Name, err)
		}
	}

	for _, e := range g.Edges() {
		source, target := dotEscape(e.Source), dotEscape(e.Target)
		if err := display.AddEdge(source, target, dgraph.EdgeAttribute("color", EdgeColor)); err != nil {
			return nil, fmt.Errorf("add edge %s -- %s: %w", e.Source, e.Target, err)
		}
	}

	return display, nil
}

// dotEscaper makes a name safe inside the double-quoted ids and attribute
// values that draw.DOT emits.
var dotEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func dotEscape(s string) string {
	return dotEscaper.Replace(s)
}
