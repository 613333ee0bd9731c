package render

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"netgraph/topology/graph"
)

// Document is the JSON representation of a rendered graph
type Document struct {
	Metadata Metadata     `json:"metadata"`
	Nodes    []graph.Node `json:"nodes"`
	Edges    []graph.Edge `json:"edges"`
}

// Metadata describes a Document
type Metadata struct {
	Hash        string    `json:"hash"`
	NodeCount   int       `json:"node_count"`
	EdgeCount   int       `json:"edge_count"`
	GeneratedAt time.Time `json:"generated_at"`
}

// JSON writes the graph as an indented Document
type JSON struct {
	W io.Writer
}

func (j *JSON) Render(_ context.Context, g *graph.DependencyGraph) error {
	edges := g.Edges()
	doc := Document{
		Metadata: Metadata{
			Hash:        g.Hash(),
			NodeCount:   g.Order(),
			EdgeCount:   len(edges),
			GeneratedAt: time.Now().UTC(),
		},
		Nodes: g.Nodes(),
		Edges: edges,
	}

	enc := json.NewEncoder(j.W)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
