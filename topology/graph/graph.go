// Package graph provides the undirected resource graph that network
// topology is collected into before it is filtered and rendered.
package graph

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/dominikbraun/graph"
)

const (
	// DefaultColor is applied to nodes created without explicit attributes,
	// including endpoints created implicitly by AddEdge.
	DefaultColor = "lightgrey"

	// DefaultStyle is the display style applied to every node by default
	DefaultStyle = "filled"

	// delimiter is the reserved character that never appears in node names
	delimiter = ":"
)

// Node holds the display attributes of a single resource
type Node struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Style string `json:"style"`
}

// Edge is an unordered pair of node names. Source always sorts before or
// equal to Target.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// NodeOption customises a node on insertion
type NodeOption func(*Node)

// WithColor sets the node display color
func WithColor(color string) NodeOption {
	return func(n *Node) {
		n.Color = color
	}
}

// WithStyle sets the node display style
func WithStyle(style string) NodeOption {
	return func(n *Node) {
		n.Style = style
	}
}

// DependencyGraph is an undirected simple graph keyed by sanitized resource
// identifiers. Structure lives in the underlying dominikbraun/graph store;
// display attributes are tracked alongside so they can be overwritten.
type DependencyGraph struct {
	g     graph.Graph[string, string]
	nodes map[string]*Node

	// adj caches the store's adjacency map until the next structural change
	adj map[string]map[string]graph.Edge[string]
}

// New creates an empty dependency graph
func New() *DependencyGraph {
	return &DependencyGraph{
		g:     graph.New(graph.StringHash),
		nodes: make(map[string]*Node),
	}
}

// Sanitize replaces every occurrence of the reserved delimiter with an
// underscore.
func Sanitize(name string) string {
	return strings.ReplaceAll(name, delimiter, "_")
}

// AddNode inserts a node or updates the attributes of an existing one.
// The last write wins for color and style.
func (d *DependencyGraph) AddNode(name string, opts ...NodeOption) {
	node := &Node{
		Name:  Sanitize(name),
		Color: DefaultColor,
		Style: DefaultStyle,
	}
	for _, opt := range opts {
		opt(node)
	}

	d.ensureVertex(node.Name)
	d.nodes[node.Name] = node
}

// AddEdge connects two nodes, creating either endpoint with default
// attributes when absent. Inserting an existing pair in either order is a
// no-op. A self-loop is stored as a single edge.
func (d *DependencyGraph) AddEdge(a, b string) {
	a, b = Sanitize(a), Sanitize(b)

	for _, name := range []string{a, b} {
		if _, ok := d.nodes[name]; !ok {
			d.AddNode(name)
		}
	}

	err := d.g.AddEdge(a, b)
	if errors.Is(err, graph.ErrEdgeAlreadyExists) {
		return
	}
	if err != nil {
		// Both endpoints were created above, so the store cannot reject the edge
		panic(fmt.Sprintf("graph: adding edge %s -- %s: %v", a, b, err))
	}
	d.adj = nil
}

// FilterByMinDegree replaces the graph with the subgraph induced by the
// nodes whose degree is at least minDegree.
func (d *DependencyGraph) FilterByMinDegree(minDegree int) {
	adjacency := d.adjacency()

	kept := New()
	for name, neighbours := range adjacency {
		if len(neighbours) < minDegree {
			continue
		}
		node := *d.nodes[name]
		kept.nodes[name] = &node
		kept.ensureVertex(name)
	}

	for _, e := range d.Edges() {
		_, okSource := kept.nodes[e.Source]
		_, okTarget := kept.nodes[e.Target]
		if okSource && okTarget {
			kept.AddEdge(e.Source, e.Target)
		}
	}

	d.g = kept.g
	d.nodes = kept.nodes
	d.adj = nil
}

// HasNode reports whether a node with the given (raw or sanitized) name exists
func (d *DependencyGraph) HasNode(name string) bool {
	_, ok := d.nodes[Sanitize(name)]
	return ok
}

// Node returns the attributes of a node
func (d *DependencyGraph) Node(name string) (Node, bool) {
	n, ok := d.nodes[Sanitize(name)]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// HasEdge reports whether a and b are adjacent, regardless of order
func (d *DependencyGraph) HasEdge(a, b string) bool {
	_, err := d.g.Edge(Sanitize(a), Sanitize(b))
	return err == nil
}

// Neighbors returns the sorted names adjacent to the given node
func (d *DependencyGraph) Neighbors(name string) []string {
	neighbours := d.adjacency()[Sanitize(name)]
	result := make([]string, 0, len(neighbours))
	for n := range neighbours {
		result = append(result, n)
	}
	sort.Strings(result)
	return result
}

// Degree returns the number of distinct edges incident to the node.
// A self-loop counts once.
func (d *DependencyGraph) Degree(name string) int {
	return len(d.adjacency()[Sanitize(name)])
}

// Nodes returns all nodes sorted by name
func (d *DependencyGraph) Nodes() []Node {
	result := make([]Node, 0, len(d.nodes))
	for _, n := range d.nodes {
		result = append(result, *n)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// Edges returns every edge once, in canonical orientation, sorted
func (d *DependencyGraph) Edges() []Edge {
	seen := make(map[Edge]struct{})
	result := make([]Edge, 0)

	for source, neighbours := range d.adjacency() {
		for target := range neighbours {
			e := canonical(source, target)
			if _, ok := seen[e]; ok {
				continue
			}
			seen[e] = struct{}{}
			result = append(result, e)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Source != result[j].Source {
			return result[i].Source < result[j].Source
		}
		return result[i].Target < result[j].Target
	})
	return result
}

// Order returns the number of nodes
func (d *DependencyGraph) Order() int {
	return len(d.nodes)
}

// Size returns the number of edges
func (d *DependencyGraph) Size() int {
	return len(d.Edges())
}

// Hash computes a content hash over nodes, attributes and edges. Two graphs
// with the same content hash identically regardless of insertion order.
func (d *DependencyGraph) Hash() string {
	h := xxhash.New()
	for _, n := range d.Nodes() {
		_, _ = h.WriteString(n.Name + "|" + n.Color + "|" + n.Style + "\n")
	}
	for _, e := range d.Edges() {
		_, _ = h.WriteString(e.Source + "--" + e.Target + "\n")
	}
	return fmt.Sprintf("%x", h.Sum64())
}

// String returns a summary of the graph
func (d *DependencyGraph) String() string {
	return fmt.Sprintf("DependencyGraph: %d nodes, %d edges", d.Order(), d.Size())
}

func (d *DependencyGraph) ensureVertex(name string) {
	err := d.g.AddVertex(name)
	if errors.Is(err, graph.ErrVertexAlreadyExists) {
		return
	}
	if err != nil {
		panic(fmt.Sprintf("graph: adding vertex %s: %v", name, err))
	}
	d.adj = nil
}

// adjacency returns the cached adjacency map, rebuilding it after changes.
// Callers must not modify it.
func (d *DependencyGraph) adjacency() map[string]map[string]graph.Edge[string] {
	if d.adj != nil {
		return d.adj
	}

	adjacency, err := d.g.AdjacencyMap()
	if err != nil {
		// The in-memory store never fails to list
		panic(fmt.Sprintf("graph: building adjacency map: %v", err))
	}
	d.adj = adjacency
	return adjacency
}

func canonical(a, b string) Edge {
	if b < a {
		a, b = b, a
	}
	return Edge{Source: a, Target: b}
}
