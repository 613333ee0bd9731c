// Package render provides the terminal stage of a run: sinks that turn a
// dependency graph into something a person or another tool can read.
package render

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"netgraph/topology/graph"
)

// Renderer consumes a finished graph
type Renderer interface {
	Render(ctx context.Context, g *graph.DependencyGraph) error
}

// Supported output formats
const (
	FormatView  = "view"  // Graphviz image opened in the platform viewer
	FormatImage = "image" // Graphviz image written to disk
	FormatDOT   = "dot"
	FormatJSON  = "json"
)

// Formats lists every format accepted by New
func Formats() []string {
	return []string{FormatView, FormatImage, FormatDOT, FormatJSON}
}

// Options configures the sink created by New
type Options struct {
	// Output is the destination path. Empty means stdout for dot/json and a
	// temporary file for images.
	Output string

	// Layout is the Graphviz engine used for images
	Layout string

	// ImageFormat is the Graphviz output format for images
	ImageFormat string
}

// New creates the sink for a format name
func New(format string, opts Options) (Renderer, error) {
	switch strings.ToLower(format) {
	case FormatView:
		return NewGraphviz(opts.Layout, opts.ImageFormat, opts.Output, true), nil
	case FormatImage:
		return NewGraphviz(opts.Layout, opts.ImageFormat, opts.Output, false), nil
	case FormatDOT:
		return writerSink(opts.Output, func(w io.Writer) Renderer { return &DOT{W: w} }), nil
	case FormatJSON:
		return writerSink(opts.Output, func(w io.Writer) Renderer { return &JSON{W: w} }), nil
	default:
		return nil, fmt.Errorf("unsupported output format %q (supported: %s)",
			format, strings.Join(Formats(), ", "))
	}
}

func writerSink(path string, sink func(io.Writer) Renderer) Renderer {
	if path == "" || path == "-" {
		return sink(os.Stdout)
	}
	return &fileSink{path: path, sink: sink}
}

// fileSink opens its destination only when rendering so a failed fetch
// never leaves an empty file behind.
type fileSink struct {
	path string
	sink func(io.Writer) Renderer
}

func (f *fileSink) Render(ctx context.Context, g *graph.DependencyGraph) error {
	file, err := os.Create(f.path)
	if err != nil {
		return fmt.Errorf("create %s: %w", f.path, err)
	}

	if err := f.sink(file).Render(ctx, g); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
