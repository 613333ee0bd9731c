package render

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/rs/zerolog/log"

	ngerrors "netgraph/pkg/errors"
	"netgraph/pkg/platform"
	"netgraph/topology/graph"
)

// Graphviz defaults. neato is a spring-model layout.
const (
	DefaultLayout      = "neato"
	DefaultImageFormat = "svg"
)

type commandRunner func(ctx context.Context, name string, args ...string) error

// Graphviz lays the graph out with a Graphviz engine, writes the image and
// optionally opens it in the platform viewer.
type Graphviz struct {
	Layout string
	Format string
	Output string
	Open   bool

	// Viewer overrides the platform opener (NETGRAPH_VIEWER)
	Viewer string

	run commandRunner
}

// NewGraphviz creates a Graphviz sink. Empty layout and format select the
// defaults; an empty output selects a temporary file.
func NewGraphviz(layout, format, output string, open bool) *Graphviz {
	if layout == "" {
		layout = DefaultLayout
	}
	if format == "" {
		format = DefaultImageFormat
	}
	return &Graphviz{
		Layout: layout,
		Format: format,
		Output: output,
		Open:   open,
		Viewer: platform.GetEnv("NETGRAPH_VIEWER", ""),
		run:    execCommand,
	}
}

func (r *Graphviz) Render(ctx context.Context, g *graph.DependencyGraph) error {
	dotFile, err := os.CreateTemp("", "netgraph-*.dot")
	if err != nil {
		return ngerrors.NewRenderError("graphviz", err)
	}
	defer os.Remove(dotFile.Name())

	if err := (&DOT{W: dotFile}).Render(ctx, g); err != nil {
		dotFile.Close()
		return ngerrors.NewRenderError("graphviz", err)
	}
	if err := dotFile.Close(); err != nil {
		return ngerrors.NewRenderError("graphviz", err)
	}

	output := r.Output
	temporary := output == ""
	if temporary {
		f, err := os.CreateTemp("", "netgraph-*."+r.Format)
		if err != nil {
			return ngerrors.NewRenderError("graphviz", err)
		}
		output = f.Name()
		f.Close()
	}

	if err := r.run(ctx, r.Layout, "-T"+r.Format, dotFile.Name(), "-o", output); err != nil {
		if temporary {
			os.Remove(output)
		}
		return ngerrors.NewRenderError("graphviz", fmt.Errorf("%s layout: %w", r.Layout, err))
	}
	log.Info().Str("path", output).Str("layout", r.Layout).Msg("Graph rendered")

	if !r.Open {
		return nil
	}

	name, args := viewerCommand(r.Viewer, output)
	if err := r.run(ctx, name, args...); err != nil {
		return ngerrors.NewRenderError("viewer", fmt.Errorf("open %s: %w", output, err))
	}
	return nil
}

func viewerCommand(viewer, path string) (string, []string) {
	if viewer != "" {
		return viewer, []string{path}
	}

	switch runtime.GOOS {
	case "darwin":
		return "open", []string{path}
	case "windows":
		return "cmd", []string{"/c", "start", "", path}
	default:
		return "xdg-open", []string{path}
	}
}

func execCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = os.Stderr
	cmd.Stdout = os.Stdout
	return cmd.Run()
}
