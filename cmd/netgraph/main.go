// netgraph - AWS network inventory as a dependency graph
//
// Usage:
//
//	netgraph [--region eu-west-1] [--format view|image|dot|json] [options]
//	netgraph kinds
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"netgraph/pkg/platform"
	"netgraph/topology/inventory"
	awsinv "netgraph/topology/inventory/aws"
	"netgraph/topology/render"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := platform.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: load .env: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		stop()
		platform.LogFatal("netgraph failed", err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "netgraph",
		Usage:   "Render the EC2 network inventory of a region as a dependency graph",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "region",
				Usage:   "AWS region (default: SDK resolution chain)",
				EnvVars: []string{"AWS_REGION"},
			},
			&cli.StringFlag{
				Name:    "profile",
				Usage:   "Shared config profile",
				EnvVars: []string{"AWS_PROFILE"},
			},
			&cli.IntFlag{
				Name:    "min-degree",
				Value:   inventory.DefaultMinDegree,
				Usage:   "Drop nodes with fewer incident edges",
				EnvVars: []string{"NETGRAPH_MIN_DEGREE"},
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   render.FormatView,
				Usage:   "Output format (view, image, dot, json)",
				EnvVars: []string{"NETGRAPH_FORMAT"},
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output path (default: stdout for dot/json, temp file for images)",
				EnvVars: []string{"NETGRAPH_OUTPUT"},
			},
			&cli.StringFlag{
				Name:    "layout",
				Value:   render.DefaultLayout,
				Usage:   "Graphviz layout engine",
				EnvVars: []string{"NETGRAPH_LAYOUT"},
			},
			&cli.StringFlag{
				Name:    "image-format",
				Value:   render.DefaultImageFormat,
				Usage:   "Graphviz image format (svg, png, pdf)",
				EnvVars: []string{"NETGRAPH_IMAGE_FORMAT"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"NETGRAPH_LOG_LEVEL"},
			},
		},

		Before: func(c *cli.Context) error {
			logger := platform.InitLogger(c.String("log-level"))
			logger.Debug().Str("version", version).Msg("Logger initialized")
			return nil
		},

		Action: runGraph,

		Commands: []*cli.Command{
			kindsCommand(),
		},
	}
}

// =============================================================================
// GRAPH (default action)
// =============================================================================

func runGraph(c *cli.Context) error {
	minDegree := c.Int("min-degree")
	if minDegree < 0 {
		return fmt.Errorf("min-degree must be >= 0, got %d", minDegree)
	}

	renderer, err := render.New(c.String("format"), render.Options{
		Output:      c.String("output"),
		Layout:      c.String("layout"),
		ImageFormat: c.String("image-format"),
	})
	if err != nil {
		return err
	}

	var loadOpts []func(*config.LoadOptions) error
	if region := c.String("region"); region != "" {
		loadOpts = append(loadOpts, config.WithRegion(region))
	}
	if profile := c.String("profile"); profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(profile))
	}

	cfg, err := config.LoadDefaultConfig(c.Context, loadOpts...)
	if err != nil {
		return fmt.Errorf("load AWS config: %w", err)
	}
	if cfg.Region == "" {
		return fmt.Errorf("no AWS region configured: set --region or AWS_REGION")
	}

	provider := awsinv.NewProvider(ec2.NewFromConfig(cfg), cfg.Region)
	log.Info().Str("region", cfg.Region).Str("format", c.String("format")).Msg("Starting netgraph")

	return inventory.Run[*awsinv.Snapshot](c.Context, provider, renderer, inventory.Options{
		MinDegree: minDegree,
	})
}

// =============================================================================
// KINDS COMMAND
// =============================================================================

func kindsCommand() *cli.Command {
	return &cli.Command{
		Name:  "kinds",
		Usage: "List the mapped resource kinds in mapping order",
		Action: func(c *cli.Context) error {
			for _, kind := range awsinv.NewProvider(nil, "").Kinds() {
				fmt.Fprintln(c.App.Writer, kind)
			}
			return nil
		},
	}
}
