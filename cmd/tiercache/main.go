package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/pario-ai/tiercache/pkg/config"
	"github.com/pario-ai/tiercache/pkg/engine"
)

var version = "dev"

type globalFlags struct {
	configPath string
	debug      bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:           "tiercache",
		Short:         "Inspect and maintain the tiered artifact cache",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "tiercache.yaml", "path to config file")
	root.PersistentFlags().BoolVar(&g.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newCacheCmd(g),
		newReadingsCmd(g),
		newArtifactsCmd(g),
	)
	return root
}

func openEngine(ctx context.Context, g *globalFlags) (*engine.Engine, error) {
	cfg, err := config.LoadOrDefault(g.configPath)
	if err != nil {
		return nil, err
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	if g.debug {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          "tiercache",
		Level:           level,
		ReportTimestamp: true,
	})

	return engine.Open(ctx, cfg, engine.WithLogger(logger))
}
