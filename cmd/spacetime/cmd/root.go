// Package cmd provides the CLI commands for the spacetime engine.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	spacetime "github.com/lcarter9000/spacetimeengine"
	"github.com/lcarter9000/spacetimeengine/catalog"
	"github.com/lcarter9000/spacetimeengine/internal/config"
	"github.com/lcarter9000/spacetimeengine/internal/logging"
	"github.com/lcarter9000/spacetimeengine/symbolic"
)

// app is the state shared by every subcommand, filled in by the root
// command's pre-run hook.
type app struct {
	configPath string
	logLevel   string
	metricFile string

	cfg     *config.Config
	logger  *slog.Logger
	cleanup func()
	catalog *catalog.Catalog
	kernel  *symbolic.Kernel
}

// NewRootCmd creates the root command for the spacetime CLI.
func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "spacetime",
		Short: "Symbolic curvature tensors of a spacetime metric",
		Long: `spacetime derives the Christoffel symbols, Riemann, Ricci, Einstein,
Schouten and Weyl tensors, the stress-energy tensor and the geodesic
equations of a metric, symbolically and with exact arithmetic.

Metrics come from the built-in catalog or a YAML file given by
--metric-file or metric_file in the configuration.`,
		SilenceUsage:       true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to a YAML run configuration")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	cmd.PersistentFlags().StringVar(&a.metricFile, "metric-file", "", "YAML catalog of additional metrics")

	cmd.AddCommand(newListCmd(a))
	cmd.AddCommand(newComputeCmd(a))
	cmd.AddCommand(newSampleCmd(a))

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().ExecuteContext(context.Background())
}

func (a *app) setup(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.metricFile != "" {
		cfg.MetricFile = a.metricFile
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, cleanup, err := logging.Setup(cfg.Logging)
	if err != nil {
		return err
	}
	cat := catalog.New()
	if cfg.MetricFile != "" {
		if err := cat.LoadFile(cfg.MetricFile); err != nil {
			cleanup()
			return err
		}
	}
	kernel, err := symbolic.NewKernel(cfg.CacheSize)
	if err != nil {
		cleanup()
		return err
	}

	a.cfg, a.logger, a.cleanup, a.catalog, a.kernel = cfg, logger, cleanup, cat, kernel
	return nil
}

func (a *app) teardown(_ *cobra.Command, _ []string) error {
	if a.cleanup != nil {
		a.cleanup()
	}
	return nil
}

// spacetime builds the named catalog metric, or the configured one when name
// is empty, with the run configuration applied.
func (a *app) spacetime(name string) (*spacetime.Spacetime, error) {
	if name == "" {
		name = a.cfg.Metric
	}
	m, err := a.catalog.Get(name)
	if err != nil {
		return nil, err
	}
	lambda, err := a.cfg.Lambda()
	if err != nil {
		return nil, err
	}
	return m.Spacetime(
		spacetime.WithLogger(a.logger.With("metric", name)),
		spacetime.WithAlgebra(a.kernel),
		spacetime.WithWorkers(a.cfg.Workers),
		spacetime.WithCosmologicalConstant(lambda),
		spacetime.WithProperTime(a.cfg.ProperTime),
		spacetime.WithSeparationPrefix(a.cfg.SeparationPrefix),
	)
}

// parseTarget reads "kind" or "kind:config", e.g. "christoffel:ddd".
func parseTarget(s string) (spacetime.Kind, spacetime.IndexConfig, error) {
	name, cfg, hasCfg := strings.Cut(s, ":")
	kind, err := spacetime.ParseKind(name)
	if err != nil {
		return 0, "", err
	}
	if !hasCfg {
		return kind, kind.DefaultConfig(), nil
	}
	c := spacetime.ParseIndexConfig(cfg)
	if !kind.Supports(c) {
		return 0, "", fmt.Errorf("%w: %s does not support %q (supported: %v)",
			spacetime.ErrInvalidConfiguration, kind, cfg, kind.Configs())
	}
	return kind, c, nil
}
