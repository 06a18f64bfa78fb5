// Command mcp-server exposes the tensor engine as an HTTP tool endpoint for
// agent frameworks.
//
// Usage:
//
//	mcp-server -port 8080 -config spacetime.yaml
//
// Tool call endpoint: POST /tool
// Schema endpoint:    GET  /schema
// Health endpoint:    GET  /health
// Metrics endpoint:   GET  /metrics (path set by metrics.path)
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	spacetime "github.com/lcarter9000/spacetimeengine"
	"github.com/lcarter9000/spacetimeengine/catalog"
	"github.com/lcarter9000/spacetimeengine/internal/config"
	"github.com/lcarter9000/spacetimeengine/internal/logging"
	"github.com/lcarter9000/spacetimeengine/internal/metrics"
	"github.com/lcarter9000/spacetimeengine/symbolic"
	"github.com/lcarter9000/spacetimeengine/tools"
)

func main() {
	port := flag.Int("port", 8080, "Port to listen on")
	configPath := flag.String("config", "", "Path to a YAML run configuration")
	flag.Parse()

	if err := run(*port, *configPath); err != nil {
		fmt.Fprintln(os.Stderr, "mcp-server:", err)
		os.Exit(1)
	}
}

func run(port int, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, cleanup, err := logging.Setup(cfg.Logging)
	if err != nil {
		return err
	}
	defer cleanup()

	cat := catalog.New()
	if cfg.MetricFile != "" {
		if err := cat.LoadFile(cfg.MetricFile); err != nil {
			return err
		}
	}
	lambda, err := cfg.Lambda()
	if err != nil {
		return err
	}
	kernel, err := symbolic.NewKernel(cfg.CacheSize)
	if err != nil {
		return err
	}

	opts := []tools.Option{
		tools.WithLogger(logger),
		tools.WithAlgebra(kernel),
		tools.WithSpacetimeOptions(
			spacetime.WithWorkers(cfg.Workers),
			spacetime.WithCosmologicalConstant(lambda),
			spacetime.WithProperTime(cfg.ProperTime),
			spacetime.WithSeparationPrefix(cfg.SeparationPrefix),
		),
	}
	var reg *prometheus.Registry
	if cfg.Metrics.Enabled {
		rec := metrics.NewRecorder(nil)
		reg = rec.Registry()
		opts = append(opts, tools.WithRecorder(rec))
	}
	srv, err := tools.NewServer(cat, opts...)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf(":%d", port)
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           newHandler(srv, reg, cfg.Metrics.Path, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Curvature of a large metric can take a while on first request.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	logger.Info("spacetime tool server listening",
		"addr", addr,
		"metrics", cfg.Metrics.Enabled,
		"metric_count", len(cat.Names()))

	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
