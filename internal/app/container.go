// Package app holds the shared service lifecycle: configuration, logging,
// OpenTelemetry setup and graceful shutdown.
package app

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/ecw74/coffe-tech-demo/internal/config"
	"github.com/ecw74/coffe-tech-demo/internal/platform/observability"
)

// Container holds expensive-to-create singleton resources shared by every
// service binary.
type Container struct {
	config *config.Config
	logger *zap.Logger

	otelLogShutdown   func(context.Context) error
	otelTraceShutdown func(context.Context) error

	closers []io.Closer
}

// NewContainer loads configuration and initializes observability for the
// named service.
func NewContainer(ctx context.Context, serviceName string, defaultPort int) (*Container, error) {
	cfg, err := config.Load(defaultPort)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	c := &Container{config: cfg}

	// Bootstrap logger so observability setup failures are visible.
	bootstrap, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	c.logger = bootstrap

	logShutdown, err := observability.SetupLoggingSDK(ctx, cfg, serviceName)
	if err != nil {
		c.logger.Error("Failed to setup OpenTelemetry logging", zap.Error(err))
	}
	c.otelLogShutdown = logShutdown

	_, traceShutdown, err := observability.SetupTracingSDK(ctx, cfg, serviceName)
	if err != nil {
		c.logger.Error("Failed to setup OpenTelemetry tracing", zap.Error(err))
	}
	c.otelTraceShutdown = traceShutdown

	// Re-initialize the logger with the OTel bridge now that the logger
	// provider is registered.
	c.logger = observability.NewLogger(serviceName)
	c.logger.Info("Service initialized", zap.String("http_addr", cfg.HTTPAddr))

	return c, nil
}

// AddCloser registers a resource to close during shutdown, in reverse
// registration order.
func (c *Container) AddCloser(closer io.Closer) {
	c.closers = append(c.closers, closer)
}

// Shutdown gracefully releases every registered resource and flushes
// telemetry.
func (c *Container) Shutdown(ctx context.Context) {
	c.logger.Info("Shutting down...")

	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil {
			c.logger.Error("Failed to close resource", zap.Error(err))
		}
	}

	if c.otelTraceShutdown != nil {
		if err := c.otelTraceShutdown(ctx); err != nil {
			c.logger.Error("Failed to shutdown OTel tracing", zap.Error(err))
		}
	}
	if c.otelLogShutdown != nil {
		if err := c.otelLogShutdown(ctx); err != nil {
			c.logger.Error("Failed to shutdown OTel logging", zap.Error(err))
		}
	}

	if err := c.logger.Sync(); err != nil {
		// Logger may already be gone at this point.
		fmt.Printf("Failed to sync logger: %v\n", err)
	}
}

// Getters for the shared resources.
func (c *Container) Config() *config.Config { return c.config }
func (c *Container) Logger() *zap.Logger    { return c.logger }
