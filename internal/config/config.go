// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const ServiceVersion = "0.1.0"

const (
	OrderPlacedTopic = "order.placed"
	OrderFailedTopic = "order.failed"
	ConsumerGroupID  = "machine-service-group"
)

const (
	ExportTimeout = 30 * time.Second
	MaxQueueSize  = 2048
)

// Initial stock the inventory service starts with.
const (
	InitialBeans = 20
	InitialMilk  = 10
)

type Config struct {
	HTTPAddr     string
	KafkaBroker  string
	InventoryURL string

	// PublishFailures routes business failures onto order.failed.
	PublishFailures bool

	// PreparationDelay bounds the simulated drink preparation.
	PreparationDelay time.Duration

	OtelEndpoint   string
	OtelAuthHeader string
}

// Load reads the configuration for a service, falling back to local-dev
// defaults. defaultPort is the service's conventional port (8080 order,
// 8081 inventory, 8082 machine).
func Load(defaultPort int) (*Config, error) {
	cfg := &Config{
		HTTPAddr:         fmt.Sprintf(":%s", getenv("SERVICE_PORT", strconv.Itoa(defaultPort))),
		KafkaBroker:      getenv("KAFKA_BROKER", "localhost:9092"),
		InventoryURL:     getenv("INVENTORY_SERVICE_URL", "http://localhost:8081"),
		PublishFailures:  true,
		PreparationDelay: 2 * time.Second,
		OtelEndpoint:     os.Getenv("OTEL_ENDPOINT"),
		OtelAuthHeader:   os.Getenv("OTEL_AUTH_HEADER"),
	}

	if v := os.Getenv("PUBLISH_FAILURES"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("PUBLISH_FAILURES: %w", err)
		}
		cfg.PublishFailures = b
	}
	if v := os.Getenv("PREPARATION_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("PREPARATION_DELAY: %w", err)
		}
		cfg.PreparationDelay = d
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
