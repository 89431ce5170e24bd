// Package config provides configuration loading from environment variables.
package config

import (
	"time"
)

// ServiceConfig holds configuration for the sentiment service.
type ServiceConfig struct {
	Port              string
	MetricsPort       string
	APIKey            string
	ShutdownDrainWait time.Duration // Time to wait for load balancer to drain (0 to skip)

	// ModelURL points at an external model server. Empty means the
	// in-process lexicon classifier is used.
	ModelURL     string
	ModelTimeout time.Duration

	// HistorySinkURL is the endpoint classification records are shipped to.
	// Empty disables outbound history delivery.
	HistorySinkURL string
	HistoryKey     string // HMAC signing key for sink deliveries
	HistorySize    int    // in-memory history ring capacity
}

// LoadServiceConfig loads service configuration from environment variables.
func LoadServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		Port:              GetEnv("PORT", "8080"),
		MetricsPort:       GetEnv("METRICS_PORT", "9090"),
		APIKey:            GetSecretFile(GetEnv("API_KEY_FILE", "")),
		ShutdownDrainWait: GetDurationEnv("SHUTDOWN_DRAIN_WAIT", 5*time.Second),
		ModelURL:          GetEnv("MODEL_URL", ""),
		ModelTimeout:      GetDurationEnv("MODEL_TIMEOUT", 5*time.Second),
		HistorySinkURL:    GetEnv("HISTORY_SINK_URL", ""),
		HistoryKey:        GetSecretFile(GetEnv("HISTORY_KEY_FILE", "")),
		HistorySize:       GetIntEnv("HISTORY_SIZE", 1000),
	}
}
