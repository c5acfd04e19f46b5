package health

import (
	"context"
	"fmt"
	"time"
)

// ServiceVersion is reported by the index and health endpoints
const ServiceVersion = "1.0.0"

// Pinger is satisfied by the telemetry store
type Pinger interface {
	Ping(ctx context.Context) error
}

// ConnectionChecker is satisfied by the bus client
type ConnectionChecker interface {
	IsConnected() bool
}

// HealthChecker provides health check functionality
type HealthChecker struct {
	store   Pinger
	bus     ConnectionChecker
	timeout time.Duration
	version string
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(store Pinger, bus ConnectionChecker, version string) *HealthChecker {
	return &HealthChecker{
		store:   store,
		bus:     bus,
		timeout: 2 * time.Second,
		version: version,
	}
}

// CheckStore pings the durable store
func (h *HealthChecker) CheckStore(ctx context.Context) error {
	if h.store == nil {
		return fmt.Errorf("store is not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		return fmt.Errorf("store ping failed: %w", err)
	}
	return nil
}

// BusConnected reports whether the MQTT connection is up
func (h *HealthChecker) BusConnected() bool {
	return h.bus != nil && h.bus.IsConnected()
}

// GetHealthStatus returns the current health status and whether every check passed
func (h *HealthChecker) GetHealthStatus(ctx context.Context) (map[string]interface{}, bool) {
	checks := make(map[string]interface{})
	healthy := true

	if err := h.CheckStore(ctx); err != nil {
		healthy = false
		checks["store"] = map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		}
	} else {
		checks["store"] = map[string]interface{}{"status": "ok"}
	}

	if h.BusConnected() {
		checks["mqtt"] = map[string]interface{}{"status": "ok"}
	} else {
		healthy = false
		checks["mqtt"] = map[string]interface{}{"status": "disconnected"}
	}

	overallStatus := "ok"
	if !healthy {
		overallStatus = "degraded"
	}

	return map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"checks":    checks,
	}, healthy
}
