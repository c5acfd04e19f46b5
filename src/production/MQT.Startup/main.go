package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
	container "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Container"
)

// Startup is a one-shot preflight for deployments: it waits for the store
// (applying migrations on postgres), dials the broker, prints the readiness
// report and exits non-zero when anything is degraded.
func main() {
	ctr, err := container.NewContainer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize container: %v\n", err)
		os.Exit(1)
	}
	os.Exit(run(ctr))
}

// run returns the process exit code. The container is shut down before
// returning since os.Exit skips deferred calls in main.
func run(ctr *container.Container) int {
	defer ctr.Shutdown(context.Background())

	logger := ctr.GetLogger().WithComponent("startup")
	config := ctr.GetConfig()

	ctx, cancel := context.WithTimeout(context.Background(), config.Storage.ConnectTimeout+15*time.Second)
	defer cancel()

	if _, err := ctr.GetStore(ctx); err != nil {
		logger.ErrorWithError(err, "Store is not reachable")
		return 1
	}

	if err := ctr.ConnectBus(ctx); err != nil {
		logger.Logger.Warn().Err(err).Str("broker", config.GetMQTTBrokerURL()).Msg("Broker is not reachable")
	}

	checker, err := ctr.GetHealthChecker(ctx)
	if err != nil {
		logger.ErrorWithError(err, "Failed to build health checker")
		return 1
	}

	status, healthy := checker.GetHealthStatus(ctx)
	out, _ := json.MarshalIndent(status, "", "  ")
	fmt.Println(string(out))

	if !healthy {
		return 1
	}
	logger.Info("Preflight passed")
	return 0
}
