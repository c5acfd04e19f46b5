package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sourcegraph/conc"
	"gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.ApiService/controllers"
	"gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.ApiService/middleware"
	container "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Container"
)

func main() {
	// Initialize dependency injection container
	ctr, err := container.NewContainer()
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize container: %v", err))
	}

	logger := ctr.GetLogger()
	config := ctr.GetConfig()
	logger.Logger.Info().
		Str("storage", config.Storage.Driver).
		Str("broker", config.GetMQTTBrokerURL()).
		Str("topic_prefix", config.MQTT.TopicPrefix).
		Msg("Starting Smart Home backend")

	// Connect storage, applying migrations for postgres
	ctx, cancel := context.WithTimeout(context.Background(), config.Storage.ConnectTimeout+10*time.Second)
	defer cancel()

	store, err := ctr.GetStore(ctx)
	if err != nil {
		logger.FatalWithError(err, "Failed to initialize store")
	}

	// Broker connection failures are not fatal; paho keeps retrying in the background
	busCtx, busCancel := context.WithTimeout(context.Background(), 15*time.Second)
	if err := ctr.ConnectBus(busCtx); err != nil {
		logger.Logger.Warn().Err(err).Msg("MQTT broker unavailable at startup, continuing")
	}
	busCancel()

	ingestor, err := ctr.GetIngestor(ctx)
	if err != nil {
		logger.FatalWithError(err, "Failed to build ingestor")
	}
	if err := ingestor.Start(context.Background()); err != nil {
		logger.FatalWithError(err, "Failed to start ingestor")
	}

	publisher, err := ctr.GetPublisher(ctx)
	if err != nil {
		logger.FatalWithError(err, "Failed to build control publisher")
	}
	checker, err := ctr.GetHealthChecker(ctx)
	if err != nil {
		logger.FatalWithError(err, "Failed to build health checker")
	}

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLog(logger))

	// Configure CORS from config
	router.Use(cors.New(cors.Config{
		AllowOrigins:     config.CORS.AllowedOrigins,
		AllowMethods:     config.CORS.AllowedMethods,
		AllowHeaders:     config.CORS.AllowedHeaders,
		ExposeHeaders:    config.CORS.ExposedHeaders,
		AllowCredentials: config.CORS.AllowCredentials,
		MaxAge:           time.Duration(config.CORS.MaxAge) * time.Second,
	}))

	bus := ctr.GetBus()
	controllers.NewSensorController(store, config.Query, logger).RegisterRoutes(router)
	controllers.NewDoorController(store, logger).RegisterRoutes(router)
	controllers.NewControlController(publisher, store, config.Query, logger).RegisterRoutes(router)
	controllers.NewStatsController(store, bus, logger).RegisterRoutes(router)
	controllers.NewHealthController(checker, ctr.GetGatherer()).RegisterRoutes(router)

	port := config.Server.Port
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  config.Server.ReadTimeout,
		WriteTimeout: config.Server.WriteTimeout,
		IdleTimeout:  config.Server.IdleTimeout,
	}

	var wg conc.WaitGroup
	wg.Go(func() {
		logger.Info("HTTP server starting on port " + port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.FatalWithError(err, "Failed to start HTTP server")
		}
	})

	logger.Info("Smart Home backend running... press Ctrl+C to stop")

	// Wait for shutdown signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorWithError(err, "Server forced to shutdown")
	}
	wg.Wait()

	// Final flush runs before the store is closed
	ingestor.Stop(shutdownCtx)
	if err := ctr.Shutdown(shutdownCtx); err != nil {
		logger.ErrorWithError(err, "Container shutdown failed")
	}
}
