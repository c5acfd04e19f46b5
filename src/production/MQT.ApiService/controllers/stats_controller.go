package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	logger "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Logger"
	mqtmodels "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Models"
)

// RecordCounter is satisfied by the telemetry store
type RecordCounter interface {
	CountSensorRecords(ctx context.Context) (int64, error)
	CountDoorRecords(ctx context.Context) (int64, error)
	CountControlLogs(ctx context.Context) (int64, error)
}

// ConnectionChecker is satisfied by the bus client
type ConnectionChecker interface {
	IsConnected() bool
}

// StatsController reports table sizes and bus state
type StatsController struct {
	counter RecordCounter
	bus     ConnectionChecker
	logger  *logger.Logger
}

// NewStatsController creates a new stats controller
func NewStatsController(counter RecordCounter, bus ConnectionChecker, logger *logger.Logger) *StatsController {
	return &StatsController{counter: counter, bus: bus, logger: logger}
}

// RegisterRoutes registers the stats routes with Gin
func (c *StatsController) RegisterRoutes(router *gin.Engine) {
	router.GET("/api/stats", c.GetStats)
}

func (c *StatsController) GetStats(ctx *gin.Context) {
	var (
		counts mqtmodels.RecordCounts
		err    error
	)

	if counts.SensorRecords, err = c.counter.CountSensorRecords(ctx); err == nil {
		if counts.DoorRecords, err = c.counter.CountDoorRecords(ctx); err == nil {
			counts.ControlLogs, err = c.counter.CountControlLogs(ctx)
		}
	}
	if err != nil {
		c.logger.ErrorWithError(err, "Failed to count records")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load stats"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"total_sensor_records": counts.SensorRecords,
		"total_door_records":   counts.DoorRecords,
		"total_control_logs":   counts.ControlLogs,
		"mqtt_connected":       c.bus != nil && c.bus.IsConnected(),
	})
}
