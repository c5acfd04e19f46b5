package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	config "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Config"
	logger "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Logger"
	mqtmodels "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Models"
	interfaces "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Repository/Interfaces"
)

// SensorController serves latest and historical sensor readings
type SensorController struct {
	sensors interfaces.SensorRepository
	query   config.QueryConfig
	logger  *logger.Logger
}

// NewSensorController creates a new sensor controller
func NewSensorController(sensors interfaces.SensorRepository, query config.QueryConfig, logger *logger.Logger) *SensorController {
	return &SensorController{
		sensors: sensors,
		query:   query,
		logger:  logger,
	}
}

// RegisterRoutes registers the sensor routes with Gin
func (c *SensorController) RegisterRoutes(router *gin.Engine) {
	sensors := router.Group("/api/sensors")
	{
		sensors.GET("/latest", c.GetLatest)
		sensors.GET("/history/:sensor_type", c.GetHistory)
	}
}

func (c *SensorController) GetLatest(ctx *gin.Context) {
	resp := gin.H{}
	for _, channel := range mqtmodels.SensorChannels {
		rec, err := c.sensors.GetLatestSensorRecord(ctx, channel)
		if err != nil {
			c.logger.Logger.Error().Err(err).Str("sensor_type", string(channel)).Msg("Failed to load latest sensor record")
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load sensor data"})
			return
		}
		if rec == nil {
			resp[string(channel)] = nil
			continue
		}

		entry := gin.H{"value": rec.Value, "timestamp": rec.Timestamp}
		if channel == mqtmodels.ChannelGas {
			entry["status"] = rec.Status
		}
		resp[string(channel)] = entry
	}

	ctx.JSON(http.StatusOK, resp)
}

func (c *SensorController) GetHistory(ctx *gin.Context) {
	channel, err := mqtmodels.ParseSensorChannel(ctx.Param("sensor_type"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	limit, err := parseLimit(ctx, c.query.HistoryDefaultLimit, c.query.HistoryMaxLimit)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	records, err := c.sensors.GetSensorHistory(ctx, channel, limit)
	if err != nil {
		c.logger.Logger.Error().Err(err).Str("sensor_type", string(channel)).Msg("Failed to load sensor history")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load sensor history"})
		return
	}

	data := make([]gin.H, 0, len(records))
	for _, rec := range records {
		data = append(data, gin.H{
			"value":      rec.Value,
			"status":     rec.Status,
			"timestamp":  rec.Timestamp,
			"created_at": rec.CreatedAt,
		})
	}

	ctx.JSON(http.StatusOK, gin.H{
		"sensor_type": channel,
		"count":       len(data),
		"data":        data,
	})
}
