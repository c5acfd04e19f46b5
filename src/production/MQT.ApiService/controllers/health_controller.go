package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.ApiService/health"
)

// HealthController handles index, health and metrics requests
type HealthController struct {
	checker  *health.HealthChecker
	gatherer prometheus.Gatherer
}

// NewHealthController creates a new health controller
func NewHealthController(checker *health.HealthChecker, gatherer prometheus.Gatherer) *HealthController {
	return &HealthController{checker: checker, gatherer: gatherer}
}

// RegisterRoutes registers the health routes with Gin
func (c *HealthController) RegisterRoutes(router *gin.Engine) {
	router.GET("/", c.Index)
	router.GET("/health/live", c.HealthLive)
	router.GET("/health/ready", c.HealthReady)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})))
}

func (c *HealthController) Index(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "Smart Home IoT Backend",
		"version": health.ServiceVersion,
		"endpoints": gin.H{
			"sensor_latest":   "/api/sensors/latest",
			"sensor_history":  "/api/sensors/history/<type>",
			"door_status":     "/api/door/status",
			"control_door":    "/api/control/door",
			"control_light":   "/api/control/light",
			"control_curtain": "/api/control/curtain",
			"control_logs":    "/api/control/logs",
			"stats":           "/api/stats",
		},
	})
}

func (c *HealthController) HealthLive(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

func (c *HealthController) HealthReady(ctx *gin.Context) {
	status, healthy := c.checker.GetHealthStatus(ctx)
	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	ctx.JSON(code, status)
}
