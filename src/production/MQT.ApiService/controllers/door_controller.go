package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	logger "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Logger"
	interfaces "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Repository/Interfaces"
)

// DoorController serves the latest door status
type DoorController struct {
	doors  interfaces.DoorRepository
	logger *logger.Logger
}

// NewDoorController creates a new door controller
func NewDoorController(doors interfaces.DoorRepository, logger *logger.Logger) *DoorController {
	return &DoorController{doors: doors, logger: logger}
}

// RegisterRoutes registers the door routes with Gin
func (c *DoorController) RegisterRoutes(router *gin.Engine) {
	router.GET("/api/door/status", c.GetStatus)
}

func (c *DoorController) GetStatus(ctx *gin.Context) {
	rec, err := c.doors.GetLatestDoorStatus(ctx)
	if err != nil {
		c.logger.ErrorWithError(err, "Failed to load door status")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load door status"})
		return
	}

	if rec == nil {
		ctx.JSON(http.StatusOK, gin.H{"status": "unknown", "timestamp": 0})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"status":    rec.Status,
		"timestamp": rec.Timestamp,
	})
}
