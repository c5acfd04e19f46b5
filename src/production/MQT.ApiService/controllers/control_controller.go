package controllers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	config "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Config"
	mqtcontrol "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Control"
	logger "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Logger"
	mqtmodels "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Models"
	interfaces "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Repository/Interfaces"
)

// CommandIssuer sends device commands
type CommandIssuer interface {
	Issue(ctx context.Context, cmd mqtmodels.ControlCommand) (*mqtcontrol.Issued, error)
}

type commandRequest struct {
	Command string `json:"command"`
}

type positionRequest struct {
	Position *int `json:"position"`
}

// ControlController accepts device commands and exposes the control log
type ControlController struct {
	issuer CommandIssuer
	logs   interfaces.ControlLogRepository
	query  config.QueryConfig
	logger *logger.Logger
}

// NewControlController creates a new control controller
func NewControlController(issuer CommandIssuer, logs interfaces.ControlLogRepository, query config.QueryConfig, logger *logger.Logger) *ControlController {
	return &ControlController{
		issuer: issuer,
		logs:   logs,
		query:  query,
		logger: logger,
	}
}

// RegisterRoutes registers the control routes with Gin
func (c *ControlController) RegisterRoutes(router *gin.Engine) {
	control := router.Group("/api/control")
	{
		control.POST("/door", c.ControlDoor)
		control.POST("/light", c.ControlLight)
		control.POST("/curtain", c.ControlCurtain)
		control.GET("/logs", c.ListLogs)
	}
}

func (c *ControlController) ControlDoor(ctx *gin.Context) {
	var req commandRequest
	if !bindOptionalJSON(ctx, &req) {
		return
	}

	issued, ok := c.issue(ctx, mqtmodels.ControlCommand{Device: mqtmodels.ControlDoor, Command: req.Command})
	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"command": issued.Command.Command,
		"message": fmt.Sprintf("Door %s command sent", strings.ToLower(issued.Command.Command)),
	})
}

func (c *ControlController) ControlLight(ctx *gin.Context) {
	var req commandRequest
	if !bindOptionalJSON(ctx, &req) {
		return
	}

	issued, ok := c.issue(ctx, mqtmodels.ControlCommand{Device: mqtmodels.ControlLight, Command: req.Command})
	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"command": issued.Command.Command,
		"message": fmt.Sprintf("Light turned %s", strings.ToLower(issued.Command.Command)),
	})
}

func (c *ControlController) ControlCurtain(ctx *gin.Context) {
	var req positionRequest
	if !bindOptionalJSON(ctx, &req) {
		return
	}

	issued, ok := c.issue(ctx, mqtmodels.ControlCommand{Device: mqtmodels.ControlCurtain, Position: req.Position})
	if !ok {
		return
	}

	position := *issued.Command.Position
	ctx.JSON(http.StatusOK, gin.H{
		"success":  true,
		"position": position,
		"message":  fmt.Sprintf("Curtain position set to %d%%", position),
	})
}

func (c *ControlController) ListLogs(ctx *gin.Context) {
	limit, err := parseLimit(ctx, c.query.HistoryDefaultLimit, c.query.HistoryMaxLimit)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entries, err := c.logs.ListControlLogs(ctx, limit)
	if err != nil {
		c.logger.ErrorWithError(err, "Failed to list control logs")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load control logs"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"count": len(entries),
		"items": entries,
	})
}

func (c *ControlController) issue(ctx *gin.Context, cmd mqtmodels.ControlCommand) (*mqtcontrol.Issued, bool) {
	issued, err := c.issuer.Issue(ctx, cmd)
	switch {
	case err == nil:
		return issued, true
	case errors.Is(err, mqtcontrol.ErrInvalidCommand):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, mqtcontrol.ErrBusUnavailable):
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "MQTT not connected"})
	default:
		c.logger.ErrorWithError(err, "Failed to issue control command")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue command"})
	}
	return nil, false
}

// bindOptionalJSON decodes the body into dst; an empty body leaves dst zero
func bindOptionalJSON(ctx *gin.Context, dst interface{}) bool {
	if err := ctx.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return false
	}
	return true
}
