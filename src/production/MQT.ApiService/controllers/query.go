package controllers

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
)

// parseLimit reads ?limit, defaulting to def and capping at max
func parseLimit(ctx *gin.Context, def, max int) (int, error) {
	raw := ctx.Query("limit")
	if raw == "" {
		return def, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("limit must be a positive integer")
	}
	if max > 0 && limit > max {
		limit = max
	}
	return limit, nil
}
