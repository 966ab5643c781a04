package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/idir-saidi/campus-records-api/internal/authz"
	"github.com/idir-saidi/campus-records-api/internal/middleware"
)

func actorFromContext(c *gin.Context) (authz.Actor, bool) {
	return middleware.Actor(c)
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
