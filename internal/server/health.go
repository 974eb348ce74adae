package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/paystub/pkg/db"
	"go.uber.org/zap"
)

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready reports whether the database and, when configured, Redis answer.
func (s *Server) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	checks := gin.H{"database": "ok"}
	status := http.StatusOK

	if err := db.Ping(ctx, s.db); err != nil {
		s.log.Warn("readiness check failed", zap.String("dependency", "database"), zap.Error(err))
		checks["database"] = "unavailable"
		status = http.StatusServiceUnavailable
	}

	if s.redis != nil {
		checks["redis"] = "ok"
		if err := s.redis.Health(ctx); err != nil {
			s.log.Warn("readiness check failed", zap.String("dependency", "redis"), zap.Error(err))
			checks["redis"] = "unavailable"
			status = http.StatusServiceUnavailable
		}
	}

	state := "ready"
	if status != http.StatusOK {
		state = "unavailable"
	}
	c.JSON(status, gin.H{"status": state, "checks": checks})
}
