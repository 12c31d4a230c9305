package api

import (
	"net/http"
	"runtime"

	"github.com/gin-gonic/gin"
)

// getMetrics returns all metrics
func (s *Server) getMetrics(c *gin.Context) {
	// Add some real-time system metrics
	s.metrics.SetGauge("goroutines", int64(runtime.NumGoroutine()))

	c.JSON(http.StatusOK, s.metrics.GetAllMetrics())
}
