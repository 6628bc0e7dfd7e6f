package worker

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type breakerStater interface {
	State() string
}

func (w *Worker) HealthHandler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	// liveness: process is up; includes counters for a quick look
	r.GET("/healthz", func(c *gin.Context) {
		body := gin.H{
			"ok":       true,
			"workerId": w.cfg.WorkerID,
			"jobs":     w.metrics.Snapshot(),
		}
		if b, ok := w.notifier.(breakerStater); ok {
			body["notifier"] = b.State()
		}
		c.JSON(http.StatusOK, body)
	})

	// readiness: running and able to reach the queue
	r.GET("/readyz", func(c *gin.Context) {
		if !w.isReady() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
			return
		}

		if w.db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 500*time.Millisecond)
			defer cancel()
			if err := w.db.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_unreachable"})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	return r
}
