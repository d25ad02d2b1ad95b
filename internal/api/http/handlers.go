package http

import (
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/WebDesk/internal/domain/supervisor"
	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/monitoring"
)

// Handlers serves the status API around a running supervisor.
type Handlers struct {
	sup     *supervisor.Supervisor
	metrics *monitoring.Metrics
	started time.Time
}

// NewHandlers creates the status handlers.
func NewHandlers(sup *supervisor.Supervisor, metrics *monitoring.Metrics) *Handlers {
	return &Handlers{
		sup:     sup,
		metrics: metrics,
		started: time.Now(),
	}
}

// Root describes the service and its endpoints.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "webdesk",
		"display": h.sup.Display().Identifier,
		"endpoints": []string{
			"/health",
			"/stack",
			"/stack/:name/output",
			"/events",
			"/metrics",
			"/metrics/json",
		},
	})
}

// Health reports liveness and whether the full stack is ready.
func (h *Handlers) Health(c *gin.Context) {
	snap := h.sup.Snapshot()

	status := "degraded"
	if snap.Ready {
		status = "up"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    status,
		"ready":     snap.Ready,
		"uptime":    time.Since(h.started).Round(time.Second).String(),
		"timestamp": time.Now().Unix(),
	})
}

// Stack returns the per-stage snapshot. Encoded with sonic since the noVNC
// page polls this while the desktop streams.
func (h *Handlers) Stack(c *gin.Context) {
	data, err := sonic.Marshal(h.sup.Snapshot())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encode snapshot"})
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

// StageOutput returns the retained output tail of one stage as plain text.
func (h *Handlers) StageOutput(c *gin.Context) {
	name := c.Param("name")

	out, err := h.sup.StageOutput(name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", out)
}

// MetricsJSON returns current counter values for dashboards that do not
// scrape Prometheus.
func (h *Handlers) MetricsJSON(c *gin.Context) {
	snap := h.metrics.GetSnapshot()
	c.JSON(http.StatusOK, gin.H{
		"total_requests":    snap.TotalRequests,
		"total_errors":      snap.TotalErrors,
		"transitions":       snap.Transitions,
		"failures":          snap.Failures,
		"running_processes": snap.RunningProcesses,
		"stack_ready":       snap.StackReady,
		"uptime_seconds":    snap.UptimeSeconds,
	})
}
