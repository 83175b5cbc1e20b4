package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Ping reports whether one backing dependency is reachable.
type Ping func(ctx context.Context) error

type HealthHandler struct {
	pings map[string]Ping
}

// NewHealthHandler takes named dependency pings; readyz fails if any of
// them does.
func NewHealthHandler(pings map[string]Ping) *HealthHandler {
	return &HealthHandler{pings: pings}
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) Readyz(ctx *gin.Context) {
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	failed := map[string]string{}

	for name, ping := range h.pings {
		if ping == nil {
			continue
		}

		if err := ping(cctx); err != nil {
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "failed": failed})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ready"})
}
