package handler

import (
	"net/http"
	"time"

	"github.com/ccoveille/go-safecast"
	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// Stats returns host metrics and store entity counts for the admin panel.
// GET /api/admin/stats
func (h *Handler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	users, err := h.store.CountUsers(ctx)
	if err != nil {
		log.Error("failed to count users", "error", err)
		internalError(c)
		return
	}
	sessions, err := h.store.CountSessions(ctx)
	if err != nil {
		log.Error("failed to count sessions", "error", err)
		internalError(c)
		return
	}
	groups, err := h.store.CountGroups(ctx)
	if err != nil {
		log.Error("failed to count groups", "error", err)
		internalError(c)
		return
	}

	stats := gin.H{
		"users":    users,
		"sessions": sessions,
		"groups":   groups,
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		used, err := safecast.ToInt64(vm.Used)
		if err == nil {
			stats["memoryUsedBytes"] = used
		}
		stats["memoryUsedPercent"] = vm.UsedPercent
	}
	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		stats["cpuPercent"] = percents[0]
	}
	if uptime, err := host.UptimeWithContext(ctx); err == nil {
		if up, err := safecast.ToInt64(uptime); err == nil {
			stats["hostUptime"] = (time.Duration(up) * time.Second).String()
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats":   stats,
	})
}
