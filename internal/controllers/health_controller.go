package controllers

import (
	"fmt"
	"net/http"
	"rankview/internal/services"
	"rankview/internal/structures"
	"time"
)

type HealthController struct {
	service   services.LeaderboardServiceInterface
	upstream  string
	startTime time.Time
}

type healthResponse struct {
	Status        string  `json:"status"`
	Uptime        string  `json:"uptime"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	PageSize      int     `json:"page_size"`
	Upstream      string  `json:"upstream"`
}

func (hc *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(hc.startTime)
	writeJSON(w, http.StatusOK, healthResponse{
		Status:        "ok",
		Uptime:        formatDuration(uptime),
		UptimeSeconds: uptime.Seconds(),
		PageSize:      hc.service.PageSize(),
		Upstream:      hc.upstream,
	})
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
}

func NewHealthController(service services.LeaderboardServiceInterface, conf *structures.Config) *HealthController {
	return &HealthController{
		service:   service,
		upstream:  conf.Upstream.BaseURL,
		startTime: time.Now(),
	}
}
