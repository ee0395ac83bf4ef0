package api

import (
	"fmt"
	"net/http"

	"github.com/servicehub/servicehub/pkg/repository"
)

type SystemHandler struct {
	stats repository.StatsRepo
}

func NewSystemHandler(sr repository.StatsRepo) *SystemHandler {
	return &SystemHandler{stats: sr}
}

func (h *SystemHandler) VersionHandler(version, buildTime string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"version": version, "build_time": buildTime}, http.StatusOK)
	}
}

func (h *SystemHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, `{"status":"ok"}`)
}

// Dashboard returns the admin landing counts.
func (h *SystemHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	counts, err := h.stats.DashboardCounts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, counts, http.StatusOK)
}
