package api

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

func (d *Dependencies) handleListActivity(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 1000 {
			writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "limit must be between 1 and 1000"})
			return
		}
		limit = n
	}

	entries, err := d.Store.ListActionLog(r.Context(), r.URL.Query().Get("agent_id"), limit)
	if err != nil {
		d.Logger.Error("list activity", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Internal error"})
		return
	}

	resp := make([]ActionLogResp, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, logToResp(e))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (d *Dependencies) handleDashboard(w http.ResponseWriter, r *http.Request) {
	agents, servers, tools, pending, logged, err := d.Store.Counts(r.Context())
	if err != nil {
		d.Logger.Error("dashboard counts", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Internal error"})
		return
	}
	writeJSON(w, http.StatusOK, DashboardResp{
		Agents:         agents,
		Servers:        servers,
		Tools:          tools,
		PendingActions: pending,
		LogEntries:     logged,
	})
}
