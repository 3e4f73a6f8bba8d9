package api

import (
	"net/http"

	"github.com/Radix-Obsidian/ShepGate/internal/store"
	"go.uber.org/zap"
)

func (d *Dependencies) handleListTools(w http.ResponseWriter, r *http.Request) {
	tools, err := d.Store.ListTools(r.Context(), r.URL.Query().Get("server_id"))
	if err != nil {
		d.Logger.Error("list tools", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Internal error"})
		return
	}

	resp := make([]ToolResp, 0, len(tools))
	for _, t := range tools {
		resp = append(resp, toolToResp(t))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (d *Dependencies) handleGetTool(w http.ResponseWriter, r *http.Request) {
	tool, err := d.Store.GetTool(r.Context(), r.PathValue("tool_id"))
	if err != nil {
		d.Logger.Error("get tool", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Internal error"})
		return
	}
	if tool == nil {
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Tool not found"})
		return
	}
	writeJSON(w, http.StatusOK, toolToResp(tool))
}

// handleUpdateTool changes a tool's risk level. The change applies to the
// next evaluation; in-flight pending approvals keep their original terms.
func (d *Dependencies) handleUpdateTool(w http.ResponseWriter, r *http.Request) {
	var req UpdateToolReq
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}
	if req.RiskLevel == nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "risk_level is required"})
		return
	}
	if !store.ValidRiskLevel(*req.RiskLevel) {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "risk_level must be safe, needs_approval or blocked"})
		return
	}

	tool, err := d.Store.SetToolRiskLevel(r.Context(), r.PathValue("tool_id"), *req.RiskLevel)
	if err != nil {
		d.Logger.Error("update tool", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Internal error"})
		return
	}
	if tool == nil {
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Tool not found"})
		return
	}
	writeJSON(w, http.StatusOK, toolToResp(tool))
}

func (d *Dependencies) handleDeleteTool(w http.ResponseWriter, r *http.Request) {
	deleted, err := d.Store.DeleteTool(r.Context(), r.PathValue("tool_id"))
	if err != nil {
		d.Logger.Error("delete tool", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Internal error"})
		return
	}
	if !deleted {
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Tool not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
