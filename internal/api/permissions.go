package api

import (
	"net/http"

	"go.uber.org/zap"
)

func (d *Dependencies) handleListPermissions(w http.ResponseWriter, r *http.Request) {
	agentID := r.PathValue("agent_id")
	agent, err := d.Store.GetAgent(r.Context(), agentID)
	if err != nil {
		d.Logger.Error("list permissions", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Internal error"})
		return
	}
	if agent == nil {
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Agent not found"})
		return
	}

	perms, err := d.Store.ListPermissions(r.Context(), agentID)
	if err != nil {
		d.Logger.Error("list permissions", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Internal error"})
		return
	}

	resp := make([]PermissionResp, 0, len(perms))
	for _, p := range perms {
		resp = append(resp, permissionToResp(p))
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSetPermission upserts the (agent, tool) grant. Idempotent: setting
// an already-set value succeeds without effect.
func (d *Dependencies) handleSetPermission(w http.ResponseWriter, r *http.Request) {
	var req SetPermissionReq
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}

	agentID := r.PathValue("agent_id")
	toolID := r.PathValue("tool_id")

	agent, err := d.Store.GetAgent(r.Context(), agentID)
	if err != nil {
		d.Logger.Error("set permission", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Internal error"})
		return
	}
	if agent == nil {
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Agent not found"})
		return
	}

	tool, err := d.Store.GetTool(r.Context(), toolID)
	if err != nil {
		d.Logger.Error("set permission", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Internal error"})
		return
	}
	if tool == nil {
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Tool not found"})
		return
	}

	perm, err := d.Store.SetPermission(r.Context(), agentID, toolID, req.Allowed)
	if err != nil {
		d.Logger.Error("set permission", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Internal error"})
		return
	}
	writeJSON(w, http.StatusOK, permissionToResp(perm))
}

func (d *Dependencies) handleGrantAll(w http.ResponseWriter, r *http.Request) {
	agentID := r.PathValue("agent_id")
	agent, err := d.Store.GetAgent(r.Context(), agentID)
	if err != nil {
		d.Logger.Error("grant all", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Internal error"})
		return
	}
	if agent == nil {
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Agent not found"})
		return
	}

	n, err := d.Store.GrantAll(r.Context(), agentID)
	if err != nil {
		d.Logger.Error("grant all", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Internal error"})
		return
	}
	writeJSON(w, http.StatusOK, BulkPermissionResp{Updated: n})
}

func (d *Dependencies) handleRevokeAll(w http.ResponseWriter, r *http.Request) {
	agentID := r.PathValue("agent_id")
	agent, err := d.Store.GetAgent(r.Context(), agentID)
	if err != nil {
		d.Logger.Error("revoke all", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Internal error"})
		return
	}
	if agent == nil {
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Agent not found"})
		return
	}

	n, err := d.Store.RevokeAll(r.Context(), agentID)
	if err != nil {
		d.Logger.Error("revoke all", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Internal error"})
		return
	}
	writeJSON(w, http.StatusOK, BulkPermissionResp{Updated: n})
}
