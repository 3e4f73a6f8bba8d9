package api

import (
	"errors"
	"net/http"

	"github.com/Radix-Obsidian/ShepGate/internal/policy"
	"go.uber.org/zap"
)

// handleAgentExecute is the agent-facing gate: the agent identity comes from
// the API key, never from the request body.
func (d *Dependencies) handleAgentExecute(w http.ResponseWriter, r *http.Request) {
	agent := agentFromContext(r.Context())
	if agent == nil {
		writeJSON(w, http.StatusUnauthorized, ErrorResp{Detail: "Unauthenticated"})
		return
	}

	var req ExecuteRequest
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}
	d.execute(w, r, agent.AgentID, req)
}

// handleAdminExecute evaluates on behalf of any agent. Used by the dashboard
// to test policy configuration.
func (d *Dependencies) handleAdminExecute(w http.ResponseWriter, r *http.Request) {
	var req ExecuteRequest
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}
	if req.AgentID == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "agent_id is required"})
		return
	}
	d.execute(w, r, req.AgentID, req)
}

// execute runs the policy decision and, on an immediate allow, dispatches
// the call. A denial is a successful evaluation, not an HTTP error.
func (d *Dependencies) execute(w http.ResponseWriter, r *http.Request, agentID string, req ExecuteRequest) {
	if req.ToolID == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "tool_id is required"})
		return
	}

	result, err := d.Engine.Evaluate(r.Context(), agentID, req.ToolID, string(req.Arguments))
	if err != nil {
		switch {
		case errors.Is(err, policy.ErrAgentNotFound):
			writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Agent not found"})
		case errors.Is(err, policy.ErrToolNotFound):
			writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Tool not found"})
		default:
			d.Logger.Error("policy evaluation failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Internal error"})
		}
		return
	}

	resp := ExecuteResponse{PolicyResult: PolicyResultResp{
		Allowed:          result.Allowed,
		RequiresApproval: result.RequiresApproval,
		Reason:           result.Reason,
		PendingActionID:  result.PendingActionID,
		ActionLogID:      result.ActionLogID,
	}}

	if result.RequiresApproval {
		writeJSON(w, http.StatusAccepted, resp)
		return
	}
	if !result.Allowed {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	execResult, err := d.Executor.Invoke(r.Context(), req.ToolID, string(req.Arguments))
	if err != nil {
		d.Logger.Error("tool dispatch failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Tool dispatch failed"})
		return
	}
	resp.Execution = execResult
	writeJSON(w, http.StatusOK, resp)
}
