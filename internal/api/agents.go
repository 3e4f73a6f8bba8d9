package api

import (
	"net/http"

	"github.com/Radix-Obsidian/ShepGate/internal/store"
	"go.uber.org/zap"
)

func (d *Dependencies) handleCreateAgent(w http.ResponseWriter, r *http.Request) {
	var req CreateAgentReq
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "name is required"})
		return
	}

	agent, apiKey, err := d.Store.CreateAgent(r.Context(), req.Name, req.Description, req.HostType)
	if err != nil {
		d.Logger.Error("create agent", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Internal error"})
		return
	}

	writeJSON(w, http.StatusCreated, CreateAgentResp{
		AgentResp: agentToResp(agent),
		APIKey:    apiKey,
	})
}

func (d *Dependencies) handleListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := d.Store.ListAgents(r.Context())
	if err != nil {
		d.Logger.Error("list agents", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Internal error"})
		return
	}

	resp := make([]AgentResp, 0, len(agents))
	for _, a := range agents {
		resp = append(resp, agentToResp(a))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (d *Dependencies) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	agent, err := d.Store.GetAgent(r.Context(), r.PathValue("agent_id"))
	if err != nil {
		d.Logger.Error("get agent", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Internal error"})
		return
	}
	if agent == nil {
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Agent not found"})
		return
	}
	writeJSON(w, http.StatusOK, agentToResp(agent))
}

func (d *Dependencies) handleUpdateAgent(w http.ResponseWriter, r *http.Request) {
	var req UpdateAgentReq
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}

	agent, err := d.Store.UpdateAgent(r.Context(), r.PathValue("agent_id"), store.UpdateAgentParams{
		Name:        req.Name,
		Description: req.Description,
		HostType:    req.HostType,
	})
	if err != nil {
		d.Logger.Error("update agent", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Internal error"})
		return
	}
	if agent == nil {
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Agent not found"})
		return
	}
	writeJSON(w, http.StatusOK, agentToResp(agent))
}

func (d *Dependencies) handleDeleteAgent(w http.ResponseWriter, r *http.Request) {
	deleted, err := d.Store.DeleteAgent(r.Context(), r.PathValue("agent_id"))
	if err != nil {
		d.Logger.Error("delete agent", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Internal error"})
		return
	}
	if !deleted {
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Agent not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (d *Dependencies) handleRotateAgentKey(w http.ResponseWriter, r *http.Request) {
	apiKey, err := d.Store.RotateAgentKey(r.Context(), r.PathValue("agent_id"))
	if err != nil {
		d.Logger.Error("rotate agent key", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Internal error"})
		return
	}
	if apiKey == "" {
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Agent not found"})
		return
	}
	writeJSON(w, http.StatusOK, RotateKeyResp{APIKey: apiKey})
}
