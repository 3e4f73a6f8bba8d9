package api

import (
	"net/http"

	"github.com/Radix-Obsidian/ShepGate/internal/store"
	"go.uber.org/zap"
)

func (d *Dependencies) handleCreateServer(w http.ResponseWriter, r *http.Request) {
	var req CreateServerReq
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "name is required"})
		return
	}
	if req.Type != "mcp" && req.Type != "http" {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "type must be \"mcp\" or \"http\""})
		return
	}
	if req.Type == "mcp" && req.Command == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "command is required for mcp servers"})
		return
	}
	if req.Type == "http" && req.BaseURL == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "base_url is required for http servers"})
		return
	}

	server, err := d.Store.CreateServer(r.Context(), req.Name, req.Type, req.Command, req.BaseURL, req.Description)
	if err != nil {
		d.Logger.Error("create server", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Internal error"})
		return
	}
	writeJSON(w, http.StatusCreated, serverToResp(server))
}

func (d *Dependencies) handleListServers(w http.ResponseWriter, r *http.Request) {
	servers, err := d.Store.ListServers(r.Context())
	if err != nil {
		d.Logger.Error("list servers", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Internal error"})
		return
	}

	resp := make([]ServerResp, 0, len(servers))
	for _, s := range servers {
		resp = append(resp, serverToResp(s))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (d *Dependencies) handleGetServer(w http.ResponseWriter, r *http.Request) {
	server, err := d.Store.GetServer(r.Context(), r.PathValue("server_id"))
	if err != nil {
		d.Logger.Error("get server", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Internal error"})
		return
	}
	if server == nil {
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Server not found"})
		return
	}
	writeJSON(w, http.StatusOK, serverToResp(server))
}

func (d *Dependencies) handleUpdateServer(w http.ResponseWriter, r *http.Request) {
	var req UpdateServerReq
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}

	server, err := d.Store.UpdateServer(r.Context(), r.PathValue("server_id"), store.UpdateServerParams{
		Name:        req.Name,
		Command:     req.Command,
		BaseURL:     req.BaseURL,
		Description: req.Description,
	})
	if err != nil {
		d.Logger.Error("update server", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Internal error"})
		return
	}
	if server == nil {
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Server not found"})
		return
	}

	// A changed command or URL invalidates any pooled session.
	if req.Command != nil || req.BaseURL != nil {
		d.Discoverer.Invalidate(server.ID)
	}
	writeJSON(w, http.StatusOK, serverToResp(server))
}

func (d *Dependencies) handleDeleteServer(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("server_id")
	deleted, err := d.Store.DeleteServer(r.Context(), id)
	if err != nil {
		d.Logger.Error("delete server", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Internal error"})
		return
	}
	if !deleted {
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Server not found"})
		return
	}
	d.Discoverer.Invalidate(id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleSyncServer discovers the server's tools and registers the new ones.
// Newly registered tools default to needs_approval and start with a
// default-deny permission row for every agent.
func (d *Dependencies) handleSyncServer(w http.ResponseWriter, r *http.Request) {
	server, err := d.Store.GetServer(r.Context(), r.PathValue("server_id"))
	if err != nil {
		d.Logger.Error("sync server", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Internal error"})
		return
	}
	if server == nil {
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Server not found"})
		return
	}

	env, err := d.Store.SecretsAsEnv(r.Context())
	if err != nil {
		d.Logger.Error("sync server: load secrets", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Internal error"})
		return
	}

	specs, err := d.Discoverer.Discover(r.Context(), server, env)
	if err != nil {
		d.Logger.Error("sync server: discover", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Internal error"})
		return
	}

	added, err := d.Store.SyncTools(r.Context(), server.ID, specs)
	if err != nil {
		d.Logger.Error("sync server: register tools", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Internal error"})
		return
	}

	d.Logger.Info("server sync complete",
		zap.String("server_id", server.ID),
		zap.Int("added", added),
	)
	writeJSON(w, http.StatusOK, SyncResp{Added: added})
}
