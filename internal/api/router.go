package api

import (
	"net/http"

	"github.com/Radix-Obsidian/ShepGate/internal/auth"
	"github.com/Radix-Obsidian/ShepGate/internal/discovery"
	"github.com/Radix-Obsidian/ShepGate/internal/execution"
	"github.com/Radix-Obsidian/ShepGate/internal/policy"
	"github.com/Radix-Obsidian/ShepGate/internal/store"
	"go.uber.org/zap"
)

// Dependencies holds shared state injected into all HTTP handlers.
type Dependencies struct {
	Store      *store.Store
	Engine     *policy.Engine
	Resolver   *policy.Resolver
	Executor   execution.Executor
	Discoverer *discovery.Discoverer
	Auth       auth.Authenticator
	AdminToken string
	Logger     *zap.Logger
}

// NewRouter builds the HTTP mux with all routes wired up.
func NewRouter(deps *Dependencies) http.Handler {
	mux := http.NewServeMux()
	admin := deps.adminAuthMiddleware

	// Agent-facing execute endpoint (auth via Bearer sgk_ key)
	mux.HandleFunc("POST /v1/execute", deps.agentAuthMiddleware(deps.handleAgentExecute))

	// Agent management
	mux.HandleFunc("POST /api/shepgate/agents", admin(deps.handleCreateAgent))
	mux.HandleFunc("GET /api/shepgate/agents", admin(deps.handleListAgents))
	mux.HandleFunc("GET /api/shepgate/agents/{agent_id}", admin(deps.handleGetAgent))
	mux.HandleFunc("PATCH /api/shepgate/agents/{agent_id}", admin(deps.handleUpdateAgent))
	mux.HandleFunc("DELETE /api/shepgate/agents/{agent_id}", admin(deps.handleDeleteAgent))
	mux.HandleFunc("POST /api/shepgate/agents/{agent_id}/rotate-key", admin(deps.handleRotateAgentKey))

	// Per-agent permissions
	mux.HandleFunc("GET /api/shepgate/agents/{agent_id}/permissions", admin(deps.handleListPermissions))
	mux.HandleFunc("PUT /api/shepgate/agents/{agent_id}/permissions/{tool_id}", admin(deps.handleSetPermission))
	mux.HandleFunc("POST /api/shepgate/agents/{agent_id}/permissions/grant-all", admin(deps.handleGrantAll))
	mux.HandleFunc("POST /api/shepgate/agents/{agent_id}/permissions/revoke-all", admin(deps.handleRevokeAll))

	// Server management
	mux.HandleFunc("POST /api/shepgate/servers", admin(deps.handleCreateServer))
	mux.HandleFunc("GET /api/shepgate/servers", admin(deps.handleListServers))
	mux.HandleFunc("GET /api/shepgate/servers/{server_id}", admin(deps.handleGetServer))
	mux.HandleFunc("PATCH /api/shepgate/servers/{server_id}", admin(deps.handleUpdateServer))
	mux.HandleFunc("DELETE /api/shepgate/servers/{server_id}", admin(deps.handleDeleteServer))
	mux.HandleFunc("POST /api/shepgate/servers/{server_id}/sync", admin(deps.handleSyncServer))

	// Tool management
	mux.HandleFunc("GET /api/shepgate/tools", admin(deps.handleListTools))
	mux.HandleFunc("GET /api/shepgate/tools/{tool_id}", admin(deps.handleGetTool))
	mux.HandleFunc("PATCH /api/shepgate/tools/{tool_id}", admin(deps.handleUpdateTool))
	mux.HandleFunc("DELETE /api/shepgate/tools/{tool_id}", admin(deps.handleDeleteTool))

	// Approvals
	mux.HandleFunc("GET /api/shepgate/approvals", admin(deps.handleListApprovals))
	mux.HandleFunc("POST /api/shepgate/approvals/{action_id}/approve", admin(deps.handleApprove))
	mux.HandleFunc("POST /api/shepgate/approvals/{action_id}/deny", admin(deps.handleDeny))
	mux.HandleFunc("POST /api/shepgate/approvals/batch-approve", admin(deps.handleBatchApprove))

	// Activity & dashboard
	mux.HandleFunc("GET /api/shepgate/activity", admin(deps.handleListActivity))
	mux.HandleFunc("GET /api/shepgate/dashboard", admin(deps.handleDashboard))

	// Secrets (values never returned)
	mux.HandleFunc("POST /api/shepgate/secrets", admin(deps.handleUpsertSecret))
	mux.HandleFunc("GET /api/shepgate/secrets", admin(deps.handleListSecrets))
	mux.HandleFunc("DELETE /api/shepgate/secrets/{secret_id}", admin(deps.handleDeleteSecret))

	// Admin execute (evaluates on behalf of any agent)
	mux.HandleFunc("POST /api/shepgate/execute", admin(deps.handleAdminExecute))

	// Health check
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return corsMiddleware(requestLogging(mux, deps.Logger))
}
