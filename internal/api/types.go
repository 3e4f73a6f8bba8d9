package api

import (
	"encoding/json"
	"time"

	"github.com/Radix-Obsidian/ShepGate/internal/execution"
	"github.com/Radix-Obsidian/ShepGate/internal/store"
)

// ErrorResp is the uniform error body.
type ErrorResp struct {
	Detail string `json:"detail"`
}

// --- Execute ---

// ExecuteRequest is the JSON body for POST /v1/execute and the admin
// execute endpoint. AgentID is ignored on /v1/execute, where the agent is
// taken from the API key.
type ExecuteRequest struct {
	AgentID   string          `json:"agent_id,omitempty"`
	ToolID    string          `json:"tool_id"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// PolicyResultResp mirrors policy.Result.
type PolicyResultResp struct {
	Allowed          bool   `json:"allowed"`
	RequiresApproval bool   `json:"requires_approval"`
	Reason           string `json:"reason"`
	PendingActionID  string `json:"pending_action_id,omitempty"`
	ActionLogID      string `json:"action_log_id,omitempty"`
}

// ExecuteResponse is the result of one gated execution request.
type ExecuteResponse struct {
	PolicyResult PolicyResultResp  `json:"policy_result"`
	Execution    *execution.Result `json:"execution,omitempty"`
}

// --- Agents ---

type CreateAgentReq struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	HostType    string `json:"host_type,omitempty"`
}

type UpdateAgentReq struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	HostType    *string `json:"host_type,omitempty"`
}

// AgentResp never includes the key hash; the prefix identifies the key.
type AgentResp struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	HostType     string    `json:"host_type"`
	APIKeyPrefix string    `json:"api_key_prefix,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateAgentResp includes the plaintext API key (shown once).
type CreateAgentResp struct {
	AgentResp
	APIKey string `json:"api_key"`
}

type RotateKeyResp struct {
	APIKey string `json:"api_key"`
}

func agentToResp(a *store.AgentProfile) AgentResp {
	resp := AgentResp{
		ID:          a.ID,
		Name:        a.Name,
		Description: a.Description,
		HostType:    a.HostType,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
	if a.APIKeyPrefix != nil {
		resp.APIKeyPrefix = *a.APIKeyPrefix
	}
	return resp
}

// --- Servers ---

type CreateServerReq struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // "mcp" or "http"
	Command     string `json:"command,omitempty"`
	BaseURL     string `json:"base_url,omitempty"`
	Description string `json:"description,omitempty"`
}

type UpdateServerReq struct {
	Name        *string `json:"name,omitempty"`
	Command     *string `json:"command,omitempty"`
	BaseURL     *string `json:"base_url,omitempty"`
	Description *string `json:"description,omitempty"`
}

type ServerResp struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Command     string    `json:"command,omitempty"`
	BaseURL     string    `json:"base_url,omitempty"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func serverToResp(s *store.Server) ServerResp {
	return ServerResp{
		ID:          s.ID,
		Name:        s.Name,
		Type:        s.Type,
		Command:     s.Command,
		BaseURL:     s.BaseURL,
		Description: s.Description,
		CreatedAt:   s.CreatedAt,
	}
}

type SyncResp struct {
	Added int `json:"added"`
}

// --- Tools ---

type UpdateToolReq struct {
	RiskLevel *string `json:"risk_level,omitempty"`
}

type ToolResp struct {
	ID          string          `json:"id"`
	ServerID    string          `json:"server_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
	RiskLevel   string          `json:"risk_level"`
	CreatedAt   time.Time       `json:"created_at"`
}

func toolToResp(t *store.Tool) ToolResp {
	return ToolResp{
		ID:          t.ID,
		ServerID:    t.ServerID,
		Name:        t.Name,
		Description: t.Description,
		InputSchema: t.InputSchema,
		RiskLevel:   t.RiskLevel,
		CreatedAt:   t.CreatedAt,
	}
}

// --- Permissions ---

type SetPermissionReq struct {
	Allowed bool `json:"allowed"`
}

type PermissionResp struct {
	ID        string    `json:"id"`
	AgentID   string    `json:"agent_id"`
	ToolID    string    `json:"tool_id"`
	Allowed   bool      `json:"allowed"`
	UpdatedAt time.Time `json:"updated_at"`
}

type BulkPermissionResp struct {
	Updated int `json:"updated"`
}

func permissionToResp(p *store.ToolPermission) PermissionResp {
	return PermissionResp{
		ID:        p.ID,
		AgentID:   p.AgentID,
		ToolID:    p.ToolID,
		Allowed:   p.Allowed,
		UpdatedAt: p.UpdatedAt,
	}
}

// --- Approvals ---

type PendingActionResp struct {
	ID         string          `json:"id"`
	AgentID    string          `json:"agent_id"`
	AgentName  string          `json:"agent_name"`
	ToolID     string          `json:"tool_id"`
	ToolName   string          `json:"tool_name"`
	RiskLevel  string          `json:"risk_level"`
	ServerID   string          `json:"server_id"`
	ServerName string          `json:"server_name"`
	Arguments  json.RawMessage `json:"arguments"`
	Status     string          `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
}

func pendingToResp(d *store.PendingActionDetail) PendingActionResp {
	return PendingActionResp{
		ID:         d.ID,
		AgentID:    d.AgentID,
		AgentName:  d.AgentName,
		ToolID:     d.ToolID,
		ToolName:   d.ToolName,
		RiskLevel:  d.RiskLevel,
		ServerID:   d.ServerID,
		ServerName: d.ServerName,
		Arguments:  json.RawMessage(d.ArgumentsJSON),
		Status:     d.Status,
		CreatedAt:  d.CreatedAt,
	}
}

type ResolveResp struct {
	ActionID  string            `json:"action_id"`
	Status    string            `json:"status"`
	Execution *execution.Result `json:"execution,omitempty"`
}

type BatchApproveReq struct {
	ActionIDs []string `json:"action_ids"`
}

type BatchItemResp struct {
	ID    string `json:"id"`
	Error string `json:"error,omitempty"`
}

type BatchApproveResp struct {
	Approved int             `json:"approved"`
	Failed   int             `json:"failed"`
	Items    []BatchItemResp `json:"items"`
}

// --- Activity ---

type ActionLogResp struct {
	ID        string          `json:"id"`
	AgentID   string          `json:"agent_id"`
	AgentName string          `json:"agent_name"`
	ToolID    string          `json:"tool_id"`
	ToolName  string          `json:"tool_name"`
	Arguments json.RawMessage `json:"arguments"`
	Status    string          `json:"status"`
	Reason    string          `json:"reason"`
	CreatedAt time.Time       `json:"created_at"`
}

func logToResp(d *store.ActionLogDetail) ActionLogResp {
	return ActionLogResp{
		ID:        d.ID,
		AgentID:   d.AgentID,
		AgentName: d.AgentName,
		ToolID:    d.ToolID,
		ToolName:  d.ToolName,
		Arguments: json.RawMessage(d.ArgumentsJSON),
		Status:    d.Status,
		Reason:    d.Reason,
		CreatedAt: d.CreatedAt,
	}
}

// --- Secrets ---

type UpsertSecretReq struct {
	Name        string `json:"name"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
}

// SecretResp never includes the value.
type SecretResp struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func secretToResp(s *store.Secret) SecretResp {
	return SecretResp{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		CreatedAt:   s.CreatedAt,
	}
}

// --- Dashboard ---

type DashboardResp struct {
	Agents         int `json:"agents"`
	Servers        int `json:"servers"`
	Tools          int `json:"tools"`
	PendingActions int `json:"pending_actions"`
	LogEntries     int `json:"log_entries"`
}
