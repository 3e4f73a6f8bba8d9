package policy

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/Radix-Obsidian/ShepGate/internal/store"
	"go.uber.org/zap"
)

// fakeStore is an in-memory policy.Store used by engine and resolver tests.
// Guarded by a mutex since BatchResolve hits it from multiple goroutines.
type fakeStore struct {
	mu          sync.Mutex
	agents      map[string]*store.AgentProfile
	tools       map[string]*store.Tool
	permissions map[string]*store.ToolPermission // key: agentID + "/" + toolID
	pending     map[string]*store.PendingAction

	logEntries     []*store.ActionLogEntry
	pendingCreated int
	nextID         int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		agents:      make(map[string]*store.AgentProfile),
		tools:       make(map[string]*store.Tool),
		permissions: make(map[string]*store.ToolPermission),
		pending:     make(map[string]*store.PendingAction),
	}
}

func (f *fakeStore) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s_%d", prefix, f.nextID)
}

func (f *fakeStore) addAgent(name string) *store.AgentProfile {
	a := &store.AgentProfile{ID: f.id("agent"), Name: name}
	f.agents[a.ID] = a
	return a
}

func (f *fakeStore) addTool(name, riskLevel string) *store.Tool {
	t := &store.Tool{ID: f.id("tool"), ServerID: "srv_1", Name: name, RiskLevel: riskLevel}
	f.tools[t.ID] = t
	return t
}

func (f *fakeStore) allow(agentID, toolID string, allowed bool) {
	f.permissions[agentID+"/"+toolID] = &store.ToolPermission{
		ID: f.id("perm"), AgentID: agentID, ToolID: toolID, Allowed: allowed,
	}
}

func (f *fakeStore) GetAgent(_ context.Context, id string) (*store.AgentProfile, error) {
	return f.agents[id], nil
}

func (f *fakeStore) GetTool(_ context.Context, id string) (*store.Tool, error) {
	return f.tools[id], nil
}

func (f *fakeStore) GetPermission(_ context.Context, agentID, toolID string) (*store.ToolPermission, error) {
	return f.permissions[agentID+"/"+toolID], nil
}

func (f *fakeStore) AppendActionLog(_ context.Context, agentID, toolID, argumentsJSON, status, reason string) (*store.ActionLogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.appendLogLocked(agentID, toolID, argumentsJSON, status, reason), nil
}

func (f *fakeStore) appendLogLocked(agentID, toolID, argumentsJSON, status, reason string) *store.ActionLogEntry {
	e := &store.ActionLogEntry{
		ID: f.id("log"), AgentID: agentID, ToolID: toolID,
		ArgumentsJSON: argumentsJSON, Status: status, Reason: reason,
	}
	f.logEntries = append(f.logEntries, e)
	return e
}

func (f *fakeStore) CreatePendingAction(_ context.Context, agentID, toolID, argumentsJSON string) (*store.PendingAction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pa := &store.PendingAction{
		ID: f.id("pa"), AgentID: agentID, ToolID: toolID,
		ArgumentsJSON: argumentsJSON, Status: store.PendingStatusPending,
	}
	f.pending[pa.ID] = pa
	f.pendingCreated++
	return pa, nil
}

func (f *fakeStore) ResolvePendingAction(_ context.Context, id, newStatus, logStatus, logReason string) (*store.PendingAction, *store.ActionLogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pa, ok := f.pending[id]
	if !ok {
		return nil, nil, store.ErrPendingNotFound
	}
	if pa.Status != store.PendingStatusPending {
		return nil, nil, fmt.Errorf("%w: status is %q", store.ErrNotPending, pa.Status)
	}
	pa.Status = newStatus
	entry := f.appendLogLocked(pa.AgentID, pa.ToolID, pa.ArgumentsJSON, logStatus, logReason)
	return pa, entry, nil
}

func newTestEngine(f *fakeStore) *Engine {
	return NewEngine(f, nil, zap.NewNop())
}

func TestEvaluate_SafeAllowed_LogsExecuted(t *testing.T) {
	f := newFakeStore()
	agent := f.addAgent("coder")
	tool := f.addTool("fs_read_file", store.RiskSafe)
	f.allow(agent.ID, tool.ID, true)

	result, err := newTestEngine(f).Evaluate(context.Background(), agent.ID, tool.ID, `{"path":"/tmp"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Allowed {
		t.Error("safe tool with permission should be allowed")
	}
	if result.RequiresApproval {
		t.Error("safe tool should not require approval")
	}
	if result.Reason != ReasonAllowed {
		t.Errorf("expected reason %q, got %q", ReasonAllowed, result.Reason)
	}
	if len(f.logEntries) != 1 {
		t.Fatalf("expected exactly 1 log entry, got %d", len(f.logEntries))
	}
	if f.logEntries[0].Status != store.LogStatusExecuted {
		t.Errorf("expected executed log entry, got %q", f.logEntries[0].Status)
	}
	if f.pendingCreated != 0 {
		t.Error("immediate allow should not create a pending action")
	}
	if result.ActionLogID != f.logEntries[0].ID {
		t.Error("result should carry the log entry id")
	}
}

func TestEvaluate_NeedsApproval_CreatesPendingNoLog(t *testing.T) {
	f := newFakeStore()
	agent := f.addAgent("coder")
	tool := f.addTool("github_create_issue", store.RiskNeedsApproval)
	f.allow(agent.ID, tool.ID, true)

	result, err := newTestEngine(f).Evaluate(context.Background(), agent.ID, tool.ID, `{}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Allowed {
		t.Error("deferred request should not be allowed yet")
	}
	if !result.RequiresApproval {
		t.Error("needs_approval tool should require approval")
	}
	if result.Reason != ReasonNeedsApproval {
		t.Errorf("expected reason %q, got %q", ReasonNeedsApproval, result.Reason)
	}
	if result.PendingActionID == "" {
		t.Error("result should carry the pending action id")
	}
	if f.pendingCreated != 1 {
		t.Fatalf("expected exactly 1 pending action, got %d", f.pendingCreated)
	}
	if len(f.logEntries) != 0 {
		t.Errorf("deferral must not write a log entry, got %d", len(f.logEntries))
	}
}

func TestEvaluate_BlockedOverridesPermission(t *testing.T) {
	f := newFakeStore()
	agent := f.addAgent("coder")
	tool := f.addTool("fs_delete_file", store.RiskBlocked)
	f.allow(agent.ID, tool.ID, true) // explicit grant must not matter

	result, err := newTestEngine(f).Evaluate(context.Background(), agent.ID, tool.ID, `{}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Allowed || result.RequiresApproval {
		t.Error("blocked tool must be denied outright")
	}
	if result.Reason != ReasonBlockedRisk {
		t.Errorf("expected reason %q, got %q", ReasonBlockedRisk, result.Reason)
	}
	if len(f.logEntries) != 1 || f.logEntries[0].Status != store.LogStatusDenied {
		t.Fatal("blocked denial should write exactly one denied log entry")
	}
}

func TestEvaluate_MissingPermissionDenies(t *testing.T) {
	f := newFakeStore()
	agent := f.addAgent("coder")
	tool := f.addTool("fs_read_file", store.RiskSafe)
	// no permission row at all

	result, err := newTestEngine(f).Evaluate(context.Background(), agent.ID, tool.ID, `{}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Allowed {
		t.Error("absent permission row must deny")
	}
	if result.Reason != ReasonBlockedPermission {
		t.Errorf("expected reason %q, got %q", ReasonBlockedPermission, result.Reason)
	}
}

func TestEvaluate_ExplicitFalsePermissionDenies(t *testing.T) {
	f := newFakeStore()
	agent := f.addAgent("coder")
	tool := f.addTool("fs_read_file", store.RiskSafe)
	f.allow(agent.ID, tool.ID, false)

	result, err := newTestEngine(f).Evaluate(context.Background(), agent.ID, tool.ID, `{}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Allowed {
		t.Error("allowed=false must deny")
	}
	if result.Reason != ReasonBlockedPermission {
		t.Errorf("expected reason %q, got %q", ReasonBlockedPermission, result.Reason)
	}
	if len(f.logEntries) != 1 || f.logEntries[0].Status != store.LogStatusDenied {
		t.Fatal("permission denial should write exactly one denied log entry")
	}
}

func TestEvaluate_UnknownRiskLevelDeniesConservatively(t *testing.T) {
	f := newFakeStore()
	agent := f.addAgent("coder")
	tool := f.addTool("weird_tool", "experimental")
	f.allow(agent.ID, tool.ID, true)

	result, err := newTestEngine(f).Evaluate(context.Background(), agent.ID, tool.ID, `{}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Allowed || result.RequiresApproval {
		t.Error("unrecognized risk level must be denied")
	}
	if result.Reason != ReasonBlockedRisk {
		t.Errorf("expected reason %q, got %q", ReasonBlockedRisk, result.Reason)
	}
	if result.UnknownRiskLevel != "experimental" {
		t.Errorf("expected diagnostic marker %q, got %q", "experimental", result.UnknownRiskLevel)
	}
	if len(f.logEntries) != 1 || f.logEntries[0].Status != store.LogStatusDenied {
		t.Fatal("unknown tier denial should write exactly one denied log entry")
	}
}

func TestEvaluate_ToolNotFound(t *testing.T) {
	f := newFakeStore()
	agent := f.addAgent("coder")

	_, err := newTestEngine(f).Evaluate(context.Background(), agent.ID, "tool_missing", `{}`)
	if !errors.Is(err, ErrToolNotFound) {
		t.Fatalf("expected ErrToolNotFound, got %v", err)
	}
	if len(f.logEntries) != 0 || f.pendingCreated != 0 {
		t.Error("failed lookup must not write any side effects")
	}
}

func TestEvaluate_AgentNotFound(t *testing.T) {
	f := newFakeStore()
	tool := f.addTool("fs_read_file", store.RiskSafe)

	_, err := newTestEngine(f).Evaluate(context.Background(), "agent_missing", tool.ID, `{}`)
	if !errors.Is(err, ErrAgentNotFound) {
		t.Fatalf("expected ErrAgentNotFound, got %v", err)
	}
	if len(f.logEntries) != 0 || f.pendingCreated != 0 {
		t.Error("failed lookup must not write any side effects")
	}
}

func TestEvaluate_EmptyArgumentsDefaultToEmptyObject(t *testing.T) {
	f := newFakeStore()
	agent := f.addAgent("coder")
	tool := f.addTool("pg_list_tables", store.RiskSafe)
	f.allow(agent.ID, tool.ID, true)

	_, err := newTestEngine(f).Evaluate(context.Background(), agent.ID, tool.ID, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := f.logEntries[0].ArgumentsJSON; got != "{}" {
		t.Errorf("empty arguments should be stored as {}, got %q", got)
	}
}
