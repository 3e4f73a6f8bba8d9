package policy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Radix-Obsidian/ShepGate/internal/storage"
	"github.com/Radix-Obsidian/ShepGate/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Reason codes attached to every decision.
const (
	ReasonAllowed           = "allowed"
	ReasonNeedsApproval     = "needs_approval"
	ReasonBlockedRisk       = "blocked_risk"
	ReasonBlockedPermission = "blocked_permission"
	ReasonApproved          = "approved"
	ReasonDeniedByUser      = "denied_by_user"
)

// ErrToolNotFound is returned when the referenced tool id does not resolve.
// No audit entry is written in that case.
var ErrToolNotFound = errors.New("tool not found")

// ErrAgentNotFound is returned when the referenced agent id does not resolve.
var ErrAgentNotFound = errors.New("agent not found")

// Store is the persistence surface the engine and resolver operate on.
// *store.Store satisfies it; tests substitute fakes.
type Store interface {
	GetAgent(ctx context.Context, id string) (*store.AgentProfile, error)
	GetTool(ctx context.Context, id string) (*store.Tool, error)
	GetPermission(ctx context.Context, agentID, toolID string) (*store.ToolPermission, error)
	AppendActionLog(ctx context.Context, agentID, toolID, argumentsJSON, status, reason string) (*store.ActionLogEntry, error)
	CreatePendingAction(ctx context.Context, agentID, toolID, argumentsJSON string) (*store.PendingAction, error)
	ResolvePendingAction(ctx context.Context, id, newStatus, logStatus, logReason string) (*store.PendingAction, *store.ActionLogEntry, error)
}

// Result is the outcome of one policy evaluation. A denied decision is not
// an error: it is a successfully evaluated Result with Allowed=false.
type Result struct {
	Allowed          bool
	RequiresApproval bool
	Reason           string
	PendingActionID  string // set when RequiresApproval
	ActionLogID      string // set when a terminal log entry was written
	UnknownRiskLevel string // diagnostic marker when an unrecognized tier was denied
}

// Engine is the policy decision procedure: it classifies an execution
// request and performs exactly one side effect per call: either one
// action-log row (terminal decision) or one pending-action row (deferral).
// It never invokes downstream tools itself.
type Engine struct {
	store  Store
	writer storage.EventWriter
	logger *zap.Logger
}

// NewEngine creates an Engine with the given dependencies.
func NewEngine(st Store, writer storage.EventWriter, logger *zap.Logger) *Engine {
	return &Engine{store: st, writer: writer, logger: logger}
}

// Evaluate runs the decision procedure for one execution request.
// Rules, first match wins:
//
//  1. risk blocked            -> deny (blocked_risk), log denied
//  2. permission missing/false -> deny (blocked_permission), log denied
//  3. risk safe               -> allow (allowed), log executed
//  4. risk needs_approval     -> defer (needs_approval), create pending action
//  5. unrecognized risk       -> deny (blocked_risk), log denied
//
// Risk blocking is checked before permissions so no grant can bypass an
// administrative block. Permissions are checked before the tier-driven
// allow/defer so a non-permitted agent cannot learn a tool's risk level.
//
// If Evaluate returns an error, no side effect is recorded for this call.
func (e *Engine) Evaluate(ctx context.Context, agentID, toolID, argumentsJSON string) (*Result, error) {
	start := time.Now()

	agent, err := e.store.GetAgent(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("Evaluate: %w", err)
	}
	if agent == nil {
		return nil, ErrAgentNotFound
	}

	tool, err := e.store.GetTool(ctx, toolID)
	if err != nil {
		return nil, fmt.Errorf("Evaluate: %w", err)
	}
	if tool == nil {
		return nil, ErrToolNotFound
	}

	if argumentsJSON == "" {
		argumentsJSON = "{}"
	}

	// Rule 1: blocked tools are denied regardless of permission state.
	if tool.RiskLevel == store.RiskBlocked {
		return e.deny(ctx, agent, tool, argumentsJSON, ReasonBlockedRisk, "", start)
	}

	perm, err := e.store.GetPermission(ctx, agentID, toolID)
	if err != nil {
		return nil, fmt.Errorf("Evaluate: %w", err)
	}

	// Rule 2: no permission row behaves identically to an explicit false.
	if perm == nil || !perm.Allowed {
		return e.deny(ctx, agent, tool, argumentsJSON, ReasonBlockedPermission, "", start)
	}

	switch tool.RiskLevel {
	case store.RiskSafe:
		// Rule 3: immediate allow. The caller dispatches the actual call.
		entry, err := e.store.AppendActionLog(ctx, agent.ID, tool.ID, argumentsJSON,
			store.LogStatusExecuted, ReasonAllowed)
		if err != nil {
			return nil, fmt.Errorf("Evaluate: %w", err)
		}
		e.emit(agent, tool, argumentsJSON, store.LogStatusExecuted, ReasonAllowed, "", start)
		return &Result{Allowed: true, Reason: ReasonAllowed, ActionLogID: entry.ID}, nil

	case store.RiskNeedsApproval:
		// Rule 4: defer. No audit entry until the approval resolves.
		pa, err := e.store.CreatePendingAction(ctx, agent.ID, tool.ID, argumentsJSON)
		if err != nil {
			return nil, fmt.Errorf("Evaluate: %w", err)
		}
		e.emit(agent, tool, argumentsJSON, store.PendingStatusPending, ReasonNeedsApproval, "", start)
		return &Result{
			RequiresApproval: true,
			Reason:           ReasonNeedsApproval,
			PendingActionID:  pa.ID,
		}, nil

	default:
		// Rule 5: unknown tiers deny conservatively, reported as blocked_risk.
		e.logger.Warn("unrecognized risk level, denying",
			zap.String("tool_id", tool.ID),
			zap.String("risk_level", tool.RiskLevel),
		)
		return e.deny(ctx, agent, tool, argumentsJSON, ReasonBlockedRisk, tool.RiskLevel, start)
	}
}

// deny writes the terminal denied log entry and builds the Result.
func (e *Engine) deny(ctx context.Context, agent *store.AgentProfile, tool *store.Tool, argumentsJSON, reason, unknownRisk string, start time.Time) (*Result, error) {
	entry, err := e.store.AppendActionLog(ctx, agent.ID, tool.ID, argumentsJSON,
		store.LogStatusDenied, reason)
	if err != nil {
		return nil, fmt.Errorf("Evaluate: %w", err)
	}

	detail := ""
	if unknownRisk != "" {
		detail = "unrecognized risk level: " + unknownRisk
	}
	e.emit(agent, tool, argumentsJSON, store.LogStatusDenied, reason, detail, start)

	return &Result{
		Allowed:          false,
		Reason:           reason,
		ActionLogID:      entry.ID,
		UnknownRiskLevel: unknownRisk,
	}, nil
}

// emit queues a decision event on the analytics writer. Never blocks; the
// Postgres action log remains the authoritative record.
func (e *Engine) emit(agent *store.AgentProfile, tool *store.Tool, argumentsJSON, status, reason, detail string, start time.Time) {
	if e.writer == nil {
		return
	}
	e.writer.Write(&storage.DecisionEvent{
		RequestID:     uuid.New().String(),
		Timestamp:     time.Now(),
		AgentID:       agent.ID,
		AgentName:     agent.Name,
		ToolID:        tool.ID,
		ToolName:      tool.Name,
		ServerID:      tool.ServerID,
		ArgumentsJSON: argumentsJSON,
		Status:        status,
		Reason:        reason,
		Detail:        detail,
		RiskLevel:     tool.RiskLevel,
		LatencyMs:     float32(float64(time.Since(start)) / float64(time.Millisecond)),
		Source:        "evaluate",
	})
}
