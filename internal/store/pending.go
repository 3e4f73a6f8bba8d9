package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Pending action statuses. Transitions are pending -> approved or
// pending -> denied, each exactly once.
const (
	PendingStatusPending  = "pending"
	PendingStatusApproved = "approved"
	PendingStatusDenied   = "denied"
)

// ErrPendingNotFound is returned when a pending action id does not resolve.
var ErrPendingNotFound = errors.New("pending action not found")

// ErrNotPending is returned when resolving an action that has already
// reached a terminal status.
var ErrNotPending = errors.New("pending action already resolved")

// PendingAction represents a row in the pending_actions table: a deferred
// decision awaiting human approve/deny. Rows are never deleted.
type PendingAction struct {
	ID            string
	AgentID       string
	ToolID        string
	ArgumentsJSON string
	Status        string
	CreatedAt     time.Time
	ResolvedAt    *time.Time
}

// PendingActionDetail is a PendingAction joined with display fields for
// the approvals queue.
type PendingActionDetail struct {
	PendingAction
	AgentName  string
	ToolName   string
	RiskLevel  string
	ServerID   string
	ServerName string
}

// CreatePendingAction inserts a new pending action in state pending.
func (s *Store) CreatePendingAction(ctx context.Context, agentID, toolID, argumentsJSON string) (*PendingAction, error) {
	var pa PendingAction
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO pending_actions (agent_id, tool_id, arguments_json)
		VALUES ($1, $2, $3)
		RETURNING id, agent_id, tool_id, arguments_json, status, created_at, resolved_at`,
		agentID, toolID, argumentsJSON,
	).Scan(&pa.ID, &pa.AgentID, &pa.ToolID, &pa.ArgumentsJSON, &pa.Status,
		&pa.CreatedAt, &pa.ResolvedAt)
	if err != nil {
		return nil, fmt.Errorf("CreatePendingAction: %w", err)
	}
	return &pa, nil
}

// GetPendingAction returns the pending action with the given id, or nil.
func (s *Store) GetPendingAction(ctx context.Context, id string) (*PendingAction, error) {
	var pa PendingAction
	err := s.db.QueryRowContext(ctx, `
		SELECT id, agent_id, tool_id, arguments_json, status, created_at, resolved_at
		FROM pending_actions WHERE id = $1`, id,
	).Scan(&pa.ID, &pa.AgentID, &pa.ToolID, &pa.ArgumentsJSON, &pa.Status,
		&pa.CreatedAt, &pa.ResolvedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetPendingAction: %w", err)
	}
	return &pa, nil
}

// ResolvePendingAction transitions a pending action to the given terminal
// status and appends the matching action-log row, atomically. The row is
// locked for the duration of the transaction, so two concurrent resolutions
// of the same action serialize: the first wins, the second gets ErrNotPending.
//
// Returns the updated action and the log entry written for it.
func (s *Store) ResolvePendingAction(ctx context.Context, id, newStatus, logStatus, logReason string) (*PendingAction, *ActionLogEntry, error) {
	if newStatus != PendingStatusApproved && newStatus != PendingStatusDenied {
		return nil, nil, fmt.Errorf("ResolvePendingAction: invalid target status %q", newStatus)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("ResolvePendingAction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var currentStatus string
	err = tx.QueryRowContext(ctx, `
		SELECT status FROM pending_actions WHERE id = $1 FOR UPDATE`, id,
	).Scan(&currentStatus)
	if err == sql.ErrNoRows {
		return nil, nil, ErrPendingNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("ResolvePendingAction: %w", err)
	}
	if currentStatus != PendingStatusPending {
		return nil, nil, fmt.Errorf("%w: status is %q", ErrNotPending, currentStatus)
	}

	var pa PendingAction
	err = tx.QueryRowContext(ctx, `
		UPDATE pending_actions SET status = $2, resolved_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING id, agent_id, tool_id, arguments_json, status, created_at, resolved_at`,
		id, newStatus,
	).Scan(&pa.ID, &pa.AgentID, &pa.ToolID, &pa.ArgumentsJSON, &pa.Status,
		&pa.CreatedAt, &pa.ResolvedAt)
	if err != nil {
		return nil, nil, fmt.Errorf("ResolvePendingAction: %w", err)
	}

	var entry ActionLogEntry
	err = tx.QueryRowContext(ctx, `
		INSERT INTO action_log (agent_id, tool_id, arguments_json, status, reason)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, agent_id, tool_id, arguments_json, status, reason, created_at`,
		pa.AgentID, pa.ToolID, pa.ArgumentsJSON, logStatus, logReason,
	).Scan(&entry.ID, &entry.AgentID, &entry.ToolID, &entry.ArgumentsJSON,
		&entry.Status, &entry.Reason, &entry.CreatedAt)
	if err != nil {
		return nil, nil, fmt.Errorf("ResolvePendingAction: log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("ResolvePendingAction: %w", err)
	}
	return &pa, &entry, nil
}

// ListPendingActions returns pending actions with the given status
// (newest first), joined with agent/tool/server display fields.
func (s *Store) ListPendingActions(ctx context.Context, status string) ([]*PendingActionDetail, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pa.id, pa.agent_id, pa.tool_id, pa.arguments_json, pa.status,
		       pa.created_at, pa.resolved_at,
		       a.name, t.name, t.risk_level, sv.id, sv.name
		FROM pending_actions pa
		JOIN agent_profiles a ON a.id = pa.agent_id
		JOIN tools t ON t.id = pa.tool_id
		JOIN servers sv ON sv.id = t.server_id
		WHERE pa.status = $1
		ORDER BY pa.created_at DESC`,
		status,
	)
	if err != nil {
		return nil, fmt.Errorf("ListPendingActions: %w", err)
	}
	defer rows.Close()

	var actions []*PendingActionDetail
	for rows.Next() {
		var d PendingActionDetail
		if err := rows.Scan(&d.ID, &d.AgentID, &d.ToolID, &d.ArgumentsJSON, &d.Status,
			&d.CreatedAt, &d.ResolvedAt,
			&d.AgentName, &d.ToolName, &d.RiskLevel, &d.ServerID, &d.ServerName); err != nil {
			return nil, fmt.Errorf("ListPendingActions: %w", err)
		}
		actions = append(actions, &d)
	}
	return actions, rows.Err()
}
