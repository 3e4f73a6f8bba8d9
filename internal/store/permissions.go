package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ToolPermission represents a row in the tool_permissions table: the
// per-agent-per-tool boolean grant. At most one row exists per
// (agent_id, tool_id) pair; all writes go through upserts.
type ToolPermission struct {
	ID        string
	AgentID   string
	ToolID    string
	Allowed   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GetPermission returns the permission row for (agent, tool), or nil if no
// row exists. Absence behaves identically to allowed=false at evaluation.
func (s *Store) GetPermission(ctx context.Context, agentID, toolID string) (*ToolPermission, error) {
	var p ToolPermission
	err := s.db.QueryRowContext(ctx, `
		SELECT id, agent_id, tool_id, allowed, created_at, updated_at
		FROM tool_permissions WHERE agent_id = $1 AND tool_id = $2`,
		agentID, toolID,
	).Scan(&p.ID, &p.AgentID, &p.ToolID, &p.Allowed, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetPermission: %w", err)
	}
	return &p, nil
}

// SetPermission upserts the (agent, tool) permission to the given value.
// Idempotent: setting an already-set value is a no-op success, and the
// unique constraint guarantees a single row even under concurrent upserts.
func (s *Store) SetPermission(ctx context.Context, agentID, toolID string, allowed bool) (*ToolPermission, error) {
	var p ToolPermission
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO tool_permissions (agent_id, tool_id, allowed)
		VALUES ($1, $2, $3)
		ON CONFLICT (agent_id, tool_id)
		DO UPDATE SET allowed = EXCLUDED.allowed, updated_at = now()
		RETURNING id, agent_id, tool_id, allowed, created_at, updated_at`,
		agentID, toolID, allowed,
	).Scan(&p.ID, &p.AgentID, &p.ToolID, &p.Allowed, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("SetPermission: %w", err)
	}
	return &p, nil
}

// GrantAll upserts allowed=true for every existing tool for the agent.
// Returns the number of rows touched.
func (s *Store) GrantAll(ctx context.Context, agentID string) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO tool_permissions (agent_id, tool_id, allowed)
		SELECT $1, id, true FROM tools
		ON CONFLICT (agent_id, tool_id)
		DO UPDATE SET allowed = true, updated_at = now()`,
		agentID,
	)
	if err != nil {
		return 0, fmt.Errorf("GrantAll: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("GrantAll: %w", err)
	}
	return int(n), nil
}

// RevokeAll sets allowed=false on every permission row the agent has.
// Returns the number of rows touched.
func (s *Store) RevokeAll(ctx context.Context, agentID string) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tool_permissions SET allowed = false, updated_at = now()
		WHERE agent_id = $1`,
		agentID,
	)
	if err != nil {
		return 0, fmt.Errorf("RevokeAll: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("RevokeAll: %w", err)
	}
	return int(n), nil
}

// ListPermissions returns all permission rows for an agent ordered by tool name.
func (s *Store) ListPermissions(ctx context.Context, agentID string) ([]*ToolPermission, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.agent_id, p.tool_id, p.allowed, p.created_at, p.updated_at
		FROM tool_permissions p
		JOIN tools t ON t.id = p.tool_id
		WHERE p.agent_id = $1
		ORDER BY t.name`,
		agentID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListPermissions: %w", err)
	}
	defer rows.Close()

	var perms []*ToolPermission
	for rows.Next() {
		var p ToolPermission
		if err := rows.Scan(&p.ID, &p.AgentID, &p.ToolID, &p.Allowed,
			&p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("ListPermissions: %w", err)
		}
		perms = append(perms, &p)
	}
	return perms, rows.Err()
}
