package store

import (
	"context"
	"fmt"
	"time"
)

// Terminal statuses an action-log entry can carry.
const (
	LogStatusExecuted = "executed"
	LogStatusDenied   = "denied"
)

// ActionLogEntry represents a row in the append-only action_log table.
// Entries are never mutated or deleted.
type ActionLogEntry struct {
	ID            string
	AgentID       string
	ToolID        string
	ArgumentsJSON string
	Status        string // "executed" or "denied"
	Reason        string
	CreatedAt     time.Time
}

// ActionLogDetail is an ActionLogEntry joined with display fields.
type ActionLogDetail struct {
	ActionLogEntry
	AgentName string
	ToolName  string
}

// AppendActionLog writes one immutable terminal-decision record.
func (s *Store) AppendActionLog(ctx context.Context, agentID, toolID, argumentsJSON, status, reason string) (*ActionLogEntry, error) {
	var e ActionLogEntry
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO action_log (agent_id, tool_id, arguments_json, status, reason)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, agent_id, tool_id, arguments_json, status, reason, created_at`,
		agentID, toolID, argumentsJSON, status, reason,
	).Scan(&e.ID, &e.AgentID, &e.ToolID, &e.ArgumentsJSON, &e.Status, &e.Reason, &e.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("AppendActionLog: %w", err)
	}
	return &e, nil
}

// ListActionLog returns log entries newest first, optionally filtered by
// agent. limit <= 0 means the default of 100.
func (s *Store) ListActionLog(ctx context.Context, agentID string, limit int) ([]*ActionLogDetail, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT l.id, l.agent_id, l.tool_id, l.arguments_json, l.status, l.reason,
		       l.created_at, a.name, t.name
		FROM action_log l
		JOIN agent_profiles a ON a.id = l.agent_id
		JOIN tools t ON t.id = l.tool_id`
	args := []any{}
	if agentID != "" {
		query += ` WHERE l.agent_id = $1`
		args = append(args, agentID)
	}
	query += fmt.Sprintf(` ORDER BY l.created_at DESC LIMIT %d`, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListActionLog: %w", err)
	}
	defer rows.Close()

	var entries []*ActionLogDetail
	for rows.Next() {
		var d ActionLogDetail
		if err := rows.Scan(&d.ID, &d.AgentID, &d.ToolID, &d.ArgumentsJSON, &d.Status,
			&d.Reason, &d.CreatedAt, &d.AgentName, &d.ToolName); err != nil {
			return nil, fmt.Errorf("ListActionLog: %w", err)
		}
		entries = append(entries, &d)
	}
	return entries, rows.Err()
}

// Counts returns dashboard totals in a single round trip.
func (s *Store) Counts(ctx context.Context) (agents, servers, tools, pending, logged int, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT count(*) FROM agent_profiles),
			(SELECT count(*) FROM servers),
			(SELECT count(*) FROM tools),
			(SELECT count(*) FROM pending_actions WHERE status = 'pending'),
			(SELECT count(*) FROM action_log)`,
	).Scan(&agents, &servers, &tools, &pending, &logged)
	if err != nil {
		err = fmt.Errorf("Counts: %w", err)
	}
	return
}
