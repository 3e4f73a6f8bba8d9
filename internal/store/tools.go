package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Risk levels a tool can carry. Mutable by administrators at any time;
// a change takes effect on the next evaluation.
const (
	RiskSafe          = "safe"
	RiskNeedsApproval = "needs_approval"
	RiskBlocked       = "blocked"
)

// ValidRiskLevel reports whether s is a recognized risk level.
func ValidRiskLevel(s string) bool {
	return s == RiskSafe || s == RiskNeedsApproval || s == RiskBlocked
}

// Tool represents a row in the tools table.
type Tool struct {
	ID          string
	ServerID    string
	Name        string
	Description string
	InputSchema json.RawMessage // JSON Schema, nil if not set
	RiskLevel   string
	CreatedAt   time.Time
}

// ToolSpec describes a discovered tool to be registered during a server sync.
type ToolSpec struct {
	Name        string
	Description string
	InputSchema json.RawMessage
}

// GetTool returns the tool with the given id, or nil if not found.
func (s *Store) GetTool(ctx context.Context, id string) (*Tool, error) {
	var t Tool
	var schema sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, server_id, name, description, input_schema, risk_level, created_at
		FROM tools WHERE id = $1`, id,
	).Scan(&t.ID, &t.ServerID, &t.Name, &t.Description, &schema, &t.RiskLevel, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetTool: %w", err)
	}
	if schema.Valid {
		t.InputSchema = json.RawMessage(schema.String)
	}
	return &t, nil
}

// ListTools returns all tools, optionally filtered by server id, ordered by name.
func (s *Store) ListTools(ctx context.Context, serverID string) ([]*Tool, error) {
	query := `
		SELECT id, server_id, name, description, input_schema, risk_level, created_at
		FROM tools`
	args := []any{}
	if serverID != "" {
		query += ` WHERE server_id = $1`
		args = append(args, serverID)
	}
	query += ` ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListTools: %w", err)
	}
	defer rows.Close()

	var tools []*Tool
	for rows.Next() {
		var t Tool
		var schema sql.NullString
		if err := rows.Scan(&t.ID, &t.ServerID, &t.Name, &t.Description, &schema,
			&t.RiskLevel, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("ListTools: %w", err)
		}
		if schema.Valid {
			t.InputSchema = json.RawMessage(schema.String)
		}
		tools = append(tools, &t)
	}
	return tools, rows.Err()
}

// SetToolRiskLevel updates a tool's risk level. In-flight pending approvals
// are not retroactively affected. Returns nil if the tool does not exist.
func (s *Store) SetToolRiskLevel(ctx context.Context, id, riskLevel string) (*Tool, error) {
	var t Tool
	var schema sql.NullString
	err := s.db.QueryRowContext(ctx, `
		UPDATE tools SET risk_level = $2 WHERE id = $1
		RETURNING id, server_id, name, description, input_schema, risk_level, created_at`,
		id, riskLevel,
	).Scan(&t.ID, &t.ServerID, &t.Name, &t.Description, &schema, &t.RiskLevel, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("SetToolRiskLevel: %w", err)
	}
	if schema.Valid {
		t.InputSchema = json.RawMessage(schema.String)
	}
	return &t, nil
}

// DeleteTool removes a tool. Permission rows and pending actions cascade.
func (s *Store) DeleteTool(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tools WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("DeleteTool: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("DeleteTool: %w", err)
	}
	return n > 0, nil
}

// SyncTools registers newly discovered tools for a server and backfills a
// default-deny permission row per (agent, new tool) pair, all in one
// transaction. Existing tools (matched by name) are left untouched. New
// tools default to needs_approval. Returns the number of tools added.
func (s *Store) SyncTools(ctx context.Context, serverID string, specs []ToolSpec) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("SyncTools: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	added := 0
	for _, spec := range specs {
		var schema any
		if len(spec.InputSchema) > 0 {
			schema = string(spec.InputSchema)
		}

		var toolID string
		err := tx.QueryRowContext(ctx, `
			INSERT INTO tools (server_id, name, description, input_schema, risk_level)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (server_id, name) DO NOTHING
			RETURNING id`,
			serverID, spec.Name, spec.Description, schema, RiskNeedsApproval,
		).Scan(&toolID)
		if err == sql.ErrNoRows {
			continue // already registered
		}
		if err != nil {
			return 0, fmt.Errorf("SyncTools: insert %q: %w", spec.Name, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO tool_permissions (agent_id, tool_id, allowed)
			SELECT id, $1, false FROM agent_profiles
			ON CONFLICT (agent_id, tool_id) DO NOTHING`,
			toolID,
		)
		if err != nil {
			return 0, fmt.Errorf("SyncTools: backfill %q: %w", spec.Name, err)
		}
		added++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("SyncTools: %w", err)
	}
	return added, nil
}
