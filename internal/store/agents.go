package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// AgentProfile represents a row in the agent_profiles table.
type AgentProfile struct {
	ID           string
	Name         string
	Description  string
	HostType     string
	APIKeyHash   *string
	APIKeyPrefix *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UpdateAgentParams holds optional fields for partial agent updates.
type UpdateAgentParams struct {
	Name        *string
	Description *string
	HostType    *string
}

// GenerateAgentKey creates a new sgk_ API key with its bcrypt hash and prefix.
// Returns (fullKey, hash, prefix, error). The fullKey is shown to the caller once.
func GenerateAgentKey() (string, string, string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", "", "", fmt.Errorf("GenerateAgentKey: %w", err)
	}
	fullKey := "sgk_" + hex.EncodeToString(raw)

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(fullKey), bcrypt.DefaultCost)
	if err != nil {
		return "", "", "", fmt.Errorf("GenerateAgentKey: %w", err)
	}

	prefix := fullKey[:8] // "sgk_abcd"
	return fullKey, string(hashBytes), prefix, nil
}

// CreateAgent inserts a new agent profile and backfills a default-deny
// permission row for every existing tool, all in one transaction.
// Returns the agent and its plaintext API key (shown once).
func (s *Store) CreateAgent(ctx context.Context, name, description, hostType string) (*AgentProfile, string, error) {
	fullKey, keyHash, keyPrefix, err := GenerateAgentKey()
	if err != nil {
		return nil, "", fmt.Errorf("CreateAgent: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, "", fmt.Errorf("CreateAgent: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var a AgentProfile
	err = tx.QueryRowContext(ctx, `
		INSERT INTO agent_profiles (name, description, host_type, api_key_hash, api_key_prefix)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, name, description, host_type, api_key_hash, api_key_prefix,
		          created_at, updated_at`,
		name, description, hostType, keyHash, keyPrefix,
	).Scan(&a.ID, &a.Name, &a.Description, &a.HostType, &a.APIKeyHash, &a.APIKeyPrefix,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, "", fmt.Errorf("CreateAgent: %w", err)
	}

	// Default-deny backfill: an explicit allowed=false row per existing tool.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO tool_permissions (agent_id, tool_id, allowed)
		SELECT $1, id, false FROM tools
		ON CONFLICT (agent_id, tool_id) DO NOTHING`,
		a.ID,
	)
	if err != nil {
		return nil, "", fmt.Errorf("CreateAgent: backfill permissions: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, "", fmt.Errorf("CreateAgent: %w", err)
	}

	return &a, fullKey, nil
}

// GetAgent returns the agent with the given id, or nil if not found.
func (s *Store) GetAgent(ctx context.Context, id string) (*AgentProfile, error) {
	var a AgentProfile
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, host_type, api_key_hash, api_key_prefix,
		       created_at, updated_at
		FROM agent_profiles WHERE id = $1`, id,
	).Scan(&a.ID, &a.Name, &a.Description, &a.HostType, &a.APIKeyHash, &a.APIKeyPrefix,
		&a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetAgent: %w", err)
	}
	return &a, nil
}

// LookupAgentByKeyPrefix returns the agent whose API key carries the given
// prefix, or nil if no agent matches.
func (s *Store) LookupAgentByKeyPrefix(ctx context.Context, prefix string) (*AgentProfile, error) {
	var a AgentProfile
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, host_type, api_key_hash, api_key_prefix,
		       created_at, updated_at
		FROM agent_profiles WHERE api_key_prefix = $1`, prefix,
	).Scan(&a.ID, &a.Name, &a.Description, &a.HostType, &a.APIKeyHash, &a.APIKeyPrefix,
		&a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("LookupAgentByKeyPrefix: %w", err)
	}
	return &a, nil
}

// ListAgents returns all agent profiles ordered by created_at DESC.
func (s *Store) ListAgents(ctx context.Context) ([]*AgentProfile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, host_type, api_key_hash, api_key_prefix,
		       created_at, updated_at
		FROM agent_profiles ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("ListAgents: %w", err)
	}
	defer rows.Close()

	var agents []*AgentProfile
	for rows.Next() {
		var a AgentProfile
		if err := rows.Scan(&a.ID, &a.Name, &a.Description, &a.HostType,
			&a.APIKeyHash, &a.APIKeyPrefix, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("ListAgents: %w", err)
		}
		agents = append(agents, &a)
	}
	return agents, rows.Err()
}

// UpdateAgent applies a partial update. Only non-nil fields are changed.
// Returns nil if the agent does not exist.
func (s *Store) UpdateAgent(ctx context.Context, id string, params UpdateAgentParams) (*AgentProfile, error) {
	var a AgentProfile
	err := s.db.QueryRowContext(ctx, `
		UPDATE agent_profiles SET
			name        = COALESCE($2, name),
			description = COALESCE($3, description),
			host_type   = COALESCE($4, host_type),
			updated_at  = now()
		WHERE id = $1
		RETURNING id, name, description, host_type, api_key_hash, api_key_prefix,
		          created_at, updated_at`,
		id, params.Name, params.Description, params.HostType,
	).Scan(&a.ID, &a.Name, &a.Description, &a.HostType, &a.APIKeyHash, &a.APIKeyPrefix,
		&a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("UpdateAgent: %w", err)
	}
	return &a, nil
}

// RotateAgentKey replaces the agent's API key. Returns the new plaintext key
// (shown once), or "" if the agent does not exist.
func (s *Store) RotateAgentKey(ctx context.Context, id string) (string, error) {
	fullKey, keyHash, keyPrefix, err := GenerateAgentKey()
	if err != nil {
		return "", fmt.Errorf("RotateAgentKey: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE agent_profiles SET api_key_hash = $2, api_key_prefix = $3, updated_at = now()
		WHERE id = $1`,
		id, keyHash, keyPrefix,
	)
	if err != nil {
		return "", fmt.Errorf("RotateAgentKey: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("RotateAgentKey: %w", err)
	}
	if n == 0 {
		return "", nil
	}
	return fullKey, nil
}

// DeleteAgent removes an agent. Permissions, pending actions and log rows
// cascade at the schema level. Returns false if the agent does not exist.
func (s *Store) DeleteAgent(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM agent_profiles WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("DeleteAgent: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("DeleteAgent: %w", err)
	}
	return n > 0, nil
}
