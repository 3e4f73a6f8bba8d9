package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Server represents a row in the servers table: a downstream MCP or HTTP
// tool server the gateway can dispatch calls to.
type Server struct {
	ID          string
	Name        string
	Type        string // "mcp" or "http"
	Command     string // launch command for stdio MCP servers
	BaseURL     string // endpoint for http/streamable servers
	Description string
	CreatedAt   time.Time
}

// UpdateServerParams holds optional fields for partial server updates.
type UpdateServerParams struct {
	Name        *string
	Command     *string
	BaseURL     *string
	Description *string
}

// CreateServer inserts a new server row.
func (s *Store) CreateServer(ctx context.Context, name, serverType, command, baseURL, description string) (*Server, error) {
	var sv Server
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO servers (name, type, command, base_url, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, name, type, command, base_url, description, created_at`,
		name, serverType, command, baseURL, description,
	).Scan(&sv.ID, &sv.Name, &sv.Type, &sv.Command, &sv.BaseURL, &sv.Description, &sv.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("CreateServer: %w", err)
	}
	return &sv, nil
}

// GetServer returns the server with the given id, or nil if not found.
func (s *Store) GetServer(ctx context.Context, id string) (*Server, error) {
	var sv Server
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, type, command, base_url, description, created_at
		FROM servers WHERE id = $1`, id,
	).Scan(&sv.ID, &sv.Name, &sv.Type, &sv.Command, &sv.BaseURL, &sv.Description, &sv.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetServer: %w", err)
	}
	return &sv, nil
}

// ListServers returns all servers ordered by created_at DESC.
func (s *Store) ListServers(ctx context.Context) ([]*Server, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, type, command, base_url, description, created_at
		FROM servers ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("ListServers: %w", err)
	}
	defer rows.Close()

	var servers []*Server
	for rows.Next() {
		var sv Server
		if err := rows.Scan(&sv.ID, &sv.Name, &sv.Type, &sv.Command, &sv.BaseURL,
			&sv.Description, &sv.CreatedAt); err != nil {
			return nil, fmt.Errorf("ListServers: %w", err)
		}
		servers = append(servers, &sv)
	}
	return servers, rows.Err()
}

// UpdateServer applies a partial update. Only non-nil fields are changed.
// Returns nil if the server does not exist.
func (s *Store) UpdateServer(ctx context.Context, id string, params UpdateServerParams) (*Server, error) {
	var sv Server
	err := s.db.QueryRowContext(ctx, `
		UPDATE servers SET
			name        = COALESCE($2, name),
			command     = COALESCE($3, command),
			base_url    = COALESCE($4, base_url),
			description = COALESCE($5, description)
		WHERE id = $1
		RETURNING id, name, type, command, base_url, description, created_at`,
		id, params.Name, params.Command, params.BaseURL, params.Description,
	).Scan(&sv.ID, &sv.Name, &sv.Type, &sv.Command, &sv.BaseURL, &sv.Description, &sv.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("UpdateServer: %w", err)
	}
	return &sv, nil
}

// DeleteServer removes a server. Its tools (and their permissions and
// pending actions) cascade at the schema level.
func (s *Store) DeleteServer(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM servers WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("DeleteServer: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("DeleteServer: %w", err)
	}
	return n > 0, nil
}
