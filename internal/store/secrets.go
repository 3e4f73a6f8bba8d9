package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Secret represents a row in the secrets table. Values are consumed only by
// the execution layer (injected as environment into spawned tool servers)
// and are never returned by the API.
type Secret struct {
	ID          string
	Name        string
	Value       string
	Description string
	CreatedAt   time.Time
}

// UpsertSecret creates or replaces a secret by name.
func (s *Store) UpsertSecret(ctx context.Context, name, value, description string) (*Secret, error) {
	var sec Secret
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO secrets (name, value, description)
		VALUES ($1, $2, $3)
		ON CONFLICT (name)
		DO UPDATE SET value = EXCLUDED.value, description = EXCLUDED.description
		RETURNING id, name, value, description, created_at`,
		name, value, description,
	).Scan(&sec.ID, &sec.Name, &sec.Value, &sec.Description, &sec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("UpsertSecret: %w", err)
	}
	return &sec, nil
}

// ListSecrets returns all secrets ordered by name. Callers must redact
// values before surfacing them.
func (s *Store) ListSecrets(ctx context.Context) ([]*Secret, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, value, description, created_at
		FROM secrets ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("ListSecrets: %w", err)
	}
	defer rows.Close()

	var secrets []*Secret
	for rows.Next() {
		var sec Secret
		if err := rows.Scan(&sec.ID, &sec.Name, &sec.Value, &sec.Description, &sec.CreatedAt); err != nil {
			return nil, fmt.Errorf("ListSecrets: %w", err)
		}
		secrets = append(secrets, &sec)
	}
	return secrets, rows.Err()
}

// SecretsAsEnv returns name -> value for all stored secrets, for injection
// into a tool server's environment.
func (s *Store) SecretsAsEnv(ctx context.Context) (map[string]string, error) {
	secrets, err := s.ListSecrets(ctx)
	if err != nil {
		return nil, fmt.Errorf("SecretsAsEnv: %w", err)
	}
	env := make(map[string]string, len(secrets))
	for _, sec := range secrets {
		env[sec.Name] = sec.Value
	}
	return env, nil
}

// DeleteSecret removes a secret by id.
func (s *Store) DeleteSecret(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM secrets WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("DeleteSecret: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("DeleteSecret: %w", err)
	}
	return n > 0, nil
}

// GetSecretByID returns a secret row, or nil if not found.
func (s *Store) GetSecretByID(ctx context.Context, id string) (*Secret, error) {
	var sec Secret
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, value, description, created_at
		FROM secrets WHERE id = $1`, id,
	).Scan(&sec.ID, &sec.Name, &sec.Value, &sec.Description, &sec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetSecretByID: %w", err)
	}
	return &sec, nil
}
