package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

var (
	ErrMissingAPIKey = errors.New("missing authorization header")
	ErrInvalidAPIKey = errors.New("invalid API key format")
	// ErrUnauthenticated is returned when no agent matches the presented key.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// AgentContext holds the authenticated agent's identity.
type AgentContext struct {
	AgentID  string
	Name     string
	HostType string
}

// Authenticator validates an sgk_ API key and returns the agent it belongs to.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*AgentContext, error)
}

// ExtractBearerToken extracts an sgk_ API key from the Authorization header.
func ExtractBearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingAPIKey
	}

	token := header
	// RFC 6750: the "Bearer" scheme is case-insensitive.
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		token = token[7:]
	}
	token = strings.TrimSpace(token)

	if !strings.HasPrefix(token, "sgk_") {
		return "", ErrInvalidAPIKey
	}
	return token, nil
}
