package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/Radix-Obsidian/ShepGate/internal/store"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AgentLookup abstracts the store query for testability.
type AgentLookup interface {
	LookupAgentByKeyPrefix(ctx context.Context, prefix string) (*store.AgentProfile, error)
}

// AgentAuthenticator validates sgk_ API keys against the agent_profiles
// table. A gateway enforcing least privilege fails closed: any lookup or
// hash-compare failure rejects the request.
type AgentAuthenticator struct {
	lookup AgentLookup
	cache  *AuthCache
	logger *zap.Logger
}

// AgentAuthConfig configures the AgentAuthenticator.
type AgentAuthConfig struct {
	Lookup   AgentLookup
	CacheTTL time.Duration
	Logger   *zap.Logger
}

// NewAgentAuthenticator creates a new AgentAuthenticator.
func NewAgentAuthenticator(cfg AgentAuthConfig) *AgentAuthenticator {
	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = 30 * time.Second
	}
	return &AgentAuthenticator{
		lookup: cfg.Lookup,
		cache:  NewAuthCache(ttl),
		logger: cfg.Logger,
	}
}

// Authenticate resolves an sgk_ key to the agent it belongs to.
func (a *AgentAuthenticator) Authenticate(ctx context.Context, token string) (*AgentContext, error) {
	// Check cache
	cacheResult := a.cache.Get(token)
	if cacheResult.Hit {
		if cacheResult.NeedsRefresh {
			go a.refreshInBackground(token)
		}
		return cacheResult.Agent, nil
	}

	// Cache miss — authenticate synchronously
	agent, err := a.authenticateFromDB(ctx, token)
	if err != nil {
		return nil, err
	}

	a.cache.Set(token, agent)
	return agent, nil
}

func (a *AgentAuthenticator) authenticateFromDB(ctx context.Context, token string) (*AgentContext, error) {
	if len(token) < 8 {
		return nil, ErrUnauthenticated
	}
	prefix := token[:8]

	row, err := a.lookup.LookupAgentByKeyPrefix(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("authenticateFromDB: %w", err)
	}
	if row == nil || row.APIKeyHash == nil {
		return nil, ErrUnauthenticated
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*row.APIKeyHash), []byte(token)); err != nil {
		return nil, ErrUnauthenticated
	}

	return &AgentContext{
		AgentID:  row.ID,
		Name:     row.Name,
		HostType: row.HostType,
	}, nil
}

func (a *AgentAuthenticator) refreshInBackground(token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	agent, err := a.authenticateFromDB(ctx, token)
	if err != nil {
		a.logger.Warn("background auth refresh failed", zap.Error(err))
		a.cache.Delete(token)
		return
	}
	a.cache.Set(token, agent)
}
