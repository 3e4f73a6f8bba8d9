package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Radix-Obsidian/ShepGate/internal/store"
	"go.uber.org/zap"
)

// fakeLookup serves agent rows by key prefix and counts invocations.
type fakeLookup struct {
	rows  map[string]*store.AgentProfile
	calls int
}

func (f *fakeLookup) LookupAgentByKeyPrefix(_ context.Context, prefix string) (*store.AgentProfile, error) {
	f.calls++
	return f.rows[prefix], nil
}

func newKeyedAgent(t *testing.T, id, name string) (*store.AgentProfile, string) {
	t.Helper()
	fullKey, hash, prefix, err := store.GenerateAgentKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return &store.AgentProfile{
		ID:           id,
		Name:         name,
		HostType:     "claude_code",
		APIKeyHash:   &hash,
		APIKeyPrefix: &prefix,
	}, fullKey
}

func newTestAuthenticator(lookup AgentLookup) *AgentAuthenticator {
	return NewAgentAuthenticator(AgentAuthConfig{
		Lookup: lookup,
		Logger: zap.NewNop(),
	})
}

func TestAuthenticate_ValidKey(t *testing.T) {
	agent, key := newKeyedAgent(t, "agent_1", "coder")
	lookup := &fakeLookup{rows: map[string]*store.AgentProfile{*agent.APIKeyPrefix: agent}}

	got, err := newTestAuthenticator(lookup).Authenticate(context.Background(), key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.AgentID != "agent_1" || got.Name != "coder" {
		t.Errorf("unexpected agent context: %+v", got)
	}
}

func TestAuthenticate_WrongKeySamePrefix(t *testing.T) {
	agent, key := newKeyedAgent(t, "agent_1", "coder")
	lookup := &fakeLookup{rows: map[string]*store.AgentProfile{*agent.APIKeyPrefix: agent}}

	// Same prefix, different suffix: bcrypt compare must reject.
	forged := key[:8] + "0000000000000000000000000000000000000000000000000000000000000000"
	_, err := newTestAuthenticator(lookup).Authenticate(context.Background(), forged)
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestAuthenticate_UnknownPrefix(t *testing.T) {
	lookup := &fakeLookup{rows: map[string]*store.AgentProfile{}}

	_, err := newTestAuthenticator(lookup).Authenticate(context.Background(), "sgk_deadbeefdeadbeef")
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestAuthenticate_ShortToken(t *testing.T) {
	lookup := &fakeLookup{rows: map[string]*store.AgentProfile{}}

	_, err := newTestAuthenticator(lookup).Authenticate(context.Background(), "sgk_ab")
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if lookup.calls != 0 {
		t.Error("short token should be rejected before the lookup")
	}
}

func TestAuthenticate_AgentWithoutKey(t *testing.T) {
	prefix := "sgk_abcd"
	agent := &store.AgentProfile{ID: "agent_1", APIKeyPrefix: &prefix} // hash never set
	lookup := &fakeLookup{rows: map[string]*store.AgentProfile{prefix: agent}}

	_, err := newTestAuthenticator(lookup).Authenticate(context.Background(), "sgk_abcdef0123456789")
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestAuthenticate_CacheHitSkipsLookup(t *testing.T) {
	agent, key := newKeyedAgent(t, "agent_1", "coder")
	lookup := &fakeLookup{rows: map[string]*store.AgentProfile{*agent.APIKeyPrefix: agent}}
	a := newTestAuthenticator(lookup)

	if _, err := a.Authenticate(context.Background(), key); err != nil {
		t.Fatalf("first authenticate failed: %v", err)
	}
	if _, err := a.Authenticate(context.Background(), key); err != nil {
		t.Fatalf("second authenticate failed: %v", err)
	}
	if lookup.calls != 1 {
		t.Errorf("expected 1 lookup with a warm cache, got %d", lookup.calls)
	}
}

func newRequestWithAuth(t *testing.T, header string) *http.Request {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/v1/execute", nil)
	if header != "" {
		r.Header.Set("Authorization", header)
	}
	return r
}

func TestExtractBearerToken(t *testing.T) {
	cases := []struct {
		name    string
		header  string
		want    string
		wantErr error
	}{
		{"missing header", "", "", ErrMissingAPIKey},
		{"standard bearer", "Bearer sgk_abc123", "sgk_abc123", nil},
		{"lowercase scheme", "bearer sgk_abc123", "sgk_abc123", nil},
		{"bare key", "sgk_abc123", "sgk_abc123", nil},
		{"wrong prefix", "Bearer pk_abc123", "", ErrInvalidAPIKey},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newRequestWithAuth(t, tc.header)
			got, err := ExtractBearerToken(r)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected error %v, got %v", tc.wantErr, err)
			}
			if got != tc.want {
				t.Errorf("expected token %q, got %q", tc.want, got)
			}
		})
	}
}
