package execution

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/Radix-Obsidian/ShepGate/internal/store"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// Pool maintains MCP client sessions keyed by server id, closing sessions
// that sit idle past the configured timeout. Lifetime policy is injected so
// tests can construct a pool with a short timeout.
type Pool struct {
	mu          sync.Mutex
	conns       map[string]*poolConn
	idleTimeout time.Duration
	logger      *zap.Logger
	done        chan struct{}
	stopped     sync.Once
}

type poolConn struct {
	session  *mcp.ClientSession
	lastUsed time.Time
}

// NewPool creates a Pool and starts the background staleness sweep.
func NewPool(idleTimeout, sweepInterval time.Duration, logger *zap.Logger) *Pool {
	if idleTimeout <= 0 {
		idleTimeout = 5 * time.Minute
	}
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	p := &Pool{
		conns:       make(map[string]*poolConn),
		idleTimeout: idleTimeout,
		logger:      logger,
		done:        make(chan struct{}),
	}
	go p.sweepLoop(sweepInterval)
	return p
}

// Session returns a connected session for the server, establishing one if
// needed. env is merged over the parent process environment for spawned
// stdio servers.
func (p *Pool) Session(ctx context.Context, server *store.Server, env map[string]string) (*mcp.ClientSession, error) {
	p.mu.Lock()
	if conn, ok := p.conns[server.ID]; ok {
		conn.lastUsed = time.Now()
		session := conn.session
		p.mu.Unlock()
		return session, nil
	}
	p.mu.Unlock()

	transport, err := buildTransport(server, env)
	if err != nil {
		return nil, err
	}

	client := mcp.NewClient(&mcp.Implementation{
		Name:    "shepgate",
		Version: "0.1.0",
	}, nil)

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("Session: connect %q: %w", server.Name, err)
	}

	p.mu.Lock()
	// A concurrent caller may have connected first; keep theirs.
	if existing, ok := p.conns[server.ID]; ok {
		existing.lastUsed = time.Now()
		p.mu.Unlock()
		_ = session.Close()
		return existing.session, nil
	}
	p.conns[server.ID] = &poolConn{session: session, lastUsed: time.Now()}
	p.mu.Unlock()

	p.logger.Info("connected to tool server",
		zap.String("server_id", server.ID),
		zap.String("server_name", server.Name),
	)
	return session, nil
}

// Invalidate drops and closes the session for a server, forcing the next
// call to reconnect.
func (p *Pool) Invalidate(serverID string) {
	p.mu.Lock()
	conn, ok := p.conns[serverID]
	if ok {
		delete(p.conns, serverID)
	}
	p.mu.Unlock()
	if ok {
		_ = conn.session.Close()
	}
}

// Close stops the sweep loop and closes all sessions.
func (p *Pool) Close() {
	p.stopped.Do(func() { close(p.done) })

	p.mu.Lock()
	conns := p.conns
	p.conns = make(map[string]*poolConn)
	p.mu.Unlock()

	for _, conn := range conns {
		_ = conn.session.Close()
	}
}

func (p *Pool) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.sweep(time.Now())
		case <-p.done:
			return
		}
	}
}

// sweep closes sessions idle past the timeout. Split out for testability.
func (p *Pool) sweep(now time.Time) {
	var stale []*poolConn

	p.mu.Lock()
	for id, conn := range p.conns {
		if now.Sub(conn.lastUsed) > p.idleTimeout {
			stale = append(stale, conn)
			delete(p.conns, id)
			p.logger.Info("closing idle tool server connection", zap.String("server_id", id))
		}
	}
	p.mu.Unlock()

	for _, conn := range stale {
		_ = conn.session.Close()
	}
}

// buildTransport creates the appropriate MCP transport for a server row.
func buildTransport(server *store.Server, env map[string]string) (mcp.Transport, error) {
	switch server.Type {
	case "mcp":
		if server.Command == "" {
			return nil, fmt.Errorf("server %q has no command configured", server.Name)
		}
		executable, args := parseCommand(server.Command)
		cmd := exec.Command(executable, args...)
		cmd.Env = os.Environ()
		for k, v := range env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
		return &mcp.CommandTransport{Command: cmd}, nil

	case "http":
		if server.BaseURL == "" {
			return nil, fmt.Errorf("server %q has no base URL configured", server.Name)
		}
		return &mcp.StreamableClientTransport{
			Endpoint:   server.BaseURL,
			HTTPClient: &http.Client{Timeout: 30 * time.Second},
		}, nil

	default:
		return nil, fmt.Errorf("unknown server type %q", server.Type)
	}
}

// parseCommand splits a launch command string into executable and arguments.
func parseCommand(command string) (string, []string) {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return "", nil
	}
	return parts[0], parts[1:]
}
