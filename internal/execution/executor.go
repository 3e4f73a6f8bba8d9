package execution

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Radix-Obsidian/ShepGate/internal/store"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// Result is the outcome of one downstream tool invocation.
type Result struct {
	Success bool   `json:"success"`
	Output  string `json:"output,omitempty"`
	Error   string `json:"error,omitempty"`
	Mocked  bool   `json:"mocked,omitempty"` // true when the call was simulated
}

// Executor invokes a tool on its downstream server. Called only after the
// policy engine grants immediate allowance or an approval resolves to
// approved, never by the engine itself.
type Executor interface {
	Invoke(ctx context.Context, toolID, argumentsJSON string) (*Result, error)
}

// ExecStore is the persistence surface the executor reads.
type ExecStore interface {
	GetTool(ctx context.Context, id string) (*store.Tool, error)
	GetServer(ctx context.Context, id string) (*store.Server, error)
	SecretsAsEnv(ctx context.Context) (map[string]string, error)
}

// MCPExecutor dispatches tool calls over pooled MCP sessions. When a server
// cannot be reached the call degrades to a simulated result rather than
// failing, so the approval workflow stays usable against servers that are
// registered but not yet running.
type MCPExecutor struct {
	store  ExecStore
	pool   *Pool
	logger *zap.Logger
}

// NewMCPExecutor creates an MCPExecutor.
func NewMCPExecutor(st ExecStore, pool *Pool, logger *zap.Logger) *MCPExecutor {
	return &MCPExecutor{store: st, pool: pool, logger: logger}
}

// Invoke resolves the tool and its server, validates the argument payload
// against the tool's input schema, and dispatches the call.
func (e *MCPExecutor) Invoke(ctx context.Context, toolID, argumentsJSON string) (*Result, error) {
	tool, err := e.store.GetTool(ctx, toolID)
	if err != nil {
		return nil, fmt.Errorf("Invoke: %w", err)
	}
	if tool == nil {
		return nil, fmt.Errorf("Invoke: tool %s not found", toolID)
	}

	server, err := e.store.GetServer(ctx, tool.ServerID)
	if err != nil {
		return nil, fmt.Errorf("Invoke: %w", err)
	}
	if server == nil {
		return nil, fmt.Errorf("Invoke: server %s not found", tool.ServerID)
	}

	if err := ValidateArguments(tool, argumentsJSON); err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}

	var args map[string]any
	if argumentsJSON != "" {
		if err := json.Unmarshal([]byte(argumentsJSON), &args); err != nil {
			return &Result{Success: false, Error: "arguments are not valid JSON: " + err.Error()}, nil
		}
	}

	env, err := e.store.SecretsAsEnv(ctx)
	if err != nil {
		return nil, fmt.Errorf("Invoke: %w", err)
	}

	session, err := e.pool.Session(ctx, server, env)
	if err != nil {
		e.logger.Warn("tool server unreachable, simulating execution",
			zap.String("server_id", server.ID),
			zap.String("tool_name", tool.Name),
			zap.Error(err),
		)
		return mockResult(tool, "server unreachable: "+err.Error()), nil
	}

	callResult, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      tool.Name,
		Arguments: args,
	})
	if err != nil {
		// Stale session: reconnect once and retry.
		e.pool.Invalidate(server.ID)
		session, reconnErr := e.pool.Session(ctx, server, env)
		if reconnErr != nil {
			return &Result{Success: false, Error: err.Error()}, nil
		}
		callResult, err = session.CallTool(ctx, &mcp.CallToolParams{
			Name:      tool.Name,
			Arguments: args,
		})
		if err != nil {
			return &Result{Success: false, Error: err.Error()}, nil
		}
	}

	output := extractContent(callResult)
	if callResult.IsError {
		return &Result{Success: false, Output: output, Error: "tool returned an error"}, nil
	}
	return &Result{Success: true, Output: output}, nil
}

// extractContent joins the text content blocks of a CallToolResult.
func extractContent(result *mcp.CallToolResult) string {
	if result == nil {
		return ""
	}
	var parts []string
	for _, c := range result.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func mockResult(tool *store.Tool, reason string) *Result {
	return &Result{
		Success: true,
		Mocked:  true,
		Output:  fmt.Sprintf("simulated execution of %s (%s)", tool.Name, reason),
	}
}

// MockExecutor simulates every invocation. Used in tests and when the
// gateway runs without downstream connectivity.
type MockExecutor struct {
	store ExecStore
}

// NewMockExecutor creates a MockExecutor.
func NewMockExecutor(st ExecStore) *MockExecutor {
	return &MockExecutor{store: st}
}

func (e *MockExecutor) Invoke(ctx context.Context, toolID, argumentsJSON string) (*Result, error) {
	tool, err := e.store.GetTool(ctx, toolID)
	if err != nil {
		return nil, fmt.Errorf("Invoke: %w", err)
	}
	if tool == nil {
		return nil, fmt.Errorf("Invoke: tool %s not found", toolID)
	}
	if err := ValidateArguments(tool, argumentsJSON); err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}
	return mockResult(tool, "mock executor"), nil
}
