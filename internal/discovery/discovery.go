package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Radix-Obsidian/ShepGate/internal/execution"
	"github.com/Radix-Obsidian/ShepGate/internal/store"
	"go.uber.org/zap"
)

// Discoverer finds the tools a server exposes. Live MCP servers are asked
// directly (ListTools); unreachable or HTTP servers fall back to a
// name-pattern catalog so the permission model can be configured before
// the server is ever launched.
type Discoverer struct {
	pool   *execution.Pool
	logger *zap.Logger
}

// NewDiscoverer creates a Discoverer using the given connection pool.
func NewDiscoverer(pool *execution.Pool, logger *zap.Logger) *Discoverer {
	return &Discoverer{pool: pool, logger: logger}
}

// Invalidate drops the pooled session for a server so the next discovery
// or dispatch reconnects with fresh configuration.
func (d *Discoverer) Invalidate(serverID string) {
	d.pool.Invalidate(serverID)
}

// Discover returns the tool specs exposed by a server.
func (d *Discoverer) Discover(ctx context.Context, server *store.Server, env map[string]string) ([]store.ToolSpec, error) {
	if server.Type == "mcp" && server.Command != "" {
		specs, err := d.discoverMCP(ctx, server, env)
		if err == nil {
			return specs, nil
		}
		d.logger.Warn("live tool discovery failed, using catalog fallback",
			zap.String("server_id", server.ID),
			zap.Error(err),
		)
	}
	return CatalogFor(server), nil
}

func (d *Discoverer) discoverMCP(ctx context.Context, server *store.Server, env map[string]string) ([]store.ToolSpec, error) {
	session, err := d.pool.Session(ctx, server, env)
	if err != nil {
		return nil, err
	}

	result, err := session.ListTools(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("discoverMCP: %w", err)
	}

	specs := make([]store.ToolSpec, 0, len(result.Tools))
	for _, t := range result.Tools {
		spec := store.ToolSpec{
			Name:        t.Name,
			Description: t.Description,
		}
		if t.InputSchema != nil {
			if b, err := json.Marshal(t.InputSchema); err == nil {
				spec.InputSchema = b
			}
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// CatalogFor returns a static tool catalog matched on the server's name,
// or a generic entry when nothing matches.
func CatalogFor(server *store.Server) []store.ToolSpec {
	name := strings.ToLower(server.Name)
	switch {
	case strings.Contains(name, "github"):
		return githubCatalog
	case strings.Contains(name, "filesystem") || strings.Contains(name, "file"):
		return filesystemCatalog
	case strings.Contains(name, "postgres") || strings.Contains(name, "database"):
		return postgresCatalog
	}

	if server.Type == "http" {
		return []store.ToolSpec{
			{Name: "http_get", Description: "GET request to " + server.BaseURL,
				InputSchema: objSchema(`{"endpoint": {"type": "string"}, "params": {"type": "object"}}`)},
			{Name: "http_post", Description: "POST request to " + server.BaseURL,
				InputSchema: objSchema(`{"endpoint": {"type": "string"}, "body": {"type": "object"}}`)},
		}
	}

	return []store.ToolSpec{
		{Name: "generic_call", Description: "Make a generic call to the server",
			InputSchema: objSchema(`{"action": {"type": "string"}, "params": {"type": "object"}}`)},
	}
}

var githubCatalog = []store.ToolSpec{
	{Name: "github_list_repos", Description: "List repositories for a user or organization",
		InputSchema: objSchema(`{"owner": {"type": "string"}}`)},
	{Name: "github_get_repo", Description: "Get repository details",
		InputSchema: objSchema(`{"owner": {"type": "string"}, "repo": {"type": "string"}}`)},
	{Name: "github_create_issue", Description: "Create a new issue in a repository",
		InputSchema: objSchema(`{"owner": {"type": "string"}, "repo": {"type": "string"}, "title": {"type": "string"}, "body": {"type": "string"}}`)},
	{Name: "github_list_issues", Description: "List issues in a repository",
		InputSchema: objSchema(`{"owner": {"type": "string"}, "repo": {"type": "string"}}`)},
	{Name: "github_create_pull_request", Description: "Create a pull request",
		InputSchema: objSchema(`{"owner": {"type": "string"}, "repo": {"type": "string"}, "title": {"type": "string"}, "head": {"type": "string"}, "base": {"type": "string"}}`)},
}

var filesystemCatalog = []store.ToolSpec{
	{Name: "fs_read_file", Description: "Read contents of a file",
		InputSchema: objSchema(`{"path": {"type": "string"}}`)},
	{Name: "fs_write_file", Description: "Write contents to a file",
		InputSchema: objSchema(`{"path": {"type": "string"}, "content": {"type": "string"}}`)},
	{Name: "fs_list_directory", Description: "List files in a directory",
		InputSchema: objSchema(`{"path": {"type": "string"}}`)},
	{Name: "fs_delete_file", Description: "Delete a file",
		InputSchema: objSchema(`{"path": {"type": "string"}}`)},
	{Name: "fs_create_directory", Description: "Create a new directory",
		InputSchema: objSchema(`{"path": {"type": "string"}}`)},
}

var postgresCatalog = []store.ToolSpec{
	{Name: "pg_query", Description: "Execute a SQL query",
		InputSchema: objSchema(`{"query": {"type": "string"}}`)},
	{Name: "pg_list_tables", Description: "List all tables in the database",
		InputSchema: objSchema(`{}`)},
	{Name: "pg_describe_table", Description: "Get table schema",
		InputSchema: objSchema(`{"table": {"type": "string"}}`)},
}

func objSchema(properties string) json.RawMessage {
	return json.RawMessage(`{"type": "object", "properties": ` + properties + `}`)
}
