package discovery

import (
	"testing"

	"github.com/Radix-Obsidian/ShepGate/internal/store"
)

func toolNames(specs []store.ToolSpec) map[string]bool {
	names := make(map[string]bool, len(specs))
	for _, s := range specs {
		names[s.Name] = true
	}
	return names
}

func TestCatalogFor_GitHub(t *testing.T) {
	specs := CatalogFor(&store.Server{Name: "GitHub MCP", Type: "mcp"})
	names := toolNames(specs)
	if !names["github_create_issue"] || !names["github_list_repos"] {
		t.Errorf("github catalog missing expected tools: %v", names)
	}
}

func TestCatalogFor_Filesystem(t *testing.T) {
	specs := CatalogFor(&store.Server{Name: "local filesystem", Type: "mcp"})
	names := toolNames(specs)
	if !names["fs_read_file"] || !names["fs_delete_file"] {
		t.Errorf("filesystem catalog missing expected tools: %v", names)
	}
}

func TestCatalogFor_Postgres(t *testing.T) {
	specs := CatalogFor(&store.Server{Name: "prod database", Type: "mcp"})
	names := toolNames(specs)
	if !names["pg_query"] {
		t.Errorf("postgres catalog missing expected tools: %v", names)
	}
}

func TestCatalogFor_HTTPFallback(t *testing.T) {
	specs := CatalogFor(&store.Server{Name: "billing api", Type: "http", BaseURL: "https://billing.internal"})
	names := toolNames(specs)
	if !names["http_get"] || !names["http_post"] {
		t.Errorf("http fallback missing expected tools: %v", names)
	}
}

func TestCatalogFor_GenericFallback(t *testing.T) {
	specs := CatalogFor(&store.Server{Name: "mystery", Type: "mcp"})
	if len(specs) != 1 || specs[0].Name != "generic_call" {
		t.Errorf("expected single generic_call spec, got %v", specs)
	}
}

func TestCatalogFor_SchemasAreValidJSON(t *testing.T) {
	for _, server := range []*store.Server{
		{Name: "github", Type: "mcp"},
		{Name: "filesystem", Type: "mcp"},
		{Name: "postgres", Type: "mcp"},
		{Name: "api", Type: "http", BaseURL: "https://x"},
		{Name: "other", Type: "mcp"},
	} {
		for _, spec := range CatalogFor(server) {
			if len(spec.InputSchema) == 0 {
				t.Errorf("%s/%s has no input schema", server.Name, spec.Name)
			}
		}
	}
}
