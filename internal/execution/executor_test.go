package execution

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/Radix-Obsidian/ShepGate/internal/store"
)

type fakeExecStore struct {
	tools   map[string]*store.Tool
	servers map[string]*store.Server
	env     map[string]string
}

func (f *fakeExecStore) GetTool(_ context.Context, id string) (*store.Tool, error) {
	return f.tools[id], nil
}

func (f *fakeExecStore) GetServer(_ context.Context, id string) (*store.Server, error) {
	return f.servers[id], nil
}

func (f *fakeExecStore) SecretsAsEnv(_ context.Context) (map[string]string, error) {
	return f.env, nil
}

func TestMockExecutor_SimulatesCall(t *testing.T) {
	st := &fakeExecStore{tools: map[string]*store.Tool{
		"tool_1": {ID: "tool_1", Name: "fs_read_file"},
	}}

	result, err := NewMockExecutor(st).Invoke(context.Background(), "tool_1", `{"path": "/tmp"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Error("mock invocation should succeed")
	}
	if !result.Mocked {
		t.Error("mock invocation should be flagged as simulated")
	}
}

func TestMockExecutor_UnknownTool(t *testing.T) {
	st := &fakeExecStore{tools: map[string]*store.Tool{}}

	if _, err := NewMockExecutor(st).Invoke(context.Background(), "tool_missing", `{}`); err == nil {
		t.Error("unknown tool should be an error")
	}
}

func TestMockExecutor_SchemaRejectionIsNotAnError(t *testing.T) {
	st := &fakeExecStore{tools: map[string]*store.Tool{
		"tool_1": {
			ID:          "tool_1",
			Name:        "github_create_issue",
			InputSchema: json.RawMessage(issueSchema),
		},
	}}

	result, err := NewMockExecutor(st).Invoke(context.Background(), "tool_1", `{"body": "no title"}`)
	if err != nil {
		t.Fatalf("schema rejection should be reported in the result, not as an error: %v", err)
	}
	if result.Success {
		t.Error("invalid payload should fail the invocation")
	}
	if result.Error == "" {
		t.Error("result should carry the validation message")
	}
}
