package execution

import (
	"testing"

	"github.com/Radix-Obsidian/ShepGate/internal/store"
)

func TestParseCommand(t *testing.T) {
	cases := []struct {
		in       string
		wantExec string
		wantArgs int
	}{
		{"npx -y @modelcontextprotocol/server-github", "npx", 2},
		{"python server.py", "python", 1},
		{"server", "server", 0},
		{"", "", 0},
	}

	for _, tc := range cases {
		executable, args := parseCommand(tc.in)
		if executable != tc.wantExec {
			t.Errorf("parseCommand(%q) executable = %q, want %q", tc.in, executable, tc.wantExec)
		}
		if len(args) != tc.wantArgs {
			t.Errorf("parseCommand(%q) args = %d, want %d", tc.in, len(args), tc.wantArgs)
		}
	}
}

func TestBuildTransport_MCPWithoutCommand(t *testing.T) {
	_, err := buildTransport(&store.Server{Name: "gh", Type: "mcp"}, nil)
	if err == nil {
		t.Error("mcp server without a command should be rejected")
	}
}

func TestBuildTransport_HTTPWithoutBaseURL(t *testing.T) {
	_, err := buildTransport(&store.Server{Name: "api", Type: "http"}, nil)
	if err == nil {
		t.Error("http server without a base URL should be rejected")
	}
}

func TestBuildTransport_UnknownType(t *testing.T) {
	_, err := buildTransport(&store.Server{Name: "x", Type: "grpc"}, nil)
	if err == nil {
		t.Error("unknown server type should be rejected")
	}
}
