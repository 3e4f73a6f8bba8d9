package execution

import (
	"encoding/json"
	"testing"

	"github.com/Radix-Obsidian/ShepGate/internal/store"
)

func toolWithSchema(schema string) *store.Tool {
	t := &store.Tool{ID: "tool_1", Name: "github_create_issue"}
	if schema != "" {
		t.InputSchema = json.RawMessage(schema)
	}
	return t
}

const issueSchema = `{
	"type": "object",
	"properties": {
		"title": {"type": "string"},
		"body": {"type": "string"}
	},
	"required": ["title"]
}`

func TestValidateArguments_NoSchemaAcceptsAnything(t *testing.T) {
	tool := toolWithSchema("")
	if err := ValidateArguments(tool, `{"whatever": 42}`); err != nil {
		t.Errorf("schemaless tool should accept any payload: %v", err)
	}
}

func TestValidateArguments_ValidPayload(t *testing.T) {
	tool := toolWithSchema(issueSchema)
	if err := ValidateArguments(tool, `{"title": "bug", "body": "details"}`); err != nil {
		t.Errorf("valid payload rejected: %v", err)
	}
}

func TestValidateArguments_MissingRequiredField(t *testing.T) {
	tool := toolWithSchema(issueSchema)
	if err := ValidateArguments(tool, `{"body": "details"}`); err == nil {
		t.Error("payload missing a required field should be rejected")
	}
}

func TestValidateArguments_WrongType(t *testing.T) {
	tool := toolWithSchema(issueSchema)
	if err := ValidateArguments(tool, `{"title": 42}`); err == nil {
		t.Error("payload with a wrong-typed field should be rejected")
	}
}

func TestValidateArguments_MalformedJSON(t *testing.T) {
	tool := toolWithSchema(issueSchema)
	if err := ValidateArguments(tool, `{"title":`); err == nil {
		t.Error("malformed JSON should be rejected")
	}
}

func TestValidateArguments_EmptyDefaultsToEmptyObject(t *testing.T) {
	tool := toolWithSchema(`{"type": "object"}`)
	if err := ValidateArguments(tool, ""); err != nil {
		t.Errorf("empty arguments should validate as {}: %v", err)
	}

	required := toolWithSchema(issueSchema)
	if err := ValidateArguments(required, ""); err == nil {
		t.Error("empty arguments should fail a schema with required fields")
	}
}

func TestValidateArguments_InvalidSchema(t *testing.T) {
	tool := toolWithSchema(`{not json`)
	if err := ValidateArguments(tool, `{}`); err == nil {
		t.Error("unparseable stored schema should be reported")
	}
}
