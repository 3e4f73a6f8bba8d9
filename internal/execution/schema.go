package execution

import (
	"encoding/json"
	"fmt"

	"github.com/Radix-Obsidian/ShepGate/internal/store"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ValidateArguments validates an argument payload against the tool's stored
// input schema. Tools without a schema accept any payload. This runs at
// dispatch time only; policy evaluation never inspects arguments.
func ValidateArguments(tool *store.Tool, argumentsJSON string) error {
	if len(tool.InputSchema) == 0 {
		return nil
	}

	var schemaObj any
	if err := json.Unmarshal(tool.InputSchema, &schemaObj); err != nil {
		return fmt.Errorf("invalid input schema for %s: %w", tool.Name, err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", schemaObj); err != nil {
		return fmt.Errorf("schema compile error: %w", err)
	}
	sch, err := c.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("schema compile error: %w", err)
	}

	if argumentsJSON == "" {
		argumentsJSON = "{}"
	}
	var args any
	if err := json.Unmarshal([]byte(argumentsJSON), &args); err != nil {
		return fmt.Errorf("arguments are not valid JSON: %w", err)
	}

	if err := sch.Validate(args); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
