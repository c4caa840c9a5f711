// Package tools holds the fixed catalog of LLM-callable game tools and the
// registry that validates and executes tool calls during a turn.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"tavern/internal/domain"
	services "tavern/internal/domain/services/game"
)

// ToolExecutor runs one tool invocation against already-validated input.
type ToolExecutor interface {
	Execute(ctx context.Context, input map[string]any) (any, error)
}

// ToolResult is the engine's reply to a tool call, rendered as JSON for the
// LLM conversation. Executor failures are captured as {"error": "..."} so the
// model can recover; they never abort the turn.
type ToolResult struct {
	CallID     string
	Name       string
	ResultJSON string
	IsError    bool
}

type registeredTool struct {
	definition services.ToolDefinition
	schema     *jsonschema.Schema
	executor   ToolExecutor
}

// Registry maps tool names to their definition, parameter schema, and
// executor. Built once per session; reads are concurrent-safe.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*registeredTool
	order []string
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*registeredTool)}
}

// Register adds a tool under its definition name, compiling the parameter
// schema. Re-registering a name replaces the previous executor.
func (r *Registry) Register(def services.ToolDefinition, executor ToolExecutor) error {
	schema, err := compileSchema(def.Name, def.Parameters)
	if err != nil {
		return fmt.Errorf("compile schema for tool %s: %w", def.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[def.Name]; !exists {
		r.order = append(r.order, def.Name)
	}
	r.tools[def.Name] = &registeredTool{definition: def, schema: schema, executor: executor}
	return nil
}

// Definitions returns the tool definitions in registration order, ready for
// the LLM port.
func (r *Registry) Definitions() []services.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]services.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].definition)
	}
	return defs
}

// Execute validates the call's arguments against the tool's schema and runs
// the executor. All failures are folded into an error ToolResult.
func (r *Registry) Execute(ctx context.Context, call services.ToolCall) ToolResult {
	r.mu.RLock()
	t := r.tools[call.Name]
	r.mu.RUnlock()

	if t == nil {
		return errorResult(call, fmt.Errorf("unknown tool: %s", call.Name))
	}

	raw := call.ArgumentsJSON
	if raw == "" {
		raw = "{}"
	}
	var input map[string]any
	if err := json.Unmarshal([]byte(raw), &input); err != nil {
		return errorResult(call, fmt.Errorf("%w: %v", domain.ErrInvalidToolArguments, err))
	}
	if err := t.schema.Validate(map[string]any(input)); err != nil {
		return errorResult(call, fmt.Errorf("%w: %v", domain.ErrInvalidToolArguments, err))
	}

	result, err := t.executor.Execute(ctx, input)
	if err != nil {
		return errorResult(call, err)
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return errorResult(call, fmt.Errorf("marshal tool result: %w", err))
	}
	return ToolResult{CallID: call.ID, Name: call.Name, ResultJSON: string(payload)}
}

func errorResult(call services.ToolCall, err error) ToolResult {
	payload, _ := json.Marshal(map[string]string{"error": err.Error()})
	return ToolResult{CallID: call.ID, Name: call.Name, ResultJSON: string(payload), IsError: true}
}

// Compiled schemas are cached by their serialized form: the tool catalog is
// fixed, so each schema compiles exactly once per process.
var schemaCache sync.Map

func compileSchema(name string, parameters map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(parameters)
	if err != nil {
		return nil, err
	}

	key := string(raw)
	if cached, ok := schemaCache.Load(key); ok {
		if compiled, ok := cached.(*jsonschema.Schema); ok {
			return compiled, nil
		}
	}

	compiled, err := jsonschema.CompileString(name+".schema.json", key)
	if err != nil {
		return nil, err
	}
	schemaCache.Store(key, compiled)
	return compiled, nil
}
