// file: internal/mcpserver/validate.go
package mcpserver

import (
	"bytes"
	"encoding/json"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/dkoosis/mcpcore/internal/mcperror"
)

// argSchemaCache compiles and caches a *jsonschema.Schema per tool, keyed by
// tool name and compiled from the tool's InputSchema. A tool's schema rarely
// changes after registration, so compilation happens once and the result is
// reused across every tools/call for that tool (spec.md §4.G).
type argSchemaCache struct {
	mu     sync.Mutex
	byName map[string]*jsonschema.Schema
}

func newArgSchemaCache() *argSchemaCache {
	return &argSchemaCache{byName: make(map[string]*jsonschema.Schema)}
}

// compile returns the compiled schema for name, compiling raw on first use.
// An empty raw schema yields a nil schema ("no constraints"); a raw schema
// that fails to load or compile is returned as an error.
func (c *argSchemaCache) compile(name string, raw json.RawMessage) (*jsonschema.Schema, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.byName[name]; ok {
		return s, nil
	}
	if len(raw) == 0 {
		return nil, nil
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	resourceID := "mem://mcpserver/" + name + ".json"
	if err := compiler.AddResource(resourceID, bytes.NewReader(raw)); err != nil {
		return nil, errors.Wrapf(err, "add schema resource for %q", name)
	}
	schema, err := compiler.Compile(resourceID)
	if err != nil {
		return nil, errors.Wrapf(err, "compile schema for %q", name)
	}
	c.byName[name] = schema
	return schema, nil
}

// validateArguments validates decoded args against name's declared input
// schema, translating a schema violation into the same invalid-params shape
// handleToolsCall already uses for other argument errors.
func (c *argSchemaCache) validateArguments(name string, rawSchema json.RawMessage, args map[string]any) error {
	schema, err := c.compile(name, rawSchema)
	if err != nil {
		// A tool registered with a schema that doesn't itself compile is a
		// server bug, not a caller error, but callers still need an error
		// plane to land on; surface it rather than silently skip validation.
		return mcperror.ErrorWithDetails(errors.Wrapf(err, "schema for %q", name), mcperror.CategoryRPC, mcperror.CodeInternalError, nil)
	}
	if schema == nil {
		return nil
	}
	if args == nil {
		args = map[string]any{}
	}
	if err := schema.Validate(any(args)); err != nil {
		var valErr *jsonschema.ValidationError
		if errors.As(err, &valErr) {
			return mcperror.ErrorWithDetails(errors.Errorf("arguments for %q: %s", name, valErr.Error()), mcperror.CategoryRPC, mcperror.CodeInvalidParams, nil)
		}
		return mcperror.ErrorWithDetails(errors.Wrapf(err, "validate arguments for %q", name), mcperror.CategoryRPC, mcperror.CodeInvalidParams, nil)
	}
	return nil
}
