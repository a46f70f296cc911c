// Package mcpserver implements the server façade: the method-keyed handler
// registry, the tool/prompt/resource sub-registries, and tools/call,
// prompts/get, resources/read dispatch (spec.md §3 "Handler registry
// (server side)", §4.F, §4.G).
// file: internal/mcpserver/schema.go
package mcpserver

import (
	"encoding/json"
	"reflect"
	"strings"
)

// deriveInputSchema builds a JSON-Schema document for argsShape following
// spec.md §4.G's derivation rules: primitive fields map to
// string|integer|number|boolean, slices/arrays to array, nested structs to
// object, and required lists every field whose json tag doesn't carry
// omitempty. A nil or non-struct argsShape yields an empty-object schema
// (a tool that takes no arguments).
func deriveInputSchema(argsShape any) json.RawMessage {
	schema := map[string]any{"type": "object"}
	if argsShape == nil {
		schema["properties"] = map[string]any{}
		raw, _ := json.Marshal(schema)
		return raw
	}

	t := reflect.TypeOf(argsShape)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		schema["properties"] = map[string]any{}
		raw, _ := json.Marshal(schema)
		return raw
	}

	props := map[string]any{}
	var required []string
	walkStructFields(t, func(name string, fieldType reflect.Type, omitEmpty bool, description string) {
		props[name] = jsonSchemaForType(fieldType)
		if desc := props[name].(map[string]any); description != "" {
			desc["description"] = description
		}
		if !omitEmpty {
			required = append(required, name)
		}
	})

	schema["properties"] = props
	if len(required) > 0 {
		schema["required"] = required
	}
	raw, _ := json.Marshal(schema)
	return raw
}

// walkStructFields visits every exported, JSON-tagged field of t (including
// fields promoted from embedded structs), reporting its wire name, Go type,
// whether its tag carries omitempty, and an optional "desc" struct tag used
// for schema descriptions.
func walkStructFields(t reflect.Type, visit func(name string, fieldType reflect.Type, omitEmpty bool, description string)) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" && !f.Anonymous {
			continue // unexported
		}
		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}
		if f.Anonymous && tag == "" {
			ft := f.Type
			for ft.Kind() == reflect.Ptr {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				walkStructFields(ft, visit)
				continue
			}
		}
		parts := strings.Split(tag, ",")
		name := parts[0]
		if name == "" {
			name = f.Name
		}
		omitEmpty := false
		for _, p := range parts[1:] {
			if p == "omitempty" {
				omitEmpty = true
			}
		}
		if f.Type.Kind() == reflect.Ptr {
			omitEmpty = true
		}
		visit(name, f.Type, omitEmpty, f.Tag.Get("desc"))
	}
}

// jsonSchemaForType maps a Go type to the {"type": ...} fragment spec.md
// §4.G prescribes: primitives to their scalar JSON-Schema type, slices/arrays
// to "array" with an "items" fragment, maps/structs to "object".
func jsonSchemaForType(t reflect.Type) map[string]any {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return map[string]any{"type": "string"}
	case reflect.Bool:
		return map[string]any{"type": "boolean"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return map[string]any{"type": "integer"}
	case reflect.Float32, reflect.Float64:
		return map[string]any{"type": "number"}
	case reflect.Slice, reflect.Array:
		return map[string]any{"type": "array", "items": jsonSchemaForType(t.Elem())}
	case reflect.Map:
		return map[string]any{"type": "object"}
	case reflect.Struct:
		props := map[string]any{}
		var required []string
		walkStructFields(t, func(name string, fieldType reflect.Type, omitEmpty bool, description string) {
			props[name] = jsonSchemaForType(fieldType)
			if !omitEmpty {
				required = append(required, name)
			}
		})
		out := map[string]any{"type": "object", "properties": props}
		if len(required) > 0 {
			out["required"] = required
		}
		return out
	default:
		return map[string]any{}
	}
}
