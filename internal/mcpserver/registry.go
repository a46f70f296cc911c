// file: internal/mcpserver/registry.go
package mcpserver

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"sync"

	"github.com/dkoosis/mcpcore/internal/mcp"
)

// RequestContext is the per-call handle injected into every tool, prompt,
// and resource invoker. It carries the two framework-supplied positions
// spec.md §4.G calls out — the owning server and the request context — plus
// the progress token the caller attached to params._meta, if any. Neither
// field is part of a tool's derived JSON input schema.
type RequestContext struct {
	Server        *Server
	ProgressToken any
}

// Progress emits one notifications/progress update for this call's token, a
// no-op if the caller didn't attach one (spec.md §4.H).
func (rc *RequestContext) Progress(ctx context.Context, progress, total float64, message string) {
	if rc.ProgressToken == nil || rc.Server == nil {
		return
	}
	params := map[string]any{"progressToken": rc.ProgressToken, "progress": progress}
	if total != 0 {
		params["total"] = total
	}
	if message != "" {
		params["message"] = message
	}
	_ = rc.Server.notify(ctx, "notifications/progress", params)
}

// ToolInvoker is the invocation signature every registered tool satisfies:
// decoded arguments in, a CallToolResult or an error out. A non-nil error
// that isn't *ToolException becomes the content of an isError result
// (spec.md §4.F "tools/call dispatch"); a *ToolException becomes a
// JSON-RPC Error instead.
type ToolInvoker func(ctx context.Context, rc *RequestContext, args map[string]any) (mcp.CallToolResult, error)

// PromptInvoker renders a registered prompt's arguments into a
// GetPromptResult.
type PromptInvoker func(ctx context.Context, rc *RequestContext, args map[string]string) (mcp.GetPromptResult, error)

// ResourceInvoker reads a direct (fixed-URI) resource's contents.
type ResourceInvoker func(ctx context.Context, rc *RequestContext, uri string) (mcp.ReadResourceResult, error)

// TemplateInvoker reads a templated resource's contents given the variables
// captured from the URI that matched.
type TemplateInvoker func(ctx context.Context, rc *RequestContext, uri string, vars map[string]string) (mcp.ReadResourceResult, error)

// ToolOptions configures a RegisterTool call beyond name and handler.
type ToolOptions struct {
	Title        string
	Description  string
	OutputSchema json.RawMessage
	Annotations  *mcp.ToolAnnotations
}

type toolEntry struct {
	descriptor mcp.Tool
	invoke     ToolInvoker
}

type promptEntry struct {
	descriptor mcp.Prompt
	invoke     PromptInvoker
}

type resourceEntry struct {
	descriptor mcp.Resource
	invoke     ResourceInvoker
}

// templateEntry is a registered URI-template resource plus its compiled
// matcher. Templates are searched in registration order (spec.md §4.G), so
// registry insertion order is significant and preserved in a slice rather
// than a map.
type templateEntry struct {
	descriptor mcp.ResourceTemplate
	matcher    *templateMatcher
	invoke     TemplateInvoker
}

// registry holds every tool/prompt/resource/template registered on one
// Server, guarded by a single mutex since mutation is rare relative to
// lookup (spec.md §5 "Shared resources").
type registry struct {
	mu sync.RWMutex

	tools     map[string]*toolEntry
	toolOrder []string

	prompts     map[string]*promptEntry
	promptOrder []string

	resources     map[string]*resourceEntry
	resourceOrder []string

	templates []*templateEntry
}

func newRegistry() *registry {
	return &registry{
		tools:     make(map[string]*toolEntry),
		prompts:   make(map[string]*promptEntry),
		resources: make(map[string]*resourceEntry),
	}
}

func (r *registry) addTool(e *toolEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[e.descriptor.Name]; !exists {
		r.toolOrder = append(r.toolOrder, e.descriptor.Name)
	}
	r.tools[e.descriptor.Name] = e
}

func (r *registry) removeTool(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[name]; !ok {
		return false
	}
	delete(r.tools, name)
	r.toolOrder = removeString(r.toolOrder, name)
	return true
}

func (r *registry) getTool(name string) (*toolEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.tools[name]
	return e, ok
}

func (r *registry) listTools() []mcp.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]mcp.Tool, 0, len(r.toolOrder))
	for _, name := range r.toolOrder {
		out = append(out, r.tools[name].descriptor)
	}
	return out
}

func (r *registry) addPrompt(e *promptEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.prompts[e.descriptor.Name]; !exists {
		r.promptOrder = append(r.promptOrder, e.descriptor.Name)
	}
	r.prompts[e.descriptor.Name] = e
}

func (r *registry) getPrompt(name string) (*promptEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.prompts[name]
	return e, ok
}

func (r *registry) listPrompts() []mcp.Prompt {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]mcp.Prompt, 0, len(r.promptOrder))
	for _, name := range r.promptOrder {
		out = append(out, r.prompts[name].descriptor)
	}
	return out
}

func (r *registry) addResource(e *resourceEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.resources[e.descriptor.URI]; !exists {
		r.resourceOrder = append(r.resourceOrder, e.descriptor.URI)
	}
	r.resources[e.descriptor.URI] = e
}

func (r *registry) getResource(uri string) (*resourceEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.resources[uri]
	return e, ok
}

func (r *registry) listResources() []mcp.Resource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]mcp.Resource, 0, len(r.resourceOrder))
	for _, uri := range r.resourceOrder {
		out = append(out, r.resources[uri].descriptor)
	}
	return out
}

func (r *registry) addTemplate(e *templateEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates = append(r.templates, e)
}

func (r *registry) listTemplates() []mcp.ResourceTemplate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]mcp.ResourceTemplate, 0, len(r.templates))
	for _, t := range r.templates {
		out = append(out, t.descriptor)
	}
	return out
}

// matchTemplate tries every registered template in registration order,
// returning the first one whose pattern binds uri (spec.md §4.G
// "resources/read ... the first template that binds is used").
func (r *registry) matchTemplate(uri string) (*templateEntry, map[string]string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.templates {
		if vars, ok := t.matcher.match(uri); ok {
			return t, vars, true
		}
	}
	return nil, nil, false
}

func removeString(ss []string, target string) []string {
	out := ss[:0]
	for _, s := range ss {
		if s != target {
			out = append(out, s)
		}
	}
	return out
}

// templateMatcher compiles an RFC 6570-style "{var}" URI template (the
// single-segment subset MCP resource templates use in practice) into a
// regular expression that captures each variable.
type templateMatcher struct {
	re   *regexp.Regexp
	vars []string
}

var templateVarRE = regexp.MustCompile(`\{([^}]+)\}`)

func compileTemplate(template string) *templateMatcher {
	var vars []string
	pattern := templateVarRE.ReplaceAllStringFunc(template, func(m string) string {
		name := strings.TrimSuffix(strings.TrimPrefix(m, "{"), "}")
		vars = append(vars, name)
		return `(?P<` + sanitizeGroupName(name) + `>[^/]+)`
	})
	re := regexp.MustCompile("^" + pattern + "$")
	return &templateMatcher{re: re, vars: vars}
}

// sanitizeGroupName strips characters Go's regexp package rejects in a named
// capture group (URI template variables may contain '.' or '-', regexp group
// names may not), keeping a reversible mapping via index-based lookups in
// match instead of relying on the sanitized name downstream.
func sanitizeGroupName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "v"
	}
	return b.String()
}

func (m *templateMatcher) match(uri string) (map[string]string, bool) {
	groups := m.re.FindStringSubmatch(uri)
	if groups == nil {
		return nil, false
	}
	vars := make(map[string]string, len(m.vars))
	for i, name := range m.vars {
		vars[name] = groups[i+1]
	}
	return vars, true
}
