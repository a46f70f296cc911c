// file: internal/mcpserver/dispatch.go
package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"

	"github.com/dkoosis/mcpcore/internal/endpoint"
	"github.com/dkoosis/mcpcore/internal/mcp"
	"github.com/dkoosis/mcpcore/internal/mcp/completion"
	mcplogging "github.com/dkoosis/mcpcore/internal/mcp/logging"
	"github.com/dkoosis/mcpcore/internal/mcperror"
)

var _ endpoint.Dispatcher = (*Server)(nil)

// Request resolves method to its handler, the table-of-closures dispatch
// spec.md §9 prescribes in place of inheritance-based dispatch (grounded on
// the teacher's internal/mcp/router.go Router pattern, generalized with
// typed decode/encode per spec.md §4.F).
func (s *Server) Request(method string) (endpoint.RequestHandler, bool) {
	switch method {
	case "initialize":
		return s.handleInitialize, true
	case "ping":
		return s.handlePing, true
	case "tools/list":
		return s.handleToolsList, true
	case "tools/call":
		return s.handleToolsCall, true
	case "prompts/list":
		return s.handlePromptsList, true
	case "prompts/get":
		return s.handlePromptsGet, true
	case "resources/list":
		return s.handleResourcesList, true
	case "resources/templates/list":
		return s.handleResourceTemplatesList, true
	case "resources/read":
		return s.handleResourcesRead, true
	case "resources/subscribe":
		return s.handleResourcesSubscribe, true
	case "resources/unsubscribe":
		return s.handleResourcesUnsubscribe, true
	case "logging/setLevel":
		return s.handleLoggingSetLevel, true
	case "completion/complete":
		return s.handleCompletionComplete, true
	default:
		return nil, false
	}
}

// Notification resolves a one-way method to its handler.
func (s *Server) Notification(method string) (endpoint.NotificationHandler, bool) {
	switch method {
	case "notifications/initialized":
		return s.handleInitialized, true
	default:
		return nil, false
	}
}

func (s *Server) handleInitialize(ctx context.Context, params json.RawMessage) (any, error) {
	var p mcp.InitializeParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, mcperror.ErrorWithDetails(errors.Wrap(err, "decode initialize params"), mcperror.CategoryRPC, mcperror.CodeInvalidParams, nil)
	}

	version := p.ProtocolVersion
	if !mcp.IsSupportedVersion(version) {
		return nil, mcperror.ErrorWithDetails(
			errors.Newf("unsupported protocol version %q", version),
			mcperror.CategoryRPC, mcperror.CodeVersionMismatch,
			map[string]any{"requested": version, "supported": mcp.SupportedProtocolVersions})
	}
	s.SetPeerCapabilities(p.Capabilities)
	if s.endpoint != nil {
		s.endpoint.SetPeerVersion(version)
	}

	return mcp.InitializeResult{
		ProtocolVersion: version,
		Capabilities:    s.Capabilities(),
		ServerInfo:      s.info,
		Instructions:    s.instructions,
	}, nil
}

func (s *Server) handleInitialized(ctx context.Context, params json.RawMessage) {
	s.MarkReady()
	if s.endpoint != nil {
		_ = s.endpoint.MarkReady(ctx)
	}
}

func (s *Server) handlePing(ctx context.Context, params json.RawMessage) (any, error) {
	return map[string]any{}, nil
}

func (s *Server) handleToolsList(ctx context.Context, params json.RawMessage) (any, error) {
	var p mcp.PaginatedParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, mcperror.ErrorWithDetails(errors.Wrap(err, "decode tools/list params"), mcperror.CategoryRPC, mcperror.CodeInvalidParams, nil)
		}
	}
	page, next, err := paginate(s.registry.listTools(), p.Cursor)
	if err != nil {
		return nil, err
	}
	return mcp.ListToolsResult{Tools: page, NextCursor: next}, nil
}

func (s *Server) handleToolsCall(ctx context.Context, params json.RawMessage) (any, error) {
	var p mcp.CallToolParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, mcperror.ErrorWithDetails(errors.Wrap(err, "decode tools/call params"), mcperror.CategoryRPC, mcperror.CodeInvalidParams, nil)
	}

	entry, ok := s.registry.getTool(p.Name)
	if !ok {
		return nil, mcperror.ErrorWithDetails(
			errors.Newf("unknown tool %q", p.Name),
			mcperror.CategoryTool, mcperror.CodeInvalidParams,
			map[string]any{"tool": p.Name},
		)
	}

	args := map[string]any{}
	if len(p.Arguments) > 0 {
		if err := json.Unmarshal(p.Arguments, &args); err != nil {
			return nil, mcperror.ErrorWithDetails(errors.Wrap(err, "decode tool arguments"), mcperror.CategoryRPC, mcperror.CodeInvalidParams, map[string]any{"tool": p.Name})
		}
	}

	if err := s.argSchemas.validateArguments(entry.descriptor.Name, entry.descriptor.InputSchema, args); err != nil {
		return nil, err
	}

	var progressToken any
	if p.Meta != nil {
		progressToken = p.Meta.ProgressToken
	}
	rc := &RequestContext{Server: s, ProgressToken: progressToken}

	result, err := entry.invoke(ctx, rc, args)
	if err != nil {
		var toolExc *ToolException
		if errors.As(err, &toolExc) {
			return nil, mcperror.ErrorWithDetails(errors.Newf("%s", toolExc.Message), mcperror.CategoryTool, toolExc.Code, nil)
		}
		return mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{mcp.ErrorContent(err.Error())},
		}, nil
	}
	return result, nil
}

func (s *Server) handlePromptsList(ctx context.Context, params json.RawMessage) (any, error) {
	var p mcp.PaginatedParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, mcperror.ErrorWithDetails(errors.Wrap(err, "decode prompts/list params"), mcperror.CategoryRPC, mcperror.CodeInvalidParams, nil)
		}
	}
	page, next, err := paginate(s.registry.listPrompts(), p.Cursor)
	if err != nil {
		return nil, err
	}
	return mcp.ListPromptsResult{Prompts: page, NextCursor: next}, nil
}

func (s *Server) handlePromptsGet(ctx context.Context, params json.RawMessage) (any, error) {
	var p mcp.GetPromptParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, mcperror.ErrorWithDetails(errors.Wrap(err, "decode prompts/get params"), mcperror.CategoryRPC, mcperror.CodeInvalidParams, nil)
	}
	entry, ok := s.registry.getPrompt(p.Name)
	if !ok {
		return nil, mcperror.NewPromptError("unknown prompt", nil, map[string]any{"prompt": p.Name})
	}
	rc := &RequestContext{Server: s}
	result, err := entry.invoke(ctx, rc, p.Arguments)
	if err != nil {
		return nil, mcperror.NewPromptError("prompt rendering failed", err, map[string]any{"prompt": p.Name})
	}
	return result, nil
}

func (s *Server) handleResourcesList(ctx context.Context, params json.RawMessage) (any, error) {
	var p mcp.PaginatedParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, mcperror.ErrorWithDetails(errors.Wrap(err, "decode resources/list params"), mcperror.CategoryRPC, mcperror.CodeInvalidParams, nil)
		}
	}
	page, next, err := paginate(s.registry.listResources(), p.Cursor)
	if err != nil {
		return nil, err
	}
	return mcp.ListResourcesResult{Resources: page, NextCursor: next}, nil
}

func (s *Server) handleResourceTemplatesList(ctx context.Context, params json.RawMessage) (any, error) {
	var p mcp.PaginatedParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, mcperror.ErrorWithDetails(errors.Wrap(err, "decode resources/templates/list params"), mcperror.CategoryRPC, mcperror.CodeInvalidParams, nil)
		}
	}
	page, next, err := paginate(s.registry.listTemplates(), p.Cursor)
	if err != nil {
		return nil, err
	}
	return mcp.ListResourceTemplatesResult{ResourceTemplates: page, NextCursor: next}, nil
}

// handleResourcesRead implements spec.md §4.G "first tries exact-URI
// matches, then template matches in registration order".
func (s *Server) handleResourcesRead(ctx context.Context, params json.RawMessage) (any, error) {
	var p mcp.ReadResourceParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, mcperror.ErrorWithDetails(errors.Wrap(err, "decode resources/read params"), mcperror.CategoryRPC, mcperror.CodeInvalidParams, nil)
	}

	rc := &RequestContext{Server: s}

	if entry, ok := s.registry.getResource(p.URI); ok {
		result, err := entry.invoke(ctx, rc, p.URI)
		if err != nil {
			return nil, mcperror.NewResourceError("failed to read resource", err, map[string]any{"uri": p.URI})
		}
		return result, nil
	}

	if entry, vars, ok := s.registry.matchTemplate(p.URI); ok {
		result, err := entry.invoke(ctx, rc, p.URI, vars)
		if err != nil {
			return nil, mcperror.NewResourceError("failed to read resource", err, map[string]any{"uri": p.URI})
		}
		return result, nil
	}

	return nil, mcperror.ErrorWithDetails(
		errors.Newf("unknown resource %q", p.URI),
		mcperror.CategoryResource, mcperror.CodeInvalidParams,
		map[string]any{"uri": p.URI},
	)
}

func (s *Server) handleResourcesSubscribe(ctx context.Context, params json.RawMessage) (any, error) {
	var p mcp.SubscribeParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, mcperror.ErrorWithDetails(errors.Wrap(err, "decode resources/subscribe params"), mcperror.CategoryRPC, mcperror.CodeInvalidParams, nil)
	}
	s.subMu.Lock()
	s.subscriptions[p.URI] = struct{}{}
	s.subMu.Unlock()
	return map[string]any{}, nil
}

func (s *Server) handleResourcesUnsubscribe(ctx context.Context, params json.RawMessage) (any, error) {
	var p mcp.SubscribeParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, mcperror.ErrorWithDetails(errors.Wrap(err, "decode resources/unsubscribe params"), mcperror.CategoryRPC, mcperror.CodeInvalidParams, nil)
	}
	s.subMu.Lock()
	delete(s.subscriptions, p.URI)
	s.subMu.Unlock()
	return map[string]any{}, nil
}

func (s *Server) handleLoggingSetLevel(ctx context.Context, params json.RawMessage) (any, error) {
	var p mcplogging.SetLevelParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, mcperror.ErrorWithDetails(errors.Wrap(err, "decode logging/setLevel params"), mcperror.CategoryRPC, mcperror.CodeInvalidParams, nil)
	}
	if err := s.logThreshold.Set(p.Level); err != nil {
		return nil, mcperror.ErrorWithDetails(err, mcperror.CategoryRPC, mcperror.CodeInvalidParams, map[string]any{"level": string(p.Level)})
	}
	return map[string]any{}, nil
}

func (s *Server) handleCompletionComplete(ctx context.Context, params json.RawMessage) (any, error) {
	var p completion.CompleteParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, mcperror.ErrorWithDetails(errors.Wrap(err, "decode completion/complete params"), mcperror.CategoryRPC, mcperror.CodeInvalidParams, nil)
	}
	if s.completion == nil {
		return completion.CompleteResult{Completion: completion.Completion{Values: []string{}}}, nil
	}
	return completion.Complete(s.completion, p), nil
}
