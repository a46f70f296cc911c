// Package mcpclient implements the client façade: the initialize handshake,
// typed request wrappers for every client→server method, and the reversed
// registry that serves the server-initiated calls (sampling, roots,
// elicitation) a host application supplies handlers for (spec.md §4.E).
// file: internal/mcpclient/client.go
package mcpclient

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/dkoosis/mcpcore/internal/endpoint"
	"github.com/dkoosis/mcpcore/internal/logging"
	"github.com/dkoosis/mcpcore/internal/mcp"
	"github.com/dkoosis/mcpcore/internal/mcp/completion"
	mcplogging "github.com/dkoosis/mcpcore/internal/mcp/logging"
	"github.com/dkoosis/mcpcore/internal/mcp/progress"
	"github.com/dkoosis/mcpcore/internal/mcp/sampling"
	"github.com/dkoosis/mcpcore/internal/mcperror"
)

// RootsHandler answers a server's roots/list request with the client's
// configured roots.
type RootsHandler func(ctx context.Context) ([]mcp.Root, error)

// ElicitationHandler answers a server's elicitation/create request, typically
// by prompting the end user for structured input.
type ElicitationHandler func(ctx context.Context, params mcp.ElicitationCreateParams) (mcp.ElicitationCreateResult, error)

// Client is one side of a connection from the host application's point of
// view: the handshake, typed call wrappers, and the handlers that answer
// server-initiated requests (spec.md §4.E).
type Client struct {
	info mcp.Implementation

	logger   logging.Logger
	endpoint *endpoint.Endpoint

	mu                 sync.RWMutex
	serverCapabilities mcp.ServerCapabilities
	serverInfo         mcp.Implementation
	instructions       string

	samplingHandler    sampling.Handler
	rootsHandler       RootsHandler
	elicitationHandler ElicitationHandler

	listenersMu                   sync.Mutex
	resourceUpdatedListeners      []func(uri string)
	toolsListChangedListeners     []func()
	promptsListChangedListeners   []func()
	resourcesListChangedListeners []func()
	logListeners                  []func(mcplogging.MessageParams)
}

// New builds a Client advertising info as its Implementation descriptor.
// Call Attach once the owning Endpoint exists, mirroring mcpserver.Server's
// construction order.
func New(info mcp.Implementation, logger logging.Logger) *Client {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	return &Client{
		info:   info,
		logger: logger.WithField("component", "mcpclient"),
	}
}

// Attach wires ep as the Client's owning endpoint.
func (c *Client) Attach(ep *endpoint.Endpoint) {
	c.endpoint = ep
}

// SetSamplingHandler installs the handler backing sampling/createMessage
// requests from the server. Without one, such requests fail with
// method-not-found.
func (c *Client) SetSamplingHandler(h sampling.Handler) { c.samplingHandler = h }

// SetRootsHandler installs the handler backing roots/list requests.
func (c *Client) SetRootsHandler(h RootsHandler) { c.rootsHandler = h }

// SetElicitationHandler installs the handler backing elicitation/create
// requests.
func (c *Client) SetElicitationHandler(h ElicitationHandler) { c.elicitationHandler = h }

// OnResourceUpdated registers a listener invoked for every
// notifications/resources/updated delivered to this client.
func (c *Client) OnResourceUpdated(fn func(uri string)) {
	c.listenersMu.Lock()
	c.resourceUpdatedListeners = append(c.resourceUpdatedListeners, fn)
	c.listenersMu.Unlock()
}

// OnToolsListChanged registers a listener invoked for every
// notifications/tools/list_changed.
func (c *Client) OnToolsListChanged(fn func()) {
	c.listenersMu.Lock()
	c.toolsListChangedListeners = append(c.toolsListChangedListeners, fn)
	c.listenersMu.Unlock()
}

// OnPromptsListChanged registers a listener invoked for every
// notifications/prompts/list_changed.
func (c *Client) OnPromptsListChanged(fn func()) {
	c.listenersMu.Lock()
	c.promptsListChangedListeners = append(c.promptsListChangedListeners, fn)
	c.listenersMu.Unlock()
}

// OnResourcesListChanged registers a listener invoked for every
// notifications/resources/list_changed.
func (c *Client) OnResourcesListChanged(fn func()) {
	c.listenersMu.Lock()
	c.resourcesListChangedListeners = append(c.resourcesListChangedListeners, fn)
	c.listenersMu.Unlock()
}

// OnLogMessage registers a listener invoked for every notifications/message.
func (c *Client) OnLogMessage(fn func(mcplogging.MessageParams)) {
	c.listenersMu.Lock()
	c.logListeners = append(c.logListeners, fn)
	c.listenersMu.Unlock()
}

// ServerInfo returns the peer's Implementation descriptor, valid after
// Initialize succeeds.
func (c *Client) ServerInfo() mcp.Implementation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.serverInfo
}

// ServerCapabilities returns the peer's advertised capability block, valid
// after Initialize succeeds.
func (c *Client) ServerCapabilities() mcp.ServerCapabilities {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.serverCapabilities
}

// Instructions returns the server's free-text initialize instructions, if
// any.
func (c *Client) Instructions() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.instructions
}

// Initialize performs the three-step handshake spec.md §4.E describes: send
// initialize, verify the negotiated version is one this client supports,
// send notifications/initialized, then mark the endpoint Ready.
func (c *Client) Initialize(ctx context.Context, caps mcp.ClientCapabilities) (mcp.InitializeResult, error) {
	params := mcp.InitializeParams{
		ProtocolVersion: mcp.LatestProtocolVersion,
		Capabilities:    caps,
		ClientInfo:      c.info,
	}

	raw, err := c.endpoint.Call(ctx, "initialize", params, endpoint.CallOptions{})
	if err != nil {
		return mcp.InitializeResult{}, err
	}

	var result mcp.InitializeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return mcp.InitializeResult{}, mcperror.ErrorWithDetails(errors.Wrap(err, "decode initialize result"), mcperror.CategoryRPC, mcperror.CodeInternalError, nil)
	}

	if !mcp.IsSupportedVersion(result.ProtocolVersion) {
		return mcp.InitializeResult{}, mcperror.ErrorWithDetails(
			errors.Mark(errors.Newf("server negotiated unsupported protocol version %q", result.ProtocolVersion), mcperror.ErrVersionMismatch),
			mcperror.CategoryEndpoint, mcperror.CodeVersionMismatch,
			map[string]any{"protocolVersion": result.ProtocolVersion},
		)
	}

	c.mu.Lock()
	c.serverCapabilities = result.Capabilities
	c.serverInfo = result.ServerInfo
	c.instructions = result.Instructions
	c.mu.Unlock()

	c.endpoint.SetPeerVersion(result.ProtocolVersion)

	if err := c.endpoint.Notify(ctx, "notifications/initialized", nil); err != nil {
		return mcp.InitializeResult{}, err
	}
	if err := c.endpoint.MarkReady(ctx); err != nil {
		return mcp.InitializeResult{}, err
	}

	return result, nil
}

// Ping sends a liveness check to the server.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.endpoint.Call(ctx, "ping", map[string]any{}, endpoint.CallOptions{})
	return err
}

func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	raw, err := c.endpoint.Call(ctx, method, params, endpoint.CallOptions{})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return mcperror.ErrorWithDetails(errors.Wrapf(err, "decode %s result", method), mcperror.CategoryRPC, mcperror.CodeInternalError, nil)
	}
	return nil
}

// ListTools drains tools/list across every page, following nextCursor until
// absent (spec.md §4.E "Pagination wrappers repeatedly call the list method
// until nextCursor is absent").
func (c *Client) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	var out []mcp.Tool
	cursor := ""
	for {
		var page mcp.ListToolsResult
		if err := c.call(ctx, "tools/list", mcp.PaginatedParams{Cursor: cursor}, &page); err != nil {
			return nil, err
		}
		out = append(out, page.Tools...)
		if page.NextCursor == "" {
			return out, nil
		}
		cursor = page.NextCursor
	}
}

// CallTool invokes a tool by name with the given JSON-encodable arguments.
func (c *Client) CallTool(ctx context.Context, name string, arguments map[string]any) (mcp.CallToolResult, error) {
	return c.CallToolWithProgress(ctx, name, arguments, nil, nil)
}

// CallToolWithProgress invokes a tool, routing notifications/progress
// updates carrying progressToken to sink (spec.md §4.H).
func (c *Client) CallToolWithProgress(ctx context.Context, name string, arguments map[string]any, progressToken any, sink progress.Sink) (mcp.CallToolResult, error) {
	args, err := json.Marshal(arguments)
	if err != nil {
		return mcp.CallToolResult{}, mcperror.ErrorWithDetails(errors.Wrap(err, "encode tool arguments"), mcperror.CategoryRPC, mcperror.CodeInvalidParams, nil)
	}
	params := mcp.CallToolParams{Name: name, Arguments: args}
	if progressToken != nil {
		params.Meta = &mcp.RequestMeta{ProgressToken: progressToken}
	}

	raw, err := c.endpoint.Call(ctx, "tools/call", params, endpoint.CallOptions{ProgressToken: progressToken, ProgressSink: sink})
	if err != nil {
		return mcp.CallToolResult{}, err
	}
	var result mcp.CallToolResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return mcp.CallToolResult{}, mcperror.ErrorWithDetails(errors.Wrap(err, "decode tools/call result"), mcperror.CategoryRPC, mcperror.CodeInternalError, nil)
	}
	return result, nil
}

// ListPrompts drains prompts/list across every page.
func (c *Client) ListPrompts(ctx context.Context) ([]mcp.Prompt, error) {
	var out []mcp.Prompt
	cursor := ""
	for {
		var page mcp.ListPromptsResult
		if err := c.call(ctx, "prompts/list", mcp.PaginatedParams{Cursor: cursor}, &page); err != nil {
			return nil, err
		}
		out = append(out, page.Prompts...)
		if page.NextCursor == "" {
			return out, nil
		}
		cursor = page.NextCursor
	}
}

// GetPrompt renders a named prompt with the given arguments.
func (c *Client) GetPrompt(ctx context.Context, name string, arguments map[string]string) (mcp.GetPromptResult, error) {
	var result mcp.GetPromptResult
	err := c.call(ctx, "prompts/get", mcp.GetPromptParams{Name: name, Arguments: arguments}, &result)
	return result, err
}

// ListResources drains resources/list across every page.
func (c *Client) ListResources(ctx context.Context) ([]mcp.Resource, error) {
	var out []mcp.Resource
	cursor := ""
	for {
		var page mcp.ListResourcesResult
		if err := c.call(ctx, "resources/list", mcp.PaginatedParams{Cursor: cursor}, &page); err != nil {
			return nil, err
		}
		out = append(out, page.Resources...)
		if page.NextCursor == "" {
			return out, nil
		}
		cursor = page.NextCursor
	}
}

// ListResourceTemplates drains resources/templates/list across every page.
func (c *Client) ListResourceTemplates(ctx context.Context) ([]mcp.ResourceTemplate, error) {
	var out []mcp.ResourceTemplate
	cursor := ""
	for {
		var page mcp.ListResourceTemplatesResult
		if err := c.call(ctx, "resources/templates/list", mcp.PaginatedParams{Cursor: cursor}, &page); err != nil {
			return nil, err
		}
		out = append(out, page.ResourceTemplates...)
		if page.NextCursor == "" {
			return out, nil
		}
		cursor = page.NextCursor
	}
}

// ReadResource reads one resource's contents by URI.
func (c *Client) ReadResource(ctx context.Context, uri string) (mcp.ReadResourceResult, error) {
	var result mcp.ReadResourceResult
	err := c.call(ctx, "resources/read", mcp.ReadResourceParams{URI: uri}, &result)
	return result, err
}

// Subscribe asks the server to emit notifications/resources/updated for uri.
func (c *Client) Subscribe(ctx context.Context, uri string) error {
	return c.call(ctx, "resources/subscribe", mcp.SubscribeParams{URI: uri}, nil)
}

// Unsubscribe stops notifications/resources/updated deliveries for uri.
func (c *Client) Unsubscribe(ctx context.Context, uri string) error {
	return c.call(ctx, "resources/unsubscribe", mcp.SubscribeParams{URI: uri}, nil)
}

// SetLogLevel asks the server to only emit notifications/message at or above
// level.
func (c *Client) SetLogLevel(ctx context.Context, level mcplogging.Level) error {
	return c.call(ctx, "logging/setLevel", mcplogging.SetLevelParams{Level: level}, nil)
}

// Complete requests argument-value suggestions for a prompt or
// resource-template reference.
func (c *Client) Complete(ctx context.Context, params completion.CompleteParams) (completion.CompleteResult, error) {
	var result completion.CompleteResult
	err := c.call(ctx, "completion/complete", params, &result)
	return result, err
}
