// file: internal/mcpclient/dispatch.go
package mcpclient

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"

	"github.com/dkoosis/mcpcore/internal/endpoint"
	"github.com/dkoosis/mcpcore/internal/mcp"
	mcplogging "github.com/dkoosis/mcpcore/internal/mcp/logging"
	"github.com/dkoosis/mcpcore/internal/mcp/sampling"
	"github.com/dkoosis/mcpcore/internal/mcperror"
)

var _ endpoint.Dispatcher = (*Client)(nil)

// Request resolves the handful of methods a server may call on its client
// (spec.md §6 "Methods (server→client)"): ping plus the handlers a host
// application supplies for sampling, roots, and elicitation.
func (c *Client) Request(method string) (endpoint.RequestHandler, bool) {
	switch method {
	case "ping":
		return c.handlePing, true
	case "sampling/createMessage":
		return c.handleSamplingCreateMessage, true
	case "roots/list":
		return c.handleRootsList, true
	case "elicitation/create":
		return c.handleElicitationCreate, true
	default:
		return nil, false
	}
}

// Notification resolves the server→client one-way methods.
func (c *Client) Notification(method string) (endpoint.NotificationHandler, bool) {
	switch method {
	case "notifications/tools/list_changed":
		return c.handleToolsListChanged, true
	case "notifications/prompts/list_changed":
		return c.handlePromptsListChanged, true
	case "notifications/resources/list_changed":
		return c.handleResourcesListChanged, true
	case "notifications/resources/updated":
		return c.handleResourceUpdated, true
	case "notifications/message":
		return c.handleLogMessage, true
	default:
		return nil, false
	}
}

func (c *Client) handlePing(ctx context.Context, params json.RawMessage) (any, error) {
	return map[string]any{}, nil
}

func (c *Client) handleSamplingCreateMessage(ctx context.Context, params json.RawMessage) (any, error) {
	if c.samplingHandler == nil {
		return nil, mcperror.NewMethodNotFoundError("sampling/createMessage", nil)
	}
	var p sampling.CreateMessageParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, mcperror.ErrorWithDetails(errors.Wrap(err, "decode sampling/createMessage params"), mcperror.CategoryRPC, mcperror.CodeInvalidParams, nil)
	}
	return c.samplingHandler(ctx, p)
}

func (c *Client) handleRootsList(ctx context.Context, params json.RawMessage) (any, error) {
	if c.rootsHandler == nil {
		return nil, mcperror.NewMethodNotFoundError("roots/list", nil)
	}
	roots, err := c.rootsHandler(ctx)
	if err != nil {
		return nil, err
	}
	return mcp.ListRootsResult{Roots: roots}, nil
}

func (c *Client) handleElicitationCreate(ctx context.Context, params json.RawMessage) (any, error) {
	if c.elicitationHandler == nil {
		return nil, mcperror.NewMethodNotFoundError("elicitation/create", nil)
	}
	var p mcp.ElicitationCreateParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, mcperror.ErrorWithDetails(errors.Wrap(err, "decode elicitation/create params"), mcperror.CategoryRPC, mcperror.CodeInvalidParams, nil)
	}
	return c.elicitationHandler(ctx, p)
}

func (c *Client) handleToolsListChanged(ctx context.Context, params json.RawMessage) {
	c.listenersMu.Lock()
	fns := append([]func(){}, c.toolsListChangedListeners...)
	c.listenersMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (c *Client) handlePromptsListChanged(ctx context.Context, params json.RawMessage) {
	c.listenersMu.Lock()
	fns := append([]func(){}, c.promptsListChangedListeners...)
	c.listenersMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (c *Client) handleResourcesListChanged(ctx context.Context, params json.RawMessage) {
	c.listenersMu.Lock()
	fns := append([]func(){}, c.resourcesListChangedListeners...)
	c.listenersMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (c *Client) handleResourceUpdated(ctx context.Context, params json.RawMessage) {
	var p mcp.ResourceUpdatedParams
	if err := json.Unmarshal(params, &p); err != nil {
		c.logger.Debug("mcpclient: malformed resources/updated notification", "error", err)
		return
	}
	c.listenersMu.Lock()
	fns := append([]func(string){}, c.resourceUpdatedListeners...)
	c.listenersMu.Unlock()
	for _, fn := range fns {
		fn(p.URI)
	}
}

func (c *Client) handleLogMessage(ctx context.Context, params json.RawMessage) {
	var p mcplogging.MessageParams
	if err := json.Unmarshal(params, &p); err != nil {
		c.logger.Debug("mcpclient: malformed message notification", "error", err)
		return
	}
	c.listenersMu.Lock()
	fns := append([]func(mcplogging.MessageParams){}, c.logListeners...)
	c.listenersMu.Unlock()
	for _, fn := range fns {
		fn(p)
	}
}
