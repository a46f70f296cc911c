// file: internal/mcpserver/server.go
package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/dkoosis/mcpcore/internal/endpoint"
	"github.com/dkoosis/mcpcore/internal/logging"
	"github.com/dkoosis/mcpcore/internal/mcp"
	"github.com/dkoosis/mcpcore/internal/mcp/completion"
	mcplogging "github.com/dkoosis/mcpcore/internal/mcp/logging"
	"github.com/dkoosis/mcpcore/internal/mcp/sampling"
	"github.com/dkoosis/mcpcore/internal/mcperror"
)

// DefaultPageSize bounds how many entries a single tools/list, prompts/list,
// resources/list, or resources/templates/list response returns before
// reporting a nextCursor (spec.md §4.F "List methods return at most one
// page").
const DefaultPageSize = 50

// ToolException is the escape hatch spec.md §4.F describes: a tool invoker
// that wants a JSON-RPC Error instead of an isError CallToolResult returns
// one of these instead of a plain error.
type ToolException struct {
	Code    int
	Message string
}

func (e *ToolException) Error() string { return e.Message }

// NewToolException builds a ToolException carrying a server-defined JSON-RPC
// code (spec.md §3 "Error codes" reserves -32000..-32099 for this).
func NewToolException(code int, message string) *ToolException {
	return &ToolException{Code: code, Message: message}
}

// Server is one side of a connection: the handler registry plus the
// dispatch logic that turns it into an endpoint.Dispatcher (spec.md §3
// "Handler registry (server side)", §4.F). One Server instance serves
// exactly one Endpoint/session; subscriptions and the logging threshold are
// per-session state, matching spec.md §5 "Subscription sets are per-session".
type Server struct {
	info         mcp.Implementation
	instructions string

	logger   logging.Logger
	endpoint *endpoint.Endpoint

	registry *registry

	mu               sync.RWMutex
	peerCapabilities mcp.ClientCapabilities
	ready            bool

	logThreshold *mcplogging.Threshold

	subMu         sync.Mutex
	subscriptions map[string]struct{}

	completion completion.Provider

	argSchemas *argSchemaCache
}

// New builds a Server advertising info as its Implementation descriptor.
// Call Attach once the owning Endpoint exists (the two have a circular
// dependency: the endpoint needs a Dispatcher to be constructed, and the
// Dispatcher here needs the endpoint to emit notifications).
func New(info mcp.Implementation, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	return &Server{
		info:          info,
		logger:        logger.WithField("component", "mcpserver"),
		registry:      newRegistry(),
		logThreshold:  mcplogging.NewThreshold(),
		subscriptions: make(map[string]struct{}),
		argSchemas:    newArgSchemaCache(),
	}
}

// Attach wires ep as the Server's owning endpoint, letting tools/prompts
// emit progress/log notifications and the server fan out listChanged and
// resources/updated.
func (s *Server) Attach(ep *endpoint.Endpoint) {
	s.endpoint = ep
}

// SetCompletionProvider installs the Provider backing completion/complete.
// Without one, every completion/complete call returns an empty result.
func (s *Server) SetCompletionProvider(p completion.Provider) { s.completion = p }

// Instructions sets the free-text instructions returned in InitializeResult.
func (s *Server) Instructions(text string) { s.instructions = text }

// Capabilities returns the ServerCapabilities block advertised during
// initialize. The block is fixed: it does not depend on which tools,
// prompts or resources are registered.
func (s *Server) Capabilities() mcp.ServerCapabilities {
	return mcp.ServerCapabilities{
		Logging:     &mcp.LoggingCapability{},
		Completions: &mcp.CompletionsCapability{},
		Tools:       &mcp.ToolsCapability{ListChanged: true},
		Prompts:     &mcp.PromptsCapability{ListChanged: true},
		Resources:   &mcp.ResourcesCapability{Subscribe: true, ListChanged: true},
	}
}

// SetPeerCapabilities records what the client advertised in initialize, used
// to gate handlers that require a capability the peer never declared
// (spec.md §3 "Capabilities").
func (s *Server) SetPeerCapabilities(c mcp.ClientCapabilities) {
	s.mu.Lock()
	s.peerCapabilities = c
	s.mu.Unlock()
}

// MarkReady flips the server into serving listChanged notifications for any
// registration that happens after this point (spec.md §3 "Lifecycles").
func (s *Server) MarkReady() {
	s.mu.Lock()
	s.ready = true
	s.mu.Unlock()
}

func (s *Server) isReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

func (s *Server) peerHasRoots() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.peerCapabilities.Roots != nil
}

func (s *Server) peerHasSampling() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.peerCapabilities.Sampling != nil
}

// RequestRoots asks the peer for its configured roots via roots/list
// (spec.md §6 "Methods (server→client)"). Fails fast if the client never
// advertised the roots capability during initialize.
func (s *Server) RequestRoots(ctx context.Context) ([]mcp.Root, error) {
	if !s.peerHasRoots() {
		return nil, mcperror.ErrorWithDetails(errors.New("peer did not advertise roots capability"), mcperror.CategoryRPC, mcperror.CodeInvalidRequest, nil)
	}
	raw, err := s.endpoint.Call(ctx, "roots/list", nil, endpoint.CallOptions{})
	if err != nil {
		return nil, err
	}
	var result mcp.ListRootsResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, mcperror.ErrorWithDetails(errors.Wrap(err, "decode roots/list result"), mcperror.CategoryRPC, mcperror.CodeInternalError, nil)
	}
	return result.Roots, nil
}

// RequestElicitation asks the peer (and, through it, typically the end user)
// for structured input mid-call via elicitation/create.
func (s *Server) RequestElicitation(ctx context.Context, params mcp.ElicitationCreateParams) (mcp.ElicitationCreateResult, error) {
	raw, err := s.endpoint.Call(ctx, "elicitation/create", params, endpoint.CallOptions{})
	if err != nil {
		return mcp.ElicitationCreateResult{}, err
	}
	var result mcp.ElicitationCreateResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return mcp.ElicitationCreateResult{}, mcperror.ErrorWithDetails(errors.Wrap(err, "decode elicitation/create result"), mcperror.CategoryRPC, mcperror.CodeInternalError, nil)
	}
	return result, nil
}

// RequestSampling asks the peer to run an LLM completion via
// sampling/createMessage (spec.md §4.H "Sampling"). Fails fast if the client
// never advertised the sampling capability during initialize.
func (s *Server) RequestSampling(ctx context.Context, params sampling.CreateMessageParams) (sampling.CreateMessageResult, error) {
	if !s.peerHasSampling() {
		return sampling.CreateMessageResult{}, mcperror.ErrorWithDetails(errors.New("peer did not advertise sampling capability"), mcperror.CategoryRPC, mcperror.CodeInvalidRequest, nil)
	}
	raw, err := s.endpoint.Call(ctx, "sampling/createMessage", params, endpoint.CallOptions{})
	if err != nil {
		return sampling.CreateMessageResult{}, err
	}
	var result sampling.CreateMessageResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return sampling.CreateMessageResult{}, mcperror.ErrorWithDetails(errors.Wrap(err, "decode sampling/createMessage result"), mcperror.CategoryRPC, mcperror.CodeInternalError, nil)
	}
	return result, nil
}

// RegisterTool adds a tool to the registry. argsShape is a zero-value (or
// nil-pointer) instance of the struct describing the tool's arguments; its
// JSON-Schema is always derived from it per spec.md §4.G; ToolOptions has
// no field for a hand-written input schema. Emits
// notifications/tools/list_changed if the server is already Ready.
func (s *Server) RegisterTool(name string, opts ToolOptions, argsShape any, invoke ToolInvoker) {
	descriptor := mcp.Tool{
		Name:         name,
		Title:        opts.Title,
		Description:  opts.Description,
		InputSchema:  deriveInputSchema(argsShape),
		OutputSchema: opts.OutputSchema,
		Annotations:  opts.Annotations,
	}
	s.registry.addTool(&toolEntry{descriptor: descriptor, invoke: invoke})
	s.notifyListChanged("notifications/tools/list_changed")
}

// RemoveTool drops a previously registered tool, notifying listChanged if
// anything was actually removed and the server is Ready.
func (s *Server) RemoveTool(name string) {
	if s.registry.removeTool(name) {
		s.notifyListChanged("notifications/tools/list_changed")
	}
}

// RegisterPrompt adds a prompt to the registry.
func (s *Server) RegisterPrompt(name string, opts PromptOptions, invoke PromptInvoker) {
	descriptor := mcp.Prompt{
		Name:        name,
		Title:       opts.Title,
		Description: opts.Description,
		Arguments:   opts.Arguments,
	}
	s.registry.addPrompt(&promptEntry{descriptor: descriptor, invoke: invoke})
	s.notifyListChanged("notifications/prompts/list_changed")
}

// PromptOptions configures a RegisterPrompt call.
type PromptOptions struct {
	Title       string
	Description string
	Arguments   []mcp.PromptArgument
}

// RegisterResource adds a direct, fixed-URI resource.
func (s *Server) RegisterResource(uri string, opts ResourceOptions, invoke ResourceInvoker) {
	descriptor := mcp.Resource{
		URI:         uri,
		Name:        opts.Name,
		Title:       opts.Title,
		Description: opts.Description,
		MimeType:    opts.MimeType,
	}
	s.registry.addResource(&resourceEntry{descriptor: descriptor, invoke: invoke})
	s.notifyListChanged("notifications/resources/list_changed")
}

// ResourceOptions configures a RegisterResource/RegisterResourceTemplate
// call.
type ResourceOptions struct {
	Name        string
	Title       string
	Description string
	MimeType    string
}

// RegisterResourceTemplate adds a URI-templated resource. Templates are
// matched in registration order on resources/read (spec.md §4.G), so call
// order here is meaningful.
func (s *Server) RegisterResourceTemplate(uriTemplate string, opts ResourceOptions, invoke TemplateInvoker) {
	descriptor := mcp.ResourceTemplate{
		URITemplate: uriTemplate,
		Name:        opts.Name,
		Title:       opts.Title,
		Description: opts.Description,
		MimeType:    opts.MimeType,
	}
	s.registry.addTemplate(&templateEntry{
		descriptor: descriptor,
		matcher:    compileTemplate(uriTemplate),
		invoke:     invoke,
	})
	s.notifyListChanged("notifications/resources/list_changed")
}

func (s *Server) notifyListChanged(method string) {
	if !s.isReady() || s.endpoint == nil {
		return
	}
	if err := s.notify(context.Background(), method, nil); err != nil {
		s.logger.Debug("mcpserver: failed to send listChanged", "method", method, "error", err)
	}
}

func (s *Server) notify(ctx context.Context, method string, params any) error {
	if s.endpoint == nil {
		return errors.New("mcpserver: server not attached to an endpoint")
	}
	return s.endpoint.Notify(ctx, method, params)
}

// PublishResourceUpdate fans out notifications/resources/updated{uri} to
// this session if (and only if) it's currently subscribed to uri (spec.md
// §4.F "Subscriptions"). A real multi-session deployment calls this on
// every session subscribed to uri; this Server only knows about its own
// session, so the caller fans out across sessions itself.
func (s *Server) PublishResourceUpdate(ctx context.Context, uri string) error {
	s.subMu.Lock()
	_, subscribed := s.subscriptions[uri]
	s.subMu.Unlock()
	if !subscribed {
		return nil
	}
	return s.notify(ctx, "notifications/resources/updated", mcp.ResourceUpdatedParams{URI: uri})
}

// LogMessage emits notifications/message if level is at or above this
// session's logging/setLevel threshold (spec.md §4.H).
func (s *Server) LogMessage(ctx context.Context, level mcplogging.Level, logger string, data any) {
	if !s.logThreshold.Admits(level) {
		return
	}
	_ = s.notify(ctx, "notifications/message", mcplogging.MessageParams{Level: level, Logger: logger, Data: data})
}

// encodeCursor and decodeCursor implement spec.md §4.F's opaque-cursor
// requirement ("implementations may use base64 offsets but must not leak
// internal indices") with a base64url wrapper around the integer offset, so
// the wire value isn't a bare human-readable number.
func encodeCursor(offset int) string {
	if offset <= 0 {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString([]byte(fmt.Sprintf("o:%d", offset)))
}

func decodeCursor(cursor string) (int, error) {
	if cursor == "" {
		return 0, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, mcperror.ErrorWithDetails(errors.Wrap(err, "invalid cursor"), mcperror.CategoryRPC, mcperror.CodeInvalidParams, nil)
	}
	var offset int
	if _, err := fmt.Sscanf(string(raw), "o:%d", &offset); err != nil {
		return 0, mcperror.ErrorWithDetails(errors.Wrap(err, "invalid cursor"), mcperror.CategoryRPC, mcperror.CodeInvalidParams, nil)
	}
	return offset, nil
}

func paginate[T any](items []T, cursor string) (page []T, nextCursor string, err error) {
	offset, err := decodeCursor(cursor)
	if err != nil {
		return nil, "", err
	}
	if offset >= len(items) {
		return []T{}, "", nil
	}
	end := offset + DefaultPageSize
	if end >= len(items) {
		return items[offset:], "", nil
	}
	return items[offset:end], encodeCursor(end), nil
}
