// Package mcp holds the protocol-level types shared by the client and server
// façades: capabilities, the Implementation descriptor, content blocks, and the
// result shapes for tools, prompts, and resources. Nothing here knows about
// transports or correlation; that's internal/endpoint and internal/jsonrpc.
// file: internal/mcp/types.go
package mcp

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// LatestProtocolVersion is the newest date-string version this implementation
// supports; the client proposes it in initialize, and the server accepts any
// version in SupportedProtocolVersions and rejects others.
const LatestProtocolVersion = "2024-11-05"

// SupportedProtocolVersions lists every version this implementation accepts
// during initialize, newest first.
var SupportedProtocolVersions = []string{"2024-11-05", "2024-10-07"}

// IsSupportedVersion reports whether v is one this side can negotiate.
func IsSupportedVersion(v string) bool {
	for _, sv := range SupportedProtocolVersions {
		if sv == v {
			return true
		}
	}
	return false
}

// Implementation identifies a client or server by name and version, exchanged
// during initialize.
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ToolsCapability describes the tools capability block.
type ToolsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// PromptsCapability describes the prompts capability block.
type PromptsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// ResourcesCapability describes the resources capability block.
type ResourcesCapability struct {
	Subscribe   bool `json:"subscribe,omitempty"`
	ListChanged bool `json:"listChanged,omitempty"`
}

// LoggingCapability is present (possibly empty) when the peer supports
// logging/setLevel and notifications/message.
type LoggingCapability struct{}

// SamplingCapability is present (possibly empty) when the client supports
// sampling/createMessage.
type SamplingCapability struct{}

// CompletionsCapability is present (possibly empty) when the server supports
// completion/complete.
type CompletionsCapability struct{}

// RootsCapability describes the roots capability block.
type RootsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// ClientCapabilities is the capability block a client advertises in
// initialize.
type ClientCapabilities struct {
	Roots       *RootsCapability       `json:"roots,omitempty"`
	Sampling    *SamplingCapability    `json:"sampling,omitempty"`
	Elicitation json.RawMessage        `json:"elicitation,omitempty"`
	Experimental map[string]json.RawMessage `json:"experimental,omitempty"`
}

// ServerCapabilities is the capability block a server advertises in its
// InitializeResult.
type ServerCapabilities struct {
	Tools        *ToolsCapability       `json:"tools,omitempty"`
	Prompts      *PromptsCapability     `json:"prompts,omitempty"`
	Resources    *ResourcesCapability   `json:"resources,omitempty"`
	Logging      *LoggingCapability     `json:"logging,omitempty"`
	Completions  *CompletionsCapability `json:"completions,omitempty"`
	Experimental map[string]json.RawMessage `json:"experimental,omitempty"`
}

// HasTools reports whether the tools capability block is present.
func (c *ServerCapabilities) HasTools() bool { return c != nil && c.Tools != nil }

// HasPrompts reports whether the prompts capability block is present.
func (c *ServerCapabilities) HasPrompts() bool { return c != nil && c.Prompts != nil }

// HasResources reports whether the resources capability block is present.
func (c *ServerCapabilities) HasResources() bool { return c != nil && c.Resources != nil }

// HasLogging reports whether the logging capability block is present.
func (c *ServerCapabilities) HasLogging() bool { return c != nil && c.Logging != nil }

// InitializeParams is the payload of the client's initialize request.
type InitializeParams struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ClientCapabilities `json:"capabilities"`
	ClientInfo      Implementation     `json:"clientInfo"`
}

// InitializeResult is the payload of the server's initialize response.
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      Implementation     `json:"serverInfo"`
	Instructions    string             `json:"instructions,omitempty"`
}

// Role identifies the speaker of a PromptMessage or SamplingMessage.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Annotations carries optional hints about a content block's intended
// audience and display priority.
type Annotations struct {
	Audience []Role  `json:"audience,omitempty"`
	Priority float64 `json:"priority,omitempty"`
}

// ContentType discriminates a Content tagged variant.
type ContentType string

const (
	ContentTypeText             ContentType = "text"
	ContentTypeImage            ContentType = "image"
	ContentTypeAudio            ContentType = "audio"
	ContentTypeResourceLink     ContentType = "resource_link"
	ContentTypeEmbeddedResource ContentType = "embedded_resource"
)

// ResourceContents is the nested payload of an embedded_resource content
// block: either Text or Blob is set, never both.
type ResourceContents struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
	Blob     string `json:"blob,omitempty"`
}

// Content is a tagged variant over the block shapes the protocol can send in
// a CallToolResult, GetPromptResult message, or sampling message. Unknown
// incoming types decode into Raw, a passthrough so an old client doesn't
// choke on a future content kind (spec §9).
type Content struct {
	Type ContentType `json:"type"`

	Text string `json:"text,omitempty"`

	Data     string `json:"data,omitempty"`
	MimeType string `json:"mimeType,omitempty"`

	URI         string `json:"uri,omitempty"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`

	Resource *ResourceContents `json:"resource,omitempty"`

	Annotations *Annotations `json:"annotations,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// MarshalJSON re-encodes Raw verbatim for unrecognized types, otherwise
// encodes the typed fields.
func (c Content) MarshalJSON() ([]byte, error) {
	if c.Raw != nil {
		return c.Raw, nil
	}
	type alias Content
	return json.Marshal(alias(c))
}

// UnmarshalJSON decodes known content types into their typed fields and
// stashes anything else (including unrecognized "type" values) in Raw.
func (c *Content) UnmarshalJSON(data []byte) error {
	type alias Content
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return errors.Wrap(err, "decode content block")
	}
	*c = Content(a)
	switch c.Type {
	case ContentTypeText, ContentTypeImage, ContentTypeAudio, ContentTypeResourceLink, ContentTypeEmbeddedResource:
	default:
		c.Raw = append(json.RawMessage(nil), data...)
	}
	return nil
}

// TextContent builds a text content block, the most common shape returned by
// tool and prompt handlers.
func TextContent(text string) Content {
	return Content{Type: ContentTypeText, Text: text}
}

// ErrorContent builds a text content block describing a handler failure, for
// use in a CallToolResult with IsError set.
func ErrorContent(msg string) Content {
	return Content{Type: ContentTypeText, Text: msg}
}

// PromptMessage pairs a Role with a Content block; GetPromptResult.Messages is
// a list of these.
type PromptMessage struct {
	Role    Role    `json:"role"`
	Content Content `json:"content"`
}

// CallToolResult is the result shape of tools/call. IsError distinguishes a
// domain-level tool failure (still a successful JSON-RPC response) from a
// protocol-level JSON-RPC Error.
type CallToolResult struct {
	Content           []Content `json:"content"`
	IsError           bool      `json:"isError,omitempty"`
	StructuredContent any       `json:"structuredContent,omitempty"`
}

// GetPromptResult is the result shape of prompts/get.
type GetPromptResult struct {
	Description string          `json:"description,omitempty"`
	Messages    []PromptMessage `json:"messages"`
}

// ReadResourceResult is the result shape of resources/read.
type ReadResourceResult struct {
	Contents []ResourceContents `json:"contents"`
}

// ToolAnnotations describes hints about a tool's behavior (read-only,
// destructive, idempotent, open-world) surfaced to hosts for display/safety
// purposes; none of it is enforced by this runtime.
type ToolAnnotations struct {
	Title           string `json:"title,omitempty"`
	ReadOnlyHint    bool   `json:"readOnlyHint,omitempty"`
	DestructiveHint bool   `json:"destructiveHint,omitempty"`
	IdempotentHint  bool   `json:"idempotentHint,omitempty"`
	OpenWorldHint   bool   `json:"openWorldHint,omitempty"`
}

// Tool is the wire descriptor returned by tools/list.
type Tool struct {
	Name         string           `json:"name"`
	Title        string           `json:"title,omitempty"`
	Description  string           `json:"description,omitempty"`
	InputSchema  json.RawMessage  `json:"inputSchema"`
	OutputSchema json.RawMessage  `json:"outputSchema,omitempty"`
	Annotations  *ToolAnnotations `json:"annotations,omitempty"`
}

// PromptArgument describes one named argument a prompt accepts.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// Prompt is the wire descriptor returned by prompts/list.
type Prompt struct {
	Name        string           `json:"name"`
	Title       string           `json:"title,omitempty"`
	Description string           `json:"description,omitempty"`
	Arguments   []PromptArgument `json:"arguments,omitempty"`
}

// Resource is the wire descriptor of a direct (fixed-URI) resource returned
// by resources/list.
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// ResourceTemplate is the wire descriptor of a URI-templated resource
// returned by resources/templates/list.
type ResourceTemplate struct {
	URITemplate string `json:"uriTemplate"`
	Name        string `json:"name"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// ListToolsResult is the paginated result of tools/list.
type ListToolsResult struct {
	Tools      []Tool `json:"tools"`
	NextCursor string `json:"nextCursor,omitempty"`
}

// ListPromptsResult is the paginated result of prompts/list.
type ListPromptsResult struct {
	Prompts    []Prompt `json:"prompts"`
	NextCursor string   `json:"nextCursor,omitempty"`
}

// ListResourcesResult is the paginated result of resources/list.
type ListResourcesResult struct {
	Resources  []Resource `json:"resources"`
	NextCursor string     `json:"nextCursor,omitempty"`
}

// ListResourceTemplatesResult is the paginated result of
// resources/templates/list.
type ListResourceTemplatesResult struct {
	ResourceTemplates []ResourceTemplate `json:"resourceTemplates"`
	NextCursor        string             `json:"nextCursor,omitempty"`
}

// RequestMeta is the well-known "_meta" object attached to request params,
// currently carrying only the progress token.
type RequestMeta struct {
	ProgressToken any `json:"progressToken,omitempty"`
}

// CallToolParams is the params shape of tools/call.
type CallToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	Meta      *RequestMeta    `json:"_meta,omitempty"`
}

// GetPromptParams is the params shape of prompts/get.
type GetPromptParams struct {
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments,omitempty"`
}

// ReadResourceParams is the params shape of resources/read.
type ReadResourceParams struct {
	URI string `json:"uri"`
}

// SubscribeParams is the params shape of resources/subscribe and
// resources/unsubscribe.
type SubscribeParams struct {
	URI string `json:"uri"`
}

// PaginatedParams is embedded by every list request's params.
type PaginatedParams struct {
	Cursor string `json:"cursor,omitempty"`
}

// ResourceUpdatedParams is the payload of notifications/resources/updated.
type ResourceUpdatedParams struct {
	URI string `json:"uri"`
}

// CancelledParams is the payload of notifications/cancelled.
type CancelledParams struct {
	RequestID json.RawMessage `json:"requestId"`
	Reason    string          `json:"reason,omitempty"`
}

// ProgressParams is the payload of notifications/progress.
type ProgressParams struct {
	ProgressToken any     `json:"progressToken"`
	Progress      float64 `json:"progress"`
	Total         float64 `json:"total,omitempty"`
	Message       string  `json:"message,omitempty"`
}

// Root is one entry of a client's roots/list result: a filesystem or
// resource boundary the client exposes to a server (spec.md §4.E, §6
// "Methods (server→client)").
type Root struct {
	URI  string `json:"uri"`
	Name string `json:"name,omitempty"`
}

// ListRootsResult is the result shape of roots/list.
type ListRootsResult struct {
	Roots []Root `json:"roots"`
}

// ElicitationAction discriminates how a user responded to an
// elicitation/create prompt.
type ElicitationAction string

const (
	ElicitationAccept  ElicitationAction = "accept"
	ElicitationDecline ElicitationAction = "decline"
	ElicitationCancel  ElicitationAction = "cancel"
)

// ElicitationCreateParams is the params shape of elicitation/create: a
// message to show the user plus the JSON-Schema describing the structured
// input being requested.
type ElicitationCreateParams struct {
	Message         string          `json:"message"`
	RequestedSchema json.RawMessage `json:"requestedSchema"`
}

// ElicitationCreateResult is the result shape of elicitation/create.
type ElicitationCreateResult struct {
	Action  ElicitationAction `json:"action"`
	Content map[string]any    `json:"content,omitempty"`
}
