// Package sampling defines the request/result shapes for sampling/createMessage,
// the server-initiated call that asks the client to run an LLM completion
// (spec.md §4.H).
// file: internal/mcp/sampling/sampling.go
package sampling

import (
	"context"

	"github.com/dkoosis/mcpcore/internal/mcp"
)

// Message is one turn in a sampling conversation: a role paired with content.
// It mirrors mcp.PromptMessage's shape but is kept distinct since the two
// protocol surfaces evolve independently.
type Message struct {
	Role    mcp.Role   `json:"role"`
	Content mcp.Content `json:"content"`
}

// ModelHint is one entry in ModelPreferences.Hints: a suggested model name
// substring, evaluated by the client in order.
type ModelHint struct {
	Name string `json:"name,omitempty"`
}

// ModelPreferences lets the server express soft preferences about which
// model the client should use to satisfy the sampling request; the client is
// free to ignore all of it.
type ModelPreferences struct {
	Hints                []ModelHint `json:"hints,omitempty"`
	CostPriority         float64     `json:"costPriority,omitempty"`
	SpeedPriority        float64     `json:"speedPriority,omitempty"`
	IntelligencePriority float64     `json:"intelligencePriority,omitempty"`
}

// CreateMessageParams is the params shape of sampling/createMessage.
type CreateMessageParams struct {
	Messages         []Message         `json:"messages"`
	SystemPrompt     string            `json:"systemPrompt,omitempty"`
	MaxTokens        int               `json:"maxTokens"`
	Temperature      float64           `json:"temperature,omitempty"`
	IncludeContext   string            `json:"includeContext,omitempty"`
	StopSequences    []string          `json:"stopSequences,omitempty"`
	Metadata         map[string]any    `json:"metadata,omitempty"`
	ModelPreferences *ModelPreferences `json:"modelPreferences,omitempty"`
}

// StopReason describes why the client's sampling handler stopped generating.
type StopReason string

const (
	StopReasonEndTurn      StopReason = "endTurn"
	StopReasonStopSequence StopReason = "stopSequence"
	StopReasonMaxTokens    StopReason = "maxTokens"
)

// CreateMessageResult is the client's reply to sampling/createMessage.
type CreateMessageResult struct {
	Role       mcp.Role    `json:"role"`
	Content    mcp.Content `json:"content"`
	Model      string      `json:"model"`
	StopReason StopReason  `json:"stopReason,omitempty"`
}

// Handler is implemented by the host application to satisfy a server's
// sampling/createMessage request. ctx carries cancellation propagated from
// the underlying endpoint call (spec.md §4.D/§5).
type Handler func(ctx context.Context, params CreateMessageParams) (CreateMessageResult, error)
