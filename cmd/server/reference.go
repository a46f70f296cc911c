// file: cmd/server/reference.go
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dkoosis/mcpcore/internal/mcp"
	"github.com/dkoosis/mcpcore/internal/mcpserver"
)

// echoArgs is the argument shape for the echo tool; its JSON-Schema is
// derived by reflection (spec.md §4.G).
type echoArgs struct {
	Message string `json:"message"`
}

// longRunningArgs is the argument shape for longRunningOperation.
type longRunningArgs struct {
	Duration float64 `json:"duration"`
	Steps    int     `json:"steps"`
}

// registerReferenceCapabilities registers the example tools, resource, and
// prompt spec.md §8's end-to-end scenarios exercise.
func registerReferenceCapabilities(srv *mcpserver.Server) {
	srv.RegisterTool("echo", mcpserver.ToolOptions{
		Description: "Echoes back the given message, prefixed with \"Echo: \".",
	}, echoArgs{}, func(ctx context.Context, rc *mcpserver.RequestContext, args map[string]any) (mcp.CallToolResult, error) {
		message, _ := args["message"].(string)
		return mcp.CallToolResult{Content: []mcp.Content{mcp.TextContent("Echo: " + message)}}, nil
	})

	srv.RegisterTool("longRunningOperation", mcpserver.ToolOptions{
		Description: "Simulates a long-running task, reporting progress in even steps.",
	}, longRunningArgs{}, func(ctx context.Context, rc *mcpserver.RequestContext, args map[string]any) (mcp.CallToolResult, error) {
		duration, _ := args["duration"].(float64)
		steps := 5
		if s, ok := args["steps"].(float64); ok && s > 0 {
			steps = int(s)
		}
		stepDuration := time.Duration(duration/float64(steps)*1000) * time.Millisecond

		for i := 1; i <= steps; i++ {
			select {
			case <-ctx.Done():
				return mcp.CallToolResult{}, ctx.Err()
			case <-time.After(stepDuration):
			}
			rc.Progress(ctx, float64(i), float64(steps), fmt.Sprintf("step %d/%d", i, steps))
		}

		return mcp.CallToolResult{Content: []mcp.Content{mcp.TextContent("long running operation complete")}}, nil
	})

	srv.RegisterResource("test://r/1", mcpserver.ResourceOptions{
		Name:     "demo-resource",
		MimeType: "text/plain",
	}, func(ctx context.Context, rc *mcpserver.RequestContext, uri string) (mcp.ReadResourceResult, error) {
		return mcp.ReadResourceResult{Contents: []mcp.ResourceContents{
			{URI: uri, MimeType: "text/plain", Text: "hello from test://r/1"},
		}}, nil
	})

	srv.RegisterResourceTemplate("test://r/{id}", mcpserver.ResourceOptions{
		Name:     "demo-resource-template",
		MimeType: "text/plain",
	}, func(ctx context.Context, rc *mcpserver.RequestContext, uri string, vars map[string]string) (mcp.ReadResourceResult, error) {
		return mcp.ReadResourceResult{Contents: []mcp.ResourceContents{
			{URI: uri, MimeType: "text/plain", Text: fmt.Sprintf("hello from resource %s", vars["id"])},
		}}, nil
	})

	srv.RegisterPrompt("greeting", mcpserver.PromptOptions{
		Description: "Produces a friendly greeting for the given name.",
		Arguments: []mcp.PromptArgument{
			{Name: "name", Description: "Who to greet", Required: true},
		},
	}, func(ctx context.Context, rc *mcpserver.RequestContext, args map[string]string) (mcp.GetPromptResult, error) {
		name := args["name"]
		if name == "" {
			name = "there"
		}
		return mcp.GetPromptResult{
			Messages: []mcp.PromptMessage{
				{Role: mcp.RoleUser, Content: mcp.TextContent("Say hello to " + name + ".")},
			},
		}, nil
	})
}
