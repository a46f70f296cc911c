// file: internal/mcpserver/integration_test.go
package mcpserver_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoosis/mcpcore/internal/endpoint"
	"github.com/dkoosis/mcpcore/internal/mcp"
	"github.com/dkoosis/mcpcore/internal/mcpclient"
	"github.com/dkoosis/mcpcore/internal/mcpserver"
	"github.com/dkoosis/mcpcore/internal/transport"
)

// pairedSession wires one Server and one Client over an in-memory transport
// pair and runs the three-step handshake, the way a real stdio or SSE
// connection would (spec.md §8 scenario 1).
type pairedSession struct {
	client   *mcpclient.Client
	server   *mcpserver.Server
	clientEp *endpoint.Endpoint
	serverEp *endpoint.Endpoint
}

func newPairedSession(t *testing.T, register func(*mcpserver.Server)) *pairedSession {
	t.Helper()

	pair := transport.NewInMemoryTransportPair()

	srv := mcpserver.New(mcp.Implementation{Name: "test-server", Version: "1.0"}, nil)
	if register != nil {
		register(srv)
	}
	cli := mcpclient.New(mcp.Implementation{Name: "test-client", Version: "1.0"}, nil)

	serverEp := endpoint.New(pair.ServerTransport, srv, nil)
	clientEp := endpoint.New(pair.ClientTransport, cli, nil)
	srv.Attach(serverEp)
	cli.Attach(clientEp)

	require.NoError(t, serverEp.Start(context.Background()))
	require.NoError(t, clientEp.Start(context.Background()))

	_, err := cli.Initialize(context.Background(), mcp.ClientCapabilities{})
	require.NoError(t, err)

	return &pairedSession{client: cli, server: srv, clientEp: clientEp, serverEp: serverEp}
}

func (s *pairedSession) Close() {
	_ = s.clientEp.Close(context.Background())
	_ = s.serverEp.Close(context.Background())
}

// TestInitializeHappyPath mirrors spec.md §8 scenario 1: after the handshake
// a subsequent tools/list call succeeds.
func TestInitializeHappyPath(t *testing.T) {
	session := newPairedSession(t, nil)
	defer session.Close()

	tools, err := session.client.ListTools(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tools)
	assert.Equal(t, "test-server", session.client.ServerInfo().Name)
}

type echoArgs struct {
	Message string `json:"message"`
}

// TestEchoTool mirrors spec.md §8 scenario 2.
func TestEchoTool(t *testing.T) {
	session := newPairedSession(t, func(srv *mcpserver.Server) {
		srv.RegisterTool("echo", mcpserver.ToolOptions{Description: "echoes"}, echoArgs{},
			func(ctx context.Context, rc *mcpserver.RequestContext, args map[string]any) (mcp.CallToolResult, error) {
				message, _ := args["message"].(string)
				return mcp.CallToolResult{Content: []mcp.Content{mcp.TextContent("Echo: " + message)}}, nil
			})
	})
	defer session.Close()

	result, err := session.client.CallTool(context.Background(), "echo", map[string]any{"message": "Hello"})
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.Len(t, result.Content, 1)
	assert.Equal(t, "Echo: Hello", result.Content[0].Text)
}

// TestInitializeRejectsUnknownVersion mirrors spec.md §6's "reject unknown
// versions during initialize": a client proposing an unrecognized protocol
// version gets a version-mismatch error, not a silent downgrade.
func TestInitializeRejectsUnknownVersion(t *testing.T) {
	pair := transport.NewInMemoryTransportPair()
	srv := mcpserver.New(mcp.Implementation{Name: "test-server", Version: "1.0"}, nil)
	cli := mcpclient.New(mcp.Implementation{Name: "test-client", Version: "1.0"}, nil)

	serverEp := endpoint.New(pair.ServerTransport, srv, nil)
	clientEp := endpoint.New(pair.ClientTransport, cli, nil)
	srv.Attach(serverEp)
	cli.Attach(clientEp)
	require.NoError(t, serverEp.Start(context.Background()))
	require.NoError(t, clientEp.Start(context.Background()))
	defer func() {
		_ = clientEp.Close(context.Background())
		_ = serverEp.Close(context.Background())
	}()

	_, err := clientEp.Call(context.Background(), "initialize", mcp.InitializeParams{
		ProtocolVersion: "1999-01-01",
		Capabilities:    mcp.ClientCapabilities{},
		ClientInfo:      mcp.Implementation{Name: "test-client", Version: "1.0"},
	}, endpoint.CallOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1999-01-01")
}

// TestUnknownToolReturnsInvalidParams mirrors spec.md §8 scenario 4.
func TestUnknownToolReturnsInvalidParams(t *testing.T) {
	session := newPairedSession(t, nil)
	defer session.Close()

	_, err := session.client.CallTool(context.Background(), "nope", map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}

// TestResourceSubscribeAndUpdate mirrors spec.md §8 scenario 5: subscribing
// causes subsequent PublishResourceUpdate calls to reach the client, and
// unsubscribing stops them.
func TestResourceSubscribeAndUpdate(t *testing.T) {
	session := newPairedSession(t, func(srv *mcpserver.Server) {
		srv.RegisterResource("test://r/1", mcpserver.ResourceOptions{MimeType: "text/plain"},
			func(ctx context.Context, rc *mcpserver.RequestContext, uri string) (mcp.ReadResourceResult, error) {
				return mcp.ReadResourceResult{Contents: []mcp.ResourceContents{{URI: uri, Text: "hi"}}}, nil
			})
	})
	defer session.Close()

	updates := make(chan string, 4)
	session.client.OnResourceUpdated(func(uri string) { updates <- uri })

	require.NoError(t, session.client.Subscribe(context.Background(), "test://r/1"))
	require.NoError(t, session.server.PublishResourceUpdate(context.Background(), "test://r/1"))

	select {
	case uri := <-updates:
		assert.Equal(t, "test://r/1", uri)
	case <-time.After(time.Second):
		t.Fatal("expected resources/updated notification")
	}

	require.NoError(t, session.client.Unsubscribe(context.Background(), "test://r/1"))
	require.NoError(t, session.server.PublishResourceUpdate(context.Background(), "test://r/1"))

	select {
	case uri := <-updates:
		t.Fatalf("unexpected update after unsubscribe: %s", uri)
	case <-time.After(100 * time.Millisecond):
	}
}

// TestLongRunningOperationProgressAndCancel mirrors spec.md §8 scenario 3:
// progress notifications stream while the call is outstanding, and a local
// cancellation both fails the caller and stops the handler.
func TestLongRunningOperationProgressAndCancel(t *testing.T) {
	handlerCancelled := make(chan struct{})
	session := newPairedSession(t, func(srv *mcpserver.Server) {
		srv.RegisterTool("longRunningOperation", mcpserver.ToolOptions{}, struct {
			Steps int `json:"steps"`
		}{}, func(ctx context.Context, rc *mcpserver.RequestContext, args map[string]any) (mcp.CallToolResult, error) {
			for i := 1; i <= 5; i++ {
				select {
				case <-ctx.Done():
					close(handlerCancelled)
					return mcp.CallToolResult{}, ctx.Err()
				case <-time.After(20 * time.Millisecond):
				}
				rc.Progress(ctx, float64(i), 5, "")
			}
			return mcp.CallToolResult{Content: []mcp.Content{mcp.TextContent("done")}}, nil
		})
	})
	defer session.Close()

	var progressCount int
	progressCh := make(chan struct{}, 10)
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		_, _ = session.client.CallToolWithProgress(ctx, "longRunningOperation", map[string]any{"steps": 5}, "p1",
			func(progress, total float64, message string) { progressCh <- struct{}{} })
	}()

	for progressCount < 2 {
		select {
		case <-progressCh:
			progressCount++
		case <-time.After(time.Second):
			t.Fatal("expected progress notifications before cancelling")
		}
	}
	cancel()

	select {
	case <-handlerCancelled:
	case <-time.After(time.Second):
		t.Fatal("server handler did not observe cancellation")
	}
}
