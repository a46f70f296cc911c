// file: internal/mcpclient/dispatch_test.go
package mcpclient

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoosis/mcpcore/internal/mcp"
	"github.com/dkoosis/mcpcore/internal/mcp/sampling"
)

func TestClient_RequestUnresolvedMethod(t *testing.T) {
	c := New(mcp.Implementation{Name: "c", Version: "1"}, nil)
	_, ok := c.Request("nonexistent/method")
	assert.False(t, ok)
}

func TestClient_RootsListWithoutHandlerReturnsMethodNotFound(t *testing.T) {
	c := New(mcp.Implementation{Name: "c", Version: "1"}, nil)
	handler, ok := c.Request("roots/list")
	require.True(t, ok)
	_, err := handler(context.Background(), nil)
	assert.Error(t, err)
}

func TestClient_RootsListDelegatesToHandler(t *testing.T) {
	c := New(mcp.Implementation{Name: "c", Version: "1"}, nil)
	c.SetRootsHandler(func(ctx context.Context) ([]mcp.Root, error) {
		return []mcp.Root{{URI: "file:///tmp", Name: "tmp"}}, nil
	})

	handler, ok := c.Request("roots/list")
	require.True(t, ok)
	result, err := handler(context.Background(), nil)
	require.NoError(t, err)
	listResult, ok := result.(mcp.ListRootsResult)
	require.True(t, ok)
	require.Len(t, listResult.Roots, 1)
	assert.Equal(t, "file:///tmp", listResult.Roots[0].URI)
}

func TestClient_SamplingCreateMessageDelegatesToHandler(t *testing.T) {
	c := New(mcp.Implementation{Name: "c", Version: "1"}, nil)
	c.SetSamplingHandler(func(ctx context.Context, params sampling.CreateMessageParams) (sampling.CreateMessageResult, error) {
		return sampling.CreateMessageResult{Role: mcp.Role("assistant"), Model: "test-model"}, nil
	})

	handler, ok := c.Request("sampling/createMessage")
	require.True(t, ok)
	params, err := json.Marshal(sampling.CreateMessageParams{MaxTokens: 10})
	require.NoError(t, err)

	result, err := handler(context.Background(), params)
	require.NoError(t, err)
	createResult, ok := result.(sampling.CreateMessageResult)
	require.True(t, ok)
	assert.Equal(t, "test-model", createResult.Model)
}

func TestClient_ElicitationCreateWithoutHandlerReturnsMethodNotFound(t *testing.T) {
	c := New(mcp.Implementation{Name: "c", Version: "1"}, nil)
	handler, ok := c.Request("elicitation/create")
	require.True(t, ok)
	params, _ := json.Marshal(mcp.ElicitationCreateParams{Message: "confirm?"})
	_, err := handler(context.Background(), params)
	assert.Error(t, err)
}

func TestClient_ToolsListChangedNotifiesListeners(t *testing.T) {
	c := New(mcp.Implementation{Name: "c", Version: "1"}, nil)
	called := make(chan struct{}, 1)
	c.OnToolsListChanged(func() { called <- struct{}{} })

	handler, ok := c.Notification("notifications/tools/list_changed")
	require.True(t, ok)
	handler(context.Background(), nil)

	select {
	case <-called:
	default:
		t.Fatal("expected listener to be invoked")
	}
}

func TestClient_ResourceUpdatedNotifiesWithURI(t *testing.T) {
	c := New(mcp.Implementation{Name: "c", Version: "1"}, nil)
	var gotURI string
	c.OnResourceUpdated(func(uri string) { gotURI = uri })

	handler, ok := c.Notification("notifications/resources/updated")
	require.True(t, ok)
	params, _ := json.Marshal(mcp.ResourceUpdatedParams{URI: "test://r/1"})
	handler(context.Background(), params)

	assert.Equal(t, "test://r/1", gotURI)
}

func TestClient_MalformedNotificationDoesNotPanic(t *testing.T) {
	c := New(mcp.Implementation{Name: "c", Version: "1"}, nil)
	handler, ok := c.Notification("notifications/resources/updated")
	require.True(t, ok)
	handler(context.Background(), json.RawMessage(`not json`))
}
