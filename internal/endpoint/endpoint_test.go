package endpoint

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoosis/mcpcore/internal/transport"
)

type staticDispatcher struct {
	requests      map[string]RequestHandler
	notifications map[string]NotificationHandler
}

func newStaticDispatcher() *staticDispatcher {
	return &staticDispatcher{
		requests:      make(map[string]RequestHandler),
		notifications: make(map[string]NotificationHandler),
	}
}

func (d *staticDispatcher) Request(method string) (RequestHandler, bool) {
	h, ok := d.requests[method]
	return h, ok
}

func (d *staticDispatcher) Notification(method string) (NotificationHandler, bool) {
	h, ok := d.notifications[method]
	return h, ok
}

func newTestPair(t *testing.T, clientDispatch, serverDispatch Dispatcher) (*Endpoint, *Endpoint, func()) {
	t.Helper()
	pair := transport.NewInMemoryTransportPair()
	client := New(pair.ClientTransport, clientDispatch, nil)
	server := New(pair.ServerTransport, serverDispatch, nil)

	ctx := context.Background()
	require.NoError(t, client.Start(ctx))
	require.NoError(t, server.Start(ctx))
	require.NoError(t, client.MarkReady(ctx))
	require.NoError(t, server.MarkReady(ctx))

	cleanup := func() {
		_ = client.Close(context.Background())
		_ = server.Close(context.Background())
	}
	return client, server, cleanup
}

func TestEndpoint_CallRoundTrip(t *testing.T) {
	serverDispatch := newStaticDispatcher()
	serverDispatch.requests["echo"] = func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		var p struct {
			Message string `json:"message"`
		}
		require.NoError(t, json.Unmarshal(params, &p))
		return map[string]string{"echoed": p.Message}, nil
	}

	client, _, cleanup := newTestPair(t, newStaticDispatcher(), serverDispatch)
	defer cleanup()

	result, err := client.Call(context.Background(), "echo", map[string]string{"message": "hi"}, CallOptions{})
	require.NoError(t, err)

	var decoded struct {
		Echoed string `json:"echoed"`
	}
	require.NoError(t, json.Unmarshal(result, &decoded))
	assert.Equal(t, "hi", decoded.Echoed)
}

func TestEndpoint_CallUnknownMethod(t *testing.T) {
	client, _, cleanup := newTestPair(t, newStaticDispatcher(), newStaticDispatcher())
	defer cleanup()

	_, err := client.Call(context.Background(), "nope", nil, CallOptions{})
	require.Error(t, err)
}

func TestEndpoint_Notify(t *testing.T) {
	serverDispatch := newStaticDispatcher()
	received := make(chan string, 1)
	serverDispatch.notifications["ping/custom"] = func(ctx context.Context, params json.RawMessage) {
		received <- string(params)
	}

	client, _, cleanup := newTestPair(t, newStaticDispatcher(), serverDispatch)
	defer cleanup()

	require.NoError(t, client.Notify(context.Background(), "ping/custom", map[string]string{"x": "y"}))

	select {
	case msg := <-received:
		assert.Contains(t, msg, "y")
	case <-time.After(time.Second):
		t.Fatal("notification not received")
	}
}

func TestEndpoint_CallCancelledLocally(t *testing.T) {
	serverDispatch := newStaticDispatcher()
	unblock := make(chan struct{})
	serverDispatch.requests["slow"] = func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-unblock:
			return "done", nil
		}
	}
	defer close(unblock)

	client, _, cleanup := newTestPair(t, newStaticDispatcher(), serverDispatch)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := client.Call(ctx, "slow", nil, CallOptions{})
		errCh <- err
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("call did not observe cancellation")
	}
}

func TestEndpoint_UnreadyRejectsNonInitializeMethods(t *testing.T) {
	pair := transport.NewInMemoryTransportPair()
	serverDispatch := newStaticDispatcher()
	serverDispatch.requests["tools/list"] = func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		return map[string]any{}, nil
	}
	server := New(pair.ServerTransport, serverDispatch, nil)
	client := New(pair.ClientTransport, newStaticDispatcher(), nil)

	require.NoError(t, server.Start(context.Background()))
	require.NoError(t, client.Start(context.Background()))
	defer func() {
		_ = client.Close(context.Background())
		_ = server.Close(context.Background())
	}()

	_, err := client.Call(context.Background(), "tools/list", nil, CallOptions{Deadline: time.Now().Add(500 * time.Millisecond)})
	require.Error(t, err)
}

func TestEndpoint_ProgressDelivery(t *testing.T) {
	serverDispatch := newStaticDispatcher()
	serverDispatch.requests["work"] = func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		return "ok", nil
	}

	client, server, cleanup := newTestPair(t, newStaticDispatcher(), serverDispatch)
	defer cleanup()

	gotProgress := make(chan float64, 1)
	client.Progress().Register("tok-1", func(progress, total float64, message string) {
		gotProgress <- progress
	})

	require.NoError(t, server.Notify(context.Background(), "notifications/progress", map[string]any{
		"progressToken": "tok-1",
		"progress":      0.5,
	}))

	select {
	case p := <-gotProgress:
		assert.Equal(t, 0.5, p)
	case <-time.After(time.Second):
		t.Fatal("progress not delivered")
	}
}
