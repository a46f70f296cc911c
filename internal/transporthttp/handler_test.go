// file: internal/transporthttp/handler_test.go
package transporthttp_test

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoosis/mcpcore/internal/transporthttp"
)

// readSSEData reads one "data: ..." line from an SSE stream, skipping blank
// lines and non-data fields (event:/id:).
func readSSEData(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\r\n")
		if strings.HasPrefix(line, "data: ") {
			return strings.TrimPrefix(line, "data: ")
		}
	}
}

// TestHandler_BootstrapAndEcho wires the stateful SSE+POST pair and, instead
// of a full endpoint, echoes every inbound message straight back onto the
// session's outbound stream: this exercises the handler's session lifecycle
// (bootstrap event, POST delivery, SSE framing) in isolation.
func TestHandler_BootstrapAndEcho(t *testing.T) {
	onSession := func(s *transporthttp.SSETransport) {
		go func() {
			for {
				msg, err := s.ReadMessage(context.Background())
				if err != nil {
					return
				}
				_ = s.WriteMessage(context.Background(), msg)
			}
		}()
	}
	handler := transporthttp.NewHandler(transporthttp.SessionModeStateful, "/messages", onSession, nil)

	mux := http.NewServeMux()
	mux.Handle("/sse", handler)
	mux.Handle("/messages", handler)
	server := httptest.NewServer(mux)
	defer server.Close()

	req, err := http.NewRequest(http.MethodGet, server.URL+"/sse", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	reader := bufio.NewReader(resp.Body)
	endpointData := readSSEData(t, reader)
	assert.Contains(t, endpointData, "/messages?sessionId=")

	sessionID := strings.TrimPrefix(endpointData, "/messages?sessionId=")

	postBody := `{"jsonrpc":"2.0","id":1,"method":"ping"}`
	postResp, err := http.Post(server.URL+"/messages?sessionId="+sessionID, "application/json", strings.NewReader(postBody))
	require.NoError(t, err)
	defer postResp.Body.Close()
	assert.Equal(t, http.StatusAccepted, postResp.StatusCode)

	echoed := readSSEData(t, reader)
	assert.JSONEq(t, postBody, echoed)
}

func TestHandler_PostToUnknownSessionReturns404(t *testing.T) {
	handler := transporthttp.NewHandler(transporthttp.SessionModeStateful, "/messages", func(*transporthttp.SSETransport) {}, nil)
	server := httptest.NewServer(handler)
	defer server.Close()

	resp, err := http.Post(server.URL+"?sessionId=does-not-exist", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandler_PostWithoutSessionIDReturns400(t *testing.T) {
	handler := transporthttp.NewHandler(transporthttp.SessionModeStateful, "/messages", func(*transporthttp.SSETransport) {}, nil)
	server := httptest.NewServer(handler)
	defer server.Close()

	resp, err := http.Post(server.URL, "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	handler := transporthttp.NewHandler(transporthttp.SessionModeStateful, "/messages", func(*transporthttp.SSETransport) {}, nil)
	server := httptest.NewServer(handler)
	defer server.Close()

	req, err := http.NewRequest(http.MethodDelete, server.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
