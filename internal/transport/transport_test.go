// file: internal/transport/transport_test.go
package transport_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoosis/mcpcore/internal/transport"
)

func TestValidateMessage_AcceptsValidRequest(t *testing.T) {
	msg := []byte(`{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	assert.NoError(t, transport.ValidateMessage(msg))
}

func TestValidateMessage_AcceptsValidResponse(t *testing.T) {
	msg := []byte(`{"jsonrpc":"2.0","id":1,"result":{}}`)
	assert.NoError(t, transport.ValidateMessage(msg))
}

func TestValidateMessage_RejectsMissingVersion(t *testing.T) {
	msg := []byte(`{"id":1,"method":"ping"}`)
	assert.Error(t, transport.ValidateMessage(msg))
}

func TestValidateMessage_RejectsReservedMethodPrefix(t *testing.T) {
	msg := []byte(`{"jsonrpc":"2.0","id":1,"method":"rpc.internal"}`)
	assert.Error(t, transport.ValidateMessage(msg))
}

func TestValidateMessage_RejectsInvalidJSON(t *testing.T) {
	msg := []byte(`not json`)
	assert.Error(t, transport.ValidateMessage(msg))
}

func TestValidateMessage_RejectsResultAndErrorTogether(t *testing.T) {
	msg := []byte(`{"jsonrpc":"2.0","id":1,"result":{},"error":{"code":-32600,"message":"x"}}`)
	assert.Error(t, transport.ValidateMessage(msg))
}

func TestInMemoryTransportPair_RoundTrip(t *testing.T) {
	pair := transport.NewInMemoryTransportPair()
	defer pair.CloseChannels()

	ctx := context.Background()
	msg := []byte(`{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	require.NoError(t, pair.ClientTransport.WriteMessage(ctx, msg))

	got, err := pair.ServerTransport.ReadMessage(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, string(msg), string(got))
}

func TestInMemoryTransport_ReadRespectsContextCancellation(t *testing.T) {
	pair := transport.NewInMemoryTransportPair()
	defer pair.CloseChannels()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := pair.ServerTransport.ReadMessage(ctx)
	assert.Error(t, err)
}

func TestInMemoryTransport_CloseIsIdempotent(t *testing.T) {
	pair := transport.NewInMemoryTransportPair()
	defer pair.CloseChannels()

	require.NoError(t, pair.ClientTransport.Close())
	require.NoError(t, pair.ClientTransport.Close())
}

func TestIsClosedError(t *testing.T) {
	err := transport.NewClosedError("read")
	assert.True(t, transport.IsClosedError(err))
	assert.False(t, transport.IsClosedError(nil))
}

func TestMapErrorToJSONRPC_ParseFailure(t *testing.T) {
	err := transport.NewParseError([]byte(`{bad`), assert.AnError)
	code, message, data := transport.MapErrorToJSONRPC(err)
	assert.Equal(t, transport.JSONRPCParseError, code)
	assert.Equal(t, "Parse error", message)
	assert.NotEmpty(t, data)
}
