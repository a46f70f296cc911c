// Package transporthttp implements the SSE + POST transport pair spec.md
// §4.C describes: a long-lived GET event stream carrying server-to-client
// messages plus an `endpoint` bootstrap event, and a POST endpoint carrying
// client-to-server messages, correlated by an opaque session id.
// file: internal/transporthttp/session.go
package transporthttp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/dkoosis/mcpcore/internal/logging"
	"github.com/dkoosis/mcpcore/internal/transport"
)

// resumeBufferSize bounds how many recently-sent events an SSETransport
// keeps for Last-Event-ID replay on reconnect (spec.md §4.C "resume").
const resumeBufferSize = 256

// sentEvent is one buffered SSE "message" event, kept so a reconnecting
// client presenting Last-Event-ID can replay everything it missed.
type sentEvent struct {
	id   uint64
	data []byte
}

// SSETransport is one session's Transport: outbound messages are delivered
// as SSE "message" events over the session's GET stream; inbound messages
// arrive via POST bodies pushed onto readCh. It implements
// transport.Transport so it plugs directly into internal/endpoint exactly
// like the stdio NDJSONTransport does.
type SSETransport struct {
	id     string
	logger logging.Logger

	mu       sync.Mutex
	closed   bool
	nextID   uint64
	resumeCh []sentEvent

	flush  func(eventID uint64, data []byte) error
	readCh chan []byte
	doneCh chan struct{}
}

var _ transport.Transport = (*SSETransport)(nil)

// NewSSETransport creates a session transport. flush is called for every
// outbound message with a monotonically increasing event id and the raw
// message bytes; it's expected to write one `id: <id>\ndata: <data>\n\n` SSE
// frame and flush the underlying ResponseWriter.
func NewSSETransport(id string, logger logging.Logger, flush func(eventID uint64, data []byte) error) *SSETransport {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	return &SSETransport{
		id:     id,
		logger: logger.WithField("component", "sse_transport").WithField("sessionId", id),
		flush:  flush,
		readCh: make(chan []byte, 64),
		doneCh: make(chan struct{}),
	}
}

// ID returns the session id this transport was registered under.
func (t *SSETransport) ID() string { return t.id }

// deliverInbound feeds one client->server message (a POST body) to
// ReadMessage. Called from the POST handler goroutine.
func (t *SSETransport) deliverInbound(message []byte) error {
	if err := transport.ValidateMessage(message); err != nil {
		return err
	}
	select {
	case t.readCh <- message:
		return nil
	case <-t.doneCh:
		return transport.NewClosedError("write")
	}
}

// ReadMessage implements transport.Transport, returning the next message a
// POST delivered to this session.
func (t *SSETransport) ReadMessage(ctx context.Context) ([]byte, error) {
	select {
	case msg := <-t.readCh:
		return msg, nil
	case <-t.doneCh:
		return nil, transport.NewClosedError("read")
	case <-ctx.Done():
		return nil, transport.NewTimeoutError("read", ctx.Err())
	}
}

// WriteMessage implements transport.Transport, emitting message as one SSE
// "message" event on this session's GET stream and buffering it for resume.
func (t *SSETransport) WriteMessage(ctx context.Context, message []byte) error {
	if err := transport.ValidateMessage(message); err != nil {
		return err
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return transport.NewClosedError("write")
	}
	t.nextID++
	id := t.nextID
	t.resumeCh = append(t.resumeCh, sentEvent{id: id, data: message})
	if len(t.resumeCh) > resumeBufferSize {
		t.resumeCh = t.resumeCh[len(t.resumeCh)-resumeBufferSize:]
	}
	flush := t.flush
	t.mu.Unlock()

	if flush == nil {
		return nil // No active GET stream; the client will resume and miss nothing thanks to the buffer.
	}
	if err := flush(id, message); err != nil {
		return transport.NewError(transport.ErrGeneric, "failed to write SSE event", err)
	}
	return nil
}

// Close implements transport.Transport.
func (t *SSETransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	close(t.doneCh)
	return nil
}

// attachStream installs flush as this session's active GET stream and
// replays every buffered event whose id is greater than afterID (the
// Last-Event-ID the reconnecting client presented, 0 for a fresh
// connection).
func (t *SSETransport) attachStream(afterID uint64, flush func(eventID uint64, data []byte) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return transport.NewClosedError("attach")
	}
	for _, evt := range t.resumeCh {
		if evt.id <= afterID {
			continue
		}
		if err := flush(evt.id, evt.data); err != nil {
			return err
		}
	}
	t.flush = flush
	return nil
}

// detachStream clears the active GET stream (the client disconnected);
// WriteMessage keeps buffering so a future reconnect can still resume.
func (t *SSETransport) detachStream() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.flush = nil
}

// stateClaim is the payload encoded into a stateless session id: enough to
// re-derive the caller's identity on every POST without a server-side
// session table (spec.md §4.C "stateless session-id mode").
type stateClaim struct {
	ClientID string    `json:"clientId"`
	User     string    `json:"user,omitempty"`
	IssuedAt time.Time `json:"issuedAt"`
}

// newStatefulSessionID returns a fresh random session id for the stateful
// variant, where the session lives in the registry's in-memory map.
func newStatefulSessionID() string {
	return uuid.NewString()
}

// encodeStatelessSessionID packs clientID/user into an opaque base64url
// blob carrying the full session identity, so any server process (not just
// the one that issued it) can decode the caller without shared state.
func encodeStatelessSessionID(clientID, user string) (string, error) {
	claim := stateClaim{ClientID: clientID, User: user, IssuedAt: time.Now().UTC()}
	raw, err := json.Marshal(claim)
	if err != nil {
		return "", errors.Wrap(err, "encode session claim")
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// decodeStatelessSessionID reverses encodeStatelessSessionID, returning an
// error if id isn't a validly-encoded claim.
func decodeStatelessSessionID(id string) (stateClaim, error) {
	raw, err := base64.RawURLEncoding.DecodeString(id)
	if err != nil {
		return stateClaim{}, errors.Wrap(err, "decode session id")
	}
	var claim stateClaim
	if err := json.Unmarshal(raw, &claim); err != nil {
		return stateClaim{}, errors.Wrap(err, "parse session claim")
	}
	return claim, nil
}
