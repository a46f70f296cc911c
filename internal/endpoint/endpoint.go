// Package endpoint implements the correlation/session engine at the heart of
// an MCP connection: the pending-request table, the incoming-request
// cancellation table, call/notify, the single reader loop, and the
// Created→Initializing→Ready→Closing→Closed lifecycle (spec.md §3, §4.D).
// Neither the client façade (internal/mcpclient) nor the server façade
// (internal/mcpserver) talks to a transport directly; both sit on top of one
// Endpoint.
// file: internal/endpoint/endpoint.go
package endpoint

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/dkoosis/mcpcore/internal/fsm"
	"github.com/dkoosis/mcpcore/internal/jsonrpc"
	"github.com/dkoosis/mcpcore/internal/logging"
	"github.com/dkoosis/mcpcore/internal/mcp/progress"
	"github.com/dkoosis/mcpcore/internal/mcperror"
	"github.com/dkoosis/mcpcore/internal/transport"
)

// DefaultShutdownTimeout bounds how long Close waits for in-flight incoming
// handlers to observe cancellation before abandoning them (spec.md §4.D
// "Shutdown").
const DefaultShutdownTimeout = 5 * time.Second

// DefaultSendQueueSize is the bound on the outbound write queue; exceeding it
// blocks Call/Notify until the writer drains (spec.md §5 "Backpressure").
const DefaultSendQueueSize = 256

// RequestHandler answers one inbound Request. A non-nil error becomes a
// JSON-RPC Error envelope unless it's an *mcperror-tagged CallToolResult
// error, which the server façade handles itself before ever returning here.
type RequestHandler func(ctx context.Context, params json.RawMessage) (result interface{}, err error)

// NotificationHandler reacts to one inbound Notification. It never produces a
// response.
type NotificationHandler func(ctx context.Context, params json.RawMessage)

// Dispatcher resolves a method name to the handler that should run it.
// internal/mcpserver and internal/mcpclient each implement Dispatcher
// (the client's reversed registry serves sampling/roots/elicitation calls
// from the server).
type Dispatcher interface {
	Request(method string) (RequestHandler, bool)
	Notification(method string) (NotificationHandler, bool)
}

// pendingCall is the single-shot completion slot for one outstanding Call.
type pendingCall struct {
	method   string
	resultCh chan callResult
	cancel   context.CancelFunc
	done     bool
}

type callResult struct {
	result json.RawMessage
	rpcErr *jsonrpc.Error
	err    error
}

// incomingRequest tracks one in-flight inbound dispatch so a
// notifications/cancelled can reach its cancellation source (spec.md §4.D).
type incomingRequest struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// CallOptions configures one Call: an optional absolute deadline, and an
// optional progress sink keyed by progressToken.
type CallOptions struct {
	Deadline      time.Time
	ProgressToken any
	ProgressSink  progress.Sink
}

// Endpoint owns a transport and presents call/notify to the façade above it.
// It runs one reader goroutine and one writer goroutine for the lifetime of
// the connection.
type Endpoint struct {
	transport  transport.Transport
	dispatcher Dispatcher
	logger     logging.Logger
	lifecycle  fsm.FSM

	nextID int64
	idMu   sync.Mutex

	mu              sync.Mutex
	pending         map[jsonrpc.RequestID]*pendingCall
	incoming        map[string]*incomingRequest
	peerVersion     string
	shutdownTimeout time.Duration

	progress *progress.Registry

	sendCh chan []byte

	closeOnce sync.Once
	closed    chan struct{}
	wg        sync.WaitGroup
}

// New builds an Endpoint over t, dispatching inbound requests/notifications
// to d. The endpoint starts in StateCreated; call Start to launch its reader
// and writer loops.
func New(t transport.Transport, d Dispatcher, logger logging.Logger) *Endpoint {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	return &Endpoint{
		transport:       t,
		dispatcher:      d,
		logger:          logger.WithField("component", "endpoint"),
		lifecycle:       newLifecycle(logger),
		pending:         make(map[jsonrpc.RequestID]*pendingCall),
		incoming:        make(map[string]*incomingRequest),
		progress:        progress.NewRegistry(),
		sendCh:          make(chan []byte, DefaultSendQueueSize),
		closed:          make(chan struct{}),
		shutdownTimeout: DefaultShutdownTimeout,
	}
}

// Start builds the lifecycle FSM and launches the reader and writer
// goroutines. Must be called exactly once before Call/Notify.
func (e *Endpoint) Start(ctx context.Context) error {
	if err := e.lifecycle.Build(); err != nil {
		return errors.Wrap(err, "endpoint: build lifecycle")
	}
	if err := e.lifecycle.Transition(ctx, eventStartInit, nil); err != nil {
		return errors.Wrap(err, "endpoint: enter initializing")
	}
	e.wg.Add(2)
	go e.readLoop(ctx)
	go e.writeLoop(ctx)
	return nil
}

// MarkReady transitions the endpoint to StateReady once the handshake (the
// façade's job) has completed on this side.
func (e *Endpoint) MarkReady(ctx context.Context) error {
	return e.lifecycle.Transition(ctx, eventBecomeReady, nil)
}

// State returns the endpoint's current lifecycle state.
func (e *Endpoint) State() fsm.State {
	return e.lifecycle.CurrentState()
}

// SetPeerVersion records the protocol version negotiated during initialize.
func (e *Endpoint) SetPeerVersion(v string) {
	e.mu.Lock()
	e.peerVersion = v
	e.mu.Unlock()
}

// PeerVersion returns the negotiated protocol version, or "" before
// handshake.
func (e *Endpoint) PeerVersion() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.peerVersion
}

// Progress returns the registry Call installs sinks into; the façade's
// sampling/tool invocation code reads from it indirectly through Call's
// options.
func (e *Endpoint) Progress() *progress.Registry { return e.progress }

func (e *Endpoint) nextRequestID() jsonrpc.RequestID {
	e.idMu.Lock()
	defer e.idMu.Unlock()
	e.nextID++
	return jsonrpc.NewNumberID(e.nextID)
}

// Call allocates the next id, installs a pending slot, writes the request,
// then suspends until the slot completes: a decoded result, a protocol
// error, a cancellation, or endpoint shutdown (spec.md §4.D).
func (e *Endpoint) Call(ctx context.Context, method string, params interface{}, opts CallOptions) (json.RawMessage, error) {
	if e.State() == StateClosing || e.State() == StateClosed {
		return nil, mcperror.NewTransportError("endpoint is closing", nil, nil)
	}

	id := e.nextRequestID()
	req, err := jsonrpc.NewRequest(id, method, params)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithCancel(ctx)
	if !opts.Deadline.IsZero() {
		var deadlineCancel context.CancelFunc
		callCtx, deadlineCancel = context.WithDeadline(callCtx, opts.Deadline)
		originalCancel := cancel
		cancel = func() { deadlineCancel(); originalCancel() }
	}
	defer cancel()

	slot := &pendingCall{method: method, resultCh: make(chan callResult, 1), cancel: cancel}
	e.mu.Lock()
	e.pending[id] = slot
	e.mu.Unlock()

	if opts.ProgressSink != nil && opts.ProgressToken != nil {
		e.progress.Register(opts.ProgressToken, opts.ProgressSink)
		defer e.progress.Unregister(opts.ProgressToken)
	}

	data, err := json.Marshal(req)
	if err != nil {
		e.removePending(id)
		return nil, mcperror.ErrorWithDetails(errors.Wrap(err, "encode request"), mcperror.CategoryRPC, mcperror.CodeInternalError, nil)
	}

	if err := e.enqueueSend(callCtx, data); err != nil {
		e.removePending(id)
		return nil, err
	}

	select {
	case res := <-slot.resultCh:
		if res.err != nil {
			return nil, res.err
		}
		if res.rpcErr != nil {
			return nil, res.rpcErr
		}
		return res.result, nil

	case <-callCtx.Done():
		e.removePending(id)
		if ctx.Err() != nil {
			// Local cancellation: tell the peer to stop working, best-effort.
			_ = e.Notify(context.Background(), "notifications/cancelled", map[string]interface{}{"requestId": id})
			return nil, mcperror.NewCancelledError("call cancelled", nil)
		}
		return nil, mcperror.NewTimeoutError("call deadline exceeded", nil)

	case <-e.closed:
		e.removePending(id)
		return nil, mcperror.NewTransportError("endpoint closed", nil, nil)
	}
}

// Notify sends a fire-and-forget message with no id and no expected
// response.
func (e *Endpoint) Notify(ctx context.Context, method string, params interface{}) error {
	if e.State() == StateClosed {
		return mcperror.NewTransportError("endpoint is closed", nil, nil)
	}
	n, err := jsonrpc.NewNotification(method, params)
	if err != nil {
		return err
	}
	data, err := json.Marshal(n)
	if err != nil {
		return mcperror.ErrorWithDetails(errors.Wrap(err, "encode notification"), mcperror.CategoryRPC, mcperror.CodeInternalError, nil)
	}
	return e.enqueueSend(ctx, data)
}

func (e *Endpoint) enqueueSend(ctx context.Context, data []byte) error {
	select {
	case e.sendCh <- data:
		return nil
	case <-ctx.Done():
		return mcperror.NewCancelledError("send cancelled", nil)
	case <-e.closed:
		return mcperror.NewTransportError("endpoint closed", nil, nil)
	}
}

func (e *Endpoint) removePending(id jsonrpc.RequestID) {
	e.mu.Lock()
	delete(e.pending, id)
	e.mu.Unlock()
}

// writeLoop is the single producer that serializes writes to the transport,
// guaranteeing submission order reaches the wire (spec.md §5 "Writer
// ordering").
func (e *Endpoint) writeLoop(ctx context.Context) {
	defer e.wg.Done()
	for {
		select {
		case data, ok := <-e.sendCh:
			if !ok {
				return
			}
			if err := e.transport.WriteMessage(ctx, data); err != nil {
				e.logger.Error("endpoint: write failed", "error", err)
			}
		case <-e.closed:
			return
		}
	}
}

// Close marks the endpoint Closing, drains pending sends, closes the
// transport, fails every remaining pending call with transport-closed, and
// waits (bounded by shutdownTimeout) for in-flight incoming handlers to
// observe cancellation (spec.md §4.D "Shutdown").
func (e *Endpoint) Close(ctx context.Context) error {
	var closeErr error
	e.closeOnce.Do(func() {
		_ = e.lifecycle.Transition(ctx, eventStartClose, nil)

		e.mu.Lock()
		pending := make([]*pendingCall, 0, len(e.pending))
		for id, slot := range e.pending {
			pending = append(pending, slot)
			delete(e.pending, id)
		}
		incoming := make([]*incomingRequest, 0, len(e.incoming))
		for _, ir := range e.incoming {
			incoming = append(incoming, ir)
		}
		e.mu.Unlock()

		for _, slot := range pending {
			select {
			case slot.resultCh <- callResult{err: mcperror.NewTransportError("endpoint closed", nil, nil)}:
			default:
			}
		}

		for _, ir := range incoming {
			ir.cancel()
		}

		drainDeadline := time.Now().Add(e.shutdownTimeout)
		for len(e.sendCh) > 0 && time.Now().Before(drainDeadline) {
			time.Sleep(time.Millisecond)
		}

		close(e.closed)
		closeErr = e.transport.Close()

		deadline := time.NewTimer(e.shutdownTimeout)
		defer deadline.Stop()
		waitDone := make(chan struct{})
		go func() { e.wg.Wait(); close(waitDone) }()
		select {
		case <-waitDone:
		case <-deadline.C:
			e.logger.Warn("endpoint: shutdown timed out waiting for handlers")
		}

		_ = e.lifecycle.Transition(ctx, eventFinishClose, nil)
	})
	return closeErr
}
