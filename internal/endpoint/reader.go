// file: internal/endpoint/reader.go
package endpoint

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"

	"github.com/dkoosis/mcpcore/internal/jsonrpc"
	"github.com/dkoosis/mcpcore/internal/mcp"
	"github.com/dkoosis/mcpcore/internal/mcperror"
)

// readLoop is the single logical reader: it consumes frames from the
// transport and dispatches them in arrival order up to the point of fork
// (spec.md §4.D "Inbound loop", §5 "Reader ordering").
func (e *Endpoint) readLoop(ctx context.Context) {
	defer e.wg.Done()
	for {
		data, err := e.transport.ReadMessage(ctx)
		if err != nil {
			select {
			case <-e.closed:
				return
			default:
			}
			e.logger.Info("endpoint: read loop ending", "error", err)
			return
		}

		var msg jsonrpc.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			e.logger.Warn("endpoint: dropping malformed frame", "error", err)
			continue
		}

		switch {
		case msg.IsResponse():
			e.handleResponse(&msg)
		case msg.IsRequest():
			e.handleRequest(ctx, &msg)
		case msg.IsNotification():
			e.handleNotification(ctx, &msg)
		default:
			e.logger.Warn("endpoint: dropping unrecognized frame shape")
		}
	}
}

func (e *Endpoint) handleResponse(msg *jsonrpc.Message) {
	e.mu.Lock()
	slot, ok := e.pending[*msg.ID]
	if ok {
		delete(e.pending, *msg.ID)
	}
	e.mu.Unlock()

	if !ok {
		e.logger.Warn("endpoint: dropping response for unknown id", "id", msg.ID.String())
		return
	}

	select {
	case slot.resultCh <- callResult{result: msg.Result, rpcErr: msg.Error}:
	default:
	}
}

func (e *Endpoint) handleRequest(ctx context.Context, msg *jsonrpc.Message) {
	req, err := msg.ToRequest()
	if err != nil {
		e.logger.Warn("endpoint: malformed request frame", "error", err)
		return
	}

	if !e.admitsDispatch(req.Method) {
		e.sendError(req.ID, jsonrpc.CodeInvalidRequest, "endpoint not initialized")
		return
	}

	handler, ok := e.dispatcher.Request(req.Method)
	if !ok {
		e.sendError(req.ID, jsonrpc.CodeMethodNotFound, "method not found: "+req.Method)
		return
	}

	reqCtx, cancel := context.WithCancel(ctx)
	key := req.ID.String()
	ir := &incomingRequest{cancel: cancel, done: make(chan struct{})}
	e.mu.Lock()
	e.incoming[key] = ir
	e.mu.Unlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer close(ir.done)
		defer cancel()
		defer func() {
			e.mu.Lock()
			delete(e.incoming, key)
			e.mu.Unlock()
		}()

		result, handlerErr := e.runHandler(reqCtx, handler, req.Params)
		if handlerErr != nil {
			code, msgText := mcperror.GetErrorCode(handlerErr), handlerErr.Error()
			if code == 0 {
				code = jsonrpc.CodeInternalError
			}
			e.sendError(req.ID, code, msgText)
			return
		}
		e.sendResult(req.ID, result)
	}()
}

// runHandler recovers from a handler panic, translating it to InternalError
// with the detail redacted from the wire response but preserved in logs
// (spec.md §4.D).
func (e *Endpoint) runHandler(ctx context.Context, handler RequestHandler, params json.RawMessage) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("endpoint: handler panicked", "panic", r)
			err = mcperror.ErrorWithDetails(errors.New("handler panic"), mcperror.CategoryEndpoint, mcperror.CodeInternalError, nil)
		}
	}()
	return handler(ctx, params)
}

func (e *Endpoint) handleNotification(ctx context.Context, msg *jsonrpc.Message) {
	n, err := msg.ToNotification()
	if err != nil {
		e.logger.Warn("endpoint: malformed notification frame", "error", err)
		return
	}

	switch n.Method {
	case "notifications/cancelled":
		e.handleCancelled(n.Params)
		return
	case "notifications/progress":
		e.handleProgress(n.Params)
		return
	}

	handler, ok := e.dispatcher.Notification(n.Method)
	if !ok {
		e.logger.Debug("endpoint: no handler for notification", "method", n.Method)
		return
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		handler(ctx, n.Params)
	}()
}

func (e *Endpoint) handleCancelled(params json.RawMessage) {
	var p mcp.CancelledParams
	if err := json.Unmarshal(params, &p); err != nil {
		e.logger.Debug("endpoint: malformed cancelled notification", "error", err)
		return
	}
	var id jsonrpc.RequestID
	if err := json.Unmarshal(p.RequestID, &id); err != nil {
		e.logger.Debug("endpoint: cancelled notification has unparseable requestId", "error", err)
		return
	}

	e.mu.Lock()
	ir, ok := e.incoming[id.String()]
	e.mu.Unlock()
	if !ok {
		// Unknown id: drop silently per spec.md §9's open-question resolution.
		e.logger.Debug("endpoint: cancelled notification for unknown request id", "id", id.String())
		return
	}
	ir.cancel()
}

func (e *Endpoint) handleProgress(params json.RawMessage) {
	var p mcp.ProgressParams
	if err := json.Unmarshal(params, &p); err != nil {
		e.logger.Debug("endpoint: malformed progress notification", "error", err)
		return
	}
	e.progress.Deliver(p.ProgressToken, p.Progress, p.Total, p.Message)
}

// admitsDispatch enforces spec.md §3's invariant for inbound requests: before
// the initialize handshake completes, no request other than initialize itself
// is dispatched. Notifications do not pass through this check.
func (e *Endpoint) admitsDispatch(method string) bool {
	state := e.State()
	if state == StateReady || state == StateClosing {
		return true
	}
	return method == "initialize"
}

func (e *Endpoint) sendResult(id jsonrpc.RequestID, result interface{}) {
	resp, err := jsonrpc.NewResponse(id, result, nil)
	if err != nil {
		e.logger.Error("endpoint: failed to build response", "error", err)
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		e.logger.Error("endpoint: failed to encode response", "error", err)
		return
	}
	if err := e.enqueueSend(context.Background(), data); err != nil {
		e.logger.Error("endpoint: failed to enqueue response", "error", err)
	}
}

func (e *Endpoint) sendError(id jsonrpc.RequestID, code int, message string) {
	resp, err := jsonrpc.NewResponse(id, nil, &jsonrpc.Error{Code: code, Message: message})
	if err != nil {
		e.logger.Error("endpoint: failed to build error response", "error", err)
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		e.logger.Error("endpoint: failed to encode error response", "error", err)
		return
	}
	if err := e.enqueueSend(context.Background(), data); err != nil {
		e.logger.Error("endpoint: failed to enqueue error response", "error", err)
	}
}
