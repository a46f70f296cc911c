// file: internal/transporthttp/handler.go
package transporthttp

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/dkoosis/mcpcore/internal/logging"
	"github.com/dkoosis/mcpcore/internal/transport"
)

// SessionMode selects how session identity is tracked across the GET/POST
// pair (spec.md §4.C).
type SessionMode int

const (
	// SessionModeStateful keeps a server-side map of session id to
	// SSETransport; session ids are random and meaningless on their own.
	SessionModeStateful SessionMode = iota
	// SessionModeStateless encodes the caller's identity directly into the
	// session id, so any process handling the POST can decode it without
	// consulting shared state.
	SessionModeStateless
)

// NewSessionFunc is called once per new GET connection (no sessionId query
// parameter present) to let the host application spin up whatever owns
// this session's Transport — typically wiring it into internal/endpoint
// via endpoint.New(t, dispatcher, logger) and calling ep.Start.
type NewSessionFunc func(t *SSETransport)

// Handler is an http.Handler implementing the MCP SSE/POST transport pair.
// One Handler instance serves every session for one MCP server.
type Handler struct {
	mode       SessionMode
	onSession  NewSessionFunc
	logger     logging.Logger
	messageURL string // Path advertised in the "endpoint" bootstrap event.

	mu       sync.Mutex
	sessions map[string]*SSETransport
}

// NewHandler returns a Handler serving sessions in the given mode. onSession
// is invoked for every freshly-created session so the caller can attach an
// endpoint to it. messagePath is the POST path advertised to clients in the
// "endpoint" bootstrap event (e.g. "/messages").
func NewHandler(mode SessionMode, messagePath string, onSession NewSessionFunc, logger logging.Logger) *Handler {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	return &Handler{
		mode:       mode,
		onSession:  onSession,
		logger:     logger.WithField("component", "transporthttp"),
		messageURL: messagePath,
		sessions:   make(map[string]*SSETransport),
	}
}

// ServeHTTP dispatches GET (event stream) and POST (message delivery).
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.serveEventStream(w, r)
	case http.MethodPost:
		h.servePostMessage(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// serveEventStream handles the long-lived GET connection: a brand new
// connection (no sessionId) bootstraps a session and emits the `endpoint`
// event; a reconnecting client (sessionId present, optionally with
// Last-Event-ID) resumes an existing one.
func (h *Handler) serveEventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sessionID := r.URL.Query().Get("sessionId")
	var t *SSETransport
	if sessionID == "" {
		sessionID, t = h.newSession(r)
	} else {
		var ok bool
		t, ok = h.lookupSession(sessionID)
		if !ok {
			http.Error(w, "unknown session", http.StatusNotFound)
			return
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	writeMu := &sync.Mutex{}
	flush := func(eventID uint64, data []byte) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		if _, err := fmt.Fprintf(w, "id: %d\nevent: message\ndata: %s\n\n", eventID, data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	afterID := uint64(0)
	if lastEventID := r.Header.Get("Last-Event-ID"); lastEventID != "" {
		if parsed, err := strconv.ParseUint(lastEventID, 10, 64); err == nil {
			afterID = parsed
		}
	}

	if err := t.attachStream(afterID, flush); err != nil {
		http.Error(w, "session closed", http.StatusGone)
		return
	}
	defer t.detachStream()

	if r.URL.Query().Get("sessionId") == "" {
		endpointURL := fmt.Sprintf("%s?sessionId=%s", h.messageURL, sessionID)
		writeMu.Lock()
		_, _ = fmt.Fprintf(w, "event: endpoint\ndata: %s\n\n", endpointURL)
		flusher.Flush()
		writeMu.Unlock()
	}

	select {
	case <-r.Context().Done():
	case <-t.doneCh:
	}
}

// servePostMessage delivers one client->server message to its session's
// inbound queue.
func (h *Handler) servePostMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		http.Error(w, "missing sessionId", http.StatusBadRequest)
		return
	}
	t, ok := h.lookupSession(sessionID)
	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	if err := t.deliverInbound(body); err != nil {
		var transportErr *transport.Error
		if errors.As(err, &transportErr) && transportErr.Code == transport.ErrTransportClosed {
			http.Error(w, "session closed", http.StatusGone)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// newSession allocates a session id appropriate to h.mode, constructs its
// SSETransport, registers it (stateful mode only), and notifies onSession.
func (h *Handler) newSession(r *http.Request) (string, *SSETransport) {
	var id string
	switch h.mode {
	case SessionModeStateless:
		clientID := r.Header.Get("X-Client-Id")
		user := r.Header.Get("X-User")
		encoded, err := encodeStatelessSessionID(clientID, user)
		if err != nil {
			// Fall back to a random id; the session just won't be resumable
			// across processes, which is the stateful mode's behavior anyway.
			encoded = newStatefulSessionID()
		}
		id = encoded
	default:
		id = newStatefulSessionID()
	}

	t := NewSSETransport(id, h.logger, nil)

	if h.mode == SessionModeStateful {
		h.mu.Lock()
		h.sessions[id] = t
		h.mu.Unlock()
	}

	if h.onSession != nil {
		h.onSession(t)
	}
	return id, t
}

// lookupSession resolves sessionID to its SSETransport. In stateless mode any
// id that decodes is accepted: the first lookup of an id creates a transport,
// caches it in the session map and hands it to onSession; later lookups of the
// same id return the cached transport. The stateful path returns the live
// transport registered for the id, if any.
func (h *Handler) lookupSession(sessionID string) (*SSETransport, bool) {
	if h.mode == SessionModeStateless {
		if _, err := decodeStatelessSessionID(sessionID); err != nil {
			return nil, false
		}
		h.mu.Lock()
		t, ok := h.sessions[sessionID]
		h.mu.Unlock()
		if !ok {
			t = NewSSETransport(sessionID, h.logger, nil)
			h.mu.Lock()
			h.sessions[sessionID] = t
			h.mu.Unlock()
			if h.onSession != nil {
				h.onSession(t)
			}
		}
		return t, true
	}

	h.mu.Lock()
	t, ok := h.sessions[sessionID]
	h.mu.Unlock()
	return t, ok
}
