// Package jsonrpc implements the JSON-RPC 2.0 message envelope used by every MCP
// transport: request/response/notification framing, the request-id value type, and the
// standard error codes.
// file: internal/jsonrpc/types.go
package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/mcpcore/internal/mcperror"
)

// Version is the JSON-RPC version string every envelope carries.
const Version = "2.0"

// Standard JSON-RPC 2.0 error codes, re-exported from mcperror so callers that only
// import jsonrpc don't need a second import for the numeric constants.
const (
	CodeParseError     = mcperror.CodeParseError
	CodeInvalidRequest = mcperror.CodeInvalidRequest
	CodeMethodNotFound = mcperror.CodeMethodNotFound
	CodeInvalidParams  = mcperror.CodeInvalidParams
	CodeInternalError  = mcperror.CodeInternalError
)

// idKind distinguishes the three shapes a request id may take on the wire: absent
// (notifications), a string, or a number. The zero value is idKindNone so a
// zero-valued RequestID behaves like "no id" without extra initialization.
type idKind int

const (
	idKindNone idKind = iota
	idKindString
	idKindNumber
)

// RequestID is the JSON-RPC id field: a string, an integer, or absent. It has value
// semantics (comparable with ==) and a total order so it can key a map or sort in a
// pending-request table.
type RequestID struct {
	kind idKind
	str  string
	num  int64
}

// NewStringID builds a RequestID carrying a string value.
func NewStringID(s string) RequestID { return RequestID{kind: idKindString, str: s} }

// NewNumberID builds a RequestID carrying an integer value.
func NewNumberID(n int64) RequestID { return RequestID{kind: idKindNumber, num: n} }

// IsZero reports whether the id is absent, as in a notification.
func (id RequestID) IsZero() bool { return id.kind == idKindNone }

// IsString reports whether the id holds a string value.
func (id RequestID) IsString() bool { return id.kind == idKindString }

// String renders the id for logging and map keys. A zero RequestID renders "".
func (id RequestID) String() string {
	switch id.kind {
	case idKindString:
		return id.str
	case idKindNumber:
		return fmt.Sprintf("%d", id.num)
	default:
		return ""
	}
}

// Int returns the numeric value and true if the id is a number.
func (id RequestID) Int() (int64, bool) {
	if id.kind == idKindNumber {
		return id.num, true
	}
	return 0, false
}

// Equal reports whether two ids have the same kind and value.
func (id RequestID) Equal(other RequestID) bool {
	if id.kind != other.kind {
		return false
	}
	switch id.kind {
	case idKindString:
		return id.str == other.str
	case idKindNumber:
		return id.num == other.num
	default:
		return true
	}
}

// Compare imposes a total order over RequestIDs: none < string < number, and within a
// kind by natural ordering. It exists so a pending-request table can be represented as
// a sorted structure in tests without relying on map iteration order.
func (id RequestID) Compare(other RequestID) int {
	if id.kind != other.kind {
		return int(id.kind) - int(other.kind)
	}
	switch id.kind {
	case idKindNumber:
		switch {
		case id.num < other.num:
			return -1
		case id.num > other.num:
			return 1
		default:
			return 0
		}
	case idKindString:
		switch {
		case id.str < other.str:
			return -1
		case id.str > other.str:
			return 1
		default:
			return 0
		}
	default:
		return 0
	}
}

// MarshalJSON renders the id as a bare JSON string or number, or "null" when zero.
func (id RequestID) MarshalJSON() ([]byte, error) {
	switch id.kind {
	case idKindString:
		return json.Marshal(id.str)
	case idKindNumber:
		return json.Marshal(id.num)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts a JSON string, an integer number, or null/absent. A
// fractional number is rejected: MCP ids are always integral.
func (id *RequestID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		*id = RequestID{}
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return errors.Wrap(err, "jsonrpc: decode string id")
		}
		*id = NewStringID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return errors.Wrap(err, "jsonrpc: decode numeric id")
	}
	i, err := n.Int64()
	if err != nil {
		return errors.Wrapf(err, "jsonrpc: id %q is not an integer", n.String())
	}
	*id = NewNumberID(i)
	return nil
}

// Error represents a JSON-RPC 2.0 error object.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Error implements the error interface so an *Error can travel as a Go error.
func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// NewErrorFromMap builds an *Error from the map produced by mcperror.ErrorToMap.
func NewErrorFromMap(m map[string]interface{}) (*Error, error) {
	code, _ := m["code"].(int)
	msg, _ := m["message"].(string)
	e := &Error{Code: code, Message: msg}
	if data, ok := m["data"]; ok {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, errors.Wrap(err, "jsonrpc: marshal error data")
		}
		e.Data = raw
	}
	return e, nil
}

// Message is the superset envelope every frame is first decoded into before the
// transport or endpoint layer classifies it as a Request, Response, or Notification.
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *RequestID      `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Request is an outbound or inbound call that expects a Response.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      RequestID       `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response answers a Request by id, carrying exactly one of Result or Error.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      RequestID       `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Notification is a one-way message with no id and no Response.
type Notification struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsRequest reports whether m is a request: it has a method, an id, and no result/error.
func (m *Message) IsRequest() bool {
	return m.Method != "" && m.ID != nil && m.Result == nil && m.Error == nil
}

// IsResponse reports whether m is a response: no method, an id, and a result or error.
func (m *Message) IsResponse() bool {
	return m.Method == "" && m.ID != nil && (m.Result != nil || m.Error != nil)
}

// IsNotification reports whether m is a notification: a method and no id.
func (m *Message) IsNotification() bool {
	return m.Method != "" && m.ID == nil
}

// ToRequest converts m to a Request, failing if m isn't shaped like one.
func (m *Message) ToRequest() (*Request, error) {
	if !m.IsRequest() {
		return nil, invalidShapeError(m, "request")
	}
	return &Request{JSONRPC: m.JSONRPC, ID: *m.ID, Method: m.Method, Params: m.Params}, nil
}

// ToResponse converts m to a Response, failing if m isn't shaped like one.
func (m *Message) ToResponse() (*Response, error) {
	if !m.IsResponse() {
		return nil, invalidShapeError(m, "response")
	}
	return &Response{JSONRPC: m.JSONRPC, ID: *m.ID, Result: m.Result, Error: m.Error}, nil
}

// ToNotification converts m to a Notification, failing if m isn't shaped like one.
func (m *Message) ToNotification() (*Notification, error) {
	if !m.IsNotification() {
		return nil, invalidShapeError(m, "notification")
	}
	return &Notification{JSONRPC: m.JSONRPC, Method: m.Method, Params: m.Params}, nil
}

func invalidShapeError(m *Message, want string) error {
	return mcperror.ErrorWithDetails(
		errors.Newf("message is not a %s", want),
		mcperror.CategoryRPC,
		mcperror.CodeInvalidRequest,
		map[string]interface{}{
			"has_method": m.Method != "",
			"has_id":     m.ID != nil,
			"has_result": m.Result != nil,
			"has_error":  m.Error != nil,
		},
	)
}

// NewRequest builds a Request, marshaling params if given.
func NewRequest(id RequestID, method string, params interface{}) (*Request, error) {
	paramsJSON, err := marshalParams(params, method)
	if err != nil {
		return nil, err
	}
	return &Request{JSONRPC: Version, ID: id, Method: method, Params: paramsJSON}, nil
}

// NewResponse builds a Response carrying result (marshaled) or err, never both.
func NewResponse(id RequestID, result interface{}, rpcErr *Error) (*Response, error) {
	var resultJSON json.RawMessage
	if result != nil && rpcErr == nil {
		raw, err := json.Marshal(result)
		if err != nil {
			return nil, mcperror.ErrorWithDetails(
				errors.Wrap(err, "failed to marshal result"),
				mcperror.CategoryRPC,
				mcperror.CodeInternalError,
				map[string]interface{}{"result_type": fmt.Sprintf("%T", result)},
			)
		}
		resultJSON = raw
	}
	return &Response{JSONRPC: Version, ID: id, Result: resultJSON, Error: rpcErr}, nil
}

// NewNotification builds a Notification, marshaling params if given.
func NewNotification(method string, params interface{}) (*Notification, error) {
	paramsJSON, err := marshalParams(params, method)
	if err != nil {
		return nil, err
	}
	return &Notification{JSONRPC: Version, Method: method, Params: paramsJSON}, nil
}

func marshalParams(params interface{}, method string) (json.RawMessage, error) {
	if params == nil {
		return nil, nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, mcperror.ErrorWithDetails(
			errors.Wrap(err, "failed to marshal params"),
			mcperror.CategoryRPC,
			mcperror.CodeInternalError,
			map[string]interface{}{"params_type": fmt.Sprintf("%T", params), "method": method},
		)
	}
	return raw, nil
}

// ParseParams decodes r's params into dst. A request with no params leaves dst untouched.
func (r *Request) ParseParams(dst interface{}) error {
	return parseParams(r.Params, r.Method, dst)
}

// ParseParams decodes n's params into dst. A notification with no params leaves dst untouched.
func (n *Notification) ParseParams(dst interface{}) error {
	return parseParams(n.Params, n.Method, dst)
}

func parseParams(raw json.RawMessage, method string, dst interface{}) error {
	if raw == nil {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return mcperror.ErrorWithDetails(
			errors.Wrap(err, "failed to unmarshal params"),
			mcperror.CategoryRPC,
			mcperror.CodeInvalidParams,
			map[string]interface{}{
				"method":      method,
				"target_type": fmt.Sprintf("%T", dst),
				"params_size": len(raw),
			},
		)
	}
	return nil
}
