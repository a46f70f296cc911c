// Package mcperror defines error types, codes, and utilities for MCP and JSON-RPC.
// file: internal/mcperror/types.go
package mcperror

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Sentinel errors matched with errors.Is across the codebase. Constructors below mark
// the errors they build with the matching sentinel so callers never need to compare codes.
var (
	ErrResourceNotFound = errors.New("resource not found")
	ErrToolNotFound     = errors.New("tool not found")
	ErrPromptNotFound   = errors.New("prompt not found")
	ErrInvalidArguments = errors.New("invalid arguments")
	ErrTimeout          = errors.New("operation timed out")
	ErrCancelled        = errors.New("request cancelled")
	ErrTransportClosed  = errors.New("transport closed")
	ErrVersionMismatch  = errors.New("unsupported protocol version")
	ErrNotInitialized   = errors.New("session not initialized")
)

// richError carries the category/code/property bundle that ErrorToMap needs to build a
// JSON-RPC error object, without depending on cockroachdb/errors' internal detail
// encoding. The cause is still a cockroachdb/errors-produced error so stack traces and
// Is/As marking keep working through Unwrap.
type richError struct {
	cause      error
	category   Category
	code       int
	properties map[string]interface{}
}

func (e *richError) Error() string { return e.cause.Error() }
func (e *richError) Unwrap() error { return e.cause }
func (e *richError) Format(s fmt.State, verb rune) {
	errors.FormatError(e, s, verb)
}
func (e *richError) SafeFormatError(p errors.Printer) (next error) {
	p.Print(e.cause.Error())
	return nil
}

// ErrorWithDetails wraps err with a category, a JSON-RPC code, and a bag of arbitrary
// properties later surfaced (after redaction) as the "data" field of a JSON-RPC error.
func ErrorWithDetails(err error, category Category, code int, details map[string]interface{}) error {
	props := make(map[string]interface{}, len(details))
	for k, v := range details {
		props[k] = v
	}
	return &richError{cause: err, category: category, code: code, properties: props}
}

// NewResourceError builds an error for a failed resources/read or a missing resource.
//
//	return mcperror.NewResourceError("failed to load resource", err, map[string]any{"uri": uri})
func NewResourceError(message string, cause error, properties map[string]interface{}) error {
	var err error
	if cause == nil {
		err = errors.Mark(errors.Newf("%s", message), ErrResourceNotFound)
	} else {
		err = errors.Mark(errors.Wrapf(cause, "%s", message), ErrResourceNotFound)
	}
	return ErrorWithDetails(err, CategoryResource, CodeResourceNotFound, properties)
}

// NewToolError builds an error for a failed tool lookup or tool invocation setup. Errors
// raised by the tool's own handler during tools/call are reported as isError content, not
// through this constructor — see the server façade's dispatch for that distinction.
func NewToolError(message string, cause error, properties map[string]interface{}) error {
	var err error
	if cause == nil {
		err = errors.Mark(errors.Newf("%s", message), ErrToolNotFound)
	} else {
		err = errors.Mark(errors.Wrapf(cause, "%s", message), ErrToolNotFound)
	}
	return ErrorWithDetails(err, CategoryTool, CodeToolNotFound, properties)
}

// NewPromptError builds an error for a failed prompts/get lookup.
func NewPromptError(message string, cause error, properties map[string]interface{}) error {
	var err error
	if cause == nil {
		err = errors.Mark(errors.Newf("%s", message), ErrPromptNotFound)
	} else {
		err = errors.Mark(errors.Wrapf(cause, "%s", message), ErrPromptNotFound)
	}
	return ErrorWithDetails(err, CategoryPrompt, CodePromptNotFound, properties)
}

// NewInvalidArgumentsError builds an invalid-params error, typically from a schema
// validation failure against a tool's or prompt's declared argument schema.
func NewInvalidArgumentsError(message string, properties map[string]interface{}) error {
	err := errors.Mark(errors.Newf("%s", message), ErrInvalidArguments)
	return ErrorWithDetails(err, CategoryRPC, CodeInvalidParams, properties)
}

// NewMethodNotFoundError builds a method-not-found error for an unregistered JSON-RPC
// method name.
func NewMethodNotFoundError(method string, properties map[string]interface{}) error {
	err := errors.Newf("method %q not found", method)
	details := map[string]interface{}{"method": method}
	for k, v := range properties {
		details[k] = v
	}
	return ErrorWithDetails(err, CategoryRPC, CodeMethodNotFound, details)
}

// NewTimeoutError builds an error for a call() that exceeded its caller-supplied deadline.
func NewTimeoutError(message string, properties map[string]interface{}) error {
	err := errors.Mark(errors.Newf("%s", message), ErrTimeout)
	return ErrorWithDetails(err, CategoryEndpoint, CodeTimeoutError, properties)
}

// NewCancelledError builds an error for a request cancelled via notifications/cancelled
// or because its owning session closed.
func NewCancelledError(message string, properties map[string]interface{}) error {
	err := errors.Mark(errors.Newf("%s", message), ErrCancelled)
	return ErrorWithDetails(err, CategoryEndpoint, CodeCancelled, properties)
}

// NewTransportError builds an error for a transport-level failure (closed pipe, broken
// connection, malformed frame below the JSON-RPC layer).
func NewTransportError(message string, cause error, properties map[string]interface{}) error {
	var err error
	if cause == nil {
		err = errors.Mark(errors.Newf("%s", message), ErrTransportClosed)
	} else {
		err = errors.Mark(errors.Wrapf(cause, "%s", message), ErrTransportClosed)
	}
	return ErrorWithDetails(err, CategoryTransport, CodeTransportClosed, properties)
}

// NewAuthError builds an error for a failed OAuth token exchange, refresh, or a request
// rejected by the server for a missing/expired bearer token.
func NewAuthError(message string, cause error, properties map[string]interface{}) error {
	var err error
	if cause == nil {
		err = errors.Newf("%s", message)
	} else {
		err = errors.Wrapf(cause, "%s", message)
	}
	return ErrorWithDetails(err, CategoryAuth, CodeAuthError, properties)
}
