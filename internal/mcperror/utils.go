// file: internal/mcperror/utils.go
package mcperror

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// richErrorOf walks err's Unwrap chain looking for the innermost *richError, so that
// wrapping (e.g. with errors.Wrapf for added context) never hides the original
// category/code/properties from GetErrorCategory/GetErrorCode/GetErrorProperties.
func richErrorOf(err error) *richError {
	var found *richError
	for e := err; e != nil; e = errors.UnwrapOnce(e) {
		if re, ok := e.(*richError); ok {
			found = re
		}
	}
	return found
}

// IsResourceNotFoundError reports whether err (or anything it wraps) is a resource
// lookup failure.
func IsResourceNotFoundError(err error) bool { return errors.Is(err, ErrResourceNotFound) }

// IsToolNotFoundError reports whether err (or anything it wraps) is a tool lookup
// failure.
func IsToolNotFoundError(err error) bool { return errors.Is(err, ErrToolNotFound) }

// IsPromptNotFoundError reports whether err (or anything it wraps) is a prompt lookup
// failure.
func IsPromptNotFoundError(err error) bool { return errors.Is(err, ErrPromptNotFound) }

// IsInvalidArgumentsError reports whether err (or anything it wraps) came from argument
// schema validation.
func IsInvalidArgumentsError(err error) bool { return errors.Is(err, ErrInvalidArguments) }

// IsTimeoutError reports whether err (or anything it wraps) is a deadline-exceeded
// failure from call().
func IsTimeoutError(err error) bool { return errors.Is(err, ErrTimeout) }

// IsCancelledError reports whether err (or anything it wraps) came from
// notifications/cancelled or session teardown.
func IsCancelledError(err error) bool { return errors.Is(err, ErrCancelled) }

// GetErrorCategory returns the Category attached by one of the New*Error constructors,
// or "" if err was never wrapped by this package.
func GetErrorCategory(err error) Category {
	if re := richErrorOf(err); re != nil {
		return re.category
	}
	return ""
}

// GetErrorCode returns the JSON-RPC error code attached by one of the New*Error
// constructors, defaulting to CodeInternalError for plain errors.
func GetErrorCode(err error) int {
	if re := richErrorOf(err); re != nil {
		return re.code
	}
	return CodeInternalError
}

// GetErrorProperties returns the property bag attached by one of the New*Error
// constructors, or an empty map.
func GetErrorProperties(err error) map[string]interface{} {
	if re := richErrorOf(err); re != nil {
		out := make(map[string]interface{}, len(re.properties))
		for k, v := range re.properties {
			out[k] = v
		}
		return out
	}
	return map[string]interface{}{}
}

// ErrorToMap converts err into a JSON-RPC error object: {"code", "message", "data"}. The
// message is the fixed, non-leaky string for the code; the original error text never
// crosses the wire. Properties whose key looks like it might hold a secret are dropped
// from "data" rather than redacted in place, since a partially-redacted token is still a
// token shape worth not shipping.
func ErrorToMap(err error) map[string]interface{} {
	if err == nil {
		return nil
	}

	code := GetErrorCode(err)
	properties := GetErrorProperties(err)

	errorMap := map[string]interface{}{
		"code":    code,
		"message": UserFacingMessage(code),
	}

	dataProps := make(map[string]interface{})
	for k, v := range properties {
		if !containsSensitiveKeyword(k) {
			dataProps[k] = v
		}
	}
	if len(dataProps) > 0 {
		errorMap["data"] = dataProps
	}

	return errorMap
}

func containsSensitiveKeyword(key string) bool {
	sensitive := []string{"token", "password", "secret", "key", "auth", "credential", "bearer"}
	for _, word := range sensitive {
		if strings.Contains(strings.ToLower(key), word) {
			return true
		}
	}
	return false
}
