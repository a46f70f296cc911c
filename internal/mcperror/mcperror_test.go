package mcperror

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewResourceError_Sentinel(t *testing.T) {
	err := NewResourceError("no such resource", nil, map[string]interface{}{"uri": "file:///a"})
	require.Error(t, err)
	assert.True(t, IsResourceNotFoundError(err))
	assert.False(t, IsToolNotFoundError(err))
	assert.Equal(t, CodeResourceNotFound, GetErrorCode(err))
	assert.Equal(t, CategoryResource, GetErrorCategory(err))
	assert.Equal(t, "file:///a", GetErrorProperties(err)["uri"])
}

func TestNewToolError_WrapsCause(t *testing.T) {
	cause := assertNewErr("boom")
	err := NewToolError("tool failed", cause, map[string]interface{}{"tool_name": "search"})
	assert.True(t, IsToolNotFoundError(err))
	assert.Equal(t, CodeToolNotFound, GetErrorCode(err))
	assert.ErrorContains(t, err, "boom")
}

func TestErrorToMap_RedactsSensitiveKeys(t *testing.T) {
	err := NewAuthError("token refresh failed", nil, map[string]interface{}{
		"auth_token": "should-not-leak",
		"token":      "should-not-leak",
		"account":    "alice",
	})

	m := ErrorToMap(err)
	assert.Equal(t, CodeAuthError, m["code"])
	assert.Equal(t, UserFacingMessage(CodeAuthError), m["message"])

	data, ok := m["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "alice", data["account"])
	assert.NotContains(t, data, "token")
}

func TestErrorToMap_NilError(t *testing.T) {
	assert.Nil(t, ErrorToMap(nil))
}

func TestGetErrorCode_PlainErrorDefaultsToInternal(t *testing.T) {
	assert.Equal(t, CodeInternalError, GetErrorCode(assertNewErr("plain")))
}

func assertNewErr(msg string) error {
	return &plainError{msg}
}

type plainError struct{ msg string }

func (e *plainError) Error() string { return e.msg }
