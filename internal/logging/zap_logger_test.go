package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewZapLogger_DefaultsOnBadLevel(t *testing.T) {
	l, err := NewZapLogger("not-a-level", "json")
	require.NoError(t, err)
	require.NotNil(t, l)
	l.Info("hello", "key", "value")
}

func TestZapLogger_WithFieldAndContext(t *testing.T) {
	l, err := NewZapLogger("debug", "console")
	require.NoError(t, err)

	fielded := l.WithField("component", "test")
	assert.NotNil(t, fielded)

	ctx := ContextWithFields(context.Background(), "session_id", "abc")
	withCtx := fielded.WithContext(ctx)
	withCtx.Debug("in context")
}
