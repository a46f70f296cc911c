package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThreshold_DefaultIsInfo(t *testing.T) {
	th := NewThreshold()
	assert.Equal(t, LevelInfo, th.Get())
	assert.False(t, th.Admits(LevelDebug))
	assert.True(t, th.Admits(LevelWarning))
}

func TestThreshold_SetRejectsInvalid(t *testing.T) {
	th := NewThreshold()
	err := th.Set("bogus")
	require.ErrorIs(t, err, ErrInvalidLevel)
	assert.Equal(t, LevelInfo, th.Get())
}

func TestThreshold_SetGatesAdmission(t *testing.T) {
	th := NewThreshold()
	require.NoError(t, th.Set(LevelError))
	assert.False(t, th.Admits(LevelWarning))
	assert.True(t, th.Admits(LevelCritical))
}

func TestLevel_TotalOrder(t *testing.T) {
	levels := []Level{LevelDebug, LevelInfo, LevelNotice, LevelWarning, LevelError, LevelCritical, LevelAlert, LevelEmergency}
	for i := 1; i < len(levels); i++ {
		assert.Less(t, levels[i-1].Rank(), levels[i].Rank())
	}
}
