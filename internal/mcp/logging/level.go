// Package logging implements the protocol's logging/setLevel threshold and
// notifications/message emission (spec.md §4.H). It is a separate concern
// from internal/logging, which is this repo's own structured-logging
// backend; this package models the MCP wire-level log plane a server
// exposes to its peer.
// file: internal/mcp/logging/level.go
package logging

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"
)

// Level is one of the eight RFC-5424-derived severities the protocol defines,
// totally ordered from Debug (least severe) to Emergency (most severe).
type Level string

const (
	LevelDebug     Level = "debug"
	LevelInfo      Level = "info"
	LevelNotice    Level = "notice"
	LevelWarning   Level = "warning"
	LevelError     Level = "error"
	LevelCritical  Level = "critical"
	LevelAlert     Level = "alert"
	LevelEmergency Level = "emergency"
)

var order = map[Level]int{
	LevelDebug:     0,
	LevelInfo:      1,
	LevelNotice:    2,
	LevelWarning:   3,
	LevelError:     4,
	LevelCritical:  5,
	LevelAlert:     6,
	LevelEmergency: 7,
}

// Rank returns l's position in the total order, or -1 if l isn't a
// recognized level.
func (l Level) Rank() int {
	r, ok := order[l]
	if !ok {
		return -1
	}
	return r
}

// Valid reports whether l is one of the eight defined levels.
func (l Level) Valid() bool { return l.Rank() >= 0 }

// ErrInvalidLevel is returned by Threshold.Set for an unrecognized level
// string.
var ErrInvalidLevel = errors.New("invalid log level")

// Threshold is a per-session minimum level gate, set via logging/setLevel and
// read before emitting every notifications/message. It's safe for concurrent
// use: setLevel calls race with the handler loop's emission checks.
type Threshold struct {
	level atomic.Value // Level
}

// NewThreshold returns a Threshold defaulting to LevelInfo, matching the
// protocol's default when a session never calls logging/setLevel.
func NewThreshold() *Threshold {
	t := &Threshold{}
	t.level.Store(LevelInfo)
	return t
}

// Set installs level as the new minimum. Returns ErrInvalidLevel and leaves
// the threshold unchanged if level isn't one of the eight defined values.
func (t *Threshold) Set(level Level) error {
	if !level.Valid() {
		return errors.Wrapf(ErrInvalidLevel, "%q", string(level))
	}
	t.level.Store(level)
	return nil
}

// Get returns the current minimum level.
func (t *Threshold) Get() Level {
	return t.level.Load().(Level)
}

// Admits reports whether a message at level should be emitted given the
// current threshold.
func (t *Threshold) Admits(level Level) bool {
	return level.Rank() >= t.Get().Rank()
}

// MessageParams is the payload of notifications/message.
type MessageParams struct {
	Level  Level  `json:"level"`
	Logger string `json:"logger,omitempty"`
	Data   any    `json:"data"`
}

// SetLevelParams is the params shape of logging/setLevel.
type SetLevelParams struct {
	Level Level `json:"level"`
}
