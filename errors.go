package swamp

import (
	"errors"

	"github.com/casualjim/swamp/ownership"
)

var (
	// ErrNodeNotFound is returned when a required path is not registered.
	ErrNodeNotFound = errors.New("swamp: node not found")
	// ErrPathCollision is returned when a path is already registered.
	ErrPathCollision = errors.New("swamp: path already registered")
	// ErrInvalidPath is returned by exchanges with strict paths for malformed
	// path input.
	ErrInvalidPath = errors.New("swamp: invalid path")
	// ErrConcurrencyFailure means a guard was left broken by a failed holder.
	// The exchange that returns it is unusable and must be rebuilt.
	ErrConcurrencyFailure = ownership.ErrConcurrencyFailure
	// ErrModeMismatch is returned when a node handle of one ownership mode is
	// given to an exchange running the other.
	ErrModeMismatch = errors.New("swamp: ownership mode mismatch")
	// ErrInvalidRelationship is returned when a caller tries to manage a
	// relationship the exchange maintains itself.
	ErrInvalidRelationship = errors.New("swamp: relationship is managed by the exchange")
	// ErrHookRequired is returned by Listen without a hook.
	ErrHookRequired = errors.New("swamp: hook is required")
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("swamp: exchange closed")
)
