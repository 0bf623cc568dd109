package control

import "errors"

var (
	// ErrChannelClosed indicates the control connection is gone: either
	// Close was called or the connection failed. All pending commands on
	// the channel resolve with this error, and further sends are rejected
	// without touching the network. The channel cannot be reopened; dial a
	// new one.
	ErrChannelClosed = errors.New("control channel closed")

	// ErrCommandTimeout indicates no matching reply arrived before the
	// command's deadline. The pending entry has been discarded: a late
	// reply with the same correlation id is dropped.
	ErrCommandTimeout = errors.New("command timed out")
)
