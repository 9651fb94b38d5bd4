// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error values shared by the transport, server and processor layers.

package api

import "errors"

// Common errors used across the library.
var (
	ErrAlreadyRunning   = errors.New("server already running")
	ErrConnectionClosed = errors.New("connection is closed")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrNotSupported     = errors.New("operation not supported")
)
