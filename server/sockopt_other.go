// File: server/sockopt_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

//go:build !linux

package server

import (
	"net"
	"time"

	"github.com/momentics/hioload-rpc/api"
)

// setUserTimeout is Linux only.
func setUserTimeout(*net.TCPConn, time.Duration) error {
	return api.ErrNotSupported
}
