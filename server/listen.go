// File: server/listen.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"golang.org/x/net/netutil"
)

// listen binds the IPv4 socket and, when the host supports it, an IPv6
// socket on the same port. Only the IPv4 bind is required.
func (s *Server) listen(port int, allowNonLocal bool) ([]net.Listener, error) {
	host4, host6 := "127.0.0.1", "::1"
	if allowNonLocal {
		host4, host6 = "0.0.0.0", "::"
	}
	var lc net.ListenConfig
	ctx := context.Background()

	ln4, err := lc.Listen(ctx, "tcp4", net.JoinHostPort(host4, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("listen tcp4 port %d: %w", port, err)
	}
	lns := []net.Listener{ln4}

	bound := ln4.Addr().(*net.TCPAddr).Port
	ln6, err := lc.Listen(ctx, "tcp6", net.JoinHostPort(host6, strconv.Itoa(bound)))
	if err != nil {
		s.log.Debug("ipv6 listener unavailable", "port", bound, "error", err)
	} else {
		lns = append(lns, ln6)
	}

	if s.cfg.UserTimeout > 0 {
		for i, ln := range lns {
			lns[i] = &tunedListener{Listener: ln, userTimeout: s.cfg.UserTimeout, log: s.log}
		}
	}
	if s.cfg.MaxConnections > 0 {
		for i, ln := range lns {
			lns[i] = netutil.LimitListener(ln, s.cfg.MaxConnections)
		}
	}
	return lns, nil
}

// tunedListener applies per-socket options to accepted connections. It
// sits below LimitListener, which hides the *net.TCPConn.
type tunedListener struct {
	net.Listener
	userTimeout time.Duration
	log         *slog.Logger
}

func (l *tunedListener) Accept() (net.Conn, error) {
	nc, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	if tc, ok := nc.(*net.TCPConn); ok {
		if err := setUserTimeout(tc, l.userTimeout); err != nil {
			l.log.Debug("user timeout not applied", "remote", nc.RemoteAddr().String(), "error", err)
		}
	}
	return nc, nil
}
