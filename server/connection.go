// File: server/connection.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Connection is one accepted peer. Its framing strategy starts undecided
// and is fixed by the first bytes received: an HTTP upgrade request
// promotes it to WebSocket in place, anything else makes it raw JSON-RPC.

package server

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/momentics/hioload-rpc/api"
	"github.com/momentics/hioload-rpc/protocol"
)

// Protocol identifies the framing of a connection.
type Protocol int

const (
	ProtocolUnknown Protocol = iota
	ProtocolRaw
	ProtocolWebSocket
)

func (p Protocol) String() string {
	switch p {
	case ProtocolRaw:
		return "raw"
	case ProtocolWebSocket:
		return "websocket"
	}
	return "unknown"
}

// Connection implements api.Client. Framing state, subscription flags and
// socket writes are guarded by mu; the processor never runs under it.
type Connection struct {
	id           string
	conn         net.Conn
	remote       net.Addr
	permissions  api.PermissionFlags // fixed at accept time
	log          *slog.Logger
	writeTimeout time.Duration
	maxMessage   int

	mu            sync.Mutex
	protocol      Protocol
	pending       []byte
	scanner       *protocol.JSONScanner
	assembler     *protocol.MessageAssembler
	path          string
	announcements api.AnnouncementFlags
	closeReply    []byte
	closing       bool
	closed        bool
}

var _ api.Client = (*Connection)(nil)

func newConnection(nc net.Conn, cfg *Config, perms api.PermissionFlags, log *slog.Logger) *Connection {
	id := uuid.NewString()
	return &Connection{
		id:            id,
		conn:          nc,
		remote:        nc.RemoteAddr(),
		permissions:   perms,
		log:           log.With("conn", id, "remote", nc.RemoteAddr().String()),
		writeTimeout:  cfg.WriteTimeout,
		maxMessage:    cfg.MaxMessageSize,
		announcements: cfg.DefaultAnnouncementFlags,
	}
}

// ID returns the connection UUID.
func (c *Connection) ID() string { return c.id }

// RemoteAddr returns the peer address captured at accept time.
func (c *Connection) RemoteAddr() net.Addr { return c.remote }

// PermissionFlags returns the permissions granted at accept time.
func (c *Connection) PermissionFlags() api.PermissionFlags { return c.permissions }

// AnnouncementFlags returns the current subscription set.
func (c *Connection) AnnouncementFlags() api.AnnouncementFlags {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.announcements
}

// SetAnnouncementFlags replaces the subscription set.
func (c *Connection) SetAnnouncementFlags(flags api.AnnouncementFlags) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.announcements = flags
	return true
}

// IsNew reports whether no framing has been chosen yet.
func (c *Connection) IsNew() bool {
	return c.Protocol() == ProtocolUnknown
}

// Protocol returns the current framing.
func (c *Connection) Protocol() Protocol {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.protocol
}

// Path returns the request path of a WebSocket connection.
func (c *Connection) Path() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.path
}

// Send writes one JSON-RPC message in the connection's framing. A write
// failure closes the socket, since a partial frame cannot be recovered.
// Replies are still accepted between a peer's close frame and Disconnect.
func (c *Connection) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return api.ErrConnectionClosed
	}
	switch c.protocol {
	case ProtocolRaw:
		return c.writeLocked(data)
	case ProtocolWebSocket:
		return c.writeLocked(protocol.EncodeMessage(protocol.OpcodeText, data))
	}
	return errUndecided
}

// PushBuffer feeds bytes read from the socket to the framer and returns
// the complete messages they finish, in arrival order. Messages completed
// before a framing error are returned along with it.
func (c *Connection) PushBuffer(data []byte) ([][]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.closing {
		return nil, api.ErrConnectionClosed
	}
	switch c.protocol {
	case ProtocolRaw:
		return c.scanner.Feed(data)
	case ProtocolWebSocket:
		return c.feedWebSocketLocked(data)
	}
	return c.detectLocked(data)
}

// Disconnect closes the connection. WebSocket peers get a close frame
// first: the echoed or violation code after a peer close or framing
// error, 1001 otherwise. The reader then fails and the connection is
// unregistered.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Connection) closeLocked() {
	if c.closed {
		return
	}
	if c.protocol == ProtocolWebSocket {
		reply := c.closeReply
		if !c.closing {
			reply = protocol.ClosePayload(protocol.CloseGoingAway, "")
		}
		_ = c.writeLocked(protocol.EncodeMessage(protocol.OpcodeClose, reply))
	}
	c.closed = true
	_ = c.conn.Close()
}

// abort closes the socket without taking the lock, waking any goroutine
// blocked in I/O on it.
func (c *Connection) abort() {
	_ = c.conn.Close()
}

// wants reports whether an announcement in category flag goes to c.
func (c *Connection) wants(flag api.AnnouncementFlags) bool {
	if !c.permissions.Has(api.PermissionReadData) {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && !c.closing && c.protocol != ProtocolUnknown && c.announcements&flag != 0
}

func (c *Connection) writeLocked(b []byte) error {
	if c.closed {
		return api.ErrConnectionClosed
	}
	if c.writeTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	if _, err := c.conn.Write(b); err != nil {
		c.closed = true
		_ = c.conn.Close()
		return fmt.Errorf("write to %s: %w", c.remote, err)
	}
	return nil
}

// lockedWriter adapts writeLocked to io.Writer for the handshake helpers.
type lockedWriter struct{ c *Connection }

func (w lockedWriter) Write(p []byte) (int, error) {
	if err := w.c.writeLocked(p); err != nil {
		return 0, err
	}
	return len(p), nil
}
