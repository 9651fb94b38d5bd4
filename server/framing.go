// File: server/framing.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Framing strategies of a Connection: protocol detection, raw JSON
// scanning and WebSocket message assembly.

package server

import (
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/momentics/hioload-rpc/protocol"
)

var (
	errUndecided = errors.New("connection protocol not yet detected")

	// errHandshakeRejected marks a connection that sent an HTTP request
	// which is not a valid WebSocket upgrade.
	errHandshakeRejected = errors.New("websocket handshake rejected")
)

// detectLocked buffers the first bytes until they either start an HTTP
// request line or cannot. Raw connections get every pending byte.
func (c *Connection) detectLocked(data []byte) ([][]byte, error) {
	c.pending = append(c.pending, data...)

	switch protocol.SniffUpgrade(c.pending) {
	case protocol.SniffNeedMore:
		return nil, nil
	case protocol.SniffRaw:
		pending := c.pending
		c.pending = nil
		c.becomeRawLocked()
		return c.scanner.Feed(pending)
	}

	n := protocol.HeaderBlockLen(c.pending)
	if n < 0 {
		if len(c.pending) > protocol.MaxHandshakeHeadersSize {
			return nil, c.rejectLocked(http.StatusRequestHeaderFieldsTooLarge, protocol.ErrHandshakeTooLarge)
		}
		return nil, nil
	}

	req, hdr, err := protocol.ParseUpgradeRequest(c.pending[:n])
	if err != nil {
		return nil, c.rejectLocked(http.StatusBadRequest, err)
	}
	if err := protocol.WriteHandshakeResponse(lockedWriter{c}, hdr); err != nil {
		return nil, fmt.Errorf("websocket handshake: %w", err)
	}

	rest := c.pending[n:]
	c.pending = nil
	c.protocol = ProtocolWebSocket
	c.path = req.URL.Path
	c.assembler = protocol.NewMessageAssembler(c.frameLimit(), true)
	c.log.Debug("connection upgraded to websocket", "path", c.path)
	if len(rest) == 0 {
		return nil, nil
	}
	return c.feedWebSocketLocked(rest)
}

func (c *Connection) rejectLocked(status int, reason error) error {
	_ = protocol.WriteHandshakeError(lockedWriter{c}, status, reason)
	c.pending = nil
	return fmt.Errorf("%w: %w", errHandshakeRejected, reason)
}

// assumeRaw settles a connection that stayed silent as raw JSON-RPC, so
// listen-only clients can receive announcements.
func (c *Connection) assumeRaw() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.protocol != ProtocolUnknown || len(c.pending) > 0 || c.closed {
		return false
	}
	c.becomeRawLocked()
	return true
}

// frameLimit maps MaxMessageSize to the assembler limit. Zero means no
// cap, which the assembler would otherwise read as its default.
func (c *Connection) frameLimit() int64 {
	if c.maxMessage == 0 {
		return math.MaxInt64
	}
	return int64(c.maxMessage)
}

func (c *Connection) becomeRawLocked() {
	c.protocol = ProtocolRaw
	c.scanner = protocol.NewJSONScanner(c.maxMessage)
}

// feedWebSocketLocked answers pings in place. A close frame or a framing
// violation records the close reply; it is written when the connection
// is released, after the messages that preceded it were answered.
func (c *Connection) feedWebSocketLocked(data []byte) ([][]byte, error) {
	var msgs [][]byte
	err := c.assembler.Feed(data,
		func(_ byte, payload []byte) {
			msgs = append(msgs, payload)
		},
		func(f *protocol.WSFrame) error {
			switch f.Opcode {
			case protocol.OpcodePing:
				return c.writeLocked(protocol.EncodeMessage(protocol.OpcodePong, f.Payload))
			case protocol.OpcodeClose:
				code, _, perr := protocol.ParseClosePayload(f.Payload)
				if perr != nil {
					code = protocol.CloseProtocolError
				}
				c.closing = true
				c.closeReply = protocol.ClosePayload(code, "")
			}
			return nil
		})
	if err == nil || c.closing {
		return msgs, err
	}

	var perr *protocol.ProtocolError
	if errors.As(err, &perr) {
		c.closing = true
		c.closeReply = protocol.ClosePayload(perr.Code, "")
	}
	return msgs, err
}
