// File: server/loop.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Service loop. Acceptors hand sockets to the loop goroutine, which owns
// the registry. Each connection's reader goroutine frames its own bytes
// and runs the processor, so a peer stuck in Send only stalls itself.

package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/momentics/hioload-rpc/api"
	"github.com/momentics/hioload-rpc/protocol"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	acceptBackoffMin = 5 * time.Millisecond
	acceptBackoffMax = time.Second
)

func (s *Server) serve(in *instance) {
	for {
		select {
		case <-in.stop:
			s.teardown(in)
			return
		case <-in.inbox.ready():
		}
		for {
			select {
			case <-in.stop:
				s.teardown(in)
				return
			default:
			}
			ev, ok := in.inbox.pop()
			if !ok {
				break
			}
			s.handle(in, ev)
		}
	}
}

func (s *Server) handle(in *instance, ev event) {
	switch ev.kind {
	case eventAccept:
		perms := s.policy.Permissions(ev.netConn.RemoteAddr())
		c := newConnection(ev.netConn, &s.cfg, perms, s.log)
		in.registry.add(c)
		s.metrics.AcceptedConnections.Inc()
		s.metrics.ActiveConnections.Inc()
		c.log.Debug("connection accepted", "permissions", perms.String())
		in.readers.Add(1)
		go s.readLoop(in, c)

	case eventAcceptError:
		s.log.Warn("accept failed", "error", ev.err)

	case eventClosed:
		s.drop(in, ev.conn, ev.reason)
	}
}

// dispatch runs the processor on one message outside every connection
// lock and sends back a non-empty reply.
func (s *Server) dispatch(ctx context.Context, c *Connection, proto Protocol, msg []byte) {
	ctx, span := s.tracer.Start(ctx, "jsonrpc.MethodCall",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("rpc.system", "jsonrpc"),
			attribute.String("hioload.protocol", proto.String()),
			attribute.String("hioload.connection_id", c.ID()),
			attribute.Int("hioload.request_size", len(msg)),
		))
	defer span.End()
	s.metrics.Messages.WithLabelValues(proto.String(), "in").Inc()

	start := time.Now()
	reply, err := s.call(ctx, c, msg)
	s.metrics.DispatchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.log.Error("processor failed", "error", err)
		return
	}
	if len(reply) == 0 {
		return
	}
	if err := c.Send(reply); err != nil {
		span.RecordError(err)
		c.log.Debug("reply not delivered", "error", err)
		return
	}
	span.SetAttributes(attribute.Int("hioload.reply_size", len(reply)))
	s.metrics.Messages.WithLabelValues(proto.String(), "out").Inc()
}

func (s *Server) call(ctx context.Context, c *Connection, msg []byte) (reply []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("processor panic: %v", r)
		}
	}()
	return s.processor.MethodCall(ctx, msg, s, c), nil
}

// drop unregisters c. Repeated drops are no-ops.
func (s *Server) drop(in *instance, c *Connection, reason string) {
	if !in.registry.remove(c) {
		return
	}
	s.removed(c, reason)
}

func (s *Server) removed(c *Connection, reason string) {
	s.metrics.ActiveConnections.Dec()
	s.metrics.Disconnects.WithLabelValues(reason).Inc()
	c.log.Debug("connection removed", "reason", reason)
}

// teardown runs on the loop goroutine after Stop closed the listeners and
// client sockets. Sockets accepted after Stop's walk are closed here.
func (s *Server) teardown(in *instance) {
	in.acceptors.Wait()
	for _, c := range in.registry.removeAll() {
		c.abort()
		s.removed(c, "server_stopped")
	}
	in.readers.Wait()
	for {
		ev, ok := in.inbox.pop()
		if !ok {
			break
		}
		if ev.kind == eventAccept {
			_ = ev.netConn.Close()
		}
	}
	close(in.done)
	s.log.Info("jsonrpc server stopped", "port", in.port)
}

func (s *Server) acceptLoop(in *instance, ln net.Listener) {
	defer in.acceptors.Done()
	var delay time.Duration
	for {
		nc, err := ln.Accept()
		if err != nil {
			select {
			case <-in.stop:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			in.inbox.push(event{kind: eventAcceptError, err: err})
			delay = max(acceptBackoffMin, min(2*delay, acceptBackoffMax))
			select {
			case <-time.After(delay):
			case <-in.stop:
				return
			}
			continue
		}
		delay = 0
		in.inbox.push(event{kind: eventAccept, netConn: nc})
	}
}

// readLoop serves one connection until it fails, closes it and asks the
// loop to unregister it. Only this goroutine feeds the connection's framer.
func (s *Server) readLoop(in *instance, c *Connection) {
	defer in.readers.Done()
	reason := s.serveConn(in.ctx, c)
	c.Disconnect()
	in.inbox.push(event{kind: eventClosed, conn: c, reason: reason})
}

// serveConn returns the reason the connection ended.
func (s *Server) serveConn(ctx context.Context, c *Connection) string {
	buf := make([]byte, s.cfg.ReadBufferSize)
	detecting := s.cfg.DetectTimeout > 0
	for {
		var deadline time.Time
		switch {
		case detecting:
			deadline = time.Now().Add(s.cfg.DetectTimeout)
		case s.cfg.IdleTimeout > 0:
			deadline = time.Now().Add(s.cfg.IdleTimeout)
		}
		_ = c.conn.SetReadDeadline(deadline)

		n, err := c.conn.Read(buf)
		if n > 0 {
			detecting = false
			if reason, ok := s.consume(ctx, c, buf[:n]); !ok {
				return reason
			}
		}
		if err == nil {
			continue
		}
		if detecting && errors.Is(err, os.ErrDeadlineExceeded) {
			detecting = false
			if c.assumeRaw() {
				c.log.Debug("silent connection treated as raw")
			}
			continue
		}
		return closeReason(err)
	}
}

// consume frames one chunk and dispatches the messages it completes, in
// order. It reports false with a reason when the connection must close.
func (s *Server) consume(ctx context.Context, c *Connection, data []byte) (string, bool) {
	wasNew := c.IsNew()
	msgs, err := c.PushBuffer(data)
	proto := c.Protocol()
	if wasNew && proto == ProtocolWebSocket {
		s.metrics.Upgrades.Inc()
	}
	for _, msg := range msgs {
		s.dispatch(ctx, c, proto, msg)
	}
	if err != nil {
		return disconnectReason(err), false
	}
	return "", true
}

func disconnectReason(err error) string {
	var perr *protocol.ProtocolError
	switch {
	case errors.Is(err, api.ErrConnectionClosed):
		return "disconnected"
	case errors.Is(err, protocol.ErrCloseReceived):
		return "peer_close"
	case errors.Is(err, protocol.ErrMessageTooLarge), errors.Is(err, protocol.ErrFrameTooLarge):
		return "message_too_large"
	case errors.Is(err, errHandshakeRejected):
		return "handshake_rejected"
	case errors.As(err, &perr):
		return "protocol_error"
	}
	return "error"
}

func closeReason(err error) string {
	switch {
	case errors.Is(err, io.EOF):
		return "peer_closed"
	case errors.Is(err, os.ErrDeadlineExceeded):
		return "idle_timeout"
	case errors.Is(err, net.ErrClosed):
		return "disconnected"
	}
	return "read_error"
}
