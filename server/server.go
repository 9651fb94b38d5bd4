// File: server/server.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-rpc/api"
	"github.com/momentics/hioload-rpc/control"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/momentics/hioload-rpc/server"

// Server accepts raw TCP and WebSocket JSON-RPC clients on one port and
// hands every complete message to a Processor. It is safe for concurrent
// use and may be started again after Stop.
type Server struct {
	cfg            Config
	processor      api.Processor
	policy         api.PermissionPolicy
	log            *slog.Logger
	registerer     prometheus.Registerer
	tracerProvider trace.TracerProvider
	probes         *control.DebugProbes

	metrics *control.Metrics
	tracer  trace.Tracer

	mu   sync.Mutex // serializes Start and Stop
	last *instance  // most recently stopped instance
	inst atomic.Pointer[instance]
}

// instance is the state of one Start..Stop cycle. Only its service loop
// mutates the registry.
type instance struct {
	port      int
	listeners []net.Listener
	registry  registry
	inbox     *inbox
	stop      chan struct{}
	done      chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
	acceptors sync.WaitGroup
	readers   sync.WaitGroup
}

var (
	_ api.Announcer      = (*Server)(nil)
	_ api.TransportLayer = (*Server)(nil)
)

// New builds a stopped Server around processor.
func New(processor api.Processor, opts ...Option) (*Server, error) {
	if processor == nil {
		return nil, fmt.Errorf("nil processor: %w", api.ErrInvalidArgument)
	}
	s := &Server{
		cfg:            *DefaultConfig(),
		processor:      processor,
		policy:         api.AllowAll,
		log:            slog.Default(),
		tracerProvider: otel.GetTracerProvider(),
	}
	for _, o := range opts {
		o(s)
	}
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}
	s.log = s.log.With("component", "jsonrpc-server")
	s.metrics = control.NewMetrics(s.registerer, control.DefaultNamespace)
	s.tracer = s.tracerProvider.Tracer(tracerName)
	if s.probes == nil {
		s.probes = control.NewDebugProbes()
	}
	s.registerProbes()
	return s, nil
}

// Start binds the TCP listeners and launches the service loop. The server
// listens on loopback unless allowNonLocal is set. Port 0 picks a free
// port, see Port.
func (s *Server) Start(port int, allowNonLocal bool) error {
	if port < 0 || port > 0xFFFF {
		return fmt.Errorf("port %d: %w", port, api.ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inst.Load() != nil {
		return api.ErrAlreadyRunning
	}

	lns, err := s.listen(port, allowNonLocal)
	if err != nil {
		return err
	}

	in := &instance{
		port:      lns[0].Addr().(*net.TCPAddr).Port,
		listeners: lns,
		inbox:     newInbox(),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	in.ctx, in.cancel = context.WithCancel(context.Background())

	for _, ln := range lns {
		in.acceptors.Add(1)
		go s.acceptLoop(in, ln)
	}
	go s.serve(in)

	s.inst.Store(in)
	s.log.Info("jsonrpc server started", "port", in.port, "allow_non_local", allowNonLocal, "listeners", len(lns))
	return nil
}

// Stop closes the listeners and every client socket, then lets the
// service loop release them. With wait set it returns only after the loop
// and all I/O goroutines are gone. Stop on a stopped server is a no-op.
func (s *Server) Stop(wait bool) {
	s.mu.Lock()
	in := s.inst.Swap(nil)
	if in == nil {
		last := s.last
		s.mu.Unlock()
		if wait && last != nil {
			<-last.done
		}
		return
	}
	s.last = in

	for _, ln := range in.listeners {
		_ = ln.Close()
	}
	in.registry.each(func(c *Connection) {
		c.abort()
	})
	in.cancel()
	close(in.stop)
	s.mu.Unlock()

	s.log.Info("jsonrpc server stopping", "port", in.port, "wait", wait)
	if wait {
		<-in.done
	}
}

// Running reports whether the server accepts connections.
func (s *Server) Running() bool {
	return s.inst.Load() != nil
}

// Port returns the bound port, or 0 when stopped.
func (s *Server) Port() int {
	if in := s.inst.Load(); in != nil {
		return in.port
	}
	return 0
}

// Addrs returns the addresses of the listening sockets.
func (s *Server) Addrs() []net.Addr {
	in := s.inst.Load()
	if in == nil {
		return nil
	}
	out := make([]net.Addr, 0, len(in.listeners))
	for _, ln := range in.listeners {
		out = append(out, ln.Addr())
	}
	return out
}

// ConnectionCount returns the number of registered connections.
func (s *Server) ConnectionCount() int {
	if in := s.inst.Load(); in != nil {
		return in.registry.len()
	}
	return 0
}

// ConnectionInfo is a point-in-time view of one connection.
type ConnectionInfo struct {
	ID            string `json:"id"`
	RemoteAddr    string `json:"remote_addr"`
	Protocol      string `json:"protocol"`
	Path          string `json:"path,omitempty"`
	Permissions   string `json:"permissions"`
	Announcements string `json:"announcements"`
}

// Connections lists the registered connections in accept order.
func (s *Server) Connections() []ConnectionInfo {
	in := s.inst.Load()
	if in == nil {
		return nil
	}
	conns := in.registry.snapshot()
	out := make([]ConnectionInfo, 0, len(conns))
	for _, c := range conns {
		out = append(out, ConnectionInfo{
			ID:            c.ID(),
			RemoteAddr:    c.RemoteAddr().String(),
			Protocol:      c.Protocol().String(),
			Path:          c.Path(),
			Permissions:   c.PermissionFlags().String(),
			Announcements: c.AnnouncementFlags().String(),
		})
	}
	return out
}

// DebugProbes returns the probe registry the server publishes into.
func (s *Server) DebugProbes() *control.DebugProbes {
	return s.probes
}

func (s *Server) registerProbes() {
	s.probes.RegisterProbe("server.running", func() any {
		return s.Running()
	})
	s.probes.RegisterProbe("server.port", func() any {
		return s.Port()
	})
	s.probes.RegisterProbe("server.connections", func() any {
		return s.Connections()
	})
	s.probes.RegisterProbe("server.inbox", func() any {
		if in := s.inst.Load(); in != nil {
			return in.inbox.len()
		}
		return 0
	})
}
