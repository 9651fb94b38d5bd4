// File: server/options.go
// Package server defines functional options for the Server.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"log/slog"

	"github.com/momentics/hioload-rpc/api"
	"github.com/momentics/hioload-rpc/control"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

// Option customizes server initialization.
type Option func(*Server)

// WithConfig replaces the default configuration. The value is copied.
func WithConfig(cfg *Config) Option {
	return func(s *Server) {
		if cfg != nil {
			s.cfg = *cfg
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithPermissionPolicy sets the source of per-connection permissions.
func WithPermissionPolicy(p api.PermissionPolicy) Option {
	return func(s *Server) {
		if p != nil {
			s.policy = p
		}
	}
}

// WithRegisterer registers the server metrics with reg instead of a
// private registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *Server) {
		s.registerer = reg
	}
}

// WithTracerProvider sets the provider used for dispatch spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Server) {
		if tp != nil {
			s.tracerProvider = tp
		}
	}
}

// WithDebugProbes publishes server state through an existing probe registry.
func WithDebugProbes(dp *control.DebugProbes) Option {
	return func(s *Server) {
		if dp != nil {
			s.probes = dp
		}
	}
}
