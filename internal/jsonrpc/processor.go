// File: internal/jsonrpc/processor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Minimal JSON-RPC 2.0 method table implementing api.Processor.

package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"

	"github.com/momentics/hioload-rpc/api"
)

// Call carries one decoded request to a Handler.
type Call struct {
	Method    string
	Params    json.RawMessage
	Transport api.TransportLayer
	Client    api.Client
}

// Handler executes a method and returns its result.
type Handler func(ctx context.Context, call *Call) (any, *Error)

type method struct {
	permission api.PermissionFlags
	fn         Handler
}

// Processor dispatches requests by method name. Registered methods may be
// called concurrently with Register.
type Processor struct {
	mu        sync.RWMutex
	methods   map[string]method
	announcer api.Announcer
	version   Version
	log       *slog.Logger
}

var _ api.Processor = (*Processor)(nil)

// Option customizes a Processor.
type Option func(*Processor)

// WithAnnouncer sets the target of JSONRPC.NotifyAll. Without it the
// transport is used when it implements api.Announcer.
func WithAnnouncer(a api.Announcer) Option {
	return func(p *Processor) { p.announcer = a }
}

// WithVersion overrides the version reported by JSONRPC.Version.
func WithVersion(v Version) Option {
	return func(p *Processor) { p.version = v }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.log = l
		}
	}
}

// NewProcessor returns a processor with the JSONRPC namespace registered.
func NewProcessor(opts ...Option) *Processor {
	p := &Processor{
		methods: make(map[string]method),
		version: DefaultVersion,
		log:     slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	p.registerBuiltins()
	return p
}

// Register adds or replaces a method. Callers lacking permission are
// refused before fn runs.
func (p *Processor) Register(name string, permission api.PermissionFlags, fn Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.methods[name] = method{permission: permission, fn: fn}
}

// Methods lists the registered method names in sorted order.
func (p *Processor) Methods() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.methods))
	for name := range p.methods {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      json.RawMessage `json:"id"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`
}

var nullID = json.RawMessage("null")

// MethodCall handles a single request or a batch. Notifications produce
// no output, so a batch made only of notifications returns nil.
func (p *Processor) MethodCall(ctx context.Context, raw []byte, transport api.TransportLayer, client api.Client) []byte {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		return p.batch(ctx, raw, transport, client)
	}
	resp := p.single(ctx, raw, transport, client)
	if resp == nil {
		return nil
	}
	return p.encode(resp)
}

func (p *Processor) batch(ctx context.Context, raw []byte, transport api.TransportLayer, client api.Client) []byte {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return p.encode(&response{Error: newError(CodeParseError, nil), ID: nullID})
	}
	if len(items) == 0 {
		return p.encode(&response{Error: newError(CodeInvalidRequest, nil), ID: nullID})
	}
	out := make([]*response, 0, len(items))
	for _, item := range items {
		if resp := p.single(ctx, item, transport, client); resp != nil {
			out = append(out, resp)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return p.encode(out)
}

func (p *Processor) single(ctx context.Context, raw []byte, transport api.TransportLayer, client api.Client) *response {
	var req request
	if err := json.Unmarshal(raw, &req); err != nil {
		return &response{Error: newError(CodeParseError, nil), ID: nullID}
	}
	id := req.ID
	notification := id == nil
	if notification {
		id = nullID
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		return &response{Error: newError(CodeInvalidRequest, nil), ID: id}
	}

	p.mu.RLock()
	m, ok := p.methods[req.Method]
	p.mu.RUnlock()

	var (
		result any
		rerr   *Error
	)
	switch {
	case !ok:
		rerr = newError(CodeMethodNotFound, req.Method)
	case !client.PermissionFlags().Has(m.permission):
		rerr = newError(CodeBadPermission, m.permission.String())
	default:
		result, rerr = m.fn(ctx, &Call{Method: req.Method, Params: req.Params, Transport: transport, Client: client})
	}

	if notification {
		if rerr != nil {
			p.log.Debug("notification failed", "method", req.Method, "client", client.ID(), "error", rerr)
		}
		return nil
	}
	if rerr != nil {
		return &response{Error: rerr, ID: id}
	}
	if result == nil {
		result = "OK"
	}
	return &response{Result: result, ID: id}
}

func (p *Processor) encode(v any) []byte {
	switch r := v.(type) {
	case *response:
		r.JSONRPC = "2.0"
	case []*response:
		for _, item := range r {
			item.JSONRPC = "2.0"
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		p.log.Error("encode response", "error", err)
		b, _ = json.Marshal(&response{JSONRPC: "2.0", Error: newError(CodeInternalError, nil), ID: nullID})
	}
	return b
}
