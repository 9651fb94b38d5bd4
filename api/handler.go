// File: api/handler.go
// Package api defines the Processor contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import "context"

// Processor executes one JSON-RPC message and returns the encoded reply.
// A nil or empty reply means nothing is written back (notifications).
// Calls for different clients run concurrently; calls for one client
// are sequential.
type Processor interface {
	MethodCall(ctx context.Context, request []byte, transport TransportLayer, client Client) []byte
}

// ProcessorFunc adapts an ordinary function to the Processor interface.
type ProcessorFunc func(ctx context.Context, request []byte, transport TransportLayer, client Client) []byte

// MethodCall calls f(ctx, request, transport, client).
func (f ProcessorFunc) MethodCall(ctx context.Context, request []byte, transport TransportLayer, client Client) []byte {
	return f(ctx, request, transport, client)
}
