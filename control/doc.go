// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics and debug introspection layer for the JSON-RPC transport.
//
// Provides concurrent-safe primitives including:
//   - Prometheus collectors for connections, messages and announcements
//   - State export, debug hooks, and probe registration
package control
