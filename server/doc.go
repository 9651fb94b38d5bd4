// File: server/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package server is the TCP transport of the JSON-RPC interface.
//
// One listening port serves two kinds of clients. Raw clients write JSON
// objects back to back and are framed by brace counting. WebSocket
// clients open with an HTTP upgrade request, after which the same
// connection carries RFC 6455 frames. Both are detected per connection
// from the first bytes received.
//
// A single service loop owns the connection registry. Every connection
// has its own reader goroutine that frames its bytes and runs the
// processor, so requests of one connection are answered in order and a
// peer that stops reading holds up nobody else. Announce may be called
// from any goroutine and fans a notification out to the subscribed
// connections.
package server
