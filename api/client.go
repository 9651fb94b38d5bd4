// File: api/client.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Per-peer view handed to processors together with each request.

package api

import "net"

// Client exposes the authorization and subscription state of one peer.
type Client interface {
	// ID returns a process-unique connection identifier.
	ID() string

	// RemoteAddr returns the peer address.
	RemoteAddr() net.Addr

	// PermissionFlags returns the operations the peer may perform.
	PermissionFlags() PermissionFlags

	// AnnouncementFlags returns the notification categories the peer receives.
	AnnouncementFlags() AnnouncementFlags

	// SetAnnouncementFlags replaces the subscription set. It returns false
	// when the connection is already closed.
	SetAnnouncementFlags(flags AnnouncementFlags) bool
}
