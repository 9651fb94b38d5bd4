// File: api/transport.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Request/response transport contract consumed by JSON-RPC processors.

package api

// Capability is a bitset describing what a TransportLayer can do.
type Capability int

const (
	// CapabilityResponse means replies are written back to the caller.
	CapabilityResponse Capability = 1 << iota
	// CapabilityAnnouncing means the transport pushes notifications.
	CapabilityAnnouncing
	// CapabilityFileDownloadRedirect means files are served through a URL.
	CapabilityFileDownloadRedirect
	// CapabilityFileDownloadDirect means file bytes travel inline.
	CapabilityFileDownloadDirect
)

// Has reports whether all bits of o are set in c.
func (c Capability) Has(o Capability) bool {
	return c&o == o
}

// TransportLayer is the transport seen by a Processor while it handles a call.
type TransportLayer interface {
	// PrepareDownload resolves path into download details and the protocol
	// the client should use to fetch it. ok is false when unsupported.
	PrepareDownload(path string) (details map[string]any, protocol string, ok bool)

	// Download returns the file contents inline when the transport supports it.
	Download(path string) ([]byte, bool)

	// GetCapabilities reports the Capability bits of the transport.
	GetCapabilities() Capability
}
