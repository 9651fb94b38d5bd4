// File: server/transport.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import "github.com/momentics/hioload-rpc/api"

// PrepareDownload is not supported over socket transports.
func (s *Server) PrepareDownload(string) (map[string]any, string, bool) {
	return nil, "", false
}

// Download is not supported over socket transports.
func (s *Server) Download(string) ([]byte, bool) {
	return nil, false
}

// GetCapabilities reports that replies and announcements are delivered.
func (s *Server) GetCapabilities() api.Capability {
	return api.CapabilityResponse | api.CapabilityAnnouncing
}
