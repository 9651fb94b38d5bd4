// File: server/announce.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import "github.com/momentics/hioload-rpc/api"

// Announce broadcasts a notification to every connection subscribed to
// flag that holds PermissionReadData. A stopped server ignores it. A
// failed delivery affects only that connection.
func (s *Server) Announce(flag api.AnnouncementFlags, sender, message string, data any) {
	in := s.inst.Load()
	if in == nil {
		return
	}
	payload, err := api.EncodeAnnouncement(flag, sender, message, data)
	if err != nil {
		s.log.Warn("announcement dropped", "flag", flag.String(), "message", message, "error", err)
		return
	}
	s.metrics.Announcements.Inc()

	// Sends happen outside the registry lock so a slow peer cannot hold
	// back the service loop.
	for _, c := range in.registry.snapshot() {
		if !c.wants(flag) {
			continue
		}
		if err := c.Send(payload); err != nil {
			s.metrics.AnnouncementDeliveries.WithLabelValues("failed").Inc()
			c.log.Debug("announcement not delivered", "method", flag.String()+"."+message, "error", err)
			continue
		}
		s.metrics.AnnouncementDeliveries.WithLabelValues("delivered").Inc()
	}
}
