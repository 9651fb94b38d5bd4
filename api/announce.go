// File: api/announce.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Announcement categories, the subscriber contract and the JSON-RPC
// notification envelope pushed to subscribed clients.

package api

import (
	"encoding/json"
	"fmt"
	"math/bits"
)

// AnnouncementFlags is a bitset of notification categories.
type AnnouncementFlags uint32

const (
	AnnouncePlayer AnnouncementFlags = 1 << iota
	AnnounceGUI
	AnnounceSystem
	AnnounceVideoLibrary
	AnnounceAudioLibrary
	AnnounceApplication
	AnnounceInput
	AnnouncePVR
	AnnounceOther
)

// AnnounceAll subscribes to every category.
const AnnounceAll = AnnouncePlayer | AnnounceGUI | AnnounceSystem | AnnounceVideoLibrary |
	AnnounceAudioLibrary | AnnounceApplication | AnnounceInput | AnnouncePVR | AnnounceOther

var announcementNames = map[AnnouncementFlags]string{
	AnnouncePlayer:       "Player",
	AnnounceGUI:          "GUI",
	AnnounceSystem:       "System",
	AnnounceVideoLibrary: "VideoLibrary",
	AnnounceAudioLibrary: "AudioLibrary",
	AnnounceApplication:  "Application",
	AnnounceInput:        "Input",
	AnnouncePVR:          "PVR",
	AnnounceOther:        "Other",
}

// String returns the category name of a single flag. Combined or unknown
// values are rendered in hex.
func (f AnnouncementFlags) String() string {
	if name, ok := announcementNames[f]; ok {
		return name
	}
	return fmt.Sprintf("0x%x", uint32(f))
}

// Single reports whether exactly one bit is set.
func (f AnnouncementFlags) Single() bool {
	return bits.OnesCount32(uint32(f)) == 1
}

// ParseAnnouncementFlag maps a category name back to its flag.
func ParseAnnouncementFlag(name string) (AnnouncementFlags, bool) {
	for flag, n := range announcementNames {
		if n == name {
			return flag, true
		}
	}
	return 0, false
}

// Announcer receives events from an event bus. Implementations must be safe
// for concurrent use.
type Announcer interface {
	Announce(flag AnnouncementFlags, sender, message string, data any)
}

type announcementParams struct {
	Sender string `json:"sender"`
	Data   any    `json:"data"`
}

type announcementEnvelope struct {
	JSONRPC string             `json:"jsonrpc"`
	Method  string             `json:"method"`
	Params  announcementParams `json:"params"`
}

// EncodeAnnouncement renders an event as a JSON-RPC 2.0 notification whose
// method is "<Category>.<message>".
func EncodeAnnouncement(flag AnnouncementFlags, sender, message string, data any) ([]byte, error) {
	if !flag.Single() {
		return nil, fmt.Errorf("announcement flag %s: %w", flag, ErrInvalidArgument)
	}
	b, err := json.Marshal(announcementEnvelope{
		JSONRPC: "2.0",
		Method:  flag.String() + "." + message,
		Params:  announcementParams{Sender: sender, Data: data},
	})
	if err != nil {
		return nil, fmt.Errorf("encode announcement %s.%s: %w", flag, message, err)
	}
	return b, nil
}
