// File: server/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"fmt"
	"time"

	"github.com/momentics/hioload-rpc/api"
	"github.com/momentics/hioload-rpc/protocol"
)

// Config holds the tunables of a Server. Port and bind scope are passed to
// Start instead, so one Config can serve restarts on different ports.
type Config struct {
	// ReadBufferSize is the largest chunk handed to the framers per read.
	ReadBufferSize int `yaml:"read_buffer_size" env:"READ_BUFFER_SIZE"`

	// MaxMessageSize caps a single JSON-RPC message, raw or WebSocket.
	// A peer exceeding it is disconnected. Zero disables the cap for both
	// framings.
	MaxMessageSize int `yaml:"max_message_size" env:"MAX_MESSAGE_SIZE"`

	// DetectTimeout is how long a new, silent connection stays undecided
	// before it is treated as raw JSON-RPC. Zero waits for the first bytes.
	DetectTimeout time.Duration `yaml:"detect_timeout" env:"DETECT_TIMEOUT"`

	// IdleTimeout drops connections that send nothing for this long.
	// Zero keeps idle connections forever.
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT"`

	// WriteTimeout bounds every socket write. Zero blocks as long as the
	// kernel buffers are full.
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`

	// UserTimeout drops a peer whose socket holds unacknowledged data for
	// this long, which also fails a Send blocked on it (TCP_USER_TIMEOUT,
	// Linux only). Zero keeps the kernel default.
	UserTimeout time.Duration `yaml:"user_timeout" env:"USER_TIMEOUT"`

	// MaxConnections limits concurrently accepted connections per listening
	// socket. Zero is unlimited.
	MaxConnections int `yaml:"max_connections" env:"MAX_CONNECTIONS"`

	// DefaultAnnouncementFlags is the subscription set of new connections.
	DefaultAnnouncementFlags api.AnnouncementFlags `yaml:"announcement_flags" env:"ANNOUNCEMENT_FLAGS"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ReadBufferSize:           1024,
		MaxMessageSize:           protocol.MaxFramePayload,
		DetectTimeout:            time.Second,
		IdleTimeout:              0,
		WriteTimeout:             10 * time.Second,
		MaxConnections:           0,
		DefaultAnnouncementFlags: api.AnnounceAll,
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case c.ReadBufferSize <= 0:
		return fmt.Errorf("read_buffer_size %d: %w", c.ReadBufferSize, api.ErrInvalidArgument)
	case c.MaxMessageSize < 0:
		return fmt.Errorf("max_message_size %d: %w", c.MaxMessageSize, api.ErrInvalidArgument)
	case c.DetectTimeout < 0, c.IdleTimeout < 0, c.WriteTimeout < 0, c.UserTimeout < 0:
		return fmt.Errorf("timeouts must not be negative: %w", api.ErrInvalidArgument)
	case c.MaxConnections < 0:
		return fmt.Errorf("max_connections %d: %w", c.MaxConnections, api.ErrInvalidArgument)
	case c.DefaultAnnouncementFlags&^api.AnnounceAll != 0:
		return fmt.Errorf("announcement_flags 0x%x: %w", uint32(c.DefaultAnnouncementFlags), api.ErrInvalidArgument)
	}
	return nil
}
