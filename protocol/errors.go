// Package protocol
// Author: momentics <momentics@gmail.com>
//
// Errors reported by the framers and the handshake codec.

package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrMessageTooLarge           = errors.New("message exceeds maximum allowed size")
	ErrFrameTooLarge             = errors.New("frame payload exceeds maximum allowed size")
	ErrReservedBits              = errors.New("reserved bits set")
	ErrInvalidOpcode             = errors.New("invalid opcode")
	ErrUnmaskedFrame             = errors.New("client frame is not masked")
	ErrFragmentedControlFrame    = errors.New("fragmented control frame")
	ErrControlFramePayloadTooBig = errors.New("control frame payload too big")
	ErrUnexpectedContinuation    = errors.New("unexpected continuation frame")
	ErrExpectedContinuation      = errors.New("expected continuation frame")
	ErrInvalidUTF8               = errors.New("text message is not valid UTF-8")
	ErrInvalidClosePayload       = errors.New("invalid close frame payload")
	ErrCloseReceived             = errors.New("close frame received")
)

// ProtocolError is a WebSocket framing violation together with the close
// code the peer should be told about.
type ProtocolError struct {
	Code int
	Err  error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("websocket: %v (close %d)", e.Err, e.Code)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

func protocolError(code int, err error) error {
	return &ProtocolError{Code: code, Err: err}
}
