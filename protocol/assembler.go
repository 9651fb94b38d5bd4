// File: protocol/assembler.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// MessageAssembler turns an arbitrarily chunked WebSocket byte stream into
// complete messages, joining continuation frames and surfacing control
// frames to the caller.

package protocol

import "unicode/utf8"

// MessageAssembler is not safe for concurrent use; callers serialize Feed.
type MessageAssembler struct {
	buf         []byte
	msg         []byte
	msgOpcode   byte // opcode of the message being reassembled, 0 if none
	limit       int64
	requireMask bool
	closed      bool
}

// NewMessageAssembler creates an assembler for frames sent by a client
// (requireMask) or by a server. limit bounds both single frames and
// reassembled messages; limit <= 0 selects MaxFramePayload.
func NewMessageAssembler(limit int64, requireMask bool) *MessageAssembler {
	if limit <= 0 {
		limit = MaxFramePayload
	}
	return &MessageAssembler{limit: limit, requireMask: requireMask}
}

// Buffered returns the number of bytes held for incomplete frames and messages.
func (a *MessageAssembler) Buffered() int {
	return len(a.buf) + len(a.msg)
}

// Feed appends data and decodes every complete frame it now holds.
// Complete text or binary messages go to onMessage in arrival order. Ping
// and close frames go to onControl; pong frames are dropped. After a close
// frame Feed returns ErrCloseReceived and ignores all further input.
// A framing violation is returned as *ProtocolError.
func (a *MessageAssembler) Feed(data []byte, onMessage func(opcode byte, payload []byte), onControl func(f *WSFrame) error) error {
	if a.closed {
		return ErrCloseReceived
	}
	a.buf = append(a.buf, data...)

	off := 0
	defer func() {
		n := copy(a.buf, a.buf[off:])
		a.buf = a.buf[:n]
	}()

	for off < len(a.buf) {
		f, n, err := DecodeFrameFromBytes(a.buf[off:], a.limit)
		if err != nil {
			return err
		}
		if f == nil {
			return nil
		}
		off += n

		if err := a.check(f); err != nil {
			return err
		}

		if f.IsControl() {
			switch f.Opcode {
			case OpcodePong:
				continue
			case OpcodeClose:
				a.closed = true
				if err := onControl(f); err != nil {
					return err
				}
				off = len(a.buf)
				return ErrCloseReceived
			}
			if err := onControl(f); err != nil {
				return err
			}
			continue
		}

		if f.Opcode != OpcodeContinuation {
			a.msgOpcode = f.Opcode
			a.msg = a.msg[:0]
		}
		if int64(len(a.msg))+f.PayloadLen > a.limit {
			return protocolError(CloseMessageTooBig, ErrMessageTooLarge)
		}
		a.msg = append(a.msg, f.Payload...)
		if !f.IsFinal {
			continue
		}

		if a.msgOpcode == OpcodeText && !utf8.Valid(a.msg) {
			return protocolError(CloseInvalidPayloadData, ErrInvalidUTF8)
		}
		payload := make([]byte, len(a.msg))
		copy(payload, a.msg)
		opcode := a.msgOpcode
		a.msg = a.msg[:0]
		a.msgOpcode = 0
		onMessage(opcode, payload)
	}
	return nil
}

// check validates a decoded frame against RFC 6455 section 5.
func (a *MessageAssembler) check(f *WSFrame) error {
	switch {
	case f.Rsv != 0:
		return protocolError(CloseProtocolError, ErrReservedBits)
	case !isKnownOpcode(f.Opcode):
		return protocolError(CloseProtocolError, ErrInvalidOpcode)
	case a.requireMask && !f.Masked:
		return protocolError(CloseProtocolError, ErrUnmaskedFrame)
	}
	if f.IsControl() {
		if !f.IsFinal {
			return protocolError(CloseProtocolError, ErrFragmentedControlFrame)
		}
		return nil
	}
	if f.Opcode == OpcodeContinuation && a.msgOpcode == 0 {
		return protocolError(CloseProtocolError, ErrUnexpectedContinuation)
	}
	if f.Opcode != OpcodeContinuation && a.msgOpcode != 0 {
		return protocolError(CloseProtocolError, ErrExpectedContinuation)
	}
	return nil
}
