// File: protocol/frame_codec.go
// Package protocol implements WebSocket frame codec with frame size enforcement.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Frames are decoded straight out of a connection's inbound byte buffer, so
// an incomplete frame is reported as "need more bytes" instead of blocking.

package protocol

import (
	"encoding/binary"
	"unicode/utf8"
)

// MaxFramePayload defines the default maximum payload size for a single frame.
const MaxFramePayload = 1 << 20 // 1 MiB

// WSFrame represents a decoded WebSocket frame.
type WSFrame struct {
	IsFinal    bool  // FIN bit
	Rsv        byte  // RSV1-3 bits, still in their wire position
	Opcode     byte  // Operation code
	Masked     bool  // Whether the frame was masked
	PayloadLen int64 // Actual payload length
	MaskKey    [4]byte
	Payload    []byte // Unmasked payload, owned by the frame
}

// IsControl reports whether the frame carries a control opcode.
func (f *WSFrame) IsControl() bool {
	return f.Opcode&0x8 != 0
}

// DecodeFrameFromBytes parses one WebSocket frame from the head of raw,
// enforcing limit on the payload size (limit <= 0 selects MaxFramePayload).
// Returns frame, consumed bytes, and error.
// If the frame is incomplete, returns (nil, 0, nil).
func DecodeFrameFromBytes(raw []byte, limit int64) (*WSFrame, int, error) {
	if limit <= 0 {
		limit = MaxFramePayload
	}
	if len(raw) < 2 {
		return nil, 0, nil
	}
	fin := raw[0]&FinBit != 0
	rsv := raw[0] & RsvMask
	opcode := raw[0] & 0x0F
	masked := raw[1]&MaskBit != 0
	length := int64(raw[1] & 0x7F)
	offset := 2

	switch length {
	case 126:
		if len(raw) < offset+2 {
			return nil, 0, nil
		}
		length = int64(binary.BigEndian.Uint16(raw[offset:]))
		offset += 2
	case 127:
		if len(raw) < offset+8 {
			return nil, 0, nil
		}
		// The most significant bit must be zero; a negative value is oversize.
		length = int64(binary.BigEndian.Uint64(raw[offset:]))
		offset += 8
	}

	if opcode&0x8 != 0 && length > MaxControlPayloadLen {
		return nil, 0, protocolError(CloseProtocolError, ErrControlFramePayloadTooBig)
	}
	if length < 0 || length > limit {
		return nil, 0, protocolError(CloseMessageTooBig, ErrFrameTooLarge)
	}

	var maskKey [4]byte
	if masked {
		if len(raw) < offset+4 {
			return nil, 0, nil
		}
		copy(maskKey[:], raw[offset:offset+4])
		offset += 4
	}

	totalLen := offset + int(length)
	if len(raw) < totalLen {
		return nil, 0, nil
	}

	payload := make([]byte, length)
	copy(payload, raw[offset:totalLen])
	if masked {
		maskBytes(payload, maskKey)
	}

	return &WSFrame{
		IsFinal:    fin,
		Rsv:        rsv,
		Opcode:     opcode,
		Masked:     masked,
		PayloadLen: length,
		MaskKey:    maskKey,
		Payload:    payload,
	}, totalLen, nil
}

// EncodeFrameToBuffer serializes f into dst (reusing its capacity) and
// returns the extended slice. The payload is masked with f.MaskKey when
// f.Masked is set; f.Payload itself is left untouched.
func EncodeFrameToBuffer(f *WSFrame, dst []byte) []byte {
	b0 := f.Opcode & 0x0F
	if f.IsFinal {
		b0 |= FinBit
	}
	b0 |= f.Rsv & RsvMask

	var maskBit byte
	if f.Masked {
		maskBit = MaskBit
	}

	plen := len(f.Payload)
	dst = dst[:0]
	switch {
	case plen <= 125:
		dst = append(dst, b0, byte(plen)|maskBit)
	case plen <= 0xFFFF:
		dst = append(dst, b0, 126|maskBit)
		dst = binary.BigEndian.AppendUint16(dst, uint16(plen))
	default:
		dst = append(dst, b0, 127|maskBit)
		dst = binary.BigEndian.AppendUint64(dst, uint64(plen))
	}

	if f.Masked {
		dst = append(dst, f.MaskKey[:]...)
	}
	start := len(dst)
	dst = append(dst, f.Payload...)
	if f.Masked {
		maskBytes(dst[start:], f.MaskKey)
	}
	return dst
}

// EncodeFrameToBytes serializes f into a freshly allocated slice.
func EncodeFrameToBytes(f *WSFrame) []byte {
	return EncodeFrameToBuffer(f, make([]byte, 0, MaxFrameHeaderLen+len(f.Payload)))
}

// EncodeMessage builds a single unmasked, final server frame.
func EncodeMessage(opcode byte, payload []byte) []byte {
	return EncodeFrameToBytes(&WSFrame{IsFinal: true, Opcode: opcode, Payload: payload})
}

// ClosePayload builds the body of a close frame. Codes without a status
// (CloseNoStatusRcvd and friends) produce an empty body.
func ClosePayload(code int, reason string) []byte {
	if code == CloseNoStatusRcvd || code == CloseAbnormalClosure || code <= 0 {
		return nil
	}
	body := binary.BigEndian.AppendUint16(nil, uint16(code))
	if len(reason) > MaxControlPayloadLen-2 {
		reason = reason[:MaxControlPayloadLen-2]
	}
	return append(body, reason...)
}

// ParseClosePayload splits a close frame body into status code and reason.
// An empty body yields CloseNoStatusRcvd.
func ParseClosePayload(p []byte) (int, string, error) {
	switch {
	case len(p) == 0:
		return CloseNoStatusRcvd, "", nil
	case len(p) == 1:
		return 0, "", ErrInvalidClosePayload
	}
	code := int(binary.BigEndian.Uint16(p))
	if !validCloseCode(code) {
		return 0, "", ErrInvalidClosePayload
	}
	reason := p[2:]
	if !utf8.Valid(reason) {
		return 0, "", ErrInvalidClosePayload
	}
	return code, string(reason), nil
}

// validCloseCode reports whether code may appear on the wire (RFC 6455 7.4).
func validCloseCode(code int) bool {
	switch {
	case code >= 1000 && code <= 1003:
		return true
	case code >= 1007 && code <= 1014:
		return true
	case code >= 3000 && code <= 4999:
		return true
	}
	return false
}

// maskBytes applies XOR on buf using key.
func maskBytes(buf []byte, key [4]byte) {
	for i := range buf {
		buf[i] ^= key[i&3]
	}
}
