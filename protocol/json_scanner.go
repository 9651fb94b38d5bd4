// File: protocol/json_scanner.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// JSONScanner recovers whole JSON-RPC messages from a raw byte stream that
// carries no length prefix. It counts the opening and closing character of
// the top-level value ('{' or '[' for batches) while skipping everything
// inside string literals.

package protocol

// JSONScanner is not safe for concurrent use; callers serialize Feed.
type JSONScanner struct {
	buf      []byte
	open     byte
	close    byte
	depth    int
	inString bool
	escaped  bool
	limit    int
}

// NewJSONScanner returns a scanner that rejects values longer than limit
// bytes (limit <= 0 disables the cap).
func NewJSONScanner(limit int) *JSONScanner {
	return &JSONScanner{limit: limit}
}

// Buffered returns the size of the partial value held by the scanner.
func (s *JSONScanner) Buffered() int {
	return len(s.buf)
}

// Reset drops any partial value.
func (s *JSONScanner) Reset() {
	s.buf = s.buf[:0]
	s.open, s.close = 0, 0
	s.depth = 0
	s.inString, s.escaped = false, false
}

// Feed consumes data and returns every value completed by it, in order.
// Bytes between top-level values are discarded. Each returned slice is a
// private copy of the exact bytes of one value. When the pending value
// grows past the limit, Feed returns the values completed so far together
// with ErrMessageTooLarge and the scanner must not be used again.
func (s *JSONScanner) Feed(data []byte) ([][]byte, error) {
	var out [][]byte
	start := 0 // start of the current value inside data when s.buf is empty

	for i := 0; i < len(data); i++ {
		c := data[i]

		if s.depth == 0 {
			switch c {
			case '{':
				s.open, s.close = '{', '}'
			case '[':
				s.open, s.close = '[', ']'
			default:
				continue
			}
			s.depth = 1
			start = i
			continue
		}

		if s.inString {
			switch {
			case s.escaped:
				s.escaped = false
			case c == '\\':
				s.escaped = true
			case c == '"':
				s.inString = false
			}
			continue
		}

		switch c {
		case '"':
			s.inString = true
		case s.open:
			s.depth++
		case s.close:
			s.depth--
			if s.depth == 0 {
				msg := make([]byte, 0, len(s.buf)+i+1-start)
				msg = append(msg, s.buf...)
				msg = append(msg, data[start:i+1]...)
				out = append(out, msg)
				s.buf = s.buf[:0]
				if s.limit > 0 && len(msg) > s.limit {
					return out[:len(out)-1], ErrMessageTooLarge
				}
			}
		}
	}

	if s.depth > 0 {
		s.buf = append(s.buf, data[start:]...)
		if s.limit > 0 && len(s.buf) > s.limit {
			return out, ErrMessageTooLarge
		}
	}
	return out, nil
}
