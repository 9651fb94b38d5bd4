// File: protocol/json_scanner_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package protocol_test

import (
	"strings"
	"testing"

	"github.com/momentics/hioload-rpc/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feedChunks(t *testing.T, s *protocol.JSONScanner, chunks ...string) []string {
	t.Helper()
	var got []string
	for _, c := range chunks {
		msgs, err := s.Feed([]byte(c))
		require.NoError(t, err)
		for _, m := range msgs {
			got = append(got, string(m))
		}
	}
	return got
}

func TestJSONScannerPingSplitInsideKey(t *testing.T) {
	const req = `{"jsonrpc":"2.0","method":"Ping","id":1}`
	cut := strings.Index(req, `"met`) + len(`"met`)

	s := protocol.NewJSONScanner(0)
	got := feedChunks(t, s, req[:cut], req[cut:])

	require.Len(t, got, 1)
	assert.Equal(t, req, got[0])
	assert.Zero(t, s.Buffered())
}

func TestJSONScannerEverySplitPoint(t *testing.T) {
	requests := []string{
		`{"jsonrpc":"2.0","method":"Ping","id":1}`,
		`{"jsonrpc":"2.0","method":"GUI.ShowNotification","params":{"title":"a } b","message":"{{{"},"id":"x"}`,
		`{"jsonrpc":"2.0","method":"X","params":{"s":"quote \" brace } backslash \\"},"id":2}`,
		`{"a":"\\\\","b":["}","{"],"c":{"d":{}}}`,
		`[{"jsonrpc":"2.0","method":"A","id":1},{"jsonrpc":"2.0","method":"B","id":"]"}]`,
	}

	for _, req := range requests {
		for i := 0; i <= len(req); i++ {
			for j := i; j <= len(req); j++ {
				s := protocol.NewJSONScanner(0)
				got := feedChunks(t, s, req[:i], req[i:j], req[j:])
				require.Len(t, got, 1, "split %d/%d of %s", i, j, req)
				require.Equal(t, req, got[0], "split %d/%d", i, j)
			}
		}
	}
}

func TestJSONScannerByteAtATime(t *testing.T) {
	const req = `{"method":"Input.SendText","params":{"text":"}{\"}"},"id":3}`
	s := protocol.NewJSONScanner(0)

	var got []string
	for i := 0; i < len(req); i++ {
		got = append(got, feedChunks(t, s, req[i:i+1])...)
		if i < len(req)-1 {
			require.Empty(t, got, "dispatched early at byte %d", i)
		}
	}
	require.Equal(t, []string{req}, got)
}

func TestJSONScannerPipelined(t *testing.T) {
	a := `{"id":1}`
	b := `{"id":2,"params":{"x":"}"}}`
	c := `[{"id":3}]`

	s := protocol.NewJSONScanner(0)
	got := feedChunks(t, s, a+"\r\n"+b+" "+c+`{"id":`)

	assert.Equal(t, []string{a, b, c}, got)
	assert.Equal(t, len(`{"id":`), s.Buffered())

	got = feedChunks(t, s, `4}`)
	assert.Equal(t, []string{`{"id":4}`}, got)
}

func TestJSONScannerDiscardsBytesOutsideValues(t *testing.T) {
	s := protocol.NewJSONScanner(0)
	got := feedChunks(t, s, "garbage \"}\" ", `{"ok":true}`, " trailing ]")

	assert.Equal(t, []string{`{"ok":true}`}, got)
	assert.Zero(t, s.Buffered())
}

func TestJSONScannerArrayCountsOnlyBrackets(t *testing.T) {
	s := protocol.NewJSONScanner(0)
	got := feedChunks(t, s, `[{"a":1},`, `{"b":"]"}]`)

	assert.Equal(t, []string{`[{"a":1},{"b":"]"}]`}, got)
}

func TestJSONScannerLimit(t *testing.T) {
	t.Run("pending value", func(t *testing.T) {
		s := protocol.NewJSONScanner(16)
		_, err := s.Feed([]byte(`{"k":"0123456789abcdef`))
		assert.ErrorIs(t, err, protocol.ErrMessageTooLarge)
	})

	t.Run("completed value", func(t *testing.T) {
		s := protocol.NewJSONScanner(16)
		msgs, err := s.Feed([]byte(`{"a":1}{"k":"0123456789abcdef"}`))
		assert.ErrorIs(t, err, protocol.ErrMessageTooLarge)
		assert.Equal(t, [][]byte{[]byte(`{"a":1}`)}, msgs)
	})

	t.Run("within limit", func(t *testing.T) {
		s := protocol.NewJSONScanner(16)
		msgs, err := s.Feed([]byte(`{"a":1}`))
		require.NoError(t, err)
		assert.Len(t, msgs, 1)
	})
}

func TestJSONScannerReset(t *testing.T) {
	s := protocol.NewJSONScanner(0)
	_, err := s.Feed([]byte(`{"a":"open string {`))
	require.NoError(t, err)
	require.NotZero(t, s.Buffered())

	s.Reset()
	got := feedChunks(t, s, `{"b":2}`)
	assert.Equal(t, []string{`{"b":2}`}, got)
}

func TestJSONScannerReturnsPrivateCopies(t *testing.T) {
	s := protocol.NewJSONScanner(0)
	data := []byte(`{"a":1}`)
	msgs, err := s.Feed(data)
	require.NoError(t, err)

	data[1] = 'X'
	assert.Equal(t, `{"a":1}`, string(msgs[0]))
}
