// File: protocol/handshake_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package protocol_test

import (
	"bufio"
	"bytes"
	"net/http"
	"strings"
	"testing"

	"github.com/momentics/hioload-rpc/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const upgradeRequest = "GET /jsonrpc HTTP/1.1\r\n" +
	"Host: localhost:9090\r\n" +
	"Upgrade: websocket\r\n" +
	"Connection: keep-alive, Upgrade\r\n" +
	"Sec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\n" +
	"Sec-WebSocket-Version: 13\r\n" +
	"\r\n"

func TestSniffUpgrade(t *testing.T) {
	tests := []struct {
		in   string
		want protocol.Sniff
	}{
		{in: "", want: protocol.SniffNeedMore},
		{in: "G", want: protocol.SniffNeedMore},
		{in: "GET", want: protocol.SniffNeedMore},
		{in: "GET ", want: protocol.SniffHTTP},
		{in: "GET /jsonrpc", want: protocol.SniffHTTP},
		{in: "{", want: protocol.SniffRaw},
		{in: "GE{", want: protocol.SniffRaw},
		{in: "POST / HTTP/1.1", want: protocol.SniffRaw},
		{in: " {\"id\":1}", want: protocol.SniffRaw},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, protocol.SniffUpgrade([]byte(tt.in)))
		})
	}
}

func TestHeaderBlockLen(t *testing.T) {
	assert.Equal(t, -1, protocol.HeaderBlockLen([]byte("GET / HTTP/1.1\r\nHost: x\r\n")))
	assert.Equal(t, len(upgradeRequest), protocol.HeaderBlockLen([]byte(upgradeRequest+"\x81\x80")))
}

func TestComputeAcceptKey(t *testing.T) {
	// RFC 6455 section 1.3 example.
	assert.Equal(t, "s3pPLMBiTxaQ9kYGzzhZRbK+xOo=", protocol.ComputeAcceptKey("dGhlIHNhbXBsZSBub25jZQ=="))
}

func TestParseUpgradeRequest(t *testing.T) {
	req, hdr, err := protocol.ParseUpgradeRequest([]byte(upgradeRequest))
	require.NoError(t, err)
	assert.Equal(t, "/jsonrpc", req.URL.Path)
	assert.Equal(t, "websocket", hdr.Get("Upgrade"))
	assert.Equal(t, "Upgrade", hdr.Get("Connection"))
	assert.Equal(t, "s3pPLMBiTxaQ9kYGzzhZRbK+xOo=", hdr.Get(protocol.HeaderSecWebSocketAccept))
}

func TestParseUpgradeRequestRejects(t *testing.T) {
	tests := []struct {
		name    string
		replace [2]string
		err     error
	}{
		{name: "no upgrade token", replace: [2]string{"Upgrade: websocket", "Upgrade: h2c"}, err: protocol.ErrInvalidUpgradeHeaders},
		{name: "no connection token", replace: [2]string{"keep-alive, Upgrade", "keep-alive"}, err: protocol.ErrInvalidUpgradeHeaders},
		{name: "old version", replace: [2]string{"Version: 13", "Version: 8"}, err: protocol.ErrBadWebSocketVersion},
		{name: "missing key", replace: [2]string{"Sec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\n", ""}, err: protocol.ErrMissingWebSocketKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			block := strings.Replace(upgradeRequest, tt.replace[0], tt.replace[1], 1)
			_, _, err := protocol.ParseUpgradeRequest([]byte(block))
			assert.ErrorIs(t, err, tt.err)
		})
	}

	big := "GET / HTTP/1.1\r\nX-Pad: " + strings.Repeat("p", protocol.MaxHandshakeHeadersSize) + "\r\n\r\n"
	_, _, err := protocol.ParseUpgradeRequest([]byte(big))
	assert.ErrorIs(t, err, protocol.ErrHandshakeTooLarge)

	_, _, err = protocol.ParseUpgradeRequest([]byte("GET\r\n\r\n"))
	assert.Error(t, err)
}

func TestWriteHandshakeResponse(t *testing.T) {
	_, hdr, err := protocol.ParseUpgradeRequest([]byte(upgradeRequest))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, protocol.WriteHandshakeResponse(&buf, hdr))

	resp, err := http.ReadResponse(bufio.NewReader(&buf), nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	assert.Equal(t, "s3pPLMBiTxaQ9kYGzzhZRbK+xOo=", resp.Header.Get(protocol.HeaderSecWebSocketAccept))
	assert.Zero(t, buf.Len())
}

func TestWriteHandshakeError(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, protocol.WriteHandshakeError(&buf, http.StatusBadRequest, protocol.ErrMissingWebSocketKey))

	resp, err := http.ReadResponse(bufio.NewReader(&buf), nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "13", resp.Header.Get(protocol.HeaderSecWebSocketVer))
	assert.Equal(t, int64(len(protocol.ErrMissingWebSocketKey.Error())), resp.ContentLength)
}
