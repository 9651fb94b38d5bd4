// File: protocol/handshake.go
// Package protocol implements the server side of the WebSocket opening handshake.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The handshake is parsed out of the first bytes a connection delivers, so
// the same socket can carry either raw JSON-RPC or a WebSocket session.

package protocol

import (
	"bufio"
	"bytes"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
)

// Constants used for handshake processing.
const (
	WebSocketGUID            = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"
	HeaderConnection         = "Connection"
	HeaderUpgrade            = "Upgrade"
	HeaderSecWebSocketKey    = "Sec-WebSocket-Key"
	HeaderSecWebSocketVer    = "Sec-WebSocket-Version"
	HeaderSecWebSocketAccept = "Sec-WebSocket-Accept"
	RequiredWebSocketVersion = "13"
	MaxHandshakeHeadersSize  = 8192
)

// Errors for handshake validation.
var (
	ErrInvalidUpgradeHeaders = errors.New("invalid WebSocket upgrade headers")
	ErrMissingWebSocketKey   = errors.New("missing Sec-WebSocket-Key header")
	ErrBadWebSocketVersion   = errors.New("unsupported WebSocket version; only '13' is supported")
	ErrHandshakeTooLarge     = errors.New("handshake headers too large")
	ErrBadMethod             = errors.New("handshake method must be GET")
)

var (
	requestPrefix = []byte("GET ")
	headerEnd     = []byte("\r\n\r\n")
)

// Sniff is the verdict on the first bytes of a connection.
type Sniff int

const (
	// SniffNeedMore means the bytes are still a prefix of "GET ".
	SniffNeedMore Sniff = iota
	// SniffHTTP means the stream starts with an HTTP GET request line.
	SniffHTTP
	// SniffRaw means the stream cannot be an HTTP request.
	SniffRaw
)

// SniffUpgrade classifies the first bytes received on a new connection.
func SniffUpgrade(b []byte) Sniff {
	if len(b) < len(requestPrefix) {
		if bytes.HasPrefix(requestPrefix, b) {
			return SniffNeedMore
		}
		return SniffRaw
	}
	if bytes.HasPrefix(b, requestPrefix) {
		return SniffHTTP
	}
	return SniffRaw
}

// HeaderBlockLen returns the length of the HTTP header block at the head
// of b including the terminating blank line, or -1 if it is incomplete.
func HeaderBlockLen(b []byte) int {
	i := bytes.Index(b, headerEnd)
	if i < 0 {
		return -1
	}
	return i + len(headerEnd)
}

// DoHandshakeCore reads and validates the HTTP/1.1 Upgrade request from r.
// Returns the parsed request and the headers to include in the
// HTTP 101 Switching Protocols response.
func DoHandshakeCore(r io.Reader) (*http.Request, http.Header, error) {
	req, err := http.ReadRequest(bufio.NewReader(r))
	if err != nil {
		return nil, nil, fmt.Errorf("handshake read request: %w", err)
	}

	// Enforce a maximum total header size to prevent abuse.
	total := 0
	for k, vs := range req.Header {
		total += len(k)
		for _, v := range vs {
			total += len(v)
		}
		if total > MaxHandshakeHeadersSize {
			return req, nil, ErrHandshakeTooLarge
		}
	}

	if req.Method != http.MethodGet {
		return req, nil, ErrBadMethod
	}
	if !headerContainsToken(req.Header, HeaderConnection, "Upgrade") ||
		!headerContainsToken(req.Header, HeaderUpgrade, "websocket") {
		return req, nil, ErrInvalidUpgradeHeaders
	}
	if strings.TrimSpace(req.Header.Get(HeaderSecWebSocketVer)) != RequiredWebSocketVersion {
		return req, nil, ErrBadWebSocketVersion
	}
	key := strings.TrimSpace(req.Header.Get(HeaderSecWebSocketKey))
	if key == "" {
		return req, nil, ErrMissingWebSocketKey
	}

	hdr := make(http.Header)
	hdr.Set(HeaderUpgrade, "websocket")
	hdr.Set(HeaderConnection, "Upgrade")
	hdr.Set(HeaderSecWebSocketAccept, ComputeAcceptKey(key))
	return req, hdr, nil
}

// ParseUpgradeRequest runs DoHandshakeCore over a complete header block.
func ParseUpgradeRequest(block []byte) (*http.Request, http.Header, error) {
	if len(block) > MaxHandshakeHeadersSize {
		return nil, nil, ErrHandshakeTooLarge
	}
	return DoHandshakeCore(bytes.NewReader(block))
}

// ComputeAcceptKey derives Sec-WebSocket-Accept from the client key.
func ComputeAcceptKey(key string) string {
	h := sha1.New()
	h.Write([]byte(key + WebSocketGUID))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// WriteHandshakeResponse writes the HTTP/1.1 101 Switching Protocols response
// with the provided headers to w in a single write.
func WriteHandshakeResponse(w io.Writer, hdr http.Header) error {
	var sb strings.Builder
	sb.WriteString("HTTP/1.1 101 Switching Protocols\r\n")
	writeHeaders(&sb, hdr)
	sb.WriteString("\r\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

// WriteHandshakeError answers a rejected handshake with a plain HTTP error.
func WriteHandshakeError(w io.Writer, status int, reason error) error {
	body := http.StatusText(status)
	if reason != nil {
		body = reason.Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "HTTP/1.1 %d %s\r\n", status, http.StatusText(status))
	hdr := http.Header{}
	hdr.Set("Content-Type", "text/plain; charset=utf-8")
	hdr.Set("Connection", "close")
	hdr.Set(HeaderSecWebSocketVer, RequiredWebSocketVersion)
	hdr.Set("Content-Length", fmt.Sprint(len(body)))
	writeHeaders(&sb, hdr)
	sb.WriteString("\r\n")
	sb.WriteString(body)
	_, err := io.WriteString(w, sb.String())
	return err
}

func writeHeaders(sb *strings.Builder, hdr http.Header) {
	keys := make([]string, 0, len(hdr))
	for k := range hdr {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range hdr[k] {
			sb.WriteString(k)
			sb.WriteString(": ")
			sb.WriteString(v)
			sb.WriteString("\r\n")
		}
	}
}

// headerContainsToken checks if headerName contains the given token (case-insensitive).
func headerContainsToken(h http.Header, headerName, token string) bool {
	for _, v := range h.Values(headerName) {
		for _, part := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(part), token) {
				return true
			}
		}
	}
	return false
}
