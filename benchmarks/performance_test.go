// Package benchmarks
// Author: momentics <momentics@gmail.com>
//
// Performance benchmarks for hioload-rpc components.

package benchmarks

import (
	"bufio"
	"bytes"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"

	"github.com/momentics/hioload-rpc/api"
	"github.com/momentics/hioload-rpc/internal/jsonrpc"
	"github.com/momentics/hioload-rpc/protocol"
	"github.com/momentics/hioload-rpc/server"
)

const pingRequest = `{"jsonrpc":"2.0","method":"JSONRPC.Ping","id":1}`

// BenchmarkJSONScannerPipelined measures framing of back-to-back requests.
func BenchmarkJSONScannerPipelined(b *testing.B) {
	stream := bytes.Repeat([]byte(pingRequest+"\n"), 64)
	scanner := protocol.NewJSONScanner(0)

	b.SetBytes(int64(len(stream)))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		msgs, err := scanner.Feed(stream)
		if err != nil || len(msgs) != 64 {
			b.Fatalf("got %d messages, err %v", len(msgs), err)
		}
	}
}

// BenchmarkAssemblerMaskedFrames measures decoding of client frames.
func BenchmarkAssemblerMaskedFrames(b *testing.B) {
	frame := protocol.EncodeFrameToBytes(&protocol.WSFrame{
		IsFinal: true,
		Opcode:  protocol.OpcodeText,
		Masked:  true,
		MaskKey: [4]byte{1, 2, 3, 4},
		Payload: []byte(pingRequest),
	})
	stream := bytes.Repeat(frame, 64)
	a := protocol.NewMessageAssembler(0, true)
	n := 0
	onMessage := func(byte, []byte) { n++ }
	onControl := func(*protocol.WSFrame) error { return nil }

	b.SetBytes(int64(len(stream)))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := a.Feed(stream, onMessage, onControl); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkEncodeMessage measures server frame encoding.
func BenchmarkEncodeMessage(b *testing.B) {
	payload := bytes.Repeat([]byte{'x'}, 4096)
	b.SetBytes(int64(len(payload)))
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = protocol.EncodeMessage(protocol.OpcodeText, payload)
	}
}

func startServer(b *testing.B) *server.Server {
	b.Helper()
	srv, err := server.New(jsonrpc.NewProcessor(),
		server.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		b.Fatal(err)
	}
	if err := srv.Start(0, false); err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { srv.Stop(true) })
	return srv
}

func dial(b *testing.B, srv *server.Server) net.Conn {
	b.Helper()
	conn, err := net.Dial("tcp4", net.JoinHostPort("127.0.0.1", strconv.Itoa(srv.Port())))
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { _ = conn.Close() })
	return conn
}

// BenchmarkRawRoundTrip measures one request/response over loopback.
func BenchmarkRawRoundTrip(b *testing.B) {
	srv := startServer(b)
	conn := dial(b, srv)
	r := bufio.NewReader(conn)
	req := []byte(pingRequest)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := conn.Write(req); err != nil {
			b.Fatal(err)
		}
		if _, err := r.ReadBytes('}'); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkAnnounceFanOut measures one announcement to many raw peers.
func BenchmarkAnnounceFanOut(b *testing.B) {
	srv := startServer(b)
	const peers = 32
	for i := 0; i < peers; i++ {
		conn := dial(b, srv)
		if _, err := conn.Write([]byte(pingRequest)); err != nil {
			b.Fatal(err)
		}
		if _, err := bufio.NewReader(conn).ReadBytes('}'); err != nil {
			b.Fatal(err)
		}
		go func() { _, _ = io.Copy(io.Discard, conn) }()
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		srv.Announce(api.AnnounceOther, "bench", "OnTick", i)
	}
	b.StopTimer()
}
