package session

import (
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/psconn-dev/psconn/protocol"
)

const testPassword = "secret"

// peerConn is one accepted connection on the mock peer, with codec helpers
// for the server side of the wire protocol.
type peerConn struct {
	t     *testing.T
	conn  net.Conn
	codec *protocol.Codec
}

// receive reads the next request frame. Returns nil when the client hangs up.
func (p *peerConn) receive() *protocol.Response {
	resp, err := p.codec.Receive(p.conn)
	if err != nil {
		return nil
	}
	return resp
}

// reply sends one response frame tagged with the given transaction id.
func (p *peerConn) reply(ct protocol.ContentType, body []byte, txn uint32) {
	if err := p.codec.Send(p.conn, ct, body, txn); err != nil {
		p.t.Errorf("mock peer send: %v", err)
	}
}

// replyStatus sends a plaintext diagnostic frame with a non-zero status.
func (p *peerConn) replyStatus(status uint32, diag []byte) {
	frame := make([]byte, 8+len(diag))
	binary.BigEndian.PutUint32(frame[0:4], uint32(4+len(diag)))
	binary.BigEndian.PutUint32(frame[4:8], status)
	copy(frame[8:], diag)
	if _, err := p.conn.Write(frame); err != nil {
		p.t.Errorf("mock peer raw send: %v", err)
	}
}

// mockPeer is an in-process stand-in for the host application. Every
// accepted connection runs handler in its own goroutine.
type mockPeer struct {
	t  *testing.T
	ln net.Listener
}

func startPeer(t *testing.T, handler func(p *peerConn)) *mockPeer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	codec, err := protocol.NewCodec([]byte(testPassword))
	if err != nil {
		t.Fatal(err)
	}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return // listener closed
			}
			go func() {
				defer conn.Close()
				handler(&peerConn{t: t, conn: conn, codec: codec})
			}()
		}
	}()
	t.Cleanup(func() { ln.Close() })
	return &mockPeer{t: t, ln: ln}
}

func (m *mockPeer) port() int {
	return m.ln.Addr().(*net.TCPAddr).Port
}

// scriptEcho is the default handler: acknowledge every script request with
// a Script/"null" response, and Data uploads with a temp path.
func scriptEcho(p *peerConn) {
	for {
		req := p.receive()
		if req == nil {
			return
		}
		switch req.ContentType {
		case protocol.ContentData:
			p.reply(protocol.ContentScript, []byte("/tmp/psconn-upload"), req.Transaction)
		case protocol.ContentKeepAlive:
			p.reply(protocol.ContentScript, []byte(keepAliveAck), req.Transaction)
		default:
			p.reply(protocol.ContentScript, []byte("null"), req.Transaction)
		}
	}
}

// newTestSession dials the mock peer with sane test defaults.
func newTestSession(t *testing.T, peer *mockPeer, cfg Config) *Session {
	t.Helper()
	cfg.Host = "127.0.0.1"
	cfg.Port = peer.port()
	if cfg.Password == "" {
		cfg.Password = testPassword
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	s, err := Dial(cfg)
	if err != nil {
		t.Fatalf("dial mock peer: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}
