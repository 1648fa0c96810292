// Package session implements the caller-facing connection to the host
// application: it owns the socket, the background dispatch loop, the
// transaction registry, and the public command operations (Execute, Upload,
// Ping, Subscribe).
package session

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/psconn-dev/psconn/protocol"
)

// PasswordEnv is consulted when Config.Password is empty.
const PasswordEnv = "PHOTOSHOP_PASSWORD"

// actionDescriptorAck is the body the peer sends to acknowledge an
// executeAction-style command before the real payload follows.
const actionDescriptorAck = "[ActionDescriptor]"

// keepAliveAck is the fixed body echoed for a keep-alive probe.
const keepAliveAck = "Yep, still alive"

// discardHandler is a no-op slog handler used when no logger is configured.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// Validator checks a script before submission. A non-nil return aborts the
// call before any network I/O; the error is surfaced verbatim.
type Validator func(script string) error

// Config holds session configuration.
type Config struct {
	Host     string // default "localhost"
	Port     int    // default protocol.DefaultPort
	Password string // falls back to the PHOTOSHOP_PASSWORD environment variable

	Validator Validator     // optional script pre-flight
	Timeout   time.Duration // default per-response deadline; 0 blocks indefinitely
	Logger    *slog.Logger  // optional; nil discards
}

// Session is a long-lived connection to the host application. One background
// goroutine (the dispatcher) exclusively reads the socket; any number of
// caller goroutines may issue commands concurrently, each blocking on its
// own transaction. Fatal connection errors surface to every outstanding
// caller; the session does not reconnect on its own — call Reconnect.
type Session struct {
	cfg   Config
	log   *slog.Logger
	codec *protocol.Codec
	addr  string

	mu sync.Mutex // connect/reconnect/close lifecycle

	writeMu sync.Mutex // serializes all outbound frame writes

	regMu        sync.Mutex // guards link, transactions, nextID
	link         *link
	transactions map[uint32]*Transaction
	nextID       uint32

	subscribers sync.WaitGroup
}

// Dial opens one TCP connection to the host, derives the cipher key, and
// starts the dispatcher. Connection failures are not retried.
func Dial(cfg Config) (*Session, error) {
	password := cfg.Password
	if password == "" {
		password = os.Getenv(PasswordEnv)
	}
	if password == "" {
		return nil, ErrMissingPassword
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = protocol.DefaultPort
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(discardHandler{})
	}

	codec, err := protocol.NewCodec([]byte(password))
	if err != nil {
		return nil, fmt.Errorf("session: derive key: %w", err)
	}

	s := &Session{
		cfg:   cfg,
		log:   logger.With("component", "session"),
		codec: codec,
		addr:  net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.connectLocked(); err != nil {
		return nil, err
	}
	return s, nil
}

// connectLocked dials a fresh socket, resets the transaction registry and id
// counter, and starts a new dispatcher. Caller holds s.mu.
func (s *Session) connectLocked() error {
	conn, err := net.Dial("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("session: connect %s: %w", s.addr, err)
	}

	l := &link{
		conn: conn,
		dead: make(chan struct{}),
		done: make(chan struct{}),
	}

	s.regMu.Lock()
	s.link = l
	s.transactions = make(map[uint32]*Transaction)
	s.nextID = 0
	s.regMu.Unlock()

	s.log.Debug("connected", "addr", s.addr)
	go s.dispatch(l)
	return nil
}

// teardownLocked closes the current socket and joins the dispatcher.
// Caller holds s.mu.
func (s *Session) teardownLocked(reason error) {
	s.regMu.Lock()
	l := s.link
	s.link = nil
	s.regMu.Unlock()
	if l == nil {
		return
	}
	l.fail(reason)
	// Peer may have half-closed already; the error is irrelevant here.
	l.conn.Close()
	<-l.done
	s.log.Debug("disconnected", "addr", s.addr)
}

// Close shuts down the socket, joins the dispatcher, and joins every
// subscriber goroutine. Idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	s.teardownLocked(ErrClosed)
	s.mu.Unlock()
	s.subscribers.Wait()
	return nil
}

// Reconnect tears the connection down and dials again with a fresh socket,
// a fresh dispatcher, and the transaction id counter reset to zero.
// Reconnection is always explicit: fatal errors leave the session dead
// until the caller invokes this.
func (s *Session) Reconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardownLocked(ErrClosed)
	return s.connectLocked()
}

// begin allocates the next transaction id and registers the transaction,
// both under the registry lock so the id is visible to the dispatcher
// before any response can arrive for it.
func (s *Session) begin() (*Transaction, error) {
	s.regMu.Lock()
	defer s.regMu.Unlock()
	l := s.link
	if l == nil {
		return nil, ErrClosed
	}
	select {
	case <-l.dead:
		return nil, l.err
	default:
	}
	t := &Transaction{
		id:     s.nextID,
		s:      s,
		link:   l,
		notify: make(chan struct{}, 1),
	}
	s.nextID++
	s.transactions[t.id] = t
	return t, nil
}

// end unregisters the transaction. Stale frames routed afterwards are
// discarded by the dispatcher.
func (s *Session) end(t *Transaction) {
	s.regMu.Lock()
	defer s.regMu.Unlock()
	if cur, ok := s.transactions[t.id]; ok && cur == t {
		delete(s.transactions, t.id)
	}
}

type executeOptions struct {
	secondary  bool
	timeout    time.Duration
	timeoutSet bool
}

// ExecuteOption adjusts a single Execute call.
type ExecuteOption func(*executeOptions)

// WithSecondary requests the extra response some command styles produce:
// when the first response is the action-descriptor acknowledgement, it is
// discarded and the second response is returned instead.
func WithSecondary() ExecuteOption {
	return func(o *executeOptions) { o.secondary = true }
}

// WithTimeout overrides the session's default response deadline for one call.
func WithTimeout(d time.Duration) ExecuteOption {
	return func(o *executeOptions) { o.timeout = d; o.timeoutSet = true }
}

// Execute runs the given script on the host and returns its response.
// The configured validator, if any, runs first and can reject the script
// before any I/O happens.
func (s *Session) Execute(script string, opts ...ExecuteOption) (*protocol.Response, error) {
	var o executeOptions
	for _, opt := range opts {
		opt(&o)
	}
	timeout := s.cfg.Timeout
	if o.timeoutSet {
		timeout = o.timeout
	}

	if s.cfg.Validator != nil {
		if err := s.cfg.Validator(script); err != nil {
			return nil, err
		}
	}

	t, err := s.begin()
	if err != nil {
		return nil, err
	}
	defer s.end(t)

	if err := t.send(protocol.ContentScriptShared, []byte(script)); err != nil {
		return nil, err
	}
	resp, err := t.receive(timeout)
	if err != nil {
		return nil, err
	}

	if o.secondary {
		second, err := t.receive(timeout)
		if err != nil {
			return nil, err
		}
		// The ack means "the real result follows".
		if string(resp.Body) == actionDescriptorAck {
			resp = second
		}
	}
	return resp, nil
}

// Upload sends raw bytes to the host, which stores them in a server-side
// temporary file and replies with its path. A non-empty suffix issues a
// follow-up script that copies the file to path+suffix and removes the
// original, returning the new path.
func (s *Session) Upload(data []byte, suffix string) (string, error) {
	t, err := s.begin()
	if err != nil {
		return "", err
	}
	resp, err := func() (*protocol.Response, error) {
		defer s.end(t)
		if err := t.send(protocol.ContentData, data); err != nil {
			return nil, err
		}
		return t.receive(s.cfg.Timeout)
	}()
	if err != nil {
		return "", err
	}

	path := string(resp.Body)
	if suffix == "" {
		return path, nil
	}
	newPath := path + suffix
	if _, err := s.Execute(renameScript(path, newPath)); err != nil {
		return "", err
	}
	return newPath, nil
}

// Ping sends a keep-alive probe and verifies the fixed acknowledgement.
func (s *Session) Ping(timeout time.Duration) error {
	t, err := s.begin()
	if err != nil {
		return err
	}
	defer s.end(t)

	if err := t.send(protocol.ContentKeepAlive, nil); err != nil {
		return err
	}
	resp, err := t.receive(timeout)
	if err != nil {
		return err
	}
	if resp.ContentType != protocol.ContentScript || string(resp.Body) != keepAliveAck {
		return fmt.Errorf("session: unexpected keep-alive reply: %s %q", resp.ContentType, resp.Body)
	}
	return nil
}
