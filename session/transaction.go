package session

import (
	"sync"
	"time"

	"github.com/psconn-dev/psconn/protocol"
)

// Transaction correlates one or more outbound sends with their inbound
// responses via a shared id. It is created immediately before a send and
// unregistered as soon as the expected responses are consumed; only the
// owning goroutine reads its queue.
type Transaction struct {
	id   uint32
	s    *Session
	link *link // connection this transaction belongs to

	// Inbound FIFO. The queue grows without bound so the dispatcher never
	// blocks and never drops a frame: a subscription handler may lag
	// arbitrarily far behind the wire. notify carries at most one token;
	// the consumer re-checks pending after each wakeup.
	mu      sync.Mutex
	pending []*protocol.Response
	notify  chan struct{}
}

// ID returns the wire transaction id.
func (t *Transaction) ID() uint32 { return t.id }

// push appends one frame to the queue and wakes the owner. Called only by
// the dispatcher.
func (t *Transaction) push(resp *protocol.Response) {
	t.mu.Lock()
	t.pending = append(t.pending, resp)
	t.mu.Unlock()
	select {
	case t.notify <- struct{}{}:
	default:
	}
}

// pop removes and returns the oldest queued frame, or nil when empty.
func (t *Transaction) pop() *protocol.Response {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.pending) == 0 {
		return nil
	}
	resp := t.pending[0]
	t.pending = t.pending[1:]
	return resp
}

// send writes one frame carrying this transaction's id. All writes share
// the session's write mutex: the wire has no message boundary beyond the
// length prefix, so only one send may be in flight on the socket.
func (t *Transaction) send(ct protocol.ContentType, body []byte) error {
	t.s.writeMu.Lock()
	defer t.s.writeMu.Unlock()
	return t.s.codec.Send(t.link.conn, ct, body, t.id)
}

// receive blocks until the dispatcher delivers the next frame for this
// transaction, the connection fails, or the timeout elapses (timeout <= 0
// means no deadline). Frames already queued are always consumed before a
// connection failure is reported.
func (t *Transaction) receive(timeout time.Duration) (*protocol.Response, error) {
	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		if resp := t.pop(); resp != nil {
			return t.validate(resp)
		}
		select {
		case <-t.notify:
		case <-t.link.dead:
			// The dispatcher may have queued frames right before failing.
			if resp := t.pop(); resp != nil {
				return t.validate(resp)
			}
			return nil, t.link.err
		case <-deadline:
			return nil, ErrTimeout
		}
	}
}

// validate enforces the response contract: frames tagged illegal or
// errorString become transaction-scoped errors. The dispatcher already
// rejected non-zero status frames at the connection level.
func (t *Transaction) validate(resp *protocol.Response) (*protocol.Response, error) {
	switch resp.ContentType {
	case protocol.ContentIllegal:
		return nil, ErrIllegalResponse
	case protocol.ContentErrorString:
		return nil, &ScriptError{Message: string(resp.Body)}
	}
	return resp, nil
}
