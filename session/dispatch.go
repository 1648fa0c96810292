package session

import (
	"fmt"
	"net"
	"sync"
)

// link is the per-connection state: the socket, the dispatcher's liveness
// signal, and the first fatal error. A Session replaces its link wholesale
// on Reconnect; transactions hold the link they were created under so stale
// frames from an old connection can never reach a new transaction.
type link struct {
	conn     net.Conn
	dead     chan struct{} // closed after err is set
	done     chan struct{} // closed when the dispatch goroutine exits
	err      error
	failOnce sync.Once
}

// fail records the first fatal error and unblocks every waiter. Waiters
// observe err only after dead is closed, so the write is safe unguarded.
func (l *link) fail(err error) {
	l.failOnce.Do(func() {
		l.err = err
		close(l.dead)
	})
}

// dispatch is the receive loop: one goroutine per live connection pulls
// frames off the wire and routes each to the transaction its id names.
// Any receive failure, non-zero status frame, or unroutable frame is fatal:
// the error is published through the link so every outstanding transaction
// unblocks, then the loop exits. No caller blocks past a connection failure.
func (s *Session) dispatch(l *link) {
	defer close(l.done)
	s.log.Debug("dispatch loop started")

	for {
		resp, err := s.codec.Receive(l.conn)
		if err != nil {
			l.fail(err)
			s.log.Debug("dispatch loop terminated", "err", err)
			return
		}
		if resp.Status != 0 {
			// Plaintext diagnostic — carries no usable transaction id.
			l.fail(&StatusError{Status: resp.Status, Body: resp.Body})
			s.log.Debug("dispatch loop terminated", "status", resp.Status)
			return
		}

		s.regMu.Lock()
		t, ok := s.transactions[resp.Transaction]
		if ok && t.link == l {
			t.push(resp)
		}
		s.regMu.Unlock()

		if !ok {
			l.fail(fmt.Errorf("%w: id %d (%s)", ErrTransactionNotFound,
				resp.Transaction, resp.ContentType))
			s.log.Debug("dispatch loop terminated", "transaction", resp.Transaction)
			return
		}
		s.log.Debug("frame routed",
			"transaction", resp.Transaction, "contentType", resp.ContentType.String(), "bytes", len(resp.Body))
	}
}
