package session

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout reports that no response arrived within the caller's
	// deadline. The transaction may still receive a stale frame later;
	// it is discarded on unregistration.
	ErrTimeout = errors.New("session: timed out waiting for response")

	// ErrClosed reports that the session was closed locally.
	ErrClosed = errors.New("session: closed")

	// ErrIllegalResponse reports a frame tagged with the illegal content
	// type. Fatal to the transaction that received it.
	ErrIllegalResponse = errors.New("session: illegal response")

	// ErrTransactionNotFound reports an inbound frame whose transaction id
	// matches no registered transaction — a protocol violation, fatal to
	// the connection.
	ErrTransactionNotFound = errors.New("session: response for unknown transaction")

	// ErrMissingPassword reports that no password was configured and the
	// PHOTOSHOP_PASSWORD environment variable is unset.
	ErrMissingPassword = errors.New("session: no password configured")
)

// StatusError is a peer-reported failure: a frame with a non-zero top-level
// status word. The trailing bytes are plaintext diagnostics and were not
// decrypted. In practice this almost always means the shared password does
// not match.
type StatusError struct {
	Status uint32
	Body   []byte
}

func (e *StatusError) Error() string {
	body := e.Body
	suffix := ""
	if len(body) > 12 {
		body, suffix = body[:12], "..."
	}
	return fmt.Sprintf("session: remote status %d (incorrect password?): %q%s", e.Status, body, suffix)
}

// ScriptError is a script execution failure reported by the peer as an
// errorString frame. The connection remains usable.
type ScriptError struct {
	Message string
}

func (e *ScriptError) Error() string {
	return "session: remote error: " + e.Message
}
