package session

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/psconn-dev/psconn/protocol"
)

// Event payloads arrive as "<eventName>\r<payload>".
const eventDelimiter = '\r'

// EventHandler receives one event payload. Returning true stops the
// subscription; the unsubscribe command is then sent and acknowledged.
type EventHandler func(s *Session, payload []byte) (stop bool)

// Subscribe registers for the named event. A dedicated goroutine holds one
// long-lived transaction and invokes handler for every event frame pushed
// on it; command acknowledgements are skipped. Connection-level failures
// terminate the subscription silently (logged) — the goroutine has no
// synchronous caller to report to. With block set, Subscribe returns only
// after the subscription ends; otherwise the goroutine is joined by Close.
func (s *Session) Subscribe(event string, handler EventHandler, block bool) error {
	if handler == nil {
		return errors.New("session: nil event handler")
	}
	s.subscribers.Add(1)
	if block {
		s.listenEvents(event, handler)
		return nil
	}
	go s.listenEvents(event, handler)
	return nil
}

func (s *Session) listenEvents(event string, handler EventHandler) {
	defer s.subscribers.Done()

	log := s.log.With("event", event)
	if err := s.runSubscription(event, handler); err != nil {
		// Subscription errors have nowhere to propagate once detached.
		if errors.Is(err, protocol.ErrConnectionClosed) || errors.Is(err, ErrClosed) {
			log.Debug("subscription terminated", "err", err)
		} else {
			log.Error("subscription terminated", "err", err)
		}
		return
	}
	log.Debug("subscription stopped by handler")

	// Normal termination: tell the peer to stop pushing this event.
	if err := s.unsubscribe(event); err != nil {
		log.Error("unsubscribe failed", "err", err)
	}
}

// runSubscription holds one transaction open and pumps event frames to the
// handler until it signals stop (nil return) or the transaction fails.
func (s *Session) runSubscription(event string, handler EventHandler) error {
	t, err := s.begin()
	if err != nil {
		return err
	}
	defer s.end(t)

	if err := t.send(protocol.ContentScriptShared, []byte(subscribeScript(event))); err != nil {
		return err
	}
	for {
		resp, err := t.receive(0)
		if err != nil {
			return err
		}
		if string(resp.Body) == actionDescriptorAck {
			// Just the subscribe command's ack, not an event payload.
			continue
		}
		name, payload, _ := bytes.Cut(resp.Body, []byte{eventDelimiter})
		if string(name) != event {
			return fmt.Errorf("session: expected %q event, got %q", event, name)
		}
		if handler(s, payload) {
			return nil
		}
	}
}

func (s *Session) unsubscribe(event string) error {
	t, err := s.begin()
	if err != nil {
		return err
	}
	defer s.end(t)

	if err := t.send(protocol.ContentScriptShared, []byte(unsubscribeScript(event))); err != nil {
		return err
	}
	resp, err := t.receive(s.cfg.Timeout)
	if err != nil {
		return err
	}
	if string(resp.Body) != actionDescriptorAck {
		return fmt.Errorf("session: unexpected unsubscribe reply: %q", resp.Body)
	}
	return nil
}
