package server

import (
	"encoding/json"
	"sync"
)

// Event types pushed to session subscribers.
const (
	EventState    = "state"
	EventFeedback = "feedback"
	EventClosed   = "closed"
)

// Event is one message for a session's subscribers.
type Event struct {
	Type string
	Data any
}

// Message is an encoded Event as delivered to a subscriber.
type Message struct {
	Type string
	Data json.RawMessage
}

// FeedbackEvent is the payload of a feedback event.
type FeedbackEvent struct {
	Kind string `json:"kind" enum:"correct,incorrect"`
}

// Broker is an in-process pub/sub for session events, keyed by session ID.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan Message]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[chan Message]struct{}),
	}
}

// Subscribe returns a channel that receives events for the given session.
func (b *Broker) Subscribe(sessionID string) chan Message {
	ch := make(chan Message, 16)
	b.mu.Lock()
	if b.subs[sessionID] == nil {
		b.subs[sessionID] = make(map[chan Message]struct{})
	}
	b.subs[sessionID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a channel from the session's subscribers.
func (b *Broker) Unsubscribe(sessionID string, ch chan Message) {
	b.mu.Lock()
	delete(b.subs[sessionID], ch)
	if len(b.subs[sessionID]) == 0 {
		delete(b.subs, sessionID)
	}
	b.mu.Unlock()
}

// Publish sends an event to all subscribers of the given session.
func (b *Broker) Publish(sessionID string, event Event) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return
	}
	msg := Message{Type: event.Type, Data: data}
	b.mu.RLock()
	for ch := range b.subs[sessionID] {
		select {
		case ch <- msg:
		default:
			// Drop if subscriber is slow.
		}
	}
	b.mu.RUnlock()
}

// Subscribers returns how many channels listen to the session.
func (b *Broker) Subscribers(sessionID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[sessionID])
}

// Close closes and removes every subscriber channel of the session.
func (b *Broker) Close(sessionID string) {
	b.mu.Lock()
	for ch := range b.subs[sessionID] {
		close(ch)
	}
	delete(b.subs, sessionID)
	b.mu.Unlock()
}

// closing returns what a subscriber of e still has to deliver once e is
// done: the messages buffered on ch, ending with a single closed event.
// A subscription made after the broker closed the session never receives
// that event, so one is made up from the entry.
func closing(e *Entry, ch <-chan Message) []Message {
	var out []Message
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return append(out, closedMessage(e))
			}
			out = append(out, msg)
			if msg.Type == EventClosed {
				return out
			}
		default:
			return append(out, closedMessage(e))
		}
	}
}

func closedMessage(e *Entry) Message {
	ev := e.closedEvent()
	data, _ := json.Marshal(ev.Data)
	return Message{Type: ev.Type, Data: data}
}
