package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// State is the widget's position in the send lifecycle.
type State string

const (
	StateClosed  State = "closed"
	StateIdle    State = "idle"
	StateSending State = "sending"
)

var (
	// ErrBusy is returned when a send is attempted while one is in flight.
	ErrBusy = errors.New("a message is already being sent")
	// ErrClosed is returned when sending through a closed widget.
	ErrClosed = errors.New("chat widget is closed")
	// ErrEmptyMessage is returned for blank input.
	ErrEmptyMessage = errors.New("message is empty")
)

// Sender is satisfied by *Client.
type Sender interface {
	Send(ctx context.Context, message, sessionID string) Reply
}

// Widget drives one visitor conversation: it owns the session id, refuses
// overlapping sends and records every exchange.
type Widget struct {
	sender  Sender
	store   Store
	storage Storage
	now     func() time.Time

	mu      sync.Mutex
	state   State
	session *Session
}

// NewWidget creates a closed widget. store may be nil.
func NewWidget(sender Sender, store Store, storage Storage) *Widget {
	if storage == nil {
		storage = NewMapStorage()
	}
	return &Widget{
		sender:  sender,
		store:   store,
		storage: storage,
		now:     time.Now,
		state:   StateClosed,
	}
}

// Open starts a fresh session and persists its id under SessionStorageKey.
// Opening an open widget keeps the current session.
func (w *Widget) Open() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateClosed {
		return w.session.ID
	}
	w.session = NewSession("")
	w.storage.Set(SessionStorageKey, w.session.ID)
	w.state = StateIdle
	return w.session.ID
}

// Close hides an idle widget; it has no effect while a send is in flight.
func (w *Widget) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == StateIdle {
		w.state = StateClosed
	}
}

// State reports the current lifecycle state.
func (w *Widget) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Transcript returns a copy of the current conversation.
func (w *Widget) Transcript() *Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.session == nil {
		return NewSession("")
	}
	return w.session.Snapshot()
}

// Send appends the visitor message, waits for the assistant and appends
// exactly one bot message, even when the request failed.
func (w *Widget) Send(ctx context.Context, text string) (Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{}, ErrEmptyMessage
	}

	w.mu.Lock()
	switch w.state {
	case StateClosed:
		w.mu.Unlock()
		return Reply{}, ErrClosed
	case StateSending:
		w.mu.Unlock()
		return Reply{}, ErrBusy
	}
	w.state = StateSending
	sess := w.session
	user := userMessage(text, w.now())
	sess.Append(user)
	w.mu.Unlock()

	reply := w.sender.Send(ctx, text, sess.ID)
	bot := botMessage(reply, w.now())

	w.mu.Lock()
	sess.Append(bot)
	if w.state == StateSending {
		w.state = StateIdle
	}
	w.mu.Unlock()

	if w.store != nil {
		if err := w.store.Append(ctx, sess.ID, user, bot); err != nil {
			return reply, err
		}
	}
	return reply, nil
}
