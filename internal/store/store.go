// Package store holds the client-side state of the dashboard: who is signed
// in (AuthStore) and the signed-in user's research projects (ProjectStore).
//
// Each store applies every state transition as a message through a single
// reducer under its mutex, so direct calls and auth notifications are
// serialised in arrival order. Results of remote calls carry the token issued
// when the call started; a result older than one already applied is dropped.
package store

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/GoSim-25-26J-441/research-hub/internal/snapshot"
)

var (
	ErrNotAuthenticated = errors.New("User not authenticated")
	ErrNoUser           = errors.New("No user logged in")
)

// Observer is told about every finished store operation.
type Observer func(store, op string, err error)

type options struct {
	log     *zap.Logger
	storage snapshot.Storage
	observe Observer
}

type Option func(*options)

func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithStorage persists snapshots to s. Without it nothing is persisted.
func WithStorage(s snapshot.Storage) Option {
	return func(o *options) { o.storage = s }
}

func WithObserver(fn Observer) Option {
	return func(o *options) { o.observe = fn }
}

func buildOptions(opts []Option) options {
	o := options{log: zap.NewNop(), observe: func(string, string, error) {}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	return o
}

// Error is returned by a failed store operation. Message is the text the
// store recorded in its error field for that failure.
type Error struct {
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// MessageOf returns the message recorded for err by the operation that
// returned it. Errors from elsewhere report their own text.
func MessageOf(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// messageOf is the user-facing text for err.
func messageOf(err error, fallback string) string {
	if err == nil || err.Error() == "" {
		return fallback
	}
	return err.Error()
}

type op struct {
	name  string
	token uint64
	epoch uint64
	start time.Time
}

type listener[S any] struct {
	id int
	fn func(S)
}

// listeners is guarded by the owning store's mutex.
type listeners[S any] struct {
	next int
	all  []listener[S]
}

func (l *listeners[S]) add(fn func(S)) int {
	l.next++
	l.all = append(l.all, listener[S]{id: l.next, fn: fn})
	return l.next
}

func (l *listeners[S]) remove(id int) {
	for i, ls := range l.all {
		if ls.id == id {
			l.all = append(l.all[:i], l.all[i+1:]...)
			return
		}
	}
}

func (l *listeners[S]) notify(state S) {
	for _, ls := range l.all {
		ls.fn(state)
	}
}
