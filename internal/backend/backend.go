// Package backend defines the stream abstraction and shared request types
// for the external service contract the controllers consume. Concrete
// implementations live in subpackages (backend/local).
package backend

import (
	"sync"

	"github.com/caredesk/caredesk/internal/care"
)

// Stream is a live subscription handle. The producer pushes full snapshots
// on Updates; Cancel stops the producer and is safe to call more than once.
// After Cancel returns no further snapshots are delivered.
type Stream[T any] struct {
	ch   chan T
	done chan struct{}
	once sync.Once
}

// NewStream creates a stream with the given channel buffer.
func NewStream[T any](buf int) *Stream[T] {
	return &Stream[T]{
		ch:   make(chan T, buf),
		done: make(chan struct{}),
	}
}

// Updates returns the snapshot channel.
func (s *Stream[T]) Updates() <-chan T {
	return s.ch
}

// Cancel stops the subscription. Idempotent.
func (s *Stream[T]) Cancel() {
	s.once.Do(func() { close(s.done) })
}

// Done returns a channel closed when the stream is cancelled. Producers
// select on it.
func (s *Stream[T]) Done() <-chan struct{} {
	return s.done
}

// Emit pushes a snapshot unless the stream was cancelled. The most recent
// undelivered snapshot wins: if the buffer is full the oldest queued one is
// discarded first, so a slow consumer always ends up with fresh state.
func (s *Stream[T]) Emit(v T) {
	select {
	case <-s.done:
		return
	default:
	}
	for {
		select {
		case s.ch <- v:
			return
		default:
			select {
			case <-s.ch:
			default:
			}
		}
	}
}

// SendMessageRequest carries everything one send call needs. Content falls
// back to FileName when empty and a file is attached.
type SendMessageRequest struct {
	ConversationID string
	SenderID       string
	Content        string
	Kind           care.MessageKind
	FileName       string
	FilePayload    []byte
	Reply          *care.ReplyRef
}

// TypingState maps user id -> true for every counterpart currently typing
// in a conversation.
type TypingState map[string]bool
