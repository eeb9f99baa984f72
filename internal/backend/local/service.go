// Package local is the SQLite-backed implementation of the external service
// contract. Every write publishes a change event on the bus; subscriptions
// re-query and push a fresh snapshot, which gives the controllers genuine
// live-subscription semantics without a remote backend.
package local

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/caredesk/caredesk/internal/backend"
	"github.com/caredesk/caredesk/internal/bus"
	"github.com/caredesk/caredesk/internal/store"
)

var (
	// ErrNotAllowed is returned when a caller is not authorized for a
	// message lifecycle action (e.g. unsending someone else's message).
	ErrNotAllowed = errors.New("not allowed")
	// ErrNotFound is returned when the target entity does not exist.
	ErrNotFound = errors.New("not found")
)

// Service implements the external operations over the local store.
type Service struct {
	db  *store.DB
	bus *bus.Bus
	log *zap.Logger
	now func() time.Time

	mu     sync.Mutex
	typing map[string]map[string]bool // conversation id -> user id -> typing
}

// New creates the local backend service.
func New(db *store.DB, b *bus.Bus, log *zap.Logger) *Service {
	return &Service{
		db:     db,
		bus:    b,
		log:    log,
		now:    time.Now,
		typing: make(map[string]map[string]bool),
	}
}

func (s *Service) publish(kind, id string) {
	s.bus.Publish(bus.Event{Kind: kind, Timestamp: s.now(), Payload: id})
}

// stream is the shared subscription loop: query an initial snapshot, then
// re-query on every matching bus event until the stream is cancelled. When
// id is non-empty only events carrying that id trigger a re-query.
func stream[T any](s *Service, namespace, id string, load func() (T, error)) *backend.Stream[T] {
	out := backend.NewStream[T](1)
	events, unsub := s.bus.Subscribe(namespace, 16)

	go func() {
		defer unsub()
		push := func() {
			snap, err := load()
			if err != nil {
				s.log.Warn("snapshot query failed",
					zap.String("namespace", namespace), zap.Error(err))
				return
			}
			out.Emit(snap)
		}
		push()
		for {
			select {
			case <-out.Done():
				return
			case evt := <-events:
				if id != "" && evt.UserID() != id {
					continue
				}
				push()
			}
		}
	}()
	return out
}
