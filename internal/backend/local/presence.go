package local

import (
	"fmt"

	"github.com/caredesk/caredesk/internal/backend"
	"github.com/caredesk/caredesk/internal/bus"
	"github.com/caredesk/caredesk/internal/care"
)

// SubscribePresence yields a user's presence on every presence change.
func (s *Service) SubscribePresence(userID string) *backend.Stream[care.Presence] {
	return stream(s, bus.KindPresenceChanged, userID, func() (care.Presence, error) {
		return s.db.GetPresence(userID)
	})
}

// SetPresence marks a user online or offline and stamps their last activity.
func (s *Service) SetPresence(userID string, online bool) error {
	if err := s.db.SetPresence(userID, online, s.now()); err != nil {
		return fmt.Errorf("set presence: %w", err)
	}
	s.publish(bus.KindPresenceChanged, userID)
	return nil
}

// SubscribeTyping yields the set of counterparts currently typing in a
// conversation. The viewer's own flag is excluded.
func (s *Service) SubscribeTyping(conversationID, viewerID string) *backend.Stream[backend.TypingState] {
	return stream(s, bus.KindTypingChanged, conversationID, func() (backend.TypingState, error) {
		return s.typingFor(conversationID, viewerID), nil
	})
}

// SetTyping flags or clears a user's typing state in a conversation.
// Typing flags are ephemeral and never touch the store.
func (s *Service) SetTyping(conversationID, userID string, typing bool) error {
	s.mu.Lock()
	flags := s.typing[conversationID]
	if typing {
		if flags == nil {
			flags = make(map[string]bool)
			s.typing[conversationID] = flags
		}
		flags[userID] = true
	} else if flags != nil {
		delete(flags, userID)
		if len(flags) == 0 {
			delete(s.typing, conversationID)
		}
	}
	s.mu.Unlock()

	s.publish(bus.KindTypingChanged, conversationID)
	return nil
}

func (s *Service) typingFor(conversationID, viewerID string) backend.TypingState {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := make(backend.TypingState)
	for uid := range s.typing[conversationID] {
		if uid != viewerID {
			state[uid] = true
		}
	}
	return state
}
