package local

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/caredesk/caredesk/internal/backend"
	"github.com/caredesk/caredesk/internal/bus"
	"github.com/caredesk/caredesk/internal/care"
)

// SubscribeConversations yields the user's full conversation list on every
// change affecting one of their conversations.
func (s *Service) SubscribeConversations(userID string) *backend.Stream[[]care.Conversation] {
	return stream(s, bus.KindConversationsChanged, userID, func() ([]care.Conversation, error) {
		return s.db.ListConversations(userID)
	})
}

// StartConversation returns the conversation id for the pair, creating it
// when none exists yet.
func (s *Service) StartConversation(userA, userB string) (string, error) {
	id, err := s.db.CreateConversation(uuid.NewString(), userA, userB, s.now())
	if err != nil {
		return "", fmt.Errorf("start conversation: %w", err)
	}
	s.publish(bus.KindConversationsChanged, userA)
	s.publish(bus.KindConversationsChanged, userB)
	return id, nil
}

// GetConversation loads one conversation with participant details. Returns
// nil when it does not exist.
func (s *Service) GetConversation(id string) (*care.Conversation, error) {
	c, err := s.db.GetConversation(id)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return c, nil
}

// MarkRead zeroes the user's unread counter for a conversation.
func (s *Service) MarkRead(conversationID, userID string) error {
	if err := s.db.SetUnread(conversationID, userID, 0); err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	s.publish(bus.KindConversationsChanged, userID)
	return nil
}

// MarkUnread flags a conversation unread for the user.
func (s *Service) MarkUnread(conversationID, userID string) error {
	if err := s.db.SetUnread(conversationID, userID, 1); err != nil {
		return fmt.Errorf("mark unread: %w", err)
	}
	s.publish(bus.KindConversationsChanged, userID)
	return nil
}

// MuteConversation toggles the user's mute flag for a conversation.
func (s *Service) MuteConversation(conversationID, userID string, muted bool) error {
	if err := s.db.SetMuted(conversationID, userID, muted); err != nil {
		return fmt.Errorf("mute conversation: %w", err)
	}
	s.publish(bus.KindConversationsChanged, userID)
	return nil
}

// DeleteConversation removes a conversation and its messages for both
// participants. Idempotent: deleting an absent conversation is a no-op.
func (s *Service) DeleteConversation(conversationID string) error {
	c, err := s.db.GetConversation(conversationID)
	if err != nil {
		return fmt.Errorf("load conversation: %w", err)
	}
	if c == nil {
		return nil
	}
	if err := s.db.DeleteConversation(conversationID); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	s.publish(bus.KindMessagesChanged, conversationID)
	for _, uid := range c.Participants {
		s.publish(bus.KindConversationsChanged, uid)
	}
	return nil
}
