package local

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/caredesk/caredesk/internal/backend"
	"github.com/caredesk/caredesk/internal/bus"
	"github.com/caredesk/caredesk/internal/care"
)

// recentMessageLimit bounds the live message subscription to the newest
// messages; older history is reached through FetchOlderMessages.
const recentMessageLimit = 30

// SubscribeMessages yields the newest messages of a conversation, oldest
// first, excluding messages the viewer deleted for themselves.
func (s *Service) SubscribeMessages(conversationID, viewerID string) *backend.Stream[[]care.Message] {
	return stream(s, bus.KindMessagesChanged, conversationID, func() ([]care.Message, error) {
		msgs, err := s.db.ListRecentMessages(conversationID, viewerID, recentMessageLimit)
		if err != nil {
			return nil, err
		}
		slices.Reverse(msgs)
		return msgs, nil
	})
}

// FetchOlderMessages returns up to limit messages strictly older than the
// given timestamp, oldest first, honoring the viewer's deletions.
func (s *Service) FetchOlderMessages(conversationID, viewerID string, before time.Time, limit int) ([]care.Message, error) {
	msgs, err := s.db.ListMessagesBefore(conversationID, viewerID, before, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch older messages: %w", err)
	}
	slices.Reverse(msgs)
	return msgs, nil
}

// SendMessage stores a new message, bumps the counterpart's unread counter,
// and refreshes the conversation's last-message snapshot. Empty content with
// an attached file falls back to the file name.
func (s *Service) SendMessage(req backend.SendMessageRequest) error {
	content := strings.TrimSpace(req.Content)
	if content == "" && req.FileName != "" {
		content = req.FileName
	}
	if content == "" {
		return fmt.Errorf("send message: empty content: %w", ErrNotAllowed)
	}
	kind := req.Kind
	if kind == "" {
		kind = care.KindText
	}

	c, err := s.db.GetConversation(req.ConversationID)
	if err != nil {
		return fmt.Errorf("load conversation: %w", err)
	}
	if c == nil {
		return fmt.Errorf("conversation %s: %w", req.ConversationID, ErrNotFound)
	}

	now := s.now()
	msg := &care.Message{
		ID:             uuid.NewString(),
		ConversationID: req.ConversationID,
		SenderID:       req.SenderID,
		Content:        content,
		Kind:           kind,
		FileName:       req.FileName,
		FileSize:       int64(len(req.FilePayload)),
		Timestamp:      now,
		Status:         care.MessageSent,
		Reply:          req.Reply,
	}
	if err := s.db.InsertMessage(msg); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	last := care.LastMessage{Content: content, SenderID: req.SenderID, Kind: kind}
	if err := s.db.TouchConversation(req.ConversationID, last, now); err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	if other := c.OtherParticipant(req.SenderID); other != "" {
		if err := s.db.IncrementUnread(req.ConversationID, other); err != nil {
			return fmt.Errorf("bump unread: %w", err)
		}
	}

	s.publish(bus.KindMessagesChanged, req.ConversationID)
	for _, uid := range c.Participants {
		s.publish(bus.KindConversationsChanged, uid)
	}
	return nil
}

// UnsendMessage retracts a message for everyone. Sender only.
func (s *Service) UnsendMessage(messageID, requesterID string) error {
	return s.retract(messageID, requesterID, care.MessageUnsent)
}

// DeleteMessageForEveryone removes a message's content for both parties.
// Sender only.
func (s *Service) DeleteMessageForEveryone(messageID, requesterID string) error {
	return s.retract(messageID, requesterID, care.MessageDeleted)
}

// DeleteMessageForMe hides a message for one viewer only. Idempotent.
func (s *Service) DeleteMessageForMe(messageID, userID string) error {
	m, err := s.db.GetMessage(messageID)
	if err != nil {
		return fmt.Errorf("load message: %w", err)
	}
	if m == nil {
		return nil
	}
	if err := s.db.MarkDeletedFor(messageID, userID); err != nil {
		return fmt.Errorf("delete for me: %w", err)
	}
	s.publish(bus.KindMessagesChanged, m.ConversationID)
	return nil
}

func (s *Service) retract(messageID, requesterID string, status care.MessageStatus) error {
	m, err := s.db.GetMessage(messageID)
	if err != nil {
		return fmt.Errorf("load message: %w", err)
	}
	if m == nil {
		return fmt.Errorf("message %s: %w", messageID, ErrNotFound)
	}
	if m.SenderID != requesterID {
		return fmt.Errorf("message %s: requester is not the sender: %w", messageID, ErrNotAllowed)
	}
	if err := s.db.SetMessageStatus(messageID, status); err != nil {
		return fmt.Errorf("set message status: %w", err)
	}
	s.publish(bus.KindMessagesChanged, m.ConversationID)
	return nil
}
