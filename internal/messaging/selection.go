package messaging

import (
	"go.uber.org/zap"

	"github.com/caredesk/caredesk/internal/backend"
	"github.com/caredesk/caredesk/internal/care"
)

// selection is the state of the currently open conversation. It owns three
// live streams (messages, counterpart presence, typing) that are cancelled
// as a unit when the selection changes or the controller stops.
type selection struct {
	conversationID string
	counterpart    care.Profile
	presence       care.Presence
	typing         backend.TypingState

	older          []care.Message // paged-in history, oldest first
	recent         []care.Message // live window, oldest first
	olderExhausted bool

	msgStream      *backend.Stream[[]care.Message]
	presenceStream *backend.Stream[care.Presence]
	typingStream   *backend.Stream[backend.TypingState]
}

func (s *selection) cancel() {
	s.msgStream.Cancel()
	s.presenceStream.Cancel()
	s.typingStream.Cancel()
}

// SelectionView is a copy of the open conversation's state for rendering.
type SelectionView struct {
	ConversationID    string
	Counterpart       care.Profile
	Presence          care.Presence
	CounterpartTyping bool
	Messages          []care.Message
	OlderExhausted    bool
}

// Select opens a conversation: resolves the counterpart profile, starts the
// message/presence/typing streams, and marks the conversation read. Any
// previous selection is torn down first.
func (c *Controller) Select(conversationID string) {
	c.Deselect()

	c.mu.Lock()
	counterpartID := ""
	for _, conv := range c.conversations {
		if conv.ID == conversationID {
			counterpartID = conv.OtherParticipant(c.id.UserID)
			break
		}
	}
	c.mu.Unlock()

	// A freshly created conversation is not in the cached snapshot yet;
	// resolve it from the backend instead.
	if counterpartID == "" {
		if conv, err := c.backend.GetConversation(conversationID); err != nil {
			c.log.Warn("fetch conversation failed",
				zap.String("conversation", conversationID), zap.Error(err))
		} else if conv != nil {
			counterpartID = conv.OtherParticipant(c.id.UserID)
		}
	}

	sel := &selection{
		conversationID: conversationID,
		typing:         backend.TypingState{},
	}
	if counterpartID != "" {
		if p, err := c.backend.FetchUser(counterpartID); err != nil {
			c.log.Warn("fetch counterpart failed",
				zap.String("user", counterpartID), zap.Error(err))
		} else if p != nil {
			sel.counterpart = *p
		}
	}

	sel.msgStream = c.backend.SubscribeMessages(conversationID, c.id.UserID)
	sel.presenceStream = c.backend.SubscribePresence(counterpartID)
	sel.typingStream = c.backend.SubscribeTyping(conversationID, c.id.UserID)

	c.mu.Lock()
	c.sel = sel
	c.mu.Unlock()

	if err := c.backend.MarkRead(conversationID, c.id.UserID); err != nil {
		c.log.Warn("mark read failed", zap.Error(err))
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-sel.msgStream.Done():
				return
			case snapshot, ok := <-sel.msgStream.Updates():
				if !ok {
					return
				}
				c.mu.Lock()
				if c.sel == sel {
					sel.recent = snapshot
				}
				c.mu.Unlock()
				c.signal()
			case presence, ok := <-sel.presenceStream.Updates():
				if !ok {
					return
				}
				c.mu.Lock()
				if c.sel == sel {
					sel.presence = presence
				}
				c.mu.Unlock()
				c.signal()
			case typing, ok := <-sel.typingStream.Updates():
				if !ok {
					return
				}
				c.mu.Lock()
				if c.sel == sel {
					sel.typing = typing
				}
				c.mu.Unlock()
				c.signal()
			}
		}
	}()
	c.signal()
}

// Deselect closes the open conversation and cancels its streams. A pending
// typing flag is reversed here, on the conversation it was set for, so a
// selection change never strands it.
func (c *Controller) Deselect() {
	c.mu.Lock()
	sel := c.sel
	c.sel = nil
	c.mu.Unlock()
	c.stopTypingTimer()
	if sel != nil {
		sel.cancel()
		c.signal()
	}
}

// Selection returns a copy of the open conversation's state, or nil when
// no conversation is selected.
func (c *Controller) Selection() *SelectionView {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sel == nil {
		return nil
	}
	return &SelectionView{
		ConversationID:    c.sel.conversationID,
		Counterpart:       c.sel.counterpart,
		Presence:          c.sel.presence,
		CounterpartTyping: len(c.sel.typing) > 0,
		Messages:          c.sel.messages(),
		OlderExhausted:    c.sel.olderExhausted,
	}
}

// messages joins paged-in history with the live window, oldest first,
// dropping history entries the live window re-delivered.
func (s *selection) messages() []care.Message {
	inRecent := make(map[string]bool, len(s.recent))
	for _, m := range s.recent {
		inRecent[m.ID] = true
	}
	out := make([]care.Message, 0, len(s.older)+len(s.recent))
	for _, m := range s.older {
		if !inRecent[m.ID] {
			out = append(out, m)
		}
	}
	return append(out, s.recent...)
}

// LoadOlder pages in up to OlderPageSize messages strictly older than the
// oldest loaded one. Duplicate deliveries are dropped by id; an empty fetch
// marks the history exhausted and stops further fetches.
func (c *Controller) LoadOlder() {
	c.mu.Lock()
	sel := c.sel
	if sel == nil || sel.olderExhausted {
		c.mu.Unlock()
		return
	}
	loaded := sel.messages()
	if len(loaded) == 0 {
		c.mu.Unlock()
		return
	}
	before := loaded[0].Timestamp
	conversationID := sel.conversationID
	c.mu.Unlock()

	older, err := c.backend.FetchOlderMessages(conversationID, c.id.UserID, before, OlderPageSize)
	if err != nil {
		c.log.Warn("fetch older messages failed", zap.Error(err))
		return
	}

	c.mu.Lock()
	defer func() {
		c.mu.Unlock()
		c.signal()
	}()
	if c.sel != sel {
		return
	}
	if len(older) == 0 {
		sel.olderExhausted = true
		return
	}
	known := make(map[string]bool)
	for _, m := range sel.messages() {
		known[m.ID] = true
	}
	fresh := older[:0:0]
	for _, m := range older {
		if !known[m.ID] {
			fresh = append(fresh, m)
		}
	}
	merged := make([]care.Message, 0, len(fresh)+len(sel.older))
	merged = append(merged, fresh...)
	merged = append(merged, sel.older...)
	sel.older = merged
}
