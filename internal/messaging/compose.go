package messaging

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/caredesk/caredesk/internal/backend"
	"github.com/caredesk/caredesk/internal/care"
	"github.com/caredesk/caredesk/internal/files"
)

// ComposeView is a copy of the compose state for rendering.
type ComposeView struct {
	Text    string
	Staged  *files.Staged
	FileErr error
	Reply   *care.ReplyRef
	CanSend bool
}

// SetComposeText stores the draft text and registers typing activity.
func (c *Controller) SetComposeText(text string) {
	c.mu.Lock()
	c.composeText = text
	c.mu.Unlock()
	if strings.TrimSpace(text) != "" {
		c.TypingActivity()
	}
	c.signal()
}

// TypingActivity is called on each keystroke. The remote flag is set once
// on the first keystroke and the inactivity timer restarts on every one;
// only its expiry clears the flag.
func (c *Controller) TypingActivity() {
	c.mu.Lock()
	sel := c.sel
	if sel == nil {
		c.mu.Unlock()
		return
	}
	conversationID := sel.conversationID
	flag := !c.typingFlagged
	c.typingFlagged = true
	c.typingConvID = conversationID
	if c.typingTimer == nil {
		c.typingTimer = time.AfterFunc(c.typingIdle, c.typingExpired)
	} else {
		c.typingTimer.Reset(c.typingIdle)
	}
	c.mu.Unlock()

	if flag {
		if err := c.backend.SetTyping(conversationID, c.id.UserID, true); err != nil {
			c.log.Warn("set typing failed", zap.Error(err))
		}
	}
}

// typingExpired clears the flag on the conversation it was set for, which
// is not necessarily the one selected by the time the timer fires.
func (c *Controller) typingExpired() {
	c.mu.Lock()
	if !c.typingFlagged {
		c.mu.Unlock()
		return
	}
	c.typingFlagged = false
	conversationID := c.typingConvID
	c.typingConvID = ""
	c.mu.Unlock()

	if conversationID != "" {
		if err := c.backend.SetTyping(conversationID, c.id.UserID, false); err != nil {
			c.log.Warn("clear typing failed", zap.Error(err))
		}
	}
}

func (c *Controller) stopTypingTimer() {
	c.mu.Lock()
	if c.typingTimer != nil {
		c.typingTimer.Stop()
	}
	flagged := c.typingFlagged
	c.typingFlagged = false
	conversationID := c.typingConvID
	c.typingConvID = ""
	c.mu.Unlock()

	if flagged && conversationID != "" {
		if err := c.backend.SetTyping(conversationID, c.id.UserID, false); err != nil {
			c.log.Warn("clear typing failed", zap.Error(err))
		}
	}
}

// AttachFile validates and stages a file for the next send. A validation
// failure is kept on the compose state and blocks sending until the
// attachment is cleared or replaced.
func (c *Controller) AttachFile(name string, payload []byte) {
	staged, err := files.Stage(name, payload, c.now())
	c.mu.Lock()
	if err != nil {
		c.staged = nil
		c.stagedErr = err
	} else {
		c.staged = staged
		c.stagedErr = nil
	}
	c.mu.Unlock()
	c.signal()
}

// ClearAttachment drops the staged file and any validation error.
func (c *Controller) ClearAttachment() {
	c.mu.Lock()
	c.staged = nil
	c.stagedErr = nil
	c.mu.Unlock()
	c.signal()
}

// SetReply stages a reply reference for the next send.
func (c *Controller) SetReply(m care.Message) {
	name := m.SenderID
	c.mu.Lock()
	if c.sel != nil && m.SenderID == c.sel.counterpart.ID {
		name = c.sel.counterpart.DisplayName
	} else if m.SenderID == c.id.UserID {
		name = c.id.DisplayName
	}
	c.reply = &care.ReplyRef{
		MessageID:  m.ID,
		Content:    m.Content,
		SenderID:   m.SenderID,
		SenderName: name,
	}
	c.mu.Unlock()
	c.signal()
}

// ClearReply drops the staged reply reference.
func (c *Controller) ClearReply() {
	c.mu.Lock()
	c.reply = nil
	c.mu.Unlock()
	c.signal()
}

// Compose returns a copy of the compose state.
func (c *Controller) Compose() ComposeView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ComposeView{
		Text:    c.composeText,
		Staged:  c.staged,
		FileErr: c.stagedErr,
		Reply:   c.reply,
		CanSend: c.canSendLocked(),
	}
}

func (c *Controller) canSendLocked() bool {
	if c.stagedErr != nil {
		return false
	}
	return strings.TrimSpace(c.composeText) != "" || c.staged != nil
}

// Send delivers the draft. It requires trimmed text or a staged file and no
// pending file error; otherwise it is a no-op. Compose state resets only on
// success.
func (c *Controller) Send() {
	c.mu.Lock()
	sel := c.sel
	if sel == nil || !c.canSendLocked() {
		c.mu.Unlock()
		return
	}
	req := backend.SendMessageRequest{
		ConversationID: sel.conversationID,
		SenderID:       c.id.UserID,
		Content:        strings.TrimSpace(c.composeText),
		Kind:           care.KindText,
		Reply:          c.reply,
	}
	if c.staged != nil {
		req.Kind = c.staged.Kind
		req.FileName = c.staged.Name
		req.FilePayload = c.staged.Payload
	}
	c.mu.Unlock()

	if err := c.backend.SendMessage(req); err != nil {
		c.log.Warn("send failed", zap.Error(err))
		return
	}

	c.mu.Lock()
	c.composeText = ""
	c.staged = nil
	c.stagedErr = nil
	c.reply = nil
	c.mu.Unlock()
	c.stopTypingTimer()
	c.signal()
}

// Unsend retracts a message for everyone. No-op unless the current user
// sent it.
func (c *Controller) Unsend(m care.Message) {
	if m.SenderID != c.id.UserID {
		return
	}
	if err := c.backend.UnsendMessage(m.ID, c.id.UserID); err != nil {
		c.log.Warn("unsend failed", zap.String("message", m.ID), zap.Error(err))
	}
}

// DeleteForMe hides a message for the current user only.
func (c *Controller) DeleteForMe(m care.Message) {
	if err := c.backend.DeleteMessageForMe(m.ID, c.id.UserID); err != nil {
		c.log.Warn("delete for me failed", zap.String("message", m.ID), zap.Error(err))
	}
}

// DeleteForEveryone removes a message for both parties. No-op unless the
// current user sent it.
func (c *Controller) DeleteForEveryone(m care.Message) {
	if m.SenderID != c.id.UserID {
		return
	}
	if err := c.backend.DeleteMessageForEveryone(m.ID, c.id.UserID); err != nil {
		c.log.Warn("delete for everyone failed", zap.String("message", m.ID), zap.Error(err))
	}
}

// MarkUnread flags a conversation unread for the current user.
func (c *Controller) MarkUnread(conversationID string) {
	if err := c.backend.MarkUnread(conversationID, c.id.UserID); err != nil {
		c.log.Warn("mark unread failed", zap.Error(err))
	}
}

// Mute toggles the current user's mute flag on a conversation.
func (c *Controller) Mute(conversationID string, muted bool) {
	if err := c.backend.MuteConversation(conversationID, c.id.UserID, muted); err != nil {
		c.log.Warn("mute failed", zap.Error(err))
	}
}

// DeleteConversation removes a conversation. If it is the open one, the
// selection is cleared and the UI falls back to the list.
func (c *Controller) DeleteConversation(conversationID string) {
	c.mu.Lock()
	selected := c.sel != nil && c.sel.conversationID == conversationID
	c.mu.Unlock()

	if err := c.backend.DeleteConversation(conversationID); err != nil {
		c.log.Warn("delete conversation failed", zap.Error(err))
		return
	}
	if selected {
		c.Deselect()
	}
}
