// Package messaging owns the chat surface: the live conversation list, the
// active conversation's message window with backward pagination, presence,
// the typing debounce, and compose state.
package messaging

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/caredesk/caredesk/internal/auth"
	"github.com/caredesk/caredesk/internal/backend"
	"github.com/caredesk/caredesk/internal/care"
	"github.com/caredesk/caredesk/internal/files"
)

// OlderPageSize is how many messages one backward-pagination fetch loads.
const OlderPageSize = 20

// DefaultTypingIdle is the inactivity window after which the typing flag
// is cleared.
const DefaultTypingIdle = 5 * time.Second

// Filter selects which conversations the list shows.
type Filter string

const (
	FilterAll    Filter = "all"
	FilterUnread Filter = "unread"
	FilterRead   Filter = "read"
)

// Backend is the slice of the external service this controller needs.
type Backend interface {
	SubscribeConversations(userID string) *backend.Stream[[]care.Conversation]
	SubscribeMessages(conversationID, viewerID string) *backend.Stream[[]care.Message]
	SubscribePresence(userID string) *backend.Stream[care.Presence]
	SubscribeTyping(conversationID, viewerID string) *backend.Stream[backend.TypingState]
	FetchOlderMessages(conversationID, viewerID string, before time.Time, limit int) ([]care.Message, error)
	SendMessage(req backend.SendMessageRequest) error
	UnsendMessage(messageID, requesterID string) error
	DeleteMessageForMe(messageID, userID string) error
	DeleteMessageForEveryone(messageID, requesterID string) error
	MarkRead(conversationID, userID string) error
	MarkUnread(conversationID, userID string) error
	MuteConversation(conversationID, userID string, muted bool) error
	DeleteConversation(conversationID string) error
	SetPresence(userID string, online bool) error
	SetTyping(conversationID, userID string, typing bool) error
	FetchUser(id string) (*care.Profile, error)
	GetConversation(id string) (*care.Conversation, error)
	StartConversation(userA, userB string) (string, error)
}

// ConversationView is one row of the conversation list.
type ConversationView struct {
	ID          string
	Counterpart care.Profile
	Unread      int
	Muted       bool
	LastMessage *care.LastMessage
	UpdatedAt   time.Time
}

// Controller maintains the messaging state for one signed-in user.
type Controller struct {
	backend Backend
	id      auth.Identity
	log     *zap.Logger

	// Injectable for tests.
	now        func() time.Time
	typingIdle time.Duration

	mu            sync.Mutex
	conversations []care.Conversation
	search        string
	filter        Filter

	sel *selection

	composeText string
	staged      *files.Staged
	stagedErr   error
	reply       *care.ReplyRef

	typingFlagged bool
	typingConvID  string
	typingTimer   *time.Timer

	updates chan struct{}

	stop       func()
	wg         sync.WaitGroup
	convStream *backend.Stream[[]care.Conversation]
}

// New creates the controller. Start must be called before the view is live.
func New(b Backend, id auth.Identity, log *zap.Logger) *Controller {
	return &Controller{
		backend:    b,
		id:         id,
		log:        log,
		now:        time.Now,
		typingIdle: DefaultTypingIdle,
		filter:     FilterAll,
		updates:    make(chan struct{}, 1),
	}
}

// Start marks the user online and subscribes to their conversation list.
func (c *Controller) Start(ctx context.Context) {
	if err := c.backend.SetPresence(c.id.UserID, true); err != nil {
		c.log.Warn("set presence online failed", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(ctx)
	c.stop = cancel
	c.convStream = c.backend.SubscribeConversations(c.id.UserID)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-ctx.Done():
				c.convStream.Cancel()
				return
			case snapshot, ok := <-c.convStream.Updates():
				if !ok {
					return
				}
				c.mu.Lock()
				c.conversations = snapshot
				c.mu.Unlock()
				c.signal()
			}
		}
	}()
}

// Stop tears down the selection, the subscription, and marks the user
// offline. Presence runs last so it applies even when teardown is abrupt.
func (c *Controller) Stop() {
	c.Deselect()
	if c.stop != nil {
		c.stop()
	}
	if c.convStream != nil {
		c.convStream.Cancel()
	}
	c.wg.Wait()
	c.stopTypingTimer()
	if err := c.backend.SetPresence(c.id.UserID, false); err != nil {
		c.log.Warn("set presence offline failed", zap.Error(err))
	}
}

// Updates signals whenever any visible messaging state may have changed.
func (c *Controller) Updates() <-chan struct{} { return c.updates }

// SetSearch updates the conversation search term.
func (c *Controller) SetSearch(q string) {
	c.mu.Lock()
	c.search = strings.ToLower(strings.TrimSpace(q))
	c.mu.Unlock()
	c.signal()
}

// SetFilter switches between all/unread/read.
func (c *Controller) SetFilter(f Filter) {
	c.mu.Lock()
	c.filter = f
	c.mu.Unlock()
	c.signal()
}

// Conversations builds the filtered, ordered conversation list.
func (c *Controller) Conversations() []ConversationView {
	c.mu.Lock()
	defer c.mu.Unlock()

	var views []ConversationView
	for _, conv := range c.conversations {
		v := ConversationView{
			ID:          conv.ID,
			Counterpart: conv.Details[conv.OtherParticipant(c.id.UserID)],
			Unread:      conv.UnreadFor(c.id.UserID),
			Muted:       conv.MutedFor(c.id.UserID),
			LastMessage: conv.LastMessage,
			UpdatedAt:   conv.UpdatedAt,
		}
		switch c.filter {
		case FilterUnread:
			if v.Unread == 0 {
				continue
			}
		case FilterRead:
			if v.Unread > 0 {
				continue
			}
		}
		if c.search != "" &&
			!strings.Contains(strings.ToLower(v.Counterpart.DisplayName), c.search) &&
			!strings.Contains(strings.ToLower(v.Counterpart.Specialty), c.search) {
			continue
		}
		views = append(views, v)
	}

	// Newest activity first; a missing timestamp sorts as epoch zero.
	slices.SortStableFunc(views, func(a, b ConversationView) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return views
}

// StartConversation opens (or reuses) a conversation with the given user
// and selects it.
func (c *Controller) StartConversation(otherID string) {
	id, err := c.backend.StartConversation(c.id.UserID, otherID)
	if err != nil {
		c.log.Warn("start conversation failed", zap.Error(err))
		return
	}
	c.Select(id)
}

func (c *Controller) signal() {
	select {
	case c.updates <- struct{}{}:
	default:
	}
}
