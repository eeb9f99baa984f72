package bus

import "time"

// Event kinds published by the local backend. Subscribers filter by
// namespace prefix, e.g. "message." catches every message-related kind.
const (
	KindAppointmentsChanged  = "appointments.changed"  // payload: affected user id
	KindConversationsChanged = "conversations.changed" // payload: affected user id
	KindMessagesChanged      = "messages.changed"      // payload: conversation id
	KindPresenceChanged      = "presence.changed"      // payload: user id
	KindTypingChanged        = "typing.changed"        // payload: conversation id
)

// Event represents a change notification published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// UserID returns the payload as a user/conversation identifier, or empty
// if the payload is not a string.
func (e Event) UserID() string {
	s, _ := e.Payload.(string)
	return s
}
