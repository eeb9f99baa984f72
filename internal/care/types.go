// Package care defines the domain model shared by the controllers, the
// store, and the backend implementations.
package care

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Role identifies which side of the platform a user belongs to.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
)

// AppointmentStatus is the lifecycle state of an appointment.
type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentApproved  AppointmentStatus = "approved"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

// validAppointmentTransitions defines allowed status transitions.
// A cancelled appointment is never mutated back; rescheduling creates
// a fresh pending record instead.
var validAppointmentTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentPending:  {AppointmentApproved, AppointmentCancelled},
	AppointmentApproved: {AppointmentCompleted, AppointmentCancelled},
}

// CanTransition reports whether an appointment may move from one status
// to another.
func CanTransition(from, to AppointmentStatus) bool {
	return slices.Contains(validAppointmentTransitions[from], to)
}

// Appointment is a scheduled visit between a patient and a doctor.
// Date and Time are kept as the calendar strings the backend stores
// ("2006-01-02" and "15:04"); StartsAt combines them.
type Appointment struct {
	ID         string
	PatientID  string
	DoctorID   string
	DoctorName string
	Specialty  string
	Date       string
	Time       string
	Type       string
	Status     AppointmentStatus
	Notes      string
	CancelNote string
	UpdatedAt  time.Time
}

// StartsAt parses the appointment's date and time in the given location.
func (a Appointment) StartsAt(loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02 15:04", a.Date+" "+a.Time, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse appointment %s schedule: %w", a.ID, err)
	}
	return t, nil
}

// MessageKind classifies message content.
type MessageKind string

const (
	KindText  MessageKind = "text"
	KindImage MessageKind = "image"
	KindAudio MessageKind = "audio"
	KindVideo MessageKind = "video"
	KindFile  MessageKind = "file"
)

// DetectKind maps a MIME type to a message kind by prefix. Anything
// unrecognized is a plain file attachment.
func DetectKind(mimeType string) MessageKind {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return KindImage
	case strings.HasPrefix(mimeType, "audio/"):
		return KindAudio
	case strings.HasPrefix(mimeType, "video/"):
		return KindVideo
	default:
		return KindFile
	}
}

// MessageStatus is the delivery/visibility state of a message. Per-viewer
// "deleted for me" is tracked separately and never changes the status.
type MessageStatus string

const (
	MessageSent    MessageStatus = "sent"
	MessageUnsent  MessageStatus = "unsent"
	MessageDeleted MessageStatus = "deleted"
)

// ReplyRef is a denormalized summary of a replied-to message, embedded so
// the preview renders without an extra lookup.
type ReplyRef struct {
	MessageID  string
	Content    string
	SenderID   string
	SenderName string
}

// Message is a single chat message.
type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	Content        string
	Kind           MessageKind
	FileName       string
	FileSize       int64
	Timestamp      time.Time
	Status         MessageStatus
	Reply          *ReplyRef
}

// Renderable reports whether the message content may be shown at all.
// Unsent and deleted-for-everyone messages render as placeholders only.
func (m Message) Renderable() bool {
	return m.Status == MessageSent
}

// LastMessage is the conversation-level snapshot of the newest message.
type LastMessage struct {
	Content  string
	SenderID string
	Kind     MessageKind
}

// Conversation is a two-party message thread. The participant pair is
// immutable after creation.
type Conversation struct {
	ID           string
	Participants [2]string
	Details      map[string]Profile
	UnreadCounts map[string]int
	Muted        map[string]bool
	LastMessage  *LastMessage
	UpdatedAt    time.Time
}

// OtherParticipant returns the participant that is not userID, or empty
// if userID is not part of the conversation.
func (c Conversation) OtherParticipant(userID string) string {
	switch userID {
	case c.Participants[0]:
		return c.Participants[1]
	case c.Participants[1]:
		return c.Participants[0]
	}
	return ""
}

// UnreadFor returns the unread counter for a participant (zero if absent).
func (c Conversation) UnreadFor(userID string) int {
	return c.UnreadCounts[userID]
}

// MutedFor reports whether a participant muted the conversation.
func (c Conversation) MutedFor(userID string) bool {
	return c.Muted[userID]
}

// Profile is the user directory record.
type Profile struct {
	ID          string
	DisplayName string
	Email       string
	Phone       string
	Specialty   string
	Bio         string
	Role        Role
}

// InteractionStats is the per-patient aggregate a doctor sees on the
// roster. Computed by the backend, read-only here.
type InteractionStats struct {
	Appointments    int
	Messages        int
	Records         int
	LastInteraction time.Time
}

// Presence is a user's online flag and last-active timestamp.
type Presence struct {
	IsOnline   bool
	LastActive time.Time
}
