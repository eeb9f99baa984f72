package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/caredesk/caredesk/internal/care"
)

// CreateConversation inserts a conversation and its two member rows in one
// transaction. Idempotent on the participant pair: if the pair already has
// a conversation its id is returned instead.
func (db *DB) CreateConversation(id, userA, userB string, now time.Time) (string, error) {
	if existing, err := db.conversationIDFor(userA, userB); err != nil {
		return "", err
	} else if existing != "" {
		return existing, nil
	}

	tx, err := db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
		INSERT INTO conversations (id, participant_a, participant_b, updated_at)
		VALUES (?, ?, ?, ?)`,
		id, userA, userB, now.UnixMilli()); err != nil {
		return "", fmt.Errorf("insert conversation: %w", err)
	}
	for _, uid := range []string{userA, userB} {
		if _, err := tx.Exec(`
			INSERT INTO conversation_members (conversation_id, user_id) VALUES (?, ?)`,
			id, uid); err != nil {
			return "", fmt.Errorf("insert member %q: %w", uid, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

func (db *DB) conversationIDFor(userA, userB string) (string, error) {
	var id string
	err := db.QueryRow(`
		SELECT id FROM conversations
		WHERE (participant_a = ? AND participant_b = ?)
		   OR (participant_a = ? AND participant_b = ?)`,
		userA, userB, userB, userA).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

// ListConversations returns every conversation the user participates in,
// newest activity first, with member state and counterpart details filled.
func (db *DB) ListConversations(userID string) ([]care.Conversation, error) {
	rows, err := db.Query(`
		SELECT c.id, c.participant_a, c.participant_b,
		       c.last_message_content, c.last_message_sender, c.last_message_kind,
		       c.updated_at
		FROM conversations c
		WHERE c.participant_a = ? OR c.participant_b = ?
		ORDER BY c.updated_at DESC`, userID, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var convs []care.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		convs = append(convs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range convs {
		if err := db.fillConversation(&convs[i]); err != nil {
			return nil, err
		}
	}
	return convs, nil
}

// GetConversation returns a single conversation by id, or nil if absent.
func (db *DB) GetConversation(id string) (*care.Conversation, error) {
	row := db.QueryRow(`
		SELECT id, participant_a, participant_b,
		       last_message_content, last_message_sender, last_message_kind,
		       updated_at
		FROM conversations WHERE id = ?`, id)
	c, err := scanConversation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := db.fillConversation(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// fillConversation loads member counters/flags and participant profiles.
func (db *DB) fillConversation(c *care.Conversation) error {
	c.UnreadCounts = make(map[string]int, 2)
	c.Muted = make(map[string]bool, 2)
	c.Details = make(map[string]care.Profile, 2)

	rows, err := db.Query(`
		SELECT user_id, unread_count, muted
		FROM conversation_members WHERE conversation_id = ?`, c.ID)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var uid string
		var unread int
		var muted bool
		if err := rows.Scan(&uid, &unread, &muted); err != nil {
			return err
		}
		if unread > 0 {
			c.UnreadCounts[uid] = unread
		}
		if muted {
			c.Muted[uid] = true
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, uid := range c.Participants {
		p, err := db.GetUser(uid)
		if err != nil {
			return err
		}
		if p != nil {
			c.Details[uid] = *p
		}
	}
	return nil
}

// TouchConversation updates the last-message snapshot and activity stamp.
func (db *DB) TouchConversation(id string, last care.LastMessage, at time.Time) error {
	_, err := db.Exec(`
		UPDATE conversations SET
			last_message_content = ?, last_message_sender = ?, last_message_kind = ?,
			updated_at = ?
		WHERE id = ?`,
		last.Content, last.SenderID, string(last.Kind), at.UnixMilli(), id)
	return err
}

// SetUnread sets a participant's unread counter to an absolute value.
func (db *DB) SetUnread(conversationID, userID string, count int) error {
	if count < 0 {
		count = 0
	}
	_, err := db.Exec(`
		UPDATE conversation_members SET unread_count = ?
		WHERE conversation_id = ? AND user_id = ?`,
		count, conversationID, userID)
	return err
}

// IncrementUnread bumps a participant's unread counter by one.
func (db *DB) IncrementUnread(conversationID, userID string) error {
	_, err := db.Exec(`
		UPDATE conversation_members SET unread_count = unread_count + 1
		WHERE conversation_id = ? AND user_id = ?`,
		conversationID, userID)
	return err
}

// SetMuted toggles a participant's mute flag.
func (db *DB) SetMuted(conversationID, userID string, muted bool) error {
	_, err := db.Exec(`
		UPDATE conversation_members SET muted = ?
		WHERE conversation_id = ? AND user_id = ?`,
		muted, conversationID, userID)
	return err
}

// DeleteConversation removes a conversation; messages, member rows, and
// deletion marks cascade.
func (db *DB) DeleteConversation(id string) error {
	_, err := db.Exec(`DELETE FROM conversations WHERE id = ?`, id)
	return err
}

func scanConversation(row rowScanner) (care.Conversation, error) {
	var c care.Conversation
	var lastContent, lastSender, lastKind string
	var updatedMs int64
	err := row.Scan(&c.ID, &c.Participants[0], &c.Participants[1],
		&lastContent, &lastSender, &lastKind, &updatedMs)
	if err != nil {
		return care.Conversation{}, err
	}
	if lastSender != "" || lastContent != "" {
		c.LastMessage = &care.LastMessage{
			Content:  lastContent,
			SenderID: lastSender,
			Kind:     care.MessageKind(lastKind),
		}
	}
	if updatedMs > 0 {
		c.UpdatedAt = time.UnixMilli(updatedMs)
	}
	return c, nil
}
