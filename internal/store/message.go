package store

import (
	"database/sql"
	"time"

	"github.com/caredesk/caredesk/internal/care"
)

const messageColumns = `id, conversation_id, sender_id, content, kind, file_name, file_size, timestamp, status, reply_id, reply_content, reply_sender_id, reply_sender_name`

// InsertMessage stores a message (idempotent on id).
func (db *DB) InsertMessage(m *care.Message) error {
	var replyID, replyContent, replySenderID, replySenderName string
	if m.Reply != nil {
		replyID = m.Reply.MessageID
		replyContent = m.Reply.Content
		replySenderID = m.Reply.SenderID
		replySenderName = m.Reply.SenderName
	}
	_, err := db.Exec(`
		INSERT INTO messages (`+messageColumns+`, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			status = excluded.status`,
		m.ID, m.ConversationID, m.SenderID, m.Content, string(m.Kind),
		m.FileName, m.FileSize, m.Timestamp.UnixMilli(), string(m.Status),
		replyID, replyContent, replySenderID, replySenderName,
		time.Now().UnixMilli())
	return err
}

// GetMessage returns a single message by id, or nil if absent.
func (db *DB) GetMessage(id string) (*care.Message, error) {
	row := db.QueryRow(`SELECT `+messageColumns+` FROM messages WHERE id = ?`, id)
	m, err := scanMessage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListRecentMessages returns the newest messages of a conversation that the
// viewer has not deleted for themselves, newest first.
func (db *DB) ListRecentMessages(conversationID, viewerID string, limit int) ([]care.Message, error) {
	if limit <= 0 {
		limit = 30
	}
	return db.queryMessages(`
		SELECT `+messageColumns+`
		FROM messages m
		WHERE m.conversation_id = ?
		  AND NOT EXISTS (
			SELECT 1 FROM message_deletions d
			WHERE d.message_id = m.id AND d.user_id = ?)
		ORDER BY m.timestamp DESC
		LIMIT ?`, conversationID, viewerID, limit)
}

// ListMessagesBefore returns up to limit messages strictly older than the
// given timestamp, newest first, honoring the viewer's deletions.
func (db *DB) ListMessagesBefore(conversationID, viewerID string, before time.Time, limit int) ([]care.Message, error) {
	if limit <= 0 {
		limit = 20
	}
	return db.queryMessages(`
		SELECT `+messageColumns+`
		FROM messages m
		WHERE m.conversation_id = ? AND m.timestamp < ?
		  AND NOT EXISTS (
			SELECT 1 FROM message_deletions d
			WHERE d.message_id = m.id AND d.user_id = ?)
		ORDER BY m.timestamp DESC
		LIMIT ?`, conversationID, before.UnixMilli(), viewerID, limit)
}

// SetMessageStatus updates a message's status and blanks the content for
// unsent and deleted messages so it is never rendered again.
func (db *DB) SetMessageStatus(id string, status care.MessageStatus) error {
	clear := status == care.MessageUnsent || status == care.MessageDeleted
	if clear {
		_, err := db.Exec(`
			UPDATE messages SET status = ?, content = '', file_name = '', file_size = 0
			WHERE id = ?`, string(status), id)
		return err
	}
	_, err := db.Exec(`UPDATE messages SET status = ? WHERE id = ?`, string(status), id)
	return err
}

// MarkDeletedFor hides a message for one viewer only. Idempotent.
func (db *DB) MarkDeletedFor(messageID, userID string) error {
	_, err := db.Exec(`
		INSERT INTO message_deletions (message_id, user_id) VALUES (?, ?)
		ON CONFLICT(message_id, user_id) DO NOTHING`,
		messageID, userID)
	return err
}

// MessageStats returns the message count and the newest message timestamp
// across all conversations between two users.
func (db *DB) MessageStats(userA, userB string) (int, time.Time, error) {
	var count int
	var lastMs sql.NullInt64
	err := db.QueryRow(`
		SELECT COUNT(*), MAX(m.timestamp)
		FROM messages m
		JOIN conversations c ON m.conversation_id = c.id
		WHERE (c.participant_a = ? AND c.participant_b = ?)
		   OR (c.participant_a = ? AND c.participant_b = ?)`,
		userA, userB, userB, userA).
		Scan(&count, &lastMs)
	if err != nil {
		return 0, time.Time{}, err
	}
	var last time.Time
	if lastMs.Valid && lastMs.Int64 > 0 {
		last = time.UnixMilli(lastMs.Int64)
	}
	return count, last, nil
}

func (db *DB) queryMessages(query string, args ...any) ([]care.Message, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []care.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func scanMessage(row rowScanner) (care.Message, error) {
	var m care.Message
	var kind, status string
	var ts int64
	var replyID, replyContent, replySenderID, replySenderName string
	err := row.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &kind,
		&m.FileName, &m.FileSize, &ts, &status,
		&replyID, &replyContent, &replySenderID, &replySenderName)
	if err != nil {
		return care.Message{}, err
	}
	m.Kind = care.MessageKind(kind)
	m.Status = care.MessageStatus(status)
	m.Timestamp = time.UnixMilli(ts)
	if replyID != "" {
		m.Reply = &care.ReplyRef{
			MessageID:  replyID,
			Content:    replyContent,
			SenderID:   replySenderID,
			SenderName: replySenderName,
		}
	}
	return m, nil
}
