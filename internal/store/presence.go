package store

import (
	"database/sql"
	"time"

	"github.com/caredesk/caredesk/internal/care"
)

// SetPresence records a user's online flag and stamps last activity.
func (db *DB) SetPresence(userID string, online bool, at time.Time) error {
	_, err := db.Exec(`
		INSERT INTO presence (user_id, is_online, last_active) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			is_online = excluded.is_online,
			last_active = excluded.last_active`,
		userID, online, at.UnixMilli())
	return err
}

// GetPresence returns a user's presence. Unknown users read as offline with
// a zero last-active time.
func (db *DB) GetPresence(userID string) (care.Presence, error) {
	var p care.Presence
	var lastMs int64
	err := db.QueryRow(`
		SELECT is_online, last_active FROM presence WHERE user_id = ?`, userID).
		Scan(&p.IsOnline, &lastMs)
	if err == sql.ErrNoRows {
		return care.Presence{}, nil
	}
	if err != nil {
		return care.Presence{}, err
	}
	if lastMs > 0 {
		p.LastActive = time.UnixMilli(lastMs)
	}
	return p, nil
}
