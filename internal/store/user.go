package store

import (
	"database/sql"
	"time"

	"github.com/caredesk/caredesk/internal/care"
)

// UpsertUser inserts or refreshes a directory profile.
func (db *DB) UpsertUser(p *care.Profile) error {
	_, err := db.Exec(`
		INSERT INTO users (id, display_name, email, phone, specialty, bio, role)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			display_name = excluded.display_name,
			email = excluded.email,
			phone = excluded.phone,
			specialty = excluded.specialty,
			bio = excluded.bio,
			role = excluded.role`,
		p.ID, p.DisplayName, p.Email, p.Phone, p.Specialty, p.Bio, string(p.Role))
	return err
}

// GetUser returns a profile by id, or nil if the user is unknown.
func (db *DB) GetUser(id string) (*care.Profile, error) {
	var p care.Profile
	var role string
	err := db.QueryRow(`
		SELECT id, display_name, email, phone, specialty, bio, role
		FROM users WHERE id = ?`, id).
		Scan(&p.ID, &p.DisplayName, &p.Email, &p.Phone, &p.Specialty, &p.Bio, &role)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.Role = care.Role(role)
	return &p, nil
}

// ListDoctors returns every doctor profile, ordered by name.
func (db *DB) ListDoctors() ([]care.Profile, error) {
	rows, err := db.Query(`
		SELECT id, display_name, email, phone, specialty, bio, role
		FROM users WHERE role = ? ORDER BY display_name ASC`, string(care.RoleDoctor))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var docs []care.Profile
	for rows.Next() {
		var p care.Profile
		var role string
		if err := rows.Scan(&p.ID, &p.DisplayName, &p.Email, &p.Phone, &p.Specialty, &p.Bio, &role); err != nil {
			return nil, err
		}
		p.Role = care.Role(role)
		docs = append(docs, p)
	}
	return docs, rows.Err()
}

// ConnectPatient links a patient to a doctor's roster. Idempotent.
func (db *DB) ConnectPatient(doctorID, patientID string) error {
	_, err := db.Exec(`
		INSERT INTO doctor_patients (doctor_id, patient_id) VALUES (?, ?)
		ON CONFLICT(doctor_id, patient_id) DO NOTHING`,
		doctorID, patientID)
	return err
}

// ConnectedPatients returns the ids of every patient linked to a doctor.
func (db *DB) ConnectedPatients(doctorID string) ([]string, error) {
	rows, err := db.Query(`
		SELECT patient_id FROM doctor_patients WHERE doctor_id = ?`, doctorID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// InsertRecord stores a health record reference for a doctor/patient pair.
func (db *DB) InsertRecord(id, doctorID, patientID string, at time.Time) error {
	_, err := db.Exec(`
		INSERT INTO records (id, doctor_id, patient_id, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		id, doctorID, patientID, at.UnixMilli())
	return err
}

// RecordStats returns the record count and the newest record timestamp for
// a doctor/patient pair.
func (db *DB) RecordStats(doctorID, patientID string) (int, time.Time, error) {
	var count int
	var lastMs sql.NullInt64
	err := db.QueryRow(`
		SELECT COUNT(*), MAX(created_at)
		FROM records WHERE doctor_id = ? AND patient_id = ?`,
		doctorID, patientID).
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
