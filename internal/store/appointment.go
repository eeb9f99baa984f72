package store

import (
	"database/sql"
	"time"

	"github.com/caredesk/caredesk/internal/care"
)

const appointmentColumns = `id, patient_id, doctor_id, doctor_name, specialty, date, time, type, status, notes, cancel_note, updated_at`

// UpsertAppointment inserts or updates an appointment (idempotent on id).
func (db *DB) UpsertAppointment(a *care.Appointment) error {
	_, err := db.Exec(`
		INSERT INTO appointments (`+appointmentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			doctor_name = excluded.doctor_name,
			specialty = excluded.specialty,
			date = excluded.date,
			time = excluded.time,
			type = excluded.type,
			status = excluded.status,
			notes = excluded.notes,
			cancel_note = excluded.cancel_note,
			updated_at = excluded.updated_at`,
		a.ID, a.PatientID, a.DoctorID, a.DoctorName, a.Specialty,
		a.Date, a.Time, a.Type, string(a.Status), a.Notes, a.CancelNote,
		a.UpdatedAt.UnixMilli())
	return err
}

// ListAppointments returns every appointment the user participates in,
// ordered by schedule.
func (db *DB) ListAppointments(userID string, role care.Role) ([]care.Appointment, error) {
	column := "patient_id"
	if role == care.RoleDoctor {
		column = "doctor_id"
	}
	rows, err := db.Query(`
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE `+column+` = ?
		ORDER BY date ASC, time ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var appts []care.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, a)
	}
	return appts, rows.Err()
}

// GetAppointment returns a single appointment by id, or nil if absent.
func (db *DB) GetAppointment(id string) (*care.Appointment, error) {
	row := db.QueryRow(`SELECT `+appointmentColumns+` FROM appointments WHERE id = ?`, id)
	a, err := scanAppointment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// AppointmentStats returns the appointment count and the newest update
// timestamp for a doctor/patient pair.
func (db *DB) AppointmentStats(doctorID, patientID string) (int, time.Time, error) {
	var count int
	var lastMs sql.NullInt64
	err := db.QueryRow(`
		SELECT COUNT(*), MAX(updated_at)
		FROM appointments
		WHERE doctor_id = ? AND patient_id = ?`, doctorID, patientID).
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (care.Appointment, error) {
	var a care.Appointment
	var status string
	var updatedMs int64
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.DoctorName, &a.Specialty,
		&a.Date, &a.Time, &a.Type, &status, &a.Notes, &a.CancelNote, &updatedMs)
	if err != nil {
		return care.Appointment{}, err
	}
	a.Status = care.AppointmentStatus(status)
	a.UpdatedAt = time.UnixMilli(updatedMs)
	return a, nil
}
