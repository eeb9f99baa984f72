package local

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/caredesk/caredesk/internal/care"
)

// ResolveConnectedPatients returns the ids of every patient linked to the
// doctor.
func (s *Service) ResolveConnectedPatients(doctorID string) ([]string, error) {
	ids, err := s.db.ConnectedPatients(doctorID)
	if err != nil {
		return nil, fmt.Errorf("resolve connected patients: %w", err)
	}
	return ids, nil
}

// FetchUser returns a directory profile, or nil when the id is unknown.
func (s *Service) FetchUser(id string) (*care.Profile, error) {
	p, err := s.db.GetUser(id)
	if err != nil {
		return nil, fmt.Errorf("fetch user %s: %w", id, err)
	}
	return p, nil
}

// ListDoctors returns every doctor profile for the booking flow.
func (s *Service) ListDoctors() ([]care.Profile, error) {
	docs, err := s.db.ListDoctors()
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	return docs, nil
}

// FetchInteractionStats aggregates appointment, message, and record counts
// for a doctor/patient pair, with the newest activity across all three.
func (s *Service) FetchInteractionStats(doctorID, patientID string) (care.InteractionStats, error) {
	var stats care.InteractionStats

	var err error
	var last time.Time
	if stats.Appointments, last, err = s.db.AppointmentStats(doctorID, patientID); err != nil {
		return stats, fmt.Errorf("appointment stats: %w", err)
	}
	stats.LastInteraction = last
	if stats.Messages, last, err = s.db.MessageStats(doctorID, patientID); err != nil {
		return stats, fmt.Errorf("message stats: %w", err)
	}
	if last.After(stats.LastInteraction) {
		stats.LastInteraction = last
	}
	if stats.Records, last, err = s.db.RecordStats(doctorID, patientID); err != nil {
		return stats, fmt.Errorf("record stats: %w", err)
	}
	if last.After(stats.LastInteraction) {
		stats.LastInteraction = last
	}
	return stats, nil
}

// UpsertProfile registers or refreshes a directory profile. Used by the
// seed tool and kept on the service so the directory stays behind one API.
func (s *Service) UpsertProfile(p care.Profile) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if err := s.db.UpsertUser(&p); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// ConnectPatient links a patient to a doctor's roster. Idempotent.
func (s *Service) ConnectPatient(doctorID, patientID string) error {
	if err := s.db.ConnectPatient(doctorID, patientID); err != nil {
		return fmt.Errorf("connect patient: %w", err)
	}
	return nil
}

// AddRecord stores a health record reference for a doctor/patient pair.
func (s *Service) AddRecord(doctorID, patientID string) error {
	if err := s.db.InsertRecord(uuid.NewString(), doctorID, patientID, s.now()); err != nil {
		return fmt.Errorf("add record: %w", err)
	}
	return nil
}
