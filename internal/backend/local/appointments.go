package local

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/caredesk/caredesk/internal/backend"
	"github.com/caredesk/caredesk/internal/bus"
	"github.com/caredesk/caredesk/internal/care"
)

// SubscribeAppointments yields the user's full appointment list on every
// appointment change affecting them.
func (s *Service) SubscribeAppointments(userID string, role care.Role) *backend.Stream[[]care.Appointment] {
	return stream(s, bus.KindAppointmentsChanged, userID, func() ([]care.Appointment, error) {
		return s.db.ListAppointments(userID, role)
	})
}

// BatchCompleteAppointments transitions the given appointments from approved
// to completed in one pass and returns the records actually updated. Ids that
// are missing or not in a completable state are skipped, which makes retries
// of the same batch safe.
func (s *Service) BatchCompleteAppointments(ids []string) ([]care.Appointment, error) {
	var updated []care.Appointment
	for _, id := range ids {
		a, err := s.db.GetAppointment(id)
		if err != nil {
			return updated, fmt.Errorf("load appointment %s: %w", id, err)
		}
		if a == nil || !care.CanTransition(a.Status, care.AppointmentCompleted) {
			continue
		}
		a.Status = care.AppointmentCompleted
		a.UpdatedAt = s.now()
		if err := s.db.UpsertAppointment(a); err != nil {
			return updated, fmt.Errorf("complete appointment %s: %w", id, err)
		}
		updated = append(updated, *a)
	}
	for _, a := range updated {
		s.publishAppointment(&a)
	}
	return updated, nil
}

// BookAppointment creates a fresh pending appointment. A missing id is
// minted here.
func (s *Service) BookAppointment(a care.Appointment) (*care.Appointment, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.Status = care.AppointmentPending
	a.UpdatedAt = s.now()
	a = care.NormalizeAppointment(a, s.now())
	if err := s.db.UpsertAppointment(&a); err != nil {
		return nil, fmt.Errorf("book appointment: %w", err)
	}
	s.publishAppointment(&a)
	return &a, nil
}

// ApproveAppointment moves a pending appointment to approved.
func (s *Service) ApproveAppointment(id string) error {
	return s.transition(id, care.AppointmentApproved, "")
}

// CancelAppointment cancels a pending or approved appointment, recording
// the given note.
func (s *Service) CancelAppointment(id, note string) error {
	return s.transition(id, care.AppointmentCancelled, note)
}

// RescheduleAppointment cancels the original appointment and books a new
// pending record at the given date and time. Returns the new appointment.
func (s *Service) RescheduleAppointment(id, date, tod string) (*care.Appointment, error) {
	old, err := s.db.GetAppointment(id)
	if err != nil {
		return nil, fmt.Errorf("load appointment %s: %w", id, err)
	}
	if old == nil {
		return nil, fmt.Errorf("appointment %s: %w", id, ErrNotFound)
	}
	if err := s.CancelAppointment(id, "Rescheduled"); err != nil {
		return nil, err
	}
	next := *old
	next.ID = ""
	next.Date = date
	next.Time = tod
	next.CancelNote = ""
	return s.BookAppointment(next)
}

func (s *Service) transition(id string, to care.AppointmentStatus, note string) error {
	a, err := s.db.GetAppointment(id)
	if err != nil {
		return fmt.Errorf("load appointment %s: %w", id, err)
	}
	if a == nil {
		return fmt.Errorf("appointment %s: %w", id, ErrNotFound)
	}
	if !care.CanTransition(a.Status, to) {
		return fmt.Errorf("appointment %s: %s -> %s: %w", id, a.Status, to, ErrNotAllowed)
	}
	a.Status = to
	if note != "" {
		a.CancelNote = note
	}
	a.UpdatedAt = s.now()
	if err := s.db.UpsertAppointment(a); err != nil {
		return fmt.Errorf("update appointment %s: %w", id, err)
	}
	s.publishAppointment(a)
	return nil
}

func (s *Service) publishAppointment(a *care.Appointment) {
	s.publish(bus.KindAppointmentsChanged, a.PatientID)
	s.publish(bus.KindAppointmentsChanged, a.DoctorID)
}
