package care

import "time"

// Defaults substituted for missing appointment fields on ingest.
const (
	DefaultDoctorName      = "Unknown Doctor"
	DefaultAppointmentTime = "00:00"
	DefaultAppointmentType = "Consultation"
)

// NormalizeAppointment fills defined defaults for any missing field of an
// inbound appointment record, so downstream code never sees a partially
// populated one. today supplies the fallback date.
func NormalizeAppointment(a Appointment, today time.Time) Appointment {
	if a.DoctorName == "" {
		a.DoctorName = DefaultDoctorName
	}
	if a.Status == "" {
		a.Status = AppointmentPending
	}
	if a.Date == "" {
		a.Date = today.Format("2006-01-02")
	}
	if a.Time == "" {
		a.Time = DefaultAppointmentTime
	}
	if a.Type == "" {
		a.Type = DefaultAppointmentType
	}
	return a
}
