package care

import (
	"testing"
	"time"
)

func TestNormalizeAppointmentFillsDefaults(t *testing.T) {
	today := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	a := NormalizeAppointment(Appointment{ID: "a1"}, today)

	if a.DoctorName != DefaultDoctorName {
		t.Errorf("DoctorName = %q, want %q", a.DoctorName, DefaultDoctorName)
	}
	if a.Status != AppointmentPending {
		t.Errorf("Status = %q, want pending", a.Status)
	}
	if a.Date != "2024-03-15" {
		t.Errorf("Date = %q, want 2024-03-15", a.Date)
	}
	if a.Time != DefaultAppointmentTime {
		t.Errorf("Time = %q, want %q", a.Time, DefaultAppointmentTime)
	}
	if a.Type != DefaultAppointmentType {
		t.Errorf("Type = %q, want %q", a.Type, DefaultAppointmentType)
	}
}

func TestNormalizeAppointmentKeepsPresentFields(t *testing.T) {
	today := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	in := Appointment{
		ID:         "a2",
		DoctorName: "Dr. Reyes",
		Status:     AppointmentApproved,
		Date:       "2024-04-01",
		Time:       "09:30",
		Type:       "Follow-up",
	}

	out := NormalizeAppointment(in, today)
	if out != in {
		t.Errorf("normalization changed a fully populated record: %+v", out)
	}
}

func TestStartsAt(t *testing.T) {
	a := Appointment{ID: "a3", Date: "2024-01-01", Time: "09:00"}
	got, err := a.StartsAt(time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("StartsAt = %v, want %v", got, want)
	}

	if _, err := (Appointment{ID: "bad", Date: "junk", Time: "09:00"}).StartsAt(time.UTC); err == nil {
		t.Error("StartsAt with garbled date should error")
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to AppointmentStatus
		want     bool
	}{
		{AppointmentPending, AppointmentApproved, true},
		{AppointmentPending, AppointmentCancelled, true},
		{AppointmentApproved, AppointmentCompleted, true},
		{AppointmentApproved, AppointmentCancelled, true},
		{AppointmentPending, AppointmentCompleted, false},
		{AppointmentCompleted, AppointmentCancelled, false},
		{AppointmentCancelled, AppointmentApproved, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestDetectKind(t *testing.T) {
	tests := []struct {
		mime string
		want MessageKind
	}{
		{"image/png", KindImage},
		{"image/jpeg", KindImage},
		{"audio/ogg", KindAudio},
		{"video/mp4", KindVideo},
		{"application/pdf", KindFile},
		{"", KindFile},
	}
	for _, tt := range tests {
		if got := DetectKind(tt.mime); got != tt.want {
			t.Errorf("DetectKind(%q) = %q, want %q", tt.mime, got, tt.want)
		}
	}
}

func TestOtherParticipant(t *testing.T) {
	c := Conversation{Participants: [2]string{"u1", "u2"}}
	if got := c.OtherParticipant("u1"); got != "u2" {
		t.Errorf("OtherParticipant(u1) = %q, want u2", got)
	}
	if got := c.OtherParticipant("u2"); got != "u1" {
		t.Errorf("OtherParticipant(u2) = %q, want u1", got)
	}
	if got := c.OtherParticipant("stranger"); got != "" {
		t.Errorf("OtherParticipant(stranger) = %q, want empty", got)
	}
}
