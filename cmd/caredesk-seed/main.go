// caredesk-seed populates a profile with demo data: a patient, a few
// doctors, appointments in several states, conversations with history, and
// shared records, then writes an access token so the client can sign in as
// the chosen user.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/caredesk/caredesk/internal/backend"
	"github.com/caredesk/caredesk/internal/backend/local"
	"github.com/caredesk/caredesk/internal/bus"
	"github.com/caredesk/caredesk/internal/care"
	"github.com/caredesk/caredesk/internal/profile"
	"github.com/caredesk/caredesk/internal/store"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	asFlag := flag.String("as", "patient-ana", "user id to sign the token for")
	flag.Parse()

	if err := run(*profileFlag, *asFlag); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(profileFlag, asUser string) error {
	profileName := profile.Resolve(profileFlag)
	if err := profile.ValidateName(profileName); err != nil {
		return err
	}
	if err := profile.EnsureDir(profileName); err != nil {
		return err
	}

	db, err := store.Open(profile.DBPath(profileName))
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	if _, err := db.Migrate(); err != nil {
		return err
	}

	svc := local.New(db, bus.New(), zap.NewNop())

	profiles := demoProfiles()
	for _, p := range profiles {
		if err := svc.UpsertProfile(p); err != nil {
			return err
		}
	}

	var tokenFor *care.Profile
	for i := range profiles {
		if profiles[i].ID == asUser {
			tokenFor = &profiles[i]
		}
	}
	if tokenFor == nil {
		return fmt.Errorf("unknown user %q, pick one of the seeded ids", asUser)
	}

	if err := seedData(svc); err != nil {
		return err
	}

	token, err := signToken(*tokenFor)
	if err != nil {
		return err
	}
	if err := os.WriteFile(profile.TokenPath(profileName), []byte(token), 0600); err != nil {
		return err
	}

	fmt.Printf("seeded profile %q, signed in as %s (%s)\n",
		profileName, tokenFor.DisplayName, tokenFor.Role)
	return nil
}

func demoProfiles() []care.Profile {
	return []care.Profile{
		{
			ID: "patient-ana", DisplayName: "Ana Souza", Role: care.RolePatient,
			Email: "ana@example.com", Phone: "+55 11 99999-0001",
			Bio: "Prefers morning appointments.",
		},
		{
			ID: "patient-bruno", DisplayName: "Bruno Costa", Role: care.RolePatient,
			Email: "bruno@example.com", Phone: "+55 11 99999-0002",
		},
		{
			ID: "doctor-lima", DisplayName: "Dr. Carla Lima", Role: care.RoleDoctor,
			Specialty: "Cardiology", Email: "carla.lima@example.com",
			Phone: "+55 11 98888-0001", Bio: "Cardiologist, 15 years of practice.",
		},
		{
			ID: "doctor-mendes", DisplayName: "Dr. Paulo Mendes", Role: care.RoleDoctor,
			Specialty: "Dermatology", Email: "paulo.mendes@example.com",
			Phone: "+55 11 98888-0002",
		},
		{
			ID: "doctor-rocha", DisplayName: "Dr. Julia Rocha", Role: care.RoleDoctor,
			Specialty: "General Practice", Email: "julia.rocha@example.com",
			Phone: "+55 11 98888-0003",
		},
	}
}

func seedData(svc *local.Service) error {
	for _, doctor := range []string{"doctor-lima", "doctor-mendes", "doctor-rocha"} {
		if err := svc.ConnectPatient(doctor, "patient-ana"); err != nil {
			return err
		}
	}
	if err := svc.ConnectPatient("doctor-lima", "patient-bruno"); err != nil {
		return err
	}

	now := time.Now()
	appts := []struct {
		doctor, specialty, date, tod, typ, notes string
		approve                                  bool
	}{
		{"doctor-lima", "Cardiology", now.AddDate(0, 0, 3).Format("2006-01-02"), "09:30", "Consultation", "Annual checkup", true},
		{"doctor-lima", "Cardiology", now.AddDate(0, 0, -7).Format("2006-01-02"), "14:00", "Exam", "Stress test", true},
		{"doctor-mendes", "Dermatology", now.AddDate(0, 0, 10).Format("2006-01-02"), "11:00", "Consultation", "", false},
		{"doctor-rocha", "General Practice", now.AddDate(0, 0, 1).Format("2006-01-02"), "16:15", "Follow-up", "Lab results review", true},
	}
	for i, a := range appts {
		doctor := findProfile(a.doctor)
		booked, err := svc.BookAppointment(care.Appointment{
			PatientID:  "patient-ana",
			DoctorID:   a.doctor,
			DoctorName: doctor.DisplayName,
			Specialty:  a.specialty,
			Date:       a.date,
			Time:       a.tod,
			Type:       a.typ,
			Notes:      a.notes,
		})
		if err != nil {
			return fmt.Errorf("book appointment %d: %w", i, err)
		}
		if a.approve {
			if err := svc.ApproveAppointment(booked.ID); err != nil {
				return err
			}
		}
	}

	convLima, err := svc.StartConversation("patient-ana", "doctor-lima")
	if err != nil {
		return err
	}
	history := []struct {
		sender, text string
	}{
		{"patient-ana", "Hi Dr. Lima, I booked the checkup for next week."},
		{"doctor-lima", "Great, I saw it. Please bring your previous exam results."},
		{"patient-ana", "Will do. Should I fast before the stress test?"},
		{"doctor-lima", "No fasting needed, just avoid caffeine that morning."},
	}
	for _, m := range history {
		err := svc.SendMessage(backend.SendMessageRequest{
			ConversationID: convLima,
			SenderID:       m.sender,
			Content:        m.text,
			Kind:           care.KindText,
		})
		if err != nil {
			return err
		}
	}

	convRocha, err := svc.StartConversation("patient-ana", "doctor-rocha")
	if err != nil {
		return err
	}
	err = svc.SendMessage(backend.SendMessageRequest{
		ConversationID: convRocha,
		SenderID:       "doctor-rocha",
		Content:        "Your lab results are in, see you at the follow-up.",
		Kind:           care.KindText,
	})
	if err != nil {
		return err
	}

	for i := 0; i < 3; i++ {
		if err := svc.AddRecord("doctor-lima", "patient-ana"); err != nil {
			return err
		}
	}
	return svc.AddRecord("doctor-rocha", "patient-ana")
}

func findProfile(id string) care.Profile {
	for _, p := range demoProfiles() {
		if p.ID == id {
			return p
		}
	}
	return care.Profile{ID: id}
}

func signToken(p care.Profile) (string, error) {
	claims := jwt.MapClaims{
		"sub":  p.ID,
		"role": string(p.Role),
		"name": p.DisplayName,
		"iat":  time.Now().Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte("caredesk-demo"))
}
