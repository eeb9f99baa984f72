package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/caredesk/caredesk/internal/care"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateIdempotent(t *testing.T) {
	db := testDB(t)

	// testDB already ran Migrate, so run it again to check idempotency.
	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 1 {
		t.Errorf("version = %d, want 1", result.Version)
	}
}

func TestAppointmentUpsertIdempotent(t *testing.T) {
	db := testDB(t)

	a := &care.Appointment{
		ID: "ap1", PatientID: "p1", DoctorID: "d1",
		DoctorName: "Dr. Lima", Date: "2026-01-10", Time: "09:30",
		Type: "Consultation", Status: care.AppointmentPending,
		UpdatedAt: time.UnixMilli(1000),
	}
	if err := db.UpsertAppointment(a); err != nil {
		t.Fatal(err)
	}
	a.Status = care.AppointmentApproved
	if err := db.UpsertAppointment(a); err != nil {
		t.Fatal(err)
	}

	appts, err := db.ListAppointments("p1", care.RolePatient)
	if err != nil {
		t.Fatal(err)
	}
	if len(appts) != 1 {
		t.Fatalf("got %d appointments, want 1 (idempotent upsert failed)", len(appts))
	}
	if appts[0].Status != care.AppointmentApproved {
		t.Errorf("status = %q, want approved", appts[0].Status)
	}
}

func TestListAppointmentsByRole(t *testing.T) {
	db := testDB(t)

	seed := []care.Appointment{
		{ID: "a1", PatientID: "p1", DoctorID: "d1", Date: "2026-01-01", Time: "10:00", Status: care.AppointmentPending},
		{ID: "a2", PatientID: "p2", DoctorID: "d1", Date: "2026-01-02", Time: "10:00", Status: care.AppointmentPending},
		{ID: "a3", PatientID: "p1", DoctorID: "d2", Date: "2026-01-03", Time: "10:00", Status: care.AppointmentPending},
	}
	for i := range seed {
		if err := db.UpsertAppointment(&seed[i]); err != nil {
			t.Fatal(err)
		}
	}

	asPatient, err := db.ListAppointments("p1", care.RolePatient)
	if err != nil {
		t.Fatal(err)
	}
	if len(asPatient) != 2 {
		t.Errorf("patient view: got %d, want 2", len(asPatient))
	}

	asDoctor, err := db.ListAppointments("d1", care.RoleDoctor)
	if err != nil {
		t.Fatal(err)
	}
	if len(asDoctor) != 2 {
		t.Errorf("doctor view: got %d, want 2", len(asDoctor))
	}
}

func TestConversationCreateIdempotentOnPair(t *testing.T) {
	db := testDB(t)
	now := time.UnixMilli(5000)

	id1, err := db.CreateConversation("c1", "p1", "d1", now)
	if err != nil {
		t.Fatal(err)
	}
	if id1 != "c1" {
		t.Fatalf("id = %q, want c1", id1)
	}

	// Same pair reversed must reuse the existing conversation.
	id2, err := db.CreateConversation("c2", "d1", "p1", now)
	if err != nil {
		t.Fatal(err)
	}
	if id2 != "c1" {
		t.Errorf("id = %q, want c1 (pair already exists)", id2)
	}
}

func TestConversationUnreadAndMute(t *testing.T) {
	db := testDB(t)
	now := time.UnixMilli(5000)

	if _, err := db.CreateConversation("c1", "p1", "d1", now); err != nil {
		t.Fatal(err)
	}
	if err := db.IncrementUnread("c1", "d1"); err != nil {
		t.Fatal(err)
	}
	if err := db.IncrementUnread("c1", "d1"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetMuted("c1", "p1", true); err != nil {
		t.Fatal(err)
	}

	c, err := db.GetConversation("c1")
	if err != nil {
		t.Fatal(err)
	}
	if c == nil {
		t.Fatal("conversation missing")
	}
	if c.UnreadFor("d1") != 2 {
		t.Errorf("unread = %d, want 2", c.UnreadFor("d1"))
	}
	if !c.MutedFor("p1") || c.MutedFor("d1") {
		t.Errorf("mute flags wrong: %v", c.Muted)
	}

	if err := db.SetUnread("c1", "d1", 0); err != nil {
		t.Fatal(err)
	}
	c, err = db.GetConversation("c1")
	if err != nil {
		t.Fatal(err)
	}
	if c.UnreadFor("d1") != 0 {
		t.Errorf("unread after reset = %d, want 0", c.UnreadFor("d1"))
	}
}

func TestListConversationsOrder(t *testing.T) {
	db := testDB(t)

	if _, err := db.CreateConversation("c1", "p1", "d1", time.UnixMilli(1000)); err != nil {
		t.Fatal(err)
	}
	if _, err := db.CreateConversation("c2", "p1", "d2", time.UnixMilli(2000)); err != nil {
		t.Fatal(err)
	}
	if err := db.TouchConversation("c1", care.LastMessage{Content: "hi", SenderID: "d1", Kind: care.KindText}, time.UnixMilli(9000)); err != nil {
		t.Fatal(err)
	}

	convs, err := db.ListConversations("p1")
	if err != nil {
		t.Fatal(err)
	}
	if len(convs) != 2 {
		t.Fatalf("got %d conversations, want 2", len(convs))
	}
	if convs[0].ID != "c1" {
		t.Errorf("first = %q, want c1 (newest activity first)", convs[0].ID)
	}
	if convs[0].LastMessage == nil || convs[0].LastMessage.Content != "hi" {
		t.Errorf("last message not filled: %+v", convs[0].LastMessage)
	}
}

func TestMessagesViewerDeletions(t *testing.T) {
	db := testDB(t)

	if _, err := db.CreateConversation("c1", "p1", "d1", time.UnixMilli(1000)); err != nil {
		t.Fatal(err)
	}
	for i, id := range []string{"m1", "m2", "m3"} {
		m := &care.Message{
			ID: id, ConversationID: "c1", SenderID: "p1",
			Content: "msg " + id, Kind: care.KindText,
			Timestamp: time.UnixMilli(int64(1000 * (i + 1))),
			Status:    care.MessageSent,
		}
		if err := db.InsertMessage(m); err != nil {
			t.Fatal(err)
		}
	}
	if err := db.MarkDeletedFor("m2", "p1"); err != nil {
		t.Fatal(err)
	}
	// Idempotent.
	if err := db.MarkDeletedFor("m2", "p1"); err != nil {
		t.Fatal(err)
	}

	forP1, err := db.ListRecentMessages("c1", "p1", 30)
	if err != nil {
		t.Fatal(err)
	}
	if len(forP1) != 2 {
		t.Fatalf("viewer p1: got %d messages, want 2", len(forP1))
	}
	for _, m := range forP1 {
		if m.ID == "m2" {
			t.Error("m2 should be hidden from p1")
		}
	}

	forD1, err := db.ListRecentMessages("c1", "d1", 30)
	if err != nil {
		t.Fatal(err)
	}
	if len(forD1) != 3 {
		t.Errorf("viewer d1: got %d messages, want 3", len(forD1))
	}
	if forD1[0].ID != "m3" {
		t.Errorf("first = %q, want m3 (newest first)", forD1[0].ID)
	}
}

func TestListMessagesBeforeStrictlyOlder(t *testing.T) {
	db := testDB(t)

	if _, err := db.CreateConversation("c1", "p1", "d1", time.UnixMilli(1000)); err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= 5; i++ {
		m := &care.Message{
			ID: "m" + string(rune('0'+i)), ConversationID: "c1", SenderID: "p1",
			Kind: care.KindText, Timestamp: time.UnixMilli(int64(1000 * i)),
			Status: care.MessageSent,
		}
		if err := db.InsertMessage(m); err != nil {
			t.Fatal(err)
		}
	}

	older, err := db.ListMessagesBefore("c1", "p1", time.UnixMilli(3000), 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(older) != 2 {
		t.Fatalf("got %d, want 2 strictly older than 3000", len(older))
	}
	if older[0].ID != "m2" || older[1].ID != "m1" {
		t.Errorf("order = %q,%q, want m2,m1", older[0].ID, older[1].ID)
	}

	none, err := db.ListMessagesBefore("c1", "p1", time.UnixMilli(1000), 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(none) != 0 {
		t.Errorf("got %d, want 0 older than the oldest", len(none))
	}
}

func TestSetMessageStatusClearsContent(t *testing.T) {
	db := testDB(t)

	if _, err := db.CreateConversation("c1", "p1", "d1", time.UnixMilli(1000)); err != nil {
		t.Fatal(err)
	}
	m := &care.Message{
		ID: "m1", ConversationID: "c1", SenderID: "p1",
		Content: "secret", Kind: care.KindFile, FileName: "doc.pdf", FileSize: 42,
		Timestamp: time.UnixMilli(1000), Status: care.MessageSent,
	}
	if err := db.InsertMessage(m); err != nil {
		t.Fatal(err)
	}
	if err := db.SetMessageStatus("m1", care.MessageUnsent); err != nil {
		t.Fatal(err)
	}

	got, err := db.GetMessage("m1")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("message missing")
	}
	if got.Status != care.MessageUnsent {
		t.Errorf("status = %q, want unsent", got.Status)
	}
	if got.Content != "" || got.FileName != "" || got.FileSize != 0 {
		t.Errorf("content not cleared: %+v", got)
	}
}

func TestUserUpsertAndGet(t *testing.T) {
	db := testDB(t)

	p := &care.Profile{ID: "d1", DisplayName: "Dr. Lima", Email: "lima@clinic.example", Role: care.RoleDoctor}
	if err := db.UpsertUser(p); err != nil {
		t.Fatal(err)
	}
	p.Specialty = "Cardiology"
	if err := db.UpsertUser(p); err != nil {
		t.Fatal(err)
	}

	got, err := db.GetUser("d1")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Specialty != "Cardiology" {
		t.Errorf("got %+v, want Cardiology", got)
	}

	missing, err := db.GetUser("nobody")
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Error("expected nil for missing user")
	}
}

func TestRoster(t *testing.T) {
	db := testDB(t)

	if err := db.ConnectPatient("d1", "p1"); err != nil {
		t.Fatal(err)
	}
	if err := db.ConnectPatient("d1", "p2"); err != nil {
		t.Fatal(err)
	}
	// Idempotent.
	if err := db.ConnectPatient("d1", "p1"); err != nil {
		t.Fatal(err)
	}

	ids, err := db.ConnectedPatients("d1")
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 {
		t.Errorf("got %d patients, want 2", len(ids))
	}
}

func TestStats(t *testing.T) {
	db := testDB(t)

	seed := []care.Appointment{
		{ID: "a1", PatientID: "p1", DoctorID: "d1", Date: "2026-01-01", Time: "10:00", Status: care.AppointmentPending, UpdatedAt: time.UnixMilli(3000)},
		{ID: "a2", PatientID: "p1", DoctorID: "d1", Date: "2026-01-02", Time: "10:00", Status: care.AppointmentPending, UpdatedAt: time.UnixMilli(7000)},
	}
	for i := range seed {
		if err := db.UpsertAppointment(&seed[i]); err != nil {
			t.Fatal(err)
		}
	}

	count, last, err := db.AppointmentStats("d1", "p1")
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("appointments = %d, want 2", count)
	}
	if !last.Equal(time.UnixMilli(7000)) {
		t.Errorf("last = %v, want 7000ms", last)
	}

	if err := db.InsertRecord("r1", "d1", "p1", time.UnixMilli(4000)); err != nil {
		t.Fatal(err)
	}
	rc, rlast, err := db.RecordStats("d1", "p1")
	if err != nil {
		t.Fatal(err)
	}
	if rc != 1 || !rlast.Equal(time.UnixMilli(4000)) {
		t.Errorf("records = %d @ %v, want 1 @ 4000ms", rc, rlast)
	}

	if _, err := db.CreateConversation("c1", "p1", "d1", time.UnixMilli(1000)); err != nil {
		t.Fatal(err)
	}
	m := &care.Message{ID: "m1", ConversationID: "c1", SenderID: "p1", Kind: care.KindText, Timestamp: time.UnixMilli(6000), Status: care.MessageSent}
	if err := db.InsertMessage(m); err != nil {
		t.Fatal(err)
	}
	mc, mlast, err := db.MessageStats("d1", "p1")
	if err != nil {
		t.Fatal(err)
	}
	if mc != 1 || !mlast.Equal(time.UnixMilli(6000)) {
		t.Errorf("messages = %d @ %v, want 1 @ 6000ms", mc, mlast)
	}
}

func TestPresence(t *testing.T) {
	db := testDB(t)

	// Unknown user reads as offline.
	p, err := db.GetPresence("nobody")
	if err != nil {
		t.Fatal(err)
	}
	if p.IsOnline {
		t.Error("unknown user should be offline")
	}

	if err := db.SetPresence("p1", true, time.UnixMilli(9000)); err != nil {
		t.Fatal(err)
	}
	p, err = db.GetPresence("p1")
	if err != nil {
		t.Fatal(err)
	}
	if !p.IsOnline || !p.LastActive.Equal(time.UnixMilli(9000)) {
		t.Errorf("presence = %+v", p)
	}
}

func TestDeleteConversationCascades(t *testing.T) {
	db := testDB(t)

	if _, err := db.CreateConversation("c1", "p1", "d1", time.UnixMilli(1000)); err != nil {
		t.Fatal(err)
	}
	m := &care.Message{ID: "m1", ConversationID: "c1", SenderID: "p1", Kind: care.KindText, Timestamp: time.UnixMilli(2000), Status: care.MessageSent}
	if err := db.InsertMessage(m); err != nil {
		t.Fatal(err)
	}
	if err := db.DeleteConversation("c1"); err != nil {
		t.Fatal(err)
	}

	got, err := db.GetConversation("c1")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Error("conversation should be gone")
	}
	msgs, err := db.ListRecentMessages("c1", "p1", 30)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 0 {
		t.Errorf("got %d messages after cascade, want 0", len(msgs))
	}
}
