package local

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/caredesk/caredesk/internal/backend"
	"github.com/caredesk/caredesk/internal/bus"
	"github.com/caredesk/caredesk/internal/care"
	"github.com/caredesk/caredesk/internal/store"
)

func testService(t *testing.T) *Service {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := store.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	svc := New(db, bus.New(), zap.NewNop())
	svc.now = func() time.Time { return time.UnixMilli(1_700_000_000_000) }
	return svc
}

func seedConversation(t *testing.T, svc *Service) string {
	t.Helper()
	for _, p := range []care.Profile{
		{ID: "p1", DisplayName: "Ana", Role: care.RolePatient},
		{ID: "d1", DisplayName: "Dr. Lima", Role: care.RoleDoctor},
	} {
		if err := svc.UpsertProfile(p); err != nil {
			t.Fatal(err)
		}
	}
	id, err := svc.StartConversation("p1", "d1")
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func recv[T any](t *testing.T, s *backend.Stream[T]) T {
	t.Helper()
	select {
	case v := <-s.Updates():
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		panic("unreachable")
	}
}

func TestSendMessageUpdatesConversation(t *testing.T) {
	svc := testService(t)
	convID := seedConversation(t, svc)

	err := svc.SendMessage(backend.SendMessageRequest{
		ConversationID: convID,
		SenderID:       "p1",
		Content:        "  hello doctor  ",
	})
	if err != nil {
		t.Fatal(err)
	}

	c, err := svc.db.GetConversation(convID)
	if err != nil {
		t.Fatal(err)
	}
	if c.LastMessage == nil || c.LastMessage.Content != "hello doctor" {
		t.Errorf("last message = %+v, want trimmed hello doctor", c.LastMessage)
	}
	if c.UnreadFor("d1") != 1 {
		t.Errorf("counterpart unread = %d, want 1", c.UnreadFor("d1"))
	}
	if c.UnreadFor("p1") != 0 {
		t.Errorf("sender unread = %d, want 0", c.UnreadFor("p1"))
	}
}

func TestSendMessageFileNameFallback(t *testing.T) {
	svc := testService(t)
	convID := seedConversation(t, svc)

	err := svc.SendMessage(backend.SendMessageRequest{
		ConversationID: convID,
		SenderID:       "p1",
		Kind:           care.KindImage,
		FileName:       "scan.jpg",
		FilePayload:    []byte{0xff, 0xd8},
	})
	if err != nil {
		t.Fatal(err)
	}

	msgs, err := svc.db.ListRecentMessages(convID, "d1", 30)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if msgs[0].Content != "scan.jpg" {
		t.Errorf("content = %q, want file name fallback", msgs[0].Content)
	}
	if msgs[0].FileSize != 2 {
		t.Errorf("file size = %d, want 2", msgs[0].FileSize)
	}
}

func TestSendMessageRejectsEmpty(t *testing.T) {
	svc := testService(t)
	convID := seedConversation(t, svc)

	err := svc.SendMessage(backend.SendMessageRequest{
		ConversationID: convID,
		SenderID:       "p1",
		Content:        "   ",
	})
	if err == nil {
		t.Fatal("expected error for empty content")
	}
}

func TestSubscribeMessagesPushesOnSend(t *testing.T) {
	svc := testService(t)
	convID := seedConversation(t, svc)

	s := svc.SubscribeMessages(convID, "d1")
	defer s.Cancel()

	if initial := recv(t, s); len(initial) != 0 {
		t.Fatalf("initial snapshot has %d messages, want 0", len(initial))
	}

	if err := svc.SendMessage(backend.SendMessageRequest{
		ConversationID: convID, SenderID: "p1", Content: "hi",
	}); err != nil {
		t.Fatal(err)
	}

	next := recv(t, s)
	if len(next) != 1 || next[0].Content != "hi" {
		t.Errorf("snapshot = %+v, want single hi", next)
	}
}

func TestRetractSenderOnly(t *testing.T) {
	svc := testService(t)
	convID := seedConversation(t, svc)

	if err := svc.SendMessage(backend.SendMessageRequest{
		ConversationID: convID, SenderID: "p1", Content: "oops",
	}); err != nil {
		t.Fatal(err)
	}
	msgs, err := svc.db.ListRecentMessages(convID, "p1", 30)
	if err != nil {
		t.Fatal(err)
	}
	msgID := msgs[0].ID

	if err := svc.UnsendMessage(msgID, "d1"); !errors.Is(err, ErrNotAllowed) {
		t.Errorf("unsend by non-sender: err = %v, want ErrNotAllowed", err)
	}
	if err := svc.UnsendMessage(msgID, "p1"); err != nil {
		t.Fatal(err)
	}

	got, err := svc.db.GetMessage(msgID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != care.MessageUnsent || got.Content != "" {
		t.Errorf("message = %+v, want unsent with blank content", got)
	}
}

func TestDeleteForMeHidesForOneViewerOnly(t *testing.T) {
	svc := testService(t)
	convID := seedConversation(t, svc)

	if err := svc.SendMessage(backend.SendMessageRequest{
		ConversationID: convID, SenderID: "p1", Content: "keep",
	}); err != nil {
		t.Fatal(err)
	}
	msgs, _ := svc.db.ListRecentMessages(convID, "p1", 30)
	if err := svc.DeleteMessageForMe(msgs[0].ID, "d1"); err != nil {
		t.Fatal(err)
	}

	forD1, _ := svc.db.ListRecentMessages(convID, "d1", 30)
	forP1, _ := svc.db.ListRecentMessages(convID, "p1", 30)
	if len(forD1) != 0 {
		t.Errorf("deleting viewer still sees %d messages", len(forD1))
	}
	if len(forP1) != 1 {
		t.Errorf("other party sees %d messages, want 1", len(forP1))
	}
}

func TestBatchCompleteSkipsNonApproved(t *testing.T) {
	svc := testService(t)

	seed := []care.Appointment{
		{ID: "a1", PatientID: "p1", DoctorID: "d1", Date: "2024-01-01", Time: "09:00", Status: care.AppointmentApproved},
		{ID: "a2", PatientID: "p1", DoctorID: "d1", Date: "2024-01-01", Time: "10:00", Status: care.AppointmentPending},
		{ID: "a3", PatientID: "p1", DoctorID: "d1", Date: "2024-01-01", Time: "11:00", Status: care.AppointmentCancelled},
	}
	for i := range seed {
		if err := svc.db.UpsertAppointment(&seed[i]); err != nil {
			t.Fatal(err)
		}
	}

	updated, err := svc.BatchCompleteAppointments([]string{"a1", "a2", "a3", "missing"})
	if err != nil {
		t.Fatal(err)
	}
	if len(updated) != 1 || updated[0].ID != "a1" {
		t.Fatalf("updated = %+v, want only a1", updated)
	}
	if updated[0].Status != care.AppointmentCompleted {
		t.Errorf("status = %q, want completed", updated[0].Status)
	}

	// Retry of the same batch must be a no-op.
	again, err := svc.BatchCompleteAppointments([]string{"a1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(again) != 0 {
		t.Errorf("retry updated %d appointments, want 0", len(again))
	}
}

func TestRescheduleCreatesNewPending(t *testing.T) {
	svc := testService(t)

	orig := care.Appointment{
		ID: "a1", PatientID: "p1", DoctorID: "d1", DoctorName: "Dr. Lima",
		Date: "2026-02-01", Time: "09:00", Type: "Checkup",
		Status: care.AppointmentApproved,
	}
	if err := svc.db.UpsertAppointment(&orig); err != nil {
		t.Fatal(err)
	}

	next, err := svc.RescheduleAppointment("a1", "2026-02-10", "14:00")
	if err != nil {
		t.Fatal(err)
	}
	if next.ID == "a1" {
		t.Error("reschedule must mint a new id")
	}
	if next.Status != care.AppointmentPending || next.Date != "2026-02-10" || next.Time != "14:00" {
		t.Errorf("new appointment = %+v", next)
	}
	if next.DoctorName != "Dr. Lima" || next.Type != "Checkup" {
		t.Errorf("carried fields lost: %+v", next)
	}

	old, err := svc.db.GetAppointment("a1")
	if err != nil {
		t.Fatal(err)
	}
	if old.Status != care.AppointmentCancelled {
		t.Errorf("original status = %q, want cancelled", old.Status)
	}
}

func TestTypingExcludesViewer(t *testing.T) {
	svc := testService(t)
	convID := seedConversation(t, svc)

	if err := svc.SetTyping(convID, "p1", true); err != nil {
		t.Fatal(err)
	}
	if err := svc.SetTyping(convID, "d1", true); err != nil {
		t.Fatal(err)
	}

	state := svc.typingFor(convID, "d1")
	if !state["p1"] {
		t.Error("counterpart typing flag missing")
	}
	if state["d1"] {
		t.Error("viewer's own flag must be excluded")
	}

	if err := svc.SetTyping(convID, "p1", false); err != nil {
		t.Fatal(err)
	}
	if len(svc.typingFor(convID, "d1")) != 0 {
		t.Error("flag not cleared")
	}
}

func TestInteractionStats(t *testing.T) {
	svc := testService(t)
	convID := seedConversation(t, svc)

	a := care.Appointment{ID: "a1", PatientID: "p1", DoctorID: "d1", Date: "2026-01-01", Time: "10:00", Status: care.AppointmentPending, UpdatedAt: time.UnixMilli(1000)}
	if err := svc.db.UpsertAppointment(&a); err != nil {
		t.Fatal(err)
	}
	if err := svc.SendMessage(backend.SendMessageRequest{ConversationID: convID, SenderID: "p1", Content: "hi"}); err != nil {
		t.Fatal(err)
	}
	if err := svc.AddRecord("d1", "p1"); err != nil {
		t.Fatal(err)
	}

	stats, err := svc.FetchInteractionStats("d1", "p1")
	if err != nil {
		t.Fatal(err)
	}
	if stats.Appointments != 1 || stats.Messages != 1 || stats.Records != 1 {
		t.Errorf("stats = %+v", stats)
	}
	// Message and record share the fixed clock, newer than the appointment.
	if !stats.LastInteraction.Equal(time.UnixMilli(1_700_000_000_000)) {
		t.Errorf("last interaction = %v", stats.LastInteraction)
	}
}
