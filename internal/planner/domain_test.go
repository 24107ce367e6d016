package planner

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"planora/internal/models"
)

func seedEventFixture(t *testing.T, db *sql.DB) {
	t.Helper()
	insertTestUser(t, db, 1, "client@example.com", models.PersonaClient)
	insertTestUser(t, db, 2, "venue@example.com", models.PersonaVenue)
	now := time.Now().UTC()
	mustExec(t, db, `INSERT INTO venues (id, owner_id, name, description, address, capacity, created_at)
		VALUES ('v-1', 2, 'The Grand Hall', '', '1 Main St', 200, ?)`, now)
	mustExec(t, db, `INSERT INTO events (id, client_id, venue_id, name, event_date, guest_count, budget_total, status, created_at)
		VALUES ('evt-1', 1, 'v-1', 'Spring Gala', ?, 120, 25000, 'planning', ?)`, now.Add(30*24*time.Hour), now)
}

func mustExec(t *testing.T, db *sql.DB, query string, args ...any) {
	t.Helper()
	if _, err := db.Exec(query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

func TestEventOwnershipScoping(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	svc := NewService(db, "sqlite3")
	seedEventFixture(t, db)
	ctx := context.Background()

	event, err := svc.GetEventForClient(ctx, "evt-1", 1)
	if err != nil {
		t.Fatalf("GetEventForClient error: %v", err)
	}
	if event.Name != "Spring Gala" {
		t.Fatalf("unexpected event: %#v", event)
	}

	// another client cannot see the event
	if _, err := svc.GetEventForClient(ctx, "evt-1", 99); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected ErrNoRows for foreign client, got %v", err)
	}
	// the hosting venue can
	if _, err := svc.GetEventForVenue(ctx, "evt-1", "v-1"); err != nil {
		t.Fatalf("GetEventForVenue error: %v", err)
	}
	// a different venue cannot
	if _, err := svc.GetEventForVenue(ctx, "evt-1", "v-2"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected ErrNoRows for foreign venue, got %v", err)
	}
}

func TestGetUserAbsentRow(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	svc := NewService(db, "sqlite3")
	seedEventFixture(t, db)
	ctx := context.Background()

	user, err := svc.GetUser(ctx, 1)
	if err != nil {
		t.Fatalf("GetUser error: %v", err)
	}
	if user == nil || user.Email != "client@example.com" {
		t.Fatalf("unexpected user: %#v", user)
	}

	// a deleted or never-created account is absence, not an error
	user, err = svc.GetUser(ctx, 999)
	if err != nil {
		t.Fatalf("GetUser for missing id: %v", err)
	}
	if user != nil {
		t.Fatalf("expected nil user for missing id, got %#v", user)
	}
}

func TestTaskLifecycle(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	svc := NewService(db, "sqlite3")
	seedEventFixture(t, db)
	ctx := context.Background()

	task, err := svc.AddTask(ctx, "evt-1", "Book the florist", nil)
	if err != nil {
		t.Fatalf("AddTask error: %v", err)
	}
	if task.Status != models.TaskPending {
		t.Fatalf("new task should be pending: %#v", task)
	}

	if err := svc.CompleteTask(ctx, "evt-1", task.ID); err != nil {
		t.Fatalf("CompleteTask error: %v", err)
	}
	done, err := svc.ListTasks(ctx, "evt-1", models.TaskDone)
	if err != nil {
		t.Fatalf("ListTasks error: %v", err)
	}
	if len(done) != 1 || done[0].ID != task.ID {
		t.Fatalf("completed task missing: %#v", done)
	}

	// completing a task under someone else's event id finds nothing
	if err := svc.CompleteTask(ctx, "evt-other", task.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected ErrNoRows, got %v", err)
	}
}

func TestGuestSummaryAggregates(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	svc := NewService(db, "sqlite3")
	seedEventFixture(t, db)

	for _, g := range []struct {
		id, status string
		party      int
	}{
		{"g1", "confirmed", 2},
		{"g2", "confirmed", 3},
		{"g3", "declined", 1},
		{"g4", "pending", 4},
	} {
		mustExec(t, db, `INSERT INTO guests (id, event_id, name, rsvp_status, party_size) VALUES (?, 'evt-1', 'guest', ?, ?)`,
			g.id, g.status, g.party)
	}

	summary, err := svc.GuestSummary(context.Background(), "evt-1")
	if err != nil {
		t.Fatalf("GuestSummary error: %v", err)
	}
	if summary.Total != 4 || summary.Confirmed != 2 || summary.Declined != 1 || summary.Pending != 1 {
		t.Fatalf("unexpected totals: %#v", summary)
	}
	if summary.PartySize != 10 {
		t.Fatalf("party size should sum every guest's party, got %d", summary.PartySize)
	}
}

func TestRecentEventMessagesOrder(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	svc := NewService(db, "sqlite3")
	seedEventFixture(t, db)

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		mustExec(t, db, `INSERT INTO event_messages (event_id, sender_name, body, created_at) VALUES ('evt-1', 'sender', ?, ?)`,
			string(rune('a'+i)), base.Add(time.Duration(i)*time.Minute))
	}

	msgs, err := svc.RecentEventMessages(context.Background(), "evt-1", 3)
	if err != nil {
		t.Fatalf("RecentEventMessages error: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	// the newest 3, oldest first
	if msgs[0].Body != "c" || msgs[1].Body != "d" || msgs[2].Body != "e" {
		t.Fatalf("unexpected window: %#v", msgs)
	}
}

func TestUpdateInquiryStatusScoped(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	svc := NewService(db, "sqlite3")
	seedEventFixture(t, db)
	now := time.Now().UTC()
	mustExec(t, db, `INSERT INTO booking_inquiries (id, venue_id, contact_name, event_date, guest_count, status, created_at)
		VALUES ('inq-1', 'v-1', 'Dana', ?, 80, 'new', ?)`, now.Add(60*24*time.Hour), now)
	ctx := context.Background()

	if err := svc.UpdateInquiryStatus(ctx, "v-1", "inq-1", models.InquiryAccepted); err != nil {
		t.Fatalf("UpdateInquiryStatus error: %v", err)
	}
	accepted, err := svc.ListBookingInquiries(ctx, "v-1", models.InquiryAccepted)
	if err != nil {
		t.Fatalf("ListBookingInquiries error: %v", err)
	}
	if len(accepted) != 1 || accepted[0].ID != "inq-1" {
		t.Fatalf("inquiry not updated: %#v", accepted)
	}

	// wrong venue id updates nothing
	if err := svc.UpdateInquiryStatus(ctx, "v-2", "inq-1", models.InquiryDeclined); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected ErrNoRows for foreign venue, got %v", err)
	}
}
