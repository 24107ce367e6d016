package agent

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"planora/internal/config"
	"planora/internal/models"
	"planora/internal/planner"
	"planora/internal/storage"
)

func TestAllowsAgent(t *testing.T) {
	cases := []struct {
		name      string
		persona   models.Persona
		agentType models.AgentType
		scope     Scope
		wantErr   error
	}{
		{"client ok", models.PersonaClient, models.AgentClient, Scope{EventID: "evt-1"}, nil},
		{"client missing event", models.PersonaClient, models.AgentClient, Scope{}, ErrInvalidScope},
		{"client with venue id", models.PersonaClient, models.AgentClient, Scope{EventID: "evt-1", VenueID: "v-1"}, ErrInvalidScope},
		{"client on venue agent", models.PersonaClient, models.AgentVenueGeneral, Scope{VenueID: "v-1"}, ErrForbidden},
		{"venue general ok", models.PersonaVenue, models.AgentVenueGeneral, Scope{VenueID: "v-1"}, nil},
		{"venue general missing venue", models.PersonaVenue, models.AgentVenueGeneral, Scope{}, ErrInvalidScope},
		{"venue event ok", models.PersonaVenue, models.AgentVenueEvent, Scope{VenueID: "v-1", EventID: "evt-1"}, nil},
		{"venue event missing event", models.PersonaVenue, models.AgentVenueEvent, Scope{VenueID: "v-1"}, ErrInvalidScope},
		{"vendor has no agent", models.PersonaVendor, models.AgentClient, Scope{EventID: "evt-1"}, ErrForbidden},
		{"unknown agent type", models.PersonaClient, models.AgentType("mystery"), Scope{EventID: "evt-1"}, ErrInvalidScope},
	}
	for _, tc := range cases {
		err := AllowsAgent(tc.persona, tc.agentType, tc.scope)
		if !errors.Is(err, tc.wantErr) && !(err == nil && tc.wantErr == nil) {
			t.Fatalf("%s: got %v, want %v", tc.name, err, tc.wantErr)
		}
	}
}

func TestResolverUnknownUser(t *testing.T) {
	svc, db := newTestPlanner(t)
	defer db.Close()
	r := NewResolver(svc)

	if _, err := r.Resolve(context.Background(), 0); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated for id 0, got %v", err)
	}
	if _, err := r.Resolve(context.Background(), 999); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated for missing user, got %v", err)
	}
}

func TestBuilderClientSnapshot(t *testing.T) {
	svc, db := newTestPlanner(t)
	defer db.Close()
	seedAgentFixture(t, db)
	b := NewBuilder(svc)
	auth := AuthContext{
		Identity: Identity{UserID: 1, Persona: models.PersonaClient},
		Scope:    Scope{EventID: "evt-1"},
	}

	snap, err := b.Build(context.Background(), auth, models.AgentClient)
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if snap.Event == nil || snap.Event.Name != "Spring Gala" {
		t.Fatalf("event not loaded: %#v", snap.Event)
	}
	if len(snap.Tasks) != 1 || snap.Guests == nil || len(snap.Messages) != 1 {
		t.Fatalf("supporting data not loaded: %#v", snap)
	}
	if snap.Venue != nil {
		t.Fatalf("client snapshot should not carry a venue profile")
	}
}

func TestBuilderMissingEvent(t *testing.T) {
	svc, db := newTestPlanner(t)
	defer db.Close()
	seedAgentFixture(t, db)
	b := NewBuilder(svc)
	auth := AuthContext{
		Identity: Identity{UserID: 1, Persona: models.PersonaClient},
		Scope:    Scope{EventID: "evt-absent"},
	}

	if _, err := b.Build(context.Background(), auth, models.AgentClient); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBuilderForeignEvent(t *testing.T) {
	svc, db := newTestPlanner(t)
	defer db.Close()
	seedAgentFixture(t, db)
	b := NewBuilder(svc)
	// user 3 is another client and must not see evt-1
	auth := AuthContext{
		Identity: Identity{UserID: 3, Persona: models.PersonaClient},
		Scope:    Scope{EventID: "evt-1"},
	}

	if _, err := b.Build(context.Background(), auth, models.AgentClient); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign event, got %v", err)
	}
}

func TestBuilderVenueSnapshots(t *testing.T) {
	svc, db := newTestPlanner(t)
	defer db.Close()
	seedAgentFixture(t, db)
	b := NewBuilder(svc)
	auth := AuthContext{
		Identity: Identity{UserID: 2, Persona: models.PersonaVenue},
		Scope:    Scope{VenueID: "v-1"},
	}

	general, err := b.Build(context.Background(), auth, models.AgentVenueGeneral)
	if err != nil {
		t.Fatalf("Build venue_general error: %v", err)
	}
	if general.Venue == nil || general.Venue.Name != "The Grand Hall" {
		t.Fatalf("venue not loaded: %#v", general.Venue)
	}
	if len(general.Inquiries) != 1 {
		t.Fatalf("inquiries not loaded: %#v", general.Inquiries)
	}

	auth.Scope.EventID = "evt-1"
	eventSnap, err := b.Build(context.Background(), auth, models.AgentVenueEvent)
	if err != nil {
		t.Fatalf("Build venue_event error: %v", err)
	}
	if eventSnap.Venue == nil || eventSnap.Event == nil {
		t.Fatalf("venue_event snapshot incomplete: %#v", eventSnap)
	}
}

func TestBuilderToleratesEmptySupportingData(t *testing.T) {
	svc, db := newTestPlanner(t)
	defer db.Close()
	// event exists but has no tasks, guests or messages
	insertAgentUser(t, db, 1, models.PersonaClient)
	mustExecAgent(t, db, `INSERT INTO events (id, client_id, name, event_date, guest_count, budget_total, status, created_at)
		VALUES ('evt-bare', 1, 'Bare Event', ?, 0, 0, 'planning', ?)`, time.Now().UTC(), time.Now().UTC())
	b := NewBuilder(svc)
	auth := AuthContext{
		Identity: Identity{UserID: 1, Persona: models.PersonaClient},
		Scope:    Scope{EventID: "evt-bare"},
	}

	snap, err := b.Build(context.Background(), auth, models.AgentClient)
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if snap.Event == nil {
		t.Fatalf("event should load even with no supporting data")
	}
	if snap.Guests == nil || snap.Guests.Total != 0 {
		t.Fatalf("empty guest list should degrade to zero totals: %#v", snap.Guests)
	}
}

// --- helpers ---

func newTestPlanner(t *testing.T) (*planner.Service, *sql.DB) {
	t.Helper()
	cfg := &config.Config{
		Databases: map[string]config.DatabaseConfig{
			"sqlite3": {
				DSN: ":memory:",
			},
		},
	}
	db, err := storage.Open("sqlite3", cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := storage.Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("migrate db: %v", err)
	}
	return planner.NewService(db, "sqlite3"), db
}

func insertAgentUser(t *testing.T, db *sql.DB, id int64, persona models.Persona) {
	t.Helper()
	mustExecAgent(t, db, `INSERT INTO users (id, email, password_hash, user_type, created_at) VALUES (?, ?, '', ?, ?)`,
		id, time.Now().Format("150405.000000")+"@example.com", persona, time.Now().UTC())
}

func mustExecAgent(t *testing.T, db *sql.DB, query string, args ...any) {
	t.Helper()
	if _, err := db.Exec(query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

func seedAgentFixture(t *testing.T, db *sql.DB) {
	t.Helper()
	insertAgentUser(t, db, 1, models.PersonaClient)
	insertAgentUser(t, db, 2, models.PersonaVenue)
	insertAgentUser(t, db, 3, models.PersonaClient)
	now := time.Now().UTC()
	mustExecAgent(t, db, `INSERT INTO venues (id, owner_id, name, description, address, capacity, created_at)
		VALUES ('v-1', 2, 'The Grand Hall', '', '1 Main St', 200, ?)`, now)
	mustExecAgent(t, db, `INSERT INTO events (id, client_id, venue_id, name, event_date, guest_count, budget_total, status, created_at)
		VALUES ('evt-1', 1, 'v-1', 'Spring Gala', ?, 120, 25000, 'planning', ?)`, now.Add(30*24*time.Hour), now)
	mustExecAgent(t, db, `INSERT INTO tasks (id, event_id, title, status, created_at)
		VALUES ('t1', 'evt-1', 'Book the florist', 'pending', ?)`, now)
	mustExecAgent(t, db, `INSERT INTO guests (id, event_id, name, rsvp_status, party_size)
		VALUES ('g1', 'evt-1', 'Dana', 'confirmed', 2)`)
	mustExecAgent(t, db, `INSERT INTO event_messages (event_id, sender_name, body, created_at)
		VALUES ('evt-1', 'Dana', 'Can we add a vegan option?', ?)`, now)
	mustExecAgent(t, db, `INSERT INTO booking_inquiries (id, venue_id, contact_name, event_date, guest_count, status, created_at)
		VALUES ('inq-1', 'v-1', 'Sam', ?, 80, 'new', ?)`, now.Add(60*24*time.Hour), now)
}
