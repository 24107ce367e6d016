package agent

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"planora/internal/models"
	"planora/internal/planner"
)

const (
	recentMessageLimit  = 10
	upcomingEventsLimit = 8
)

// Snapshot is the derived, read-only summary of domain state that grounds a
// conversation. It is built per (agent type, scope), cached by key, and
// rebuilt on expiry. Fields are populated as applicable to the agent type.
type Snapshot struct {
	AgentType models.AgentType       `json:"agent_type"`
	Event     *models.Event          `json:"event,omitempty"`
	Tasks     []models.Task          `json:"tasks,omitempty"`
	Guests    *models.GuestSummary   `json:"guests,omitempty"`
	Messages  []models.EventMessage  `json:"messages,omitempty"`
	Venue     *models.Venue          `json:"venue,omitempty"`
	Upcoming  []models.Event         `json:"upcoming,omitempty"`
	Inquiries []models.BookingInquiry `json:"inquiries,omitempty"`
}

// ContextBuilder assembles a Snapshot for an authorized caller. It is an
// interface so request handlers can be tested with a counting or canned
// implementation.
type ContextBuilder interface {
	Build(ctx context.Context, auth AuthContext, agentType models.AgentType) (*Snapshot, error)
}

// Builder reads domain state through ownership-scoped queries.
type Builder struct {
	planner *planner.Service
}

func NewBuilder(p *planner.Service) *Builder {
	return &Builder{planner: p}
}

// Build validates the scope against the agent type, loads the anchoring
// entity (event or venue), and gathers the supporting records. The anchor
// must exist and belong to the caller; supporting lookups degrade to empty
// values on failure rather than failing the build.
func (b *Builder) Build(ctx context.Context, auth AuthContext, agentType models.AgentType) (*Snapshot, error) {
	if err := AllowsAgent(auth.Identity.Persona, agentType, auth.Scope); err != nil {
		return nil, err
	}
	snap := &Snapshot{AgentType: agentType}

	switch agentType {
	case models.AgentClient:
		event, err := b.planner.GetEventForClient(ctx, auth.Scope.EventID, auth.Identity.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("load event: %w", err)
		}
		snap.Event = event
		b.fillEventDetail(ctx, snap, event.ID)

	case models.AgentVenueGeneral:
		venue, err := b.loadVenue(ctx, auth)
		if err != nil {
			return nil, err
		}
		snap.Venue = venue
		if upcoming, err := b.planner.ListUpcomingEvents(ctx, venue.ID, upcomingEventsLimit); err == nil {
			snap.Upcoming = upcoming
		}
		if inquiries, err := b.planner.ListBookingInquiries(ctx, venue.ID, ""); err == nil {
			snap.Inquiries = inquiries
		}

	case models.AgentVenueEvent:
		venue, err := b.loadVenue(ctx, auth)
		if err != nil {
			return nil, err
		}
		snap.Venue = venue
		event, err := b.planner.GetEventForVenue(ctx, auth.Scope.EventID, venue.ID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("load event: %w", err)
		}
		snap.Event = event
		b.fillEventDetail(ctx, snap, event.ID)

	default:
		return nil, ErrInvalidScope
	}
	return snap, nil
}

func (b *Builder) loadVenue(ctx context.Context, auth AuthContext) (*models.Venue, error) {
	venue, err := b.planner.GetVenueForOwner(ctx, auth.Scope.VenueID, auth.Identity.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load venue: %w", err)
	}
	return venue, nil
}

// fillEventDetail loads tasks, guest aggregates and recent thread messages.
// Each lookup degrades independently: a failure leaves its field empty.
func (b *Builder) fillEventDetail(ctx context.Context, snap *Snapshot, eventID string) {
	if tasks, err := b.planner.ListTasks(ctx, eventID, ""); err == nil {
		snap.Tasks = tasks
	}
	if guests, err := b.planner.GuestSummary(ctx, eventID); err == nil {
		snap.Guests = guests
	}
	if messages, err := b.planner.RecentEventMessages(ctx, eventID, recentMessageLimit); err == nil {
		snap.Messages = messages
	}
}
