package agent

import (
	"context"
	"fmt"

	"planora/internal/models"
	"planora/internal/planner"
)

// Identity is the resolved caller of an agent turn.
type Identity struct {
	UserID  int64
	Persona models.Persona
}

// Scope names the entities a turn is allowed to read.
type Scope struct {
	EventID string
	VenueID string
}

// AuthContext bundles the caller with their validated scope. Tools close
// over it so every data access is bounded by it.
type AuthContext struct {
	Identity Identity
	Scope    Scope
}

// Resolver turns an authenticated user id into an Identity.
type Resolver struct {
	planner *planner.Service
}

func NewResolver(p *planner.Service) *Resolver {
	return &Resolver{planner: p}
}

// Resolve looks the user up and validates their persona. A missing user
// yields ErrUnauthenticated, an unknown persona ErrForbidden.
func (r *Resolver) Resolve(ctx context.Context, userID int64) (Identity, error) {
	if userID <= 0 {
		return Identity{}, ErrUnauthenticated
	}
	user, err := r.planner.GetUser(ctx, userID)
	if err != nil {
		return Identity{}, fmt.Errorf("resolve user: %w", err)
	}
	if user == nil {
		return Identity{}, ErrUnauthenticated
	}
	if !user.UserType.Known() {
		return Identity{}, ErrForbidden
	}
	return Identity{UserID: user.ID, Persona: user.UserType}, nil
}

// AllowsAgent reports whether a persona may use an agent type and whether
// the scope carries the ids that agent type requires.
func AllowsAgent(persona models.Persona, agentType models.AgentType, scope Scope) error {
	switch agentType {
	case models.AgentClient:
		if persona != models.PersonaClient {
			return ErrForbidden
		}
		if scope.EventID == "" || scope.VenueID != "" {
			return ErrInvalidScope
		}
	case models.AgentVenueGeneral:
		if persona != models.PersonaVenue {
			return ErrForbidden
		}
		if scope.VenueID == "" || scope.EventID != "" {
			return ErrInvalidScope
		}
	case models.AgentVenueEvent:
		if persona != models.PersonaVenue {
			return ErrForbidden
		}
		if scope.VenueID == "" || scope.EventID == "" {
			return ErrInvalidScope
		}
	default:
		return ErrInvalidScope
	}
	return nil
}
