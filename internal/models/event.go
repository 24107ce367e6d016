package models

import "time"

// Event is a planned occasion owned by a client, optionally booked at a venue.
type Event struct {
	ID          string    `json:"id"`
	ClientID    int64     `json:"client_id"`
	VenueID     string    `json:"venue_id,omitempty"`
	Name        string    `json:"name"`
	EventDate   time.Time `json:"event_date"`
	GuestCount  int       `json:"guest_count"`
	BudgetTotal float64   `json:"budget_total"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type TaskStatus string

const (
	TaskPending TaskStatus = "pending"
	TaskDone    TaskStatus = "done"
)

// Task is a planning to-do attached to an event.
type Task struct {
	ID        string     `json:"id"`
	EventID   string     `json:"event_id"`
	Title     string     `json:"title"`
	Status    TaskStatus `json:"status"`
	DueDate   *time.Time `json:"due_date,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// GuestSummary aggregates RSVP state for an event's guest list.
type GuestSummary struct {
	Total     int `json:"total"`
	Confirmed int `json:"confirmed"`
	Declined  int `json:"declined"`
	Pending   int `json:"pending"`
	PartySize int `json:"party_size"`
}

// EventMessage is one entry of the message thread attached to an event.
type EventMessage struct {
	ID         int64     `json:"id"`
	EventID    string    `json:"event_id"`
	SenderName string    `json:"sender_name"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}
