package planner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"planora/internal/models"
)

// All domain reads here are ownership-scoped: the WHERE clause carries the
// caller's identity so a row outside the caller's tenancy is simply not
// found. Tool bodies rely on this as their second line of scope enforcement.

// GetEventForClient returns the event only when it is owned by the client.
func (s *Service) GetEventForClient(ctx context.Context, eventID string, clientID int64) (*models.Event, error) {
	return s.scanEvent(s.db.QueryRowContext(ctx,
		`SELECT id, client_id, COALESCE(venue_id, ''), name, event_date, guest_count, budget_total, status, created_at
		 FROM events WHERE id = ? AND client_id = ?`,
		eventID, clientID,
	))
}

// GetEventForVenue returns the event only when it is booked at the venue.
func (s *Service) GetEventForVenue(ctx context.Context, eventID, venueID string) (*models.Event, error) {
	return s.scanEvent(s.db.QueryRowContext(ctx,
		`SELECT id, client_id, COALESCE(venue_id, ''), name, event_date, guest_count, budget_total, status, created_at
		 FROM events WHERE id = ? AND venue_id = ?`,
		eventID, venueID,
	))
}

func (s *Service) scanEvent(row *sql.Row) (*models.Event, error) {
	var e models.Event
	err := row.Scan(&e.ID, &e.ClientID, &e.VenueID, &e.Name, &e.EventDate, &e.GuestCount, &e.BudgetTotal, &e.Status, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("query event: %w", err)
	}
	return &e, nil
}

// GetVenueForOwner returns the venue only when it is owned by the user.
func (s *Service) GetVenueForOwner(ctx context.Context, venueID string, ownerID int64) (*models.Venue, error) {
	var v models.Venue
	err := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, name, description, address, capacity, created_at
		 FROM venues WHERE id = ? AND owner_id = ?`,
		venueID, ownerID,
	).Scan(&v.ID, &v.OwnerID, &v.Name, &v.Description, &v.Address, &v.Capacity, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("query venue: %w", err)
	}
	return &v, nil
}

// ListTasks returns the event's tasks, optionally filtered by status,
// ordered by due date then creation.
func (s *Service) ListTasks(ctx context.Context, eventID string, status models.TaskStatus) ([]models.Task, error) {
	query := `SELECT id, event_id, title, status, due_date, created_at FROM tasks WHERE event_id = ?`
	args := []any{eventID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY due_date IS NULL, due_date ASC, created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		var t models.Task
		var due sql.NullTime
		if err := rows.Scan(&t.ID, &t.EventID, &t.Title, &t.Status, &due, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		if due.Valid {
			d := due.Time
			t.DueDate = &d
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// AddTask inserts a pending task for the event and returns the record.
func (s *Service) AddTask(ctx context.Context, eventID, title string, due *time.Time) (*models.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errors.New("title cannot be empty")
	}
	now := time.Now().UTC()
	task := models.Task{
		ID:        uuid.NewString(),
		EventID:   eventID,
		Title:     title,
		Status:    models.TaskPending,
		DueDate:   due,
		CreatedAt: now,
	}
	var dueVal any
	if due != nil {
		dueVal = due.UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, event_id, title, status, due_date, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		task.ID, task.EventID, task.Title, task.Status, dueVal, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return &task, nil
}

// CompleteTask marks the task done. The event id scopes the update so a
// task belonging to another event is reported as not found.
func (s *Service) CompleteTask(ctx context.Context, eventID, taskID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = ? WHERE id = ? AND event_id = ?`,
		models.TaskDone, taskID, eventID,
	)
	if err != nil {
		return fmt.Errorf("complete task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("task rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// GuestSummary aggregates RSVP counts for the event's guest list.
func (s *Service) GuestSummary(ctx context.Context, eventID string) (*models.GuestSummary, error) {
	var g models.GuestSummary
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN rsvp_status = 'confirmed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN rsvp_status = 'declined' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN rsvp_status = 'pending' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(party_size), 0)
		 FROM guests WHERE event_id = ?`,
		eventID,
	).Scan(&g.Total, &g.Confirmed, &g.Declined, &g.Pending, &g.PartySize)
	if err != nil {
		return nil, fmt.Errorf("guest summary: %w", err)
	}
	return &g, nil
}

// RecentEventMessages returns the latest thread entries, newest last.
func (s *Service) RecentEventMessages(ctx context.Context, eventID string, limit int) ([]models.EventMessage, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, event_id, sender_name, body, created_at FROM
			(SELECT id, event_id, sender_name, body, created_at FROM event_messages
			 WHERE event_id = ? ORDER BY created_at DESC, id DESC LIMIT ?) AS recent
		 ORDER BY created_at ASC, id ASC`,
		eventID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list event messages: %w", err)
	}
	defer rows.Close()

	var msgs []models.EventMessage
	for rows.Next() {
		var m models.EventMessage
		if err := rows.Scan(&m.ID, &m.EventID, &m.SenderName, &m.Body, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// ListUpcomingEvents returns the venue's future events ordered by date.
func (s *Service) ListUpcomingEvents(ctx context.Context, venueID string, limit int) ([]models.Event, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, client_id, COALESCE(venue_id, ''), name, event_date, guest_count, budget_total, status, created_at
		 FROM events WHERE venue_id = ? AND event_date >= ? ORDER BY event_date ASC LIMIT ?`,
		venueID, time.Now().UTC(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list upcoming events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var e models.Event
		if err := rows.Scan(&e.ID, &e.ClientID, &e.VenueID, &e.Name, &e.EventDate, &e.GuestCount, &e.BudgetTotal, &e.Status, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// ListBookingInquiries returns the venue's inquiries, optionally filtered by status.
func (s *Service) ListBookingInquiries(ctx context.Context, venueID string, status models.InquiryStatus) ([]models.BookingInquiry, error) {
	query := `SELECT id, venue_id, contact_name, event_date, guest_count, status, created_at
		 FROM booking_inquiries WHERE venue_id = ?`
	args := []any{venueID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list booking inquiries: %w", err)
	}
	defer rows.Close()

	var inquiries []models.BookingInquiry
	for rows.Next() {
		var q models.BookingInquiry
		if err := rows.Scan(&q.ID, &q.VenueID, &q.ContactName, &q.EventDate, &q.GuestCount, &q.Status, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan booking inquiry: %w", err)
		}
		inquiries = append(inquiries, q)
	}
	return inquiries, rows.Err()
}

// UpdateInquiryStatus moves a booking inquiry to a new status. The venue id
// scopes the update so another venue's inquiry is reported as not found.
func (s *Service) UpdateInquiryStatus(ctx context.Context, venueID, inquiryID string, status models.InquiryStatus) error {
	switch status {
	case models.InquiryNew, models.InquiryReviewed, models.InquiryAccepted, models.InquiryDeclined:
	default:
		return fmt.Errorf("invalid inquiry status: %s", status)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE booking_inquiries SET status = ? WHERE id = ? AND venue_id = ?`,
		status, inquiryID, venueID,
	)
	if err != nil {
		return fmt.Errorf("update inquiry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("inquiry rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
