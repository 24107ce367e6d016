package planner

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"planora/internal/models"
)

// ErrChatExists is returned by CreateChat when the id is already taken.
var ErrChatExists = errors.New("chat already exists")

// GetChat looks a chat up by id. Returns (nil, nil) when absent.
func (s *Service) GetChat(ctx context.Context, chatID string) (*models.Chat, error) {
	if chatID == "" {
		return nil, errors.New("chat id is required")
	}
	var c models.Chat
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, persona, agent_type, COALESCE(event_id, ''), COALESCE(venue_id, ''), title, created_at
		 FROM chats WHERE id = ?`,
		chatID,
	).Scan(&c.ID, &c.UserID, &c.Persona, &c.AgentType, &c.EventID, &c.VenueID, &c.Title, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query chat: %w", err)
	}
	return &c, nil
}

// CreateChat inserts a new chat record. Fails with ErrChatExists when the
// id is already present.
func (s *Service) CreateChat(ctx context.Context, chat models.Chat) (*models.Chat, error) {
	if chat.ID == "" {
		return nil, errors.New("chat id is required")
	}
	if chat.UserID <= 0 {
		return nil, errors.New("user id is required")
	}
	chat.Title = strings.TrimSpace(chat.Title)
	if chat.Title == "" {
		chat.Title = "New Conversation"
	}
	chat.CreatedAt = time.Now().UTC()

	var eventID, venueID any
	if chat.EventID != "" {
		eventID = chat.EventID
	}
	if chat.VenueID != "" {
		venueID = chat.VenueID
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chats (id, user_id, persona, agent_type, event_id, venue_id, title, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		chat.ID, chat.UserID, chat.Persona, chat.AgentType, eventID, venueID, chat.Title, chat.CreatedAt,
	)
	if err != nil {
		if existing, lookupErr := s.GetChat(ctx, chat.ID); lookupErr == nil && existing != nil {
			return nil, ErrChatExists
		}
		return nil, fmt.Errorf("create chat: %w", err)
	}
	return &chat, nil
}

// GetOrCreateChat attaches to an existing chat or creates one. First writer
// wins: when two first messages race on a fresh id, the loser of the insert
// re-reads and attaches to the created record.
func (s *Service) GetOrCreateChat(ctx context.Context, chat models.Chat) (*models.Chat, error) {
	existing, err := s.GetChat(ctx, chat.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	created, err := s.CreateChat(ctx, chat)
	if err == nil {
		return created, nil
	}
	if errors.Is(err, ErrChatExists) {
		existing, lookupErr := s.GetChat(ctx, chat.ID)
		if lookupErr != nil {
			return nil, lookupErr
		}
		if existing != nil {
			return existing, nil
		}
	}
	return nil, err
}

// UpsertMessage inserts the message, or replaces its parts when the id is
// already present in the chat. Safe to call twice with the same message;
// the second call's content wins.
func (s *Service) UpsertMessage(ctx context.Context, chatID string, msg models.ChatMessage) error {
	if chatID == "" {
		return errors.New("chat id is required")
	}
	if msg.ID == "" {
		return errors.New("message id is required")
	}
	if msg.Role != models.RoleUser && msg.Role != models.RoleAssistant {
		return fmt.Errorf("invalid message role: %s", msg.Role)
	}
	parts, err := json.Marshal(msg.Parts)
	if err != nil {
		return fmt.Errorf("encode message parts: %w", err)
	}
	createdAt := msg.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx, upsertMessageQuery(s.driver),
		chatID, msg.ID, msg.Role, string(parts), createdAt,
	)
	if err != nil {
		return fmt.Errorf("upsert message: %w", err)
	}
	return nil
}

// upsertMessageQuery picks the conflict clause for the active driver.
// created_at is deliberately left out of the update set so a re-upserted
// message keeps its original position in the history.
func upsertMessageQuery(driver string) string {
	if driver == "mysql" {
		return `INSERT INTO chat_messages (chat_id, id, role, parts, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE role = VALUES(role), parts = VALUES(parts)`
	}
	return `INSERT INTO chat_messages (chat_id, id, role, parts, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(chat_id, id) DO UPDATE SET role = excluded.role, parts = excluded.parts`
}

// LoadMessages returns the chat's messages in ascending creation order.
// Repeated calls yield identical results absent new writes.
func (s *Service) LoadMessages(ctx context.Context, chatID string) ([]*models.ChatMessage, error) {
	if chatID == "" {
		return nil, errors.New("chat id is required")
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT chat_id, id, role, parts, created_at FROM chat_messages
		 WHERE chat_id = ? ORDER BY created_at ASC, id ASC`,
		chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	defer rows.Close()

	var msgs []*models.ChatMessage
	for rows.Next() {
		m := new(models.ChatMessage)
		var parts string
		if err := rows.Scan(&m.ChatID, &m.ID, &m.Role, &parts, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		if err := json.Unmarshal([]byte(parts), &m.Parts); err != nil {
			return nil, fmt.Errorf("decode message parts: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
