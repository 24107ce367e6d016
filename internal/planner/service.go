package planner

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"planora/internal/models"
)

// Service handles account lifecycle and all scoped domain reads and writes
// the agent layer depends on. The driver selects upsert dialect; it must
// match what storage.Open was given.
type Service struct {
	db     *sql.DB
	driver string
}

// NewService builds a planner service bound to the given driver.
func NewService(db *sql.DB, driver string) *Service {
	return &Service{db: db, driver: strings.ToLower(driver)}
}

// RegisterUser creates a portal account with the supplied credentials and persona.
func (s *Service) RegisterUser(ctx context.Context, email, password string, userType models.Persona) (*models.User, error) {
	email = strings.TrimSpace(email)
	password = strings.TrimSpace(password)
	if email == "" || password == "" {
		return nil, errors.New("email and password are required")
	}
	if !userType.Known() {
		return nil, fmt.Errorf("unknown user type: %s", userType)
	}

	hash := hashPassword(password)
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, user_type, created_at) VALUES (?, ?, ?, ?)`,
		email, hash, userType, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("user id: %w", err)
	}
	return &models.User{ID: id, Email: email, PasswordHash: hash, UserType: userType, CreatedAt: now}, nil
}

// Login validates credentials and returns the user profile.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.TrimSpace(email)
	password = strings.TrimSpace(password)
	if email == "" || password == "" {
		return nil, errors.New("email and password are required")
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, user_type, created_at FROM users WHERE email = ?`, email,
	)
	var user models.User
	if err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.UserType, &user.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.New("invalid credentials")
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	if user.PasswordHash != hashPassword(password) {
		return nil, errors.New("invalid credentials")
	}
	return &user, nil
}

// GetUser returns the account for the given id, or (nil, nil) when no
// such account exists.
func (s *Service) GetUser(ctx context.Context, id int64) (*models.User, error) {
	if id <= 0 {
		return nil, errors.New("invalid user id")
	}
	var user models.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, user_type, created_at FROM users WHERE id = ?`, id,
	).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.UserType, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &user, nil
}

func hashPassword(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}
