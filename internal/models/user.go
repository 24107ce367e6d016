package models

import "time"

// Persona tags a user account with the portal it belongs to.
type Persona string

const (
	PersonaClient Persona = "client"
	PersonaVenue  Persona = "venue"
	PersonaVendor Persona = "vendor"
)

// Known reports whether the persona tag is one the system recognizes.
func (p Persona) Known() bool {
	switch p {
	case PersonaClient, PersonaVenue, PersonaVendor:
		return true
	}
	return false
}

// User is a portal account. UserType carries the persona tag.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	UserType     Persona   `json:"user_type"`
	CreatedAt    time.Time `json:"created_at"`
}
