package models

import "time"

// Venue is a bookable location owned by a venue account.
type Venue struct {
	ID          string    `json:"id"`
	OwnerID     int64     `json:"owner_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Address     string    `json:"address"`
	Capacity    int       `json:"capacity"`
	CreatedAt   time.Time `json:"created_at"`
}

type InquiryStatus string

const (
	InquiryNew      InquiryStatus = "new"
	InquiryReviewed InquiryStatus = "reviewed"
	InquiryAccepted InquiryStatus = "accepted"
	InquiryDeclined InquiryStatus = "declined"
)

// BookingInquiry is a prospective client's request to book a venue.
type BookingInquiry struct {
	ID          string        `json:"id"`
	VenueID     string        `json:"venue_id"`
	ContactName string        `json:"contact_name"`
	EventDate   time.Time     `json:"event_date"`
	GuestCount  int           `json:"guest_count"`
	Status      InquiryStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
}
