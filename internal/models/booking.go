package models

import (
	"strings"
	"time"
)

// Booking is a single appointment request submitted from the booking form.
type Booking struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	Service   string    `json:"service"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BookingInput is the client payload of the create booking operation.
// Notes is the form field name for the comment; CreatedAt is sent by the
// booking form and ignored by the server.
type BookingInput struct {
	Name      string `json:"name"`
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
	Service   string `json:"service,omitempty"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Notes     string `json:"notes,omitempty"`
	Comment   string `json:"comment,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// Normalize returns a copy with every text field trimmed.
func (in BookingInput) Normalize() BookingInput {
	return BookingInput{
		Name:      strings.TrimSpace(in.Name),
		Phone:     strings.TrimSpace(in.Phone),
		Email:     strings.TrimSpace(in.Email),
		Service:   strings.TrimSpace(in.Service),
		Date:      strings.TrimSpace(in.Date),
		Time:      strings.TrimSpace(in.Time),
		Notes:     strings.TrimSpace(in.Notes),
		Comment:   strings.TrimSpace(in.Comment),
		CreatedAt: in.CreatedAt,
	}
}

// ResolvedComment picks notes over comment.
func (in BookingInput) ResolvedComment() string {
	if in.Notes != "" {
		return in.Notes
	}
	return in.Comment
}

// MissingFields lists required fields that are blank.
func (in BookingInput) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(in.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(in.Date) == "" {
		missing = append(missing, "date")
	}
	if strings.TrimSpace(in.Time) == "" {
		missing = append(missing, "time")
	}
	return missing
}
