package models

import (
	"strings"
	"time"
)

// Customer is a staff-managed client profile.
type Customer struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CustomerInput is the payload of create and replace-style update.
type CustomerInput struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Comment string `json:"comment"`
}

func (in CustomerInput) Normalize() CustomerInput {
	return CustomerInput{
		Name:    strings.TrimSpace(in.Name),
		Phone:   strings.TrimSpace(in.Phone),
		Email:   strings.TrimSpace(in.Email),
		Comment: strings.TrimSpace(in.Comment),
	}
}

// Input returns the editable fields of a stored customer.
func (c *Customer) Input() CustomerInput {
	return CustomerInput{Name: c.Name, Phone: c.Phone, Email: c.Email, Comment: c.Comment}
}

// Matches reports whether name, phone or email contains the query as a
// case-insensitive substring. An empty query matches everything.
func (c *Customer) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(c.Name), q) ||
		strings.Contains(strings.ToLower(c.Phone), q) ||
		strings.Contains(strings.ToLower(c.Email), q)
}
