package database

import (
	"context"
	"fmt"

	"heritageblade/internal/models"
)

// CreateBooking inserts a booking whose id and timestamps are already set.
func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	query := `
        INSERT INTO bookings (id, name, phone, email, service, date, time, comment, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `

	_, err := db.ExecContext(ctx, query,
		booking.ID,
		booking.Name,
		booking.Phone,
		booking.Email,
		booking.Service,
		booking.Date,
		booking.Time,
		booking.Comment,
		booking.CreatedAt.UTC(),
		booking.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

// ListBookings returns the newest bookings first.
func (db *DB) ListBookings(ctx context.Context, limit int) ([]*models.Booking, error) {
	query := `
        SELECT id, name, phone, email, service, date, time, comment, created_at, updated_at
        FROM bookings
        ORDER BY created_at DESC, seq DESC
        LIMIT ?
    `

	rows, err := db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]*models.Booking, 0)
	for rows.Next() {
		var b models.Booking
		if err := rows.Scan(&b.ID, &b.Name, &b.Phone, &b.Email, &b.Service, &b.Date, &b.Time, &b.Comment, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookings: %w", err)
	}
	return bookings, nil
}
