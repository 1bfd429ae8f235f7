package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"heritageblade/internal/domain"
	"heritageblade/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the PostgreSQL implementation of domain.Store.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Open connects to url, verifies the connection and creates missing tables.
func Open(ctx context.Context, url string, maxConns int) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := NewStore(pool)
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS bookings (
			seq BIGSERIAL PRIMARY KEY,
			id TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			phone TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			service TEXT NOT NULL DEFAULT '',
			date TEXT NOT NULL,
			time TEXT NOT NULL,
			comment TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS customers (
			seq BIGSERIAL PRIMARY KEY,
			id TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			phone TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			comment TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_created_at ON bookings (created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_customers_updated_at ON customers (updated_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_customers_phone ON customers (phone)`,
		`CREATE INDEX IF NOT EXISTS idx_customers_email ON customers (email)`,
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) CreateBooking(ctx context.Context, booking *models.Booking) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO bookings (id, name, phone, email, service, date, time, comment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, booking.ID, booking.Name, booking.Phone, booking.Email, booking.Service,
		booking.Date, booking.Time, booking.Comment, booking.CreatedAt, booking.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

func (s *Store) ListBookings(ctx context.Context, limit int) ([]*models.Booking, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, phone, email, service, date, time, comment, created_at, updated_at
		FROM bookings
		ORDER BY created_at DESC, seq DESC
		LIMIT $1
	`, limit)
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
	return bookings, rows.Err()
}

func (s *Store) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO customers (id, name, phone, email, comment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, customer.ID, customer.Name, customer.Phone, customer.Email, customer.Comment,
		customer.CreatedAt, customer.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}

func (s *Store) ListCustomers(ctx context.Context, query string, limit int) ([]*models.Customer, error) {
	q := strings.ToLower(strings.TrimSpace(query))

	var (
		rows pgx.Rows
		err  error
	)
	if q == "" {
		rows, err = s.pool.Query(ctx, `
			SELECT id, name, phone, email, comment, created_at, updated_at
			FROM customers
			ORDER BY updated_at DESC, seq DESC
			LIMIT $1
		`, limit)
	} else {
		rows, err = s.pool.Query(ctx, `
			SELECT id, name, phone, email, comment, created_at, updated_at
			FROM customers
			WHERE strpos(lower(name), $1) > 0
			   OR strpos(lower(phone), $1) > 0
			   OR strpos(lower(email), $1) > 0
			ORDER BY updated_at DESC, seq DESC
			LIMIT $2
		`, q, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("query customers: %w", err)
	}
	defer rows.Close()

	customers := make([]*models.Customer, 0)
	for rows.Next() {
		var c models.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Comment, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		customers = append(customers, &c)
	}
	return customers, rows.Err()
}

func (s *Store) GetCustomer(ctx context.Context, id string) (*models.Customer, error) {
	var c models.Customer
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, phone, email, comment, created_at, updated_at
		FROM customers
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Comment, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return &c, nil
}

func (s *Store) UpdateCustomer(ctx context.Context, customer *models.Customer) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE customers
		SET name = $1, phone = $2, email = $3, comment = $4, updated_at = $5
		WHERE id = $6
	`, customer.Name, customer.Phone, customer.Email, customer.Comment, customer.UpdatedAt, customer.ID)
	if err != nil {
		return fmt.Errorf("update customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
