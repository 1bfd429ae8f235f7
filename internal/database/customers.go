package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"heritageblade/internal/domain"
	"heritageblade/internal/models"
)

const customerColumns = `id, name, phone, email, comment, created_at, updated_at`

func (db *DB) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	query := `
        INSERT INTO customers (id, name, phone, email, comment, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `

	_, err := db.ExecContext(ctx, query,
		customer.ID,
		customer.Name,
		customer.Phone,
		customer.Email,
		customer.Comment,
		customer.CreatedAt.UTC(),
		customer.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}

// ListCustomers returns customers by most recent update. A non-empty query
// keeps rows whose name, phone or email contains it, ignoring case.
func (db *DB) ListCustomers(ctx context.Context, query string, limit int) ([]*models.Customer, error) {
	q := strings.TrimSpace(query)

	var (
		rows *sql.Rows
		err  error
	)
	if q == "" {
		rows, err = db.QueryContext(ctx, `
            SELECT `+customerColumns+`
            FROM customers
            ORDER BY updated_at DESC, seq DESC
            LIMIT ?
        `, limit)
	} else {
		// customer_matches is registered by the driver, see database.go
		rows, err = db.QueryContext(ctx, `
            SELECT `+customerColumns+`
            FROM customers
            WHERE customer_matches(name, phone, email, ?1)
            ORDER BY updated_at DESC, seq DESC
            LIMIT ?2
        `, q, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("query customers: %w", err)
	}
	defer rows.Close()

	customers := make([]*models.Customer, 0)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customers: %w", err)
	}
	return customers, nil
}

func (db *DB) GetCustomer(ctx context.Context, id string) (*models.Customer, error) {
	row := db.QueryRowContext(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = ?`, id)
	c, err := scanCustomer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateCustomer overwrites every editable field and updated_at.
func (db *DB) UpdateCustomer(ctx context.Context, customer *models.Customer) error {
	query := `
        UPDATE customers
        SET name = ?, phone = ?, email = ?, comment = ?, updated_at = ?
        WHERE id = ?
    `

	result, err := db.ExecContext(ctx, query,
		customer.Name,
		customer.Phone,
		customer.Email,
		customer.Comment,
		customer.UpdatedAt.UTC(),
		customer.ID,
	)
	if err != nil {
		return fmt.Errorf("update customer: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update customer rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (*models.Customer, error) {
	var c models.Customer
	err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Comment, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan customer: %w", err)
	}
	return &c, nil
}
