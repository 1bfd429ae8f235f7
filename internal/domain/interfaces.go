package domain

import (
	"context"
	"time"

	"heritageblade/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type BookingStore interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	ListBookings(ctx context.Context, limit int) ([]*models.Booking, error)
}

type CustomerStore interface {
	CreateCustomer(ctx context.Context, customer *models.Customer) error
	ListCustomers(ctx context.Context, query string, limit int) ([]*models.Customer, error)
	GetCustomer(ctx context.Context, id string) (*models.Customer, error)
	UpdateCustomer(ctx context.Context, customer *models.Customer) error
}

// Store is a connected persistence backend.
type Store interface {
	BookingStore
	CustomerStore
	Ping(ctx context.Context) error
	Close() error
}

// StoreProvider hands out the shared store, connecting on first use.
type StoreProvider interface {
	Acquire(ctx context.Context) (Store, error)
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type BookingService interface {
	CreateBooking(ctx context.Context, in models.BookingInput) (string, error)
	ListBookings(ctx context.Context) ([]*models.Booking, error)
}

type CustomerService interface {
	ListCustomers(ctx context.Context, query string) ([]*models.Customer, error)
	CreateCustomer(ctx context.Context, in models.CustomerInput) (string, error)
	GetCustomer(ctx context.Context, id string) (*models.Customer, error)
	UpdateCustomer(ctx context.Context, id string, in models.CustomerInput) error
}
