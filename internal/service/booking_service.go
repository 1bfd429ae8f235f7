package service

import (
	"context"
	"fmt"
	"time"

	"heritageblade/internal/domain"
	"heritageblade/internal/events"
	"heritageblade/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type BookingService struct {
	stores   domain.StoreProvider
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewBookingService(stores domain.StoreProvider, eventBus domain.EventPublisher, logger *zerolog.Logger) *BookingService {
	return &BookingService{
		stores:   stores,
		eventBus: eventBus,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateBooking validates the payload, persists the booking and returns its id.
// Notes wins over comment; a client-supplied createdAt is ignored.
func (s *BookingService) CreateBooking(ctx context.Context, in models.BookingInput) (string, error) {
	in = in.Normalize()
	if len(in.MissingFields()) > 0 {
		return "", domain.MissingFields("name", "date", "time")
	}

	store, err := s.stores.Acquire(ctx)
	if err != nil {
		return "", err
	}

	now := s.now().UTC()
	booking := &models.Booking{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Phone:     in.Phone,
		Email:     in.Email,
		Service:   in.Service,
		Date:      in.Date,
		Time:      in.Time,
		Comment:   in.ResolvedComment(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.CreateBooking(ctx, booking); err != nil {
		return "", fmt.Errorf("create booking: %w", err)
	}

	s.publishEvent(events.EventBookingCreated, events.NewBookingPayload(booking))
	return booking.ID, nil
}

// ListBookings returns the most recent bookings, newest first.
func (s *BookingService) ListBookings(ctx context.Context) ([]*models.Booking, error) {
	store, err := s.stores.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	bookings, err := store.ListBookings(ctx, models.BookingListLimit)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}

func (s *BookingService) publishEvent(eventType string, payload interface{}) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("publish event failed")
	}
}
