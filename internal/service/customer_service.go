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

type CustomerService struct {
	stores   domain.StoreProvider
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewCustomerService(stores domain.StoreProvider, eventBus domain.EventPublisher, logger *zerolog.Logger) *CustomerService {
	return &CustomerService{
		stores:   stores,
		eventBus: eventBus,
		logger:   logger,
		now:      time.Now,
	}
}

// ListCustomers returns up to CustomerListLimit customers, most recently
// updated first, filtered by a plain substring of name, phone or email.
func (s *CustomerService) ListCustomers(ctx context.Context, query string) ([]*models.Customer, error) {
	store, err := s.stores.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	customers, err := store.ListCustomers(ctx, query, models.CustomerListLimit)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return customers, nil
}

func (s *CustomerService) CreateCustomer(ctx context.Context, in models.CustomerInput) (string, error) {
	in = in.Normalize()
	if in.Name == "" {
		return "", domain.MissingFields("name")
	}

	store, err := s.stores.Acquire(ctx)
	if err != nil {
		return "", err
	}

	now := s.now().UTC()
	customer := &models.Customer{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Phone:     in.Phone,
		Email:     in.Email,
		Comment:   in.Comment,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.CreateCustomer(ctx, customer); err != nil {
		return "", fmt.Errorf("create customer: %w", err)
	}

	s.publishEvent(events.EventCustomerCreated, events.NewCustomerPayload(customer))
	return customer.ID, nil
}

func (s *CustomerService) GetCustomer(ctx context.Context, id string) (*models.Customer, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	store, err := s.stores.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return store.GetCustomer(ctx, id)
}

// UpdateCustomer replaces name, phone, email and comment. Omitted fields
// are cleared; the name must stay non-empty.
func (s *CustomerService) UpdateCustomer(ctx context.Context, id string, in models.CustomerInput) error {
	if err := checkID(id); err != nil {
		return err
	}
	in = in.Normalize()
	if in.Name == "" {
		return domain.MissingFields("name")
	}

	store, err := s.stores.Acquire(ctx)
	if err != nil {
		return err
	}

	customer := &models.Customer{
		ID:        id,
		Name:      in.Name,
		Phone:     in.Phone,
		Email:     in.Email,
		Comment:   in.Comment,
		UpdatedAt: s.now().UTC(),
	}
	if err := store.UpdateCustomer(ctx, customer); err != nil {
		return err
	}

	s.publishEvent(events.EventCustomerUpdated, events.NewCustomerPayload(customer))
	return nil
}

func (s *CustomerService) publishEvent(eventType string, payload interface{}) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("publish event failed")
	}
}

func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", domain.ErrMalformedID, id)
	}
	return nil
}
