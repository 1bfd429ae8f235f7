package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"heritageblade/internal/config"
	"heritageblade/internal/domain"
	"heritageblade/internal/metrics"
	"heritageblade/internal/models"

	"github.com/rs/zerolog"
)

// Request is the transport-independent view of an API call.
type Request struct {
	Method   string
	Path     string
	ClientIP string
	ID       string
	Query    string
	Body     io.Reader
}

// Response is rendered by the transport adapters. Raw bodies are written as
// is with ContentType, everything else is encoded as JSON.
type Response struct {
	Status      int
	Body        any
	Raw         []byte
	ContentType string
	Header      http.Header
}

type okResponse struct {
	OK bool   `json:"ok"`
	ID string `json:"id,omitempty"`
}

const (
	msgServerError = "Server error"
	msgNotFound    = "Not found"
	msgRateLimited = "Too many requests"
)

// Handler implements the booking and customer API once; the mux and echo
// adapters only translate requests and responses.
type Handler struct {
	bookings  domain.BookingService
	customers domain.CustomerService
	limiter   domain.RateLimiter
	rateLimit config.RateLimitConfig
	logger    *zerolog.Logger
}

func NewHandler(
	bookings domain.BookingService,
	customers domain.CustomerService,
	limiter domain.RateLimiter,
	rateLimit config.RateLimitConfig,
	logger *zerolog.Logger,
) *Handler {
	return &Handler{
		bookings:  bookings,
		customers: customers,
		limiter:   limiter,
		rateLimit: rateLimit,
		logger:    logger,
	}
}

func (h *Handler) CreateBooking(ctx context.Context, req Request) Response {
	if err := h.checkRate(ctx, req); err != nil {
		return h.fail(req, err)
	}

	var in models.BookingInput
	if err := decodeBody(req.Body, &in); err != nil {
		return h.fail(req, err)
	}

	id, err := h.bookings.CreateBooking(ctx, in)
	if err != nil {
		return h.fail(req, err)
	}
	metrics.IncBookingsCreated()
	return jsonResponse(http.StatusCreated, okResponse{OK: true, ID: id})
}

func (h *Handler) ListBookings(ctx context.Context, req Request) Response {
	bookings, err := h.bookings.ListBookings(ctx)
	if err != nil {
		return h.fail(req, err)
	}
	return jsonResponse(http.StatusOK, nonNil(bookings))
}

// ExportBookings renders the booking list as an XLSX workbook.
func (h *Handler) ExportBookings(ctx context.Context, req Request) Response {
	bookings, err := h.bookings.ListBookings(ctx)
	if err != nil {
		return h.fail(req, err)
	}

	data, err := BookingsWorkbook(bookings)
	if err != nil {
		return h.fail(req, fmt.Errorf("render workbook: %w", err))
	}

	header := http.Header{}
	header.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="bookings_%s.xlsx"`, time.Now().UTC().Format("20060102")))
	return Response{Status: http.StatusOK, Raw: data, ContentType: xlsxContentType, Header: header}
}

func (h *Handler) ListCustomers(ctx context.Context, req Request) Response {
	customers, err := h.customers.ListCustomers(ctx, req.Query)
	if err != nil {
		return h.fail(req, err)
	}
	return jsonResponse(http.StatusOK, nonNil(customers))
}

func (h *Handler) CreateCustomer(ctx context.Context, req Request) Response {
	var in models.CustomerInput
	if err := decodeBody(req.Body, &in); err != nil {
		return h.fail(req, err)
	}

	id, err := h.customers.CreateCustomer(ctx, in)
	if err != nil {
		return h.fail(req, err)
	}
	return jsonResponse(http.StatusCreated, okResponse{OK: true, ID: id})
}

func (h *Handler) GetCustomer(ctx context.Context, req Request) Response {
	customer, err := h.customers.GetCustomer(ctx, req.ID)
	if err != nil {
		return h.fail(req, err)
	}
	return jsonResponse(http.StatusOK, customer)
}

func (h *Handler) UpdateCustomer(ctx context.Context, req Request) Response {
	var in models.CustomerInput
	if err := decodeBody(req.Body, &in); err != nil {
		return h.fail(req, err)
	}

	if err := h.customers.UpdateCustomer(ctx, req.ID, in); err != nil {
		return h.fail(req, err)
	}
	return jsonResponse(http.StatusOK, okResponse{OK: true})
}

// MethodNotAllowed answers a method the route does not serve.
func MethodNotAllowed(method string, allow ...string) Response {
	header := http.Header{}
	header.Set("Allow", strings.Join(allow, ", "))
	return Response{
		Status: http.StatusMethodNotAllowed,
		Body:   errorBody(fmt.Sprintf("Method %s Not Allowed", method)),
		Header: header,
	}
}

// NotFound answers a path outside the API surface.
func NotFound() Response {
	return jsonResponse(http.StatusNotFound, errorBody(msgNotFound))
}

func (h *Handler) checkRate(ctx context.Context, req Request) error {
	if !h.rateLimit.Enabled || h.limiter == nil {
		return nil
	}

	allowed, err := h.limiter.Allow(ctx, "booking:"+req.ClientIP, h.rateLimit.Limit, h.rateLimit.Window)
	if err != nil {
		h.logger.Warn().Err(err).Str("client_ip", req.ClientIP).Msg("rate limiter unavailable, allowing request")
		return nil
	}
	if !allowed {
		metrics.IncRateLimited()
		return domain.ErrRateLimited
	}
	return nil
}

// fail maps service errors to the API error contract. Only validation
// messages reach the client; everything unexpected is logged.
func (h *Handler) fail(req Request, err error) Response {
	var validation *domain.ValidationError
	switch {
	case errors.As(err, &validation):
		return jsonResponse(http.StatusBadRequest, errorBody(validation.Message))
	case errors.Is(err, domain.ErrNotFound):
		return jsonResponse(http.StatusNotFound, errorBody(msgNotFound))
	case errors.Is(err, domain.ErrRateLimited):
		return jsonResponse(http.StatusTooManyRequests, errorBody(msgRateLimited))
	}

	h.logger.Error().
		Err(err).
		Str("method", req.Method).
		Str("path", req.Path).
		Msg("request failed")
	return jsonResponse(http.StatusInternalServerError, errorBody(msgServerError))
}

// decodeBody reads at most MaxBodyBytes of JSON. An empty body decodes as {}.
func decodeBody(r io.Reader, v any) error {
	if r == nil {
		return nil
	}

	data, err := io.ReadAll(io.LimitReader(r, models.MaxBodyBytes+1))
	if err != nil {
		return &domain.ValidationError{Message: "Invalid request body"}
	}
	if len(data) > models.MaxBodyBytes {
		return &domain.ValidationError{Message: "Request body too large"}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &domain.ValidationError{Message: "Invalid JSON"}
	}
	return nil
}

func jsonResponse(status int, body any) Response {
	return Response{Status: status, Body: body}
}

func errorBody(message string) map[string]string {
	return map[string]string{"error": message}
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
