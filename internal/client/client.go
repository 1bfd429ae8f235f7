package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"heritageblade/internal/domain"
	"heritageblade/internal/models"
)

// Client calls the Heritage Blade REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// APIError is a non-2xx response. It unwraps to the matching domain error
// so callers can use errors.Is and errors.As as they would in process.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http %d", e.Status)
	}
	return fmt.Sprintf("http %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusBadRequest:
		return &domain.ValidationError{Message: e.Message}
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusTooManyRequests:
		return domain.ErrRateLimited
	}
	return nil
}

type createdResponse struct {
	OK bool   `json:"ok"`
	ID string `json:"id"`
}

// New builds a client. A zero timeout uses the default request timeout.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = models.DefaultClientTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) CreateBooking(ctx context.Context, in models.BookingInput) (string, error) {
	var resp createdResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/bookings", in, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *Client) ListBookings(ctx context.Context) ([]*models.Booking, error) {
	var bookings []*models.Booking
	if err := c.doJSON(ctx, http.MethodGet, "/api/bookings", nil, &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

// ExportBookings downloads the bookings workbook.
func (c *Client) ExportBookings(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/bookings/export", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, readError(resp)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) ListCustomers(ctx context.Context, query string) ([]*models.Customer, error) {
	path := "/api/customers"
	if q := strings.TrimSpace(query); q != "" {
		path += "?q=" + url.QueryEscape(q)
	}

	var customers []*models.Customer
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &customers); err != nil {
		return nil, err
	}
	return customers, nil
}

func (c *Client) CreateCustomer(ctx context.Context, in models.CustomerInput) (string, error) {
	var resp createdResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/customers", in, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *Client) GetCustomer(ctx context.Context, id string) (*models.Customer, error) {
	var customer models.Customer
	if err := c.doJSON(ctx, http.MethodGet, "/api/customers/"+url.PathEscape(id), nil, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

// UpdateCustomer replaces every editable field of the customer.
func (c *Client) UpdateCustomer(ctx context.Context, id string, in models.CustomerInput) error {
	return c.doJSON(ctx, http.MethodPut, "/api/customers/"+url.PathEscape(id), in, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return readError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func readError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err == nil {
		apiErr.Message = body.Error
	}
	return apiErr
}
