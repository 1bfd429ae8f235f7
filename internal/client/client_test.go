package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"heritageblade/internal/domain"
	"heritageblade/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return New(ts.URL+"/", time.Second)
}

func TestClient_CreateBooking(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/bookings", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var in models.BookingInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "Jane", in.Name)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true,"id":"b-1"}`))
	})

	id, err := c.CreateBooking(context.Background(), models.BookingInput{Name: "Jane", Date: "d", Time: "t"})
	require.NoError(t, err)
	assert.Equal(t, "b-1", id)
}

func TestClient_ValidationError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Missing required fields: name, date, time"}`))
	})

	_, err := c.CreateBooking(context.Background(), models.BookingInput{})
	require.Error(t, err)

	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "Missing required fields: name, date, time", validation.Message)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
}

func TestClient_NotFoundAndServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"Server error"}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Not found"}`))
	})

	_, err := c.GetCustomer(context.Background(), "abc")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	err = c.UpdateCustomer(context.Background(), "abc", models.CustomerInput{Name: "x"})
	assert.EqualError(t, err, "http 500: Server error")
	assert.False(t, errors.Is(err, domain.ErrNotFound))
}

func TestClient_ListCustomersQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "a b&c", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`[{"_id":"c-1","name":"Amy"}]`))
	})

	customers, err := c.ListCustomers(context.Background(), " a b&c ")
	require.NoError(t, err)
	require.Len(t, customers, 1)
	assert.Equal(t, "Amy", customers[0].Name)
}

func TestClient_UpdateCustomerSendsFullRecord(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/customers/c-1", r.URL.Path)
		var raw map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		assert.Equal(t, map[string]string{"name": "Amy", "phone": "", "email": "", "comment": "vip"}, raw)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	require.NoError(t, c.UpdateCustomer(context.Background(), "c-1", models.CustomerInput{Name: "Amy", Comment: "vip"}))
}

func TestClient_Timeout(t *testing.T) {
	block := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	t.Cleanup(func() {
		close(block)
		ts.Close()
	})

	c := New(ts.URL, 50*time.Millisecond)
	_, err := c.ListBookings(context.Background())
	assert.Error(t, err)
}

func TestClient_ExportBookings(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("PK-xlsx"))
	})

	data, err := c.ExportBookings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("PK-xlsx"), data)
}
