package web

import (
	"context"
	"errors"
	"html"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"heritageblade/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSubmitter struct {
	mock.Mock
}

func (m *mockSubmitter) CreateBooking(ctx context.Context, in models.BookingInput) (string, error) {
	args := m.Called(ctx, in)
	return args.String(0), args.Error(1)
}

type mockCustomers struct {
	mock.Mock
}

func (m *mockCustomers) ListCustomers(ctx context.Context, query string) ([]*models.Customer, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Customer), args.Error(1)
}

func (m *mockCustomers) CreateCustomer(ctx context.Context, in models.CustomerInput) (string, error) {
	args := m.Called(ctx, in)
	return args.String(0), args.Error(1)
}

func (m *mockCustomers) UpdateCustomer(ctx context.Context, id string, in models.CustomerInput) error {
	args := m.Called(ctx, id, in)
	return args.Error(0)
}

func newTestServer(t *testing.T) (http.Handler, *mockSubmitter, *mockCustomers) {
	t.Helper()
	logger := zerolog.Nop()
	sub := &mockSubmitter{}
	cust := &mockCustomers{}
	srv, err := New(sub, cust, nil, &logger)
	require.NoError(t, err)
	return srv.Handler(), sub, cust
}

func do(h http.Handler, method, target string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHome(t *testing.T) {
	h, _, _ := newTestServer(t)

	rec := do(h, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

	// html/template escapes + as &#43;
	body := html.UnescapeString(rec.Body.String())
	assert.Contains(t, body, "Fade / Taper")
	assert.Contains(t, body, "Finger Coils")
	assert.Contains(t, body, `/book?service=Cornrows`)
	assert.Contains(t, body, "tel:"+ContactPhone)
	assert.Contains(t, body, InstagramURL)
}

func TestBookFormPreset(t *testing.T) {
	h, _, _ := newTestServer(t)

	rec := do(h, http.MethodGet, "/book?service=Twists", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="Twists - KES 1,500" selected`)
	assert.Contains(t, rec.Body.String(), "Confirm Booking")
}

func TestBookSubmit(t *testing.T) {
	t.Run("missing fields", func(t *testing.T) {
		h, sub, _ := newTestServer(t)

		rec := do(h, http.MethodPost, "/book", url.Values{"name": {"  "}, "service": {"Twists"}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), `class="invalid"`)
		sub.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
	})

	t.Run("success", func(t *testing.T) {
		h, sub, _ := newTestServer(t)
		sub.On("CreateBooking", mock.Anything, mock.MatchedBy(func(in models.BookingInput) bool {
			return in.Name == "Amy" && in.Service == "Cornrows - KES 1,500" &&
				in.Date == "2026-10-20" && in.Time == "10:00" && in.CreatedAt != ""
		})).Return("b1", nil).Once()

		rec := do(h, http.MethodPost, "/book", url.Values{
			"name":    {"Amy"},
			"service": {"Cornrows"},
			"date":    {"2026-10-20"},
			"time":    {"10:00"},
		})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Thanks, Amy!")
		assert.Contains(t, rec.Body.String(), "Done")
		sub.AssertExpectations(t)
	})

	t.Run("submit failure keeps input", func(t *testing.T) {
		h, sub, _ := newTestServer(t)
		sub.On("CreateBooking", mock.Anything, mock.Anything).Return("", errors.New("down")).Once()

		rec := do(h, http.MethodPost, "/book", url.Values{
			"name": {"Amy"},
			"date": {"2026-10-20"},
			"time": {"10:00"},
		})
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Contains(t, rec.Body.String(), "Failed to save booking. Please try again.")
		assert.Contains(t, rec.Body.String(), `value="Amy"`)
	})
}

func TestAdmin(t *testing.T) {
	t.Run("search", func(t *testing.T) {
		h, _, cust := newTestServer(t)
		cust.On("ListCustomers", mock.Anything, "amy").Return([]*models.Customer{
			{
				ID: "c1", Name: "Amy Adams", Email: "amy@example.com", Comment: "regular",
				CreatedAt: time.Date(2025, 1, 5, 8, 0, 0, 0, time.Local),
				UpdatedAt: time.Date(2026, 10, 1, 9, 30, 0, 0, time.Local),
			},
		}, nil).Once()

		rec := do(h, http.MethodGet, "/admin?q=amy", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "Amy Adams")
		assert.Contains(t, body, "<th>Updated</th>")
		assert.Contains(t, body, "2026-10-01 09:30")
		assert.NotContains(t, body, "2025-01-05")
		assert.Contains(t, body, `/admin/customers/c1/comment`)
		assert.Contains(t, body, `value="regular"`)
	})

	t.Run("load failure", func(t *testing.T) {
		h, _, cust := newTestServer(t)
		cust.On("ListCustomers", mock.Anything, "").Return(nil, errors.New("down")).Once()

		rec := do(h, http.MethodGet, "/admin", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Failed to load customers")
		assert.Contains(t, rec.Body.String(), "No customers")
	})

	t.Run("create", func(t *testing.T) {
		h, _, cust := newTestServer(t)
		cust.On("CreateCustomer", mock.Anything, models.CustomerInput{Name: "Bob", Phone: "0700"}).Return("c2", nil).Once()
		cust.On("ListCustomers", mock.Anything, "").Return([]*models.Customer{}, nil).Once()

		rec := do(h, http.MethodPost, "/admin/customers", url.Values{"name": {"Bob"}, "phone": {"0700"}})
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/admin", rec.Header().Get("Location"))
		cust.AssertExpectations(t)
	})

	t.Run("create blank name", func(t *testing.T) {
		h, _, cust := newTestServer(t)
		cust.On("ListCustomers", mock.Anything, "").Return([]*models.Customer{}, nil).Once()

		rec := do(h, http.MethodPost, "/admin/customers", url.Values{"name": {" "}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Missing required field: name")
		cust.AssertNotCalled(t, "CreateCustomer", mock.Anything, mock.Anything)
	})

	t.Run("comment", func(t *testing.T) {
		h, _, cust := newTestServer(t)
		cust.On("ListCustomers", mock.Anything, "amy").Return([]*models.Customer{
			{ID: "c1", Name: "Amy", Phone: "0711", Email: "amy@example.com", Comment: "old"},
		}, nil).Once()
		cust.On("UpdateCustomer", mock.Anything, "c1", models.CustomerInput{
			Name: "Amy", Phone: "0711", Email: "amy@example.com", Comment: "prefers mornings",
		}).Return(nil).Once()

		rec := do(h, http.MethodPost, "/admin/customers/c1/comment", url.Values{"q": {"amy"}, "comment": {"prefers mornings"}})
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/admin?q=amy", rec.Header().Get("Location"))
		cust.AssertExpectations(t)
	})

	t.Run("comment unknown customer", func(t *testing.T) {
		h, _, cust := newTestServer(t)
		cust.On("ListCustomers", mock.Anything, "").Return([]*models.Customer{}, nil).Once()

		rec := do(h, http.MethodPost, "/admin/customers/zz/comment", url.Values{"comment": {"x"}})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("comment failure", func(t *testing.T) {
		h, _, cust := newTestServer(t)
		cust.On("ListCustomers", mock.Anything, "").Return([]*models.Customer{{ID: "c1", Name: "Amy"}}, nil).Once()
		cust.On("UpdateCustomer", mock.Anything, "c1", mock.Anything).Return(errors.New("down")).Once()

		rec := do(h, http.MethodPost, "/admin/customers/c1/comment", url.Values{"comment": {"x"}})
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Contains(t, rec.Body.String(), "Failed to update")
	})
}

func TestStatic(t *testing.T) {
	h, _, _ := newTestServer(t)

	rec := do(h, http.MethodGet, "/static/site.css", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), ".cards")
}
