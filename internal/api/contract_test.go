package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"heritageblade/internal/config"
	"heritageblade/internal/database"
	"heritageblade/internal/domain"
	"heritageblade/internal/models"
	"heritageblade/internal/repository"
	"heritageblade/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var transports = []string{config.TransportMux, config.TransportEcho}

type testEnv struct {
	ts *httptest.Server
	db *database.DB
}

func newTestEnv(t *testing.T, transport string, limiter domain.RateLimiter, rl config.RateLimitConfig) *testEnv {
	t.Helper()
	logger := zerolog.New(io.Discard)

	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	stores := database.Static(db)
	h := NewHandler(
		service.NewBookingService(stores, nil, &logger),
		service.NewCustomerService(stores, nil, &logger),
		limiter,
		rl,
		&logger,
	)

	server := NewHTTPServer(config.HTTPConfig{Transport: transport}, h, nil, stores.Ping, &logger)
	ts := httptest.NewServer(server.server.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, db: db}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.ts.URL+path, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decodeJSON[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

type created struct {
	OK bool   `json:"ok"`
	ID string `json:"id"`
}

func forEachTransport(t *testing.T, fn func(t *testing.T, env *testEnv)) {
	for _, transport := range transports {
		t.Run(transport, func(t *testing.T) {
			fn(t, newTestEnv(t, transport, nil, config.RateLimitConfig{}))
		})
	}
}

func TestBookings_CreateAndList(t *testing.T) {
	forEachTransport(t, func(t *testing.T, env *testEnv) {
		resp, body := env.do(t, http.MethodPost, "/api/bookings",
			`{"name":"Early","date":"2026-01-01","time":"09:00"}`)
		require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

		resp, body = env.do(t, http.MethodPost, "/api/bookings",
			`{"name":" Jane ","date":"2026-01-02","time":"10:00","service":"Twists - KES 1,500","notes":"window seat","comment":"ignored","createdAt":"1999-01-01"}`)
		require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
		assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json"))

		out := decodeJSON[created](t, body)
		assert.True(t, out.OK)
		require.NotEmpty(t, out.ID)

		resp, body = env.do(t, http.MethodGet, "/api/bookings", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		list := decodeJSON[[]models.Booking](t, body)
		require.Len(t, list, 2)
		first := list[0]
		assert.Equal(t, out.ID, first.ID)
		assert.Equal(t, "Jane", first.Name)
		assert.Equal(t, "window seat", first.Comment)
		assert.Equal(t, "Twists - KES 1,500", first.Service)
		assert.True(t, first.CreatedAt.After(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)))
		assert.Equal(t, "Early", list[1].Name)

		var raw []map[string]any
		require.NoError(t, json.Unmarshal(body, &raw))
		assert.NotContains(t, raw[0], "notes")
		for _, key := range []string{"_id", "name", "phone", "email", "service", "date", "time", "comment", "createdAt", "updatedAt"} {
			assert.Contains(t, raw[0], key)
		}
	})
}

func TestBookings_MissingFields(t *testing.T) {
	forEachTransport(t, func(t *testing.T, env *testEnv) {
		resp, body := env.do(t, http.MethodPost, "/api/bookings", `{"name":"Jane","time":"10:00"}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.JSONEq(t, `{"error":"Missing required fields: name, date, time"}`, string(body))

		resp, _ = env.do(t, http.MethodPost, "/api/bookings", "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		_, body = env.do(t, http.MethodGet, "/api/bookings", "")
		assert.JSONEq(t, `[]`, string(body))
	})
}

func TestBookings_InvalidBody(t *testing.T) {
	forEachTransport(t, func(t *testing.T, env *testEnv) {
		resp, body := env.do(t, http.MethodPost, "/api/bookings", `{"name":`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.JSONEq(t, `{"error":"Invalid JSON"}`, string(body))

		huge := `{"name":"` + strings.Repeat("a", models.MaxBodyBytes) + `"}`
		resp, body = env.do(t, http.MethodPost, "/api/bookings", huge)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.JSONEq(t, `{"error":"Request body too large"}`, string(body))
	})
}

func TestBookings_MethodNotAllowed(t *testing.T) {
	forEachTransport(t, func(t *testing.T, env *testEnv) {
		resp, body := env.do(t, http.MethodDelete, "/api/bookings", "")
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		assert.Equal(t, "GET, POST", resp.Header.Get("Allow"))
		assert.JSONEq(t, `{"error":"Method DELETE Not Allowed"}`, string(body))

		resp, _ = env.do(t, http.MethodPost, "/api/bookings/export", "")
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		assert.Equal(t, "GET", resp.Header.Get("Allow"))
	})
}

func TestBookings_Export(t *testing.T) {
	forEachTransport(t, func(t *testing.T, env *testEnv) {
		resp, _ := env.do(t, http.MethodPost, "/api/bookings", `{"name":"Jane","date":"2026-01-02","time":"10:00"}`)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		resp, body := env.do(t, http.MethodGet, "/api/bookings/export", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, xlsxContentType, resp.Header.Get("Content-Type"))
		assert.Contains(t, resp.Header.Get("Content-Disposition"), "bookings_")

		f, err := excelize.OpenReader(bytes.NewReader(body))
		require.NoError(t, err)
		defer f.Close()

		rows, err := f.GetRows("Bookings")
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "Name", rows[0][1])
		assert.Equal(t, "Jane", rows[1][1])
	})
}

func TestBookings_RateLimited(t *testing.T) {
	for _, transport := range transports {
		t.Run(transport, func(t *testing.T) {
			env := newTestEnv(t, transport, repository.NewMemoryRateLimiter(), config.RateLimitConfig{
				Enabled: true,
				Limit:   1,
				Window:  time.Hour,
			})

			payload := `{"name":"Jane","date":"2026-01-02","time":"10:00"}`
			resp, _ := env.do(t, http.MethodPost, "/api/bookings", payload)
			require.Equal(t, http.StatusCreated, resp.StatusCode)

			resp, body := env.do(t, http.MethodPost, "/api/bookings", payload)
			assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
			assert.JSONEq(t, `{"error":"Too many requests"}`, string(body))

			resp, _ = env.do(t, http.MethodGet, "/api/bookings", "")
			assert.Equal(t, http.StatusOK, resp.StatusCode)
		})
	}
}

func TestCustomers_CreateAndSearch(t *testing.T) {
	forEachTransport(t, func(t *testing.T, env *testEnv) {
		resp, body := env.do(t, http.MethodPost, "/api/customers", `{"name":"Amy","phone":"+254700111222"}`)
		require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
		amy := decodeJSON[created](t, body)

		resp, _ = env.do(t, http.MethodPost, "/api/customers", `{"name":"Brian","email":"brian@example.com"}`)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		_, body = env.do(t, http.MethodGet, "/api/customers?q=amy", "")
		found := decodeJSON[[]models.Customer](t, body)
		require.Len(t, found, 1)
		assert.Equal(t, amy.ID, found[0].ID)

		_, body = env.do(t, http.MethodGet, "/api/customers?q=EXAMPLE.COM", "")
		assert.Len(t, decodeJSON[[]models.Customer](t, body), 1)

		_, body = env.do(t, http.MethodGet, "/api/customers?q=zzz", "")
		assert.JSONEq(t, `[]`, string(body))

		_, body = env.do(t, http.MethodGet, "/api/customers?q=.*", "")
		assert.JSONEq(t, `[]`, string(body))

		_, body = env.do(t, http.MethodGet, "/api/customers", "")
		all := decodeJSON[[]models.Customer](t, body)
		require.Len(t, all, 2)
		assert.Equal(t, "Brian", all[0].Name)
	})
}

func TestCustomers_SearchNonASCII(t *testing.T) {
	forEachTransport(t, func(t *testing.T, env *testEnv) {
		resp, body := env.do(t, http.MethodPost, "/api/customers", `{"name":"Élise Ündine"}`)
		require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
		elise := decodeJSON[created](t, body)

		for _, q := range []string{"élise", "Élise", "ÉLISE"} {
			_, body = env.do(t, http.MethodGet, "/api/customers?q="+url.QueryEscape(q), "")
			found := decodeJSON[[]models.Customer](t, body)
			require.Len(t, found, 1, q)
			assert.Equal(t, elise.ID, found[0].ID)
		}
	})
}

func TestCustomers_CreateMissingName(t *testing.T) {
	forEachTransport(t, func(t *testing.T, env *testEnv) {
		resp, body := env.do(t, http.MethodPost, "/api/customers", `{"name":"  ","phone":"1"}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.JSONEq(t, `{"error":"Missing required field: name"}`, string(body))
	})
}

func TestCustomers_RoundTrip(t *testing.T) {
	forEachTransport(t, func(t *testing.T, env *testEnv) {
		_, body := env.do(t, http.MethodPost, "/api/customers",
			`{"name":"Amy","phone":"0700","email":"amy@example.com","comment":"likes fades"}`)
		id := decodeJSON[created](t, body).ID

		resp, body := env.do(t, http.MethodGet, "/api/customers/"+id, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		c := decodeJSON[models.Customer](t, body)
		assert.Equal(t, id, c.ID)
		assert.Equal(t, "Amy", c.Name)
		assert.Equal(t, "0700", c.Phone)
		assert.Equal(t, "amy@example.com", c.Email)
		assert.Equal(t, "likes fades", c.Comment)
		assert.False(t, c.CreatedAt.IsZero())
		assert.Equal(t, c.CreatedAt, c.UpdatedAt)
	})
}

func TestCustomers_ReplaceUpdate(t *testing.T) {
	forEachTransport(t, func(t *testing.T, env *testEnv) {
		_, body := env.do(t, http.MethodPost, "/api/customers",
			`{"name":"Amy","phone":"0700","email":"amy@example.com","comment":"old"}`)
		id := decodeJSON[created](t, body).ID

		_, body = env.do(t, http.MethodGet, "/api/customers/"+id, "")
		before := decodeJSON[models.Customer](t, body)

		resp, body := env.do(t, http.MethodPut, "/api/customers/"+id, `{"name":"Amy K","comment":"new"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"ok":true}`, string(body))

		_, body = env.do(t, http.MethodGet, "/api/customers/"+id, "")
		first := decodeJSON[models.Customer](t, body)
		assert.Equal(t, "Amy K", first.Name)
		assert.Equal(t, "", first.Phone)
		assert.Equal(t, "", first.Email)
		assert.Equal(t, "new", first.Comment)
		assert.Equal(t, before.CreatedAt, first.CreatedAt)
		assert.False(t, first.UpdatedAt.Before(before.UpdatedAt))

		resp, _ = env.do(t, http.MethodPut, "/api/customers/"+id, `{"name":"Amy K","comment":"new"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		_, body = env.do(t, http.MethodGet, "/api/customers/"+id, "")
		second := decodeJSON[models.Customer](t, body)
		assert.Equal(t, first.Input(), second.Input())
		assert.False(t, second.UpdatedAt.Before(first.UpdatedAt))

		resp, body = env.do(t, http.MethodPut, "/api/customers/"+id, `{"phone":"0711"}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.JSONEq(t, `{"error":"Missing required field: name"}`, string(body))
	})
}

func TestCustomers_NotFound(t *testing.T) {
	forEachTransport(t, func(t *testing.T, env *testEnv) {
		missing := "5b3c1e36-34a1-4d8f-9d43-3f2f0f1c8a10"

		resp, body := env.do(t, http.MethodGet, "/api/customers/"+missing, "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.JSONEq(t, `{"error":"Not found"}`, string(body))

		resp, _ = env.do(t, http.MethodPut, "/api/customers/"+missing, `{"name":"Ghost"}`)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestCustomers_MalformedID(t *testing.T) {
	forEachTransport(t, func(t *testing.T, env *testEnv) {
		resp, body := env.do(t, http.MethodGet, "/api/customers/not-a-uuid", "")
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.JSONEq(t, `{"error":"Server error"}`, string(body))
	})
}

func TestCustomers_MethodNotAllowed(t *testing.T) {
	forEachTransport(t, func(t *testing.T, env *testEnv) {
		resp, body := env.do(t, http.MethodDelete, "/api/customers/5b3c1e36-34a1-4d8f-9d43-3f2f0f1c8a10", "")
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		assert.Equal(t, "GET, PUT", resp.Header.Get("Allow"))
		assert.JSONEq(t, `{"error":"Method DELETE Not Allowed"}`, string(body))

		resp, _ = env.do(t, http.MethodPatch, "/api/customers", "")
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		assert.Equal(t, "GET, POST", resp.Header.Get("Allow"))
	})
}

func TestUnknownAPIPath(t *testing.T) {
	forEachTransport(t, func(t *testing.T, env *testEnv) {
		for _, path := range []string{"/api/unknown", "/api/customers/"} {
			resp, body := env.do(t, http.MethodGet, path, "")
			assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
			assert.JSONEq(t, `{"error":"Not found"}`, string(body))
		}
	})
}

func TestHealthEndpoints(t *testing.T) {
	forEachTransport(t, func(t *testing.T, env *testEnv) {
		resp, body := env.do(t, http.MethodGet, "/healthz", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"status":"ok"}`, string(body))

		resp, _ = env.do(t, http.MethodGet, "/readyz", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		require.NoError(t, env.db.Close())
		resp, body = env.do(t, http.MethodGet, "/readyz", "")
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.JSONEq(t, `{"error":"not ready"}`, string(body))
	})
}
