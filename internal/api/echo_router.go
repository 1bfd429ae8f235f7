package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

var allMethods = []string{
	http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodPatch,
	http.MethodDelete, http.MethodConnect, http.MethodOptions, http.MethodTrace,
}

// NewEchoRouter binds the handler as declarative echo routes. Methods a path
// does not serve are routed explicitly so both adapters answer alike.
func NewEchoRouter(h *Handler, logger *zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.IPExtractor = echo.ExtractIPDirect()
	e.HTTPErrorHandler = echoErrorHandler(logger)

	g := e.Group("/api")
	g.GET("/bookings", echoHandler(h.ListBookings))
	g.POST("/bookings", echoHandler(h.CreateBooking))
	g.Match(except(http.MethodGet, http.MethodPost), "/bookings", echoNotAllowed(http.MethodGet, http.MethodPost))

	g.GET("/bookings/export", echoHandler(h.ExportBookings))
	g.Match(except(http.MethodGet), "/bookings/export", echoNotAllowed(http.MethodGet))

	g.GET("/customers", echoHandler(h.ListCustomers))
	g.POST("/customers", echoHandler(h.CreateCustomer))
	g.Match(except(http.MethodGet, http.MethodPost), "/customers", echoNotAllowed(http.MethodGet, http.MethodPost))

	g.GET("/customers/:id", echoHandler(h.GetCustomer))
	g.PUT("/customers/:id", echoHandler(h.UpdateCustomer))
	g.Match(except(http.MethodGet, http.MethodPut), "/customers/:id", echoNotAllowed(http.MethodGet, http.MethodPut))

	return e
}

func echoHandler(op func(context.Context, Request) Response) echo.HandlerFunc {
	return func(c echo.Context) error {
		return writeEcho(c, op(c.Request().Context(), requestFromEcho(c)))
	}
}

func echoNotAllowed(allow ...string) echo.HandlerFunc {
	return func(c echo.Context) error {
		return writeEcho(c, MethodNotAllowed(c.Request().Method, allow...))
	}
}

func requestFromEcho(c echo.Context) Request {
	r := c.Request()
	return Request{
		Method:   r.Method,
		Path:     r.URL.Path,
		ClientIP: c.RealIP(),
		ID:       c.Param("id"),
		Query:    c.QueryParam("q"),
		Body:     r.Body,
	}
}

func writeEcho(c echo.Context, resp Response) error {
	for key, values := range resp.Header {
		for _, v := range values {
			c.Response().Header().Add(key, v)
		}
	}
	if resp.Raw != nil {
		return c.Blob(resp.Status, resp.ContentType, resp.Raw)
	}
	return c.JSON(resp.Status, resp.Body)
}

// echoErrorHandler renders router errors (unknown paths, panics) in the
// same {"error": ...} shape as the handler.
func echoErrorHandler(logger *zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		status := http.StatusInternalServerError
		if errors.As(err, &he) {
			status = he.Code
		}

		var resp Response
		switch status {
		case http.StatusNotFound:
			resp = NotFound()
		case http.StatusMethodNotAllowed:
			resp = jsonResponse(status, errorBody("Method "+c.Request().Method+" Not Allowed"))
		case http.StatusInternalServerError:
			logger.Error().Err(err).Str("method", c.Request().Method).Str("path", c.Request().URL.Path).Msg("request failed")
			resp = jsonResponse(status, errorBody(msgServerError))
		default:
			resp = jsonResponse(status, errorBody(http.StatusText(status)))
		}
		_ = writeEcho(c, resp)
	}
}

func except(served ...string) []string {
	out := make([]string, 0, len(allMethods))
	for _, m := range allMethods {
		skip := false
		for _, s := range served {
			if m == s {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, m)
		}
	}
	return out
}
