package api

import (
	"encoding/json"
	"net"
	"net/http"
)

// NewMux binds the handler as one function per resource, each switching on
// the request method.
func NewMux(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/bookings", BookingsFunc(h))
	mux.HandleFunc("/api/bookings/export", BookingsExportFunc(h))
	mux.HandleFunc("/api/customers", CustomersFunc(h))
	mux.HandleFunc("/api/customers/{id}", CustomerFunc(h))
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, NotFound())
	})
	return mux
}

// BookingsFunc serves /api/bookings.
func BookingsFunc(h *Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := requestFromHTTP(r)
		switch r.Method {
		case http.MethodGet:
			writeResponse(w, h.ListBookings(r.Context(), req))
		case http.MethodPost:
			writeResponse(w, h.CreateBooking(r.Context(), req))
		default:
			writeResponse(w, MethodNotAllowed(r.Method, http.MethodGet, http.MethodPost))
		}
	}
}

// BookingsExportFunc serves /api/bookings/export.
func BookingsExportFunc(h *Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeResponse(w, MethodNotAllowed(r.Method, http.MethodGet))
			return
		}
		writeResponse(w, h.ExportBookings(r.Context(), requestFromHTTP(r)))
	}
}

// CustomersFunc serves /api/customers.
func CustomersFunc(h *Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := requestFromHTTP(r)
		switch r.Method {
		case http.MethodGet:
			writeResponse(w, h.ListCustomers(r.Context(), req))
		case http.MethodPost:
			writeResponse(w, h.CreateCustomer(r.Context(), req))
		default:
			writeResponse(w, MethodNotAllowed(r.Method, http.MethodGet, http.MethodPost))
		}
	}
}

// CustomerFunc serves /api/customers/{id}.
func CustomerFunc(h *Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := requestFromHTTP(r)
		req.ID = r.PathValue("id")
		switch r.Method {
		case http.MethodGet:
			writeResponse(w, h.GetCustomer(r.Context(), req))
		case http.MethodPut:
			writeResponse(w, h.UpdateCustomer(r.Context(), req))
		default:
			writeResponse(w, MethodNotAllowed(r.Method, http.MethodGet, http.MethodPut))
		}
	}
}

func requestFromHTTP(r *http.Request) Request {
	return Request{
		Method:   r.Method,
		Path:     r.URL.Path,
		ClientIP: clientIP(r.RemoteAddr),
		Query:    r.URL.Query().Get("q"),
		Body:     r.Body,
	}
}

func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err == nil && host != "" {
		return host
	}
	if remoteAddr != "" {
		return remoteAddr
	}
	return "unknown"
}

func writeResponse(w http.ResponseWriter, resp Response) {
	for key, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	if resp.Raw != nil {
		w.Header().Set("Content-Type", resp.ContentType)
		w.WriteHeader(resp.Status)
		_, _ = w.Write(resp.Raw)
		return
	}
	writeJSON(w, resp.Status, resp.Body)
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, errorBody(message))
}
