package web

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"strings"
	"time"

	"heritageblade/internal/adminpanel"
	"heritageblade/internal/bookingform"
	"heritageblade/internal/catalog"
	"heritageblade/internal/domain"
	"heritageblade/internal/logging"
	"heritageblade/internal/models"

	"github.com/rs/zerolog"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

const (
	ContactPhone = "+254714343855"
	InstagramURL = "https://www.instagram.com/_heritage_blade/"
)

// Server renders the landing, booking and admin pages on top of the API
// operations.
type Server struct {
	bookings  bookingform.Submitter
	customers adminpanel.CustomerAPI
	catalog   *catalog.Catalog
	templates map[string]*template.Template
	logger    *zerolog.Logger
}

func New(bookings bookingform.Submitter, customers adminpanel.CustomerAPI, cat *catalog.Catalog, logger *zerolog.Logger) (*Server, error) {
	if cat == nil {
		cat = catalog.Default()
	}

	funcs := template.FuncMap{
		"bookHref": func(title string) string { return "/book?service=" + url.QueryEscape(title) },
		"has": func(list []string, v string) bool {
			for _, s := range list {
				if s == v {
					return true
				}
			}
			return false
		},
		"datetime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Local().Format("2006-01-02 15:04")
		},
	}

	pages := []string{"home.html", "book.html", "admin.html"}
	templates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		tmpl, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, err
		}
		templates[page] = tmpl
	}

	return &Server{
		bookings:  bookings,
		customers: customers,
		catalog:   cat,
		templates: templates,
		logger:    logging.Component(logger, "web"),
	}, nil
}

func (s *Server) Handler() http.Handler {
	static, _ := fs.Sub(staticFS, "static")

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /book", s.handleBookForm)
	mux.HandleFunc("POST /book", s.handleBookSubmit)
	mux.HandleFunc("GET /admin", s.handleAdmin)
	mux.HandleFunc("POST /admin/customers", s.handleAdminCreate)
	mux.HandleFunc("POST /admin/customers/{id}/comment", s.handleAdminComment)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	return mux
}

// Page carries the fields the shared layout renders.
type Page struct {
	Title        string
	ContactPhone string
	InstagramURL string
}

func newPage(title string) Page {
	return Page{Title: title, ContactPhone: ContactPhone, InstagramURL: InstagramURL}
}

type homeData struct {
	Page
	Services []catalog.Entry
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "home.html", homeData{
		Page:     newPage("Heritage Blade"),
		Services: s.catalog.Entries(),
	})
}

type bookData struct {
	Page
	Services    []string
	Fields      bookingform.Fields
	Invalid     []string
	Error       string
	SubmitLabel string
	Success     bool
	Summary     bookingform.Summary
}

func (s *Server) bookView(f *bookingform.Form) bookData {
	return bookData{
		Page:        newPage("Book an Appointment"),
		Services:    f.Services(),
		Fields:      f.Fields(),
		Invalid:     f.Invalid(),
		Error:       f.Error(),
		SubmitLabel: f.SubmitLabel(),
		Success:     f.State() == bookingform.Success,
		Summary:     f.Summary(),
	}
}

func (s *Server) handleBookForm(w http.ResponseWriter, r *http.Request) {
	f := bookingform.New(s.bookings, s.catalog)
	f.Open(r.URL.Query().Get("service"))
	s.render(w, http.StatusOK, "book.html", s.bookView(f))
}

func (s *Server) handleBookSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, models.MaxBodyBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	f := bookingform.New(s.bookings, s.catalog)
	f.Open(r.PostForm.Get("service"))
	f.Set(bookingform.Fields{
		Name:    r.PostForm.Get("name"),
		Phone:   r.PostForm.Get("phone"),
		Email:   r.PostForm.Get("email"),
		Service: s.catalog.Resolve(r.PostForm.Get("service")),
		Date:    r.PostForm.Get("date"),
		Time:    r.PostForm.Get("time"),
		Notes:   r.PostForm.Get("notes"),
	})

	status := http.StatusOK
	if err := f.Submit(r.Context()); err != nil {
		if errors.Is(err, bookingform.ErrInvalidFields) {
			status = http.StatusBadRequest
		} else {
			s.logger.Warn().Err(err).Msg("booking submit failed")
			status = http.StatusBadGateway
		}
	}
	s.render(w, status, "book.html", s.bookView(f))
}

type adminData struct {
	Page
	Query     string
	Customers []models.Customer
	Notice    string
}

func (s *Server) adminView(p *adminpanel.Panel) adminData {
	return adminData{
		Page:      newPage("Admin"),
		Query:     p.Query(),
		Customers: p.Customers(),
		Notice:    p.Notice(),
	}
}

func (s *Server) adminViewWithNotice(p *adminpanel.Panel, notice string) adminData {
	data := s.adminView(p)
	if data.Notice == "" {
		data.Notice = notice
	}
	return data
}

func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request) {
	p := adminpanel.New(s.customers, 0)
	if err := p.LoadQuery(r.Context(), r.URL.Query().Get("q")); err != nil {
		s.logger.Warn().Err(err).Msg("admin load failed")
	}
	s.render(w, http.StatusOK, "admin.html", s.adminView(p))
}

func (s *Server) handleAdminCreate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, models.MaxBodyBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	p := adminpanel.New(s.customers, 0)
	_, err := p.Create(r.Context(), models.CustomerInput{
		Name:    r.PostForm.Get("name"),
		Phone:   r.PostForm.Get("phone"),
		Email:   r.PostForm.Get("email"),
		Comment: r.PostForm.Get("comment"),
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("admin create failed")
		notice := p.Notice()
		if notice == "" {
			notice = bookingform.ErrorMessage(err)
		}
		status := http.StatusBadGateway
		var validation *domain.ValidationError
		if errors.As(err, &validation) {
			status = http.StatusBadRequest
		}
		_ = p.Refresh(r.Context())
		s.render(w, status, "admin.html", s.adminViewWithNotice(p, notice))
		return
	}
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

func (s *Server) handleAdminComment(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, models.MaxBodyBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	query := r.PostForm.Get("q")
	p := adminpanel.New(s.customers, 0)
	if err := p.LoadQuery(r.Context(), query); err != nil {
		s.render(w, http.StatusBadGateway, "admin.html", s.adminView(p))
		return
	}

	err := p.CommitComment(r.Context(), r.PathValue("id"), r.PostForm.Get("comment"))
	switch {
	case errors.Is(err, adminpanel.ErrUnknownCustomer):
		http.NotFound(w, r)
		return
	case err != nil:
		s.logger.Warn().Err(err).Msg("admin comment update failed")
		s.render(w, http.StatusBadGateway, "admin.html", s.adminViewWithNotice(p, adminpanel.NoticeUpdateFailed))
		return
	}

	target := "/admin"
	if strings.TrimSpace(query) != "" {
		target += "?q=" + url.QueryEscape(query)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates[name].Execute(&buf, data); err != nil {
		s.logger.Error().Err(err).Str("template", name).Msg("render failed")
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
