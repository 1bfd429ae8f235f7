package bookingform

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"heritageblade/internal/catalog"
	"heritageblade/internal/domain"
	"heritageblade/internal/models"
)

type State int

const (
	Closed State = iota
	Idle
	Submitting
	Success
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	case Success:
		return "success"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

const (
	SubmitLabel = "Confirm Booking"
	BusyLabel   = "Saving…"
)

var (
	ErrNotOpen       = errors.New("booking form is not open")
	ErrInvalidFields = errors.New("booking form has invalid fields")
)

// Submitter creates bookings, in process or over HTTP.
type Submitter interface {
	CreateBooking(ctx context.Context, in models.BookingInput) (string, error)
}

// Fields is the user input of the form.
type Fields struct {
	Name    string
	Phone   string
	Email   string
	Service string
	Date    string
	Time    string
	Notes   string
}

// Summary is shown after a successful submit.
type Summary struct {
	ID      string
	Name    string
	Service string
	Date    string
	Time    string
}

func (s Summary) Greeting() string {
	name := s.Name
	if name == "" {
		name = "Guest"
	}
	return fmt.Sprintf("Thanks, %s!", name)
}

func (s Summary) ServiceLabel() string {
	if s.Service == "" {
		return "Service"
	}
	return s.Service
}

// Form drives the booking dialog: closed, idle, submitting, success and
// back to closed. A failed submit returns to idle with the input kept and
// the error recorded for display.
type Form struct {
	submitter Submitter
	catalog   *catalog.Catalog
	now       func() time.Time

	mu      sync.Mutex
	state   State
	fields  Fields
	invalid []string
	errMsg  string
	summary Summary
}

func New(submitter Submitter, cat *catalog.Catalog) *Form {
	if cat == nil {
		cat = catalog.Default()
	}
	return &Form{submitter: submitter, catalog: cat, now: time.Now}
}

// Open shows an empty form with the service matching preset selected.
func (f *Form) Open(preset string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.reset()
	f.fields.Service = f.catalog.Resolve(preset)
	f.state = Idle
}

// Set replaces the current input. It is ignored unless the form is idle.
func (f *Form) Set(fields Fields) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != Idle {
		return
	}
	f.fields = fields
}

// Validate flags name, date and time when blank.
func (f *Form) Validate() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.validate()
}

func (f *Form) validate() []string {
	var invalid []string
	if strings.TrimSpace(f.fields.Name) == "" {
		invalid = append(invalid, "name")
	}
	if f.fields.Service != "" && !f.catalog.Contains(f.fields.Service) {
		invalid = append(invalid, "service")
	}
	if strings.TrimSpace(f.fields.Date) == "" {
		invalid = append(invalid, "date")
	}
	if strings.TrimSpace(f.fields.Time) == "" {
		invalid = append(invalid, "time")
	}
	f.invalid = invalid
	return invalid
}

// Submit validates and sends the booking. Invalid input keeps the form idle
// without calling the submitter.
func (f *Form) Submit(ctx context.Context) error {
	f.mu.Lock()
	if f.state != Idle {
		f.mu.Unlock()
		return ErrNotOpen
	}
	if invalid := f.validate(); len(invalid) > 0 {
		f.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrInvalidFields, strings.Join(invalid, ", "))
	}

	f.state = Submitting
	f.errMsg = ""
	fields := f.fields
	payload := models.BookingInput{
		Name:      fields.Name,
		Phone:     fields.Phone,
		Email:     fields.Email,
		Service:   fields.Service,
		Date:      fields.Date,
		Time:      fields.Time,
		Notes:     fields.Notes,
		CreatedAt: f.now().UTC().Format(time.RFC3339),
	}
	f.mu.Unlock()

	id, err := f.submitter.CreateBooking(ctx, payload)

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != Submitting {
		// cancelled while in flight
		return err
	}
	if err != nil {
		f.state = Idle
		f.errMsg = ErrorMessage(err)
		return err
	}

	f.state = Success
	f.summary = Summary{
		ID:      id,
		Name:    strings.TrimSpace(fields.Name),
		Service: fields.Service,
		Date:    fields.Date,
		Time:    fields.Time,
	}
	return nil
}

// Done closes the success view and clears the form.
func (f *Form) Done() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reset()
}

// Cancel closes the form and discards the input.
func (f *Form) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reset()
}

func (f *Form) reset() {
	f.state = Closed
	f.fields = Fields{}
	f.invalid = nil
	f.errMsg = ""
	f.summary = Summary{}
}

func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Form) Fields() Fields {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fields
}

func (f *Form) Invalid() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.invalid...)
}

// Error is the message of the last failed submit.
func (f *Form) Error() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errMsg
}

func (f *Form) Summary() Summary {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.summary
}

// SubmitLabel is the submit button text for the current state.
func (f *Form) SubmitLabel() string {
	if f.State() == Submitting {
		return BusyLabel
	}
	return SubmitLabel
}

// Services lists the options of the service select.
func (f *Form) Services() []string {
	return f.catalog.Names()
}

// ErrorMessage turns a submit error into text for the user.
func ErrorMessage(err error) string {
	var validation *domain.ValidationError
	switch {
	case errors.As(err, &validation):
		return validation.Message
	case errors.Is(err, domain.ErrRateLimited):
		return "Too many booking attempts. Please try again in a minute."
	}
	return "Failed to save booking. Please try again."
}
