package adminpanel

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"heritageblade/internal/domain"
	"heritageblade/internal/models"
)

const (
	NoticeLoadFailed   = "Failed to load customers"
	NoticeCreateFailed = "Failed to create customer"
	NoticeUpdateFailed = "Failed to update"
)

var ErrUnknownCustomer = errors.New("customer is not in the current list")

// CustomerAPI is the part of the customer API the panel uses.
type CustomerAPI interface {
	ListCustomers(ctx context.Context, query string) ([]*models.Customer, error)
	CreateCustomer(ctx context.Context, in models.CustomerInput) (string, error)
	UpdateCustomer(ctx context.Context, id string, in models.CustomerInput) error
}

// Panel holds the staff view of customers. Query changes are debounced and
// only the response to the most recent load is kept.
type Panel struct {
	api      CustomerAPI
	debounce time.Duration

	mu        sync.Mutex
	query     string
	customers []*models.Customer
	loading   bool
	notice    string
	seq       uint64
	timer     *time.Timer
	onChange  func()
}

func New(api CustomerAPI, debounce time.Duration) *Panel {
	if debounce <= 0 {
		debounce = models.DefaultSearchDebounce
	}
	return &Panel{api: api, debounce: debounce}
}

// OnChange registers a callback run after every rendered update.
func (p *Panel) OnChange(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onChange = fn
}

// Start performs the initial load.
func (p *Panel) Start(ctx context.Context) error {
	return p.Load(ctx)
}

// SetQuery schedules a load for q once input pauses for the debounce delay.
func (p *Panel) SetQuery(ctx context.Context, q string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.query = q
	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = time.AfterFunc(p.debounce, func() {
		_ = p.Load(ctx)
	})
}

// LoadQuery sets q and loads immediately.
func (p *Panel) LoadQuery(ctx context.Context, q string) error {
	p.mu.Lock()
	p.query = q
	if p.timer != nil {
		p.timer.Stop()
	}
	p.mu.Unlock()
	return p.Load(ctx)
}

// Refresh re-runs the current query.
func (p *Panel) Refresh(ctx context.Context) error {
	return p.Load(ctx)
}

// Load fetches the current query. A response that arrives after a newer
// load was issued is dropped.
func (p *Panel) Load(ctx context.Context) error {
	p.mu.Lock()
	p.seq++
	seq := p.seq
	query := strings.TrimSpace(p.query)
	p.loading = true
	p.notice = ""
	p.mu.Unlock()

	customers, err := p.api.ListCustomers(ctx, query)

	p.mu.Lock()
	if seq != p.seq {
		p.mu.Unlock()
		return nil
	}
	p.loading = false
	if err != nil {
		p.notice = NoticeLoadFailed
	} else {
		p.customers = customers
	}
	p.mu.Unlock()

	p.changed()
	return err
}

// Create adds a customer, then reloads the list. A blank name is rejected
// without calling the API.
func (p *Panel) Create(ctx context.Context, in models.CustomerInput) (string, error) {
	if strings.TrimSpace(in.Name) == "" {
		return "", domain.MissingFields("name")
	}

	id, err := p.api.CreateCustomer(ctx, in)
	if err != nil {
		p.setNotice(NoticeCreateFailed)
		return "", err
	}

	if err := p.Load(ctx); err != nil {
		return id, err
	}
	return id, nil
}

// CommitComment saves a new comment together with the row's current name,
// phone and email, since the update replaces every field.
func (p *Panel) CommitComment(ctx context.Context, id, comment string) error {
	p.mu.Lock()
	var row *models.Customer
	for _, c := range p.customers {
		if c.ID == id {
			row = c
			break
		}
	}
	if row == nil {
		p.mu.Unlock()
		return ErrUnknownCustomer
	}
	row.Comment = comment
	payload := row.Input()
	p.mu.Unlock()

	if err := p.api.UpdateCustomer(ctx, id, payload); err != nil {
		p.setNotice(NoticeUpdateFailed)
		return err
	}
	p.changed()
	return nil
}

func (p *Panel) setNotice(notice string) {
	p.mu.Lock()
	p.notice = notice
	p.mu.Unlock()
	p.changed()
}

func (p *Panel) changed() {
	p.mu.Lock()
	fn := p.onChange
	p.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Customers returns a copy of the rendered rows.
func (p *Panel) Customers() []models.Customer {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]models.Customer, len(p.customers))
	for i, c := range p.customers {
		out[i] = *c
	}
	return out
}

func (p *Panel) Query() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.query
}

func (p *Panel) Loading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loading
}

// Notice is the visible error text, empty when the last action succeeded.
func (p *Panel) Notice() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.notice
}

// Close cancels a pending debounced load.
func (p *Panel) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.timer != nil {
		p.timer.Stop()
	}
}
