package google

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"heritageblade/internal/events"
	"heritageblade/internal/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const timestampLayout = "2006-01-02 15:04:05"

// BookingsHeader is the first row of the bookings sheet.
var BookingsHeader = []interface{}{
	"ID", "Name", "Phone", "Email", "Service", "Date", "Time", "Comment", "Created", "Updated",
}

// SheetsService mirrors bookings into a Google spreadsheet.
type SheetsService struct {
	service       *sheets.Service
	spreadsheetID string
	bookingsRange string
}

func NewSheetsService(ctx context.Context, credentialsFile, spreadsheetID, bookingsRange string) (*SheetsService, error) {
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %w", err)
	}

	return NewWithService(srv, spreadsheetID, bookingsRange), nil
}

// NewWithService wraps an existing Sheets client.
func NewWithService(srv *sheets.Service, spreadsheetID, bookingsRange string) *SheetsService {
	if bookingsRange == "" {
		bookingsRange = "Bookings!A:J"
	}
	return &SheetsService{
		service:       srv,
		spreadsheetID: spreadsheetID,
		bookingsRange: bookingsRange,
	}
}

// TestConnection reads the header cell of the bookings sheet.
func (s *SheetsService) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.sheetName()+"!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	return nil
}

// ServiceAccountEmail returns the client email the spreadsheet must be shared with.
func ServiceAccountEmail(credentialsFile string) (string, error) {
	file, err := os.ReadFile(credentialsFile)
	if err != nil {
		return "", err
	}

	var creds struct {
		ClientEmail string `json:"client_email"`
	}
	if err := json.Unmarshal(file, &creds); err != nil {
		return "", err
	}
	return creds.ClientEmail, nil
}

// AppendBooking adds one booking row below the existing data.
func (s *SheetsService) AppendBooking(ctx context.Context, booking *models.Booking) error {
	valueRange := &sheets.ValueRange{
		Values: [][]interface{}{BookingRow(booking)},
	}

	_, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, s.bookingsRange, valueRange).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append booking %s: %w", booking.ID, err)
	}
	return nil
}

// ReplaceBookings rewrites the whole sheet with a header and the given bookings.
func (s *SheetsService) ReplaceBookings(ctx context.Context, bookings []*models.Booking) error {
	sheet := s.sheetName()

	_, err := s.service.Spreadsheets.Values.Clear(s.spreadsheetID, sheet+"!A:J", &sheets.ClearValuesRequest{}).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to clear bookings sheet: %w", err)
	}

	values := make([][]interface{}, 0, len(bookings)+1)
	values = append(values, BookingsHeader)
	for _, booking := range bookings {
		values = append(values, BookingRow(booking))
	}

	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, sheet+"!A1", &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to update bookings sheet: %w", err)
	}
	return nil
}

// Name identifies the sheet as an event sink.
func (s *SheetsService) Name() string {
	return "sheets"
}

// Handle appends bookings announced by booking_created events.
func (s *SheetsService) Handle(ctx context.Context, event *events.Event) error {
	if event.Type != events.EventBookingCreated {
		return nil
	}

	var payload events.BookingEventPayload
	if err := event.Decode(&payload); err != nil {
		return fmt.Errorf("decode booking payload: %w", err)
	}
	return s.AppendBooking(ctx, BookingFromPayload(payload))
}

func (s *SheetsService) sheetName() string {
	if name, _, ok := strings.Cut(s.bookingsRange, "!"); ok {
		return name
	}
	return s.bookingsRange
}

// BookingFromPayload rebuilds the stored booking from its event snapshot.
func BookingFromPayload(p events.BookingEventPayload) *models.Booking {
	return &models.Booking{
		ID:        p.BookingID,
		Name:      p.Name,
		Phone:     p.Phone,
		Email:     p.Email,
		Service:   p.Service,
		Date:      p.Date,
		Time:      p.Time,
		Comment:   p.Comment,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.CreatedAt,
	}
}

// BookingRow lays out a booking in sheet column order.
func BookingRow(b *models.Booking) []interface{} {
	return []interface{}{
		b.ID,
		b.Name,
		b.Phone,
		b.Email,
		b.Service,
		b.Date,
		b.Time,
		b.Comment,
		formatTimestamp(b.CreatedAt),
		formatTimestamp(b.UpdatedAt),
	}
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timestampLayout)
}
