package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"heritageblade/internal/events"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// MessageSender is satisfied by service.TelegramService.
type MessageSender interface {
	SendMarkdown(chatID int64, text string) (tgbotapi.Message, error)
}

// StaffNotifier posts new bookings to the staff Telegram chats.
type StaffNotifier struct {
	sender  MessageSender
	chatIDs []int64
}

func NewStaffNotifier(sender MessageSender, chatIDs []int64) *StaffNotifier {
	return &StaffNotifier{sender: sender, chatIDs: chatIDs}
}

func (n *StaffNotifier) Name() string {
	return "telegram"
}

func (n *StaffNotifier) Handle(_ context.Context, event *events.Event) error {
	if event.Type != events.EventBookingCreated || len(n.chatIDs) == 0 {
		return nil
	}

	var payload events.BookingEventPayload
	if err := event.Decode(&payload); err != nil {
		return fmt.Errorf("decode booking payload: %w", err)
	}

	text := FormatBooking(payload)
	var errs []error
	for _, chatID := range n.chatIDs {
		if _, err := n.sender.SendMarkdown(chatID, text); err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
		}
	}
	return errors.Join(errs...)
}

// FormatBooking renders the staff message for a new booking.
func FormatBooking(p events.BookingEventPayload) string {
	esc := func(s string) string { return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s) }

	var b strings.Builder
	b.WriteString("*New booking*\n")
	fmt.Fprintf(&b, "Name: %s\n", esc(p.Name))
	if p.Service != "" {
		fmt.Fprintf(&b, "Service: %s\n", esc(p.Service))
	}
	fmt.Fprintf(&b, "When: %s %s\n", esc(p.Date), esc(p.Time))
	if p.Phone != "" {
		fmt.Fprintf(&b, "Phone: %s\n", esc(p.Phone))
	}
	if p.Email != "" {
		fmt.Fprintf(&b, "Email: %s\n", esc(p.Email))
	}
	if p.Comment != "" {
		fmt.Fprintf(&b, "Notes: %s\n", esc(p.Comment))
	}
	return strings.TrimRight(b.String(), "\n")
}
