package notifications

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	pkgerrors "github.com/angelmondragon/wayfarer-backend/pkg/errors"
	"github.com/angelmondragon/wayfarer-backend/pkg/logger"
	"github.com/angelmondragon/wayfarer-backend/pkg/mailer"
)

// Recipient is a friend asked to pay their share of a split booking.
type Recipient struct {
	Name      string
	Email     string
	UPIHandle string
}

// SplitNotice describes one split-payment fan-out.
type SplitNotice struct {
	TripID        string
	TripName      string
	TransactionID string
	PayerName     string
	Currency      string
	Share         decimal.Decimal
	Recipients    []Recipient
}

// DispatchResult lists recipient emails by outcome.
type DispatchResult struct {
	Sent    []string
	Skipped []string
	Failed  []string
}

// BookingConfirmation is the payer's receipt.
type BookingConfirmation struct {
	Email         string
	Name          string
	TripID        string
	TripName      string
	TransactionID string
	Method        string
	Currency      string
	FinalTotal    decimal.Decimal
	PerPerson     decimal.Decimal
	Travelers     int
}

// Service sends booking related email.
type Service interface {
	NotifySplit(ctx context.Context, notice SplitNotice) (DispatchResult, error)
	NotifyBookingConfirmed(ctx context.Context, confirmation BookingConfirmation) error
}

type service struct {
	sender   mailer.Sender
	linkBase string
	logg     *logger.Logger
}

// NewService wires the notification sender. linkBase is the payment page
// friends are sent to.
func NewService(sender mailer.Sender, linkBase string, logg *logger.Logger) (Service, error) {
	if sender == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "mail sender required")
	}
	if _, err := url.Parse(linkBase); err != nil || strings.TrimSpace(linkBase) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment link base url is invalid")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{sender: sender, linkBase: strings.TrimSpace(linkBase), logg: logg}, nil
}

// NotifySplit emails a payment link to every recipient with a valid address.
// Each failure is collected and the rest are still attempted.
func (s *service) NotifySplit(ctx context.Context, notice SplitNotice) (DispatchResult, error) {
	var (
		result DispatchResult
		errs   error
	)
	for i, r := range notice.Recipients {
		addr := strings.TrimSpace(r.Email)
		if !mailer.ValidAddress(addr) {
			if addr != "" {
				result.Skipped = append(result.Skipped, addr)
			}
			continue
		}
		email := mailer.Email{
			To:       addr,
			Subject:  fmt.Sprintf("Your share for %s", notice.TripName),
			HTMLBody: splitHTML(notice, r, s.paymentLink(notice, i)),
			TextBody: splitText(notice, r, s.paymentLink(notice, i)),
		}
		if err := s.sender.Send(ctx, email); err != nil {
			result.Failed = append(result.Failed, addr)
			errs = multierr.Append(errs, fmt.Errorf("send to %s: %w", addr, err))
			continue
		}
		result.Sent = append(result.Sent, addr)
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"trip_id":        notice.TripID,
		"transaction_id": notice.TransactionID,
		"sent":           len(result.Sent),
		"skipped":        len(result.Skipped),
		"failed":         len(result.Failed),
	})
	if errs != nil {
		s.logg.Error(logCtx, "split payment links partially failed", errs)
		return result, pkgerrors.Wrap(pkgerrors.CodeDependency, errs, "send split payment links")
	}
	s.logg.Info(logCtx, "split payment links sent")
	return result, nil
}

func (s *service) paymentLink(notice SplitNotice, index int) string {
	q := url.Values{}
	q.Set("txn", notice.TransactionID)
	q.Set("share", notice.Share.String())
	q.Set("friend", fmt.Sprint(index+1))
	sep := "?"
	if strings.Contains(s.linkBase, "?") {
		sep = "&"
	}
	return s.linkBase + sep + q.Encode()
}

func (s *service) NotifyBookingConfirmed(ctx context.Context, c BookingConfirmation) error {
	if !mailer.ValidAddress(c.Email) {
		return pkgerrors.New(pkgerrors.CodeValidation, "payer email is invalid")
	}
	email := mailer.Email{
		To:       c.Email,
		Subject:  fmt.Sprintf("Booking confirmed: %s", c.TripName),
		HTMLBody: confirmationHTML(c),
		TextBody: confirmationText(c),
	}
	if err := s.sender.Send(ctx, email); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send booking confirmation")
	}
	s.logg.Info(s.logg.WithField(ctx, "transaction_id", c.TransactionID), "booking confirmation sent")
	return nil
}

func greetingName(name string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	return "traveler"
}

func splitText(n SplitNotice, r Recipient, link string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", greetingName(r.Name))
	fmt.Fprintf(&b, "%s booked %s and split the cost with you.\n", greetingName(n.PayerName), n.TripName)
	fmt.Fprintf(&b, "Your share is %s %s.\n\n", n.Currency, n.Share.StringFixed(0))
	fmt.Fprintf(&b, "Pay here: %s\n", link)
	if r.UPIHandle != "" {
		fmt.Fprintf(&b, "UPI handle on file: %s\n", r.UPIHandle)
	}
	fmt.Fprintf(&b, "\nBooking reference: %s\n", n.TransactionID)
	return b.String()
}

func splitHTML(n SplitNotice, r Recipient, link string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>Hi %s!</h2>
  <p>%s booked <strong>%s</strong> and split the cost with you.</p>
  <p>Your share is <strong>%s %s</strong>.</p>
  <p><a href="%s" style="background:#0f766e;color:#fff;padding:10px 18px;border-radius:6px;text-decoration:none;">Pay your share</a></p>
  <p style="color:#666;font-size:13px;">Booking reference: %s</p>
</body>
</html>`,
		html.EscapeString(greetingName(r.Name)),
		html.EscapeString(greetingName(n.PayerName)),
		html.EscapeString(n.TripName),
		html.EscapeString(n.Currency), n.Share.StringFixed(0),
		html.EscapeString(link),
		html.EscapeString(n.TransactionID),
	)
}

func confirmationText(c BookingConfirmation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", greetingName(c.Name))
	fmt.Fprintf(&b, "Your trip %s is booked.\n", c.TripName)
	fmt.Fprintf(&b, "Paid: %s %s via %s\n", c.Currency, c.FinalTotal.StringFixed(0), c.Method)
	fmt.Fprintf(&b, "Travelers: %d (%s %s per person)\n", c.Travelers, c.Currency, c.PerPerson.StringFixed(0))
	fmt.Fprintf(&b, "\nBooking reference: %s\n", c.TransactionID)
	return b.String()
}

func confirmationHTML(c BookingConfirmation) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>Hi %s, your trip is booked!</h2>
  <p><strong>%s</strong></p>
  <p>Paid %s %s via %s for %d traveler(s), %s %s per person.</p>
  <p style="color:#666;font-size:13px;">Booking reference: %s</p>
</body>
</html>`,
		html.EscapeString(greetingName(c.Name)),
		html.EscapeString(c.TripName),
		html.EscapeString(c.Currency), c.FinalTotal.StringFixed(0), html.EscapeString(c.Method),
		c.Travelers,
		html.EscapeString(c.Currency), c.PerPerson.StringFixed(0),
		html.EscapeString(c.TransactionID),
	)
}
