package notifications

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/wayfarer-backend/pkg/errors"
	"github.com/angelmondragon/wayfarer-backend/pkg/logger"
	"github.com/angelmondragon/wayfarer-backend/pkg/mailer"
)

type fakeSender struct {
	mu     sync.Mutex
	sent   []mailer.Email
	failTo map[string]error
}

func (f *fakeSender) Send(_ context.Context, email mailer.Email) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failTo[email.To]; err != nil {
		return err
	}
	f.sent = append(f.sent, email)
	return nil
}

func newTestService(t *testing.T, sender mailer.Sender) Service {
	t.Helper()
	svc, err := NewService(sender, "https://pay.example.com/split", logger.Nop())
	require.NoError(t, err)
	return svc
}

func sampleNotice() SplitNotice {
	return SplitNotice{
		TripID:        "trip-1",
		TripName:      "Goa Getaway",
		TransactionID: "TXN-1",
		PayerName:     "Asha",
		Currency:      "INR",
		Share:         decimal.NewFromInt(1070),
		Recipients: []Recipient{
			{Name: "Ravi", Email: "ravi@example.com", UPIHandle: "ravi@upi"},
			{Name: "No Mail"},
			{Name: "Broken", Email: "not-an-email"},
			{Name: "Meera", Email: "meera@example.com"},
		},
	}
}

func TestNewServiceRequiresSender(t *testing.T) {
	_, err := NewService(nil, "https://pay.example.com", nil)
	require.Error(t, err)

	_, err = NewService(&fakeSender{}, " ", nil)
	require.Error(t, err)
}

func TestNotifySplitSendsToValidRecipients(t *testing.T) {
	sender := &fakeSender{}
	svc := newTestService(t, sender)

	result, err := svc.NotifySplit(context.Background(), sampleNotice())
	require.NoError(t, err)

	assert.Equal(t, []string{"ravi@example.com", "meera@example.com"}, result.Sent)
	assert.Equal(t, []string{"not-an-email"}, result.Skipped)
	assert.Empty(t, result.Failed)
	require.Len(t, sender.sent, 2)

	first := sender.sent[0]
	assert.Equal(t, "Your share for Goa Getaway", first.Subject)
	assert.Contains(t, first.TextBody, "INR 1070")
	assert.Contains(t, first.TextBody, "ravi@upi")
	assert.Contains(t, first.HTMLBody, "Pay your share")
}

func TestNotifySplitLinkCarriesTransaction(t *testing.T) {
	sender := &fakeSender{}
	svc := newTestService(t, sender)

	_, err := svc.NotifySplit(context.Background(), sampleNotice())
	require.NoError(t, err)

	body := sender.sent[0].TextBody
	start := strings.Index(body, "https://")
	require.GreaterOrEqual(t, start, 0)
	link := strings.Fields(body[start:])[0]

	parsed, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "/split", parsed.Path)
	assert.Equal(t, "TXN-1", parsed.Query().Get("txn"))
	assert.Equal(t, "1070", parsed.Query().Get("share"))
	assert.Equal(t, "1", parsed.Query().Get("friend"))
}

func TestNotifySplitCollectsFailures(t *testing.T) {
	sender := &fakeSender{failTo: map[string]error{"ravi@example.com": errors.New("smtp down")}}
	svc := newTestService(t, sender)

	result, err := svc.NotifySplit(context.Background(), sampleNotice())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.Equal(t, []string{"ravi@example.com"}, result.Failed)
	assert.Equal(t, []string{"meera@example.com"}, result.Sent)
}

func TestNotifySplitWithoutRecipients(t *testing.T) {
	sender := &fakeSender{}
	svc := newTestService(t, sender)

	notice := sampleNotice()
	notice.Recipients = nil
	result, err := svc.NotifySplit(context.Background(), notice)
	require.NoError(t, err)
	assert.Empty(t, result.Sent)
	assert.Empty(t, sender.sent)
}

func TestNotifyBookingConfirmed(t *testing.T) {
	sender := &fakeSender{}
	svc := newTestService(t, sender)

	err := svc.NotifyBookingConfirmed(context.Background(), BookingConfirmation{
		Email:         "asha@example.com",
		Name:          "Asha",
		TripName:      "Goa Getaway",
		TransactionID: "TXN-1",
		Method:        "FULL",
		Currency:      "INR",
		FinalTotal:    decimal.NewFromInt(3210),
		PerPerson:     decimal.NewFromInt(3210),
		Travelers:     1,
	})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "Booking confirmed: Goa Getaway", sender.sent[0].Subject)
	assert.Contains(t, sender.sent[0].TextBody, "INR 3210 via FULL")
}

func TestNotifyBookingConfirmedRejectsBadAddress(t *testing.T) {
	svc := newTestService(t, &fakeSender{})

	err := svc.NotifyBookingConfirmed(context.Background(), BookingConfirmation{Email: "nope"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSplitHTMLEscapesNames(t *testing.T) {
	notice := sampleNotice()
	notice.TripName = "<script>alert(1)</script>"
	body := splitHTML(notice, Recipient{Name: "R&D"}, "https://pay.example.com/split?txn=1&friend=1")
	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, "R&amp;D")
}
