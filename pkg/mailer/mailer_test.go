package mailer

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/angelmondragon/wayfarer-backend/pkg/config"
	"github.com/angelmondragon/wayfarer-backend/pkg/logger"
)

type fakeTransport struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeTransport) DialAndSend(m ...*gomail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m...)
	return nil
}

func TestSMTPSendBuildsMessage(t *testing.T) {
	transport := &fakeTransport{}
	sender := &SMTP{from: "bookings@wayfarer.travel", transport: transport}

	err := sender.Send(context.Background(), Email{
		To:       "friend@example.com",
		Subject:  "Your share for Goa",
		TextBody: "Pay 1070 here",
		HTMLBody: "<p>Pay 1070 here</p>",
	})
	require.NoError(t, err)
	require.Len(t, transport.sent, 1)

	msg := transport.sent[0]
	assert.Equal(t, []string{"friend@example.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"bookings@wayfarer.travel"}, msg.GetHeader("From"))
	assert.Equal(t, []string{"Your share for Goa"}, msg.GetHeader("Subject"))

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "text/html")
	assert.Contains(t, buf.String(), "Pay 1070 here")
}

func TestSMTPSendRejectsInvalidEmail(t *testing.T) {
	transport := &fakeTransport{}
	sender := &SMTP{from: "bookings@wayfarer.travel", transport: transport}

	err := sender.Send(context.Background(), Email{To: "not-an-address", Subject: "x", TextBody: "y"})
	require.Error(t, err)
	assert.Empty(t, transport.sent)

	err = sender.Send(context.Background(), Email{To: "a@example.com", TextBody: "y"})
	require.Error(t, err)
}

func TestSMTPSendPropagatesTransportError(t *testing.T) {
	sender := &SMTP{from: "bookings@wayfarer.travel", transport: &fakeTransport{err: errors.New("relay down")}}
	err := sender.Send(context.Background(), Email{To: "a@example.com", Subject: "s", TextBody: "b"})
	assert.EqualError(t, err, "relay down")
}

func TestSMTPSendHonoursCancelledContext(t *testing.T) {
	transport := &fakeTransport{}
	sender := &SMTP{from: "bookings@wayfarer.travel", transport: transport}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := sender.Send(ctx, Email{To: "a@example.com", Subject: "s", TextBody: "b"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, transport.sent)
}

func TestNewSelectsSender(t *testing.T) {
	logg := logger.Nop()

	sender, err := New(config.SMTPConfig{}, logg)
	require.NoError(t, err)
	assert.IsType(t, &Log{}, sender)
	require.NoError(t, sender.Send(context.Background(), Email{To: "a@example.com", Subject: "s"}))

	sender, err = New(config.SMTPConfig{Host: "smtp.test", Port: 587, From: "bookings@wayfarer.travel"}, logg)
	require.NoError(t, err)
	assert.IsType(t, &SMTP{}, sender)

	_, err = New(config.SMTPConfig{Host: "smtp.test", From: "nope"}, logg)
	require.Error(t, err)
}

func TestValidAddress(t *testing.T) {
	assert.True(t, ValidAddress("friend@example.com"))
	assert.False(t, ValidAddress("Friend <friend@example.com>"))
	assert.False(t, ValidAddress(""))
	assert.False(t, ValidAddress("friend"))
}
