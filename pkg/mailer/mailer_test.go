package mailer

import (
	"bytes"
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/jordan-wright/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dekorekillian57-star/spendo/pkg/config"
	"github.com/dekorekillian57-star/spendo/pkg/logger"
)

func TestSMTPSenderBuildsEmail(t *testing.T) {
	s, err := NewSMTPSender(config.SMTPConfig{Host: "smtp.example.com", Port: 587, Username: "u", Password: "p", From: "Spendo <no-reply@spendo.gh>"})
	require.NoError(t, err)

	var gotAddr string
	var got *email.Email
	s.send = func(addr string, a smtp.Auth, e *email.Email) error {
		gotAddr = addr
		got = e
		return nil
	}

	err = s.Send(context.Background(), Message{To: []string{"ama@example.com"}, Subject: "hi", Text: "plain", HTML: "<p>html</p>"})
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, []string{"ama@example.com"}, got.To)
	assert.Equal(t, "Spendo <no-reply@spendo.gh>", got.From)
	assert.Equal(t, []byte("<p>html</p>"), got.HTML)
}

func TestSMTPSenderWrapsErrors(t *testing.T) {
	s, err := NewSMTPSender(config.SMTPConfig{Host: "smtp.example.com", Port: 25})
	require.NoError(t, err)
	s.send = func(string, smtp.Auth, *email.Email) error { return errors.New("connection refused") }

	err = s.Send(context.Background(), Message{To: []string{"a@b.c"}, Subject: "x", Text: "y"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a@b.c")

	err = s.Send(context.Background(), Message{Subject: "x"})
	require.Error(t, err)
}

func TestNewFallsBackToLogSender(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: buf, Format: "json"})

	sender, err := New(config.SMTPConfig{}, logg)
	require.NoError(t, err)
	require.IsType(t, &LogSender{}, sender)

	require.NoError(t, sender.Send(context.Background(), Message{To: []string{"ops@spendo.gh"}, Subject: "New Order Received"}))
	assert.Contains(t, buf.String(), "New Order Received")
}
