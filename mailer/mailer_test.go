package mailer

import (
	"context"
	"errors"
	"testing"

	"BixpeClockBot/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

func smtpConfig() config.SMTP {
	return config.SMTP{
		Server: "smtp.example.com",
		Port:   587,
		From:   "bot@example.com",
		To:     []string{"ops@example.com", "me@example.com"},
	}
}

func TestEscalateDisabledIsNoop(t *testing.T) {
	m := New(config.SMTP{})
	called := false
	m.dial = func(context.Context, *mail.Msg) error {
		called = true
		return nil
	}

	assert.False(t, m.Enabled())
	assert.NoError(t, m.Escalate(context.Background(), "x", "y"))
	assert.False(t, called)

	var nilMailer *Mailer
	assert.False(t, nilMailer.Enabled())
}

func TestEscalateBuildsMessage(t *testing.T) {
	m := New(smtpConfig())
	var sent *mail.Msg
	m.dial = func(_ context.Context, msg *mail.Msg) error {
		sent = msg
		return nil
	}

	require.NoError(t, m.Escalate(context.Background(), "Falha no Telegram", "detalhes"))
	require.NotNil(t, sent)

	assert.Equal(t, []string{"Falha no Telegram"}, sent.GetGenHeader(mail.HeaderSubject))
	rcpts, err := sent.GetRecipients()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"<ops@example.com>", "<me@example.com>"}, rcpts)

	var to []string
	for _, addr := range sent.GetTo() {
		to = append(to, addr.Address)
	}
	assert.ElementsMatch(t, []string{"ops@example.com", "me@example.com"}, to)
}

func TestEscalatePropagatesDialError(t *testing.T) {
	m := New(smtpConfig())
	m.dial = func(context.Context, *mail.Msg) error { return errors.New("connection refused") }

	err := m.Escalate(context.Background(), "a", "b")
	assert.EqualError(t, err, "connection refused")
}

func TestGetNewMailRejectsBadAddress(t *testing.T) {
	cfg := smtpConfig()
	cfg.From = "not an address"
	_, err := New(cfg).GetNewMail("x")
	assert.Error(t, err)
}
