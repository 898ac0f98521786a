package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"BixpeClockBot/logger"
	"BixpeClockBot/notifier"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// errBadToken indica que o Telegram recusou o token. Não adianta tentar de novo.
var errBadToken = errors.New("token do telegram recusado")

// telegramLink conecta ao Telegram em segundo plano. Até conectar, Send
// devolve notifier.ErrNotConnected e o resto do processo segue funcionando.
type telegramLink struct {
	token    string
	endpoint string
	client   *http.Client
	api      atomic.Pointer[tgbotapi.BotAPI]

	initial time.Duration
	max     time.Duration
	timer   backoff.Timer
	log     *log.Logger
}

func newTelegramLink(token string) *telegramLink {
	return &telegramLink{
		token:    token,
		endpoint: tgbotapi.APIEndpoint,
		client:   &http.Client{Timeout: 60 * time.Second}, // maior que o long-poll de 30s
		initial:  2 * time.Second,
		max:      5 * time.Minute,
		log:      logger.For("telegram"),
	}
}

func (t *telegramLink) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	api := t.api.Load()
	if api == nil {
		return tgbotapi.Message{}, notifier.ErrNotConnected
	}
	return api.Send(c)
}

// Connect tenta o getMe até conseguir, até ctx acabar ou até o token ser
// recusado (401).
func (t *telegramLink) Connect(ctx context.Context) (*tgbotapi.BotAPI, error) {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = t.initial
	exp.MaxInterval = t.max
	exp.MaxElapsedTime = 0

	op := func() (*tgbotapi.BotAPI, error) {
		api, err := tgbotapi.NewBotAPIWithClient(t.token, t.endpoint, t.client)
		if err == nil {
			return api, nil
		}
		if code, ok := notifier.ErrorCode(err); ok && code == http.StatusUnauthorized {
			return nil, backoff.Permanent(fmt.Errorf("%w: %v", errBadToken, err))
		}
		return nil, err
	}
	onRetry := func(err error, wait time.Duration) {
		t.log.Warn("⚠️ telegram indisponível, notificações degradadas", "retry_in", wait, "err", err)
	}

	api, err := backoff.RetryNotifyWithTimerAndData(op, backoff.WithContext(exp, ctx), onRetry, t.timer)
	if err != nil {
		return nil, err
	}
	t.api.Store(api)
	t.log.Info("🤖 bot conectado", "username", api.Self.UserName)
	return api, nil
}
