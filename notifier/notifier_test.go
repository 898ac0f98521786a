package notifier

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"BixpeClockBot/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu       sync.Mutex
	failures int
	err      error
	sent     []tgbotapi.Chattable
	calls    int
	onSend   func(c tgbotapi.Chattable)
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.onSend != nil {
		f.onSend(c)
	}
	if f.failures > 0 {
		f.failures--
		return tgbotapi.Message{}, errors.New("telegram: 502 bad gateway")
	}
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

// instantTimer registra as esperas do backoff e dispara na hora.
type instantTimer struct {
	waits []time.Duration
	c     chan time.Time
}

func (t *instantTimer) Start(d time.Duration) {
	t.waits = append(t.waits, d)
	t.c = make(chan time.Time, 1)
	t.c <- time.Now()
}

func (t *instantTimer) Stop() {}

func (t *instantTimer) C() <-chan time.Time { return t.c }

type fakeEscalator struct {
	enabled  bool
	subjects []string
	bodies   []string
}

func (f *fakeEscalator) Enabled() bool { return f.enabled }

func (f *fakeEscalator) Escalate(_ context.Context, subject, body string) error {
	f.subjects = append(f.subjects, subject)
	f.bodies = append(f.bodies, body)
	return nil
}

func newTestNotifier(api Sender, timer *instantTimer, opts ...Option) *Notifier {
	opts = append([]Option{WithTimer(timer), WithLogger(logger.Discard())}, opts...)
	return New(api, 1001, opts...)
}

func TestNotifyRetriesWithExponentialBackoff(t *testing.T) {
	api := &fakeSender{failures: 2}
	timer := &instantTimer{}
	n := newTestNotifier(api, timer)

	res := n.Notify(context.Background(), "✅ *Jornada iniciada*", false)

	assert.True(t, res.Delivered)
	assert.NoError(t, res.Err)
	assert.Equal(t, 3, res.Attempts)
	require.Len(t, api.sent, 1)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, timer.waits)

	msg, ok := api.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(1001), msg.ChatID)
	assert.Equal(t, tgbotapi.ModeMarkdown, msg.ParseMode)
	assert.Equal(t, "✅ *Jornada iniciada*", msg.Text)
}

func TestNotifyGivesUpAndEscalates(t *testing.T) {
	api := &fakeSender{err: errors.New("unauthorized")}
	timer := &instantTimer{}
	esc := &fakeEscalator{enabled: true}
	n := newTestNotifier(api, timer, WithEscalator(esc))

	res := n.Notify(context.Background(), "❌ erro", true)

	assert.False(t, res.Delivered)
	assert.Equal(t, 4, res.Attempts)
	assert.ErrorContains(t, res.Err, "unauthorized")
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, timer.waits)
	require.Len(t, esc.bodies, 1)
	assert.Contains(t, esc.bodies[0], "❌ erro")
}

func TestNotifyDoesNotRetryPermanentErrors(t *testing.T) {
	cases := map[string]error{
		"markdown inválido": &tgbotapi.Error{Code: 400, Message: "Bad Request: can't parse entities"},
		"bot bloqueado":     tgbotapi.Error{Code: 403, Message: "Forbidden: bot was blocked by the user"},
		"sem conexão":       ErrNotConnected,
	}
	for name, sendErr := range cases {
		t.Run(name, func(t *testing.T) {
			api := &fakeSender{err: sendErr}
			timer := &instantTimer{}
			esc := &fakeEscalator{enabled: true}
			n := newTestNotifier(api, timer, WithEscalator(esc))

			res := n.Notify(context.Background(), "❌ erro", true)

			assert.False(t, res.Delivered)
			assert.Equal(t, 1, res.Attempts)
			assert.Empty(t, timer.waits)
			assert.ErrorIs(t, res.Err, sendErr)
			assert.Len(t, esc.bodies, 1, "alerta de erro ainda vai por email")
		})
	}
}

func TestNotifyRetriesServerErrors(t *testing.T) {
	api := &fakeSender{err: &tgbotapi.Error{Code: 502, Message: "Bad Gateway"}}
	timer := &instantTimer{}
	n := newTestNotifier(api, timer)

	res := n.Notify(context.Background(), "x", false)

	assert.Equal(t, 4, res.Attempts)
	assert.Len(t, timer.waits, 3)
}

func TestNotifyEscalatesOnlyErrors(t *testing.T) {
	api := &fakeSender{err: errors.New("down")}
	esc := &fakeEscalator{enabled: true}
	n := newTestNotifier(api, &instantTimer{}, WithEscalator(esc))

	res := n.Notify(context.Background(), "✅ concluída", false)
	assert.False(t, res.Delivered)
	assert.Error(t, res.Err)
	assert.Empty(t, esc.bodies)

	n.Notify(context.Background(), "❌ erro", true)
	require.Len(t, esc.bodies, 1)
	assert.Contains(t, esc.bodies[0], "❌ erro")
}

func TestErrorCode(t *testing.T) {
	code, ok := ErrorCode(fmt.Errorf("envio: %w", &tgbotapi.Error{Code: 403}))
	assert.True(t, ok)
	assert.Equal(t, 403, code)

	_, ok = ErrorCode(errors.New("dial tcp: timeout"))
	assert.False(t, ok)
}

func TestNotifyDoesNotEscalateWhenDisabled(t *testing.T) {
	api := &fakeSender{err: errors.New("down")}
	esc := &fakeEscalator{enabled: false}
	n := newTestNotifier(api, &instantTimer{}, WithEscalator(esc))

	res := n.Notify(context.Background(), "x", true)

	assert.False(t, res.Delivered)
	assert.Empty(t, esc.bodies)
}

func TestNotifyStopsOnCancelledContext(t *testing.T) {
	api := &fakeSender{err: errors.New("down")}
	timer := &instantTimer{}
	n := newTestNotifier(api, timer)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := n.Notify(ctx, "x", false)

	assert.False(t, res.Delivered)
	assert.Equal(t, 1, res.Attempts)
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Empty(t, timer.waits)
}

func TestDisabledNotifierIsNoop(t *testing.T) {
	n := New(nil, 0, WithLogger(logger.Discard()))

	assert.False(t, n.Enabled())
	assert.Equal(t, Result{Skipped: true}, n.Notify(context.Background(), "x", true))
	assert.Equal(t, Result{Skipped: true}, n.NotifyScreenshot(context.Background(), []byte("png"), "x"))

	api := &fakeSender{}
	n = New(api, 0, WithLogger(logger.Discard()))
	assert.True(t, n.Notify(context.Background(), "x", false).Skipped)
	assert.Zero(t, api.calls)
}

func TestNotifyScreenshotSendsOnceAndRemovesFile(t *testing.T) {
	dir := t.TempDir()
	var photoPath string
	api := &fakeSender{onSend: func(c tgbotapi.Chattable) {
		photo := c.(tgbotapi.PhotoConfig)
		photoPath = string(photo.File.(tgbotapi.FilePath))
		data, err := os.ReadFile(photoPath)
		require.NoError(t, err)
		assert.Equal(t, []byte("png-bytes"), data)
	}}
	fixed := time.Date(2026, 3, 2, 9, 0, 5, 0, time.UTC)
	n := newTestNotifier(api, &instantTimer{}, WithTempDir(dir), WithClock(func() time.Time { return fixed }))

	res := n.NotifyScreenshot(context.Background(), []byte("png-bytes"), "✅ Login realizado")

	assert.True(t, res.Delivered)
	assert.Equal(t, 1, res.Attempts)
	require.Len(t, api.sent, 1)
	photo := api.sent[0].(tgbotapi.PhotoConfig)
	assert.Equal(t, "🔔 ✅ Login realizado\nHorário: 2026-03-02 09:00:05", photo.Caption)

	_, err := os.Stat(photoPath)
	assert.True(t, os.IsNotExist(err), "arquivo temporário deveria ter sido apagado")
}

func TestNotifyScreenshotIsSingleAttempt(t *testing.T) {
	dir := t.TempDir()
	api := &fakeSender{failures: 1}
	timer := &instantTimer{}
	n := newTestNotifier(api, timer, WithTempDir(dir))

	res := n.NotifyScreenshot(context.Background(), []byte("png"), "x")

	assert.False(t, res.Delivered)
	assert.Error(t, res.Err)
	assert.Equal(t, 1, api.calls)
	assert.Empty(t, timer.waits)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
