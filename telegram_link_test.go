package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"BixpeClockBot/logger"
	"BixpeClockBot/notifier"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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

const getMeOK = `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Relógio","username":"relogio_bot"}}`

// fakeTelegram responde o getMe com as respostas dadas, repetindo a última.
func fakeTelegram(t *testing.T, calls *atomic.Int32, replies ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := int(calls.Add(1))
		if n > len(replies) {
			n = len(replies)
		}
		w.Write([]byte(replies[n-1]))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testLink(srv *httptest.Server, timer *instantTimer) *telegramLink {
	l := newTelegramLink("123:abc")
	l.endpoint = srv.URL + "/bot%s/%s"
	l.timer = timer
	l.log = logger.Discard()
	return l
}

func TestConnectRetriesUntilTelegramAnswers(t *testing.T) {
	var calls atomic.Int32
	down := `{"ok":false,"error_code":500,"description":"Internal Server Error"}`
	srv := fakeTelegram(t, &calls, down, down, getMeOK)
	timer := &instantTimer{}
	l := testLink(srv, timer)

	_, err := l.Send(tgbotapi.NewMessage(42, "antes"))
	assert.ErrorIs(t, err, notifier.ErrNotConnected)

	api, err := l.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "relogio_bot", api.Self.UserName)
	assert.EqualValues(t, 3, calls.Load())
	assert.Len(t, timer.waits, 2)
	assert.Same(t, api, l.api.Load())
}

func TestConnectGivesUpOnRejectedToken(t *testing.T) {
	var calls atomic.Int32
	srv := fakeTelegram(t, &calls, `{"ok":false,"error_code":401,"description":"Unauthorized"}`)
	timer := &instantTimer{}
	l := testLink(srv, timer)

	api, err := l.Connect(context.Background())
	assert.Nil(t, api)
	assert.ErrorIs(t, err, errBadToken)
	assert.EqualValues(t, 1, calls.Load())
	assert.Empty(t, timer.waits)
	assert.Nil(t, l.api.Load())
}

func TestConnectStopsOnCancel(t *testing.T) {
	var calls atomic.Int32
	srv := fakeTelegram(t, &calls, `{"ok":false,"error_code":502,"description":"Bad Gateway"}`)
	l := testLink(srv, &instantTimer{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.Connect(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, l.api.Load())
}
