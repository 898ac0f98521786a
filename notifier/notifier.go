package notifier

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"BixpeClockBot/logger"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	DefaultMaxRetries     = 3
	DefaultInitialBackoff = time.Second
)

// ErrNotConnected é devolvido por um Sender que ainda não conectou ao Telegram.
var ErrNotConnected = errors.New("telegram ainda não conectado")

// Sender é a parte da API do Telegram usada para enviar mensagens.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Escalator recebe as mensagens que o Telegram não conseguiu entregar.
type Escalator interface {
	Enabled() bool
	Escalate(ctx context.Context, subject, body string) error
}

// Result descreve o que aconteceu com uma notificação.
type Result struct {
	Delivered bool
	Skipped   bool
	Attempts  int
	Err       error
}

type Notifier struct {
	api    Sender
	chatID int64

	maxRetries     uint64
	initialBackoff time.Duration
	timer          backoff.Timer
	escalator      Escalator
	tempDir        string
	now            func() time.Time
	log            *log.Logger

	warnOnce sync.Once
}

type Option func(*Notifier)

func WithRetries(max uint64, initial time.Duration) Option {
	return func(n *Notifier) {
		n.maxRetries = max
		n.initialBackoff = initial
	}
}

// WithTimer troca o timer do backoff. Usado nos testes para não dormir.
func WithTimer(t backoff.Timer) Option {
	return func(n *Notifier) { n.timer = t }
}

func WithEscalator(e Escalator) Option {
	return func(n *Notifier) { n.escalator = e }
}

func WithTempDir(dir string) Option {
	return func(n *Notifier) { n.tempDir = dir }
}

func WithClock(now func() time.Time) Option {
	return func(n *Notifier) { n.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(n *Notifier) { n.log = l }
}

// New cria o notificador. Com api nil ou chatID zero todas as chamadas viram no-op.
func New(api Sender, chatID int64, opts ...Option) *Notifier {
	n := &Notifier{
		api:            api,
		chatID:         chatID,
		maxRetries:     DefaultMaxRetries,
		initialBackoff: DefaultInitialBackoff,
		tempDir:        os.TempDir(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.log == nil {
		n.log = logger.For("notifier")
	}
	return n
}

func (n *Notifier) Enabled() bool {
	return n.api != nil && n.chatID != 0
}

func (n *Notifier) disabled() bool {
	if n.Enabled() {
		return false
	}
	n.warnOnce.Do(func() {
		n.log.Warn("⚠️ Telegram não configurado, notificações desativadas")
	})
	return true
}

// Notify envia uma mensagem de texto em Markdown, com até maxRetries novas
// tentativas e backoff exponencial (1s, 2s, 4s...). Erros definitivos do
// Telegram (400, 403) e a falta de conexão não são repetidos. Só mensagens de
// erro que não chegaram são escaladas por email.
func (n *Notifier) Notify(ctx context.Context, text string, isError bool) Result {
	if n.disabled() {
		return Result{Skipped: true}
	}

	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	var res Result
	op := func() error {
		res.Attempts++
		_, err := n.api.Send(msg)
		if err != nil && permanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	onRetry := func(err error, wait time.Duration) {
		n.log.Warn("falha ao enviar mensagem, tentando de novo", "attempt", res.Attempts, "wait", wait, "err", err)
	}

	err := backoff.RetryNotifyWithTimer(op, n.policy(ctx), onRetry, n.timer)
	if err == nil {
		res.Delivered = true
		return res
	}

	res.Err = fmt.Errorf("mensagem não entregue após %d tentativas: %w", res.Attempts, err)
	if !isError {
		n.log.Warn("⚠️ desistindo de enviar mensagem", "attempts", res.Attempts, "err", err)
		return res
	}
	n.log.Error("❌ desistindo de enviar alerta de erro", "attempts", res.Attempts, "err", err)
	n.escalate(ctx, text, res.Err)
	return res
}

// ErrorCode devolve o código HTTP de um erro da API do Telegram.
func ErrorCode(err error) (int, bool) {
	var ptr *tgbotapi.Error
	if errors.As(err, &ptr) {
		return ptr.Code, true
	}
	var val tgbotapi.Error
	if errors.As(err, &val) {
		return val.Code, true
	}
	return 0, false
}

// permanent indica erros que uma nova tentativa não resolve.
func permanent(err error) bool {
	if errors.Is(err, ErrNotConnected) {
		return true
	}
	code, ok := ErrorCode(err)
	return ok && (code == http.StatusBadRequest || code == http.StatusForbidden)
}

// NotifyScreenshot grava a imagem em um arquivo temporário, envia como foto
// em uma única tentativa e apaga o arquivo.
func (n *Notifier) NotifyScreenshot(ctx context.Context, image []byte, caption string) Result {
	if n.disabled() {
		return Result{Skipped: true}
	}
	if err := ctx.Err(); err != nil {
		return Result{Err: err}
	}

	path, err := n.writeTemp(image)
	if err != nil {
		n.log.Error("❌ erro ao gravar captura", "err", err)
		return Result{Err: err}
	}
	defer os.Remove(path)

	photo := tgbotapi.NewPhoto(n.chatID, tgbotapi.FilePath(path))
	photo.Caption = fmt.Sprintf("🔔 %s\nHorário: %s", caption, n.now().Format("2006-01-02 15:04:05"))

	if _, err := n.api.Send(photo); err != nil {
		n.log.Error("❌ erro ao enviar captura", "caption", caption, "err", err)
		return Result{Attempts: 1, Err: err}
	}

	n.log.Info("✅ captura enviada", "caption", caption)
	return Result{Delivered: true, Attempts: 1}
}

func (n *Notifier) policy(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = n.initialBackoff
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxInterval = time.Minute
	exp.MaxElapsedTime = 0

	return backoff.WithContext(backoff.WithMaxRetries(exp, n.maxRetries), ctx)
}

func (n *Notifier) writeTemp(image []byte) (string, error) {
	f, err := os.CreateTemp(n.tempDir, fmt.Sprintf("screenshot_%s_*.png", n.now().Format("20060102_150405")))
	if err != nil {
		return "", err
	}

	_, werr := f.Write(image)
	cerr := f.Close()
	if err := errors.Join(werr, cerr); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func (n *Notifier) escalate(ctx context.Context, text string, cause error) {
	if n.escalator == nil || !n.escalator.Enabled() {
		return
	}
	body := fmt.Sprintf("O bot não conseguiu entregar a mensagem abaixo pelo Telegram.\n\nErro: %v\n\n%s", cause, text)
	// ctx pode já estar cancelado no desligamento; o alerta ainda deve sair
	escCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Minute)
	defer cancel()
	if err := n.escalator.Escalate(escCtx, "[BixpeClockBot] Falha ao notificar pelo Telegram", body); err != nil {
		n.log.Error("❌ erro ao enviar alerta por email", "err", err)
	}
}
