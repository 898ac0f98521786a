package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"BixpeClockBot/logger"
	"BixpeClockBot/notifier"

	"github.com/charmbracelet/log"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
)

var ErrBusy = errors.New("já existe uma execução em andamento")

const (
	DefaultButtonTimeout  = 10 * time.Second
	DefaultPopupTimeout   = 5 * time.Second
	DefaultDismissTimeout = 5 * time.Second
)

// Notifier é o canal de avisos usado durante a execução.
type Notifier interface {
	Notify(ctx context.Context, text string, isError bool) notifier.Result
	NotifyScreenshot(ctx context.Context, image []byte, caption string) notifier.Result
}

type Options struct {
	LoginURL       string
	Username       string
	Password       string
	SubmitSelector string
	Headless       bool

	ButtonTimeout  time.Duration
	PopupTimeout   time.Duration
	DismissTimeout time.Duration
}

func (o *Options) setDefaults() {
	if o.ButtonTimeout <= 0 {
		o.ButtonTimeout = DefaultButtonTimeout
	}
	if o.PopupTimeout <= 0 {
		o.PopupTimeout = DefaultPopupTimeout
	}
	if o.DismissTimeout <= 0 {
		o.DismissTimeout = DefaultDismissTimeout
	}
}

type Runner struct {
	opts    Options
	launch  Launcher
	notify  Notifier
	journal *Journal
	log     *log.Logger
	now     func() time.Time

	busy atomic.Bool
}

func NewRunner(opts Options, launch Launcher, n Notifier, journal *Journal) *Runner {
	opts.setDefaults()
	if journal == nil {
		journal = NewJournal(DefaultJournalSize)
	}
	return &Runner{
		opts:    opts,
		launch:  launch,
		notify:  n,
		journal: journal,
		log:     logger.For("workflow"),
		now:     time.Now,
	}
}

func (r *Runner) Journal() *Journal {
	return r.journal
}

// Busy indica se há uma execução em andamento.
func (r *Runner) Busy() bool {
	return r.busy.Load()
}

// Run executa login, clique no botão da ação e confirmação do popup.
// Nunca propaga erro nem panic: o resultado vai para o Run retornado,
// para o diário e para o chat.
func (r *Runner) Run(ctx context.Context, action Action, trigger Trigger) Run {
	run := Run{
		ID:        uuid.New(),
		Action:    action,
		Trigger:   trigger,
		StartedAt: r.now(),
	}

	if !r.busy.CompareAndSwap(false, true) {
		r.log.Warn("execução ignorada, outra já está em andamento", "action", action, "trigger", trigger)
		run.FinishedAt = run.StartedAt
		run.Outcome = OutcomeFailed
		run.Err = ErrBusy
		run.Detail = ErrBusy.Error()
		return run
	}
	defer r.busy.Store(false)

	l := r.log.With("run", run.ID.String(), "action", action)
	l.Info(strings.Repeat("=", 50))
	l.Info(fmt.Sprintf("%s INICIANDO %s", action.Icon(), action.Title()), "trigger", trigger)

	warning, err := r.execute(ctx, l, action)
	run.FinishedAt = r.now()

	switch {
	case err != nil:
		run.Outcome = OutcomeFailed
		run.Err = err
		run.Detail = err.Error()
		l.Error("❌ erro na execução", "err", err)
		r.report(ctx, l, fmt.Sprintf("❌ *Erro na %s*\n%s", action.Title(), tgbotapi.EscapeText(tgbotapi.ModeMarkdown, err.Error())), true)
	case warning != "":
		run.Outcome = OutcomeWarning
		run.Detail = warning
		l.Warn("⚠️ " + warning)
		r.report(ctx, l, fmt.Sprintf("⚠️ *%s concluída com aviso*\n%s", action.Title(), warning), false)
	default:
		run.Outcome = OutcomeSuccess
		run.Detail = fmt.Sprintf("botão %s clicado", action.Label())
		l.Info(fmt.Sprintf("🏁 %s CONCLUÍDA", action.Title()), "duration", run.Duration().Round(time.Millisecond))
		r.report(ctx, l, fmt.Sprintf("✅ *%s concluída*\nBotão `%s` clicado em %s", action.Title(), action.Label(), run.FinishedAt.Format("15:04:05")), false)
	}

	r.journal.Add(run)
	return run
}

func (r *Runner) execute(ctx context.Context, l *log.Logger, action Action) (warning string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic durante a execução: %v", p)
		}
	}()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	l.Info("🚀 abrindo navegador", "headless", r.opts.Headless)
	page, err := r.launch(ctx, r.opts.Headless)
	if err != nil {
		return "", fmt.Errorf("abrindo navegador: %w", err)
	}

	var closeOnce sync.Once
	closePage := func() {
		closeOnce.Do(func() {
			if cerr := page.Close(); cerr != nil {
				l.Warn("erro ao fechar navegador", "err", cerr)
			}
		})
	}
	defer closePage()

	step := func(name string, fn func() error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	}

	l.Info("🌐 abrindo página de login", "url", r.opts.LoginURL)
	if err := step("login", func() error { return page.Navigate(r.opts.LoginURL) }); err != nil {
		return "", err
	}

	l.Info("🔐 preenchendo credenciais")
	if err := step("usuário", func() error { return page.Fill(UsernameSelector, r.opts.Username) }); err != nil {
		return "", err
	}
	if err := step("senha", func() error { return page.Fill(PasswordSelector, r.opts.Password) }); err != nil {
		return "", err
	}

	l.Info("🔘 enviando formulário de login")
	if err := step("envio do login", func() error { return page.Click(r.opts.SubmitSelector) }); err != nil {
		return "", err
	}
	if err := step("carregamento pós-login", page.WaitLoaded); err != nil {
		return "", err
	}
	l.Info("✅ login concluído")

	r.screenshot(ctx, l, page, fmt.Sprintf("✅ Login realizado - %s", action.Title()))

	l.Info(fmt.Sprintf("🔍 procurando botão %s", action.Label()), "timeout", r.opts.ButtonTimeout)
	var found bool
	if err := step("botão "+action.Label(), func() (err error) {
		found, err = page.WaitVisible(action.Selector(), r.opts.ButtonTimeout)
		return err
	}); err != nil {
		return "", err
	}
	if !found {
		closePage()
		return fmt.Sprintf("Botão %s não encontrado", action.Label()), nil
	}

	if err := step("clique em "+action.Label(), func() error { return page.Click(action.Selector()) }); err != nil {
		return "", err
	}
	l.Info(fmt.Sprintf("%s botão %s clicado", action.Icon(), action.Label()))

	r.confirm(ctx, l, page)

	r.screenshot(ctx, l, page, fmt.Sprintf("%s Botão %s e confirmação concluídos", action.Icon(), action.Label()))

	closePage()
	return "", nil
}

// confirm clica no botão do popup se ele aparecer. A ausência do popup não é erro.
func (r *Runner) confirm(ctx context.Context, l *log.Logger, page Page) {
	if ctx.Err() != nil {
		return
	}

	l.Info("⏳ aguardando popup de confirmação", "timeout", r.opts.PopupTimeout)
	visible, err := page.WaitVisible(ConfirmSelector, r.opts.PopupTimeout)
	if err != nil || !visible {
		l.Warn("⚠️ popup não encontrado, continuando", "err", err)
		return
	}

	if err := page.Click(ConfirmSelector); err != nil {
		l.Warn("⚠️ erro ao confirmar popup, continuando", "err", err)
		return
	}
	if err := page.WaitGone(ConfirmSelector, r.opts.DismissTimeout); err != nil {
		l.Warn("popup não fechou a tempo", "err", err)
	}
	l.Info("✅ popup confirmado")
}

func (r *Runner) screenshot(ctx context.Context, l *log.Logger, page Page, caption string) {
	img, err := page.Screenshot()
	if err != nil {
		l.Error("❌ erro ao tirar captura", "err", err)
		return
	}
	l.Info("📸 captura tirada", "bytes", len(img))
	if res := r.notify.NotifyScreenshot(ctx, img, caption); res.Err != nil {
		l.Warn("captura não entregue", "err", res.Err)
	}
}

func (r *Runner) report(ctx context.Context, l *log.Logger, text string, isError bool) {
	if res := r.notify.Notify(ctx, text, isError); res.Err != nil {
		l.Warn("aviso final não entregue", "attempts", res.Attempts, "err", res.Err)
	}
}
