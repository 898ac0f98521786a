package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"BixpeClockBot/config"
	"BixpeClockBot/logger"
	"BixpeClockBot/mailer"
	"BixpeClockBot/notifier"
	"BixpeClockBot/schedule"
	bot "BixpeClockBot/telegram"
	"BixpeClockBot/workflow"

	"github.com/charmbracelet/log"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// app reúne os componentes montados a partir da Config.
type app struct {
	cfg      *config.Config
	log      *log.Logger
	link     *telegramLink
	notifier *notifier.Notifier
	runner   *workflow.Runner
	state    *schedule.RunState
	sched    *schedule.Manager
}

// newApp não acessa a rede: a conexão com o Telegram é feita por serve.
func newApp(cfg *config.Config) *app {
	a := &app{cfg: cfg, log: logger.For("main")}

	if cfg.TelegramToken != "" {
		a.link = newTelegramLink(cfg.TelegramToken)
	}

	var sender notifier.Sender
	if cfg.TelegramEnabled() {
		sender = a.link
	}
	a.notifier = notifier.New(sender, cfg.TelegramChatID,
		notifier.WithEscalator(mailer.New(cfg.SMTP)),
	)

	a.runner = workflow.NewRunner(workflow.Options{
		LoginURL:       cfg.LoginURL,
		Username:       cfg.Username,
		Password:       cfg.Password,
		SubmitSelector: cfg.SubmitSelector,
		Headless:       cfg.Headless,
	}, workflow.LaunchChrome, a.notifier, nil)

	a.state = schedule.NewRunState()
	a.sched = schedule.NewManager(cfg.Location, a.state)

	return a
}

// serve roda o agendador e o listener até ctx ser cancelado. O agendador
// começa na hora; o Telegram conecta em segundo plano. Só um token recusado
// encerra o processo com erro.
func (a *app) serve(ctx context.Context) error {
	run := func(ctx context.Context, action workflow.Action) {
		a.runner.Run(ctx, action, workflow.TriggerSchedule)
	}
	jobs := schedule.DefaultJobs(a.cfg.StartTime, a.cfg.StopTime, a.cfg.MisfireGrace)
	if err := schedule.LoadJobs(a.sched, jobs, run); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.sched.Start(runCtx)
	defer a.sched.Stop()

	for _, u := range a.sched.NextRuns() {
		a.log.Info("próximo disparo", "job", u.Job.ID, "at", u.Next.Format("2006-01-02 15:04"))
	}

	fatal := make(chan error, 1)
	var wg sync.WaitGroup
	if a.link != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			api, err := a.link.Connect(runCtx)
			if err != nil {
				if runCtx.Err() == nil {
					fatal <- err
				}
				return
			}
			b := bot.New(api, a.state, a.sched, a.runner, a.cfg.AllowedChats)
			b.LoginURL = a.cfg.LoginURL
			a.listen(runCtx, b)
		}()
	} else {
		a.log.Warn("⚠️ TELEGRAM_TOKEN ausente, comandos do chat desativados")
	}

	var err error
	select {
	case <-ctx.Done():
		a.log.Info("🛑 sinal recebido, encerrando...")
	case err = <-fatal:
		a.log.Error("❌ não foi possível usar o Telegram, encerrando", "err", err)
	}

	cancel()
	a.sched.Stop()
	wg.Wait()
	a.log.Info("👋 encerrado")
	return err
}

// listen mantém o listener vivo. Uma falha é reportada e o loop recomeça
// após uma pausa, até o ctx ser cancelado.
func (a *app) listen(ctx context.Context, b *bot.Bot) {
	for {
		err := a.guard(func() error { return b.Start(ctx) })
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			err = errors.New("listener encerrou sem motivo")
		}
		a.fatal(ctx, "listener do Telegram", err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(10 * time.Second):
		}
	}
}

// guard converte panic em erro.
func (a *app) guard(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn()
}

// fatal registra um erro inesperado e tenta avisar o chat.
func (a *app) fatal(ctx context.Context, where string, err error) {
	a.log.Error("❌ erro inesperado", "where", where, "err", err)
	text := fmt.Sprintf("❌ *Erro inesperado em %s*\n%s", where, tgbotapi.EscapeText(tgbotapi.ModeMarkdown, err.Error()))
	a.notifier.Notify(context.WithoutCancel(ctx), text, true)
}

// once executa uma única marcação. Sem ação explícita usa a mais próxima
// do horário atual.
func (a *app) once(ctx context.Context, arg string) error {
	var (
		action workflow.Action
		err    error
	)
	if arg != "" {
		action, err = workflow.ParseAction(arg)
	} else {
		action, err = schedule.ClosestAction(time.Now().In(a.cfg.Location), a.cfg.StartTime, a.cfg.StopTime)
	}
	if err != nil {
		return err
	}

	a.log.Info("execução única", "action", action)
	run := a.runner.Run(ctx, action, workflow.TriggerOnce)
	if run.Outcome == workflow.OutcomeFailed {
		return run.Err
	}
	return nil
}
