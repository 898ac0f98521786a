package bot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"BixpeClockBot/file_handler"
	"BixpeClockBot/monitor"
	"BixpeClockBot/workflow"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const historySize = 10

var outcomeIcon = map[workflow.Outcome]string{
	workflow.OutcomeSuccess: "✅",
	workflow.OutcomeWarning: "⚠️",
	workflow.OutcomeFailed:  "❌",
}

func (b *Bot) handleStart(ctx context.Context, update tgbotapi.Update) {
	changed := b.State.Resume()

	// re-arma o agendador caso tenha sido parado
	if !b.Scheduler.Running() {
		b.Scheduler.Start(ctx)
	}

	if !changed {
		b.reply(update.Message.Chat.ID, "ℹ️ O agendador já está *RUNNING*.")
		return
	}
	b.log.Info("▶️ agendador retomado via chat", "chat_id", update.Message.Chat.ID)
	b.reply(update.Message.Chat.ID, "▶️ *Agendador retomado*\n"+b.nextRunsText())
}

func (b *Bot) handleStop(_ context.Context, update tgbotapi.Update) {
	if !b.State.Pause() {
		b.reply(update.Message.Chat.ID, "ℹ️ O agendador já está *PAUSED*.")
		return
	}
	b.log.Info("⏸️ agendador pausado via chat", "chat_id", update.Message.Chat.ID)
	b.reply(update.Message.Chat.ID, "⏸️ *Agendador pausado*\nOs disparos serão ignorados até /start.")
}

func (b *Bot) handleStatus(_ context.Context, update tgbotapi.Update) {
	loc := b.Scheduler.Location()

	liveness := "parado"
	if b.Scheduler.Running() {
		liveness = "ativo"
	}
	busy := "não"
	if b.Runner.Busy() {
		busy = "sim"
	}

	var sb strings.Builder
	sb.WriteString("📊 *Status*\n")
	fmt.Fprintf(&sb, "Estado: `%s` desde %s\n", b.State, b.State.Since().In(loc).Format("2006-01-02 15:04"))
	fmt.Fprintf(&sb, "Agendador: `%s` (`%s`)\n", liveness, loc)
	fmt.Fprintf(&sb, "Execução em andamento: %s\n", busy)
	sb.WriteString(b.nextRunsText())

	if last, ok := b.Runner.Journal().Last(); ok {
		fmt.Fprintf(&sb, "\nÚltima execução: %s %s em %s", outcomeIcon[last.Outcome], last.Action.Label(), last.StartedAt.In(loc).Format("2006-01-02 15:04"))
	}

	b.reply(update.Message.Chat.ID, sb.String())
}

func (b *Bot) nextRunsText() string {
	upcoming := b.Scheduler.NextRuns()
	if len(upcoming) == 0 {
		return "Nenhum job agendado."
	}
	var sb strings.Builder
	sb.WriteString("Próximos disparos:\n")
	for _, u := range upcoming {
		fmt.Fprintf(&sb, "• `%s` %s %s\n", u.Next.Format("2006-01-02 15:04"), u.Job.Action.Icon(), u.Job.Name)
	}
	return sb.String()
}

// handleRun dispara uma execução manual. Ignora a pausa, mas nunca roda em
// paralelo com outra execução.
func (b *Bot) handleRun(ctx context.Context, update tgbotapi.Update) {
	chatID := update.Message.Chat.ID
	action, err := workflow.ParseAction(update.Message.CommandArguments())
	if err != nil {
		b.reply(chatID, "Informe a ação. Ex: `/run start` ou `/run stop`")
		return
	}
	if b.Runner.Busy() {
		b.reply(chatID, "⏳ "+workflow.ErrBusy.Error())
		return
	}

	b.reply(chatID, fmt.Sprintf("🚀 Execução manual de *%s* iniciada", action.Label()))

	b.manual.Add(1)
	go func() {
		defer b.manual.Done()
		run := b.Runner.Run(ctx, action, workflow.TriggerManual)
		if errors.Is(run.Err, workflow.ErrBusy) {
			b.reply(chatID, "⏳ "+workflow.ErrBusy.Error())
		}
	}()
}

func (b *Bot) handleHistory(_ context.Context, update tgbotapi.Update) {
	runs := b.Runner.Journal().Recent(historySize)
	if len(runs) == 0 {
		b.reply(update.Message.Chat.ID, "Nenhuma execução registrada desde o início do processo.")
		return
	}

	loc := b.Scheduler.Location()
	var sb strings.Builder
	sb.WriteString("🗂 *Últimas execuções*\n\n")
	for _, r := range runs {
		fmt.Fprintf(&sb, "%s `%s` %s (%s, %s)\n",
			outcomeIcon[r.Outcome],
			r.StartedAt.In(loc).Format("2006-01-02 15:04"),
			r.Action.Label(),
			r.Trigger,
			r.Duration().Round(time.Second),
		)
		if r.Outcome != workflow.OutcomeSuccess && r.Detail != "" {
			sb.WriteString("   " + tgbotapi.EscapeText(tgbotapi.ModeMarkdown, r.Detail) + "\n")
		}
	}
	b.reply(update.Message.Chat.ID, sb.String())
}

func (b *Bot) handleReport(_ context.Context, update tgbotapi.Update) {
	chatID := update.Message.Chat.ID
	runs := b.Runner.Journal().Recent(0)
	if len(runs) == 0 {
		b.reply(chatID, "Nenhuma execução registrada desde o início do processo.")
		return
	}

	excelFile, err := file_handler.GenerateRunsSheet(runs, b.TempDir, b.Scheduler.Location())
	if err != nil {
		b.log.Error("erro ao gerar planilha", "err", err)
		b.reply(chatID, "❌ Erro ao gerar a planilha: "+tgbotapi.EscapeText(tgbotapi.ModeMarkdown, err.Error()))
		return
	}
	defer os.Remove(excelFile)

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(excelFile))
	doc.Caption = fmt.Sprintf("📄 %d execuções", len(runs))
	if _, err := b.API.Send(doc); err != nil {
		b.log.Error("erro ao enviar planilha", "err", err)
	}
}

func (b *Bot) handlePing(ctx context.Context, update tgbotapi.Update) {
	st := monitor.CheckPortal(ctx, b.LoginURL)
	msg := tgbotapi.NewMessage(update.Message.Chat.ID, st.String())
	if _, err := b.API.Send(msg); err != nil {
		b.log.Error("erro ao responder", "err", err)
	}
}

func (b *Bot) handleHelp(_ context.Context, update tgbotapi.Update) {
	b.reply(update.Message.Chat.ID, strings.Join([]string{
		"*Comandos*",
		"/start - retoma os disparos agendados",
		"/stop - pausa os disparos agendados",
		"/status - estado atual e próximos disparos",
		"/run start|stop - executa agora, ignorando a pausa",
		"/history - últimas execuções",
		"/report - planilha com o histórico",
		"/ping - verifica se o portal responde",
	}, "\n"))
}
