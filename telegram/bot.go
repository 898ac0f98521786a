package bot

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"BixpeClockBot/logger"
	"BixpeClockBot/schedule"
	"BixpeClockBot/workflow"

	"github.com/charmbracelet/log"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// API é o subconjunto do tgbotapi.BotAPI usado pelo bot.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type Bot struct {
	API          API
	State        *schedule.RunState
	Scheduler    *schedule.Manager
	Runner       *workflow.Runner
	Commands     map[string]func(context.Context, tgbotapi.Update)
	AllowedChats map[int64]bool

	LoginURL string
	TempDir  string

	log    *log.Logger
	manual sync.WaitGroup
}

func New(api API, state *schedule.RunState, sched *schedule.Manager, runner *workflow.Runner, allowed map[int64]bool) *Bot {
	b := &Bot{
		API:          api,
		State:        state,
		Scheduler:    sched,
		Runner:       runner,
		AllowedChats: allowed,
		TempDir:      os.TempDir(),
		log:          logger.For("telegram"),
	}
	b.initCommands()
	return b
}

func (b *Bot) initCommands() {
	b.Commands = map[string]func(context.Context, tgbotapi.Update){
		"start":   b.handleStart,
		"stop":    b.handleStop,
		"status":  b.handleStatus,
		"run":     b.handleRun,
		"history": b.handleHistory,
		"report":  b.handleReport,
		"ping":    b.handlePing,
		"help":    b.handleHelp,
	}
}

// Start escuta os comandos até ctx ser cancelado. Execuções manuais em
// andamento são aguardadas antes de retornar.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := b.API.GetUpdatesChan(u)
	b.log.Info("🤖 escutando comandos", "chats", len(b.AllowedChats))

	defer b.manual.Wait()
	for {
		select {
		case <-ctx.Done():
			b.API.StopReceivingUpdates()
			b.log.Info("listener encerrado")
			return nil
		case update, ok := <-updates:
			if !ok {
				return fmt.Errorf("canal de updates do telegram fechado")
			}
			b.handle(ctx, update)
		}
	}
}

func (b *Bot) handle(ctx context.Context, update tgbotapi.Update) {
	// Ignora qualquer update sem mensagem
	if update.Message == nil || update.Message.Chat == nil {
		return
	}
	b.logUpdate(update)

	defer func() {
		if p := recover(); p != nil {
			b.log.Error("❌ panic ao tratar comando", "panic", p, "text", update.Message.Text)
		}
	}()

	chatID := update.Message.Chat.ID
	if !b.AllowedChats[chatID] {
		b.log.Warn("chat não autorizado", "chat_id", chatID)
		return
	}

	if !update.Message.IsCommand() {
		b.reply(chatID, "Informe um comando. Use /help para ver a lista.")
		return
	}

	cmd := update.Message.Command()
	handler, ok := b.Commands[cmd]
	if !ok {
		b.reply(chatID, fmt.Sprintf("Comando `/%s` não encontrado. Use /help.", tgbotapi.EscapeText(tgbotapi.ModeMarkdown, cmd)))
		return
	}
	handler(ctx, update)
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.API.Send(msg); err != nil {
		b.log.Error("erro ao responder", "chat_id", chatID, "err", err)
	}
}

func (b *Bot) logUpdate(update tgbotapi.Update) {
	name := "[N/A]"
	if from := update.Message.From; from != nil {
		name = from.FirstName
		if from.LastName != "" {
			name += " " + from.LastName
		}
	}

	username := update.Message.Chat.UserName
	if username == "" {
		username = "[N/A]"
	}

	b.log.Debug("mensagem recebida",
		"chat_id", update.Message.Chat.ID,
		"nome", name,
		"username", username,
		"comando", strings.TrimSpace(update.Message.Text),
	)
}
