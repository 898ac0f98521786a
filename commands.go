package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"BixpeClockBot/config"
	"BixpeClockBot/logger"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "bixpe-clock-bot",
	Short: "Marca o início e o fim da jornada no Bixpe nos horários agendados",
	Long: `Faz login no portal Bixpe e clica no botão de início (manhã) ou fim (tarde)
da jornada nos horários configurados. A agenda pode ser pausada e retomada
pelo Telegram com /stop e /start. Toda a configuração vem do ambiente (.env).`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		return a.serve(cmd.Context())
	},
}

var onceCmd = &cobra.Command{
	Use:   "once [start|stop]",
	Short: "Executa uma marcação agora e sai",
	Long: `Executa uma única marcação e encerra. Sem argumento, escolhe a ação cujo
horário agendado está mais próximo da hora atual.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		arg := ""
		if len(args) == 1 {
			arg = args[0]
		}
		return a.once(cmd.Context(), arg)
	},
}

func init() {
	rootCmd.AddCommand(onceCmd)
}

// Execute roda o comando com um contexto cancelado por SIGINT/SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	releaseOnDone(ctx, stop)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Get().Error("❌ encerrando com erro", "err", err)
		return err
	}
	return nil
}

func setup() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger.SetLevel(cfg.LogLevel)
	return newApp(cfg), nil
}

// releaseOnDone devolve os sinais ao comportamento padrão assim que ctx
// acaba: um segundo Ctrl+C mata o processo mesmo com o desligamento travado.
func releaseOnDone(ctx context.Context, stop context.CancelFunc) {
	go func() {
		<-ctx.Done()
		stop()
	}()
}
