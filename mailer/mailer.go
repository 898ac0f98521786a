package mailer

import (
	"context"
	"fmt"
	"time"

	"BixpeClockBot/config"

	"github.com/wneessen/go-mail"
)

// Mailer envia alertas por email quando o Telegram não consegue entregar.
type Mailer struct {
	cfg  config.SMTP
	dial func(ctx context.Context, msg *mail.Msg) error
}

func New(cfg config.SMTP) *Mailer {
	m := &Mailer{cfg: cfg}
	m.dial = m.send
	return m
}

func (m *Mailer) Enabled() bool {
	return m != nil && m.cfg.Enabled()
}

// GetNewMail monta a mensagem com remetente, destinatários e assunto.
func (m *Mailer) GetNewMail(subject string) (*mail.Msg, error) {
	message := mail.NewMsg()
	if err := message.From(m.cfg.From); err != nil {
		return nil, fmt.Errorf("remetente inválido: %w", err)
	}
	if err := message.To(m.cfg.To...); err != nil {
		return nil, fmt.Errorf("destinatário inválido: %w", err)
	}
	message.Subject(subject)
	message.SetDate()

	return message, nil
}

// Escalate envia um alerta em texto simples.
func (m *Mailer) Escalate(ctx context.Context, subject, body string) error {
	if !m.Enabled() {
		return nil
	}

	message, err := m.GetNewMail(subject)
	if err != nil {
		return err
	}
	message.SetBodyString(mail.TypeTextPlain, body+"\n\nEnviado em "+time.Now().Format("2006-01-02 15:04:05"))

	return m.dial(ctx, message)
}

func (m *Mailer) send(ctx context.Context, message *mail.Msg) error {
	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTimeout(30 * time.Second),
	}
	if m.cfg.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthAutoDiscover),
			mail.WithUsername(m.cfg.User),
			mail.WithPassword(m.cfg.Password),
		)
	}

	client, err := mail.NewClient(m.cfg.Server, opts...)
	if err != nil {
		return fmt.Errorf("criando cliente SMTP: %w", err)
	}
	if err = client.DialAndSendWithContext(ctx, message); err != nil {
		return fmt.Errorf("enviando email: %w", err)
	}
	return nil
}
