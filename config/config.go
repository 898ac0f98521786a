package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// LoginURL é a página de login do portal. Não é configurável.
const LoginURL = "https://auth2.bixpe.com/Account/Login"

const (
	DefaultSubmitSelector = "button[type='submit']"
	DefaultTimezone       = "Europe/Madrid"
	DefaultStartTime      = "09:00"
	DefaultStopTime       = "18:00"
	DefaultMisfireGrace   = 5 * time.Minute
	DefaultSMTPPort       = 587
)

var ErrMissing = errors.New("variável obrigatória ausente")

type Config struct {
	LoginURL string
	Username string
	Password string

	TelegramToken  string
	TelegramChatID int64
	AllowedChats   map[int64]bool

	SubmitSelector string
	Headless       bool

	Location     *time.Location
	StartTime    string
	StopTime     string
	MisfireGrace time.Duration

	LogLevel string

	SMTP SMTP
}

// SMTP guarda a configuração opcional de alerta por email.
type SMTP struct {
	Server   string
	Port     int
	User     string
	Password string
	From     string
	To       []string
}

func (s SMTP) Enabled() bool {
	return s.Server != "" && s.From != "" && len(s.To) > 0
}

// TelegramEnabled indica se há token e chat para enviar notificações.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}

// Load lê a configuração do ambiente. O arquivo .env do diretório atual é
// carregado antes, sem sobrescrever variáveis já definidas.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("lendo .env: %w", err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup monta a Config a partir de qualquer fonte de variáveis.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}

	var errs []error

	cfg := &Config{
		LoginURL:       LoginURL,
		Username:       get("BIXPE_USERNAME", ""),
		Password:       get("BIXPE_PASSWORD", ""),
		TelegramToken:  get("TELEGRAM_TOKEN", ""),
		SubmitSelector: get("BUTTON_SELECTOR", DefaultSubmitSelector),
		Headless:       strings.EqualFold(get("HEADLESS", "false"), "true"),
		StartTime:      get("START_TIME", DefaultStartTime),
		StopTime:       get("STOP_TIME", DefaultStopTime),
		LogLevel:       get("LOG_LEVEL", "info"),
	}

	if cfg.Username == "" {
		errs = append(errs, fmt.Errorf("BIXPE_USERNAME: %w", ErrMissing))
	}
	if cfg.Password == "" {
		errs = append(errs, fmt.Errorf("BIXPE_PASSWORD: %w", ErrMissing))
	}

	if raw := get("TELEGRAM_CHAT_ID", ""); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("TELEGRAM_CHAT_ID: id inválido %q", raw))
		}
		cfg.TelegramChatID = id
	}

	cfg.AllowedChats = loadAllowedChats(strings.Split(get("TELEGRAM_ALLOWED_CHAT_ID", ""), ","))
	if cfg.TelegramChatID != 0 {
		cfg.AllowedChats[cfg.TelegramChatID] = true
	}

	tz := get("TIMEZONE", DefaultTimezone)
	loc, err := time.LoadLocation(tz)
	if err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE: %w", err))
		loc = time.UTC
	}
	cfg.Location = loc

	for key, v := range map[string]string{"START_TIME": cfg.StartTime, "STOP_TIME": cfg.StopTime} {
		if _, err := time.Parse("15:04", v); err != nil {
			errs = append(errs, fmt.Errorf("%s: horário inválido %q, use HH:MM", key, v))
		}
	}

	cfg.MisfireGrace = DefaultMisfireGrace
	if raw := get("MISFIRE_GRACE", ""); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			errs = append(errs, fmt.Errorf("MISFIRE_GRACE: duração inválida %q", raw))
		} else {
			cfg.MisfireGrace = d
		}
	}

	cfg.SMTP = SMTP{
		Server:   get("SMTP_SERVER", ""),
		Port:     DefaultSMTPPort,
		User:     get("SMTP_USER", ""),
		Password: get("SMTP_PASSWORD", ""),
		From:     get("ALERT_EMAIL_FROM", ""),
	}
	for _, to := range strings.Split(get("ALERT_EMAIL_TO", ""), ",") {
		if to = strings.TrimSpace(to); to != "" {
			cfg.SMTP.To = append(cfg.SMTP.To, to)
		}
	}
	if raw := get("SMTP_PORT", ""); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port <= 0 || port > 65535 {
			errs = append(errs, fmt.Errorf("SMTP_PORT: porta inválida %q", raw))
		} else {
			cfg.SMTP.Port = port
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func loadAllowedChats(parts []string) map[int64]bool {
	allowed := make(map[int64]bool)

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			continue
		}

		allowed[id] = true
	}

	return allowed
}
