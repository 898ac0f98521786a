package monitor

import (
	"context"
	"fmt"
	"net/url"
	"runtime"
	"strings"
	"time"

	"BixpeClockBot/logger"

	"github.com/go-ping/ping"
)

const (
	PingCount    = 3
	PingInterval = 300 * time.Millisecond
	PingTimeout  = 3 * time.Second
)

// Status é o resultado de uma checagem do portal.
type Status struct {
	Host      string
	Online    bool
	Sent      int
	Received  int
	Loss      float64
	AvgRtt    time.Duration
	Err       error
	CheckedAt time.Time
}

func (s Status) String() string {
	if s.Err != nil {
		return fmt.Sprintf("❌ %s\nErro no ping: %v", s.Host, s.Err)
	}
	if !s.Online {
		return fmt.Sprintf("❌ %s\nStatus: OFFLINE (nenhuma resposta)", s.Host)
	}
	return fmt.Sprintf(
		"✅ %s\nEnviados: %d | Recebidos: %d | Perda: %.0f%%\nLatência média: %v",
		s.Host,
		s.Sent,
		s.Received,
		s.Loss,
		s.AvgRtt,
	)
}

// HostFromURL extrai o host de uma URL de login. Aceita também um host puro.
func HostFromURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("url vazia")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("url inválida %q: %w", raw, err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("url sem host: %q", raw)
	}
	return u.Hostname(), nil
}

// CheckPortal envia pings ao host da página de login.
func CheckPortal(ctx context.Context, loginURL string) Status {
	st := Status{CheckedAt: time.Now()}

	host, err := HostFromURL(loginURL)
	if err != nil {
		st.Host = loginURL
		st.Err = err
		return st
	}
	st.Host = host

	pinger, err := ping.NewPinger(host)
	if err != nil {
		st.Err = err
		return st
	}

	pinger.Count = PingCount
	pinger.Interval = PingInterval
	pinger.Timeout = PingTimeout
	// No Windows o ping sem privilégio não funciona; no Linux depende de net.ipv4.ping_group_range
	pinger.SetPrivileged(runtime.GOOS == "windows")

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			pinger.Stop()
		case <-done:
		}
	}()

	if err := pinger.Run(); err != nil {
		// Erro típico de host offline no Windows
		if !strings.Contains(strings.ToLower(err.Error()), "wsarecvfrom") {
			st.Err = err
		}
		logger.For("monitor").Warn("ping falhou", "host", host, "err", err)
		return st
	}

	if ctx.Err() != nil {
		st.Err = ctx.Err()
		return st
	}

	stats := pinger.Statistics()
	st.Sent = stats.PacketsSent
	st.Received = stats.PacketsRecv
	st.Loss = stats.PacketLoss
	st.AvgRtt = stats.AvgRtt
	st.Online = stats.PacketsRecv > 0
	return st
}
