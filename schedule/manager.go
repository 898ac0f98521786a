package schedule

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"BixpeClockBot/logger"
	"BixpeClockBot/workflow"

	"github.com/charmbracelet/log"
	"github.com/go-co-op/gocron"
)

// RunFunc executa a ação de um disparo liberado.
type RunFunc func(ctx context.Context, action workflow.Action)

type Manager struct {
	Sched *gocron.Scheduler
	Jobs  map[string]*gocron.Job

	defs  map[string]Job
	specs map[string]string
	state *RunState
	loc   *time.Location
	now   func() time.Time
	log   *log.Logger

	mu  sync.Mutex
	ctx context.Context
}

func NewManager(loc *time.Location, state *RunState) *Manager {
	if loc == nil {
		loc = time.UTC
	}
	s := gocron.NewScheduler(loc)
	// um disparo por vez; o atrasado espera e passa pela verificação de misfire
	s.SetMaxConcurrentJobs(1, gocron.WaitMode)

	return &Manager{
		Sched: s,
		Jobs:  make(map[string]*gocron.Job),
		defs:  make(map[string]Job),
		specs: make(map[string]string),
		state: state,
		loc:   loc,
		now:   time.Now,
		log:   logger.For("scheduler"),
		ctx:   context.Background(),
	}
}

// Start liga o agendador. Os disparos recebem ctx e param junto com ele.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	m.ctx = ctx
	m.mu.Unlock()

	if m.Sched.IsRunning() {
		return
	}
	m.Sched.StartAsync()
	m.log.Info("⏰ agendador iniciado", "timezone", m.loc.String(), "jobs", len(m.Jobs))
}

func (m *Manager) Stop() {
	if !m.Sched.IsRunning() {
		return
	}
	m.Sched.Stop()
	m.log.Info("🛑 agendador parado")
}

func (m *Manager) Running() bool {
	return m.Sched.IsRunning()
}

func (m *Manager) Location() *time.Location {
	return m.loc
}

func (m *Manager) Add(j Job, run RunFunc) error {
	if _, ok := m.Jobs[j.ID]; ok {
		return fmt.Errorf("job %s já registrado", j.ID)
	}
	spec, err := j.CronSpec()
	if err != nil {
		return fmt.Errorf("job %s: %w", j.ID, err)
	}

	job, err := m.Sched.Cron(spec).Tag(j.ID).Do(func() { m.fire(j, spec, run) })
	if err != nil {
		return fmt.Errorf("erro ao criar cron: %w", err)
	}

	m.Jobs[j.ID] = job
	m.defs[j.ID] = j
	m.specs[j.ID] = spec
	return nil
}

func (m *Manager) Remove(id string) {
	if job, ok := m.Jobs[id]; ok {
		m.Sched.RemoveByReference(job)
		delete(m.Jobs, id)
		delete(m.defs, id)
		delete(m.specs, id)
	}
}

// fire aplica a chave de pausa e a janela de tolerância antes de executar.
func (m *Manager) fire(j Job, spec string, run RunFunc) {
	now := m.now().In(m.loc)
	l := m.log.With("job", j.ID, "action", j.Action)

	defer func() {
		if p := recover(); p != nil {
			l.Error("❌ panic no disparo agendado", "panic", p)
		}
	}()

	if !m.state.Running() {
		l.Info("⏸️ agendador pausado, disparo ignorado")
		return
	}

	late, err := Misfired(spec, now, j.Grace)
	if err != nil {
		l.Error("❌ erro ao verificar atraso", "err", err)
		return
	}
	if late {
		l.Warn("⚠️ disparo fora da janela de tolerância, ignorado", "grace", j.Grace, "now", now.Format("15:04:05"))
		return
	}

	m.mu.Lock()
	ctx := m.ctx
	m.mu.Unlock()

	if ctx.Err() != nil {
		l.Info("desligando, disparo ignorado")
		return
	}

	l.Info("🔔 disparo agendado", "at", j.At)
	run(ctx, j.Action)
}

// Upcoming descreve o próximo disparo de um job.
type Upcoming struct {
	Job      Job
	Next     time.Time
	RunCount int
}

// NextRuns lista os jobs em ordem do próximo disparo.
func (m *Manager) NextRuns() []Upcoming {
	now := m.now().In(m.loc)
	var out []Upcoming
	for id, j := range m.defs {
		next, err := NextFire(m.specs[id], now)
		if err != nil {
			continue
		}
		u := Upcoming{Job: j, Next: next}
		if job, ok := m.Jobs[id]; ok {
			u.RunCount = job.RunCount()
		}
		out = append(out, u)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Next.Before(out[b].Next) })
	return out
}
