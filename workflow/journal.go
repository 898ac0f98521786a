package workflow

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeWarning Outcome = "warning"
	OutcomeFailed  Outcome = "failed"
)

// Trigger diz quem disparou a execução.
type Trigger string

const (
	TriggerSchedule Trigger = "schedule"
	TriggerManual   Trigger = "manual"
	TriggerOnce     Trigger = "once"
)

// Run é o registro de uma execução completa (login + ação + confirmação).
type Run struct {
	ID         uuid.UUID
	Action     Action
	Trigger    Trigger
	StartedAt  time.Time
	FinishedAt time.Time
	Outcome    Outcome
	Detail     string
	Err        error
}

func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

const DefaultJournalSize = 50

// Journal guarda em memória as últimas execuções. Não sobrevive a reinícios.
type Journal struct {
	mu   sync.Mutex
	runs []Run
	size int
}

func NewJournal(size int) *Journal {
	if size <= 0 {
		size = DefaultJournalSize
	}
	return &Journal{size: size}
}

func (j *Journal) Add(r Run) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.runs = append(j.runs, r)
	if over := len(j.runs) - j.size; over > 0 {
		j.runs = append([]Run(nil), j.runs[over:]...)
	}
}

// Recent retorna até n execuções, da mais nova para a mais antiga. n <= 0 retorna todas.
func (j *Journal) Recent(n int) []Run {
	j.mu.Lock()
	defer j.mu.Unlock()

	if n <= 0 || n > len(j.runs) {
		n = len(j.runs)
	}
	out := make([]Run, 0, n)
	for i := len(j.runs) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, j.runs[i])
	}
	return out
}

func (j *Journal) Last() (Run, bool) {
	recent := j.Recent(1)
	if len(recent) == 0 {
		return Run{}, false
	}
	return recent[0], true
}
