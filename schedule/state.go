package schedule

import (
	"sync"
	"time"
)

// RunState é a chave que libera ou bloqueia os disparos agendados.
// Começa em execução e não é persistida.
type RunState struct {
	mu      sync.RWMutex
	running bool
	since   time.Time
	now     func() time.Time
}

func NewRunState() *RunState {
	s := &RunState{running: true, now: time.Now}
	s.since = s.now()
	return s
}

func (s *RunState) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Since retorna o momento da última troca de estado.
func (s *RunState) Since() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.since
}

// Pause retorna false quando já estava pausado.
func (s *RunState) Pause() bool {
	return s.set(false)
}

// Resume retorna false quando já estava rodando.
func (s *RunState) Resume() bool {
	return s.set(true)
}

func (s *RunState) set(running bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running == running {
		return false
	}
	s.running = running
	s.since = s.now()
	return true
}

func (s *RunState) String() string {
	if s.Running() {
		return "RUNNING"
	}
	return "PAUSED"
}
