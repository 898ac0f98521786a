package schedule

import (
	"time"

	"BixpeClockBot/workflow"
)

// Job é um disparo diário em horário fixo.
type Job struct {
	ID     string
	Name   string
	At     string // HH:MM no fuso do Manager
	Action workflow.Action
	Grace  time.Duration
}

func (j Job) CronSpec() (string, error) {
	return CronSpec(j.At)
}

// DefaultJobs retorna os dois disparos do dia: início e fim da jornada.
func DefaultJobs(startAt, stopAt string, grace time.Duration) []Job {
	return []Job{
		{ID: "morning-start", Name: "Início da jornada", At: startAt, Action: workflow.ActionStart, Grace: grace},
		{ID: "evening-stop", Name: "Fim da jornada", At: stopAt, Action: workflow.ActionStop, Grace: grace},
	}
}
