package schedule

import (
	"fmt"
	"time"

	"BixpeClockBot/workflow"

	"github.com/robfig/cron/v3"
)

// ValidateTime confere o formato HH:MM.
func ValidateTime(at string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", at)
	if err != nil {
		return 0, 0, fmt.Errorf("horário inválido %q, use HH:MM", at)
	}
	return t.Hour(), t.Minute(), nil
}

// CronSpec converte HH:MM em uma expressão CRON diária de 5 campos.
func CronSpec(at string) (string, error) {
	hour, minute, err := ValidateTime(at)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}

// Misfired indica se o último horário previsto por spec ficou mais de grace
// para trás de now. grace zero desliga a verificação.
func Misfired(spec string, now time.Time, grace time.Duration) (bool, error) {
	if grace <= 0 {
		return false, nil
	}
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return false, fmt.Errorf("expressão CRON inválida %q: %w", spec, err)
	}
	return sched.Next(now.Add(-grace)).After(now), nil
}

// NextFire retorna o próximo disparo de spec depois de now, no fuso de now.
func NextFire(spec string, now time.Time) (time.Time, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return time.Time{}, fmt.Errorf("expressão CRON inválida %q: %w", spec, err)
	}
	return sched.Next(now), nil
}

// ClosestAction escolhe a ação cujo horário diário está mais perto de now.
// Empate fica com a ação de fim de jornada.
func ClosestAction(now time.Time, startAt, stopAt string) (workflow.Action, error) {
	sh, sm, err := ValidateTime(startAt)
	if err != nil {
		return "", err
	}
	eh, em, err := ValidateTime(stopAt)
	if err != nil {
		return "", err
	}

	current := now.Hour()*60 + now.Minute()
	toStart := abs(current - (sh*60 + sm))
	toStop := abs(current - (eh*60 + em))

	if toStart < toStop {
		return workflow.ActionStart, nil
	}
	return workflow.ActionStop, nil
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
