package workflow

import (
	"fmt"
	"strings"
)

// Action é o botão que a execução aperta no portal.
type Action string

const (
	ActionStart Action = "start"
	ActionStop  Action = "stop"
)

const (
	UsernameSelector = "input#Username"
	PasswordSelector = "input#Password"
	ConfirmSelector  = "button.swal2-confirm.swal2-styled"
)

func ParseAction(s string) (Action, error) {
	switch Action(strings.ToLower(strings.TrimSpace(s))) {
	case ActionStart:
		return ActionStart, nil
	case ActionStop:
		return ActionStop, nil
	}
	return "", fmt.Errorf("ação inválida %q, use start ou stop", s)
}

// Selector do botão de jornada no painel.
func (a Action) Selector() string {
	if a == ActionStop {
		return "button#btn-stop-workday"
	}
	return "button#btn-start-workday"
}

func (a Action) Label() string {
	if a == ActionStop {
		return "STOP"
	}
	return "START"
}

func (a Action) Icon() string {
	if a == ActionStop {
		return "⏹️"
	}
	return "▶️"
}

// Title é o nome da tarefa usado nas legendas e nos logs.
func (a Action) Title() string {
	if a == ActionStop {
		return "TAREFA DA TARDE"
	}
	return "TAREFA DA MANHÃ"
}
