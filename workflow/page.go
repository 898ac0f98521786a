package workflow

import (
	"context"
	"time"
)

// Page é a aba do navegador controlada por uma execução.
type Page interface {
	// Navigate abre a URL e espera a página terminar de carregar.
	Navigate(url string) error
	WaitLoaded() error
	Fill(selector, value string) error
	Click(selector string) error
	// WaitVisible espera o elemento ficar visível. Retorna false, sem erro,
	// quando o tempo acaba.
	WaitVisible(selector string, timeout time.Duration) (bool, error)
	// WaitGone espera o elemento sair do DOM, no máximo timeout.
	WaitGone(selector string, timeout time.Duration) error
	Screenshot() ([]byte, error)
	Close() error
}

// Launcher abre um navegador novo com uma aba pronta para uso.
type Launcher func(ctx context.Context, headless bool) (Page, error)
