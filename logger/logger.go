package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

var (
	root *log.Logger
	once sync.Once
)

// Get retorna o logger global do processo.
func Get() *log.Logger {
	once.Do(func() {
		root = New(os.Stderr, "info")
	})
	return root
}

// New cria um logger que escreve em w no nível informado.
func New(w io.Writer, level string) *log.Logger {
	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "2006-01-02 15:04:05",
	})
	l.SetLevel(ParseLevel(level))
	return l
}

// SetLevel altera o nível do logger global.
func SetLevel(level string) {
	Get().SetLevel(ParseLevel(level))
}

// For retorna um logger filho prefixado com o nome do componente.
func For(component string) *log.Logger {
	return Get().WithPrefix(component)
}

// ParseLevel converte o nome do nível. Valores desconhecidos viram info.
func ParseLevel(level string) log.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// Discard retorna um logger que descarta tudo (usado nos testes).
func Discard() *log.Logger {
	return New(io.Discard, "error")
}
