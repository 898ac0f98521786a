package file_handler

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"BixpeClockBot/workflow"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestGenerateRunsSheet(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	runs := []workflow.Run{
		{
			ID:         uuid.New(),
			Action:     workflow.ActionStart,
			Trigger:    workflow.TriggerSchedule,
			StartedAt:  start,
			FinishedAt: start.Add(20 * time.Second),
			Outcome:    workflow.OutcomeSuccess,
			Detail:     "botão START clicado",
		},
		{
			ID:         uuid.New(),
			Action:     workflow.ActionStop,
			Trigger:    workflow.TriggerManual,
			StartedAt:  start.Add(9 * time.Hour),
			FinishedAt: start.Add(9*time.Hour + 5*time.Second),
			Outcome:    workflow.OutcomeFailed,
			Detail:     "navegando: net::ERR_NAME_NOT_RESOLVED",
			Err:        errors.New("net::ERR_NAME_NOT_RESOLVED"),
		},
	}

	path, err := GenerateRunsSheet(runs, dir, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.FileExists(t, path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{sheetName}, f.GetSheetList())

	title, err := f.GetCellValue(sheetName, "A1")
	require.NoError(t, err)
	assert.Equal(t, "HISTÓRICO DE EXECUÇÕES DO PONTO", title)

	header, err := f.GetCellValue(sheetName, "C4")
	require.NoError(t, err)
	assert.Equal(t, "Ação", header)

	cell := func(axis string) string {
		v, err := f.GetCellValue(sheetName, axis)
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, "2026-03-02 09:00:00", cell("A5"))
	assert.Equal(t, "START", cell("C5"))
	assert.Equal(t, "schedule", cell("D5"))
	assert.Equal(t, "Sucesso", cell("E5"))
	assert.Equal(t, "20", cell("F5"))

	assert.Equal(t, "STOP", cell("C6"))
	assert.Equal(t, "Falha", cell("E6"))
	assert.Equal(t, "navegando: net::ERR_NAME_NOT_RESOLVED", cell("G6"))
	assert.Empty(t, cell("A7"))
}

func TestGenerateRunsSheetEmpty(t *testing.T) {
	dir := t.TempDir()

	path, err := GenerateRunsSheet(nil, dir, nil)
	require.NoError(t, err)

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestGenerateRunsSheetBadDir(t *testing.T) {
	_, err := GenerateRunsSheet(nil, filepath.Join(t.TempDir(), "nao", "existe"), time.UTC)
	assert.Error(t, err)
}
