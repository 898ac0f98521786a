package file_handler

import (
	"fmt"
	"path/filepath"
	"time"

	"BixpeClockBot/workflow"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Execuções"

var outcomeText = map[workflow.Outcome]string{
	workflow.OutcomeSuccess: "Sucesso",
	workflow.OutcomeWarning: "Aviso",
	workflow.OutcomeFailed:  "Falha",
}

// GenerateRunsSheet cria uma planilha com o histórico de execuções em dir e
// retorna o caminho do arquivo. Quem chama deve apagar o arquivo depois de usar.
func GenerateRunsSheet(runs []workflow.Run, dir string, loc *time.Location) (string, error) {
	if loc == nil {
		loc = time.Local
	}
	now := time.Now().In(loc)
	fileName := filepath.Join(dir, fmt.Sprintf("execucoes_%s.xlsx", now.Format("2006-01-02_15-04-05")))

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	border := func(color string) []excelize.Border {
		return []excelize.Border{
			{Type: "left", Color: color, Style: 1},
			{Type: "right", Color: color, Style: 1},
			{Type: "top", Color: color, Style: 1},
			{Type: "bottom", Color: color, Style: 1},
		}
	}

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 16, Color: "333333", Family: "Calibri"},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return "", err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12, Color: "FFFFFF", Family: "Calibri"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4CAF50"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border("000000"),
	})
	if err != nil {
		return "", err
	}

	rowStyle := func(fill string) (int, error) {
		s := &excelize.Style{
			Font:      &excelize.Font{Size: 11, Family: "Calibri"},
			Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
			Border:    border("CCCCCC"),
		}
		if fill != "" {
			s.Fill = excelize.Fill{Type: "pattern", Color: []string{fill}, Pattern: 1}
		}
		return f.NewStyle(s)
	}
	dataStyle, err := rowStyle("")
	if err != nil {
		return "", err
	}
	alternateStyle, err := rowStyle("F2F2F2")
	if err != nil {
		return "", err
	}

	// Título
	f.SetCellValue(sheetName, "A1", "HISTÓRICO DE EXECUÇÕES DO PONTO")
	f.SetCellStyle(sheetName, "A1", "G1", titleStyle)
	f.MergeCell(sheetName, "A1", "G1")
	f.SetRowHeight(sheetName, 1, 30)

	f.SetCellValue(sheetName, "A2", fmt.Sprintf("Gerado em: %s (%s)", now.Format("02/01/2006 às 15:04:05"), loc.String()))
	f.MergeCell(sheetName, "A2", "G2")

	// Cabeçalho
	headers := []string{"Início", "Fim", "Ação", "Origem", "Resultado", "Duração (s)", "Detalhe"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 4)
		f.SetCellValue(sheetName, cell, h)
	}
	f.SetCellStyle(sheetName, "A4", "G4", headerStyle)
	f.SetRowHeight(sheetName, 4, 25)

	// Dados
	line := 5
	for i, run := range runs {
		style := dataStyle
		if i%2 == 1 {
			style = alternateStyle
		}

		values := []interface{}{
			run.StartedAt.In(loc).Format("2006-01-02 15:04:05"),
			run.FinishedAt.In(loc).Format("2006-01-02 15:04:05"),
			run.Action.Label(),
			string(run.Trigger),
			outcomeText[run.Outcome],
			run.Duration().Seconds(),
			run.Detail,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, line)
			f.SetCellValue(sheetName, cell, v)
		}
		f.SetCellStyle(sheetName, fmt.Sprintf("A%d", line), fmt.Sprintf("G%d", line), style)
		line++
	}

	f.SetColWidth(sheetName, "A", "B", 22)
	f.SetColWidth(sheetName, "C", "F", 14)
	f.SetColWidth(sheetName, "G", "G", 60)

	// Congela o cabeçalho
	f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      4,
		TopLeftCell: "A5",
		ActivePane:  "bottomLeft",
	})

	if err := f.SaveAs(fileName); err != nil {
		return "", err
	}

	return fileName, nil
}
