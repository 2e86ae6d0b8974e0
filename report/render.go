package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

const (
	headerColor = "1A237E"
	dateLayout  = "02.01.2006 15:04"

	minColWidth = 10
	maxColWidth = 50
)

// пастельные цвета строк по кругу
var rowColors = []string{"E3EEFF", "FFE6E3", "E3FFEB", "FFF0E3"}

type Row struct {
	ID        int64
	Values    []string
	CreatedAt time.Time
}

// Render строит книгу: Form No | поля формы | Tarih
func Render(formName string, fields []string, rows []Row) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetName(formName)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerColor}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, err
	}
	plain := make([]int, len(rowColors))
	centered := make([]int, len(rowColors))
	for i, c := range rowColors {
		fill := excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{c}}
		if plain[i], err = f.NewStyle(&excelize.Style{Fill: fill}); err != nil {
			return nil, err
		}
		if centered[i], err = f.NewStyle(&excelize.Style{Fill: fill, Alignment: &excelize.Alignment{Horizontal: "center"}}); err != nil {
			return nil, err
		}
	}

	headers := append(append([]string{"Form No"}, fields...), "Tarih")
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	lastCol := len(headers)

	w := &sheetWriter{f: f, sheet: sheet}
	for i, h := range headers {
		w.cell(i+1, 1, h, headerStyle)
	}

	for i, r := range rows {
		y := i + 2
		color := i % len(rowColors)

		w.cell(1, y, r.ID, centered[color])
		for j, v := range r.Values {
			if j >= len(fields) {
				break
			}
			w.cell(j+2, y, v, plain[color])
			widths[j+1] = max(widths[j+1], utf8.RuneCountInString(v))
		}

		date := r.CreatedAt.Format(dateLayout)
		w.cell(lastCol, y, date, centered[color])
		widths[lastCol-1] = max(widths[lastCol-1], len(date))
	}

	for i, width := range widths {
		w.colWidth(i+1, min(max(width+2, minColWidth), maxColWidth))
	}
	if w.err != nil {
		return nil, w.err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf, nil
}

// sheetWriter пишет ячейки листа и запоминает первую ошибку excelize;
// после неё остальные вызовы ничего не делают
type sheetWriter struct {
	f     *excelize.File
	sheet string
	err   error
}

func (w *sheetWriter) cell(col, row int, value any, style int) {
	if w.err != nil {
		return
	}
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		w.err = fmt.Errorf("cell %d:%d: %w", col, row, err)
		return
	}
	if err := w.f.SetCellValue(w.sheet, name, value); err != nil {
		w.err = fmt.Errorf("set %s: %w", name, err)
		return
	}
	if err := w.f.SetCellStyle(w.sheet, name, name, style); err != nil {
		w.err = fmt.Errorf("style %s: %w", name, err)
	}
}

func (w *sheetWriter) colWidth(col, width int) {
	if w.err != nil {
		return
	}
	name, err := excelize.ColumnNumberToName(col)
	if err != nil {
		w.err = fmt.Errorf("column %d: %w", col, err)
		return
	}
	if err := w.f.SetColWidth(w.sheet, name, name, float64(width)); err != nil {
		w.err = fmt.Errorf("width %s: %w", name, err)
	}
}

func sheetName(formName string) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '_'
		}
		return r
	}, formName)
	if name == "" {
		return "rapor"
	}
	if utf8.RuneCountInString(name) > 31 {
		name = string([]rune(name)[:31])
	}
	return name
}
