package cli

import (
	"bufio"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

const tableGap = 2

// writeTable renders rows as aligned columns. Column widths follow the
// widest cell, measured in display cells so wide runes line up.
func writeTable(out io.Writer, headers []string, rows [][]string) error {
	cols := len(headers)
	for _, row := range rows {
		if len(row) > cols {
			cols = len(row)
		}
	}
	if cols == 0 {
		return nil
	}

	widths := make([]int, cols)
	measure := func(row []string) {
		for i, cell := range row {
			if i >= cols {
				return
			}
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	measure(headers)
	for _, row := range rows {
		measure(row)
	}

	w := bufio.NewWriter(out)
	emit := func(row []string) {
		for i := 0; i < cols; i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			w.WriteString(cell)
			if i < cols-1 {
				pad := widths[i] - runewidth.StringWidth(cell)
				w.WriteString(strings.Repeat(" ", pad+tableGap))
			}
		}
		w.WriteString("\n")
	}

	emit(headers)
	for _, row := range rows {
		emit(row)
	}
	return w.Flush()
}
