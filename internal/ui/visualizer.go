package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Partial cells, one eighth of a row each.
var blocks = []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// barRows draws frequency bins as width columns of height rows, top row first.
//
// Adjacent bins are averaged into a column, and a full-scale bin fills the column.
func barRows(bins []uint8, width, height int) []string {
	if width <= 0 || height <= 0 {
		return nil
	}

	levels := make([]int, width)
	if n := len(bins); n > 0 {
		for c := range width {
			lo := c * n / width
			hi := max((c+1)*n/width, lo+1)
			sum := 0
			for _, v := range bins[lo:min(hi, n)] {
				sum += int(v)
			}
			avg := sum / (min(hi, n) - lo)
			levels[c] = avg * height * 8 / 255
		}
	}

	rows := make([]string, height)
	var b strings.Builder
	for r := range height {
		b.Reset()
		floor := (height - 1 - r) * 8
		for _, lvl := range levels {
			cell := min(max(lvl-floor, 0), 8)
			b.WriteRune(blocks[cell])
		}
		rows[r] = b.String()
	}
	return rows
}

// renderBars colors [barRows] with the bar gradient.
func renderBars(bins []uint8, width, height int) string {
	rows := barRows(bins, width, height)
	for r, row := range rows {
		color := barColors[r*len(barColors)/len(rows)]
		rows[r] = NewStyle(color).Render(row)
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// decay fades the last frame toward silence once frames stop arriving.
func decay(bins []uint8) []uint8 {
	out := make([]uint8, len(bins))
	for i, v := range bins {
		out[i] = uint8(int(v) * 3 / 4)
	}
	return out
}

// formatClock renders seconds as m:ss.
func formatClock(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// progressBar returns the filled and empty parts of a seek bar of width cells.
func progressBar(position, duration float64, width int) (string, string) {
	if width <= 0 {
		return "", ""
	}
	filled := 0
	if duration > 0 {
		filled = int(position / duration * float64(width))
	}
	filled = min(max(filled, 0), width)
	return strings.Repeat("━", filled), strings.Repeat("─", width-filled)
}
