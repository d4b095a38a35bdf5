package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme is the palette of the terminal dashboard, in ANSI 256-color codes.
type Theme struct {
	Win    lipgloss.Color
	Loss   lipgloss.Color
	Even   lipgloss.Color
	Faint  lipgloss.Color
	Header lipgloss.Color
}

var DefaultTheme = Theme{
	Win:    lipgloss.Color("220"),
	Loss:   lipgloss.Color("203"),
	Even:   lipgloss.Color("255"),
	Faint:  lipgloss.Color("244"),
	Header: lipgloss.Color("39"),
}

func (theme Theme) signColor(s Sign) lipgloss.Color {
	switch s {
	case SignPositive:
		return theme.Win
	case SignNegative:
		return theme.Loss
	}
	return theme.Even
}

const (
	cellWidth = 7
	barWidth  = 24
)

var weekdays = [7]string{"日", "月", "火", "水", "木", "金", "土"}

// RenderTerminal draws a view as styled text for a terminal.
func RenderTerminal(v *View, theme Theme) string {
	sections := []string{
		renderSummary(v, theme),
		renderCalendar(v, theme),
		renderChart(v, theme),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func renderSummary(v *View, theme Theme) string {
	header := lipgloss.NewStyle().Bold(true).Foreground(theme.Header).
		Render(fmt.Sprintf("%d年%d月", v.Year, v.Month))
	label := lipgloss.NewStyle().Foreground(theme.Faint).Width(6)
	value := lipgloss.NewStyle().Width(12).Align(lipgloss.Right)
	balance := value.Foreground(theme.signColor(v.Summary.Sign)).Bold(true)

	lines := []string{
		header,
		label.Render("購入") + value.Render(v.Summary.TotalBet),
		label.Render("払戻") + value.Render(v.Summary.TotalReturn),
		label.Render("収支") + balance.Render(v.Summary.Balance),
		"",
	}
	return strings.Join(lines, "\n")
}

func renderCalendar(v *View, theme Theme) string {
	cell := lipgloss.NewStyle().Width(cellWidth).Align(lipgloss.Right)
	faint := cell.Foreground(theme.Faint)

	var header strings.Builder
	for _, d := range weekdays {
		header.WriteString(faint.Render(d))
	}
	lines := []string{header.String()}

	var days, labels strings.Builder
	col := int(v.FirstWeekday)
	for i := 0; i < col; i++ {
		days.WriteString(cell.Render(""))
		labels.WriteString(cell.Render(""))
	}
	for _, c := range v.Calendar {
		days.WriteString(cell.Render(fmt.Sprint(c.Day)))
		labels.WriteString(cell.Foreground(theme.classColor(c.Class)).Render(c.Label))
		col++
		if col == 7 {
			lines = append(lines, days.String(), labels.String())
			days.Reset()
			labels.Reset()
			col = 0
		}
	}
	if col > 0 {
		lines = append(lines, days.String(), labels.String())
	}
	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func (theme Theme) classColor(class string) lipgloss.Color {
	switch class {
	case ClassWin:
		return theme.Win
	case ClassLoss:
		return theme.Loss
	}
	return theme.Even
}

// renderChart draws one bar per chart point, scaled to the largest
// absolute running balance.
func renderChart(v *View, theme Theme) string {
	title := lipgloss.NewStyle().Bold(true).Render(v.Chart.Title)
	if len(v.Chart.Points) == 0 {
		return title + "\n" + lipgloss.NewStyle().Foreground(theme.Faint).Render("-")
	}

	var peak int64
	for _, p := range v.Chart.Points {
		if p < 0 {
			p = -p
		}
		if p > peak {
			peak = p
		}
	}

	label := lipgloss.NewStyle().Foreground(theme.Faint).Width(7)
	lines := []string{title}
	for i, p := range v.Chart.Points {
		n := 0
		if peak > 0 {
			abs := p
			if abs < 0 {
				abs = -abs
			}
			n = int(abs * barWidth / peak)
		}
		bar := lipgloss.NewStyle().Foreground(theme.signColor(SignOf(p))).
			Render(strings.Repeat("█", n))
		pad := strings.Repeat(" ", barWidth-n+1)
		lines = append(lines, label.Render(v.Chart.Labels[i])+bar+pad+signed(fmt.Sprint(p), p))
	}
	return strings.Join(lines, "\n")
}
