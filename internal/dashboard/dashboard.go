// Package dashboard turns a monthly balance summary into what the page and
// the terminal client draw: summary text, a calendar grid and a cumulative
// balance chart.
package dashboard

import (
	"fmt"
	"strconv"
	"time"

	"github.com/avvvet/ticket-services/internal/models"
	"github.com/dustin/go-humanize"
)

type Sign string

const (
	SignPositive Sign = "positive"
	SignNegative Sign = "negative"
	SignZero     Sign = "zero"
)

func SignOf(v int64) Sign {
	switch {
	case v > 0:
		return SignPositive
	case v < 0:
		return SignNegative
	}
	return SignZero
}

// Color is the colour the page paints a balance of this sign.
func (s Sign) Color() string {
	switch s {
	case SignPositive:
		return "gold"
	case SignNegative:
		return "#ff4d4d"
	}
	return "white"
}

const (
	ClassWin  = "win"
	ClassLoss = "loss"

	ChartTitle = "累積収支"
)

type Summary struct {
	TotalBet    string `json:"total_bet"`
	TotalReturn string `json:"total_return"`
	Balance     string `json:"balance"`
	Sign        Sign   `json:"sign"`
	Color       string `json:"color"`
}

// DayCell is one day of the calendar grid. Label and Class are empty for
// days without activity.
type DayCell struct {
	Day    int    `json:"day"`
	Date   string `json:"date"`
	Active bool   `json:"active"`
	Label  string `json:"label,omitempty"`
	Class  string `json:"class,omitempty"`
}

type Chart struct {
	Title  string   `json:"title"`
	Labels []string `json:"labels"`
	Points []int64  `json:"points"`
}

type View struct {
	Year         int          `json:"year"`
	Month        int          `json:"month"`
	FirstWeekday time.Weekday `json:"first_weekday"`
	Summary      Summary      `json:"summary"`
	Calendar     []DayCell    `json:"calendar"`
	Chart        Chart        `json:"chart"`
}

// Render builds the view of summary for year/month.
func Render(summary *models.DashboardSummary, year, month int) *View {
	sign := SignOf(summary.Balance)
	return &View{
		Year:         year,
		Month:        month,
		FirstWeekday: time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).Weekday(),
		Summary: Summary{
			TotalBet:    humanize.Comma(summary.TotalBet),
			TotalReturn: humanize.Comma(summary.TotalReturn),
			Balance:     signed(humanize.Comma(summary.Balance), summary.Balance),
			Sign:        sign,
			Color:       sign.Color(),
		},
		Calendar: Calendar(summary.Details, year, month),
		Chart:    Cumulative(summary.Details),
	}
}

// Calendar returns one cell per day of the month. Days found in details get
// a balance label and a win/loss class.
func Calendar(details []models.BalanceDetail, year, month int) []DayCell {
	daily := make(map[string]int64, len(details))
	for _, d := range details {
		daily[d.Date] = d.Balance
	}

	n := DaysIn(year, month)
	cells := make([]DayCell, 0, n)
	for day := 1; day <= n; day++ {
		cell := DayCell{
			Day:  day,
			Date: fmt.Sprintf("%04d-%02d-%02d", year, month, day),
		}
		if balance, ok := daily[cell.Date]; ok {
			cell.Active = true
			cell.Label = signed(strconv.FormatInt(balance, 10), balance)
			switch SignOf(balance) {
			case SignPositive:
				cell.Class = ClassWin
			case SignNegative:
				cell.Class = ClassLoss
			}
		}
		cells = append(cells, cell)
	}
	return cells
}

// Cumulative accumulates details in the order given, one point per entry
// labelled MM-DD. Days without activity are not filled in.
func Cumulative(details []models.BalanceDetail) Chart {
	chart := Chart{
		Title:  ChartTitle,
		Labels: make([]string, 0, len(details)),
		Points: make([]int64, 0, len(details)),
	}
	var sum int64
	for _, d := range details {
		sum += d.Balance
		label := d.Date
		if len(label) > 5 {
			label = label[5:]
		}
		chart.Labels = append(chart.Labels, label)
		chart.Points = append(chart.Points, sum)
	}
	return chart
}

// Headline is the one-line text summary of a month.
func Headline(summary *models.DashboardSummary, year, month int) string {
	return fmt.Sprintf("%d年%d月の収支:\n購入: %d円\n払戻: %d円\n収支: %+d円",
		year, month, summary.TotalBet, summary.TotalReturn, summary.Balance)
}

func signed(s string, v int64) string {
	if v > 0 {
		return "+" + s
	}
	return s
}
