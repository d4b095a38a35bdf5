package dashboard

import (
	"reflect"
	"testing"
	"time"

	"github.com/avvvet/ticket-services/internal/models"
)

func TestCalendar_MonthLengths(t *testing.T) {
	cases := []struct {
		year, month, want int
	}{
		{2024, 2, 29},
		{2023, 2, 28},
		{2100, 2, 28},
		{2000, 2, 29},
		{2024, 4, 30},
		{2024, 12, 31},
	}
	for _, tc := range cases {
		cells := Calendar(nil, tc.year, tc.month)
		if len(cells) != tc.want {
			t.Errorf("%d-%02d: %d cells, want %d", tc.year, tc.month, len(cells), tc.want)
		}
		if cells[len(cells)-1].Day != tc.want {
			t.Errorf("%d-%02d: last day %d", tc.year, tc.month, cells[len(cells)-1].Day)
		}
	}
}

func TestCalendar_ActiveDaysOnly(t *testing.T) {
	details := []models.BalanceDetail{
		{Date: "2024-05-01", Balance: 100},
		{Date: "2024-05-03", Balance: -50},
		{Date: "2024-05-04", Balance: 0},
	}
	cells := Calendar(details, 2024, 5)

	want := map[int]DayCell{
		1: {Day: 1, Date: "2024-05-01", Active: true, Label: "+100", Class: ClassWin},
		2: {Day: 2, Date: "2024-05-02"},
		3: {Day: 3, Date: "2024-05-03", Active: true, Label: "-50", Class: ClassLoss},
		4: {Day: 4, Date: "2024-05-04", Active: true, Label: "0"},
	}
	for day, w := range want {
		if cells[day-1] != w {
			t.Errorf("day %d = %+v, want %+v", day, cells[day-1], w)
		}
	}
}

func TestCumulative_RunningSumInReceivedOrder(t *testing.T) {
	details := []models.BalanceDetail{
		{Date: "2024-05-01", Balance: 100},
		{Date: "2024-05-03", Balance: -50},
	}
	chart := Cumulative(details)

	if !reflect.DeepEqual(chart.Points, []int64{100, 50}) {
		t.Errorf("points = %v, want [100 50]", chart.Points)
	}
	if !reflect.DeepEqual(chart.Labels, []string{"05-01", "05-03"}) {
		t.Errorf("labels = %v, want [05-01 05-03]", chart.Labels)
	}
}

func TestCumulative_NotResorted(t *testing.T) {
	details := []models.BalanceDetail{
		{Date: "2024-05-09", Balance: 10},
		{Date: "2024-05-02", Balance: 5},
	}
	chart := Cumulative(details)
	if !reflect.DeepEqual(chart.Labels, []string{"05-09", "05-02"}) || !reflect.DeepEqual(chart.Points, []int64{10, 15}) {
		t.Errorf("chart = %+v", chart)
	}
}

func TestRender_NegativeBalance(t *testing.T) {
	v := Render(&models.DashboardSummary{TotalBet: 1000, TotalReturn: 800, Balance: -200}, 2024, 5)

	if v.Summary.Balance != "-200" {
		t.Errorf("balance = %q, want -200", v.Summary.Balance)
	}
	if v.Summary.Sign != SignNegative || v.Summary.Color != "#ff4d4d" {
		t.Errorf("sign = %s color = %s", v.Summary.Sign, v.Summary.Color)
	}
	if v.Summary.TotalBet != "1,000" || v.Summary.TotalReturn != "800" {
		t.Errorf("totals = %q %q", v.Summary.TotalBet, v.Summary.TotalReturn)
	}
	if len(v.Chart.Points) != 0 || v.Chart.Points == nil {
		t.Errorf("chart points = %#v, want empty non-nil", v.Chart.Points)
	}
}

func TestRender_PositiveAndZero(t *testing.T) {
	v := Render(&models.DashboardSummary{Balance: 12000}, 2024, 5)
	if v.Summary.Balance != "+12,000" || v.Summary.Color != "gold" {
		t.Errorf("positive = %+v", v.Summary)
	}
	v = Render(&models.DashboardSummary{}, 2024, 5)
	if v.Summary.Balance != "0" || v.Summary.Sign != SignZero || v.Summary.Color != "white" {
		t.Errorf("zero = %+v", v.Summary)
	}
}

func TestRender_FirstWeekday(t *testing.T) {
	v := Render(&models.DashboardSummary{}, 2024, 5)
	if v.FirstWeekday != time.Wednesday {
		t.Errorf("first weekday = %v, want Wednesday", v.FirstWeekday)
	}
}

func TestHeadline(t *testing.T) {
	got := Headline(&models.DashboardSummary{TotalBet: 1000, TotalReturn: 800, Balance: -200}, 2024, 5)
	want := "2024年5月の収支:\n購入: 1000円\n払戻: 800円\n収支: -200円"
	if got != want {
		t.Errorf("headline = %q, want %q", got, want)
	}
}

func TestParseMonth(t *testing.T) {
	y, m, err := ParseMonth("2024-02")
	if err != nil || y != 2024 || m != 2 {
		t.Errorf("ParseMonth = %d %d %v", y, m, err)
	}
	if _, _, err := ParseMonth("2024/02"); err == nil {
		t.Error("expected error for 2024/02")
	}
	if err := ValidMonth(2024, 13); err == nil {
		t.Error("expected month 13 to be invalid")
	}
}
