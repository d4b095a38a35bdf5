package models

// BalanceDetail is the net balance of one day with recorded activity.
type BalanceDetail struct {
	Date    string `json:"date"` // YYYY-MM-DD
	Balance int64  `json:"balance"`
}

// DashboardSummary is the monthly summary served by the balance endpoint.
type DashboardSummary struct {
	TotalBet    int64           `json:"total_bet"`
	TotalReturn int64           `json:"total_return"`
	Balance     int64           `json:"balance"`
	Details     []BalanceDetail `json:"details"`
}
