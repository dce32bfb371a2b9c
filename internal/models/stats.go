package models

// DashboardStats представляет агрегированную статистику по журналу сделок одного символа
type DashboardStats struct {
	TotalTrades  int     `json:"total_trades"`
	OpenTrades   int     `json:"open_trades"`
	ClosedTrades int     `json:"closed_trades"`
	TotalPnL     float64 `json:"total_pnl"`
	WinRate      float64 `json:"win_rate"` // в процентах, 0..100, 2 знака
	AvgWin       float64 `json:"avg_win"`
	AvgLoss      float64 `json:"avg_loss"` // отрицательное число или 0
}
