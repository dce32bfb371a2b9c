package engine

import (
	"condorledger/internal/models"
	"condorledger/pkg/utils"
)

// Aggregate классифицирует сделки и сворачивает их в статистику.
// Некорректные записи пропускаются и возвращаются вторым значением.
func Aggregate(trades []models.TradeRecord) (models.DashboardStats, []error) {
	classified, malformed := Classify(trades)
	return AggregateClassified(classified), malformed
}

// AggregateClassified считает статистику по уже классифицированному набору.
//
// total_pnl - сумма всех ненулевых pnl (null не учитывается).
// win_rate - доля закрытых сделок с pnl > 0 в процентах; 0 без закрытых сделок.
// avg_win / avg_loss - среднее pnl закрытых сделок с pnl > 0 / pnl < 0.
// Суммы не зависят от порядка входа.
func AggregateClassified(classified []models.TradeRecord) models.DashboardStats {
	stats := models.DashboardStats{TotalTrades: len(classified)}

	var all, wins, losses []float64
	for i := range classified {
		t := &classified[i]

		if t.Status.IsOpen() {
			stats.OpenTrades++
		} else {
			stats.ClosedTrades++
		}

		if t.PnL == nil || !utils.IsFinite(*t.PnL) {
			continue
		}
		all = append(all, *t.PnL)

		if t.Status.IsOpen() {
			continue
		}
		switch {
		case *t.PnL > 0:
			wins = append(wins, *t.PnL)
		case *t.PnL < 0:
			losses = append(losses, *t.PnL)
		}
	}

	stats.TotalPnL = utils.RoundTo(utils.SumStable(all), 2)
	stats.AvgWin = utils.RoundTo(utils.Mean(wins), 2)
	stats.AvgLoss = utils.RoundTo(utils.Mean(losses), 2)

	if stats.ClosedTrades > 0 {
		rate := float64(len(wins)) / float64(stats.ClosedTrades) * 100
		stats.WinRate = utils.Clamp(utils.RoundTo(rate, 2), 0, 100)
	}

	return stats
}

// ZeroStats - обнуленная статистика для деградированного ответа
func ZeroStats() models.DashboardStats {
	return models.DashboardStats{}
}
