package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ============================================================
// Prometheus метрики журнала сделок
// ============================================================
//
// Экспортируются через /metrics (promhttp).
// Метки symbol - канонические символы партиций (SPXW, RUT).

const namespace = "condorledger"

// ============ Метрики HTTP ============

// HTTPRequestDuration - время обработки запроса по шаблону маршрута
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route template",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	},
	[]string{"method", "route", "status"},
)

// ============ Счётчики событий ============

// AdminMutations - административные правки по результату
var AdminMutations = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "admin",
		Name:      "mutations_total",
		Help:      "Admin mutations by action and result",
	},
	[]string{"action", "result"}, // action: update_trade, delete_trade, update_level
)

// MalformedRecords - строки журнала без id или level, пропущенные классификатором
var MalformedRecords = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "malformed_records_total",
		Help:      "Ledger rows skipped during classification",
	},
	[]string{"symbol"},
)

// TradeAlertsIngested - сделки, принятые через webhook
var TradeAlertsIngested = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "trade_alerts_ingested_total",
		Help:      "Trade alerts received from the bot webhook",
	},
	[]string{"symbol", "result"},
)

// UpstreamFailures - ошибки хранилища по операции
var UpstreamFailures = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "upstream_failures_total",
		Help:      "Ledger store failures by operation",
	},
	[]string{"operation"},
)

// ============ Метрики состояния ============

// OpenTrades - количество живых сделок после классификации
var OpenTrades = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "open_trades",
		Help:      "Currently open trades per symbol",
	},
	[]string{"symbol"},
)

// WinRate - процент выигрышных закрытых сделок
var WinRate = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "win_rate_percent",
		Help:      "Win rate of closed trades per symbol",
	},
	[]string{"symbol"},
)

// TotalPnL - суммарный PnL по журналу
var TotalPnL = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "total_pnl_points",
		Help:      "Total realized PnL per symbol in index points",
	},
	[]string{"symbol"},
)

// WebSocketClients - подключенные клиенты /ws/stream
var WebSocketClients = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "websocket",
		Name:      "clients",
		Help:      "Connected websocket clients",
	},
)

// ============ Вспомогательные функции ============

// RecordAdminMutation записывает результат админской операции
func RecordAdminMutation(action string, err error) {
	AdminMutations.WithLabelValues(action, resultLabel(err)).Inc()
}

// RecordTradeAlert записывает результат приема сделки от бота
func RecordTradeAlert(symbol string, err error) {
	TradeAlertsIngested.WithLabelValues(symbol, resultLabel(err)).Inc()
}

// RecordMalformed увеличивает счетчик пропущенных строк
func RecordMalformed(symbol string, count int) {
	if count > 0 {
		MalformedRecords.WithLabelValues(symbol).Add(float64(count))
	}
}

// RecordUpstreamFailure записывает ошибку хранилища
func RecordUpstreamFailure(operation string) {
	UpstreamFailures.WithLabelValues(operation).Inc()
}

// UpdateLedgerGauges обновляет метрики состояния символа
func UpdateLedgerGauges(symbol string, openTrades int, winRate, totalPnL float64) {
	OpenTrades.WithLabelValues(symbol).Set(float64(openTrades))
	WinRate.WithLabelValues(symbol).Set(winRate)
	TotalPnL.WithLabelValues(symbol).Set(totalPnL)
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
