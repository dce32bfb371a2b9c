package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"condorledger/internal/service"
)

// LedgerHandler обрабатывает чтение журнала сделок.
//
// Endpoints:
// - GET /api/v1/trades/{symbol}?limit=50&status=open
// - GET /api/v1/trades/{symbol}/{id}
// - GET /api/v1/stats/{symbol}
// - GET /api/v1/config/{symbol}
// - GET /api/v1/config
// - GET /api/v1/dashboard/{symbol}?limit=10
//
// {symbol} принимает SPXW, SPX или RUT в любом регистре.
type LedgerHandler struct {
	ledger service.LedgerServiceInterface
}

// NewLedgerHandler создает новый LedgerHandler с внедрением зависимостей.
func NewLedgerHandler(ledger service.LedgerServiceInterface) *LedgerHandler {
	return &LedgerHandler{ledger: ledger}
}

// GetTrades возвращает последние сделки с вычисленным статусом.
//
// GET /api/v1/trades/{symbol}
//
// Query Parameters:
// - limit: размер страницы (по умолчанию 50)
// - status: open или closed
//
// Response 200 OK: массив сделок, каждая с полем resolution:
//
//	[{"id": "a1", "level": "L1", "status": "open", ..., "resolution": {"pnl": 0, "outcome": "open", "pnl_source": "none"}}]
func (h *LedgerHandler) GetTrades(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	trades, err := h.ledger.GetTrades(r.Context(), mux.Vars(r)["symbol"], limit, r.URL.Query().Get("status"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if trades == nil {
		trades = []service.TradeView{}
	}

	respondWithJSON(w, http.StatusOK, trades)
}

// GetTrade возвращает одну сделку; статус вычислен по всему журналу символа.
//
// GET /api/v1/trades/{symbol}/{id}
//
// Response:
// - 200 OK: сделка с полем resolution
// - 404 Not Found: сделки нет
func (h *LedgerHandler) GetTrade(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	trade, err := h.ledger.GetTrade(r.Context(), vars["symbol"], vars["id"])
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, trade)
}

// GetStats возвращает статистику по всему журналу символа.
//
// GET /api/v1/stats/{symbol}
//
// Response 200 OK:
//
//	{"total_trades": 12, "open_trades": 2, "closed_trades": 10, "total_pnl": 7.5,
//	 "win_rate": 80, "avg_win": 1.9, "avg_loss": -3.85}
func (h *LedgerHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.ledger.GetStats(r.Context(), mux.Vars(r)["symbol"])
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, stats)
}

// GetConfig возвращает конфигурацию бота.
// GET /api/v1/config/{symbol}
func (h *LedgerHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.ledger.GetConfig(r.Context(), mux.Vars(r)["symbol"])
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, cfg)
}

// GetAllConfigs возвращает конфигурации всех символов.
// GET /api/v1/config
func (h *LedgerHandler) GetAllConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := h.ledger.GetAllConfigs(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, configs)
}

// GetDashboard возвращает сводку для панели.
//
// GET /api/v1/dashboard/{symbol}
//
// При недоступном хранилище отвечает 200 с обнуленной статистикой,
// current_level = "N/A" и "degraded": true.
func (h *LedgerHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	dash, err := h.ledger.GetDashboard(r.Context(), mux.Vars(r)["symbol"], limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, dash)
}

// parseLimit читает ?limit; отсутствие параметра - 0 (значение по умолчанию сервиса)
func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		respondWithError(w, http.StatusBadRequest, "invalid_limit", "Invalid limit", "limit must be a non-negative integer")
		return 0, false
	}
	return limit, true
}
