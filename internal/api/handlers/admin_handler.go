package handlers

import (
	"net/http"
	"strings"

	"condorledger/internal/service"
)

// AdminHandler обрабатывает административные правки.
// Доступ ограничивает middleware.AdminAuth.
type AdminHandler struct {
	admin service.AdminServiceInterface
}

// NewAdminHandler создает новый AdminHandler
func NewAdminHandler(admin service.AdminServiceInterface) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// UpdateTradeRequest - тело POST /api/v1/admin/update-trade
type UpdateTradeRequest struct {
	ID      string                 `json:"id"`
	Symbol  string                 `json:"symbol"`
	Updates map[string]interface{} `json:"updates"`
}

// DeleteTradeRequest - тело POST /api/v1/admin/delete-trade
type DeleteTradeRequest struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
}

// UpdateLevelRequest - тело POST /api/v1/admin/update-level
type UpdateLevelRequest struct {
	Symbol string `json:"symbol"`
	Level  string `json:"level"`
}

// UpdateTrade применяет частичную правку сделки.
//
// POST /api/v1/admin/update-trade
//
// Request Body:
//
//	{"id": "a1", "symbol": "SPXW", "updates": {"settlement_price": 5042.5, "pnl": 2}}
//
// Неизвестные ключи в updates отбрасываются.
// В ответе статус и resolution вычислены по журналу, как при следующем чтении:
// записанный "status": "closed" не закрывает единственную сделку уровня.
//
// Response:
// - 200 OK: {"success": true, "data": <сделка с resolution>}
// - 400 Bad Request: нет id, symbol или updates; неверное значение
// - 404 Not Found: сделки нет
// - 422 Unprocessable Entity: ни одного разрешенного поля
func (h *AdminHandler) UpdateTrade(w http.ResponseWriter, r *http.Request) {
	var req UpdateTradeRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON body", err.Error())
		return
	}
	if blank(req.ID) || blank(req.Symbol) || req.Updates == nil {
		respondWithError(w, http.StatusBadRequest, "missing_fields", "Missing required fields", "id, symbol and updates are required")
		return
	}

	trade, err := h.admin.ApplyTradeEdit(r.Context(), req.ID, req.Symbol, req.Updates)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, SuccessResponse{Success: true, Data: trade})
}

// DeleteTrade удаляет сделку.
//
// POST /api/v1/admin/delete-trade
//
// Request Body: {"id": "a1", "symbol": "RUT"}
func (h *AdminHandler) DeleteTrade(w http.ResponseWriter, r *http.Request) {
	var req DeleteTradeRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON body", err.Error())
		return
	}
	if blank(req.ID) || blank(req.Symbol) {
		respondWithError(w, http.StatusBadRequest, "missing_fields", "Missing required fields", "id and symbol are required")
		return
	}

	if err := h.admin.DeleteTrade(r.Context(), req.ID, req.Symbol); err != nil {
		handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, SuccessResponse{Success: true, Message: "Trade deleted"})
}

// UpdateLevel меняет текущий уровень бота.
//
// POST /api/v1/admin/update-level
//
// Request Body: {"symbol": "SPXW", "level": "L3"}
func (h *AdminHandler) UpdateLevel(w http.ResponseWriter, r *http.Request) {
	var req UpdateLevelRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON body", err.Error())
		return
	}
	if blank(req.Symbol) || blank(req.Level) {
		respondWithError(w, http.StatusBadRequest, "missing_fields", "Missing required fields", "symbol and level are required")
		return
	}

	cfg, err := h.admin.ApplyConfigEdit(r.Context(), req.Symbol, req.Level)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, SuccessResponse{Success: true, Data: cfg})
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
