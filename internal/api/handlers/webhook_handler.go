package handlers

import (
	"net/http"

	"condorledger/internal/service"
	"condorledger/pkg/crypto"
	"condorledger/pkg/utils"
)

// WebhookSecretHeader - заголовок с общим секретом бота
const WebhookSecretHeader = "X-Webhook-Secret"

// WebhookHandler принимает сделки от торгового бота
type WebhookHandler struct {
	ledger service.LedgerServiceInterface
	secret string
}

// NewWebhookHandler создает обработчик; пустой secret отклоняет все запросы
func NewWebhookHandler(ledger service.LedgerServiceInterface, secret string) *WebhookHandler {
	return &WebhookHandler{ledger: ledger, secret: secret}
}

// TradeAlert записывает новую сделку.
//
// POST /api/v1/webhook/trade-alert
//
// Headers: X-Webhook-Secret
//
// Response:
// - 201 Created: {"success": true, "data": <сделка>}
// - 401 Unauthorized: неверный или ненастроенный секрет
// - 400 Bad Request: неверные поля сделки
func (h *WebhookHandler) TradeAlert(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r.Header.Get(WebhookSecretHeader)) {
		utils.Warn("webhook rejected", utils.RemoteAddr(r.RemoteAddr), utils.Reason("bad secret"))
		respondWithError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized", "")
		return
	}

	var req service.TradeAlertRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON body", err.Error())
		return
	}

	trade, err := h.ledger.RecordTradeAlert(r.Context(), &req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, SuccessResponse{Success: true, Data: trade})
}

// Status - проверка доступности endpoint для интеграций.
// GET /api/v1/webhook/trade-alert
func (h *WebhookHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Trade Alert Webhook Endpoint",
		"status":  "active",
	})
}

func (h *WebhookHandler) authorized(got string) bool {
	return got != "" && crypto.SecretsEqual(got, h.secret)
}
