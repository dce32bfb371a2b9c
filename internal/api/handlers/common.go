package handlers

import (
	"errors"
	"io"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"condorledger/internal/engine"
	"condorledger/pkg/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxBodyBytes - предел тела запроса для POST endpoints
const maxBodyBytes = 1 << 20

// ErrorResponse стандартный формат ответа об ошибке для всех API endpoints
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// SuccessResponse стандартный формат ответа на изменяющие запросы
type SuccessResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// respondWithJSON отправляет JSON ответ
func respondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			utils.Warn("encode response", utils.Err(err))
		}
	}
}

// respondWithError отправляет JSON ответ с ошибкой
func respondWithError(w http.ResponseWriter, statusCode int, code, message, details string) {
	respondWithJSON(w, statusCode, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}

// handleServiceError переводит вид ошибки сервиса в HTTP статус
func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrValidation):
		respondWithError(w, http.StatusBadRequest, "validation_error", "Invalid request", err.Error())

	case errors.Is(err, engine.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "not_found", "Record not found", err.Error())

	case errors.Is(err, engine.ErrNoOp):
		respondWithError(w, http.StatusUnprocessableEntity, "no_op", "No editable fields in update", "")

	case errors.Is(err, engine.ErrUpstreamFailure):
		utils.Error("ledger store failure", utils.Err(err))
		respondWithError(w, http.StatusBadGateway, "upstream_failure", "Ledger store unavailable", "")

	default:
		utils.Error("unhandled service error", utils.Err(err))
		respondWithError(w, http.StatusInternalServerError, "internal_error", "Internal server error", "")
	}
}

// decodeBody читает JSON тело; числа остаются json.Number для точного приведения
func decodeBody(r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.UseNumber()
	return decoder.Decode(dst)
}
