package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/iudanet/pongdash/pkg/api"
)

// WriteJSON отправляет JSON ответ
func WriteJSON(w http.ResponseWriter, data any, statusCode int) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError отправляет ошибку в формате {message, code}
func WriteError(w http.ResponseWriter, message, code string, statusCode int) error {
	return WriteJSON(w, api.ErrorResponse{Message: message, Code: code}, statusCode)
}

// responder общие методы ответа для всех handlers
type responder struct {
	logger *slog.Logger
}

// sendJSON отправляет JSON ответ
func (h responder) sendJSON(w http.ResponseWriter, data any, statusCode int) {
	if err := WriteJSON(w, data, statusCode); err != nil {
		h.logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

// sendError отправляет JSON ответ с ошибкой
func (h responder) sendError(w http.ResponseWriter, message, code string, statusCode int) {
	if err := WriteError(w, message, code, statusCode); err != nil {
		h.logger.Error("failed to encode error response", slog.Any("error", err))
	}
}

// internalError логирует err и отвечает 500
func (h responder) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.ErrorContext(r.Context(), msg, slog.Any("error", err))
	h.sendError(w, "internal server error", api.CodeInternal, http.StatusInternalServerError)
}

// decode разбирает JSON тело запроса; при ошибке отвечает 400
func (h responder) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.logger.WarnContext(r.Context(), "failed to decode request body", slog.Any("error", err))
		h.sendError(w, "invalid request body", api.CodeBadRequest, http.StatusBadRequest)
		return false
	}
	return true
}
