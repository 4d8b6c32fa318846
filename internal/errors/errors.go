// errors стандартизирует ответы об ошибках JSON API.
// На вход принимает доменную ошибку (service/auth/session/apiclient),
// на выход даёт:
//   - корректный HTTP-статус;
//   - короткий стабильный код и сообщение, пригодное для показа.
//
// Технические префиксы операций (op) наружу не попадают.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/pribylovaa/roster-share/internal/apiclient"
	"github.com/pribylovaa/roster-share/internal/auth"
	"github.com/pribylovaa/roster-share/internal/service"
	"github.com/pribylovaa/roster-share/internal/session"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// APIError - единый формат ошибки для клиентов API.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse - корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// ToHTTP конвертирует ошибку в HTTP-статус и унифицированный ответ.
//
// Поведение:
//   - err == nil - программная ошибка вызова: 500/internal;
//   - ошибки валидации ввода - 400;
//   - отсутствие/потеря сессии - 401;
//   - ответ удалённого сервиса *apiclient.Error - его 4xx, иначе 502;
//   - сервис недоступен - 503, дедлайн - 504, отмена клиентом - 499;
//   - прочее - 500/internal без деталей.
func ToHTTP(err error) (int, ErrorResponse) {
	status, code, msg := classify(err)

	return status, ErrorResponse{Error: APIError{Code: code, Message: msg}}
}

func classify(err error) (int, string, string) {
	if err == nil {
		return http.StatusInternalServerError, "internal", "internal error"
	}

	msg := service.UserMessage(err)

	var ended *service.SessionEndedError
	switch {
	case stderrors.Is(err, service.ErrValidation),
		stderrors.Is(err, service.ErrShareTokenMissing),
		stderrors.Is(err, apiclient.ErrShareTokenRequired):
		return http.StatusBadRequest, "invalid_argument", msg

	case stderrors.As(err, &ended),
		stderrors.Is(err, service.ErrNotAuthenticated),
		stderrors.Is(err, session.ErrNoSession),
		stderrors.Is(err, auth.ErrSessionExpired):
		return http.StatusUnauthorized, "unauthenticated", msg

	case stderrors.Is(err, auth.ErrInvalidShareToken),
		stderrors.Is(err, session.ErrMalformedToken),
		stderrors.Is(err, apiclient.ErrDecode):
		return http.StatusBadGateway, "bad_upstream_response", msg

	case stderrors.Is(err, context.Canceled):
		return StatusClientClosedRequest, "canceled", "canceled"

	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded"

	case stderrors.Is(err, apiclient.ErrTransport):
		return http.StatusServiceUnavailable, "unavailable", msg
	}

	var apiErr *apiclient.Error
	if stderrors.As(err, &apiErr) {
		return fromUpstream(apiErr.StatusCode), codeFromUpstream(apiErr.StatusCode), apiErr.Message
	}

	return http.StatusInternalServerError, "internal", "internal error"
}

// fromUpstream - 4xx удалённого сервиса отдаём как есть, остальное - 502.
func fromUpstream(status int) int {
	if status >= 400 && status < 500 {
		return status
	}

	return http.StatusBadGateway
}

func codeFromUpstream(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_argument"
	case http.StatusUnauthorized:
		return "unauthenticated"
	case http.StatusForbidden:
		return "permission_denied"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "already_exists"
	case http.StatusTooManyRequests:
		return "resource_exhausted"
	}

	if status >= 400 && status < 500 {
		return "failed_precondition"
	}

	return "upstream_error"
}

// WriteError - хелпер для HTTP-хендлеров.
// Пишет статус/тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
