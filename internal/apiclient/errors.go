package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrTransport - запрос не дошёл до сервиса (сеть, DNS, отмена контекста).
	ErrTransport = errors.New("transport failure")
	// ErrDecode - успешный ответ с телом, которое не удалось разобрать.
	ErrDecode = errors.New("malformed response")
	// ErrShareTokenRequired - пустой share-токен, запрос не отправляется.
	ErrShareTokenRequired = errors.New("Share token is required to fetch data.")
)

// Error - единая ошибка неуспешного HTTP-ответа удалённого сервиса.
// Message уже пригоден для показа пользователю.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string { return e.Message }

// errorBody - структурированная ошибка сервиса: {message} или {detail}.
type errorBody struct {
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

// newError строит *Error из статуса и сырого тела ответа.
//
// Порядок:
//  1. JSON с непустым message;
//  2. JSON с непустым detail;
//  3. разобранный JSON без обоих полей - "API request failed with status N";
//  4. не-JSON тело - "HTTP error N: <тело или статус-текст>".
func newError(status int, body []byte) *Error {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		switch {
		case eb.Message != "":
			return &Error{StatusCode: status, Message: eb.Message}
		case eb.Detail != "":
			return &Error{StatusCode: status, Message: eb.Detail}
		default:
			return &Error{StatusCode: status, Message: fmt.Sprintf("API request failed with status %d", status)}
		}
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		text = http.StatusText(status)
	}

	return &Error{StatusCode: status, Message: fmt.Sprintf("HTTP error %d: %s", status, text)}
}

// authSignatures - подстроки сообщения, которые считаются признаком
// просроченной/невалидной авторизации.
var authSignatures = []string{"401", "expired", "invalid token", "unauthorized"}

// IsAuthFailure сообщает, похожа ли ошибка на отказ авторизации:
// HTTP 401 или характерная подпись в тексте сообщения.
func IsAuthFailure(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, sig := range authSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}

	return false
}

// StatusCode возвращает HTTP-статус из цепочки ошибок или 0.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}

	return 0
}
