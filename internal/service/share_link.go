package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pribylovaa/roster-share/internal/apiclient"
	"github.com/pribylovaa/roster-share/internal/auth"
	logctx "github.com/pribylovaa/roster-share/internal/pkg/log"
	"github.com/pribylovaa/roster-share/internal/session"
)

const msgNoRefreshToken = "Session expired and no refresh token found. Please log in again."

// SessionEndedError - сессия принудительно завершена во время операции.
// Message готов к показу; после такой ошибки пользователь должен войти заново.
type SessionEndedError struct {
	Message string
	Err     error
}

func (e *SessionEndedError) Error() string { return e.Message }
func (e *SessionEndedError) Unwrap() error { return e.Err }

// GenerateShareLink выпускает share-ссылку текущей сессии.
//
// Если первый вызов отклонён как отказ авторизации и есть refresh-токен,
// пара обновляется и весь сценарий повторяется ровно один раз.
// Ошибки, не связанные с авторизацией, возвращаются как есть
// без refresh и без сброса сессии.
func (s *Service) GenerateShareLink(ctx context.Context) (string, error) {
	const op = "service.GenerateShareLink"

	link, err := s.generateShareLink(ctx, false)
	if err != nil {
		s.metrics.ShareLinkDone(shareResult(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.ShareLinkDone("ok")

	return link, nil
}

func (s *Service) generateShareLink(ctx context.Context, retry bool) (string, error) {
	pair, ok := s.session.Tokens()
	if !ok || pair.AccessToken == "" {
		if !retry {
			_ = s.session.Expire(ctx, "")
		}
		return "", ErrNotAuthenticated
	}

	// Токен берётся как есть: единственный refresh за операцию - после отказа авторизации.
	link, err := s.auth.GenerateShareLink(ctx, pair.AccessToken)
	if err == nil {
		return link, nil
	}

	if !apiclient.IsAuthFailure(err) {
		return "", err
	}

	if retry {
		// Повтор после refresh снова отклонён - второго refresh не будет.
		msg := UserMessage(err)
		_ = s.session.Expire(ctx, msg)
		return "", &SessionEndedError{Message: msg, Err: err}
	}

	if pair.RefreshToken == "" {
		_ = s.session.Expire(ctx, msgNoRefreshToken)
		return "", &SessionEndedError{Message: msgNoRefreshToken, Err: err}
	}

	logctx.From(ctx).Info("share_link_auth_failure",
		slog.String("op", "service.GenerateShareLink"),
		slog.String("err", err.Error()),
	)

	if _, rerr := s.session.RefreshFor(ctx, session.TriggerRetry); rerr != nil {
		msg := fmt.Sprintf("Failed to refresh session: %s. Please log in again.", UserMessage(rerr))
		_ = s.session.Expire(ctx, msg)
		return "", &SessionEndedError{Message: msg, Err: rerr}
	}

	return s.generateShareLink(ctx, true)
}

func shareResult(err error) string {
	var ended *SessionEndedError
	switch {
	case errors.Is(err, ErrNotAuthenticated), errors.As(err, &ended):
		return "session_ended"
	case errors.Is(err, auth.ErrInvalidShareToken):
		return "invalid_token"
	default:
		return "error"
	}
}

// UserMessage возвращает текст ошибки, пригодный для показа пользователю,
// без технических префиксов операций.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var ended *SessionEndedError
	if errors.As(err, &ended) {
		return ended.Message
	}

	for _, known := range []error{
		ErrValidation,
		ErrNotAuthenticated,
		ErrShareTokenMissing,
		auth.ErrSessionExpired,
		auth.ErrInvalidShareToken,
		auth.ErrAccessTokenRequired,
		apiclient.ErrShareTokenRequired,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}

	var apiErr *apiclient.Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}

	switch {
	case errors.Is(err, session.ErrNoSession):
		return ErrNotAuthenticated.Error()
	case errors.Is(err, session.ErrMalformedToken):
		return session.MsgMalformedToken
	case errors.Is(err, apiclient.ErrTransport):
		return "Unable to reach the server. Please try again."
	}

	return err.Error()
}
